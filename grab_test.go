package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func grabWorld(t *testing.T, entities ...*Entity) (*World, *GrabController) {
	t.Helper()
	w := buildWorld(t, entities)
	return w, NewGrabController(w, 0.25, 3, testDt)
}

func slot(id uint32) *PlayerSlot {
	return NewPlayerSlot(id, "p", 3)
}

func TestGrabNearestWithinRadius(t *testing.T) {
	w, gc := grabWorld(t,
		&Entity{ID: 1, Shape: Shape{Kind: ShapeRect, HalfW: 0.1, HalfH: 0.1}, Pos: Vec2{0, 0}, Category: CategoryGrabbable},
		&Entity{ID: 2, Shape: Shape{Kind: ShapeRect, HalfW: 0.1, HalfH: 0.1}, Pos: Vec2{1, 0}, Category: CategoryGrabbable},
	)
	p := slot(1)
	p.Cursor = Vec2{0.25, 0} // 0.05 from entity 1's edge, 0.65 from entity 2's
	p.MouseDown = true

	gc.Update([]*PlayerSlot{p})
	require.Equal(t, GrabGrabbing, gc.State(p.ID))
	assert.Equal(t, uint32(1), gc.HeldBody(p.ID).ID)
	assert.Equal(t, p.ID, w.BodyForEntity(1).HeldBy)
}

func TestGrabNothingInRange(t *testing.T) {
	_, gc := grabWorld(t,
		&Entity{ID: 1, Shape: Shape{Kind: ShapeRect, HalfW: 0.1, HalfH: 0.1}, Pos: Vec2{3, 3}, Category: CategoryGrabbable},
	)
	p := slot(1)
	p.MouseDown = true

	gc.Update([]*PlayerSlot{p})
	assert.Equal(t, GrabIdle, gc.State(p.ID), "no candidate leaves the player idle")
}

func TestGrabTieBreaksToLowestBodyID(t *testing.T) {
	// Two bodies exactly equidistant from the cursor.
	_, gc := grabWorld(t,
		&Entity{ID: 1, Shape: Shape{Kind: ShapeRect, HalfW: 0.1, HalfH: 0.1}, Pos: Vec2{-0.3, 0}, Category: CategoryGrabbable},
		&Entity{ID: 2, Shape: Shape{Kind: ShapeRect, HalfW: 0.1, HalfH: 0.1}, Pos: Vec2{0.3, 0}, Category: CategoryGrabbable},
	)
	p := slot(1)
	p.MouseDown = true

	gc.Update([]*PlayerSlot{p})
	require.Equal(t, GrabGrabbing, gc.State(p.ID))
	assert.Equal(t, uint32(1), gc.HeldBody(p.ID).ID)
}

func TestGrabConflictLowerPlayerIDWins(t *testing.T) {
	w, gc := grabWorld(t,
		&Entity{ID: 1, Shape: Shape{Kind: ShapeRect, HalfW: 0.1, HalfH: 0.1}, Pos: Vec2{0, 0}, Category: CategoryGrabbable},
	)
	p1, p2 := slot(1), slot(2)
	p1.MouseDown, p2.MouseDown = true, true

	gc.Update([]*PlayerSlot{p1, p2})
	assert.Equal(t, GrabGrabbing, gc.State(p1.ID))
	assert.Equal(t, GrabIdle, gc.State(p2.ID))
	assert.Equal(t, p1.ID, w.BodyForEntity(1).HeldBy)
}

func TestGrabSingleHolderInvariant(t *testing.T) {
	w, gc := grabWorld(t,
		&Entity{ID: 1, Shape: Shape{Kind: ShapeRect, HalfW: 0.1, HalfH: 0.1}, Pos: Vec2{0, 0}, Category: CategoryGrabbable},
	)
	p1, p2 := slot(1), slot(2)
	p1.MouseDown, p2.MouseDown = true, true
	players := []*PlayerSlot{p1, p2}

	for i := 0; i < 10; i++ {
		gc.Update(players)
		w.Step()
		holders := 0
		for _, p := range players {
			if gc.HeldBody(p.ID) != nil {
				holders++
			}
		}
		assert.LessOrEqual(t, holders, 1)
	}
}

func TestVoluntaryReleaseFlingsAveragedVelocity(t *testing.T) {
	w, gc := grabWorld(t,
		&Entity{ID: 1, Shape: Shape{Kind: ShapeRect, HalfW: 0.1, HalfH: 0.1}, Pos: Vec2{0, 0}, Category: CategoryGrabbable},
	)
	p := slot(1)
	p.MouseDown = true
	gc.Update([]*PlayerSlot{p})
	require.Equal(t, GrabGrabbing, gc.State(p.ID))

	// Three ticks of steady rightward cursor motion.
	d := Vec2{0.05, 0}
	for i := 0; i < 3; i++ {
		p.Cursor = p.Cursor.Add(d)
		p.recordDisplacement(d)
		gc.Update([]*PlayerSlot{p})
		w.Step()
	}

	p.MouseDown = false
	gc.Update([]*PlayerSlot{p})

	assert.Equal(t, GrabIdle, gc.State(p.ID))
	b := w.BodyForEntity(1)
	assert.Zero(t, b.HeldBy)
	assert.InDelta(t, 0.05/testDt, b.Vel.X, 1e-9, "release velocity is the window average")
	assert.InDelta(t, 0, b.Vel.Y, 1e-9)
}

func TestForcedReleaseImpartsNothing(t *testing.T) {
	w, gc := grabWorld(t,
		&Entity{ID: 1, Shape: Shape{Kind: ShapeRect, HalfW: 0.1, HalfH: 0.1}, Pos: Vec2{0, 0}, Category: CategoryGrabbable},
	)
	p := slot(1)
	p.MouseDown = true
	gc.Update([]*PlayerSlot{p})
	require.Equal(t, GrabGrabbing, gc.State(p.ID))

	b := w.BodyForEntity(1)
	b.Vel = Vec2{} // settle
	for i := 0; i < 3; i++ {
		p.recordDisplacement(Vec2{1, 0}) // fast motion that must NOT transfer
	}
	gc.ForceRelease(p.ID)

	assert.Equal(t, GrabIdle, gc.State(p.ID))
	assert.Zero(t, b.HeldBy)
	assert.Equal(t, Vec2{}, b.Vel)
}

func TestHeldBodyExcludedFromSearch(t *testing.T) {
	_, gc := grabWorld(t,
		&Entity{ID: 1, Shape: Shape{Kind: ShapeRect, HalfW: 0.1, HalfH: 0.1}, Pos: Vec2{0, 0}, Category: CategoryGrabbable},
	)
	p1, p2 := slot(1), slot(2)
	p1.MouseDown = true
	gc.Update([]*PlayerSlot{p1, p2})
	require.Equal(t, GrabGrabbing, gc.State(p1.ID))

	// p2 presses next tick while p1 still holds.
	p2.MouseDown = true
	gc.Update([]*PlayerSlot{p1, p2})
	assert.Equal(t, GrabIdle, gc.State(p2.ID))
	assert.Equal(t, GrabGrabbing, gc.State(p1.ID))
}

func TestStaticAndWallNeverGrabbable(t *testing.T) {
	_, gc := grabWorld(t,
		&Entity{ID: 1, Shape: Shape{Kind: ShapeRect, HalfW: 0.5, HalfH: 0.5}, Pos: Vec2{0, 0}, Static: true, Category: CategoryWall},
	)
	p := slot(1)
	p.MouseDown = true
	gc.Update([]*PlayerSlot{p})
	assert.Equal(t, GrabIdle, gc.State(p.ID))
	assert.False(t, gc.IsOverGrabbable(p.Cursor))
}

func TestDeadPlayerCannotGrab(t *testing.T) {
	_, gc := grabWorld(t,
		&Entity{ID: 1, Shape: Shape{Kind: ShapeRect, HalfW: 0.1, HalfH: 0.1}, Pos: Vec2{0, 0}, Category: CategoryGrabbable},
	)
	p := slot(1)
	p.Alive = false
	p.MouseDown = true
	gc.Update([]*PlayerSlot{p})
	assert.Equal(t, GrabIdle, gc.State(p.ID))
}
