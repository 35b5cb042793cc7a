package main

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testDt = 1.0 / 60.0

func buildDefaultWorld(t *testing.T) *World {
	t.Helper()
	m, err := LoadMap(nil)
	require.NoError(t, err)
	return NewWorld(m, BuildBodies(m.Registry), testDt)
}

func buildWorld(t *testing.T, entities []*Entity) *World {
	t.Helper()
	m, err := LoadMap(nil)
	require.NoError(t, err)
	reg := NewEntityRegistry()
	for _, e := range entities {
		require.NoError(t, reg.Add(e))
	}
	m.Registry = reg
	return NewWorld(m, BuildBodies(reg), testDt)
}

func TestStepDeterministicBitForBit(t *testing.T) {
	run := func() []uint64 {
		w := buildDefaultWorld(t)
		for i := 0; i < 300; i++ {
			w.Step()
		}
		var bits []uint64
		for _, b := range w.Bodies() {
			bits = append(bits,
				math.Float64bits(b.Pos.X),
				math.Float64bits(b.Pos.Y),
				math.Float64bits(b.Rot),
				math.Float64bits(b.Vel.X),
				math.Float64bits(b.Vel.Y),
				math.Float64bits(b.AngVel),
			)
		}
		return bits
	}

	first := run()
	second := run()
	require.Equal(t, first, second, "repeated runs must produce bit-identical state")
}

func TestBodiesFallUnderGravity(t *testing.T) {
	w := buildWorld(t, []*Entity{
		{ID: 1, Shape: Shape{Kind: ShapeRect, HalfW: 0.3, HalfH: 0.3}, Pos: Vec2{0, 2}, Category: CategoryGrabbable},
	})
	b := w.BodyForEntity(1)
	require.NotNil(t, b)
	startY := b.Pos.Y

	for i := 0; i < 30; i++ {
		w.Step()
	}
	assert.Less(t, b.Pos.Y, startY, "dynamic body should fall")
	assert.Less(t, b.Vel.Y, 0.0)
}

func TestStaticBodiesNeverMove(t *testing.T) {
	w := buildWorld(t, []*Entity{
		{ID: 1, Shape: Shape{Kind: ShapeRect, HalfW: 1, HalfH: 0.2}, Pos: Vec2{0, 0}, Static: true, Category: CategoryWall},
		{ID: 2, Shape: Shape{Kind: ShapeCircle, Radius: 0.2}, Pos: Vec2{0, 1}, Category: CategoryGrabbable},
	})
	wall := w.BodyForEntity(1)
	pos := wall.Pos

	for i := 0; i < 240; i++ {
		w.Step()
	}
	assert.Equal(t, pos, wall.Pos)
	assert.Equal(t, Vec2{}, wall.Vel)
}

func TestBallSettlesOnFloor(t *testing.T) {
	w := buildWorld(t, []*Entity{
		{ID: 1, Shape: Shape{Kind: ShapeCircle, Radius: 0.2}, Pos: Vec2{0, 1}, Category: CategoryGrabbable},
	})
	b := w.BodyForEntity(1)

	// Long settle: the ball must come to rest on the floor wall, not sink
	// through it. Floor surface is at y = -4.5 + 0.1.
	for i := 0; i < 1200; i++ {
		w.Step()
	}
	floorTop := -DefaultWorldHeight/2 + WallThickness
	assert.Greater(t, b.Pos.Y, floorTop, "ball must stay above the floor")
	assert.InDelta(t, floorTop+0.2, b.Pos.Y, 0.05, "ball should rest on the surface")
	assert.Less(t, b.Speed(), 0.2, "ball should be nearly at rest")
}

func TestNonFiniteStateFaultsBody(t *testing.T) {
	w := buildWorld(t, []*Entity{
		{ID: 1, Shape: Shape{Kind: ShapeCircle, Radius: 0.2}, Pos: Vec2{0, 0}, Category: CategoryGrabbable},
		{ID: 2, Shape: Shape{Kind: ShapeCircle, Radius: 0.2}, Pos: Vec2{2, 0}, Category: CategoryGrabbable},
	})
	var faulted []uint32
	w.SetOnFault(func(b *Body) { faulted = append(faulted, b.ID) })

	bad := w.BodyForEntity(1)
	bad.Vel = Vec2{math.NaN(), 0}
	w.Step()

	require.True(t, bad.Faulted)
	assert.Equal(t, []uint32{1}, faulted)
	assert.Equal(t, Vec2{}, bad.Vel, "faulted body velocity is zeroed")

	// Later steps keep running and never touch the faulted body again.
	pos := bad.Pos
	for i := 0; i < 60; i++ {
		w.Step()
	}
	assert.Equal(t, pos, bad.Pos)
	good := w.BodyForEntity(2)
	assert.False(t, good.Faulted)
}

func TestQueryPointAscendingBodyOrder(t *testing.T) {
	w := buildWorld(t, []*Entity{
		{ID: 1, Shape: Shape{Kind: ShapeRect, HalfW: 1, HalfH: 1}, Pos: Vec2{0, 0}, Static: true, Category: CategoryWall},
		{ID: 2, Shape: Shape{Kind: ShapeCircle, Radius: 1}, Pos: Vec2{0, 0}, Category: CategoryGrabbable},
	})
	hits := w.QueryPoint(Vec2{0, 0})
	require.Len(t, hits, 2)
	assert.Equal(t, uint32(1), hits[0].Body.ID)
	assert.Equal(t, uint32(2), hits[1].Body.ID)

	assert.Empty(t, w.QueryPoint(Vec2{3, 3}))
}

func TestTetherPullsAnchorToTarget(t *testing.T) {
	w := buildWorld(t, []*Entity{
		{ID: 1, Shape: Shape{Kind: ShapeRect, HalfW: 0.3, HalfH: 0.3}, Pos: Vec2{0, 0}, Category: CategoryGrabbable},
	})
	b := w.BodyForEntity(1)

	target := Vec2{0.5, 0.3}
	for i := 0; i < 120; i++ {
		w.AddTether(b, Vec2{}, target)
		w.Step()
	}
	assert.InDelta(t, target.X, b.Pos.X, 0.05)
	assert.InDelta(t, target.Y, b.Pos.Y, 0.05)
}

func TestCompoundKeepsRelativeOffsets(t *testing.T) {
	w := buildWorld(t, []*Entity{
		{ID: 1, Shape: Shape{Kind: ShapeRect, HalfW: 0.2, HalfH: 0.2}, Pos: Vec2{-0.3, 1}, Category: CategoryGrabbable},
		{ID: 2, Shape: Shape{Kind: ShapeRect, HalfW: 0.2, HalfH: 0.2}, Pos: Vec2{0.3, 1}, Category: CategoryGrabbable, Parent: 1},
	})
	b := w.BodyForEntity(1)
	require.Same(t, b, w.BodyForEntity(2), "parented entities share one body")
	require.Len(t, b.Fixtures, 2)

	gap := func() float64 {
		p1, _ := b.FixtureWorld(&b.Fixtures[0])
		p2, _ := b.FixtureWorld(&b.Fixtures[1])
		return p2.Sub(p1).Len()
	}
	before := gap()

	b.Vel = Vec2{1.5, 1}
	b.AngVel = 2
	for i := 0; i < 240; i++ {
		w.Step()
	}
	assert.InDelta(t, before, gap(), 1e-9, "member offsets are rigid")
}
