package main

import (
	"math"
	"sort"
)

const (
	linearDamping   = 0.5
	angularDamping  = 0.8
	solverIters     = 8
	maxTetherSpeed  = 40.0 // world units per second
	tetherAngDamp   = 0.85 // per-tick angular velocity retention while held
)

// Fixture is one collider attached to a body at a fixed local offset.
// Compound bodies carry one fixture per member entity.
type Fixture struct {
	EntityID uint32
	Shape    Shape
	Local    Vec2
	LocalRot float64
	Category Category
	UserData uint32
}

// Body is a rigid body. Compound bodies keep their member fixtures at the
// authored relative offsets for the whole match.
type Body struct {
	ID          uint32
	Fixtures    []Fixture
	Pos         Vec2
	Rot         float64
	Vel         Vec2
	AngVel      float64
	Mass        float64
	InvMass     float64
	Inertia     float64
	InvInertia  float64
	Restitution float64
	Static      bool
	Boundary    bool // arena wall, excluded from snapshots
	Grabbable   bool // any fixture is Grabbable
	Deadly      bool // any fixture is Death
	Faulted     bool // corrupted state, excluded from simulation
	HeldBy      uint32 // player id currently tethering this body, 0 if none
	LastHeldBy  uint32 // most recent holder; a flung body never harms its thrower
}

// FixtureWorld returns the world-space placement of a fixture.
func (b *Body) FixtureWorld(f *Fixture) (Vec2, float64) {
	return b.Pos.Add(f.Local.Rotate(b.Rot)), b.Rot + f.LocalRot
}

// velocityAt returns the velocity of the body point at offset r from the
// center of mass.
func (b *Body) velocityAt(r Vec2) Vec2 {
	return Vec2{b.Vel.X - b.AngVel*r.Y, b.Vel.Y + b.AngVel*r.X}
}

func (b *Body) applyImpulse(impulse, r Vec2) {
	if b.InvMass == 0 {
		return
	}
	b.Vel = b.Vel.Add(impulse.Scale(b.InvMass))
	b.AngVel += r.Cross(impulse) * b.InvInertia
}

// Speed returns the magnitude of the linear velocity.
func (b *Body) Speed() float64 { return b.Vel.Len() }

// tether is a positional constraint pulling a held body's anchor point onto
// the owning player's cursor. It is velocity-level on purpose: the body's
// velocity is set so the anchor reaches the target within one step, which
// keeps control 1:1 instead of springy.
type tether struct {
	body   *Body
	local  Vec2
	target Vec2
}

// World steps all bodies at a fixed timestep. Bodies are kept in ascending
// id order and every phase iterates that order, so a step is a pure function
// of the prior state: identical state in, bit-identical positions out.
type World struct {
	bodies   []*Body
	byEntity map[uint32]*Body
	gravity  Vec2
	dt       float64
	tethers  []tether
	onFault  func(b *Body)
}

// NewWorld assembles a world from built bodies plus the four boundary walls.
func NewWorld(m *LoadedMap, bodies []*Body, dt float64) *World {
	w := &World{
		gravity:  m.Gravity,
		dt:       dt,
		byEntity: make(map[uint32]*Body),
	}
	w.bodies = append(w.bodies, bodies...)

	wallID := m.Registry.MaxID() + 1
	for _, bd := range m.Boundaries {
		w.bodies = append(w.bodies, &Body{
			ID:       wallID,
			Pos:      Vec2{bd.X, bd.Y},
			Static:   true,
			Boundary: true,
			Fixtures: []Fixture{{
				EntityID: wallID,
				Shape:    Shape{Kind: ShapeRect, HalfW: bd.HalfWidth, HalfH: bd.HalfHeight},
				Category: CategoryWall,
			}},
		})
		wallID++
	}
	sort.Slice(w.bodies, func(i, j int) bool { return w.bodies[i].ID < w.bodies[j].ID })
	for _, b := range w.bodies {
		for i := range b.Fixtures {
			w.byEntity[b.Fixtures[i].EntityID] = b
		}
	}
	return w
}

// Bodies returns all bodies in ascending id order, boundary walls included.
func (w *World) Bodies() []*Body { return w.bodies }

// BodyForEntity returns the body owning the given entity id, or nil.
func (w *World) BodyForEntity(id uint32) *Body { return w.byEntity[id] }

// SetOnFault installs a callback invoked when a body is excluded for
// non-finite state.
func (w *World) SetOnFault(fn func(b *Body)) { w.onFault = fn }

// AddTether queues a tether constraint for the next step. Constraints are
// consumed by Step and must be re-queued every tick while a grab holds.
func (w *World) AddTether(b *Body, local, target Vec2) {
	w.tethers = append(w.tethers, tether{body: b, local: local, target: target})
}

// Step advances the simulation by the fixed timestep: gravity, tether
// constraints, integration, then iterative contact resolution.
func (w *World) Step() {
	dt := w.dt

	for _, b := range w.bodies {
		if b.Static || b.Faulted {
			continue
		}
		b.Vel = b.Vel.Add(w.gravity.Scale(dt))
	}

	// Tethers run after gravity so held bodies track the cursor exactly.
	for i := range w.tethers {
		t := &w.tethers[i]
		if t.body.Faulted || t.body.Static {
			continue
		}
		anchor := t.body.Pos.Add(t.local.Rotate(t.body.Rot))
		v := t.target.Sub(anchor).Scale(1 / dt)
		if s := v.Len(); s > maxTetherSpeed {
			v = v.Scale(maxTetherSpeed / s)
		}
		t.body.Vel = v
		t.body.AngVel *= tetherAngDamp
	}
	w.tethers = w.tethers[:0]

	linDamp := 1 / (1 + dt*linearDamping)
	angDamp := 1 / (1 + dt*angularDamping)
	for _, b := range w.bodies {
		if b.Static || b.Faulted {
			continue
		}
		b.Vel = b.Vel.Scale(linDamp)
		b.AngVel *= angDamp
		b.Pos = b.Pos.Add(b.Vel.Scale(dt))
		b.Rot = normalizeAngle(b.Rot + b.AngVel*dt)
	}

	manifolds := w.collectManifolds()
	for iter := 0; iter < solverIters; iter++ {
		for _, m := range manifolds {
			resolveManifold(m)
		}
	}
	for _, m := range manifolds {
		correctPosition(m)
	}

	for _, b := range w.bodies {
		if b.Static || b.Faulted {
			continue
		}
		if !b.Pos.Finite() || !b.Vel.Finite() || math.IsNaN(b.Rot) || math.IsInf(b.Rot, 0) {
			b.Faulted = true
			b.Vel = Vec2{}
			b.AngVel = 0
			if w.onFault != nil {
				w.onFault(b)
			}
		}
	}
}

// collectManifolds visits body pairs in index order so the contact list, and
// therefore the solve order, is identical across runs.
func (w *World) collectManifolds() []*Manifold {
	var out []*Manifold
	for i := 0; i < len(w.bodies); i++ {
		a := w.bodies[i]
		if a.Faulted {
			continue
		}
		for j := i + 1; j < len(w.bodies); j++ {
			b := w.bodies[j]
			if b.Faulted || (a.Static && b.Static) {
				continue
			}
			for fi := range a.Fixtures {
				for fj := range b.Fixtures {
					if m := detectFixturePair(a, &a.Fixtures[fi], b, &b.Fixtures[fj]); m != nil {
						out = append(out, m)
					}
				}
			}
		}
	}
	return out
}

// PointHit is one fixture overlapping a queried point.
type PointHit struct {
	Body    *Body
	Fixture *Fixture
}

// QueryPoint returns every non-faulted fixture containing p, in ascending
// body id order.
func (w *World) QueryPoint(p Vec2) []PointHit {
	var hits []PointHit
	for _, b := range w.bodies {
		if b.Faulted {
			continue
		}
		for i := range b.Fixtures {
			if fixtureContains(b, &b.Fixtures[i], p) {
				hits = append(hits, PointHit{Body: b, Fixture: &b.Fixtures[i]})
			}
		}
	}
	return hits
}

func normalizeAngle(a float64) float64 {
	for a > math.Pi {
		a -= 2 * math.Pi
	}
	for a < -math.Pi {
		a += 2 * math.Pi
	}
	return a
}
