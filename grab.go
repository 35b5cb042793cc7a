package main

// GrabState is the per-player grab state machine.
type GrabState int

const (
	GrabIdle GrabState = iota
	GrabGrabbing
)

// activeGrab records one held body and the local anchor captured at grab
// time, so the tether pulls the grabbed point, not the center of mass.
type activeGrab struct {
	body  *Body
	local Vec2
}

// GrabController owns every player's grab state for one match. It injects
// tether constraints into the world each tick and resolves same-tick grab
// conflicts by processing players in ascending id order, which gives the
// lower id the win.
type GrabController struct {
	world       *World
	radius      float64
	flingWindow int
	dt          float64
	grabs       map[uint32]*activeGrab
}

func NewGrabController(world *World, radius float64, flingWindow int, dt float64) *GrabController {
	return &GrabController{
		world:       world,
		radius:      radius,
		flingWindow: flingWindow,
		dt:          dt,
		grabs:       make(map[uint32]*activeGrab),
	}
}

// State returns the player's current grab state.
func (gc *GrabController) State(playerID uint32) GrabState {
	if _, ok := gc.grabs[playerID]; ok {
		return GrabGrabbing
	}
	return GrabIdle
}

// HeldBody returns the body held by the player, or nil.
func (gc *GrabController) HeldBody(playerID uint32) *Body {
	if g, ok := gc.grabs[playerID]; ok {
		return g.body
	}
	return nil
}

// Update advances every player's grab state and queues tether constraints
// for the coming physics step. Players must be passed in ascending id order.
func (gc *GrabController) Update(players []*PlayerSlot) {
	for _, p := range players {
		g := gc.grabs[p.ID]

		// A faulted held body counts as destroyed: forced release.
		if g != nil && g.body.Faulted {
			gc.ForceRelease(p.ID)
			g = nil
		}
		if !p.Alive {
			continue
		}

		if p.MouseDown {
			if g == nil {
				if body := gc.findTarget(p.Cursor); body != nil {
					body.HeldBy = p.ID
					body.LastHeldBy = p.ID
					gc.grabs[p.ID] = &activeGrab{
						body:  body,
						local: p.Cursor.Sub(body.Pos).Rotate(-body.Rot),
					}
				}
				// No candidate: stay Idle, no error.
			}
		} else if g != nil {
			// Voluntary release flings with the averaged cursor velocity.
			g.body.Vel = p.flingVelocity(gc.dt)
			g.body.HeldBy = 0
			delete(gc.grabs, p.ID)
		}
	}

	for _, p := range players {
		if g, ok := gc.grabs[p.ID]; ok {
			gc.world.AddTether(g.body, g.local, p.Cursor)
		}
	}
}

// findTarget picks the grab candidate: the nearest Grabbable body within the
// grab radius not already held, ties broken by lowest body id (bodies are
// visited in ascending id order and strict inequality keeps the first).
func (gc *GrabController) findTarget(cursor Vec2) *Body {
	var best *Body
	bestDist := gc.radius + 1
	for _, b := range gc.world.Bodies() {
		if !b.Grabbable || b.Static || b.Faulted || b.HeldBy != 0 {
			continue
		}
		d := bestDist
		for i := range b.Fixtures {
			if fd := fixtureDistance(b, &b.Fixtures[i], cursor); fd < d {
				d = fd
			}
		}
		if d <= gc.radius && d < bestDist {
			best = b
			bestDist = d
		}
	}
	return best
}

// ForceRelease drops a player's grab without imparting any velocity. Used on
// elimination, disconnect, held-body destruction and match end.
func (gc *GrabController) ForceRelease(playerID uint32) {
	if g, ok := gc.grabs[playerID]; ok {
		if g.body.HeldBy == playerID {
			g.body.HeldBy = 0
		}
		delete(gc.grabs, playerID)
	}
}

// ReleaseAll force-releases every grab, used at match end.
func (gc *GrabController) ReleaseAll(players []*PlayerSlot) {
	for _, p := range players {
		gc.ForceRelease(p.ID)
	}
}

// IsOverGrabbable reports whether a grabbable body is within grab reach of
// the point, for the snapshot hover flag.
func (gc *GrabController) IsOverGrabbable(cursor Vec2) bool {
	for _, b := range gc.world.Bodies() {
		if !b.Grabbable || b.Static || b.Faulted {
			continue
		}
		for i := range b.Fixtures {
			if fixtureDistance(b, &b.Fixtures[i], cursor) <= gc.radius {
				return true
			}
		}
	}
	return false
}
