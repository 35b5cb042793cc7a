package main

// Elimination is one entry in the ordered elimination log, used to resolve
// draws and final placement.
type Elimination struct {
	PlayerID uint32
	Tick     uint64
}

// EliminationJudge tests alive cursors against hazards each tick. A cursor
// dies inside a Death fixture, or inside any dynamic body moving at lethal
// speed — that is what makes a flung block a weapon. A body is never lethal
// to its own most recent holder, the same owner immunity a projectile gives
// its shooter. Eliminated players are never resurrected.
type EliminationJudge struct {
	lethalSpeed float64
	log         []Elimination
}

func NewEliminationJudge(lethalSpeed float64) *EliminationJudge {
	return &EliminationJudge{lethalSpeed: lethalSpeed}
}

// Log returns the elimination log in order of death.
func (ej *EliminationJudge) Log() []Elimination { return ej.log }

// EliminatedThisTick returns the player ids recorded at the given tick.
func (ej *EliminationJudge) EliminatedThisTick(tick uint64) []uint32 {
	var ids []uint32
	for _, e := range ej.log {
		if e.Tick == tick {
			ids = append(ids, e.PlayerID)
		}
	}
	return ids
}

// Judge evaluates every alive player against the post-step world. Players
// must be passed in ascending id order so the log order is deterministic
// for same-tick eliminations.
func (ej *EliminationJudge) Judge(tick uint64, players []*PlayerSlot, world *World, grabs *GrabController) {
	for _, p := range players {
		if !p.Alive {
			continue
		}
		if ej.lethal(p, world) {
			p.Alive = false
			p.EliminatedAt = tick
			grabs.ForceRelease(p.ID)
			ej.log = append(ej.log, Elimination{PlayerID: p.ID, Tick: tick})
		}
	}
}

func (ej *EliminationJudge) lethal(p *PlayerSlot, world *World) bool {
	for _, hit := range world.QueryPoint(p.Cursor) {
		if hit.Fixture.Category == CategoryDeath {
			return true
		}
		if !hit.Body.Static && hit.Body.LastHeldBy != p.ID && hit.Body.Speed() >= ej.lethalSpeed {
			return true
		}
	}
	return false
}
