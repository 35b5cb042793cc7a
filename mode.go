package main

// Phase is the match lifecycle. Ended is terminal: the simulation keeps
// broadcasting its final snapshot but no game state mutates.
type Phase int

const (
	PhaseLobby Phase = iota
	PhaseActive
	PhaseEnded
)

func (p Phase) String() string {
	switch p {
	case PhaseLobby:
		return "Lobby"
	case PhaseActive:
		return "Active"
	case PhaseEnded:
		return "Ended"
	}
	return "Unknown"
}

// Mode selects the win condition for a session.
type Mode int

const (
	ModeSandbox Mode = iota // no win logic, never ends
	ModeLMS                 // last man standing
	ModeControlPoint        // hold the zone alone
)

func ParseMode(s string) Mode {
	switch s {
	case "lms":
		return ModeLMS
	case "control_point":
		return ModeControlPoint
	}
	return ModeSandbox
}

// ControlZone is the control-point capture circle, in world space.
type ControlZone struct {
	Center Vec2
	Radius float64
}

// MatchResult is the terminal outcome. Draw and WinnerID are mutually
// exclusive; Placements lists player ids best-first.
type MatchResult struct {
	Draw       bool
	WinnerID   uint32
	Placements []uint32
}

// ModeController drives the phase machine and the per-mode win condition.
// It runs after the EliminationJudge each tick, so it sees the tick's
// eliminations before ruling.
type ModeController struct {
	mode       Mode
	phase      Phase
	minPlayers int

	zone      ControlZone
	holdTicks uint64
	holder    uint32 // current sole occupant, 0 if none
	held      uint64 // consecutive ticks the holder has held alone

	result *MatchResult
}

func NewModeController(mode Mode, minPlayers int, zone ControlZone, holdTicks uint64) *ModeController {
	if minPlayers < 2 {
		minPlayers = 2
	}
	return &ModeController{
		mode:       mode,
		phase:      PhaseLobby,
		minPlayers: minPlayers,
		zone:       zone,
		holdTicks:  holdTicks,
	}
}

func (mc *ModeController) Phase() Phase          { return mc.phase }
func (mc *ModeController) Mode() Mode            { return mc.mode }
func (mc *ModeController) Result() *MatchResult  { return mc.result }
func (mc *ModeController) Zone() ControlZone     { return mc.zone }
func (mc *ModeController) HoldProgress() uint64  { return mc.held }
func (mc *ModeController) HoldRequired() uint64  { return mc.holdTicks }
func (mc *ModeController) CurrentHolder() uint32 { return mc.holder }

// TryStart moves Lobby to Active once enough players have joined and every
// joined player is ready. Sandbox starts with any player count.
func (mc *ModeController) TryStart(players []*PlayerSlot) bool {
	if mc.phase != PhaseLobby {
		return false
	}
	if mc.mode == ModeSandbox {
		if len(players) >= 1 {
			mc.phase = PhaseActive
			return true
		}
		return false
	}
	if len(players) < mc.minPlayers {
		return false
	}
	for _, p := range players {
		if !p.Ready {
			return false
		}
	}
	mc.phase = PhaseActive
	return true
}

// Update evaluates the win condition for this tick. Players must be in
// ascending id order. Once Ended, it is a no-op.
func (mc *ModeController) Update(tick uint64, players []*PlayerSlot, judge *EliminationJudge) {
	if mc.phase != PhaseActive || mc.mode == ModeSandbox {
		return
	}

	alive := alivePlayers(players)

	// Elimination ends any competitive mode: a sole survivor wins, zero
	// survivors is an explicit simultaneous draw.
	if len(alive) <= 1 {
		if len(alive) == 1 {
			mc.finish(players, judge, alive[0].ID, false)
		} else {
			mc.finish(players, judge, 0, true)
		}
		return
	}

	if mc.mode == ModeControlPoint {
		mc.updateControlPoint(players, judge, alive)
	}
}

// updateControlPoint advances the strict single-occupant accumulator. The
// accumulator resets whenever the zone holds zero or two-plus cursors, and
// whenever the sole occupant changes.
func (mc *ModeController) updateControlPoint(players []*PlayerSlot, judge *EliminationJudge, alive []*PlayerSlot) {
	var occupant uint32
	count := 0
	for _, p := range alive {
		if p.Cursor.Sub(mc.zone.Center).Len() <= mc.zone.Radius {
			occupant = p.ID
			count++
		}
	}

	if count != 1 {
		mc.holder, mc.held = 0, 0
		return
	}
	if occupant != mc.holder {
		mc.holder, mc.held = occupant, 0
	}
	mc.held++
	if mc.held >= mc.holdTicks {
		mc.finish(players, judge, occupant, false)
	}
}

// finish seals the match: compute placements, release the phase machine into
// its terminal state.
func (mc *ModeController) finish(players []*PlayerSlot, judge *EliminationJudge, winner uint32, draw bool) {
	mc.phase = PhaseEnded
	res := &MatchResult{Draw: draw, WinnerID: winner}

	// Placement order: winner, then remaining survivors by ascending id
	// (control point can end with several alive), then the eliminated in
	// reverse elimination order.
	if winner != 0 {
		res.Placements = append(res.Placements, winner)
	}
	for _, p := range players {
		if p.Alive && p.ID != winner {
			res.Placements = append(res.Placements, p.ID)
		}
	}
	log := judge.Log()
	for i := len(log) - 1; i >= 0; i-- {
		res.Placements = append(res.Placements, log[i].PlayerID)
	}

	byID := make(map[uint32]*PlayerSlot, len(players))
	for _, p := range players {
		byID[p.ID] = p
	}
	for rank, id := range res.Placements {
		if p, ok := byID[id]; ok {
			p.Placement = rank + 1
		}
	}
	mc.result = res
}

func alivePlayers(players []*PlayerSlot) []*PlayerSlot {
	var out []*PlayerSlot
	for _, p := range players {
		if p.Alive {
			out = append(out, p)
		}
	}
	return out
}
