package main

// LocalGame runs the simulation pipeline for a single player with no
// networking: the embedder feeds input and steps the game from its own
// render loop. Sandbox rules, so nothing ever ends the session.
type LocalGame struct {
	cfg    GameConfig
	arena  *LoadedMap
	world  *World
	grabs  *GrabController
	judge  *EliminationJudge
	player *PlayerSlot
	tick   uint64

	halfW, halfH float64
}

// NewLocalGame builds a single-player session. A nil document yields the
// default arena.
func NewLocalGame(cfg GameConfig, doc *MapDocument) (*LocalGame, error) {
	m, err := LoadMap(doc)
	if err != nil {
		return nil, err
	}
	dt := cfg.Dt()
	world := NewWorld(m, BuildBodies(m.Registry), dt)
	return &LocalGame{
		cfg:    cfg,
		arena:  m,
		world:  world,
		grabs:  NewGrabController(world, cfg.GrabRadius, cfg.FlingWindow, dt),
		judge:  NewEliminationJudge(cfg.LethalSpeed),
		player: NewPlayerSlot(1, "Local", cfg.FlingWindow),
		halfW:  m.Width / 2,
		halfH:  m.Height / 2,
	}, nil
}

// HandleInput buffers one input packet, with the same validation as the
// networked path.
func (lg *LocalGame) HandleInput(in PlayerInput) {
	if !Finite(in.MouseDX) || !Finite(in.MouseDY) {
		return
	}
	in.MouseDX = Clamp(in.MouseDX, -lg.cfg.MaxCursorDelta, lg.cfg.MaxCursorDelta)
	in.MouseDY = Clamp(in.MouseDY, -lg.cfg.MaxCursorDelta, lg.cfg.MaxCursorDelta)
	lg.player.input.Accumulate(in)
}

// Step advances one fixed tick and returns the snapshot for rendering.
func (lg *LocalGame) Step() SnapshotMsg {
	lg.tick++
	p := lg.player
	players := []*PlayerSlot{p}

	in := p.input.Consume()
	p.MouseDown = in.MouseDown
	d := Vec2{in.MouseDX, in.MouseDY}
	p.Cursor = Vec2{
		Clamp(p.Cursor.X+d.X, -lg.halfW, lg.halfW),
		Clamp(p.Cursor.Y+d.Y, -lg.halfH, lg.halfH),
	}
	p.recordDisplacement(d)

	lg.grabs.Update(players)
	lg.world.Step()
	lg.judge.Judge(lg.tick, players, lg.world, lg.grabs)

	return lg.snapshot()
}

// Alive reports whether the local player survived so far. Hazards still
// eliminate in sandbox; the embedder decides whether to respawn.
func (lg *LocalGame) Alive() bool { return lg.player.Alive }

// Respawn revives the local player in place.
func (lg *LocalGame) Respawn() {
	lg.player.Alive = true
	lg.player.EliminatedAt = 0
}

func (lg *LocalGame) snapshot() SnapshotMsg {
	snap := SnapshotMsg{
		Type:       MsgGameState,
		Tick:       lg.tick,
		Phase:      PhaseActive.String(),
		Boundaries: lg.arena.Boundaries,
	}
	snap.Objects = worldObjects(lg.world)
	p := lg.player
	snap.Players = append(snap.Players, PlayerView{
		ID:              p.ID,
		Name:            p.Name,
		X:               p.Cursor.X,
		Y:               p.Cursor.Y,
		Alive:           p.Alive,
		IsGrabbing:      lg.grabs.State(p.ID) == GrabGrabbing,
		IsOverGrabbable: p.Alive && lg.grabs.IsOverGrabbable(p.Cursor),
	})
	return snap
}
