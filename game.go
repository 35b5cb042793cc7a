package main

import (
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

// Broadcaster delivers messages to one connected client.
type Broadcaster interface {
	SendJSON(msg interface{})
	SendRaw(data []byte)
	SendBinary(data []byte)
}

// Game owns one session's entire simulation: world, grabs, eliminations and
// mode machine. All state is guarded by mu; the tick loop and every handler
// take it, so a tick is atomic with respect to joins, inputs and disconnects.
type Game struct {
	mu  sync.RWMutex
	cfg GameConfig

	arena *LoadedMap
	world *World
	grabs *GrabController
	judge *EliminationJudge
	mode  *ModeController

	players map[uint32]*PlayerSlot
	clients map[uint32]Broadcaster
	binary  map[uint32]bool // msgpack snapshot opt-in
	nextID  uint32

	tick      uint64
	running   bool
	announced bool // MatchOver already broadcast
	stop      chan struct{}

	halfW, halfH float64
}

// NewGame builds a session around a loaded map.
func NewGame(cfg GameConfig, mode Mode, m *LoadedMap) *Game {
	dt := cfg.Dt()
	world := NewWorld(m, BuildBodies(m.Registry), dt)
	g := &Game{
		cfg:     cfg,
		arena:   m,
		world:   world,
		grabs:   NewGrabController(world, cfg.GrabRadius, cfg.FlingWindow, dt),
		judge:   NewEliminationJudge(cfg.LethalSpeed),
		mode:    NewModeController(mode, cfg.MinPlayers, ControlZone{Radius: cfg.ZoneRadius}, cfg.ZoneHoldTicks()),
		players: make(map[uint32]*PlayerSlot),
		clients: make(map[uint32]Broadcaster),
		binary:  make(map[uint32]bool),
		stop:    make(chan struct{}),
		halfW:   m.Width / 2,
		halfH:   m.Height / 2,
	}
	world.SetOnFault(func(b *Body) {
		logger.Warnw("body faulted out of simulation", "body", b.ID)
	})
	return g
}

// Run drives the fixed-step tick loop until Stop.
func (g *Game) Run() {
	g.mu.Lock()
	g.running = true
	g.mu.Unlock()

	ticker := time.NewTicker(time.Second / time.Duration(g.cfg.TickRate))
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			g.update()
		case <-g.stop:
			return
		}
	}
}

// Stop terminates the tick loop.
func (g *Game) Stop() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.running {
		g.running = false
		close(g.stop)
	}
}

// AddPlayer joins a new player. Returns nil when the session is full or the
// match already ended.
func (g *Game) AddPlayer(name string) *PlayerSlot {
	g.mu.Lock()
	defer g.mu.Unlock()

	if len(g.players) >= g.cfg.MaxPlayers || g.mode.Phase() == PhaseEnded {
		return nil
	}
	if g.mode.Phase() == PhaseActive && g.mode.Mode() != ModeSandbox {
		// No mid-match joins in competitive modes.
		return nil
	}

	g.nextID++
	p := NewPlayerSlot(g.nextID, name, g.cfg.FlingWindow)
	g.players[p.ID] = p
	return p
}

// MarkRemove flags a player for removal at the end of the current tick, so a
// disconnect mid-tick never perturbs in-flight resolution.
func (g *Game) MarkRemove(id uint32) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if p, ok := g.players[id]; ok {
		p.pendingRemove = true
	}
}

// SetClient associates a broadcaster with a player.
func (g *Game) SetClient(id uint32, client Broadcaster) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.clients[id] = client
}

// SetBinary toggles msgpack snapshot encoding for a player.
func (g *Game) SetBinary(id uint32, on bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if on {
		g.binary[id] = true
	} else {
		delete(g.binary, id)
	}
}

// HandleInput validates and buffers one input packet. Invalid packets are
// dropped whole; buffered input from earlier packets is untouched.
func (g *Game) HandleInput(id uint32, in PlayerInput) {
	if !Finite(in.MouseDX) || !Finite(in.MouseDY) {
		return
	}
	in.MouseDX = Clamp(in.MouseDX, -g.cfg.MaxCursorDelta, g.cfg.MaxCursorDelta)
	in.MouseDY = Clamp(in.MouseDY, -g.cfg.MaxCursorDelta, g.cfg.MaxCursorDelta)

	g.mu.Lock()
	defer g.mu.Unlock()
	if p, ok := g.players[id]; ok {
		p.input.Accumulate(in)
	}
}

// HandleReady marks a lobby player ready.
func (g *Game) HandleReady(id uint32) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if p, ok := g.players[id]; ok && g.mode.Phase() == PhaseLobby {
		p.Ready = true
	}
}

// HasPlayer reports whether the player id is present.
func (g *Game) HasPlayer(id uint32) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, ok := g.players[id]
	return ok
}

// PlayerCount returns the number of players not pending removal.
func (g *Game) PlayerCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	n := 0
	for _, p := range g.players {
		if !p.pendingRemove {
			n++
		}
	}
	return n
}

// Phase returns the current match phase.
func (g *Game) Phase() Phase {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.mode.Phase()
}

// Tick returns the current tick counter.
func (g *Game) Tick() uint64 {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.tick
}

// orderedPlayers returns player slots in ascending id order. Every per-player
// phase of the tick walks this order, never the map.
func (g *Game) orderedPlayers() []*PlayerSlot {
	out := make([]*PlayerSlot, 0, len(g.players))
	for _, p := range g.players {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// update runs one tick: drain input, grabs, physics, eliminations, mode, then
// broadcast. Disconnects queued during the tick are applied at the very end.
func (g *Game) update() {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.tick++
	players := g.orderedPlayers()
	ended := g.mode.Phase() == PhaseEnded

	for _, p := range players {
		in := p.input.Consume()
		p.MouseDown = in.MouseDown
		if ended {
			continue
		}
		d := Vec2{in.MouseDX, in.MouseDY}
		p.Cursor = Vec2{
			Clamp(p.Cursor.X+d.X, -g.halfW, g.halfW),
			Clamp(p.Cursor.Y+d.Y, -g.halfH, g.halfH),
		}
		p.recordDisplacement(d)
	}

	switch g.mode.Phase() {
	case PhaseLobby:
		g.mode.TryStart(players)
	case PhaseActive:
		g.grabs.Update(players)
		g.world.Step()
		g.judge.Judge(g.tick, players, g.world, g.grabs)
		for _, id := range g.judge.EliminatedThisTick(g.tick) {
			g.broadcastMsg(EliminatedMsg{Type: MsgEliminated, ID: id, Tick: g.tick})
		}
		g.mode.Update(g.tick, players, g.judge)
		if res := g.mode.Result(); res != nil && !g.announced {
			g.announced = true
			g.grabs.ReleaseAll(players)
			g.broadcastMsg(MatchOverMsg{
				Type:       MsgMatchOver,
				Winner:     res.WinnerID,
				Draw:       res.Draw,
				Placements: res.Placements,
			})
		}
	}

	g.broadcastSnapshot(players)
	g.applyPendingRemovals()
}

// applyPendingRemovals drops flagged players after the tick has fully
// resolved. Grabs are force-released with no fling.
func (g *Game) applyPendingRemovals() {
	for id, p := range g.players {
		if !p.pendingRemove {
			continue
		}
		g.grabs.ForceRelease(id)
		delete(g.players, id)
		delete(g.clients, id)
		delete(g.binary, id)
	}
}

// Snapshot assembles the wire state for this tick. Caller holds mu.
func (g *Game) snapshot(players []*PlayerSlot) SnapshotMsg {
	snap := SnapshotMsg{
		Type:       MsgGameState,
		Tick:       g.tick,
		Phase:      g.mode.Phase().String(),
		Boundaries: g.arena.Boundaries,
	}
	snap.Objects = worldObjects(g.world)
	for _, p := range players {
		snap.Players = append(snap.Players, PlayerView{
			ID:              p.ID,
			Name:            p.Name,
			X:               p.Cursor.X,
			Y:               p.Cursor.Y,
			Alive:           p.Alive,
			IsGrabbing:      g.grabs.State(p.ID) == GrabGrabbing,
			IsOverGrabbable: p.Alive && g.grabs.IsOverGrabbable(p.Cursor),
		})
	}
	if g.mode.Mode() == ModeControlPoint {
		zone := g.mode.Zone()
		progress := 0.0
		if g.mode.HoldRequired() > 0 {
			progress = float64(g.mode.HoldProgress()) / float64(g.mode.HoldRequired())
		}
		snap.Zone = &ZoneView{
			X:        zone.Center.X,
			Y:        zone.Center.Y,
			Radius:   zone.Radius,
			Holder:   g.mode.CurrentHolder(),
			Progress: progress,
		}
	}
	return snap
}

// worldObjects flattens every visible fixture into wire objects, in world
// iteration order. Boundary walls are implied by the boundaries list and
// faulted bodies are hidden.
func worldObjects(w *World) []ObjectState {
	var out []ObjectState
	for _, b := range w.Bodies() {
		if b.Boundary || b.Faulted {
			continue
		}
		for i := range b.Fixtures {
			f := &b.Fixtures[i]
			pos, rot := b.FixtureWorld(f)
			obj := ObjectState{
				ID:       f.EntityID,
				X:        pos.X,
				Y:        pos.Y,
				Rotation: rot,
				UserData: f.UserData,
			}
			if f.Shape.Kind == ShapeCircle {
				obj.Shape = "Circle"
				obj.Radius = f.Shape.Radius
			} else {
				obj.Shape = "Square"
				obj.HalfWidth = f.Shape.HalfW
				obj.HalfHeight = f.Shape.HalfH
			}
			out = append(out, obj)
		}
	}
	return out
}

// broadcastSnapshot encodes the snapshot once per encoding and fans it out.
func (g *Game) broadcastSnapshot(players []*PlayerSlot) {
	snap := g.snapshot(players)

	jsonData, err := json.Marshal(snap)
	if err != nil {
		logger.Errorw("snapshot marshal failed", "err", err)
		return
	}
	var packed []byte
	if len(g.binary) > 0 {
		if packed, err = msgpack.Marshal(snap); err != nil {
			logger.Errorw("snapshot msgpack failed", "err", err)
			packed = nil
		}
	}

	for id, client := range g.clients {
		if packed != nil && g.binary[id] {
			client.SendBinary(packed)
		} else {
			client.SendRaw(jsonData)
		}
	}
}

// broadcastMsg sends one control message to every client in the session.
func (g *Game) broadcastMsg(msg interface{}) {
	for _, client := range g.clients {
		client.SendJSON(msg)
	}
}

// DebugString summarizes the session for logs.
func (g *Game) DebugString() string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return fmt.Sprintf("tick=%d phase=%s players=%d", g.tick, g.mode.Phase(), len(g.players))
}
