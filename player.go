package main

// PlayerInput is the decoded per-tick input message. Deltas are world-space
// cursor displacement since the last message.
type PlayerInput struct {
	MouseDX   float64 `json:"mouse_dx"`
	MouseDY   float64 `json:"mouse_dy"`
	MouseDown bool    `json:"is_mouse_down"`
}

// InputBuffer accumulates inbound input between ticks. Directional deltas
// sum until consumed; the grab boolean is last-write-wins and persists
// across ticks with no fresh packet. Consume zeroes the deltas exactly once
// per tick. Mutated only under the owning Game's lock.
type InputBuffer struct {
	dx, dy    float64
	mouseDown bool
}

// Accumulate folds one valid packet into the buffer.
func (ib *InputBuffer) Accumulate(in PlayerInput) {
	ib.dx += in.MouseDX
	ib.dy += in.MouseDY
	ib.mouseDown = in.MouseDown
}

// Consume drains the buffered deltas and returns the effective input for
// this tick.
func (ib *InputBuffer) Consume() PlayerInput {
	out := PlayerInput{MouseDX: ib.dx, MouseDY: ib.dy, MouseDown: ib.mouseDown}
	ib.dx, ib.dy = 0, 0
	return out
}

// PlayerSlot is one player's simulation state. The cursor is a point probe,
// not a physics body. Slots are created on join and kept (marked eliminated)
// until match end so elimination order and spectating stay representable;
// disconnects are applied only at tick boundaries.
type PlayerSlot struct {
	ID        uint32
	Name      string
	Cursor    Vec2
	Alive     bool
	Ready     bool
	MouseDown bool

	EliminatedAt uint64 // tick of elimination, 0 while alive
	Placement    int    // 1 = winner, assigned at match end

	input         InputBuffer
	pendingRemove bool

	// Recent per-tick cursor displacements, ring buffer for the fling
	// velocity average.
	recent    []Vec2
	recentIdx int

	AuthPlayerID int64 // 0 for guests
}

func NewPlayerSlot(id uint32, name string, flingWindow int) *PlayerSlot {
	if flingWindow < 1 {
		flingWindow = 1
	}
	return &PlayerSlot{
		ID:     id,
		Name:   name,
		Alive:  true,
		recent: make([]Vec2, flingWindow),
	}
}

// recordDisplacement pushes this tick's cursor displacement into the window.
func (p *PlayerSlot) recordDisplacement(d Vec2) {
	p.recent[p.recentIdx] = d
	p.recentIdx = (p.recentIdx + 1) % len(p.recent)
}

// flingVelocity averages the displacement window into a release velocity,
// smoothing over single-tick spikes.
func (p *PlayerSlot) flingVelocity(dt float64) Vec2 {
	var sum Vec2
	for _, d := range p.recent {
		sum = sum.Add(d)
	}
	return sum.Scale(1 / (float64(len(p.recent)) * dt))
}
