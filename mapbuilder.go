package main

import (
	"errors"
	"fmt"
)

// ErrAuthoringScriptFailure marks a failed map-authoring run. Build returns
// it and no document; any previously stored map is untouched.
var ErrAuthoringScriptFailure = errors.New("authoring script failure")

// EventKind keys the authoring handler table.
type EventKind string

const (
	EventClick     EventKind = "click"
	EventCollision EventKind = "collision"
)

// EventPayload carries the event data into handlers. Click events fill the
// position; collision events fill the entity pair.
type EventPayload struct {
	X, Y     float64
	EntityA  uint32
	EntityB  uint32
}

// EventHandler is one registered authoring callback.
type EventHandler func(b *MapBuilder, ev EventPayload) error

// Dispatcher is the narrow interface the authoring host drives events
// through.
type Dispatcher interface {
	Dispatch(kind EventKind, ev EventPayload) error
}

// MapBuilder accumulates an in-progress map during authoring-script
// execution. It is an explicit, non-shared build context: every authoring
// call takes the builder, and the document exists only once Build succeeds,
// so concurrent authoring sessions cannot interfere. The first failed call
// poisons the builder; everything after it is a no-op.
type MapBuilder struct {
	doc      MapDocument
	handlers map[EventKind][]EventHandler
	err      error
}

func NewMapBuilder() *MapBuilder {
	return &MapBuilder{
		handlers: make(map[EventKind][]EventHandler),
	}
}

// Err returns the poisoning error, nil while the build is healthy.
func (b *MapBuilder) Err() error { return b.err }

func (b *MapBuilder) fail(format string, args ...interface{}) {
	if b.err == nil {
		b.err = fmt.Errorf("%w: %s", ErrAuthoringScriptFailure, fmt.Sprintf(format, args...))
	}
}

// SetGravity overrides the default gravity vector.
func (b *MapBuilder) SetGravity(x, y float64) *MapBuilder {
	if b.err != nil {
		return b
	}
	if !Finite(x) || !Finite(y) {
		b.fail("non-finite gravity (%g, %g)", x, y)
		return b
	}
	b.doc.Gravity = &Vec2{x, y}
	return b
}

// SetDimensions overrides the world size.
func (b *MapBuilder) SetDimensions(w, h float64) *MapBuilder {
	if b.err != nil {
		return b
	}
	if w <= 0 || h <= 0 {
		b.fail("non-positive dimensions %gx%g", w, h)
		return b
	}
	b.doc.Dimensions = &[2]float64{w, h}
	return b
}

// EntityOpts are the authoring flags shared by both shapes.
type EntityOpts struct {
	Static      bool
	Death       bool
	Restitution float64
}

// AddRect appends a rectangle spanning the normalized corner pair and
// returns its 1-based entity id.
func (b *MapBuilder) AddRect(x1, y1, x2, y2 float64, opts EntityOpts) uint32 {
	if b.err != nil {
		return 0
	}
	if x1 == x2 || y1 == y2 {
		b.fail("rect has zero extent")
		return 0
	}
	return b.push(EntityData{
		Shape: "rect",
		X1:    &x1, Y1: &y1, X2: &x2, Y2: &y2,
		IsStatic:    &opts.Static,
		IsDeath:     &opts.Death,
		Restitution: &opts.Restitution,
	})
}

// AddCircle appends a circle at a normalized center and returns its 1-based
// entity id.
func (b *MapBuilder) AddCircle(x, y, radius float64, opts EntityOpts) uint32 {
	if b.err != nil {
		return 0
	}
	if radius <= 0 {
		b.fail("circle has non-positive radius %g", radius)
		return 0
	}
	return b.push(EntityData{
		Shape: "circle",
		X:     &x, Y: &y, Radius: &radius,
		IsStatic:    &opts.Static,
		IsDeath:     &opts.Death,
		Restitution: &opts.Restitution,
	})
}

func (b *MapBuilder) push(e EntityData) uint32 {
	b.doc.Entities = append(b.doc.Entities, e)
	return uint32(len(b.doc.Entities))
}

// SetParent groups a child entity under a parent. Both ids must already
// exist; cycles are still caught at Build through the loader.
func (b *MapBuilder) SetParent(child, parent uint32) *MapBuilder {
	if b.err != nil {
		return b
	}
	n := uint32(len(b.doc.Entities))
	if child == 0 || child > n || parent == 0 || parent > n {
		b.fail("parent reference %d->%d out of range", child, parent)
		return b
	}
	if child == parent {
		b.fail("entity %d cannot parent itself", child)
		return b
	}
	p := parent
	b.doc.Entities[child-1].Parent = &p
	return b
}

// On registers an event handler. Handlers run in registration order.
func (b *MapBuilder) On(kind EventKind, h EventHandler) *MapBuilder {
	if b.err != nil {
		return b
	}
	b.handlers[kind] = append(b.handlers[kind], h)
	return b
}

// Dispatch invokes every handler registered for the event kind, in order. A
// handler error poisons the build.
func (b *MapBuilder) Dispatch(kind EventKind, ev EventPayload) error {
	if b.err != nil {
		return b.err
	}
	for _, h := range b.handlers[kind] {
		if err := h(b, ev); err != nil {
			b.fail("%s handler: %v", kind, err)
			return b.err
		}
	}
	return nil
}

// Build finishes the authoring run. The document is validated through the
// same loader sessions use, so a built map can never fail later.
func (b *MapBuilder) Build() (*MapDocument, error) {
	if b.err != nil {
		return nil, b.err
	}
	doc := b.doc
	if _, err := LoadMap(&doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAuthoringScriptFailure, err)
	}
	return &doc, nil
}
