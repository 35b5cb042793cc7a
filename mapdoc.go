package main

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Errors surfaced by map-document ingestion. Topology errors reject the whole
// document; spec errors reject a single entity and leave the rest loading.
var (
	ErrInvalidMapTopology = errors.New("invalid map topology")
	ErrInvalidEntitySpec  = errors.New("invalid entity spec")
)

const (
	DefaultWorldWidth  = 16.0
	DefaultWorldHeight = 9.0
	WallThickness      = 0.1

	DefaultGravityX = 0.0
	DefaultGravityY = -2.0
)

// MapDocument is the static document produced by the external authoring tool.
// Coordinates are normalized to 0..1 map space; the loader converts them to
// world space centered on the origin.
type MapDocument struct {
	Gravity    *Vec2        `json:"gravity,omitempty"`
	Dimensions *[2]float64  `json:"dimensions,omitempty"`
	Entities   []EntityData `json:"entities,omitempty"`
}

// EntityData is one entity specification inside a map document. Rects use
// the corner pair x1,y1,x2,y2; circles use x,y,radius. Parent references
// another entity by its 1-based position in the list.
type EntityData struct {
	Shape       string   `json:"shape"`
	X1          *float64 `json:"x1,omitempty"`
	Y1          *float64 `json:"y1,omitempty"`
	X2          *float64 `json:"x2,omitempty"`
	Y2          *float64 `json:"y2,omitempty"`
	X           *float64 `json:"x,omitempty"`
	Y           *float64 `json:"y,omitempty"`
	Radius      *float64 `json:"radius,omitempty"`
	IsStatic    *bool    `json:"is_static,omitempty"`
	IsDeath     *bool    `json:"is_death,omitempty"`
	Restitution *float64 `json:"restitution,omitempty"`
	Parent      *uint32  `json:"parent,omitempty"`
}

// Boundary is one of the four arena walls, reported to clients as-is.
type Boundary struct {
	X          float64 `json:"x" msgpack:"x"`
	Y          float64 `json:"y" msgpack:"y"`
	HalfWidth  float64 `json:"half_width" msgpack:"half_width"`
	HalfHeight float64 `json:"half_height" msgpack:"half_height"`
}

// ParseMapDocument decodes a JSON map document.
func ParseMapDocument(raw []byte) (*MapDocument, error) {
	var doc MapDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("map document: %w", err)
	}
	return &doc, nil
}

// LoadedMap is a map document resolved into world-space entities.
type LoadedMap struct {
	Width      float64
	Height     float64
	Gravity    Vec2
	Registry   *EntityRegistry
	Boundaries []Boundary
	Warnings   []string
}

// LoadMap converts a document into an entity registry. A nil document yields
// the built-in default arena. Entities with missing shape fields are skipped
// with a warning; cyclic or dangling parent references reject the whole
// document with ErrInvalidMapTopology and no entities are instantiated.
func LoadMap(doc *MapDocument) (*LoadedMap, error) {
	m := &LoadedMap{
		Width:   DefaultWorldWidth,
		Height:  DefaultWorldHeight,
		Gravity: Vec2{DefaultGravityX, DefaultGravityY},
	}
	if doc != nil {
		if doc.Dimensions != nil {
			m.Width, m.Height = doc.Dimensions[0], doc.Dimensions[1]
		}
		if doc.Gravity != nil {
			m.Gravity = *doc.Gravity
		}
	}
	if m.Width <= 0 || m.Height <= 0 {
		return nil, fmt.Errorf("%w: non-positive dimensions %gx%g", ErrInvalidMapTopology, m.Width, m.Height)
	}
	m.Boundaries = arenaBoundaries(m.Width, m.Height)

	reg := NewEntityRegistry()
	if doc == nil || doc.Entities == nil {
		defaultArenaEntities(reg)
		m.Registry = reg
		return m, nil
	}

	// First pass: resolve shapes and build the candidate entity list. IDs are
	// the 1-based document positions so parent references stay meaningful
	// even when an invalid entity is skipped.
	entities := make([]*Entity, 0, len(doc.Entities))
	valid := make(map[uint32]bool, len(doc.Entities))
	for i, spec := range doc.Entities {
		id := uint32(i + 1)
		e, err := resolveEntity(id, spec, m.Width, m.Height)
		if err != nil {
			m.Warnings = append(m.Warnings, fmt.Sprintf("entity %d: %v", id, err))
			continue
		}
		entities = append(entities, e)
		valid[id] = true
	}

	// Second pass: parent references must point at loaded entities and must
	// not form a cycle. Either failure poisons the whole document.
	for _, e := range entities {
		if e.Parent == 0 {
			continue
		}
		if !valid[e.Parent] {
			return nil, fmt.Errorf("%w: entity %d references missing parent %d", ErrInvalidMapTopology, e.ID, e.Parent)
		}
	}
	if err := checkParentCycles(entities); err != nil {
		return nil, err
	}

	for _, e := range entities {
		if err := reg.Add(e); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidMapTopology, err)
		}
	}
	m.Registry = reg
	return m, nil
}

func resolveEntity(id uint32, spec EntityData, w, h float64) (*Entity, error) {
	e := &Entity{ID: id}
	if spec.IsStatic != nil {
		e.Static = *spec.IsStatic
	}
	isDeath := spec.IsDeath != nil && *spec.IsDeath
	switch {
	case isDeath:
		e.Category = CategoryDeath
	case e.Static:
		e.Category = CategoryWall
	default:
		e.Category = CategoryGrabbable
	}
	if spec.Restitution != nil {
		e.Restitution = Clamp(*spec.Restitution, 0, 1)
	}
	if spec.Parent != nil {
		e.Parent = *spec.Parent
	}

	switch spec.Shape {
	case "rect":
		if spec.X1 == nil || spec.Y1 == nil || spec.X2 == nil || spec.Y2 == nil {
			return nil, fmt.Errorf("%w: rect needs x1,y1,x2,y2", ErrInvalidEntitySpec)
		}
		x1 := *spec.X1*w - w/2
		y1 := *spec.Y1*h - h/2
		x2 := *spec.X2*w - w/2
		y2 := *spec.Y2*h - h/2
		hw := (x2 - x1) / 2
		hh := (y2 - y1) / 2
		if hw == 0 || hh == 0 {
			return nil, fmt.Errorf("%w: rect has zero extent", ErrInvalidEntitySpec)
		}
		e.Shape = Shape{Kind: ShapeRect, HalfW: abs(hw), HalfH: abs(hh)}
		e.Pos = Vec2{(x1 + x2) / 2, (y1 + y2) / 2}
	case "circle":
		if spec.X == nil || spec.Y == nil || spec.Radius == nil {
			return nil, fmt.Errorf("%w: circle needs x,y,radius", ErrInvalidEntitySpec)
		}
		r := *spec.Radius * w
		if r <= 0 {
			return nil, fmt.Errorf("%w: circle has non-positive radius", ErrInvalidEntitySpec)
		}
		e.Shape = Shape{Kind: ShapeCircle, Radius: r}
		e.Pos = Vec2{*spec.X*w - w/2, *spec.Y*h - h/2}
	default:
		return nil, fmt.Errorf("%w: unknown shape %q", ErrInvalidEntitySpec, spec.Shape)
	}
	return e, nil
}

// checkParentCycles walks every parent chain with a three-color marking. The
// chains form a forest when valid; any back reference is a cycle.
func checkParentCycles(entities []*Entity) error {
	byID := make(map[uint32]*Entity, len(entities))
	for _, e := range entities {
		byID[e.ID] = e
	}
	const (
		white = 0
		gray  = 1
		black = 2
	)
	state := make(map[uint32]int, len(entities))
	for _, e := range entities {
		if state[e.ID] != white {
			continue
		}
		var path []uint32
		cur := e
		for cur != nil && state[cur.ID] == white {
			state[cur.ID] = gray
			path = append(path, cur.ID)
			if cur.Parent == 0 {
				cur = nil
			} else {
				cur = byID[cur.Parent]
			}
		}
		if cur != nil && state[cur.ID] == gray {
			return fmt.Errorf("%w: cyclic parent reference through entity %d", ErrInvalidMapTopology, cur.ID)
		}
		for _, id := range path {
			state[id] = black
		}
	}
	return nil
}

func arenaBoundaries(w, h float64) []Boundary {
	hw, hh := w/2, h/2
	return []Boundary{
		{X: 0, Y: -hh, HalfWidth: hw, HalfHeight: WallThickness},  // floor
		{X: 0, Y: hh, HalfWidth: hw, HalfHeight: WallThickness},   // ceiling
		{X: -hw, Y: 0, HalfWidth: WallThickness, HalfHeight: hh},  // left
		{X: hw, Y: 0, HalfWidth: WallThickness, HalfHeight: hh},   // right
	}
}

// defaultArenaEntities fills the registry with the stock 8x5 grid of
// grabbable squares used when no map document is supplied.
func defaultArenaEntities(reg *EntityRegistry) {
	id := uint32(1)
	for i := 0; i < 8; i++ {
		for j := 0; j < 5; j++ {
			reg.Add(&Entity{
				ID:       id,
				Shape:    Shape{Kind: ShapeRect, HalfW: 0.3, HalfH: 0.3},
				Pos:      Vec2{(float64(i) - 3.5), (float64(j) - 2.0)},
				Category: CategoryGrabbable,
			})
			id++
		}
	}
}
