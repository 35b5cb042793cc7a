package main

import "fmt"

// ShapeKind distinguishes the two collider shapes the engine supports.
type ShapeKind int

const (
	ShapeRect ShapeKind = iota
	ShapeCircle
)

// Shape is a collider outline. Rects carry half extents, circles a radius.
type Shape struct {
	Kind   ShapeKind
	HalfW  float64
	HalfH  float64
	Radius float64
}

// Category classifies an entity for gameplay rules.
type Category int

const (
	CategoryWall      Category = iota // static scenery, never grabbable
	CategoryGrabbable                 // players may tether and fling these
	CategoryDeath                     // cursor contact eliminates
)

// Presentation tags carried in snapshots. Clients pick a visual style off
// these; the simulation attaches no other meaning to them.
const (
	UserDataWall      = 0
	UserDataGrabbable = 1
	UserDataDeath     = 2
)

// UserData returns the presentation tag for a category.
func (c Category) UserData() uint32 {
	switch c {
	case CategoryGrabbable:
		return UserDataGrabbable
	case CategoryDeath:
		return UserDataDeath
	default:
		return UserDataWall
	}
}

// Entity is one authored physics entity. IDs are unique, 1-based and stable
// for the lifetime of the match. Parent is the id of another entity whose
// group this one belongs to, or 0 for none.
type Entity struct {
	ID          uint32
	Shape       Shape
	Pos         Vec2    // authored world-space placement
	Rot         float64 // authored rotation, radians
	Static      bool
	Category    Category
	Restitution float64
	Parent      uint32
}

// EntityRegistry is the canonical store of entities for one match. Entities
// are created once at load and never restructured afterwards; the registry
// keeps a stable ascending-id order so every consumer iterates
// deterministically.
type EntityRegistry struct {
	entities []*Entity
	byID     map[uint32]*Entity
}

func NewEntityRegistry() *EntityRegistry {
	return &EntityRegistry{byID: make(map[uint32]*Entity)}
}

// Add inserts an entity. IDs must be strictly increasing across calls.
func (r *EntityRegistry) Add(e *Entity) error {
	if e.ID == 0 {
		return fmt.Errorf("entity id 0 is reserved")
	}
	if _, dup := r.byID[e.ID]; dup {
		return fmt.Errorf("duplicate entity id %d", e.ID)
	}
	if n := len(r.entities); n > 0 && r.entities[n-1].ID >= e.ID {
		return fmt.Errorf("entity id %d out of order", e.ID)
	}
	r.entities = append(r.entities, e)
	r.byID[e.ID] = e
	return nil
}

// Get returns the entity with the given id, or nil.
func (r *EntityRegistry) Get(id uint32) *Entity { return r.byID[id] }

// All returns entities in ascending id order. Callers must not mutate the
// slice.
func (r *EntityRegistry) All() []*Entity { return r.entities }

func (r *EntityRegistry) Len() int { return len(r.entities) }

// MaxID returns the highest assigned entity id, or 0 when empty.
func (r *EntityRegistry) MaxID() uint32 {
	if len(r.entities) == 0 {
		return 0
	}
	return r.entities[len(r.entities)-1].ID
}
