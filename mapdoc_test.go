package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func f(v float64) *float64 { return &v }
func bp(v bool) *bool      { return &v }
func up(v uint32) *uint32  { return &v }

func TestLoadMapDefaultArena(t *testing.T) {
	m, err := LoadMap(nil)
	require.NoError(t, err)

	assert.Equal(t, DefaultWorldWidth, m.Width)
	assert.Equal(t, DefaultWorldHeight, m.Height)
	assert.Equal(t, Vec2{DefaultGravityX, DefaultGravityY}, m.Gravity)
	assert.Len(t, m.Boundaries, 4)
	assert.Equal(t, 40, m.Registry.Len(), "default arena is an 8x5 grid")
	for _, e := range m.Registry.All() {
		assert.Equal(t, CategoryGrabbable, e.Category)
	}
}

func TestLoadMapNormalizedConversion(t *testing.T) {
	doc := &MapDocument{
		Entities: []EntityData{
			{Shape: "rect", X1: f(0), Y1: f(0), X2: f(0.5), Y2: f(0.5)},
			{Shape: "circle", X: f(0.5), Y: f(0.5), Radius: f(0.1)},
		},
	}
	m, err := LoadMap(doc)
	require.NoError(t, err)
	require.Equal(t, 2, m.Registry.Len())

	// Normalized (0,0)-(0.5,0.5) on a 16x9 world: corners (-8,-4.5)-(0,0).
	rect := m.Registry.Get(1)
	assert.InDelta(t, 4.0, rect.Shape.HalfW, 1e-12)
	assert.InDelta(t, 2.25, rect.Shape.HalfH, 1e-12)
	assert.InDelta(t, -4.0, rect.Pos.X, 1e-12)
	assert.InDelta(t, -2.25, rect.Pos.Y, 1e-12)

	// Circle at the normalized center sits at the origin; radius scales by
	// world width.
	circle := m.Registry.Get(2)
	assert.InDelta(t, 0, circle.Pos.X, 1e-12)
	assert.InDelta(t, 0, circle.Pos.Y, 1e-12)
	assert.InDelta(t, 1.6, circle.Shape.Radius, 1e-12)
}

func TestLoadMapCategoryDerivation(t *testing.T) {
	doc := &MapDocument{
		Entities: []EntityData{
			{Shape: "rect", X1: f(0), Y1: f(0), X2: f(0.1), Y2: f(0.1)},
			{Shape: "rect", X1: f(0.2), Y1: f(0), X2: f(0.3), Y2: f(0.1), IsStatic: bp(true)},
			{Shape: "rect", X1: f(0.4), Y1: f(0), X2: f(0.5), Y2: f(0.1), IsDeath: bp(true)},
		},
	}
	m, err := LoadMap(doc)
	require.NoError(t, err)
	assert.Equal(t, CategoryGrabbable, m.Registry.Get(1).Category)
	assert.Equal(t, CategoryWall, m.Registry.Get(2).Category)
	assert.Equal(t, CategoryDeath, m.Registry.Get(3).Category)
}

func TestLoadMapRejectsParentCycle(t *testing.T) {
	// E1 parented to E2 parented back to E1.
	doc := &MapDocument{
		Entities: []EntityData{
			{Shape: "rect", X1: f(0), Y1: f(0), X2: f(0.1), Y2: f(0.1), Parent: up(2)},
			{Shape: "rect", X1: f(0.2), Y1: f(0), X2: f(0.3), Y2: f(0.1), Parent: up(1)},
		},
	}
	m, err := LoadMap(doc)
	require.ErrorIs(t, err, ErrInvalidMapTopology)
	assert.Nil(t, m, "no entities are instantiated on topology rejection")
}

func TestLoadMapRejectsDanglingParent(t *testing.T) {
	doc := &MapDocument{
		Entities: []EntityData{
			{Shape: "rect", X1: f(0), Y1: f(0), X2: f(0.1), Y2: f(0.1), Parent: up(7)},
		},
	}
	_, err := LoadMap(doc)
	require.ErrorIs(t, err, ErrInvalidMapTopology)
}

func TestLoadMapParentToSkippedEntityRejected(t *testing.T) {
	// Entity 1 is invalid and skipped; entity 2 still points at it.
	doc := &MapDocument{
		Entities: []EntityData{
			{Shape: "rect"}, // missing corners
			{Shape: "rect", X1: f(0.2), Y1: f(0), X2: f(0.3), Y2: f(0.1), Parent: up(1)},
		},
	}
	_, err := LoadMap(doc)
	require.ErrorIs(t, err, ErrInvalidMapTopology)
}

func TestLoadMapSkipsInvalidEntityWithWarning(t *testing.T) {
	doc := &MapDocument{
		Entities: []EntityData{
			{Shape: "rect"}, // missing corners
			{Shape: "hexagon", X: f(0.5), Y: f(0.5)},
			{Shape: "circle", X: f(0.5), Y: f(0.5), Radius: f(0.05)},
		},
	}
	m, err := LoadMap(doc)
	require.NoError(t, err)
	assert.Equal(t, 1, m.Registry.Len(), "valid remainder still loads")
	assert.Len(t, m.Warnings, 2)

	// Document positions stay meaningful: the survivor keeps id 3.
	assert.NotNil(t, m.Registry.Get(3))
}

func TestLoadMapCustomDimensionsAndGravity(t *testing.T) {
	doc := &MapDocument{
		Gravity:    &Vec2{0, -9.8},
		Dimensions: &[2]float64{20, 10},
		Entities:   []EntityData{},
	}
	m, err := LoadMap(doc)
	require.NoError(t, err)
	assert.Equal(t, 20.0, m.Width)
	assert.Equal(t, Vec2{0, -9.8}, m.Gravity)
	assert.Equal(t, 0, m.Registry.Len())

	_, err = LoadMap(&MapDocument{Dimensions: &[2]float64{-1, 5}})
	require.ErrorIs(t, err, ErrInvalidMapTopology)
}

func TestParseMapDocumentRejectsGarbage(t *testing.T) {
	_, err := ParseMapDocument([]byte("{not json"))
	require.Error(t, err)

	doc, err := ParseMapDocument([]byte(`{"entities":[{"shape":"circle","x":0.5,"y":0.5,"radius":0.1}]}`))
	require.NoError(t, err)
	require.Len(t, doc.Entities, 1)
	assert.Equal(t, "circle", doc.Entities[0].Shape)
}

func TestEntityRegistryAddOrdering(t *testing.T) {
	reg := NewEntityRegistry()
	require.NoError(t, reg.Add(&Entity{ID: 1}))
	require.NoError(t, reg.Add(&Entity{ID: 5}))
	assert.Error(t, reg.Add(&Entity{ID: 3}), "ids must be strictly increasing")
	assert.Error(t, reg.Add(&Entity{ID: 5}), "duplicate id")
	assert.Error(t, reg.Add(&Entity{ID: 0}), "id 0 reserved")
	assert.Equal(t, uint32(5), reg.MaxID())
}
