package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalGameStepsWithoutNetworking(t *testing.T) {
	lg, err := NewLocalGame(DefaultConfig().Game, nil)
	require.NoError(t, err)

	lg.HandleInput(PlayerInput{MouseDX: 0.5, MouseDY: -0.25})
	snap := lg.Step()

	assert.Equal(t, uint64(1), snap.Tick)
	require.Len(t, snap.Players, 1)
	assert.InDelta(t, 0.5, snap.Players[0].X, 1e-12)
	assert.InDelta(t, -0.25, snap.Players[0].Y, 1e-12)
	assert.Len(t, snap.Boundaries, 4)
	assert.NotEmpty(t, snap.Objects, "default arena ships with objects")
}

func TestLocalGameCustomDocument(t *testing.T) {
	b := NewMapBuilder()
	b.SetDimensions(10, 10)
	b.AddCircle(0.5, 0.5, 0.1, EntityOpts{})
	doc, err := b.Build()
	require.NoError(t, err)

	lg, err := NewLocalGame(DefaultConfig().Game, doc)
	require.NoError(t, err)
	snap := lg.Step()
	require.Len(t, snap.Objects, 1)
	assert.Equal(t, "Circle", snap.Objects[0].Shape)
}

func TestLocalGameRejectsBadDocument(t *testing.T) {
	p1, p2 := uint32(2), uint32(1)
	doc := &MapDocument{Entities: []EntityData{
		{Shape: "rect", X1: f(0.1), Y1: f(0.1), X2: f(0.2), Y2: f(0.2), Parent: &p1},
		{Shape: "rect", X1: f(0.3), Y1: f(0.3), X2: f(0.4), Y2: f(0.4), Parent: &p2},
	}}
	lg, err := NewLocalGame(DefaultConfig().Game, doc)
	assert.Nil(t, lg)
	assert.ErrorIs(t, err, ErrInvalidMapTopology)
}

func TestLocalGameHazardAndRespawn(t *testing.T) {
	b := NewMapBuilder()
	b.SetDimensions(10, 10)
	b.AddRect(0.4, 0.4, 0.6, 0.6, EntityOpts{Static: true, Death: true})
	doc, err := b.Build()
	require.NoError(t, err)

	lg, err := NewLocalGame(DefaultConfig().Game, doc)
	require.NoError(t, err)

	// The death block sits at the arena center; the cursor starts there.
	lg.Step()
	require.False(t, lg.Alive(), "hazards still eliminate in sandbox")

	lg.Respawn()
	assert.True(t, lg.Alive())

	// Dead-then-respawned players keep playing, once clear of the hazard.
	lg.HandleInput(PlayerInput{MouseDX: 2})
	snap := lg.Step()
	assert.True(t, snap.Players[0].Alive)
}
