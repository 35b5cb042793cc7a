package main

import (
	"math"
	"testing"
)

func TestGenerateIDLength(t *testing.T) {
	id := GenerateID(4)
	if len(id) != 8 { // 4 bytes = 8 hex chars
		t.Errorf("expected 8 chars, got %d: %s", len(id), id)
	}

	id2 := GenerateID(8)
	if len(id2) != 16 {
		t.Errorf("expected 16 chars, got %d: %s", len(id2), id2)
	}
}

func TestClamp(t *testing.T) {
	tests := []struct {
		v, min, max, want float64
	}{
		{5, 0, 10, 5},
		{-1, 0, 10, 0},
		{15, 0, 10, 10},
		{0, 0, 10, 0},
		{10, 0, 10, 10},
	}
	for _, tt := range tests {
		got := Clamp(tt.v, tt.min, tt.max)
		if got != tt.want {
			t.Errorf("Clamp(%f, %f, %f) = %f, want %f", tt.v, tt.min, tt.max, got, tt.want)
		}
	}
}

func TestFinite(t *testing.T) {
	if !Finite(0) || !Finite(-12.5) {
		t.Error("ordinary values are finite")
	}
	if Finite(math.NaN()) {
		t.Error("NaN is not finite")
	}
	if Finite(math.Inf(1)) || Finite(math.Inf(-1)) {
		t.Error("infinities are not finite")
	}
}
