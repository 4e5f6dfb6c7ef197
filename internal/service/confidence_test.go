package service

import (
	"math"
	"testing"
)

func approxEqual(a, b float32) bool {
	return math.Abs(float64(a-b)) < 1e-6
}

func TestInitialConfidence(t *testing.T) {
	tests := []struct {
		name        string
		passed      int
		total       int
		sourceScore float32
		want        float32
	}{
		{"clean pass at 0.8 reliability", 3, 3, 0.8, 0.8},
		{"clean pass from neutral source", 4, 4, 0.5, 0.5},
		{"one failure out of four", 3, 4, 0.8, 0.6},
		{"half the checks failed", 2, 4, 0.5, 0.25},
		{"zero reliability", 3, 3, 0.0, 0.0},
		{"no checks", 0, 0, 0.8, 0.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := InitialConfidence(tt.passed, tt.total, tt.sourceScore)
			if !approxEqual(got, tt.want) {
				t.Errorf("InitialConfidence(%d, %d, %v) = %v, want %v", tt.passed, tt.total, tt.sourceScore, got, tt.want)
			}
		})
	}
}

func TestReinforcementDelta(t *testing.T) {
	// The worked example: confidence 0.8 at rate 0.1 gains exactly 0.02.
	if got := ReinforcementDelta(0.1, 0.8); !approxEqual(got, 0.02) {
		t.Errorf("ReinforcementDelta(0.1, 0.8) = %v, want 0.02", got)
	}

	// The gain shrinks as confidence grows.
	low := ReinforcementDelta(DefaultReinforcementRate, 0.3)
	high := ReinforcementDelta(DefaultReinforcementRate, 0.9)
	if low <= high {
		t.Errorf("delta at 0.3 (%v) should exceed delta at 0.9 (%v)", low, high)
	}

	// No headroom, no gain.
	if got := ReinforcementDelta(DefaultReinforcementRate, MaxConfidence); got != 0 {
		t.Errorf("ReinforcementDelta at max confidence = %v, want 0", got)
	}
}

func TestReinforcementStaysBelowOne(t *testing.T) {
	conf := float32(0.5)
	for i := 0; i < 1000; i++ {
		conf = ClampConfidence(conf + ReinforcementDelta(DefaultReinforcementRate, conf))
	}
	if conf >= 1.0 {
		t.Errorf("confidence reached %v after repeated reinforcement, want < 1.0", conf)
	}
	if conf < 0.99 {
		t.Errorf("confidence %v after 1000 reinforcements, expected convergence toward 1.0", conf)
	}
}

func TestClampConfidence(t *testing.T) {
	tests := []struct {
		in   float32
		want float32
	}{
		{-0.5, 0.0},
		{0.0, 0.0},
		{0.42, 0.42},
		{1.0, 1.0},
		{1.5, 1.0},
	}
	for _, tt := range tests {
		if got := ClampConfidence(tt.in); got != tt.want {
			t.Errorf("ClampConfidence(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestAssertConfidencePanics(t *testing.T) {
	cases := []struct {
		name string
		in   float32
	}{
		{"NaN", float32(math.NaN())},
		{"negative", -0.01},
		{"above one", 1.01},
	}
	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			defer func() {
				if recover() == nil {
					t.Errorf("assertConfidence(%v) did not panic", tt.in)
				}
			}()
			assertConfidence(tt.in)
		})
	}
}

func TestAssertConfidenceAcceptsBounds(t *testing.T) {
	defer func() {
		if r := recover(); r != nil {
			t.Errorf("assertConfidence panicked on valid input: %v", r)
		}
	}()
	assertConfidence(0.0)
	assertConfidence(0.5)
	assertConfidence(1.0)
}
