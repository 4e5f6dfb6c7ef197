package service

import (
	"fmt"
	"math"
	"time"
)

const (
	// DefaultFailureThreshold is how many failed checks reject an observation.
	DefaultFailureThreshold = 2
	// DefaultReinforcementRate scales the confidence gain per re-observation.
	DefaultReinforcementRate float32 = 0.1
	// DefaultReliabilityStep is the score nudge a source takes on each
	// admission decision.
	DefaultReliabilityStep float32 = 0.05
	// MaxConfidence is the upper bound for confidence and reliability scores.
	MaxConfidence float32 = 1.0
	// MinConfidence is the lower bound for confidence and reliability scores.
	MinConfidence float32 = 0.0
)

var timeNow = time.Now

// InitialConfidence scores a freshly admitted observation: the fraction of
// checks passed, scaled by the source's reliability at evaluation time. A
// clean pass from a neutral source lands at 0.5; the score can only reach
// 1.0 through reinforcement.
func InitialConfidence(passed, total int, sourceScore float32) float32 {
	if total <= 0 {
		return MinConfidence
	}
	c := float32(passed) / float32(total) * sourceScore
	return ClampConfidence(c)
}

// ReinforcementDelta returns the confidence gain for one re-observation:
// rate times the remaining headroom. Each repetition takes a smaller step,
// so confidence approaches 1.0 without crossing it.
func ReinforcementDelta(rate, confidence float32) float32 {
	return rate * (MaxConfidence - confidence)
}

// ClampConfidence bounds a unit-interval value. Confidence and reliability
// scores share the same [0,1] range.
func ClampConfidence(c float32) float32 {
	if c < MinConfidence {
		return MinConfidence
	}
	if c > MaxConfidence {
		return MaxConfidence
	}
	return c
}

// assertConfidence panics when an update rule produced NaN or a value
// outside [0,1]. That points at a bug in the update rules, never at input.
func assertConfidence(c float32) {
	if math.IsNaN(float64(c)) || c < MinConfidence || c > MaxConfidence {
		panic(fmt.Sprintf("confidence out of bounds: %v", c))
	}
}
