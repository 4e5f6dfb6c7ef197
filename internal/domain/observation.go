package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

// Observation is a single presentation of incoming information. The filter
// treats Content as opaque text: credibility checks inspect its form, never
// its meaning. Magnitude is an optional caller-measured size for the claim
// (a count, an amount, a reading); when absent the content length stands in.
// Embedding is optional and only used for near-duplicate matching.
type Observation struct {
	SourceID   string         `json:"source_id"`
	Content    string         `json:"content"`
	Magnitude  *float64       `json:"magnitude,omitempty"`
	Embedding  []float32      `json:"-"`
	Tags       []string       `json:"tags,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	ObservedAt time.Time      `json:"observed_at"`
}

// Fingerprint returns the exact-equivalence key for the observation: a hex
// SHA-256 over the whitespace-collapsed content. Two observations with the
// same fingerprint are the same claim regardless of spacing.
func (o Observation) Fingerprint() string {
	normalized := strings.Join(strings.Fields(o.Content), " ")
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])
}

// MeasuredMagnitude returns the magnitude plausibility checks compare against
// a source's history: the caller-supplied value when present, otherwise the
// content length in bytes.
func (o Observation) MeasuredMagnitude() float64 {
	if o.Magnitude != nil {
		return *o.Magnitude
	}
	return float64(len(o.Content))
}
