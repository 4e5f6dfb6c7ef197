package domain

import (
	"time"

	"github.com/google/uuid"
)

type WonderStage string

const (
	// StageCandidate is the terminal stage of an observation that failed
	// admission. Candidates are never persisted as wonders; they survive
	// only as audit records.
	StageCandidate WonderStage = "candidate"
	// StageAdmitted marks a wonder that cleared the check battery.
	StageAdmitted WonderStage = "admitted"
	// StageReinforced marks an admitted wonder re-observed at least once.
	StageReinforced WonderStage = "reinforced"
)

func ValidStage(s string) bool {
	switch WonderStage(s) {
	case StageCandidate, StageAdmitted, StageReinforced:
		return true
	}
	return false
}

// CanTransition reports whether a wonder may move from its current stage to
// next. The machine only moves forward: candidate is terminal, admitted may
// become reinforced, and reinforced stays reinforced.
func (s WonderStage) CanTransition(next WonderStage) bool {
	switch s {
	case StageAdmitted:
		return next == StageReinforced
	case StageReinforced:
		return next == StageReinforced
	}
	return false
}

// Occurrence records one presentation of a wonder's underlying observation
// and the confidence change it caused. Seq 1 is always the admission itself,
// with Delta equal to the initial confidence.
type Occurrence struct {
	Seq        int       `json:"seq"`
	ObservedAt time.Time `json:"observed_at"`
	Delta      float32   `json:"delta"`
}

// Wonder is an admitted observation with an evolving confidence score.
// OccurrenceCount always equals the number of persisted occurrences.
type Wonder struct {
	ID              uuid.UUID      `json:"id"`
	SourceID        string         `json:"source_id"`
	Content         string         `json:"content"`
	ContentHash     string         `json:"content_hash"`
	Tags            []string       `json:"tags,omitempty"`
	Metadata        map[string]any `json:"metadata,omitempty"`
	Embedding       []float32      `json:"-"`
	Confidence      float32        `json:"confidence"`
	Stage           WonderStage    `json:"stage"`
	OccurrenceCount int            `json:"occurrence_count"`
	FirstSeenAt     time.Time      `json:"first_seen_at"`
	LastSeenAt      time.Time      `json:"last_seen_at"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

// WonderWithScore pairs a wonder with the similarity score that matched it
// during equivalence search. Exact fingerprint matches score 1.
type WonderWithScore struct {
	Wonder
	Score float32 `json:"score"`
}
