package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// MatchOpts tunes equivalence search. Threshold is the minimum cosine
// similarity for an embedding match. AmbiguityMargin is the score distance
// under which two qualifying candidates are considered indistinguishable,
// which makes the search fail rather than guess.
type MatchOpts struct {
	Threshold       float32
	AmbiguityMargin float32
}

type WonderStore interface {
	// Create persists a new wonder together with its admission occurrence
	// (seq 1) atomically, assigning ID and timestamps.
	Create(ctx context.Context, w *Wonder, first Occurrence) error
	GetByID(ctx context.Context, id uuid.UUID) (*Wonder, error)
	// FindEquivalent resolves an observation to the wonder it re-states:
	// exact fingerprint match first, then embedding similarity when the
	// observation carries an embedding. Returns (nil, nil) when nothing
	// matches and ErrAmbiguousMatch when similarity cannot pick a single
	// winner.
	FindEquivalent(ctx context.Context, obs Observation, opts MatchOpts) (*WonderWithScore, error)
	// AppendOccurrence records one reinforcement atomically: a new
	// occurrence row plus the wonder's confidence, stage, occurrence count
	// and last-seen timestamp.
	AppendOccurrence(ctx context.Context, id uuid.UUID, occ Occurrence, confidence float32, stage WonderStage) error
	GetHistory(ctx context.Context, id uuid.UUID) ([]Occurrence, error)
	ListByStage(ctx context.Context, stage WonderStage, limit int) ([]Wonder, error)
	ListRecentBySource(ctx context.Context, sourceID string, since time.Time, limit int) ([]Wonder, error)
	ListByTag(ctx context.Context, tag string, limit int) ([]Wonder, error)
}

type ReliabilityStore interface {
	// Get returns the tracked record for a source, or ErrNotFound when the
	// source has never been part of an admission decision.
	Get(ctx context.Context, sourceID string) (*SourceReliability, error)
	Upsert(ctx context.Context, s *SourceReliability) error
	List(ctx context.Context, limit int) ([]SourceReliability, error)
}

// AuditFilter narrows audit queries. Zero values mean no constraint.
type AuditFilter struct {
	SourceID string
	Kind     *AuditKind
	Decision *AdmissionDecision
	Since    time.Time
	Limit    int
}

type AuditStore interface {
	Append(ctx context.Context, e *AuditEvent) error
	List(ctx context.Context, f AuditFilter) ([]AuditEvent, error)
	// AggregateBySource tallies admission decisions per source for events
	// with since <= created_at < until.
	AggregateBySource(ctx context.Context, since, until time.Time) ([]SourceAggregate, error)
	// CountFailuresByCheck tallies how often each check name appears among
	// failed checks of admission events since the given time.
	CountFailuresByCheck(ctx context.Context, since time.Time) (map[string]int, error)
	// ReinforcementStats returns the count and mean delta of reinforcement
	// events with since <= created_at < until.
	ReinforcementStats(ctx context.Context, since, until time.Time) (int, float64, error)
}

type AssociationStore interface {
	Create(ctx context.Context, a *WonderAssociation) error
	// GetByWonder returns edges touching the wonder in either direction.
	GetByWonder(ctx context.Context, wonderID uuid.UUID) ([]WonderAssociation, error)
}
