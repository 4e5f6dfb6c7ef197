package service

import (
	"context"
	"errors"

	"github.com/curiolabs/wondergate/internal/domain"
	"github.com/curiolabs/wondergate/internal/store"
	"go.uber.org/zap"
)

// ReliabilityService owns the per-source trust ledger. Scores move only on
// admission decisions; reinforcement never reaches this service.
type ReliabilityService struct {
	store  domain.ReliabilityStore
	logger *zap.Logger

	// Step is the score nudge applied per admission decision.
	Step float32
}

func NewReliabilityService(rs domain.ReliabilityStore, logger *zap.Logger) *ReliabilityService {
	return &ReliabilityService{
		store:  rs,
		logger: logger,
		Step:   DefaultReliabilityStep,
	}
}

// Snapshot returns the tracked record for a source, or the neutral default
// when the source has never faced an admission decision.
func (s *ReliabilityService) Snapshot(ctx context.Context, sourceID string) (domain.SourceReliability, error) {
	rec, err := s.store.Get(ctx, sourceID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.NeutralSource(sourceID), nil
		}
		return domain.SourceReliability{}, err
	}
	return *rec, nil
}

// RecordDecision folds one admission outcome into the source record: the
// score nudge, the decision tallies and the magnitude profile.
func (s *ReliabilityService) RecordDecision(ctx context.Context, sourceID string, admitted bool, magnitude float64) (domain.SourceReliability, error) {
	rec, err := s.Snapshot(ctx, sourceID)
	if err != nil {
		return domain.SourceReliability{}, err
	}

	if admitted {
		rec.Score = ClampConfidence(rec.Score + s.Step)
		rec.Admitted++
	} else {
		rec.Score = ClampConfidence(rec.Score - s.Step)
		rec.Rejected++
	}
	rec.RecordMagnitude(magnitude)
	rec.UpdatedAt = timeNow()

	if err := s.store.Upsert(ctx, &rec); err != nil {
		return domain.SourceReliability{}, err
	}

	s.logger.Debug("source reliability updated",
		zap.String("source_id", sourceID),
		zap.Bool("admitted", admitted),
		zap.Float32("score", rec.Score),
		zap.Int("samples", rec.Samples))

	return rec, nil
}

// List returns tracked sources, lowest score first, so review surfaces the
// sources closest to the rejection floor.
func (s *ReliabilityService) List(ctx context.Context, limit int) ([]domain.SourceReliability, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.store.List(ctx, limit)
}
