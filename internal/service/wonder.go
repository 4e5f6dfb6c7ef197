package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/curiolabs/wondergate/internal/domain"
	"github.com/curiolabs/wondergate/internal/store"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrWonderNotFound     = errors.New("wonder not found")
	ErrContentEmpty       = errors.New("content is required")
	ErrSourceIDMissing    = errors.New("source_id is required")
	ErrInvalidStage       = errors.New("invalid stage")
	ErrNoChecksRegistered = errors.New("no credibility checks registered")
	ErrAlreadyAdmitted    = errors.New("equivalent wonder already admitted")
)

const (
	// DefaultMatchThreshold is the minimum embedding similarity for an
	// observation to count as a re-statement of an existing wonder.
	DefaultMatchThreshold float32 = 0.90
	// DefaultAmbiguityMargin is the score distance under which two
	// qualifying matches are indistinguishable. Equivalence search fails
	// rather than guess between them.
	DefaultAmbiguityMargin float32 = 0.02
)

// AssociationBuilder links a freshly admitted wonder to related wonders.
// Failures are logged and never block admission.
type AssociationBuilder interface {
	OnWonderAdmitted(ctx context.Context, w *domain.Wonder) error
}

type ObserveOutcome string

const (
	OutcomeAdmitted   ObserveOutcome = "admitted"
	OutcomeRejected   ObserveOutcome = "rejected"
	OutcomeReinforced ObserveOutcome = "reinforced"
)

// ObserveResult reports the effect of one presentation. Delta is the
// initial confidence on admission and the confidence gain on reinforcement;
// it is 0 on rejection, where Wonder is also nil.
type ObserveResult struct {
	Outcome      ObserveOutcome `json:"outcome"`
	Wonder       *domain.Wonder `json:"wonder,omitempty"`
	FailedChecks []string       `json:"failed_checks,omitempty"`
	Delta        float32        `json:"delta"`
}

// AdmissionResult reports a standalone admission evaluation, including the
// verdict of every check in battery order.
type AdmissionResult struct {
	Decision     domain.AdmissionDecision `json:"decision"`
	Wonder       *domain.Wonder           `json:"wonder,omitempty"`
	FailedChecks []string                 `json:"failed_checks"`
	Results      []domain.CheckResult     `json:"results"`
}

// WonderService is the admission and evolution filter. An observation
// either reinforces the wonder it re-states or faces the check battery
// exactly once; rejected observations leave nothing behind but an audit
// record.
type WonderService struct {
	wonders     domain.WonderStore
	reliability *ReliabilityService
	audit       domain.AuditStore
	checks      []domain.CredibilityCheck
	builder     AssociationBuilder
	logger      *zap.Logger

	// FailureThreshold is how many failed checks reject an observation.
	FailureThreshold int
	// ReinforcementRate scales the confidence gain per re-observation.
	ReinforcementRate float32
	// MatchOpts tunes equivalence search for re-observation detection.
	MatchOpts domain.MatchOpts

	locks *keyedMutex
}

func NewWonderService(ws domain.WonderStore, rs *ReliabilityService, as domain.AuditStore, battery []domain.CredibilityCheck, logger *zap.Logger) (*WonderService, error) {
	if len(battery) == 0 {
		return nil, ErrNoChecksRegistered
	}
	checks := make([]domain.CredibilityCheck, len(battery))
	copy(checks, battery)
	return &WonderService{
		wonders:           ws,
		reliability:       rs,
		audit:             as,
		checks:            checks,
		logger:            logger,
		FailureThreshold:  DefaultFailureThreshold,
		ReinforcementRate: DefaultReinforcementRate,
		MatchOpts: domain.MatchOpts{
			Threshold:       DefaultMatchThreshold,
			AmbiguityMargin: DefaultAmbiguityMargin,
		},
		locks: newKeyedMutex(),
	}, nil
}

func (s *WonderService) SetAssociationBuilder(b AssociationBuilder) {
	s.builder = b
}

// Observe runs the full filter flow for one presentation: resolve the
// observation to the wonder it re-states and reinforce it, or run the
// admission battery on first encounter. Checks run at most once per claim
// lifetime.
func (s *WonderService) Observe(ctx context.Context, obs domain.Observation) (*ObserveResult, error) {
	if err := validateObservation(obs); err != nil {
		return nil, err
	}
	if obs.ObservedAt.IsZero() {
		obs.ObservedAt = timeNow()
	}

	unlock := s.locks.lock("claim:" + obs.Fingerprint())
	defer unlock()

	match, err := s.wonders.FindEquivalent(ctx, obs, s.MatchOpts)
	if err != nil {
		return nil, err
	}
	if match != nil {
		w, delta, err := s.reinforce(ctx, match.ID, obs.ObservedAt)
		if err != nil {
			return nil, err
		}
		return &ObserveResult{Outcome: OutcomeReinforced, Wonder: w, Delta: delta}, nil
	}

	adm, err := s.admit(ctx, obs)
	if err != nil {
		return nil, err
	}

	res := &ObserveResult{FailedChecks: adm.FailedChecks}
	if adm.Decision == domain.DecisionAdmitted {
		res.Outcome = OutcomeAdmitted
		res.Wonder = adm.Wonder
		res.Delta = adm.Wonder.Confidence
	} else {
		res.Outcome = OutcomeRejected
	}
	return res, nil
}

// EvaluateAdmission runs the battery for an observation the caller asserts
// is a first encounter. When an equivalent wonder already exists it refuses
// with ErrAlreadyAdmitted instead of re-running checks.
func (s *WonderService) EvaluateAdmission(ctx context.Context, obs domain.Observation) (*AdmissionResult, error) {
	if err := validateObservation(obs); err != nil {
		return nil, err
	}
	if obs.ObservedAt.IsZero() {
		obs.ObservedAt = timeNow()
	}

	unlock := s.locks.lock("claim:" + obs.Fingerprint())
	defer unlock()

	match, err := s.wonders.FindEquivalent(ctx, obs, s.MatchOpts)
	if err != nil {
		return nil, err
	}
	if match != nil {
		return nil, ErrAlreadyAdmitted
	}
	return s.admit(ctx, obs)
}

// Reinforce applies the re-observation rule to the wonder equivalent to
// obs. It never consults the check battery and returns ErrWonderNotFound
// when no admitted wonder matches.
func (s *WonderService) Reinforce(ctx context.Context, obs domain.Observation) (*domain.Wonder, error) {
	if err := validateObservation(obs); err != nil {
		return nil, err
	}
	at := obs.ObservedAt
	if at.IsZero() {
		at = timeNow()
	}

	unlock := s.locks.lock("claim:" + obs.Fingerprint())
	defer unlock()

	match, err := s.wonders.FindEquivalent(ctx, obs, s.MatchOpts)
	if err != nil {
		return nil, err
	}
	if match == nil {
		return nil, ErrWonderNotFound
	}
	w, _, err := s.reinforce(ctx, match.ID, at)
	return w, err
}

// admit runs the battery and either creates the wonder or records the
// rejection. Both outcomes nudge source reliability and append an audit
// event; failures in either propagate to the caller.
func (s *WonderService) admit(ctx context.Context, obs domain.Observation) (*AdmissionResult, error) {
	unlock := s.locks.lock("source:" + obs.SourceID)
	defer unlock()

	snap, err := s.reliability.Snapshot(ctx, obs.SourceID)
	if err != nil {
		return nil, err
	}

	results := make([]domain.CheckResult, 0, len(s.checks))
	for _, c := range s.checks {
		results = append(results, domain.CheckResult{Name: c.Name(), Failed: c.Fails(obs, snap)})
	}
	failed := domain.FailedNames(results)

	if len(failed) >= s.FailureThreshold {
		if _, err := s.reliability.RecordDecision(ctx, obs.SourceID, false, obs.MeasuredMagnitude()); err != nil {
			return nil, err
		}
		if err := s.appendAdmissionAudit(ctx, obs, nil, domain.DecisionRejected, failed, 0); err != nil {
			return nil, err
		}

		s.logger.Info("observation rejected",
			zap.String("source_id", obs.SourceID),
			zap.Strings("failed_checks", failed))

		return &AdmissionResult{Decision: domain.DecisionRejected, FailedChecks: failed, Results: results}, nil
	}

	passed := len(s.checks) - len(failed)
	confidence := InitialConfidence(passed, len(s.checks), snap.Score)
	assertConfidence(confidence)

	w := &domain.Wonder{
		SourceID:        obs.SourceID,
		Content:         obs.Content,
		ContentHash:     obs.Fingerprint(),
		Tags:            obs.Tags,
		Metadata:        obs.Metadata,
		Embedding:       obs.Embedding,
		Confidence:      confidence,
		Stage:           domain.StageAdmitted,
		OccurrenceCount: 1,
		FirstSeenAt:     obs.ObservedAt,
		LastSeenAt:      obs.ObservedAt,
	}
	first := domain.Occurrence{Seq: 1, ObservedAt: obs.ObservedAt, Delta: confidence}
	if err := s.wonders.Create(ctx, w, first); err != nil {
		return nil, err
	}

	if _, err := s.reliability.RecordDecision(ctx, obs.SourceID, true, obs.MeasuredMagnitude()); err != nil {
		return nil, err
	}
	if err := s.appendAdmissionAudit(ctx, obs, &w.ID, domain.DecisionAdmitted, failed, confidence); err != nil {
		return nil, err
	}

	if s.builder != nil {
		if err := s.builder.OnWonderAdmitted(ctx, w); err != nil {
			s.logger.Warn("association building failed after admission",
				zap.String("wonder_id", w.ID.String()),
				zap.Error(err))
		}
	}

	s.logger.Info("observation admitted",
		zap.String("wonder_id", w.ID.String()),
		zap.String("source_id", obs.SourceID),
		zap.Float32("confidence", confidence),
		zap.Int("checks_passed", passed),
		zap.Int("checks_failed", len(failed)))

	return &AdmissionResult{Decision: domain.DecisionAdmitted, Wonder: w, FailedChecks: failed, Results: results}, nil
}

// reinforce re-reads the wonder under its own lock, applies the diminishing
// confidence gain and appends the occurrence. The re-read keeps concurrent
// near-duplicate matches from computing against a stale snapshot.
func (s *WonderService) reinforce(ctx context.Context, id uuid.UUID, at time.Time) (*domain.Wonder, float32, error) {
	unlock := s.locks.lock("wonder:" + id.String())
	defer unlock()

	w, err := s.wonders.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, 0, ErrWonderNotFound
		}
		return nil, 0, err
	}

	delta := ReinforcementDelta(s.ReinforcementRate, w.Confidence)
	confidence := ClampConfidence(w.Confidence + delta)
	assertConfidence(confidence)

	occ := domain.Occurrence{Seq: w.OccurrenceCount + 1, ObservedAt: at, Delta: delta}
	if err := s.wonders.AppendOccurrence(ctx, w.ID, occ, confidence, domain.StageReinforced); err != nil {
		return nil, 0, err
	}

	w.Confidence = confidence
	w.Stage = domain.StageReinforced
	w.OccurrenceCount++
	w.LastSeenAt = at

	if err := s.appendReinforcementAudit(ctx, w, delta); err != nil {
		return nil, 0, err
	}

	s.logger.Debug("wonder reinforced",
		zap.String("wonder_id", w.ID.String()),
		zap.Float32("delta", delta),
		zap.Float32("confidence", confidence),
		zap.Int("occurrence_count", w.OccurrenceCount))

	return w, delta, nil
}

func (s *WonderService) GetByID(ctx context.Context, id uuid.UUID) (*domain.Wonder, error) {
	w, err := s.wonders.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrWonderNotFound
		}
		return nil, err
	}
	return w, nil
}

// GetHistory returns the wonder's occurrences in sequence order. Summing
// the deltas reproduces the current confidence.
func (s *WonderService) GetHistory(ctx context.Context, id uuid.UUID) ([]domain.Occurrence, error) {
	if _, err := s.GetByID(ctx, id); err != nil {
		return nil, err
	}
	return s.wonders.GetHistory(ctx, id)
}

// ListByStage returns wonders at the given stage, most recently seen first.
// An empty stage lists all stages; the candidate stage always yields an
// empty list because rejected observations are never persisted as wonders.
func (s *WonderService) ListByStage(ctx context.Context, stage string, limit int) ([]domain.Wonder, error) {
	if stage != "" && !domain.ValidStage(stage) {
		return nil, ErrInvalidStage
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.wonders.ListByStage(ctx, domain.WonderStage(stage), limit)
}

// AuditLog returns filter decisions matching the filter, newest first.
func (s *WonderService) AuditLog(ctx context.Context, f domain.AuditFilter) ([]domain.AuditEvent, error) {
	if f.Limit <= 0 || f.Limit > 500 {
		f.Limit = 100
	}
	return s.audit.List(ctx, f)
}

func (s *WonderService) appendAdmissionAudit(ctx context.Context, obs domain.Observation, wonderID *uuid.UUID, decision domain.AdmissionDecision, failed []string, confidence float32) error {
	return s.audit.Append(ctx, &domain.AuditEvent{
		Kind:         domain.AuditAdmission,
		Decision:     decision,
		SourceID:     obs.SourceID,
		WonderID:     wonderID,
		ContentHash:  obs.Fingerprint(),
		FailedChecks: failed,
		Confidence:   confidence,
		Delta:        confidence,
	})
}

func (s *WonderService) appendReinforcementAudit(ctx context.Context, w *domain.Wonder, delta float32) error {
	return s.audit.Append(ctx, &domain.AuditEvent{
		Kind:        domain.AuditReinforcement,
		SourceID:    w.SourceID,
		WonderID:    &w.ID,
		ContentHash: w.ContentHash,
		Confidence:  w.Confidence,
		Delta:       delta,
	})
}

func validateObservation(obs domain.Observation) error {
	if strings.TrimSpace(obs.Content) == "" {
		return ErrContentEmpty
	}
	if obs.SourceID == "" {
		return ErrSourceIDMissing
	}
	return nil
}
