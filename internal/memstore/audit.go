package memstore

import (
	"context"
	"sync"
	"time"

	"github.com/curiolabs/wondergate/internal/domain"
	"github.com/google/uuid"
)

type AuditStore struct {
	events []domain.AuditEvent
	mu     sync.RWMutex
}

func NewAuditStore() *AuditStore {
	return &AuditStore{}
}

func (s *AuditStore) Append(ctx context.Context, e *domain.AuditEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	s.events = append(s.events, copyAuditEvent(e))
	return nil
}

func (s *AuditStore) List(ctx context.Context, f domain.AuditFilter) ([]domain.AuditEvent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var results []domain.AuditEvent
	for i := len(s.events) - 1; i >= 0; i-- {
		e := s.events[i]
		if f.SourceID != "" && e.SourceID != f.SourceID {
			continue
		}
		if f.Kind != nil && e.Kind != *f.Kind {
			continue
		}
		if f.Decision != nil && e.Decision != *f.Decision {
			continue
		}
		if !f.Since.IsZero() && e.CreatedAt.Before(f.Since) {
			continue
		}
		results = append(results, copyAuditEvent(&e))
		if f.Limit > 0 && len(results) >= f.Limit {
			break
		}
	}
	return results, nil
}

func (s *AuditStore) AggregateBySource(ctx context.Context, since, until time.Time) ([]domain.SourceAggregate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	bySource := make(map[string]*domain.SourceAggregate)
	for _, e := range s.events {
		if e.Kind != domain.AuditAdmission || !inWindow(e.CreatedAt, since, until) {
			continue
		}
		agg, ok := bySource[e.SourceID]
		if !ok {
			agg = &domain.SourceAggregate{SourceID: e.SourceID}
			bySource[e.SourceID] = agg
		}
		if e.Decision == domain.DecisionAdmitted {
			agg.Admitted++
		} else {
			agg.Rejected++
		}
	}

	results := make([]domain.SourceAggregate, 0, len(bySource))
	for _, agg := range bySource {
		results = append(results, *agg)
	}
	return results, nil
}

func (s *AuditStore) CountFailuresByCheck(ctx context.Context, since time.Time) (map[string]int, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[string]int)
	for _, e := range s.events {
		if e.Kind != domain.AuditAdmission || e.CreatedAt.Before(since) {
			continue
		}
		for _, name := range e.FailedChecks {
			counts[name]++
		}
	}
	return counts, nil
}

func (s *AuditStore) ReinforcementStats(ctx context.Context, since, until time.Time) (int, float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, 0, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	sum := 0.0
	for _, e := range s.events {
		if e.Kind != domain.AuditReinforcement || !inWindow(e.CreatedAt, since, until) {
			continue
		}
		count++
		sum += float64(e.Delta)
	}
	if count == 0 {
		return 0, 0, nil
	}
	return count, sum / float64(count), nil
}

// inWindow reports whether t falls in [since, until).
func inWindow(t, since, until time.Time) bool {
	return !t.Before(since) && t.Before(until)
}

func copyAuditEvent(e *domain.AuditEvent) domain.AuditEvent {
	c := *e
	if e.WonderID != nil {
		id := *e.WonderID
		c.WonderID = &id
	}
	if e.FailedChecks != nil {
		c.FailedChecks = make([]string, len(e.FailedChecks))
		copy(c.FailedChecks, e.FailedChecks)
	}
	return c
}

var _ domain.AuditStore = (*AuditStore)(nil)
