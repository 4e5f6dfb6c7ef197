package memstore

import (
	"context"
	"sort"
	"sync"

	"github.com/curiolabs/wondergate/internal/domain"
	"github.com/curiolabs/wondergate/internal/store"
)

type ReliabilityStore struct {
	records map[string]*domain.SourceReliability
	mu      sync.RWMutex
}

func NewReliabilityStore() *ReliabilityStore {
	return &ReliabilityStore{records: make(map[string]*domain.SourceReliability)}
}

func (s *ReliabilityStore) Get(ctx context.Context, sourceID string) (*domain.SourceReliability, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.records[sourceID]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (s *ReliabilityStore) Upsert(ctx context.Context, r *domain.SourceReliability) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *r
	s.records[r.SourceID] = &cp
	return nil
}

func (s *ReliabilityStore) List(ctx context.Context, limit int) ([]domain.SourceReliability, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	results := make([]domain.SourceReliability, 0, len(s.records))
	for _, r := range s.records {
		results = append(results, *r)
	}
	sort.Slice(results, func(i, j int) bool {
		return results[i].Score < results[j].Score
	})
	if limit > 0 && limit < len(results) {
		results = results[:limit]
	}
	return results, nil
}

var _ domain.ReliabilityStore = (*ReliabilityStore)(nil)
