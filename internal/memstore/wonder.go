// Package memstore provides in-memory implementations of the store
// interfaces, backing tests and single-process deployments that run without
// Postgres. Equivalence search uses exact cosine similarity instead of an
// approximate index, with the same threshold and ambiguity semantics.
package memstore

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/curiolabs/wondergate/internal/domain"
	"github.com/curiolabs/wondergate/internal/store"
	"github.com/google/uuid"
)

type WonderStore struct {
	wonders map[uuid.UUID]*domain.Wonder
	history map[uuid.UUID][]domain.Occurrence
	byHash  map[string]uuid.UUID
	mu      sync.RWMutex
}

func NewWonderStore() *WonderStore {
	return &WonderStore{
		wonders: make(map[uuid.UUID]*domain.Wonder),
		history: make(map[uuid.UUID][]domain.Occurrence),
		byHash:  make(map[string]uuid.UUID),
	}
}

func (s *WonderStore) Create(ctx context.Context, w *domain.Wonder, first domain.Occurrence) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byHash[w.ContentHash]; exists {
		return fmt.Errorf("wonder with content_hash %s already exists", w.ContentHash)
	}

	if w.ID == uuid.Nil {
		w.ID = uuid.New()
	}
	now := time.Now()
	w.CreatedAt = now
	w.UpdatedAt = now

	s.wonders[w.ID] = copyWonder(w)
	s.history[w.ID] = []domain.Occurrence{first}
	s.byHash[w.ContentHash] = w.ID
	return nil
}

func (s *WonderStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Wonder, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	w, ok := s.wonders[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return copyWonder(w), nil
}

func (s *WonderStore) FindEquivalent(ctx context.Context, obs domain.Observation, opts domain.MatchOpts) (*domain.WonderWithScore, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if id, ok := s.byHash[obs.Fingerprint()]; ok {
		return &domain.WonderWithScore{Wonder: *copyWonder(s.wonders[id]), Score: 1}, nil
	}

	if len(obs.Embedding) == 0 {
		return nil, nil
	}

	type scored struct {
		id    uuid.UUID
		score float32
	}
	var matches []scored
	for id, w := range s.wonders {
		if len(w.Embedding) == 0 {
			continue
		}
		sim := cosineSimilarity(obs.Embedding, w.Embedding)
		if sim >= opts.Threshold {
			matches = append(matches, scored{id: id, score: sim})
		}
	}

	if len(matches) == 0 {
		return nil, nil
	}
	sort.Slice(matches, func(i, j int) bool {
		return matches[i].score > matches[j].score
	})
	if len(matches) > 1 && matches[0].score-matches[1].score < opts.AmbiguityMargin {
		return nil, store.ErrAmbiguousMatch
	}
	return &domain.WonderWithScore{Wonder: *copyWonder(s.wonders[matches[0].id]), Score: matches[0].score}, nil
}

func (s *WonderStore) AppendOccurrence(ctx context.Context, id uuid.UUID, occ domain.Occurrence, confidence float32, stage domain.WonderStage) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.wonders[id]
	if !ok {
		return store.ErrNotFound
	}

	s.history[id] = append(s.history[id], occ)
	w.Confidence = confidence
	w.Stage = stage
	w.OccurrenceCount++
	w.LastSeenAt = occ.ObservedAt
	w.UpdatedAt = time.Now()
	return nil
}

func (s *WonderStore) GetHistory(ctx context.Context, id uuid.UUID) ([]domain.Occurrence, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	occs := s.history[id]
	out := make([]domain.Occurrence, len(occs))
	copy(out, occs)
	return out, nil
}

func (s *WonderStore) ListByStage(ctx context.Context, stage domain.WonderStage, limit int) ([]domain.Wonder, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var results []domain.Wonder
	for _, w := range s.wonders {
		if stage != "" && w.Stage != stage {
			continue
		}
		results = append(results, *copyWonder(w))
	}
	return sortAndTrim(results, limit), nil
}

func (s *WonderStore) ListRecentBySource(ctx context.Context, sourceID string, since time.Time, limit int) ([]domain.Wonder, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var results []domain.Wonder
	for _, w := range s.wonders {
		if w.SourceID != sourceID || w.LastSeenAt.Before(since) {
			continue
		}
		results = append(results, *copyWonder(w))
	}
	return sortAndTrim(results, limit), nil
}

func (s *WonderStore) ListByTag(ctx context.Context, tag string, limit int) ([]domain.Wonder, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var results []domain.Wonder
	for _, w := range s.wonders {
		for _, t := range w.Tags {
			if t == tag {
				results = append(results, *copyWonder(w))
				break
			}
		}
	}
	return sortAndTrim(results, limit), nil
}

// sortAndTrim orders wonders most recently seen first and applies the limit.
func sortAndTrim(wonders []domain.Wonder, limit int) []domain.Wonder {
	sort.Slice(wonders, func(i, j int) bool {
		return wonders[i].LastSeenAt.After(wonders[j].LastSeenAt)
	})
	if limit > 0 && limit < len(wonders) {
		wonders = wonders[:limit]
	}
	return wonders
}

// cosineSimilarity returns a value between -1 and 1, where 1 means identical
// direction. Mismatched or zero vectors score 0.
func cosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}

func copyWonder(w *domain.Wonder) *domain.Wonder {
	c := *w
	if w.Tags != nil {
		c.Tags = make([]string, len(w.Tags))
		copy(c.Tags, w.Tags)
	}
	if w.Metadata != nil {
		c.Metadata = make(map[string]any, len(w.Metadata))
		for k, v := range w.Metadata {
			c.Metadata[k] = v
		}
	}
	if w.Embedding != nil {
		c.Embedding = make([]float32, len(w.Embedding))
		copy(c.Embedding, w.Embedding)
	}
	return &c
}

var _ domain.WonderStore = (*WonderStore)(nil)
