package memstore

import (
	"context"
	"sync"
	"time"

	"github.com/curiolabs/wondergate/internal/domain"
	"github.com/google/uuid"
)

type AssociationStore struct {
	edges []domain.WonderAssociation
	mu    sync.RWMutex
}

func NewAssociationStore() *AssociationStore {
	return &AssociationStore{}
}

// Create inserts the edge, or adopts the existing one when the same
// (from, to, kind, label) edge is already present.
func (s *AssociationStore) Create(ctx context.Context, a *domain.WonderAssociation) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range s.edges {
		if e.FromID == a.FromID && e.ToID == a.ToID && e.Kind == a.Kind && e.Label == a.Label {
			a.ID = e.ID
			a.CreatedAt = e.CreatedAt
			return nil
		}
	}

	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	a.CreatedAt = time.Now()
	s.edges = append(s.edges, *a)
	return nil
}

func (s *AssociationStore) GetByWonder(ctx context.Context, wonderID uuid.UUID) ([]domain.WonderAssociation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var results []domain.WonderAssociation
	for _, e := range s.edges {
		if e.FromID == wonderID || e.ToID == wonderID {
			results = append(results, e)
		}
	}
	return results, nil
}

var _ domain.AssociationStore = (*AssociationStore)(nil)
