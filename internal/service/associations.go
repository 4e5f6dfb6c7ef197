package service

import (
	"context"
	"time"

	"github.com/curiolabs/wondergate/internal/domain"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	// DefaultAssociationWindow bounds how far back same-source linking looks.
	DefaultAssociationWindow = 24 * time.Hour
	// maxAssociationFanout caps edges created per kind on one admission.
	maxAssociationFanout = 5
)

// AssociationService builds advisory edges between wonders after admission:
// same-source edges inside a recency window and shared-tag edges. It
// implements AssociationBuilder for WonderService; the filter itself never
// reads these edges back.
type AssociationService struct {
	associations domain.AssociationStore
	wonders      domain.WonderStore
	logger       *zap.Logger

	Window time.Duration
}

func NewAssociationService(as domain.AssociationStore, ws domain.WonderStore, logger *zap.Logger) *AssociationService {
	return &AssociationService{
		associations: as,
		wonders:      ws,
		logger:       logger,
		Window:       DefaultAssociationWindow,
	}
}

// OnWonderAdmitted links the new wonder to recent wonders from the same
// source and to wonders sharing any of its tags. Individual edge failures
// are logged and skipped; admission never depends on edges.
func (s *AssociationService) OnWonderAdmitted(ctx context.Context, w *domain.Wonder) error {
	linked := map[uuid.UUID]bool{w.ID: true}

	since := timeNow().Add(-s.Window)
	recent, err := s.wonders.ListRecentBySource(ctx, w.SourceID, since, maxAssociationFanout+1)
	if err != nil {
		return err
	}
	created := 0
	for _, other := range recent {
		if linked[other.ID] || created >= maxAssociationFanout {
			continue
		}
		s.createEdge(ctx, w.ID, other.ID, domain.AssociationSameSource, "")
		linked[other.ID] = true
		created++
	}

	for _, tag := range w.Tags {
		peers, err := s.wonders.ListByTag(ctx, tag, maxAssociationFanout)
		if err != nil {
			s.logger.Warn("tag lookup failed during association build",
				zap.String("tag", tag),
				zap.Error(err))
			continue
		}
		created = 0
		for _, other := range peers {
			if linked[other.ID] || created >= maxAssociationFanout {
				continue
			}
			s.createEdge(ctx, w.ID, other.ID, domain.AssociationSharedTag, tag)
			linked[other.ID] = true
			created++
		}
	}

	return nil
}

func (s *AssociationService) createEdge(ctx context.Context, from, to uuid.UUID, kind domain.AssociationKind, label string) {
	edge := &domain.WonderAssociation{FromID: from, ToID: to, Kind: kind, Label: label}
	if err := s.associations.Create(ctx, edge); err != nil {
		s.logger.Warn("failed to create association",
			zap.String("from_id", from.String()),
			zap.String("to_id", to.String()),
			zap.String("kind", string(kind)),
			zap.Error(err))
	}
}

// GetByWonder returns edges touching the wonder in either direction.
func (s *AssociationService) GetByWonder(ctx context.Context, wonderID uuid.UUID) ([]domain.WonderAssociation, error) {
	return s.associations.GetByWonder(ctx, wonderID)
}
