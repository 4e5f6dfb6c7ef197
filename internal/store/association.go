package store

import (
	"context"

	"github.com/curiolabs/wondergate/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

type AssociationStore struct {
	db *pgxpool.Pool
}

func NewAssociationStore(db *pgxpool.Pool) *AssociationStore {
	return &AssociationStore{db: db}
}

func (s *AssociationStore) Create(ctx context.Context, a *domain.WonderAssociation) error {
	return s.db.QueryRow(ctx,
		`INSERT INTO wonder_associations (from_id, to_id, kind, label)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (from_id, to_id, kind, label) DO UPDATE SET kind = EXCLUDED.kind
		 RETURNING id, created_at`,
		a.FromID, a.ToID, a.Kind, a.Label,
	).Scan(&a.ID, &a.CreatedAt)
}

func (s *AssociationStore) GetByWonder(ctx context.Context, wonderID uuid.UUID) ([]domain.WonderAssociation, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, from_id, to_id, kind, label, created_at
		 FROM wonder_associations
		 WHERE from_id = $1 OR to_id = $1
		 ORDER BY created_at DESC`,
		wonderID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var associations []domain.WonderAssociation
	for rows.Next() {
		var a domain.WonderAssociation
		if err := rows.Scan(&a.ID, &a.FromID, &a.ToID, &a.Kind, &a.Label, &a.CreatedAt); err != nil {
			return nil, err
		}
		associations = append(associations, a)
	}
	return associations, rows.Err()
}
