package store

import (
	"context"
	"errors"

	"github.com/curiolabs/wondergate/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ReliabilityStore struct {
	db *pgxpool.Pool
}

func NewReliabilityStore(db *pgxpool.Pool) *ReliabilityStore {
	return &ReliabilityStore{db: db}
}

func (s *ReliabilityStore) Get(ctx context.Context, sourceID string) (*domain.SourceReliability, error) {
	r := &domain.SourceReliability{}
	err := s.db.QueryRow(ctx,
		`SELECT source_id, score, admitted, rejected, samples, magnitude_mean, magnitude_m2, updated_at
		 FROM source_reliability WHERE source_id = $1`,
		sourceID,
	).Scan(&r.SourceID, &r.Score, &r.Admitted, &r.Rejected, &r.Samples, &r.MagnitudeMean, &r.MagnitudeM2, &r.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return r, nil
}

func (s *ReliabilityStore) Upsert(ctx context.Context, r *domain.SourceReliability) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO source_reliability (source_id, score, admitted, rejected, samples, magnitude_mean, magnitude_m2, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (source_id) DO UPDATE SET
		   score = EXCLUDED.score,
		   admitted = EXCLUDED.admitted,
		   rejected = EXCLUDED.rejected,
		   samples = EXCLUDED.samples,
		   magnitude_mean = EXCLUDED.magnitude_mean,
		   magnitude_m2 = EXCLUDED.magnitude_m2,
		   updated_at = EXCLUDED.updated_at`,
		r.SourceID, r.Score, r.Admitted, r.Rejected, r.Samples, r.MagnitudeMean, r.MagnitudeM2, r.UpdatedAt,
	)
	return err
}

func (s *ReliabilityStore) List(ctx context.Context, limit int) ([]domain.SourceReliability, error) {
	rows, err := s.db.Query(ctx,
		`SELECT source_id, score, admitted, rejected, samples, magnitude_mean, magnitude_m2, updated_at
		 FROM source_reliability
		 ORDER BY score ASC
		 LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []domain.SourceReliability
	for rows.Next() {
		var r domain.SourceReliability
		if err := rows.Scan(&r.SourceID, &r.Score, &r.Admitted, &r.Rejected, &r.Samples, &r.MagnitudeMean, &r.MagnitudeM2, &r.UpdatedAt); err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, rows.Err()
}
