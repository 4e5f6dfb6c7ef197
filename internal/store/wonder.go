package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/curiolabs/wondergate/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgvector "github.com/pgvector/pgvector-go"
)

type WonderStore struct {
	db *pgxpool.Pool
}

func NewWonderStore(db *pgxpool.Pool) *WonderStore {
	return &WonderStore{db: db}
}

// Create inserts the wonder and its admission occurrence atomically.
func (s *WonderStore) Create(ctx context.Context, w *domain.Wonder, first domain.Occurrence) error {
	var embedding *pgvector.Vector
	if len(w.Embedding) > 0 {
		v := pgvector.NewVector(w.Embedding)
		embedding = &v
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx,
		`INSERT INTO wonders (source_id, content, content_hash, tags, metadata, embedding, confidence, stage, occurrence_count, first_seen_at, last_seen_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 RETURNING id, created_at, updated_at`,
		w.SourceID, w.Content, w.ContentHash, w.Tags, w.Metadata, embedding, w.Confidence, w.Stage, w.OccurrenceCount, w.FirstSeenAt, w.LastSeenAt,
	).Scan(&w.ID, &w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		return err
	}

	if _, err := tx.Exec(ctx,
		`INSERT INTO wonder_occurrences (wonder_id, seq, observed_at, delta)
		 VALUES ($1, $2, $3, $4)`,
		w.ID, first.Seq, first.ObservedAt, first.Delta,
	); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (s *WonderStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Wonder, error) {
	w := &domain.Wonder{}
	err := s.db.QueryRow(ctx,
		`SELECT id, source_id, content, content_hash, tags, metadata, confidence, stage, occurrence_count, first_seen_at, last_seen_at, created_at, updated_at
		 FROM wonders WHERE id = $1`,
		id,
	).Scan(&w.ID, &w.SourceID, &w.Content, &w.ContentHash, &w.Tags, &w.Metadata, &w.Confidence, &w.Stage, &w.OccurrenceCount, &w.FirstSeenAt, &w.LastSeenAt, &w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return w, nil
}

// FindEquivalent resolves an observation to the wonder restating the same
// claim. An exact fingerprint match wins outright with score 1; otherwise the
// two nearest embeddings above the threshold are compared, and ErrAmbiguousMatch
// is returned when they score within the ambiguity margin of each other.
func (s *WonderStore) FindEquivalent(ctx context.Context, obs domain.Observation, opts domain.MatchOpts) (*domain.WonderWithScore, error) {
	var ws domain.WonderWithScore
	err := s.db.QueryRow(ctx,
		`SELECT id, source_id, content, content_hash, tags, metadata, confidence, stage, occurrence_count, first_seen_at, last_seen_at, created_at, updated_at
		 FROM wonders WHERE content_hash = $1`,
		obs.Fingerprint(),
	).Scan(&ws.ID, &ws.SourceID, &ws.Content, &ws.ContentHash, &ws.Tags, &ws.Metadata, &ws.Confidence, &ws.Stage, &ws.OccurrenceCount, &ws.FirstSeenAt, &ws.LastSeenAt, &ws.CreatedAt, &ws.UpdatedAt)
	if err == nil {
		ws.Score = 1
		return &ws, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("fingerprint lookup: %w", err)
	}

	if len(obs.Embedding) == 0 {
		return nil, nil
	}

	vec := pgvector.NewVector(obs.Embedding)
	rows, err := s.db.Query(ctx,
		`SELECT id, source_id, content, content_hash, tags, metadata, confidence, stage, occurrence_count, first_seen_at, last_seen_at, created_at, updated_at,
		        1 - (embedding <=> $1) AS score
		 FROM wonders
		 WHERE embedding IS NOT NULL AND 1 - (embedding <=> $1) >= $2
		 ORDER BY score DESC
		 LIMIT 2`,
		vec, opts.Threshold,
	)
	if err != nil {
		return nil, fmt.Errorf("equivalence query: %w", err)
	}
	defer rows.Close()

	var matches []domain.WonderWithScore
	for rows.Next() {
		var m domain.WonderWithScore
		err := rows.Scan(
			&m.ID, &m.SourceID, &m.Content, &m.ContentHash, &m.Tags, &m.Metadata,
			&m.Confidence, &m.Stage, &m.OccurrenceCount, &m.FirstSeenAt, &m.LastSeenAt, &m.CreatedAt, &m.UpdatedAt,
			&m.Score,
		)
		if err != nil {
			return nil, fmt.Errorf("scan equivalence row: %w", err)
		}
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("equivalence rows: %w", err)
	}

	switch len(matches) {
	case 0:
		return nil, nil
	case 1:
		return &matches[0], nil
	}
	if matches[0].Score-matches[1].Score < opts.AmbiguityMargin {
		return nil, ErrAmbiguousMatch
	}
	return &matches[0], nil
}

// AppendOccurrence inserts the occurrence and folds the new confidence and
// stage into the wonder atomically. The occurrence counter is bumped server
// side so concurrent appends cannot lose increments.
func (s *WonderStore) AppendOccurrence(ctx context.Context, id uuid.UUID, occ domain.Occurrence, confidence float32, stage domain.WonderStage) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`INSERT INTO wonder_occurrences (wonder_id, seq, observed_at, delta)
		 VALUES ($1, $2, $3, $4)`,
		id, occ.Seq, occ.ObservedAt, occ.Delta,
	); err != nil {
		return err
	}

	tag, err := tx.Exec(ctx,
		`UPDATE wonders
		 SET confidence = $1,
		     stage = $2,
		     occurrence_count = occurrence_count + 1,
		     last_seen_at = $3,
		     updated_at = NOW()
		 WHERE id = $4`,
		confidence, stage, occ.ObservedAt, id,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return tx.Commit(ctx)
}

func (s *WonderStore) GetHistory(ctx context.Context, id uuid.UUID) ([]domain.Occurrence, error) {
	rows, err := s.db.Query(ctx,
		`SELECT seq, observed_at, delta
		 FROM wonder_occurrences WHERE wonder_id = $1
		 ORDER BY seq ASC`,
		id,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var occurrences []domain.Occurrence
	for rows.Next() {
		var occ domain.Occurrence
		if err := rows.Scan(&occ.Seq, &occ.ObservedAt, &occ.Delta); err != nil {
			return nil, err
		}
		occurrences = append(occurrences, occ)
	}
	return occurrences, rows.Err()
}

func (s *WonderStore) ListByStage(ctx context.Context, stage domain.WonderStage, limit int) ([]domain.Wonder, error) {
	var conditions []string
	var args []any

	if stage != "" {
		conditions = append(conditions, fmt.Sprintf("stage = $%d", len(args)+1))
		args = append(args, string(stage))
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	limitParam := len(args) + 1
	args = append(args, limit)

	query := fmt.Sprintf(
		`SELECT id, source_id, content, content_hash, tags, metadata, confidence, stage, occurrence_count, first_seen_at, last_seen_at, created_at, updated_at
		 FROM wonders %s
		 ORDER BY last_seen_at DESC
		 LIMIT $%d`,
		where, limitParam,
	)

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanWonderRows(rows)
}

func (s *WonderStore) ListRecentBySource(ctx context.Context, sourceID string, since time.Time, limit int) ([]domain.Wonder, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, source_id, content, content_hash, tags, metadata, confidence, stage, occurrence_count, first_seen_at, last_seen_at, created_at, updated_at
		 FROM wonders WHERE source_id = $1 AND last_seen_at >= $2
		 ORDER BY last_seen_at DESC
		 LIMIT $3`,
		sourceID, since, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanWonderRows(rows)
}

func (s *WonderStore) ListByTag(ctx context.Context, tag string, limit int) ([]domain.Wonder, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, source_id, content, content_hash, tags, metadata, confidence, stage, occurrence_count, first_seen_at, last_seen_at, created_at, updated_at
		 FROM wonders WHERE $1 = ANY(tags)
		 ORDER BY last_seen_at DESC
		 LIMIT $2`,
		tag, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanWonderRows(rows)
}

func scanWonderRows(rows pgx.Rows) ([]domain.Wonder, error) {
	var wonders []domain.Wonder
	for rows.Next() {
		var w domain.Wonder
		if err := rows.Scan(&w.ID, &w.SourceID, &w.Content, &w.ContentHash, &w.Tags, &w.Metadata, &w.Confidence, &w.Stage, &w.OccurrenceCount, &w.FirstSeenAt, &w.LastSeenAt, &w.CreatedAt, &w.UpdatedAt); err != nil {
			return nil, err
		}
		wonders = append(wonders, w)
	}
	return wonders, rows.Err()
}
