package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/curiolabs/wondergate/internal/domain"
	"github.com/jackc/pgx/v5/pgxpool"
)

type AuditStore struct {
	db *pgxpool.Pool
}

func NewAuditStore(db *pgxpool.Pool) *AuditStore {
	return &AuditStore{db: db}
}

func (s *AuditStore) Append(ctx context.Context, e *domain.AuditEvent) error {
	return s.db.QueryRow(ctx,
		`INSERT INTO audit_events (kind, decision, source_id, wonder_id, content_hash, failed_checks, confidence, delta)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING id, created_at`,
		e.Kind, e.Decision, e.SourceID, e.WonderID, e.ContentHash, e.FailedChecks, e.Confidence, e.Delta,
	).Scan(&e.ID, &e.CreatedAt)
}

func (s *AuditStore) List(ctx context.Context, f domain.AuditFilter) ([]domain.AuditEvent, error) {
	var conditions []string
	var args []any

	if f.SourceID != "" {
		conditions = append(conditions, fmt.Sprintf("source_id = $%d", len(args)+1))
		args = append(args, f.SourceID)
	}
	if f.Kind != nil {
		conditions = append(conditions, fmt.Sprintf("kind = $%d", len(args)+1))
		args = append(args, string(*f.Kind))
	}
	if f.Decision != nil {
		conditions = append(conditions, fmt.Sprintf("decision = $%d", len(args)+1))
		args = append(args, string(*f.Decision))
	}
	if !f.Since.IsZero() {
		conditions = append(conditions, fmt.Sprintf("created_at >= $%d", len(args)+1))
		args = append(args, f.Since)
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	limitParam := len(args) + 1
	args = append(args, f.Limit)

	query := fmt.Sprintf(
		`SELECT id, kind, decision, source_id, wonder_id, content_hash, failed_checks, confidence, delta, created_at
		 FROM audit_events %s
		 ORDER BY created_at DESC
		 LIMIT $%d`,
		where, limitParam,
	)

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("audit query: %w", err)
	}
	defer rows.Close()

	var events []domain.AuditEvent
	for rows.Next() {
		var e domain.AuditEvent
		err := rows.Scan(&e.ID, &e.Kind, &e.Decision, &e.SourceID, &e.WonderID, &e.ContentHash, &e.FailedChecks, &e.Confidence, &e.Delta, &e.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan audit row: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// AggregateBySource tallies admission decisions per source over [since, until).
func (s *AuditStore) AggregateBySource(ctx context.Context, since, until time.Time) ([]domain.SourceAggregate, error) {
	rows, err := s.db.Query(ctx,
		`SELECT source_id,
		        COUNT(*) FILTER (WHERE decision = 'admitted') AS admitted,
		        COUNT(*) FILTER (WHERE decision = 'rejected') AS rejected
		 FROM audit_events
		 WHERE kind = 'admission' AND created_at >= $1 AND created_at < $2
		 GROUP BY source_id`,
		since, until,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var aggregates []domain.SourceAggregate
	for rows.Next() {
		var a domain.SourceAggregate
		if err := rows.Scan(&a.SourceID, &a.Admitted, &a.Rejected); err != nil {
			return nil, err
		}
		aggregates = append(aggregates, a)
	}
	return aggregates, rows.Err()
}

// CountFailuresByCheck tallies how often each check name appears in rejection
// and admission records since the given time.
func (s *AuditStore) CountFailuresByCheck(ctx context.Context, since time.Time) (map[string]int, error) {
	rows, err := s.db.Query(ctx,
		`SELECT check_name, COUNT(*)
		 FROM audit_events, unnest(failed_checks) AS check_name
		 WHERE kind = 'admission' AND created_at >= $1
		 GROUP BY check_name`,
		since,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var name string
		var count int
		if err := rows.Scan(&name, &count); err != nil {
			return nil, err
		}
		counts[name] = count
	}
	return counts, rows.Err()
}

// ReinforcementStats returns the reinforcement count and mean delta over
// [since, until).
func (s *AuditStore) ReinforcementStats(ctx context.Context, since, until time.Time) (int, float64, error) {
	var count int
	var mean float64
	err := s.db.QueryRow(ctx,
		`SELECT COUNT(*), COALESCE(AVG(delta), 0)
		 FROM audit_events
		 WHERE kind = 'reinforcement' AND created_at >= $1 AND created_at < $2`,
		since, until,
	).Scan(&count, &mean)
	return count, mean, err
}
