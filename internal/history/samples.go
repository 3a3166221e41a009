// Package history keeps a rolling local record of input readings in
// the input_samples table. It is the fallback when the InfluxDB sink is
// down and the source for the recent-history API queries.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Kinds of recorded samples.
const (
	KindDigital = "digital"
	KindAnalog  = "analog"
)

// Sample is one recorded input reading. Digital levels store as 0/1.
type Sample struct {
	PointID   string    `json:"pointId"`
	Kind      string    `json:"kind"`
	Value     float64   `json:"value"`
	SampledAt time.Time `json:"sampledAt"`
}

// Store reads and writes the input_samples table.
type Store struct {
	db *sql.DB
}

// NewStore builds a store over an open database.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Insert writes one batch of samples in a single transaction.
func (s *Store) Insert(ctx context.Context, samples []Sample) error {
	if len(samples) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	stmt, err := tx.PrepareContext(ctx,
		"INSERT INTO input_samples (point_id, kind, value, sampled_at) VALUES (?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close() //nolint:errcheck

	for _, sm := range samples {
		if _, err := stmt.ExecContext(ctx,
			sm.PointID, sm.Kind, sm.Value, sm.SampledAt.UTC().Format(time.RFC3339),
		); err != nil {
			return fmt.Errorf("inserting sample for %s: %w", sm.PointID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing samples: %w", err)
	}
	return nil
}

// Query returns samples for one point since a cutoff, newest first.
func (s *Store) Query(ctx context.Context, pointID string, since time.Time, limit int) ([]Sample, error) {
	if limit <= 0 {
		limit = 100
	}
	if limit > 1000 {
		limit = 1000
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT point_id, kind, value, sampled_at FROM input_samples
		 WHERE point_id = ? AND sampled_at >= ?
		 ORDER BY sampled_at DESC LIMIT ?`,
		pointID, since.UTC().Format(time.RFC3339), limit)
	if err != nil {
		return nil, fmt.Errorf("querying samples: %w", err)
	}
	defer rows.Close()

	samples := []Sample{}
	for rows.Next() {
		var sm Sample
		var sampledAt string
		if err := rows.Scan(&sm.PointID, &sm.Kind, &sm.Value, &sampledAt); err != nil {
			return nil, fmt.Errorf("scanning sample: %w", err)
		}
		t, err := time.Parse(time.RFC3339, sampledAt)
		if err != nil {
			return nil, fmt.Errorf("parsing sample timestamp %q: %w", sampledAt, err)
		}
		sm.SampledAt = t
		samples = append(samples, sm)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating samples: %w", err)
	}
	return samples, nil
}

// Prune deletes samples older than the cutoff and reports how many
// rows went.
func (s *Store) Prune(ctx context.Context, olderThan time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM input_samples WHERE sampled_at < ?",
		olderThan.UTC().Format(time.RFC3339))
	if err != nil {
		return 0, fmt.Errorf("pruning samples: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("reading prune count: %w", err)
	}
	return n, nil
}
