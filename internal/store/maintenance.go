package store

import (
	"context"

	"github.com/sa-retail/strukindex/internal/errors"
)

// Maintain reclaims space and refreshes planner statistics. Safe to run
// while queries are served; writers should be idle.
func (s *Store) Maintain(ctx context.Context) error {
	// No-op unless the database ever ran in WAL mode; kept so stale
	// -wal files from older deployments are truncated.
	if _, err := s.db.ExecContext(ctx, `PRAGMA wal_checkpoint(TRUNCATE)`); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err)
	}
	if _, err := s.db.ExecContext(ctx, `ANALYZE`); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err)
	}
	if _, err := s.db.ExecContext(ctx, `VACUUM`); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err)
	}
	return nil
}

// Stats summarizes the index for status reporting.
type Stats struct {
	TotalRows      int            `json:"total_rows"`
	RowsByYear     map[string]int `json:"rows_by_year"`
	PendingContent int            `json:"pending_content"`
}

// CollectStats gathers row counts per partition plus the normalization
// backlog in a single pass over the index.
func (s *Store) CollectStats(ctx context.Context) (Stats, error) {
	stats := Stats{RowsByYear: make(map[string]int)}

	rows, err := s.db.QueryContext(ctx,
		`SELECT year, COUNT(*) FROM receipt_index GROUP BY year`)
	if err != nil {
		return stats, errors.Wrap(errors.ErrCodeInternal, err)
	}
	defer rows.Close()
	for rows.Next() {
		var year string
		var n int
		if err := rows.Scan(&year, &n); err != nil {
			return stats, errors.Wrap(errors.ErrCodeInternal, err)
		}
		stats.RowsByYear[year] = n
		stats.TotalRows += n
	}
	if err := rows.Err(); err != nil {
		return stats, errors.Wrap(errors.ErrCodeInternal, err)
	}

	pending, err := s.PendingContentCount(ctx)
	if err != nil {
		return stats, err
	}
	stats.PendingContent = pending
	return stats, nil
}
