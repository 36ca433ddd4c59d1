package store

import (
	"context"
	"database/sql"

	"github.com/sa-retail/strukindex/internal/errors"
	"github.com/sa-retail/strukindex/internal/receipt"
)

// UpsertBatch writes a batch of records inside a single transaction.
// Conflicts on (year, key) update the row in place. The normalized
// content column is cleared when the file's mtime changed so the
// normalizer picks the row up again; untouched rows keep it.
func (s *Store) UpsertBatch(ctx context.Context, records []receipt.Record) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(errors.ErrCodeBatchWrite, err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO receipt_index (year, key, register, sequence, mtime, path, content_index, key_prefix)
		VALUES (?, ?, ?, ?, ?, ?, NULL, ?)
		ON CONFLICT (year, key) DO UPDATE SET
			register   = excluded.register,
			sequence   = excluded.sequence,
			path       = excluded.path,
			key_prefix = excluded.key_prefix,
			content_index = CASE
				WHEN receipt_index.mtime = excluded.mtime THEN receipt_index.content_index
				ELSE NULL
			END,
			mtime = excluded.mtime
	`)
	if err != nil {
		return errors.Wrap(errors.ErrCodeBatchWrite, err)
	}
	defer stmt.Close()

	for _, rec := range records {
		prefix := rec.Key
		if len(prefix) > 6 {
			prefix = prefix[:6]
		}
		_, err := stmt.ExecContext(ctx,
			rec.Year, rec.Key, rec.Register, rec.Sequence, rec.ModifiedAt, rec.Path, prefix)
		if err != nil {
			return errors.Wrap(errors.ErrCodeBatchWrite, err).
				WithDetail("year", rec.Year).
				WithDetail("key", rec.Key)
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(errors.ErrCodeBatchWrite, err)
	}
	return nil
}

// KeysWithMtime loads the (key, mtime) pairs of a year partition in one
// pass. The scanner consults this map instead of querying per file.
func (s *Store) KeysWithMtime(ctx context.Context, year string) (map[string]int64, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT key, mtime FROM receipt_index WHERE year = ?`, year)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err)
	}
	defer rows.Close()

	known := make(map[string]int64)
	for rows.Next() {
		var key string
		var mtime int64
		if err := rows.Scan(&key, &mtime); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInternal, err)
		}
		known[key] = mtime
	}
	return known, rows.Err()
}

// CountByYear reports how many rows a year partition holds.
func (s *Store) CountByYear(ctx context.Context, year string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM receipt_index WHERE year = ?`, year).Scan(&n)
	if err != nil {
		return 0, errors.Wrap(errors.ErrCodeInternal, err)
	}
	return n, nil
}

// Years lists the distinct year partitions present in the index,
// newest first.
func (s *Store) Years(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT year FROM receipt_index ORDER BY year DESC`)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err)
	}
	defer rows.Close()

	var years []string
	for rows.Next() {
		var y string
		if err := rows.Scan(&y); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInternal, err)
		}
		years = append(years, y)
	}
	return years, rows.Err()
}

// PendingContent returns up to limit rows whose normalized content has
// not been derived yet, in (year, key) order, strictly after the given
// cursor position. Empty cursor strings start from the beginning. The
// caller pages by passing the last row it saw, so rows it chose to
// skip are never served twice in one sweep.
func (s *Store) PendingContent(ctx context.Context, afterYear, afterKey string, limit int) ([]receipt.Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT year, key, register, sequence, mtime, path
		FROM receipt_index
		WHERE content_index IS NULL AND (year, key) > (?, ?)
		ORDER BY year, key
		LIMIT ?`, afterYear, afterKey, limit)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err)
	}
	defer rows.Close()

	var out []receipt.Record
	for rows.Next() {
		var rec receipt.Record
		if err := rows.Scan(&rec.Year, &rec.Key, &rec.Register, &rec.Sequence, &rec.ModifiedAt, &rec.Path); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInternal, err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// SetContent stores the normalized content of one receipt.
func (s *Store) SetContent(ctx context.Context, year, key, content string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE receipt_index SET content_index = ? WHERE year = ? AND key = ?`,
		content, year, key)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err).
			WithDetail("year", year).
			WithDetail("key", key)
	}
	return nil
}

// PendingContentCount reports how many rows still await normalization.
func (s *Store) PendingContentCount(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM receipt_index WHERE content_index IS NULL`).Scan(&n)
	if err != nil {
		return 0, errors.Wrap(errors.ErrCodeInternal, err)
	}
	return n, nil
}

// DeleteYearsBefore drops every partition older than the given year and
// reports how many rows were removed.
func (s *Store) DeleteYearsBefore(ctx context.Context, year string) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM receipt_index WHERE year < ?`, year)
	if err != nil {
		return 0, errors.Wrap(errors.ErrCodeInternal, err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// BackfillKeyPrefix fills key_prefix on rows written before the column
// was populated. Returns the number of rows updated.
func (s *Store) BackfillKeyPrefix(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE receipt_index
		SET key_prefix = substr(key, 1, 6)
		WHERE key_prefix IS NULL`)
	if err != nil {
		return 0, errors.Wrap(errors.ErrCodeInternal, err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// scanRecord scans one full row including the nullable content column.
func scanRecord(rows interface {
	Scan(dest ...any) error
}) (receipt.Record, error) {
	var rec receipt.Record
	var content sql.NullString
	err := rows.Scan(&rec.Year, &rec.Key, &rec.Register, &rec.Sequence,
		&rec.ModifiedAt, &rec.Path, &content)
	if err != nil {
		return rec, err
	}
	rec.Content = content.String
	rec.HasContent = content.Valid
	return rec, nil
}
