package store

import (
	"context"
	"database/sql"
	stderrors "errors"
	"strings"

	"github.com/sa-retail/strukindex/internal/errors"
	"github.com/sa-retail/strukindex/internal/receipt"
)

const selectColumns = `year, key, register, sequence, mtime, path, content_index`

// GetByKey fetches one receipt row by its exact key within a year
// partition. Returns a not-found error when the row is absent.
func (s *Store) GetByKey(ctx context.Context, year, key string) (receipt.Record, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+selectColumns+` FROM receipt_index WHERE year = ? AND key = ?`,
		year, key)

	rec, err := scanRecord(row)
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return rec, errors.NotFound("receipt not found").
				WithDetail("year", year).
				WithDetail("key", key)
		}
		return rec, errors.Wrap(errors.ErrCodeInternal, err)
	}
	return rec, nil
}

// FindByDateRegister returns receipts from one register whose mtime
// falls inside [from, to], across all year partitions, oldest first.
func (s *Store) FindByDateRegister(ctx context.Context, register string, from, to int64, limit int) ([]receipt.Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+selectColumns+`
		FROM receipt_index
		WHERE register = ? AND mtime BETWEEN ? AND ?
		ORDER BY mtime ASC
		LIMIT ?`, register, from, to, limit)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err)
	}
	return collectRecords(rows)
}

// ContentFilter narrows a content search beyond the keyword.
type ContentFilter struct {
	Year     string
	Register string
	From     int64 // unix seconds, 0 means unbounded
	To       int64
}

// SearchContent finds receipts whose normalized content contains the
// given (already normalized) keyword as a substring, newest first.
// Rows not yet normalized never match.
func (s *Store) SearchContent(ctx context.Context, keyword string, filter ContentFilter, limit int) ([]receipt.Record, error) {
	var sb strings.Builder
	sb.WriteString(`SELECT ` + selectColumns + `
		FROM receipt_index
		WHERE content_index LIKE ? ESCAPE '\'`)
	args := []any{"%" + escapeLike(keyword) + "%"}

	if filter.Year != "" {
		sb.WriteString(` AND year = ?`)
		args = append(args, filter.Year)
	}
	if filter.Register != "" {
		sb.WriteString(` AND register = ?`)
		args = append(args, filter.Register)
	}
	if filter.From > 0 || filter.To > 0 {
		sb.WriteString(` AND mtime BETWEEN ? AND ?`)
		args = append(args, filter.From, filter.To)
	}
	sb.WriteString(` ORDER BY mtime DESC LIMIT ?`)
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err)
	}
	return collectRecords(rows)
}

// escapeLike neutralizes LIKE metacharacters in user keywords.
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

func collectRecords(rows *sql.Rows) ([]receipt.Record, error) {
	defer rows.Close()

	var out []receipt.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInternal, err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err)
	}
	return out, nil
}
