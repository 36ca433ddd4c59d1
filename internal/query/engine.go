// Package query serves read-side lookups over the receipt index:
// exact key fetches, per-register day listings, and content search.
package query

import (
	"context"
	"log/slog"
	"os"
	"strconv"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/sa-retail/strukindex/internal/errors"
	"github.com/sa-retail/strukindex/internal/receipt"
	"github.com/sa-retail/strukindex/internal/store"
)

const (
	// DateLayout is the wire format of day arguments, ddMMyyyy.
	DateLayout = "02012006"

	dateLimit   = 500
	searchLimit = 100

	pathCacheSize = 256
)

// Engine answers queries against the store. Results referencing files
// that vanished from disk are filtered out; the index may lag the
// filesystem between builds.
type Engine struct {
	store     *store.Store
	log       *slog.Logger
	pathCache *lru.Cache[string, string]
	statFile  func(string) (os.FileInfo, error)
	now       func() time.Time
}

// New wires a query engine over the store.
func New(st *store.Store, log *slog.Logger) (*Engine, error) {
	cache, err := lru.New[string, string](pathCacheSize)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err)
	}
	return &Engine{
		store:     st,
		log:       log,
		pathCache: cache,
		statFile:  os.Stat,
		now:       time.Now,
	}, nil
}

// FindByKey fetches one receipt by register and sequence within a year
// partition. Inputs are zero-padded to canonical form first. The row's
// path is revalidated against disk; a stale row reads as not found.
func (e *Engine) FindByKey(ctx context.Context, year, register, sequence string) (receipt.Summary, error) {
	key, err := receipt.MakeKey(register, sequence)
	if err != nil {
		return receipt.Summary{}, err
	}

	rec, err := e.store.GetByKey(ctx, year, key.String())
	if err != nil {
		return receipt.Summary{}, err
	}

	if _, err := e.statFile(rec.Path); err != nil {
		e.log.Debug("indexed path gone from disk",
			"year", year, "key", key.String(), "path", rec.Path)
		return receipt.Summary{}, errors.NotFound("receipt file no longer on disk").
			WithDetail("year", year).
			WithDetail("key", key.String())
	}
	return receipt.Summarize(rec), nil
}

// FindByDateAndRegister lists one register's receipts for a calendar
// day, oldest first. The day spans all year partitions; receipts filed
// under an adjacent year still show up if their mtime falls inside it.
func (e *Engine) FindByDateAndRegister(ctx context.Context, date, register string) ([]receipt.Summary, error) {
	reg, err := receipt.MakeRegister(register)
	if err != nil {
		return nil, err
	}

	day, err := time.ParseInLocation(DateLayout, date, time.Local)
	if err != nil {
		return nil, errors.Newf(errors.ErrCodeInvalidDate, "invalid date %q, want ddMMyyyy", date)
	}
	from := day.Unix()
	to := day.Add(24*time.Hour - time.Second).Unix()

	recs, err := e.store.FindByDateRegister(ctx, reg, from, to, dateLimit)
	if err != nil {
		return nil, err
	}
	return summarizeAll(recs), nil
}

// SearchFilter narrows a content search to a year partition, a day
// and/or a register.
type SearchFilter struct {
	Year     string
	Date     string // ddMMyyyy, empty means any day
	Register string
}

// SearchByContent finds receipts whose normalized text contains the
// keyword, newest first. Keywords shorter than three characters return
// an empty result rather than scanning everything. The search is
// year-scoped: an explicit Year wins, otherwise the year is derived
// from the date filter, otherwise the current year is searched.
func (e *Engine) SearchByContent(ctx context.Context, keyword string, filter SearchFilter) ([]receipt.Summary, error) {
	normalized := receipt.NormalizeKeyword(keyword)
	if len(normalized) < receipt.MinKeywordLen {
		return []receipt.Summary{}, nil
	}

	cf := store.ContentFilter{Year: filter.Year}
	if filter.Register != "" {
		reg, err := receipt.MakeRegister(filter.Register)
		if err != nil {
			return nil, err
		}
		cf.Register = reg
	}
	if filter.Date != "" {
		day, err := time.ParseInLocation(DateLayout, filter.Date, time.Local)
		if err != nil {
			return nil, errors.Newf(errors.ErrCodeInvalidDate, "invalid date %q, want ddMMyyyy", filter.Date)
		}
		cf.From = day.Unix()
		cf.To = day.Add(24*time.Hour - time.Second).Unix()
		if cf.Year == "" {
			cf.Year = day.Format("2006")
		}
	}
	if cf.Year == "" {
		cf.Year = strconv.Itoa(e.now().Year())
	}

	recs, err := e.store.SearchContent(ctx, normalized, cf, searchLimit)
	if err != nil {
		return nil, err
	}
	return summarizeAll(recs), nil
}

// ResolveStreamPath maps a (year, key) pair to the receipt file's path
// on disk, for callers that stream the raw file. Paths are cached; a
// cached path whose file vanished is dropped and re-resolved.
func (e *Engine) ResolveStreamPath(ctx context.Context, year, key string) (string, error) {
	parsed, err := receipt.ParseKey(key)
	if err != nil {
		return "", err
	}

	cacheKey := year + "/" + parsed.String()
	if path, ok := e.pathCache.Get(cacheKey); ok {
		if _, err := e.statFile(path); err == nil {
			return path, nil
		}
		e.pathCache.Remove(cacheKey)
	}

	rec, err := e.store.GetByKey(ctx, year, parsed.String())
	if err != nil {
		return "", err
	}
	if _, err := e.statFile(rec.Path); err != nil {
		return "", errors.NotFound("receipt file no longer on disk").
			WithDetail("year", year).
			WithDetail("key", parsed.String())
	}

	e.pathCache.Add(cacheKey, rec.Path)
	return rec.Path, nil
}

func summarizeAll(recs []receipt.Record) []receipt.Summary {
	out := make([]receipt.Summary, 0, len(recs))
	for _, rec := range recs {
		out = append(out, receipt.Summarize(rec))
	}
	return out
}
