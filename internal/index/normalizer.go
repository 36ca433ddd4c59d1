package index

import (
	"context"
	"log/slog"
	"os"

	"github.com/sa-retail/strukindex/internal/receipt"
	"github.com/sa-retail/strukindex/internal/store"
)

// Normalizer derives searchable content for rows the builder left
// unnormalized. It runs separately from the scan so slow file reads
// never hold up metadata indexing.
type Normalizer struct {
	store     *store.Store
	batchSize int
	log       *slog.Logger
	readFile  func(string) ([]byte, error)
}

// NewNormalizer wires a normalizer over the store.
func NewNormalizer(st *store.Store, batchSize int, log *slog.Logger) *Normalizer {
	if batchSize <= 0 {
		batchSize = 200
	}
	return &Normalizer{
		store:     st,
		batchSize: batchSize,
		log:       log,
		readFile:  os.ReadFile,
	}
}

// NormalizeResult summarizes one normalization pass.
type NormalizeResult struct {
	Normalized int
	Missing    int // files gone from disk, rows left for the next scan
}

// Run processes the backlog in batches until it is drained, max rows
// were handled (0 means unbounded), or the context is cancelled. Files
// missing on disk keep their NULL content; the next build pass will
// fix or remove the row.
func (n *Normalizer) Run(ctx context.Context, max int) (NormalizeResult, error) {
	var res NormalizeResult

	// Keyset cursor over (year, key). Unreadable rows stay pending in
	// the store but the cursor moves past them, so each row is visited
	// and counted exactly once per sweep.
	var afterYear, afterKey string

	for {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if max > 0 && res.Normalized+res.Missing >= max {
			return res, nil
		}

		size := n.batchSize
		if max > 0 && max-res.Normalized-res.Missing < size {
			size = max - res.Normalized - res.Missing
		}
		batch, err := n.store.PendingContent(ctx, afterYear, afterKey, size)
		if err != nil {
			return res, err
		}
		if len(batch) == 0 {
			return res, nil
		}

		for _, rec := range batch {
			data, err := n.readFile(rec.Path)
			if err != nil {
				res.Missing++
				n.log.Warn("receipt unreadable, left for next scan",
					"path", rec.Path, "year", rec.Year, "key", rec.Key)
				continue
			}
			content := receipt.NormalizeContent(string(data))
			if err := n.store.SetContent(ctx, rec.Year, rec.Key, content); err != nil {
				return res, err
			}
			res.Normalized++
		}

		last := batch[len(batch)-1]
		afterYear, afterKey = last.Year, last.Key

		n.log.Info("normalize batch done",
			"normalized", res.Normalized, "missing", res.Missing)
	}
}
