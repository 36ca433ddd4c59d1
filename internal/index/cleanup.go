package index

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"github.com/sa-retail/strukindex/internal/store"
)

// Cleanup drops index partitions older than the previous year, along
// with their watermark and status files. Receipt files on disk are
// never touched.
func Cleanup(ctx context.Context, st *store.Store, res *Resolver, dataDir string, log *slog.Logger) (int64, error) {
	current, err := strconv.Atoi(res.CurrentYear())
	if err != nil {
		return 0, err
	}
	keepFrom := strconv.Itoa(current - 1)

	removed, err := st.DeleteYearsBefore(ctx, keepFrom)
	if err != nil {
		return 0, err
	}

	matches, _ := filepath.Glob(filepath.Join(dataDir, "*.meta.json"))
	statuses, _ := filepath.Glob(filepath.Join(dataDir, "*.status.json"))
	for _, path := range append(matches, statuses...) {
		base := filepath.Base(path)
		if len(base) < 4 {
			continue
		}
		year := base[:4]
		if _, err := strconv.Atoi(year); err != nil {
			continue
		}
		if year < keepFrom {
			_ = os.Remove(path)
		}
	}

	log.Info("cleanup finished", "keep_from", keepFrom, "rows_removed", removed)
	return removed, nil
}
