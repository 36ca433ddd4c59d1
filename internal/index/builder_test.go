package index

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sa-retail/strukindex/internal/errors"
	"github.com/sa-retail/strukindex/internal/receipt"
	"github.com/sa-retail/strukindex/internal/store"
)

type buildEnv struct {
	store    *store.Store
	resolver *Resolver
	base     string
	dataDir  string
	live     string
}

func newBuildEnv(t *testing.T) *buildEnv {
	t.Helper()

	st, err := store.Open("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	base := t.TempDir()
	live := filepath.Join(base, "live")
	require.NoError(t, os.Mkdir(live, 0o755))

	r := NewResolver(base)
	r.now = fixedClock(2026)

	return &buildEnv{
		store:    st,
		resolver: r,
		base:     base,
		dataDir:  t.TempDir(),
		live:     live,
	}
}

func (e *buildEnv) builder(t *testing.T, cooldown time.Duration) *Builder {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewBuilder(e.store, e.resolver, e.dataDir, cooldown, 2, 2, log)
}

func (e *buildEnv) writeReceipt(t *testing.T, name, content string, mtime time.Time) {
	t.Helper()
	path := filepath.Join(e.live, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	require.NoError(t, os.Chtimes(path, mtime, mtime))
}

func TestBuildIndexesPartition(t *testing.T) {
	env := newBuildEnv(t)
	t0 := time.Unix(1700000000, 0)

	env.writeReceipt(t, "01.000001.txt", "milk", t0)
	env.writeReceipt(t, "01.000002.txt", "bread", t0.Add(time.Minute))
	env.writeReceipt(t, "02.000003.txt", "eggs", t0.Add(2*time.Minute))
	env.writeReceipt(t, "notes.txt", "not a receipt", t0)
	env.writeReceipt(t, "3.45.txt", "bad grammar", t0)

	b := env.builder(t, 0)
	res, err := b.Build(context.Background(), "2026", Options{})
	require.NoError(t, err)

	assert.True(t, res.Ran)
	assert.Equal(t, 3, res.Processed)
	assert.Equal(t, 3, res.Scanned)
	assert.Equal(t, 2, res.Skipped)
	assert.Equal(t, t0.Add(2*time.Minute).Unix(), res.MaxMtime)

	n, err := env.store.CountByYear(context.Background(), "2026")
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	meta := NewMetaFile(env.dataDir, "2026").Load()
	assert.Equal(t, res.MaxMtime, meta.LastMtime)
	assert.NotZero(t, meta.LastRun)

	st, ok := NewMetaFile(env.dataDir, "2026").LoadStatus()
	require.True(t, ok)
	assert.Equal(t, StateDone, st.State)
	assert.Equal(t, 3, st.Processed)
	assert.Equal(t, 3, st.Inserted)
}

func TestBuildIncrementalOnlyNewFiles(t *testing.T) {
	env := newBuildEnv(t)
	t0 := time.Unix(1700000000, 0)

	env.writeReceipt(t, "01.000001.txt", "milk", t0)
	b := env.builder(t, 0)

	_, err := b.Build(context.Background(), "2026", Options{})
	require.NoError(t, err)

	// Nothing changed, the second pass writes nothing.
	res, err := b.Build(context.Background(), "2026", Options{})
	require.NoError(t, err)
	assert.True(t, res.Ran)
	assert.Equal(t, 0, res.Processed)

	// A newer file is picked up alone.
	env.writeReceipt(t, "01.000002.txt", "bread", t0.Add(time.Hour))
	res, err = b.Build(context.Background(), "2026", Options{})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Processed)
	assert.Equal(t, 2, res.Scanned)

	// The status file distinguishes files examined from rows written.
	st, ok := NewMetaFile(env.dataDir, "2026").LoadStatus()
	require.True(t, ok)
	assert.Equal(t, 2, st.Processed)
	assert.Equal(t, 1, st.Inserted)
}

func TestBuildPicksUpRowMissingFromIndex(t *testing.T) {
	env := newBuildEnv(t)
	t0 := time.Unix(1700000000, 0)

	env.writeReceipt(t, "01.000001.txt", "milk", t0)
	b := env.builder(t, 0)
	_, err := b.Build(context.Background(), "2026", Options{})
	require.NoError(t, err)

	// Old file, mtime below the watermark, but absent from the index.
	env.writeReceipt(t, "01.000002.txt", "bread", t0.Add(-time.Hour))
	res, err := b.Build(context.Background(), "2026", Options{})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Processed)
}

func TestBuildWatermarkNeverRegresses(t *testing.T) {
	env := newBuildEnv(t)
	t0 := time.Unix(1700000000, 0)

	env.writeReceipt(t, "01.000001.txt", "milk", t0)
	b := env.builder(t, 0)

	_, err := b.Build(context.Background(), "2026", Options{})
	require.NoError(t, err)
	require.Equal(t, t0.Unix(), NewMetaFile(env.dataDir, "2026").Load().LastMtime)

	// The partition empties out; a rescan keeps the old watermark
	// instead of resetting it.
	require.NoError(t, os.Remove(filepath.Join(env.live, "01.000001.txt")))
	res, err := b.Build(context.Background(), "2026", Options{})
	require.NoError(t, err)
	assert.Equal(t, t0.Unix(), res.MaxMtime)
	assert.Equal(t, t0.Unix(), NewMetaFile(env.dataDir, "2026").Load().LastMtime)

	// A returning newer file still advances it.
	env.writeReceipt(t, "01.000002.txt", "bread", t0.Add(time.Hour))
	_, err = b.Build(context.Background(), "2026", Options{})
	require.NoError(t, err)
	assert.Equal(t, t0.Add(time.Hour).Unix(), NewMetaFile(env.dataDir, "2026").Load().LastMtime)
}

func TestBuildCooldownSuppressesRun(t *testing.T) {
	env := newBuildEnv(t)
	env.writeReceipt(t, "01.000001.txt", "milk", time.Unix(1700000000, 0))

	b := env.builder(t, time.Hour)
	res, err := b.Build(context.Background(), "2026", Options{})
	require.NoError(t, err)
	assert.True(t, res.Ran)

	res, err = b.Build(context.Background(), "2026", Options{})
	require.NoError(t, err)
	assert.False(t, res.Ran)

	// Force ignores the cooldown and the watermark.
	res, err = b.Build(context.Background(), "2026", Options{Force: true})
	require.NoError(t, err)
	assert.True(t, res.Ran)
	assert.Equal(t, 1, res.Processed)
}

func TestBuildMissingYearDir(t *testing.T) {
	env := newBuildEnv(t)
	b := env.builder(t, 0)

	_, err := b.Build(context.Background(), "2019", Options{})
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeYearDirNotFound, errors.GetCode(err))
}

func TestBuildLockedYearFails(t *testing.T) {
	env := newBuildEnv(t)
	env.writeReceipt(t, "01.000001.txt", "milk", time.Unix(1700000000, 0))

	lock := NewBuildLock(env.dataDir, "2026")
	require.NoError(t, lock.TryLock())
	defer lock.Unlock()

	b := env.builder(t, 0)
	_, err := b.Build(context.Background(), "2026", Options{})
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeBuildInProgress, errors.GetCode(err))
}

func TestNormalizerDerivesContent(t *testing.T) {
	env := newBuildEnv(t)
	t0 := time.Unix(1700000000, 0)

	env.writeReceipt(t, "01.000001.txt", "Milk 2L  @ Rp4.500,-\n", t0)
	env.writeReceipt(t, "01.000002.txt", "gone", t0)

	b := env.builder(t, 0)
	_, err := b.Build(context.Background(), "2026", Options{})
	require.NoError(t, err)

	// One file disappears between scan and normalization.
	require.NoError(t, os.Remove(filepath.Join(env.live, "01.000002.txt")))

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	norm := NewNormalizer(env.store, 10, log)
	res, err := norm.Run(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Normalized)
	assert.Equal(t, 1, res.Missing)

	got, err := env.store.GetByKey(context.Background(), "2026", "01.000001")
	require.NoError(t, err)
	assert.True(t, got.HasContent)
	assert.Equal(t, "MILK 2L RP4 500", got.Content)

	// The unreadable row stays pending for the next pass.
	pending, err := env.store.PendingContentCount(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, pending)
}

func TestNormalizerCountsMissingOnce(t *testing.T) {
	env := newBuildEnv(t)
	t0 := time.Unix(1700000000, 0)

	for _, name := range []string{"01.000001.txt", "01.000002.txt", "01.000003.txt"} {
		env.writeReceipt(t, name, "x", t0)
	}
	b := env.builder(t, 0)
	_, err := b.Build(context.Background(), "2026", Options{})
	require.NoError(t, err)

	require.NoError(t, os.Remove(filepath.Join(env.live, "01.000001.txt")))
	require.NoError(t, os.Remove(filepath.Join(env.live, "01.000002.txt")))

	// Chunks of one force the sweep to page past the unreadable rows;
	// each one is visited and counted a single time.
	var reads atomic.Int32
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	norm := NewNormalizer(env.store, 1, log)
	inner := norm.readFile
	norm.readFile = func(path string) ([]byte, error) {
		reads.Add(1)
		return inner(path)
	}

	res, err := norm.Run(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Normalized)
	assert.Equal(t, 2, res.Missing)
	assert.Equal(t, int32(3), reads.Load())

	pending, err := env.store.PendingContentCount(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, pending)
}

func TestNormalizerRespectsMax(t *testing.T) {
	env := newBuildEnv(t)
	t0 := time.Unix(1700000000, 0)

	for _, name := range []string{"01.000001.txt", "01.000002.txt", "01.000003.txt"} {
		env.writeReceipt(t, name, "x", t0)
	}
	b := env.builder(t, 0)
	_, err := b.Build(context.Background(), "2026", Options{})
	require.NoError(t, err)

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	norm := NewNormalizer(env.store, 2, log)
	res, err := norm.Run(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Normalized)

	pending, err := env.store.PendingContentCount(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, pending)
}

func receiptRecord(year string) []receipt.Record {
	return []receipt.Record{{
		Year:       year,
		Key:        "01.000001",
		Register:   "01",
		Sequence:   "000001",
		ModifiedAt: 1,
		Path:       "/receipts/" + year + "/01.000001.txt",
	}}
}

func TestCleanupDropsOldPartitions(t *testing.T) {
	env := newBuildEnv(t)
	ctx := context.Background()

	for _, year := range []string{"2023", "2024", "2025", "2026"} {
		require.NoError(t, env.store.UpsertBatch(ctx, receiptRecord(year)))
		require.NoError(t, NewMetaFile(env.dataDir, year).Store(Meta{LastRun: 1, LastMtime: 1}))
	}

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	removed, err := Cleanup(ctx, env.store, env.resolver, env.dataDir, log)
	require.NoError(t, err)
	assert.Equal(t, int64(2), removed)

	years, err := env.store.Years(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"2026", "2025"}, years)

	_, err = os.Stat(filepath.Join(env.dataDir, "2023.meta.json"))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(env.dataDir, "2025.meta.json"))
	assert.NoError(t, err)
}
