package index

import (
	"context"
	"log/slog"
	"time"

	"github.com/sa-retail/strukindex/internal/errors"
	"github.com/sa-retail/strukindex/internal/receipt"
	"github.com/sa-retail/strukindex/internal/store"
)

// Options tunes a single build run.
type Options struct {
	// Force ignores the cooldown and the mtime watermark, reprocessing
	// every file in the partition. Used for archive backfills.
	Force bool
}

// Result summarizes a build run.
type Result struct {
	Year      string
	Ran       bool // false when skipped by cooldown
	Processed int  // files upserted
	Scanned   int  // valid receipt files seen
	Skipped   int  // entries rejected by the filename grammar
	MaxMtime  int64
	Elapsed   time.Duration
}

// Builder scans one year partition at a time and writes eligible files
// into the store in batches.
type Builder struct {
	store         *store.Store
	resolver      *Resolver
	dataDir       string
	cooldown      time.Duration
	batchSize     int
	progressEvery int
	log           *slog.Logger
	now           func() time.Time
	readDir       func(string) ([]DirEntry, error)
}

// NewBuilder wires a builder over the store and resolver.
func NewBuilder(st *store.Store, res *Resolver, dataDir string, cooldown time.Duration, batchSize, progressEvery int, log *slog.Logger) *Builder {
	if batchSize <= 0 {
		batchSize = 1000
	}
	if progressEvery <= 0 {
		progressEvery = 500
	}
	return &Builder{
		store:         st,
		resolver:      res,
		dataDir:       dataDir,
		cooldown:      cooldown,
		batchSize:     batchSize,
		progressEvery: progressEvery,
		log:           log,
		now:           time.Now,
		readDir:       listReceiptDir,
	}
}

// Build runs one incremental pass over a year partition. Returns a
// result with Ran=false when the cooldown suppressed the run. The
// watermark only advances after the whole partition was scanned and
// every batch committed, so an interrupted run re-examines its files
// on the next pass instead of losing them.
func (b *Builder) Build(ctx context.Context, year string, opts Options) (Result, error) {
	res := Result{Year: year}

	dir, err := b.resolver.Resolve(year)
	if err != nil {
		return res, err
	}

	meta := NewMetaFile(b.dataDir, year)
	wm := meta.Load()

	if !opts.Force && b.cooldown > 0 && wm.LastRun > 0 {
		since := b.now().Unix() - wm.LastRun
		if since < int64(b.cooldown.Seconds()) {
			b.log.Debug("build suppressed by cooldown",
				"year", year, "since_seconds", since)
			return res, nil
		}
	}

	lock := NewBuildLock(b.dataDir, year)
	if err := lock.TryLock(); err != nil {
		return res, err
	}
	defer func() { _ = lock.Unlock() }()

	watermark := wm.LastMtime
	if opts.Force {
		watermark = 0
	}

	start := b.now()
	res.Ran = true
	meta.PublishStatus(Status{State: StateRunning})
	b.log.Info("build started",
		"year", year, "dir", dir, "watermark", watermark, "force", opts.Force)

	known, err := b.store.KeysWithMtime(ctx, year)
	if err != nil {
		meta.PublishStatus(Status{State: StateFailed, Error: err.Error()})
		return res, err
	}

	entries, err := b.readDir(dir)
	if err != nil {
		meta.PublishStatus(Status{State: StateFailed, Error: err.Error()})
		return res, errors.Wrap(errors.ErrCodeYearDirNotFound, err).
			WithDetail("dir", dir)
	}

	batch := make([]receipt.Record, 0, b.batchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := b.store.UpsertBatch(ctx, batch); err != nil {
			return err
		}
		batch = batch[:0]
		return nil
	}

	var maxMtime int64
	fail := func(err error) (Result, error) {
		res.Elapsed = b.now().Sub(start)
		meta.PublishStatus(Status{
			State:          StateFailed,
			Processed:      res.Scanned,
			Inserted:       res.Processed,
			ElapsedSeconds: int64(res.Elapsed.Seconds()),
			Error:          err.Error(),
		})
		return res, err
	}

	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return fail(errors.Wrap(errors.ErrCodeInternal, err))
		}

		key, err := receipt.ParseFilename(entry.Name)
		if err != nil {
			res.Skipped++
			b.log.Debug("entry rejected", "name", entry.Name, "year", year)
			continue
		}

		res.Scanned++
		if entry.Mtime > maxMtime {
			maxMtime = entry.Mtime
		}

		_, indexed := known[key.String()]
		if indexed && entry.Mtime <= watermark {
			continue
		}

		batch = append(batch, receipt.Record{
			Year:       year,
			Key:        key.String(),
			Register:   key.Register,
			Sequence:   key.Sequence,
			ModifiedAt: entry.Mtime,
			Path:       entry.Path,
		})
		res.Processed++

		if len(batch) >= b.batchSize {
			if err := flush(); err != nil {
				return fail(err)
			}
		}
		if res.Processed%b.progressEvery == 0 {
			elapsed := b.now().Sub(start)
			meta.PublishStatus(Status{
				State:          StateRunning,
				Processed:      res.Scanned,
				Inserted:       res.Processed,
				ElapsedSeconds: int64(elapsed.Seconds()),
			})
			b.log.Info("build progress",
				"year", year, "processed", res.Processed,
				"elapsed_ms", elapsed.Milliseconds())
		}
	}

	if err := flush(); err != nil {
		return fail(err)
	}

	// The watermark never moves backwards: a scan over an emptied
	// partition must not force the next run to reprocess from zero.
	if !opts.Force && maxMtime < wm.LastMtime {
		maxMtime = wm.LastMtime
	}

	res.MaxMtime = maxMtime
	res.Elapsed = b.now().Sub(start)

	if err := meta.Store(Meta{LastRun: b.now().Unix(), LastMtime: maxMtime}); err != nil {
		return fail(err)
	}
	meta.PublishStatus(Status{
		State:          StateDone,
		Processed:      res.Scanned,
		Inserted:       res.Processed,
		ElapsedSeconds: int64(res.Elapsed.Seconds()),
	})
	b.log.Info("build finished",
		"year", year, "scanned", res.Scanned, "processed", res.Processed,
		"skipped", res.Skipped, "elapsed_ms", res.Elapsed.Milliseconds())
	return res, nil
}
