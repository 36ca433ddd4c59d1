// Package watcher triggers incremental index builds when receipt files
// land in the live directory. It combines fsnotify events, coalesced
// over a quiet window so a burst of register uploads causes one build,
// with a polling fallback for mounts that drop notifications.
package watcher

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/sa-retail/strukindex/internal/errors"
	"github.com/sa-retail/strukindex/internal/receipt"
)

// TriggerFunc runs one incremental build pass. Overlap and rate
// control are the callee's concern.
type TriggerFunc func(ctx context.Context) error

// Watcher observes one flat directory.
type Watcher struct {
	dir          string
	debounce     time.Duration
	pollInterval time.Duration
	trigger      TriggerFunc
	log          *slog.Logger
}

// New creates a watcher over dir that calls trigger after activity.
func New(dir string, debounce, pollInterval time.Duration, trigger TriggerFunc, log *slog.Logger) *Watcher {
	if debounce <= 0 {
		debounce = 2 * time.Second
	}
	return &Watcher{
		dir:          dir,
		debounce:     debounce,
		pollInterval: pollInterval,
		trigger:      trigger,
		log:          log,
	}
}

// Run watches until the context is cancelled. Event bursts are
// coalesced: the trigger fires once after the directory has been quiet
// for the debounce window. The poll ticker fires regardless of events
// so a missed notification delays a build, never loses it.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err)
	}
	defer fw.Close()

	if err := fw.Add(w.dir); err != nil {
		return errors.Wrap(errors.ErrCodeYearDirNotFound, err).
			WithDetail("dir", w.dir)
	}
	w.log.Info("watching", "dir", w.dir,
		"debounce", w.debounce.String(), "poll_interval", w.pollInterval.String())

	// Idle until the first event.
	quiet := time.NewTimer(w.debounce)
	if !quiet.Stop() {
		<-quiet.C
	}

	var poll <-chan time.Time
	if w.pollInterval > 0 {
		ticker := time.NewTicker(w.pollInterval)
		defer ticker.Stop()
		poll = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if !w.relevant(event) {
				continue
			}
			w.log.Debug("receipt activity", "op", event.Op.String(), "path", event.Name)
			if !quiet.Stop() {
				select {
				case <-quiet.C:
				default:
				}
			}
			quiet.Reset(w.debounce)

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("watch error", "error", err)

		case <-quiet.C:
			w.fire(ctx, "event")

		case <-poll:
			w.fire(ctx, "poll")
		}
	}
}

func (w *Watcher) fire(ctx context.Context, reason string) {
	if err := w.trigger(ctx); err != nil {
		w.log.Error("triggered build failed", "reason", reason, "error", err)
		return
	}
	w.log.Debug("triggered build done", "reason", reason)
}

// relevant filters the event stream down to receipt files appearing or
// changing. Deletes are ignored; rows for removed files are reconciled
// by query-time revalidation and the next full pass.
func (w *Watcher) relevant(event fsnotify.Event) bool {
	if !event.Op.Has(fsnotify.Create) && !event.Op.Has(fsnotify.Write) && !event.Op.Has(fsnotify.Rename) {
		return false
	}
	_, err := receipt.ParseFilename(filepath.Base(event.Name))
	return err == nil
}
