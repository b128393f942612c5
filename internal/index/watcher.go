package index

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/tutordocs/internal/checksum"
	"github.com/starford/tutordocs/internal/storage"
)

// Event kinds passed to EventCallback.
const (
	EventCreated = "created"
	EventUpdated = "updated"
	EventDeleted = "deleted"
)

const reconcileDelay = 200 * time.Millisecond

// EventCallback is called after a watcher-driven index change.
type EventCallback func(kind string, key string)

// Watch starts an fsnotify watcher on the content directory and keeps the
// index in step with pages edited outside the API until ctx is cancelled.
// Changes whose checksum already matches the index (for example pages
// saved through the API) are ignored, so cb only sees out-of-band edits.
func Watch(ctx context.Context, db PageIndex, store storage.Provider, logger *slog.Logger, cb EventCallback) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	root := store.Root()
	if err := w.Add(root); err != nil {
		return err
	}

	logger.Info("watcher: started", slog.String("root", root))

	// reconcileTimer debounces rename reconciliation.
	var reconcileTimer *time.Timer
	var reconcileCh <-chan time.Time

	scheduleReconcile := func() {
		if reconcileTimer == nil {
			reconcileTimer = time.NewTimer(reconcileDelay)
			reconcileCh = reconcileTimer.C
		} else {
			reconcileTimer.Reset(reconcileDelay)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if reconcileTimer != nil {
				reconcileTimer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-reconcileCh:
			reconcile(db, store, logger, cb)

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}

			key, isPage := storage.KeyFromFilename(filepath.Base(ev.Name))
			if !isPage {
				continue
			}

			switch {
			case ev.Op&(fsnotify.Create|fsnotify.Write) != 0:
				kind, changed := refresh(db, store, key, logger)
				if !changed {
					continue
				}
				logger.Debug("watcher: indexed", slog.String("page", key), slog.String("op", kind))
				if cb != nil {
					cb(kind, key)
				}

			case ev.Op&fsnotify.Remove != 0:
				if delErr := db.DeletePage(key); delErr != nil {
					logger.Warn("watcher: delete failed", slog.String("page", key), slog.String("error", delErr.Error()))
					continue
				}
				logger.Debug("watcher: deleted", slog.String("page", key))
				if cb != nil {
					cb(EventDeleted, key)
				}

			case ev.Op&fsnotify.Rename != 0:
				// fsnotify reports Rename on the old name only; the new name
				// arrives as a Create if it stays in the directory.
				if delErr := db.DeletePage(key); delErr != nil {
					logger.Warn("watcher: rename delete failed", slog.String("page", key), slog.String("error", delErr.Error()))
				} else if cb != nil {
					cb(EventDeleted, key)
				}
				scheduleReconcile()
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// refresh re-indexes key when its on-disk checksum differs from the index.
func refresh(db PageIndex, store storage.Provider, key string, logger *slog.Logger) (string, bool) {
	data, err := store.Read(key)
	if err != nil {
		logger.Warn("watcher: read failed", slog.String("page", key), slog.String("error", err.Error()))
		return "", false
	}
	prev, _ := db.GetChecksum(key)
	if prev == checksum.Sum(data) {
		return "", false
	}
	if err := IndexPage(db, key, data); err != nil {
		logger.Warn("watcher: index failed", slog.String("page", key), slog.String("error", err.Error()))
		return "", false
	}
	if prev == "" {
		return EventCreated, true
	}
	return EventUpdated, true
}

// reconcile removes index entries whose files are gone and indexes files
// the index has not seen.
func reconcile(db PageIndex, store storage.Provider, logger *slog.Logger, cb EventCallback) {
	checksums, err := db.AllChecksums()
	if err != nil {
		logger.Warn("reconcile: all checksums failed", slog.String("error", err.Error()))
		return
	}

	metas, err := store.List()
	if err != nil {
		logger.Warn("reconcile: list failed", slog.String("error", err.Error()))
		return
	}

	disk := make(map[string]string, len(metas))
	for _, m := range metas {
		disk[m.Key] = m.Checksum
	}

	for k := range checksums {
		if _, ok := disk[k]; !ok {
			if delErr := db.DeletePage(k); delErr == nil {
				logger.Debug("reconcile: removed stale", slog.String("page", k))
				if cb != nil {
					cb(EventDeleted, k)
				}
			}
		}
	}

	for k, cs := range disk {
		if checksums[k] == cs {
			continue
		}
		data, readErr := store.Read(k)
		if readErr != nil {
			continue
		}
		if idxErr := IndexPage(db, k, data); idxErr == nil {
			logger.Debug("reconcile: indexed", slog.String("page", k))
			if cb != nil {
				cb(EventCreated, k)
			}
		}
	}
}
