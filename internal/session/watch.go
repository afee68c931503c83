package session

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/notedash/internal/apperr"
	"github.com/starford/notedash/internal/checksum"
)

const watchDebounce = 100 * time.Millisecond

// Watch follows the local storage directory and re-runs Restore whenever
// another process changes the persisted identity (login or logout in a
// second terminal). It blocks until ctx is cancelled.
func Watch(ctx context.Context, s *Store, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	root := s.local.Path()
	if err := w.Add(root); err != nil {
		return err
	}
	logger.Info("session watcher: started", slog.String("root", root))

	var timer *time.Timer
	var timerCh <-chan time.Time
	schedule := func() {
		if timer == nil {
			timer = time.NewTimer(watchDebounce)
			timerCh = timer.C
		} else {
			timer.Reset(watchDebounce)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			logger.Info("session watcher: stopped")
			return nil

		case <-timerCh:
			reconcile(s, logger)

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) != 0 {
				schedule()
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("session watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// reconcile restores the session if the stored value no longer matches what
// this process last wrote or read.
func reconcile(s *Store, logger *slog.Logger) {
	data, err := s.local.Get(StorageKey)
	if err != nil && !errors.Is(err, apperr.ErrNotFound) {
		logger.Warn("session watcher: read failed", slog.String("error", err.Error()))
		return
	}
	if _, changed := checksum.Changed(s.persistedSum(), data); !changed {
		return
	}
	logger.Debug("session watcher: stored identity changed, restoring")
	s.Restore()
}
