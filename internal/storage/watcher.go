package storage

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ChangeFunc receives the id of a note whose file was created, written,
// removed or renamed outside the application.
type ChangeFunc func(id string)

// WatchNotes watches the notes directory under root and calls cb for every
// note file change until ctx is cancelled. Bursts of events for the same
// note within debounce are collapsed into one call.
func WatchNotes(ctx context.Context, root string, debounce time.Duration, logger *slog.Logger, cb ChangeFunc) error {
	dir := filepath.Join(root, NotesDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()
	if err := w.Add(dir); err != nil {
		return err
	}
	logger.Info("watcher: started", slog.String("dir", dir))

	if debounce <= 0 {
		debounce = 100 * time.Millisecond
	}
	pending := make(map[string]struct{})
	timer := time.NewTimer(debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("watcher: stopped")
			return nil

		case <-timer.C:
			for id := range pending {
				cb(id)
			}
			clear(pending)

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			id, ok := NoteID(ev.Name)
			if !ok {
				continue
			}
			logger.Debug("watcher: event", slog.String("id", id), slog.String("op", ev.Op.String()))
			if len(pending) == 0 {
				timer.Reset(debounce)
			}
			pending[id] = struct{}{}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}
