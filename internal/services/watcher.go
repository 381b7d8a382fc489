package services

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"moneymanager/internal/log"
)

const watchDebounce = 100 * time.Millisecond

// Watcher calls OnChange when the data file is rewritten, typically by
// another process sharing the file backend.
type Watcher struct {
	path     string
	onChange func(ctx context.Context) error
	logger   *log.Logger
	debounce time.Duration
}

func NewWatcher(path string, onChange func(ctx context.Context) error, logger *log.Logger) *Watcher {
	if logger == nil {
		logger = log.Discard()
	}
	return &Watcher{
		path:     filepath.Clean(path),
		onChange: onChange,
		logger:   logger.WithComponent(log.ComponentStorage),
		debounce: watchDebounce,
	}
}

// Run blocks until ctx is done. The parent directory is watched because the
// file is replaced by rename on every save.
func (w *Watcher) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(w.path)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(w.path), err)
	}
	w.logger.InfoContext(ctx, "Watching data file", "path", w.path)

	fire := make(chan struct{}, 1)
	var debounceTimer *time.Timer
	defer func() {
		if debounceTimer != nil {
			debounceTimer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(w.debounce, func() {
				select {
				case fire <- struct{}{}:
				default:
				}
			})

		case <-fire:
			if err := w.onChange(ctx); err != nil {
				w.logger.ErrorContext(ctx, "Reload after file change failed", log.FieldError, err)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.WarnContext(ctx, "File watcher error", log.FieldError, err)
		}
	}
}
