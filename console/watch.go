package console

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/vsariola/msynth/script"
)

// Watcher reruns a script file whenever it changes.
type Watcher struct {
	Path     string
	Debounce time.Duration

	interp *script.Interpreter
	logger *slog.Logger
	ran    chan error // gets the result of a rerun if there is room
}

const DefaultDebounce = 100 * time.Millisecond

func NewWatcher(path string, interp *script.Interpreter, logger *slog.Logger) *Watcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{Path: path, Debounce: DefaultDebounce, interp: interp, logger: logger}
}

// Run watches until ctx is done. The directory of the file is watched rather
// than the file, as many editors save by replacing the file.
func (w *Watcher) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("cannot create file watcher: %w", err)
	}
	defer watcher.Close()
	path, err := filepath.Abs(w.Path)
	if err != nil {
		return fmt.Errorf("cannot watch %s: %w", w.Path, err)
	}
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("cannot watch %s: %w", w.Path, err)
	}
	w.logger.Info("watching script", "path", path)
	var timer *time.Timer
	var timerC <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != path || !event.Has(fsnotify.Write|fsnotify.Create) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.Debounce)
				timerC = timer.C
			} else {
				timer.Reset(w.Debounce)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("file watcher error", "err", err)
		case <-timerC:
			timer, timerC = nil, nil
			err := w.rerun(path)
			select {
			case w.ran <- err:
			default:
			}
		}
	}
}

func (w *Watcher) rerun(path string) error {
	f, err := os.Open(path)
	if err != nil {
		w.logger.Warn("cannot reload script", "path", path, "err", err)
		return err
	}
	defer f.Close()
	err = w.interp.ExecFile(f)
	if err != nil {
		w.logger.Warn("script reloaded with errors", "path", path, "err", err)
	} else {
		w.logger.Info("script reloaded", "path", path)
	}
	return err
}
