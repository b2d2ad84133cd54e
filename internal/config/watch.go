package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watch reports edits made to the state file by other processes, such as
// the cryptick CLI while the overlay is running. Writes made through this
// Store are not reported. onChange runs on the watcher goroutine.
func (s *Store) Watch(ctx context.Context, onChange func(*AppState)) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	// The file is replaced by rename on save, so watch the directory.
	if err := w.Add(filepath.Dir(s.path)); err != nil {
		_ = w.Close()
		return fmt.Errorf("failed to watch state dir [%s]: %w", filepath.Dir(s.path), err)
	}

	target := filepath.Clean(s.path)
	go func() {
		defer w.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != target {
					continue
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				b, err := os.ReadFile(s.path)
				if err != nil || len(b) == 0 || s.isOwnWrite(b) {
					continue
				}
				st, err := s.Decode(b)
				if err != nil {
					s.log.Warnw("Ignoring unreadable external state change", "path", s.path, "error", err)
					continue
				}
				s.log.Infow("State file changed externally, reloading", "path", s.path)
				onChange(st)
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				s.log.Warnw("State watcher error", "error", err)
			}
		}
	}()
	return nil
}
