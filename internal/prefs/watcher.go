package prefs

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watch reloads preferences when the file is edited outside the process.
// Rapid Create+Write event pairs on the same save are debounced. Returns
// once the watcher is installed; watching stops when ctx is done.
func (s *Store) Watch(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	// Watch the directory, not the file: editors and atomic renames
	// replace the inode.
	if err := w.Add(filepath.Dir(s.path)); err != nil {
		w.Close()
		return err
	}

	go func() {
		defer w.Close()

		var debounce *time.Timer
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != s.path {
					continue
				}
				if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
					continue
				}
				if debounce != nil {
					debounce.Stop()
				}
				debounce = time.AfterFunc(100*time.Millisecond, s.reload)
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				s.log.Warn().Err(err).Msg("preferences watcher error")
			}
		}
	}()

	s.log.Debug().Str("path", s.path).Msg("preferences watcher started")
	return nil
}
