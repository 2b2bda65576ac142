package profile

import (
	"context"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watch reloads the store when profiles.json is edited outside the
// process (operators do hand-edit it). Events triggered by the store's
// own atomic rewrites are skipped. Blocks until ctx is done.
func (s *Store) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	// Watch the directory, not the file: the atomic rename replaces the
	// inode, which would silently detach a file-level watch.
	if err := watcher.Add(filepath.Dir(s.filePath)); err != nil {
		return err
	}

	// Saves made before the watch started never produce events; a stale
	// counter here would swallow the first real external edit.
	s.mu.Lock()
	s.selfWrites = 0
	s.mu.Unlock()

	target := filepath.Base(s.filePath)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Base(ev.Name) != target {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			if s.consumeSelfWrite() {
				continue
			}
			if err := s.load(); err != nil {
				logf("⚠️ Failed to reload %s: %v", s.filePath, err)
				continue
			}
			logf("📋 Reloaded profiles after external edit of %s", s.filePath)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logf("⚠️ Profile watcher error: %v", err)
		}
	}
}
