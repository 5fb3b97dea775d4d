package server

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

const debounce = 100 * time.Millisecond

// watcher reloads plan files when they change. Directories are watched
// instead of the files so editors that replace files on save still notify.
type watcher struct {
	srv   *Server
	fs    *fsnotify.Watcher
	files map[string]string

	mu     sync.Mutex
	timers map[string]*time.Timer
}

func newWatcher(srv *Server) (*watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch: %w", err)
	}
	w := &watcher{srv: srv, fs: fw, files: map[string]string{}, timers: map[string]*time.Timer{}}

	srv.mu.Lock()
	paths := make([]string, 0, len(srv.sources))
	for path := range srv.sources {
		paths = append(paths, path)
	}
	srv.mu.Unlock()

	dirs := map[string]bool{}
	for _, path := range paths {
		abs, err := filepath.Abs(path)
		if err != nil {
			_ = fw.Close()
			return nil, fmt.Errorf("watch %s: %w", path, err)
		}
		w.files[abs] = path
		dir := filepath.Dir(abs)
		if dirs[dir] {
			continue
		}
		if err := fw.Add(dir); err != nil {
			_ = fw.Close()
			return nil, fmt.Errorf("watch %s: %w", dir, err)
		}
		dirs[dir] = true
	}
	return w, nil
}

func (w *watcher) run(ctx context.Context) error {
	defer func() { _ = w.fs.Close() }()
	for {
		select {
		case <-ctx.Done():
			w.stopTimers()
			return nil

		case event, ok := <-w.fs.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			path, tracked := w.files[filepath.Clean(event.Name)]
			if !tracked {
				continue
			}
			w.schedule(path)

		case err, ok := <-w.fs.Errors:
			if !ok {
				return nil
			}
			w.srv.logger.Error().Err(err).Msg("watcher error")
		}
	}
}

func (w *watcher) schedule(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.timers[path]; ok {
		t.Stop()
	}
	w.timers[path] = time.AfterFunc(debounce, func() {
		if err := w.srv.Reload(path); err != nil {
			w.srv.logger.Warn().Err(err).Str("file", path).Msg("reload failed; keeping previous plan")
		}
	})
}

func (w *watcher) stopTimers() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, t := range w.timers {
		t.Stop()
	}
}
