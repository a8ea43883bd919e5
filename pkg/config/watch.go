package config

import (
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher watches one engine config file and reloads it on write,
// in the shape of the teacher's policy.Loader.Watch: a debounced
// fsnotify loop that re-parses the file and hands the fresh snapshot to
// a callback. The core engine itself never reads through a Watcher; it
// is plumbing for a long-running driver (a future daemon front-end) that
// wants to pick up edits without restarting.
type Watcher struct {
	path    string
	watcher *fsnotify.Watcher
	done    chan struct{}
}

// Watch starts watching path for changes, invoking onReload with every
// successfully parsed and validated EngineConfig. Reload errors are
// reported through onError rather than stopping the watch; a config
// file left in a broken state simply keeps the last good EngineConfig in
// effect until it is fixed. Call Close to stop watching.
func Watch(path string, onReload func(EngineConfig), onError func(error)) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fw.Add(path); err != nil {
		_ = fw.Close()
		return nil, err
	}

	w := &Watcher{path: path, watcher: fw, done: make(chan struct{})}
	go w.run(onReload, onError)
	return w, nil
}

func (w *Watcher) run(onReload func(EngineConfig), onError func(error)) {
	var reloadTimer *time.Timer
	const debounce = 200 * time.Millisecond

	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if !strings.HasSuffix(event.Name, ".yaml") && !strings.HasSuffix(event.Name, ".yml") {
				continue
			}
			if reloadTimer != nil {
				reloadTimer.Stop()
			}
			reloadTimer = time.AfterFunc(debounce, func() {
				cfg, err := Load(w.path)
				if err != nil {
					if onError != nil {
						onError(err)
					}
					return
				}
				onReload(cfg)
			})
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			if onError != nil {
				onError(err)
			}
		}
	}
}

// Close stops the watch goroutine and releases the underlying inotify
// handle.
func (w *Watcher) Close() error {
	close(w.done)
	return w.watcher.Close()
}
