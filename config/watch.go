package config

import (
	"fmt"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/semihalev/zlog/v2"
)

// Watcher reloads a Config from disk whenever its file changes and
// hands the fresh value to every registered listener.
type Watcher struct {
	path    string
	version string
	watcher *fsnotify.Watcher
	done    chan struct{}

	mu        sync.RWMutex
	current   *Config
	listeners []func(*Config)
}

// Watch loads cfgfile and returns a Watcher that keeps Current() fresh
// as the file changes on disk, until Close is called.
func Watch(cfgfile, version string) (*Watcher, error) {
	cfg, err := Load(cfgfile, version)
	if err != nil {
		return nil, err
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("config: create watcher: %w", err)
	}
	if err := fw.Add(cfgfile); err != nil {
		fw.Close()
		return nil, fmt.Errorf("config: watch %s: %w", cfgfile, err)
	}

	w := &Watcher{
		path:    cfgfile,
		version: version,
		watcher: fw,
		current: cfg,
		done:    make(chan struct{}),
	}
	go w.run()
	return w, nil
}

// Current returns the most recently loaded configuration.
func (w *Watcher) Current() *Config {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.current
}

// OnChange registers fn to run, on the watcher's goroutine, after every
// successful reload.
func (w *Watcher) OnChange(fn func(*Config)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.listeners = append(w.listeners, fn)
}

func (w *Watcher) run() {
	for {
		select {
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			cfg, err := Load(w.path, w.version)
			if err != nil {
				zlog.Warn("config: reload failed", "path", w.path, "error", err)
				continue
			}
			w.mu.Lock()
			w.current = cfg
			listeners := append([]func(*Config){}, w.listeners...)
			w.mu.Unlock()
			for _, fn := range listeners {
				fn(cfg)
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			zlog.Warn("config: watcher error", "path", w.path, "error", err)
		case <-w.done:
			return
		}
	}
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	close(w.done)
	return w.watcher.Close()
}
