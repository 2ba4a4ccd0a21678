// Profile file hot-reload
//
// Copyright (C) 2026  Luthiers Toolbox Project
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package config

import (
	"os"
	"sync"
	"time"
)

// defaultPollInterval is how often the watcher stats the profile file.
const defaultPollInterval = time.Second

// debounceTime is how long to wait after a detected change before
// reloading, so editors that write a file in several steps are seen
// once.
const debounceTime = 100 * time.Millisecond

// Watcher polls a profile file and swaps in a freshly loaded Config
// when its modification time changes. A reload that fails to load or
// validate keeps the previous config in place and reports the error
// through the callback.
type Watcher struct {
	mu sync.RWMutex

	path     string
	interval time.Duration

	current *Config
	modTime time.Time

	onReload func(*Config)
	onError  func(error)

	running  bool
	stopChan chan struct{}
}

// NewWatcher returns a watcher serving the given initial config for
// path. The watcher does not poll until Start is called.
func NewWatcher(path string, initial *Config) *Watcher {
	w := &Watcher{
		path:     path,
		interval: defaultPollInterval,
		current:  initial,
		stopChan: make(chan struct{}),
	}
	if info, err := os.Stat(path); err == nil {
		w.modTime = info.ModTime()
	}
	return w
}

// SetInterval sets the poll interval. Effective from the next Start.
func (w *Watcher) SetInterval(d time.Duration) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if d > 0 {
		w.interval = d
	}
}

// SetCallbacks sets the reload and error callbacks. Both are optional
// and are invoked from the watcher goroutine.
func (w *Watcher) SetCallbacks(onReload func(*Config), onError func(error)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onReload = onReload
	w.onError = onError
}

// Current returns the most recently loaded config.
func (w *Watcher) Current() *Config {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.current
}

// Path returns the watched profile file path.
func (w *Watcher) Path() string {
	return w.path
}

// Start begins polling in a background goroutine.
func (w *Watcher) Start() {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return
	}
	w.running = true
	interval := w.interval
	w.mu.Unlock()

	go w.watchLoop(interval)
}

// Stop halts polling. The watcher cannot be restarted.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	w.mu.Unlock()

	close(w.stopChan)
}

func (w *Watcher) watchLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopChan:
			return
		case <-ticker.C:
			w.poll()
		}
	}
}

// poll stats the file and reloads on a modification time change. A
// stat failure is skipped silently: atomic saves briefly leave no file
// at the path, and the next tick sees the replacement.
func (w *Watcher) poll() {
	info, err := os.Stat(w.path)
	if err != nil {
		return
	}

	w.mu.RLock()
	seen := w.modTime
	w.mu.RUnlock()
	if info.ModTime().Equal(seen) {
		return
	}

	// Let the writer finish before reading.
	time.Sleep(debounceTime)
	w.reload(info.ModTime())
}

// Reload forces an immediate reload regardless of modification time.
func (w *Watcher) Reload() error {
	modTime := time.Time{}
	if info, err := os.Stat(w.path); err == nil {
		modTime = info.ModTime()
	}
	return w.reload(modTime)
}

func (w *Watcher) reload(modTime time.Time) error {
	cfg, err := Load(w.path)

	w.mu.Lock()
	// Advance past the observed version either way, so a file that
	// fails to load is not retried every tick until it changes again.
	w.modTime = modTime
	if err == nil {
		w.current = cfg
	}
	onReload := w.onReload
	onError := w.onError
	w.mu.Unlock()

	if err != nil {
		if onError != nil {
			onError(err)
		}
		return err
	}
	if onReload != nil {
		onReload(cfg)
	}
	return nil
}
