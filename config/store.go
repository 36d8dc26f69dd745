// Package config provides hot-reloadable settings for treeviewer: a TOML or
// YAML settings file, an atomic store that notifies listeners on swap, and an
// fsnotify-based watcher that reloads the file when it changes.
package config

import (
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
)

// Store holds the current configuration value with atomic read/swap semantics.
// T must be a struct type.
type Store[T any] struct {
	value atomic.Pointer[T]

	mu        sync.RWMutex
	listeners []func(old, new_ *T)
}

// NewStore creates a config store with the given initial value.
func NewStore[T any](initial *T) *Store[T] {
	s := &Store[T]{}
	s.value.Store(initial)
	return s
}

// Get returns the current config value (zero-lock read).
func (s *Store[T]) Get() *T {
	return s.value.Load()
}

// Swap atomically replaces the config and notifies all listeners in
// registration order.
func (s *Store[T]) Swap(new_ *T) *T {
	old := s.value.Swap(new_)

	s.mu.RLock()
	listeners := slices.Clone(s.listeners)
	s.mu.RUnlock()

	for _, fn := range listeners {
		fn(old, new_)
	}
	return old
}

// OnChange registers a listener called whenever the config changes.
func (s *Store[T]) OnChange(fn func(old, new_ *T)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// Reloader re-reads a file into a Store. A file that fails to load or
// validate leaves the current value in place.
type Reloader[T any] struct {
	store  *Store[T]
	path   string
	load   func(path string) (*T, error)
	logger *slog.Logger
}

// NewReloader creates a reloader that reads path with load, for example
// Load for the settings file.
func NewReloader[T any](store *Store[T], path string, load func(path string) (*T, error), logger *slog.Logger) *Reloader[T] {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reloader[T]{store: store, path: path, load: load, logger: logger}
}

// Reload loads the file and swaps it into the store.
func (r *Reloader[T]) Reload() error {
	cfg, err := r.load(r.path)
	if err != nil {
		r.logger.Warn("keeping previous settings", "path", r.path, "error", err)
		return err
	}
	r.store.Swap(cfg)
	r.logger.Info("settings reloaded", "path", r.path)
	return nil
}

// Path returns the file the reloader reads.
func (r *Reloader[T]) Path() string { return r.path }
