package treeviewer

import (
	"sync"

	"github.com/LukasParke/treeviewer/config"
)

// settingsHolder keeps the server's settings and applies reloads: the log
// level and show_positions take effect immediately, grammar overrides from
// the file replace the ones of the previous file. Grammar directory,
// manifests and parser mode are read once at startup.
type settingsHolder struct {
	server *Server
	store  *config.Store[config.Settings]

	mu      sync.Mutex
	watcher *config.Watcher
}

func newSettingsHolder(s *Server, initial *config.Settings) *settingsHolder {
	h := &settingsHolder{server: s, store: config.NewStore(initial)}
	h.store.OnChange(h.apply)
	return h
}

func (h *settingsHolder) apply(old, new_ *config.Settings) {
	s := h.server
	s.level.Set(new_.Level())
	new_.ApplyOverrides(s.manager.Registry(), old)
	if old.GrammarDir != new_.GrammarDir || old.SingleParser != new_.SingleParser {
		s.logger.Warn("grammar_dir and single_parser changes apply after a restart")
	}
}

// watch reloads the settings file whenever it changes. Watching is best
// effort: failures are logged and the current settings stay in place.
func (h *settingsHolder) watch(path string) {
	logger := h.server.logger
	reloader := config.NewReloader(h.store, path, config.Load, logger)
	w, err := config.NewWatcher(path, func() {
		_ = reloader.Reload()
	}, config.WithWatcherLogger(logger))
	if err != nil {
		logger.Warn("settings watcher failed to start", "path", path, "error", err)
		return
	}
	h.mu.Lock()
	h.watcher = w
	h.mu.Unlock()
}

func (h *settingsHolder) close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.watcher != nil {
		h.watcher.Close()
		h.watcher = nil
	}
}
