package treeviewer

import (
	"log/slog"

	"github.com/LukasParke/treeviewer/config"
	"github.com/LukasParke/treeviewer/inspector"
	"github.com/LukasParke/treeviewer/middleware"
)

// Option configures a Server during construction.
type Option func(*options)

type options struct {
	logger      *slog.Logger
	settings    *config.Settings
	configFile  string
	watch       bool
	middlewares []middleware.Middleware
	clipboard   inspector.Clipboard
}

// WithLogger sets the server's logger. Without it the server logs text to
// stderr at the configured log_level.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithSettings sets the initial settings instead of reading them from the
// file given with WithConfigFile. The file is still watched.
func WithSettings(s *config.Settings) Option {
	return func(o *options) { o.settings = s }
}

// WithConfigFile reads the initial settings from path and reloads them
// whenever the file changes. A missing file means default settings.
func WithConfigFile(path string) Option {
	return func(o *options) {
		o.configFile = path
		o.watch = true
	}
}

// WithMiddleware adds middleware to the dispatch chain, inside the
// built-in recovery, tracing, logging and telemetry middleware. The first
// middleware is outermost.
func WithMiddleware(mws ...middleware.Middleware) Option {
	return func(o *options) { o.middlewares = append(o.middlewares, mws...) }
}

// WithClipboard sets where treeviewer/copyNode writes. Without it the text
// is only returned to the client.
func WithClipboard(c inspector.Clipboard) Option {
	return func(o *options) { o.clipboard = c }
}
