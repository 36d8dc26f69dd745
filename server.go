package treeviewer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/sourcegraph/jsonrpc2"

	"github.com/LukasParke/treeviewer/config"
	"github.com/LukasParke/treeviewer/document"
	"github.com/LukasParke/treeviewer/inspector"
	"github.com/LukasParke/treeviewer/middleware"
	"github.com/LukasParke/treeviewer/protocol"
	"github.com/LukasParke/treeviewer/treesitter"
)

// Server is the tree viewer's editor server. It tracks the editor's open
// documents and active editor, keeps their syntax trees through a
// treesitter.Manager, and answers treeviewer/* requests.
type Server struct {
	name    string
	version string
	logger  *slog.Logger
	level   *slog.LevelVar

	docs      *document.Store
	manager   *treesitter.Manager
	inspector *inspector.Inspector
	handles   *handleTable
	metrics   *middleware.Metrics
	settings  *settingsHolder

	middlewares []middleware.Middleware
	methods     map[string]methodFunc

	mu            sync.RWMutex
	client        *ClientProxy
	showPositions *bool
	initialized   bool
	shutdown      bool
}

// NewServer creates a server with the given name and version, reported to
// the client on initialize.
func NewServer(name, version string, opts ...Option) (*Server, error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	settings := o.settings
	if settings == nil && o.configFile != "" {
		loaded, err := config.Load(o.configFile)
		if err != nil {
			return nil, fmt.Errorf("loading settings: %w", err)
		}
		settings = loaded
	}
	if settings == nil {
		settings = config.DefaultSettings()
	}

	level := new(slog.LevelVar)
	level.Set(settings.Level())
	logger := o.logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	}

	registry, err := settings.Registry()
	if err != nil {
		return nil, fmt.Errorf("building grammar registry: %w", err)
	}

	docs := document.NewStore()
	manager, err := treesitter.NewManager(treesitter.Config{
		Registry:     registry,
		GrammarDir:   settings.GrammarDir,
		SingleParser: settings.SingleParser,
		Logger:       logger,
	}, docs)
	if err != nil {
		return nil, err
	}

	s := &Server{
		name:        name,
		version:     version,
		logger:      logger,
		level:       level,
		docs:        docs,
		manager:     manager,
		inspector:   inspector.New(manager, inspector.WithClipboard(o.clipboard), inspector.WithLogger(logger)),
		handles:     newHandleTable(),
		metrics:     middleware.NewMetrics(),
		middlewares: o.middlewares,
	}
	s.methods = s.routes()
	s.settings = newSettingsHolder(s, settings)
	if o.watch {
		s.settings.watch(o.configFile)
	}

	manager.OnTreeUpdate(s.publishTreeChanged)
	manager.OnTreeError(s.publishTreeError)
	docs.OnClose(func(uri protocol.DocumentURI) {
		manager.Invalidate(string(uri))
	})
	return s, nil
}

// Documents returns the document store.
func (s *Server) Documents() *document.Store { return s.docs }

// Manager returns the tree manager.
func (s *Server) Manager() *treesitter.Manager { return s.manager }

// Inspector returns the interactive command layer.
func (s *Server) Inspector() *inspector.Inspector { return s.inspector }

// Metrics returns the per-method request metrics.
func (s *Server) Metrics() *middleware.Metrics { return s.metrics }

// Settings returns the current settings.
func (s *Server) Settings() *config.Settings { return s.settings.store.Get() }

// Logger returns the server's logger.
func (s *Server) Logger() *slog.Logger { return s.logger }

// Client returns the proxy for the connected client, or nil before Serve.
func (s *Server) Client() *ClientProxy {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.client
}

// Close stops the settings watcher and releases every parser and tree.
func (s *Server) Close() {
	s.settings.close()
	s.manager.Close()
}

// dispatch is the innermost handler of the middleware chain.
func (s *Server) dispatch(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) (interface{}, error) {
	switch req.Method {
	case protocol.MethodInitialize:
		return s.handleInitialize(ctx, req)
	case protocol.MethodInitialized:
		s.logger.Info("client initialized")
		return nil, nil
	case protocol.MethodShutdown:
		s.mu.Lock()
		s.shutdown = true
		s.mu.Unlock()
		s.logger.Info("server shutting down")
		return nil, nil
	case protocol.MethodExit:
		s.logger.Info("received exit notification")
		return nil, conn.Close()
	}

	s.mu.RLock()
	initialized, shutdown := s.initialized, s.shutdown
	s.mu.RUnlock()
	if !initialized {
		if req.Notif {
			return nil, nil
		}
		return nil, &jsonrpc2.Error{Code: CodeServerNotInitialized, Message: "server not initialized"}
	}
	if shutdown && !req.Notif {
		return nil, &jsonrpc2.Error{Code: jsonrpc2.CodeInvalidRequest, Message: "server is shutting down"}
	}

	fn, ok := s.methods[req.Method]
	if !ok {
		if req.Notif {
			return nil, nil
		}
		return nil, &jsonrpc2.Error{Code: jsonrpc2.CodeMethodNotFound, Message: "method not found: " + req.Method}
	}
	return fn(ctx, req)
}

func (s *Server) handleInitialize(_ context.Context, req *jsonrpc2.Request) (interface{}, error) {
	var p protocol.InitializeParams
	if err := decode(req, &p); err != nil {
		return nil, err
	}

	s.mu.Lock()
	if s.initialized {
		s.mu.Unlock()
		return nil, &jsonrpc2.Error{Code: jsonrpc2.CodeInvalidRequest, Message: "server already initialized"}
	}
	if opts := p.InitializationOptions; opts != nil {
		s.showPositions = opts.ShowPositions
	}
	s.initialized = true
	s.mu.Unlock()

	if opts := p.InitializationOptions; opts != nil {
		for lang, artifact := range opts.Overrides {
			s.manager.RegisterCustomGrammar(lang, artifact)
		}
	}

	s.logger.Info("server initialized", "name", s.name, "version", s.version)
	return &protocol.InitializeResult{
		Capabilities: s.capabilities(),
		ServerInfo:   &protocol.ServerInfo{Name: s.name, Version: s.version},
	}, nil
}

func (s *Server) handleDidOpen(_ context.Context, req *jsonrpc2.Request) (interface{}, error) {
	var p protocol.DidOpenTextDocumentParams
	if err := decode(req, &p); err != nil {
		return nil, err
	}
	s.docs.Open(&p)
	return nil, nil
}

func (s *Server) handleDidChange(_ context.Context, req *jsonrpc2.Request) (interface{}, error) {
	var p protocol.DidChangeTextDocumentParams
	if err := decode(req, &p); err != nil {
		return nil, err
	}
	s.docs.Change(&p)
	return nil, nil
}

func (s *Server) handleDidClose(_ context.Context, req *jsonrpc2.Request) (interface{}, error) {
	var p protocol.DidCloseTextDocumentParams
	if err := decode(req, &p); err != nil {
		return nil, err
	}
	s.docs.Close(&p)
	return nil, nil
}

// handleDidChangeActiveEditor moves the active document. The manager
// refreshes the tree from the store's callback, which in turn sends
// treeviewer/treeChanged or treeviewer/treeError.
func (s *Server) handleDidChangeActiveEditor(_ context.Context, req *jsonrpc2.Request) (interface{}, error) {
	var p protocol.ActiveEditorParams
	if err := decode(req, &p); err != nil {
		return nil, err
	}
	var uri protocol.DocumentURI
	if p.TextDocument != nil {
		uri = p.TextDocument.URI
	}
	return nil, s.docs.SetActive(uri)
}

func (s *Server) publishTreeChanged(doc *document.Document, tree *treesitter.Tree) {
	client := s.Client()
	if client == nil {
		return
	}
	err := client.TreeChanged(context.Background(), &protocol.TreeChangedParams{
		URI:        doc.URI(),
		Generation: tree.Generation(),
	})
	if err != nil {
		s.logger.Debug("sending tree change", "error", err)
	}
}

func (s *Server) publishTreeError(doc *document.Document, err error) {
	client := s.Client()
	if client == nil {
		return
	}
	ctx := context.Background()
	if nerr := client.TreeError(ctx, &protocol.TreeErrorParams{URI: doc.URI(), Message: err.Error()}); nerr != nil {
		s.logger.Debug("sending tree error", "error", nerr)
	}
	if errors.Is(err, treesitter.ErrGrammarNotFound) {
		return
	}
	_ = client.ShowMessage(ctx, protocol.Error, fmt.Sprintf("Syntax tree unavailable for %s: %v", doc.Path(), err))
}

// decode unmarshals the request params into v. Missing params leave v at
// its zero value.
func decode(req *jsonrpc2.Request, v interface{}) error {
	if req.Params == nil {
		return nil
	}
	if err := json.Unmarshal(*req.Params, v); err != nil {
		return &jsonrpc2.Error{Code: jsonrpc2.CodeInvalidParams, Message: err.Error()}
	}
	return nil
}
