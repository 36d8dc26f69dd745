package treesitter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/LukasParke/treeviewer/document"
	"github.com/LukasParke/treeviewer/grammar"
)

// ActiveDocuments reports the document the user is looking at.
// *document.Store implements it.
type ActiveDocuments interface {
	ActiveDocument() (*document.Document, bool)
}

// activeNotifier is implemented by sources that can announce active
// document changes; the manager refreshes the tree on each one.
type activeNotifier interface {
	OnActiveChange(fn func(doc *document.Document))
}

// TreeUpdateFunc is called after the active document's tree is obtained in
// response to an active document change.
type TreeUpdateFunc func(doc *document.Document, tree *Tree)

// TreeErrorFunc is called when refreshing the active document's tree fails.
type TreeErrorFunc func(doc *document.Document, err error)

// Config configures a Manager.
type Config struct {
	// Registry resolves language IDs. When nil the built-in registry is used.
	Registry *grammar.Registry

	// GrammarDir is where relative shared-library artifacts are looked up.
	GrammarDir string

	// SingleParser keeps one parser for all languages instead of one per
	// language.
	SingleParser bool

	Logger *slog.Logger
}

// Manager owns the lifecycle of parse trees for the active document:
// grammar resolution, pooled parsers, the tree cache and queries.
type Manager struct {
	registry *grammar.Registry
	loader   *grammar.Loader
	pool     *Pool
	cache    *Cache
	docs     ActiveDocuments
	logger   *slog.Logger

	mu       sync.RWMutex
	onUpdate []TreeUpdateFunc
	onError  []TreeErrorFunc
}

// NewManager creates a manager reading the active document from docs. If
// docs can announce active document changes, the manager subscribes and
// refreshes the tree on every change.
func NewManager(cfg Config, docs ActiveDocuments) (*Manager, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	registry := cfg.Registry
	if registry == nil {
		var err error
		registry, err = grammar.DefaultRegistry()
		if err != nil {
			return nil, fmt.Errorf("loading built-in grammars: %w", err)
		}
	}
	loader := grammar.NewLoader(grammar.WithGrammarDir(cfg.GrammarDir), grammar.WithLoaderLogger(logger))

	poolOpts := []PoolOption{WithPoolLogger(logger)}
	if cfg.SingleParser {
		poolOpts = append(poolOpts, WithSingleParser())
	}

	m := &Manager{
		registry: registry,
		loader:   loader,
		pool:     NewPool(registry, loader, poolOpts...),
		cache:    NewCache(),
		docs:     docs,
		logger:   logger,
	}
	if n, ok := docs.(activeNotifier); ok {
		n.OnActiveChange(m.HandleActiveChange)
	}
	return m, nil
}

// GetCurrentTree returns the tree for the active document. Unless force is
// set, a cached tree is returned even if the document changed since it was
// parsed. A forced rebuild re-resolves the grammar, so an override
// registered since the last parse is used.
func (m *Manager) GetCurrentTree(ctx context.Context, force bool) (*Tree, error) {
	doc, ok := m.docs.ActiveDocument()
	if !ok || doc == nil {
		return nil, ErrNoActiveDocument
	}
	return m.TreeFor(ctx, doc, force)
}

// TreeFor is GetCurrentTree for a specific document.
func (m *Manager) TreeFor(ctx context.Context, doc *document.Document, force bool) (*Tree, error) {
	id := NewDocumentID(doc.Path())
	languageID := doc.LanguageID()

	start := time.Now()
	tree, err := m.cache.GetOrBuild(ctx, m.pool, id, languageID, []byte(doc.Text()), force)
	if err != nil {
		m.logger.Warn("tree unavailable", "document", string(id), "language", languageID, "error", err)
		return nil, err
	}
	m.logger.Debug("tree ready",
		"document", string(id),
		"language", languageID,
		"generation", tree.Generation(),
		"force", force,
		"duration", time.Since(start),
	)
	return tree, nil
}

// Query runs pattern against the active document's current tree. Any
// failure to obtain the tree is reported as ErrNoActiveTree wrapping the
// cause; a malformed pattern is reported as a *QueryCompileError.
func (m *Manager) Query(ctx context.Context, pattern string) ([]Match, error) {
	tree, err := m.GetCurrentTree(ctx, false)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNoActiveTree, err)
	}
	return m.QueryTree(tree, pattern)
}

// QueryTree runs pattern against tree, compiled for the grammar that
// produced it.
func (m *Manager) QueryTree(tree *Tree, pattern string) ([]Match, error) {
	q, err := Compile(pattern, tree.Language())
	if err != nil {
		m.logger.Debug("query rejected", "pattern", pattern, "error", err)
		return nil, err
	}
	defer q.Close()
	return q.Evaluate(tree.Root()), nil
}

// RegisterCustomGrammar routes languageID to artifact from now on. Trees
// already cached keep their grammar until they are rebuilt.
func (m *Manager) RegisterCustomGrammar(languageID, artifact string) {
	m.registry.RegisterOverride(languageID, artifact)
	m.logger.Info("grammar override registered", "language", languageID, "artifact", artifact)
}

// Invalidate drops the cached tree for the document at pathOrURI.
func (m *Manager) Invalidate(pathOrURI string) {
	m.cache.Invalidate(NewDocumentID(pathOrURI))
}

// OnTreeUpdate registers a callback fired after an active document change
// produced a tree. Callbacks fire in registration order.
func (m *Manager) OnTreeUpdate(fn TreeUpdateFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onUpdate = append(m.onUpdate, fn)
}

// OnTreeError registers a callback fired when an active document change
// could not produce a tree.
func (m *Manager) OnTreeError(fn TreeErrorFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onError = append(m.onError, fn)
}

// HandleActiveChange refreshes the tree for doc. A nil doc means no editor
// is active and is ignored. Errors go to the OnTreeError callbacks.
func (m *Manager) HandleActiveChange(doc *document.Document) {
	if doc == nil {
		return
	}
	tree, err := m.TreeFor(context.Background(), doc, false)

	m.mu.RLock()
	updates := append([]TreeUpdateFunc(nil), m.onUpdate...)
	failures := append([]TreeErrorFunc(nil), m.onError...)
	m.mu.RUnlock()

	if err != nil {
		if !errors.Is(err, ErrGrammarNotFound) {
			m.logger.Error("refreshing tree", "document", doc.Path(), "error", err)
		}
		for _, fn := range failures {
			fn(doc, err)
		}
		return
	}
	for _, fn := range updates {
		fn(doc, tree)
	}
}

// Registry returns the grammar registry.
func (m *Manager) Registry() *grammar.Registry { return m.registry }

// Loader returns the grammar loader.
func (m *Manager) Loader() *grammar.Loader { return m.loader }

// Pool returns the parser pool.
func (m *Manager) Pool() *Pool { return m.pool }

// Cache returns the tree cache.
func (m *Manager) Cache() *Cache { return m.cache }

// Close releases all parsers and drops every cached tree.
func (m *Manager) Close() {
	m.cache.Clear()
	m.pool.Close()
}
