package treesitter

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/LukasParke/treeviewer/grammar"
)

// singleSlot is the entry key used when the pool keeps one parser for all
// languages.
const singleSlot = "*"

// Pool hands out parsers bound to the grammar registered for a language. By
// default it keeps one parser per language ID, created on first use and
// retained. Each parser serves one caller at a time.
type Pool struct {
	registry *grammar.Registry
	loader   *grammar.Loader
	logger   *slog.Logger
	single   bool

	mu      sync.Mutex
	entries map[string]*poolEntry
}

type poolEntry struct {
	sem     chan struct{}
	parser  *tree_sitter.Parser
	lang    *tree_sitter.Language
	locator string
}

// PoolOption configures a Pool.
type PoolOption func(*Pool)

// WithPoolLogger sets the pool's logger.
func WithPoolLogger(logger *slog.Logger) PoolOption {
	return func(p *Pool) { p.logger = logger }
}

// WithSingleParser makes the pool keep a single parser that is rebound
// whenever a different grammar is requested. Memory stays flat at the cost
// of serialising parses across all languages.
func WithSingleParser() PoolOption {
	return func(p *Pool) { p.single = true }
}

// NewPool creates a parser pool resolving grammars through registry and
// loading them with loader.
func NewPool(registry *grammar.Registry, loader *grammar.Loader, opts ...PoolOption) *Pool {
	p := &Pool{
		registry: registry,
		loader:   loader,
		logger:   slog.Default(),
		entries:  make(map[string]*poolEntry),
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Handle is exclusive access to a bound parser. Release it when done.
type Handle struct {
	entry      *poolEntry
	languageID string
	once       sync.Once
}

// Acquire resolves languageID, loads its grammar and returns a parser bound
// to it, waiting if another caller holds the parser. The grammar is resolved
// on every call, so an override registered since the last call rebinds the
// parser here and never earlier.
func (p *Pool) Acquire(ctx context.Context, languageID string) (*Handle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	d, err := p.registry.Resolve(languageID)
	if err != nil {
		return nil, err
	}
	lang, err := p.loader.Load(d)
	if err != nil {
		return nil, err
	}
	locator := p.loader.Locator(d)

	entry := p.entry(languageID)
	select {
	case entry.sem <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	if entry.parser == nil {
		entry.parser = tree_sitter.NewParser()
	}
	if entry.locator != locator {
		if err := entry.parser.SetLanguage(lang); err != nil {
			<-entry.sem
			return nil, fmt.Errorf("%w: %s (%s): %v", ErrGrammarLoadFailed, languageID, locator, err)
		}
		if entry.locator != "" {
			p.logger.Debug("parser rebound", "language", languageID, "from", entry.locator, "to", locator)
		}
		p.mu.Lock()
		entry.lang = lang
		entry.locator = locator
		p.mu.Unlock()
	}
	return &Handle{entry: entry, languageID: languageID}, nil
}

func (p *Pool) entry(languageID string) *poolEntry {
	key := languageID
	if p.single {
		key = singleSlot
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	e, ok := p.entries[key]
	if !ok {
		e = &poolEntry{sem: make(chan struct{}, 1)}
		p.entries[key] = e
	}
	return e
}

// Build parses src with the grammar for languageID.
func (p *Pool) Build(ctx context.Context, languageID string, src []byte) (*Tree, error) {
	h, err := p.Acquire(ctx, languageID)
	if err != nil {
		return nil, err
	}
	defer h.Release()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	raw, err := h.Parse(src)
	if err != nil {
		return nil, err
	}
	return newTree(raw, src, h.Language(), languageID, h.Locator()), nil
}

// Bound lists the language keys that currently hold a parser.
func (p *Pool) Bound() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	keys := make([]string, 0, len(p.entries))
	for k, e := range p.entries {
		if e.locator != "" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

// Close releases every parser. It must not run concurrently with Acquire.
func (p *Pool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for key, e := range p.entries {
		if e.parser != nil {
			e.parser.Close()
		}
		delete(p.entries, key)
	}
}

// Parse parses src. The returned tree is owned by the caller.
func (h *Handle) Parse(src []byte) (*tree_sitter.Tree, error) {
	raw := h.entry.parser.Parse(src, nil)
	if raw == nil {
		return nil, fmt.Errorf("%w: %s", ErrParseFailed, h.languageID)
	}
	return raw, nil
}

// Language returns the grammar the parser is bound to.
func (h *Handle) Language() *tree_sitter.Language { return h.entry.lang }

// Locator returns the artifact locator of the bound grammar.
func (h *Handle) Locator() string { return h.entry.locator }

// Release returns the parser to the pool. Calling it more than once is a no-op.
func (h *Handle) Release() {
	h.once.Do(func() {
		h.entry.parser.Reset()
		<-h.entry.sem
	})
}
