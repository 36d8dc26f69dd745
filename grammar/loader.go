package grammar

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"unsafe"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"
)

// BuiltinScheme prefixes artifacts that are linked into the binary.
const BuiltinScheme = "builtin:"

// IsBuiltin reports whether artifact names a statically linked grammar.
func IsBuiltin(artifact string) bool {
	return strings.HasPrefix(artifact, BuiltinScheme)
}

// Loader turns descriptors into tree-sitter languages. Loaded languages are
// memoised by resolved locator, so two language IDs sharing an artifact
// share the language value.
type Loader struct {
	dir    string
	logger *slog.Logger

	mu     sync.Mutex
	loaded map[string]*tree_sitter.Language
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithGrammarDir sets the directory relative shared-library artifacts are
// resolved against.
func WithGrammarDir(dir string) LoaderOption {
	return func(l *Loader) { l.dir = dir }
}

// WithLoaderLogger sets the logger for the loader.
func WithLoaderLogger(logger *slog.Logger) LoaderOption {
	return func(l *Loader) { l.logger = logger }
}

// NewLoader creates a loader.
func NewLoader(opts ...LoaderOption) *Loader {
	l := &Loader{
		logger: slog.Default(),
		loaded: make(map[string]*tree_sitter.Language),
	}
	for _, o := range opts {
		o(l)
	}
	return l
}

// Locator returns the canonical locator for d: the builtin name, or the
// absolute artifact path. Two descriptors with equal locators load the same
// language.
func (l *Loader) Locator(d Descriptor) string {
	if IsBuiltin(d.Artifact) {
		return d.Artifact
	}
	p := d.Artifact
	if !filepath.IsAbs(p) && l.dir != "" {
		p = filepath.Join(l.dir, p)
	}
	if abs, err := filepath.Abs(p); err == nil {
		p = abs
	}
	return p
}

// Load returns the language for d. Failures wrap ErrLoadFailed.
func (l *Loader) Load(d Descriptor) (*tree_sitter.Language, error) {
	locator := l.Locator(d)

	l.mu.Lock()
	defer l.mu.Unlock()
	if lang, ok := l.loaded[locator]; ok {
		return lang, nil
	}

	lang, err := l.load(d, locator)
	if err != nil {
		l.logger.Warn("grammar load failed", "language", d.LanguageID, "artifact", locator, "error", err)
		return nil, fmt.Errorf("%w: %s (%s): %v", ErrLoadFailed, d.LanguageID, locator, err)
	}
	l.logger.Debug("grammar loaded", "language", d.LanguageID, "artifact", locator)
	l.loaded[locator] = lang
	return lang, nil
}

func (l *Loader) load(d Descriptor, locator string) (*tree_sitter.Language, error) {
	if IsBuiltin(locator) {
		name := strings.TrimPrefix(locator, BuiltinScheme)
		fn, ok := builtinLanguages[name]
		if !ok {
			return nil, fmt.Errorf("no builtin grammar named %q", name)
		}
		return tree_sitter.NewLanguage(unsafe.Pointer(fn())), nil
	}

	if strings.EqualFold(filepath.Ext(locator), ".wasm") {
		return nil, fmt.Errorf("wasm grammar artifacts are not supported, build a shared library instead")
	}
	if _, err := os.Stat(locator); err != nil {
		return nil, err
	}
	symbol := d.Symbol
	if symbol == "" {
		symbol = SymbolFor(locator)
	}
	ptr, err := openLanguage(locator, symbol)
	if err != nil {
		return nil, err
	}
	return tree_sitter.NewLanguage(ptr), nil
}

// SymbolFor derives the exported language constructor from an artifact file
// name: "libtree-sitter-c_sharp.so" -> "tree_sitter_c_sharp".
func SymbolFor(artifact string) string {
	name := filepath.Base(artifact)
	for ext := filepath.Ext(name); ext != ""; ext = filepath.Ext(name) {
		name = strings.TrimSuffix(name, ext)
	}
	name = strings.TrimPrefix(name, "lib")
	name = strings.TrimPrefix(name, "tree-sitter-")
	name = strings.TrimPrefix(name, "tree_sitter_")
	name = strings.ReplaceAll(name, "-", "_")
	return "tree_sitter_" + name
}
