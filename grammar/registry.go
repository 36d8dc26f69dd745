// Package grammar resolves language identifiers to tree-sitter grammar
// artifacts and loads them. Resolution is layered: an immutable built-in
// table (loaded from manifests) and a mutable override table registered at
// runtime. An override always wins over the built-in entry for the same
// language.
package grammar

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

var (
	// ErrNotFound is returned when neither an override nor a built-in entry
	// exists for a language.
	ErrNotFound = errors.New("grammar not found")

	// ErrLoadFailed is returned when a registered artifact cannot be loaded
	// or bound to a parser.
	ErrLoadFailed = errors.New("grammar load failed")
)

// Descriptor names the artifact a language's grammar is loaded from.
type Descriptor struct {
	LanguageID string `toml:"language" yaml:"language"`
	Artifact   string `toml:"artifact" yaml:"artifact"`

	// Symbol overrides the exported constructor looked up in shared-library
	// artifacts. When empty it is derived from the artifact file name.
	Symbol string `toml:"symbol,omitempty" yaml:"symbol,omitempty"`

	// Extensions lists file name suffixes (with the dot) that select this
	// language when no language ID is given, as in the CLI.
	Extensions []string `toml:"extensions,omitempty" yaml:"extensions,omitempty"`
}

// Entry is one row of a registry listing.
type Entry struct {
	Descriptor
	Overridden bool
}

// Registry maps language identifiers to grammar descriptors.
type Registry struct {
	builtins map[string]Descriptor
	byExt    map[string]string

	mu        sync.RWMutex
	overrides map[string]Descriptor
}

// NewRegistry creates a registry whose built-in layer is the given
// descriptors. Later descriptors replace earlier ones with the same language,
// which lets user manifests extend or patch the shipped table.
func NewRegistry(builtins []Descriptor) *Registry {
	r := &Registry{
		builtins:  make(map[string]Descriptor, len(builtins)),
		byExt:     make(map[string]string),
		overrides: make(map[string]Descriptor),
	}
	for _, d := range builtins {
		d.LanguageID = normalizeID(d.LanguageID)
		if d.LanguageID == "" {
			continue
		}
		r.builtins[d.LanguageID] = d
		for _, ext := range d.Extensions {
			r.byExt[strings.ToLower(ext)] = d.LanguageID
		}
	}
	return r
}

// DefaultRegistry creates a registry from the embedded built-in manifest
// followed by any extra manifests, in order.
func DefaultRegistry(extra ...*Manifest) (*Registry, error) {
	base, err := BuiltinManifest()
	if err != nil {
		return nil, err
	}
	descs := append([]Descriptor(nil), base.Grammars...)
	for _, m := range extra {
		if m != nil {
			descs = append(descs, m.Grammars...)
		}
	}
	return NewRegistry(descs), nil
}

// Resolve returns the descriptor for languageID. Overrides take precedence
// over built-in entries.
func (r *Registry) Resolve(languageID string) (Descriptor, error) {
	id := normalizeID(languageID)

	r.mu.RLock()
	d, ok := r.overrides[id]
	r.mu.RUnlock()
	if ok {
		return d, nil
	}
	if d, ok := r.builtins[id]; ok {
		return d, nil
	}
	return Descriptor{}, fmt.Errorf("%w: no grammar registered for language %q", ErrNotFound, languageID)
}

// RegisterOverride maps languageID to artifact, replacing any previous
// override and shadowing the built-in entry. The artifact is not checked
// here; a bad artifact fails when it is first loaded.
func (r *Registry) RegisterOverride(languageID, artifact string) {
	r.RegisterDescriptor(Descriptor{LanguageID: languageID, Artifact: artifact})
}

// RegisterDescriptor is RegisterOverride with an explicit constructor symbol.
func (r *Registry) RegisterDescriptor(d Descriptor) {
	d.LanguageID = normalizeID(d.LanguageID)
	if d.LanguageID == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.overrides[d.LanguageID] = d
}

// RemoveOverride drops the override for languageID, exposing the built-in
// entry again if there is one.
func (r *Registry) RemoveOverride(languageID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.overrides, normalizeID(languageID))
}

// Builtin returns the built-in descriptor for languageID, ignoring overrides.
func (r *Registry) Builtin(languageID string) (Descriptor, bool) {
	d, ok := r.builtins[normalizeID(languageID)]
	return d, ok
}

// Entries lists every resolvable language sorted by identifier, with the
// descriptor that Resolve would return.
func (r *Registry) Entries() []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entries := make([]Entry, 0, len(r.builtins)+len(r.overrides))
	for id, d := range r.builtins {
		if o, ok := r.overrides[id]; ok {
			entries = append(entries, Entry{Descriptor: o, Overridden: true})
			continue
		}
		entries = append(entries, Entry{Descriptor: d})
	}
	for id, o := range r.overrides {
		if _, ok := r.builtins[id]; !ok {
			entries = append(entries, Entry{Descriptor: o, Overridden: true})
		}
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].LanguageID < entries[j].LanguageID
	})
	return entries
}

// LanguageForPath picks a language ID from the file extension of path using
// the built-in layer. Overrides carry no extensions.
func (r *Registry) LanguageForPath(path string) (string, bool) {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == "" {
		return "", false
	}
	if id, ok := r.byExt[ext]; ok {
		return id, true
	}
	return "", false
}

func normalizeID(id string) string {
	return strings.TrimSpace(id)
}
