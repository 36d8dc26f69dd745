package grammar

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

//go:embed builtin.toml
var builtinManifest []byte

// Manifest is a list of grammar descriptors loaded from a TOML or YAML file.
//
// TOML:
//
//	[[grammar]]
//	language = "c"
//	artifact = "tree-sitter-c.so"
//
// YAML:
//
//	grammars:
//	  - language: c
//	    artifact: tree-sitter-c.so
type Manifest struct {
	Grammars []Descriptor `toml:"grammar" yaml:"grammars"`
}

// Validate reports the first descriptor with a missing language or artifact,
// or a language listed twice.
func (m *Manifest) Validate() error {
	seen := make(map[string]bool, len(m.Grammars))
	for i, d := range m.Grammars {
		id := normalizeID(d.LanguageID)
		if id == "" {
			return fmt.Errorf("grammar #%d: missing language", i+1)
		}
		if strings.TrimSpace(d.Artifact) == "" {
			return fmt.Errorf("grammar %q: missing artifact", id)
		}
		if seen[id] {
			return fmt.Errorf("grammar %q: listed more than once", id)
		}
		seen[id] = true
	}
	return nil
}

// ParseManifest decodes a manifest. format is "toml" or "yaml".
func ParseManifest(data []byte, format string) (*Manifest, error) {
	m := &Manifest{}
	switch format {
	case "toml":
		if err := toml.Unmarshal(data, m); err != nil {
			return nil, fmt.Errorf("decoding toml manifest: %w", err)
		}
	case "yaml":
		if err := yaml.Unmarshal(data, m); err != nil {
			return nil, fmt.Errorf("decoding yaml manifest: %w", err)
		}
	default:
		return nil, fmt.Errorf("unknown manifest format %q", format)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

// LoadManifest reads a manifest file, choosing the decoder from the file
// extension (.yaml and .yml are YAML, anything else TOML). Relative
// shared-library artifacts are resolved against the manifest's directory.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading manifest %s: %w", path, err)
	}
	format := "toml"
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		format = "yaml"
	}
	m, err := ParseManifest(data, format)
	if err != nil {
		return nil, fmt.Errorf("manifest %s: %w", path, err)
	}
	dir := filepath.Dir(path)
	for i, d := range m.Grammars {
		if IsBuiltin(d.Artifact) || filepath.IsAbs(d.Artifact) {
			continue
		}
		m.Grammars[i].Artifact = filepath.Join(dir, d.Artifact)
	}
	return m, nil
}

// BuiltinManifest returns the manifest shipped with the binary.
func BuiltinManifest() (*Manifest, error) {
	m, err := ParseManifest(builtinManifest, "toml")
	if err != nil {
		return nil, fmt.Errorf("builtin manifest: %w", err)
	}
	return m, nil
}
