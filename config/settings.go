package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/LukasParke/treeviewer/grammar"
)

// Settings is the treeviewer settings file, in TOML or, with a .yaml or
// .yml extension, YAML.
//
//	grammar_dir = "~/.local/share/treeviewer/grammars"
//	manifests = ["extra-grammars.yaml"]
//	show_positions = true
//	log_level = "debug"
//
//	[overrides]
//	javascript = "/opt/grammars/tree-sitter-javascript.so"
type Settings struct {
	// GrammarDir is where relative shared-library artifacts are looked up.
	GrammarDir string `toml:"grammar_dir" yaml:"grammar_dir"`

	// Manifests are extra TOML or YAML grammar manifests layered over the
	// built-in table, in order. They are read once at startup.
	Manifests []string `toml:"manifests" yaml:"manifests"`

	// Overrides maps language IDs to grammar artifacts. They are applied on
	// every reload, replacing the overrides of the previous settings.
	Overrides map[string]string `toml:"overrides" yaml:"overrides"`

	ShowPositions bool   `toml:"show_positions" yaml:"show_positions"`
	LogLevel      string `toml:"log_level" yaml:"log_level"`

	// SingleParser keeps one parser for every language.
	SingleParser bool `toml:"single_parser" yaml:"single_parser"`
}

// DefaultSettings returns the settings used when no file exists.
func DefaultSettings() *Settings {
	return &Settings{LogLevel: "info"}
}

// DefaultPath is the settings file under the user config directory.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "treeviewer.toml"
	}
	return filepath.Join(dir, "treeviewer", "config.toml")
}

// Load reads settings from path. A missing file yields DefaultSettings.
// Relative grammar_dir and manifest paths resolve against the file's
// directory, and a leading ~ against the home directory.
func Load(path string) (*Settings, error) {
	s, err := LoadFile(path, DefaultSettings())
	if err != nil {
		return nil, err
	}
	out := *s
	base := filepath.Dir(path)
	out.GrammarDir = resolvePath(base, out.GrammarDir)
	out.Manifests = make([]string, len(s.Manifests))
	for i, m := range s.Manifests {
		out.Manifests[i] = resolvePath(base, m)
	}
	return &out, nil
}

func resolvePath(base, p string) string {
	if p == "" {
		return ""
	}
	if p == "~" || strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			p = filepath.Join(home, strings.TrimPrefix(p, "~"))
		}
	}
	if !filepath.IsAbs(p) {
		p = filepath.Join(base, p)
	}
	return p
}

// Validate implements Validatable.
func (s *Settings) Validate() error {
	if _, err := ParseLevel(s.LogLevel); err != nil {
		return err
	}
	for lang, artifact := range s.Overrides {
		if strings.TrimSpace(lang) == "" {
			return fmt.Errorf("overrides: empty language")
		}
		if strings.TrimSpace(artifact) == "" {
			return fmt.Errorf("overrides: language %q has no artifact", lang)
		}
	}
	return nil
}

// ParseLevel maps a log level name to a slog level.
func ParseLevel(name string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("log_level: unknown level %q", name)
	}
}

// Level returns the configured log level, defaulting to info.
func (s *Settings) Level() slog.Level {
	l, _ := ParseLevel(s.LogLevel)
	return l
}

// Registry builds a grammar registry from the built-in manifest followed by
// the configured manifests, then applies the overrides.
func (s *Settings) Registry() (*grammar.Registry, error) {
	manifests := make([]*grammar.Manifest, 0, len(s.Manifests))
	for _, path := range s.Manifests {
		m, err := grammar.LoadManifest(path)
		if err != nil {
			return nil, err
		}
		manifests = append(manifests, m)
	}
	r, err := grammar.DefaultRegistry(manifests...)
	if err != nil {
		return nil, err
	}
	s.ApplyOverrides(r, nil)
	return r, nil
}

// ApplyOverrides registers the settings' overrides in r. Overrides that
// previous set and s no longer has are removed, so the registry mirrors the
// file after a reload. Overrides registered by other means are left alone
// unless previous also named them.
func (s *Settings) ApplyOverrides(r *grammar.Registry, previous *Settings) {
	if previous != nil {
		for lang := range previous.Overrides {
			if _, ok := s.Overrides[lang]; !ok {
				r.RemoveOverride(lang)
			}
		}
	}
	langs := make([]string, 0, len(s.Overrides))
	for lang := range s.Overrides {
		langs = append(langs, lang)
	}
	sort.Strings(langs)
	for _, lang := range langs {
		r.RegisterOverride(lang, s.Overrides[lang])
	}
}

// NewLogger returns a text logger on stderr at the configured level.
func (s *Settings) NewLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: s.Level()}))
}
