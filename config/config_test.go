package config_test

import (
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/LukasParke/treeviewer/config"
	"github.com/LukasParke/treeviewer/grammar"
)

func writeSettings(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadMissingFileGivesDefaults(t *testing.T) {
	s, err := config.Load(filepath.Join(t.TempDir(), "absent.toml"))
	require.NoError(t, err)
	require.Equal(t, "info", s.LogLevel)
	require.Equal(t, slog.LevelInfo, s.Level())
	require.Empty(t, s.Overrides)
}

func TestLoadResolvesPaths(t *testing.T) {
	dir := t.TempDir()
	path := writeSettings(t, dir, `
grammar_dir = "grammars"
manifests = ["extra.yaml", "/abs/more.toml"]
show_positions = true
log_level = "debug"

[overrides]
javascript = "builtin:typescript"
`)
	s, err := config.Load(path)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "grammars"), s.GrammarDir)
	require.Equal(t, []string{filepath.Join(dir, "extra.yaml"), "/abs/more.toml"}, s.Manifests)
	require.True(t, s.ShowPositions)
	require.Equal(t, slog.LevelDebug, s.Level())
	require.Equal(t, map[string]string{"javascript": "builtin:typescript"}, s.Overrides)
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"bad level", `log_level = "loud"`},
		{"empty artifact", "[overrides]\ngo = \"\"\n"},
		{"unknown key", `grammar_directory = "x"`},
		{"syntax", `log_level = `},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := config.Load(writeSettings(t, t.TempDir(), tt.body))
			require.Error(t, err)
		})
	}
}

func TestRegistryAppliesManifestsAndOverrides(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "extra.yaml"),
		[]byte("grammars:\n  - language: zig\n    artifact: tree-sitter-zig.so\n"), 0o644))
	path := writeSettings(t, dir, `
manifests = ["extra.yaml"]

[overrides]
python = "builtin:json"
`)
	s, err := config.Load(path)
	require.NoError(t, err)

	r, err := s.Registry()
	require.NoError(t, err)

	d, err := r.Resolve("zig")
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "tree-sitter-zig.so"), d.Artifact)

	d, err = r.Resolve("python")
	require.NoError(t, err)
	require.Equal(t, "builtin:json", d.Artifact)
}

func TestApplyOverridesFollowsReload(t *testing.T) {
	r, err := grammar.DefaultRegistry()
	require.NoError(t, err)
	r.RegisterOverride("rust", "builtin:go")

	first := &config.Settings{Overrides: map[string]string{"python": "builtin:json", "go": "builtin:yaml"}}
	first.ApplyOverrides(r, nil)

	second := &config.Settings{Overrides: map[string]string{"go": "builtin:json"}}
	second.ApplyOverrides(r, first)

	d, _ := r.Resolve("python")
	require.Equal(t, "builtin:python", d.Artifact)
	d, _ = r.Resolve("go")
	require.Equal(t, "builtin:json", d.Artifact)
	d, _ = r.Resolve("rust")
	require.Equal(t, "builtin:go", d.Artifact)
}

func TestStoreSwapNotifies(t *testing.T) {
	s := config.NewStore(config.DefaultSettings())

	var got []bool
	s.OnChange(func(old, new_ *config.Settings) {
		got = append(got, old.ShowPositions, new_.ShowPositions)
	})
	old := s.Swap(&config.Settings{ShowPositions: true})

	require.False(t, old.ShowPositions)
	require.True(t, s.Get().ShowPositions)
	require.Equal(t, []bool{false, true}, got)
}

func TestStoreListenerAddedDuringSwap(t *testing.T) {
	s := config.NewStore(config.DefaultSettings())

	calls := 0
	s.OnChange(func(_, _ *config.Settings) {
		calls++
		s.OnChange(func(_, _ *config.Settings) { calls += 10 })
	})
	s.Swap(&config.Settings{ShowPositions: true})
	require.Equal(t, 1, calls, "listeners registered during a swap wait for the next one")

	s.Swap(&config.Settings{})
	require.Equal(t, 12, calls)
}

func TestReloaderKeepsPreviousOnError(t *testing.T) {
	dir := t.TempDir()
	path := writeSettings(t, dir, `show_positions = true`)
	store := config.NewStore(config.DefaultSettings())
	r := config.NewReloader(store, path, config.Load, nil)

	require.NoError(t, r.Reload())
	require.True(t, store.Get().ShowPositions)

	writeSettings(t, dir, `log_level = "shout"`)
	err := r.Reload()
	require.Error(t, err)
	require.True(t, store.Get().ShowPositions)
	require.Equal(t, path, r.Path())
}

func TestWatcherReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := writeSettings(t, dir, `show_positions = false`)

	var reloads atomic.Int32
	w, err := config.NewWatcher(path, func() { reloads.Add(1) }, config.WithDebounce(10*time.Millisecond))
	require.NoError(t, err)
	t.Cleanup(func() { w.Close() })

	require.NoError(t, os.WriteFile(filepath.Join(dir, "unrelated.txt"), []byte("x"), 0o644))
	writeSettings(t, dir, `show_positions = true`)

	require.Eventually(t, func() bool { return reloads.Load() >= 1 }, 2*time.Second, 10*time.Millisecond)
}

func TestWatcherMissingDirectory(t *testing.T) {
	_, err := config.NewWatcher(filepath.Join(t.TempDir(), "nope", "config.toml"), func() {})
	require.Error(t, err)
}

func TestLoadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("show_positions: true\nlog_level: warn\noverrides:\n  jsonc: builtin:json\n"), 0o644))

	s, err := config.Load(path)
	require.NoError(t, err)
	require.True(t, s.ShowPositions)
	require.Equal(t, slog.LevelWarn, s.Level())
	require.Equal(t, map[string]string{"jsonc": "builtin:json"}, s.Overrides)
}

func TestLoadYAMLRejectsUnknownKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte("show_position: true\n"), 0o644))

	_, err := config.Load(path)
	require.Error(t, err)
}
