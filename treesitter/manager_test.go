package treesitter_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/LukasParke/treeviewer/document"
	"github.com/LukasParke/treeviewer/protocol"
	"github.com/LukasParke/treeviewer/treesitter"
)

func setup(t *testing.T) (*treesitter.Manager, *document.Store) {
	t.Helper()
	store := document.NewStore()
	m, err := treesitter.NewManager(treesitter.Config{}, store)
	require.NoError(t, err)
	t.Cleanup(m.Close)
	return m, store
}

func activate(t *testing.T, store *document.Store, uri, languageID, text string) {
	t.Helper()
	store.Open(&protocol.DidOpenTextDocumentParams{TextDocument: protocol.TextDocumentItem{
		URI:        protocol.DocumentURI(uri),
		LanguageID: languageID,
		Version:    1,
		Text:       text,
	}})
	require.NoError(t, store.SetActive(protocol.DocumentURI(uri)))
}

func edit(store *document.Store, uri, text string) {
	store.Change(&protocol.DidChangeTextDocumentParams{
		TextDocument: protocol.VersionedTextDocumentIdentifier{
			TextDocumentIdentifier: protocol.TextDocumentIdentifier{URI: protocol.DocumentURI(uri)},
			Version:                2,
		},
		ContentChanges: []protocol.TextDocumentContentChangeEvent{{Text: text}},
	})
}

func TestGetCurrentTreeNoActiveDocument(t *testing.T) {
	m, _ := setup(t)
	_, err := m.GetCurrentTree(context.Background(), false)
	require.ErrorIs(t, err, treesitter.ErrNoActiveDocument)
}

func TestGetCurrentTreeCachesUntilForced(t *testing.T) {
	m, store := setup(t)
	activate(t, store, "file:///src/a.js", "javascript", "let x = 1;")
	ctx := context.Background()

	first, err := m.GetCurrentTree(ctx, false)
	require.NoError(t, err)
	require.Equal(t, "program", first.Root().Type())
	require.Equal(t, "javascript", first.LanguageID())

	again, err := m.GetCurrentTree(ctx, false)
	require.NoError(t, err)
	require.Same(t, first, again)

	forced, err := m.GetCurrentTree(ctx, true)
	require.NoError(t, err)
	require.NotSame(t, first, forced)
	require.Greater(t, forced.Generation(), first.Generation())

	cached, err := m.GetCurrentTree(ctx, false)
	require.NoError(t, err)
	require.Same(t, forced, cached)
}

func TestStaleTreeUntilForced(t *testing.T) {
	m, store := setup(t)
	activate(t, store, "file:///src/a.js", "javascript", "let x = 1;")
	ctx := context.Background()

	old, err := m.GetCurrentTree(ctx, false)
	require.NoError(t, err)

	edit(store, "file:///src/a.js", "let longer = 2;")
	stale, err := m.GetCurrentTree(ctx, false)
	require.NoError(t, err)
	require.Same(t, old, stale)
	require.Equal(t, "let x = 1;", string(stale.Source()))

	fresh, err := m.GetCurrentTree(ctx, true)
	require.NoError(t, err)
	require.Equal(t, "let longer = 2;", string(fresh.Source()))
}

func TestDocumentIdentityIgnoresCase(t *testing.T) {
	m, store := setup(t)
	ctx := context.Background()

	activate(t, store, "file:///src/Main.js", "javascript", "let upper = 1;")
	upper, err := m.GetCurrentTree(ctx, false)
	require.NoError(t, err)

	activate(t, store, "file:///src/main.js", "javascript", "let lower = 1;")
	lower, err := m.GetCurrentTree(ctx, false)
	require.NoError(t, err)
	require.Same(t, upper, lower)
	require.Equal(t, treesitter.NewDocumentID("/SRC/MAIN.JS"), lower.Document())
}

func TestQueryIdentifier(t *testing.T) {
	m, store := setup(t)
	activate(t, store, "file:///src/a.js", "javascript", "let x = 1;")

	matches, err := m.Query(context.Background(), "(identifier) @query")
	require.NoError(t, err)
	require.Len(t, matches, 1)
	require.Equal(t, "query", matches[0].CaptureName)
	require.Equal(t, "identifier", matches[0].Node.Type())
	require.Equal(t, "x", matches[0].Node.Text())
	require.Equal(t, treesitter.Point{Row: 0, Column: 4}, matches[0].Node.StartPosition())
}

func TestQueryMatchesInDocumentOrder(t *testing.T) {
	m, store := setup(t)
	activate(t, store, "file:///src/a.js", "javascript", "let a = 1;\nlet b = a;\nfunction c(d) { return d; }\n")

	matches, err := m.Query(context.Background(), "(identifier) @id")
	require.NoError(t, err)

	var names []string
	for _, match := range matches {
		names = append(names, match.Node.Text())
	}
	require.Equal(t, []string{"a", "b", "a", "c", "d", "d"}, names)
}

func TestQueryErrors(t *testing.T) {
	m, store := setup(t)
	ctx := context.Background()

	_, err := m.Query(ctx, "(identifier) @query")
	require.ErrorIs(t, err, treesitter.ErrNoActiveTree)
	require.ErrorIs(t, err, treesitter.ErrNoActiveDocument)

	activate(t, store, "file:///src/a.js", "javascript", "let x = 1;")
	tests := []struct {
		name    string
		pattern string
		kind    string
	}{
		{"unbalanced", "(identifier", "syntax"},
		{"unknown node", "(no_such_node) @x", "node type"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := m.Query(ctx, tt.pattern)
			require.ErrorIs(t, err, treesitter.ErrQueryCompile)
			var qerr *treesitter.QueryCompileError
			require.True(t, errors.As(err, &qerr))
			require.Equal(t, tt.kind, qerr.Kind)
			require.Contains(t, qerr.Error(), "invalid query")
		})
	}
}

func TestGrammarNotFound(t *testing.T) {
	m, store := setup(t)
	activate(t, store, "file:///src/a.cob", "cobol", "IDENTIFICATION DIVISION.")

	_, err := m.GetCurrentTree(context.Background(), false)
	require.ErrorIs(t, err, treesitter.ErrGrammarNotFound)
	require.Zero(t, m.Cache().Len())

	_, err = m.Query(context.Background(), "(identifier) @x")
	require.ErrorIs(t, err, treesitter.ErrNoActiveTree)
	require.ErrorIs(t, err, treesitter.ErrGrammarNotFound)
}

func TestOverrideAppliesOnRebuild(t *testing.T) {
	m, store := setup(t)
	activate(t, store, "file:///src/a.js", "javascript", "let x: number = 1;")
	ctx := context.Background()

	before, err := m.GetCurrentTree(ctx, false)
	require.NoError(t, err)
	require.Equal(t, "builtin:javascript", before.Locator())

	m.RegisterCustomGrammar("javascript", "builtin:typescript")

	cached, err := m.GetCurrentTree(ctx, false)
	require.NoError(t, err)
	require.Same(t, before, cached)

	after, err := m.GetCurrentTree(ctx, true)
	require.NoError(t, err)
	require.Equal(t, "builtin:typescript", after.Locator())

	matches, err := m.Query(ctx, "(type_annotation) @t")
	require.NoError(t, err)
	require.Len(t, matches, 1)
	require.Equal(t, ": number", matches[0].Node.Text())
}

func TestOverrideForUnknownLanguage(t *testing.T) {
	m, store := setup(t)
	m.RegisterCustomGrammar("jsonc-lite", "builtin:json")
	activate(t, store, "file:///src/a.jsonc", "jsonc-lite", `{"a": [1, 2]}`)

	tree, err := m.GetCurrentTree(context.Background(), false)
	require.NoError(t, err)
	require.Equal(t, "document", tree.Root().Type())
}

func TestFailedRebuildKeepsCachedTree(t *testing.T) {
	m, store := setup(t)
	activate(t, store, "file:///src/a.js", "javascript", "let x = 1;")
	ctx := context.Background()

	good, err := m.GetCurrentTree(ctx, false)
	require.NoError(t, err)

	m.RegisterCustomGrammar("javascript", "/nonexistent/tree-sitter-javascript.so")
	_, err = m.GetCurrentTree(ctx, true)
	require.ErrorIs(t, err, treesitter.ErrGrammarLoadFailed)

	still, err := m.GetCurrentTree(ctx, false)
	require.NoError(t, err)
	require.Same(t, good, still)
}

func TestActiveChangeRefreshesTree(t *testing.T) {
	m, store := setup(t)

	var (
		mu      sync.Mutex
		updated []string
		failed  []error
	)
	m.OnTreeUpdate(func(doc *document.Document, tree *treesitter.Tree) {
		mu.Lock()
		defer mu.Unlock()
		updated = append(updated, tree.Root().Type())
	})
	m.OnTreeError(func(doc *document.Document, err error) {
		mu.Lock()
		defer mu.Unlock()
		failed = append(failed, err)
	})

	activate(t, store, "file:///src/a.py", "python", "x = 1\n")
	activate(t, store, "file:///src/a.cob", "cobol", "")
	require.NoError(t, store.SetActive(""))

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []string{"module"}, updated)
	require.Len(t, failed, 1)
	require.ErrorIs(t, failed[0], treesitter.ErrGrammarNotFound)
	require.Equal(t, 1, m.Cache().Len())
}

func TestInvalidate(t *testing.T) {
	m, store := setup(t)
	activate(t, store, "file:///src/a.js", "javascript", "let x = 1;")
	ctx := context.Background()

	first, err := m.GetCurrentTree(ctx, false)
	require.NoError(t, err)

	m.Invalidate("file:///SRC/A.js")
	require.Zero(t, m.Cache().Len())

	second, err := m.GetCurrentTree(ctx, false)
	require.NoError(t, err)
	require.NotSame(t, first, second)
}

func TestCancelledContext(t *testing.T) {
	m, store := setup(t)
	activate(t, store, "file:///src/a.js", "javascript", "let x = 1;")
	m.Invalidate("file:///src/a.js")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := m.GetCurrentTree(ctx, false)
	require.ErrorIs(t, err, context.Canceled)
	require.Zero(t, m.Cache().Len())
}
