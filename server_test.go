package treeviewer_test

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sourcegraph/jsonrpc2"
	"github.com/stretchr/testify/require"

	"github.com/LukasParke/treeviewer"
	"github.com/LukasParke/treeviewer/protocol"
	"github.com/LukasParke/treeviewer/treeviewtest"
)

var jsURI = treeviewtest.FileURI("src/a.js")

func newServer(t *testing.T, opts ...treeviewer.Option) *treeviewer.Server {
	t.Helper()
	s, err := treeviewer.NewServer("treeviewer-test", "0.0.0", opts...)
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return s
}

func requireCode(t *testing.T, err error, code int64) *jsonrpc2.Error {
	t.Helper()
	var rerr *jsonrpc2.Error
	require.True(t, errors.As(err, &rerr), "want *jsonrpc2.Error, got %v", err)
	require.Equal(t, code, rerr.Code, rerr.Message)
	return rerr
}

type memClipboard struct{ text string }

func (c *memClipboard) WriteText(text string) error {
	c.text = text
	return nil
}

func TestInitializeAdvertisesMethods(t *testing.T) {
	c := treeviewtest.Connect(t, newServer(t))

	result := c.Initialize(nil)
	require.Equal(t, "treeviewer-test", result.ServerInfo.Name)
	require.Equal(t, protocol.SyncFull, result.Capabilities.TextDocumentSync.Change)
	require.Contains(t, result.Capabilities.Experimental.Methods, protocol.MethodQuery)
	require.Contains(t, result.Capabilities.Experimental.Languages, "javascript")
}

func TestRequestBeforeInitialize(t *testing.T) {
	c := treeviewtest.Connect(t, newServer(t))
	_, err := c.Tree(protocol.TreeParams{})
	requireCode(t, err, treeviewer.CodeServerNotInitialized)
}

func TestTreeWithoutActiveDocument(t *testing.T) {
	c := treeviewtest.NewClient(t, newServer(t))
	_, err := c.Tree(protocol.TreeParams{})
	requireCode(t, err, treeviewer.CodeNoActiveTree)

	_, err = c.Query("(identifier) @x", false)
	requireCode(t, err, treeviewer.CodeNoActiveTree)
}

func TestLazyProjection(t *testing.T) {
	c := treeviewtest.NewClient(t, newServer(t))
	c.OpenActive(jsURI, "javascript", "let x = 1;")

	tree, err := c.Tree(protocol.TreeParams{})
	require.NoError(t, err)

	changes := c.TreeChanges()
	require.Len(t, changes, 1)
	require.Equal(t, protocol.DocumentURI(jsURI), changes[0].URI)
	require.Equal(t, "javascript", tree.LanguageID)
	require.Equal(t, changes[0].Generation, tree.Generation)
	require.Equal(t, protocol.NodeView{
		ID:          tree.Root.ID,
		Kind:        protocol.NodeInternal,
		Label:       "program",
		Tooltip:     "let x = 1;",
		Type:        "program",
		Range:       treeviewtest.Rng(0, 0, 0, 10),
		Collapsible: true,
	}, tree.Root)

	decl, err := c.Children(tree.Root.ID)
	require.NoError(t, err)
	require.Len(t, decl, 1)
	require.Equal(t, "lexical_declaration", decl[0].Label)

	parts, err := c.Children(decl[0].ID)
	require.NoError(t, err)
	var labels []string
	for _, p := range parts {
		labels = append(labels, p.Label)
	}
	require.Equal(t, []string{"let", "variable_declarator", ";"}, labels)

	letLeaf, err := c.Children(parts[0].ID)
	require.NoError(t, err)
	require.Len(t, letLeaf, 1)
	require.Equal(t, protocol.NodeTerminal, letLeaf[0].Kind)
	require.Equal(t, `"let"`, letLeaf[0].Label)
	require.False(t, letLeaf[0].Collapsible)
	require.NotEqual(t, parts[0].ID, letLeaf[0].ID)

	none, err := c.Children(letLeaf[0].ID)
	require.NoError(t, err)
	require.Empty(t, none)
}

func TestShowPositions(t *testing.T) {
	c := treeviewtest.NewClient(t, newServer(t))
	c.OpenActive(jsURI, "javascript", "let x = 1;")

	on := true
	tree, err := c.Tree(protocol.TreeParams{ShowPositions: &on})
	require.NoError(t, err)
	require.Equal(t, "program [Ln 1, Col 1-11]", tree.Root.Label)

	children, err := c.Children(tree.Root.ID)
	require.NoError(t, err)
	require.Equal(t, "lexical_declaration [Ln 1, Col 1-11]", children[0].Label)
}

func TestStaleUntilReload(t *testing.T) {
	c := treeviewtest.NewClient(t, newServer(t))
	c.OpenActive(jsURI, "javascript", "let x = 1;")

	first, err := c.Tree(protocol.TreeParams{})
	require.NoError(t, err)

	c.Change(jsURI, 2, "let longer = 2;")
	stale, err := c.Tree(protocol.TreeParams{})
	require.NoError(t, err)
	require.Equal(t, first.Generation, stale.Generation)
	require.Equal(t, "let x = 1;", stale.Root.Tooltip)

	fresh, err := c.Reload()
	require.NoError(t, err)
	require.Greater(t, fresh.Generation, first.Generation)
	require.Equal(t, "let longer = 2;", fresh.Root.Tooltip)

	_, err = c.Children(first.Root.ID)
	requireCode(t, err, treeviewer.CodeStaleNode)

	changes := c.TreeChanges()
	require.Equal(t, fresh.Generation, changes[len(changes)-1].Generation)
}

func TestQuery(t *testing.T) {
	c := treeviewtest.NewClient(t, newServer(t))
	c.OpenActive(jsURI, "javascript", "let x = 1;")

	result, err := c.Query("(identifier) @query", false)
	require.NoError(t, err)
	require.Len(t, result.Matches, 1)
	m := result.Matches[0]
	require.Equal(t, "query", m.Capture)
	require.Equal(t, "x", m.Text)
	require.Equal(t, "identifier", m.Node.Type)
	require.Equal(t, treeviewtest.Rng(0, 4, 0, 5), m.Node.Range)

	leaf, err := c.Children(m.Node.ID)
	require.NoError(t, err)
	require.Equal(t, `"x"`, leaf[0].Label)
}

func TestQueryCompileError(t *testing.T) {
	c := treeviewtest.NewClient(t, newServer(t))
	c.OpenActive(jsURI, "javascript", "let x = 1;")

	_, err := c.Query("(no_such_node) @x", false)
	rerr := requireCode(t, err, jsonrpc2.CodeInvalidParams)
	require.NotNil(t, rerr.Data)
	var data treeviewer.QueryErrorData
	require.NoError(t, json.Unmarshal(*rerr.Data, &data))
	require.Equal(t, "node type", data.Kind)

	_, err = c.Query("  ", false)
	requireCode(t, err, jsonrpc2.CodeInvalidParams)
}

func TestQueryStepThrough(t *testing.T) {
	c := treeviewtest.NewClient(t, newServer(t))
	c.OpenActive(jsURI, "javascript", "let a = b + c;")
	c.AnswerSteps(true, false)

	result, err := c.Query("(identifier) @id", true)
	require.NoError(t, err)
	require.Len(t, result.Matches, 3)
	require.Equal(t, 2, result.Visited)

	shown := c.Shown()
	require.Len(t, shown, 2)
	require.Equal(t, protocol.DocumentURI(jsURI), shown[0].URI)
	require.Equal(t, treeviewtest.Rng(0, 4, 0, 5), *shown[0].Selection)
	require.Equal(t, treeviewtest.Rng(0, 8, 0, 9), *shown[1].Selection)

	prompts := c.Prompts()
	require.Len(t, prompts, 2)
	require.Contains(t, prompts[0].Message, "Match 1 of 3")
}

func TestQueryStepDismissed(t *testing.T) {
	c := treeviewtest.NewClient(t, newServer(t))
	c.OpenActive(jsURI, "javascript", "let a = b;")

	result, err := c.Query("(identifier) @id", true)
	require.NoError(t, err)
	require.Equal(t, 1, result.Visited)
	require.Len(t, c.Shown(), 1)
}

func TestRegisterGrammar(t *testing.T) {
	c := treeviewtest.NewClient(t, newServer(t))
	c.OpenActive(jsURI, "javascript", "let x: number = 1;")

	info, err := c.RegisterGrammar("javascript", "builtin:typescript")
	require.NoError(t, err)
	require.Equal(t, &protocol.GrammarInfo{LanguageID: "javascript", Artifact: "builtin:typescript", Overridden: true}, info)

	_, err = c.Reload()
	require.NoError(t, err)
	result, err := c.Query("(type_annotation) @t", false)
	require.NoError(t, err)
	require.Len(t, result.Matches, 1)
	require.Equal(t, ": number", result.Matches[0].Text)

	_, err = c.RegisterGrammar("python", "/nonexistent/tree-sitter-python.so")
	requireCode(t, err, treeviewer.CodeGrammarLoadFailed)

	_, err = c.RegisterGrammar("", "builtin:json")
	requireCode(t, err, jsonrpc2.CodeInvalidParams)

	var python protocol.GrammarInfo
	for _, g := range c.Grammars() {
		if g.LanguageID == "python" {
			python = g
		}
	}
	require.Equal(t, "builtin:python", python.Artifact)
	require.False(t, python.Overridden)
}

func TestCopyNode(t *testing.T) {
	clip := &memClipboard{}
	c := treeviewtest.NewClient(t, newServer(t, treeviewer.WithClipboard(clip)))
	c.OpenActive(treeviewtest.FileURI("src/a.json"), "json", "[1]")

	tree, err := c.Tree(protocol.TreeParams{})
	require.NoError(t, err)
	children, err := c.Children(tree.Root.ID)
	require.NoError(t, err)
	array := children[0].ID

	text, err := c.CopyNode(array, protocol.CopyType)
	require.NoError(t, err)
	require.Equal(t, "array", text)
	require.Equal(t, "array", clip.text)

	text, err = c.CopyNode(array, protocol.CopySexp)
	require.NoError(t, err)
	require.Equal(t, "(array (number))", text)
	require.Equal(t, text, clip.text)

	_, err = c.CopyNode(array, "html")
	requireCode(t, err, jsonrpc2.CodeInvalidParams)

	_, err = c.CopyNode("1.deadbeef", protocol.CopyType)
	requireCode(t, err, treeviewer.CodeStaleNode)
}

func TestGrammarNotFound(t *testing.T) {
	c := treeviewtest.NewClient(t, newServer(t))
	c.OpenActive(treeviewtest.FileURI("src/a.cob"), "cobol", "IDENTIFICATION DIVISION.")

	_, err := c.Tree(protocol.TreeParams{})
	requireCode(t, err, treeviewer.CodeGrammarNotFound)

	errs := c.TreeErrors()
	require.Len(t, errs, 1)
	require.Contains(t, errs[0].Message, "cobol")
	require.Empty(t, c.Notifications(protocol.MethodShowMessage))
}

func TestCloseInvalidatesTree(t *testing.T) {
	s := newServer(t)
	c := treeviewtest.NewClient(t, s)
	c.OpenActive(jsURI, "javascript", "let x = 1;")
	require.Equal(t, 1, c.Stats().Trees)

	c.Close(jsURI)
	stats := c.Stats()
	require.Zero(t, stats.Trees)
	require.Contains(t, stats.Parsers, "javascript")

	var tree *protocol.MethodStat
	for i, m := range stats.Methods {
		if m.Method == protocol.MethodDidClose {
			tree = &stats.Methods[i]
		}
	}
	require.NotNil(t, tree)
	require.EqualValues(t, 1, tree.Calls)

	_, err := c.Tree(protocol.TreeParams{})
	requireCode(t, err, treeviewer.CodeNoActiveTree)
}

func TestInitializationOptions(t *testing.T) {
	c := treeviewtest.Connect(t, newServer(t))
	on := true
	c.Initialize(&protocol.InitializationOptions{
		ShowPositions: &on,
		Overrides:     map[string]string{"jsonc-lite": "builtin:json"},
	})
	c.OpenActive(treeviewtest.FileURI("src/a.jsonc"), "jsonc-lite", "{}")

	tree, err := c.Tree(protocol.TreeParams{})
	require.NoError(t, err)
	require.Equal(t, "document [Ln 1, Col 1-3]", tree.Root.Label)
}

func TestSettingsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
show_positions = true

[overrides]
javascript = "builtin:typescript"
`), 0o644))

	s := newServer(t, treeviewer.WithConfigFile(path))
	c := treeviewtest.NewClient(t, s)
	c.OpenActive(jsURI, "javascript", "let x: number = 1;")

	tree, err := c.Tree(protocol.TreeParams{})
	require.NoError(t, err)
	require.Equal(t, "program [Ln 1, Col 1-19]", tree.Root.Label)
	result, err := c.Query("(type_annotation) @t", false)
	require.NoError(t, err)
	require.Len(t, result.Matches, 1)

	require.NoError(t, os.WriteFile(path, []byte(`show_positions = false`), 0o644))
	require.Eventually(t, func() bool {
		return !s.Settings().ShowPositions
	}, 2*time.Second, 10*time.Millisecond)

	require.Eventually(t, func() bool {
		d, err := s.Manager().Registry().Resolve("javascript")
		return err == nil && d.Artifact == "builtin:javascript"
	}, 2*time.Second, 10*time.Millisecond)
}

func TestRequestsAfterShutdown(t *testing.T) {
	c := treeviewtest.NewClient(t, newServer(t))
	c.Shutdown()

	_, err := c.Tree(protocol.TreeParams{})
	requireCode(t, err, jsonrpc2.CodeInvalidRequest)
}
