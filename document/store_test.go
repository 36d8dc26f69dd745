package document_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/LukasParke/treeviewer/document"
	"github.com/LukasParke/treeviewer/protocol"
)

func open(t *testing.T, s *document.Store, uri, text string) {
	t.Helper()
	s.Open(&protocol.DidOpenTextDocumentParams{TextDocument: protocol.TextDocumentItem{
		URI:        protocol.DocumentURI(uri),
		LanguageID: "javascript",
		Version:    1,
		Text:       text,
	}})
}

func TestActiveDocument(t *testing.T) {
	s := document.NewStore()
	_, ok := s.ActiveDocument()
	require.False(t, ok)

	open(t, s, "file:///tmp/a.js", "let a = 1;")
	open(t, s, "file:///tmp/b.js", "let b = 2;")

	var seen []string
	s.OnActiveChange(func(doc *document.Document) {
		if doc == nil {
			seen = append(seen, "")
			return
		}
		seen = append(seen, string(doc.URI()))
	})

	require.NoError(t, s.SetActive("file:///tmp/b.js"))
	doc, ok := s.ActiveDocument()
	require.True(t, ok)
	require.Equal(t, "let b = 2;", doc.Text())

	require.NoError(t, s.SetActive("file:///tmp/b.js"))
	require.NoError(t, s.SetActive(""))
	_, ok = s.ActiveDocument()
	require.False(t, ok)

	require.Equal(t, []string{"file:///tmp/b.js", "file:///tmp/b.js", ""}, seen)
}

func TestSetActiveUnknownDocument(t *testing.T) {
	s := document.NewStore()
	require.Error(t, s.SetActive("file:///nowhere.js"))
}

func TestCloseActiveClearsSelection(t *testing.T) {
	s := document.NewStore()
	open(t, s, "file:///tmp/a.js", "let a = 1;")
	require.NoError(t, s.SetActive("file:///tmp/a.js"))

	cleared := false
	s.OnActiveChange(func(doc *document.Document) { cleared = doc == nil })
	s.Close(&protocol.DidCloseTextDocumentParams{TextDocument: protocol.TextDocumentIdentifier{URI: "file:///tmp/a.js"}})

	require.True(t, cleared)
	_, ok := s.ActiveDocument()
	require.False(t, ok)
	require.Nil(t, s.Get("file:///tmp/a.js"))
}

func TestChangeUpdatesText(t *testing.T) {
	s := document.NewStore()
	open(t, s, "file:///tmp/a.js", "let a = 1;")
	s.Change(&protocol.DidChangeTextDocumentParams{
		TextDocument:   protocol.VersionedTextDocumentIdentifier{TextDocumentIdentifier: protocol.TextDocumentIdentifier{URI: "file:///tmp/a.js"}, Version: 2},
		ContentChanges: []protocol.TextDocumentContentChangeEvent{{Text: "let a = 2;"}},
	})
	doc := s.Get("file:///tmp/a.js")
	require.Equal(t, "let a = 2;", doc.Text())
	require.Equal(t, int32(2), doc.Version())
}

func TestDocumentPath(t *testing.T) {
	s := document.NewStore()
	open(t, s, "file:///tmp/dir/a.js", "")
	open(t, s, "untitled:Untitled-1", "")

	require.Equal(t, filepath.FromSlash("/tmp/dir/a.js"), s.Get("file:///tmp/dir/a.js").Path())
	require.Equal(t, "untitled:Untitled-1", s.Get("untitled:Untitled-1").Path())
	require.Equal(t, []protocol.DocumentURI{"file:///tmp/dir/a.js", "untitled:Untitled-1"}, s.URIs())
}

func TestFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "x.json")
	require.NoError(t, writeFile(path, `{"a": 1}`))

	doc, err := document.FromFile(path, "json")
	require.NoError(t, err)
	require.Equal(t, `{"a": 1}`, doc.Text())
	require.Equal(t, "json", doc.LanguageID())
	require.Equal(t, path, doc.Path())

	_, err = document.FromFile(filepath.Join(t.TempDir(), "missing"), "json")
	require.Error(t, err)
}

func TestRangeOf(t *testing.T) {
	doc := document.New(protocol.TextDocumentItem{URI: "file:///x", Text: "ab\ncd"})
	r := doc.RangeOf(1, 4)
	require.Equal(t, protocol.Range{
		Start: protocol.Position{Line: 0, Character: 1},
		End:   protocol.Position{Line: 1, Character: 1},
	}, r)
}

func writeFile(path, content string) error {
	return os.WriteFile(path, []byte(content), 0o644)
}
