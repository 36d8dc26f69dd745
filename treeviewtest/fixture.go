package treeviewtest

import (
	"fmt"
	"strings"
	"testing"

	"github.com/LukasParke/treeviewer/document"
	"github.com/LukasParke/treeviewer/protocol"
)

// FileURI creates a file:// URI from a path.
func FileURI(path string) string {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return fmt.Sprintf("file://%s", path)
}

// Pos creates a protocol.Position from line and character (0-indexed).
func Pos(line, char uint32) protocol.Position {
	return protocol.Position{Line: line, Character: char}
}

// Rng creates a protocol.Range from start and end positions.
func Rng(startLine, startChar, endLine, endChar uint32) protocol.Range {
	return protocol.Range{
		Start: Pos(startLine, startChar),
		End:   Pos(endLine, endChar),
	}
}

// OpenActive opens a document in store and makes it the active one.
func OpenActive(t testing.TB, store *document.Store, uri, languageID, text string) *document.Document {
	t.Helper()
	doc := document.New(protocol.TextDocumentItem{
		URI:        protocol.DocumentURI(uri),
		LanguageID: languageID,
		Version:    1,
		Text:       text,
	})
	store.Add(doc)
	if err := store.SetActive(doc.URI()); err != nil {
		t.Fatalf("activating %s: %v", uri, err)
	}
	return doc
}
