package document

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"go.lsp.dev/uri"

	"github.com/LukasParke/treeviewer/protocol"
)

// Document represents a single managed text document.
type Document struct {
	mu         sync.RWMutex
	uri        protocol.DocumentURI
	languageID string
	version    int32
	text       string
}

// New creates a new Document from an LSP TextDocumentItem.
func New(item protocol.TextDocumentItem) *Document {
	return &Document{
		uri:        item.URI,
		languageID: item.LanguageID,
		version:    item.Version,
		text:       item.Text,
	}
}

// FromFile reads path from disk into a Document with a file:// URI.
func FromFile(path, languageID string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return New(protocol.TextDocumentItem{
		URI:        protocol.DocumentURI(uri.File(path)),
		LanguageID: languageID,
		Version:    1,
		Text:       string(data),
	}), nil
}

// URI returns the document's URI.
func (d *Document) URI() protocol.DocumentURI {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.uri
}

// Path returns the filesystem path for file:// URIs and the raw URI for any
// other scheme, so untitled buffers still get a stable identity.
func (d *Document) Path() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return pathOf(d.uri)
}

func pathOf(u protocol.DocumentURI) string {
	s := string(u)
	if strings.HasPrefix(s, uri.FileScheme+"://") {
		return uri.New(s).Filename()
	}
	return s
}

// LanguageID returns the LSP language identifier (e.g., "go", "python").
func (d *Document) LanguageID() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.languageID
}

// Version returns the document's current version number.
func (d *Document) Version() int32 {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.version
}

// Text returns the full text content of the document.
func (d *Document) Text() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.text
}

// LineAt returns the text of the given zero-based line number.
func (d *Document) LineAt(line uint32) string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return LineAt(d.text, line)
}

// OffsetAt converts an LSP position to a byte offset in the document text.
func (d *Document) OffsetAt(pos protocol.Position) int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return OffsetAt(d.text, pos)
}

// PositionAt converts a byte offset to an LSP position.
func (d *Document) PositionAt(offset int) protocol.Position {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return PositionAt(d.text, offset)
}

// RangeOf converts a byte span to an LSP range.
func (d *Document) RangeOf(start, end int) protocol.Range {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return NewLineIndex(d.text).Range(start, end)
}

// ApplyChanges applies edits and updates the document version.
func (d *Document) ApplyChanges(version int32, changes []protocol.TextDocumentContentChangeEvent) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.text = ApplyChanges(d.text, changes)
	d.version = version
}
