// Package document provides a thread-safe document store and position
// utilities. Documents are tracked via didOpen/didChange/didClose, and the
// store remembers which one the user is looking at.
package document

import (
	"fmt"
	"sort"
	"sync"

	"github.com/LukasParke/treeviewer/protocol"
)

// Store is a thread-safe store of open text documents plus the identity of
// the active one.
type Store struct {
	mu     sync.RWMutex
	docs   map[protocol.DocumentURI]*Document
	active protocol.DocumentURI

	onOpenCallbacks   []func(doc *Document)
	onCloseCallbacks  []func(uri protocol.DocumentURI)
	onActiveCallbacks []func(doc *Document)
}

// NewStore creates a new empty document store.
func NewStore() *Store {
	return &Store{
		docs: make(map[protocol.DocumentURI]*Document),
	}
}

// OnOpen registers a callback called when a document is opened. Multiple
// callbacks can be registered; they fire in registration order.
func (s *Store) OnOpen(fn func(doc *Document)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onOpenCallbacks = append(s.onOpenCallbacks, fn)
}

// OnClose registers a callback called when a document is closed. Multiple
// callbacks can be registered; they fire in registration order.
func (s *Store) OnClose(fn func(uri protocol.DocumentURI)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onCloseCallbacks = append(s.onCloseCallbacks, fn)
}

// OnActiveChange registers a callback called whenever the active document
// is set, including to the document that was already active. doc is nil
// when no document is active any more.
func (s *Store) OnActiveChange(fn func(doc *Document)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onActiveCallbacks = append(s.onActiveCallbacks, fn)
}

// Get returns the document for the given URI, or nil if not found.
func (s *Store) Get(uri protocol.DocumentURI) *Document {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.docs[uri]
}

// URIs returns all open document URIs, sorted.
func (s *Store) URIs() []protocol.DocumentURI {
	s.mu.RLock()
	defer s.mu.RUnlock()
	uris := make([]protocol.DocumentURI, 0, len(s.docs))
	for uri := range s.docs {
		uris = append(uris, uri)
	}
	sort.Slice(uris, func(i, j int) bool { return uris[i] < uris[j] })
	return uris
}

// Open adds a document to the store from a didOpen notification.
func (s *Store) Open(params *protocol.DidOpenTextDocumentParams) {
	s.Add(New(params.TextDocument))
}

// Add puts doc in the store, replacing any document with the same URI.
func (s *Store) Add(doc *Document) {
	s.mu.Lock()
	s.docs[doc.URI()] = doc
	callbacks := make([]func(doc *Document), len(s.onOpenCallbacks))
	copy(callbacks, s.onOpenCallbacks)
	s.mu.Unlock()

	for _, cb := range callbacks {
		cb(doc)
	}
}

// Change applies edits from a didChange notification.
func (s *Store) Change(params *protocol.DidChangeTextDocumentParams) {
	s.mu.RLock()
	doc := s.docs[params.TextDocument.URI]
	s.mu.RUnlock()

	if doc != nil {
		doc.ApplyChanges(params.TextDocument.Version, params.ContentChanges)
	}
}

// Close removes a document from the store. Closing the active document
// clears the active selection.
func (s *Store) Close(params *protocol.DidCloseTextDocumentParams) {
	uri := params.TextDocument.URI

	s.mu.Lock()
	delete(s.docs, uri)
	wasActive := s.active == uri
	if wasActive {
		s.active = ""
	}
	callbacks := make([]func(uri protocol.DocumentURI), len(s.onCloseCallbacks))
	copy(callbacks, s.onCloseCallbacks)
	active := s.activeCallbacks()
	s.mu.Unlock()

	for _, cb := range callbacks {
		cb(uri)
	}
	if wasActive {
		for _, cb := range active {
			cb(nil)
		}
	}
}

// SetActive marks uri as the active document. An empty uri clears it. The
// document must be open.
func (s *Store) SetActive(uri protocol.DocumentURI) error {
	s.mu.Lock()
	var doc *Document
	if uri != "" {
		doc = s.docs[uri]
		if doc == nil {
			s.mu.Unlock()
			return fmt.Errorf("document %s is not open", uri)
		}
	}
	s.active = uri
	callbacks := s.activeCallbacks()
	s.mu.Unlock()

	for _, cb := range callbacks {
		cb(doc)
	}
	return nil
}

// ActiveDocument returns the active document, if any.
func (s *Store) ActiveDocument() (*Document, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.active == "" {
		return nil, false
	}
	doc, ok := s.docs[s.active]
	return doc, ok
}

func (s *Store) activeCallbacks() []func(doc *Document) {
	callbacks := make([]func(doc *Document), len(s.onActiveCallbacks))
	copy(callbacks, s.onActiveCallbacks)
	return callbacks
}
