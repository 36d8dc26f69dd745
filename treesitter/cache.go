package treesitter

import (
	"context"
	"path/filepath"
	"strings"
	"sync"

	"go.lsp.dev/uri"
	"golang.org/x/sync/singleflight"
)

// DocumentID is the cache key for a document: its canonical path, lower-cased.
// Paths differing only in case map to the same identity.
type DocumentID string

// NewDocumentID derives the identity of a document from a filesystem path or
// a file:// URI.
func NewDocumentID(pathOrURI string) DocumentID {
	p := pathOrURI
	if strings.HasPrefix(p, uri.FileScheme+"://") {
		p = uri.New(p).Filename()
	}
	if p != "" {
		p = filepath.Clean(p)
	}
	return DocumentID(strings.ToLower(p))
}

// Builder produces a fresh tree for a document's text.
type Builder interface {
	Build(ctx context.Context, languageID string, src []byte) (*Tree, error)
}

// Cache maps document identities to their most recent tree. Entries are
// replaced whole, so a reader sees either the old tree or the new one.
//
// Every build takes a ticket when it starts. A finished build is published
// only if no later build, Put or Invalidate has touched the document since,
// so a slow parse of older text never replaces a newer tree.
type Cache struct {
	mu    sync.RWMutex
	trees map[DocumentID]*Tree
	marks map[DocumentID]uint64
	seq   uint64
	floor uint64
	group singleflight.Group
}

// NewCache creates an empty tree cache.
func NewCache() *Cache {
	return &Cache{
		trees: make(map[DocumentID]*Tree),
		marks: make(map[DocumentID]uint64),
	}
}

// Get returns the cached tree for id.
func (c *Cache) Get(id DocumentID) (*Tree, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	t, ok := c.trees[id]
	return t, ok
}

// Put replaces the entry for id.
func (c *Cache) Put(id DocumentID, tree *Tree) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	c.marks[id] = c.seq
	c.trees[id] = tree
}

// Invalidate drops the entry for id. Builds already running for id are not
// published.
func (c *Cache) Invalidate(id DocumentID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	c.marks[id] = c.seq
	delete(c.trees, id)
}

// Len returns the number of cached trees.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.trees)
}

// Clear drops every entry.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	c.floor = c.seq
	clear(c.trees)
	clear(c.marks)
}

func (c *Cache) ticket() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	return c.seq
}

// publish stores tree if the build holding ticket is the newest to finish
// for id. Otherwise it returns the tree that superseded it, or tree itself
// when the entry was dropped.
func (c *Cache) publish(id DocumentID, tree *Tree, ticket uint64) *Tree {
	c.mu.Lock()
	defer c.mu.Unlock()
	if ticket <= c.floor || ticket <= c.marks[id] {
		if cur, ok := c.trees[id]; ok {
			return cur
		}
		return tree
	}
	c.marks[id] = ticket
	c.trees[id] = tree
	return tree
}

// GetOrBuild returns the cached tree for id unless force is set or there is
// none, in which case it builds one from src and caches it. A cached tree is
// returned as is even if src has changed since it was built; callers that
// know the text changed must force. Concurrent builds of the same document
// share one parse, which runs to completion even if some of the callers
// waiting on it give up. A failed build leaves the existing entry in place.
func (c *Cache) GetOrBuild(ctx context.Context, b Builder, id DocumentID, languageID string, src []byte, force bool) (*Tree, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !force {
		if t, ok := c.Get(id); ok {
			return t, nil
		}
	}

	key := string(id)
	if force {
		key = "force\x00" + key
	}
	buildCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(key, func() (interface{}, error) {
		ticket := c.ticket()
		t, err := b.Build(buildCtx, languageID, src)
		if err != nil {
			return nil, err
		}
		t.doc = id
		return c.publish(id, t, ticket), nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Tree), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
