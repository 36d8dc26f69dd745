// Package treesitter manages tree-sitter parse trees for the active
// document: pooled parsers bound to resolved grammars, a tree cache keyed by
// document identity, and structural queries over cached trees.
package treesitter

import (
	"runtime"
	"sync/atomic"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"
)

// Point is a zero-based (row, column) position; columns are byte offsets
// within the row.
type Point = tree_sitter.Point

var generations atomic.Uint64

// Tree is an immutable snapshot of a document's syntax at the moment it was
// parsed. Rebuilding a document produces a new Tree; an existing Tree is
// never edited. The underlying tree-sitter tree is released once the Tree
// and every Node taken from it are unreachable.
type Tree struct {
	raw        *tree_sitter.Tree
	src        []byte
	lang       *tree_sitter.Language
	languageID string
	locator    string
	doc        DocumentID
	generation uint64
}

func newTree(raw *tree_sitter.Tree, src []byte, lang *tree_sitter.Language, languageID, locator string) *Tree {
	t := &Tree{
		raw:        raw,
		src:        src,
		lang:       lang,
		languageID: languageID,
		locator:    locator,
		generation: generations.Add(1),
	}
	runtime.AddCleanup(t, func(raw *tree_sitter.Tree) { raw.Close() }, raw)
	return t
}

// Root returns the root node.
func (t *Tree) Root() Node {
	return Node{tree: t, raw: *t.raw.RootNode()}
}

// Source returns the text the tree was parsed from. Callers must not modify it.
func (t *Tree) Source() []byte { return t.src }

// Language returns the grammar that produced the tree.
func (t *Tree) Language() *tree_sitter.Language { return t.lang }

// LanguageID returns the editor language identifier the tree was built for.
func (t *Tree) LanguageID() string { return t.languageID }

// Locator returns the grammar artifact the tree was parsed with.
func (t *Tree) Locator() string { return t.locator }

// Document returns the identity of the document the tree belongs to.
func (t *Tree) Document() DocumentID { return t.doc }

// Generation is unique per Tree within the process and increases with every
// parse.
func (t *Tree) Generation() uint64 { return t.generation }

// Node is a read-only view of one syntax node. It keeps its Tree alive, so a
// Node is always safe to use for as long as it is held.
type Node struct {
	tree *Tree
	raw  tree_sitter.Node
}

// IsZero reports whether n is the zero Node.
func (n Node) IsZero() bool { return n.tree == nil }

// Tree returns the tree that owns n.
func (n Node) Tree() *Tree { return n.tree }

// Type returns the grammar symbol name.
func (n Node) Type() string { return n.raw.Kind() }

// IsNamed reports whether the node is a named grammar rule rather than an
// anonymous token.
func (n Node) IsNamed() bool { return n.raw.IsNamed() }

// IsError reports whether the node is an ERROR node.
func (n Node) IsError() bool { return n.raw.IsError() }

// HasErrors reports whether the subtree contains syntax errors.
func (n Node) HasErrors() bool { return n.raw.HasError() }

// IsMissing reports whether the node was inserted by error recovery.
func (n Node) IsMissing() bool { return n.raw.IsMissing() }

// StartPosition returns the node's start point.
func (n Node) StartPosition() Point { return n.raw.StartPosition() }

// EndPosition returns the node's end point.
func (n Node) EndPosition() Point { return n.raw.EndPosition() }

// StartIndex returns the byte offset the node starts at.
func (n Node) StartIndex() uint { return n.raw.StartByte() }

// EndIndex returns the byte offset the node ends at.
func (n Node) EndIndex() uint { return n.raw.EndByte() }

// Text returns the source slice the node spans.
func (n Node) Text() string {
	if n.tree == nil {
		return ""
	}
	start, end := n.raw.StartByte(), n.raw.EndByte()
	if start > end || end > uint(len(n.tree.src)) {
		return ""
	}
	return string(n.tree.src[start:end])
}

// ChildCount returns the number of children, named and anonymous.
func (n Node) ChildCount() uint { return n.raw.ChildCount() }

// Child returns the i-th child, or the zero Node when out of range.
func (n Node) Child(i uint) Node {
	c := n.raw.Child(i)
	if c == nil {
		return Node{}
	}
	return Node{tree: n.tree, raw: *c}
}

// Children returns all children in source order.
func (n Node) Children() []Node {
	count := n.raw.ChildCount()
	children := make([]Node, 0, count)
	for i := uint(0); i < count; i++ {
		if c := n.raw.Child(i); c != nil {
			children = append(children, Node{tree: n.tree, raw: *c})
		}
	}
	return children
}

// Sexp returns the s-expression form of the subtree.
func (n Node) Sexp() string { return n.raw.ToSexp() }

// ID identifies the node within its tree.
func (n Node) ID() uintptr { return n.raw.Id() }
