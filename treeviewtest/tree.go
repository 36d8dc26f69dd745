package treeviewtest

import (
	"context"
	"testing"

	"github.com/LukasParke/treeviewer/grammar"
	"github.com/LukasParke/treeviewer/treesitter"
)

// ParseString parses src with the built-in grammar registered for
// languageID. It fails the test if the grammar cannot be resolved or the
// parse fails.
func ParseString(t testing.TB, languageID, src string) *treesitter.Tree {
	t.Helper()
	registry, err := grammar.DefaultRegistry()
	if err != nil {
		t.Fatalf("loading built-in grammars: %v", err)
	}
	pool := treesitter.NewPool(registry, grammar.NewLoader())
	t.Cleanup(pool.Close)

	tree, err := pool.Build(context.Background(), languageID, []byte(src))
	if err != nil {
		t.Fatalf("parsing %s: %v", languageID, err)
	}
	return tree
}

// AssertNodeKind asserts that a syntax node has the expected kind.
func AssertNodeKind(t testing.TB, node treesitter.Node, kind string) {
	t.Helper()
	if node.IsZero() {
		t.Fatalf("node is zero, expected kind %q", kind)
	}
	if node.Type() != kind {
		t.Errorf("node kind = %q, want %q", node.Type(), kind)
	}
}

// AssertNoErrors asserts that the parse tree contains no ERROR nodes.
func AssertNoErrors(t testing.TB, tree *treesitter.Tree) {
	t.Helper()
	if tree == nil {
		t.Fatal("tree is nil")
	}
	if tree.Root().HasErrors() {
		t.Errorf("parse tree contains errors: %s", tree.Root().Sexp())
	}
}

// FindKind returns the first node of the given kind in document order.
func FindKind(t testing.TB, root treesitter.Node, kind string) treesitter.Node {
	t.Helper()
	if n, ok := findKind(root, kind); ok {
		return n
	}
	t.Fatalf("no %q node under %s", kind, root.Type())
	return treesitter.Node{}
}

func findKind(n treesitter.Node, kind string) (treesitter.Node, bool) {
	if n.Type() == kind {
		return n, true
	}
	for _, c := range n.Children() {
		if found, ok := findKind(c, kind); ok {
			return found, true
		}
	}
	return treesitter.Node{}, false
}
