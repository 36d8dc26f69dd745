// Package projection turns parse trees into lazily expanded, navigable
// display nodes. Nothing below the requested level is ever materialised, so
// arbitrarily large trees can be browsed one expansion at a time.
package projection

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/LukasParke/treeviewer/treesitter"
)

// Node is a projected tree node: either *Internal or *Terminal.
type Node interface {
	// Syntax returns the syntax node the projection wraps.
	Syntax() treesitter.Node
	node()
}

// Internal projects a syntax node by its grammar symbol. It always has at
// least one child in the projection.
type Internal struct {
	syntax treesitter.Node
}

// Terminal is the synthetic leaf shown under a syntax node that has no
// children of its own. It carries that node's text and never has children.
type Terminal struct {
	syntax treesitter.Node
}

func (n *Internal) Syntax() treesitter.Node { return n.syntax }
func (n *Terminal) Syntax() treesitter.Node { return n.syntax }

func (*Internal) node() {}
func (*Terminal) node() {}

// Projector computes projection nodes and their presentation.
type Projector struct {
	// ShowPositions appends the source span to internal node labels.
	ShowPositions bool
}

// Root returns the projection of the tree's root node.
func (p Projector) Root(tree *treesitter.Tree) Node {
	return &Internal{syntax: tree.Root()}
}

// Of returns the projection of an arbitrary syntax node, such as a query
// match, so it can be expanded like any other.
func Of(n treesitter.Node) Node {
	return &Internal{syntax: n}
}

// Children returns the next level below n. A syntax node without children
// yields exactly one Terminal; a Terminal yields nothing.
func (p Projector) Children(n Node) []Node {
	switch n := n.(type) {
	case *Internal:
		count := n.syntax.ChildCount()
		if count == 0 {
			return []Node{&Terminal{syntax: n.syntax}}
		}
		children := make([]Node, 0, count)
		for _, c := range n.syntax.Children() {
			children = append(children, &Internal{syntax: c})
		}
		return children
	case *Terminal:
		return nil
	default:
		panic(fmt.Sprintf("projection: unexpected node %T", n))
	}
}

// Label is the text shown for n.
func (p Projector) Label(n Node) string {
	switch n := n.(type) {
	case *Internal:
		if !p.ShowPositions {
			return n.syntax.Type()
		}
		return n.syntax.Type() + " " + Span(n.syntax)
	case *Terminal:
		return strconv.Quote(n.syntax.Text())
	default:
		panic(fmt.Sprintf("projection: unexpected node %T", n))
	}
}

// Tooltip is the full source text spanned by n.
func (p Projector) Tooltip(n Node) string {
	switch n := n.(type) {
	case *Internal:
		return n.syntax.Text()
	case *Terminal:
		return n.syntax.Text()
	default:
		panic(fmt.Sprintf("projection: unexpected node %T", n))
	}
}

// Expandable reports whether n has children in the projection.
func Expandable(n Node) bool {
	_, ok := n.(*Internal)
	return ok
}

// Span formats the 1-based source span of a syntax node: "[Ln a-b]" when
// it covers several lines, "[Ln a, Col c-d]" otherwise. Columns are cursor
// positions, so d is one past the last character.
func Span(n treesitter.Node) string {
	start, end := n.StartPosition(), n.EndPosition()
	if start.Row != end.Row {
		return fmt.Sprintf("[Ln %d-%d]", start.Row+1, end.Row+1)
	}
	return fmt.Sprintf("[Ln %d, Col %d-%d]", start.Row+1, start.Column+1, end.Column+1)
}

// Entry is one row of an expanded subtree.
type Entry struct {
	Node  Node
	Depth int
}

// Expand walks n depth-first down to maxDepth levels below it (negative
// means unlimited) and returns the rows in display order, n first.
func (p Projector) Expand(n Node, maxDepth int) []Entry {
	var out []Entry
	var walk func(n Node, depth int)
	walk = func(n Node, depth int) {
		out = append(out, Entry{Node: n, Depth: depth})
		if maxDepth >= 0 && depth >= maxDepth {
			return
		}
		for _, c := range p.Children(n) {
			walk(c, depth+1)
		}
	}
	walk(n, 0)
	return out
}

// Write renders Expand(n, maxDepth) as an indented outline.
func (p Projector) Write(w io.Writer, n Node, maxDepth int) error {
	for _, e := range p.Expand(n, maxDepth) {
		if _, err := fmt.Fprintf(w, "%s%s\n", strings.Repeat("  ", e.Depth), p.Label(e.Node)); err != nil {
			return err
		}
	}
	return nil
}
