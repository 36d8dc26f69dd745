package projection_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/LukasParke/treeviewer/projection"
	"github.com/LukasParke/treeviewer/treeviewtest"
)

func TestRootAndChildren(t *testing.T) {
	tree := treeviewtest.ParseString(t, "javascript", "let x = 1;")
	treeviewtest.AssertNoErrors(t, tree)
	p := projection.Projector{}

	root := p.Root(tree)
	require.IsType(t, &projection.Internal{}, root)
	require.Equal(t, "program", p.Label(root))
	require.Equal(t, "let x = 1;", p.Tooltip(root))

	children := p.Children(root)
	require.Len(t, children, 1)
	require.Equal(t, "lexical_declaration", p.Label(children[0]))

	var labels []string
	for _, c := range p.Children(children[0]) {
		labels = append(labels, p.Label(c))
	}
	require.Equal(t, []string{"let", "variable_declarator", ";"}, labels)
}

func TestZeroChildNodeYieldsOneTerminal(t *testing.T) {
	tree := treeviewtest.ParseString(t, "javascript", "let x = 1;")
	p := projection.Projector{}

	ident := treeviewtest.FindKind(t, tree.Root(), "identifier")
	require.Zero(t, ident.ChildCount())

	var internal projection.Node
	for _, e := range p.Expand(p.Root(tree), -1) {
		if in, ok := e.Node.(*projection.Internal); ok && in.Syntax().Type() == "identifier" {
			internal = in
			break
		}
	}
	require.NotNil(t, internal)

	leaves := p.Children(internal)
	require.Len(t, leaves, 1)
	term, ok := leaves[0].(*projection.Terminal)
	require.True(t, ok)
	require.Equal(t, `"x"`, p.Label(term))
	require.Equal(t, "x", p.Tooltip(term))
	require.Empty(t, p.Children(term))
	require.False(t, projection.Expandable(term))
	require.True(t, projection.Expandable(internal))
}

func TestTerminalLabelQuotesText(t *testing.T) {
	tree := treeviewtest.ParseString(t, "javascript", `let s = "a\tb";`)
	p := projection.Projector{}

	escape := treeviewtest.FindKind(t, tree.Root(), "escape_sequence")
	var term projection.Node
	for _, e := range p.Expand(p.Root(tree), -1) {
		if tm, ok := e.Node.(*projection.Terminal); ok && tm.Syntax().ID() == escape.ID() {
			term = tm
		}
	}
	require.NotNil(t, term)
	require.Equal(t, `"\\t"`, p.Label(term))
	require.Equal(t, `\t`, p.Tooltip(term))
}

func TestPositionLabels(t *testing.T) {
	tree := treeviewtest.ParseString(t, "javascript", "function f() {\n  return 1;\n}\nlet x = 1;")

	plain := projection.Projector{}
	withPos := projection.Projector{ShowPositions: true}

	root := plain.Root(tree)
	children := plain.Children(root)
	require.Len(t, children, 2)

	require.Equal(t, "function_declaration", plain.Label(children[0]))
	require.Equal(t, "function_declaration [Ln 1-3]", withPos.Label(children[0]))
	require.Equal(t, "lexical_declaration [Ln 4, Col 1-11]", withPos.Label(children[1]))

	ident := treeviewtest.FindKind(t, tree.Root(), "identifier")
	require.Equal(t, "[Ln 1, Col 10-11]", projection.Span(ident))
}

func TestExpandDepth(t *testing.T) {
	tree := treeviewtest.ParseString(t, "json", `{"a": [1]}`)
	p := projection.Projector{}
	root := p.Root(tree)

	require.Len(t, p.Expand(root, 0), 1)

	one := p.Expand(root, 1)
	require.Len(t, one, 2)
	require.Equal(t, 1, one[1].Depth)
	require.Equal(t, "object", p.Label(one[1].Node))

	all := p.Expand(root, -1)
	last := all[len(all)-1]
	require.IsType(t, &projection.Terminal{}, last.Node)
}

func TestWriteOutline(t *testing.T) {
	tree := treeviewtest.ParseString(t, "json", `[1]`)
	p := projection.Projector{}

	var b strings.Builder
	require.NoError(t, p.Write(&b, p.Root(tree), -1))
	require.Equal(t, "document\n  array\n    [\n      \"[\"\n    number\n      \"1\"\n    ]\n      \"]\"\n", b.String())
}

func BenchmarkChildren(b *testing.B) {
	src := strings.Repeat("function f(a, b) { return a + b * 2; }\n", 500)
	tree := treeviewtest.ParseString(b, "javascript", src)
	p := projection.Projector{ShowPositions: true}
	root := p.Root(tree)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		for _, c := range p.Children(root) {
			_ = p.Label(c)
		}
	}
}
