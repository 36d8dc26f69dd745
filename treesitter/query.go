package treesitter

import (
	"sync"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"
)

// Match pairs a captured node with the capture name used in the pattern.
type Match struct {
	Node         Node
	CaptureName  string
	PatternIndex uint
}

// CompiledQuery is a pattern compiled against one grammar. It holds no
// evaluation state and can be evaluated any number of times, concurrently.
type CompiledQuery struct {
	query *tree_sitter.Query
	names []string
	lang  *tree_sitter.Language
	once  sync.Once
}

// Compile compiles pattern for lang. A malformed pattern returns a
// *QueryCompileError carrying the engine's diagnostic.
func Compile(pattern string, lang *tree_sitter.Language) (*CompiledQuery, error) {
	if lang == nil {
		return nil, &QueryCompileError{Kind: "language", Message: "no grammar to compile against"}
	}
	q, qerr := tree_sitter.NewQuery(lang, pattern)
	if qerr != nil {
		return nil, newQueryCompileError(qerr)
	}
	return &CompiledQuery{query: q, names: q.CaptureNames(), lang: lang}, nil
}

// CaptureNames returns the capture names declared by the pattern, indexed
// by capture id.
func (q *CompiledQuery) CaptureNames() []string { return q.names }

// Evaluate runs the query over the subtree rooted at root and returns every
// capture in the order the nodes appear in the document.
func (q *CompiledQuery) Evaluate(root Node) []Match {
	if root.IsZero() {
		return nil
	}
	cursor := tree_sitter.NewQueryCursor()
	defer cursor.Close()

	var matches []Match
	captures := cursor.Captures(q.query, &root.raw, root.tree.src)
	for {
		m, idx := captures.Next()
		if m == nil {
			break
		}
		c := m.Captures[idx]
		name := ""
		if int(c.Index) < len(q.names) {
			name = q.names[c.Index]
		}
		matches = append(matches, Match{
			Node:         Node{tree: root.tree, raw: c.Node},
			CaptureName:  name,
			PatternIndex: m.PatternIndex,
		})
	}
	return matches
}

// Close releases the compiled query.
func (q *CompiledQuery) Close() {
	q.once.Do(func() { q.query.Close() })
}
