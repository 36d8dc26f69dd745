package treesitter

import (
	"errors"
	"fmt"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/LukasParke/treeviewer/grammar"
)

// Error kinds, matched with errors.Is. A failure from Query also matches
// ErrNoActiveTree alongside its cause; a QueryCompileError matches
// ErrQueryCompile.
var (
	ErrNoActiveDocument  = errors.New("no active document")
	ErrGrammarNotFound   = grammar.ErrNotFound
	ErrGrammarLoadFailed = grammar.ErrLoadFailed
	ErrParseFailed       = errors.New("parse failed")
	ErrNoActiveTree      = errors.New("no active tree")
	ErrQueryCompile      = errors.New("query compile error")
)

// QueryCompileError is returned for a malformed query pattern. Row and
// Column are zero-based.
type QueryCompileError struct {
	Row     uint
	Column  uint
	Offset  uint
	Kind    string
	Message string
}

func (e *QueryCompileError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("invalid query: %s error at %d:%d", e.Kind, e.Row+1, e.Column+1)
	}
	return fmt.Sprintf("invalid query: %s error at %d:%d: %s", e.Kind, e.Row+1, e.Column+1, e.Message)
}

// Is makes errors.Is(err, ErrQueryCompile) true.
func (e *QueryCompileError) Is(target error) bool { return target == ErrQueryCompile }

func newQueryCompileError(qe *tree_sitter.QueryError) *QueryCompileError {
	return &QueryCompileError{
		Row:     qe.Row,
		Column:  qe.Column,
		Offset:  qe.Offset,
		Kind:    queryErrorKind(qe.Kind),
		Message: qe.Message,
	}
}

func queryErrorKind(k tree_sitter.QueryErrorKind) string {
	switch k {
	case tree_sitter.QueryErrorSyntax:
		return "syntax"
	case tree_sitter.QueryErrorNodeType:
		return "node type"
	case tree_sitter.QueryErrorField:
		return "field"
	case tree_sitter.QueryErrorCapture:
		return "capture"
	case tree_sitter.QueryErrorPredicate:
		return "predicate"
	case tree_sitter.QueryErrorStructure:
		return "structure"
	case tree_sitter.QueryErrorLanguage:
		return "language"
	default:
		return "unknown"
	}
}
