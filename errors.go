package treeviewer

import (
	"context"
	"errors"

	"github.com/sourcegraph/jsonrpc2"

	"github.com/LukasParke/treeviewer/inspector"
	"github.com/LukasParke/treeviewer/treesitter"
)

// Error codes sent with failed treeviewer/* requests. The standard JSON-RPC
// codes cover malformed requests and internal failures.
const (
	CodeServerNotInitialized int64 = -32002
	CodeRequestCancelled     int64 = -32800

	CodeNoActiveTree      int64 = -32010
	CodeGrammarNotFound   int64 = -32011
	CodeGrammarLoadFailed int64 = -32012
	CodeParseFailed       int64 = -32013
	CodeStaleNode         int64 = -32014
)

// QueryErrorData is attached to the error for a pattern that does not
// compile.
type QueryErrorData struct {
	Row    uint   `json:"row"`
	Column uint   `json:"column"`
	Offset uint   `json:"offset"`
	Kind   string `json:"kind"`
}

// rpcError maps err to the JSON-RPC error sent to the client.
func rpcError(err error) *jsonrpc2.Error {
	var rerr *jsonrpc2.Error
	if errors.As(err, &rerr) {
		return rerr
	}

	var qerr *treesitter.QueryCompileError
	if errors.As(err, &qerr) {
		e := &jsonrpc2.Error{Code: jsonrpc2.CodeInvalidParams, Message: err.Error()}
		e.SetError(QueryErrorData{Row: qerr.Row, Column: qerr.Column, Offset: qerr.Offset, Kind: qerr.Kind})
		return e
	}

	var code int64 = jsonrpc2.CodeInternalError
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, inspector.ErrCancelled):
		code = CodeRequestCancelled
	case errors.Is(err, treesitter.ErrNoActiveTree), errors.Is(err, treesitter.ErrNoActiveDocument):
		code = CodeNoActiveTree
	case errors.Is(err, treesitter.ErrGrammarNotFound):
		code = CodeGrammarNotFound
	case errors.Is(err, treesitter.ErrGrammarLoadFailed):
		code = CodeGrammarLoadFailed
	case errors.Is(err, treesitter.ErrParseFailed):
		code = CodeParseFailed
	case errors.Is(err, errStaleNode):
		code = CodeStaleNode
	}
	return &jsonrpc2.Error{Code: code, Message: err.Error()}
}

func invalidParams(msg string) *jsonrpc2.Error {
	return &jsonrpc2.Error{Code: jsonrpc2.CodeInvalidParams, Message: msg}
}
