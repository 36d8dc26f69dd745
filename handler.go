package treeviewer

import (
	"context"

	"github.com/sourcegraph/jsonrpc2"

	"github.com/LukasParke/treeviewer/middleware"
	"github.com/LukasParke/treeviewer/protocol"
)

// methodFunc handles one method after the lifecycle checks.
type methodFunc func(ctx context.Context, req *jsonrpc2.Request) (interface{}, error)

func (s *Server) routes() map[string]methodFunc {
	return map[string]methodFunc{
		protocol.MethodDidOpen:               s.handleDidOpen,
		protocol.MethodDidChange:             s.handleDidChange,
		protocol.MethodDidClose:              s.handleDidClose,
		protocol.MethodDidChangeActiveEditor: s.handleDidChangeActiveEditor,
		protocol.MethodTree:                  s.handleTree,
		protocol.MethodChildren:              s.handleChildren,
		protocol.MethodReloadTree:            s.handleReloadTree,
		protocol.MethodQuery:                 s.handleQuery,
		protocol.MethodRegisterGrammar:       s.handleRegisterGrammar,
		protocol.MethodCopyNode:              s.handleCopyNode,
		protocol.MethodGrammars:              s.handleGrammars,
		protocol.MethodStats:                 s.handleStats,
	}
}

// handler adapts the server's middleware chain to jsonrpc2.Handler.
// Notifications run on the connection's read loop, so document sync is
// applied in arrival order. Requests each run on their own goroutine, which
// lets a handler wait on a request it sent to the client.
type handler struct {
	chain  middleware.Handler
	server *Server
}

func (s *Server) newHandler() *handler {
	chain := middleware.Standard(s.logger, s.metrics, s.middlewares...)
	return &handler{chain: chain(s.dispatch), server: s}
}

func (h *handler) Handle(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) {
	if req.Notif {
		_, _ = h.chain(ctx, conn, req)
		return
	}
	go h.reply(ctx, conn, req)
}

func (h *handler) reply(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) {
	result, err := h.chain(ctx, conn, req)
	if err != nil {
		err = conn.ReplyWithError(ctx, req.ID, rpcError(err))
	} else {
		err = conn.Reply(ctx, req.ID, result)
	}
	if err != nil {
		h.server.logger.Debug("sending reply", "method", req.Method, "error", err)
	}
}
