// Package middleware provides composable middleware for the treeviewer
// JSON-RPC server. Middleware wraps request dispatch, so cross-cutting
// concerns like logging, panic recovery and metrics apply to every method.
package middleware

import (
	"context"
	"log/slog"

	"github.com/sourcegraph/jsonrpc2"
)

// Handler processes one JSON-RPC request or notification. The result is
// ignored for notifications.
type Handler func(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) (interface{}, error)

// Middleware wraps a Handler to add cross-cutting behavior.
type Middleware func(Handler) Handler

// Chain composes middleware so that the first one is outermost.
func Chain(mws ...Middleware) Middleware {
	return func(next Handler) Handler {
		for i := len(mws) - 1; i >= 0; i-- {
			next = mws[i](next)
		}
		return next
	}
}

// Standard is the chain every server request passes through, outermost
// first: panic recovery, tracing, logging and telemetry, followed by extra.
func Standard(logger *slog.Logger, metrics *Metrics, extra ...Middleware) Middleware {
	mws := []Middleware{Recovery(logger), Tracing(), Logging(logger), Telemetry(metrics)}
	return Chain(append(mws, extra...)...)
}
