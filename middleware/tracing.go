package middleware

import (
	"context"
	"log/slog"

	"github.com/sourcegraph/jsonrpc2"
)

type traceKey struct{}

type trace struct {
	method string
	id     string
}

// Tracing returns middleware that records the method and request ID in the
// context, so handlers can log with them attached.
func Tracing() Middleware {
	return func(next Handler) Handler {
		return func(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) (interface{}, error) {
			tr := trace{method: req.Method}
			if !req.Notif {
				tr.id = req.ID.String()
			}
			return next(context.WithValue(ctx, traceKey{}, tr), conn, req)
		}
	}
}

// TraceMethod returns the method name set by Tracing, if any.
func TraceMethod(ctx context.Context) string {
	tr, _ := ctx.Value(traceKey{}).(trace)
	return tr.method
}

// Logger returns base with the traced method and request ID attached.
func Logger(ctx context.Context, base *slog.Logger) *slog.Logger {
	tr, ok := ctx.Value(traceKey{}).(trace)
	if !ok {
		return base
	}
	if tr.id == "" {
		return base.With("method", tr.method)
	}
	return base.With("method", tr.method, "id", tr.id)
}
