package middleware

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/sourcegraph/jsonrpc2"
)

// Logging returns middleware that logs every request with its duration.
// Successes log at debug. Errors the server chose to return, such as a bad
// query or a stale node, log at warn; anything else at error. Placed inside
// Tracing, the lines carry the traced method and ID.
func Logging(logger *slog.Logger) Middleware {
	return func(next Handler) Handler {
		return func(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) (interface{}, error) {
			start := time.Now()
			result, err := next(ctx, conn, req)

			l := requestLogger(ctx, logger, req)
			elapsed := slog.Duration("duration", time.Since(start))
			switch {
			case err == nil:
				l.LogAttrs(ctx, slog.LevelDebug, "request handled", elapsed)
			case isRejection(err):
				l.LogAttrs(ctx, slog.LevelWarn, "request rejected", elapsed, slog.String("error", err.Error()))
			default:
				l.LogAttrs(ctx, slog.LevelError, "request failed", elapsed, slog.String("error", err.Error()))
			}
			return result, err
		}
	}
}

func requestLogger(ctx context.Context, base *slog.Logger, req *jsonrpc2.Request) *slog.Logger {
	if _, traced := ctx.Value(traceKey{}).(trace); traced {
		return Logger(ctx, base)
	}
	if req.Notif {
		return base.With("method", req.Method)
	}
	return base.With("method", req.Method, "id", req.ID.String())
}

func isRejection(err error) bool {
	var rpcErr *jsonrpc2.Error
	return errors.As(err, &rpcErr) && rpcErr.Code != jsonrpc2.CodeInternalError
}
