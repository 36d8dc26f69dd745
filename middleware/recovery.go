package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/sourcegraph/jsonrpc2"
)

// Recovery returns middleware that recovers from panics in handlers,
// logs the stack trace, and returns an internal error to the client.
func Recovery(logger *slog.Logger) Middleware {
	if logger == nil {
		logger = slog.Default()
	}

	return func(next Handler) Handler {
		return func(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) (result interface{}, err error) {
			defer func() {
				if r := recover(); r != nil {
					logger.Error("panic recovered in handler",
						"method", req.Method,
						"panic", fmt.Sprint(r),
						"stack", string(debug.Stack()),
					)
					result = nil
					err = &jsonrpc2.Error{
						Code:    jsonrpc2.CodeInternalError,
						Message: fmt.Sprintf("internal error: %v", r),
					}
				}
			}()
			return next(ctx, conn, req)
		}
	}
}
