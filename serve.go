package treeviewer

import (
	"context"
	"fmt"
	"io"

	"github.com/sourcegraph/jsonrpc2"

	"github.com/LukasParke/treeviewer/transport"
)

// Serve opens the transport described by spec and serves one client on it
// until the client disconnects or ctx is done.
func Serve(ctx context.Context, s *Server, spec transport.Spec) error {
	t, err := transport.Open(ctx, spec)
	if err != nil {
		return fmt.Errorf("creating transport: %w", err)
	}
	s.logger.Info("treeviewer server starting",
		"name", s.name,
		"version", s.version,
		"transport", spec.String(),
	)
	return s.ServeConn(ctx, t)
}

// ServeConn serves one client over rwc, which it closes on return.
func (s *Server) ServeConn(ctx context.Context, rwc io.ReadWriteCloser) error {
	stream := jsonrpc2.NewBufferedStream(rwc, jsonrpc2.VSCodeObjectCodec{})
	conn := jsonrpc2.NewConn(ctx, stream, s.newHandler())

	s.mu.Lock()
	s.client = newClientProxy(conn)
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.client = nil
		s.mu.Unlock()
	}()

	select {
	case <-conn.DisconnectNotify():
		s.logger.Info("client disconnected")
		return nil
	case <-ctx.Done():
		conn.Close()
		<-conn.DisconnectNotify()
		return ctx.Err()
	}
}
