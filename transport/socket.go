package transport

import (
	"context"
	"net"
	"os"
)

// ListenSocket listens on a Unix domain socket and returns the first
// connection as a transport. A stale socket file at path is replaced. Used
// by Neovim's vim.lsp.rpc.connect() and other editors supporting local IPC.
func ListenSocket(ctx context.Context, path string) (Transport, error) {
	os.Remove(path)
	var lc net.ListenConfig
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ln, err := lc.Listen(ctx, "unix", path)
	if err != nil {
		return nil, err
	}
	conn, err := acceptOne(ctx, ln)
	if err != nil {
		os.Remove(path)
		return nil, err
	}
	return &socketTransport{conn: conn, path: path}, nil
}

type socketTransport struct {
	conn net.Conn
	path string
}

func (s *socketTransport) Read(p []byte) (int, error)  { return s.conn.Read(p) }
func (s *socketTransport) Write(p []byte) (int, error) { return s.conn.Write(p) }
func (s *socketTransport) Close() error {
	err := s.conn.Close()
	if s.path != "" {
		os.Remove(s.path)
	}
	return err
}
