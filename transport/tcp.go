package transport

import (
	"context"
	"net"
)

type tcpTransport struct {
	conn net.Conn
}

// TCP creates a transport from a TCP connection.
func TCP(conn net.Conn) Transport {
	return &tcpTransport{conn: conn}
}

func (t *tcpTransport) Read(p []byte) (int, error)  { return t.conn.Read(p) }
func (t *tcpTransport) Write(p []byte) (int, error) { return t.conn.Write(p) }
func (t *tcpTransport) Close() error                { return t.conn.Close() }

// ListenTCP listens on addr and returns the first connection as a transport.
// This is the typical mode for servers accepting a single editor client.
func ListenTCP(ctx context.Context, addr string) (Transport, error) {
	var lc net.ListenConfig
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}
	conn, err := acceptOne(ctx, ln)
	if err != nil {
		return nil, err
	}
	return TCP(conn), nil
}
