// Package transport provides pluggable byte-stream transports for the
// treeviewer server. Supported transports include stdio, TCP, Unix domain
// sockets, named pipes, WebSocket, and Node.js IPC (VS Code extension host).
package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
)

// Transport provides a bidirectional byte stream for JSON-RPC communication.
// Each implementation wraps a specific communication mechanism (stdio, TCP, etc.)
// and exposes it as a simple reader/writer pair.
type Transport interface {
	io.ReadWriteCloser
}

// Spec selects a transport. At most one field may be set; the zero Spec
// means stdio.
type Spec struct {
	Stdio     bool
	TCP       string
	Socket    string
	Pipe      string
	WebSocket string
	NodeIPC   bool
}

// Validate reports a Spec that names more than one transport.
func (s Spec) Validate() error {
	n := 0
	for _, set := range []bool{s.Stdio, s.TCP != "", s.Socket != "", s.Pipe != "", s.WebSocket != "", s.NodeIPC} {
		if set {
			n++
		}
	}
	if n > 1 {
		return errors.New("choose at most one transport")
	}
	return nil
}

func (s Spec) String() string {
	switch {
	case s.TCP != "":
		return "tcp " + s.TCP
	case s.Socket != "":
		return "socket " + s.Socket
	case s.Pipe != "":
		return "pipe " + s.Pipe
	case s.WebSocket != "":
		return "websocket " + s.WebSocket
	case s.NodeIPC:
		return "node-ipc"
	default:
		return "stdio"
	}
}

// Open creates the transport s selects. Listening transports block until
// the first client connects or ctx is done.
func Open(ctx context.Context, s Spec) (Transport, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	var (
		t   Transport
		err error
	)
	switch {
	case s.TCP != "":
		t, err = ListenTCP(ctx, s.TCP)
	case s.Socket != "":
		t, err = ListenSocket(ctx, s.Socket)
	case s.Pipe != "":
		t, err = ListenPipe(ctx, s.Pipe)
	case s.WebSocket != "":
		t, err = ListenWebSocket(ctx, s.WebSocket)
	case s.NodeIPC:
		t = NodeIPC()
	default:
		t = Stdio()
	}
	if err != nil {
		return nil, fmt.Errorf("opening %s transport: %w", s, err)
	}
	return t, nil
}

// acceptOne accepts a single connection from ln, giving up when ctx is
// done. ln is closed on return.
func acceptOne(ctx context.Context, ln net.Listener) (net.Conn, error) {
	stop := context.AfterFunc(ctx, func() { ln.Close() })
	defer stop()
	defer ln.Close()

	conn, err := ln.Accept()
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, err
	}
	return conn, nil
}
