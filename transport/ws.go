package transport

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"

	"golang.org/x/net/websocket"
)

// ListenWebSocket serves WebSocket upgrades on addr and returns the first
// connection as a transport. Used by Monaco, Theia, and other web-based
// editors. Each WebSocket message carries a slice of the byte stream, so
// message boundaries need not match JSON-RPC frames.
func ListenWebSocket(ctx context.Context, addr string) (Transport, error) {
	var lc net.ListenConfig
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}

	connCh := make(chan *wsTransport, 1)
	srv := &http.Server{}
	srv.Handler = websocket.Handler(func(ws *websocket.Conn) {
		t := &wsTransport{conn: ws, srv: srv, done: make(chan struct{})}
		select {
		case connCh <- t:
			// The handler returning closes ws, so hold it until the
			// transport is closed.
			<-t.done
		default:
		}
	})
	serveErr := make(chan error, 1)
	go func() { serveErr <- srv.Serve(ln) }()

	select {
	case t := <-connCh:
		return t, nil
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			err = net.ErrClosed
		}
		return nil, err
	case <-ctx.Done():
		srv.Close()
		return nil, ctx.Err()
	}
}

type wsTransport struct {
	conn *websocket.Conn
	srv  *http.Server

	mu      sync.Mutex
	pending []byte

	closeOnce sync.Once
	done      chan struct{}
}

func (w *wsTransport) Read(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for len(w.pending) == 0 {
		var msg []byte
		if err := websocket.Message.Receive(w.conn, &msg); err != nil {
			return 0, err
		}
		w.pending = msg
	}
	n := copy(p, w.pending)
	w.pending = w.pending[n:]
	return n, nil
}

func (w *wsTransport) Write(p []byte) (int, error) {
	if err := websocket.Message.Send(w.conn, p); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (w *wsTransport) Close() error {
	var err error
	w.closeOnce.Do(func() {
		close(w.done)
		err = w.conn.Close()
		if w.srv != nil {
			w.srv.Close()
		}
	})
	return err
}
