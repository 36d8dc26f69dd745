package transport_test

import (
	"context"
	"io"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/net/websocket"

	"github.com/LukasParke/treeviewer/transport"
)

func TestMemoryPipe(t *testing.T) {
	client, server := transport.MemoryPipe()

	_, err := client.Write([]byte("ping"))
	require.NoError(t, err)
	buf := make([]byte, 4)
	_, err = io.ReadFull(server, buf)
	require.NoError(t, err)
	require.Equal(t, "ping", string(buf))

	require.NoError(t, client.Close())
	_, err = server.Read(buf)
	require.ErrorIs(t, err, io.EOF)
	_, err = server.Write([]byte("x"))
	require.ErrorIs(t, err, io.ErrClosedPipe)
}

func TestSpecValidate(t *testing.T) {
	require.NoError(t, transport.Spec{}.Validate())
	require.NoError(t, transport.Spec{TCP: ":0"}.Validate())
	require.Error(t, transport.Spec{Stdio: true, TCP: ":0"}.Validate())
	require.Equal(t, "stdio", transport.Spec{}.String())
	require.Equal(t, "websocket :9258", transport.Spec{WebSocket: ":9258"}.String())

	_, err := transport.Open(context.Background(), transport.Spec{NodeIPC: true, Socket: "/tmp/x"})
	require.Error(t, err)
}

func freeAddr(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())
	return addr
}

func TestListenTCP(t *testing.T) {
	addr := freeAddr(t)
	ctx := context.Background()

	got := make(chan transport.Transport, 1)
	go func() {
		tr, err := transport.Open(ctx, transport.Spec{TCP: addr})
		if err == nil {
			got <- tr
		}
		close(got)
	}()

	var conn net.Conn
	require.Eventually(t, func() bool {
		var err error
		conn, err = net.Dial("tcp", addr)
		return err == nil
	}, 2*time.Second, 10*time.Millisecond)
	defer conn.Close()

	srv := <-got
	require.NotNil(t, srv)
	defer srv.Close()

	_, err := conn.Write([]byte("hello"))
	require.NoError(t, err)
	buf := make([]byte, 5)
	_, err = io.ReadFull(srv, buf)
	require.NoError(t, err)
	require.Equal(t, "hello", string(buf))
}

func TestListenTCPCancelled(t *testing.T) {
	addr := freeAddr(t)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := transport.ListenTCP(ctx, addr)
		done <- err
	}()
	cancel()
	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("listener did not stop")
	}
}

func TestSocketAndDialPipe(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tv.sock")
	ctx := context.Background()

	got := make(chan transport.Transport, 1)
	go func() {
		tr, err := transport.ListenPipe(ctx, path)
		if err == nil {
			got <- tr
		}
		close(got)
	}()

	var client transport.Transport
	require.Eventually(t, func() bool {
		var err error
		client, err = transport.DialPipe(ctx, path)
		return err == nil
	}, 2*time.Second, 10*time.Millisecond)
	defer client.Close()

	srv := <-got
	require.NotNil(t, srv)
	defer srv.Close()

	_, err := srv.Write([]byte("pong"))
	require.NoError(t, err)
	buf := make([]byte, 4)
	_, err = io.ReadFull(client, buf)
	require.NoError(t, err)
	require.Equal(t, "pong", string(buf))
}

func TestWebSocketStreamsAcrossMessages(t *testing.T) {
	addr := freeAddr(t)
	ctx := context.Background()

	got := make(chan transport.Transport, 1)
	go func() {
		tr, err := transport.ListenWebSocket(ctx, addr)
		if err == nil {
			got <- tr
		}
		close(got)
	}()

	var ws *websocket.Conn
	require.Eventually(t, func() bool {
		var err error
		ws, err = websocket.Dial("ws://"+addr+"/", "", "http://"+addr+"/")
		return err == nil
	}, 2*time.Second, 10*time.Millisecond)
	defer ws.Close()

	srv := <-got
	require.NotNil(t, srv)
	defer srv.Close()

	require.NoError(t, websocket.Message.Send(ws, []byte("Content-Length: 2\r\n\r\n")))
	require.NoError(t, websocket.Message.Send(ws, []byte("{}")))

	buf := make([]byte, len("Content-Length: 2\r\n\r\n{}"))
	_, err := io.ReadFull(srv, buf)
	require.NoError(t, err)
	require.Equal(t, "Content-Length: 2\r\n\r\n{}", string(buf))

	_, err = srv.Write([]byte("abcdef"))
	require.NoError(t, err)
	var msg []byte
	require.NoError(t, websocket.Message.Receive(ws, &msg))
	require.Equal(t, "abcdef", string(msg))
}

func TestMemoryPipePartialReads(t *testing.T) {
	client, server := transport.MemoryPipe()
	defer client.Close()

	_, err := client.Write([]byte("Content-Length: 2\r\n\r\n"))
	require.NoError(t, err)
	_, err = client.Write([]byte("{}"))
	require.NoError(t, err)

	small := make([]byte, 7)
	n, err := server.Read(small)
	require.NoError(t, err)
	require.Equal(t, "Content", string(small[:n]))

	rest := make([]byte, len("-Length: 2\r\n\r\n{}"))
	_, err = io.ReadFull(server, rest)
	require.NoError(t, err)
	require.Equal(t, "-Length: 2\r\n\r\n{}", string(rest))
}
