package transport

import (
	"context"
	"net"
)

// ListenPipe listens on a named pipe. Outside Windows a named pipe is a
// Unix domain socket, which is what the VS Code client creates there.
func ListenPipe(ctx context.Context, name string) (Transport, error) {
	return ListenSocket(ctx, name)
}

// DialPipe connects to an existing named pipe / Unix domain socket.
func DialPipe(ctx context.Context, name string) (Transport, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "unix", name)
	if err != nil {
		return nil, err
	}
	return &socketTransport{conn: conn}, nil
}
