package transport

import (
	"errors"
	"io"
	"os"
)

// streamTransport joins a separate reader and writer, as stdio and the
// Node IPC channel provide them.
type streamTransport struct {
	in  io.ReadCloser
	out io.WriteCloser
}

// Stdio returns a Transport over os.Stdin and os.Stdout. Nothing else may
// write to stdout while it is in use; logs go to stderr.
func Stdio() Transport {
	return &streamTransport{in: os.Stdin, out: os.Stdout}
}

// NodeIPC returns the transport a VS Code extension host uses when it
// spawns the server as a child process: requests arrive on fd 3 and
// replies go to stdout.
func NodeIPC() Transport {
	return &streamTransport{in: os.NewFile(3, "node-ipc-in"), out: os.Stdout}
}

func (s *streamTransport) Read(p []byte) (int, error)  { return s.in.Read(p) }
func (s *streamTransport) Write(p []byte) (int, error) { return s.out.Write(p) }

func (s *streamTransport) Close() error {
	return errors.Join(s.in.Close(), s.out.Close())
}
