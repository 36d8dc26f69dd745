package transport

import (
	"io"
	"sync"
)

// MemoryPipe returns two connected in-memory transports, for tests. Writes
// never block; each side reads what the other wrote, in order.
func MemoryPipe() (client Transport, server Transport) {
	toServer, toClient := newQueue(), newQueue()
	return &memoryTransport{in: toClient, out: toServer}, &memoryTransport{in: toServer, out: toClient}
}

type memoryTransport struct {
	in, out *queue
}

func (m *memoryTransport) Read(p []byte) (int, error)  { return m.in.read(p) }
func (m *memoryTransport) Write(p []byte) (int, error) { return m.out.write(p) }

// Close ends both directions: the peer reads EOF once it has drained what
// was written.
func (m *memoryTransport) Close() error {
	m.in.close()
	m.out.close()
	return nil
}

// queue is an unbounded FIFO of written chunks.
type queue struct {
	mu     sync.Mutex
	ready  *sync.Cond
	chunks [][]byte
	closed bool
}

func newQueue() *queue {
	q := &queue{}
	q.ready = sync.NewCond(&q.mu)
	return q
}

func (q *queue) write(p []byte) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return 0, io.ErrClosedPipe
	}
	if len(p) > 0 {
		q.chunks = append(q.chunks, append([]byte(nil), p...))
		q.ready.Signal()
	}
	return len(p), nil
}

func (q *queue) read(p []byte) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.chunks) == 0 {
		if q.closed {
			return 0, io.EOF
		}
		q.ready.Wait()
	}
	n := copy(p, q.chunks[0])
	if n == len(q.chunks[0]) {
		q.chunks = q.chunks[1:]
	} else {
		q.chunks[0] = q.chunks[0][n:]
	}
	return n, nil
}

func (q *queue) close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	q.ready.Broadcast()
}
