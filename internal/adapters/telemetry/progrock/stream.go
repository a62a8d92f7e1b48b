package progrock

import (
	"io"
	"sync"

	"github.com/vito/progrock"
	"go.trai.ch/pakt/internal/core/ports"
)

// streamBuffer bounds how many updates may queue before the renderer
// catches up. Writers never block on a slow terminal.
const streamBuffer = 64

// Stream is an in-process progrock writer whose updates can be read back
// one at a time, e.g. by the terminal progress view.
type Stream struct {
	mu     sync.Mutex
	closed bool
	ch     chan *progrock.StatusUpdate
}

// NewStream creates an empty update stream.
func NewStream() *Stream {
	return &Stream{ch: make(chan *progrock.StatusUpdate, streamBuffer)}
}

// NewStreaming creates a Recorder whose updates are readable through the
// returned Stream.
func NewStreaming() (ports.Telemetry, *Stream) {
	s := NewStream()
	return NewRecorder(s), s
}

// WriteStatus implements progrock.Writer. Updates written after Close or
// while the buffer is full are dropped.
func (s *Stream) WriteStatus(update *progrock.StatusUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	select {
	case s.ch <- update:
	default:
	}
	return nil
}

// Read returns the next update, or io.EOF once the stream is closed and
// drained.
func (s *Stream) Read() (*progrock.StatusUpdate, error) {
	update, ok := <-s.ch
	if !ok {
		return nil, io.EOF
	}
	return update, nil
}

// Close ends the stream. Subsequent reads drain buffered updates and then
// return io.EOF.
func (s *Stream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	close(s.ch)
	return nil
}
