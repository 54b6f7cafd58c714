// Package stream adapts an incoming audio byte stream to fixed-size
// chunks.
//
// Network transports deliver PCM in whatever frame sizes the client
// chose, but the silence monitor's resolution is the chunk duration, so
// the detector wants uniform chunks. A [Chunker] sits between the two: a
// producer goroutine writes frames of any size, a consumer goroutine
// reads back chunks of exactly the configured size.
package stream

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/phonecho/phonecho/pkg/audio/pcm"
)

// Chunker is a thread-safe growable byte buffer with fixed-size reads.
// Reads block until a full chunk is buffered or the write side closes;
// after CloseWrite, the final partial chunk (if any) is delivered and
// then io.EOF.
type Chunker struct {
	writeNotify chan struct{}

	mu         sync.Mutex
	buf        []byte
	size       int
	closeWrite bool
	closeErr   error
}

// New creates a Chunker emitting chunks of size bytes.
func New(size int) *Chunker {
	if size <= 0 {
		panic("stream: chunk size must be positive")
	}
	return &Chunker{
		writeNotify: make(chan struct{}, 1),
		buf:         make([]byte, 0, size),
		size:        size,
	}
}

// NewDuration creates a Chunker emitting chunks of the given audio
// duration in the given format.
func NewDuration(format pcm.Format, d time.Duration) *Chunker {
	return New(format.BytesInDuration(d))
}

// ChunkSize returns the size of emitted chunks in bytes.
func (c *Chunker) ChunkSize() int { return c.size }

// Write appends one incoming frame. It never blocks.
func (c *Chunker) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closeErr != nil {
		return 0, fmt.Errorf("stream: write to closed chunker: %w", c.closeErr)
	}
	if c.closeWrite {
		return 0, fmt.Errorf("stream: write to closed chunker: %w", io.ErrClosedPipe)
	}
	c.buf = append(c.buf, p...)
	select {
	case c.writeNotify <- struct{}{}:
	default:
	}
	return len(p), nil
}

// Next returns the next chunk. It blocks until a full chunk is available
// or the write side closes. After CloseWrite, any remaining bytes are
// returned as one final short chunk, then io.EOF. After CloseWithError,
// the close error is returned.
func (c *Chunker) Next() ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for {
		if c.closeErr != nil {
			return nil, fmt.Errorf("stream: read from closed chunker: %w", c.closeErr)
		}
		if len(c.buf) >= c.size {
			return c.take(c.size), nil
		}
		if c.closeWrite {
			if len(c.buf) > 0 {
				return c.take(len(c.buf)), nil
			}
			return nil, io.EOF
		}
		c.mu.Unlock()
		<-c.writeNotify
		c.mu.Lock()
	}
}

// take removes and returns the first n buffered bytes. Caller holds mu.
func (c *Chunker) take(n int) []byte {
	chunk := make([]byte, n)
	copy(chunk, c.buf)
	c.buf = c.buf[:copy(c.buf, c.buf[n:])]
	return chunk
}

// Len returns the number of buffered bytes not yet emitted.
func (c *Chunker) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.buf)
}

// CloseWrite closes the write side. Buffered data remains readable; Next
// returns io.EOF once drained.
func (c *Chunker) CloseWrite() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closeWrite {
		return nil
	}
	c.closeWrite = true
	close(c.writeNotify)
	return nil
}

// CloseWithError closes both sides immediately, discarding buffered data
// and unblocking any pending Next with err. Nil err means
// io.ErrClosedPipe.
func (c *Chunker) CloseWithError(err error) error {
	if err == nil {
		err = io.ErrClosedPipe
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closeErr != nil {
		return nil
	}
	c.closeErr = err
	c.buf = nil
	if !c.closeWrite {
		c.closeWrite = true
		close(c.writeNotify)
	}
	return nil
}

// Close is CloseWithError(io.ErrClosedPipe). It implements io.Closer.
func (c *Chunker) Close() error {
	return c.CloseWithError(io.ErrClosedPipe)
}
