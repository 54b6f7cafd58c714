package stream

import (
	"bytes"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/phonecho/phonecho/pkg/audio/pcm"
)

func TestChunkerFixedReads(t *testing.T) {
	c := New(4)

	// Frames of uneven sizes regroup into exact chunks.
	c.Write([]byte{1, 2})
	c.Write([]byte{3, 4, 5, 6, 7})

	chunk, err := c.Next()
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if !bytes.Equal(chunk, []byte{1, 2, 3, 4}) {
		t.Errorf("chunk 1 = %v", chunk)
	}
	if c.Len() != 3 {
		t.Errorf("Len after first chunk = %d, want 3", c.Len())
	}

	c.Write([]byte{8})
	chunk, err = c.Next()
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if !bytes.Equal(chunk, []byte{5, 6, 7, 8}) {
		t.Errorf("chunk 2 = %v", chunk)
	}
}

func TestChunkerBlocksUntilFull(t *testing.T) {
	c := New(4)
	got := make(chan []byte, 1)
	go func() {
		chunk, err := c.Next()
		if err != nil {
			t.Errorf("Next: %v", err)
		}
		got <- chunk
	}()

	c.Write([]byte{1, 2})
	select {
	case chunk := <-got:
		t.Fatalf("Next returned %v with only 2 of 4 bytes buffered", chunk)
	case <-time.After(20 * time.Millisecond):
	}

	c.Write([]byte{3, 4})
	select {
	case chunk := <-got:
		if !bytes.Equal(chunk, []byte{1, 2, 3, 4}) {
			t.Errorf("chunk = %v", chunk)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Next did not return after the chunk filled")
	}
}

func TestChunkerCloseWriteDrains(t *testing.T) {
	c := New(4)
	c.Write([]byte{1, 2, 3, 4, 5, 6})
	c.CloseWrite()

	chunk, err := c.Next()
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if !bytes.Equal(chunk, []byte{1, 2, 3, 4}) {
		t.Errorf("full chunk = %v", chunk)
	}

	// The tail comes out as one short chunk.
	chunk, err = c.Next()
	if err != nil {
		t.Fatalf("Next tail: %v", err)
	}
	if !bytes.Equal(chunk, []byte{5, 6}) {
		t.Errorf("tail chunk = %v", chunk)
	}

	if _, err := c.Next(); err != io.EOF {
		t.Errorf("Next after drain = %v, want io.EOF", err)
	}
	if _, err := c.Write([]byte{9}); err == nil {
		t.Error("Write after CloseWrite succeeded")
	}
}

func TestChunkerCloseWithError(t *testing.T) {
	c := New(4)
	c.Write([]byte{1, 2, 3, 4})

	wantErr := errors.New("peer went away")
	done := make(chan error, 1)
	go func() {
		// First Next gets the buffered chunk, second blocks.
		if _, err := c.Next(); err != nil {
			done <- err
			return
		}
		_, err := c.Next()
		done <- err
	}()

	time.Sleep(10 * time.Millisecond)
	c.CloseWithError(wantErr)

	select {
	case err := <-done:
		if !errors.Is(err, wantErr) {
			t.Errorf("Next after close = %v, want %v", err, wantErr)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Next did not unblock on CloseWithError")
	}
}

func TestChunkerCloseWriteUnblocksEmpty(t *testing.T) {
	c := New(4)
	done := make(chan error, 1)
	go func() {
		_, err := c.Next()
		done <- err
	}()

	time.Sleep(10 * time.Millisecond)
	c.CloseWrite()

	select {
	case err := <-done:
		if err != io.EOF {
			t.Errorf("Next on empty closed chunker = %v, want io.EOF", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Next did not unblock on CloseWrite")
	}
}

func TestNewDuration(t *testing.T) {
	// 100ms of 16kHz PCM16 is 3200 bytes.
	c := NewDuration(pcm.L16Mono16K, 100*time.Millisecond)
	if c.ChunkSize() != 3200 {
		t.Errorf("ChunkSize = %d, want 3200", c.ChunkSize())
	}
}
