package room

import (
	"context"
	"io"
	"testing"
	"time"
)

func TestByteStreamDeliversThenEOF(t *testing.T) {
	done := make(chan struct{})
	s := newByteStream(done)

	if !s.push([]byte("aa")) {
		t.Fatal("push rejected a chunk on a live stream")
	}
	s.finish(nil)

	ctx := context.Background()
	chunk, err := s.Next(ctx)
	if err != nil || string(chunk) != "aa" {
		t.Fatalf("Next = (%q, %v)", chunk, err)
	}
	if _, err := s.Next(ctx); err != io.EOF {
		t.Fatalf("Next after finish = %v, want io.EOF", err)
	}
}

func TestByteStreamPushReturnsAfterSessionEnds(t *testing.T) {
	done := make(chan struct{})
	close(done)
	s := newByteStream(done)

	// No ingestion unit is reading. Pushing past the channel buffer must
	// not wedge the connection goroutine once the session is gone.
	rejected := make(chan struct{})
	go func() {
		for i := 0; i < 64; i++ {
			if !s.push([]byte("zz")) {
				close(rejected)
				return
			}
		}
	}()

	select {
	case <-rejected:
	case <-time.After(2 * time.Second):
		t.Fatal("push blocked after the session ended")
	}
}
