package room

import (
	"context"
	"io"
	"sync"
)

// byteStream adapts websocket frames to the ingestion pipeline's chunk
// reader. The read-loop goroutine pushes; the ingestion unit pulls.
type byteStream struct {
	ch   chan []byte
	done <-chan struct{}
	err  error
	once sync.Once
}

func newByteStream(done <-chan struct{}) *byteStream {
	return &byteStream{ch: make(chan []byte, 16), done: done}
}

// push hands one chunk to the ingestion unit, blocking if it is behind.
// It reports false once the session has ended and the unit will never
// read again.
func (s *byteStream) push(chunk []byte) bool {
	select {
	case s.ch <- chunk:
		return true
	case <-s.done:
		return false
	}
}

// finish closes the stream; a nil error signals clean completion. The
// error is published before the channel closes, so the reader observes it
// after draining.
func (s *byteStream) finish(err error) {
	s.once.Do(func() {
		s.err = err
		close(s.ch)
	})
}

// Next implements ingest.ChunkReader.
func (s *byteStream) Next(ctx context.Context) ([]byte, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case chunk, ok := <-s.ch:
		if !ok {
			if s.err != nil {
				return nil, s.err
			}
			return nil, io.EOF
		}
		return chunk, nil
	}
}
