package ingest_test

import (
	"context"
	"encoding/base64"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/careline/voicedesk/internal/ingest"
	"github.com/careline/voicedesk/internal/model/chat"
)

type recordingSink struct {
	mu    sync.Mutex
	items []chat.Item
}

func (s *recordingSink) AppendToCurrent(items ...chat.Item) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append(s.items, items...)
}

func (s *recordingSink) snapshot() []chat.Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]chat.Item(nil), s.items...)
}

// scriptedReader replays fixed chunks, optionally failing instead of
// signalling a clean end of stream.
type scriptedReader struct {
	chunks [][]byte
	err    error
	idx    int
}

func (r *scriptedReader) Next(ctx context.Context) ([]byte, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	if r.idx < len(r.chunks) {
		chunk := r.chunks[r.idx]
		r.idx++
		return chunk, nil
	}
	if r.err != nil {
		return nil, r.err
	}
	return nil, io.EOF
}

func waitDrained(t *testing.T, p *ingest.Pipeline) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := p.Wait(ctx); err != nil {
		t.Fatalf("pipeline did not drain: %v", err)
	}
}

func decodeImage(t *testing.T, it chat.Item) []byte {
	t.Helper()
	if len(it.Content) != 1 || it.Content[0].Type != chat.PartImage {
		t.Fatalf("expected a single image part, got %+v", it.Content)
	}
	dataURL := it.Content[0].Image.DataURL
	prefix := "data:image/png;base64,"
	if !strings.HasPrefix(dataURL, prefix) {
		t.Fatalf("unexpected data URL prefix: %s", dataURL)
	}
	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(dataURL, prefix))
	if err != nil {
		t.Fatalf("decode image payload: %v", err)
	}
	return raw
}

func TestConcurrentStreamsAssembleIndependently(t *testing.T) {
	sink := &recordingSink{}
	p := ingest.New(context.Background(), sink)

	p.OnStreamOpened(&scriptedReader{chunks: [][]byte{[]byte("aa"), []byte("bb"), []byte("cc")}}, "alice")
	p.OnStreamOpened(&scriptedReader{chunks: [][]byte{[]byte("11"), []byte("22"), []byte("33")}}, "bob")
	waitDrained(t, p)

	items := sink.snapshot()
	if len(items) != 2 {
		t.Fatalf("expected 2 image items, got %d", len(items))
	}

	payloads := map[string]bool{}
	for _, it := range items {
		if it.Role != chat.RoleUser {
			t.Fatalf("expected user role, got %s", it.Role)
		}
		payloads[string(decodeImage(t, it))] = true
	}
	if !payloads["aabbcc"] || !payloads["112233"] {
		t.Fatalf("stream payloads interleaved or lost: %v", payloads)
	}
}

func TestFailedStreamAppendsNothing(t *testing.T) {
	sink := &recordingSink{}
	p := ingest.New(context.Background(), sink)

	reader := &scriptedReader{
		chunks: [][]byte{[]byte("aa"), []byte("bb")},
		err:    errors.New("transport reset"),
	}
	p.OnStreamOpened(reader, "alice")
	waitDrained(t, p)

	if got := sink.snapshot(); len(got) != 0 {
		t.Fatalf("failed stream appended %d items", len(got))
	}
	if n := p.Pending(); n != 0 {
		t.Fatalf("failed unit left pending count at %d", n)
	}
}

func TestOnStreamOpenedDoesNotBlock(t *testing.T) {
	sink := &recordingSink{}
	p := ingest.New(context.Background(), sink)

	release := make(chan struct{})
	done := make(chan struct{})
	go func() {
		p.OnStreamOpened(&blockingReader{release: release}, "alice")
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("OnStreamOpened blocked on a stalled stream")
	}

	if n := p.Pending(); n != 1 {
		t.Fatalf("expected 1 pending unit, got %d", n)
	}
	close(release)
	waitDrained(t, p)
}

type blockingReader struct {
	release  chan struct{}
	released bool
}

func (r *blockingReader) Next(ctx context.Context) ([]byte, error) {
	if !r.released {
		select {
		case <-r.release:
			r.released = true
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return nil, io.EOF
}

func TestSessionCancellationAbandonsUnits(t *testing.T) {
	sink := &recordingSink{}
	ctx, cancel := context.WithCancel(context.Background())
	p := ingest.New(ctx, sink)

	p.OnStreamOpened(&blockingReader{release: make(chan struct{})}, "alice")
	cancel()
	waitDrained(t, p)

	if got := sink.snapshot(); len(got) != 0 {
		t.Fatalf("abandoned stream appended %d items", len(got))
	}
}
