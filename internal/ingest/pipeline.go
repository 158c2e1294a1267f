// Package ingest assembles chunked binary image streams into conversation
// items without blocking the session's main flow. Each stream is handled by
// an independent goroutine; a failed stream is logged and dropped, never
// surfaced to the caller or the transport.
package ingest

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log"
	"sync"

	"github.com/careline/voicedesk/internal/model/chat"
)

// DefaultMIMEType tags assembled images when the transport gives no better
// hint.
const DefaultMIMEType = "image/png"

// ChunkReader yields the chunks of one inbound byte stream in arrival
// order. Next returns io.EOF once the stream has completed cleanly.
type ChunkReader interface {
	Next(ctx context.Context) ([]byte, error)
}

// Sink receives assembled image items. The active persona is resolved by
// the sink at append time, which is how *session.State satisfies it.
type Sink interface {
	AppendToCurrent(items ...chat.Item)
}

// Pipeline tracks the in-flight ingestion units of one session.
type Pipeline struct {
	ctx  context.Context
	sink Sink
	mime string

	mu     sync.Mutex
	wg     sync.WaitGroup
	tasks  map[uint64]struct{}
	nextID uint64
}

// New returns a pipeline bound to the session lifetime ctx. Cancelling ctx
// abandons in-flight units on their next chunk read.
func New(ctx context.Context, sink Sink) *Pipeline {
	return &Pipeline{
		ctx:   ctx,
		sink:  sink,
		mime:  DefaultMIMEType,
		tasks: make(map[uint64]struct{}),
	}
}

// OnStreamOpened schedules one ingestion unit for the stream and returns
// immediately. Multiple streams may be in flight at once; each is
// independent and only same-stream chunk order is preserved.
func (p *Pipeline) OnStreamOpened(r ChunkReader, sender string) {
	id := p.register()
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		defer p.deregister(id)
		p.run(r, sender)
	}()
}

// Done is closed when the owning session ends. Transports select on it so
// they stop feeding streams whose ingestion units have been abandoned.
func (p *Pipeline) Done() <-chan struct{} {
	return p.ctx.Done()
}

// Pending reports the number of in-flight ingestion units.
func (p *Pipeline) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.tasks)
}

// Wait blocks until every in-flight unit has finished or ctx expires.
// Shutdown uses it best-effort; units abandoned by session cancellation
// count as finished.
func (p *Pipeline) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Pipeline) register() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.nextID++
	id := p.nextID
	p.tasks[id] = struct{}{}
	return id
}

func (p *Pipeline) deregister(id uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.tasks, id)
}

// run assembles one stream. Any error terminates only this unit: nothing
// is appended and the session keeps going.
func (p *Pipeline) run(r ChunkReader, sender string) {
	var buf bytes.Buffer
	for {
		chunk, err := r.Next(p.ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			log.Printf("[ingest] stream from %s failed after %d bytes: %v", sender, buf.Len(), err)
			return
		}
		buf.Write(chunk)
	}

	item := chat.NewImageItem(chat.RoleUser, chat.NewImagePart(buf.Bytes(), p.mime))
	p.sink.AppendToCurrent(item)
	log.Printf("[ingest] received image from %s (%d bytes)", sender, buf.Len())
}
