package audit

import (
	"context"
	"sync"
	"sync/atomic"
)

// Config controls dispatcher buffering behavior.
type Config struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// Dispatcher relays records to a sink from one worker goroutine, so the sink
// sees records in enqueue order.
type Dispatcher[E any] struct {
	sink       Sink[E]
	queue      chan E
	dropIfFull bool

	// mu guards closed; senders hold it shared so the queue is never closed
	// under a pending send.
	mu     sync.RWMutex
	closed bool
	exited chan struct{}

	delivered atomic.Uint64
	dropped   atomic.Uint64
}

// NewDispatcher starts the worker. It returns nil when cfg is disabled; every method
// is safe on a nil Dispatcher.
func NewDispatcher[E any](cfg Config, sink Sink[E]) *Dispatcher[E] {
	if !cfg.Enabled {
		return nil
	}
	if sink == nil {
		sink = NoOpSink[E]{}
	}
	d := &Dispatcher[E]{
		sink:       sink,
		queue:      make(chan E, max(cfg.BufferSize, 1)),
		dropIfFull: cfg.DropIfFull,
		exited:     make(chan struct{}),
	}
	go d.work()
	return d
}

func (d *Dispatcher[E]) work() {
	defer close(d.exited)
	for event := range d.queue {
		d.sink.Emit(context.Background(), event)
		d.delivered.Add(1)
	}
}

// Emit enqueues event and reports whether it was accepted. With DropIfFull a
// full buffer drops the record immediately; otherwise Emit waits for space or
// for ctx to end. Records emitted after Close are rejected without counting as
// drops.
func (d *Dispatcher[E]) Emit(ctx context.Context, event E) bool {
	if d == nil {
		return false
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return false
	}

	if d.dropIfFull {
		select {
		case d.queue <- event:
			return true
		default:
			d.dropped.Add(1)
			return false
		}
	}

	if ctx == nil {
		ctx = context.Background()
	}
	select {
	case d.queue <- event:
		return true
	case <-ctx.Done():
		d.dropped.Add(1)
		return false
	}
}

// Close stops accepting records, delivers what is buffered and waits for the
// worker to exit. It is idempotent.
func (d *Dispatcher[E]) Close() {
	if d == nil {
		return
	}
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()
	<-d.exited
}

func (d *Dispatcher[E]) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}

func (d *Dispatcher[E]) Delivered() uint64 {
	if d == nil {
		return 0
	}
	return d.delivered.Load()
}
