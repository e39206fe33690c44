package audit

import (
	"context"
	"io"
	"sync"

	"github.com/goccy/go-json"
)

// Sink receives dispatched records.
type Sink[E any] interface {
	Emit(ctx context.Context, event E)
}

// NoOpSink drops records.
type NoOpSink[E any] struct{}

func (NoOpSink[E]) Emit(context.Context, E) {}

// SinkFunc adapts a function to [Sink].
type SinkFunc[E any] func(ctx context.Context, event E)

func (f SinkFunc[E]) Emit(ctx context.Context, event E) { f(ctx, event) }

// MultiSink emits to every non-nil sink in order.
type MultiSink[E any] []Sink[E]

func (m MultiSink[E]) Emit(ctx context.Context, event E) {
	for _, s := range m {
		if s != nil {
			s.Emit(ctx, event)
		}
	}
}

// ChannelSink writes records into a buffered channel.
type ChannelSink[E any] struct {
	events chan E
}

func NewChannelSink[E any](buffer int) *ChannelSink[E] {
	if buffer <= 0 {
		buffer = 1
	}
	return &ChannelSink[E]{
		events: make(chan E, buffer),
	}
}

func (s *ChannelSink[E]) Emit(ctx context.Context, event E) {
	select {
	case s.events <- event:
	case <-ctx.Done():
	}
}

func (s *ChannelSink[E]) Events() <-chan E {
	return s.events
}

// JSONWriterSink writes one JSON object per line.
type JSONWriterSink[E any] struct {
	writer io.Writer
	mu     sync.Mutex
}

func NewJSONWriterSink[E any](w io.Writer) *JSONWriterSink[E] {
	return &JSONWriterSink[E]{
		writer: w,
	}
}

func (s *JSONWriterSink[E]) Emit(ctx context.Context, event E) {
	if s == nil || s.writer == nil {
		return
	}
	data, err := json.Marshal(event)
	if err != nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, _ = s.writer.Write(append(data, '\n'))
}
