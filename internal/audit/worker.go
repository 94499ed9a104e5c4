package audit

import (
	"context"
	"errors"
)

// ChannelSink hands events to a Worker through a buffered channel. When the
// buffer is full the event is dropped with an error rather than blocking the
// request path.
type ChannelSink struct {
	ch chan Event
}

func NewChannelSink(buffer int) *ChannelSink {
	return &ChannelSink{ch: make(chan Event, buffer)}
}

func (s *ChannelSink) Append(_ context.Context, event Event) error {
	select {
	case s.ch <- event:
		return nil
	default:
		return errors.New("audit buffer full")
	}
}

func (s *ChannelSink) Inbox() <-chan Event {
	return s.ch
}

// Worker consumes audit events from a channel and forwards them to a sink,
// keeping event delivery off the request path.
type Worker struct {
	sink  Sink
	inbox <-chan Event
}

func NewWorker(sink Sink, inbox <-chan Event) *Worker {
	return &Worker{sink: sink, inbox: inbox}
}

func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event := <-w.inbox:
			if err := w.sink.Append(ctx, event); err != nil {
				return err
			}
		}
	}
}
