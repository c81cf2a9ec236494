package events

import (
	"context"
	"log/slog"
	"sync/atomic"

	"dinein/pkg/requestcontext"
)

// Publisher buffers events for the Worker. Emit never blocks a request: when
// the buffer is full the event is dropped and counted.
type Publisher struct {
	inbox   chan Event
	logger  *slog.Logger
	dropped atomic.Int64
}

func NewPublisher(buffer int, logger *slog.Logger) *Publisher {
	if buffer <= 0 {
		buffer = 1
	}
	return &Publisher{inbox: make(chan Event, buffer), logger: logger}
}

func (p *Publisher) Emit(ctx context.Context, event Event) {
	if event.ID == "" {
		event.ID = newEventID()
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = requestcontext.Now(ctx)
	}
	select {
	case p.inbox <- event:
	default:
		p.dropped.Add(1)
		if p.logger != nil {
			p.logger.WarnContext(ctx, "event buffer full, dropping event",
				"type", event.Type,
				"table_id", event.TableID,
				"request_id", requestcontext.RequestID(ctx),
			)
		}
	}
}

// Inbox is the channel the Worker consumes.
func (p *Publisher) Inbox() <-chan Event { return p.inbox }

// Dropped returns how many events were discarded.
func (p *Publisher) Dropped() int64 { return p.dropped.Load() }
