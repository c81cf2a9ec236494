package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"
)

// Sink delivers encoded events. The Kafka producer satisfies it.
type Sink interface {
	Publish(ctx context.Context, key string, value []byte, headers map[string]string) error
}

// Worker drains the publisher's inbox into a Sink. Delivery failures are
// logged, never surfaced to requests.
type Worker struct {
	sink         Sink
	inbox        <-chan Event
	logger       *slog.Logger
	attempts     int
	backoff      time.Duration
	drainTimeout time.Duration
}

func NewWorker(sink Sink, inbox <-chan Event, logger *slog.Logger) *Worker {
	return &Worker{
		sink:         sink,
		inbox:        inbox,
		logger:       logger,
		attempts:     3,
		backoff:      200 * time.Millisecond,
		drainTimeout: 5 * time.Second,
	}
}

// Run blocks until ctx is cancelled, then flushes whatever is still buffered.
func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			w.drain()
			return nil
		case event := <-w.inbox:
			w.deliver(ctx, event)
		}
	}
}

func (w *Worker) drain() {
	ctx, cancel := context.WithTimeout(context.Background(), w.drainTimeout)
	defer cancel()
	for {
		select {
		case event := <-w.inbox:
			w.deliver(ctx, event)
		default:
			return
		}
	}
}

func (w *Worker) deliver(ctx context.Context, event Event) {
	value, err := json.Marshal(event)
	if err != nil {
		w.logger.ErrorContext(ctx, "encode event", "error", err, "type", event.Type)
		return
	}
	headers := map[string]string{"event_type": string(event.Type), "event_id": event.ID}

	for attempt := 1; attempt <= w.attempts; attempt++ {
		err = w.sink.Publish(ctx, string(event.TableID), value, headers)
		if err == nil {
			return
		}
		if attempt < w.attempts {
			select {
			case <-ctx.Done():
				attempt = w.attempts
			case <-time.After(w.backoff * time.Duration(attempt)):
			}
		}
	}
	w.logger.ErrorContext(ctx, "event delivery failed",
		"error", err,
		"type", event.Type,
		"table_id", event.TableID,
		"event_id", event.ID,
	)
}

// LogSink writes events to the log. Used when no broker is configured.
type LogSink struct {
	Logger *slog.Logger
}

func (s LogSink) Publish(ctx context.Context, key string, value []byte, headers map[string]string) error {
	s.Logger.DebugContext(ctx, "order event", "key", key, "type", headers["event_type"], "payload", string(value))
	return nil
}
