package notify

import (
	"context"
	"log/slog"

	"kvartal/internal/platform/metrics"
)

// Publisher delivers a single event to the outbound transport.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// Worker drains a buffered inbox and hands events to a publisher. Enqueueing
// via Notify never blocks: when the buffer is full the event is dropped and
// counted.
type Worker struct {
	publisher Publisher
	inbox     chan Event
	logger    *slog.Logger
	metrics   *metrics.Metrics
}

func NewWorker(publisher Publisher, logger *slog.Logger, m *metrics.Metrics, buffer int) *Worker {
	if buffer <= 0 {
		buffer = 256
	}
	return &Worker{
		publisher: publisher,
		inbox:     make(chan Event, buffer),
		logger:    logger,
		metrics:   m,
	}
}

// Notify enqueues an event for asynchronous delivery.
func (w *Worker) Notify(event Event) {
	select {
	case w.inbox <- event:
	default:
		if w.metrics != nil {
			w.metrics.NotificationsDropped.Inc()
		}
		w.logger.Warn("notification buffer full, dropping event", "event", event.Name)
	}
}

// Run delivers events until the context is cancelled. Publish failures are
// logged and discarded; they never surface to claim processing.
func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			w.drain()
			return ctx.Err()
		case event := <-w.inbox:
			w.publish(ctx, event)
		}
	}
}

func (w *Worker) publish(ctx context.Context, event Event) {
	if w.publisher == nil {
		return
	}
	if err := w.publisher.Publish(ctx, event); err != nil {
		w.logger.ErrorContext(ctx, "failed to publish notification",
			"event", event.Name,
			"error", err,
		)
	}
}

// drain flushes whatever is already buffered using a background context, so
// shutdown does not silently lose accepted events.
func (w *Worker) drain() {
	for {
		select {
		case event := <-w.inbox:
			w.publish(context.Background(), event)
		default:
			return
		}
	}
}
