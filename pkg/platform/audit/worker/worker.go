package worker

import (
	"context"
	"log/slog"

	audit "opencrvs/pkg/platform/audit"
)

// Worker consumes audit events from a channel and hands them to a sink until
// the channel is closed.
type Worker struct {
	sink   audit.Sink
	inbox  <-chan audit.Event
	logger *slog.Logger
}

func NewWorker(sink audit.Sink, inbox <-chan audit.Event, logger *slog.Logger) *Worker {
	return &Worker{sink: sink, inbox: inbox, logger: logger}
}

// Run drains the inbox. Sink failures are logged; the event is dropped.
func (w *Worker) Run(ctx context.Context) {
	for event := range w.inbox {
		if err := w.sink.Append(ctx, event); err != nil && w.logger != nil {
			w.logger.ErrorContext(ctx, "audit sink failed",
				"action", event.Action,
				"error", err,
				"request_id", event.RequestID,
			)
		}
	}
}
