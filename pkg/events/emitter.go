package events

import (
	"context"
	"log/slog"
	"time"
)

const (
	emitMaxAttempts = 2
	emitRetryDelay  = 200 * time.Millisecond
)

// Emitter builds envelopes for one run and delivers them on a best-effort
// basis. Delivery failures are logged and never returned.
type Emitter struct {
	sink   EventSink
	source string
	runID  string
	now    func() time.Time
	logger *slog.Logger
}

// NewEmitter creates an Emitter. A nil sink disables emission.
func NewEmitter(sink EventSink, source, runID string, logger *slog.Logger) *Emitter {
	if sink == nil {
		sink = NewNoOpEventSink()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Emitter{
		sink:   sink,
		source: source,
		runID:  runID,
		now:    time.Now,
		logger: logger.With("component", "events"),
	}
}

// RunID returns the run identifier stamped on every envelope.
func (e *Emitter) RunID() string { return e.runID }

// Emit wraps payload in an envelope and appends it to the sink, retrying
// once after a short delay.
func (e *Emitter) Emit(ctx context.Context, eventType string, payload any) {
	envelope, err := NewEnvelope(eventType, e.source, e.runID, payload, e.now())
	if err != nil {
		e.logger.Error("build event", "event_type", eventType, "error", err)
		return
	}

	var lastErr error
	for attempt := 0; attempt < emitMaxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(emitRetryDelay):
			case <-ctx.Done():
				e.logger.Warn("event emission cancelled", "event_type", eventType)
				return
			}
		}

		if err := e.sink.Append(ctx, envelope); err != nil {
			lastErr = err
			continue
		}

		e.logger.Debug("event emitted", "event_type", eventType, "event_id", envelope.ID)
		return
	}

	e.logger.Error("failed to emit event",
		"event_type", eventType,
		"attempts", emitMaxAttempts,
		"error", lastErr)
}
