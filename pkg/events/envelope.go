// Package events records what happened during a batch run as a stream of
// envelopes. Events are for offline analysis only; the result log stays the
// source of truth for progress.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// SchemaVersion is the envelope payload version.
const SchemaVersion = "1.0.0"

// Event types.
const (
	TypeRunStarted    = "run.started"
	TypeProblemSolved = "problem.solved"
	TypeRunFinished   = "run.finished"
)

// Envelope wraps an event payload with metadata for correlation.
type Envelope struct {
	// ID uniquely identifies this event instance.
	ID string `json:"id"`

	// Type identifies the event, e.g. "problem.solved".
	Type string `json:"type"`

	// Source identifies the component that emitted the event.
	Source string `json:"source"`

	// Version is the payload schema version.
	Version string `json:"version"`

	// Timestamp records when the event was emitted.
	Timestamp time.Time `json:"timestamp"`

	// RunID identifies the process run. A resumed run gets a new RunID.
	RunID string `json:"run_id"`

	// Payload contains the event data as JSON. Schema varies by Type.
	Payload json.RawMessage `json:"payload"`
}

// NewEnvelope marshals payload into a new envelope stamped with now.
func NewEnvelope(eventType, source, runID string, payload any, now time.Time) (Envelope, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("marshal %s payload: %w", eventType, err)
	}
	return Envelope{
		ID:        uuid.New().String(),
		Type:      eventType,
		Source:    source,
		Version:   SchemaVersion,
		Timestamp: now.UTC(),
		RunID:     runID,
		Payload:   raw,
	}, nil
}

// EventSink receives emitted events.
//
// Append should return quickly. Callers do not fail their primary operation
// when a sink errors.
type EventSink interface {
	Append(ctx context.Context, envelope Envelope) error
}

// NoOpEventSink discards every event.
type NoOpEventSink struct{}

// Append implements EventSink.Append with no-op behavior.
func (n *NoOpEventSink) Append(_ context.Context, _ Envelope) error {
	return nil
}

// NewNoOpEventSink creates a new no-op event sink.
func NewNoOpEventSink() EventSink {
	return &NoOpEventSink{}
}
