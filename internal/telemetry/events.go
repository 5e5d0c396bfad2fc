package telemetry

import (
	"context"
	"log"
	"time"

	"blur-chat/internal/observability"
)

// Publisher delivers event envelopes to the message broker.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, event any) error
	Close() error
}

// EventEnvelope is the wire shape of an emitted chat event.
type EventEnvelope struct {
	SchemaVersion int    `json:"schema_version"`
	EventType     string `json:"event_type"`
	OccurredAt    string `json:"occurred_at"`
	Service       string `json:"service"`
	Environment   string `json:"environment"`
	Payload       any    `json:"payload"`
}

// EventEmitter wraps a publisher with service metadata. A nil emitter or
// nil publisher drops events silently so the core never depends on the
// broker being up.
type EventEmitter struct {
	publisher   Publisher
	service     string
	environment string
}

// NewEventEmitter builds an EventEmitter.
func NewEventEmitter(publisher Publisher, service, environment string) *EventEmitter {
	return &EventEmitter{publisher: publisher, service: service, environment: environment}
}

// Emit publishes one event envelope on the given routing key.
func (e *EventEmitter) Emit(ctx context.Context, routingKey, eventType string, payload any) {
	if e == nil || e.publisher == nil {
		return
	}

	envelope := EventEnvelope{
		SchemaVersion: 1,
		EventType:     eventType,
		OccurredAt:    time.Now().UTC().Format(time.RFC3339Nano),
		Service:       e.service,
		Environment:   e.environment,
		Payload:       payload,
	}

	if err := e.publisher.Publish(ctx, routingKey, envelope); err != nil {
		log.Printf("event publish failed: %v", err)
		observability.IncAMQPPublishError()
	}
}
