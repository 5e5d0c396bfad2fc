package telemetry_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"blur-chat/internal/mocks"
	"blur-chat/internal/telemetry"
)

func TestEmitWrapsPayloadInEnvelope(t *testing.T) {
	publisher := new(mocks.PublisherMock)
	publisher.On("Publish", mock.Anything, "chat_events.messages", mock.Anything).Return(nil).Once()

	emitter := telemetry.NewEventEmitter(publisher, "blur-chat", "test")
	emitter.Emit(context.Background(), "chat_events.messages", "message_routed", map[string]any{"message_id": "1"})

	publisher.AssertExpectations(t)
	envelope, ok := publisher.Calls[0].Arguments.Get(2).(telemetry.EventEnvelope)
	require.True(t, ok)
	assert.Equal(t, 1, envelope.SchemaVersion)
	assert.Equal(t, "message_routed", envelope.EventType)
	assert.Equal(t, "blur-chat", envelope.Service)
	assert.Equal(t, "test", envelope.Environment)
	assert.NotEmpty(t, envelope.OccurredAt)
}

func TestEmitNilEmitterIsSafe(t *testing.T) {
	var emitter *telemetry.EventEmitter
	assert.NotPanics(t, func() {
		emitter.Emit(context.Background(), "chat_events.presence", "user_online", nil)
	})
}

func TestEmitPublishErrorIsSwallowed(t *testing.T) {
	publisher := new(mocks.PublisherMock)
	publisher.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(assert.AnError).Once()

	emitter := telemetry.NewEventEmitter(publisher, "blur-chat", "test")
	assert.NotPanics(t, func() {
		emitter.Emit(context.Background(), "chat_events.receipts", "messages_read", nil)
	})
	publisher.AssertExpectations(t)
}
