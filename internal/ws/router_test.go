package ws

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"blur-chat/internal/mocks"
	"blur-chat/internal/models"
	"blur-chat/internal/store"
)

type testCore struct {
	store     *store.ConversationStore
	presence  *PresenceRegistry
	typing    *TypingTracker
	router    *MessageRouter
	lifecycle *LifecycleManager
	snapshots *mocks.SnapshotStoreMock
}

func newTestCore(t *testing.T) *testCore {
	t.Helper()
	snapshots := new(mocks.SnapshotStoreMock)
	snapshots.On("Load", mock.Anything).Return(models.Snapshot{}, nil).Once()
	snapshots.On("Save", mock.Anything, mock.Anything).Return(nil)
	return newTestCoreWith(t, snapshots)
}

func newTestCoreWith(t *testing.T, snapshots *mocks.SnapshotStoreMock) *testCore {
	t.Helper()
	conv, err := store.New(context.Background(), snapshots)
	require.NoError(t, err)

	presence := NewPresenceRegistry()
	typing := NewTypingTracker()
	return &testCore{
		store:     conv,
		presence:  presence,
		typing:    typing,
		router:    NewMessageRouter(conv, presence, typing, nil),
		lifecycle: NewLifecycleManager(conv, presence, typing, nil),
		snapshots: snapshots,
	}
}

func TestSendToReachableReceiver(t *testing.T) {
	core := newTestCore(t)
	ctx := context.Background()

	sender := &fakePusher{}
	receiver := &fakePusher{}
	core.presence.SetOnline("ann", "Ann", "c1", sender)
	core.presence.SetOnline("bo", "Bo", "c2", receiver)

	core.router.Send(ctx, sender, models.SendMessagePayload{SenderID: "ann", ReceiverID: "bo", Text: "hi"})

	// Exactly one push of the message itself, already upgraded.
	newMessages := receiver.byType(models.EventNewMessage)
	require.Len(t, newMessages, 1)
	msg := newMessages[0].Payload.(models.Message)
	assert.Equal(t, models.StatusDelivered, msg.Status)
	assert.Equal(t, "hi", msg.Text)

	confirmations := sender.byType(models.EventMessageSent)
	require.Len(t, confirmations, 1)
	assert.Equal(t, models.StatusDelivered, confirmations[0].Payload.(models.Message).Status)

	// Both parties get the contact-list update naming the counterpart.
	senderUpdates := sender.byType(models.EventChatUpdated)
	require.Len(t, senderUpdates, 1)
	assert.Equal(t, "bo", senderUpdates[0].Payload.(models.ChatUpdatedPayload).ContactID)
	receiverUpdates := receiver.byType(models.EventChatUpdated)
	require.Len(t, receiverUpdates, 1)
	assert.Equal(t, "ann", receiverUpdates[0].Payload.(models.ChatUpdatedPayload).ContactID)

	// Durable status matches what was pushed.
	history := core.store.History("ann", "bo")
	require.Len(t, history, 1)
	assert.Equal(t, models.StatusDelivered, history[0].Status)
}

func TestSendToUnreachableReceiver(t *testing.T) {
	core := newTestCore(t)
	ctx := context.Background()

	sender := &fakePusher{}
	core.presence.SetOnline("ann", "Ann", "c1", sender)

	core.router.Send(ctx, sender, models.SendMessagePayload{SenderID: "ann", ReceiverID: "bo", Text: "hello"})

	confirmations := sender.byType(models.EventMessageSent)
	require.Len(t, confirmations, 1)
	assert.Equal(t, models.StatusSent, confirmations[0].Payload.(models.Message).Status)

	history := core.store.History("ann", "bo")
	require.Len(t, history, 1)
	assert.Equal(t, models.StatusSent, history[0].Status)
	assert.False(t, history[0].Read)
}

func TestSendNoRetroactivePush(t *testing.T) {
	core := newTestCore(t)
	ctx := context.Background()

	sender := &fakePusher{}
	core.presence.SetOnline("ann", "Ann", "c1", sender)
	core.router.Send(ctx, sender, models.SendMessagePayload{SenderID: "ann", ReceiverID: "bo", Text: "hello"})

	// Bo comes online afterwards: nothing is pushed, history has it.
	late := &fakePusher{}
	core.lifecycle.Join(ctx, "c2", late, models.JoinPayload{ID: "bo", Name: "Bo"})

	assert.Empty(t, late.byType(models.EventNewMessage))
	history := core.store.History("bo", "ann")
	require.Len(t, history, 1)
	assert.Equal(t, models.StatusSent, history[0].Status)
}

func TestSendStorageFailureSurfacesToSenderOnly(t *testing.T) {
	snapshots := new(mocks.SnapshotStoreMock)
	snapshots.On("Load", mock.Anything).Return(models.Snapshot{}, nil).Once()
	snapshots.On("Save", mock.Anything, mock.Anything).Return(assert.AnError)
	core := newTestCoreWith(t, snapshots)

	origin := &fakePusher{}
	receiver := &fakePusher{}
	core.presence.SetOnline("ann", "Ann", "c1", origin)
	core.presence.SetOnline("bo", "Bo", "c2", receiver)

	core.router.Send(context.Background(), origin, models.SendMessagePayload{SenderID: "ann", ReceiverID: "bo", Text: "hi"})

	errs := origin.byType(models.EventError)
	require.Len(t, errs, 1)
	assert.Empty(t, origin.byType(models.EventMessageSent))
	assert.Empty(t, receiver.pushed())
}

func TestMarkMessagesReadPushesReceiptOnce(t *testing.T) {
	core := newTestCore(t)
	ctx := context.Background()

	annConn := &fakePusher{}
	core.presence.SetOnline("ann", "Ann", "c1", annConn)
	core.router.Send(ctx, annConn, models.SendMessagePayload{SenderID: "ann", ReceiverID: "bo", Text: "hi"})

	core.router.MarkMessagesRead(ctx, "bo", "ann")

	receipts := annConn.byType(models.EventMessagesRead)
	require.Len(t, receipts, 1)
	payload := receipts[0].Payload.(models.MessagesReadPayload)
	assert.Equal(t, "bo", payload.ReaderID)
	assert.Equal(t, "ann", payload.ContactID)

	// Nothing newly read the second time: no second receipt.
	core.router.MarkMessagesRead(ctx, "bo", "ann")
	assert.Len(t, annConn.byType(models.EventMessagesRead), 1)
}

func TestMarkMessagesReadStorageFailureSkipsReceipt(t *testing.T) {
	snapshots := new(mocks.SnapshotStoreMock)
	snapshots.On("Load", mock.Anything).Return(models.Snapshot{}, nil).Once()
	snapshots.On("Save", mock.Anything, mock.Anything).Return(nil).Once()
	snapshots.On("Save", mock.Anything, mock.Anything).Return(assert.AnError)
	core := newTestCoreWith(t, snapshots)
	ctx := context.Background()

	annConn := &fakePusher{}
	core.presence.SetOnline("ann", "Ann", "c1", annConn)
	_, err := core.store.AppendMessage(ctx, "ann", "bo", "hi")
	require.NoError(t, err)

	// The read flags could not be durably recorded: no receipt goes out.
	core.router.MarkMessagesRead(ctx, "bo", "ann")
	assert.Empty(t, annConn.byType(models.EventMessagesRead))
}

func TestMarkMessagesReadUnreachableCounterpart(t *testing.T) {
	core := newTestCore(t)
	ctx := context.Background()

	_, err := core.store.AppendMessage(ctx, "ann", "bo", "hi")
	require.NoError(t, err)

	core.router.MarkMessagesRead(ctx, "bo", "ann")

	history := core.store.History("ann", "bo")
	require.Len(t, history, 1)
	assert.True(t, history[0].Read)
}

func TestTypingRelay(t *testing.T) {
	core := newTestCore(t)

	contact := &fakePusher{}
	core.presence.SetOnline("bo", "Bo", "c2", contact)

	core.router.TypingStart("ann", "bo", "Ann")
	target, ok := core.typing.TargetOf("ann")
	require.True(t, ok)
	assert.Equal(t, "bo", target)

	typingEvents := contact.byType(models.EventUserTyping)
	require.Len(t, typingEvents, 1)
	payload := typingEvents[0].Payload.(models.TypingPayload)
	assert.Equal(t, "ann", payload.UserID)
	assert.Equal(t, "Ann", payload.UserName)

	core.router.TypingStop("ann", "bo")
	_, ok = core.typing.TargetOf("ann")
	assert.False(t, ok)
	require.Len(t, contact.byType(models.EventUserStoppedTyping), 1)
}

func TestTypingToUnreachableContact(t *testing.T) {
	core := newTestCore(t)

	core.router.TypingStart("ann", "bo", "Ann")

	target, ok := core.typing.TargetOf("ann")
	require.True(t, ok)
	assert.Equal(t, "bo", target)
}
