package ws

import (
	"context"
	"log"

	"blur-chat/internal/models"
	"blur-chat/internal/observability"
	"blur-chat/internal/store"
	"blur-chat/internal/telemetry"
)

// MessageRouter orchestrates the send path: persist, decide deliverability
// from the presence registry, push to live connections and keep the durable
// delivery status in step. Durable writes always complete before anything
// is pushed, so two rapid sends cannot interleave around an unconfirmed
// write.
type MessageRouter struct {
	store    *store.ConversationStore
	presence *PresenceRegistry
	typing   *TypingTracker
	emitter  *telemetry.EventEmitter
}

// NewMessageRouter builds a MessageRouter.
func NewMessageRouter(conv *store.ConversationStore, presence *PresenceRegistry, typing *TypingTracker, emitter *telemetry.EventEmitter) *MessageRouter {
	return &MessageRouter{store: conv, presence: presence, typing: typing, emitter: emitter}
}

// Send persists the draft and routes it. A failed durable write is surfaced
// to the originating connection only; nothing is broadcast. The final
// delivery status reflects receiver reachability at push time; a receiver
// joining later must fetch history, there is no retroactive push.
func (r *MessageRouter) Send(ctx context.Context, origin Pusher, draft models.SendMessagePayload) {
	msg, err := r.store.AppendMessage(ctx, draft.SenderID, draft.ReceiverID, draft.Text)
	if err != nil {
		log.Printf("append message: %v", err)
		observability.IncStorageFailure()
		r.pushError(origin, "message could not be stored")
		return
	}

	receiverConn, receiverLive := r.presence.Get(draft.ReceiverID)
	if receiverLive {
		upgraded, err := r.store.SetMessageStatus(ctx, msg.ID, models.StatusDelivered)
		if err != nil {
			// Keep the weaker "sent" status rather than claim a delivery
			// the durable record does not back.
			log.Printf("upgrade message status: %v", err)
			observability.IncStorageFailure()
			receiverLive = false
		} else {
			msg = upgraded
		}
	}

	if receiverLive {
		r.push(receiverConn, models.OutboundEvent{Type: models.EventNewMessage, Payload: msg})
	}

	if senderConn, ok := r.presence.Get(draft.SenderID); ok {
		r.push(senderConn, models.OutboundEvent{Type: models.EventMessageSent, Payload: msg})
		r.push(senderConn, models.OutboundEvent{Type: models.EventChatUpdated, Payload: models.ChatUpdatedPayload{
			ContactID:   msg.ReceiverID,
			LastMessage: msg,
		}})
	}
	if receiverLive {
		r.push(receiverConn, models.OutboundEvent{Type: models.EventChatUpdated, Payload: models.ChatUpdatedPayload{
			ContactID:   msg.SenderID,
			LastMessage: msg,
		}})
	}

	observability.IncMessageRouted(msg.Status)
	r.emitter.Emit(ctx, "chat_events.messages", "message_routed", map[string]any{
		"message_id":  msg.ID,
		"sender_id":   msg.SenderID,
		"receiver_id": msg.ReceiverID,
		"status":      msg.Status,
	})
}

// MarkMessagesRead flags the reader's unread messages from the contact and,
// when anything was newly read, pushes a read receipt to the contact.
// Repeat calls with nothing left unread push nothing.
func (r *MessageRouter) MarkMessagesRead(ctx context.Context, readerID, contactID string) {
	count, err := r.store.MarkRead(ctx, readerID, contactID)
	if err != nil {
		// The read flags were not durably recorded; pushing a receipt
		// would let the wire run ahead of the store.
		log.Printf("mark messages read: %v", err)
		observability.IncStorageFailure()
		return
	}
	if count == 0 {
		return
	}

	if conn, ok := r.presence.Get(contactID); ok {
		r.push(conn, models.OutboundEvent{Type: models.EventMessagesRead, Payload: models.MessagesReadPayload{
			ReaderID:  readerID,
			ContactID: contactID,
		}})
	}
	r.emitter.Emit(ctx, "chat_events.receipts", "messages_read", map[string]any{
		"reader_id":  readerID,
		"contact_id": contactID,
		"count":      count,
	})
}

// TypingStart records the typing state and relays it to the contact if live.
func (r *MessageRouter) TypingStart(userID, contactID, userName string) {
	r.typing.Start(userID, contactID)
	if conn, ok := r.presence.Get(contactID); ok {
		r.push(conn, models.OutboundEvent{Type: models.EventUserTyping, Payload: models.TypingPayload{
			UserID:    userID,
			ContactID: contactID,
			UserName:  userName,
		}})
	}
}

// TypingStop clears the typing state and relays the stop to the contact.
func (r *MessageRouter) TypingStop(userID, contactID string) {
	r.typing.Stop(userID)
	if conn, ok := r.presence.Get(contactID); ok {
		r.push(conn, models.OutboundEvent{Type: models.EventUserStoppedTyping, Payload: models.TypingPayload{
			UserID:    userID,
			ContactID: contactID,
		}})
	}
}

func (r *MessageRouter) push(conn Pusher, event models.OutboundEvent) {
	if err := conn.Push(event); err != nil {
		log.Printf("websocket write error: %v", err)
		return
	}
	observability.IncWSEvent(event.Type)
}

func (r *MessageRouter) pushError(conn Pusher, message string) {
	if conn == nil {
		return
	}
	if err := conn.Push(models.OutboundEvent{Type: models.EventError, Payload: models.ErrorPayload{Message: message}}); err != nil {
		log.Printf("websocket write error: %v", err)
	}
}
