package models

import "encoding/json"

// Inbound websocket event types.
const (
	EventJoin        = "join"
	EventSendMessage = "send_message"
	EventTypingStart = "typing_start"
	EventTypingStop  = "typing_stop"
	EventMarkRead    = "mark_messages_read"
	EventPing        = "ping"
)

// Outbound websocket event types.
const (
	EventOnlineUsers       = "online_users"
	EventUserOnline        = "user_online"
	EventUserOffline       = "user_offline"
	EventNewMessage        = "new_message"
	EventMessageSent       = "message_sent"
	EventChatUpdated       = "chat_updated"
	EventUserTyping        = "user_typing"
	EventUserStoppedTyping = "user_stopped_typing"
	EventMessagesRead      = "messages_read"
	EventError             = "error"
	EventPong              = "pong"
)

// InboundEvent is the envelope read from a websocket connection. The payload
// is decoded per event type by the dispatcher.
type InboundEvent struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// OutboundEvent is the envelope pushed to a websocket connection.
type OutboundEvent struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

// JoinPayload identifies the user behind a freshly-opened connection.
type JoinPayload struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Username string `json:"username"`
	Avatar   string `json:"avatar"`
}

// SendMessagePayload is a message draft from a client.
type SendMessagePayload struct {
	SenderID   string `json:"senderId"`
	ReceiverID string `json:"receiverId"`
	Text       string `json:"text"`
}

// TypingPayload signals typing state toward a single counterpart.
type TypingPayload struct {
	UserID    string `json:"userId"`
	ContactID string `json:"contactId"`
	UserName  string `json:"userName,omitempty"`
}

// MarkReadPayload acknowledges reading all unread messages from a contact.
type MarkReadPayload struct {
	UserID    string `json:"userId"`
	ContactID string `json:"contactId"`
}

// PresencePayload announces a presence transition to all connections.
type PresencePayload struct {
	UserID   string `json:"userId"`
	UserName string `json:"userName"`
	IsOnline bool   `json:"isOnline"`
	LastSeen string `json:"lastSeen,omitempty"`
}

// OnlineUser is one entry of the presence snapshot sent to a joining client.
type OnlineUser struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	IsOnline bool   `json:"isOnline"`
}

// ChatUpdatedPayload lets clients reorder contact lists without a refetch.
type ChatUpdatedPayload struct {
	ContactID   string  `json:"contactId"`
	LastMessage Message `json:"lastMessage"`
}

// MessagesReadPayload is the read receipt pushed to the original sender.
type MessagesReadPayload struct {
	ReaderID  string `json:"readerId"`
	ContactID string `json:"contactId"`
}

// ErrorPayload reports a non-fatal failure to the initiating connection.
type ErrorPayload struct {
	Message string `json:"message"`
}
