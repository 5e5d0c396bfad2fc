package models

import (
	"strings"
	"time"
)

// Delivery status values. A message is "sent" once durably stored and
// upgraded to "delivered" when it was pushed to a live receiver connection.
const (
	StatusSent      = "sent"
	StatusDelivered = "delivered"
)

// Message is one pairwise chat message. The body is immutable; only the
// delivery status and the read flag are upgraded after creation.
type Message struct {
	ID         string     `json:"id"`
	SenderID   string     `json:"senderId"`
	ReceiverID string     `json:"receiverId"`
	Text       string     `json:"text"`
	Timestamp  time.Time  `json:"timestamp"`
	Status     string     `json:"status"`
	Read       bool       `json:"read"`
	ReadAt     *time.Time `json:"readAt,omitempty"`
}

// ConversationKey derives the canonical key of the chat between two users.
// The key is symmetric: ConversationKey(a, b) == ConversationKey(b, a).
func ConversationKey(a, b string) string {
	if a > b {
		a, b = b, a
	}
	return strings.Join([]string{a, b}, "_")
}

// ConversationKey groups the message into exactly one chat thread,
// regardless of which party sent it.
func (m Message) ConversationKey() string {
	return ConversationKey(m.SenderID, m.ReceiverID)
}
