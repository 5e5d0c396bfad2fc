package ws

import (
	"context"
	"errors"
	"log"
	"time"

	"blur-chat/internal/models"
	"blur-chat/internal/observability"
	"blur-chat/internal/store"
	"blur-chat/internal/telemetry"
)

// LifecycleManager handles connection join and disconnect events: it keeps
// the presence registry and typing tracker in step and broadcasts presence
// transitions to everyone.
type LifecycleManager struct {
	store    *store.ConversationStore
	presence *PresenceRegistry
	typing   *TypingTracker
	emitter  *telemetry.EventEmitter
}

// NewLifecycleManager builds a LifecycleManager.
func NewLifecycleManager(conv *store.ConversationStore, presence *PresenceRegistry, typing *TypingTracker, emitter *telemetry.EventEmitter) *LifecycleManager {
	return &LifecycleManager{store: conv, presence: presence, typing: typing, emitter: emitter}
}

// Join registers the user as reachable through conn, marks the durable
// record online, announces the transition to all connections and hands the
// caller a snapshot of everyone currently online.
func (m *LifecycleManager) Join(ctx context.Context, connID string, conn Pusher, profile models.JoinPayload) {
	m.presence.SetOnline(profile.ID, profile.Name, connID, conn)

	if err := m.store.SetLastSeen(ctx, profile.ID, models.LastSeenOnline); err != nil {
		log.Printf("update last seen: %v", err)
		if errors.Is(err, store.ErrStorageFailure) {
			observability.IncStorageFailure()
		}
	}

	m.presence.Broadcast(models.OutboundEvent{Type: models.EventUserOnline, Payload: models.PresencePayload{
		UserID:   profile.ID,
		UserName: profile.Name,
		IsOnline: true,
	}})

	if err := conn.Push(models.OutboundEvent{Type: models.EventOnlineUsers, Payload: m.presence.Snapshot()}); err != nil {
		log.Printf("websocket write error: %v", err)
	}

	observability.IncWSEvent(models.EventUserOnline)
	m.emitter.Emit(ctx, "chat_events.presence", "user_online", map[string]any{
		"user_id": profile.ID,
		"conn_id": connID,
	})
}

// Disconnect resolves the closing connection handle back to its user. A
// handle that never joined is a silent no-op. Otherwise the user is removed
// from presence, the durable last-seen is set to the current wall clock, the
// offline transition is broadcast and any typing state owned by the user is
// cleared.
func (m *LifecycleManager) Disconnect(ctx context.Context, connID string) {
	userID, ok := m.presence.Lookup(connID)
	if !ok {
		return
	}

	m.presence.Remove(userID)

	lastSeen := time.Now().Format("3:04:05 PM")
	if err := m.store.SetLastSeen(ctx, userID, lastSeen); err != nil {
		log.Printf("update last seen: %v", err)
		if errors.Is(err, store.ErrStorageFailure) {
			observability.IncStorageFailure()
		}
	}

	name := ""
	if user, found := m.store.GetUser(userID); found {
		name = user.Name
	}
	m.presence.Broadcast(models.OutboundEvent{Type: models.EventUserOffline, Payload: models.PresencePayload{
		UserID:   userID,
		UserName: name,
		IsOnline: false,
		LastSeen: lastSeen,
	}})

	m.typing.ClearFor(userID)

	observability.IncWSEvent(models.EventUserOffline)
	m.emitter.Emit(ctx, "chat_events.presence", "user_offline", map[string]any{
		"user_id":   userID,
		"conn_id":   connID,
		"last_seen": lastSeen,
	})
}
