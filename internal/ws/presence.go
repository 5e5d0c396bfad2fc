package ws

import (
	"log"
	"sync"

	"blur-chat/internal/models"
)

type presenceEntry struct {
	conn   Pusher
	connID string
	name   string
}

// PresenceRegistry tracks which users currently hold a live connection. It
// is the source of truth for reachability: entries exist only while a
// connection is open and the whole registry starts empty on process restart.
//
// One entry per user: a second connection for the same identity supersedes
// the first, which is left orphaned until its own read loop ends.
type PresenceRegistry struct {
	mu     sync.RWMutex
	byUser map[string]presenceEntry
	byConn map[string]string
}

// NewPresenceRegistry creates an empty registry.
func NewPresenceRegistry() *PresenceRegistry {
	return &PresenceRegistry{
		byUser: make(map[string]presenceEntry),
		byConn: make(map[string]string),
	}
}

// SetOnline registers the connection for the user, overwriting any prior
// entry and its reverse-index slot.
func (r *PresenceRegistry) SetOnline(userID, name, connID string, conn Pusher) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if prev, ok := r.byUser[userID]; ok {
		delete(r.byConn, prev.connID)
	}
	r.byUser[userID] = presenceEntry{conn: conn, connID: connID, name: name}
	r.byConn[connID] = userID
}

// Remove drops the user's entry, if any.
func (r *PresenceRegistry) Remove(userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if entry, ok := r.byUser[userID]; ok {
		delete(r.byConn, entry.connID)
		delete(r.byUser, userID)
	}
}

// Get returns the user's live connection.
func (r *PresenceRegistry) Get(userID string) (Pusher, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.byUser[userID]
	if !ok {
		return nil, false
	}
	return entry.conn, true
}

// IsOnline reports whether the user is reachable right now.
func (r *PresenceRegistry) IsOnline(userID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.byUser[userID]
	return ok
}

// Lookup resolves a connection handle back to the user that joined with it.
// Connections that disconnected before joining resolve to nothing.
func (r *PresenceRegistry) Lookup(connID string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	userID, ok := r.byConn[connID]
	if !ok {
		return "", false
	}
	// A superseded connection may still carry a stale handle; only the
	// handle currently indexed for the user counts.
	if entry, live := r.byUser[userID]; !live || entry.connID != connID {
		return "", false
	}
	return userID, ok
}

// OnlineIDs lists the identities of all reachable users.
func (r *PresenceRegistry) OnlineIDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.byUser))
	for id := range r.byUser {
		ids = append(ids, id)
	}
	return ids
}

// Snapshot builds the presence list pushed to a freshly-joined client.
func (r *PresenceRegistry) Snapshot() []models.OnlineUser {
	r.mu.RLock()
	defer r.mu.RUnlock()
	users := make([]models.OnlineUser, 0, len(r.byUser))
	for id, entry := range r.byUser {
		users = append(users, models.OnlineUser{ID: id, Name: entry.name, IsOnline: true})
	}
	return users
}

// Broadcast pushes the event to every live connection. Write failures are
// logged and left for the failed connection's own disconnect flow to clean.
func (r *PresenceRegistry) Broadcast(event models.OutboundEvent) {
	r.mu.RLock()
	conns := make([]Pusher, 0, len(r.byUser))
	for _, entry := range r.byUser {
		conns = append(conns, entry.conn)
	}
	r.mu.RUnlock()

	for _, conn := range conns {
		if err := conn.Push(event); err != nil {
			log.Printf("websocket write error: %v", err)
		}
	}
}
