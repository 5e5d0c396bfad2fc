package ws

import "sync"

// TypingTracker records which user is currently signaling typing toward
// whom. One entry per user; entries expire only on an explicit stop or on
// disconnect, never on a timer.
type TypingTracker struct {
	mu     sync.Mutex
	byUser map[string]string
}

// NewTypingTracker creates an empty tracker.
func NewTypingTracker() *TypingTracker {
	return &TypingTracker{byUser: make(map[string]string)}
}

// Start records the user typing toward the contact, replacing any prior
// target.
func (t *TypingTracker) Start(userID, contactID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.byUser[userID] = contactID
}

// Stop clears the user's typing state.
func (t *TypingTracker) Stop(userID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.byUser, userID)
}

// ClearFor drops any typing state owned by the user. Used on disconnect.
func (t *TypingTracker) ClearFor(userID string) {
	t.Stop(userID)
}

// TargetOf returns who the user is typing toward, if anyone.
func (t *TypingTracker) TargetOf(userID string) (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	contactID, ok := t.byUser[userID]
	return contactID, ok
}
