package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"blur-chat/internal/models"
	"blur-chat/internal/storage"
)

var (
	// ErrDuplicateUser is returned when a signup collides on email or username.
	ErrDuplicateUser = errors.New("user already exists with this email or username")
	// ErrUserNotFound is returned for lookups of unknown user ids.
	ErrUserNotFound = errors.New("user not found")
	// ErrMessageNotFound is returned for status upgrades of unknown messages.
	ErrMessageNotFound = errors.New("message not found")
	// ErrStorageFailure wraps durable write failures. The in-memory state has
	// already been mutated when it is returned; callers decide who to inform.
	ErrStorageFailure = errors.New("storage failure")
)

const defaultAvatar = "👤"

// ConversationStore is the durable record of users and messages. State lives
// in memory and is written through to the snapshot collaborator after every
// mutation. It knows nothing about live connections; callers supply the
// online flag where views need one.
type ConversationStore struct {
	mu        sync.RWMutex
	users     []models.User
	messages  []models.Message
	snapshots storage.SnapshotStore
	lastMsgID int64
}

// New loads prior state from the snapshot store.
func New(ctx context.Context, snapshots storage.SnapshotStore) (*ConversationStore, error) {
	snap, err := snapshots.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}

	s := &ConversationStore{
		users:     snap.Users,
		messages:  snap.Messages,
		snapshots: snapshots,
	}
	for _, m := range snap.Messages {
		if id, err := strconv.ParseInt(m.ID, 10, 64); err == nil && id > s.lastMsgID {
			s.lastMsgID = id
		}
	}
	return s, nil
}

// CreateUser registers a new account. Email and username must be unique.
func (s *ConversationStore) CreateUser(ctx context.Context, name, username, email, passwordHash string) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if u.Email == email || u.Username == username {
			return models.User{}, ErrDuplicateUser
		}
	}

	user := models.User{
		ID:           uuid.NewString(),
		Name:         name,
		Username:     username,
		Email:        email,
		PasswordHash: passwordHash,
		Avatar:       defaultAvatar,
		CreatedAt:    time.Now().UTC(),
		LastSeen:     models.LastSeenOnline,
	}
	s.users = append(s.users, user)

	if err := s.persistLocked(ctx); err != nil {
		return models.User{}, err
	}
	return user, nil
}

// FindByEmail looks a user up by email. Credential checks belong to the
// auth collaborator, not the store.
func (s *ConversationStore) FindByEmail(email string) (models.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.Email == email {
			return u, true
		}
	}
	return models.User{}, false
}

// GetUser fetches a user by id.
func (s *ConversationStore) GetUser(id string) (models.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.ID == id {
			return u, true
		}
	}
	return models.User{}, false
}

// SetLastSeen updates the user's durable last-seen value, either the
// "Online" sentinel or a wall-clock string captured at disconnect.
func (s *ConversationStore) SetLastSeen(ctx context.Context, userID, lastSeen string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.users {
		if s.users[i].ID == userID {
			s.users[i].LastSeen = lastSeen
			return s.persistLocked(ctx)
		}
	}
	return ErrUserNotFound
}

// ListUsersExcluding returns all users except exceptID as contact-list
// entries. Users with message history come first, newest conversation first;
// the rest follow ordered by the live online flag, then by display name.
func (s *ConversationStore) ListUsersExcluding(exceptID string, online func(userID string) bool) []models.Contact {
	s.mu.RLock()
	defer s.mu.RUnlock()

	// Newest message per counterpart, single pass over history.
	latest := make(map[string]models.Message)
	for _, m := range s.messages {
		var other string
		switch exceptID {
		case m.SenderID:
			other = m.ReceiverID
		case m.ReceiverID:
			other = m.SenderID
		default:
			continue
		}
		if prev, ok := latest[other]; !ok || m.Timestamp.After(prev.Timestamp) {
			latest[other] = m
		}
	}

	contacts := make([]models.Contact, 0, len(s.users))
	for _, u := range s.users {
		if u.ID == exceptID {
			continue
		}
		contact := models.Contact{
			PublicUser: u.Public(),
			IsOnline:   online != nil && online(u.ID),
		}
		if m, ok := latest[u.ID]; ok {
			contact.LastMessage = &models.LastMessage{
				Text:      m.Text,
				Timestamp: m.Timestamp,
				SenderID:  m.SenderID,
			}
		}
		contacts = append(contacts, contact)
	}

	names := collate.New(language.English, collate.IgnoreCase)
	sort.SliceStable(contacts, func(i, j int) bool {
		a, b := contacts[i], contacts[j]
		if a.LastMessage != nil && b.LastMessage != nil {
			return a.LastMessage.Timestamp.After(b.LastMessage.Timestamp)
		}
		if a.LastMessage != nil {
			return true
		}
		if b.LastMessage != nil {
			return false
		}
		if a.IsOnline != b.IsOnline {
			return a.IsOnline
		}
		return names.CompareString(a.Name, b.Name) < 0
	})
	return contacts
}

// AppendMessage stores a new message with status "sent" and an unset read
// flag. On a failed durable write the message remains in memory and
// ErrStorageFailure is returned.
func (s *ConversationStore) AppendMessage(ctx context.Context, senderID, receiverID, text string) (models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	msg := models.Message{
		ID:         s.nextMessageIDLocked(),
		SenderID:   senderID,
		ReceiverID: receiverID,
		Text:       text,
		Timestamp:  time.Now().UTC(),
		Status:     models.StatusSent,
		Read:       false,
	}
	s.messages = append(s.messages, msg)

	if err := s.persistLocked(ctx); err != nil {
		return msg, err
	}
	return msg, nil
}

// SetMessageStatus upgrades the delivery status of a stored message.
func (s *ConversationStore) SetMessageStatus(ctx context.Context, messageID, status string) (models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.messages {
		if s.messages[i].ID == messageID {
			s.messages[i].Status = status
			msg := s.messages[i]
			if err := s.persistLocked(ctx); err != nil {
				return msg, err
			}
			return msg, nil
		}
	}
	return models.Message{}, ErrMessageNotFound
}

// History returns every message of the chat between idA and idB, ascending
// by timestamp. The result is identical regardless of argument order.
func (s *ConversationStore) History(idA, idB string) []models.Message {
	key := models.ConversationKey(idA, idB)

	s.mu.RLock()
	defer s.mu.RUnlock()

	var msgs []models.Message
	for _, m := range s.messages {
		if m.ConversationKey() == key {
			msgs = append(msgs, m)
		}
	}
	sort.SliceStable(msgs, func(i, j int) bool {
		if msgs[i].Timestamp.Equal(msgs[j].Timestamp) {
			return msgs[i].ID < msgs[j].ID
		}
		return msgs[i].Timestamp.Before(msgs[j].Timestamp)
	})
	return msgs
}

// MarkRead flags every unread message from counterpartID to readerID as
// read and returns how many were newly flagged. A second call with nothing
// left unread is a no-op and skips the durable write entirely.
func (s *ConversationStore) MarkRead(ctx context.Context, readerID, counterpartID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	count := 0
	for i := range s.messages {
		m := &s.messages[i]
		if m.SenderID == counterpartID && m.ReceiverID == readerID && !m.Read {
			m.Read = true
			readAt := now
			m.ReadAt = &readAt
			count++
		}
	}
	if count == 0 {
		return 0, nil
	}
	if err := s.persistLocked(ctx); err != nil {
		return count, err
	}
	return count, nil
}

// Counts reports user and message totals for the status endpoint.
func (s *ConversationStore) Counts() (users, messages int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.users), len(s.messages)
}

// nextMessageIDLocked assigns message ids that stay monotonic even when two
// sends land inside the same millisecond.
func (s *ConversationStore) nextMessageIDLocked() string {
	id := time.Now().UnixMilli()
	if id <= s.lastMsgID {
		id = s.lastMsgID + 1
	}
	s.lastMsgID = id
	return strconv.FormatInt(id, 10)
}

func (s *ConversationStore) persistLocked(ctx context.Context) error {
	snap := models.Snapshot{
		Users:    append([]models.User(nil), s.users...),
		Messages: append([]models.Message(nil), s.messages...),
	}
	if err := s.snapshots.Save(ctx, snap); err != nil {
		return fmt.Errorf("%w: %v", ErrStorageFailure, err)
	}
	return nil
}
