package models

import "time"

// LastSeenOnline is the sentinel stored while a user holds a live connection.
const LastSeenOnline = "Online"

// User is a registered account. The password hash is persisted with the
// snapshot but never serialized toward clients; handlers expose PublicUser.
type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"password"`
	Avatar       string    `json:"avatar"`
	CreatedAt    time.Time `json:"createdAt"`
	LastSeen     string    `json:"lastSeen"`
}

// PublicUser is the client-facing view of a user.
type PublicUser struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Avatar   string `json:"avatar"`
	LastSeen string `json:"lastSeen"`
}

// Public strips credentials from the user record.
func (u User) Public() PublicUser {
	lastSeen := u.LastSeen
	if lastSeen == "" {
		lastSeen = "Recently"
	}
	return PublicUser{
		ID:       u.ID,
		Name:     u.Name,
		Username: u.Username,
		Email:    u.Email,
		Avatar:   u.Avatar,
		LastSeen: lastSeen,
	}
}

// Contact is a contact-list entry: a public user enriched with the live
// online flag and the most recent message exchanged with the caller.
type Contact struct {
	PublicUser
	IsOnline    bool         `json:"isOnline"`
	LastMessage *LastMessage `json:"lastMessage"`
}

// LastMessage is the contact-list preview of the newest message in a chat.
type LastMessage struct {
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
	SenderID  string    `json:"senderId"`
}

// Snapshot is the unit of durable state exchanged with the snapshot store.
type Snapshot struct {
	Users    []User    `json:"users"`
	Messages []Message `json:"messages"`
}
