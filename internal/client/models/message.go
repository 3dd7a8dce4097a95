package models

import "time"

// Message is a single chat message. When SecondaryAuthRequired is true the
// Content field holds the server-side placeholder until a secondary code has
// been verified and the unlocked content fetched; the lock-related fields are
// meaningless when SecondaryAuthRequired is false.
type Message struct {
	ID                    string     `json:"id"`
	ConversationID        string     `json:"conversation_id"`
	SenderID              string     `json:"sender_id"`
	Content               string     `json:"content"`
	OriginalContent       string     `json:"original_content,omitempty"`
	Timestamp             time.Time  `json:"timestamp"`
	SecondaryAuthRequired bool       `json:"secondary_auth"`
	SecondaryVerified     bool       `json:"-"`
	SecondaryUnlockedAt   *time.Time `json:"-"`
	VerificationAttempts  int        `json:"-"`
}

// Locked reports whether the message content is currently opaque to the user.
func (m *Message) Locked() bool {
	return m.SecondaryAuthRequired && !m.SecondaryVerified
}
