package models

import "time"

// User is the authenticated account owner.
type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// Session is the in-memory login session. ExpiresAt is absolute wall-clock,
// computed once at login; activity does not extend it.
type Session struct {
	Token         string    `json:"-"`
	User          User      `json:"user"`
	ExpiresAt     time.Time `json:"expires_at"`
	WarningActive bool      `json:"-"`
}

// Remaining returns how long the session has left at the given instant.
func (s *Session) Remaining(now time.Time) time.Duration {
	return s.ExpiresAt.Sub(now)
}
