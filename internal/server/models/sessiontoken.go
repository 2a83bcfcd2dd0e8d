package models

import "time"

// TokenPurpose tags what a stored session token may be used for.
type TokenPurpose string

const (
	PurposeRefresh TokenPurpose = "refresh"
	PurposeReset   TokenPurpose = "reset"
)

// SessionToken is the server-side record of a refresh or reset token.
// There is at most one per (UserID, Purpose).
type SessionToken struct {
	ID        int64
	UserID    string
	Purpose   TokenPurpose
	Token     string
	ExpiresAt time.Time
}

// Expired reports whether the token is past its expiry at now.
func (t *SessionToken) Expired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}
