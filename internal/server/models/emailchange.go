package models

import "time"

// EmailChangeRequest is a pending, not yet confirmed change of a user's email.
// There is at most one per UserID.
type EmailChangeRequest struct {
	ID        int64
	UserID    string
	Email     string
	Token     string
	ExpiresAt time.Time
}

func (r *EmailChangeRequest) Expired(now time.Time) bool {
	return !now.Before(r.ExpiresAt)
}
