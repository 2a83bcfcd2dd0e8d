// Package models defines server-side records persisted by the repositories.
package models

import "time"

// User is a registered identity. A non-nil ActivationToken means the account
// is still pending and must not be allowed to authenticate.
type User struct {
	ID              string
	Name            string
	Email           string
	PasswordHash    string
	ActivationToken *string
	CreatedAt       time.Time
}

// IsActive reports whether the account has been activated.
func (u *User) IsActive() bool {
	return u.ActivationToken == nil
}

// NormalizedUser is the public view of a user embedded in tokens and responses.
type NormalizedUser struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

func (u *User) Normalize() NormalizedUser {
	return NormalizedUser{ID: u.ID, Name: u.Name, Email: u.Email}
}
