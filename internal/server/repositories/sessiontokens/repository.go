// Package sessiontokens stores the server-side records of refresh and reset
// tokens. A token is only honoured while a live record with the same value
// exists, which is what makes rotation and revocation work.
package sessiontokens

import (
	"context"

	"github.com/dmitrijs2005/gophauth/internal/server/models"
)

// Repository keeps at most one token per (user, purpose).
type Repository interface {
	// Upsert stores token, replacing any earlier record for the same
	// user and purpose.
	Upsert(ctx context.Context, token *models.SessionToken) error

	// FindByToken returns the live record holding value. An expired record is
	// deleted and reported as common.ErrorNotFound.
	FindByToken(ctx context.Context, purpose models.TokenPurpose, value string) (*models.SessionToken, error)

	// DeleteByUser removes the user's record for purpose. Deleting nothing is not an error.
	DeleteByUser(ctx context.Context, userID string, purpose models.TokenPurpose) error
}
