// Package emailchanges stores pending email-change requests.
package emailchanges

import (
	"context"

	"github.com/dmitrijs2005/gophauth/internal/server/models"
)

// Repository keeps at most one pending request per user. Expiry is not
// enforced here; callers compare ExpiresAt themselves.
type Repository interface {
	// Upsert stores req, replacing the user's earlier request if any.
	Upsert(ctx context.Context, req *models.EmailChangeRequest) error

	// FindByToken returns common.ErrorNotFound when no request holds token.
	FindByToken(ctx context.Context, token string) (*models.EmailChangeRequest, error)

	DeleteByUserID(ctx context.Context, userID string) error
}
