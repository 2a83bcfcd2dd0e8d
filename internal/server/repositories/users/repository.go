// Package users declares the credential store contract and its PostgreSQL
// implementation.
package users

import (
	"context"

	"github.com/dmitrijs2005/gophauth/internal/server/models"
)

// Repository persists user identities. It enforces email uniqueness only.
type Repository interface {
	// Create inserts user and fills in its ID and CreatedAt.
	// Returns common.ErrorAlreadyExists when the email is taken.
	Create(ctx context.Context, user *models.User) (*models.User, error)

	// GetByEmail and GetByID return common.ErrorNotFound when nothing matches.
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)

	// Activate clears the activation token.
	Activate(ctx context.Context, id string) error

	UpdateName(ctx context.Context, id string, name string) (*models.User, error)
	UpdatePassword(ctx context.Context, id string, passwordHash string) error

	// UpdateEmail returns common.ErrorAlreadyExists when email belongs to someone else.
	UpdateEmail(ctx context.Context, id string, email string) (*models.User, error)
}
