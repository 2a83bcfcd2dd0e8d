package services

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/server/auth"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
)

// Session is what a successful login, activation or refresh hands back: the
// public user view, a bearer access token and the refresh token for the cookie.
type Session struct {
	User             models.NormalizedUser
	AccessToken      string
	RefreshToken     string
	RefreshExpiresAt time.Time
}

// MaxAge is the refresh token's remaining lifetime at now.
func (s *Session) MaxAge(now time.Time) time.Duration {
	d := s.RefreshExpiresAt.Sub(now)
	if d < 0 {
		return 0
	}
	return d
}

func payloadOf(u models.NormalizedUser) auth.Payload {
	return auth.Payload{ID: u.ID, Name: u.Name, Email: u.Email}
}

// issueSession mints an access/refresh pair for user and stores the refresh
// token, replacing whatever refresh token the user held before.
func (s *UserService) issueSession(ctx context.Context, user *models.User) (*Session, error) {
	normalized := user.Normalize()
	payload := payloadOf(normalized)

	access, err := s.codec.Mint(auth.PurposeAccess, payload, 0)
	if err != nil {
		return nil, fmt.Errorf("mint access token: %w", err)
	}
	refresh, err := s.codec.Mint(auth.PurposeRefresh, payload, 0)
	if err != nil {
		return nil, fmt.Errorf("mint refresh token: %w", err)
	}
	expiresAt, ok := s.codec.ExpiryOf(refresh)
	if !ok {
		return nil, fmt.Errorf("refresh token has no expiry")
	}

	record := &models.SessionToken{
		UserID:    user.ID,
		Purpose:   models.PurposeRefresh,
		Token:     refresh,
		ExpiresAt: expiresAt,
	}
	if err := s.stores.Tokens.Upsert(ctx, record); err != nil {
		return nil, fmt.Errorf("store refresh token: %w", err)
	}

	return &Session{
		User:             normalized,
		AccessToken:      access,
		RefreshToken:     refresh,
		RefreshExpiresAt: expiresAt,
	}, nil
}
