// Package auth mints and verifies the signed tokens handed to clients.
// Each purpose (access, refresh, reset) has its own secret, lifetime and
// audience, so a token minted for one purpose never verifies as another.
package auth

import (
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type Purpose string

const (
	PurposeAccess  Purpose = "access"
	PurposeRefresh Purpose = "refresh"
	PurposeReset   Purpose = "reset"
)

// Default lifetimes used when a Key carries no TTL.
var defaultTTL = map[Purpose]time.Duration{
	PurposeAccess:  10 * time.Minute,
	PurposeRefresh: 30 * 24 * time.Hour,
	PurposeReset:   10 * time.Minute,
}

type Key struct {
	Secret []byte
	TTL    time.Duration
}

// Payload is the user data carried inside a token.
type Payload struct {
	ID    string
	Name  string
	Email string
}

// Claims are the registered claims plus the payload.
type Claims struct {
	jwt.RegisteredClaims
	UserID string `json:"id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
}

type Codec struct {
	keys map[Purpose]Key
	now  func() time.Time
}

type CodecOption func(*Codec)

// WithClock overrides the time source used for iat, exp and validation.
func WithClock(now func() time.Time) CodecOption {
	return func(c *Codec) { c.now = now }
}

func NewCodec(keys map[Purpose]Key, opts ...CodecOption) *Codec {
	c := &Codec{keys: make(map[Purpose]Key, len(keys)), now: time.Now}
	for p, k := range keys {
		if k.TTL <= 0 {
			k.TTL = defaultTTL[p]
		}
		c.keys[p] = k
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Mint signs payload for purpose. A ttl <= 0 uses the purpose's configured lifetime.
func (c *Codec) Mint(purpose Purpose, payload Payload, ttl time.Duration) (string, error) {
	key, ok := c.keys[purpose]
	if !ok {
		return "", fmt.Errorf("%w: %q", common.ErrUnknownPurpose, purpose)
	}
	if ttl <= 0 {
		ttl = key.TTL
	}

	now := c.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Audience:  jwt.ClaimStrings{string(purpose)},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		UserID: payload.ID,
		Name:   payload.Name,
		Email:  payload.Email,
	})

	tokenString, err := token.SignedString(key.Secret)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

// Verify reports whether token was signed for purpose and has not expired.
func (c *Codec) Verify(purpose Purpose, tokenString string) (Payload, bool) {
	key, ok := c.keys[purpose]
	if !ok || tokenString == "" {
		return Payload{}, false
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return key.Secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(string(purpose)),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil || !token.Valid {
		return Payload{}, false
	}

	return Payload{ID: claims.UserID, Name: claims.Name, Email: claims.Email}, true
}

// ExpiryOf reads the exp claim without checking the signature.
func (c *Codec) ExpiryOf(tokenString string) (time.Time, bool) {
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tokenString, claims); err != nil {
		return time.Time{}, false
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}

// TTL returns the configured lifetime for purpose.
func (c *Codec) TTL(purpose Purpose) time.Duration {
	return c.keys[purpose].TTL
}
