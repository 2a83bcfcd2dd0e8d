// Package memory provides map-backed implementations of every store contract.
// They back the "memory" storage mode and the service and transport tests.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/google/uuid"
)

type Repositories struct {
	Users        *UserRepository
	Tokens       *SessionTokenRepository
	EmailChanges *EmailChangeRepository
}

// NewRepositories builds empty stores. now drives lazy token expiry;
// nil means time.Now.
func NewRepositories(now func() time.Time) *Repositories {
	if now == nil {
		now = time.Now
	}
	return &Repositories{
		Users:        &UserRepository{records: map[string]models.User{}},
		Tokens:       &SessionTokenRepository{records: map[tokenKey]models.SessionToken{}, now: now},
		EmailChanges: &EmailChangeRepository{records: map[string]models.EmailChangeRequest{}},
	}
}

type UserRepository struct {
	mu      sync.RWMutex
	records map[string]models.User
}

func (r *UserRepository) emailTaken(email, exceptID string) bool {
	for id, u := range r.records {
		if u.Email == email && id != exceptID {
			return true
		}
	}
	return false
}

func (r *UserRepository) Create(_ context.Context, user *models.User) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.emailTaken(user.Email, "") {
		return nil, common.ErrorAlreadyExists
	}
	user.ID = uuid.NewString()
	user.CreatedAt = time.Now().UTC()
	r.records[user.ID] = *user
	return user, nil
}

func (r *UserRepository) GetByEmail(_ context.Context, email string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, u := range r.records {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r *UserRepository) GetByID(_ context.Context, id string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.records[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return &u, nil
}

func (r *UserRepository) update(id string, fn func(u *models.User) error) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.records[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	if err := fn(&u); err != nil {
		return nil, err
	}
	r.records[id] = u
	return &u, nil
}

func (r *UserRepository) Activate(_ context.Context, id string) error {
	_, err := r.update(id, func(u *models.User) error {
		u.ActivationToken = nil
		return nil
	})
	return err
}

func (r *UserRepository) UpdateName(_ context.Context, id string, name string) (*models.User, error) {
	return r.update(id, func(u *models.User) error {
		u.Name = name
		return nil
	})
}

func (r *UserRepository) UpdatePassword(_ context.Context, id string, passwordHash string) error {
	_, err := r.update(id, func(u *models.User) error {
		u.PasswordHash = passwordHash
		return nil
	})
	return err
}

func (r *UserRepository) UpdateEmail(_ context.Context, id string, email string) (*models.User, error) {
	return r.update(id, func(u *models.User) error {
		if r.emailTaken(email, id) {
			return common.ErrorAlreadyExists
		}
		u.Email = email
		return nil
	})
}

type tokenKey struct {
	userID  string
	purpose models.TokenPurpose
}

type SessionTokenRepository struct {
	mu      sync.Mutex
	records map[tokenKey]models.SessionToken
	now     func() time.Time
	nextID  int64
}

func (r *SessionTokenRepository) Upsert(_ context.Context, token *models.SessionToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := tokenKey{userID: token.UserID, purpose: token.Purpose}
	if prev, ok := r.records[key]; ok {
		token.ID = prev.ID
	} else {
		r.nextID++
		token.ID = r.nextID
	}
	r.records[key] = *token
	return nil
}

func (r *SessionTokenRepository) FindByToken(_ context.Context, purpose models.TokenPurpose, value string) (*models.SessionToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for key, t := range r.records {
		if t.Purpose != purpose || t.Token != value {
			continue
		}
		if t.Expired(r.now()) {
			delete(r.records, key)
			return nil, common.ErrorNotFound
		}
		return &t, nil
	}
	return nil, common.ErrorNotFound
}

func (r *SessionTokenRepository) DeleteByUser(_ context.Context, userID string, purpose models.TokenPurpose) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.records, tokenKey{userID: userID, purpose: purpose})
	return nil
}

// Len reports how many records are stored, expired ones included.
func (r *SessionTokenRepository) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.records)
}

type EmailChangeRepository struct {
	mu      sync.RWMutex
	records map[string]models.EmailChangeRequest
	nextID  int64
}

func (r *EmailChangeRepository) Upsert(_ context.Context, req *models.EmailChangeRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if prev, ok := r.records[req.UserID]; ok {
		req.ID = prev.ID
	} else {
		r.nextID++
		req.ID = r.nextID
	}
	r.records[req.UserID] = *req
	return nil
}

func (r *EmailChangeRepository) FindByToken(_ context.Context, token string) (*models.EmailChangeRequest, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, req := range r.records {
		if req.Token == token {
			return &req, nil
		}
	}
	return nil, common.ErrorNotFound
}

// Len reports how many requests are pending.
func (r *EmailChangeRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.records)
}

func (r *EmailChangeRepository) DeleteByUserID(_ context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.records, userID)
	return nil
}
