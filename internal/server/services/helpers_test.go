package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/cryptox"
	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/dmitrijs2005/gophauth/internal/server/auth"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/memory"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type sentMail struct {
	kind  string
	to    string
	other string
	token string
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []sentMail
	err  error
}

func (f *fakeNotifier) record(m sentMail) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, m)
	return nil
}

func (f *fakeNotifier) SendActivationLink(_ context.Context, email, token string) error {
	return f.record(sentMail{kind: "activation", to: email, token: token})
}

func (f *fakeNotifier) SendResetPasswordLink(_ context.Context, email, token string) error {
	return f.record(sentMail{kind: "reset", to: email, token: token})
}

func (f *fakeNotifier) SendPasswordChangedNotification(_ context.Context, email string) error {
	return f.record(sentMail{kind: "password-changed", to: email})
}

func (f *fakeNotifier) SendAttemptToChangeEmail(_ context.Context, oldEmail, newEmail string) error {
	return f.record(sentMail{kind: "email-change-attempt", to: oldEmail, other: newEmail})
}

func (f *fakeNotifier) SendChangeEmailConfirmation(_ context.Context, newEmail, token string) error {
	return f.record(sentMail{kind: "email-change-confirm", to: newEmail, token: token})
}

func (f *fakeNotifier) SendEmailChangedNotification(_ context.Context, oldEmail, newEmail string) error {
	return f.record(sentMail{kind: "email-changed", to: oldEmail, other: newEmail})
}

// last returns the most recent mail of kind.
func (f *fakeNotifier) last(t *testing.T, kind string) sentMail {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.sent) - 1; i >= 0; i-- {
		if f.sent[i].kind == kind {
			return f.sent[i]
		}
	}
	t.Fatalf("no %q mail sent", kind)
	return sentMail{}
}

func (f *fakeNotifier) count(kind string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, m := range f.sent {
		if m.kind == kind {
			n++
		}
	}
	return n
}

type testEnv struct {
	svc      *UserService
	repos    *memory.Repositories
	codec    *auth.Codec
	notifier *fakeNotifier
	clock    *testClock
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	clock := &testClock{t: time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)}
	repos := memory.NewRepositories(clock.Now)
	codec := auth.NewCodec(map[auth.Purpose]auth.Key{
		auth.PurposeAccess:  {Secret: []byte("access-secret")},
		auth.PurposeRefresh: {Secret: []byte("refresh-secret")},
		auth.PurposeReset:   {Secret: []byte("reset-secret")},
	}, auth.WithClock(clock.Now))
	notifier := &fakeNotifier{}

	svc := NewUserService(
		Stores{Users: repos.Users, Tokens: repos.Tokens, EmailChanges: repos.EmailChanges},
		codec,
		cryptox.NewBcryptHasher(bcrypt.MinCost),
		notifier,
		logging.Nop(),
		WithClock(clock.Now),
	)
	return &testEnv{svc: svc, repos: repos, codec: codec, notifier: notifier, clock: clock}
}

// activeUser registers and activates a user, returning the first session.
func (e *testEnv) activeUser(t *testing.T, email, password, name string) *Session {
	t.Helper()
	ctx := context.Background()
	_, err := e.svc.Register(ctx, RegisterInput{Email: email, Password: password, Name: name})
	require.NoError(t, err)

	sess, err := e.svc.Activate(ctx, email, e.notifier.last(t, "activation").token)
	require.NoError(t, err)
	return sess
}

func requireKind(t *testing.T, err error, kind common.Kind) *common.APIError {
	t.Helper()
	var apiErr *common.APIError
	require.True(t, errors.As(err, &apiErr), "want *common.APIError, got %v", err)
	require.Equal(t, kind, apiErr.Kind, "unexpected error %v", apiErr)
	return apiErr
}
