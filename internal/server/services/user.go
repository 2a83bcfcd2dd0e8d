// Package services contains server-side business logic. This file implements
// UserService, which owns the credential and token lifecycle: registration and
// activation, login, refresh-token rotation, logout, password reset and the
// profile changes (name, password, email).
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/cryptox"
	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/dmitrijs2005/gophauth/internal/server/auth"
	"github.com/dmitrijs2005/gophauth/internal/server/mailer"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/emailchanges"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/sessiontokens"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/users"
	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/google/uuid"
)

const (
	defaultUserName       = "User"
	defaultEmailChangeTTL = 15 * time.Minute
	emailChangeTokenBytes = 32
)

const (
	msgNotActivated  = "Account is not activated. Please check your email to activate"
	msgInvalidToken  = "Invalid token"
	msgNoSuchEmail   = "No such user with this email"
	msgConfirmDiffer = "Confirm password is different from new password"
)

// Stores groups the repositories UserService depends on.
type Stores struct {
	Users        users.Repository
	Tokens       sessiontokens.Repository
	EmailChanges emailchanges.Repository
}

type UserService struct {
	stores         Stores
	codec          *auth.Codec
	hasher         cryptox.PasswordHasher
	notifier       mailer.Notifier
	log            logging.Logger
	now            func() time.Time
	emailChangeTTL time.Duration
}

type Option func(*UserService)

// WithClock overrides the time source for email-change expiry.
func WithClock(now func() time.Time) Option {
	return func(s *UserService) { s.now = now }
}

func WithEmailChangeTTL(d time.Duration) Option {
	return func(s *UserService) {
		if d > 0 {
			s.emailChangeTTL = d
		}
	}
}

func NewUserService(stores Stores, codec *auth.Codec, hasher cryptox.PasswordHasher, notifier mailer.Notifier, log logging.Logger, opts ...Option) *UserService {
	s := &UserService{
		stores:         stores,
		codec:          codec,
		hasher:         hasher,
		notifier:       notifier,
		log:            log.With("module", "users"),
		now:            time.Now,
		emailChangeTTL: defaultEmailChangeTTL,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type RegisterInput struct {
	Email    string
	Password string
	Name     string
}

// Register creates a pending user and mails the activation link.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	if err := collect(validation.Errors{
		"email":    ValidateEmail(in.Email),
		"password": ValidatePassword(in.Password),
		"name":     ValidateName(in.Name, false),
	}); err != nil {
		return nil, err
	}

	_, err := s.stores.Users.GetByEmail(ctx, in.Email)
	switch {
	case err == nil:
		return nil, userExists()
	case !errors.Is(err, common.ErrorNotFound):
		return nil, fmt.Errorf("register: %w", err)
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("register: %w", err)
	}

	name := in.Name
	if name == "" {
		name = defaultUserName
	}
	activationToken := uuid.NewString()

	user, err := s.stores.Users.Create(ctx, &models.User{
		Name:            name,
		Email:           in.Email,
		PasswordHash:    hash,
		ActivationToken: &activationToken,
	})
	if err != nil {
		if errors.Is(err, common.ErrorAlreadyExists) {
			return nil, userExists()
		}
		return nil, fmt.Errorf("register: %w", err)
	}

	if err := s.notifier.SendActivationLink(ctx, user.Email, activationToken); err != nil {
		return nil, fmt.Errorf("register: send activation link: %w", err)
	}

	s.log.Info(ctx, "user registered", "user_id", user.ID)
	return user, nil
}

// Activate moves a pending user to active when token matches and opens a session.
// An unknown email and a wrong token both fail with NotFound.
func (s *UserService) Activate(ctx context.Context, email, token string) (*Session, error) {
	user, err := s.stores.Users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.NotFound(map[string]string{"email": msgNoSuchEmail})
		}
		return nil, fmt.Errorf("activate: %w", err)
	}

	if user.ActivationToken == nil || *user.ActivationToken != token {
		return nil, common.NotFound(map[string]string{"token": "No such user with this token"})
	}

	if err := s.stores.Users.Activate(ctx, user.ID); err != nil {
		return nil, fmt.Errorf("activate: %w", err)
	}
	user.ActivationToken = nil

	s.log.Info(ctx, "user activated", "user_id", user.ID)
	return s.issueSession(ctx, user)
}

func (s *UserService) Login(ctx context.Context, email, password string) (*Session, error) {
	if err := collect(validation.Errors{
		"email":    ValidateEmail(email),
		"password": ValidatePassword(password),
	}); err != nil {
		return nil, err
	}

	user, err := s.stores.Users.GetByEmail(ctx, email)
	if err != nil && !errors.Is(err, common.ErrorNotFound) {
		return nil, fmt.Errorf("login: %w", err)
	}
	if user == nil || !s.hasher.Compare(user.PasswordHash, password) {
		return nil, common.Unauthorized(map[string]string{"message": "Invalid credentials"})
	}
	if !user.IsActive() {
		return nil, common.Unauthorized(map[string]string{"message": msgNotActivated})
	}

	return s.issueSession(ctx, user)
}

// Refresh rotates the caller's refresh token. The presented token must verify
// and still be the one on record for its owner.
func (s *UserService) Refresh(ctx context.Context, refreshToken string) (*Session, error) {
	user, err := s.authenticate(ctx, refreshToken)
	if err != nil {
		return nil, err
	}
	return s.issueSession(ctx, user)
}

// Logout revokes the owner's refresh tokens. An absent or invalid token is
// treated as already logged out.
func (s *UserService) Logout(ctx context.Context, refreshToken string) error {
	payload, ok := s.codec.Verify(auth.PurposeRefresh, refreshToken)
	if !ok {
		return nil
	}
	if err := s.stores.Tokens.DeleteByUser(ctx, payload.ID, models.PurposeRefresh); err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	return nil
}

// ForgotPassword issues a fresh reset token for an active user and mails the
// link. Any earlier reset token of that user stops working.
func (s *UserService) ForgotPassword(ctx context.Context, email string) error {
	if err := collect(validation.Errors{"email": ValidateEmail(email)}); err != nil {
		return err
	}

	user, err := s.stores.Users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.NotFound(map[string]string{"email": msgNoSuchEmail})
		}
		return fmt.Errorf("forgot password: %w", err)
	}
	if !user.IsActive() {
		return common.Unauthorized(map[string]string{"message": msgNotActivated})
	}

	if err := s.stores.Tokens.DeleteByUser(ctx, user.ID, models.PurposeReset); err != nil {
		return fmt.Errorf("forgot password: %w", err)
	}

	token, err := s.codec.Mint(auth.PurposeReset, payloadOf(user.Normalize()), 0)
	if err != nil {
		return fmt.Errorf("forgot password: %w", err)
	}
	expiresAt, _ := s.codec.ExpiryOf(token)

	if err := s.stores.Tokens.Upsert(ctx, &models.SessionToken{
		UserID:    user.ID,
		Purpose:   models.PurposeReset,
		Token:     token,
		ExpiresAt: expiresAt,
	}); err != nil {
		return fmt.Errorf("forgot password: %w", err)
	}

	if err := s.notifier.SendResetPasswordLink(ctx, user.Email, token); err != nil {
		return fmt.Errorf("forgot password: send reset link: %w", err)
	}
	return nil
}

// ResetPassword sets a new password for the owner of a stored, valid reset token
// and consumes the token.
func (s *UserService) ResetPassword(ctx context.Context, resetToken, newPassword, confirmPassword string) error {
	if err := collect(validation.Errors{
		"newPassword":     ValidatePassword(newPassword),
		"confirmPassword": ValidatePassword(confirmPassword),
	}); err != nil {
		return err
	}

	invalid := common.Unauthorized(map[string]string{"message": msgInvalidToken})

	record, err := s.stores.Tokens.FindByToken(ctx, models.PurposeReset, resetToken)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return invalid
		}
		return fmt.Errorf("reset password: %w", err)
	}
	payload, ok := s.codec.Verify(auth.PurposeReset, resetToken)
	if !ok || payload.ID != record.UserID {
		return invalid
	}

	if newPassword != confirmPassword {
		return common.BadRequest("Bad confirmation request", map[string]string{"confirmPassword": msgConfirmDiffer})
	}

	user, err := s.stores.Users.GetByID(ctx, record.UserID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return invalid
		}
		return fmt.Errorf("reset password: %w", err)
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("reset password: %w", err)
	}
	if err := s.stores.Users.UpdatePassword(ctx, user.ID, hash); err != nil {
		return fmt.Errorf("reset password: %w", err)
	}
	if err := s.stores.Tokens.DeleteByUser(ctx, user.ID, models.PurposeReset); err != nil {
		return fmt.Errorf("reset password: %w", err)
	}

	if err := s.notifier.SendPasswordChangedNotification(ctx, user.Email); err != nil {
		return fmt.Errorf("reset password: notify: %w", err)
	}

	s.log.Info(ctx, "password reset", "user_id", user.ID)
	return nil
}

func (s *UserService) ChangeName(ctx context.Context, refreshToken, name string) (*models.User, error) {
	if err := collect(validation.Errors{"name": ValidateName(name, true)}); err != nil {
		return nil, err
	}

	user, err := s.authenticate(ctx, refreshToken)
	if err != nil {
		return nil, err
	}

	updated, err := s.stores.Users.UpdateName(ctx, user.ID, name)
	if err != nil {
		return nil, fmt.Errorf("change name: %w", err)
	}
	return updated, nil
}

type ChangePasswordInput struct {
	OldPassword     string
	NewPassword     string
	ConfirmPassword string
}

func (s *UserService) ChangePassword(ctx context.Context, refreshToken string, in ChangePasswordInput) (*models.User, error) {
	user, err := s.authenticate(ctx, refreshToken)
	if err != nil {
		return nil, err
	}

	if err := collect(validation.Errors{
		"oldPassword":     ValidatePassword(in.OldPassword),
		"newPassword":     ValidatePassword(in.NewPassword),
		"confirmPassword": ValidatePassword(in.ConfirmPassword),
	}); err != nil {
		return nil, err
	}

	if !s.hasher.Compare(user.PasswordHash, in.OldPassword) {
		return nil, common.Unauthorized(map[string]string{"oldPassword": "Old password is not correct"})
	}
	if in.NewPassword == in.OldPassword {
		return nil, common.BadRequest("Bad change-password request", map[string]string{"newPassword": "New password is the same as old password"})
	}
	if in.NewPassword != in.ConfirmPassword {
		return nil, common.BadRequest("Bad confirmation request", map[string]string{"confirmPassword": msgConfirmDiffer})
	}

	hash, err := s.hasher.Hash(in.NewPassword)
	if err != nil {
		return nil, fmt.Errorf("change password: %w", err)
	}
	if err := s.stores.Users.UpdatePassword(ctx, user.ID, hash); err != nil {
		return nil, fmt.Errorf("change password: %w", err)
	}
	user.PasswordHash = hash

	return user, nil
}

// RequestEmailChange records a pending switch to newEmail and mails a
// confirmation link to it, plus a notice to the current address.
func (s *UserService) RequestEmailChange(ctx context.Context, refreshToken, newEmail, password string) error {
	user, err := s.authenticate(ctx, refreshToken)
	if err != nil {
		return err
	}

	if err := collect(validation.Errors{
		"newEmail": ValidateEmail(newEmail),
		"password": ValidatePassword(password),
	}); err != nil {
		return err
	}

	if newEmail == user.Email {
		return common.BadRequest("Bad change-email request", map[string]string{"newEmail": "New email is the same as old email"})
	}

	_, err = s.stores.Users.GetByEmail(ctx, newEmail)
	switch {
	case err == nil:
		return userExists()
	case !errors.Is(err, common.ErrorNotFound):
		return fmt.Errorf("request email change: %w", err)
	}

	if !s.hasher.Compare(user.PasswordHash, password) {
		return common.Unauthorized(map[string]string{"password": "Password is not correct"})
	}

	token, err := common.MakeRandHexString(emailChangeTokenBytes)
	if err != nil {
		return fmt.Errorf("request email change: %w", err)
	}

	if err := s.stores.EmailChanges.Upsert(ctx, &models.EmailChangeRequest{
		UserID:    user.ID,
		Email:     newEmail,
		Token:     token,
		ExpiresAt: s.now().Add(s.emailChangeTTL),
	}); err != nil {
		return fmt.Errorf("request email change: %w", err)
	}

	if err := s.notifier.SendAttemptToChangeEmail(ctx, user.Email, newEmail); err != nil {
		return fmt.Errorf("request email change: notify: %w", err)
	}
	if err := s.notifier.SendChangeEmailConfirmation(ctx, newEmail, token); err != nil {
		return fmt.Errorf("request email change: send confirmation: %w", err)
	}
	return nil
}

// ConfirmEmailChange applies the pending change identified by token.
func (s *UserService) ConfirmEmailChange(ctx context.Context, token string) (*models.User, error) {
	req, err := s.stores.EmailChanges.FindByToken(ctx, token)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.BadRequest("No such email-change request", map[string]string{"token": "No such email-change request"})
		}
		return nil, fmt.Errorf("confirm email change: %w", err)
	}

	if req.Expired(s.now()) {
		if err := s.stores.EmailChanges.DeleteByUserID(ctx, req.UserID); err != nil {
			return nil, fmt.Errorf("confirm email change: %w", err)
		}
		return nil, common.Unauthorized(map[string]string{"message": "Change-email token expired"})
	}

	user, err := s.stores.Users.GetByID(ctx, req.UserID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.NotFound(map[string]string{"id": "No user with this id"})
		}
		return nil, fmt.Errorf("confirm email change: %w", err)
	}
	oldEmail := user.Email

	updated, err := s.stores.Users.UpdateEmail(ctx, user.ID, req.Email)
	if err != nil {
		if errors.Is(err, common.ErrorAlreadyExists) {
			if err := s.stores.EmailChanges.DeleteByUserID(ctx, req.UserID); err != nil {
				return nil, fmt.Errorf("confirm email change: %w", err)
			}
			return nil, userExists()
		}
		return nil, fmt.Errorf("confirm email change: %w", err)
	}

	if err := s.stores.EmailChanges.DeleteByUserID(ctx, req.UserID); err != nil {
		return nil, fmt.Errorf("confirm email change: %w", err)
	}

	if err := s.notifier.SendEmailChangedNotification(ctx, oldEmail, updated.Email); err != nil {
		return nil, fmt.Errorf("confirm email change: notify: %w", err)
	}

	s.log.Info(ctx, "email changed", "user_id", updated.ID)
	return updated, nil
}

// authenticate resolves the owner of a refresh token that verifies and is
// still the live record for that owner.
func (s *UserService) authenticate(ctx context.Context, refreshToken string) (*models.User, error) {
	invalid := common.Unauthorized(map[string]string{"message": msgInvalidToken})

	payload, ok := s.codec.Verify(auth.PurposeRefresh, refreshToken)
	if !ok {
		return nil, invalid
	}

	record, err := s.stores.Tokens.FindByToken(ctx, models.PurposeRefresh, refreshToken)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, invalid
		}
		return nil, fmt.Errorf("authenticate: %w", err)
	}
	if record.UserID != payload.ID {
		return nil, invalid
	}

	user, err := s.stores.Users.GetByID(ctx, payload.ID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.Unauthorized(map[string]string{"message": "No such user"})
		}
		return nil, fmt.Errorf("authenticate: %w", err)
	}
	return user, nil
}

func userExists() error {
	return common.BadRequest("User already exists", map[string]string{"email": "User with this email already exists"})
}
