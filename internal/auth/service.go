package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/classpoint/classpoint/internal/shared"
)

// ErrTokenInvalid covers unknown, expired and already-used reset tokens; the
// three cases are indistinguishable to the caller.
var ErrTokenInvalid = errors.New("auth: invalid or expired token")

// Notifier dispatches account emails. Implementations are fire-and-forget; a
// failed notification never blocks the flow that triggered it.
type Notifier interface {
	PasswordResetRequested(ctx context.Context, email, name, token string)
}

// Service wraps authentication business rules.
type Service struct {
	repo     Repository
	notify   Notifier
	resetTTL time.Duration
}

// NewService constructs a new Service.
func NewService(repo Repository, notify Notifier, resetTTL time.Duration) *Service {
	if resetTTL <= 0 {
		resetTTL = 24 * time.Hour
	}
	return &Service{repo: repo, notify: notify, resetTTL: resetTTL}
}

// Authenticate validates email/password credentials. Every failure mode
// (unknown email, deactivated account, password-less account, wrong password)
// surfaces as the same error.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*Account, error) {
	acc, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return nil, shared.ErrInvalidCredentials
	}
	if !acc.IsActive || acc.PasswordHash == nil {
		return nil, shared.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(*acc.PasswordHash), []byte(password)); err != nil {
		return nil, shared.ErrInvalidCredentials
	}
	return acc, nil
}

// ForgotPassword issues a reset token and emails it. The result is identical
// whether or not the email maps to an account, so the endpoint cannot be used
// to enumerate accounts.
func (s *Service) ForgotPassword(ctx context.Context, email string) error {
	acc, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil
		}
		return err
	}
	if !acc.IsActive || acc.PasswordHash == nil {
		return nil
	}
	token, err := generateToken()
	if err != nil {
		return err
	}
	if err := s.repo.ReplaceResetToken(ctx, PasswordResetToken{
		Token:     token,
		UserID:    acc.ID,
		ExpiresAt: time.Now().Add(s.resetTTL),
	}); err != nil {
		return err
	}
	if s.notify != nil {
		s.notify.PasswordResetRequested(ctx, acc.Email, acc.Name, token)
	}
	return nil
}

// ResetPassword consumes a reset token and sets the new password.
func (s *Service) ResetPassword(ctx context.Context, token, newPassword string) error {
	hash, err := HashPassword(newPassword)
	if err != nil {
		return err
	}
	if _, err := s.repo.ResetPassword(ctx, token, hash); err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return ErrTokenInvalid
		}
		return err
	}
	return nil
}

// ChangePassword verifies the current password and replaces it, clearing the
// forced-change flag.
func (s *Service) ChangePassword(ctx context.Context, userID int64, current, newPassword string) error {
	acc, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	if acc.PasswordHash == nil {
		return shared.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(*acc.PasswordHash), []byte(current)); err != nil {
		return shared.ErrInvalidCredentials
	}
	hash, err := HashPassword(newPassword)
	if err != nil {
		return err
	}
	return s.repo.UpdatePassword(ctx, userID, hash)
}

// RegisterSession persists the session metadata for auditing.
func (s *Service) RegisterSession(ctx context.Context, id string, userID int64, expiresAt time.Time, ip, ua string) error {
	return s.repo.CreateSession(ctx, id, userID, expiresAt, ip, ua)
}

// RemoveSession deletes a session record.
func (s *Service) RemoveSession(ctx context.Context, id string) error {
	return s.repo.DeleteSession(ctx, id)
}

// HashPassword hashes a plaintext password with bcrypt.
func HashPassword(plaintext string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func generateToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
