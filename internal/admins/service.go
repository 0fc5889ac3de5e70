package admins

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/classpoint/classpoint/internal/auth"
	"github.com/classpoint/classpoint/internal/rbac"
	"github.com/classpoint/classpoint/internal/shared"
)

// Notifier dispatches provisioning emails.
type Notifier interface {
	AdminProvisioned(ctx context.Context, email, name, tempPassword string)
}

// Auditor records grant changes.
type Auditor interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service manages secondary school admins and their capability grants.
// Primary grants are created by school activation and never editable here.
type Service struct {
	repo   RepositoryPort
	notify Notifier
	audit  Auditor
	logger *slog.Logger
}

// NewService builds a Service instance.
func NewService(repo RepositoryPort, notify Notifier, audit Auditor, logger *slog.Logger) *Service {
	return &Service{repo: repo, notify: notify, audit: audit, logger: logger}
}

// CreateRequest captures a secondary admin provisioning submission.
type CreateRequest struct {
	Name         string   `json:"name" validate:"required,min=2,max=200"`
	Email        string   `json:"email" validate:"required,email"`
	Capabilities []string `json:"capabilities" validate:"required,min=1"`
}

// GetAdmin fetches one admin scoped to the actor's school.
func (s *Service) GetAdmin(ctx context.Context, actor *rbac.Principal, userID int64) (*Admin, error) {
	schoolID, err := rbac.SchoolID(actor)
	if err != nil {
		return nil, err
	}
	return s.repo.GetAdmin(ctx, schoolID, userID)
}

// ListAdmins returns the actor school's admins plus the unpaged total.
func (s *Service) ListAdmins(ctx context.Context, actor *rbac.Principal, limit, offset int) ([]Admin, int, error) {
	schoolID, err := rbac.SchoolID(actor)
	if err != nil {
		return nil, 0, err
	}
	return s.repo.ListAdmins(ctx, schoolID, limit, offset)
}

// Create provisions a secondary admin with the named capabilities. Account
// and grant commit in one transaction so a grantless admin never exists.
func (s *Service) Create(ctx context.Context, actor *rbac.Principal, req CreateRequest) (*Admin, error) {
	schoolID, err := rbac.SchoolID(actor)
	if err != nil {
		return nil, err
	}
	caps, ok := ValidCapabilities(req.Capabilities)
	if !ok {
		return nil, ErrUnknownCapability
	}

	tempPassword, err := generateTempPassword()
	if err != nil {
		return nil, err
	}
	hash, err := auth.HashPassword(tempPassword)
	if err != nil {
		return nil, err
	}

	var userID int64
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		userID, err = tx.CreateAccount(ctx, schoolID, NewAccount{
			Name:               strings.TrimSpace(req.Name),
			Email:              strings.ToLower(strings.TrimSpace(req.Email)),
			PasswordHash:       hash,
			MustChangePassword: true,
		})
		if err != nil {
			return err
		}
		return tx.InsertGrant(ctx, GrantFromCapabilities(userID, schoolID, caps))
	})
	if err != nil {
		return nil, err
	}

	admin, err := s.repo.GetAdmin(ctx, schoolID, userID)
	if err != nil {
		return nil, err
	}
	s.recordChange(ctx, actor.UserID, schoolID, userID, "admin.provisioned", map[string]any{"capabilities": caps})
	if s.notify != nil {
		s.notify.AdminProvisioned(ctx, admin.Email, admin.Name, tempPassword)
	}
	return admin, nil
}

// UpdateGrant replaces a secondary admin's capability set. Editing a primary
// grant is a conflict, not a partial write.
func (s *Service) UpdateGrant(ctx context.Context, actor *rbac.Principal, userID int64, capabilities []string) (*Admin, error) {
	schoolID, err := rbac.SchoolID(actor)
	if err != nil {
		return nil, err
	}
	caps, ok := ValidCapabilities(capabilities)
	if !ok {
		return nil, ErrUnknownCapability
	}
	admin, err := s.repo.GetAdmin(ctx, schoolID, userID)
	if err != nil {
		return nil, err
	}
	if admin.Level == rbac.GrantPrimary {
		return nil, ErrPrimaryImmutable
	}
	if err := s.repo.UpdateGrant(ctx, GrantFromCapabilities(userID, schoolID, caps)); err != nil {
		return nil, err
	}
	s.recordChange(ctx, actor.UserID, schoolID, userID, "admin.grant_updated", map[string]any{"capabilities": caps})
	return s.repo.GetAdmin(ctx, schoolID, userID)
}

// Deactivate disables a secondary admin account. Self-deactivation and
// primary admins are rejected so a school cannot lock itself out.
func (s *Service) Deactivate(ctx context.Context, actor *rbac.Principal, userID int64) (*Admin, error) {
	return s.setActive(ctx, actor, userID, false)
}

// Reactivate re-enables a previously deactivated admin account.
func (s *Service) Reactivate(ctx context.Context, actor *rbac.Principal, userID int64) (*Admin, error) {
	return s.setActive(ctx, actor, userID, true)
}

func (s *Service) setActive(ctx context.Context, actor *rbac.Principal, userID int64, active bool) (*Admin, error) {
	schoolID, err := rbac.SchoolID(actor)
	if err != nil {
		return nil, err
	}
	if userID == actor.UserID {
		return nil, ErrSelfTarget
	}
	admin, err := s.repo.GetAdmin(ctx, schoolID, userID)
	if err != nil {
		return nil, err
	}
	if !active && admin.Level == rbac.GrantPrimary {
		return nil, fmt.Errorf("%w: cannot deactivate the primary admin", ErrPrimaryImmutable)
	}
	if err := s.repo.SetActive(ctx, schoolID, userID, active); err != nil {
		return nil, err
	}
	action := "admin.deactivated"
	if active {
		action = "admin.reactivated"
	}
	s.recordChange(ctx, actor.UserID, schoolID, userID, action, nil)
	return s.repo.GetAdmin(ctx, schoolID, userID)
}

func (s *Service) recordChange(ctx context.Context, actorID, schoolID, userID int64, action string, meta map[string]any) {
	if s.audit == nil {
		return
	}
	err := s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		SchoolID: &schoolID,
		Action:   action,
		Entity:   "admin",
		EntityID: strconv.FormatInt(userID, 10),
		Meta:     meta,
	})
	if err != nil && s.logger != nil {
		s.logger.Warn("audit admin change", slog.Any("error", err))
	}
}

func generateTempPassword() (string, error) {
	b := make([]byte, 12)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
