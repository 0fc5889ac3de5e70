package schools

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/classpoint/classpoint/internal/auth"
	"github.com/classpoint/classpoint/internal/shared"
)

// Notifier dispatches lifecycle emails. Calls are fire-and-forget: a failed
// notification never blocks a transition that already committed.
type Notifier interface {
	SchoolApproved(ctx context.Context, school School)
	SchoolRejected(ctx context.Context, school School, reason string)
	AdminProvisioned(ctx context.Context, email, name, tempPassword string)
}

// Auditor records lifecycle transitions.
type Auditor interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service drives the tenant lifecycle state machine. Every transition
// validates the current state before mutating and is a no-op on failure.
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

// RegisterRequest captures a self-registration submission.
type RegisterRequest struct {
	Name         string  `json:"name" validate:"required,min=3,max=200"`
	ContactName  string  `json:"contact_name" validate:"required,max=200"`
	ContactEmail string  `json:"contact_email" validate:"required,email"`
	ContactPhone *string `json:"contact_phone,omitempty" validate:"omitempty,max=50"`
	City         *string `json:"city,omitempty" validate:"omitempty,max=100"`
	Country      *string `json:"country,omitempty" validate:"omitempty,len=2"`
}

// Register creates a pending school awaiting superadmin review.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*School, error) {
	slug := Slugify(req.Name)
	if slug == "" {
		return nil, fmt.Errorf("%w: name yields empty slug", ErrInvalidStatus)
	}
	school := School{
		Name:         strings.TrimSpace(req.Name),
		Slug:         slug,
		Status:       StatusPending,
		ContactName:  strings.TrimSpace(req.ContactName),
		ContactEmail: strings.ToLower(strings.TrimSpace(req.ContactEmail)),
		ContactPhone: req.ContactPhone,
		City:         req.City,
		Country:      req.Country,
	}
	id, err := s.repo.CreateSchool(ctx, school)
	if err != nil {
		return nil, err
	}
	return s.repo.GetSchool(ctx, id)
}

// GetSchool fetches one school.
func (s *Service) GetSchool(ctx context.Context, id int64) (*School, error) {
	return s.repo.GetSchool(ctx, id)
}

// GetSchoolBySlug fetches one school by slug.
func (s *Service) GetSchoolBySlug(ctx context.Context, slug string) (*School, error) {
	return s.repo.GetSchoolBySlug(ctx, slug)
}

// ListSchools returns schools matching the filter plus the unpaged total.
func (s *Service) ListSchools(ctx context.Context, filter ListFilter) ([]School, int, error) {
	return s.repo.ListSchools(ctx, filter)
}

// Approve moves a pending or rejected school to approved and clears any
// reject reason.
func (s *Service) Approve(ctx context.Context, actorID, schoolID int64) (*School, error) {
	school, err := s.repo.GetSchool(ctx, schoolID)
	if err != nil {
		return nil, err
	}
	if school.Status != StatusPending && school.Status != StatusRejected {
		return nil, fmt.Errorf("%w: cannot approve a %s school", ErrInvalidStatus, school.Status)
	}
	if err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		return tx.UpdateStatus(ctx, schoolID, StatusApproved, nil)
	}); err != nil {
		return nil, err
	}
	s.recordTransition(ctx, actorID, schoolID, string(school.Status), string(StatusApproved))
	updated, err := s.repo.GetSchool(ctx, schoolID)
	if err != nil {
		return nil, err
	}
	if s.notify != nil {
		s.notify.SchoolApproved(ctx, *updated)
	}
	return updated, nil
}

// Reject moves a pending or approved school to rejected with a reason.
func (s *Service) Reject(ctx context.Context, actorID, schoolID int64, reason string) (*School, error) {
	reason = strings.TrimSpace(reason)
	if len(reason) < 5 {
		return nil, fmt.Errorf("%w: reject reason must be at least 5 characters", ErrInvalidStatus)
	}
	school, err := s.repo.GetSchool(ctx, schoolID)
	if err != nil {
		return nil, err
	}
	if school.Status != StatusPending && school.Status != StatusApproved {
		return nil, fmt.Errorf("%w: cannot reject a %s school", ErrInvalidStatus, school.Status)
	}
	if err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		return tx.UpdateStatus(ctx, schoolID, StatusRejected, &reason)
	}); err != nil {
		return nil, err
	}
	s.recordTransition(ctx, actorID, schoolID, string(school.Status), string(StatusRejected))
	updated, err := s.repo.GetSchool(ctx, schoolID)
	if err != nil {
		return nil, err
	}
	if s.notify != nil {
		s.notify.SchoolRejected(ctx, *updated, reason)
	}
	return updated, nil
}

// Activate moves an approved school to active and guarantees exactly one
// primary admin: provisions one with a temporary password when none exists,
// reactivates a self-registered inactive one otherwise. The status flip,
// account write and grant upsert commit or roll back together.
func (s *Service) Activate(ctx context.Context, actorID, schoolID int64) (*School, error) {
	school, err := s.repo.GetSchool(ctx, schoolID)
	if err != nil {
		return nil, err
	}
	if school.Status != StatusApproved {
		return nil, fmt.Errorf("%w: cannot activate a %s school", ErrInvalidStatus, school.Status)
	}

	var provisioned *AdminAccount
	var tempPassword string
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := tx.UpdateStatus(ctx, schoolID, StatusActive, nil); err != nil {
			return err
		}
		admin, err := tx.FindAdminAccount(ctx, schoolID)
		switch {
		case err == nil:
			if !admin.IsActive {
				if err := tx.ActivateAccount(ctx, admin.ID); err != nil {
					return err
				}
			}
			return tx.EnsurePrimaryGrant(ctx, admin.ID, schoolID)
		case err == ErrNotFound:
			tempPassword, err = generateTempPassword()
			if err != nil {
				return err
			}
			hash, err := auth.HashPassword(tempPassword)
			if err != nil {
				return err
			}
			acc := AdminAccount{
				Name:               school.ContactName,
				Email:              school.ContactEmail,
				PasswordHash:       hash,
				IsActive:           true,
				MustChangePassword: true,
			}
			id, err := tx.CreateAdminAccount(ctx, schoolID, acc)
			if err != nil {
				return err
			}
			acc.ID = id
			provisioned = &acc
			return tx.EnsurePrimaryGrant(ctx, id, schoolID)
		default:
			return err
		}
	})
	if err != nil {
		return nil, err
	}

	s.recordTransition(ctx, actorID, schoolID, string(school.Status), string(StatusActive))
	if provisioned != nil && s.notify != nil {
		s.notify.AdminProvisioned(ctx, provisioned.Email, provisioned.Name, tempPassword)
	}
	return s.repo.GetSchool(ctx, schoolID)
}

// Suspend moves an active school to suspended and deactivates every member
// account in the same transaction. A partially suspended tenant is never
// observable.
func (s *Service) Suspend(ctx context.Context, actorID, schoolID int64) (*School, error) {
	school, err := s.repo.GetSchool(ctx, schoolID)
	if err != nil {
		return nil, err
	}
	if school.Status != StatusActive {
		return nil, fmt.Errorf("%w: cannot suspend a %s school", ErrInvalidStatus, school.Status)
	}
	var deactivated int64
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := tx.UpdateStatus(ctx, schoolID, StatusSuspended, nil); err != nil {
			return err
		}
		deactivated, err = tx.DeactivateMembers(ctx, schoolID)
		return err
	})
	if err != nil {
		return nil, err
	}
	if s.logger != nil {
		s.logger.Info("school suspended",
			slog.Int64("school_id", schoolID),
			slog.Int64("members_deactivated", deactivated))
	}
	s.recordTransition(ctx, actorID, schoolID, string(school.Status), string(StatusSuspended))
	return s.repo.GetSchool(ctx, schoolID)
}

// Revert walks the school one step backward along the lifecycle path. A state
// with no backward entry (pending) is a Conflict, not a silent success.
func (s *Service) Revert(ctx context.Context, actorID, schoolID int64) (*School, error) {
	school, err := s.repo.GetSchool(ctx, schoolID)
	if err != nil {
		return nil, err
	}
	target, ok := RevertTarget(school.Status)
	if !ok {
		return nil, fmt.Errorf("%w: %s has no previous state", ErrInvalidStatus, school.Status)
	}
	if err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		return tx.UpdateStatus(ctx, schoolID, target, nil)
	}); err != nil {
		return nil, err
	}
	s.recordTransition(ctx, actorID, schoolID, string(school.Status), string(target))
	return s.repo.GetSchool(ctx, schoolID)
}

func (s *Service) recordTransition(ctx context.Context, actorID, schoolID int64, from, to string) {
	if s.audit == nil {
		return
	}
	err := s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		SchoolID: &schoolID,
		Action:   "school.status." + to,
		Entity:   "school",
		EntityID: strconv.FormatInt(schoolID, 10),
		Meta:     map[string]any{"from": from, "to": to},
	})
	if err != nil && s.logger != nil {
		s.logger.Warn("audit school transition", slog.Any("error", err))
	}
}

func generateTempPassword() (string, error) {
	b := make([]byte, 12)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
