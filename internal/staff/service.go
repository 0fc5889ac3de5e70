package staff

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"log/slog"
	"strings"

	"github.com/classpoint/classpoint/internal/auth"
	"github.com/classpoint/classpoint/internal/rbac"
)

// Notifier dispatches provisioning emails.
type Notifier interface {
	StaffProvisioned(ctx context.Context, email, name, tempPassword string)
}

// Service manages staff records within the actor's school.
type Service struct {
	repo   RepositoryPort
	notify Notifier
	logger *slog.Logger
}

// NewService builds a Service instance.
func NewService(repo RepositoryPort, notify Notifier, logger *slog.Logger) *Service {
	return &Service{repo: repo, notify: notify, logger: logger}
}

// CreateRequest captures a staff member submission. Teaching members get a
// login account provisioned alongside the record.
type CreateRequest struct {
	Name     string  `json:"name" validate:"required,min=2,max=200"`
	Email    string  `json:"email" validate:"required,email"`
	Phone    *string `json:"phone,omitempty" validate:"omitempty,max=50"`
	Position string  `json:"position" validate:"required,max=100"`
	Teaching bool    `json:"teaching"`
}

// UpdateRequest captures the fields editable after creation.
type UpdateRequest struct {
	Name     string  `json:"name" validate:"required,min=2,max=200"`
	Phone    *string `json:"phone,omitempty" validate:"omitempty,max=50"`
	Position string  `json:"position" validate:"required,max=100"`
}

// GetMember fetches one staff member scoped to the actor's school.
func (s *Service) GetMember(ctx context.Context, actor *rbac.Principal, id int64) (*Member, error) {
	schoolID, err := rbac.SchoolID(actor)
	if err != nil {
		return nil, err
	}
	return s.repo.GetMember(ctx, schoolID, id)
}

// ListMembers returns the school's staff plus the unpaged total.
func (s *Service) ListMembers(ctx context.Context, actor *rbac.Principal, search string, limit, offset int) ([]Member, int, error) {
	schoolID, err := rbac.SchoolID(actor)
	if err != nil {
		return nil, 0, err
	}
	return s.repo.ListMembers(ctx, schoolID, search, limit, offset)
}

// Create registers a staff member. For teaching staff the login account and
// the record commit in one transaction.
func (s *Service) Create(ctx context.Context, actor *rbac.Principal, req CreateRequest) (*Member, error) {
	schoolID, err := rbac.SchoolID(actor)
	if err != nil {
		return nil, err
	}
	member := Member{
		SchoolID: schoolID,
		Name:     strings.TrimSpace(req.Name),
		Email:    strings.ToLower(strings.TrimSpace(req.Email)),
		Phone:    req.Phone,
		Position: strings.TrimSpace(req.Position),
	}

	var tempPassword string
	if req.Teaching {
		tempPassword, err = generateTempPassword()
		if err != nil {
			return nil, err
		}
	}

	var id int64
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if req.Teaching {
			hash, err := auth.HashPassword(tempPassword)
			if err != nil {
				return err
			}
			accountID, err := tx.CreateTeacherAccount(ctx, schoolID, NewTeacherAccount{
				Name:               member.Name,
				Email:              member.Email,
				PasswordHash:       hash,
				MustChangePassword: true,
			})
			if err != nil {
				return err
			}
			member.AccountID = &accountID
		}
		id, err = tx.CreateMember(ctx, member)
		return err
	})
	if err != nil {
		return nil, err
	}

	created, err := s.repo.GetMember(ctx, schoolID, id)
	if err != nil {
		return nil, err
	}
	if req.Teaching && s.notify != nil {
		s.notify.StaffProvisioned(ctx, created.Email, created.Name, tempPassword)
	}
	return created, nil
}

// Update rewrites a staff record.
func (s *Service) Update(ctx context.Context, actor *rbac.Principal, id int64, req UpdateRequest) (*Member, error) {
	schoolID, err := rbac.SchoolID(actor)
	if err != nil {
		return nil, err
	}
	m, err := s.repo.GetMember(ctx, schoolID, id)
	if err != nil {
		return nil, err
	}
	m.Name = strings.TrimSpace(req.Name)
	m.Phone = req.Phone
	m.Position = strings.TrimSpace(req.Position)
	if err := s.repo.UpdateMember(ctx, *m); err != nil {
		return nil, err
	}
	return s.repo.GetMember(ctx, schoolID, id)
}

// Deactivate disables a staff record and its login account in one
// transaction, so a deactivated teacher cannot keep signing in.
func (s *Service) Deactivate(ctx context.Context, actor *rbac.Principal, id int64) (*Member, error) {
	return s.setActive(ctx, actor, id, false)
}

// Reactivate re-enables a staff record and its login account.
func (s *Service) Reactivate(ctx context.Context, actor *rbac.Principal, id int64) (*Member, error) {
	return s.setActive(ctx, actor, id, true)
}

func (s *Service) setActive(ctx context.Context, actor *rbac.Principal, id int64, active bool) (*Member, error) {
	schoolID, err := rbac.SchoolID(actor)
	if err != nil {
		return nil, err
	}
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		m, err := tx.GetMember(ctx, schoolID, id)
		if err != nil {
			return err
		}
		if err := tx.SetMemberActive(ctx, schoolID, id, active); err != nil {
			return err
		}
		if m.AccountID != nil {
			return tx.SetAccountActive(ctx, schoolID, *m.AccountID, active)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.repo.GetMember(ctx, schoolID, id)
}

func generateTempPassword() (string, error) {
	b := make([]byte, 12)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
