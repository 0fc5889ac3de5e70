package admissions

import (
	"context"
	"strings"
	"time"

	"github.com/classpoint/classpoint/internal/rbac"
)

// Service manages the admission pipeline. Applications arrive publicly
// against an active school; review is capability gated. Acceptance creates
// the learner record in the same transaction as the decision.
type Service struct {
	repo RepositoryPort
}

// NewService builds a Service instance.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// ApplyRequest captures a public admission submission.
type ApplyRequest struct {
	SchoolSlug    string     `json:"school_slug" validate:"required"`
	ApplicantName string     `json:"applicant_name" validate:"required,min=2,max=200"`
	Email         string     `json:"email" validate:"required,email"`
	Phone         *string    `json:"phone,omitempty" validate:"omitempty,max=50"`
	GuardianName  *string    `json:"guardian_name,omitempty" validate:"omitempty,max=200"`
	DateOfBirth   *time.Time `json:"date_of_birth,omitempty"`
}

// Apply files an application against an active school.
func (s *Service) Apply(ctx context.Context, req ApplyRequest) (*Application, error) {
	schoolID, err := s.repo.ActiveSchoolIDBySlug(ctx, strings.TrimSpace(req.SchoolSlug))
	if err != nil {
		return nil, err
	}
	id, err := s.repo.CreateApplication(ctx, Application{
		SchoolID:      schoolID,
		ApplicantName: strings.TrimSpace(req.ApplicantName),
		Email:         strings.ToLower(strings.TrimSpace(req.Email)),
		Phone:         req.Phone,
		GuardianName:  req.GuardianName,
		DateOfBirth:   req.DateOfBirth,
	})
	if err != nil {
		return nil, err
	}
	return s.repo.GetApplication(ctx, schoolID, id)
}

// Get fetches one application scoped to the actor's school.
func (s *Service) Get(ctx context.Context, actor *rbac.Principal, id int64) (*Application, error) {
	schoolID, err := rbac.SchoolID(actor)
	if err != nil {
		return nil, err
	}
	return s.repo.GetApplication(ctx, schoolID, id)
}

// List returns the school's applications plus the unpaged total.
func (s *Service) List(ctx context.Context, actor *rbac.Principal, filter ListFilter) ([]Application, int, error) {
	schoolID, err := rbac.SchoolID(actor)
	if err != nil {
		return nil, 0, err
	}
	return s.repo.ListApplications(ctx, schoolID, filter)
}

// Accept admits an applicant. The decision and the new student record commit
// or roll back together.
func (s *Service) Accept(ctx context.Context, actor *rbac.Principal, id int64, note *string) (*Application, error) {
	schoolID, err := rbac.SchoolID(actor)
	if err != nil {
		return nil, err
	}
	app, err := s.repo.GetApplication(ctx, schoolID, id)
	if err != nil {
		return nil, err
	}
	if app.Status != StatusApplied {
		return nil, ErrAlreadyDecided
	}
	admissionNo, err := s.repo.NextAdmissionNo(ctx, schoolID)
	if err != nil {
		return nil, err
	}
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		studentID, err := tx.CreateStudentFromApplication(ctx, *app, admissionNo)
		if err != nil {
			return err
		}
		return tx.Decide(ctx, schoolID, id, StatusAccepted, actor.UserID, note, &studentID)
	})
	if err != nil {
		return nil, err
	}
	return s.repo.GetApplication(ctx, schoolID, id)
}

// Reject declines an applicant with an optional note.
func (s *Service) Reject(ctx context.Context, actor *rbac.Principal, id int64, note *string) (*Application, error) {
	schoolID, err := rbac.SchoolID(actor)
	if err != nil {
		return nil, err
	}
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		return tx.Decide(ctx, schoolID, id, StatusRejected, actor.UserID, note, nil)
	})
	if err != nil {
		return nil, err
	}
	return s.repo.GetApplication(ctx, schoolID, id)
}
