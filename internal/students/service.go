package students

import (
	"context"
	"strings"
	"time"

	"github.com/classpoint/classpoint/internal/rbac"
)

// Service manages learner and guardian records within the actor's school.
type Service struct {
	repo RepositoryPort
}

// NewService builds a Service instance.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// StudentRequest captures a student create or update submission.
type StudentRequest struct {
	Name        string     `json:"name" validate:"required,min=2,max=200"`
	Email       *string    `json:"email,omitempty" validate:"omitempty,email"`
	AdmissionNo string     `json:"admission_no" validate:"required,max=50"`
	GuardianID  *int64     `json:"guardian_id,omitempty"`
	ClassID     *int64     `json:"class_id,omitempty"`
	DateOfBirth *time.Time `json:"date_of_birth,omitempty"`
	Gender      *string    `json:"gender,omitempty" validate:"omitempty,oneof=male female other"`
	Address     *string    `json:"address,omitempty" validate:"omitempty,max=500"`
}

// GuardianRequest captures a guardian create or update submission.
type GuardianRequest struct {
	Name       string  `json:"name" validate:"required,min=2,max=200"`
	Email      string  `json:"email" validate:"required,email"`
	Phone      *string `json:"phone,omitempty" validate:"omitempty,max=50"`
	Occupation *string `json:"occupation,omitempty" validate:"omitempty,max=200"`
}

// GetStudent fetches one student scoped to the actor's school. A linked
// guardian may only fetch its own students; a learner only itself.
func (s *Service) GetStudent(ctx context.Context, actor *rbac.Principal, id int64) (*Student, error) {
	schoolID, err := rbac.SchoolID(actor)
	if err != nil {
		return nil, err
	}
	student, err := s.repo.GetStudent(ctx, schoolID, id)
	if err != nil {
		return nil, err
	}
	switch actor.Role {
	case rbac.RoleStudent:
		if student.AccountID == nil || *student.AccountID != actor.UserID {
			return nil, ErrNotFound
		}
	case rbac.RoleGuardian:
		own, err := s.repo.GetGuardianByAccount(ctx, schoolID, actor.UserID)
		if err != nil {
			return nil, ErrNotFound
		}
		if student.GuardianID == nil || *student.GuardianID != own.ID {
			return nil, ErrNotFound
		}
	}
	return student, nil
}

// ListStudents returns students of the actor's school plus the unpaged total.
func (s *Service) ListStudents(ctx context.Context, actor *rbac.Principal, filter ListFilter) ([]Student, int, error) {
	schoolID, err := rbac.SchoolID(actor)
	if err != nil {
		return nil, 0, err
	}
	return s.repo.ListStudents(ctx, schoolID, filter)
}

// CreateStudent enrolls a student record.
func (s *Service) CreateStudent(ctx context.Context, actor *rbac.Principal, req StudentRequest) (*Student, error) {
	schoolID, err := rbac.SchoolID(actor)
	if err != nil {
		return nil, err
	}
	if req.GuardianID != nil {
		if _, err := s.repo.GetGuardian(ctx, schoolID, *req.GuardianID); err != nil {
			return nil, err
		}
	}
	id, err := s.repo.CreateStudent(ctx, Student{
		SchoolID:    schoolID,
		GuardianID:  req.GuardianID,
		ClassID:     req.ClassID,
		Name:        strings.TrimSpace(req.Name),
		Email:       req.Email,
		AdmissionNo: strings.TrimSpace(req.AdmissionNo),
		DateOfBirth: req.DateOfBirth,
		Gender:      req.Gender,
		Address:     req.Address,
	})
	if err != nil {
		return nil, err
	}
	return s.repo.GetStudent(ctx, schoolID, id)
}

// UpdateStudent rewrites a student record.
func (s *Service) UpdateStudent(ctx context.Context, actor *rbac.Principal, id int64, req StudentRequest) (*Student, error) {
	schoolID, err := rbac.SchoolID(actor)
	if err != nil {
		return nil, err
	}
	student, err := s.repo.GetStudent(ctx, schoolID, id)
	if err != nil {
		return nil, err
	}
	if req.GuardianID != nil {
		if _, err := s.repo.GetGuardian(ctx, schoolID, *req.GuardianID); err != nil {
			return nil, err
		}
	}
	student.Name = strings.TrimSpace(req.Name)
	student.Email = req.Email
	student.GuardianID = req.GuardianID
	student.ClassID = req.ClassID
	student.DateOfBirth = req.DateOfBirth
	student.Gender = req.Gender
	student.Address = req.Address
	if err := s.repo.UpdateStudent(ctx, *student); err != nil {
		return nil, err
	}
	return s.repo.GetStudent(ctx, schoolID, id)
}

// DeactivateStudent disables a student record.
func (s *Service) DeactivateStudent(ctx context.Context, actor *rbac.Principal, id int64) error {
	schoolID, err := rbac.SchoolID(actor)
	if err != nil {
		return err
	}
	return s.repo.SetStudentActive(ctx, schoolID, id, false)
}

// MyProfile returns the student record linked to a learner account.
func (s *Service) MyProfile(ctx context.Context, actor *rbac.Principal) (*Student, error) {
	schoolID, err := rbac.SchoolID(actor)
	if err != nil {
		return nil, err
	}
	return s.repo.GetStudentByAccount(ctx, schoolID, actor.UserID)
}

// GetGuardian fetches one guardian scoped to the actor's school.
func (s *Service) GetGuardian(ctx context.Context, actor *rbac.Principal, id int64) (*Guardian, error) {
	schoolID, err := rbac.SchoolID(actor)
	if err != nil {
		return nil, err
	}
	return s.repo.GetGuardian(ctx, schoolID, id)
}

// ListGuardians returns guardians of the actor's school plus the total.
func (s *Service) ListGuardians(ctx context.Context, actor *rbac.Principal, limit, offset int) ([]Guardian, int, error) {
	schoolID, err := rbac.SchoolID(actor)
	if err != nil {
		return nil, 0, err
	}
	return s.repo.ListGuardians(ctx, schoolID, limit, offset)
}

// CreateGuardian registers a guardian record.
func (s *Service) CreateGuardian(ctx context.Context, actor *rbac.Principal, req GuardianRequest) (*Guardian, error) {
	schoolID, err := rbac.SchoolID(actor)
	if err != nil {
		return nil, err
	}
	id, err := s.repo.CreateGuardian(ctx, Guardian{
		SchoolID:   schoolID,
		Name:       strings.TrimSpace(req.Name),
		Email:      strings.ToLower(strings.TrimSpace(req.Email)),
		Phone:      req.Phone,
		Occupation: req.Occupation,
	})
	if err != nil {
		return nil, err
	}
	return s.repo.GetGuardian(ctx, schoolID, id)
}

// UpdateGuardian rewrites a guardian record.
func (s *Service) UpdateGuardian(ctx context.Context, actor *rbac.Principal, id int64, req GuardianRequest) (*Guardian, error) {
	schoolID, err := rbac.SchoolID(actor)
	if err != nil {
		return nil, err
	}
	g, err := s.repo.GetGuardian(ctx, schoolID, id)
	if err != nil {
		return nil, err
	}
	g.Name = strings.TrimSpace(req.Name)
	g.Email = strings.ToLower(strings.TrimSpace(req.Email))
	g.Phone = req.Phone
	g.Occupation = req.Occupation
	if err := s.repo.UpdateGuardian(ctx, *g); err != nil {
		return nil, err
	}
	return s.repo.GetGuardian(ctx, schoolID, id)
}

// GuardianStudents lists the students linked to a guardian.
func (s *Service) GuardianStudents(ctx context.Context, actor *rbac.Principal, guardianID int64) ([]Student, error) {
	schoolID, err := rbac.SchoolID(actor)
	if err != nil {
		return nil, err
	}
	if _, err := s.repo.GetGuardian(ctx, schoolID, guardianID); err != nil {
		return nil, err
	}
	return s.repo.StudentsOfGuardian(ctx, schoolID, guardianID)
}

// MyStudents lists the students of the guardian linked to the actor account.
func (s *Service) MyStudents(ctx context.Context, actor *rbac.Principal) ([]Student, error) {
	schoolID, err := rbac.SchoolID(actor)
	if err != nil {
		return nil, err
	}
	g, err := s.repo.GetGuardianByAccount(ctx, schoolID, actor.UserID)
	if err != nil {
		return nil, err
	}
	return s.repo.StudentsOfGuardian(ctx, schoolID, g.ID)
}
