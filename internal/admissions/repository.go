package admissions

import (
	"context"
	"errors"
)

var (
	// ErrNotFound indicates the application does not exist in the caller's
	// school.
	ErrNotFound = errors.New("admissions: not found")
	// ErrAlreadyDecided indicates the application left the applied state.
	ErrAlreadyDecided = errors.New("admissions: already decided")
	// ErrSchoolNotAccepting indicates the target school is not active.
	ErrSchoolNotAccepting = errors.New("admissions: school not accepting applications")
)

// ListFilter narrows application listings within one school.
type ListFilter struct {
	Status *Status
	Limit  int
	Offset int
}

// TxRepository couples the acceptance decision with the student insert so an
// accepted application always has its learner record.
type TxRepository interface {
	Decide(ctx context.Context, schoolID, id int64, status Status, actorID int64, note *string, studentID *int64) error
	CreateStudentFromApplication(ctx context.Context, app Application, admissionNo string) (int64, error)
}

// RepositoryPort defines school scoped data access for applications.
type RepositoryPort interface {
	CreateApplication(ctx context.Context, app Application) (int64, error)
	GetApplication(ctx context.Context, schoolID, id int64) (*Application, error)
	ListApplications(ctx context.Context, schoolID int64, filter ListFilter) ([]Application, int, error)
	ActiveSchoolIDBySlug(ctx context.Context, slug string) (int64, error)
	NextAdmissionNo(ctx context.Context, schoolID int64) (string, error)
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}
