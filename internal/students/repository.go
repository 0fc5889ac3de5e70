package students

import (
	"context"
	"errors"
)

var (
	// ErrNotFound indicates the record does not exist in the caller's school.
	ErrNotFound = errors.New("students: not found")
	// ErrAlreadyExists indicates an admission number or email collision.
	ErrAlreadyExists = errors.New("students: already exists")
)

// ListFilter narrows student listings within one school.
type ListFilter struct {
	ClassID *int64
	Search  string
	Limit   int
	Offset  int
}

// RepositoryPort defines data access for learners and guardians. Every query
// carries the school id predicate; a row of another tenant is ErrNotFound.
type RepositoryPort interface {
	GetStudent(ctx context.Context, schoolID, id int64) (*Student, error)
	GetStudentByAccount(ctx context.Context, schoolID, accountID int64) (*Student, error)
	ListStudents(ctx context.Context, schoolID int64, filter ListFilter) ([]Student, int, error)
	CreateStudent(ctx context.Context, s Student) (int64, error)
	UpdateStudent(ctx context.Context, s Student) error
	SetStudentActive(ctx context.Context, schoolID, id int64, active bool) error

	GetGuardian(ctx context.Context, schoolID, id int64) (*Guardian, error)
	GetGuardianByAccount(ctx context.Context, schoolID, accountID int64) (*Guardian, error)
	ListGuardians(ctx context.Context, schoolID int64, limit, offset int) ([]Guardian, int, error)
	CreateGuardian(ctx context.Context, g Guardian) (int64, error)
	UpdateGuardian(ctx context.Context, g Guardian) error
	StudentsOfGuardian(ctx context.Context, schoolID, guardianID int64) ([]Student, error)
}
