package academics

import (
	"context"
	"errors"
)

var (
	// ErrNotFound indicates the record does not exist in the caller's school.
	ErrNotFound = errors.New("academics: not found")
	// ErrAlreadyExists indicates a name or code collision within the school.
	ErrAlreadyExists = errors.New("academics: already exists")
	// ErrInUse indicates the record is referenced and cannot be deleted.
	ErrInUse = errors.New("academics: record in use")
)

// RepositoryPort defines school scoped data access for the academic catalog.
type RepositoryPort interface {
	GetClass(ctx context.Context, schoolID, id int64) (*Class, error)
	ListClasses(ctx context.Context, schoolID int64) ([]Class, error)
	CreateClass(ctx context.Context, c Class) (int64, error)
	UpdateClass(ctx context.Context, c Class) error

	GetSubject(ctx context.Context, schoolID, id int64) (*Subject, error)
	ListSubjects(ctx context.Context, schoolID int64) ([]Subject, error)
	CreateSubject(ctx context.Context, s Subject) (int64, error)
	UpdateSubject(ctx context.Context, s Subject) error
	DeleteSubject(ctx context.Context, schoolID, id int64) error

	GetCourse(ctx context.Context, schoolID, id int64) (*Course, error)
	ListCourses(ctx context.Context, schoolID int64, classID *int64) ([]Course, error)
	CreateCourse(ctx context.Context, c Course) (int64, error)
	UpdateCourse(ctx context.Context, c Course) error

	GetLesson(ctx context.Context, schoolID, id int64) (*Lesson, error)
	ListLessons(ctx context.Context, schoolID int64, classID *int64) ([]Lesson, error)
	CreateLesson(ctx context.Context, l Lesson) (int64, error)
	DeleteLesson(ctx context.Context, schoolID, id int64) error
}
