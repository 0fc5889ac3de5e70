package exams

import (
	"context"
	"errors"
)

var (
	// ErrNotFound indicates the record does not exist in the caller's school.
	ErrNotFound = errors.New("exams: not found")
	// ErrAlreadyExists indicates a duplicate exam or result row.
	ErrAlreadyExists = errors.New("exams: already exists")
)

// RepositoryPort defines school scoped data access for exams and results.
type RepositoryPort interface {
	GetExam(ctx context.Context, schoolID, id int64) (*Exam, error)
	ListExams(ctx context.Context, schoolID int64) ([]Exam, error)
	CreateExam(ctx context.Context, e Exam) (int64, error)
	UpdateExam(ctx context.Context, e Exam) error
	SetPublished(ctx context.Context, schoolID, id int64, published bool) error

	UpsertResult(ctx context.Context, r Result) (int64, error)
	GetResult(ctx context.Context, schoolID, id int64) (*Result, error)
	ResultsByExam(ctx context.Context, schoolID, examID int64) ([]Result, error)
	ResultsByStudent(ctx context.Context, schoolID, studentID int64, publishedOnly bool) ([]Result, error)
	ResultsByAccount(ctx context.Context, schoolID, accountID int64) ([]Result, error)
	ResultsByGuardianAccount(ctx context.Context, schoolID, accountID int64) ([]Result, error)
}
