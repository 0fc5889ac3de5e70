package attendance

import (
	"context"
	"errors"
	"time"

	"github.com/classpoint/classpoint/internal/rbac"
)

// ErrInvalidStatus indicates an unrecognized attendance mark.
var ErrInvalidStatus = errors.New("attendance: invalid status")

// Service manages attendance registers within the actor's school. Teachers
// record marks; learners read their own history.
type Service struct {
	repo RepositoryPort
}

// NewService builds a Service instance.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// MarkRequest captures one mark of a register submission.
type MarkRequest struct {
	StudentID int64   `json:"student_id" validate:"required"`
	Status    string  `json:"status" validate:"required"`
	Note      *string `json:"note,omitempty" validate:"omitempty,max=500"`
}

// RegisterRequest captures a whole class register for one day.
type RegisterRequest struct {
	ClassID int64         `json:"class_id" validate:"required"`
	Date    time.Time     `json:"date" validate:"required"`
	Marks   []MarkRequest `json:"marks" validate:"required,min=1,dive"`
}

// RecordRegister writes a day's register for one class. Marks are upserted
// row by row; re-submitting a register overwrites earlier marks in place.
func (s *Service) RecordRegister(ctx context.Context, actor *rbac.Principal, req RegisterRequest) ([]Record, error) {
	schoolID, err := rbac.SchoolID(actor)
	if err != nil {
		return nil, err
	}
	for _, m := range req.Marks {
		if !Status(m.Status).Valid() {
			return nil, ErrInvalidStatus
		}
	}
	for _, m := range req.Marks {
		_, err := s.repo.UpsertRecord(ctx, Record{
			SchoolID:   schoolID,
			ClassID:    req.ClassID,
			StudentID:  m.StudentID,
			Date:       req.Date,
			Status:     Status(m.Status),
			Note:       m.Note,
			RecordedBy: actor.UserID,
		})
		if err != nil {
			return nil, err
		}
	}
	return s.repo.RecordsByClassDate(ctx, schoolID, req.ClassID, req.Date)
}

// ClassRegister lists a class register for one day.
func (s *Service) ClassRegister(ctx context.Context, actor *rbac.Principal, classID int64, date time.Time) ([]Record, error) {
	schoolID, err := rbac.SchoolID(actor)
	if err != nil {
		return nil, err
	}
	return s.repo.RecordsByClassDate(ctx, schoolID, classID, date)
}

// StudentHistory lists one student's marks in a date range for staff view.
func (s *Service) StudentHistory(ctx context.Context, actor *rbac.Principal, studentID int64, from, to time.Time) ([]Record, error) {
	schoolID, err := rbac.SchoolID(actor)
	if err != nil {
		return nil, err
	}
	return s.repo.RecordsByStudent(ctx, schoolID, studentID, from, to)
}

// MyHistory lists the caller's own marks in a date range.
func (s *Service) MyHistory(ctx context.Context, actor *rbac.Principal, from, to time.Time) ([]Record, error) {
	schoolID, err := rbac.SchoolID(actor)
	if err != nil {
		return nil, err
	}
	return s.repo.RecordsByAccount(ctx, schoolID, actor.UserID, from, to)
}
