package exams

import (
	"context"
	"strings"
	"time"

	"github.com/classpoint/classpoint/internal/rbac"
)

// Service manages exams and results within the actor's school. Learner and
// guardian reads are scoped to their own linked students and to published
// exams only.
type Service struct {
	repo RepositoryPort
}

// NewService builds a Service instance.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// ExamRequest captures an exam create or update submission.
type ExamRequest struct {
	Name     string     `json:"name" validate:"required,min=2,max=200"`
	Term     string     `json:"term" validate:"required,max=50"`
	StartsOn *time.Time `json:"starts_on,omitempty"`
	EndsOn   *time.Time `json:"ends_on,omitempty"`
}

// ResultRequest captures a score entry for one student and subject.
type ResultRequest struct {
	StudentID int64   `json:"student_id" validate:"required"`
	SubjectID int64   `json:"subject_id" validate:"required"`
	Score     float64 `json:"score" validate:"min=0,max=100"`
	Grade     string  `json:"grade" validate:"required,max=5"`
	Remark    *string `json:"remark,omitempty" validate:"omitempty,max=500"`
}

// GetExam fetches one exam scoped to the actor's school.
func (s *Service) GetExam(ctx context.Context, actor *rbac.Principal, id int64) (*Exam, error) {
	schoolID, err := rbac.SchoolID(actor)
	if err != nil {
		return nil, err
	}
	return s.repo.GetExam(ctx, schoolID, id)
}

// ListExams lists the school's exams.
func (s *Service) ListExams(ctx context.Context, actor *rbac.Principal) ([]Exam, error) {
	schoolID, err := rbac.SchoolID(actor)
	if err != nil {
		return nil, err
	}
	return s.repo.ListExams(ctx, schoolID)
}

// CreateExam registers an exam, unpublished.
func (s *Service) CreateExam(ctx context.Context, actor *rbac.Principal, req ExamRequest) (*Exam, error) {
	schoolID, err := rbac.SchoolID(actor)
	if err != nil {
		return nil, err
	}
	id, err := s.repo.CreateExam(ctx, Exam{
		SchoolID: schoolID,
		Name:     strings.TrimSpace(req.Name),
		Term:     strings.TrimSpace(req.Term),
		StartsOn: req.StartsOn,
		EndsOn:   req.EndsOn,
	})
	if err != nil {
		return nil, err
	}
	return s.repo.GetExam(ctx, schoolID, id)
}

// UpdateExam rewrites an exam.
func (s *Service) UpdateExam(ctx context.Context, actor *rbac.Principal, id int64, req ExamRequest) (*Exam, error) {
	schoolID, err := rbac.SchoolID(actor)
	if err != nil {
		return nil, err
	}
	e, err := s.repo.GetExam(ctx, schoolID, id)
	if err != nil {
		return nil, err
	}
	e.Name = strings.TrimSpace(req.Name)
	e.Term = strings.TrimSpace(req.Term)
	e.StartsOn = req.StartsOn
	e.EndsOn = req.EndsOn
	if err := s.repo.UpdateExam(ctx, *e); err != nil {
		return nil, err
	}
	return s.repo.GetExam(ctx, schoolID, id)
}

// Publish makes an exam's results visible to learners and guardians.
func (s *Service) Publish(ctx context.Context, actor *rbac.Principal, id int64) (*Exam, error) {
	return s.setPublished(ctx, actor, id, true)
}

// Unpublish withdraws an exam's results from learner and guardian view.
func (s *Service) Unpublish(ctx context.Context, actor *rbac.Principal, id int64) (*Exam, error) {
	return s.setPublished(ctx, actor, id, false)
}

func (s *Service) setPublished(ctx context.Context, actor *rbac.Principal, id int64, published bool) (*Exam, error) {
	schoolID, err := rbac.SchoolID(actor)
	if err != nil {
		return nil, err
	}
	if err := s.repo.SetPublished(ctx, schoolID, id, published); err != nil {
		return nil, err
	}
	return s.repo.GetExam(ctx, schoolID, id)
}

// RecordResult inserts or rewrites one score row of an exam.
func (s *Service) RecordResult(ctx context.Context, actor *rbac.Principal, examID int64, req ResultRequest) (*Result, error) {
	schoolID, err := rbac.SchoolID(actor)
	if err != nil {
		return nil, err
	}
	if _, err := s.repo.GetExam(ctx, schoolID, examID); err != nil {
		return nil, err
	}
	id, err := s.repo.UpsertResult(ctx, Result{
		SchoolID:  schoolID,
		ExamID:    examID,
		StudentID: req.StudentID,
		SubjectID: req.SubjectID,
		Score:     req.Score,
		Grade:     strings.ToUpper(strings.TrimSpace(req.Grade)),
		Remark:    req.Remark,
	})
	if err != nil {
		return nil, err
	}
	return s.repo.GetResult(ctx, schoolID, id)
}

// ExamResults lists every result of one exam for staff view.
func (s *Service) ExamResults(ctx context.Context, actor *rbac.Principal, examID int64) ([]Result, error) {
	schoolID, err := rbac.SchoolID(actor)
	if err != nil {
		return nil, err
	}
	if _, err := s.repo.GetExam(ctx, schoolID, examID); err != nil {
		return nil, err
	}
	return s.repo.ResultsByExam(ctx, schoolID, examID)
}

// StudentResults lists one student's results for staff view.
func (s *Service) StudentResults(ctx context.Context, actor *rbac.Principal, studentID int64) ([]Result, error) {
	schoolID, err := rbac.SchoolID(actor)
	if err != nil {
		return nil, err
	}
	return s.repo.ResultsByStudent(ctx, schoolID, studentID, false)
}

// MyResults lists published results of the caller. Learners see their own
// row set; guardians see every linked student's.
func (s *Service) MyResults(ctx context.Context, actor *rbac.Principal) ([]Result, error) {
	schoolID, err := rbac.SchoolID(actor)
	if err != nil {
		return nil, err
	}
	switch actor.Role {
	case rbac.RoleStudent:
		return s.repo.ResultsByAccount(ctx, schoolID, actor.UserID)
	case rbac.RoleGuardian:
		return s.repo.ResultsByGuardianAccount(ctx, schoolID, actor.UserID)
	}
	return nil, rbac.ErrWrongRole
}
