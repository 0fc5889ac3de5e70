package academics

import (
	"context"
	"strings"

	"github.com/classpoint/classpoint/internal/rbac"
)

// Service manages the academic catalog within the actor's school. Referenced
// ids are re-fetched through school scoped reads, so a foreign key of another
// tenant resolves to not found before anything is written.
type Service struct {
	repo RepositoryPort
}

// NewService builds a Service instance.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// ClassRequest captures a class create or update submission.
type ClassRequest struct {
	Name      string `json:"name" validate:"required,min=1,max=100"`
	Grade     string `json:"grade" validate:"required,max=50"`
	TeacherID *int64 `json:"teacher_id,omitempty"`
}

// SubjectRequest captures a subject create or update submission.
type SubjectRequest struct {
	Name string `json:"name" validate:"required,min=1,max=200"`
	Code string `json:"code" validate:"required,max=20"`
}

// CourseRequest captures a course create or update submission.
type CourseRequest struct {
	SubjectID int64  `json:"subject_id" validate:"required"`
	ClassID   int64  `json:"class_id" validate:"required"`
	TeacherID *int64 `json:"teacher_id,omitempty"`
	Name      string `json:"name" validate:"required,min=1,max=200"`
}

// LessonRequest captures a schedule slot submission.
type LessonRequest struct {
	CourseID int64   `json:"course_id" validate:"required"`
	Weekday  int     `json:"weekday" validate:"min=0,max=6"`
	StartsAt string  `json:"starts_at" validate:"required,len=5"`
	EndsAt   string  `json:"ends_at" validate:"required,len=5"`
	Room     *string `json:"room,omitempty" validate:"omitempty,max=50"`
}

// GetClass fetches one class scoped to the actor's school.
func (s *Service) GetClass(ctx context.Context, actor *rbac.Principal, id int64) (*Class, error) {
	schoolID, err := rbac.SchoolID(actor)
	if err != nil {
		return nil, err
	}
	return s.repo.GetClass(ctx, schoolID, id)
}

// ListClasses lists the school's classes.
func (s *Service) ListClasses(ctx context.Context, actor *rbac.Principal) ([]Class, error) {
	schoolID, err := rbac.SchoolID(actor)
	if err != nil {
		return nil, err
	}
	return s.repo.ListClasses(ctx, schoolID)
}

// CreateClass registers a class.
func (s *Service) CreateClass(ctx context.Context, actor *rbac.Principal, req ClassRequest) (*Class, error) {
	schoolID, err := rbac.SchoolID(actor)
	if err != nil {
		return nil, err
	}
	id, err := s.repo.CreateClass(ctx, Class{
		SchoolID:  schoolID,
		Name:      strings.TrimSpace(req.Name),
		Grade:     strings.TrimSpace(req.Grade),
		TeacherID: req.TeacherID,
	})
	if err != nil {
		return nil, err
	}
	return s.repo.GetClass(ctx, schoolID, id)
}

// UpdateClass rewrites a class.
func (s *Service) UpdateClass(ctx context.Context, actor *rbac.Principal, id int64, req ClassRequest) (*Class, error) {
	schoolID, err := rbac.SchoolID(actor)
	if err != nil {
		return nil, err
	}
	c, err := s.repo.GetClass(ctx, schoolID, id)
	if err != nil {
		return nil, err
	}
	c.Name = strings.TrimSpace(req.Name)
	c.Grade = strings.TrimSpace(req.Grade)
	c.TeacherID = req.TeacherID
	if err := s.repo.UpdateClass(ctx, *c); err != nil {
		return nil, err
	}
	return s.repo.GetClass(ctx, schoolID, id)
}

// GetSubject fetches one subject scoped to the actor's school.
func (s *Service) GetSubject(ctx context.Context, actor *rbac.Principal, id int64) (*Subject, error) {
	schoolID, err := rbac.SchoolID(actor)
	if err != nil {
		return nil, err
	}
	return s.repo.GetSubject(ctx, schoolID, id)
}

// ListSubjects lists the school's subjects.
func (s *Service) ListSubjects(ctx context.Context, actor *rbac.Principal) ([]Subject, error) {
	schoolID, err := rbac.SchoolID(actor)
	if err != nil {
		return nil, err
	}
	return s.repo.ListSubjects(ctx, schoolID)
}

// CreateSubject registers a subject.
func (s *Service) CreateSubject(ctx context.Context, actor *rbac.Principal, req SubjectRequest) (*Subject, error) {
	schoolID, err := rbac.SchoolID(actor)
	if err != nil {
		return nil, err
	}
	id, err := s.repo.CreateSubject(ctx, Subject{
		SchoolID: schoolID,
		Name:     strings.TrimSpace(req.Name),
		Code:     strings.ToUpper(strings.TrimSpace(req.Code)),
	})
	if err != nil {
		return nil, err
	}
	return s.repo.GetSubject(ctx, schoolID, id)
}

// UpdateSubject rewrites a subject.
func (s *Service) UpdateSubject(ctx context.Context, actor *rbac.Principal, id int64, req SubjectRequest) (*Subject, error) {
	schoolID, err := rbac.SchoolID(actor)
	if err != nil {
		return nil, err
	}
	sub, err := s.repo.GetSubject(ctx, schoolID, id)
	if err != nil {
		return nil, err
	}
	sub.Name = strings.TrimSpace(req.Name)
	sub.Code = strings.ToUpper(strings.TrimSpace(req.Code))
	if err := s.repo.UpdateSubject(ctx, *sub); err != nil {
		return nil, err
	}
	return s.repo.GetSubject(ctx, schoolID, id)
}

// DeleteSubject removes an unused subject.
func (s *Service) DeleteSubject(ctx context.Context, actor *rbac.Principal, id int64) error {
	schoolID, err := rbac.SchoolID(actor)
	if err != nil {
		return err
	}
	return s.repo.DeleteSubject(ctx, schoolID, id)
}

// GetCourse fetches one course scoped to the actor's school.
func (s *Service) GetCourse(ctx context.Context, actor *rbac.Principal, id int64) (*Course, error) {
	schoolID, err := rbac.SchoolID(actor)
	if err != nil {
		return nil, err
	}
	return s.repo.GetCourse(ctx, schoolID, id)
}

// ListCourses lists the school's courses, optionally for one class.
func (s *Service) ListCourses(ctx context.Context, actor *rbac.Principal, classID *int64) ([]Course, error) {
	schoolID, err := rbac.SchoolID(actor)
	if err != nil {
		return nil, err
	}
	return s.repo.ListCourses(ctx, schoolID, classID)
}

// CreateCourse registers a course after checking its subject and class belong
// to the same school.
func (s *Service) CreateCourse(ctx context.Context, actor *rbac.Principal, req CourseRequest) (*Course, error) {
	schoolID, err := rbac.SchoolID(actor)
	if err != nil {
		return nil, err
	}
	if _, err := s.repo.GetSubject(ctx, schoolID, req.SubjectID); err != nil {
		return nil, err
	}
	if _, err := s.repo.GetClass(ctx, schoolID, req.ClassID); err != nil {
		return nil, err
	}
	id, err := s.repo.CreateCourse(ctx, Course{
		SchoolID:  schoolID,
		SubjectID: req.SubjectID,
		ClassID:   req.ClassID,
		TeacherID: req.TeacherID,
		Name:      strings.TrimSpace(req.Name),
	})
	if err != nil {
		return nil, err
	}
	return s.repo.GetCourse(ctx, schoolID, id)
}

// UpdateCourse rewrites a course with the same referential checks as create.
func (s *Service) UpdateCourse(ctx context.Context, actor *rbac.Principal, id int64, req CourseRequest) (*Course, error) {
	schoolID, err := rbac.SchoolID(actor)
	if err != nil {
		return nil, err
	}
	c, err := s.repo.GetCourse(ctx, schoolID, id)
	if err != nil {
		return nil, err
	}
	if _, err := s.repo.GetSubject(ctx, schoolID, req.SubjectID); err != nil {
		return nil, err
	}
	if _, err := s.repo.GetClass(ctx, schoolID, req.ClassID); err != nil {
		return nil, err
	}
	c.SubjectID = req.SubjectID
	c.ClassID = req.ClassID
	c.TeacherID = req.TeacherID
	c.Name = strings.TrimSpace(req.Name)
	if err := s.repo.UpdateCourse(ctx, *c); err != nil {
		return nil, err
	}
	return s.repo.GetCourse(ctx, schoolID, id)
}

// ListLessons lists the weekly schedule, optionally for one class.
func (s *Service) ListLessons(ctx context.Context, actor *rbac.Principal, classID *int64) ([]Lesson, error) {
	schoolID, err := rbac.SchoolID(actor)
	if err != nil {
		return nil, err
	}
	return s.repo.ListLessons(ctx, schoolID, classID)
}

// CreateLesson adds a schedule slot for a course of the same school.
func (s *Service) CreateLesson(ctx context.Context, actor *rbac.Principal, req LessonRequest) (*Lesson, error) {
	schoolID, err := rbac.SchoolID(actor)
	if err != nil {
		return nil, err
	}
	if _, err := s.repo.GetCourse(ctx, schoolID, req.CourseID); err != nil {
		return nil, err
	}
	id, err := s.repo.CreateLesson(ctx, Lesson{
		SchoolID: schoolID,
		CourseID: req.CourseID,
		Weekday:  req.Weekday,
		StartsAt: req.StartsAt,
		EndsAt:   req.EndsAt,
		Room:     req.Room,
	})
	if err != nil {
		return nil, err
	}
	return s.repo.GetLesson(ctx, schoolID, id)
}

// DeleteLesson removes a schedule slot.
func (s *Service) DeleteLesson(ctx context.Context, actor *rbac.Principal, id int64) error {
	schoolID, err := rbac.SchoolID(actor)
	if err != nil {
		return err
	}
	return s.repo.DeleteLesson(ctx, schoolID, id)
}
