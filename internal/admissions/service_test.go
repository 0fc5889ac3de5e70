package admissions

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/classpoint/classpoint/internal/rbac"
)

type mockRepo struct {
	applications map[int64]*Application
	schools      map[string]int64 // slug -> active school id
	students     map[int64]string // student id -> admission no
	nextApp      int64
	nextStudent  int64
	seq          int

	studentError error
}

func newMockRepo() *mockRepo {
	return &mockRepo{
		applications: make(map[int64]*Application),
		schools:      make(map[string]int64),
		students:     make(map[int64]string),
		nextApp:      1,
		nextStudent:  500,
	}
}

func (m *mockRepo) CreateApplication(ctx context.Context, app Application) (int64, error) {
	id := m.nextApp
	m.nextApp++
	app.ID = id
	app.Status = StatusApplied
	app.CreatedAt = time.Now()
	m.applications[id] = &app
	return id, nil
}

func (m *mockRepo) GetApplication(ctx context.Context, schoolID, id int64) (*Application, error) {
	app, ok := m.applications[id]
	if !ok || app.SchoolID != schoolID {
		return nil, ErrNotFound
	}
	clone := *app
	return &clone, nil
}

func (m *mockRepo) ListApplications(ctx context.Context, schoolID int64, filter ListFilter) ([]Application, int, error) {
	var out []Application
	for _, app := range m.applications {
		if app.SchoolID != schoolID {
			continue
		}
		if filter.Status != nil && app.Status != *filter.Status {
			continue
		}
		out = append(out, *app)
	}
	return out, len(out), nil
}

func (m *mockRepo) ActiveSchoolIDBySlug(ctx context.Context, slug string) (int64, error) {
	id, ok := m.schools[slug]
	if !ok {
		return 0, ErrSchoolNotAccepting
	}
	return id, nil
}

func (m *mockRepo) NextAdmissionNo(ctx context.Context, schoolID int64) (string, error) {
	m.seq++
	return fmt.Sprintf("%d-%05d", time.Now().Year(), m.seq), nil
}

func (m *mockRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	snapApps := make(map[int64]*Application, len(m.applications))
	for id, app := range m.applications {
		clone := *app
		snapApps[id] = &clone
	}
	snapStudents := make(map[int64]string, len(m.students))
	for id, no := range m.students {
		snapStudents[id] = no
	}
	if err := fn(ctx, &mockTx{repo: m}); err != nil {
		m.applications = snapApps
		m.students = snapStudents
		return err
	}
	return nil
}

type mockTx struct {
	repo *mockRepo
}

func (tx *mockTx) Decide(ctx context.Context, schoolID, id int64, status Status, actorID int64, note *string, studentID *int64) error {
	app, ok := tx.repo.applications[id]
	if !ok || app.SchoolID != schoolID {
		return ErrNotFound
	}
	if app.Status != StatusApplied {
		return ErrAlreadyDecided
	}
	now := time.Now()
	app.Status = status
	app.Note = note
	app.StudentID = studentID
	app.DecidedBy = &actorID
	app.DecidedAt = &now
	return nil
}

func (tx *mockTx) CreateStudentFromApplication(ctx context.Context, app Application, admissionNo string) (int64, error) {
	if tx.repo.studentError != nil {
		return 0, tx.repo.studentError
	}
	id := tx.repo.nextStudent
	tx.repo.nextStudent++
	tx.repo.students[id] = admissionNo
	return id, nil
}

func reviewer(schoolID int64) *rbac.Principal {
	return &rbac.Principal{UserID: 1, Role: rbac.RoleSchoolAdmin, SchoolID: &schoolID, IsActive: true}
}

func fileApplication(t *testing.T, repo *mockRepo, svc *Service, slug string) *Application {
	t.Helper()
	app, err := svc.Apply(context.Background(), ApplyRequest{
		SchoolSlug:    slug,
		ApplicantName: "Ada Mensah",
		Email:         "Ada@Family.Test",
	})
	require.NoError(t, err)
	return app
}

func TestApplyAgainstActiveSchool(t *testing.T) {
	repo := newMockRepo()
	repo.schools["hillside"] = 1
	svc := NewService(repo)

	app := fileApplication(t, repo, svc, "hillside")
	assert.Equal(t, StatusApplied, app.Status)
	assert.Equal(t, "ada@family.test", app.Email)

	_, err := svc.Apply(context.Background(), ApplyRequest{
		SchoolSlug:    "nowhere",
		ApplicantName: "Ada Mensah",
		Email:         "ada@family.test",
	})
	require.ErrorIs(t, err, ErrSchoolNotAccepting)
}

func TestAcceptCreatesStudentWithDecision(t *testing.T) {
	repo := newMockRepo()
	repo.schools["hillside"] = 1
	svc := NewService(repo)
	app := fileApplication(t, repo, svc, "hillside")

	decided, err := svc.Accept(context.Background(), reviewer(1), app.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, StatusAccepted, decided.Status)
	require.NotNil(t, decided.StudentID)
	require.NotNil(t, decided.DecidedBy)

	admissionNo, ok := repo.students[*decided.StudentID]
	require.True(t, ok, "learner record created")
	assert.Regexp(t, `^\d{4}-\d{5}$`, admissionNo)
}

func TestAcceptRollsBackWhenStudentInsertFails(t *testing.T) {
	repo := newMockRepo()
	repo.schools["hillside"] = 1
	repo.studentError = errors.New("student insert failed")
	svc := NewService(repo)
	app := fileApplication(t, repo, svc, "hillside")

	_, err := svc.Accept(context.Background(), reviewer(1), app.ID, nil)
	require.Error(t, err)

	current, _ := repo.GetApplication(context.Background(), 1, app.ID)
	assert.Equal(t, StatusApplied, current.Status, "decision rolled back with the student insert")
	assert.Empty(t, repo.students)
}

func TestDecideTwiceIsConflict(t *testing.T) {
	repo := newMockRepo()
	repo.schools["hillside"] = 1
	svc := NewService(repo)
	app := fileApplication(t, repo, svc, "hillside")

	_, err := svc.Reject(context.Background(), reviewer(1), app.ID, nil)
	require.NoError(t, err)

	_, err = svc.Accept(context.Background(), reviewer(1), app.ID, nil)
	require.ErrorIs(t, err, ErrAlreadyDecided)
	_, err = svc.Reject(context.Background(), reviewer(1), app.ID, nil)
	require.ErrorIs(t, err, ErrAlreadyDecided)
}

func TestReviewIsTenantScoped(t *testing.T) {
	repo := newMockRepo()
	repo.schools["hillside"] = 1
	svc := NewService(repo)
	app := fileApplication(t, repo, svc, "hillside")

	_, err := svc.Get(context.Background(), reviewer(2), app.ID)
	require.ErrorIs(t, err, ErrNotFound)
	_, err = svc.Accept(context.Background(), reviewer(2), app.ID, nil)
	require.ErrorIs(t, err, ErrNotFound)
}
