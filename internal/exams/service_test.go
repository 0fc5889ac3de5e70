package exams

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/classpoint/classpoint/internal/rbac"
)

type resultKey struct {
	examID    int64
	studentID int64
	subjectID int64
}

type mockRepo struct {
	exams   map[int64]*Exam
	results map[resultKey]*Result
	// studentAccounts links account ids to student ids, guardianWards links
	// guardian account ids to the student ids they oversee.
	studentAccounts map[int64]int64
	guardianWards   map[int64][]int64
	nextExam        int64
	nextResult      int64
}

func newMockRepo() *mockRepo {
	return &mockRepo{
		exams:           make(map[int64]*Exam),
		results:         make(map[resultKey]*Result),
		studentAccounts: make(map[int64]int64),
		guardianWards:   make(map[int64][]int64),
		nextExam:        1,
		nextResult:      1,
	}
}

func (m *mockRepo) GetExam(ctx context.Context, schoolID, id int64) (*Exam, error) {
	e, ok := m.exams[id]
	if !ok || e.SchoolID != schoolID {
		return nil, ErrNotFound
	}
	clone := *e
	return &clone, nil
}

func (m *mockRepo) ListExams(ctx context.Context, schoolID int64) ([]Exam, error) {
	var out []Exam
	for _, e := range m.exams {
		if e.SchoolID == schoolID {
			out = append(out, *e)
		}
	}
	return out, nil
}

func (m *mockRepo) CreateExam(ctx context.Context, e Exam) (int64, error) {
	id := m.nextExam
	m.nextExam++
	e.ID = id
	m.exams[id] = &e
	return id, nil
}

func (m *mockRepo) UpdateExam(ctx context.Context, e Exam) error {
	existing, ok := m.exams[e.ID]
	if !ok || existing.SchoolID != e.SchoolID {
		return ErrNotFound
	}
	e.Published = existing.Published
	m.exams[e.ID] = &e
	return nil
}

func (m *mockRepo) SetPublished(ctx context.Context, schoolID, id int64, published bool) error {
	e, ok := m.exams[id]
	if !ok || e.SchoolID != schoolID {
		return ErrNotFound
	}
	e.Published = published
	return nil
}

func (m *mockRepo) UpsertResult(ctx context.Context, r Result) (int64, error) {
	key := resultKey{r.ExamID, r.StudentID, r.SubjectID}
	if existing, ok := m.results[key]; ok {
		r.ID = existing.ID
	} else {
		r.ID = m.nextResult
		m.nextResult++
	}
	m.results[key] = &r
	return r.ID, nil
}

func (m *mockRepo) GetResult(ctx context.Context, schoolID, id int64) (*Result, error) {
	for _, r := range m.results {
		if r.ID == id && r.SchoolID == schoolID {
			clone := *r
			return &clone, nil
		}
	}
	return nil, ErrNotFound
}

func (m *mockRepo) ResultsByExam(ctx context.Context, schoolID, examID int64) ([]Result, error) {
	var out []Result
	for _, r := range m.results {
		if r.SchoolID == schoolID && r.ExamID == examID {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (m *mockRepo) ResultsByStudent(ctx context.Context, schoolID, studentID int64, publishedOnly bool) ([]Result, error) {
	var out []Result
	for _, r := range m.results {
		if r.SchoolID != schoolID || r.StudentID != studentID {
			continue
		}
		if publishedOnly && !m.exams[r.ExamID].Published {
			continue
		}
		out = append(out, *r)
	}
	return out, nil
}

func (m *mockRepo) ResultsByAccount(ctx context.Context, schoolID, accountID int64) ([]Result, error) {
	studentID, ok := m.studentAccounts[accountID]
	if !ok {
		return nil, nil
	}
	return m.ResultsByStudent(ctx, schoolID, studentID, true)
}

func (m *mockRepo) ResultsByGuardianAccount(ctx context.Context, schoolID, accountID int64) ([]Result, error) {
	var out []Result
	for _, studentID := range m.guardianWards[accountID] {
		rs, err := m.ResultsByStudent(ctx, schoolID, studentID, true)
		if err != nil {
			return nil, err
		}
		out = append(out, rs...)
	}
	return out, nil
}

func principal(role rbac.Role, userID, schoolID int64) *rbac.Principal {
	return &rbac.Principal{UserID: userID, Role: role, SchoolID: &schoolID, IsActive: true}
}

func admin() *rbac.Principal { return principal(rbac.RoleSchoolAdmin, 1, 1) }

func seedExamWithResult(t *testing.T, repo *mockRepo, svc *Service) *Exam {
	t.Helper()
	exam, err := svc.CreateExam(context.Background(), admin(), ExamRequest{Name: "Midterms", Term: "2026-T1"})
	require.NoError(t, err)
	_, err = svc.RecordResult(context.Background(), admin(), exam.ID, ResultRequest{
		StudentID: 5, SubjectID: 3, Score: 81, Grade: "a",
	})
	require.NoError(t, err)
	return exam
}

func TestCreateExamStartsUnpublished(t *testing.T) {
	svc := NewService(newMockRepo())
	exam, err := svc.CreateExam(context.Background(), admin(), ExamRequest{Name: "Midterms", Term: "2026-T1"})
	require.NoError(t, err)
	assert.False(t, exam.Published)
}

func TestRecordResultUpsertsByStudentAndSubject(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo)
	exam := seedExamWithResult(t, repo, svc)

	// Same student and subject: the row is rewritten, not duplicated.
	updated, err := svc.RecordResult(context.Background(), admin(), exam.ID, ResultRequest{
		StudentID: 5, SubjectID: 3, Score: 93, Grade: "A",
	})
	require.NoError(t, err)
	assert.Equal(t, 93.0, updated.Score)
	assert.Equal(t, "A", updated.Grade)
	assert.Len(t, repo.results, 1)
}

func TestRecordResultForeignExamIsNotFound(t *testing.T) {
	repo := newMockRepo()
	repo.exams[9] = &Exam{ID: 9, SchoolID: 2, Name: "Other"}
	svc := NewService(repo)

	_, err := svc.RecordResult(context.Background(), admin(), 9, ResultRequest{
		StudentID: 5, SubjectID: 3, Score: 70, Grade: "B",
	})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestMyResultsHidesUnpublishedExams(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo)
	exam := seedExamWithResult(t, repo, svc)
	repo.studentAccounts[50] = 5

	learner := principal(rbac.RoleStudent, 50, 1)
	results, err := svc.MyResults(context.Background(), learner)
	require.NoError(t, err)
	assert.Empty(t, results, "unpublished results stay invisible")

	_, err = svc.Publish(context.Background(), admin(), exam.ID)
	require.NoError(t, err)

	results, err = svc.MyResults(context.Background(), learner)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, 81.0, results[0].Score)

	_, err = svc.Unpublish(context.Background(), admin(), exam.ID)
	require.NoError(t, err)
	results, err = svc.MyResults(context.Background(), learner)
	require.NoError(t, err)
	assert.Empty(t, results, "unpublishing withdraws visibility")
}

func TestGuardianSeesOnlyLinkedWards(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo)
	exam := seedExamWithResult(t, repo, svc)
	_, err := svc.Publish(context.Background(), admin(), exam.ID)
	require.NoError(t, err)

	repo.guardianWards[90] = []int64{5}
	repo.guardianWards[91] = []int64{6}

	linked, err := svc.MyResults(context.Background(), principal(rbac.RoleGuardian, 90, 1))
	require.NoError(t, err)
	assert.Len(t, linked, 1)

	unlinked, err := svc.MyResults(context.Background(), principal(rbac.RoleGuardian, 91, 1))
	require.NoError(t, err)
	assert.Empty(t, unlinked)
}

func TestMyResultsRejectsStaffRoles(t *testing.T) {
	svc := NewService(newMockRepo())
	_, err := svc.MyResults(context.Background(), principal(rbac.RoleTeacher, 7, 1))
	require.ErrorIs(t, err, rbac.ErrWrongRole)
}

func TestStaffResultViewsIgnorePublication(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo)
	exam := seedExamWithResult(t, repo, svc)

	results, err := svc.ExamResults(context.Background(), admin(), exam.ID)
	require.NoError(t, err)
	assert.Len(t, results, 1, "staff see results before publication")
}
