package attendance

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/classpoint/classpoint/internal/rbac"
)

type recordKey struct {
	classID   int64
	studentID int64
	date      string
}

type mockRepo struct {
	records map[recordKey]*Record
	// accountStudents maps an account id to the student record it owns.
	accountStudents map[int64]int64
	nextID          int64
}

func newMockRepo() *mockRepo {
	return &mockRepo{
		records:         make(map[recordKey]*Record),
		accountStudents: make(map[int64]int64),
	}
}

func keyOf(rec Record) recordKey {
	return recordKey{classID: rec.ClassID, studentID: rec.StudentID, date: rec.Date.Format("2006-01-02")}
}

func (m *mockRepo) UpsertRecord(_ context.Context, rec Record) (int64, error) {
	key := keyOf(rec)
	if existing, ok := m.records[key]; ok {
		rec.ID = existing.ID
	} else {
		m.nextID++
		rec.ID = m.nextID
	}
	m.records[key] = &rec
	return rec.ID, nil
}

func (m *mockRepo) GetRecord(_ context.Context, schoolID, id int64) (*Record, error) {
	for _, rec := range m.records {
		if rec.ID == id && rec.SchoolID == schoolID {
			clone := *rec
			return &clone, nil
		}
	}
	return nil, ErrNotFound
}

func (m *mockRepo) RecordsByClassDate(_ context.Context, schoolID, classID int64, date time.Time) ([]Record, error) {
	var out []Record
	for _, rec := range m.records {
		if rec.SchoolID == schoolID && rec.ClassID == classID && rec.Date.Format("2006-01-02") == date.Format("2006-01-02") {
			out = append(out, *rec)
		}
	}
	return out, nil
}

func (m *mockRepo) RecordsByStudent(_ context.Context, schoolID, studentID int64, from, to time.Time) ([]Record, error) {
	var out []Record
	for _, rec := range m.records {
		if rec.SchoolID == schoolID && rec.StudentID == studentID && !rec.Date.Before(from) && !rec.Date.After(to) {
			out = append(out, *rec)
		}
	}
	return out, nil
}

func (m *mockRepo) RecordsByAccount(ctx context.Context, schoolID, accountID int64, from, to time.Time) ([]Record, error) {
	studentID, ok := m.accountStudents[accountID]
	if !ok {
		return nil, nil
	}
	return m.RecordsByStudent(ctx, schoolID, studentID, from, to)
}

func teacher(schoolID int64) *rbac.Principal {
	return &rbac.Principal{UserID: 40, Role: rbac.RoleTeacher, SchoolID: &schoolID, IsActive: true}
}

func strPtr(s string) *string { return &s }

func TestRecordRegisterRejectsUnknownStatus(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo)

	_, err := svc.RecordRegister(context.Background(), teacher(1), RegisterRequest{
		ClassID: 7,
		Date:    time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC),
		Marks: []MarkRequest{
			{StudentID: 100, Status: "present"},
			{StudentID: 101, Status: "sick"},
		},
	})
	assert.ErrorIs(t, err, ErrInvalidStatus)
	assert.Empty(t, repo.records, "a register with any bad mark must not be written at all")
}

func TestRecordRegisterUpsertsMarksInPlace(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo)
	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

	first, err := svc.RecordRegister(context.Background(), teacher(1), RegisterRequest{
		ClassID: 7,
		Date:    day,
		Marks: []MarkRequest{
			{StudentID: 100, Status: "absent"},
			{StudentID: 101, Status: "present"},
		},
	})
	require.NoError(t, err)
	require.Len(t, first, 2)

	// Re-submitting the register corrects the earlier mark without a second row.
	second, err := svc.RecordRegister(context.Background(), teacher(1), RegisterRequest{
		ClassID: 7,
		Date:    day,
		Marks: []MarkRequest{
			{StudentID: 100, Status: "late", Note: strPtr("bus breakdown")},
		},
	})
	require.NoError(t, err)
	require.Len(t, second, 2)
	require.Len(t, repo.records, 2)

	hist, err := svc.StudentHistory(context.Background(), teacher(1), 100, day, day)
	require.NoError(t, err)
	require.Len(t, hist, 1)
	assert.Equal(t, StatusLate, hist[0].Status)
	require.NotNil(t, hist[0].Note)
	assert.Equal(t, "bus breakdown", *hist[0].Note)
	assert.Equal(t, int64(40), hist[0].RecordedBy)
}

func TestMyHistoryResolvesThroughOwnAccount(t *testing.T) {
	repo := newMockRepo()
	repo.accountStudents[55] = 100
	svc := NewService(repo)
	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

	_, err := svc.RecordRegister(context.Background(), teacher(1), RegisterRequest{
		ClassID: 7,
		Date:    day,
		Marks: []MarkRequest{
			{StudentID: 100, Status: "present"},
			{StudentID: 101, Status: "absent"},
		},
	})
	require.NoError(t, err)

	schoolID := int64(1)
	learner := &rbac.Principal{UserID: 55, Role: rbac.RoleStudent, SchoolID: &schoolID, IsActive: true}
	hist, err := svc.MyHistory(context.Background(), learner, day, day)
	require.NoError(t, err)
	require.Len(t, hist, 1)
	assert.Equal(t, int64(100), hist[0].StudentID)

	// An account with no student record simply sees nothing.
	stranger := &rbac.Principal{UserID: 56, Role: rbac.RoleStudent, SchoolID: &schoolID, IsActive: true}
	hist, err = svc.MyHistory(context.Background(), stranger, day, day)
	require.NoError(t, err)
	assert.Empty(t, hist)
}

func TestClassRegisterIsTenantScoped(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo)
	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

	_, err := svc.RecordRegister(context.Background(), teacher(2), RegisterRequest{
		ClassID: 7,
		Date:    day,
		Marks:   []MarkRequest{{StudentID: 200, Status: "present"}},
	})
	require.NoError(t, err)

	recs, err := svc.ClassRegister(context.Background(), teacher(1), 7, day)
	require.NoError(t, err)
	assert.Empty(t, recs, "another school's register must not leak through a shared class id")
}
