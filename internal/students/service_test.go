package students

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/classpoint/classpoint/internal/rbac"
)

type mockRepo struct {
	students    map[int64]*Student
	guardians   map[int64]*Guardian
	nextStudent int64
	nextGuard   int64
}

func newMockRepo() *mockRepo {
	return &mockRepo{
		students:    make(map[int64]*Student),
		guardians:   make(map[int64]*Guardian),
		nextStudent: 1,
		nextGuard:   1,
	}
}

func (m *mockRepo) GetStudent(ctx context.Context, schoolID, id int64) (*Student, error) {
	s, ok := m.students[id]
	if !ok || s.SchoolID != schoolID {
		return nil, ErrNotFound
	}
	clone := *s
	return &clone, nil
}

func (m *mockRepo) GetStudentByAccount(ctx context.Context, schoolID, accountID int64) (*Student, error) {
	for _, s := range m.students {
		if s.SchoolID == schoolID && s.AccountID != nil && *s.AccountID == accountID {
			clone := *s
			return &clone, nil
		}
	}
	return nil, ErrNotFound
}

func (m *mockRepo) ListStudents(ctx context.Context, schoolID int64, filter ListFilter) ([]Student, int, error) {
	var out []Student
	for _, s := range m.students {
		if s.SchoolID != schoolID {
			continue
		}
		if filter.ClassID != nil && (s.ClassID == nil || *s.ClassID != *filter.ClassID) {
			continue
		}
		out = append(out, *s)
	}
	return out, len(out), nil
}

func (m *mockRepo) CreateStudent(ctx context.Context, s Student) (int64, error) {
	for _, existing := range m.students {
		if existing.SchoolID == s.SchoolID && existing.AdmissionNo == s.AdmissionNo {
			return 0, ErrAlreadyExists
		}
	}
	id := m.nextStudent
	m.nextStudent++
	s.ID = id
	s.IsActive = true
	m.students[id] = &s
	return id, nil
}

func (m *mockRepo) UpdateStudent(ctx context.Context, s Student) error {
	existing, ok := m.students[s.ID]
	if !ok || existing.SchoolID != s.SchoolID {
		return ErrNotFound
	}
	m.students[s.ID] = &s
	return nil
}

func (m *mockRepo) SetStudentActive(ctx context.Context, schoolID, id int64, active bool) error {
	s, ok := m.students[id]
	if !ok || s.SchoolID != schoolID {
		return ErrNotFound
	}
	s.IsActive = active
	return nil
}

func (m *mockRepo) GetGuardian(ctx context.Context, schoolID, id int64) (*Guardian, error) {
	g, ok := m.guardians[id]
	if !ok || g.SchoolID != schoolID {
		return nil, ErrNotFound
	}
	clone := *g
	return &clone, nil
}

func (m *mockRepo) GetGuardianByAccount(ctx context.Context, schoolID, accountID int64) (*Guardian, error) {
	for _, g := range m.guardians {
		if g.SchoolID == schoolID && g.AccountID != nil && *g.AccountID == accountID {
			clone := *g
			return &clone, nil
		}
	}
	return nil, ErrNotFound
}

func (m *mockRepo) ListGuardians(ctx context.Context, schoolID int64, limit, offset int) ([]Guardian, int, error) {
	var out []Guardian
	for _, g := range m.guardians {
		if g.SchoolID == schoolID {
			out = append(out, *g)
		}
	}
	return out, len(out), nil
}

func (m *mockRepo) CreateGuardian(ctx context.Context, g Guardian) (int64, error) {
	id := m.nextGuard
	m.nextGuard++
	g.ID = id
	m.guardians[id] = &g
	return id, nil
}

func (m *mockRepo) UpdateGuardian(ctx context.Context, g Guardian) error {
	existing, ok := m.guardians[g.ID]
	if !ok || existing.SchoolID != g.SchoolID {
		return ErrNotFound
	}
	m.guardians[g.ID] = &g
	return nil
}

func (m *mockRepo) StudentsOfGuardian(ctx context.Context, schoolID, guardianID int64) ([]Student, error) {
	var out []Student
	for _, s := range m.students {
		if s.SchoolID == schoolID && s.GuardianID != nil && *s.GuardianID == guardianID {
			out = append(out, *s)
		}
	}
	return out, nil
}

func idPtr(v int64) *int64 { return &v }

func principal(role rbac.Role, userID, schoolID int64) *rbac.Principal {
	return &rbac.Principal{UserID: userID, Role: role, SchoolID: &schoolID, IsActive: true}
}

func TestCreateStudentScopedToActorSchool(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo)

	student, err := svc.CreateStudent(context.Background(), principal(rbac.RoleSchoolAdmin, 1, 1), StudentRequest{
		Name:        "Ada Mensah",
		AdmissionNo: "2026-00001",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), student.SchoolID)
	assert.True(t, student.IsActive)
}

func TestCreateStudentRejectsForeignGuardian(t *testing.T) {
	repo := newMockRepo()
	repo.guardians[9] = &Guardian{ID: 9, SchoolID: 2}
	svc := NewService(repo)

	_, err := svc.CreateStudent(context.Background(), principal(rbac.RoleSchoolAdmin, 1, 1), StudentRequest{
		Name:        "Ada Mensah",
		AdmissionNo: "2026-00001",
		GuardianID:  idPtr(9),
	})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestGetStudentCrossTenantIsNotFound(t *testing.T) {
	repo := newMockRepo()
	repo.students[5] = &Student{ID: 5, SchoolID: 2, Name: "Ada Mensah"}
	svc := NewService(repo)

	_, err := svc.GetStudent(context.Background(), principal(rbac.RoleSchoolAdmin, 1, 1), 5)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestLearnerSeesOnlyOwnRecord(t *testing.T) {
	repo := newMockRepo()
	repo.students[5] = &Student{ID: 5, SchoolID: 1, AccountID: idPtr(50), Name: "Ada Mensah"}
	repo.students[6] = &Student{ID: 6, SchoolID: 1, AccountID: idPtr(60), Name: "Kofi Owusu"}
	svc := NewService(repo)

	me := principal(rbac.RoleStudent, 50, 1)
	student, err := svc.GetStudent(context.Background(), me, 5)
	require.NoError(t, err)
	assert.Equal(t, "Ada Mensah", student.Name)

	_, err = svc.GetStudent(context.Background(), me, 6)
	require.ErrorIs(t, err, ErrNotFound, "a classmate's record reads as missing")
}

func TestGuardianSeesOnlyLinkedStudents(t *testing.T) {
	repo := newMockRepo()
	repo.guardians[9] = &Guardian{ID: 9, SchoolID: 1, AccountID: idPtr(90)}
	repo.students[5] = &Student{ID: 5, SchoolID: 1, GuardianID: idPtr(9), Name: "Ada Mensah"}
	repo.students[6] = &Student{ID: 6, SchoolID: 1, Name: "Kofi Owusu"}
	svc := NewService(repo)

	guardian := principal(rbac.RoleGuardian, 90, 1)
	student, err := svc.GetStudent(context.Background(), guardian, 5)
	require.NoError(t, err)
	assert.Equal(t, "Ada Mensah", student.Name)

	_, err = svc.GetStudent(context.Background(), guardian, 6)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestMyStudentsListsLinkedOnly(t *testing.T) {
	repo := newMockRepo()
	repo.guardians[9] = &Guardian{ID: 9, SchoolID: 1, AccountID: idPtr(90)}
	repo.students[5] = &Student{ID: 5, SchoolID: 1, GuardianID: idPtr(9)}
	repo.students[6] = &Student{ID: 6, SchoolID: 1, GuardianID: idPtr(8)}
	svc := NewService(repo)

	list, err := svc.MyStudents(context.Background(), principal(rbac.RoleGuardian, 90, 1))
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, int64(5), list[0].ID)
}

func TestUpdateStudentAcrossTenantIsNotFound(t *testing.T) {
	repo := newMockRepo()
	repo.students[5] = &Student{ID: 5, SchoolID: 2, Name: "Ada Mensah", AdmissionNo: "2026-00001"}
	svc := NewService(repo)

	_, err := svc.UpdateStudent(context.Background(), principal(rbac.RoleSchoolAdmin, 1, 1), 5, StudentRequest{
		Name:        "Renamed",
		AdmissionNo: "2026-00001",
	})
	require.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, "Ada Mensah", repo.students[5].Name)
}
