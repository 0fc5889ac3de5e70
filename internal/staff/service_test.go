package staff

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/classpoint/classpoint/internal/rbac"
)

type provisionedMail struct {
	email        string
	tempPassword string
}

type recordingNotifier struct {
	sent []provisionedMail
}

func (n *recordingNotifier) StaffProvisioned(_ context.Context, email, _, tempPassword string) {
	n.sent = append(n.sent, provisionedMail{email: email, tempPassword: tempPassword})
}

type mockAccount struct {
	schoolID int64
	email    string
	hash     string
	active   bool
}

type mockRepo struct {
	members  map[int64]*Member
	accounts map[int64]*mockAccount
	nextID   int64

	accountError error
	memberError  error
}

func newMockRepo() *mockRepo {
	return &mockRepo{
		members:  make(map[int64]*Member),
		accounts: make(map[int64]*mockAccount),
	}
}

func (m *mockRepo) GetMember(_ context.Context, schoolID, id int64) (*Member, error) {
	member, ok := m.members[id]
	if !ok || member.SchoolID != schoolID {
		return nil, ErrNotFound
	}
	clone := *member
	return &clone, nil
}

func (m *mockRepo) ListMembers(_ context.Context, schoolID int64, _ string, _, _ int) ([]Member, int, error) {
	var out []Member
	for _, member := range m.members {
		if member.SchoolID == schoolID {
			out = append(out, *member)
		}
	}
	return out, len(out), nil
}

func (m *mockRepo) UpdateMember(_ context.Context, member Member) error {
	existing, ok := m.members[member.ID]
	if !ok || existing.SchoolID != member.SchoolID {
		return ErrNotFound
	}
	member.AccountID = existing.AccountID
	member.IsActive = existing.IsActive
	m.members[member.ID] = &member
	return nil
}

func (m *mockRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	memberSnap := make(map[int64]*Member, len(m.members))
	for id, member := range m.members {
		clone := *member
		memberSnap[id] = &clone
	}
	accountSnap := make(map[int64]*mockAccount, len(m.accounts))
	for id, acc := range m.accounts {
		clone := *acc
		accountSnap[id] = &clone
	}
	if err := fn(ctx, &mockTx{repo: m}); err != nil {
		m.members = memberSnap
		m.accounts = accountSnap
		return err
	}
	return nil
}

type mockTx struct {
	repo *mockRepo
}

func (t *mockTx) CreateTeacherAccount(_ context.Context, schoolID int64, acc NewTeacherAccount) (int64, error) {
	if t.repo.accountError != nil {
		return 0, t.repo.accountError
	}
	t.repo.nextID++
	id := t.repo.nextID
	t.repo.accounts[id] = &mockAccount{schoolID: schoolID, email: acc.Email, hash: acc.PasswordHash, active: true}
	return id, nil
}

func (t *mockTx) CreateMember(_ context.Context, member Member) (int64, error) {
	if t.repo.memberError != nil {
		return 0, t.repo.memberError
	}
	t.repo.nextID++
	member.ID = t.repo.nextID
	member.IsActive = true
	t.repo.members[member.ID] = &member
	return member.ID, nil
}

func (t *mockTx) SetAccountActive(_ context.Context, schoolID, accountID int64, active bool) error {
	acc, ok := t.repo.accounts[accountID]
	if !ok || acc.schoolID != schoolID {
		return ErrNotFound
	}
	acc.active = active
	return nil
}

func (t *mockTx) SetMemberActive(_ context.Context, schoolID, id int64, active bool) error {
	member, ok := t.repo.members[id]
	if !ok || member.SchoolID != schoolID {
		return ErrNotFound
	}
	member.IsActive = active
	return nil
}

func (t *mockTx) GetMember(ctx context.Context, schoolID, id int64) (*Member, error) {
	return t.repo.GetMember(ctx, schoolID, id)
}

func admin(schoolID int64) *rbac.Principal {
	return &rbac.Principal{UserID: 90, Role: rbac.RoleSchoolAdmin, SchoolID: &schoolID, IsActive: true}
}

func newTestService(repo *mockRepo, notify *recordingNotifier) *Service {
	return NewService(repo, notify, nil)
}

func TestCreateTeachingStaffProvisionsAccount(t *testing.T) {
	repo := newMockRepo()
	notify := &recordingNotifier{}
	svc := newTestService(repo, notify)

	member, err := svc.Create(context.Background(), admin(1), CreateRequest{
		Name:     "Nadia Osei",
		Email:    "Nadia.Osei@Example.com",
		Position: "Mathematics",
		Teaching: true,
	})
	require.NoError(t, err)
	assert.Equal(t, "nadia.osei@example.com", member.Email)
	require.NotNil(t, member.AccountID)

	acc := repo.accounts[*member.AccountID]
	require.NotNil(t, acc)
	assert.True(t, acc.active)

	require.Len(t, notify.sent, 1)
	assert.Equal(t, "nadia.osei@example.com", notify.sent[0].email)
	// The mail carries the plaintext; the store only ever holds the hash.
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(acc.hash), []byte(notify.sent[0].tempPassword)))
	assert.NotEqual(t, notify.sent[0].tempPassword, acc.hash)
}

func TestCreateSupportStaffHasNoAccount(t *testing.T) {
	repo := newMockRepo()
	notify := &recordingNotifier{}
	svc := newTestService(repo, notify)

	member, err := svc.Create(context.Background(), admin(1), CreateRequest{
		Name:     "Kwame Boateng",
		Email:    "kwame@example.com",
		Position: "Bursar",
	})
	require.NoError(t, err)
	assert.Nil(t, member.AccountID)
	assert.Empty(t, repo.accounts)
	assert.Empty(t, notify.sent)
}

func TestCreateRollsBackAccountWhenMemberInsertFails(t *testing.T) {
	repo := newMockRepo()
	repo.memberError = errors.New("insert failed")
	svc := newTestService(repo, &recordingNotifier{})

	_, err := svc.Create(context.Background(), admin(1), CreateRequest{
		Name:     "Nadia Osei",
		Email:    "nadia@example.com",
		Position: "Mathematics",
		Teaching: true,
	})
	require.Error(t, err)
	assert.Empty(t, repo.accounts, "account insert must not survive the failed transaction")
	assert.Empty(t, repo.members)
}

func TestDeactivateDisablesLinkedAccount(t *testing.T) {
	repo := newMockRepo()
	repo.accounts[10] = &mockAccount{schoolID: 1, email: "nadia@example.com", active: true}
	accountID := int64(10)
	repo.members[11] = &Member{ID: 11, SchoolID: 1, AccountID: &accountID, Name: "Nadia Osei", Email: "nadia@example.com", IsActive: true}
	svc := newTestService(repo, &recordingNotifier{})

	member, err := svc.Deactivate(context.Background(), admin(1), 11)
	require.NoError(t, err)
	assert.False(t, member.IsActive)
	assert.False(t, repo.accounts[10].active)

	member, err = svc.Reactivate(context.Background(), admin(1), 11)
	require.NoError(t, err)
	assert.True(t, member.IsActive)
	assert.True(t, repo.accounts[10].active)
}

func TestDeactivateSupportStaffTouchesNoAccount(t *testing.T) {
	repo := newMockRepo()
	repo.members[11] = &Member{ID: 11, SchoolID: 1, Name: "Kwame Boateng", Email: "kwame@example.com", IsActive: true}
	svc := newTestService(repo, &recordingNotifier{})

	member, err := svc.Deactivate(context.Background(), admin(1), 11)
	require.NoError(t, err)
	assert.False(t, member.IsActive)
}

func TestStaffCrossTenantIsNotFound(t *testing.T) {
	repo := newMockRepo()
	repo.members[11] = &Member{ID: 11, SchoolID: 2, Name: "Nadia Osei", Email: "nadia@example.com", IsActive: true}
	svc := newTestService(repo, &recordingNotifier{})

	_, err := svc.GetMember(context.Background(), admin(1), 11)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = svc.Deactivate(context.Background(), admin(1), 11)
	assert.ErrorIs(t, err, ErrNotFound)
}
