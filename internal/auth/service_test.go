package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/classpoint/classpoint/internal/rbac"
	"github.com/classpoint/classpoint/internal/shared"
)

type mockRepo struct {
	accounts map[int64]*Account
	byEmail  map[string]*Account
	tokens   map[string]PasswordResetToken

	updatedPasswords map[int64]string
	sessions         map[string]int64
}

func newMockRepo() *mockRepo {
	return &mockRepo{
		accounts:         make(map[int64]*Account),
		byEmail:          make(map[string]*Account),
		tokens:           make(map[string]PasswordResetToken),
		updatedPasswords: make(map[int64]string),
		sessions:         make(map[string]int64),
	}
}

func (m *mockRepo) addAccount(acc Account) *Account {
	stored := acc
	m.accounts[acc.ID] = &stored
	m.byEmail[acc.Email] = &stored
	return &stored
}

func (m *mockRepo) FindByEmail(ctx context.Context, email string) (*Account, error) {
	acc, ok := m.byEmail[email]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return acc, nil
}

func (m *mockRepo) FindByID(ctx context.Context, id int64) (*Account, error) {
	acc, ok := m.accounts[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return acc, nil
}

func (m *mockRepo) ReplaceResetToken(ctx context.Context, token PasswordResetToken) error {
	// At most one live token per user.
	for t, existing := range m.tokens {
		if existing.UserID == token.UserID {
			delete(m.tokens, t)
		}
	}
	m.tokens[token.Token] = token
	return nil
}

func (m *mockRepo) ResetPassword(ctx context.Context, token, passwordHash string) (int64, error) {
	stored, ok := m.tokens[token]
	if !ok || time.Now().After(stored.ExpiresAt) {
		return 0, shared.ErrNotFound
	}
	delete(m.tokens, token)
	m.updatedPasswords[stored.UserID] = passwordHash
	return stored.UserID, nil
}

func (m *mockRepo) UpdatePassword(ctx context.Context, userID int64, passwordHash string) error {
	m.updatedPasswords[userID] = passwordHash
	return nil
}

func (m *mockRepo) CreateSession(ctx context.Context, id string, userID int64, expiresAt time.Time, ip, ua string) error {
	m.sessions[id] = userID
	return nil
}

func (m *mockRepo) DeleteSession(ctx context.Context, id string) error {
	delete(m.sessions, id)
	return nil
}

type recordingNotifier struct {
	resetEmails []string
	tokens      []string
}

func (n *recordingNotifier) PasswordResetRequested(ctx context.Context, email, name, token string) {
	n.resetEmails = append(n.resetEmails, email)
	n.tokens = append(n.tokens, token)
}

func hashOf(t *testing.T, plaintext string) *string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), bcrypt.MinCost)
	require.NoError(t, err)
	s := string(hash)
	return &s
}

func activeAccount(t *testing.T, id int64, email, password string) Account {
	t.Helper()
	return Account{
		ID:           id,
		Name:         "Test User",
		Email:        email,
		PasswordHash: hashOf(t, password),
		Role:         rbac.RoleTeacher,
		IsActive:     true,
	}
}

func TestAuthenticateSuccess(t *testing.T) {
	repo := newMockRepo()
	repo.addAccount(activeAccount(t, 1, "t@school.test", "correct horse"))
	svc := NewService(repo, nil, time.Hour)

	acc, err := svc.Authenticate(context.Background(), "t@school.test", "correct horse")
	require.NoError(t, err)
	assert.Equal(t, int64(1), acc.ID)
}

func TestAuthenticateFailuresAreUniform(t *testing.T) {
	repo := newMockRepo()
	repo.addAccount(activeAccount(t, 1, "t@school.test", "correct horse"))

	inactive := activeAccount(t, 2, "gone@school.test", "whatever12")
	inactive.IsActive = false
	repo.addAccount(inactive)

	passwordless := activeAccount(t, 3, "sso@school.test", "unused password")
	passwordless.PasswordHash = nil
	repo.addAccount(passwordless)

	svc := NewService(repo, nil, time.Hour)

	cases := map[string]struct{ email, password string }{
		"unknown email":        {"nobody@school.test", "correct horse"},
		"wrong password":       {"t@school.test", "wrong horse"},
		"deactivated account":  {"gone@school.test", "whatever12"},
		"passwordless account": {"sso@school.test", "unused password"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Authenticate(context.Background(), tc.email, tc.password)
			require.ErrorIs(t, err, shared.ErrInvalidCredentials)
		})
	}
}

func TestForgotPasswordIsEnumerationSafe(t *testing.T) {
	repo := newMockRepo()
	repo.addAccount(activeAccount(t, 1, "known@school.test", "correct horse"))
	notifier := &recordingNotifier{}
	svc := NewService(repo, notifier, time.Hour)

	require.NoError(t, svc.ForgotPassword(context.Background(), "unknown@school.test"))
	require.NoError(t, svc.ForgotPassword(context.Background(), "known@school.test"))

	// Same nil error either way, but only the real account got a token.
	assert.Equal(t, []string{"known@school.test"}, notifier.resetEmails)
	assert.Len(t, repo.tokens, 1)
}

func TestForgotPasswordSkipsInactiveAccounts(t *testing.T) {
	repo := newMockRepo()
	inactive := activeAccount(t, 2, "gone@school.test", "whatever12")
	inactive.IsActive = false
	repo.addAccount(inactive)
	notifier := &recordingNotifier{}
	svc := NewService(repo, notifier, time.Hour)

	require.NoError(t, svc.ForgotPassword(context.Background(), "gone@school.test"))
	assert.Empty(t, notifier.resetEmails)
	assert.Empty(t, repo.tokens)
}

func TestResetTokenIsSingleUse(t *testing.T) {
	repo := newMockRepo()
	repo.addAccount(activeAccount(t, 1, "t@school.test", "old password"))
	notifier := &recordingNotifier{}
	svc := NewService(repo, notifier, time.Hour)

	require.NoError(t, svc.ForgotPassword(context.Background(), "t@school.test"))
	require.Len(t, notifier.tokens, 1)
	token := notifier.tokens[0]

	require.NoError(t, svc.ResetPassword(context.Background(), token, "brand new password"))
	assert.Contains(t, repo.updatedPasswords, int64(1))

	err := svc.ResetPassword(context.Background(), token, "another password")
	require.ErrorIs(t, err, ErrTokenInvalid)
}

func TestReissueInvalidatesPreviousToken(t *testing.T) {
	repo := newMockRepo()
	repo.addAccount(activeAccount(t, 1, "t@school.test", "old password"))
	notifier := &recordingNotifier{}
	svc := NewService(repo, notifier, time.Hour)

	require.NoError(t, svc.ForgotPassword(context.Background(), "t@school.test"))
	require.NoError(t, svc.ForgotPassword(context.Background(), "t@school.test"))
	require.Len(t, notifier.tokens, 2)

	err := svc.ResetPassword(context.Background(), notifier.tokens[0], "new password")
	require.ErrorIs(t, err, ErrTokenInvalid)
	require.NoError(t, svc.ResetPassword(context.Background(), notifier.tokens[1], "new password"))
}

func TestExpiredTokenRejected(t *testing.T) {
	repo := newMockRepo()
	repo.addAccount(activeAccount(t, 1, "t@school.test", "old password"))
	repo.tokens["stale"] = PasswordResetToken{Token: "stale", UserID: 1, ExpiresAt: time.Now().Add(-time.Minute)}
	svc := NewService(repo, nil, time.Hour)

	err := svc.ResetPassword(context.Background(), "stale", "new password")
	require.ErrorIs(t, err, ErrTokenInvalid)
}

func TestChangePassword(t *testing.T) {
	repo := newMockRepo()
	repo.addAccount(activeAccount(t, 1, "t@school.test", "current password"))
	svc := NewService(repo, nil, time.Hour)

	err := svc.ChangePassword(context.Background(), 1, "wrong password", "next password")
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)
	assert.Empty(t, repo.updatedPasswords)

	require.NoError(t, svc.ChangePassword(context.Background(), 1, "current password", "next password"))
	assert.Contains(t, repo.updatedPasswords, int64(1))
}
