package rbac

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/classpoint/classpoint/internal/shared"
)

type mockAccounts struct {
	principals map[int64]*Principal
}

func (m *mockAccounts) PrincipalByID(ctx context.Context, userID int64) (*Principal, error) {
	p, ok := m.principals[userID]
	if !ok {
		return nil, shared.ErrNotFound
	}
	clone := *p
	return &clone, nil
}

func sessionContext(userID string) context.Context {
	sess := &shared.Session{}
	sess.SetUser(userID)
	return shared.ContextWithSession(context.Background(), sess)
}

func newTestGate(principals ...*Principal) *Gate {
	accounts := &mockAccounts{principals: make(map[int64]*Principal)}
	for _, p := range principals {
		accounts.principals[p.UserID] = p
	}
	return NewGate(accounts, NewResolver(&mockGrants{grants: map[int64]*Grant{}}))
}

func TestGateRejectsMissingSession(t *testing.T) {
	g := newTestGate()

	_, err := g.Check(context.Background(), Requirement{Roles: []Role{RoleSuperAdmin}})
	require.ErrorIs(t, err, ErrUnauthenticated)

	_, err = g.Check(shared.ContextWithSession(context.Background(), &shared.Session{}), Requirement{Roles: []Role{RoleSuperAdmin}})
	require.ErrorIs(t, err, ErrUnauthenticated)
}

func TestGateRejectsMalformedSessionUser(t *testing.T) {
	g := newTestGate()

	_, err := g.Check(sessionContext("not-a-number"), Requirement{Roles: []Role{RoleSuperAdmin}})
	require.ErrorIs(t, err, ErrUnauthenticated)
}

func TestGateRejectsUnknownAccount(t *testing.T) {
	g := newTestGate()

	_, err := g.Check(sessionContext("404"), Requirement{Roles: []Role{RoleSuperAdmin}})
	require.ErrorIs(t, err, ErrUnauthenticated)
}

func TestGateRejectsDeactivatedAccount(t *testing.T) {
	// The flag is re-read per request; a live session does not save a
	// deactivated account.
	g := newTestGate(&Principal{UserID: 5, Role: RoleTeacher, SchoolID: schoolPtr(1), IsActive: false})

	_, err := g.Check(sessionContext("5"), Requirement{Roles: []Role{RoleTeacher}, RequireTenant: true})
	require.ErrorIs(t, err, ErrUnauthenticated)
}

func TestGateInterceptsForcedPasswordChange(t *testing.T) {
	g := newTestGate(&Principal{UserID: 6, Role: RoleTeacher, SchoolID: schoolPtr(1), IsActive: true, MustChangePassword: true})
	req := Requirement{Roles: []Role{RoleTeacher}, RequireTenant: true}

	_, err := g.Check(sessionContext("6"), req)
	require.ErrorIs(t, err, ErrPasswordChangeRequired)

	req.AllowPendingPassword = true
	p, err := g.Check(sessionContext("6"), req)
	require.NoError(t, err)
	require.Equal(t, int64(6), p.UserID)
}

func TestGateReturnsPrincipalOnSuccess(t *testing.T) {
	g := newTestGate(&Principal{UserID: 7, Role: RoleSuperAdmin, IsActive: true})

	p, err := g.Check(sessionContext("7"), Requirement{Roles: []Role{RoleSuperAdmin}})
	require.NoError(t, err)
	require.Equal(t, RoleSuperAdmin, p.Role)
	require.Nil(t, p.SchoolID)
}
