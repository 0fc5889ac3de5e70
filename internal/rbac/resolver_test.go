package rbac

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/classpoint/classpoint/internal/platform/httpx"
	"github.com/classpoint/classpoint/internal/shared"
)

type mockGrants struct {
	grants map[int64]*Grant
	err    error
}

func (m *mockGrants) GrantByUser(ctx context.Context, userID int64) (*Grant, error) {
	if m.err != nil {
		return nil, m.err
	}
	g, ok := m.grants[userID]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return g, nil
}

func schoolPtr(id int64) *int64 {
	return &id
}

func adminPrincipal(userID int64) *Principal {
	return &Principal{
		UserID:   userID,
		Role:     RoleSchoolAdmin,
		SchoolID: schoolPtr(1),
		IsActive: true,
	}
}

func capPtr(c Capability) *Capability {
	return &c
}

func TestResolverPrimaryBypassesCapabilities(t *testing.T) {
	grants := &mockGrants{grants: map[int64]*Grant{
		10: {UserID: 10, SchoolID: 1, Level: GrantPrimary},
	}}
	r := NewResolver(grants)

	// A primary admin passes every capability without a boolean set.
	for _, c := range Capabilities() {
		err := r.CheckCapability(context.Background(), adminPrincipal(10), []Role{RoleSchoolAdmin}, capPtr(c), true)
		assert.NoError(t, err, "capability %s", c)
	}
}

func TestResolverSecondaryNeedsExplicitGrant(t *testing.T) {
	grants := &mockGrants{grants: map[int64]*Grant{
		11: {UserID: 11, SchoolID: 1, Level: GrantSecondary, Students: true},
	}}
	r := NewResolver(grants)

	err := r.CheckCapability(context.Background(), adminPrincipal(11), []Role{RoleSchoolAdmin}, capPtr(CapStudents), true)
	require.NoError(t, err)

	err = r.CheckCapability(context.Background(), adminPrincipal(11), []Role{RoleSchoolAdmin}, capPtr(CapStaff), true)
	require.ErrorIs(t, err, ErrNoCapability)
}

func TestResolverFailsClosedWithoutGrantRecord(t *testing.T) {
	r := NewResolver(&mockGrants{grants: map[int64]*Grant{}})

	err := r.CheckCapability(context.Background(), adminPrincipal(12), []Role{RoleSchoolAdmin}, capPtr(CapExams), true)
	require.ErrorIs(t, err, ErrNoCapability)
}

func TestResolverGrantLookupErrorPropagates(t *testing.T) {
	boom := errors.New("grant store down")
	r := NewResolver(&mockGrants{err: boom})

	err := r.CheckCapability(context.Background(), adminPrincipal(13), []Role{RoleSchoolAdmin}, capPtr(CapExams), true)
	require.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, ErrNoCapability)
}

func TestResolverWrongRole(t *testing.T) {
	r := NewResolver(&mockGrants{})
	p := &Principal{UserID: 20, Role: RoleStudent, SchoolID: schoolPtr(1), IsActive: true}

	err := r.CheckCapability(context.Background(), p, []Role{RoleSchoolAdmin, RoleTeacher}, capPtr(CapStudents), true)
	require.ErrorIs(t, err, ErrWrongRole)
}

func TestResolverMissingTenant(t *testing.T) {
	r := NewResolver(&mockGrants{})
	p := &Principal{UserID: 21, Role: RoleSuperAdmin, IsActive: true}

	err := r.CheckCapability(context.Background(), p, []Role{RoleSuperAdmin}, nil, true)
	require.ErrorIs(t, err, ErrMissingTenant)
}

func TestResolverNonAdminRolesSkipGrantLookup(t *testing.T) {
	// A teacher in the allowed set passes on the role alone even when a
	// capability is required; grants only exist for school admins.
	boom := errors.New("must not be called")
	r := NewResolver(&mockGrants{err: boom})
	p := &Principal{UserID: 22, Role: RoleTeacher, SchoolID: schoolPtr(1), IsActive: true}

	err := r.CheckCapability(context.Background(), p, []Role{RoleSchoolAdmin, RoleTeacher}, capPtr(CapAttendance), true)
	require.NoError(t, err)
}

func TestResolverNilPrincipal(t *testing.T) {
	r := NewResolver(&mockGrants{})
	err := r.CheckCapability(context.Background(), nil, []Role{RoleSchoolAdmin}, nil, false)
	require.ErrorIs(t, err, ErrUnauthenticated)
}

func TestBoundaryErrorCollapsesForbiddenFamily(t *testing.T) {
	for _, err := range []error{ErrWrongRole, ErrMissingTenant, ErrNoCapability, ErrPasswordChangeRequired} {
		assert.ErrorIs(t, BoundaryError(err), httpx.ErrForbidden, "%v", err)
	}
	assert.ErrorIs(t, BoundaryError(ErrUnauthenticated), httpx.ErrUnauthorized)
	assert.ErrorIs(t, BoundaryError(ErrCrossTenant), httpx.ErrNotFound)

	// Unknown errors fall through unchanged.
	boom := errors.New("boom")
	assert.Equal(t, boom, BoundaryError(boom))
	assert.NoError(t, BoundaryError(nil))
}
