package rbac

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAssertSameTenant(t *testing.T) {
	require.ErrorIs(t, AssertSameTenant(nil, 1), ErrUnauthenticated)

	super := &Principal{UserID: 1, Role: RoleSuperAdmin, IsActive: true}
	require.NoError(t, AssertSameTenant(super, 42))

	admin := &Principal{UserID: 2, Role: RoleSchoolAdmin, SchoolID: schoolPtr(1), IsActive: true}
	require.NoError(t, AssertSameTenant(admin, 1))
	require.ErrorIs(t, AssertSameTenant(admin, 2), ErrCrossTenant)
}

func TestSchoolID(t *testing.T) {
	_, err := SchoolID(nil)
	require.ErrorIs(t, err, ErrUnauthenticated)

	_, err = SchoolID(&Principal{UserID: 1, Role: RoleSuperAdmin})
	require.ErrorIs(t, err, ErrMissingTenant)

	id, err := SchoolID(&Principal{UserID: 2, Role: RoleTeacher, SchoolID: schoolPtr(9)})
	require.NoError(t, err)
	require.Equal(t, int64(9), id)
}
