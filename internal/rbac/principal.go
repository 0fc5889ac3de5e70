// Package rbac implements the authorization engine shared by every handler:
// role checks, school-admin capability resolution, tenant scoping, and the
// request gate that composes them.
package rbac

// Role enumerates account roles across the platform.
type Role string

const (
	// RoleSuperAdmin operates the platform itself and carries no school.
	RoleSuperAdmin Role = "superadmin"
	// RoleSchoolAdmin administers a single school, gated by capability grants.
	RoleSchoolAdmin Role = "school_admin"
	RoleTeacher     Role = "teacher"
	RoleStudent     Role = "student"
	RoleGuardian    Role = "guardian"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleSuperAdmin, RoleSchoolAdmin, RoleTeacher, RoleStudent, RoleGuardian:
		return true
	}
	return false
}

// TenantScoped reports whether the role belongs to a school.
func (r Role) TenantScoped() bool {
	return r != RoleSuperAdmin
}

// Principal is the authenticated identity resolved for one request. It is
// built fresh from the session on every request and never persisted; the
// IsActive and MustChangePassword flags mirror the account row as read at
// resolution time, so a deactivation applies on the very next request.
type Principal struct {
	UserID             int64
	Name               string
	Email              string
	Role               Role
	SchoolID           *int64 // nil only for RoleSuperAdmin
	IsActive           bool
	MustChangePassword bool
}

// InSchool reports whether the principal belongs to the given school.
// Superadmins belong to no school and always pass.
func (p Principal) InSchool(schoolID int64) bool {
	if p.Role == RoleSuperAdmin {
		return true
	}
	return p.SchoolID != nil && *p.SchoolID == schoolID
}
