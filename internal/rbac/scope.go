package rbac

// AssertSameTenant enforces that the principal may touch a record owned by
// the given school. Superadmins pass unconditionally; everyone else needs an
// exact school match. A failure must be treated by callers exactly like a
// missing record. Repositories bake `school_id = $n` into their queries, and
// this guard covers the paths where a record arrives unscoped.
func AssertSameTenant(p *Principal, schoolID int64) error {
	if p == nil {
		return ErrUnauthenticated
	}
	if p.InSchool(schoolID) {
		return nil
	}
	return ErrCrossTenant
}

// SchoolID returns the scoping id for subsequent queries. Call only after a
// successful gate check; superadmins have no school and get ErrMissingTenant.
func SchoolID(p *Principal) (int64, error) {
	if p == nil {
		return 0, ErrUnauthenticated
	}
	if p.SchoolID == nil {
		return 0, ErrMissingTenant
	}
	return *p.SchoolID, nil
}
