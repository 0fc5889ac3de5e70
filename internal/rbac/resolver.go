package rbac

import (
	"context"
	"errors"

	"github.com/classpoint/classpoint/internal/shared"
)

// GrantSource loads capability grants for school admins.
type GrantSource interface {
	// GrantByUser returns the grant for the given admin account, or
	// shared.ErrNotFound when none exists.
	GrantByUser(ctx context.Context, userID int64) (*Grant, error)
}

// Resolver answers "may this principal perform an operation requiring these
// roles and, for school admins, this capability".
type Resolver struct {
	grants GrantSource
}

// NewResolver constructs a Resolver.
func NewResolver(grants GrantSource) *Resolver {
	return &Resolver{grants: grants}
}

// CheckCapability runs the layered permission algorithm:
//
//  1. a nil principal is unauthenticated;
//  2. the role must be in the allowed set;
//  3. tenant-scoped operations need a school id;
//  4. non-admin roles pass on the role check alone, they carry no
//     sub-capabilities;
//  5. capability-agnostic admin operations (capability == nil) pass;
//  6. a primary grant bypasses the booleans entirely;
//  7. a secondary grant passes iff the named boolean is set;
//  8. no grant record at all fails closed.
func (r *Resolver) CheckCapability(ctx context.Context, p *Principal, roles []Role, capability *Capability, requireTenant bool) error {
	if p == nil {
		return ErrUnauthenticated
	}
	if !roleAllowed(p.Role, roles) {
		return ErrWrongRole
	}
	if requireTenant && p.SchoolID == nil {
		return ErrMissingTenant
	}
	if p.Role != RoleSchoolAdmin {
		return nil
	}
	if capability == nil {
		return nil
	}
	grant, err := r.grants.GrantByUser(ctx, p.UserID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return ErrNoCapability
		}
		return err
	}
	if grant.Level == GrantPrimary {
		return nil
	}
	if grant.Allows(*capability) {
		return nil
	}
	return ErrNoCapability
}

func roleAllowed(role Role, allowed []Role) bool {
	for _, r := range allowed {
		if r == role {
			return true
		}
	}
	return false
}
