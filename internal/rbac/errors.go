package rbac

import (
	"errors"
	"fmt"

	"github.com/classpoint/classpoint/internal/platform/httpx"
)

// Typed authorization failures. Handlers never branch on these directly; the
// middleware maps them onto the boundary sentinels below, which collapse the
// forbidden family into one indistinguishable response.
var (
	ErrUnauthenticated        = errors.New("rbac: not authenticated")
	ErrWrongRole              = errors.New("rbac: role not allowed")
	ErrMissingTenant          = errors.New("rbac: school scope required")
	ErrNoCapability           = errors.New("rbac: capability not granted")
	ErrPasswordChangeRequired = errors.New("rbac: password change required")
	// ErrCrossTenant marks a record belonging to another school. It surfaces
	// as NotFound, never Forbidden, so existence cannot be probed across
	// tenants.
	ErrCrossTenant = errors.New("rbac: record outside caller school")
)

// BoundaryError translates an authorization failure into the httpx sentinel
// the response layer understands. It wraps rather than replaces, so logs keep
// the precise reason while the client sees only the collapsed family.
func BoundaryError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrUnauthenticated):
		return fmt.Errorf("%w: %w", httpx.ErrUnauthorized, err)
	case errors.Is(err, ErrCrossTenant):
		return fmt.Errorf("%w: %w", httpx.ErrNotFound, err)
	case errors.Is(err, ErrWrongRole),
		errors.Is(err, ErrMissingTenant),
		errors.Is(err, ErrNoCapability),
		errors.Is(err, ErrPasswordChangeRequired):
		return fmt.Errorf("%w: %w", httpx.ErrForbidden, err)
	}
	return err
}
