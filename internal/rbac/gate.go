package rbac

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/classpoint/classpoint/internal/shared"
)

// AccountSource resolves a fresh principal for an account id. Implemented by
// the auth repository; flags are read from the accounts table on every call
// so lifecycle changes apply on the next request, not the next login.
type AccountSource interface {
	// PrincipalByID returns shared.ErrNotFound when the account no longer
	// exists.
	PrincipalByID(ctx context.Context, userID int64) (*Principal, error)
}

// Requirement describes what an operation demands from the caller.
type Requirement struct {
	Roles      []Role
	Capability *Capability
	// RequireTenant rejects principals without a school even when no
	// capability applies (e.g. superadmins hitting tenant-only routes).
	RequireTenant bool
	// AllowPendingPassword lets a must-change-password principal through.
	// Only the password-change, logout and whoami endpoints set it.
	AllowPendingPassword bool
}

// Gate is the single authorization entry point. It composes session
// resolution, the role/capability resolver and the forced-password-change
// interception into one pass/fail decision with a typed failure.
type Gate struct {
	accounts AccountSource
	resolver *Resolver
}

// NewGate constructs a Gate.
func NewGate(accounts AccountSource, resolver *Resolver) *Gate {
	return &Gate{accounts: accounts, resolver: resolver}
}

// Check authorizes the current request against the requirement. On success it
// returns the principal for the business layer to scope its queries with; the
// gate confirms role and capability, not which records are in scope; that is
// enforced again at data access time.
func (g *Gate) Check(ctx context.Context, req Requirement) (*Principal, error) {
	p, err := g.resolvePrincipal(ctx)
	if err != nil {
		return nil, err
	}
	if p.MustChangePassword && !req.AllowPendingPassword {
		return nil, ErrPasswordChangeRequired
	}
	if err := g.resolver.CheckCapability(ctx, p, req.Roles, req.Capability, req.RequireTenant); err != nil {
		return nil, err
	}
	return p, nil
}

func (g *Gate) resolvePrincipal(ctx context.Context) (*Principal, error) {
	sess := shared.SessionFromContext(ctx)
	if sess == nil {
		return nil, ErrUnauthenticated
	}
	raw := strings.TrimSpace(sess.User())
	if raw == "" {
		return nil, ErrUnauthenticated
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, ErrUnauthenticated
	}
	p, err := g.accounts.PrincipalByID(ctx, id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, ErrUnauthenticated
		}
		return nil, err
	}
	if !p.IsActive {
		return nil, ErrUnauthenticated
	}
	return p, nil
}
