package admins

import (
	"context"
	"errors"

	"github.com/classpoint/classpoint/internal/rbac"
)

var (
	// ErrNotFound indicates the admin does not exist in the caller's school.
	ErrNotFound = errors.New("admins: not found")
	// ErrAlreadyExists indicates an email collision.
	ErrAlreadyExists = errors.New("admins: already exists")
	// ErrPrimaryImmutable indicates an attempt to edit a primary grant.
	ErrPrimaryImmutable = errors.New("admins: primary grant is immutable")
	// ErrSelfTarget indicates an admin targeting its own account.
	ErrSelfTarget = errors.New("admins: cannot target own account")
	// ErrUnknownCapability indicates an unrecognized capability name.
	ErrUnknownCapability = errors.New("admins: unknown capability")
)

// NewAccount carries the fields persisted when provisioning a secondary admin.
type NewAccount struct {
	Name               string
	Email              string
	PasswordHash       string
	MustChangePassword bool
}

// TxRepository couples the account insert with its grant so a secondary admin
// never exists without one.
type TxRepository interface {
	CreateAccount(ctx context.Context, schoolID int64, acc NewAccount) (int64, error)
	InsertGrant(ctx context.Context, g rbac.Grant) error
}

// RepositoryPort defines data access methods for school admins. Every read is
// keyed by school id so records of other tenants resolve to ErrNotFound.
type RepositoryPort interface {
	GetAdmin(ctx context.Context, schoolID, userID int64) (*Admin, error)
	ListAdmins(ctx context.Context, schoolID int64, limit, offset int) ([]Admin, int, error)
	UpdateGrant(ctx context.Context, g rbac.Grant) error
	SetActive(ctx context.Context, schoolID, userID int64, active bool) error
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}
