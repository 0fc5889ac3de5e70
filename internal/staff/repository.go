package staff

import (
	"context"
	"errors"
)

var (
	// ErrNotFound indicates the member does not exist in the caller's school.
	ErrNotFound = errors.New("staff: not found")
	// ErrAlreadyExists indicates an email collision.
	ErrAlreadyExists = errors.New("staff: already exists")
)

// NewTeacherAccount carries the login account created for teaching staff.
type NewTeacherAccount struct {
	Name               string
	Email              string
	PasswordHash       string
	MustChangePassword bool
}

// TxRepository couples the staff record with its teacher account so a
// teaching member never exists without a login.
type TxRepository interface {
	CreateTeacherAccount(ctx context.Context, schoolID int64, acc NewTeacherAccount) (int64, error)
	CreateMember(ctx context.Context, m Member) (int64, error)
	SetAccountActive(ctx context.Context, schoolID, accountID int64, active bool) error
	SetMemberActive(ctx context.Context, schoolID, id int64, active bool) error
	GetMember(ctx context.Context, schoolID, id int64) (*Member, error)
}

// RepositoryPort defines data access for staff members, school scoped.
type RepositoryPort interface {
	GetMember(ctx context.Context, schoolID, id int64) (*Member, error)
	ListMembers(ctx context.Context, schoolID int64, search string, limit, offset int) ([]Member, int, error)
	UpdateMember(ctx context.Context, m Member) error
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}
