package schools

import (
	"context"
	"errors"
)

var (
	// ErrNotFound indicates the school does not exist.
	ErrNotFound = errors.New("schools: not found")
	// ErrInvalidStatus indicates a transition attempted from the wrong state.
	ErrInvalidStatus = errors.New("schools: invalid status transition")
	// ErrAlreadyExists indicates a slug or contact email collision.
	ErrAlreadyExists = errors.New("schools: already exists")
)

// ListFilter narrows school listings.
type ListFilter struct {
	Status *Status
	Search string
	Limit  int
	Offset int
}

// TxRepository exposes the mutations that must share one transaction.
// Suspend couples the status flip with the member cascade; activate couples
// it with admin provisioning and the primary grant. A failure anywhere rolls
// the whole unit back.
type TxRepository interface {
	UpdateStatus(ctx context.Context, schoolID int64, status Status, rejectReason *string) error
	DeactivateMembers(ctx context.Context, schoolID int64) (int64, error)
	FindAdminAccount(ctx context.Context, schoolID int64) (*AdminAccount, error)
	CreateAdminAccount(ctx context.Context, schoolID int64, acc AdminAccount) (int64, error)
	ActivateAccount(ctx context.Context, accountID int64) error
	EnsurePrimaryGrant(ctx context.Context, userID, schoolID int64) error
}

// RepositoryPort defines data access methods for schools.
type RepositoryPort interface {
	GetSchool(ctx context.Context, id int64) (*School, error)
	GetSchoolBySlug(ctx context.Context, slug string) (*School, error)
	ListSchools(ctx context.Context, filter ListFilter) ([]School, int, error)
	CreateSchool(ctx context.Context, school School) (int64, error)
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}
