package auth

import (
	"time"

	"github.com/classpoint/classpoint/internal/rbac"
)

// Account is the persisted identity record behind every principal.
//
// Invariant: RoleSuperAdmin implies SchoolID is nil; every other role carries
// a school once activated. PasswordHash is nil for externally-authenticated
// accounts, which can never log in with a password.
type Account struct {
	ID                 int64
	Name               string
	Email              string
	PasswordHash       *string
	Role               rbac.Role
	SchoolID           *int64
	IsActive           bool
	MustChangePassword bool
	ProfileComplete    bool
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// Principal derives the per-request identity context from the account row.
func (a Account) Principal() rbac.Principal {
	return rbac.Principal{
		UserID:             a.ID,
		Name:               a.Name,
		Email:              a.Email,
		Role:               a.Role,
		SchoolID:           a.SchoolID,
		IsActive:           a.IsActive,
		MustChangePassword: a.MustChangePassword,
	}
}

// PasswordResetToken is a single-use credential for the reset flow. At most
// one live token exists per user; issuing a new one destroys its predecessor.
type PasswordResetToken struct {
	Token     string
	UserID    int64
	ExpiresAt time.Time
}
