package auth

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/classpoint/classpoint/internal/rbac"
	"github.com/classpoint/classpoint/internal/shared"
)

// Repository defines persistence operations for the auth module.
type Repository interface {
	FindByEmail(ctx context.Context, email string) (*Account, error)
	FindByID(ctx context.Context, id int64) (*Account, error)
	ReplaceResetToken(ctx context.Context, token PasswordResetToken) error
	ResetPassword(ctx context.Context, token, passwordHash string) (int64, error)
	UpdatePassword(ctx context.Context, userID int64, passwordHash string) error
	CreateSession(ctx context.Context, id string, userID int64, expiresAt time.Time, ip, ua string) error
	DeleteSession(ctx context.Context, id string) error
}

const accountColumns = `id, name, email, password_hash, role, school_id, is_active,
	must_change_password, profile_complete, created_at, updated_at`

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// FindByEmail fetches an account by email.
func (r *PGRepository) FindByEmail(ctx context.Context, email string) (*Account, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE email = $1`, email)
	return scanAccount(row)
}

// FindByID fetches an account by primary key.
func (r *PGRepository) FindByID(ctx context.Context, id int64) (*Account, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id)
	return scanAccount(row)
}

// PrincipalByID resolves a fresh principal for the request gate. Flags come
// straight from the row, never from the session payload.
func (r *PGRepository) PrincipalByID(ctx context.Context, id int64) (*rbac.Principal, error) {
	acc, err := r.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	p := acc.Principal()
	return &p, nil
}

// ReplaceResetToken atomically invalidates any prior token for the user and
// stores the new one. Two racing issuances leave either token live, never
// both.
func (r *PGRepository) ReplaceResetToken(ctx context.Context, token PasswordResetToken) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM password_reset_tokens WHERE user_id = $1`, token.UserID); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx,
		`INSERT INTO password_reset_tokens (token, user_id, expires_at) VALUES ($1, $2, $3)`,
		token.Token, token.UserID, token.ExpiresAt,
	); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// ResetPassword consumes the token exactly once and sets the new hash in the
// same transaction. Returns the affected user id, or shared.ErrNotFound when
// the token is unknown or expired.
func (r *PGRepository) ResetPassword(ctx context.Context, token, passwordHash string) (int64, error) {
	var userID int64
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	err = tx.QueryRow(ctx,
		`DELETE FROM password_reset_tokens WHERE token = $1 AND expires_at > NOW() RETURNING user_id`,
		token,
	).Scan(&userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, shared.ErrNotFound
		}
		return 0, err
	}
	if _, err := tx.Exec(ctx,
		`UPDATE accounts SET password_hash = $1, must_change_password = FALSE, updated_at = NOW() WHERE id = $2`,
		passwordHash, userID,
	); err != nil {
		return 0, err
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return userID, nil
}

// UpdatePassword sets a new hash and clears the forced-change flag.
func (r *PGRepository) UpdatePassword(ctx context.Context, userID int64, passwordHash string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE accounts SET password_hash = $1, must_change_password = FALSE, updated_at = NOW() WHERE id = $2`,
		passwordHash, userID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// CreateSession persists a login session in the database for auditing.
func (r *PGRepository) CreateSession(ctx context.Context, id string, userID int64, expiresAt time.Time, ip, ua string) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO sessions (id, user_id, created_at, expires_at, ip, ua) VALUES ($1, $2, NOW(), $3, NULLIF($4, ''), NULLIF($5, ''))`,
		id, userID, expiresAt.UTC(), ip, ua,
	)
	return err
}

// DeleteSession removes a session record from the database.
func (r *PGRepository) DeleteSession(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM sessions WHERE id = $1`, id)
	return err
}

func scanAccount(row pgx.Row) (*Account, error) {
	var acc Account
	err := row.Scan(
		&acc.ID, &acc.Name, &acc.Email, &acc.PasswordHash, &acc.Role, &acc.SchoolID,
		&acc.IsActive, &acc.MustChangePassword, &acc.ProfileComplete,
		&acc.CreatedAt, &acc.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &acc, nil
}

var _ Repository = (*PGRepository)(nil)
var _ rbac.AccountSource = (*PGRepository)(nil)
