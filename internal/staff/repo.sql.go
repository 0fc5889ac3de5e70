package staff

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/classpoint/classpoint/internal/platform/db"
)

const memberColumns = `id, school_id, account_id, name, email, phone, position, is_active, created_at, updated_at`

// Repository provides PostgreSQL backed persistence for staff.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// GetMember fetches one staff member of the given school.
func (r *Repository) GetMember(ctx context.Context, schoolID, id int64) (*Member, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+memberColumns+` FROM staff WHERE school_id = $1 AND id = $2`, schoolID, id)
	return scanMember(row)
}

// ListMembers returns staff matching the search plus the unpaged total.
func (r *Repository) ListMembers(ctx context.Context, schoolID int64, search string, limit, offset int) ([]Member, int, error) {
	if limit <= 0 {
		limit = 50
	}
	pattern := "%" + search + "%"

	var total int
	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM staff WHERE school_id = $1 AND ($2 = '%%' OR name ILIKE $2 OR position ILIKE $2)`,
		schoolID, pattern,
	).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT `+memberColumns+` FROM staff
		 WHERE school_id = $1 AND ($2 = '%%' OR name ILIKE $2 OR position ILIKE $2)
		 ORDER BY name LIMIT $3 OFFSET $4`,
		schoolID, pattern, limit, offset,
	)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var members []Member
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, 0, err
		}
		members = append(members, *m)
	}
	return members, total, rows.Err()
}

// UpdateMember rewrites the mutable fields of a staff member.
func (r *Repository) UpdateMember(ctx context.Context, m Member) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE staff SET name = $1, phone = $2, position = $3, updated_at = NOW()
		 WHERE school_id = $4 AND id = $5`,
		m.Name, m.Phone, m.Position, m.SchoolID, m.ID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// WithTx wraps the callback in a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{tx: tx})
	})
}

type txRepo struct {
	tx pgx.Tx
}

func (t *txRepo) CreateTeacherAccount(ctx context.Context, schoolID int64, acc NewTeacherAccount) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx,
		`INSERT INTO accounts (name, email, password_hash, role, school_id, is_active, must_change_password, profile_complete, created_at, updated_at)
		 VALUES ($1, $2, $3, 'teacher', $4, TRUE, $5, FALSE, NOW(), NOW()) RETURNING id`,
		acc.Name, acc.Email, acc.PasswordHash, schoolID, acc.MustChangePassword,
	).Scan(&id)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return 0, ErrAlreadyExists
		}
		return 0, err
	}
	return id, nil
}

func (t *txRepo) CreateMember(ctx context.Context, m Member) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx,
		`INSERT INTO staff (school_id, account_id, name, email, phone, position, is_active, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, TRUE, NOW(), NOW()) RETURNING id`,
		m.SchoolID, m.AccountID, m.Name, m.Email, m.Phone, m.Position,
	).Scan(&id)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return 0, ErrAlreadyExists
		}
		return 0, err
	}
	return id, nil
}

func (t *txRepo) SetAccountActive(ctx context.Context, schoolID, accountID int64, active bool) error {
	tag, err := t.tx.Exec(ctx,
		`UPDATE accounts SET is_active = $1, updated_at = NOW() WHERE school_id = $2 AND id = $3`,
		active, schoolID, accountID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (t *txRepo) SetMemberActive(ctx context.Context, schoolID, id int64, active bool) error {
	tag, err := t.tx.Exec(ctx,
		`UPDATE staff SET is_active = $1, updated_at = NOW() WHERE school_id = $2 AND id = $3`,
		active, schoolID, id,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (t *txRepo) GetMember(ctx context.Context, schoolID, id int64) (*Member, error) {
	row := t.tx.QueryRow(ctx,
		`SELECT `+memberColumns+` FROM staff WHERE school_id = $1 AND id = $2`, schoolID, id)
	return scanMember(row)
}

func scanMember(row pgx.Row) (*Member, error) {
	var m Member
	err := row.Scan(
		&m.ID, &m.SchoolID, &m.AccountID, &m.Name, &m.Email, &m.Phone, &m.Position,
		&m.IsActive, &m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &m, nil
}

var _ RepositoryPort = (*Repository)(nil)
