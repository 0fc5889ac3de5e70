package schools

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/classpoint/classpoint/internal/platform/db"
)

const schoolColumns = `id, name, slug, status, contact_name, contact_email, contact_phone,
	city, country, reject_reason, activated_at, created_at, updated_at`

// Repository provides PostgreSQL backed persistence for schools.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// GetSchool fetches a school by primary key.
func (r *Repository) GetSchool(ctx context.Context, id int64) (*School, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+schoolColumns+` FROM schools WHERE id = $1`, id)
	return scanSchool(row)
}

// GetSchoolBySlug fetches a school by slug.
func (r *Repository) GetSchoolBySlug(ctx context.Context, slug string) (*School, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+schoolColumns+` FROM schools WHERE slug = $1`, slug)
	return scanSchool(row)
}

// ListSchools returns schools matching the filter plus the unpaged total.
func (r *Repository) ListSchools(ctx context.Context, filter ListFilter) ([]School, int, error) {
	if filter.Limit <= 0 {
		filter.Limit = 50
	}
	search := "%" + filter.Search + "%"
	var status *string
	if filter.Status != nil {
		s := string(*filter.Status)
		status = &s
	}

	var total int
	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM schools WHERE ($1::text IS NULL OR status = $1) AND ($2 = '%%' OR name ILIKE $2 OR slug ILIKE $2)`,
		status, search,
	).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT `+schoolColumns+` FROM schools
		 WHERE ($1::text IS NULL OR status = $1) AND ($2 = '%%' OR name ILIKE $2 OR slug ILIKE $2)
		 ORDER BY created_at DESC LIMIT $3 OFFSET $4`,
		status, search, filter.Limit, filter.Offset,
	)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var schools []School
	for rows.Next() {
		s, err := scanSchool(rows)
		if err != nil {
			return nil, 0, err
		}
		schools = append(schools, *s)
	}
	return schools, total, rows.Err()
}

// CreateSchool inserts a new pending school.
func (r *Repository) CreateSchool(ctx context.Context, school School) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx,
		`INSERT INTO schools (name, slug, status, contact_name, contact_email, contact_phone, city, country, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW()) RETURNING id`,
		school.Name, school.Slug, school.Status, school.ContactName, school.ContactEmail,
		school.ContactPhone, school.City, school.Country,
	).Scan(&id)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return 0, ErrAlreadyExists
		}
		return 0, err
	}
	return id, nil
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

func (t *txRepo) UpdateStatus(ctx context.Context, schoolID int64, status Status, rejectReason *string) error {
	tag, err := t.tx.Exec(ctx,
		`UPDATE schools SET status = $1, reject_reason = $2,
		   activated_at = CASE WHEN $1 = 'active' AND activated_at IS NULL THEN NOW() ELSE activated_at END,
		   updated_at = NOW()
		 WHERE id = $3`,
		status, rejectReason, schoolID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (t *txRepo) DeactivateMembers(ctx context.Context, schoolID int64) (int64, error) {
	tag, err := t.tx.Exec(ctx,
		`UPDATE accounts SET is_active = FALSE, updated_at = NOW() WHERE school_id = $1`,
		schoolID,
	)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (t *txRepo) FindAdminAccount(ctx context.Context, schoolID int64) (*AdminAccount, error) {
	var acc AdminAccount
	err := t.tx.QueryRow(ctx,
		`SELECT id, name, email, COALESCE(password_hash, ''), is_active, must_change_password
		 FROM accounts WHERE school_id = $1 AND role = 'school_admin' ORDER BY id LIMIT 1`,
		schoolID,
	).Scan(&acc.ID, &acc.Name, &acc.Email, &acc.PasswordHash, &acc.IsActive, &acc.MustChangePassword)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &acc, nil
}

func (t *txRepo) CreateAdminAccount(ctx context.Context, schoolID int64, acc AdminAccount) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx,
		`INSERT INTO accounts (name, email, password_hash, role, school_id, is_active, must_change_password, profile_complete, created_at, updated_at)
		 VALUES ($1, $2, $3, 'school_admin', $4, $5, $6, FALSE, NOW(), NOW()) RETURNING id`,
		acc.Name, acc.Email, acc.PasswordHash, schoolID, acc.IsActive, acc.MustChangePassword,
	).Scan(&id)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return 0, ErrAlreadyExists
		}
		return 0, err
	}
	return id, nil
}

func (t *txRepo) ActivateAccount(ctx context.Context, accountID int64) error {
	tag, err := t.tx.Exec(ctx,
		`UPDATE accounts SET is_active = TRUE, updated_at = NOW() WHERE id = $1`,
		accountID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (t *txRepo) EnsurePrimaryGrant(ctx context.Context, userID, schoolID int64) error {
	_, err := t.tx.Exec(ctx,
		`INSERT INTO admin_grants (user_id, school_id, level, created_at, updated_at)
		 VALUES ($1, $2, 'primary', NOW(), NOW())
		 ON CONFLICT (user_id) DO UPDATE SET level = 'primary', updated_at = NOW()`,
		userID, schoolID,
	)
	return err
}

func scanSchool(row pgx.Row) (*School, error) {
	var s School
	err := row.Scan(
		&s.ID, &s.Name, &s.Slug, &s.Status, &s.ContactName, &s.ContactEmail, &s.ContactPhone,
		&s.City, &s.Country, &s.RejectReason, &s.ActivatedAt, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &s, nil
}

var _ RepositoryPort = (*Repository)(nil)
