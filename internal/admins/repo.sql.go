package admins

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/classpoint/classpoint/internal/platform/db"
	"github.com/classpoint/classpoint/internal/rbac"
)

const adminColumns = `a.id, a.school_id, a.name, a.email, a.is_active, a.created_at,
	g.user_id, g.school_id, g.level, g.applications, g.staff_management, g.student_management,
	g.guardian_management, g.class_management, g.course_management, g.subject_management,
	g.schedule_management, g.exam_management, g.result_management, g.attendance_management,
	g.messaging, g.announcements, g.admin_management, g.created_at, g.updated_at`

// Repository provides PostgreSQL backed persistence for school admins.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// GetAdmin fetches one admin of the given school.
func (r *Repository) GetAdmin(ctx context.Context, schoolID, userID int64) (*Admin, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+adminColumns+` FROM accounts a
		 JOIN admin_grants g ON g.user_id = a.id
		 WHERE a.school_id = $1 AND a.id = $2 AND a.role = 'school_admin'`,
		schoolID, userID,
	)
	return scanAdmin(row)
}

// ListAdmins returns the school's admins plus the unpaged total.
func (r *Repository) ListAdmins(ctx context.Context, schoolID int64, limit, offset int) ([]Admin, int, error) {
	if limit <= 0 {
		limit = 50
	}
	var total int
	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM accounts WHERE school_id = $1 AND role = 'school_admin'`,
		schoolID,
	).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT `+adminColumns+` FROM accounts a
		 JOIN admin_grants g ON g.user_id = a.id
		 WHERE a.school_id = $1 AND a.role = 'school_admin'
		 ORDER BY a.created_at LIMIT $2 OFFSET $3`,
		schoolID, limit, offset,
	)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var admins []Admin
	for rows.Next() {
		a, err := scanAdmin(rows)
		if err != nil {
			return nil, 0, err
		}
		admins = append(admins, *a)
	}
	return admins, total, rows.Err()
}

// UpdateGrant rewrites the capability booleans of a secondary grant. The
// level predicate keeps primary grants out of reach of this statement.
func (r *Repository) UpdateGrant(ctx context.Context, g rbac.Grant) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE admin_grants SET
		   applications = $1, staff_management = $2, student_management = $3,
		   guardian_management = $4, class_management = $5, course_management = $6,
		   subject_management = $7, schedule_management = $8, exam_management = $9,
		   result_management = $10, attendance_management = $11, messaging = $12,
		   announcements = $13, admin_management = $14, updated_at = NOW()
		 WHERE user_id = $15 AND school_id = $16 AND level = 'secondary'`,
		g.Applications, g.Staff, g.Students, g.Guardians, g.Classes, g.Courses,
		g.Subjects, g.Schedule, g.Exams, g.Results, g.Attendance, g.Messaging,
		g.Announcements, g.Admins, g.UserID, g.SchoolID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SetActive toggles an admin account within the school.
func (r *Repository) SetActive(ctx context.Context, schoolID, userID int64, active bool) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE accounts SET is_active = $1, updated_at = NOW()
		 WHERE school_id = $2 AND id = $3 AND role = 'school_admin'`,
		active, schoolID, userID,
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

func (t *txRepo) CreateAccount(ctx context.Context, schoolID int64, acc NewAccount) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx,
		`INSERT INTO accounts (name, email, password_hash, role, school_id, is_active, must_change_password, profile_complete, created_at, updated_at)
		 VALUES ($1, $2, $3, 'school_admin', $4, TRUE, $5, FALSE, NOW(), NOW()) RETURNING id`,
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

func (t *txRepo) InsertGrant(ctx context.Context, g rbac.Grant) error {
	_, err := t.tx.Exec(ctx,
		`INSERT INTO admin_grants (user_id, school_id, level, applications, staff_management, student_management,
		   guardian_management, class_management, course_management, subject_management, schedule_management,
		   exam_management, result_management, attendance_management, messaging, announcements, admin_management,
		   created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, NOW(), NOW())`,
		g.UserID, g.SchoolID, g.Level, g.Applications, g.Staff, g.Students, g.Guardians,
		g.Classes, g.Courses, g.Subjects, g.Schedule, g.Exams, g.Results, g.Attendance,
		g.Messaging, g.Announcements, g.Admins,
	)
	return err
}

func scanAdmin(row pgx.Row) (*Admin, error) {
	var a Admin
	var g rbac.Grant
	err := row.Scan(
		&a.UserID, &a.SchoolID, &a.Name, &a.Email, &a.IsActive, &a.CreatedAt,
		&g.UserID, &g.SchoolID, &g.Level,
		&g.Applications, &g.Staff, &g.Students, &g.Guardians,
		&g.Classes, &g.Courses, &g.Subjects, &g.Schedule,
		&g.Exams, &g.Results, &g.Attendance,
		&g.Messaging, &g.Announcements, &g.Admins,
		&g.CreatedAt, &g.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	a.Level = g.Level
	a.Grants = GrantedCapabilities(g)
	return &a, nil
}

var _ RepositoryPort = (*Repository)(nil)
