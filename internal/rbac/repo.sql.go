package rbac

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/classpoint/classpoint/internal/shared"
)

const grantColumns = `user_id, school_id, level, applications, staff_management, student_management,
	guardian_management, class_management, course_management, subject_management, schedule_management,
	exam_management, result_management, attendance_management, messaging, announcements, admin_management,
	created_at, updated_at`

// Repository provides PostgreSQL backed reads of admin capability grants.
// Grant mutations live with the modules that own them (school activation,
// admin management) so they can share a transaction with account writes.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// GrantByUser returns the capability grant for an admin account.
func (r *Repository) GrantByUser(ctx context.Context, userID int64) (*Grant, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+grantColumns+` FROM admin_grants WHERE user_id = $1`, userID)
	return scanGrant(row)
}

// GrantsBySchool lists all grants of one school ordered by creation.
func (r *Repository) GrantsBySchool(ctx context.Context, schoolID int64) ([]Grant, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+grantColumns+` FROM admin_grants WHERE school_id = $1 ORDER BY created_at`, schoolID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var grants []Grant
	for rows.Next() {
		g, err := scanGrant(rows)
		if err != nil {
			return nil, err
		}
		grants = append(grants, *g)
	}
	return grants, rows.Err()
}

func scanGrant(row pgx.Row) (*Grant, error) {
	var g Grant
	err := row.Scan(
		&g.UserID, &g.SchoolID, &g.Level,
		&g.Applications, &g.Staff, &g.Students, &g.Guardians,
		&g.Classes, &g.Courses, &g.Subjects, &g.Schedule,
		&g.Exams, &g.Results, &g.Attendance,
		&g.Messaging, &g.Announcements, &g.Admins,
		&g.CreatedAt, &g.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &g, nil
}
