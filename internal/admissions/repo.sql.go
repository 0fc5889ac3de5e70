package admissions

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/classpoint/classpoint/internal/platform/db"
)

const applicationColumns = `id, school_id, applicant_name, email, phone, guardian_name, date_of_birth,
	status, note, student_id, decided_by, decided_at, created_at`

// Repository provides PostgreSQL backed persistence for applications.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// CreateApplication inserts an application in the applied state.
func (r *Repository) CreateApplication(ctx context.Context, app Application) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx,
		`INSERT INTO applications (school_id, applicant_name, email, phone, guardian_name, date_of_birth, status, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, 'applied', NOW()) RETURNING id`,
		app.SchoolID, app.ApplicantName, app.Email, app.Phone, app.GuardianName, app.DateOfBirth,
	).Scan(&id)
	return id, err
}

// GetApplication fetches one application of the given school.
func (r *Repository) GetApplication(ctx context.Context, schoolID, id int64) (*Application, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+applicationColumns+` FROM applications WHERE school_id = $1 AND id = $2`, schoolID, id)
	return scanApplication(row)
}

// ListApplications returns applications matching the filter plus the unpaged
// total.
func (r *Repository) ListApplications(ctx context.Context, schoolID int64, filter ListFilter) ([]Application, int, error) {
	if filter.Limit <= 0 {
		filter.Limit = 50
	}
	var status *string
	if filter.Status != nil {
		s := string(*filter.Status)
		status = &s
	}
	var total int
	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM applications WHERE school_id = $1 AND ($2::text IS NULL OR status = $2)`,
		schoolID, status,
	).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.pool.Query(ctx,
		`SELECT `+applicationColumns+` FROM applications
		 WHERE school_id = $1 AND ($2::text IS NULL OR status = $2)
		 ORDER BY created_at DESC LIMIT $3 OFFSET $4`,
		schoolID, status, filter.Limit, filter.Offset,
	)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var apps []Application
	for rows.Next() {
		a, err := scanApplication(rows)
		if err != nil {
			return nil, 0, err
		}
		apps = append(apps, *a)
	}
	return apps, total, rows.Err()
}

// ActiveSchoolIDBySlug resolves a public application target. Only active
// schools accept applications.
func (r *Repository) ActiveSchoolIDBySlug(ctx context.Context, slug string) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx,
		`SELECT id FROM schools WHERE slug = $1 AND status = 'active'`, slug,
	).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrSchoolNotAccepting
		}
		return 0, err
	}
	return id, nil
}

// NextAdmissionNo produces the next admission number for the school, of the
// form <year>-<seq>.
func (r *Repository) NextAdmissionNo(ctx context.Context, schoolID int64) (string, error) {
	var count int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM students WHERE school_id = $1`, schoolID,
	).Scan(&count)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%d-%05d", time.Now().Year(), count+1), nil
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

// Decide stamps the decision. The status predicate keeps an already decided
// application from flipping again.
func (t *txRepo) Decide(ctx context.Context, schoolID, id int64, status Status, actorID int64, note *string, studentID *int64) error {
	tag, err := t.tx.Exec(ctx,
		`UPDATE applications SET status = $1, note = $2, student_id = $3, decided_by = $4, decided_at = NOW()
		 WHERE school_id = $5 AND id = $6 AND status = 'applied'`,
		status, note, studentID, actorID, schoolID, id,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrAlreadyDecided
	}
	return nil
}

func (t *txRepo) CreateStudentFromApplication(ctx context.Context, app Application, admissionNo string) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx,
		`INSERT INTO students (school_id, name, email, admission_no, date_of_birth, is_active, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, TRUE, NOW(), NOW()) RETURNING id`,
		app.SchoolID, app.ApplicantName, app.Email, admissionNo, app.DateOfBirth,
	).Scan(&id)
	return id, err
}

func scanApplication(row pgx.Row) (*Application, error) {
	var a Application
	err := row.Scan(
		&a.ID, &a.SchoolID, &a.ApplicantName, &a.Email, &a.Phone, &a.GuardianName, &a.DateOfBirth,
		&a.Status, &a.Note, &a.StudentID, &a.DecidedBy, &a.DecidedAt, &a.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &a, nil
}

var _ RepositoryPort = (*Repository)(nil)
