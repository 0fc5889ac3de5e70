package students

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/classpoint/classpoint/internal/platform/db"
)

const studentColumns = `id, school_id, account_id, guardian_id, class_id, name, email, admission_no,
	date_of_birth, gender, address, is_active, created_at, updated_at`

const guardianColumns = `id, school_id, account_id, name, email, phone, occupation, created_at, updated_at`

// Repository provides PostgreSQL backed persistence for learners and guardians.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// GetStudent fetches one student of the given school.
func (r *Repository) GetStudent(ctx context.Context, schoolID, id int64) (*Student, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+studentColumns+` FROM students WHERE school_id = $1 AND id = $2`, schoolID, id)
	return scanStudent(row)
}

// GetStudentByAccount fetches the student linked to a login account.
func (r *Repository) GetStudentByAccount(ctx context.Context, schoolID, accountID int64) (*Student, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+studentColumns+` FROM students WHERE school_id = $1 AND account_id = $2`, schoolID, accountID)
	return scanStudent(row)
}

// ListStudents returns students matching the filter plus the unpaged total.
func (r *Repository) ListStudents(ctx context.Context, schoolID int64, filter ListFilter) ([]Student, int, error) {
	if filter.Limit <= 0 {
		filter.Limit = 50
	}
	search := "%" + filter.Search + "%"

	var total int
	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM students
		 WHERE school_id = $1 AND ($2::bigint IS NULL OR class_id = $2)
		   AND ($3 = '%%' OR name ILIKE $3 OR admission_no ILIKE $3)`,
		schoolID, filter.ClassID, search,
	).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT `+studentColumns+` FROM students
		 WHERE school_id = $1 AND ($2::bigint IS NULL OR class_id = $2)
		   AND ($3 = '%%' OR name ILIKE $3 OR admission_no ILIKE $3)
		 ORDER BY name LIMIT $4 OFFSET $5`,
		schoolID, filter.ClassID, search, filter.Limit, filter.Offset,
	)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var students []Student
	for rows.Next() {
		s, err := scanStudent(rows)
		if err != nil {
			return nil, 0, err
		}
		students = append(students, *s)
	}
	return students, total, rows.Err()
}

// CreateStudent inserts a student.
func (r *Repository) CreateStudent(ctx context.Context, s Student) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx,
		`INSERT INTO students (school_id, account_id, guardian_id, class_id, name, email, admission_no,
		   date_of_birth, gender, address, is_active, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, TRUE, NOW(), NOW()) RETURNING id`,
		s.SchoolID, s.AccountID, s.GuardianID, s.ClassID, s.Name, s.Email, s.AdmissionNo,
		s.DateOfBirth, s.Gender, s.Address,
	).Scan(&id)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return 0, ErrAlreadyExists
		}
		return 0, err
	}
	return id, nil
}

// UpdateStudent rewrites the mutable fields of a student.
func (r *Repository) UpdateStudent(ctx context.Context, s Student) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE students SET guardian_id = $1, class_id = $2, name = $3, email = $4,
		   date_of_birth = $5, gender = $6, address = $7, updated_at = NOW()
		 WHERE school_id = $8 AND id = $9`,
		s.GuardianID, s.ClassID, s.Name, s.Email, s.DateOfBirth, s.Gender, s.Address,
		s.SchoolID, s.ID,
	)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return ErrAlreadyExists
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SetStudentActive toggles a student record within the school.
func (r *Repository) SetStudentActive(ctx context.Context, schoolID, id int64, active bool) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE students SET is_active = $1, updated_at = NOW() WHERE school_id = $2 AND id = $3`,
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

// GetGuardian fetches one guardian of the given school.
func (r *Repository) GetGuardian(ctx context.Context, schoolID, id int64) (*Guardian, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+guardianColumns+` FROM guardians WHERE school_id = $1 AND id = $2`, schoolID, id)
	return scanGuardian(row)
}

// GetGuardianByAccount fetches the guardian linked to a login account.
func (r *Repository) GetGuardianByAccount(ctx context.Context, schoolID, accountID int64) (*Guardian, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+guardianColumns+` FROM guardians WHERE school_id = $1 AND account_id = $2`, schoolID, accountID)
	return scanGuardian(row)
}

// ListGuardians returns the school's guardians plus the unpaged total.
func (r *Repository) ListGuardians(ctx context.Context, schoolID int64, limit, offset int) ([]Guardian, int, error) {
	if limit <= 0 {
		limit = 50
	}
	var total int
	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM guardians WHERE school_id = $1`, schoolID,
	).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.pool.Query(ctx,
		`SELECT `+guardianColumns+` FROM guardians WHERE school_id = $1 ORDER BY name LIMIT $2 OFFSET $3`,
		schoolID, limit, offset,
	)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var guardians []Guardian
	for rows.Next() {
		g, err := scanGuardian(rows)
		if err != nil {
			return nil, 0, err
		}
		guardians = append(guardians, *g)
	}
	return guardians, total, rows.Err()
}

// CreateGuardian inserts a guardian.
func (r *Repository) CreateGuardian(ctx context.Context, g Guardian) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx,
		`INSERT INTO guardians (school_id, account_id, name, email, phone, occupation, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW()) RETURNING id`,
		g.SchoolID, g.AccountID, g.Name, g.Email, g.Phone, g.Occupation,
	).Scan(&id)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return 0, ErrAlreadyExists
		}
		return 0, err
	}
	return id, nil
}

// UpdateGuardian rewrites the mutable fields of a guardian.
func (r *Repository) UpdateGuardian(ctx context.Context, g Guardian) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE guardians SET name = $1, email = $2, phone = $3, occupation = $4, updated_at = NOW()
		 WHERE school_id = $5 AND id = $6`,
		g.Name, g.Email, g.Phone, g.Occupation, g.SchoolID, g.ID,
	)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return ErrAlreadyExists
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// StudentsOfGuardian lists the students linked to a guardian.
func (r *Repository) StudentsOfGuardian(ctx context.Context, schoolID, guardianID int64) ([]Student, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+studentColumns+` FROM students WHERE school_id = $1 AND guardian_id = $2 ORDER BY name`,
		schoolID, guardianID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var students []Student
	for rows.Next() {
		s, err := scanStudent(rows)
		if err != nil {
			return nil, err
		}
		students = append(students, *s)
	}
	return students, rows.Err()
}

func scanStudent(row pgx.Row) (*Student, error) {
	var s Student
	err := row.Scan(
		&s.ID, &s.SchoolID, &s.AccountID, &s.GuardianID, &s.ClassID, &s.Name, &s.Email,
		&s.AdmissionNo, &s.DateOfBirth, &s.Gender, &s.Address, &s.IsActive,
		&s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &s, nil
}

func scanGuardian(row pgx.Row) (*Guardian, error) {
	var g Guardian
	err := row.Scan(
		&g.ID, &g.SchoolID, &g.AccountID, &g.Name, &g.Email, &g.Phone, &g.Occupation,
		&g.CreatedAt, &g.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &g, nil
}

var _ RepositoryPort = (*Repository)(nil)
