package exams

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/classpoint/classpoint/internal/platform/db"
)

const examColumns = `id, school_id, name, term, starts_on, ends_on, published, created_at, updated_at`

const resultColumns = `r.id, r.school_id, r.exam_id, r.student_id, r.subject_id, r.score, r.grade, r.remark,
	r.created_at, r.updated_at`

// Repository provides PostgreSQL backed persistence for exams and results.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// GetExam fetches one exam of the given school.
func (r *Repository) GetExam(ctx context.Context, schoolID, id int64) (*Exam, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+examColumns+` FROM exams WHERE school_id = $1 AND id = $2`, schoolID, id)
	return scanExam(row)
}

// ListExams lists the school's exams, newest first.
func (r *Repository) ListExams(ctx context.Context, schoolID int64) ([]Exam, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+examColumns+` FROM exams WHERE school_id = $1 ORDER BY created_at DESC`, schoolID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var exams []Exam
	for rows.Next() {
		e, err := scanExam(rows)
		if err != nil {
			return nil, err
		}
		exams = append(exams, *e)
	}
	return exams, rows.Err()
}

// CreateExam inserts an exam.
func (r *Repository) CreateExam(ctx context.Context, e Exam) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx,
		`INSERT INTO exams (school_id, name, term, starts_on, ends_on, published, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, FALSE, NOW(), NOW()) RETURNING id`,
		e.SchoolID, e.Name, e.Term, e.StartsOn, e.EndsOn,
	).Scan(&id)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return 0, ErrAlreadyExists
		}
		return 0, err
	}
	return id, nil
}

// UpdateExam rewrites an exam.
func (r *Repository) UpdateExam(ctx context.Context, e Exam) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE exams SET name = $1, term = $2, starts_on = $3, ends_on = $4, updated_at = NOW()
		 WHERE school_id = $5 AND id = $6`,
		e.Name, e.Term, e.StartsOn, e.EndsOn, e.SchoolID, e.ID,
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

// SetPublished flips result visibility for one exam.
func (r *Repository) SetPublished(ctx context.Context, schoolID, id int64, published bool) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE exams SET published = $1, updated_at = NOW() WHERE school_id = $2 AND id = $3`,
		published, schoolID, id,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// UpsertResult inserts or rewrites a student's score for one subject of an
// exam, keyed on (exam_id, student_id, subject_id).
func (r *Repository) UpsertResult(ctx context.Context, res Result) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx,
		`INSERT INTO results (school_id, exam_id, student_id, subject_id, score, grade, remark, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
		 ON CONFLICT (exam_id, student_id, subject_id)
		 DO UPDATE SET score = EXCLUDED.score, grade = EXCLUDED.grade, remark = EXCLUDED.remark, updated_at = NOW()
		 RETURNING id`,
		res.SchoolID, res.ExamID, res.StudentID, res.SubjectID, res.Score, res.Grade, res.Remark,
	).Scan(&id)
	return id, err
}

// GetResult fetches one result row of the given school.
func (r *Repository) GetResult(ctx context.Context, schoolID, id int64) (*Result, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+resultColumns+` FROM results r WHERE r.school_id = $1 AND r.id = $2`, schoolID, id)
	return scanResult(row)
}

// ResultsByExam lists every result of one exam.
func (r *Repository) ResultsByExam(ctx context.Context, schoolID, examID int64) ([]Result, error) {
	return r.queryResults(ctx,
		`SELECT `+resultColumns+` FROM results r
		 WHERE r.school_id = $1 AND r.exam_id = $2 ORDER BY r.student_id, r.subject_id`,
		schoolID, examID)
}

// ResultsByStudent lists one student's results, optionally published only.
func (r *Repository) ResultsByStudent(ctx context.Context, schoolID, studentID int64, publishedOnly bool) ([]Result, error) {
	return r.queryResults(ctx,
		`SELECT `+resultColumns+` FROM results r
		 JOIN exams e ON e.id = r.exam_id
		 WHERE r.school_id = $1 AND r.student_id = $2 AND (NOT $3 OR e.published)
		 ORDER BY r.exam_id, r.subject_id`,
		schoolID, studentID, publishedOnly)
}

// ResultsByAccount lists published results of the student linked to a
// learner login account.
func (r *Repository) ResultsByAccount(ctx context.Context, schoolID, accountID int64) ([]Result, error) {
	return r.queryResults(ctx,
		`SELECT `+resultColumns+` FROM results r
		 JOIN exams e ON e.id = r.exam_id
		 JOIN students s ON s.id = r.student_id
		 WHERE r.school_id = $1 AND s.account_id = $2 AND e.published
		 ORDER BY r.exam_id, r.subject_id`,
		schoolID, accountID)
}

// ResultsByGuardianAccount lists published results of every student linked
// to a guardian login account.
func (r *Repository) ResultsByGuardianAccount(ctx context.Context, schoolID, accountID int64) ([]Result, error) {
	return r.queryResults(ctx,
		`SELECT `+resultColumns+` FROM results r
		 JOIN exams e ON e.id = r.exam_id
		 JOIN students s ON s.id = r.student_id
		 JOIN guardians g ON g.id = s.guardian_id
		 WHERE r.school_id = $1 AND g.account_id = $2 AND e.published
		 ORDER BY r.student_id, r.exam_id, r.subject_id`,
		schoolID, accountID)
}

func (r *Repository) queryResults(ctx context.Context, sql string, args ...any) ([]Result, error) {
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var results []Result
	for rows.Next() {
		res, err := scanResult(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, *res)
	}
	return results, rows.Err()
}

func scanExam(row pgx.Row) (*Exam, error) {
	var e Exam
	err := row.Scan(&e.ID, &e.SchoolID, &e.Name, &e.Term, &e.StartsOn, &e.EndsOn, &e.Published, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &e, nil
}

func scanResult(row pgx.Row) (*Result, error) {
	var res Result
	err := row.Scan(&res.ID, &res.SchoolID, &res.ExamID, &res.StudentID, &res.SubjectID,
		&res.Score, &res.Grade, &res.Remark, &res.CreatedAt, &res.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &res, nil
}

var _ RepositoryPort = (*Repository)(nil)
