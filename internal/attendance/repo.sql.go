package attendance

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound indicates the record does not exist in the caller's school.
var ErrNotFound = errors.New("attendance: not found")

const recordColumns = `id, school_id, class_id, student_id, date, status, note, recorded_by, created_at, updated_at`

// RepositoryPort defines school scoped data access for attendance registers.
type RepositoryPort interface {
	UpsertRecord(ctx context.Context, rec Record) (int64, error)
	GetRecord(ctx context.Context, schoolID, id int64) (*Record, error)
	RecordsByClassDate(ctx context.Context, schoolID, classID int64, date time.Time) ([]Record, error)
	RecordsByStudent(ctx context.Context, schoolID, studentID int64, from, to time.Time) ([]Record, error)
	RecordsByAccount(ctx context.Context, schoolID, accountID int64, from, to time.Time) ([]Record, error)
}

// Repository provides PostgreSQL backed persistence for attendance.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// UpsertRecord inserts or rewrites one mark, keyed on
// (class_id, student_id, date). Re-marking a register overwrites in place.
func (r *Repository) UpsertRecord(ctx context.Context, rec Record) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx,
		`INSERT INTO attendance_records (school_id, class_id, student_id, date, status, note, recorded_by, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
		 ON CONFLICT (class_id, student_id, date)
		 DO UPDATE SET status = EXCLUDED.status, note = EXCLUDED.note, recorded_by = EXCLUDED.recorded_by, updated_at = NOW()
		 RETURNING id`,
		rec.SchoolID, rec.ClassID, rec.StudentID, rec.Date, rec.Status, rec.Note, rec.RecordedBy,
	).Scan(&id)
	return id, err
}

// GetRecord fetches one mark of the given school.
func (r *Repository) GetRecord(ctx context.Context, schoolID, id int64) (*Record, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+recordColumns+` FROM attendance_records WHERE school_id = $1 AND id = $2`, schoolID, id)
	return scanRecord(row)
}

// RecordsByClassDate lists a class register for one day.
func (r *Repository) RecordsByClassDate(ctx context.Context, schoolID, classID int64, date time.Time) ([]Record, error) {
	return r.query(ctx,
		`SELECT `+recordColumns+` FROM attendance_records
		 WHERE school_id = $1 AND class_id = $2 AND date = $3 ORDER BY student_id`,
		schoolID, classID, date)
}

// RecordsByStudent lists one student's marks in a date range.
func (r *Repository) RecordsByStudent(ctx context.Context, schoolID, studentID int64, from, to time.Time) ([]Record, error) {
	return r.query(ctx,
		`SELECT `+recordColumns+` FROM attendance_records
		 WHERE school_id = $1 AND student_id = $2 AND date BETWEEN $3 AND $4 ORDER BY date`,
		schoolID, studentID, from, to)
}

// RecordsByAccount lists the marks of the student linked to a learner login
// account.
func (r *Repository) RecordsByAccount(ctx context.Context, schoolID, accountID int64, from, to time.Time) ([]Record, error) {
	return r.query(ctx,
		`SELECT a.id, a.school_id, a.class_id, a.student_id, a.date, a.status, a.note, a.recorded_by, a.created_at, a.updated_at
		 FROM attendance_records a
		 JOIN students s ON s.id = a.student_id
		 WHERE a.school_id = $1 AND s.account_id = $2 AND a.date BETWEEN $3 AND $4 ORDER BY a.date`,
		schoolID, accountID, from, to)
}

func (r *Repository) query(ctx context.Context, sql string, args ...any) ([]Record, error) {
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var records []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}
	return records, rows.Err()
}

func scanRecord(row pgx.Row) (*Record, error) {
	var rec Record
	err := row.Scan(&rec.ID, &rec.SchoolID, &rec.ClassID, &rec.StudentID, &rec.Date,
		&rec.Status, &rec.Note, &rec.RecordedBy, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &rec, nil
}

var _ RepositoryPort = (*Repository)(nil)
