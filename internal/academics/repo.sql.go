package academics

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/classpoint/classpoint/internal/platform/db"
)

// Repository provides PostgreSQL backed persistence for the academic catalog.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const classColumns = `id, school_id, name, grade, teacher_id, created_at, updated_at`

// GetClass fetches one class of the given school.
func (r *Repository) GetClass(ctx context.Context, schoolID, id int64) (*Class, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+classColumns+` FROM classes WHERE school_id = $1 AND id = $2`, schoolID, id)
	return scanClass(row)
}

// ListClasses lists the school's classes.
func (r *Repository) ListClasses(ctx context.Context, schoolID int64) ([]Class, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+classColumns+` FROM classes WHERE school_id = $1 ORDER BY grade, name`, schoolID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var classes []Class
	for rows.Next() {
		c, err := scanClass(rows)
		if err != nil {
			return nil, err
		}
		classes = append(classes, *c)
	}
	return classes, rows.Err()
}

// CreateClass inserts a class.
func (r *Repository) CreateClass(ctx context.Context, c Class) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx,
		`INSERT INTO classes (school_id, name, grade, teacher_id, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, NOW(), NOW()) RETURNING id`,
		c.SchoolID, c.Name, c.Grade, c.TeacherID,
	).Scan(&id)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return 0, ErrAlreadyExists
		}
		return 0, err
	}
	return id, nil
}

// UpdateClass rewrites a class.
func (r *Repository) UpdateClass(ctx context.Context, c Class) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE classes SET name = $1, grade = $2, teacher_id = $3, updated_at = NOW()
		 WHERE school_id = $4 AND id = $5`,
		c.Name, c.Grade, c.TeacherID, c.SchoolID, c.ID,
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

const subjectColumns = `id, school_id, name, code, created_at, updated_at`

// GetSubject fetches one subject of the given school.
func (r *Repository) GetSubject(ctx context.Context, schoolID, id int64) (*Subject, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+subjectColumns+` FROM subjects WHERE school_id = $1 AND id = $2`, schoolID, id)
	return scanSubject(row)
}

// ListSubjects lists the school's subjects.
func (r *Repository) ListSubjects(ctx context.Context, schoolID int64) ([]Subject, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+subjectColumns+` FROM subjects WHERE school_id = $1 ORDER BY name`, schoolID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var subjects []Subject
	for rows.Next() {
		s, err := scanSubject(rows)
		if err != nil {
			return nil, err
		}
		subjects = append(subjects, *s)
	}
	return subjects, rows.Err()
}

// CreateSubject inserts a subject.
func (r *Repository) CreateSubject(ctx context.Context, s Subject) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx,
		`INSERT INTO subjects (school_id, name, code, created_at, updated_at)
		 VALUES ($1, $2, $3, NOW(), NOW()) RETURNING id`,
		s.SchoolID, s.Name, s.Code,
	).Scan(&id)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return 0, ErrAlreadyExists
		}
		return 0, err
	}
	return id, nil
}

// UpdateSubject rewrites a subject.
func (r *Repository) UpdateSubject(ctx context.Context, s Subject) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE subjects SET name = $1, code = $2, updated_at = NOW() WHERE school_id = $3 AND id = $4`,
		s.Name, s.Code, s.SchoolID, s.ID,
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

// DeleteSubject removes a subject unless a course references it.
func (r *Repository) DeleteSubject(ctx context.Context, schoolID, id int64) error {
	var count int
	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM courses WHERE school_id = $1 AND subject_id = $2`, schoolID, id,
	).Scan(&count); err != nil {
		return err
	}
	if count > 0 {
		return ErrInUse
	}
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM subjects WHERE school_id = $1 AND id = $2`, schoolID, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

const courseColumns = `id, school_id, subject_id, class_id, teacher_id, name, created_at, updated_at`

// GetCourse fetches one course of the given school.
func (r *Repository) GetCourse(ctx context.Context, schoolID, id int64) (*Course, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+courseColumns+` FROM courses WHERE school_id = $1 AND id = $2`, schoolID, id)
	return scanCourse(row)
}

// ListCourses lists the school's courses, optionally for one class.
func (r *Repository) ListCourses(ctx context.Context, schoolID int64, classID *int64) ([]Course, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+courseColumns+` FROM courses
		 WHERE school_id = $1 AND ($2::bigint IS NULL OR class_id = $2) ORDER BY name`,
		schoolID, classID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var courses []Course
	for rows.Next() {
		c, err := scanCourse(rows)
		if err != nil {
			return nil, err
		}
		courses = append(courses, *c)
	}
	return courses, rows.Err()
}

// CreateCourse inserts a course.
func (r *Repository) CreateCourse(ctx context.Context, c Course) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx,
		`INSERT INTO courses (school_id, subject_id, class_id, teacher_id, name, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, NOW(), NOW()) RETURNING id`,
		c.SchoolID, c.SubjectID, c.ClassID, c.TeacherID, c.Name,
	).Scan(&id)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return 0, ErrAlreadyExists
		}
		return 0, err
	}
	return id, nil
}

// UpdateCourse rewrites a course.
func (r *Repository) UpdateCourse(ctx context.Context, c Course) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE courses SET subject_id = $1, class_id = $2, teacher_id = $3, name = $4, updated_at = NOW()
		 WHERE school_id = $5 AND id = $6`,
		c.SubjectID, c.ClassID, c.TeacherID, c.Name, c.SchoolID, c.ID,
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

const lessonColumns = `l.id, l.school_id, l.course_id, l.weekday, l.starts_at, l.ends_at, l.room, l.created_at`

// GetLesson fetches one lesson of the given school.
func (r *Repository) GetLesson(ctx context.Context, schoolID, id int64) (*Lesson, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+lessonColumns+` FROM lessons l WHERE l.school_id = $1 AND l.id = $2`, schoolID, id)
	return scanLesson(row)
}

// ListLessons lists the school's weekly schedule, optionally for one class.
func (r *Repository) ListLessons(ctx context.Context, schoolID int64, classID *int64) ([]Lesson, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+lessonColumns+` FROM lessons l
		 JOIN courses c ON c.id = l.course_id
		 WHERE l.school_id = $1 AND ($2::bigint IS NULL OR c.class_id = $2)
		 ORDER BY l.weekday, l.starts_at`,
		schoolID, classID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var lessons []Lesson
	for rows.Next() {
		l, err := scanLesson(rows)
		if err != nil {
			return nil, err
		}
		lessons = append(lessons, *l)
	}
	return lessons, rows.Err()
}

// CreateLesson inserts a lesson slot.
func (r *Repository) CreateLesson(ctx context.Context, l Lesson) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx,
		`INSERT INTO lessons (school_id, course_id, weekday, starts_at, ends_at, room, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, NOW()) RETURNING id`,
		l.SchoolID, l.CourseID, l.Weekday, l.StartsAt, l.EndsAt, l.Room,
	).Scan(&id)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return 0, ErrAlreadyExists
		}
		return 0, err
	}
	return id, nil
}

// DeleteLesson removes a lesson slot.
func (r *Repository) DeleteLesson(ctx context.Context, schoolID, id int64) error {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM lessons WHERE school_id = $1 AND id = $2`, schoolID, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanClass(row pgx.Row) (*Class, error) {
	var c Class
	err := row.Scan(&c.ID, &c.SchoolID, &c.Name, &c.Grade, &c.TeacherID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

func scanSubject(row pgx.Row) (*Subject, error) {
	var s Subject
	err := row.Scan(&s.ID, &s.SchoolID, &s.Name, &s.Code, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &s, nil
}

func scanCourse(row pgx.Row) (*Course, error) {
	var c Course
	err := row.Scan(&c.ID, &c.SchoolID, &c.SubjectID, &c.ClassID, &c.TeacherID, &c.Name, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

func scanLesson(row pgx.Row) (*Lesson, error) {
	var l Lesson
	err := row.Scan(&l.ID, &l.SchoolID, &l.CourseID, &l.Weekday, &l.StartsAt, &l.EndsAt, &l.Room, &l.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &l, nil
}

var _ RepositoryPort = (*Repository)(nil)
