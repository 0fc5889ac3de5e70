package academics

import "time"

// Class is a cohort of students taught together, e.g. "Grade 7 Blue".
type Class struct {
	ID        int64     `json:"id"`
	SchoolID  int64     `json:"school_id"`
	Name      string    `json:"name"`
	Grade     string    `json:"grade"`
	TeacherID *int64    `json:"teacher_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Subject is a field of study offered by the school.
type Subject struct {
	ID        int64     `json:"id"`
	SchoolID  int64     `json:"school_id"`
	Name      string    `json:"name"`
	Code      string    `json:"code"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Course binds a subject to a class with an assigned teacher.
type Course struct {
	ID        int64     `json:"id"`
	SchoolID  int64     `json:"school_id"`
	SubjectID int64     `json:"subject_id"`
	ClassID   int64     `json:"class_id"`
	TeacherID *int64    `json:"teacher_id,omitempty"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Lesson is one recurring weekly slot of a course. Times are local wall
// clock in HH:MM, interpretation is the school's affair.
type Lesson struct {
	ID        int64     `json:"id"`
	SchoolID  int64     `json:"school_id"`
	CourseID  int64     `json:"course_id"`
	Weekday   int       `json:"weekday"`
	StartsAt  string    `json:"starts_at"`
	EndsAt    string    `json:"ends_at"`
	Room      *string   `json:"room,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
