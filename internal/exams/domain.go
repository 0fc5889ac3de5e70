package exams

import "time"

// Exam is an assessment window within a term.
type Exam struct {
	ID        int64      `json:"id"`
	SchoolID  int64      `json:"school_id"`
	Name      string     `json:"name"`
	Term      string     `json:"term"`
	StartsOn  *time.Time `json:"starts_on,omitempty"`
	EndsOn    *time.Time `json:"ends_on,omitempty"`
	Published bool       `json:"published"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// Result is one student's score in one subject of an exam. Unpublished
// results stay invisible to learners and guardians.
type Result struct {
	ID        int64     `json:"id"`
	SchoolID  int64     `json:"school_id"`
	ExamID    int64     `json:"exam_id"`
	StudentID int64     `json:"student_id"`
	SubjectID int64     `json:"subject_id"`
	Score     float64   `json:"score"`
	Grade     string    `json:"grade"`
	Remark    *string   `json:"remark,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
