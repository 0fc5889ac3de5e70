package attendance

import "time"

// Status enumerates the attendance marks a register accepts.
type Status string

const (
	StatusPresent Status = "present"
	StatusAbsent  Status = "absent"
	StatusLate    Status = "late"
	StatusExcused Status = "excused"
)

// Valid reports whether the status is one of the known marks.
func (s Status) Valid() bool {
	switch s {
	case StatusPresent, StatusAbsent, StatusLate, StatusExcused:
		return true
	}
	return false
}

// Record is one student's mark for one class on one day.
type Record struct {
	ID         int64     `json:"id"`
	SchoolID   int64     `json:"school_id"`
	ClassID    int64     `json:"class_id"`
	StudentID  int64     `json:"student_id"`
	Date       time.Time `json:"date"`
	Status     Status    `json:"status"`
	Note       *string   `json:"note,omitempty"`
	RecordedBy int64     `json:"recorded_by"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
