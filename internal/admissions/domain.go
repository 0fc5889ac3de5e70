package admissions

import "time"

// Status tracks an application through review.
type Status string

const (
	StatusApplied  Status = "applied"
	StatusAccepted Status = "accepted"
	StatusRejected Status = "rejected"
)

// Application is a prospective student's admission request to one school.
type Application struct {
	ID            int64      `json:"id"`
	SchoolID      int64      `json:"school_id"`
	ApplicantName string     `json:"applicant_name"`
	Email         string     `json:"email"`
	Phone         *string    `json:"phone,omitempty"`
	GuardianName  *string    `json:"guardian_name,omitempty"`
	DateOfBirth   *time.Time `json:"date_of_birth,omitempty"`
	Status        Status     `json:"status"`
	Note          *string    `json:"note,omitempty"`
	StudentID     *int64     `json:"student_id,omitempty"`
	DecidedBy     *int64     `json:"decided_by,omitempty"`
	DecidedAt     *time.Time `json:"decided_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}
