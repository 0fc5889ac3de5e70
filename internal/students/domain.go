package students

import "time"

// Student is a learner record of one school. AccountID links the optional
// login account; records created before enrollment completes have none.
type Student struct {
	ID          int64      `json:"id"`
	SchoolID    int64      `json:"school_id"`
	AccountID   *int64     `json:"account_id,omitempty"`
	GuardianID  *int64     `json:"guardian_id,omitempty"`
	ClassID     *int64     `json:"class_id,omitempty"`
	Name        string     `json:"name"`
	Email       *string    `json:"email,omitempty"`
	AdmissionNo string     `json:"admission_no"`
	DateOfBirth *time.Time `json:"date_of_birth,omitempty"`
	Gender      *string    `json:"gender,omitempty"`
	Address     *string    `json:"address,omitempty"`
	IsActive    bool       `json:"is_active"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Guardian is a parent or caretaker linked to one or more students.
type Guardian struct {
	ID         int64     `json:"id"`
	SchoolID   int64     `json:"school_id"`
	AccountID  *int64    `json:"account_id,omitempty"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	Phone      *string   `json:"phone,omitempty"`
	Occupation *string   `json:"occupation,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
