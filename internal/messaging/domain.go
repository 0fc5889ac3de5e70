package messaging

import "time"

// Message is a direct message between two accounts of the same school.
type Message struct {
	ID          int64      `json:"id"`
	SchoolID    int64      `json:"school_id"`
	SenderID    int64      `json:"sender_id"`
	RecipientID int64      `json:"recipient_id"`
	Subject     string     `json:"subject"`
	Body        string     `json:"body"`
	ReadAt      *time.Time `json:"read_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// Audience narrows who sees an announcement.
type Audience string

const (
	AudienceAll       Audience = "all"
	AudienceStaff     Audience = "staff"
	AudienceStudents  Audience = "students"
	AudienceGuardians Audience = "guardians"
)

// Valid reports whether the audience is one of the known groups.
func (a Audience) Valid() bool {
	switch a {
	case AudienceAll, AudienceStaff, AudienceStudents, AudienceGuardians:
		return true
	}
	return false
}

// Announcement is a school-wide broadcast to one audience group.
type Announcement struct {
	ID        int64     `json:"id"`
	SchoolID  int64     `json:"school_id"`
	AuthorID  int64     `json:"author_id"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	Audience  Audience  `json:"audience"`
	CreatedAt time.Time `json:"created_at"`
}
