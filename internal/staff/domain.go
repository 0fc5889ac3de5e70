package staff

import "time"

// Member is a staff record of one school. Teaching staff get a linked login
// account at provisioning time; support staff may have none.
type Member struct {
	ID        int64     `json:"id"`
	SchoolID  int64     `json:"school_id"`
	AccountID *int64    `json:"account_id,omitempty"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     *string   `json:"phone,omitempty"`
	Position  string    `json:"position"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
