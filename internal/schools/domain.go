package schools

import (
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Status is the tenant lifecycle state.
type Status string

const (
	StatusPending   Status = "pending"
	StatusApproved  Status = "approved"
	StatusActive    Status = "active"
	StatusRejected  Status = "rejected"
	StatusSuspended Status = "suspended"
)

// revertTarget maps each state to its single-step backward transition.
// A state missing here (pending) cannot be reverted.
var revertTarget = map[Status]Status{
	StatusActive:    StatusApproved,
	StatusApproved:  StatusPending,
	StatusRejected:  StatusPending,
	StatusSuspended: StatusActive,
}

// RevertTarget returns the backward transition for the status, if any.
func RevertTarget(s Status) (Status, bool) {
	target, ok := revertTarget[s]
	return target, ok
}

// School is an onboarded (or onboarding) tenant: the unit of data isolation.
// RejectReason is set only in the rejected state and cleared on any forward
// transition out of it.
type School struct {
	ID           int64      `json:"id"`
	Name         string     `json:"name"`
	Slug         string     `json:"slug"`
	Status       Status     `json:"status"`
	ContactName  string     `json:"contact_name"`
	ContactEmail string     `json:"contact_email"`
	ContactPhone *string    `json:"contact_phone,omitempty"`
	City         *string    `json:"city,omitempty"`
	Country      *string    `json:"country,omitempty"`
	RejectReason *string    `json:"reject_reason,omitempty"`
	ActivatedAt  *time.Time `json:"activated_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// AdminAccount is the minimal account shape the lifecycle controller needs
// when provisioning or reactivating a school's primary admin.
type AdminAccount struct {
	ID                 int64
	Name               string
	Email              string
	PasswordHash       string
	IsActive           bool
	MustChangePassword bool
}

var slugFold = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Slugify normalizes a school name into a URL-safe, globally unique slug
// candidate: diacritics stripped, lowercased, non-alphanumerics collapsed to
// single hyphens.
func Slugify(name string) string {
	folded, _, err := transform.String(slugFold, name)
	if err != nil {
		folded = name
	}
	var b strings.Builder
	lastHyphen := true
	for _, r := range strings.ToLower(folded) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastHyphen = false
		default:
			if !lastHyphen {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
	}
	return strings.Trim(b.String(), "-")
}
