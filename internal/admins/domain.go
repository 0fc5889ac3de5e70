package admins

import (
	"time"

	"github.com/classpoint/classpoint/internal/rbac"
)

// Admin is a school administrator account joined with its capability grant.
type Admin struct {
	UserID    int64             `json:"user_id"`
	SchoolID  int64             `json:"school_id"`
	Name      string            `json:"name"`
	Email     string            `json:"email"`
	IsActive  bool              `json:"is_active"`
	Level     rbac.GrantLevel   `json:"level"`
	Grants    []rbac.Capability `json:"grants"`
	CreatedAt time.Time         `json:"created_at"`
}

// GrantedCapabilities lists the capabilities a grant carries. Primary grants
// report the full set since every check short-circuits for them.
func GrantedCapabilities(g rbac.Grant) []rbac.Capability {
	if g.Level == rbac.GrantPrimary {
		return rbac.Capabilities()
	}
	var caps []rbac.Capability
	for _, c := range rbac.Capabilities() {
		if g.Allows(c) {
			caps = append(caps, c)
		}
	}
	return caps
}

// GrantFromCapabilities builds a secondary grant carrying exactly the named
// capabilities. Unknown names are ignored by the closed switch in Allows, so
// they are rejected upstream by validation instead.
func GrantFromCapabilities(userID, schoolID int64, caps []rbac.Capability) rbac.Grant {
	g := rbac.Grant{UserID: userID, SchoolID: schoolID, Level: rbac.GrantSecondary}
	for _, c := range caps {
		applyCapability(&g, c)
	}
	return g
}

func applyCapability(g *rbac.Grant, c rbac.Capability) {
	switch c {
	case rbac.CapApplications:
		g.Applications = true
	case rbac.CapStaff:
		g.Staff = true
	case rbac.CapStudents:
		g.Students = true
	case rbac.CapGuardians:
		g.Guardians = true
	case rbac.CapClasses:
		g.Classes = true
	case rbac.CapCourses:
		g.Courses = true
	case rbac.CapSubjects:
		g.Subjects = true
	case rbac.CapSchedule:
		g.Schedule = true
	case rbac.CapExams:
		g.Exams = true
	case rbac.CapResults:
		g.Results = true
	case rbac.CapAttendance:
		g.Attendance = true
	case rbac.CapMessaging:
		g.Messaging = true
	case rbac.CapAnnouncements:
		g.Announcements = true
	case rbac.CapAdmins:
		g.Admins = true
	}
}

// ValidCapabilities reports whether every name is a known capability.
func ValidCapabilities(names []string) ([]rbac.Capability, bool) {
	known := make(map[rbac.Capability]struct{})
	for _, c := range rbac.Capabilities() {
		known[c] = struct{}{}
	}
	caps := make([]rbac.Capability, 0, len(names))
	for _, n := range names {
		c := rbac.Capability(n)
		if _, ok := known[c]; !ok {
			return nil, false
		}
		caps = append(caps, c)
	}
	return caps, true
}
