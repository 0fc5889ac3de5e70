package rbac

import "time"

// Capability names one fine-grained permission a secondary school admin may
// or may not hold. The set is closed: adding a capability means adding a
// constant here, a column on admin_grants, and a case in Grant.Allows.
type Capability string

const (
	CapApplications  Capability = "applications"
	CapStaff         Capability = "staff_management"
	CapStudents      Capability = "student_management"
	CapGuardians     Capability = "guardian_management"
	CapClasses       Capability = "class_management"
	CapCourses       Capability = "course_management"
	CapSubjects      Capability = "subject_management"
	CapSchedule      Capability = "schedule_management"
	CapExams         Capability = "exam_management"
	CapResults       Capability = "result_management"
	CapAttendance    Capability = "attendance_management"
	CapMessaging     Capability = "messaging"
	CapAnnouncements Capability = "announcements"
	CapAdmins        Capability = "admin_management"
)

// Capabilities returns every known capability.
func Capabilities() []Capability {
	return []Capability{
		CapApplications,
		CapStaff,
		CapStudents,
		CapGuardians,
		CapClasses,
		CapCourses,
		CapSubjects,
		CapSchedule,
		CapExams,
		CapResults,
		CapAttendance,
		CapMessaging,
		CapAnnouncements,
		CapAdmins,
	}
}

// GrantLevel distinguishes unrestricted admins from capability-gated ones.
type GrantLevel string

const (
	// GrantPrimary bypasses capability checks entirely. A capability added
	// later automatically applies to primary admins without a data migration.
	GrantPrimary GrantLevel = "primary"
	// GrantSecondary consults the per-capability booleans below.
	GrantSecondary GrantLevel = "secondary"
)

// Grant is the per-admin capability record. One exists per school_admin
// account; its booleans are only meaningful at GrantSecondary level.
type Grant struct {
	UserID        int64
	SchoolID      int64
	Level         GrantLevel
	Applications  bool
	Staff         bool
	Students      bool
	Guardians     bool
	Classes       bool
	Courses       bool
	Subjects      bool
	Schedule      bool
	Exams         bool
	Results       bool
	Attendance    bool
	Messaging     bool
	Announcements bool
	Admins        bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Allows reports whether a secondary grant carries the named capability.
// Primary bypass is handled by the resolver, not here, so this mapping stays
// a pure boolean lookup.
func (g Grant) Allows(c Capability) bool {
	switch c {
	case CapApplications:
		return g.Applications
	case CapStaff:
		return g.Staff
	case CapStudents:
		return g.Students
	case CapGuardians:
		return g.Guardians
	case CapClasses:
		return g.Classes
	case CapCourses:
		return g.Courses
	case CapSubjects:
		return g.Subjects
	case CapSchedule:
		return g.Schedule
	case CapExams:
		return g.Exams
	case CapResults:
		return g.Results
	case CapAttendance:
		return g.Attendance
	case CapMessaging:
		return g.Messaging
	case CapAnnouncements:
		return g.Announcements
	case CapAdmins:
		return g.Admins
	}
	return false
}
