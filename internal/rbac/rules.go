package rbac

import "strings"

type Role string

const (
	RoleNone       Role = ""
	RoleStudent    Role = "student"
	RoleInstructor Role = "instructor"
	RoleAdmin      Role = "admin"
)

type Capability string

const (
	ViewCourse         Capability = "course:view"
	TakeQuiz           Capability = "quiz:take"
	RequestCertificate Capability = "certificate:request"
	ManageCourse       Capability = "course:manage"
	ManageEnrollments  Capability = "enrollment:manage"
	ReviewCertificates Capability = "certificate:review"
	GrantAccess        Capability = "access:grant"
	UploadMaterial     Capability = "material:upload"
	ViewAllAttempts    Capability = "attempt:view-all"
)

var RoleCapabilities = map[Role][]Capability{
	RoleStudent: {
		ViewCourse,
		TakeQuiz,
		RequestCertificate,
	},
	RoleInstructor: {
		ViewCourse,
		TakeQuiz,
		RequestCertificate,
		ManageCourse,
		ReviewCertificates,
		GrantAccess,
		UploadMaterial,
		ViewAllAttempts,
	},
	RoleAdmin: {
		"*",
	},
}

// ParseRole collapses the role spellings seen in stored data and tokens into
// the closed set. Unknown names map to RoleNone.
func ParseRole(s string) Role {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "student", "learner":
		return RoleStudent
	case "instructor", "teacher":
		return RoleInstructor
	case "admin", "administrator":
		return RoleAdmin
	default:
		return RoleNone
	}
}

func (r Role) Valid() bool { return r == RoleStudent || r == RoleInstructor || r == RoleAdmin }
