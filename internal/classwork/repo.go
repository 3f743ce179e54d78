package classwork

import "context"

type EnrollmentFilter struct {
	UserID   string
	CourseID string
	Status   string
}

type CertificateFilter struct {
	UserID string
	Status string
}

// Store persists the course catalog and per-user learning state.
type Store interface {
	CreateUser(ctx context.Context, u User) (User, error)
	GetUser(ctx context.Context, id string) (User, error)
	GetUserByEmail(ctx context.Context, email string) (User, error)
	UserRole(ctx context.Context, id string) (string, error)

	// PutCourse upserts a course with its chapters, lessons, quizzes and
	// questions in one transaction.
	PutCourse(ctx context.Context, tree CourseTree) (Course, error)
	ListCourses(ctx context.Context, publishedOnly bool) ([]Course, error)
	GetCourse(ctx context.Context, id string) (Course, error)
	GetCourseBySlug(ctx context.Context, slug string) (Course, error)
	ListChapters(ctx context.Context, courseID string) ([]Chapter, error)
	GetLesson(ctx context.Context, id string) (LessonRef, error)
	ListLessonClips(ctx context.Context, lessonID string) ([]VideoClip, error)
	GetQuiz(ctx context.Context, id string) (QuizRef, error)
	ListQuestions(ctx context.Context, quizID string) ([]Question, error)

	GetCourseAccess(ctx context.Context, courseID, userID string) (Access, error)
	GrantLessons(ctx context.Context, userID, grantedBy string, lessonIDs []string) error

	MarkLessonComplete(ctx context.Context, userID, lessonID string) error
	CompletedLessonIDs(ctx context.Context, userID, courseID string) (map[string]bool, error)

	AddAttempt(ctx context.Context, a QuizAttempt) error
	ListAttempts(ctx context.Context, quizID, userID string) ([]QuizAttempt, error)

	CreateEnrollment(ctx context.Context, e Enrollment) (Enrollment, error)
	GetEnrollment(ctx context.Context, id string) (Enrollment, error)
	FindEnrollment(ctx context.Context, userID, courseID string) (Enrollment, error)
	ListEnrollments(ctx context.Context, f EnrollmentFilter) ([]Enrollment, error)
	SetEnrollmentStatus(ctx context.Context, id, status string) (Enrollment, error)

	CreateCertificate(ctx context.Context, c Certificate) (Certificate, error)
	GetCertificate(ctx context.Context, id string) (Certificate, error)
	ListCertificates(ctx context.Context, f CertificateFilter) ([]Certificate, error)
	// TransitionCertificate applies c only if the stored status still equals
	// from. A lost race reports Conflict.
	TransitionCertificate(ctx context.Context, c Certificate, from string) error
}
