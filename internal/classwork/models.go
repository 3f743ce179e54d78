package classwork

import "time"

const (
	PaymentPending   = "pending"
	PaymentCompleted = "completed"
	PaymentCancelled = "cancelled"
)

const (
	CertificatePending  = "pending"
	CertificateApproved = "approved"
	CertificateRejected = "rejected"
)

const (
	QuestionMultipleChoice = "multiple_choice"
	QuestionTrueFalse      = "true_false"
	QuestionShortAnswer    = "short_answer"
)

const DefaultPassingScore = 70

type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	FullName     string    `json:"full_name"`
	Role         string    `json:"role"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

type Course struct {
	ID               string    `json:"id"`
	Slug             string    `json:"slug"`
	Title            string    `json:"title"`
	ShortDescription string    `json:"short_description"`
	FullDescription  string    `json:"full_description"`
	PriceEUR         float64   `json:"price_eur"`
	PriceINR         float64   `json:"price_inr"`
	IsPublished      bool      `json:"is_published"`
	ClassroomURL     *string   `json:"google_classroom_url"`
	ThumbnailURL     *string   `json:"thumbnail_url"`
	PaymentLinkEUR   *string   `json:"stripe_payment_link_eur"`
	PaymentLinkINR   *string   `json:"stripe_payment_link_inr"`
	CreatedAt        time.Time `json:"created_at"`
}

type Chapter struct {
	ID          string   `json:"id"`
	CourseID    string   `json:"course_id"`
	Title       string   `json:"title"`
	Description *string  `json:"description"`
	OrderIndex  int      `json:"order_index"`
	Lessons     []Lesson `json:"lessons"`
	Quiz        *Quiz    `json:"quiz"`
}

// Lesson is course content. Completed is not stored with the lesson; it is
// the viewing user's LessonProgress flattened in at serialization time.
type Lesson struct {
	ID          string  `json:"id"`
	ChapterID   string  `json:"chapter_id"`
	Title       string  `json:"title"`
	Description *string `json:"description"`
	VideoURL    *string `json:"video_url"`
	NotebookURL *string `json:"colab_notebook_url"`
	Notes       *string `json:"notes_content"`
	OrderIndex  int     `json:"order_index"`
	FreePreview bool    `json:"is_free_preview"`
	Completed   bool    `json:"completed"`
	// Clips is only read on import; clips are served per lesson.
	Clips []VideoClip `json:"clips,omitempty"`
}

// VideoClip is a titled span of a lesson's video. A nil EndSeconds runs to
// the end of the video.
type VideoClip struct {
	ID           string  `json:"id"`
	LessonID     string  `json:"lesson_id"`
	Title        string  `json:"title"`
	StartSeconds int     `json:"start_seconds"`
	EndSeconds   *int    `json:"end_seconds"`
	Notes        *string `json:"notes"`
	OrderIndex   int     `json:"order_index"`
}

// LessonRef locates a lesson inside its course.
type LessonRef struct {
	Lesson   Lesson
	CourseID string
}

type Quiz struct {
	ID           string `json:"id"`
	ChapterID    string `json:"chapter_id"`
	Title        string `json:"title"`
	PassingScore int    `json:"passing_score"`
}

// QuizRef locates a quiz inside its course.
type QuizRef struct {
	Quiz     Quiz
	CourseID string
}

// QuestionView is the learner-safe projection of a question. It has no field
// that could carry the correct answer or the explanation.
type QuestionView struct {
	ID         string   `json:"id"`
	QuizID     string   `json:"quiz_id"`
	Text       string   `json:"question_text"`
	Type       string   `json:"question_type"`
	Options    []string `json:"options"`
	Points     int      `json:"points"`
	OrderIndex int      `json:"order_index"`
}

// Question is the full stored question. The answer fields never serialize.
type Question struct {
	QuestionView
	CorrectAnswer string  `json:"-"`
	Explanation   *string `json:"-"`
}

func (q Question) View() QuestionView {
	v := q.QuestionView
	v.Options = append([]string(nil), q.Options...)
	return v
}

type QuestionResult struct {
	QuestionID    string  `json:"question_id"`
	QuestionText  string  `json:"question_text"`
	UserAnswer    string  `json:"user_answer"`
	CorrectAnswer string  `json:"correct_answer"`
	Explanation   *string `json:"explanation"`
	IsCorrect     bool    `json:"is_correct"`
	Points        int     `json:"points"`
}

// Submission is the scored outcome of one quiz attempt.
type Submission struct {
	AttemptID    string           `json:"attempt_id"`
	Results      []QuestionResult `json:"results"`
	Score        int              `json:"score"`
	MaxScore     int              `json:"max_score"`
	Percentage   float64          `json:"percentage"`
	PassingScore int              `json:"passing_score"`
	Passed       bool             `json:"passed"`
	// PassReported is false when a backend sent neither passed nor
	// passing_score, leaving the verdict to the caller.
	PassReported bool `json:"-"`
}

type QuizAttempt struct {
	ID          string            `json:"id"`
	QuizID      string            `json:"quiz_id"`
	UserID      string            `json:"user_id"`
	Answers     map[string]string `json:"answers"`
	Score       int               `json:"score"`
	MaxScore    int               `json:"max_score"`
	Percentage  float64           `json:"percentage"`
	Passed      bool              `json:"passed"`
	StartedAt   time.Time         `json:"started_at"`
	CompletedAt time.Time         `json:"completed_at"`
}

type Enrollment struct {
	ID            string              `json:"id"`
	UserID        string              `json:"user_id"`
	CourseID      string              `json:"course_id"`
	PaymentStatus string              `json:"payment_status"`
	PaymentMethod *string             `json:"payment_method"`
	EnrolledAt    time.Time           `json:"enrolled_at"`
	Course        *Course             `json:"course,omitempty"`
	Profile       *Profile            `json:"profile,omitempty"`
	Progress      *EnrollmentProgress `json:"progress,omitempty"`
}

type EnrollmentProgress struct {
	CompletedLessons int     `json:"completed_lessons"`
	TotalLessons     int     `json:"total_lessons"`
	Percent          float64 `json:"percent"`
}

type Profile struct {
	FullName *string `json:"full_name"`
	Email    *string `json:"email"`
}

type CourseSummary struct {
	Title string `json:"title"`
	Slug  string `json:"slug"`
}

type Certificate struct {
	ID                string         `json:"id"`
	UserID            string         `json:"user_id"`
	CourseID          string         `json:"course_id"`
	Status            string         `json:"status"`
	CertificateNumber *string        `json:"certificate_number"`
	IssuedAt          *time.Time     `json:"issued_at"`
	ApprovedBy        *string        `json:"approved_by"`
	ApprovedAt        *time.Time     `json:"approved_at"`
	CreatedAt         time.Time      `json:"created_at"`
	Course            *CourseSummary `json:"course,omitempty"`
	Profile           *Profile       `json:"profile,omitempty"`
}

type CourseCompletion struct {
	CourseID         string `json:"course_id"`
	CourseTitle      string `json:"course_title"`
	CourseSlug       string `json:"course_slug"`
	CompletedLessons int    `json:"completed_lessons"`
	TotalLessons     int    `json:"total_lessons"`
	IsComplete       bool   `json:"is_complete"`
	HasCertificate   bool   `json:"has_certificate"`
}

type CertificatesOverview struct {
	Certificates []Certificate     `json:"certificates"`
	Completions  []CourseCompletion `json:"completions"`
}

// Access is a user's entitlement to a course: full when Enrolled, otherwise
// limited to AllowedLessonIDs.
type Access struct {
	Enrolled         bool     `json:"enrolled"`
	AllowedLessonIDs []string `json:"allowed_lessons"`
}

type LearningContent struct {
	Course           Course    `json:"course"`
	Chapters         []Chapter `json:"chapters"`
	Enrolled         bool      `json:"enrolled"`
	AllowedLessonIDs []string  `json:"allowed_lessons"`
}

// CourseTree is the import document for a whole course.
type CourseTree struct {
	Course   Course          `json:"course"`
	Chapters []ChapterImport `json:"chapters"`
}

// ChapterImport carries its own Quiz so an absent passing score can be told
// apart from an explicit 0.
type ChapterImport struct {
	Chapter
	Quiz          *QuizImport      `json:"quiz"`
	QuizQuestions []QuestionImport `json:"quiz_questions"`
}

// QuizImport leaves PassingScore nil when the document did not set one.
type QuizImport struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	PassingScore *int   `json:"passing_score"`
}

// Passing returns the imported bar, or def when none was given.
func (q QuizImport) Passing(def int) int {
	if q.PassingScore == nil {
		return def
	}
	return *q.PassingScore
}

type QuestionImport struct {
	QuestionView
	CorrectAnswer string  `json:"correct_answer"`
	Explanation   *string `json:"explanation"`
}

func (qi QuestionImport) Question() Question {
	return Question{QuestionView: qi.QuestionView, CorrectAnswer: qi.CorrectAnswer, Explanation: qi.Explanation}
}
