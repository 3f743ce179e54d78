// Package learning holds the server-side rules for catalog browsing,
// progress, quizzes, enrollments and certificates.
package learning

import (
	"context"
	"strings"
	"time"

	"github.com/mind-engage/classwork/internal/access"
	"github.com/mind-engage/classwork/internal/apperr"
	auth "github.com/mind-engage/classwork/internal/auth/middleware"
	"github.com/mind-engage/classwork/internal/classwork"
	"github.com/mind-engage/classwork/internal/grading"
	"github.com/mind-engage/classwork/internal/logger"
	"github.com/mind-engage/classwork/internal/rbac"
	syncx "github.com/mind-engage/classwork/internal/sync"
)

// Recorder appends audit events.
type Recorder interface {
	Append(ctx context.Context, typ, key string, payload any) error
}

type Service struct {
	store          classwork.Store
	grader         *grading.Grader
	events         Recorder
	log            *logger.Logger
	policy         access.Policy
	defaultPassing int
	now            func() time.Time
}

type Option func(*Service)

func WithRecorder(r Recorder) Option { return func(s *Service) { s.events = r } }
func WithLogger(l *logger.Logger) Option { return func(s *Service) { s.log = l } }
func WithPolicy(p access.Policy) Option { return func(s *Service) { s.policy = p } }
func WithGrader(g *grading.Grader) Option { return func(s *Service) { s.grader = g } }
func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }
func WithDefaultPassingScore(n int) Option { return func(s *Service) { s.defaultPassing = n } }

func NewService(store classwork.Store, opts ...Option) *Service {
	s := &Service{
		store:          store,
		grader:         grading.NewGrader(),
		log:            logger.Nop(),
		defaultPassing: classwork.DefaultPassingScore,
		now:            time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Service) Store() classwork.Store { return s.store }

func (s *Service) Policy() access.Policy { return s.policy }

// record never fails the calling operation; a lost audit event is logged.
func (s *Service) record(ctx context.Context, typ, key string, payload any) {
	if s.events == nil {
		return
	}
	if err := s.events.Append(ctx, typ, key, payload); err != nil {
		s.log.Warn("audit append failed", "type", typ, "key", key, "error", err)
	}
}

// ---------- users ----------

func (s *Service) Register(ctx context.Context, email, password, fullName string) (classwork.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	fields := map[string]string{}
	if !strings.Contains(email, "@") {
		fields["email"] = "must be a valid email"
	}
	if len(password) < 8 {
		fields["password"] = "must be at least 8 characters"
	}
	if len(fields) > 0 {
		return classwork.User{}, apperr.Validation("invalid registration", fields)
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return classwork.User{}, err
	}
	u, err := s.store.CreateUser(ctx, classwork.User{
		Email:        email,
		FullName:     strings.TrimSpace(fullName),
		Role:         string(rbac.RoleStudent),
		PasswordHash: hash,
		CreatedAt:    s.now(),
	})
	if err != nil {
		return classwork.User{}, err
	}
	s.log.Info("user registered", "user_id", u.ID)
	return u, nil
}

// Authenticate checks credentials. Unknown emails and wrong passwords look
// the same to the caller.
func (s *Service) Authenticate(ctx context.Context, email, password string) (classwork.User, error) {
	u, err := s.store.GetUserByEmail(ctx, email)
	if apperr.Is(err, apperr.KindNotFound) {
		return classwork.User{}, apperr.Unauthorized("invalid credentials")
	}
	if err != nil {
		return classwork.User{}, err
	}
	if !auth.CheckPassword(u.PasswordHash, password) {
		return classwork.User{}, apperr.Unauthorized("invalid credentials")
	}
	u.Role = string(rbac.ParseRole(u.Role))
	return u, nil
}

// EnsureAdmin creates the bootstrap admin account when it does not exist.
func (s *Service) EnsureAdmin(ctx context.Context, email, passHash string) error {
	if email == "" || passHash == "" {
		return nil
	}
	if _, err := s.store.GetUserByEmail(ctx, email); err == nil {
		return nil
	} else if !apperr.Is(err, apperr.KindNotFound) {
		return err
	}
	_, err := s.store.CreateUser(ctx, classwork.User{
		Email: email, FullName: "Administrator", Role: string(rbac.RoleAdmin),
		PasswordHash: passHash, CreatedAt: s.now(),
	})
	if apperr.Is(err, apperr.KindConflict) {
		return nil
	}
	if err == nil {
		s.log.Info("bootstrap admin created", "email", email)
	}
	return err
}

func (s *Service) Me(ctx context.Context, userID string) (classwork.User, error) {
	u, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return classwork.User{}, err
	}
	u.Role = string(rbac.ParseRole(u.Role))
	return u, nil
}

// ---------- catalog ----------

// Outline is a course with its chapter and lesson titles but no lesson
// content.
type Outline struct {
	Course   classwork.Course    `json:"course"`
	Chapters []classwork.Chapter `json:"chapters"`
}

func (s *Service) ListCourses(ctx context.Context, role rbac.Role) ([]classwork.Course, error) {
	return s.store.ListCourses(ctx, !rbac.HasCapability(role, rbac.ManageCourse))
}

func (s *Service) CourseOutline(ctx context.Context, slug string, role rbac.Role) (Outline, error) {
	c, err := s.visibleCourse(ctx, slug, role)
	if err != nil {
		return Outline{}, err
	}
	chapters, err := s.store.ListChapters(ctx, c.ID)
	if err != nil {
		return Outline{}, err
	}
	for i := range chapters {
		for j := range chapters[i].Lessons {
			l := &chapters[i].Lessons[j]
			l.VideoURL, l.NotebookURL, l.Notes = nil, nil, nil
		}
	}
	return Outline{Course: c, Chapters: chapters}, nil
}

// visibleCourse hides unpublished courses from everyone who cannot manage
// them.
func (s *Service) visibleCourse(ctx context.Context, slug string, role rbac.Role) (classwork.Course, error) {
	c, err := s.store.GetCourseBySlug(ctx, slug)
	if err != nil {
		return classwork.Course{}, err
	}
	if !c.IsPublished && !rbac.HasCapability(role, rbac.ManageCourse) {
		return classwork.Course{}, apperr.NotFound("course not found")
	}
	return c, nil
}

func (s *Service) ImportCourse(ctx context.Context, actorID string, tree classwork.CourseTree) (classwork.Course, error) {
	if err := validateTree(tree); err != nil {
		return classwork.Course{}, err
	}
	tree.Chapters = append([]classwork.ChapterImport(nil), tree.Chapters...)
	for i, ch := range tree.Chapters {
		if ch.Quiz != nil && ch.Quiz.PassingScore == nil {
			q := *ch.Quiz
			n := s.defaultPassing
			q.PassingScore = &n
			tree.Chapters[i].Quiz = &q
		}
	}
	c, err := s.store.PutCourse(ctx, tree)
	if err != nil {
		return classwork.Course{}, err
	}
	s.log.Info("course imported", "course_id", c.ID, "slug", c.Slug, "by", actorID)
	return c, nil
}

func validateTree(tree classwork.CourseTree) error {
	fields := map[string]string{}
	if strings.TrimSpace(tree.Course.Slug) == "" {
		fields["course.slug"] = "required"
	}
	if strings.TrimSpace(tree.Course.Title) == "" {
		fields["course.title"] = "required"
	}
	for _, ch := range tree.Chapters {
		if strings.TrimSpace(ch.Title) == "" {
			fields["chapters.title"] = "required"
		}
		if ch.Quiz != nil && ch.Quiz.PassingScore != nil && (*ch.Quiz.PassingScore < 0 || *ch.Quiz.PassingScore > 100) {
			fields["chapters.quiz.passing_score"] = "must be between 0 and 100"
		}
		for _, q := range ch.QuizQuestions {
			if strings.TrimSpace(q.CorrectAnswer) == "" {
				fields["chapters.quiz_questions.correct_answer"] = "required"
			}
			switch q.Type {
			case "", classwork.QuestionMultipleChoice, classwork.QuestionTrueFalse, classwork.QuestionShortAnswer:
			default:
				fields["chapters.quiz_questions.question_type"] = "unsupported question type"
			}
		}
	}
	if len(fields) > 0 {
		return apperr.Validation("invalid course", fields)
	}
	return nil
}

// ---------- access ----------

// CourseAccess answers for anonymous viewers too: free-preview lessons only.
func (s *Service) CourseAccess(ctx context.Context, courseID, userID string) (classwork.Access, error) {
	return access.NewResolver(s.store, access.AllowAnonymous()).Resolve(ctx, courseID, userID)
}

// MaterialAccess decides whether a user may download material filed under
// courseID. Course managers see everything; everyone else needs some access
// to the course, and material outside any course is staff only.
func (s *Service) MaterialAccess(ctx context.Context, userID string, role rbac.Role, courseID string) error {
	if rbac.HasCapability(role, rbac.ManageCourse) {
		return nil
	}
	if courseID == "" {
		return apperr.Forbidden("material is not available")
	}
	acc, err := s.CourseAccess(ctx, courseID, userID)
	if err != nil {
		return err
	}
	if !access.HasAnyAccess(acc) {
		return apperr.Forbidden("enroll to access this material")
	}
	return nil
}

func (s *Service) GrantLessonAccess(ctx context.Context, actorID, courseID, userID string, lessonIDs []string) error {
	if userID == "" || len(lessonIDs) == 0 {
		return apperr.Validation("user_id and lesson_ids are required", nil)
	}
	if _, err := s.store.GetUser(ctx, userID); err != nil {
		return err
	}
	chapters, err := s.store.ListChapters(ctx, courseID)
	if err != nil {
		return err
	}
	inCourse := map[string]bool{}
	for _, l := range access.Lessons(chapters) {
		inCourse[l.ID] = true
	}
	for _, id := range lessonIDs {
		if !inCourse[id] {
			return apperr.Validation("lesson "+id+" is not part of this course", nil)
		}
	}
	if err := s.store.GrantLessons(ctx, userID, actorID, lessonIDs); err != nil {
		return err
	}
	s.record(ctx, syncx.LessonAccessGranted, userID, map[string]any{
		"course_id": courseID, "lesson_ids": lessonIDs, "granted_by": actorID,
	})
	return nil
}
