package learning

import (
	"context"
	"encoding/json"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mind-engage/classwork/internal/access"
	"github.com/mind-engage/classwork/internal/apperr"
	"github.com/mind-engage/classwork/internal/classwork"
	fx "github.com/mind-engage/classwork/internal/classwork/classworktest"
	"github.com/mind-engage/classwork/internal/db/dbtest"
	syncx "github.com/mind-engage/classwork/internal/sync"
)

type memRecorder struct {
	mu     sync.Mutex
	events []string
}

func (m *memRecorder) Append(_ context.Context, typ, key string, _ any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, typ+":"+key)
	return nil
}

func (m *memRecorder) count(typ string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	re := regexp.MustCompile("^" + typ + ":")
	for _, e := range m.events {
		if re.MatchString(e) {
			n++
		}
	}
	return n
}

var fixedNow = time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

func newService(t *testing.T, opts ...Option) (*Service, *memRecorder) {
	t.Helper()
	store := classwork.NewSQLStore(dbtest.Open(t))
	fx.Seed(t, store)
	rec := &memRecorder{}
	opts = append([]Option{WithRecorder(rec), WithClock(func() time.Time { return fixedNow })}, opts...)
	return NewService(store, opts...), rec
}

func enroll(t *testing.T, s *Service, userID string) {
	t.Helper()
	ctx := context.Background()
	e, err := s.Enroll(ctx, userID, fx.CourseID, nil)
	require.NoError(t, err)
	_, err = s.SetEnrollmentStatus(ctx, fx.Admin, e.ID, classwork.PaymentCompleted)
	require.NoError(t, err)
}

func TestLearningContentEnrolledSeesEverything(t *testing.T) {
	s, _ := newService(t)
	enroll(t, s, fx.Student)
	ctx := context.Background()
	require.NoError(t, s.CompleteLesson(ctx, fx.Student, fx.LessonSetup))

	lc, err := s.LearningContent(ctx, fx.CourseSlug, fx.Student)
	require.NoError(t, err)
	assert.True(t, lc.Enrolled)

	all, err := s.Store().ListChapters(ctx, fx.CourseID)
	require.NoError(t, err)
	want := map[string]bool{}
	for _, l := range access.Lessons(all) {
		want[l.ID] = true
	}
	got := map[string]bool{}
	for _, l := range access.Lessons(lc.Chapters) {
		got[l.ID] = true
		assert.Equal(t, l.ID == fx.LessonSetup, l.Completed, l.ID)
	}
	assert.Equal(t, want, got)
}

func TestLearningContentPartialAccess(t *testing.T) {
	s, _ := newService(t)
	lc, err := s.LearningContent(context.Background(), fx.CourseSlug, fx.Student)
	require.NoError(t, err)
	assert.False(t, lc.Enrolled)
	lessons := access.Lessons(lc.Chapters)
	require.Len(t, lessons, 1)
	assert.Equal(t, fx.LessonPreview, lessons[0].ID)
}

func TestLearningContentWithoutAccessIsForbidden(t *testing.T) {
	s, _ := newService(t)
	ctx := context.Background()
	_, err := s.ImportCourse(ctx, fx.Admin, classwork.CourseTree{
		Course: classwork.Course{ID: "paid", Slug: "paid", Title: "Paid only", IsPublished: true},
		Chapters: []classwork.ChapterImport{{Chapter: classwork.Chapter{
			ID: "p1", Title: "One", Lessons: []classwork.Lesson{{ID: "pl1", Title: "Locked"}},
		}}},
	})
	require.NoError(t, err)

	_, err = s.LearningContent(ctx, "paid", fx.Student)
	assert.True(t, apperr.Is(err, apperr.KindForbidden))
}

func TestCompleteLessonRules(t *testing.T) {
	s, rec := newService(t)
	ctx := context.Background()

	err := s.CompleteLesson(ctx, fx.Student, fx.LessonPreview)
	assert.True(t, apperr.Is(err, apperr.KindForbidden), "preview lessons are not completable by default")

	err = s.CompleteLesson(ctx, fx.Student, fx.LessonSetup)
	assert.True(t, apperr.Is(err, apperr.KindForbidden))

	lenient, _ := newService(t, WithPolicy(access.Policy{PreviewCompletion: true}))
	require.NoError(t, lenient.CompleteLesson(ctx, fx.Student, fx.LessonPreview))

	enroll(t, s, fx.Student)
	require.NoError(t, s.CompleteLesson(ctx, fx.Student, fx.LessonSetup))
	require.NoError(t, s.CompleteLesson(ctx, fx.Student, fx.LessonSetup))
	done, err := s.Store().CompletedLessonIDs(ctx, fx.Student, fx.CourseID)
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{fx.LessonSetup: true}, done)
	assert.Equal(t, 2, rec.count(syncx.LessonCompleted))

	err = s.CompleteLesson(ctx, fx.Student, "missing")
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestLessonClipsFollowViewAccess(t *testing.T) {
	s, _ := newService(t)
	ctx := context.Background()

	clips, err := s.LessonClips(ctx, fx.Student, fx.LessonPreview)
	require.NoError(t, err)
	require.Len(t, clips, 2)
	assert.Equal(t, fx.ClipHello, clips[0].ID)

	_, err = s.LessonClips(ctx, fx.Student, fx.LessonSetup)
	assert.True(t, apperr.Is(err, apperr.KindForbidden))

	enroll(t, s, fx.Student)
	clips, err = s.LessonClips(ctx, fx.Student, fx.LessonSetup)
	require.NoError(t, err)
	require.Len(t, clips, 1)
	assert.Equal(t, fx.ClipInstall, clips[0].ID)

	_, err = s.LessonClips(ctx, fx.Student, "missing")
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestQuizQuestionsHideAnswers(t *testing.T) {
	s, _ := newService(t)
	qs, err := s.QuizQuestions(context.Background(), fx.Student, fx.QuizIntro)
	require.NoError(t, err)
	require.Len(t, qs, 2)

	raw, err := json.Marshal(qs)
	require.NoError(t, err)
	var decoded []map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	for _, q := range decoded {
		for k, v := range q {
			assert.NotContains(t, k, "correct")
			assert.NotContains(t, k, "explanation")
			assert.NotEqual(t, "Go uses func.", v)
		}
		assert.NotContains(t, q, "correct_answer")
	}
}

func TestSubmitQuizAllCorrectPasses(t *testing.T) {
	s, rec := newService(t)
	ctx := context.Background()
	answers := map[string]string{fx.QuestionChoice: "func", fx.QuestionTF: "True"}

	first, err := s.SubmitQuiz(ctx, fx.Student, fx.QuizIntro, answers)
	require.NoError(t, err)
	assert.Equal(t, 100.0, first.Percentage)
	assert.Equal(t, 2, first.MaxScore)
	assert.True(t, first.Passed)
	require.Len(t, first.Results, 2)
	for _, r := range first.Results {
		assert.True(t, r.IsCorrect)
	}

	second, err := s.SubmitQuiz(ctx, fx.Student, fx.QuizIntro, map[string]string{fx.QuestionChoice: "fn", fx.QuestionTF: "True"})
	require.NoError(t, err)
	assert.NotEqual(t, first.AttemptID, second.AttemptID)
	assert.Equal(t, 50.0, second.Percentage)
	assert.False(t, second.Passed)

	attempts, err := s.QuizAttempts(ctx, fx.Student, fx.QuizIntro, false)
	require.NoError(t, err)
	assert.Len(t, attempts, 2)
	assert.Equal(t, 2, rec.count(syncx.QuizAttemptSubmitted))
}

func TestSubmitQuizEdgeCases(t *testing.T) {
	s, _ := newService(t)
	ctx := context.Background()

	_, err := s.SubmitQuiz(ctx, fx.Student, fx.QuizIntro, nil)
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	_, err = s.SubmitQuiz(ctx, fx.Student, fx.QuizEmpty, map[string]string{"x": "y"})
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	_, err = s.SubmitQuiz(ctx, fx.Student, "missing", map[string]string{"x": "y"})
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestZeroPassingScoreIsABar(t *testing.T) {
	s, _ := newService(t, WithDefaultPassingScore(60))
	ctx := context.Background()
	tree := fx.Course()
	zero := 0
	tree.Chapters[1].Quiz.PassingScore = &zero
	tree.Chapters[2].Quiz.PassingScore = nil
	_, err := s.ImportCourse(ctx, fx.Admin, tree)
	require.NoError(t, err)

	sub, err := s.SubmitQuiz(ctx, fx.Student, fx.QuizIntro, map[string]string{fx.QuestionChoice: "fn", fx.QuestionTF: "False"})
	require.NoError(t, err)
	assert.Equal(t, 0, sub.PassingScore)
	assert.Equal(t, 0.0, sub.Percentage)
	assert.True(t, sub.Passed)

	ref, err := s.Store().GetQuiz(ctx, fx.QuizEmpty)
	require.NoError(t, err)
	assert.Equal(t, 60, ref.Quiz.PassingScore, "an absent bar takes the configured default")

	bad := 101
	tree.Chapters[1].Quiz.PassingScore = &bad
	_, err = s.ImportCourse(ctx, fx.Admin, tree)
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}

func TestAttemptKeepsOnlyQuizAnswers(t *testing.T) {
	s, _ := newService(t)
	ctx := context.Background()
	_, err := s.SubmitQuiz(ctx, fx.Student, fx.QuizIntro, map[string]string{
		fx.QuestionChoice: "func", fx.QuestionTF: "True", "ghost": "boo",
	})
	require.NoError(t, err)

	attempts, err := s.QuizAttempts(ctx, fx.Student, fx.QuizIntro, false)
	require.NoError(t, err)
	require.Len(t, attempts, 1)
	assert.Equal(t, map[string]string{fx.QuestionChoice: "func", fx.QuestionTF: "True"}, attempts[0].Answers)
}

func completeCourse(t *testing.T, s *Service, userID string) {
	t.Helper()
	for _, id := range []string{fx.LessonPreview, fx.LessonSetup, fx.LessonStructs} {
		require.NoError(t, s.CompleteLesson(context.Background(), userID, id))
	}
}

func TestRequestCertificate(t *testing.T) {
	s, rec := newService(t)
	ctx := context.Background()

	_, err := s.RequestCertificate(ctx, fx.Student, fx.CourseID)
	assert.True(t, apperr.Is(err, apperr.KindForbidden))

	enroll(t, s, fx.Student)
	_, err = s.RequestCertificate(ctx, fx.Student, fx.CourseID)
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	completeCourse(t, s, fx.Student)
	c, err := s.RequestCertificate(ctx, fx.Student, fx.CourseID)
	require.NoError(t, err)
	assert.Equal(t, classwork.CertificatePending, c.Status)
	assert.Nil(t, c.CertificateNumber)

	_, err = s.RequestCertificate(ctx, fx.Student, fx.CourseID)
	assert.True(t, apperr.Is(err, apperr.KindConflict))

	overview, err := s.CertificatesOverview(ctx, fx.Student)
	require.NoError(t, err)
	assert.Len(t, overview.Certificates, 1)
	require.Len(t, overview.Completions, 1)
	assert.Equal(t, classwork.CourseCompletion{
		CourseID: fx.CourseID, CourseTitle: "Go Basics", CourseSlug: fx.CourseSlug,
		CompletedLessons: 3, TotalLessons: 3, IsComplete: true, HasCertificate: true,
	}, overview.Completions[0])
	assert.Equal(t, 1, rec.count(syncx.CertificateRequested))
}

func TestUpdateCertificateStatus(t *testing.T) {
	s, rec := newService(t)
	ctx := context.Background()
	enroll(t, s, fx.Student)
	completeCourse(t, s, fx.Student)
	c, err := s.RequestCertificate(ctx, fx.Student, fx.CourseID)
	require.NoError(t, err)

	_, err = s.UpdateCertificateStatus(ctx, fx.Instructor, c.ID, "revoked")
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	_, err = s.UpdateCertificateStatus(ctx, fx.Instructor, c.ID, classwork.CertificatePending)
	assert.True(t, apperr.Is(err, apperr.KindConflict))

	approved, err := s.UpdateCertificateStatus(ctx, fx.Instructor, c.ID, classwork.CertificateApproved)
	require.NoError(t, err)
	assert.Equal(t, classwork.CertificateApproved, approved.Status)
	require.NotNil(t, approved.CertificateNumber)
	assert.Regexp(t, `^CERT-20260314-[0-9A-F]{8}$`, *approved.CertificateNumber)
	require.NotNil(t, approved.IssuedAt)
	assert.True(t, approved.IssuedAt.Equal(fixedNow))
	require.NotNil(t, approved.ApprovedBy)
	assert.Equal(t, fx.Instructor, *approved.ApprovedBy)

	_, err = s.UpdateCertificateStatus(ctx, fx.Instructor, c.ID, classwork.CertificateRejected)
	assert.True(t, apperr.Is(err, apperr.KindConflict))
	assert.Equal(t, 1, rec.count(syncx.CertificateStatusChanged))

	pending, err := s.CertificateRequests(ctx, classwork.CertificatePending)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestEnrollments(t *testing.T) {
	s, rec := newService(t)
	ctx := context.Background()

	e, err := s.Enroll(ctx, fx.Student, fx.CourseID, nil)
	require.NoError(t, err)
	assert.Equal(t, classwork.PaymentPending, e.PaymentStatus)

	_, err = s.Enroll(ctx, fx.Student, fx.CourseID, nil)
	assert.True(t, apperr.Is(err, apperr.KindConflict))

	_, err = s.SetEnrollmentStatus(ctx, fx.Admin, e.ID, "refunded")
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	_, err = s.SetEnrollmentStatus(ctx, fx.Admin, e.ID, classwork.PaymentCompleted)
	require.NoError(t, err)
	require.NoError(t, s.CompleteLesson(ctx, fx.Student, fx.LessonSetup))

	mine, err := s.MyEnrollments(ctx, fx.Student)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	require.NotNil(t, mine[0].Progress)
	assert.Equal(t, 1, mine[0].Progress.CompletedLessons)
	assert.Equal(t, 3, mine[0].Progress.TotalLessons)
	assert.Equal(t, 1, rec.count(syncx.EnrollmentStatusChanged))
}

func TestRegisterAndAuthenticate(t *testing.T) {
	s, _ := newService(t)
	ctx := context.Background()

	_, err := s.Register(ctx, "nope", "short", "")
	require.True(t, apperr.Is(err, apperr.KindValidation))
	assert.Len(t, apperr.FieldsOf(err), 2)

	u, err := s.Register(ctx, "Ada@Example.com", "correct horse", "Ada")
	require.NoError(t, err)
	assert.Equal(t, "student", u.Role)

	got, err := s.Authenticate(ctx, "ada@example.com", "correct horse")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	_, err = s.Authenticate(ctx, "ada@example.com", "wrong")
	assert.True(t, apperr.Is(err, apperr.KindUnauthorized))
	_, err = s.Authenticate(ctx, "ghost@example.com", "wrong")
	assert.True(t, apperr.Is(err, apperr.KindUnauthorized))

	_, err = s.Register(ctx, "ada@example.com", "another pass", "")
	assert.True(t, apperr.Is(err, apperr.KindConflict))
}

func TestGrantLessonAccess(t *testing.T) {
	s, _ := newService(t)
	ctx := context.Background()

	err := s.GrantLessonAccess(ctx, fx.Instructor, fx.CourseID, fx.Student, []string{"not-in-course"})
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	require.NoError(t, s.GrantLessonAccess(ctx, fx.Instructor, fx.CourseID, fx.Student, []string{fx.LessonStructs}))
	acc, err := s.CourseAccess(ctx, fx.CourseID, fx.Student)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{fx.LessonPreview, fx.LessonStructs}, acc.AllowedLessonIDs)
}

func TestEnsureAdminIsIdempotent(t *testing.T) {
	s, _ := newService(t)
	ctx := context.Background()
	require.NoError(t, s.EnsureAdmin(ctx, "root@example.com", "$2a$10$hash"))
	require.NoError(t, s.EnsureAdmin(ctx, "root@example.com", "$2a$10$hash"))
	u, err := s.Store().GetUserByEmail(ctx, "root@example.com")
	require.NoError(t, err)
	assert.Equal(t, "admin", u.Role)
}
