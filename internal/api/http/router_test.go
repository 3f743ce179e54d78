package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mind-engage/classwork/internal/apperr"
	"github.com/mind-engage/classwork/internal/classwork"
	"github.com/mind-engage/classwork/internal/classwork/classworktest"
	"github.com/mind-engage/classwork/internal/client"
	"github.com/mind-engage/classwork/internal/console"
	"github.com/mind-engage/classwork/internal/db/dbtest"
	"github.com/mind-engage/classwork/internal/learning"
	"github.com/mind-engage/classwork/internal/quiz"
	"github.com/mind-engage/classwork/internal/rbac"
	"github.com/mind-engage/classwork/internal/storage"
	syncx "github.com/mind-engage/classwork/internal/sync"

	auth "github.com/mind-engage/classwork/internal/auth/middleware"
)

type testServer struct {
	URL     string
	Auth    *auth.AuthService
	Events  *syncx.EventRepo
	Service *learning.Service
}

func newTestServer(t *testing.T) testServer {
	t.Helper()
	dbh := dbtest.Open(t)
	store := classwork.NewSQLStore(dbh)
	classworktest.Seed(t, store)
	events := syncx.NewEventRepo(dbh, "test")
	svc := learning.NewService(store, learning.WithRecorder(events))
	blobs, err := storage.NewFSStore(t.TempDir(), "http://localhost/api/uploads")
	require.NoError(t, err)
	a := auth.NewAuthService("test-secret", time.Hour)

	r := chi.NewRouter()
	Mount(r, Deps{Service: svc, Auth: a, Blobs: blobs, DB: dbh})
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return testServer{URL: srv.URL, Auth: a, Events: events, Service: svc}
}

func (ts testServer) token(t *testing.T, userID string, role rbac.Role) string {
	t.Helper()
	tok, err := ts.Auth.IssueJWT(userID, role)
	require.NoError(t, err)
	return tok
}

func (ts testServer) client(t *testing.T, userID string, role rbac.Role) *client.Client {
	t.Helper()
	s, err := client.NewSession(nil)
	require.NoError(t, err)
	if userID != "" {
		require.NoError(t, s.SignIn(ts.token(t, userID, role), nil))
	}
	return client.New(ts.URL, s)
}

func TestProbes(t *testing.T) {
	ts := newTestServer(t)
	for _, p := range []string{"/healthz", "/readyz"} {
		resp, err := http.Get(ts.URL + p)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode, p)
	}
}

func TestRegisterLoginMe(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()
	c := ts.client(t, "", "")

	u, err := c.Register(ctx, "new@example.com", "correct-horse", "New Learner")
	require.NoError(t, err)
	assert.Equal(t, "student", u.Role)
	assert.True(t, c.Session().SignedIn())

	me, err := c.Me(ctx)
	require.NoError(t, err)
	assert.Equal(t, u.ID, me.ID)

	_, err = c.Register(ctx, "new@example.com", "correct-horse", "")
	assert.True(t, apperr.Is(err, apperr.KindConflict))

	_, err = c.Register(ctx, "bad", "short", "")
	require.True(t, apperr.Is(err, apperr.KindValidation))
	assert.Contains(t, apperr.FieldsOf(err), "email")

	require.NoError(t, c.Logout())
	_, err = c.Login(ctx, "new@example.com", "wrong-password")
	assert.True(t, apperr.Is(err, apperr.KindUnauthorized))
	_, err = c.Login(ctx, "new@example.com", "correct-horse")
	require.NoError(t, err)
}

func TestAnonymousCatalog(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()
	c := ts.client(t, "", "")

	courses, err := c.ListCourses(ctx)
	require.NoError(t, err)
	require.Len(t, courses, 1)
	assert.Equal(t, classworktest.CourseSlug, courses[0].Slug)

	course, chapters, err := c.GetCourseBySlug(ctx, classworktest.CourseSlug)
	require.NoError(t, err)
	assert.Equal(t, classworktest.CourseID, course.ID)
	require.Len(t, chapters, 3)
	assert.Equal(t, classworktest.ChapterIntro, chapters[0].ID)
	for _, ch := range chapters {
		for _, l := range ch.Lessons {
			assert.Nil(t, l.VideoURL, "outline never carries lesson content")
			assert.Nil(t, l.Notes)
		}
	}

	acc, err := c.GetCourseAccess(ctx, classworktest.CourseID, "")
	require.NoError(t, err)
	assert.False(t, acc.Enrolled)
	assert.Equal(t, []string{classworktest.LessonPreview}, acc.AllowedLessonIDs)

	_, err = c.GetLearningContent(ctx, classworktest.CourseSlug)
	assert.True(t, apperr.Is(err, apperr.KindUnauthorized))
}

func TestPreviewLearnerEndToEnd(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()
	c := ts.client(t, classworktest.Student, rbac.RoleStudent)

	con := console.New(c, classworktest.Student)
	require.NoError(t, con.Open(ctx, classworktest.CourseSlug))

	v, err := con.OpenLesson(classworktest.LessonPreview)
	require.NoError(t, err)
	assert.False(t, v.CanComplete)

	_, err = con.OpenLesson(classworktest.LessonSetup)
	assert.ErrorIs(t, err, console.ErrLessonLocked)

	err = c.MarkLessonComplete(ctx, classworktest.LessonPreview)
	assert.True(t, apperr.Is(err, apperr.KindForbidden))

	clips, err := c.GetLessonClips(ctx, classworktest.LessonPreview)
	require.NoError(t, err)
	require.Len(t, clips, 2)
	assert.Equal(t, classworktest.ClipHello, clips[0].ID)
	assert.Equal(t, classworktest.ClipTour, clips[1].ID)
	assert.Nil(t, clips[1].EndSeconds)

	_, err = c.GetLessonClips(ctx, classworktest.LessonSetup)
	assert.True(t, apperr.Is(err, apperr.KindForbidden))

	v, err = con.LoadClips(ctx, classworktest.LessonPreview)
	require.NoError(t, err)
	assert.Len(t, v.Clips, 2)
}

func enrollStudent(t *testing.T, ts testServer, student, admin *client.Client) {
	t.Helper()
	ctx := context.Background()
	e, err := student.CreateEnrollment(ctx, classworktest.CourseID, nil)
	require.NoError(t, err)
	assert.Equal(t, classwork.PaymentPending, e.PaymentStatus)

	_, err = student.CreateEnrollment(ctx, classworktest.CourseID, nil)
	assert.True(t, apperr.Is(err, apperr.KindConflict))

	_, err = student.UpdateEnrollmentStatus(ctx, e.ID, classwork.PaymentCompleted)
	assert.True(t, apperr.Is(err, apperr.KindForbidden))

	e, err = admin.UpdateEnrollmentStatus(ctx, e.ID, classwork.PaymentCompleted)
	require.NoError(t, err)
	assert.Equal(t, classwork.PaymentCompleted, e.PaymentStatus)
}

func TestEnrolledLearnerQuizAndCertificate(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()
	student := ts.client(t, classworktest.Student, rbac.RoleStudent)
	admin := ts.client(t, classworktest.Admin, rbac.RoleAdmin)
	instructor := ts.client(t, classworktest.Instructor, rbac.RoleInstructor)

	enrollStudent(t, ts, student, admin)

	con := console.New(student, classworktest.Student)
	require.NoError(t, con.Open(ctx, classworktest.CourseSlug))
	o, ok := con.Outline()
	require.True(t, ok)
	assert.True(t, o.Enrolled)
	assert.Equal(t, 3, o.Total)

	// Quiz: pass, retry, fail. Each submission is its own attempt.
	e, err := con.OpenQuiz(classworktest.ChapterIntro)
	require.NoError(t, err)
	require.NoError(t, e.Load(ctx))
	require.NoError(t, e.Answer("func"))
	require.NoError(t, e.Next())
	require.NoError(t, e.Answer("True"))
	sub, err := e.Submit(ctx)
	require.NoError(t, err)
	assert.Equal(t, 100.0, sub.Percentage)
	assert.True(t, sub.Passed)
	require.Len(t, sub.Results, 2)
	for _, r := range sub.Results {
		assert.True(t, r.IsCorrect)
	}

	require.NoError(t, e.Retry())
	assert.Equal(t, quiz.StateInProgress, e.State())
	require.NoError(t, e.Answer("fn"))
	require.NoError(t, e.Next())
	require.NoError(t, e.Answer("False"))
	second, err := e.Submit(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0.0, second.Percentage)
	assert.False(t, second.Passed)
	assert.NotEqual(t, sub.AttemptID, second.AttemptID)

	attempts, err := student.ListQuizAttempts(ctx, classworktest.QuizIntro)
	require.NoError(t, err)
	assert.Len(t, attempts, 2)

	empty, err := con.OpenQuiz(classworktest.ChapterExam)
	require.NoError(t, err)
	require.NoError(t, empty.Load(ctx))
	assert.Equal(t, quiz.StateEmpty, empty.State())

	// Certificates need every lesson done.
	_, err = student.RequestCertificate(ctx, classworktest.CourseID)
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	for _, id := range []string{classworktest.LessonPreview, classworktest.LessonSetup, classworktest.LessonStructs} {
		require.NoError(t, con.CompleteLesson(ctx, id))
	}
	o, _ = con.Outline()
	assert.Equal(t, 3, o.Done)

	cert, err := student.RequestCertificate(ctx, classworktest.CourseID)
	require.NoError(t, err)
	assert.Equal(t, classwork.CertificatePending, cert.Status)

	_, err = student.RequestCertificate(ctx, classworktest.CourseID)
	assert.True(t, apperr.Is(err, apperr.KindConflict))

	_, err = student.ListCertificateRequests(ctx, "")
	assert.True(t, apperr.Is(err, apperr.KindForbidden))

	pending, err := instructor.ListCertificateRequests(ctx, classwork.CertificatePending)
	require.NoError(t, err)
	require.Len(t, pending, 1)

	approved, err := instructor.UpdateCertificateStatus(ctx, pending[0].ID, classwork.CertificateApproved)
	require.NoError(t, err)
	require.NotNil(t, approved.CertificateNumber)
	assert.True(t, strings.HasPrefix(*approved.CertificateNumber, "CERT-"))
	assert.NotNil(t, approved.IssuedAt)

	_, err = instructor.UpdateCertificateStatus(ctx, pending[0].ID, classwork.CertificateRejected)
	assert.True(t, apperr.Is(err, apperr.KindConflict))

	overview, err := student.GetCertificatesOverview(ctx)
	require.NoError(t, err)
	require.Len(t, overview.Certificates, 1)
	assert.Equal(t, classwork.CertificateApproved, overview.Certificates[0].Status)
	require.Len(t, overview.Completions, 1)
	assert.True(t, overview.Completions[0].IsComplete)

	mine, err := student.ListMyEnrollments(ctx)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	require.NotNil(t, mine[0].Progress)
	assert.Equal(t, 100.0, mine[0].Progress.Percent)

	events, err := ts.Events.Since(ctx, 0, 100)
	require.NoError(t, err)
	types := map[string]int{}
	for _, ev := range events {
		types[ev.Type]++
	}
	assert.Equal(t, 2, types[syncx.QuizAttemptSubmitted])
	assert.Equal(t, 3, types[syncx.LessonCompleted])
	assert.Equal(t, 1, types[syncx.CertificateStatusChanged])
}

func TestQuestionsNeverCarryAnswers(t *testing.T) {
	ts := newTestServer(t)
	req, err := http.NewRequest(http.MethodGet, ts.URL+"/api/classwork/quizzes/"+classworktest.QuizIntro+"/questions", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+ts.token(t, classworktest.Student, rbac.RoleStudent))
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	for _, leak := range []string{"correct_answer", "explanation", "Go uses func."} {
		assert.NotContains(t, string(body), leak)
	}
}

func TestGrantAccess(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()
	instructor := ts.client(t, classworktest.Instructor, rbac.RoleInstructor)
	student := ts.client(t, classworktest.Student, rbac.RoleStudent)

	err := student.GrantLessonAccess(ctx, classworktest.CourseID, classworktest.Student, []string{classworktest.LessonSetup})
	assert.True(t, apperr.Is(err, apperr.KindForbidden))

	err = instructor.GrantLessonAccess(ctx, classworktest.CourseID, classworktest.Student, nil)
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	require.NoError(t, instructor.GrantLessonAccess(ctx, classworktest.CourseID, classworktest.Student, []string{classworktest.LessonSetup}))
	acc, err := student.GetCourseAccess(ctx, classworktest.CourseID, classworktest.Student)
	require.NoError(t, err)
	assert.False(t, acc.Enrolled)
	assert.ElementsMatch(t, []string{classworktest.LessonPreview, classworktest.LessonSetup}, acc.AllowedLessonIDs)
}

func TestBadTokenSignsClientOut(t *testing.T) {
	ts := newTestServer(t)
	s, err := client.NewSession(nil)
	require.NoError(t, err)
	require.NoError(t, s.SignIn("not-a-jwt", nil))
	forced := false
	defer s.Subscribe(func(ch client.Change) { forced = ch.Forced })()

	_, err = client.New(ts.URL, s).GetCertificatesOverview(context.Background())
	assert.True(t, apperr.Is(err, apperr.KindUnauthorized))
	assert.False(t, s.SignedIn())
	assert.True(t, forced)
}

func TestImportCourseRequiresManageCourse(t *testing.T) {
	ts := newTestServer(t)
	tree := classwork.CourseTree{Course: classwork.Course{ID: "c2", Slug: "rust", Title: "Rust", IsPublished: true}}
	body, err := json.Marshal(tree)
	require.NoError(t, err)

	post := func(tok string) int {
		req, _ := http.NewRequest(http.MethodPost, ts.URL+"/api/courses", bytes.NewReader(body))
		req.Header.Set("Authorization", "Bearer "+tok)
		req.Header.Set("Content-Type", "application/json")
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		resp.Body.Close()
		return resp.StatusCode
	}
	assert.Equal(t, http.StatusForbidden, post(ts.token(t, classworktest.Student, rbac.RoleStudent)))
	assert.Equal(t, http.StatusOK, post(ts.token(t, classworktest.Instructor, rbac.RoleInstructor)))

	courses, err := ts.client(t, "", "").ListCourses(context.Background())
	require.NoError(t, err)
	assert.Len(t, courses, 2)
}

func TestStoredRoleWinsOverTokenRole(t *testing.T) {
	ts := newTestServer(t)
	// A student holding a token that claims admin is still a student.
	c := ts.client(t, classworktest.Student, rbac.RoleAdmin)
	_, err := c.ListEnrollments(context.Background(), classwork.EnrollmentFilter{})
	assert.True(t, apperr.Is(err, apperr.KindForbidden))
}

func TestUploads(t *testing.T) {
	ts := newTestServer(t)
	_, err := ts.Service.ImportCourse(context.Background(), classworktest.Admin, classwork.CourseTree{
		Course: classwork.Course{ID: "paid", Slug: "paid", Title: "Paid only", IsPublished: true},
		Chapters: []classwork.ChapterImport{{Chapter: classwork.Chapter{
			ID: "p1", Title: "One", Lessons: []classwork.Lesson{{ID: "pl1", Title: "Locked"}},
		}}},
	})
	require.NoError(t, err)

	student := ts.token(t, classworktest.Student, rbac.RoleStudent)
	instructor := ts.token(t, classworktest.Instructor, rbac.RoleInstructor)

	upload := func(tok, courseID string) *http.Response {
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		require.NoError(t, mw.WriteField("course_id", courseID))
		fw, err := mw.CreateFormFile("file", "intro.md")
		require.NoError(t, err)
		_, _ = fw.Write([]byte("# Intro"))
		require.NoError(t, mw.Close())
		req, _ := http.NewRequest(http.MethodPost, ts.URL+"/api/uploads", &buf)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		req.Header.Set("Authorization", "Bearer "+tok)
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		return resp
	}
	stored := func(courseID string) string {
		resp := upload(instructor, courseID)
		defer resp.Body.Close()
		require.Equal(t, http.StatusCreated, resp.StatusCode)
		var out map[string]string
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
		assert.True(t, strings.HasSuffix(out["key"], "-intro.md"))
		return out["key"]
	}
	fetch := func(tok, key string) (int, string) {
		req, _ := http.NewRequest(http.MethodGet, ts.URL+"/api/uploads/"+key, nil)
		req.Header.Set("Authorization", "Bearer "+tok)
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()
		b, _ := io.ReadAll(resp.Body)
		return resp.StatusCode, string(b)
	}

	resp := upload(student, classworktest.CourseID)
	resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	// the student has preview access to the fixture course only
	open := stored(classworktest.CourseID)
	code, body := fetch(student, open)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "# Intro", body)

	locked := stored("paid")
	code, _ = fetch(student, locked)
	assert.Equal(t, http.StatusForbidden, code)
	code, body = fetch(instructor, locked)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "# Intro", body)

	code, _ = fetch(student, stored(""))
	assert.Equal(t, http.StatusForbidden, code, "material outside a course is staff only")

	code, _ = fetch(student, "courses/"+classworktest.CourseID+"/missing.txt")
	assert.Equal(t, http.StatusNotFound, code)
}
