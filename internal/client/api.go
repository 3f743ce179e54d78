package client

import (
	"context"
	"net/http"
	"net/url"

	"github.com/mind-engage/classwork/internal/apperr"
	"github.com/mind-engage/classwork/internal/classwork"
	"github.com/mind-engage/classwork/internal/wire"
)

func seg(s string) string { return url.PathEscape(s) }

// ---------- auth ----------

func (c *Client) signIn(d wire.Doc) (classwork.User, error) {
	tok := d.Get("token", "access_token").String("")
	if tok == "" {
		return classwork.User{}, apperr.New(apperr.KindTransport, "The server did not return a token.")
	}
	var user *classwork.User
	if ud, ok := d.Get("user").Doc(); ok {
		u := wire.User(ud)
		user = &u
	}
	if err := c.session.SignIn(tok, user); err != nil {
		c.log.Warn("token not persisted", "error", err)
	}
	if user == nil {
		return classwork.User{}, nil
	}
	return *user, nil
}

func (c *Client) Login(ctx context.Context, email, password string) (classwork.User, error) {
	d, err := c.sendDoc(ctx, http.MethodPost, "/auth/login", wire.Credentials(email, password))
	if err != nil {
		return classwork.User{}, err
	}
	return c.signIn(d)
}

func (c *Client) Register(ctx context.Context, email, password, fullName string) (classwork.User, error) {
	d, err := c.sendDoc(ctx, http.MethodPost, "/auth/register", wire.Registration(email, password, fullName))
	if err != nil {
		return classwork.User{}, err
	}
	return c.signIn(d)
}

// Logout only forgets the token; the server keeps no session state.
func (c *Client) Logout() error { return c.session.SignOut() }

func (c *Client) Me(ctx context.Context) (classwork.User, error) {
	d, err := c.getDoc(ctx, "/auth/me", nil)
	if err != nil {
		return classwork.User{}, err
	}
	if ud, ok := d.Get("user").Doc(); ok {
		d = ud
	}
	u := wire.User(d)
	c.session.setUser(u)
	return u, nil
}

// ---------- catalog and access ----------

func (c *Client) ListCourses(ctx context.Context) ([]classwork.Course, error) {
	docs, err := c.getList(ctx, "/api/courses", "courses", nil)
	if err != nil {
		return nil, err
	}
	out := make([]classwork.Course, 0, len(docs))
	for _, d := range docs {
		out = append(out, wire.Course(d))
	}
	return out, nil
}

// GetCourseBySlug returns the public outline of a course. Lesson content is
// not part of it.
func (c *Client) GetCourseBySlug(ctx context.Context, slug string) (classwork.Course, []classwork.Chapter, error) {
	d, err := c.getDoc(ctx, "/api/courses/slug/"+seg(slug), nil)
	if err != nil {
		return classwork.Course{}, nil, err
	}
	lc := wire.LearningContent(d)
	if _, nested := d.Get("course").Doc(); !nested {
		lc.Course = wire.Course(d)
	}
	return lc.Course, lc.Chapters, nil
}

// GetCourseAccess asks the server for the signed-in user's access. The
// server identifies the user from the token, so userID is only checked for
// presence.
func (c *Client) GetCourseAccess(ctx context.Context, courseID, userID string) (classwork.Access, error) {
	if userID != "" && !c.session.SignedIn() {
		return classwork.Access{}, apperr.Unauthorized("Please sign in.")
	}
	d, err := c.getDoc(ctx, "/api/courses/"+seg(courseID)+"/access", nil)
	if err != nil {
		return classwork.Access{}, err
	}
	return wire.Access(d), nil
}

func (c *Client) GrantLessonAccess(ctx context.Context, courseID, userID string, lessonIDs []string) error {
	_, err := c.do(ctx, http.MethodPost, "/api/courses/"+seg(courseID)+"/access-grants", wire.LessonGrant(userID, lessonIDs), nil)
	return err
}

// ---------- learning ----------

func (c *Client) GetLearningContent(ctx context.Context, slug string) (classwork.LearningContent, error) {
	d, err := c.getDoc(ctx, "/api/classwork/courses/"+seg(slug), nil)
	if err != nil {
		return classwork.LearningContent{}, err
	}
	return wire.LearningContent(d), nil
}

func (c *Client) MarkLessonComplete(ctx context.Context, lessonID string) error {
	_, err := c.do(ctx, http.MethodPost, "/api/classwork/lessons/"+seg(lessonID)+"/complete", nil, nil)
	return err
}

func (c *Client) GetLessonClips(ctx context.Context, lessonID string) ([]classwork.VideoClip, error) {
	docs, err := c.getList(ctx, "/api/classwork/lessons/"+seg(lessonID)+"/clips", "clips", nil)
	if err != nil {
		return nil, err
	}
	out := make([]classwork.VideoClip, 0, len(docs))
	for _, d := range docs {
		out = append(out, wire.VideoClip(d))
	}
	classwork.SortClips(out)
	return out, nil
}

func (c *Client) GetQuizQuestions(ctx context.Context, quizID string) ([]classwork.QuestionView, error) {
	docs, err := c.getList(ctx, "/api/classwork/quizzes/"+seg(quizID)+"/questions", "questions", nil)
	if err != nil {
		return nil, err
	}
	out := make([]classwork.QuestionView, 0, len(docs))
	for _, d := range docs {
		out = append(out, wire.Question(d))
	}
	return out, nil
}

func (c *Client) SubmitQuizAttempt(ctx context.Context, quizID string, answers map[string]string) (classwork.Submission, error) {
	d, err := c.sendDoc(ctx, http.MethodPost, "/api/classwork/quizzes/"+seg(quizID)+"/submit", wire.Answers(answers))
	if err != nil {
		return classwork.Submission{}, err
	}
	return wire.Submission(d), nil
}

func (c *Client) ListQuizAttempts(ctx context.Context, quizID string) ([]classwork.QuizAttempt, error) {
	docs, err := c.getList(ctx, "/api/classwork/quizzes/"+seg(quizID)+"/attempts", "attempts", nil)
	if err != nil {
		return nil, err
	}
	out := make([]classwork.QuizAttempt, 0, len(docs))
	for _, d := range docs {
		out = append(out, wire.QuizAttempt(d))
	}
	return out, nil
}

// ---------- certificates ----------

func (c *Client) GetCertificatesOverview(ctx context.Context) (classwork.CertificatesOverview, error) {
	d, err := c.getDoc(ctx, "/api/classwork/certificates", nil)
	if err != nil {
		return classwork.CertificatesOverview{}, err
	}
	return wire.CertificatesOverview(d), nil
}

func (c *Client) RequestCertificate(ctx context.Context, courseID string) (classwork.Certificate, error) {
	d, err := c.sendDoc(ctx, http.MethodPost, "/api/classwork/certificates", wire.CertificateRequest(courseID))
	if err != nil {
		return classwork.Certificate{}, err
	}
	return wire.Certificate(d), nil
}

func (c *Client) ListCertificateRequests(ctx context.Context, status string) ([]classwork.Certificate, error) {
	docs, err := c.getList(ctx, "/api/classwork/certificates/requests", "certificates", map[string]string{"status": status})
	if err != nil {
		return nil, err
	}
	out := make([]classwork.Certificate, 0, len(docs))
	for _, d := range docs {
		out = append(out, wire.Certificate(d))
	}
	return out, nil
}

func (c *Client) UpdateCertificateStatus(ctx context.Context, certificateID, status string) (classwork.Certificate, error) {
	d, err := c.sendDoc(ctx, http.MethodPut, "/api/classwork/certificates/"+seg(certificateID), wire.CertificateStatus(status))
	if err != nil {
		return classwork.Certificate{}, err
	}
	return wire.Certificate(d), nil
}

// ---------- enrollments ----------

func (c *Client) CreateEnrollment(ctx context.Context, courseID string, method *string) (classwork.Enrollment, error) {
	d, err := c.sendDoc(ctx, http.MethodPost, "/api/enrollments", wire.EnrollmentRequest(courseID, method))
	if err != nil {
		return classwork.Enrollment{}, err
	}
	return wire.Enrollment(d), nil
}

func (c *Client) ListMyEnrollments(ctx context.Context) ([]classwork.Enrollment, error) {
	return c.enrollments(ctx, "/api/enrollments/me", nil)
}

func (c *Client) ListEnrollments(ctx context.Context, f classwork.EnrollmentFilter) ([]classwork.Enrollment, error) {
	return c.enrollments(ctx, "/api/enrollments", map[string]string{
		"user_id": f.UserID, "course_id": f.CourseID, "status": f.Status,
	})
}

func (c *Client) enrollments(ctx context.Context, path string, query map[string]string) ([]classwork.Enrollment, error) {
	docs, err := c.getList(ctx, path, "enrollments", query)
	if err != nil {
		return nil, err
	}
	out := make([]classwork.Enrollment, 0, len(docs))
	for _, d := range docs {
		out = append(out, wire.Enrollment(d))
	}
	return out, nil
}

func (c *Client) UpdateEnrollmentStatus(ctx context.Context, enrollmentID, status string) (classwork.Enrollment, error) {
	d, err := c.sendDoc(ctx, http.MethodPut, "/api/enrollments/"+seg(enrollmentID), wire.EnrollmentStatus(status))
	if err != nil {
		return classwork.Enrollment{}, err
	}
	return wire.Enrollment(d), nil
}
