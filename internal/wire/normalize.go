package wire

import (
	"github.com/mind-engage/classwork/internal/classwork"
)

func User(d Doc) classwork.User {
	return classwork.User{
		ID:        d.Get("id").ID(),
		Email:     d.Get("email").String(""),
		FullName:  d.Get("full_name", "name").String(""),
		Role:      d.Get("role").String(""),
		CreatedAt: d.Get("created_at").Time(),
	}
}

func Course(d Doc) classwork.Course {
	return classwork.Course{
		ID:               d.Get("id").ID(),
		Slug:             d.Get("slug").String(""),
		Title:            d.Get("title").String(""),
		ShortDescription: d.Get("short_description").String(""),
		FullDescription:  d.Get("full_description", "description").String(""),
		PriceEUR:         d.Get("price_eur").Float(0),
		PriceINR:         d.Get("price_inr").Float(0),
		IsPublished:      d.Get("is_published").Bool(false),
		ClassroomURL:     d.Get("google_classroom_url").NullString(),
		ThumbnailURL:     d.Get("thumbnail_url").NullString(),
		PaymentLinkEUR:   d.Get("stripe_payment_link_eur").NullString(),
		PaymentLinkINR:   d.Get("stripe_payment_link_inr").NullString(),
		CreatedAt:        d.Get("created_at").Time(),
	}
}

func Lesson(d Doc) classwork.Lesson {
	return classwork.Lesson{
		ID:          d.Get("id").ID(),
		ChapterID:   d.Get("chapter_id").ID(),
		Title:       d.Get("title").String(""),
		Description: d.Get("description").NullString(),
		VideoURL:    d.Get("video_url").NullString(),
		NotebookURL: d.Get("colab_notebook_url").NullString(),
		Notes:       d.Get("notes_content", "notes").NullString(),
		OrderIndex:  d.Get("order_index").Int(0),
		FreePreview: d.Get("is_free_preview").Bool(false),
		Completed:   d.Get("completed").Bool(false),
	}
}

func VideoClip(d Doc) classwork.VideoClip {
	c := classwork.VideoClip{
		ID:           d.Get("id").ID(),
		LessonID:     d.Get("lesson_id").ID(),
		Title:        d.Get("title").String(""),
		StartSeconds: d.Get("start_seconds", "start").Int(0),
		Notes:        d.Get("notes").NullString(),
		OrderIndex:   d.Get("order_index").Int(0),
	}
	if v := d.Get("end_seconds", "end"); v.Present() {
		n := v.Int(0)
		c.EndSeconds = &n
	}
	return c
}

// Chapter reads the chapter's quiz either from a nested quiz object or from
// flat quiz_id, quiz_title and passing_score fields.
func Chapter(d Doc) classwork.Chapter {
	ch := classwork.Chapter{
		ID:          d.Get("id").ID(),
		CourseID:    d.Get("course_id").ID(),
		Title:       d.Get("title").String(""),
		Description: d.Get("description").NullString(),
		OrderIndex:  d.Get("order_index").Int(0),
		Lessons:     []classwork.Lesson{},
	}
	for _, l := range d.Get("lessons").List() {
		ch.Lessons = append(ch.Lessons, Lesson(l))
	}
	if q, ok := d.Get("quiz").Doc(); ok {
		quiz := Quiz(q)
		if quiz.ChapterID == "" {
			quiz.ChapterID = ch.ID
		}
		ch.Quiz = &quiz
	} else if id := d.Get("quiz_id").ID(); id != "" {
		ch.Quiz = &classwork.Quiz{
			ID:           id,
			ChapterID:    ch.ID,
			Title:        d.Get("quiz_title").String(""),
			PassingScore: d.Get("passing_score").Int(classwork.DefaultPassingScore),
		}
	}
	classwork.SortLessons(ch.Lessons)
	return ch
}

func Quiz(d Doc) classwork.Quiz {
	return classwork.Quiz{
		ID:           d.Get("id").ID(),
		ChapterID:    d.Get("chapter_id").ID(),
		Title:        d.Get("title").String(""),
		PassingScore: d.Get("passing_score").Int(classwork.DefaultPassingScore),
	}
}

// Question reads the learner-safe question shape. Answer fields are never
// read even when a backend sends them.
func Question(d Doc) classwork.QuestionView {
	return classwork.QuestionView{
		ID:         d.Get("id").ID(),
		QuizID:     d.Get("quiz_id").ID(),
		Text:       d.Get("question_text", "text").String(""),
		Type:       d.Get("question_type", "type").String(classwork.QuestionMultipleChoice),
		Options:    d.Get("options").Strings(),
		Points:     d.Get("points").Int(1),
		OrderIndex: d.Get("order_index").Int(0),
	}
}

func QuestionResult(d Doc) classwork.QuestionResult {
	return classwork.QuestionResult{
		QuestionID:    d.Get("question_id").ID(),
		QuestionText:  d.Get("question_text").String(""),
		UserAnswer:    d.Get("user_answer").String(""),
		CorrectAnswer: d.Get("correct_answer").String(""),
		Explanation:   d.Get("explanation").NullString(),
		IsCorrect:     d.Get("is_correct").Bool(false),
		Points:        d.Get("points").Int(1),
	}
}

// Submission falls back to score/max_score when no percentage is sent, and
// to comparing against passing_score when no passed flag is sent.
func Submission(d Doc) classwork.Submission {
	s := classwork.Submission{
		AttemptID:    d.Get("attempt_id", "id").ID(),
		Results:      []classwork.QuestionResult{},
		Score:        d.Get("score").Int(0),
		MaxScore:     d.Get("max_score").Int(0),
		PassingScore: d.Get("passing_score").Int(0),
	}
	for _, r := range d.Get("results").List() {
		s.Results = append(s.Results, QuestionResult(r))
	}
	if p := d.Get("percentage").NullFloat(); p != nil {
		s.Percentage = *p
	} else if s.MaxScore > 0 {
		s.Percentage = 100 * float64(s.Score) / float64(s.MaxScore)
	}
	if v := d.Get("passed"); v.Present() {
		s.Passed = v.Bool(false)
		s.PassReported = true
	} else if d.Get("passing_score").Present() {
		s.Passed = s.Percentage >= float64(s.PassingScore)
		s.PassReported = true
	}
	return s
}

func QuizAttempt(d Doc) classwork.QuizAttempt {
	a := classwork.QuizAttempt{
		ID:          d.Get("id").ID(),
		QuizID:      d.Get("quiz_id").ID(),
		UserID:      d.Get("user_id").ID(),
		Answers:     map[string]string{},
		Score:       d.Get("score").Int(0),
		MaxScore:    d.Get("max_score").Int(0),
		Percentage:  d.Get("percentage").Float(0),
		Passed:      d.Get("passed").Bool(false),
		StartedAt:   d.Get("started_at").Time(),
		CompletedAt: d.Get("completed_at").Time(),
	}
	if m, ok := d.Get("answers").Doc(); ok {
		for k := range m {
			a.Answers[k] = m.Get(k).String("")
		}
	}
	return a
}

func profile(d Doc) *classwork.Profile {
	p, ok := d.Get("profile").Doc()
	if !ok {
		return nil
	}
	return &classwork.Profile{
		FullName: p.Get("full_name").NullString(),
		Email:    p.Get("email").NullString(),
	}
}

func Certificate(d Doc) classwork.Certificate {
	c := classwork.Certificate{
		ID:                d.Get("id").ID(),
		UserID:            d.Get("user_id").ID(),
		CourseID:          d.Get("course_id").ID(),
		Status:            d.Get("status").String(classwork.CertificatePending),
		CertificateNumber: d.Get("certificate_number").NullString(),
		IssuedAt:          d.Get("issued_at").NullTime(),
		ApprovedBy:        d.Get("approved_by").NullString(),
		ApprovedAt:        d.Get("approved_at").NullTime(),
		CreatedAt:         d.Get("created_at").Time(),
		Profile:           profile(d),
	}
	if course, ok := d.Get("course").Doc(); ok {
		c.Course = &classwork.CourseSummary{
			Title: course.Get("title").String("Unknown"),
			Slug:  course.Get("slug").String(""),
		}
	}
	return c
}

func CourseCompletion(d Doc) classwork.CourseCompletion {
	return classwork.CourseCompletion{
		CourseID:         d.Get("course_id").ID(),
		CourseTitle:      d.Get("course_title").String(""),
		CourseSlug:       d.Get("course_slug").String(""),
		CompletedLessons: d.Get("completed_lessons").Int(0),
		TotalLessons:     d.Get("total_lessons").Int(0),
		IsComplete:       d.Get("is_complete").Bool(false),
		HasCertificate:   d.Get("has_certificate").Bool(false),
	}
}

func CertificatesOverview(d Doc) classwork.CertificatesOverview {
	out := classwork.CertificatesOverview{
		Certificates: []classwork.Certificate{},
		Completions:  []classwork.CourseCompletion{},
	}
	for _, c := range d.Get("certificates").List() {
		out.Certificates = append(out.Certificates, Certificate(c))
	}
	for _, c := range d.Get("completions", "course_completions").List() {
		out.Completions = append(out.Completions, CourseCompletion(c))
	}
	return out
}

// Enrollment keeps the payment status string as sent; only "completed"
// counts as paid.
func Enrollment(d Doc) classwork.Enrollment {
	e := classwork.Enrollment{
		ID:            d.Get("id").ID(),
		UserID:        d.Get("user_id").ID(),
		CourseID:      d.Get("course_id").ID(),
		PaymentStatus: d.Get("payment_status", "status").String(classwork.PaymentPending),
		PaymentMethod: d.Get("payment_method").NullString(),
		EnrolledAt:    d.Get("enrolled_at", "created_at").Time(),
		Profile:       profile(d),
	}
	if c, ok := d.Get("course").Doc(); ok {
		course := Course(c)
		e.Course = &course
	}
	if p, ok := d.Get("progress").Doc(); ok {
		e.Progress = &classwork.EnrollmentProgress{
			CompletedLessons: p.Get("completed_lessons").Int(0),
			TotalLessons:     p.Get("total_lessons").Int(0),
			Percent:          p.Get("percent").Float(0),
		}
	}
	return e
}

// Access defaults to no access: a payload without an enrolled flag is not
// an enrollment.
func Access(d Doc) classwork.Access {
	return classwork.Access{
		Enrolled:         d.Get("enrolled").Bool(false),
		AllowedLessonIDs: d.Get("allowed_lessons", "allowed_lesson_ids").Strings(),
	}
}

func LearningContent(d Doc) classwork.LearningContent {
	lc := classwork.LearningContent{
		Chapters:         []classwork.Chapter{},
		Enrolled:         d.Get("enrolled").Bool(false),
		AllowedLessonIDs: d.Get("allowed_lessons", "allowed_lesson_ids").Strings(),
	}
	if c, ok := d.Get("course").Doc(); ok {
		lc.Course = Course(c)
	}
	for _, ch := range d.Get("chapters").List() {
		lc.Chapters = append(lc.Chapters, Chapter(ch))
	}
	classwork.SortChapters(lc.Chapters)
	return lc
}
