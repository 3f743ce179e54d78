package classwork

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mind-engage/classwork/internal/apperr"
	"github.com/mind-engage/classwork/internal/db"
)

type SQLStore struct {
	db *sql.DB
}

func NewSQLStore(conn *sql.DB) *SQLStore {
	return &SQLStore{db: conn}
}

type scanner interface {
	Scan(dest ...any) error
}

func nullStr(p *string) sql.NullString {
	if p == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *p, Valid: true}
}

func strPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func timePtr(n sql.NullInt64) *time.Time {
	if !n.Valid {
		return nil
	}
	t := time.Unix(n.Int64, 0).UTC()
	return &t
}

func unixPtr(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.Unix(), Valid: true}
}

func unix(t time.Time) time.Time { return time.Unix(t.Unix(), 0).UTC() }

func notFound(err error, what string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return apperr.NotFound(what + " not found")
	}
	return err
}

// ---------- users ----------

const userCols = `id, email, full_name, role, password_hash, created_at`

func scanUser(row scanner) (User, error) {
	var u User
	var created int64
	if err := row.Scan(&u.ID, &u.Email, &u.FullName, &u.Role, &u.PasswordHash, &created); err != nil {
		return User{}, err
	}
	u.CreatedAt = time.Unix(created, 0).UTC()
	return u, nil
}

func (s *SQLStore) CreateUser(ctx context.Context, u User) (User, error) {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now()
	}
	u.CreatedAt = unix(u.CreatedAt)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (`+userCols+`) VALUES ($1,$2,$3,$4,$5,$6)`,
		u.ID, u.Email, u.FullName, u.Role, u.PasswordHash, u.CreatedAt.Unix())
	if db.IsUniqueViolation(err) {
		return User{}, apperr.Conflict("email already registered")
	}
	if err != nil {
		return User{}, err
	}
	return u, nil
}

func (s *SQLStore) GetUser(ctx context.Context, id string) (User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx, `SELECT `+userCols+` FROM users WHERE id=$1`, id))
	return u, notFound(err, "user")
}

func (s *SQLStore) GetUserByEmail(ctx context.Context, email string) (User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx,
		`SELECT `+userCols+` FROM users WHERE email=$1`, strings.ToLower(strings.TrimSpace(email))))
	return u, notFound(err, "user")
}

func (s *SQLStore) UserRole(ctx context.Context, id string) (string, error) {
	var role string
	err := s.db.QueryRowContext(ctx, `SELECT role FROM users WHERE id=$1`, id).Scan(&role)
	return role, notFound(err, "user")
}

// ---------- catalog ----------

const courseCols = `id, slug, title, short_description, full_description, price_eur, price_inr,
	is_published, google_classroom_url, thumbnail_url, stripe_payment_link_eur, stripe_payment_link_inr, created_at`

func scanCourse(row scanner) (Course, error) {
	var c Course
	var classroom, thumb, eur, inr sql.NullString
	var created int64
	err := row.Scan(&c.ID, &c.Slug, &c.Title, &c.ShortDescription, &c.FullDescription,
		&c.PriceEUR, &c.PriceINR, &c.IsPublished, &classroom, &thumb, &eur, &inr, &created)
	if err != nil {
		return Course{}, err
	}
	c.ClassroomURL, c.ThumbnailURL = strPtr(classroom), strPtr(thumb)
	c.PaymentLinkEUR, c.PaymentLinkINR = strPtr(eur), strPtr(inr)
	c.CreatedAt = time.Unix(created, 0).UTC()
	return c, nil
}

func (s *SQLStore) PutCourse(ctx context.Context, tree CourseTree) (Course, error) {
	c := tree.Course
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}
	c.CreatedAt = unix(c.CreatedAt)

	err := db.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `INSERT INTO courses (`+courseCols+`)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
			ON CONFLICT (id) DO UPDATE SET slug=EXCLUDED.slug, title=EXCLUDED.title,
			  short_description=EXCLUDED.short_description, full_description=EXCLUDED.full_description,
			  price_eur=EXCLUDED.price_eur, price_inr=EXCLUDED.price_inr, is_published=EXCLUDED.is_published,
			  google_classroom_url=EXCLUDED.google_classroom_url, thumbnail_url=EXCLUDED.thumbnail_url,
			  stripe_payment_link_eur=EXCLUDED.stripe_payment_link_eur,
			  stripe_payment_link_inr=EXCLUDED.stripe_payment_link_inr`,
			c.ID, c.Slug, c.Title, c.ShortDescription, c.FullDescription, c.PriceEUR, c.PriceINR,
			c.IsPublished, nullStr(c.ClassroomURL), nullStr(c.ThumbnailURL),
			nullStr(c.PaymentLinkEUR), nullStr(c.PaymentLinkINR), c.CreatedAt.Unix())
		if err != nil {
			return err
		}
		for _, ch := range tree.Chapters {
			if err := putChapter(ctx, tx, c.ID, ch); err != nil {
				return err
			}
		}
		return nil
	})
	if db.IsUniqueViolation(err) {
		return Course{}, apperr.Conflict("course slug already in use")
	}
	if err != nil {
		return Course{}, err
	}
	return c, nil
}

func putChapter(ctx context.Context, tx *sql.Tx, courseID string, ch ChapterImport) error {
	if ch.ID == "" {
		ch.ID = uuid.NewString()
	}
	_, err := tx.ExecContext(ctx, `INSERT INTO chapters (id, course_id, title, description, order_index)
		VALUES ($1,$2,$3,$4,$5)
		ON CONFLICT (id) DO UPDATE SET course_id=EXCLUDED.course_id, title=EXCLUDED.title,
		  description=EXCLUDED.description, order_index=EXCLUDED.order_index`,
		ch.ID, courseID, ch.Title, nullStr(ch.Description), ch.OrderIndex)
	if err != nil {
		return fmt.Errorf("chapter %s: %w", ch.ID, err)
	}
	for _, l := range ch.Lessons {
		if l.ID == "" {
			l.ID = uuid.NewString()
		}
		_, err := tx.ExecContext(ctx, `INSERT INTO lessons (id, chapter_id, title, description, video_url,
			  colab_notebook_url, notes_content, order_index, is_free_preview)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
			ON CONFLICT (id) DO UPDATE SET chapter_id=EXCLUDED.chapter_id, title=EXCLUDED.title,
			  description=EXCLUDED.description, video_url=EXCLUDED.video_url,
			  colab_notebook_url=EXCLUDED.colab_notebook_url, notes_content=EXCLUDED.notes_content,
			  order_index=EXCLUDED.order_index, is_free_preview=EXCLUDED.is_free_preview`,
			l.ID, ch.ID, l.Title, nullStr(l.Description), nullStr(l.VideoURL), nullStr(l.NotebookURL),
			nullStr(l.Notes), l.OrderIndex, l.FreePreview)
		if err != nil {
			return fmt.Errorf("lesson %s: %w", l.ID, err)
		}
		if err := putClips(ctx, tx, l); err != nil {
			return err
		}
	}
	if ch.Quiz == nil {
		return nil
	}
	q := *ch.Quiz
	if q.ID == "" {
		q.ID = uuid.NewString()
	}
	passing := q.Passing(DefaultPassingScore)
	_, err = tx.ExecContext(ctx, `INSERT INTO quizzes (id, chapter_id, title, passing_score)
		VALUES ($1,$2,$3,$4)
		ON CONFLICT (id) DO UPDATE SET chapter_id=EXCLUDED.chapter_id, title=EXCLUDED.title,
		  passing_score=EXCLUDED.passing_score`,
		q.ID, ch.ID, q.Title, passing)
	if err != nil {
		return fmt.Errorf("quiz %s: %w", q.ID, err)
	}
	if ch.QuizQuestions == nil {
		return nil
	}
	// the imported question list replaces the stored one
	if _, err := tx.ExecContext(ctx, `DELETE FROM quiz_questions WHERE quiz_id=$1`, q.ID); err != nil {
		return err
	}
	// list position orders the questions only when none carries an index
	positional := true
	for _, qi := range ch.QuizQuestions {
		if qi.OrderIndex != 0 {
			positional = false
			break
		}
	}
	for i, qi := range ch.QuizQuestions {
		qq := qi.Question()
		if qq.ID == "" {
			qq.ID = uuid.NewString()
		}
		if qq.Type == "" {
			qq.Type = QuestionMultipleChoice
		}
		if qq.Points <= 0 {
			qq.Points = 1
		}
		if positional {
			qq.OrderIndex = i
		}
		opts := qq.Options
		if opts == nil {
			opts = []string{}
		}
		oj, _ := json.Marshal(opts)
		_, err := tx.ExecContext(ctx, `INSERT INTO quiz_questions (id, quiz_id, question_text, question_type,
			  options_json, correct_answer, explanation, points, order_index)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
			qq.ID, q.ID, qq.Text, qq.Type, string(oj), qq.CorrectAnswer, nullStr(qq.Explanation),
			qq.Points, qq.OrderIndex)
		if err != nil {
			return fmt.Errorf("question %s: %w", qq.ID, err)
		}
	}
	return nil
}

// putClips replaces a lesson's clips when the import lists any; a lesson
// imported without clips keeps the stored ones.
func putClips(ctx context.Context, tx *sql.Tx, l Lesson) error {
	if l.Clips == nil {
		return nil
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM lesson_clips WHERE lesson_id=$1`, l.ID); err != nil {
		return err
	}
	positional := true
	for _, c := range l.Clips {
		if c.OrderIndex != 0 {
			positional = false
			break
		}
	}
	for i, c := range l.Clips {
		if c.ID == "" {
			c.ID = uuid.NewString()
		}
		order := c.OrderIndex
		if positional {
			order = i
		}
		var end sql.NullInt64
		if c.EndSeconds != nil {
			end = sql.NullInt64{Int64: int64(*c.EndSeconds), Valid: true}
		}
		_, err := tx.ExecContext(ctx, `INSERT INTO lesson_clips (id, lesson_id, title, start_seconds,
			  end_seconds, notes, order_index)
			VALUES ($1,$2,$3,$4,$5,$6,$7)`,
			c.ID, l.ID, c.Title, c.StartSeconds, end, nullStr(c.Notes), order)
		if err != nil {
			return fmt.Errorf("clip %s: %w", c.ID, err)
		}
	}
	return nil
}

func (s *SQLStore) ListCourses(ctx context.Context, publishedOnly bool) ([]Course, error) {
	q := `SELECT ` + courseCols + ` FROM courses`
	var args []any
	if publishedOnly {
		q += ` WHERE is_published=$1`
		args = append(args, true)
	}
	q += ` ORDER BY created_at DESC, id`
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Course{}
	for rows.Next() {
		c, err := scanCourse(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *SQLStore) GetCourse(ctx context.Context, id string) (Course, error) {
	c, err := scanCourse(s.db.QueryRowContext(ctx, `SELECT `+courseCols+` FROM courses WHERE id=$1`, id))
	return c, notFound(err, "course")
}

func (s *SQLStore) GetCourseBySlug(ctx context.Context, slug string) (Course, error) {
	c, err := scanCourse(s.db.QueryRowContext(ctx, `SELECT `+courseCols+` FROM courses WHERE slug=$1`, slug))
	return c, notFound(err, "course")
}

const lessonCols = `l.id, l.chapter_id, l.title, l.description, l.video_url, l.colab_notebook_url,
	l.notes_content, l.order_index, l.is_free_preview`

func scanLesson(row scanner, extra ...any) (Lesson, error) {
	var l Lesson
	var desc, video, nb, notes sql.NullString
	dest := []any{&l.ID, &l.ChapterID, &l.Title, &desc, &video, &nb, &notes, &l.OrderIndex, &l.FreePreview}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return Lesson{}, err
	}
	l.Description, l.VideoURL, l.NotebookURL, l.Notes = strPtr(desc), strPtr(video), strPtr(nb), strPtr(notes)
	return l, nil
}

// ListChapters returns the course's chapters with lessons and quiz, both
// ordered by order index with ties broken by id.
func (s *SQLStore) ListChapters(ctx context.Context, courseID string) ([]Chapter, error) {
	chapters, err := s.chapters(ctx, courseID)
	if err != nil {
		return nil, err
	}
	idx := make(map[string]int, len(chapters))
	for i := range chapters {
		idx[chapters[i].ID] = i
	}

	lessons, err := s.courseLessons(ctx, courseID)
	if err != nil {
		return nil, err
	}
	for _, l := range lessons {
		if i, ok := idx[l.ChapterID]; ok {
			chapters[i].Lessons = append(chapters[i].Lessons, l)
		}
	}

	quizzes, err := s.courseQuizzes(ctx, courseID)
	if err != nil {
		return nil, err
	}
	for _, q := range quizzes {
		if i, ok := idx[q.ChapterID]; ok {
			q := q
			chapters[i].Quiz = &q
		}
	}
	return chapters, nil
}

func (s *SQLStore) chapters(ctx context.Context, courseID string) ([]Chapter, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, course_id, title, description, order_index
		FROM chapters WHERE course_id=$1 ORDER BY order_index, id`, courseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Chapter{}
	for rows.Next() {
		var ch Chapter
		var desc sql.NullString
		if err := rows.Scan(&ch.ID, &ch.CourseID, &ch.Title, &desc, &ch.OrderIndex); err != nil {
			return nil, err
		}
		ch.Description = strPtr(desc)
		ch.Lessons = []Lesson{}
		out = append(out, ch)
	}
	return out, rows.Err()
}

func (s *SQLStore) courseLessons(ctx context.Context, courseID string) ([]Lesson, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+lessonCols+`
		FROM lessons l JOIN chapters c ON c.id = l.chapter_id
		WHERE c.course_id=$1 ORDER BY l.order_index, l.id`, courseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Lesson
	for rows.Next() {
		l, err := scanLesson(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (s *SQLStore) courseQuizzes(ctx context.Context, courseID string) ([]Quiz, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT q.id, q.chapter_id, q.title, q.passing_score
		FROM quizzes q JOIN chapters c ON c.id = q.chapter_id WHERE c.course_id=$1`, courseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Quiz
	for rows.Next() {
		var q Quiz
		if err := rows.Scan(&q.ID, &q.ChapterID, &q.Title, &q.PassingScore); err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

func (s *SQLStore) GetLesson(ctx context.Context, id string) (LessonRef, error) {
	var ref LessonRef
	l, err := scanLesson(s.db.QueryRowContext(ctx, `SELECT `+lessonCols+`, c.course_id
		FROM lessons l JOIN chapters c ON c.id = l.chapter_id WHERE l.id=$1`, id), &ref.CourseID)
	if err != nil {
		return LessonRef{}, notFound(err, "lesson")
	}
	ref.Lesson = l
	return ref, nil
}

func (s *SQLStore) ListLessonClips(ctx context.Context, lessonID string) ([]VideoClip, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, lesson_id, title, start_seconds, end_seconds, notes, order_index
		FROM lesson_clips WHERE lesson_id=$1 ORDER BY order_index, id`, lessonID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []VideoClip{}
	for rows.Next() {
		var c VideoClip
		var end sql.NullInt64
		var notes sql.NullString
		if err := rows.Scan(&c.ID, &c.LessonID, &c.Title, &c.StartSeconds, &end, &notes, &c.OrderIndex); err != nil {
			return nil, err
		}
		if end.Valid {
			n := int(end.Int64)
			c.EndSeconds = &n
		}
		c.Notes = strPtr(notes)
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *SQLStore) GetQuiz(ctx context.Context, id string) (QuizRef, error) {
	var ref QuizRef
	err := s.db.QueryRowContext(ctx, `SELECT q.id, q.chapter_id, q.title, q.passing_score, c.course_id
		FROM quizzes q JOIN chapters c ON c.id = q.chapter_id WHERE q.id=$1`, id).
		Scan(&ref.Quiz.ID, &ref.Quiz.ChapterID, &ref.Quiz.Title, &ref.Quiz.PassingScore, &ref.CourseID)
	if err != nil {
		return QuizRef{}, notFound(err, "quiz")
	}
	return ref, nil
}

func (s *SQLStore) ListQuestions(ctx context.Context, quizID string) ([]Question, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, quiz_id, question_text, question_type, options_json,
		  correct_answer, explanation, points, order_index
		FROM quiz_questions WHERE quiz_id=$1 ORDER BY order_index, id`, quizID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Question{}
	for rows.Next() {
		var q Question
		var oj string
		var expl sql.NullString
		if err := rows.Scan(&q.ID, &q.QuizID, &q.Text, &q.Type, &oj, &q.CorrectAnswer, &expl,
			&q.Points, &q.OrderIndex); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(oj), &q.Options); err != nil {
			return nil, fmt.Errorf("question %s options: %w", q.ID, err)
		}
		if q.Options == nil {
			q.Options = []string{}
		}
		q.Explanation = strPtr(expl)
		out = append(out, q)
	}
	return out, rows.Err()
}

// ---------- access & progress ----------

// GetCourseAccess reports full access for a completed enrollment. Otherwise
// the allowed set is the course's free-preview lessons plus explicit grants.
// An empty userID is an anonymous viewer.
func (s *SQLStore) GetCourseAccess(ctx context.Context, courseID, userID string) (Access, error) {
	if _, err := s.GetCourse(ctx, courseID); err != nil {
		return Access{}, err
	}
	acc := Access{AllowedLessonIDs: []string{}}
	if userID != "" {
		e, err := s.FindEnrollment(ctx, userID, courseID)
		switch {
		case err == nil:
			acc.Enrolled = e.PaymentStatus == PaymentCompleted
		case !apperr.Is(err, apperr.KindNotFound):
			return Access{}, err
		}
	}
	rows, err := s.db.QueryContext(ctx, `SELECT l.id FROM lessons l JOIN chapters c ON c.id = l.chapter_id
		WHERE c.course_id=$1 AND (l.is_free_preview=$2 OR l.id IN (
		  SELECT g.lesson_id FROM lesson_access_grants g WHERE g.user_id=$3))
		ORDER BY l.id`, courseID, true, userID)
	if err != nil {
		return Access{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return Access{}, err
		}
		acc.AllowedLessonIDs = append(acc.AllowedLessonIDs, id)
	}
	return acc, rows.Err()
}

func (s *SQLStore) GrantLessons(ctx context.Context, userID, grantedBy string, lessonIDs []string) error {
	now := time.Now().Unix()
	return db.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		for _, id := range lessonIDs {
			_, err := tx.ExecContext(ctx, `INSERT INTO lesson_access_grants (user_id, lesson_id, granted_by, created_at)
				VALUES ($1,$2,$3,$4) ON CONFLICT (user_id, lesson_id) DO NOTHING`,
				userID, id, nullStr(&grantedBy), now)
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// MarkLessonComplete upserts the (user, lesson) progress row; repeated calls
// keep a single completed row.
func (s *SQLStore) MarkLessonComplete(ctx context.Context, userID, lessonID string) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO lesson_progress (user_id, lesson_id, completed, completed_at)
		VALUES ($1,$2,$3,$4)
		ON CONFLICT (user_id, lesson_id) DO UPDATE SET completed=EXCLUDED.completed`,
		userID, lessonID, true, time.Now().Unix())
	return err
}

func (s *SQLStore) CompletedLessonIDs(ctx context.Context, userID, courseID string) (map[string]bool, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT p.lesson_id FROM lesson_progress p
		JOIN lessons l ON l.id = p.lesson_id JOIN chapters c ON c.id = l.chapter_id
		WHERE p.user_id=$1 AND c.course_id=$2 AND p.completed=$3`, userID, courseID, true)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[string]bool{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out[id] = true
	}
	return out, rows.Err()
}

// ---------- attempts ----------

func (s *SQLStore) AddAttempt(ctx context.Context, a QuizAttempt) error {
	aj, err := json.Marshal(a.Answers)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO quiz_attempts (id, quiz_id, user_id, answers_json, score,
		  max_score, percentage, passed, started_at, completed_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		a.ID, a.QuizID, a.UserID, string(aj), a.Score, a.MaxScore, a.Percentage, a.Passed,
		a.StartedAt.Unix(), a.CompletedAt.Unix())
	return err
}

// ListAttempts returns attempts for a quiz, newest first. An empty userID
// lists every user's attempts.
func (s *SQLStore) ListAttempts(ctx context.Context, quizID, userID string) ([]QuizAttempt, error) {
	q := `SELECT id, quiz_id, user_id, answers_json, score, max_score, percentage, passed, started_at, completed_at
		FROM quiz_attempts WHERE quiz_id=$1`
	args := []any{quizID}
	if userID != "" {
		q += ` AND user_id=$2`
		args = append(args, userID)
	}
	q += ` ORDER BY completed_at DESC, id DESC`
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []QuizAttempt{}
	for rows.Next() {
		var a QuizAttempt
		var aj string
		var started, completed int64
		if err := rows.Scan(&a.ID, &a.QuizID, &a.UserID, &aj, &a.Score, &a.MaxScore, &a.Percentage,
			&a.Passed, &started, &completed); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(aj), &a.Answers); err != nil {
			a.Answers = map[string]string{}
		}
		a.StartedAt, a.CompletedAt = time.Unix(started, 0).UTC(), time.Unix(completed, 0).UTC()
		out = append(out, a)
	}
	return out, rows.Err()
}

// ---------- enrollments ----------

const enrollmentSelect = `SELECT e.id, e.user_id, e.course_id, e.payment_status, e.payment_method, e.enrolled_at,
	u.full_name, u.email, ` + courseJoinCols + `
	FROM enrollments e JOIN users u ON u.id = e.user_id JOIN courses k ON k.id = e.course_id`

const courseJoinCols = `k.id, k.slug, k.title, k.short_description, k.full_description, k.price_eur, k.price_inr,
	k.is_published, k.google_classroom_url, k.thumbnail_url, k.stripe_payment_link_eur, k.stripe_payment_link_inr, k.created_at`

type multiScanner struct {
	row    scanner
	prefix []any
}

// Scan feeds the prefix destinations and then dest to the underlying row.
func (m multiScanner) Scan(dest ...any) error {
	return m.row.Scan(append(append([]any{}, m.prefix...), dest...)...)
}

func scanEnrollment(row scanner) (Enrollment, error) {
	var e Enrollment
	var method sql.NullString
	var enrolled int64
	var name, email string
	c, err := scanCourse(multiScanner{row: row, prefix: []any{
		&e.ID, &e.UserID, &e.CourseID, &e.PaymentStatus, &method, &enrolled, &name, &email,
	}})
	if err != nil {
		return Enrollment{}, err
	}
	e.PaymentMethod = strPtr(method)
	e.EnrolledAt = time.Unix(enrolled, 0).UTC()
	e.Course = &c
	e.Profile = &Profile{FullName: &name, Email: &email}
	return e, nil
}

func (s *SQLStore) CreateEnrollment(ctx context.Context, e Enrollment) (Enrollment, error) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.PaymentStatus == "" {
		e.PaymentStatus = PaymentPending
	}
	if e.EnrolledAt.IsZero() {
		e.EnrolledAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO enrollments (id, user_id, course_id, payment_status, payment_method, enrolled_at)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		e.ID, e.UserID, e.CourseID, e.PaymentStatus, nullStr(e.PaymentMethod), e.EnrolledAt.Unix())
	if db.IsUniqueViolation(err) {
		return Enrollment{}, apperr.Conflict("already enrolled in this course")
	}
	if err != nil {
		return Enrollment{}, err
	}
	return s.GetEnrollment(ctx, e.ID)
}

func (s *SQLStore) GetEnrollment(ctx context.Context, id string) (Enrollment, error) {
	e, err := scanEnrollment(s.db.QueryRowContext(ctx, enrollmentSelect+` WHERE e.id=$1`, id))
	return e, notFound(err, "enrollment")
}

func (s *SQLStore) FindEnrollment(ctx context.Context, userID, courseID string) (Enrollment, error) {
	e, err := scanEnrollment(s.db.QueryRowContext(ctx,
		enrollmentSelect+` WHERE e.user_id=$1 AND e.course_id=$2`, userID, courseID))
	return e, notFound(err, "enrollment")
}

func (s *SQLStore) ListEnrollments(ctx context.Context, f EnrollmentFilter) ([]Enrollment, error) {
	var where []string
	var args []any
	add := func(col, v string) {
		if v == "" {
			return
		}
		args = append(args, v)
		where = append(where, fmt.Sprintf("%s=$%d", col, len(args)))
	}
	add("e.user_id", f.UserID)
	add("e.course_id", f.CourseID)
	add("e.payment_status", f.Status)

	q := enrollmentSelect
	if len(where) > 0 {
		q += ` WHERE ` + strings.Join(where, " AND ")
	}
	q += ` ORDER BY e.enrolled_at DESC, e.id`
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Enrollment{}
	for rows.Next() {
		e, err := scanEnrollment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *SQLStore) SetEnrollmentStatus(ctx context.Context, id, status string) (Enrollment, error) {
	res, err := s.db.ExecContext(ctx, `UPDATE enrollments SET payment_status=$1 WHERE id=$2`, status, id)
	if err != nil {
		return Enrollment{}, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return Enrollment{}, apperr.NotFound("enrollment not found")
	}
	return s.GetEnrollment(ctx, id)
}

// ---------- certificates ----------

const certificateSelect = `SELECT t.id, t.user_id, t.course_id, t.status, t.certificate_number, t.issued_at,
	t.approved_by, t.approved_at, t.created_at, k.title, k.slug, u.full_name, u.email
	FROM certificates t JOIN courses k ON k.id = t.course_id JOIN users u ON u.id = t.user_id`

func scanCertificate(row scanner) (Certificate, error) {
	var c Certificate
	var number, approvedBy sql.NullString
	var issued, approved sql.NullInt64
	var created int64
	var title, slug, name, email string
	if err := row.Scan(&c.ID, &c.UserID, &c.CourseID, &c.Status, &number, &issued, &approvedBy, &approved,
		&created, &title, &slug, &name, &email); err != nil {
		return Certificate{}, err
	}
	c.CertificateNumber, c.ApprovedBy = strPtr(number), strPtr(approvedBy)
	c.IssuedAt, c.ApprovedAt = timePtr(issued), timePtr(approved)
	c.CreatedAt = time.Unix(created, 0).UTC()
	c.Course = &CourseSummary{Title: title, Slug: slug}
	c.Profile = &Profile{FullName: &name, Email: &email}
	return c, nil
}

// CreateCertificate inserts a pending certificate. The (user, course) unique
// constraint decides duplicates, so concurrent requests leave one row.
func (s *SQLStore) CreateCertificate(ctx context.Context, c Certificate) (Certificate, error) {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.Status == "" {
		c.Status = CertificatePending
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO certificates (id, user_id, course_id, status, created_at)
		VALUES ($1,$2,$3,$4,$5)`, c.ID, c.UserID, c.CourseID, c.Status, c.CreatedAt.Unix())
	if db.IsUniqueViolation(err) {
		return Certificate{}, apperr.Conflict("certificate already requested for this course")
	}
	if err != nil {
		return Certificate{}, err
	}
	return s.GetCertificate(ctx, c.ID)
}

func (s *SQLStore) GetCertificate(ctx context.Context, id string) (Certificate, error) {
	c, err := scanCertificate(s.db.QueryRowContext(ctx, certificateSelect+` WHERE t.id=$1`, id))
	return c, notFound(err, "certificate")
}

func (s *SQLStore) ListCertificates(ctx context.Context, f CertificateFilter) ([]Certificate, error) {
	var where []string
	var args []any
	if f.UserID != "" {
		args = append(args, f.UserID)
		where = append(where, fmt.Sprintf("t.user_id=$%d", len(args)))
	}
	if f.Status != "" {
		args = append(args, f.Status)
		where = append(where, fmt.Sprintf("t.status=$%d", len(args)))
	}
	q := certificateSelect
	if len(where) > 0 {
		q += ` WHERE ` + strings.Join(where, " AND ")
	}
	q += ` ORDER BY t.created_at DESC, t.id`
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Certificate{}
	for rows.Next() {
		c, err := scanCertificate(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *SQLStore) TransitionCertificate(ctx context.Context, c Certificate, from string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE certificates SET status=$1, certificate_number=$2, issued_at=$3,
		  approved_by=$4, approved_at=$5
		WHERE id=$6 AND status=$7`,
		c.Status, nullStr(c.CertificateNumber), unixPtr(c.IssuedAt), nullStr(c.ApprovedBy), unixPtr(c.ApprovedAt),
		c.ID, from)
	if db.IsUniqueViolation(err) {
		return apperr.Conflict("certificate number collision")
	}
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		if _, err := s.GetCertificate(ctx, c.ID); err != nil {
			return err
		}
		return apperr.Conflict("certificate status changed concurrently")
	}
	return nil
}

// SortChapters orders chapters and their lessons by order index, ties by id.
func SortChapters(chapters []Chapter) {
	sort.SliceStable(chapters, func(i, j int) bool {
		if chapters[i].OrderIndex != chapters[j].OrderIndex {
			return chapters[i].OrderIndex < chapters[j].OrderIndex
		}
		return chapters[i].ID < chapters[j].ID
	})
	for i := range chapters {
		SortLessons(chapters[i].Lessons)
	}
}

func SortLessons(ls []Lesson) {
	sort.SliceStable(ls, func(a, b int) bool {
		if ls[a].OrderIndex != ls[b].OrderIndex {
			return ls[a].OrderIndex < ls[b].OrderIndex
		}
		return ls[a].ID < ls[b].ID
	})
}

func SortClips(cs []VideoClip) {
	sort.SliceStable(cs, func(a, b int) bool {
		if cs[a].OrderIndex != cs[b].OrderIndex {
			return cs[a].OrderIndex < cs[b].OrderIndex
		}
		return cs[a].ID < cs[b].ID
	})
}
