// Package console is the learner's view of one course: it resolves access
// before showing anything, gates the course tree, tracks the current lesson
// and hands out quiz engines.
package console

import (
	"context"
	"errors"
	"sync"

	"github.com/mind-engage/classwork/internal/access"
	"github.com/mind-engage/classwork/internal/apperr"
	"github.com/mind-engage/classwork/internal/classwork"
	"github.com/mind-engage/classwork/internal/logger"
	"github.com/mind-engage/classwork/internal/quiz"
)

// Backend is the REST client surface the console uses.
type Backend interface {
	access.Source
	quiz.Backend
	GetLearningContent(ctx context.Context, slug string) (classwork.LearningContent, error)
	MarkLessonComplete(ctx context.Context, lessonID string) error
	GetLessonClips(ctx context.Context, lessonID string) ([]classwork.VideoClip, error)
}

var (
	ErrLessonLocked = errors.New("console: lesson is locked")
	ErrNotOpen      = errors.New("console: no course is open")
	ErrStale        = errors.New("console: result discarded")
)

type Console struct {
	mu       sync.Mutex
	backend  Backend
	resolver *access.Resolver
	policy   access.Policy
	log      *logger.Logger
	userID   string

	gen      uint64
	open     bool
	course   classwork.Course
	acc      classwork.Access
	chapters []classwork.Chapter
	lessons  []classwork.Lesson
	clips    map[string][]classwork.VideoClip
	current  int
}

type Option func(*Console)

func WithPolicy(p access.Policy) Option  { return func(c *Console) { c.policy = p } }
func WithLogger(l *logger.Logger) Option { return func(c *Console) { c.log = l } }

func New(backend Backend, userID string, opts ...Option) *Console {
	c := &Console{
		backend:  backend,
		resolver: access.NewResolver(backend),
		log:      logger.Nop(),
		userID:   userID,
		current:  -1,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Open loads a course and the user's access to it. Nothing is exposed
// unless both succeed and the user may see at least one lesson; callers
// should send the user back to the dashboard on error.
func (c *Console) Open(ctx context.Context, slug string) error {
	c.mu.Lock()
	c.gen++
	gen := c.gen
	c.reset()
	c.mu.Unlock()

	lc, err := c.backend.GetLearningContent(ctx, slug)
	if err != nil {
		return err
	}
	acc, err := c.resolver.Resolve(ctx, lc.Course.ID, c.userID)
	if err != nil {
		c.log.Warn("course access unresolved", "course", slug, "error", err)
		return err
	}
	if !access.HasAnyAccess(acc) {
		return apperr.Forbidden("enroll to access this course")
	}

	chapters := access.Gate(lc.Chapters, acc)
	lessons := access.Lessons(chapters)

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		return ErrStale
	}
	c.open = true
	c.course = lc.Course
	c.acc = acc
	c.chapters = chapters
	c.lessons = lessons
	if len(lessons) > 0 {
		c.current = 0
	}
	return nil
}

// Close drops the open course. Requests still in flight are ignored when
// they finish.
func (c *Console) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	c.reset()
}

func (c *Console) reset() {
	c.open = false
	c.course = classwork.Course{}
	c.acc = classwork.Access{}
	c.chapters = nil
	c.lessons = nil
	c.clips = nil
	c.current = -1
}

// LessonView is an opened lesson and whether it may be marked complete.
// Clips stays nil until LoadClips has fetched them.
type LessonView struct {
	Lesson      classwork.Lesson
	CanComplete bool
	Clips       []classwork.VideoClip
}

func (c *Console) view(i int) LessonView {
	l := c.lessons[i]
	return LessonView{
		Lesson:      l,
		CanComplete: access.CanComplete(c.acc, l.ID, c.policy),
		Clips:       c.clips[l.ID],
	}
}

func (c *Console) indexOf(lessonID string) int {
	for i, l := range c.lessons {
		if l.ID == lessonID {
			return i
		}
	}
	return -1
}

// OpenLesson makes lessonID current. Lessons outside the user's access are
// never returned.
func (c *Console) OpenLesson(lessonID string) (LessonView, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.open {
		return LessonView{}, ErrNotOpen
	}
	i := c.indexOf(lessonID)
	if i < 0 || !access.CanView(c.acc, lessonID) {
		return LessonView{}, ErrLessonLocked
	}
	c.current = i
	return c.view(i), nil
}

// LoadClips fetches the video clips of a viewable lesson and returns its
// view with them attached.
func (c *Console) LoadClips(ctx context.Context, lessonID string) (LessonView, error) {
	c.mu.Lock()
	if !c.open {
		c.mu.Unlock()
		return LessonView{}, ErrNotOpen
	}
	if c.indexOf(lessonID) < 0 || !access.CanView(c.acc, lessonID) {
		c.mu.Unlock()
		return LessonView{}, ErrLessonLocked
	}
	gen := c.gen
	c.mu.Unlock()

	clips, err := c.backend.GetLessonClips(ctx, lessonID)
	if err != nil {
		return LessonView{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		return LessonView{}, ErrStale
	}
	if c.clips == nil {
		c.clips = map[string][]classwork.VideoClip{}
	}
	c.clips[lessonID] = clips
	return c.view(c.indexOf(lessonID)), nil
}

// Current returns the current lesson, if any.
func (c *Console) Current() (LessonView, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.open || c.current < 0 {
		return LessonView{}, false
	}
	return c.view(c.current), true
}

func (c *Console) Next() (LessonView, bool) { return c.step(1) }
func (c *Console) Prev() (LessonView, bool) { return c.step(-1) }

func (c *Console) step(d int) (LessonView, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.open || c.current < 0 {
		return LessonView{}, false
	}
	i := c.current + d
	if i < 0 || i >= len(c.lessons) {
		return LessonView{}, false
	}
	c.current = i
	return c.view(i), true
}

// CompleteLesson records the lesson as done, patches the local tree and
// moves on to the following lesson when there is one.
func (c *Console) CompleteLesson(ctx context.Context, lessonID string) error {
	c.mu.Lock()
	if !c.open {
		c.mu.Unlock()
		return ErrNotOpen
	}
	i := c.indexOf(lessonID)
	if i < 0 {
		c.mu.Unlock()
		return ErrLessonLocked
	}
	if !access.CanComplete(c.acc, lessonID, c.policy) {
		c.mu.Unlock()
		return apperr.Forbidden("enroll to track progress on this lesson")
	}
	gen := c.gen
	c.mu.Unlock()

	if err := c.backend.MarkLessonComplete(ctx, lessonID); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		return ErrStale
	}
	c.lessons[i].Completed = true
	for ci := range c.chapters {
		for li := range c.chapters[ci].Lessons {
			if c.chapters[ci].Lessons[li].ID == lessonID {
				c.chapters[ci].Lessons[li].Completed = true
			}
		}
	}
	if i+1 < len(c.lessons) {
		c.current = i + 1
	}
	return nil
}

// OpenQuiz returns an engine for the quiz of a visible chapter. The caller
// loads it.
func (c *Console) OpenQuiz(chapterID string) (*quiz.Engine, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.open {
		return nil, ErrNotOpen
	}
	for _, ch := range c.chapters {
		if ch.ID == chapterID {
			if ch.Quiz == nil {
				return nil, apperr.NotFound("this chapter has no quiz")
			}
			return quiz.New(c.backend, *ch.Quiz), nil
		}
	}
	return nil, ErrLessonLocked
}

// Outline is a copy of the gated tree for rendering.
type Outline struct {
	Course   classwork.Course
	Enrolled bool
	Chapters []classwork.Chapter
	Done     int
	Total    int
}

func (c *Console) Outline() (Outline, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.open {
		return Outline{}, false
	}
	o := Outline{Course: c.course, Enrolled: c.acc.Enrolled, Total: len(c.lessons)}
	o.Chapters = make([]classwork.Chapter, len(c.chapters))
	for i, ch := range c.chapters {
		ch.Lessons = append([]classwork.Lesson(nil), ch.Lessons...)
		o.Chapters[i] = ch
	}
	for _, l := range c.lessons {
		if l.Completed {
			o.Done++
		}
	}
	return o, true
}
