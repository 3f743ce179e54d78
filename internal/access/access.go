// Package access resolves a user's entitlement to a course and gates the
// course tree by it.
package access

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/mind-engage/classwork/internal/apperr"
	"github.com/mind-engage/classwork/internal/classwork"
)

// ErrAccessUnknown marks a resolution that failed. Callers must treat it as
// no access; the wrapped cause keeps its apperr kind.
var ErrAccessUnknown = errors.New("course access could not be resolved")

// Source reports a user's access to a course.
type Source interface {
	GetCourseAccess(ctx context.Context, courseID, userID string) (classwork.Access, error)
}

type SourceFunc func(ctx context.Context, courseID, userID string) (classwork.Access, error)

func (f SourceFunc) GetCourseAccess(ctx context.Context, courseID, userID string) (classwork.Access, error) {
	return f(ctx, courseID, userID)
}

type Resolver struct {
	src            Source
	allowAnonymous bool
}

type Option func(*Resolver)

// AllowAnonymous lets an empty user id through to the source, which answers
// with free-preview lessons only.
func AllowAnonymous() Option { return func(r *Resolver) { r.allowAnonymous = true } }

func NewResolver(src Source, opts ...Option) *Resolver {
	r := &Resolver{src: src}
	for _, o := range opts {
		o(r)
	}
	return r
}

// unknownError carries both ErrAccessUnknown and the underlying cause.
type unknownError struct{ cause error }

func (e *unknownError) Error() string   { return fmt.Sprintf("%v: %v", ErrAccessUnknown, e.cause) }
func (e *unknownError) Unwrap() []error { return []error{ErrAccessUnknown, e.cause} }

// Resolve returns the user's access. There is no default grant: any failure
// comes back as an error matching ErrAccessUnknown.
func (r *Resolver) Resolve(ctx context.Context, courseID, userID string) (classwork.Access, error) {
	if userID == "" && !r.allowAnonymous {
		return classwork.Access{}, &unknownError{cause: apperr.Unauthorized("sign in to view this course")}
	}
	acc, err := r.src.GetCourseAccess(ctx, courseID, userID)
	if err != nil {
		return classwork.Access{}, &unknownError{cause: err}
	}
	if userID == "" {
		acc.Enrolled = false
	}
	if acc.AllowedLessonIDs == nil {
		acc.AllowedLessonIDs = []string{}
	}
	return acc, nil
}

// Policy carries the switches of the gating rules.
type Policy struct {
	// PreviewCompletion lets lessons reached through the allow-list be
	// marked complete without a full enrollment.
	PreviewCompletion bool
}

func allowed(acc classwork.Access, lessonID string) bool {
	for _, id := range acc.AllowedLessonIDs {
		if id == lessonID {
			return true
		}
	}
	return false
}

func CanView(acc classwork.Access, lessonID string) bool {
	return acc.Enrolled || allowed(acc, lessonID)
}

func CanComplete(acc classwork.Access, lessonID string, p Policy) bool {
	return CanView(acc, lessonID) && (acc.Enrolled || p.PreviewCompletion)
}

func HasAnyAccess(acc classwork.Access) bool {
	return acc.Enrolled || len(acc.AllowedLessonIDs) > 0
}

// Gate returns the chapters as the user may see them: every lesson when
// enrolled, otherwise only allowed lessons. A chapter survives if it keeps a
// lesson or has a quiz. The input is not modified.
func Gate(chapters []classwork.Chapter, acc classwork.Access) []classwork.Chapter {
	out := make([]classwork.Chapter, 0, len(chapters))
	for _, ch := range chapters {
		visible := make([]classwork.Lesson, 0, len(ch.Lessons))
		for _, l := range ch.Lessons {
			if CanView(acc, l.ID) {
				visible = append(visible, l)
			}
		}
		if len(visible) == 0 && ch.Quiz == nil {
			continue
		}
		ch.Lessons = visible
		out = append(out, ch)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].OrderIndex < out[j].OrderIndex })
	return out
}

// ChapterVisible reports whether the chapter survives gating.
func ChapterVisible(ch classwork.Chapter, acc classwork.Access) bool {
	if ch.Quiz != nil {
		return true
	}
	for _, l := range ch.Lessons {
		if CanView(acc, l.ID) {
			return true
		}
	}
	return false
}

// Lessons flattens the gated tree in reading order.
func Lessons(chapters []classwork.Chapter) []classwork.Lesson {
	var out []classwork.Lesson
	for _, ch := range chapters {
		out = append(out, ch.Lessons...)
	}
	return out
}
