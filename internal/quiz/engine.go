// Package quiz drives one learner's pass through a quiz: loading the
// learner-safe questions, collecting answers, submitting once, reviewing
// results and retrying.
package quiz

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/mind-engage/classwork/internal/apperr"
	"github.com/mind-engage/classwork/internal/classwork"
	"github.com/mind-engage/classwork/internal/grading"
)

// Backend is the part of the REST client the engine needs.
type Backend interface {
	GetQuizQuestions(ctx context.Context, quizID string) ([]classwork.QuestionView, error)
	SubmitQuizAttempt(ctx context.Context, quizID string, answers map[string]string) (classwork.Submission, error)
}

type State int

const (
	StateLoading State = iota
	StateInProgress
	StateSubmitting
	StateResults
	StateEmpty
	StateFailed
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateInProgress:
		return "in_progress"
	case StateSubmitting:
		return "submitting"
	case StateResults:
		return "results"
	case StateEmpty:
		return "empty"
	case StateFailed:
		return "failed"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

var (
	ErrSubmitInFlight = errors.New("quiz: a submission is already in flight")
	ErrWrongState     = errors.New("quiz: operation not allowed in this state")
	// ErrStale is returned to a caller whose request finished after the
	// engine moved on (closed, retried or reloaded). Its result was dropped.
	ErrStale = errors.New("quiz: result discarded")
)

type Engine struct {
	mu      sync.Mutex
	backend Backend
	quiz    classwork.Quiz

	state     State
	gen       uint64
	questions []classwork.QuestionView
	answers   map[string]string
	index     int
	result    *classwork.Submission
	err       error
}

func New(backend Backend, quiz classwork.Quiz) *Engine {
	return &Engine{backend: backend, quiz: quiz, state: StateLoading, answers: map[string]string{}}
}

func (e *Engine) wrongState(op string) error {
	return fmt.Errorf("%w: %s while %s", ErrWrongState, op, e.state)
}

// Load fetches the questions. A quiz without questions leaves the engine in
// StateEmpty and is not an error.
func (e *Engine) Load(ctx context.Context) error {
	e.mu.Lock()
	if e.state == StateClosed {
		e.mu.Unlock()
		return e.wrongState("load")
	}
	if e.state == StateSubmitting {
		e.mu.Unlock()
		return ErrSubmitInFlight
	}
	e.gen++
	gen := e.gen
	e.state = StateLoading
	e.err = nil
	e.mu.Unlock()

	qs, err := e.backend.GetQuizQuestions(ctx, e.quiz.ID)

	e.mu.Lock()
	defer e.mu.Unlock()
	if gen != e.gen {
		return ErrStale
	}
	switch {
	case apperr.Is(err, apperr.KindNotFound), err == nil && len(qs) == 0:
		e.state = StateEmpty
		return nil
	case err != nil:
		e.state = StateFailed
		e.err = err
		return err
	}
	e.questions = qs
	e.answers = map[string]string{}
	e.index = 0
	e.result = nil
	e.state = StateInProgress
	return nil
}

// Select records option as the answer to questionID. Last write wins.
func (e *Engine) Select(questionID, option string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != StateInProgress {
		return e.wrongState("select")
	}
	q, ok := e.question(questionID)
	if !ok {
		return apperr.Validation("unknown question", map[string]string{"question_id": questionID})
	}
	if err := checkOption(q, option); err != nil {
		return err
	}
	e.answers[questionID] = option
	return nil
}

// Answer selects option for the current question.
func (e *Engine) Answer(option string) error {
	e.mu.Lock()
	if e.state != StateInProgress {
		defer e.mu.Unlock()
		return e.wrongState("answer")
	}
	id := e.questions[e.index].ID
	e.mu.Unlock()
	return e.Select(id, option)
}

func checkOption(q classwork.QuestionView, option string) error {
	if option == "" {
		return apperr.Validation("an answer is required", map[string]string{q.ID: "required"})
	}
	if len(q.Options) == 0 {
		return nil
	}
	for _, o := range q.Options {
		if o == option {
			return nil
		}
	}
	return apperr.Validation("not one of the options", map[string]string{q.ID: "invalid option"})
}

func (e *Engine) question(id string) (classwork.QuestionView, bool) {
	for _, q := range e.questions {
		if q.ID == id {
			return q, true
		}
	}
	return classwork.QuestionView{}, false
}

func (e *Engine) answered(i int) bool {
	_, ok := e.answers[e.questions[i].ID]
	return ok
}

func (e *Engine) canNext() bool {
	return e.state == StateInProgress && e.index < len(e.questions)-1 && e.answered(e.index)
}

func (e *Engine) canPrev() bool {
	return e.state == StateInProgress && e.index > 0
}

func (e *Engine) canSubmit() bool {
	if e.state != StateInProgress || e.index != len(e.questions)-1 {
		return false
	}
	for i := range e.questions {
		if !e.answered(i) {
			return false
		}
	}
	return true
}

func (e *Engine) CanNext() bool   { e.mu.Lock(); defer e.mu.Unlock(); return e.canNext() }
func (e *Engine) CanPrev() bool   { e.mu.Lock(); defer e.mu.Unlock(); return e.canPrev() }
func (e *Engine) CanSubmit() bool { e.mu.Lock(); defer e.mu.Unlock(); return e.canSubmit() }

func (e *Engine) Next() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.canNext() {
		return e.wrongState("next")
	}
	e.index++
	return nil
}

func (e *Engine) Prev() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.canPrev() {
		return e.wrongState("prev")
	}
	e.index--
	return nil
}

// Submit sends every answer in one request. Only one submission may be in
// flight; on failure the engine returns to StateInProgress with the answers
// kept.
func (e *Engine) Submit(ctx context.Context) (classwork.Submission, error) {
	e.mu.Lock()
	if e.state == StateSubmitting {
		e.mu.Unlock()
		return classwork.Submission{}, ErrSubmitInFlight
	}
	if !e.canSubmit() {
		e.mu.Unlock()
		return classwork.Submission{}, apperr.Validation("answer every question before submitting", nil)
	}
	answers := make(map[string]string, len(e.answers))
	for k, v := range e.answers {
		answers[k] = v
	}
	e.state = StateSubmitting
	e.err = nil
	gen := e.gen
	e.mu.Unlock()

	sub, err := e.backend.SubmitQuizAttempt(ctx, e.quiz.ID, answers)

	e.mu.Lock()
	defer e.mu.Unlock()
	if gen != e.gen {
		return classwork.Submission{}, ErrStale
	}
	if err != nil {
		e.state = StateInProgress
		e.err = err
		return classwork.Submission{}, err
	}
	if !sub.PassReported {
		sub.PassingScore = e.quiz.PassingScore
		sub.Passed = grading.Passed(sub.Percentage, sub.PassingScore)
		sub.PassReported = true
	}
	e.result = &sub
	e.state = StateResults
	return sub, nil
}

// Retry starts over from the first question with no answers. The previous
// attempt stays recorded on the server.
func (e *Engine) Retry() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != StateResults {
		return e.wrongState("retry")
	}
	e.gen++
	e.answers = map[string]string{}
	e.index = 0
	e.result = nil
	e.err = nil
	e.state = StateInProgress
	return nil
}

// Close tears the engine down. Requests still in flight finish with
// ErrStale and leave no trace.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.gen++
	e.state = StateClosed
	e.answers = map[string]string{}
	e.result = nil
}

func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Passed reports the verdict of the last submission.
func (e *Engine) Passed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.result != nil && e.result.Passed
}

// RoundedPercentage is the score for display only.
func (e *Engine) RoundedPercentage() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.result == nil {
		return 0
	}
	return grading.Round(e.result.Percentage)
}

// View is a copy of the engine's state for rendering.
type View struct {
	State      State
	Quiz       classwork.Quiz
	Index      int
	Total      int
	Question   *classwork.QuestionView
	Selected   string
	Answered   int
	CanNext    bool
	CanPrev    bool
	CanSubmit  bool
	Submission *classwork.Submission
	Err        error
}

func (e *Engine) View() View {
	e.mu.Lock()
	defer e.mu.Unlock()
	v := View{
		State:     e.state,
		Quiz:      e.quiz,
		Index:     e.index,
		Total:     len(e.questions),
		Answered:  len(e.answers),
		CanNext:   e.canNext(),
		CanPrev:   e.canPrev(),
		CanSubmit: e.canSubmit(),
		Err:       e.err,
	}
	if e.state == StateInProgress || e.state == StateSubmitting {
		q := e.questions[e.index]
		q.Options = append([]string(nil), q.Options...)
		v.Question = &q
		v.Selected = e.answers[q.ID]
	}
	if e.result != nil {
		r := *e.result
		r.Results = append([]classwork.QuestionResult(nil), r.Results...)
		v.Submission = &r
	}
	return v
}
