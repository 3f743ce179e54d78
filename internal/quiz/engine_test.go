package quiz

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mind-engage/classwork/internal/apperr"
	"github.com/mind-engage/classwork/internal/classwork"
)

type fakeBackend struct {
	mu        sync.Mutex
	questions []classwork.QuestionView
	loadErr   error
	submitErr error
	result    classwork.Submission
	// gate, when set, holds SubmitQuizAttempt until it is closed.
	gate    chan struct{}
	entered chan struct{}
	submits []map[string]string
}

func (f *fakeBackend) GetQuizQuestions(_ context.Context, _ string) ([]classwork.QuestionView, error) {
	return f.questions, f.loadErr
}

func (f *fakeBackend) SubmitQuizAttempt(_ context.Context, _ string, answers map[string]string) (classwork.Submission, error) {
	f.mu.Lock()
	f.submits = append(f.submits, answers)
	f.mu.Unlock()
	if f.entered != nil {
		f.entered <- struct{}{}
	}
	if f.gate != nil {
		<-f.gate
	}
	return f.result, f.submitErr
}

func (f *fakeBackend) submitCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.submits)
}

func twoQuestions() []classwork.QuestionView {
	return []classwork.QuestionView{
		{ID: "q1", Text: "Keyword?", Type: classwork.QuestionMultipleChoice, Options: []string{"fn", "func"}, Points: 1},
		{ID: "q2", Text: "Typed?", Type: classwork.QuestionTrueFalse, Options: []string{"True", "False"}, Points: 1},
	}
}

func loaded(t *testing.T, b *fakeBackend) *Engine {
	t.Helper()
	e := New(b, classwork.Quiz{ID: "quiz-1", PassingScore: 70})
	require.NoError(t, e.Load(context.Background()))
	require.Equal(t, StateInProgress, e.State())
	return e
}

func answerAll(t *testing.T, e *Engine) {
	t.Helper()
	require.NoError(t, e.Answer("func"))
	require.NoError(t, e.Next())
	require.NoError(t, e.Answer("True"))
}

func TestNavigationGates(t *testing.T) {
	e := loaded(t, &fakeBackend{questions: twoQuestions()})

	assert.False(t, e.CanPrev())
	assert.False(t, e.CanNext(), "next is disabled until the current question is answered")
	assert.False(t, e.CanSubmit())
	assert.ErrorIs(t, e.Next(), ErrWrongState)

	require.NoError(t, e.Answer("fn"))
	require.NoError(t, e.Answer("func"))
	assert.Equal(t, "func", e.View().Selected)
	assert.True(t, e.CanNext())
	assert.False(t, e.CanSubmit(), "submit is only reachable from the last question")

	require.NoError(t, e.Next())
	assert.True(t, e.CanPrev())
	assert.False(t, e.CanSubmit())
	require.NoError(t, e.Answer("True"))
	assert.True(t, e.CanSubmit())

	require.NoError(t, e.Prev())
	assert.False(t, e.CanSubmit())
	assert.Equal(t, "q1", e.View().Question.ID)
}

func TestSelectValidation(t *testing.T) {
	e := loaded(t, &fakeBackend{questions: twoQuestions()})

	err := e.Select("nope", "x")
	assert.True(t, apperr.Is(err, apperr.KindValidation))
	err = e.Select("q1", "def")
	assert.True(t, apperr.Is(err, apperr.KindValidation))
	err = e.Select("q1", "")
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	require.NoError(t, e.Select("q2", "False"))
	assert.Equal(t, 1, e.View().Answered)
}

func TestSubmitBlockedUntilComplete(t *testing.T) {
	b := &fakeBackend{questions: twoQuestions()}
	e := loaded(t, b)
	require.NoError(t, e.Answer("func"))

	_, err := e.Submit(context.Background())
	assert.True(t, apperr.Is(err, apperr.KindValidation))
	assert.Equal(t, 0, b.submitCount(), "an incomplete quiz never reaches the server")
}

func TestSubmitAndPassedUsesUnroundedPercentage(t *testing.T) {
	b := &fakeBackend{questions: twoQuestions(), result: classwork.Submission{
		Score: 1, MaxScore: 2, Percentage: 69.6,
	}}
	e := loaded(t, b)
	answerAll(t, e)

	sub, err := e.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StateResults, e.State())
	assert.Equal(t, 70, sub.PassingScore)
	assert.False(t, sub.Passed)
	assert.False(t, e.Passed())
	assert.Equal(t, 70, e.RoundedPercentage())
	assert.Equal(t, map[string]string{"q1": "func", "q2": "True"}, b.submits[0])
}

func TestZeroPassingScoreIsKept(t *testing.T) {
	b := &fakeBackend{questions: twoQuestions(), result: classwork.Submission{Score: 0, MaxScore: 2}}
	e := New(b, classwork.Quiz{ID: "quiz-0", PassingScore: 0})
	require.NoError(t, e.Load(context.Background()))
	answerAll(t, e)

	sub, err := e.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, sub.PassingScore)
	assert.True(t, sub.Passed)
	assert.True(t, e.Passed())
}

func TestReportedVerdictIsTrusted(t *testing.T) {
	b := &fakeBackend{questions: twoQuestions(), result: classwork.Submission{
		Score: 0, MaxScore: 2, PassingScore: 0, Passed: true, PassReported: true,
	}}
	e := loaded(t, b)
	answerAll(t, e)

	sub, err := e.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, sub.PassingScore, "the quiz's own bar does not replace the reported one")
	assert.True(t, sub.Passed)
	assert.True(t, e.Passed())
}

func TestDoubleSubmitSendsOneRequest(t *testing.T) {
	b := &fakeBackend{
		questions: twoQuestions(),
		result:    classwork.Submission{Score: 2, MaxScore: 2, Percentage: 100},
		gate:      make(chan struct{}),
		entered:   make(chan struct{}, 1),
	}
	e := loaded(t, b)
	answerAll(t, e)

	done := make(chan error, 1)
	go func() {
		_, err := e.Submit(context.Background())
		done <- err
	}()
	<-b.entered
	assert.Equal(t, StateSubmitting, e.State())

	_, err := e.Submit(context.Background())
	assert.ErrorIs(t, err, ErrSubmitInFlight)
	assert.ErrorIs(t, e.Select("q1", "fn"), ErrWrongState)

	close(b.gate)
	require.NoError(t, <-done)
	assert.Equal(t, 1, b.submitCount())
	assert.True(t, e.Passed())
}

func TestSubmitFailureKeepsAnswers(t *testing.T) {
	b := &fakeBackend{questions: twoQuestions(), submitErr: apperr.New(apperr.KindTransport, "offline")}
	e := loaded(t, b)
	answerAll(t, e)

	_, err := e.Submit(context.Background())
	require.Error(t, err)
	v := e.View()
	assert.Equal(t, StateInProgress, v.State)
	assert.Equal(t, 2, v.Answered)
	assert.True(t, v.CanSubmit)
	assert.Error(t, v.Err)
}

func TestRetryResetsEverything(t *testing.T) {
	b := &fakeBackend{questions: twoQuestions(), result: classwork.Submission{Score: 2, MaxScore: 2, Percentage: 100}}
	e := loaded(t, b)
	assert.ErrorIs(t, e.Retry(), ErrWrongState)
	answerAll(t, e)
	_, err := e.Submit(context.Background())
	require.NoError(t, err)

	require.NoError(t, e.Retry())
	v := e.View()
	assert.Equal(t, StateInProgress, v.State)
	assert.Equal(t, 0, v.Index)
	assert.Equal(t, 0, v.Answered)
	assert.Nil(t, v.Submission)

	answerAll(t, e)
	_, err = e.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, b.submitCount(), "each pass is a new attempt")
}

func TestResultAfterCloseIsDiscarded(t *testing.T) {
	b := &fakeBackend{
		questions: twoQuestions(),
		result:    classwork.Submission{Score: 2, MaxScore: 2, Percentage: 100},
		gate:      make(chan struct{}),
		entered:   make(chan struct{}, 1),
	}
	e := loaded(t, b)
	answerAll(t, e)

	done := make(chan error, 1)
	go func() {
		_, err := e.Submit(context.Background())
		done <- err
	}()
	<-b.entered
	e.Close()
	close(b.gate)

	assert.ErrorIs(t, <-done, ErrStale)
	v := e.View()
	assert.Equal(t, StateClosed, v.State)
	assert.Nil(t, v.Submission)
	assert.False(t, e.Passed())
}

func TestLoadOutcomes(t *testing.T) {
	e := New(&fakeBackend{loadErr: apperr.NotFound("no questions")}, classwork.Quiz{ID: "q"})
	require.NoError(t, e.Load(context.Background()))
	assert.Equal(t, StateEmpty, e.State())

	e = New(&fakeBackend{}, classwork.Quiz{ID: "q"})
	require.NoError(t, e.Load(context.Background()))
	assert.Equal(t, StateEmpty, e.State())

	boom := errors.New("boom")
	e = New(&fakeBackend{loadErr: boom}, classwork.Quiz{ID: "q"})
	assert.ErrorIs(t, e.Load(context.Background()), boom)
	v := e.View()
	assert.Equal(t, StateFailed, v.State)
	assert.ErrorIs(t, v.Err, boom)
	assert.Nil(t, v.Question)
}

func TestViewIsACopy(t *testing.T) {
	e := loaded(t, &fakeBackend{questions: twoQuestions()})
	v := e.View()
	require.NotNil(t, v.Question)
	v.Question.Options[0] = "mutated"
	assert.Equal(t, "fn", e.View().Question.Options[0])
}
