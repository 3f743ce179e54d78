package grading

import (
	"math"

	"github.com/mind-engage/classwork/internal/classwork"
)

// Strategy decides whether one answer is correct for a question.
type Strategy interface {
	Correct(q classwork.Question, answer string) bool
}

// Outcome is the scored result of one submission.
type Outcome struct {
	Results    []classwork.QuestionResult
	Score      int
	MaxScore   int
	Percentage float64
	Passed     bool
}

// Grader routes by question type to the correct Strategy.
type Grader struct {
	strategies map[string]Strategy
	fallback   Strategy
}

type Option func(*config)

type config struct {
	MaxEditDistance int // short answers within this distance count as correct
}

func WithMaxEditDistance(n int) Option { return func(c *config) { c.MaxEditDistance = n } }

// NewGrader installs built-in strategies. Unknown question types use exact
// matching.
func NewGrader(opts ...Option) *Grader {
	cfg := &config{}
	for _, o := range opts {
		o(cfg)
	}
	return &Grader{
		strategies: map[string]Strategy{
			classwork.QuestionMultipleChoice: exactStrategy{},
			classwork.QuestionTrueFalse:      exactStrategy{},
			classwork.QuestionShortAnswer:    shortAnswerStrategy{maxEdit: cfg.MaxEditDistance},
		},
		fallback: exactStrategy{},
	}
}

func (g *Grader) strategy(typ string) Strategy {
	if s, ok := g.strategies[typ]; ok {
		return s
	}
	return g.fallback
}

// Score grades answers against the quiz's full question list. MaxScore
// counts every question; results only cover questions present in answers,
// and answers for unknown question ids are ignored.
func (g *Grader) Score(questions []classwork.Question, answers map[string]string, passingScore int) Outcome {
	out := Outcome{Results: []classwork.QuestionResult{}}
	for _, q := range questions {
		out.MaxScore += q.Points
		ans, ok := answers[q.ID]
		if !ok {
			continue
		}
		correct := g.strategy(q.Type).Correct(q, ans)
		if correct {
			out.Score += q.Points
		}
		out.Results = append(out.Results, classwork.QuestionResult{
			QuestionID:    q.ID,
			QuestionText:  q.Text,
			UserAnswer:    ans,
			CorrectAnswer: q.CorrectAnswer,
			Explanation:   q.Explanation,
			IsCorrect:     correct,
			Points:        q.Points,
		})
	}
	out.Percentage = Percentage(out.Score, out.MaxScore)
	out.Passed = Passed(out.Percentage, passingScore)
	return out
}

// Percentage is 100*raw/max, and 0 when max is 0.
func Percentage(raw, max int) float64 {
	if max <= 0 {
		return 0
	}
	return 100 * float64(raw) / float64(max)
}

// Passed compares the unrounded percentage, so 69.99 never passes a 70 bar.
func Passed(percentage float64, passingScore int) bool {
	return percentage >= float64(passingScore)
}

// Round is the presentational rounding used for display only.
func Round(percentage float64) int {
	return int(math.Round(percentage))
}

// --- Strategies ---

type exactStrategy struct{}

func (exactStrategy) Correct(q classwork.Question, answer string) bool {
	return answer == q.CorrectAnswer
}

type shortAnswerStrategy struct{ maxEdit int }

func (s shortAnswerStrategy) Correct(q classwork.Question, answer string) bool {
	want, got := normalize(q.CorrectAnswer), normalize(answer)
	if want == got {
		return true
	}
	if numericEqual(q.CorrectAnswer, answer) {
		return true
	}
	return s.maxEdit > 0 && editDistance(want, got) <= s.maxEdit
}
