package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/urfave/cli/v2"

	"github.com/mind-engage/classwork/internal/apperr"
	"github.com/mind-engage/classwork/internal/classwork"
)

func TestPick(t *testing.T) {
	opts := []string{"fn", "func", "def"}
	assert.Equal(t, "func", pick(opts, "2"))
	assert.Equal(t, "def", pick(opts, " def "))
	assert.Equal(t, "9", pick(opts, "9"))
}

func TestFriendlyExitCodes(t *testing.T) {
	cases := map[apperr.Kind]int{
		apperr.KindConflict:     0,
		apperr.KindUnauthorized: 2,
		apperr.KindTransport:    3,
		apperr.KindForbidden:    1,
	}
	for kind, code := range cases {
		err := friendly(apperr.New(kind, "msg"))
		var ec cli.ExitCoder
		assert.ErrorAs(t, err, &ec)
		assert.Equal(t, code, ec.ExitCode(), kind.String())
	}
	assert.NoError(t, friendly(nil))
}

func TestPrintResults(t *testing.T) {
	var buf bytes.Buffer
	expl := "Go uses func."
	printResults(&buf, &classwork.Submission{
		Score: 1, MaxScore: 2, PassingScore: 70,
		Results: []classwork.QuestionResult{
			{QuestionText: "Keyword?", UserAnswer: "func", CorrectAnswer: "func", IsCorrect: true, Explanation: &expl},
			{QuestionText: "Generics?", UserAnswer: "False", CorrectAnswer: "True"},
		},
	}, 50, false)
	out := buf.String()
	assert.Contains(t, out, "Go uses func.")
	assert.True(t, strings.Contains(out, "Score 1/2 (50%), not passed (needs 70%)"), out)
}

func TestPrintClips(t *testing.T) {
	var buf bytes.Buffer
	end, notes := 95, "skip ahead"
	printClips(&buf, []classwork.VideoClip{
		{Title: "Hello", StartSeconds: 5, EndSeconds: &end},
		{Title: "Tour", StartSeconds: 125, Notes: &notes},
	})
	out := buf.String()
	assert.Contains(t, out, "0:05-1:35  Hello")
	assert.Contains(t, out, "2:05  Tour")
	assert.Contains(t, out, "skip ahead")

	buf.Reset()
	printClips(&buf, nil)
	assert.Empty(t, buf.String())
}
