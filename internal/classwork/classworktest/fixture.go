// Package classworktest holds a small course fixture shared by tests.
package classworktest

import (
	"context"
	"testing"

	"github.com/mind-engage/classwork/internal/classwork"
)

const (
	CourseID   = "course-go"
	CourseSlug = "go-basics"

	ChapterIntro = "ch-intro"
	ChapterTypes = "ch-types"
	ChapterExam  = "ch-exam"

	LessonPreview = "l-preview"
	LessonSetup   = "l-setup"
	LessonStructs = "l-structs"

	ClipHello   = "clip-hello"
	ClipTour    = "clip-tour"
	ClipInstall = "clip-install"

	QuizIntro = "quiz-intro"
	QuizEmpty = "quiz-empty"

	QuestionChoice = "q-choice"
	QuestionTF     = "q-tf"

	Student    = "u-student"
	Instructor = "u-instructor"
	Admin      = "u-admin"
)

func str(s string) *string { return &s }

func score(n int) *int { return &n }

// Course builds a published course with three chapters. The intro chapter
// has a free-preview lesson and a two-question quiz; the exam chapter has a
// quiz with no questions and no lessons.
func Course() classwork.CourseTree {
	return classwork.CourseTree{
		Course: classwork.Course{
			ID: CourseID, Slug: CourseSlug, Title: "Go Basics",
			ShortDescription: "Learn Go", PriceEUR: 49, PriceINR: 3999, IsPublished: true,
		},
		Chapters: []classwork.ChapterImport{
			{
				Chapter: classwork.Chapter{
					ID: ChapterTypes, Title: "Types", OrderIndex: 20,
					Lessons: []classwork.Lesson{
						{ID: LessonStructs, Title: "Structs", OrderIndex: 1, Notes: str("type T struct{}")},
					},
				},
			},
			{
				Chapter: classwork.Chapter{
					ID: ChapterIntro, Title: "Intro", OrderIndex: 10,
					Lessons: []classwork.Lesson{
						{ID: LessonSetup, Title: "Setup", OrderIndex: 2, VideoURL: str("https://video/setup"),
							Clips: []classwork.VideoClip{{ID: ClipInstall, Title: "Install Go", StartSeconds: 0, EndSeconds: score(90)}}},
						{ID: LessonPreview, Title: "Welcome", OrderIndex: 1, FreePreview: true,
							Clips: []classwork.VideoClip{
								{ID: ClipTour, Title: "Course tour", StartSeconds: 30, OrderIndex: 2, Notes: str("skip ahead")},
								{ID: ClipHello, Title: "Hello", StartSeconds: 0, EndSeconds: score(30), OrderIndex: 1},
							}},
					},
				},
				Quiz: &classwork.QuizImport{ID: QuizIntro, Title: "Intro quiz", PassingScore: score(70)},
				QuizQuestions: []classwork.QuestionImport{
					{
						QuestionView: classwork.QuestionView{
							ID: QuestionChoice, Text: "Which keyword declares a function?",
							Type: classwork.QuestionMultipleChoice, Options: []string{"fn", "func", "def"},
							Points: 1, OrderIndex: 1,
						},
						CorrectAnswer: "func", Explanation: str("Go uses func."),
					},
					{
						QuestionView: classwork.QuestionView{
							ID: QuestionTF, Text: "Go has generics.",
							Type: classwork.QuestionTrueFalse, Options: []string{"True", "False"},
							Points: 1, OrderIndex: 2,
						},
						CorrectAnswer: "True",
					},
				},
			},
			{
				Chapter: classwork.Chapter{
					ID: ChapterExam, Title: "Exam", OrderIndex: 30,
				},
				Quiz:          &classwork.QuizImport{ID: QuizEmpty, Title: "Final", PassingScore: score(80)},
				QuizQuestions: []classwork.QuestionImport{},
			},
		},
	}
}

// Seed stores the fixture course and three users, one per role.
func Seed(t testing.TB, s classwork.Store) {
	t.Helper()
	ctx := context.Background()
	if _, err := s.PutCourse(ctx, Course()); err != nil {
		t.Fatalf("seed course: %v", err)
	}
	for id, role := range map[string]string{Student: "student", Instructor: "instructor", Admin: "admin"} {
		u := classwork.User{ID: id, Email: id + "@example.com", FullName: id, Role: role, PasswordHash: "x"}
		if _, err := s.CreateUser(ctx, u); err != nil {
			t.Fatalf("seed user %s: %v", id, err)
		}
	}
}
