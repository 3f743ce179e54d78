package learning

import (
	"context"

	"github.com/google/uuid"

	"github.com/mind-engage/classwork/internal/access"
	"github.com/mind-engage/classwork/internal/apperr"
	"github.com/mind-engage/classwork/internal/classwork"
	syncx "github.com/mind-engage/classwork/internal/sync"
)

// LearningContent returns the course tree gated by the viewer's access,
// with the viewer's completion flags flattened onto lessons. A viewer with
// no access at all gets Forbidden rather than an empty tree.
func (s *Service) LearningContent(ctx context.Context, slug, userID string) (classwork.LearningContent, error) {
	c, err := s.store.GetCourseBySlug(ctx, slug)
	if err != nil {
		return classwork.LearningContent{}, err
	}
	acc, err := s.CourseAccess(ctx, c.ID, userID)
	if err != nil {
		return classwork.LearningContent{}, err
	}
	if !access.HasAnyAccess(acc) {
		return classwork.LearningContent{}, apperr.Forbidden("enroll to access this course")
	}
	chapters, err := s.store.ListChapters(ctx, c.ID)
	if err != nil {
		return classwork.LearningContent{}, err
	}
	done, err := s.store.CompletedLessonIDs(ctx, userID, c.ID)
	if err != nil {
		return classwork.LearningContent{}, err
	}
	gated := access.Gate(chapters, acc)
	for i := range gated {
		for j := range gated[i].Lessons {
			gated[i].Lessons[j].Completed = done[gated[i].Lessons[j].ID]
		}
	}
	return classwork.LearningContent{
		Course:           c,
		Chapters:         gated,
		Enrolled:         acc.Enrolled,
		AllowedLessonIDs: acc.AllowedLessonIDs,
	}, nil
}

// CompleteLesson marks a lesson done for the user. It is idempotent.
func (s *Service) CompleteLesson(ctx context.Context, userID, lessonID string) error {
	ref, err := s.store.GetLesson(ctx, lessonID)
	if err != nil {
		return err
	}
	acc, err := s.CourseAccess(ctx, ref.CourseID, userID)
	if err != nil {
		return err
	}
	if !access.CanComplete(acc, lessonID, s.policy) {
		return apperr.Forbidden("lesson cannot be completed without enrollment")
	}
	if err := s.store.MarkLessonComplete(ctx, userID, lessonID); err != nil {
		return err
	}
	s.record(ctx, syncx.LessonCompleted, lessonID, map[string]string{
		"user_id": userID, "course_id": ref.CourseID,
	})
	return nil
}

// LessonClips lists a lesson's video clips for a user who may view it.
func (s *Service) LessonClips(ctx context.Context, userID, lessonID string) ([]classwork.VideoClip, error) {
	ref, err := s.store.GetLesson(ctx, lessonID)
	if err != nil {
		return nil, err
	}
	acc, err := s.CourseAccess(ctx, ref.CourseID, userID)
	if err != nil {
		return nil, err
	}
	if !access.CanView(acc, lessonID) {
		return nil, apperr.Forbidden("enroll to watch this lesson")
	}
	return s.store.ListLessonClips(ctx, lessonID)
}

// quizFor loads a quiz and checks that its chapter is visible to the user.
func (s *Service) quizFor(ctx context.Context, userID, quizID string) (classwork.Quiz, error) {
	ref, err := s.store.GetQuiz(ctx, quizID)
	if err != nil {
		return classwork.Quiz{}, err
	}
	acc, err := s.CourseAccess(ctx, ref.CourseID, userID)
	if err != nil {
		return classwork.Quiz{}, err
	}
	if !access.HasAnyAccess(acc) {
		return classwork.Quiz{}, apperr.Forbidden("enroll to take this quiz")
	}
	chapters, err := s.store.ListChapters(ctx, ref.CourseID)
	if err != nil {
		return classwork.Quiz{}, err
	}
	for _, ch := range chapters {
		if ch.ID == ref.Quiz.ChapterID && access.ChapterVisible(ch, acc) {
			return ref.Quiz, nil
		}
	}
	return classwork.Quiz{}, apperr.Forbidden("quiz is not available")
}

// QuizQuestions returns the learner-safe projection of the quiz questions.
func (s *Service) QuizQuestions(ctx context.Context, userID, quizID string) ([]classwork.QuestionView, error) {
	if _, err := s.quizFor(ctx, userID, quizID); err != nil {
		return nil, err
	}
	qs, err := s.store.ListQuestions(ctx, quizID)
	if err != nil {
		return nil, err
	}
	out := make([]classwork.QuestionView, 0, len(qs))
	for _, q := range qs {
		out = append(out, q.View())
	}
	return out, nil
}

// SubmitQuiz scores answers and appends a new attempt. Every call creates a
// distinct attempt.
func (s *Service) SubmitQuiz(ctx context.Context, userID, quizID string, answers map[string]string) (classwork.Submission, error) {
	if len(answers) == 0 {
		return classwork.Submission{}, apperr.Validation("answers are required", map[string]string{"answers": "required"})
	}
	quiz, err := s.quizFor(ctx, userID, quizID)
	if err != nil {
		return classwork.Submission{}, err
	}
	qs, err := s.store.ListQuestions(ctx, quizID)
	if err != nil {
		return classwork.Submission{}, err
	}
	if len(qs) == 0 {
		return classwork.Submission{}, apperr.NotFound("quiz has no questions")
	}
	passing := quiz.PassingScore

	kept := make(map[string]string, len(qs))
	for _, q := range qs {
		if a, ok := answers[q.ID]; ok {
			kept[q.ID] = a
		}
	}

	started := s.now()
	out := s.grader.Score(qs, kept, passing)
	attempt := classwork.QuizAttempt{
		ID:          uuid.NewString(),
		QuizID:      quizID,
		UserID:      userID,
		Answers:     kept,
		Score:       out.Score,
		MaxScore:    out.MaxScore,
		Percentage:  out.Percentage,
		Passed:      out.Passed,
		StartedAt:   started,
		CompletedAt: s.now(),
	}
	if err := s.store.AddAttempt(ctx, attempt); err != nil {
		return classwork.Submission{}, err
	}
	s.record(ctx, syncx.QuizAttemptSubmitted, attempt.ID, map[string]any{
		"user_id": userID, "quiz_id": quizID, "score": out.Score, "max_score": out.MaxScore,
		"percentage": out.Percentage, "passed": out.Passed,
	})
	s.log.Debug("quiz submitted", "quiz_id", quizID, "user_id", userID, "percentage", out.Percentage)

	return classwork.Submission{
		AttemptID:    attempt.ID,
		Results:      out.Results,
		Score:        out.Score,
		MaxScore:     out.MaxScore,
		Percentage:   out.Percentage,
		PassingScore: passing,
		Passed:       out.Passed,
		PassReported: true,
	}, nil
}

// QuizAttempts lists the user's own attempts, or everyone's when all is set.
func (s *Service) QuizAttempts(ctx context.Context, userID, quizID string, all bool) ([]classwork.QuizAttempt, error) {
	if _, err := s.store.GetQuiz(ctx, quizID); err != nil {
		return nil, err
	}
	if all {
		userID = ""
	}
	return s.store.ListAttempts(ctx, quizID, userID)
}
