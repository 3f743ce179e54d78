package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mind-engage/classwork/internal/rbac"

	auth "github.com/mind-engage/classwork/internal/auth/middleware"
)

func LearningContentHandler(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		lc, err := d.Service.LearningContent(r.Context(), chi.URLParam(r, "slug"), auth.SubjectFromContext(r.Context()))
		if err != nil {
			writeError(w, r, d.log(), err)
			return
		}
		writeJSON(w, http.StatusOK, lc)
	}
}

func CompleteLessonHandler(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := d.Service.CompleteLesson(r.Context(), auth.SubjectFromContext(r.Context()), chi.URLParam(r, "lessonID")); err != nil {
			writeError(w, r, d.log(), err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func LessonClipsHandler(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		clips, err := d.Service.LessonClips(r.Context(), auth.SubjectFromContext(r.Context()), chi.URLParam(r, "lessonID"))
		if err != nil {
			writeError(w, r, d.log(), err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"clips": clips})
	}
}

func QuizQuestionsHandler(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		qs, err := d.Service.QuizQuestions(r.Context(), auth.SubjectFromContext(r.Context()), chi.URLParam(r, "quizID"))
		if err != nil {
			writeError(w, r, d.log(), err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"questions": qs})
	}
}

type submitRequest struct {
	Answers map[string]string `json:"answers" validate:"required,min=1"`
}

func SubmitQuizHandler(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req submitRequest
		if err := decode(w, r, &req); err != nil {
			writeError(w, r, d.log(), err)
			return
		}
		sub, err := d.Service.SubmitQuiz(r.Context(), auth.SubjectFromContext(r.Context()), chi.URLParam(r, "quizID"), req.Answers)
		if err != nil {
			writeError(w, r, d.log(), err)
			return
		}
		writeJSON(w, http.StatusOK, sub)
	}
}

// QuizAttemptsHandler lists the caller's attempts. Reviewers may pass
// all=1 to see everyone's.
func QuizAttemptsHandler(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		all := r.URL.Query().Get("all") == "1" && rbac.HasCapability(rbac.RoleFromContext(r.Context()), rbac.ViewAllAttempts)
		as, err := d.Service.QuizAttempts(r.Context(), auth.SubjectFromContext(r.Context()), chi.URLParam(r, "quizID"), all)
		if err != nil {
			writeError(w, r, d.log(), err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"attempts": as})
	}
}
