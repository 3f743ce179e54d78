package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mind-engage/classwork/internal/classwork"
	"github.com/mind-engage/classwork/internal/rbac"

	auth "github.com/mind-engage/classwork/internal/auth/middleware"
)

func ListCoursesHandler(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cs, err := d.Service.ListCourses(r.Context(), rbac.RoleFromContext(r.Context()))
		if err != nil {
			writeError(w, r, d.log(), err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"courses": cs})
	}
}

func CourseBySlugHandler(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		o, err := d.Service.CourseOutline(r.Context(), chi.URLParam(r, "slug"), rbac.RoleFromContext(r.Context()))
		if err != nil {
			writeError(w, r, d.log(), err)
			return
		}
		writeJSON(w, http.StatusOK, o)
	}
}

func ImportCourseHandler(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var tree classwork.CourseTree
		if err := decode(w, r, &tree); err != nil {
			writeError(w, r, d.log(), err)
			return
		}
		c, err := d.Service.ImportCourse(r.Context(), auth.SubjectFromContext(r.Context()), tree)
		if err != nil {
			writeError(w, r, d.log(), err)
			return
		}
		writeJSON(w, http.StatusOK, c)
	}
}

// CourseAccessHandler answers anonymous callers with free-preview lessons.
func CourseAccessHandler(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		acc, err := d.Service.CourseAccess(r.Context(), chi.URLParam(r, "courseID"), auth.SubjectFromContext(r.Context()))
		if err != nil {
			writeError(w, r, d.log(), err)
			return
		}
		writeJSON(w, http.StatusOK, acc)
	}
}

type grantRequest struct {
	UserID    string   `json:"user_id" validate:"required"`
	LessonIDs []string `json:"lesson_ids" validate:"required,min=1,dive,required"`
}

func GrantAccessHandler(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req grantRequest
		if err := decode(w, r, &req); err != nil {
			writeError(w, r, d.log(), err)
			return
		}
		err := d.Service.GrantLessonAccess(r.Context(), auth.SubjectFromContext(r.Context()),
			chi.URLParam(r, "courseID"), req.UserID, req.LessonIDs)
		if err != nil {
			writeError(w, r, d.log(), err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
