package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mind-engage/classwork/internal/classwork"

	auth "github.com/mind-engage/classwork/internal/auth/middleware"
)

type enrollRequest struct {
	CourseID      string  `json:"course_id" validate:"required"`
	PaymentMethod *string `json:"payment_method"`
}

func EnrollHandler(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req enrollRequest
		if err := decode(w, r, &req); err != nil {
			writeError(w, r, d.log(), err)
			return
		}
		e, err := d.Service.Enroll(r.Context(), auth.SubjectFromContext(r.Context()), req.CourseID, req.PaymentMethod)
		if err != nil {
			writeError(w, r, d.log(), err)
			return
		}
		writeJSON(w, http.StatusCreated, e)
	}
}

func MyEnrollmentsHandler(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		es, err := d.Service.MyEnrollments(r.Context(), auth.SubjectFromContext(r.Context()))
		if err != nil {
			writeError(w, r, d.log(), err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"enrollments": es})
	}
}

func ListEnrollmentsHandler(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		es, err := d.Service.Enrollments(r.Context(), classwork.EnrollmentFilter{
			UserID:   q.Get("user_id"),
			CourseID: q.Get("course_id"),
			Status:   q.Get("status"),
		})
		if err != nil {
			writeError(w, r, d.log(), err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"enrollments": es})
	}
}

type enrollmentStatusRequest struct {
	PaymentStatus string `json:"payment_status" validate:"required"`
}

func UpdateEnrollmentHandler(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req enrollmentStatusRequest
		if err := decode(w, r, &req); err != nil {
			writeError(w, r, d.log(), err)
			return
		}
		e, err := d.Service.SetEnrollmentStatus(r.Context(), auth.SubjectFromContext(r.Context()),
			chi.URLParam(r, "enrollmentID"), req.PaymentStatus)
		if err != nil {
			writeError(w, r, d.log(), err)
			return
		}
		writeJSON(w, http.StatusOK, e)
	}
}
