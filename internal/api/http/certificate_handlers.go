package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	auth "github.com/mind-engage/classwork/internal/auth/middleware"
)

func CertificatesOverviewHandler(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		o, err := d.Service.CertificatesOverview(r.Context(), auth.SubjectFromContext(r.Context()))
		if err != nil {
			writeError(w, r, d.log(), err)
			return
		}
		writeJSON(w, http.StatusOK, o)
	}
}

type certificateRequest struct {
	CourseID string `json:"course_id" validate:"required"`
}

func RequestCertificateHandler(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req certificateRequest
		if err := decode(w, r, &req); err != nil {
			writeError(w, r, d.log(), err)
			return
		}
		c, err := d.Service.RequestCertificate(r.Context(), auth.SubjectFromContext(r.Context()), req.CourseID)
		if err != nil {
			writeError(w, r, d.log(), err)
			return
		}
		writeJSON(w, http.StatusCreated, c)
	}
}

func CertificateRequestsHandler(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cs, err := d.Service.CertificateRequests(r.Context(), r.URL.Query().Get("status"))
		if err != nil {
			writeError(w, r, d.log(), err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"certificates": cs})
	}
}

type certificateStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

func UpdateCertificateHandler(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req certificateStatusRequest
		if err := decode(w, r, &req); err != nil {
			writeError(w, r, d.log(), err)
			return
		}
		c, err := d.Service.UpdateCertificateStatus(r.Context(), auth.SubjectFromContext(r.Context()),
			chi.URLParam(r, "certificateID"), req.Status)
		if err != nil {
			writeError(w, r, d.log(), err)
			return
		}
		writeJSON(w, http.StatusOK, c)
	}
}
