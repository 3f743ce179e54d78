package http

import (
	"net/http"

	"github.com/mind-engage/classwork/internal/classwork"
	"github.com/mind-engage/classwork/internal/rbac"

	auth "github.com/mind-engage/classwork/internal/auth/middleware"
)

type registerRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	FullName string `json:"full_name"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type tokenResponse struct {
	Token string         `json:"token"`
	User  classwork.User `json:"user"`
}

func issue(d Deps, w http.ResponseWriter, r *http.Request, status int, u classwork.User) {
	tok, err := d.Auth.IssueJWT(u.ID, rbac.ParseRole(u.Role))
	if err != nil {
		writeError(w, r, d.log(), err)
		return
	}
	writeJSON(w, status, tokenResponse{Token: tok, User: u})
}

func RegisterHandler(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req registerRequest
		if err := decode(w, r, &req); err != nil {
			writeError(w, r, d.log(), err)
			return
		}
		u, err := d.Service.Register(r.Context(), req.Email, req.Password, req.FullName)
		if err != nil {
			writeError(w, r, d.log(), err)
			return
		}
		issue(d, w, r, http.StatusCreated, u)
	}
}

func LoginHandler(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req loginRequest
		if err := decode(w, r, &req); err != nil {
			writeError(w, r, d.log(), err)
			return
		}
		u, err := d.Service.Authenticate(r.Context(), req.Email, req.Password)
		if err != nil {
			writeError(w, r, d.log(), err)
			return
		}
		issue(d, w, r, http.StatusOK, u)
	}
}

func MeHandler(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		u, err := d.Service.Me(r.Context(), auth.SubjectFromContext(r.Context()))
		if err != nil {
			writeError(w, r, d.log(), err)
			return
		}
		writeJSON(w, http.StatusOK, u)
	}
}
