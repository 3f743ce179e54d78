package auth

import (
	"context"
	"errors"
	"net/http"

	"github.com/mind-engage/classwork/internal/apperr"
	"github.com/mind-engage/classwork/internal/rbac"
)

// RoleSource looks up the stored role of a user.
type RoleSource interface {
	UserRole(ctx context.Context, userID string) (string, error)
}

// AttachRoleFromStore replaces the role carried in the token with the one
// currently stored for the subject, so demotions take effect before the
// token expires. A subject that no longer exists is rejected.
func AttachRoleFromStore(src RoleSource) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			sub := SubjectFromContext(ctx)
			if sub == "" {
				next.ServeHTTP(w, r)
				return
			}
			role, err := src.UserRole(ctx, sub)
			switch {
			case err == nil:
				next.ServeHTTP(w, r.WithContext(rbac.WithRole(ctx, rbac.ParseRole(role))))
			case errors.Is(err, apperr.ErrNotFound):
				unauthorized(w, "unknown user")
			default:
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusInternalServerError)
				_, _ = w.Write([]byte(`{"message":"internal error"}`))
			}
		})
	}
}
