package rbac

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseRoleCollapsesAliases(t *testing.T) {
	assert.Equal(t, RoleInstructor, ParseRole("Teacher"))
	assert.Equal(t, RoleInstructor, ParseRole("instructor"))
	assert.Equal(t, RoleAdmin, ParseRole(" ADMIN "))
	assert.Equal(t, RoleStudent, ParseRole("student"))
	assert.Equal(t, RoleNone, ParseRole("superuser"))
	assert.False(t, RoleNone.Valid())
}

func TestHasCapability(t *testing.T) {
	assert.True(t, HasCapability(RoleStudent, TakeQuiz))
	assert.False(t, HasCapability(RoleStudent, ReviewCertificates))
	assert.True(t, HasCapability(RoleInstructor, ReviewCertificates))
	assert.False(t, HasCapability(RoleInstructor, ManageEnrollments))
	assert.True(t, HasCapability(RoleAdmin, ManageEnrollments))
	assert.False(t, HasCapability(RoleNone, ViewCourse))
}

func TestWildcardPrefix(t *testing.T) {
	c := NewChecker(map[Role][]Capability{RoleInstructor: {"certificate:*"}})
	assert.True(t, c.Has(RoleInstructor, ReviewCertificates))
	assert.True(t, c.Has(RoleInstructor, RequestCertificate))
	assert.False(t, c.Has(RoleInstructor, TakeQuiz))
}

func TestRequireMiddleware(t *testing.T) {
	h := Require(ReviewCertificates)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodPut, "/certificates/1", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req.WithContext(WithRole(req.Context(), RoleStudent)))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req.WithContext(WithRole(req.Context(), RoleInstructor)))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRequireAnyMiddleware(t *testing.T) {
	h := RequireAny(ManageEnrollments, ReviewCertificates)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for role, want := range map[Role]int{
		RoleStudent:    http.StatusForbidden,
		RoleInstructor: http.StatusOK,
		RoleAdmin:      http.StatusOK,
		RoleNone:       http.StatusForbidden,
	} {
		req := httptest.NewRequest(http.MethodGet, "/enrollments", nil)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req.WithContext(WithRole(req.Context(), role)))
		assert.Equal(t, want, rec.Code, role)
	}
}
