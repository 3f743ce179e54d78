package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mind-engage/classwork/internal/apperr"
	"github.com/mind-engage/classwork/internal/rbac"
)

type seenCtx struct {
	sub  string
	role rbac.Role
	hit  bool
}

func recordingHandler(s *seenCtx) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.hit = true
		s.sub = SubjectFromContext(r.Context())
		s.role = rbac.RoleFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})
}

func TestIssueAndParse(t *testing.T) {
	a := NewAuthService("secret", time.Hour)
	tok, err := a.IssueJWT("u1", rbac.RoleInstructor)
	require.NoError(t, err)

	c, err := a.Parse(tok)
	require.NoError(t, err)
	assert.Equal(t, "u1", c.Sub)
	assert.Equal(t, "instructor", c.Role)

	other := NewAuthService("different", time.Hour)
	_, err = other.Parse(tok)
	assert.Error(t, err)
}

func TestExpiredTokenRejected(t *testing.T) {
	a := NewAuthService("secret", time.Nanosecond)
	tok, err := a.IssueJWT("u1", rbac.RoleStudent)
	require.NoError(t, err)
	time.Sleep(time.Millisecond * 1100)
	_, err = a.Parse(tok)
	assert.Error(t, err)
}

func TestJWTMiddleware(t *testing.T) {
	a := NewAuthService("secret", time.Hour)
	tok, _ := a.IssueJWT("u1", rbac.RoleStudent)

	var seen seenCtx
	h := JWTMiddleware(a)(recordingHandler(&seen))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, seen.hit)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "u1", seen.sub)
	assert.Equal(t, rbac.RoleStudent, seen.role)
}

func TestOptionalJWT(t *testing.T) {
	a := NewAuthService("secret", time.Hour)
	var seen seenCtx
	h := OptionalJWT(a)(recordingHandler(&seen))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "", seen.sub)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

type fakeRoles map[string]string

func (f fakeRoles) UserRole(_ context.Context, id string) (string, error) {
	r, ok := f[id]
	if !ok {
		return "", apperr.NotFound("user not found")
	}
	return r, nil
}

func TestAttachRoleFromStore(t *testing.T) {
	a := NewAuthService("secret", time.Hour)
	var seen seenCtx
	h := JWTMiddleware(a)(AttachRoleFromStore(fakeRoles{"u1": "teacher"})(recordingHandler(&seen)))

	tok, _ := a.IssueJWT("u1", rbac.RoleStudent)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, rbac.RoleInstructor, seen.role)

	tok, _ = a.IssueJWT("ghost", rbac.RoleAdmin)
	req.Header.Set("Authorization", "Bearer "+tok)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestPasswordHashing(t *testing.T) {
	h, err := HashPassword("correct horse")
	require.NoError(t, err)
	assert.True(t, CheckPassword(h, "correct horse"))
	assert.False(t, CheckPassword(h, "wrong"))
}
