package handlers_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"mess-o-midi-backend/internal/auth"
	"mess-o-midi-backend/internal/models"
)

func cookieNamed(w *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range w.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestAuth_GoogleLoginFlow(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodGet, "/auth/google/login", "", nil)
	require.Equal(t, http.StatusFound, w.Code)
	state := cookieNamed(w, "oauth_state")
	require.NotNil(t, state)
	assert.True(t, strings.HasSuffix(w.Header().Get("Location"), "state="+state.Value))

	req, _ := http.NewRequest(http.MethodGet, "/auth/google/callback?state="+state.Value+"&code=grace", nil)
	req.AddCookie(state)
	w = httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusFound, w.Code, w.Body.String())
	assert.Equal(t, "/", w.Header().Get("Location"))

	session := cookieNamed(w, auth.SessionCookie)
	require.NotNil(t, session)
	assert.True(t, session.HttpOnly)

	req, _ = http.NewRequest(http.MethodGet, "/api/v1/me", nil)
	req.AddCookie(session)
	w = httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	var me models.UserResponse
	decode(t, w, &me)
	assert.Equal(t, "grace@example.com", me.Email)
	assert.Equal(t, "free", me.Plan)
}

func TestAuth_CallbackRejectsStateMismatch(t *testing.T) {
	f := newFixture(t)

	req, _ := http.NewRequest(http.MethodGet, "/auth/google/callback?state=forged&code=x", nil)
	req.AddCookie(&http.Cookie{Name: "oauth_state", Value: "expected"})
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(t, http.MethodGet, "/auth/google/callback?state=x&code=x", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code, "no state cookie")
}

func TestAuth_Logout(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodPost, "/auth/logout", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	session := cookieNamed(w, auth.SessionCookie)
	require.NotNil(t, session)
	assert.Empty(t, session.Value)
	assert.True(t, session.MaxAge < 0)
}
