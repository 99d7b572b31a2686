package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// roundTrip copies the cookies written to rec onto a new request.
func roundTrip(rec *httptest.ResponseRecorder) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/api/user/current", nil)
	for _, c := range rec.Result().Cookies() {
		req.AddCookie(c)
	}
	return req
}

func TestSessionStore_SetAndReadToken(t *testing.T) {
	store := NewSessionStore("session-secret", CookieSettings{Secure: false}, time.Hour)

	rec := httptest.NewRecorder()
	require.NoError(t, store.SetToken(rec, httptest.NewRequest(http.MethodPost, "/api/auth/signin", nil), "jwt-value"))

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, SessionName, cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)
	assert.Equal(t, 3600, cookies[0].MaxAge)

	token, ok := store.Token(roundTrip(rec))
	assert.True(t, ok)
	assert.Equal(t, "jwt-value", token)
}

func TestSessionStore_TamperedCookieReadsAsAbsent(t *testing.T) {
	issuer := NewSessionStore("session-secret", CookieSettings{}, time.Hour)
	other := NewSessionStore("different-secret", CookieSettings{}, time.Hour)

	rec := httptest.NewRecorder()
	require.NoError(t, issuer.SetToken(rec, httptest.NewRequest(http.MethodPost, "/", nil), "jwt-value"))

	_, ok := other.Token(roundTrip(rec))
	assert.False(t, ok)
}

func TestSessionStore_NoCookie(t *testing.T) {
	store := NewSessionStore("session-secret", CookieSettings{}, time.Hour)
	_, ok := store.Token(httptest.NewRequest(http.MethodGet, "/", nil))
	assert.False(t, ok)
}

func TestSessionStore_Clear(t *testing.T) {
	store := NewSessionStore("session-secret", CookieSettings{}, time.Hour)

	rec := httptest.NewRecorder()
	require.NoError(t, store.SetToken(rec, httptest.NewRequest(http.MethodPost, "/", nil), "jwt-value"))

	cleared := httptest.NewRecorder()
	require.NoError(t, store.Clear(cleared, roundTrip(rec)))

	cookies := cleared.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.True(t, cookies[0].MaxAge < 0)
}
