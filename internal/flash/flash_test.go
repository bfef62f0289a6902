package flash

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlashSurvivesRedirect(t *testing.T) {
	s := New([]byte("0123456789abcdef0123456789abcdef"), false)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/users/register", nil)
	require.NoError(t, s.AddMap(rec, req, map[string]string{
		"User.password": "Password must be at least 8 characters!",
		"User.email":    "Must be a valid email!",
	}))
	cookies := rec.Result().Cookies()
	require.NotEmpty(t, cookies)

	next := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range cookies {
		next.AddCookie(c)
	}
	msgs := s.Pop(httptest.NewRecorder(), next)
	assert.Equal(t, []Message{
		{Category: "User.email", Text: "Must be a valid email!"},
		{Category: "User.password", Text: "Password must be at least 8 characters!"},
	}, msgs)

	grouped := Grouped(msgs)
	assert.Equal(t, []string{"Must be a valid email!"}, grouped["User.email"])
}

func TestPopWithoutCookie(t *testing.T) {
	s := New([]byte("0123456789abcdef0123456789abcdef"), false)
	assert.Empty(t, s.Pop(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil)))
}
