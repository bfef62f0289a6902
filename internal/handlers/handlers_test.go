package handlers

import (
	"context"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qaboard/internal/auth"
	"qaboard/internal/db"
	"qaboard/internal/flash"
	"qaboard/internal/models"
	"qaboard/internal/service"
	"qaboard/web"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	conn, err := db.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	require.NoError(t, db.Migrate(context.Background(), conn))

	tpls, err := web.Templates()
	require.NoError(t, err)

	h := New(
		service.New(models.NewStore(conn)),
		auth.NewManager(conn, time.Hour, false),
		flash.New([]byte("0123456789abcdef0123456789abcdef"), false),
		tpls,
	)
	srv := httptest.NewServer(h.Routes())
	t.Cleanup(srv.Close)
	return srv
}

// newClient keeps cookies and does not follow redirects.
func newClient(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

func get(t *testing.T, c *http.Client, u string) (*http.Response, string) {
	t.Helper()
	resp, err := c.Get(u)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(body)
}

func post(t *testing.T, c *http.Client, u string, form url.Values) *http.Response {
	t.Helper()
	resp, err := c.PostForm(u, form)
	require.NoError(t, err)
	resp.Body.Close()
	return resp
}

func registerUser(t *testing.T, srv *httptest.Server, c *http.Client, name string) {
	t.Helper()
	resp := post(t, c, srv.URL+"/users/register", url.Values{
		"username":         {name},
		"email":            {name + "@example.com"},
		"password":         {"password123"},
		"confirm_password": {"password123"},
	})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	require.Equal(t, "/dashboard", resp.Header.Get("Location"))
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t)
	resp, body := get(t, newClient(t), srv.URL+"/health")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "OK", body)
}

func TestUnauthenticatedRedirect(t *testing.T) {
	srv := newTestServer(t)
	c := newClient(t)
	for _, path := range []string{"/dashboard", "/questions/ask", "/questions/1", "/tags/go"} {
		resp, _ := get(t, c, srv.URL+path)
		assert.Equal(t, http.StatusSeeOther, resp.StatusCode, path)
		assert.Equal(t, "/", resp.Header.Get("Location"), path)
	}
}

func TestRegisterThenDashboard(t *testing.T) {
	srv := newTestServer(t)
	c := newClient(t)
	registerUser(t, srv, c, "ada")

	resp, body := get(t, c, srv.URL+"/dashboard")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Welcome, ada")

	resp, _ = get(t, c, srv.URL+"/")
	assert.Equal(t, "/dashboard", resp.Header.Get("Location"), "logged users skip the landing page")

	resp, _ = get(t, c, srv.URL+"/users/logout")
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	resp, _ = get(t, c, srv.URL+"/dashboard")
	assert.Equal(t, "/", resp.Header.Get("Location"))
}

func TestLoginFlow(t *testing.T) {
	srv := newTestServer(t)
	registerUser(t, srv, newClient(t), "ada")

	c := newClient(t)
	resp := post(t, c, srv.URL+"/users/login", url.Values{
		"login_email":    {"ada@example.com"},
		"login_password": {"password123"},
	})
	assert.Equal(t, "/dashboard", resp.Header.Get("Location"))
	resp, _ = get(t, c, srv.URL+"/dashboard")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestValidationIsFlashed(t *testing.T) {
	srv := newTestServer(t)
	c := newClient(t)

	resp := post(t, c, srv.URL+"/users/register", url.Values{
		"username": {"a"},
		"email":    {"nope"},
	})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	require.Equal(t, "/", resp.Header.Get("Location"))

	_, body := get(t, c, srv.URL+"/")
	assert.Contains(t, body, "Username must be at least 2 characters!")
	assert.Contains(t, body, "Must be a valid email!")

	_, body = get(t, c, srv.URL+"/")
	assert.NotContains(t, body, "Must be a valid email!", "flash messages show once")
}

func TestQuestionLifecycle(t *testing.T) {
	srv := newTestServer(t)
	ada := newClient(t)
	bob := newClient(t)
	registerUser(t, srv, ada, "ada")
	registerUser(t, srv, bob, "bob")

	resp := post(t, ada, srv.URL+"/questions/create", url.Values{
		"question":    {"How do I close a channel only once?"},
		"description": {"second close panics"},
		"tags":        {"go, channels"},
	})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	qURL := resp.Header.Get("Location")
	require.True(t, strings.HasPrefix(qURL, "/questions/"), qURL)

	resp = post(t, bob, srv.URL+qURL+"/answer", url.Values{"answer": {"Guard the close with a sync.Once value."}})
	assert.Equal(t, qURL, resp.Header.Get("Location"))

	resp, body := get(t, ada, srv.URL+qURL)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "How do I close a channel only once?")
	assert.Contains(t, body, "Guard the close with a sync.Once value.")
	assert.Contains(t, body, "/approve-answer/")

	resp, body = get(t, bob, srv.URL+"/tags/channels")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, qURL)

	resp, _ = get(t, bob, srv.URL+qURL+"/delete")
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp, _ = get(t, bob, srv.URL+qURL+"/edit")
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, _ = get(t, ada, srv.URL+qURL+"/delete")
	assert.Equal(t, "/dashboard", resp.Header.Get("Location"))
	resp, _ = get(t, ada, srv.URL+qURL)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestBadIDIsNotFound(t *testing.T) {
	srv := newTestServer(t)
	c := newClient(t)
	registerUser(t, srv, c, "ada")

	resp, _ := get(t, c, srv.URL+"/questions/abc")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp, _ = get(t, c, srv.URL+"/no/such/page")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestRecover(t *testing.T) {
	h := WithRecover(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
