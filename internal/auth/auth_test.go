package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qaboard/internal/db"
	"qaboard/internal/orm"
)

func newTestDB(t *testing.T) *orm.DB {
	t.Helper()
	conn, err := db.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	require.NoError(t, db.Migrate(context.Background(), conn))

	_, err = conn.Exec(`INSERT INTO users(id,username,email,password,created_at,updated_at)
		VALUES(1,'ann','ann@example.com','x',?,?)`, time.Now().UTC(), time.Now().UTC())
	require.NoError(t, err)
	return conn
}

func login(t *testing.T, m *Manager, userID int64) *http.Cookie {
	t.Helper()
	rec := httptest.NewRecorder()
	require.NoError(t, m.Create(context.Background(), rec, userID))
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	return cookies[0]
}

func TestSessionLifecycle(t *testing.T) {
	m := NewManager(newTestDB(t), time.Hour, false)
	cookie := login(t, m, 1)
	assert.Equal(t, sessionCookie, cookie.Name)
	assert.True(t, cookie.HttpOnly)

	req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	req.AddCookie(cookie)
	uid, ok := m.CurrentUserID(req)
	assert.True(t, ok)
	assert.EqualValues(t, 1, uid)

	m.Destroy(httptest.NewRecorder(), req)
	_, ok = m.CurrentUserID(req)
	assert.False(t, ok)
}

func TestNewLoginEndsPreviousSession(t *testing.T) {
	m := NewManager(newTestDB(t), time.Hour, false)
	first := login(t, m, 1)
	login(t, m, 1)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(first)
	_, ok := m.CurrentUserID(req)
	assert.False(t, ok)
}

func TestNoCookie(t *testing.T) {
	m := NewManager(newTestDB(t), time.Hour, false)
	_, ok := m.CurrentUserID(httptest.NewRequest(http.MethodGet, "/", nil))
	assert.False(t, ok)
}

func TestExpiredSessions(t *testing.T) {
	m := NewManager(newTestDB(t), time.Hour, false)
	cookie := login(t, m, 1)

	later := time.Now().UTC().Add(2 * time.Hour)
	m.now = func() time.Time { return later }

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookie)
	_, ok := m.CurrentUserID(req)
	assert.False(t, ok)

	n, err := m.PurgeExpired(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestPasswordHelpers(t *testing.T) {
	hash, err := HashPassword("correct horse")
	require.NoError(t, err)
	assert.NotEqual(t, "correct horse", hash)
	assert.True(t, CheckPassword("correct horse", hash))
	assert.False(t, CheckPassword("wrong horse", hash))
}
