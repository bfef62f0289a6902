package auth

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"

	"qaboard/internal/orm"
)

const sessionCookie = "qa_session"

// Manager keeps login sessions in the sessions table and hands the
// session id to the browser in a cookie.
type Manager struct {
	db     *orm.DB
	maxAge time.Duration
	secure bool
	now    func() time.Time
}

func NewManager(db *orm.DB, maxAge time.Duration, secure bool) *Manager {
	return &Manager{db: db, maxAge: maxAge, secure: secure, now: func() time.Time { return time.Now().UTC() }}
}

// Create starts a session for userID, ending any previous one.
func (m *Manager) Create(ctx context.Context, w http.ResponseWriter, userID int64) error {
	id := uuid.New().String()
	expires := m.now().Add(m.maxAge)

	if _, err := m.db.ExecContext(ctx, m.db.Rebind(`DELETE FROM sessions WHERE user_id = ?`), userID); err != nil {
		return err
	}
	_, err := m.db.ExecContext(ctx, m.db.Rebind(`INSERT INTO sessions(id,user_id,expires_at) VALUES(?,?,?)`), id, userID, expires)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
		Expires:  expires,
	})
	return nil
}

func (m *Manager) Destroy(w http.ResponseWriter, r *http.Request) {
	c, _ := r.Cookie(sessionCookie)
	if c != nil && c.Value != "" {
		m.db.ExecContext(r.Context(), m.db.Rebind(`DELETE FROM sessions WHERE id = ?`), c.Value)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Expires:  time.Unix(0, 0),
	})
}

func (m *Manager) CurrentUserID(r *http.Request) (int64, bool) {
	c, err := r.Cookie(sessionCookie)
	if err != nil || c.Value == "" {
		return 0, false
	}
	var uid int64
	var exp time.Time
	err = m.db.QueryRowContext(r.Context(), m.db.Rebind(`SELECT user_id, expires_at FROM sessions WHERE id = ?`), c.Value).Scan(&uid, &exp)
	if err != nil || m.now().After(exp) {
		return 0, false
	}
	return uid, true
}

// PurgeExpired deletes sessions past their expiry.
func (m *Manager) PurgeExpired(ctx context.Context) (int64, error) {
	res, err := m.db.ExecContext(ctx, m.db.Rebind(`DELETE FROM sessions WHERE expires_at < ?`), m.now())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
