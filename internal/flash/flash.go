// Package flash carries one-shot messages across a redirect in a signed
// cookie. Messages are grouped by category, e.g. "User.email".
package flash

import (
	"encoding/gob"
	"net/http"
	"sort"

	"github.com/gorilla/sessions"
)

const cookieName = "qa_flash"

type Message struct {
	Category string
	Text     string
}

func init() {
	gob.Register(Message{})
}

type Store struct {
	cookies *sessions.CookieStore
}

func New(secret []byte, secure bool) *Store {
	cs := sessions.NewCookieStore(secret)
	cs.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   300,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
	return &Store{cookies: cs}
}

// Add queues messages for the next request. It must run before the
// response header is written.
func (s *Store) Add(w http.ResponseWriter, r *http.Request, msgs ...Message) error {
	sess, _ := s.cookies.Get(r, cookieName)
	for _, m := range msgs {
		sess.AddFlash(m)
	}
	return sess.Save(r, w)
}

// AddMap queues one message per category, in category order.
func (s *Store) AddMap(w http.ResponseWriter, r *http.Request, byCategory map[string]string) error {
	cats := make([]string, 0, len(byCategory))
	for c := range byCategory {
		cats = append(cats, c)
	}
	sort.Strings(cats)
	msgs := make([]Message, len(cats))
	for i, c := range cats {
		msgs[i] = Message{Category: c, Text: byCategory[c]}
	}
	return s.Add(w, r, msgs...)
}

// Pop returns and clears the queued messages.
func (s *Store) Pop(w http.ResponseWriter, r *http.Request) []Message {
	sess, err := s.cookies.Get(r, cookieName)
	if err != nil {
		return nil
	}
	raw := sess.Flashes()
	if len(raw) == 0 {
		return nil
	}
	_ = sess.Save(r, w)
	out := make([]Message, 0, len(raw))
	for _, v := range raw {
		if m, ok := v.(Message); ok {
			out = append(out, m)
		}
	}
	return out
}

// Grouped indexes messages by category for templates.
func Grouped(msgs []Message) map[string][]string {
	out := make(map[string][]string, len(msgs))
	for _, m := range msgs {
		out[m.Category] = append(out[m.Category], m.Text)
	}
	return out
}
