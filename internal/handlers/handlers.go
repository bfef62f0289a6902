package handlers

import (
	"bytes"
	"context"
	"errors"
	"html/template"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"qaboard/internal/auth"
	"qaboard/internal/flash"
	"qaboard/internal/orm"
	"qaboard/internal/service"
	"qaboard/web"
)

type ctxKey struct{}

type Handler struct {
	svc      *service.Service
	sessions *auth.Manager
	flashes  *flash.Store
	tpls     *template.Template
}

func New(svc *service.Service, sessions *auth.Manager, flashes *flash.Store, tpls *template.Template) *Handler {
	return &Handler{svc: svc, sessions: sessions, flashes: flashes, tpls: tpls}
}

func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(AccessLog)
	r.Use(WithRecover)

	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(web.Static()))))
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})
	r.Get("/toggle-theme", h.ToggleTheme)

	r.Get("/", h.Index)
	r.Route("/users", func(r chi.Router) {
		r.Post("/register", h.Register)
		r.Post("/login", h.Login)
		r.Get("/logout", h.Logout)
	})

	r.Group(func(r chi.Router) {
		r.Use(h.RequireAuth)
		r.Get("/dashboard", h.Dashboard)
		r.Get("/tags/{slug}", h.Tag)
		r.Route("/questions", func(r chi.Router) {
			r.Get("/ask", h.Ask)
			r.Post("/create", h.CreateQuestion)
			r.Get("/{id}", h.ShowQuestion)
			r.Get("/{id}/edit", h.EditQuestion)
			r.Post("/{id}/update", h.UpdateQuestion)
			r.Get("/{id}/delete", h.DeleteQuestion)
			r.Post("/{id}/answer", h.CreateAnswer)
			r.Get("/{id}/approve-answer/{aid}", h.ApproveAnswer)
			r.Get("/{id}/delete-answer/{aid}", h.DeleteAnswer)
		})
	})

	r.NotFound(h.NotFound)
	return r
}

// RequireAuth sends visitors without a session back to the landing page
// and puts the user id of everyone else in the request context.
func (h *Handler) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		uid, ok := h.sessions.CurrentUserID(r)
		if !ok {
			http.Redirect(w, r, "/", http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, uid)))
	})
}

func userID(r *http.Request) (int64, bool) {
	uid, ok := r.Context().Value(ctxKey{}).(int64)
	return uid, ok
}

func (h *Handler) getTheme(r *http.Request) string {
	if c, err := r.Cookie("theme"); err == nil && (c.Value == "dark" || c.Value == "light") {
		return c.Value
	}
	return "light"
}

func (h *Handler) ToggleTheme(w http.ResponseWriter, r *http.Request) {
	newv := "dark"
	if h.getTheme(r) == "dark" {
		newv = "light"
	}
	http.SetCookie(w, &http.Cookie{
		Name:    "theme",
		Value:   newv,
		Path:    "/",
		Expires: time.Now().Add(365 * 24 * time.Hour),
	})
	back := r.Referer()
	if back == "" {
		back = "/"
	}
	http.Redirect(w, r, back, http.StatusSeeOther)
}

// -------- Pages

func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.sessions.CurrentUserID(r); ok {
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}
	h.render(w, r, http.StatusOK, "index", map[string]any{"Title": "Welcome"})
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	id, err := h.svc.Users.Register(r.Context(), formOf(r))
	if h.invalid(w, r, err, "/") {
		return
	}
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.startSession(w, r, id)
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	u, err := h.svc.Users.Login(r.Context(), formOf(r))
	if h.invalid(w, r, err, "/") {
		return
	}
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.startSession(w, r, u.ID)
}

func (h *Handler) startSession(w http.ResponseWriter, r *http.Request, uid int64) {
	if err := h.sessions.Create(r.Context(), w, uid); err != nil {
		h.fail(w, r, err)
		return
	}
	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	h.sessions.Destroy(w, r)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	d, err := h.svc.Questions.Dashboard(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.render(w, r, http.StatusOK, "dashboard", map[string]any{
		"Title":      "Dashboard",
		"Answered":   d.Answered,
		"Unanswered": d.Unanswered,
	})
}

func (h *Handler) Ask(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, "ask", map[string]any{"Title": "Ask a question"})
}

func (h *Handler) CreateQuestion(w http.ResponseWriter, r *http.Request) {
	uid, _ := userID(r)
	qid, err := h.svc.Questions.Ask(r.Context(), uid, formOf(r))
	if h.invalid(w, r, err, "/questions/ask") {
		return
	}
	if err != nil {
		h.fail(w, r, err)
		return
	}
	http.Redirect(w, r, questionURL(qid), http.StatusSeeOther)
}

func (h *Handler) ShowQuestion(w http.ResponseWriter, r *http.Request) {
	qid, ok := h.idParam(w, r, "id")
	if !ok {
		return
	}
	v, err := h.svc.Questions.View(r.Context(), qid)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	uid, _ := userID(r)
	h.render(w, r, http.StatusOK, "question", map[string]any{
		"Title":  v.Question.Question,
		"View":   v,
		"UserID": uid,
	})
}

func (h *Handler) EditQuestion(w http.ResponseWriter, r *http.Request) {
	qid, ok := h.idParam(w, r, "id")
	if !ok {
		return
	}
	uid, _ := userID(r)
	q, tags, err := h.svc.Questions.ForEdit(r.Context(), uid, qid)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.render(w, r, http.StatusOK, "edit", map[string]any{
		"Title":    "Edit question",
		"Question": q,
		"Tags":     tags,
	})
}

func (h *Handler) UpdateQuestion(w http.ResponseWriter, r *http.Request) {
	qid, ok := h.idParam(w, r, "id")
	if !ok {
		return
	}
	uid, _ := userID(r)
	err := h.svc.Questions.Edit(r.Context(), uid, qid, formOf(r))
	if h.invalid(w, r, err, questionURL(qid)+"/edit") {
		return
	}
	if err != nil {
		h.fail(w, r, err)
		return
	}
	http.Redirect(w, r, questionURL(qid), http.StatusSeeOther)
}

func (h *Handler) DeleteQuestion(w http.ResponseWriter, r *http.Request) {
	qid, ok := h.idParam(w, r, "id")
	if !ok {
		return
	}
	uid, _ := userID(r)
	if err := h.svc.Questions.Delete(r.Context(), uid, qid); err != nil {
		h.fail(w, r, err)
		return
	}
	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}

func (h *Handler) CreateAnswer(w http.ResponseWriter, r *http.Request) {
	qid, ok := h.idParam(w, r, "id")
	if !ok {
		return
	}
	uid, _ := userID(r)
	_, err := h.svc.Answers.Post(r.Context(), uid, qid, formOf(r))
	if h.invalid(w, r, err, questionURL(qid)) {
		return
	}
	if err != nil {
		h.fail(w, r, err)
		return
	}
	http.Redirect(w, r, questionURL(qid), http.StatusSeeOther)
}

func (h *Handler) ApproveAnswer(w http.ResponseWriter, r *http.Request) {
	qid, ok := h.idParam(w, r, "id")
	if !ok {
		return
	}
	aid, ok := h.idParam(w, r, "aid")
	if !ok {
		return
	}
	uid, _ := userID(r)
	if err := h.svc.Answers.Approve(r.Context(), uid, qid, aid); err != nil {
		h.fail(w, r, err)
		return
	}
	http.Redirect(w, r, questionURL(qid), http.StatusSeeOther)
}

func (h *Handler) DeleteAnswer(w http.ResponseWriter, r *http.Request) {
	qid, ok := h.idParam(w, r, "id")
	if !ok {
		return
	}
	aid, ok := h.idParam(w, r, "aid")
	if !ok {
		return
	}
	uid, _ := userID(r)
	if err := h.svc.Answers.Delete(r.Context(), uid, qid, aid); err != nil {
		h.fail(w, r, err)
		return
	}
	http.Redirect(w, r, questionURL(qid), http.StatusSeeOther)
}

func (h *Handler) Tag(w http.ResponseWriter, r *http.Request) {
	tag, qs, err := h.svc.Questions.Tagged(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.render(w, r, http.StatusOK, "tag", map[string]any{
		"Title":     tag.Name,
		"Tag":       tag,
		"Questions": qs,
	})
}

func (h *Handler) NotFound(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusNotFound, "notfound", map[string]any{"Title": "Not Found"})
}

// -------- helpers

// render fills the layout fields, pops pending flash messages into Errors
// and writes the page.
func (h *Handler) render(w http.ResponseWriter, r *http.Request, status int, name string, data map[string]any) {
	uid, logged := userID(r)
	if !logged {
		uid, logged = h.sessions.CurrentUserID(r)
	}
	data["Theme"] = h.getTheme(r)
	data["Logged"] = logged
	if logged {
		if u, err := h.svc.Users.Get(r.Context(), uid); err == nil {
			data["User"] = u
		}
	}
	data["Errors"] = flash.Grouped(h.flashes.Pop(w, r))

	var buf bytes.Buffer
	if err := h.tpls.ExecuteTemplate(&buf, name, data); err != nil {
		log.Error().Err(err).Str("template", name).Msg("render failed")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}

// invalid flashes validation messages and redirects to the form at back.
// It reports whether err was a validation failure.
func (h *Handler) invalid(w http.ResponseWriter, r *http.Request, err error, back string) bool {
	var verrs orm.ValidationErrors
	if !errors.As(err, &verrs) {
		return false
	}
	if ferr := h.flashes.AddMap(w, r, verrs); ferr != nil {
		log.Warn().Err(ferr).Msg("could not store flash messages")
	}
	http.Redirect(w, r, back, http.StatusSeeOther)
	return true
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrForbidden):
		log.Warn().Err(err).Str("path", r.URL.Path).Msg("forbidden")
		http.Error(w, "Forbidden", http.StatusForbidden)
	case errors.Is(err, orm.ErrNotFound):
		h.NotFound(w, r)
	default:
		log.Error().Err(err).Str("request_id", middleware.GetReqID(r.Context())).Str("path", r.URL.Path).Msg("request failed")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}

func (h *Handler) idParam(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		h.NotFound(w, r)
		return 0, false
	}
	return id, true
}

// formOf returns the first value of every posted field.
func formOf(r *http.Request) service.Form {
	if err := r.ParseForm(); err != nil {
		return service.Form{}
	}
	form := make(service.Form, len(r.PostForm))
	for k, vs := range r.PostForm {
		if len(vs) > 0 {
			form[k] = vs[0]
		}
	}
	return form
}

func questionURL(id int64) string {
	return "/questions/" + strconv.FormatInt(id, 10)
}
