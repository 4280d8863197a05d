package handlers

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"statementviewer/services/dashboard/internal/clients"
	"statementviewer/services/dashboard/internal/session"
	"statementviewer/services/dashboard/internal/views"
	"statementviewer/services/dashboard/internal/ws"
)

const (
	// SessionCookie carries the session id.
	SessionCookie = "statementviewer_session"
	// MaxUploadBytes caps a statement upload.
	MaxUploadBytes = 20 << 20

	syncTimeout = 2 * time.Second
)

var sortableColumns = map[string]bool{
	"timestamp": true,
	"name":      true,
	"amount":    true,
}

// PageOptions describe the document shell.
type PageOptions struct {
	Title         string
	Lang          string
	WebsocketPath string
}

// DashboardHandlers serve the page and the form actions that drive a session.
type DashboardHandlers struct {
	sessions *session.Registry
	renderer *views.Renderer
	live     *ws.Server
	page     PageOptions
	logger   *zap.Logger
}

// NewDashboardHandlers builds dashboard handlers.
func NewDashboardHandlers(sessions *session.Registry, renderer *views.Renderer, live *ws.Server, page PageOptions, logger *zap.Logger) *DashboardHandlers {
	if page.WebsocketPath == "" {
		page.WebsocketPath = "/ws"
	}
	return &DashboardHandlers{
		sessions: sessions,
		renderer: renderer,
		live:     live,
		page:     page,
		logger:   logger,
	}
}

// Page handles GET /.
func (h *DashboardHandlers) Page(w http.ResponseWriter, r *http.Request) {
	sess, release, ok := h.session(w, r)
	if !ok {
		return
	}
	defer release()

	var buf bytes.Buffer
	err := h.renderer.Page(&buf, views.PageProps{
		Title:         h.page.Title,
		Lang:          h.page.Lang,
		WebsocketPath: h.page.WebsocketPath,
		Dashboard:     views.PropsFromSnapshot(sess.Coordinator().Snapshot()),
	})
	if err != nil {
		h.logger.Error("render page", zap.Error(err))
		http.Error(w, "failed to render dashboard", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// Sort handles POST /sort.
func (h *DashboardHandlers) Sort(w http.ResponseWriter, r *http.Request) {
	col := r.PostFormValue("col")
	if !sortableColumns[col] {
		writeError(w, http.StatusBadRequest, "unknown sort column")
		return
	}
	sess, release, ok := h.session(w, r)
	if !ok {
		return
	}
	defer release()
	sess.Coordinator().SortColumn(col)
	h.redirect(w, r, sess)
}

// ChangePage handles POST /page.
func (h *DashboardHandlers) ChangePage(w http.ResponseWriter, r *http.Request) {
	n, err := strconv.Atoi(r.PostFormValue("n"))
	if err != nil || n < 1 {
		writeError(w, http.StatusBadRequest, "invalid page")
		return
	}
	sess, release, ok := h.session(w, r)
	if !ok {
		return
	}
	defer release()
	sess.Coordinator().ChangePage(n)
	h.redirect(w, r, sess)
}

// Upload handles POST /upload. Problems with the submitted file become the
// session's error notification rather than an HTTP error.
func (h *DashboardHandlers) Upload(w http.ResponseWriter, r *http.Request) {
	sess, release, ok := h.session(w, r)
	if !ok {
		return
	}
	defer release()
	coord := sess.Coordinator()

	r.Body = http.MaxBytesReader(w, r.Body, MaxUploadBytes)
	filename, content, err := readUpload(r)
	if err != nil {
		h.logger.Info("upload rejected", zap.String("session_id", sess.ID()), zap.Error(err))
		coord.RejectUpload(err)
		h.redirect(w, r, sess)
		return
	}

	coord.Upload(filename, content)
	h.redirect(w, r, sess)
}

// Dismiss handles POST /dismiss.
func (h *DashboardHandlers) Dismiss(w http.ResponseWriter, r *http.Request) {
	sess, release, ok := h.session(w, r)
	if !ok {
		return
	}
	defer release()
	sess.Coordinator().Dismiss()
	h.redirect(w, r, sess)
}

// Live handles GET /ws for an existing session.
func (h *DashboardHandlers) Live(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(SessionCookie)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "session cookie required")
		return
	}
	sess, release, ok := h.sessions.Acquire(cookie.Value)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown session")
		return
	}
	h.live.Serve(w, r, sess.ID(), sess.Coordinator(), release)
}

// session acquires the caller's session, creating it when the cookie is
// missing or stale. The session is kept from the sweeper until release runs.
func (h *DashboardHandlers) session(w http.ResponseWriter, r *http.Request) (*session.Session, func(), bool) {
	var id string
	if cookie, err := r.Cookie(SessionCookie); err == nil {
		id = cookie.Value
	}

	sess, release, created, err := h.sessions.Resolve(id)
	if err != nil {
		h.logger.Warn("session unavailable", zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, "shutting down")
		return nil, nil, false
	}
	if created {
		http.SetCookie(w, &http.Cookie{
			Name:     SessionCookie,
			Value:    sess.ID(),
			Path:     "/",
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
	}
	return sess, release, true
}

// redirect sends the browser back to the dashboard once the action is applied.
func (h *DashboardHandlers) redirect(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	ctx, cancel := context.WithTimeout(r.Context(), syncTimeout)
	defer cancel()
	if err := sess.Coordinator().Sync(ctx); err != nil {
		h.logger.Debug("action not applied before redirect", zap.String("session_id", sess.ID()), zap.Error(err))
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func readUpload(r *http.Request) (string, []byte, error) {
	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			return "", nil, &clients.ValidationError{Field: "file", Message: "file exceeds the 20 MB limit"}
		case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
			return "", nil, &clients.ValidationError{Field: "file", Message: "no file selected"}
		default:
			return "", nil, &clients.ValidationError{Field: "file", Message: "could not read upload"}
		}
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		return "", nil, &clients.ValidationError{Field: "file", Message: "could not read upload"}
	}
	if len(content) == 0 {
		return "", nil, &clients.ValidationError{Field: "file", Message: "file is empty"}
	}
	return header.Filename, content, nil
}
