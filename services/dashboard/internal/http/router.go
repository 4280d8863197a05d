package httpserver

import (
	"io/fs"
	"net/http"

	"github.com/go-chi/chi/v5"

	"statementviewer/services/dashboard/internal/http/handlers"
)

// RouterDeps collects handler dependencies.
type RouterDeps struct {
	Dashboard     *handlers.DashboardHandlers
	HealthHandler http.HandlerFunc
	Static        fs.FS
}

// NewRouter wires HTTP routes.
func NewRouter(deps RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Get("/health", deps.HealthHandler)

	r.Get("/", deps.Dashboard.Page)
	r.Post("/sort", deps.Dashboard.Sort)
	r.Post("/page", deps.Dashboard.ChangePage)
	r.Post("/upload", deps.Dashboard.Upload)
	r.Post("/dismiss", deps.Dashboard.Dismiss)
	r.Get("/ws", deps.Dashboard.Live)

	if deps.Static != nil {
		r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(deps.Static))))
	}

	return r
}
