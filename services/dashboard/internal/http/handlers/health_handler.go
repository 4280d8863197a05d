package handlers

import (
	"net/http"

	"statementviewer/services/dashboard/internal/query"
)

// HealthDeps are the counters reported by /health.
type HealthDeps struct {
	Cache       *query.Client
	Sessions    func() int
	Connections func() int
}

type healthResponse struct {
	Status      string      `json:"status"`
	Sessions    int         `json:"sessions"`
	Connections int         `json:"connections"`
	Cache       query.Stats `json:"cache"`
}

// NewHealthHandler returns GET /health handler.
func NewHealthHandler(deps HealthDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := healthResponse{Status: "ok"}
		if deps.Cache != nil {
			resp.Cache = deps.Cache.Stats()
		}
		if deps.Sessions != nil {
			resp.Sessions = deps.Sessions()
		}
		if deps.Connections != nil {
			resp.Connections = deps.Connections()
		}
		writeJSON(w, http.StatusOK, resp)
	}
}
