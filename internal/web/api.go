package web

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/tjfontaine/compliance-copilot/internal/core/domain"
	"github.com/tjfontaine/compliance-copilot/internal/server"
	"github.com/tjfontaine/compliance-copilot/internal/session"
)

type sessionResponse struct {
	session.Snapshot
	Notifications []domain.Notification `json:"notifications"`
}

type healthResponse struct {
	Status string `json:"status"`
	Detail string `json:"detail,omitempty"`
}

func (h *Handler) handleSessionJSON(w http.ResponseWriter, r *http.Request) {
	s := sessionFrom(r.Context())
	writeJSON(r.Context(), w, http.StatusOK, sessionResponse{
		Snapshot:      s.Snapshot(),
		Notifications: s.Inbox.Drain(),
	})
}

func (h *Handler) handleHealthJSON(w http.ResponseWriter, r *http.Request) {
	if h.health == nil {
		writeJSON(r.Context(), w, http.StatusServiceUnavailable, healthResponse{Status: "unknown", Detail: "health checks disabled"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	status, err := h.health.Health(ctx)
	if err != nil {
		server.AddError(r.Context(), err)
		writeJSON(r.Context(), w, http.StatusBadGateway, healthResponse{
			Status: "unreachable",
			Detail: domain.UserMessage(err, "analysis service unreachable"),
		})
		return
	}

	code := http.StatusOK
	if !status.Healthy() {
		code = http.StatusServiceUnavailable
	}
	writeJSON(r.Context(), w, code, healthResponse{Status: status.Status})
}

func writeJSON(ctx context.Context, w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		server.AddError(ctx, err)
	}
}
