package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"smartcity-dashboard/internal/utils"
)

const healthTimeout = 2 * time.Second

// Pinger checks storage connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ConnectionState reports a broker connection; nil means the broker is disabled.
type ConnectionState interface {
	IsConnected() bool
}

type healthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
	MQTT     string `json:"mqtt"`
}

type healthchecker interface {
	handleHealthz(w http.ResponseWriter, r *http.Request)
}

type healthcheckerImpl struct {
	db   Pinger
	mqtt ConnectionState
}

func NewHealthchecker(db Pinger, mqtt ConnectionState) healthchecker {
	return &healthcheckerImpl{db: db, mqtt: mqtt}
}

func (h *healthcheckerImpl) handleHealthz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
	defer cancel()

	if err := h.db.Ping(ctx); err != nil {
		slog.Error("failed to check database connectivity", "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to check database connectivity")
		return
	}

	resp := healthResponse{Status: "ok", Database: "ok", MQTT: "disabled"}
	if h.mqtt != nil {
		if h.mqtt.IsConnected() {
			resp.MQTT = "connected"
		} else {
			resp.MQTT = "disconnected"
		}
	}
	utils.WriteJSON(w, http.StatusOK, resp)
}

func registerHealthcheck(mux *http.ServeMux, db Pinger, mqtt ConnectionState) {
	healthchecker := NewHealthchecker(db, mqtt)
	mux.HandleFunc("GET /healthz", healthchecker.handleHealthz)
}
