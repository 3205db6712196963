package internal

import (
	"chat-relay/observability"
	"encoding/json"
	"log/slog"
	"net/http"
)

const (
	StatsEndpoint  = "/debug/stats"
	HealthEndpoint = "/healthz"
)

type StatsProvider func() observability.RelayStats

// RegisterDebugRoutes exposes the liveness probe and, when statsProvider is
// set, the JSON relay snapshot.
func RegisterDebugRoutes(mux *http.ServeMux, log *slog.Logger, statsProvider StatsProvider) {
	mux.HandleFunc(HealthEndpoint, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	if statsProvider == nil {
		return
	}
	mux.HandleFunc(StatsEndpoint, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(statsProvider()); err != nil {
			log.Error("Failed to encode relay stats", "error", err)
		}
	})
}
