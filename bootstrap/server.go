package bootstrap

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/quotawatch/quotawatch/app"
	"github.com/quotawatch/quotawatch/config"
	"github.com/quotawatch/quotawatch/domain/usage"
)

// statusResponse is the GET /status payload.
type statusResponse struct {
	View    *usage.ViewState `json:"view"`
	Refresh app.RefreshState `json:"refresh"`
}

// refreshResponse is the POST /refresh payload.
type refreshResponse struct {
	Outcome app.Outcome `json:"outcome"`
}

// newStatusServer builds the local observability server: current view
// state, liveness, Prometheus metrics, and a manual refresh trigger.
func newStatusServer(a *App, cfg *config.Config) *http.Server {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	r.Get("/status", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, statusResponse{
			View:    a.Scheduler.View(),
			Refresh: a.Scheduler.State(),
		})
	})

	r.Post("/refresh", func(w http.ResponseWriter, req *http.Request) {
		outcome := a.Scheduler.Refresh(req.Context(), app.TriggerManual)

		status := http.StatusOK
		if outcome == app.OutcomeRejected {
			// Already refreshing, cooling down, or rate-limit deferred.
			status = http.StatusTooManyRequests
		}
		writeJSON(w, status, refreshResponse{Outcome: outcome})
	})

	if a.Metrics != nil {
		r.Handle("/metrics", promhttp.Handler())
	}

	return &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
