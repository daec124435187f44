package main

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/rx3lixir/event-listing/internal/dataloader"
	"github.com/rx3lixir/event-listing/pkg/logger"
)

// syncStatusHandler отдает расхождение между базой и индексом.
// POST пересоздает индекс и заливает все события заново.
func syncStatusHandler(loader *dataloader.Loader, log logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Minute)
		defer cancel()

		var (
			body any
			err  error
		)
		switch r.Method {
		case http.MethodGet:
			body, err = loader.CheckSyncStatus(ctx)
		case http.MethodPost:
			log.Info("Forced OpenSearch resync requested", "remote", r.RemoteAddr)
			body, err = loader.ForceSyncData(ctx)
		default:
			w.Header().Set("Allow", "GET, POST")
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		if err != nil {
			log.Error("Sync request failed", "method", r.Method, "error", err)
			http.Error(w, err.Error(), http.StatusBadGateway)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(body); err != nil {
			log.Warn("Failed to encode sync response", "error", err)
		}
	})
}
