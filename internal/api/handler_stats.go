package api

import (
	"net/http"

	"github.com/evlog/evlog/internal/hub"
	"github.com/evlog/evlog/internal/logstore"
)

type statsResponse struct {
	logstore.Stats
	Subscribers int    `json:"subscribers"`
	Version     string `json:"version"`
}

// HandleStats handles GET /api/stats.
func HandleStats(store *logstore.Store, h *hub.Hub, version string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		stats, err := store.Summary()
		if err != nil {
			writeStoreError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, statsResponse{
			Stats:       stats,
			Subscribers: h.SubscriberCount(),
			Version:     version,
		})
	})
}
