package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/evlog/evlog/internal/enrich"
	"github.com/evlog/evlog/internal/hub"
	"github.com/evlog/evlog/internal/logstore"
)

var markerStyles = map[string]bool{
	"default": true,
	"info":    true,
	"success": true,
	"warning": true,
	"error":   true,
}

type createMarkerRequest struct {
	Label     string `json:"label"`
	Timestamp string `json:"timestamp,omitempty"`
	Style     string `json:"style,omitempty"`
}

// HandleCreateMarker handles POST /api/markers. The marker is stored
// like any entry and published to live subscribers.
func HandleCreateMarker(store *logstore.Store, enricher *enrich.Enricher, h *hub.Hub) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req createMarkerRequest
		if err := DecodeBody(r, &req); err != nil {
			writeDecodeBodyError(w, err)
			return
		}

		req.Label = strings.TrimSpace(req.Label)
		if req.Label == "" {
			writeInvalidArgument(w, "label: is required")
			return
		}
		if len(req.Label) > 256 {
			writeInvalidArgument(w, "label: must be at most 256 characters")
			return
		}
		if req.Style != "" && !markerStyles[req.Style] {
			writeInvalidArgument(w, "style: must be one of default, info, success, warning, error")
			return
		}
		if req.Timestamp != "" {
			if _, err := time.Parse(time.RFC3339, req.Timestamp); err != nil {
				writeInvalidArgument(w, "timestamp: must be RFC3339")
				return
			}
		}

		entry, err := store.InsertMarker(req.Label, req.Timestamp, req.Style)
		if err != nil {
			writeStoreError(w, err)
			return
		}

		enriched := enricher.Enrich(entry)
		h.Publish(enriched)

		WriteJSON(w, http.StatusCreated, enriched)
	})
}
