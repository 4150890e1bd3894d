package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/evlog/evlog/internal/enrich"
	"github.com/evlog/evlog/internal/hub"
	"github.com/evlog/evlog/internal/logstore"
)

// HandleListLogs handles GET /api/logs.
// Query params: source_ip, hostname, severity, search, start_time,
// end_time, include_markers, sort_by, sort_order, limit, offset.
func HandleListLogs(store *logstore.Store, enricher *enrich.Enricher) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f := filterFromQuery(r)
		// Interactive pages stay small; only export may go larger.
		if f.Limit > logstore.MaxListLimit {
			f.Limit = logstore.MaxListLimit
		}

		entries, err := store.Query(f)
		if err != nil {
			writeStoreError(w, err)
			return
		}
		total, err := store.Count(f)
		if err != nil {
			writeStoreError(w, err)
			return
		}

		if f.Limit <= 0 {
			f.Limit = logstore.DefaultQueryLimit
		}
		WriteJSON(w, http.StatusOK, PageResponse[enrich.Entry]{
			Items:  enricher.EnrichAll(entries),
			Total:  total,
			Limit:  f.Limit,
			Offset: f.Offset,
		})
	})
}

// streamHeartbeat keeps idle SSE connections from being reaped by
// intermediaries.
const streamHeartbeat = 30 * time.Second

// HandleStreamLogs handles GET /api/logs/stream: a server-sent event
// stream of entries as they are ingested. An after_id query parameter
// backfills everything missed since that id before going live, so a
// reconnecting client sees no gap.
func HandleStreamLogs(store *logstore.Store, enricher *enrich.Enricher, h *hub.Hub) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		flusher, ok := w.(http.Flusher)
		if !ok {
			WriteError(w, http.StatusInternalServerError, "INTERNAL", "streaming unsupported")
			return
		}

		sub := h.Subscribe()
		defer h.Unsubscribe(sub)

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("X-Accel-Buffering", "no")
		w.WriteHeader(http.StatusOK)

		var lastID int64
		if afterID, hasAfter := int64Query(r, "after_id"); hasAfter {
			lastID = afterID
			// Backfill in pages: the gap may exceed any single query.
			for {
				missed, err := store.EntriesAfter(lastID, logstore.DefaultQueryLimit)
				if err != nil || len(missed) == 0 {
					break
				}
				for _, e := range missed {
					writeEvent(w, enricher.Enrich(e))
					lastID = e.ID
				}
			}
		}
		flusher.Flush()

		heartbeat := time.NewTicker(streamHeartbeat)
		defer heartbeat.Stop()

		for {
			select {
			case e, open := <-sub.C:
				if !open {
					// Evicted as a slow consumer.
					return
				}
				if e.ID <= lastID {
					continue
				}
				writeEvent(w, e)
				lastID = e.ID
				flusher.Flush()
			case <-heartbeat.C:
				fmt.Fprint(w, ": ping\n\n")
				flusher.Flush()
			case <-r.Context().Done():
				return
			}
		}
	})
}

func writeEvent(w http.ResponseWriter, e enrich.Entry) {
	data, err := json.Marshal(e)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "id: %d\ndata: %s\n\n", e.ID, data)
}
