package api

import (
	"net"
	"net/http"

	"github.com/evlog/evlog/internal/enrich"
	"github.com/evlog/evlog/internal/logstore"
)

// HandleListHosts handles GET /api/hosts.
func HandleListHosts(store *logstore.Store) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hosts, err := store.ListKnownHosts()
		if err != nil {
			writeStoreError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, hosts)
	})
}

type setNameRequest struct {
	DisplayName string `json:"display_name"`
}

type setNameResponse struct {
	IP          string `json:"ip"`
	DisplayName string `json:"display_name"`
}

// HandleSetHostName handles POST /api/hosts/{ip}/name. An empty name
// clears the display name.
func HandleSetHostName(store *logstore.Store, enricher *enrich.Enricher) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := r.PathValue("ip")
		if net.ParseIP(ip) == nil {
			writeInvalidArgument(w, "ip: must be a valid IP address")
			return
		}

		var req setNameRequest
		if err := DecodeBody(r, &req); err != nil {
			writeDecodeBodyError(w, err)
			return
		}
		if len(req.DisplayName) > 128 {
			writeInvalidArgument(w, "display_name: must be at most 128 characters")
			return
		}

		if err := store.SetDisplayName(ip, req.DisplayName); err != nil {
			writeStoreError(w, err)
			return
		}
		enricher.Invalidate(ip)

		WriteJSON(w, http.StatusOK, setNameResponse{IP: ip, DisplayName: req.DisplayName})
	})
}
