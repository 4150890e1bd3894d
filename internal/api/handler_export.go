package api

import (
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/klauspost/compress/gzip"

	"github.com/evlog/evlog/internal/enrich"
	"github.com/evlog/evlog/internal/logstore"
)

var exportHeader = []string{
	"id", "timestamp", "received_at", "source_ip", "source_port",
	"hostname", "display_name", "facility", "facility_name",
	"severity", "severity_name", "app_name", "proc_id", "message",
}

// DefaultExportLimit caps an export when the client does not ask for
// a size. Exports default to oldest-first, unlike the paged listing.
const DefaultExportLimit = 10000

// HandleExportLogs handles GET /api/export: the current filter's
// matches as CSV, gzip-compressed when the client accepts it or asks
// with gzip=true. The filter parameters are the same as /api/logs.
func HandleExportLogs(store *logstore.Store, enricher *enrich.Enricher) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f := filterFromQuery(r)
		if f.Limit <= 0 {
			f.Limit = DefaultExportLimit
		}
		if f.SortBy == "" {
			f.SortBy = "timestamp"
		}
		if f.SortOrder == "" {
			f.SortOrder = "asc"
		}

		entries, err := store.Query(f)
		if err != nil {
			writeStoreError(w, err)
			return
		}

		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", `attachment; filename="evlog-export.csv"`)

		var out io.Writer = w
		if boolQuery(r, "gzip", false) || strings.Contains(r.Header.Get("Accept-Encoding"), "gzip") {
			w.Header().Set("Content-Encoding", "gzip")
			gz := gzip.NewWriter(w)
			defer gz.Close()
			out = gz
		}

		cw := csv.NewWriter(out)
		if err := cw.Write(exportHeader); err != nil {
			return
		}
		for _, e := range enricher.EnrichAll(entries) {
			if err := cw.Write(exportRow(e)); err != nil {
				return
			}
		}
		cw.Flush()
	})
}

func exportRow(e enrich.Entry) []string {
	return []string{
		strconv.FormatInt(e.ID, 10),
		e.Timestamp,
		e.ReceivedAt,
		e.SourceIP,
		intField(e.SourcePort),
		strField(e.Hostname),
		strField(e.DisplayName),
		intField(e.Facility),
		strField(e.FacilityName),
		intField(e.Severity),
		strField(e.SeverityName),
		strField(e.AppName),
		strField(e.ProcID),
		e.Message,
	}
}

func strField(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func intField(n *int) string {
	if n == nil {
		return ""
	}
	return fmt.Sprintf("%d", *n)
}
