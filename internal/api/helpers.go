package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/evlog/evlog/internal/logstore"
)

type requestBodyTooLargeError struct {
	Limit int64
}

func (e *requestBodyTooLargeError) Error() string {
	return fmt.Sprintf("request body too large (max %d bytes)", e.Limit)
}

// DecodeBody decodes the JSON request body into v, rejecting unknown fields.
func DecodeBody(r *http.Request, v any) error {
	if r.Body == nil {
		return fmt.Errorf("request body is required")
	}
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return &requestBodyTooLargeError{Limit: maxErr.Limit}
		}
		return fmt.Errorf("invalid request body: %w", err)
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return &requestBodyTooLargeError{Limit: maxErr.Limit}
		}
		return fmt.Errorf("invalid request body: must contain a single JSON value")
	}
	return nil
}

func writeInvalidArgument(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadRequest, "INVALID_ARGUMENT", message)
}

func writeDecodeBodyError(w http.ResponseWriter, err error) {
	var tooLarge *requestBodyTooLargeError
	if errors.As(err, &tooLarge) {
		WriteError(w, http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE", tooLarge.Error())
		return
	}
	writeInvalidArgument(w, err.Error())
}

// writeStoreError maps store errors to HTTP responses.
func writeStoreError(w http.ResponseWriter, err error) {
	if errors.Is(err, logstore.ErrNotFound) {
		WriteError(w, http.StatusNotFound, "NOT_FOUND", "not found")
		return
	}
	WriteError(w, http.StatusInternalServerError, "INTERNAL", err.Error())
}

// Query parameter parsing is deliberately forgiving: a malformed value
// falls back to the default instead of failing the request, and the
// store clamps what remains. Filtering should degrade, not 400.

func intQuery(r *http.Request, key string) (int, bool) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

func int64Query(r *http.Request, key string) (int64, bool) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return 0, false
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

func boolQuery(r *http.Request, key string, defaultVal bool) bool {
	v := r.URL.Query().Get(key)
	if v == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return defaultVal
	}
	return b
}

// filterFromQuery builds a store filter from the shared log query
// parameters used by /api/logs and /api/export.
func filterFromQuery(r *http.Request) logstore.Filter {
	q := r.URL.Query()
	f := logstore.Filter{
		SourceIP:       q.Get("source_ip"),
		Hostname:       q.Get("hostname"),
		Search:         q.Get("search"),
		StartTime:      q.Get("start_time"),
		EndTime:        q.Get("end_time"),
		SortBy:         q.Get("sort_by"),
		SortOrder:      q.Get("sort_order"),
		ExcludeMarkers: !boolQuery(r, "include_markers", true),
	}
	if sev, ok := intQuery(r, "severity"); ok {
		f.Severity = &sev
	}
	if limit, ok := intQuery(r, "limit"); ok {
		f.Limit = limit
	}
	if offset, ok := intQuery(r, "offset"); ok {
		f.Offset = offset
	}
	return f
}
