package logstore

import "strings"

// Sort and pagination bounds. Malformed client input is clamped or
// defaulted here rather than rejected, so a bad query parameter can
// never turn into a hard failure.
const (
	DefaultQueryLimit = 200
	// MaxListLimit caps interactive listings; bulk export may go up
	// to MaxQueryLimit.
	MaxListLimit  = 10000
	MaxQueryLimit = 100000
)

// sortColumns is the allow-list of ORDER BY targets. Anything else
// silently falls back to the default.
var sortColumns = map[string]bool{
	"received_at": true,
	"timestamp":   true,
	"severity":    true,
	"source_ip":   true,
	"hostname":    true,
}

// Filter selects and orders log entries for Query and Count. The zero
// value matches everything, markers included, newest received first.
type Filter struct {
	SourceIP string // exact match
	Hostname string // substring match on the record hostname or the known-host display name
	Severity *int   // inclusive upper bound: severity <= N ("at least this urgent")
	Search   string // substring match on message
	// Inclusive ISO-8601 bounds on the claimed timestamp. Lexicographic
	// comparison is correct because timestamps are ISO-8601 strings.
	StartTime string
	EndTime   string

	ExcludeMarkers bool

	SortBy    string // one of sortColumns; anything else -> received_at
	SortOrder string // "asc" or "desc"; anything else -> desc
	Limit     int
	Offset    int
}

// normalized returns a copy with all out-of-domain values clamped or
// defaulted.
func (f Filter) normalized() Filter {
	if f.Severity != nil {
		sev := *f.Severity
		if sev < 0 {
			sev = 0
		}
		if sev > 7 {
			sev = 7
		}
		f.Severity = &sev
	}
	if !sortColumns[f.SortBy] {
		f.SortBy = "received_at"
	}
	switch strings.ToLower(f.SortOrder) {
	case "asc", "desc":
		f.SortOrder = strings.ToLower(f.SortOrder)
	default:
		f.SortOrder = "desc"
	}
	if f.Limit <= 0 {
		f.Limit = DefaultQueryLimit
	}
	if f.Limit > MaxQueryLimit {
		f.Limit = MaxQueryLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return f
}

// whereClause builds the WHERE fragment and its arguments. Query and
// Count share it so a reported total always agrees with the page set.
func (f Filter) whereClause() (string, []any) {
	var where []string
	var args []any

	if f.SourceIP != "" {
		where = append(where, "source_ip = ?")
		args = append(args, f.SourceIP)
	}
	if f.Hostname != "" {
		// A display-name match pulls in every record from that IP, not
		// only records whose own hostname field matches.
		where = append(where, "(hostname LIKE ? OR source_ip IN (SELECT ip FROM known_hosts WHERE display_name LIKE ?))")
		pattern := "%" + f.Hostname + "%"
		args = append(args, pattern, pattern)
	}
	if f.Severity != nil {
		// NULL severity (raw text) never satisfies the comparison.
		where = append(where, "severity <= ?")
		args = append(args, *f.Severity)
	}
	if f.Search != "" {
		where = append(where, "message LIKE ?")
		args = append(args, "%"+f.Search+"%")
	}
	if f.StartTime != "" {
		where = append(where, "timestamp >= ?")
		args = append(args, f.StartTime)
	}
	if f.EndTime != "" {
		where = append(where, "timestamp <= ?")
		args = append(args, f.EndTime)
	}
	if f.ExcludeMarkers {
		where = append(where, "is_marker = 0")
	}

	if len(where) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(where, " AND "), args
}

// orderClause builds the ORDER BY fragment. Ties in the sort key break
// by id in the same direction so pagination over a static dataset is a
// stable total order.
func (f Filter) orderClause() string {
	dir := "DESC"
	if f.SortOrder == "asc" {
		dir = "ASC"
	}
	return " ORDER BY " + f.SortBy + " " + dir + ", id " + dir
}
