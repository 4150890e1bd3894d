// Package syslog normalizes raw network datagrams into structured log
// records. It understands RFC 5424, RFC 3164 (BSD), and bare-priority
// syslog framings and degrades to raw text for everything else, so
// Parse never fails.
package syslog

import (
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

// Record is a normalized log message before storage. The store assigns
// the row id and receipt time at insert.
type Record struct {
	Timestamp   string  `json:"timestamp"` // event time claimed by the source, extended ISO-8601
	SourceIP    string  `json:"source_ip"`
	SourcePort  int     `json:"source_port"`
	Hostname    *string `json:"hostname"`
	AppName     *string `json:"app_name"`
	ProcID      *string `json:"proc_id"`
	MsgID       *string `json:"msg_id"`
	Facility    *int    `json:"facility"`
	Severity    *int    `json:"severity"`
	Priority    *int    `json:"priority"`
	Message     string  `json:"message"`
	RawMessage  string  `json:"raw_message"`
	IsSyslog    bool    `json:"is_syslog"`
	IsMarker    bool    `json:"is_marker"`
	MarkerStyle *string `json:"marker_style"`
}

var (
	// <PRI>VERSION TIMESTAMP HOSTNAME APP PROCID MSGID [SD|-] MSG
	rfc5424Pattern = regexp.MustCompile(
		`^<(\d{1,3})>(\d+)\s+(\S+)\s+(\S+)\s+(\S+)\s+(\S+)\s+(\S+)\s+(?:\[.*?\]|-)\s*(.*)$`)

	// <PRI>MMM DD HH:MM:SS HOSTNAME REST
	rfc3164Pattern = regexp.MustCompile(
		`^<(\d{1,3})>(\w{3}\s+\d{1,2}\s+\d{2}:\d{2}:\d{2})\s+(\S+)\s+(.*)$`)

	// APP[PID]: MESSAGE, extracted from the RFC 3164 remainder.
	appPIDPattern = regexp.MustCompile(`(?s)^(\S+?)(?:\[(\d+)\])?:\s*(.*)`)

	// <PRI>message with nothing else recognizable.
	barePriPattern = regexp.MustCompile(`^<(\d{1,3})>(.*)$`)
)

const (
	emptyMessagePlaceholder = "(empty message)"
	emptyBodyPlaceholder    = "(empty)"
)

// timeLayout renders timestamps with microsecond precision so they sort
// lexicographically as ISO-8601.
const timeLayout = "2006-01-02T15:04:05.000000"

// FormatTime renders t as the extended ISO-8601 string used throughout
// the record pipeline.
func FormatTime(t time.Time) string {
	return t.UTC().Format(timeLayout) + "Z"
}

// Parse normalizes a datagram into a Record using the current time as the
// reference clock. It never fails: input that matches no syslog grammar
// becomes a raw-text record.
func Parse(data []byte, sourceIP string, sourcePort int) Record {
	return ParseAt(data, sourceIP, sourcePort, time.Now().UTC())
}

// ParseAt is Parse with an explicit reference clock, used for the
// receive-time default and RFC 3164 year recovery.
func ParseAt(data []byte, sourceIP string, sourcePort int, now time.Time) Record {
	text := decodeText(data)
	text = strings.TrimSpace(text)
	if text == "" {
		text = emptyMessagePlaceholder
	}

	rec := Record{
		Timestamp:  FormatTime(now),
		SourceIP:   sourceIP,
		SourcePort: sourcePort,
		Message:    text,
		RawMessage: text,
	}

	if tryRFC5424(&rec, text) {
		return rec
	}
	if tryRFC3164(&rec, text, now) {
		return rec
	}
	if tryBarePriority(&rec, text) {
		return rec
	}
	return rec
}

// decodeText decodes bytes as UTF-8, falling back to a permissive
// single-byte (Latin-1) decode so no input is ever rejected.
func decodeText(data []byte) string {
	if utf8.Valid(data) {
		return string(data)
	}
	runes := make([]rune, len(data))
	for i, b := range data {
		runes[i] = rune(b)
	}
	return string(runes)
}

func tryRFC5424(rec *Record, text string) bool {
	m := rfc5424Pattern.FindStringSubmatch(text)
	if m == nil {
		return false
	}
	setPriority(rec, mustAtoi(m[1]))

	if ts := m[3]; ts != "" && ts != "-" {
		// ISO 8601 taken largely as-is; normalize trailing Z.
		rec.Timestamp = strings.ReplaceAll(ts, "Z", "+00:00")
	}
	rec.Hostname = dashToNil(m[4])
	rec.AppName = dashToNil(m[5])
	rec.ProcID = dashToNil(m[6])
	rec.MsgID = dashToNil(m[7])
	rec.Message = m[8]
	rec.IsSyslog = true
	return true
}

func tryRFC3164(rec *Record, text string, now time.Time) bool {
	m := rfc3164Pattern.FindStringSubmatch(text)
	if m == nil {
		return false
	}
	setPriority(rec, mustAtoi(m[1]))

	if ts := parseBSDTimestamp(m[2], now); ts != "" {
		rec.Timestamp = ts
	}
	hostname := strings.TrimSpace(m[3])
	rec.Hostname = &hostname

	rest := m[4]
	if am := appPIDPattern.FindStringSubmatch(rest); am != nil {
		rec.AppName = &am[1]
		if am[2] != "" {
			pid := am[2]
			rec.ProcID = &pid
		}
		rec.Message = am[3]
	} else {
		rec.Message = rest
	}
	rec.IsSyslog = true
	return true
}

func tryBarePriority(rec *Record, text string) bool {
	m := barePriPattern.FindStringSubmatch(text)
	if m == nil {
		return false
	}
	pri := mustAtoi(m[1])
	// Valid syslog priority range only, so unrelated bracketed text
	// does not classify as syslog.
	if pri < 0 || pri > 191 {
		return false
	}
	setPriority(rec, pri)
	msg := strings.TrimSpace(m[2])
	if msg == "" {
		msg = emptyBodyPlaceholder
	}
	rec.Message = msg
	rec.IsSyslog = true
	return true
}

// parseBSDTimestamp parses an RFC 3164 timestamp ("Oct 11 22:14:15",
// no year) into ISO format. The current year is assumed; a result more
// than one day in the future is attributed to the previous year, which
// handles messages that crossed a year boundary in flight.
func parseBSDTimestamp(ts string, now time.Time) string {
	parsed, err := time.ParseInLocation("Jan _2 15:04:05", ts, time.UTC)
	if err != nil {
		return ""
	}
	parsed = parsed.AddDate(now.Year()-parsed.Year(), 0, 0)
	if parsed.After(now) && parsed.Sub(now) > 24*time.Hour {
		parsed = parsed.AddDate(-1, 0, 0)
	}
	return parsed.UTC().Format("2006-01-02T15:04:05") + "Z"
}

func setPriority(rec *Record, pri int) {
	facility, severity := DecodePriority(pri)
	p := pri
	rec.Priority = &p
	rec.Facility = &facility
	rec.Severity = &severity
}

func dashToNil(field string) *string {
	v := strings.TrimSpace(field)
	if v == "" || field == "-" {
		return nil
	}
	return &v
}

func mustAtoi(s string) int {
	n, _ := strconv.Atoi(s) // pattern guarantees digits
	return n
}
