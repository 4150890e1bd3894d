package logstore

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/evlog/evlog/internal/syslog"
)

// Entry is a stored log row. Pointer fields are NULL in the database
// for records the normalizer could not fully parse.
type Entry struct {
	ID          int64   `json:"id"`
	Timestamp   string  `json:"timestamp"`
	ReceivedAt  string  `json:"received_at"`
	SourceIP    string  `json:"source_ip"`
	SourcePort  *int    `json:"source_port"`
	Hostname    *string `json:"hostname"`
	Facility    *int    `json:"facility"`
	Severity    *int    `json:"severity"`
	Priority    *int    `json:"priority"`
	AppName     *string `json:"app_name"`
	ProcID      *string `json:"proc_id"`
	MsgID       *string `json:"msg_id"`
	Message     string  `json:"message"`
	RawMessage  string  `json:"raw_message"`
	IsSyslog    bool    `json:"is_syslog"`
	IsMarker    bool    `json:"is_marker"`
	MarkerStyle *string `json:"marker_style"`
}

// KnownHost is an aggregate row per source address.
type KnownHost struct {
	IP           string  `json:"ip"`
	Hostname     *string `json:"hostname"`
	DisplayName  *string `json:"display_name"`
	Country      string  `json:"country"`
	FirstSeen    string  `json:"first_seen"`
	LastSeen     string  `json:"last_seen"`
	MessageCount int64   `json:"message_count"`
}

// Stats summarizes the whole store for the stats endpoint.
type Stats struct {
	TotalEntries int64  `json:"total_entries"`
	TotalMarkers int64  `json:"total_markers"`
	TotalHosts   int64  `json:"total_hosts"`
	OldestEntry  string `json:"oldest_entry,omitempty"`
	NewestEntry  string `json:"newest_entry,omitempty"`
}

// Store owns the SQLite database. All writes go through a single
// connection; reads use a separate read-only pool so queries never
// queue behind the ingestion path.
type Store struct {
	writeDB *sql.DB
	readDB  *sql.DB
	path    string
}

// Open opens (creating if needed) the database at path and applies
// pending migrations. The write handle must exist before the read-only
// pool opens, otherwise there is no file to attach to.
func Open(path string) (*Store, error) {
	writeDB, err := openWriteDB(path)
	if err != nil {
		return nil, storeErr("open", err)
	}
	if err := migrateDB(writeDB); err != nil {
		writeDB.Close()
		return nil, storeErr("migrate", err)
	}
	readDB, err := openReadDB(path)
	if err != nil {
		writeDB.Close()
		return nil, storeErr("open read pool", err)
	}
	return &Store{writeDB: writeDB, readDB: readDB, path: path}, nil
}

func (s *Store) Close() error {
	rerr := s.readDB.Close()
	werr := s.writeDB.Close()
	if werr != nil {
		return werr
	}
	return rerr
}

func storeErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrStorage, err)
}

const insertEntrySQL = `INSERT INTO log_entries
	(timestamp, received_at, source_ip, source_port, hostname, facility,
	 severity, priority, app_name, proc_id, msg_id, message, raw_message,
	 is_syslog, is_marker, marker_style)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

// display_name defaults to the first reported hostname; renames only
// ever go through SetDisplayName, so the conflict branch leaves it alone.
const upsertHostSQL = `INSERT INTO known_hosts (ip, hostname, display_name, first_seen, last_seen, message_count)
	VALUES (?, ?, ?, ?, ?, 1)
	ON CONFLICT(ip) DO UPDATE SET
		hostname = COALESCE(excluded.hostname, known_hosts.hostname),
		last_seen = excluded.last_seen,
		message_count = known_hosts.message_count + 1`

// Insert persists a normalized record and bumps its source in
// known_hosts, in one transaction. It returns the stored Entry with
// its assigned id.
func (s *Store) Insert(rec syslog.Record) (Entry, error) {
	receivedAt := syslog.FormatTime(time.Now())

	tx, err := s.writeDB.Begin()
	if err != nil {
		return Entry{}, storeErr("insert begin", err)
	}
	defer tx.Rollback()

	// Port 0 means "no network origin" (markers); store NULL.
	var port any
	if rec.SourcePort != 0 {
		port = rec.SourcePort
	}
	res, err := tx.Exec(insertEntrySQL,
		rec.Timestamp, receivedAt, rec.SourceIP, port,
		rec.Hostname, rec.Facility, rec.Severity, rec.Priority,
		rec.AppName, rec.ProcID, rec.MsgID, rec.Message, rec.RawMessage,
		rec.IsSyslog, rec.IsMarker, rec.MarkerStyle)
	if err != nil {
		return Entry{}, storeErr("insert entry", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return Entry{}, storeErr("insert entry id", err)
	}

	// Synthetic sources never become known hosts.
	if rec.SourceIP != "marker" && rec.SourceIP != "unknown" {
		if _, err := tx.Exec(upsertHostSQL, rec.SourceIP, rec.Hostname, rec.Hostname, receivedAt, receivedAt); err != nil {
			return Entry{}, storeErr("upsert host", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return Entry{}, storeErr("insert commit", err)
	}
	return entryFromRecord(id, receivedAt, rec), nil
}

func entryFromRecord(id int64, receivedAt string, rec syslog.Record) Entry {
	var port *int
	if rec.SourcePort != 0 {
		p := rec.SourcePort
		port = &p
	}
	return Entry{
		ID:          id,
		Timestamp:   rec.Timestamp,
		ReceivedAt:  receivedAt,
		SourceIP:    rec.SourceIP,
		SourcePort:  port,
		Hostname:    rec.Hostname,
		Facility:    rec.Facility,
		Severity:    rec.Severity,
		Priority:    rec.Priority,
		AppName:     rec.AppName,
		ProcID:      rec.ProcID,
		MsgID:       rec.MsgID,
		Message:     rec.Message,
		RawMessage:  rec.RawMessage,
		IsSyslog:    rec.IsSyslog,
		IsMarker:    rec.IsMarker,
		MarkerStyle: rec.MarkerStyle,
	}
}

// InsertMarker stores an operator-created divider entry. Markers carry
// no network origin and are excluded from known_hosts.
func (s *Store) InsertMarker(label, timestamp, style string) (Entry, error) {
	if timestamp == "" {
		timestamp = syslog.FormatTime(time.Now())
	}
	if style == "" {
		style = "default"
	}
	hostname := "MARKER"
	rec := syslog.Record{
		Timestamp:   timestamp,
		SourceIP:    "marker",
		Hostname:    &hostname,
		Message:     label,
		RawMessage:  "[MARKER] " + label,
		IsSyslog:    false,
		IsMarker:    true,
		MarkerStyle: &style,
	}
	return s.Insert(rec)
}

const entryColumns = `id, timestamp, received_at, source_ip, source_port,
	hostname, facility, severity, priority, app_name, proc_id, msg_id,
	message, raw_message, is_syslog, is_marker, marker_style`

func scanEntry(row interface{ Scan(...any) error }) (Entry, error) {
	var e Entry
	err := row.Scan(&e.ID, &e.Timestamp, &e.ReceivedAt, &e.SourceIP,
		&e.SourcePort, &e.Hostname, &e.Facility, &e.Severity, &e.Priority,
		&e.AppName, &e.ProcID, &e.MsgID, &e.Message, &e.RawMessage,
		&e.IsSyslog, &e.IsMarker, &e.MarkerStyle)
	return e, err
}

// Query returns the entries matching f, ordered and paginated per f.
func (s *Store) Query(f Filter) ([]Entry, error) {
	f = f.normalized()
	where, args := f.whereClause()
	q := "SELECT " + entryColumns + " FROM log_entries" + where +
		f.orderClause() + " LIMIT ? OFFSET ?"
	args = append(args, f.Limit, f.Offset)

	rows, err := s.readDB.Query(q, args...)
	if err != nil {
		return nil, storeErr("query entries", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, storeErr("scan entry", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("query entries", err)
	}
	return entries, nil
}

// Count returns the total matching f, ignoring pagination. It uses the
// same WHERE builder as Query so the two always agree.
func (s *Store) Count(f Filter) (int, error) {
	f = f.normalized()
	where, args := f.whereClause()
	var n int
	if err := s.readDB.QueryRow("SELECT COUNT(*) FROM log_entries"+where, args...).Scan(&n); err != nil {
		return 0, storeErr("count entries", err)
	}
	return n, nil
}

// GetEntry fetches a single entry by id.
func (s *Store) GetEntry(id int64) (Entry, error) {
	row := s.readDB.QueryRow("SELECT "+entryColumns+" FROM log_entries WHERE id = ?", id)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, ErrNotFound
	}
	if err != nil {
		return Entry{}, storeErr("get entry", err)
	}
	return e, nil
}

// LatestID returns the highest assigned entry id, 0 when empty.
func (s *Store) LatestID() (int64, error) {
	var id int64
	if err := s.readDB.QueryRow("SELECT COALESCE(MAX(id), 0) FROM log_entries").Scan(&id); err != nil {
		return 0, storeErr("latest id", err)
	}
	return id, nil
}

// EntriesAfter returns up to limit entries with id > afterID in
// ascending id order. The live stream uses it to backfill a gap.
func (s *Store) EntriesAfter(afterID int64, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = DefaultQueryLimit
	}
	rows, err := s.readDB.Query("SELECT "+entryColumns+" FROM log_entries WHERE id > ? ORDER BY id ASC LIMIT ?", afterID, limit)
	if err != nil {
		return nil, storeErr("entries after", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, storeErr("scan entry", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("entries after", err)
	}
	return entries, nil
}

// ListKnownHosts returns every known host, most recently active first.
func (s *Store) ListKnownHosts() ([]KnownHost, error) {
	rows, err := s.readDB.Query(`SELECT ip, hostname, display_name, country,
		first_seen, last_seen, message_count
		FROM known_hosts ORDER BY last_seen DESC`)
	if err != nil {
		return nil, storeErr("list hosts", err)
	}
	defer rows.Close()

	hosts := []KnownHost{}
	for rows.Next() {
		var h KnownHost
		if err := rows.Scan(&h.IP, &h.Hostname, &h.DisplayName, &h.Country,
			&h.FirstSeen, &h.LastSeen, &h.MessageCount); err != nil {
			return nil, storeErr("scan host", err)
		}
		hosts = append(hosts, h)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("list hosts", err)
	}
	return hosts, nil
}

// SetDisplayName assigns a friendly name to a source address. An empty
// name clears it. The host row is created on demand so a name can be
// set before the host has logged anything.
func (s *Store) SetDisplayName(ip, name string) error {
	var display *string
	if name != "" {
		display = &name
	}
	now := syslog.FormatTime(time.Now())
	_, err := s.writeDB.Exec(`INSERT INTO known_hosts (ip, display_name, first_seen, last_seen, message_count)
		VALUES (?, ?, ?, ?, 0)
		ON CONFLICT(ip) DO UPDATE SET display_name = excluded.display_name`,
		ip, display, now, now)
	if err != nil {
		return storeErr("set display name", err)
	}
	return nil
}

// SetHostCountry records the GeoIP country for a host already in
// known_hosts. Unknown hosts are ignored.
func (s *Store) SetHostCountry(ip, country string) error {
	if _, err := s.writeDB.Exec("UPDATE known_hosts SET country = ? WHERE ip = ?", country, ip); err != nil {
		return storeErr("set host country", err)
	}
	return nil
}

// DisplayName returns the friendly name for ip. ErrNotFound means the
// host is unknown or has no name set.
func (s *Store) DisplayName(ip string) (string, error) {
	var name sql.NullString
	err := s.readDB.QueryRow("SELECT display_name FROM known_hosts WHERE ip = ?", ip).Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", storeErr("display name", err)
	}
	if !name.Valid {
		return "", ErrNotFound
	}
	return name.String, nil
}

// PurgeBefore deletes entries received before the cutoff and reports
// how many were removed. Markers are kept regardless of age.
func (s *Store) PurgeBefore(receivedBefore string) (int64, error) {
	res, err := s.writeDB.Exec("DELETE FROM log_entries WHERE received_at < ? AND is_marker = 0", receivedBefore)
	if err != nil {
		return 0, storeErr("purge", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, storeErr("purge", err)
	}
	return n, nil
}

// Summary reports store-wide totals.
func (s *Store) Summary() (Stats, error) {
	var st Stats
	err := s.readDB.QueryRow(`SELECT COUNT(*),
		COALESCE(SUM(is_marker), 0),
		COALESCE(MIN(received_at), ''),
		COALESCE(MAX(received_at), '')
		FROM log_entries`).Scan(&st.TotalEntries, &st.TotalMarkers, &st.OldestEntry, &st.NewestEntry)
	if err != nil {
		return Stats{}, storeErr("stats", err)
	}
	if err := s.readDB.QueryRow("SELECT COUNT(*) FROM known_hosts").Scan(&st.TotalHosts); err != nil {
		return Stats{}, storeErr("stats", err)
	}
	return st, nil
}
