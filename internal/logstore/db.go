package logstore

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite" // pure-Go SQLite driver
)

// openWriteDB opens the write handle: a single connection so all inserts
// serialize, with WAL mode so readers are never blocked behind it.
func openWriteDB(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open db %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)
	if err := applyPragmas(db, path); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// openReadDB opens the pooled read handle for queries. WAL snapshot
// isolation means these connections observe only committed records.
func openReadDB(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("open read db %s: %w", path, err)
	}
	// The write handle already switched the database to WAL; read-only
	// connections must not attempt to change the journal mode.
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("exec busy_timeout on %s: %w", path, err)
	}
	return db, nil
}

func applyPragmas(db *sql.DB, path string) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return fmt.Errorf("exec %q on %s: %w", p, path, err)
		}
	}
	return nil
}
