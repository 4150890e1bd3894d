// Package geoip resolves source addresses to ISO country codes from a
// local MaxMind database. The resolver is optional; without a database
// every lookup misses and hosts simply carry no country.
package geoip

import (
	"fmt"
	"log"
	"net"
	"sync"

	"github.com/oschwald/maxminddb-golang"
)

type countryRecord struct {
	Country struct {
		ISOCode string `maxminddb:"iso_code"`
	} `maxminddb:"country"`
}

// Resolver wraps an mmdb reader. A nil *Resolver is a disabled
// resolver whose lookups always miss.
type Resolver struct {
	mu     sync.RWMutex
	reader *maxminddb.Reader
	path   string
}

// Open loads the database at path. Works with any mmdb carrying
// country data (GeoLite2-Country, GeoLite2-City, dbip-country).
func Open(path string) (*Resolver, error) {
	reader, err := maxminddb.Open(path)
	if err != nil {
		return nil, fmt.Errorf("geoip: open %s: %w", path, err)
	}
	log.Printf("[geoip] loaded %s (%s)", path, reader.Metadata.DatabaseType)
	return &Resolver{reader: reader, path: path}, nil
}

// Reload swaps in a freshly opened copy of the database file, for use
// after the file has been replaced on disk. The old reader keeps
// serving until the new one is ready.
func (r *Resolver) Reload() error {
	if r == nil {
		return nil
	}
	reader, err := maxminddb.Open(r.path)
	if err != nil {
		return fmt.Errorf("geoip: reload %s: %w", r.path, err)
	}
	r.mu.Lock()
	old := r.reader
	r.reader = reader
	r.mu.Unlock()
	if old != nil {
		old.Close()
	}
	log.Printf("[geoip] reloaded %s", r.path)
	return nil
}

// Country returns the ISO country code for ip. ok is false when the
// resolver is disabled, the address is invalid, or the database has no
// record for it.
func (r *Resolver) Country(ip string) (string, bool) {
	if r == nil {
		return "", false
	}
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return "", false
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.reader == nil {
		return "", false
	}
	var rec countryRecord
	if err := r.reader.Lookup(parsed, &rec); err != nil {
		return "", false
	}
	if rec.Country.ISOCode == "" {
		return "", false
	}
	return rec.Country.ISOCode, true
}

func (r *Resolver) Close() error {
	if r == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.reader == nil {
		return nil
	}
	err := r.reader.Close()
	r.reader = nil
	return err
}
