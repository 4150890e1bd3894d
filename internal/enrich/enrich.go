// Package enrich decorates stored entries with derived presentation
// fields before they leave the process: human-readable facility and
// severity names plus the source's operator-assigned display name.
package enrich

import (
	"errors"
	"time"

	"github.com/maypok86/otter"

	"github.com/evlog/evlog/internal/logstore"
	"github.com/evlog/evlog/internal/syslog"
)

// Entry is a stored entry plus derived fields.
type Entry struct {
	logstore.Entry
	FacilityName *string `json:"facility_name"`
	SeverityName *string `json:"severity_name"`
	DisplayName  *string `json:"display_name"`
}

// NameResolver looks up the display name for a source address.
// logstore.ErrNotFound means the host has no name.
type NameResolver interface {
	DisplayName(ip string) (string, error)
}

// Enricher caches display-name lookups so the hot ingestion path does
// not hit the database per message. Entries expire on a short TTL; an
// explicit Invalidate covers renames within the window.
type Enricher struct {
	resolver NameResolver
	names    otter.Cache[string, string]
}

func New(resolver NameResolver, ttl time.Duration) (*Enricher, error) {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	cache, err := otter.MustBuilder[string, string](4096).
		Cost(func(_ string, _ string) uint32 { return 1 }).
		WithTTL(ttl).
		Build()
	if err != nil {
		return nil, err
	}
	return &Enricher{resolver: resolver, names: cache}, nil
}

// Enrich returns e with presentation fields attached.
func (en *Enricher) Enrich(e logstore.Entry) Entry {
	out := Entry{Entry: e}
	if e.Facility != nil {
		name := syslog.FacilityName(*e.Facility)
		out.FacilityName = &name
	}
	if e.Severity != nil {
		name := syslog.SeverityName(*e.Severity)
		out.SeverityName = &name
	}
	if name, ok := en.displayName(e.SourceIP); ok {
		out.DisplayName = &name
	}
	return out
}

// EnrichAll maps Enrich over a page of entries.
func (en *Enricher) EnrichAll(entries []logstore.Entry) []Entry {
	out := make([]Entry, len(entries))
	for i, e := range entries {
		out[i] = en.Enrich(e)
	}
	return out
}

// Invalidate drops the cached name for ip. Call after a rename so the
// new name is visible immediately instead of after the TTL.
func (en *Enricher) Invalidate(ip string) {
	en.names.Delete(ip)
}

func (en *Enricher) displayName(ip string) (string, bool) {
	if ip == "" || ip == "marker" || ip == "unknown" {
		return "", false
	}
	if name, ok := en.names.Get(ip); ok {
		return name, name != ""
	}
	name, err := en.resolver.DisplayName(ip)
	if errors.Is(err, logstore.ErrNotFound) {
		// Cache the absence too, or every unnamed host stays a miss.
		en.names.Set(ip, "")
		return "", false
	}
	if err != nil {
		return "", false
	}
	en.names.Set(ip, name)
	return name, true
}
