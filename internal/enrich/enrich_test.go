package enrich

import (
	"testing"
	"time"

	"github.com/evlog/evlog/internal/logstore"
)

type fakeResolver struct {
	names map[string]string
	calls int
}

func (f *fakeResolver) DisplayName(ip string) (string, error) {
	f.calls++
	if name, ok := f.names[ip]; ok {
		return name, nil
	}
	return "", logstore.ErrNotFound
}

func intPtr(v int) *int { return &v }

func TestEnrich_NamesAndDisplayName(t *testing.T) {
	resolver := &fakeResolver{names: map[string]string{"10.0.0.1": "Office Router"}}
	en, err := New(resolver, time.Minute)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	e := en.Enrich(logstore.Entry{
		SourceIP: "10.0.0.1",
		Facility: intPtr(4),
		Severity: intPtr(2),
	})
	if e.FacilityName == nil || *e.FacilityName != "auth" {
		t.Fatalf("facility name: got %v", e.FacilityName)
	}
	if e.SeverityName == nil || *e.SeverityName != "Critical" {
		t.Fatalf("severity name: got %v", e.SeverityName)
	}
	if e.DisplayName == nil || *e.DisplayName != "Office Router" {
		t.Fatalf("display name: got %v", e.DisplayName)
	}
}

func TestEnrich_RawEntryHasNilNames(t *testing.T) {
	en, err := New(&fakeResolver{}, time.Minute)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	e := en.Enrich(logstore.Entry{SourceIP: "10.0.0.2", Message: "plain"})
	if e.FacilityName != nil || e.SeverityName != nil || e.DisplayName != nil {
		t.Fatalf("raw entry enriched: %+v", e)
	}
}

func TestEnrich_CachesLookups(t *testing.T) {
	resolver := &fakeResolver{names: map[string]string{"10.0.0.1": "Router"}}
	en, err := New(resolver, time.Minute)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	for i := 0; i < 5; i++ {
		en.Enrich(logstore.Entry{SourceIP: "10.0.0.1"})
		en.Enrich(logstore.Entry{SourceIP: "10.0.0.9"}) // unnamed, cached miss
	}
	if resolver.calls != 2 {
		t.Fatalf("resolver calls: got %d, want 2", resolver.calls)
	}
}

func TestEnrich_InvalidateForcesReload(t *testing.T) {
	resolver := &fakeResolver{names: map[string]string{"10.0.0.1": "Old Name"}}
	en, err := New(resolver, time.Minute)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if e := en.Enrich(logstore.Entry{SourceIP: "10.0.0.1"}); e.DisplayName == nil || *e.DisplayName != "Old Name" {
		t.Fatalf("display name: got %v", e.DisplayName)
	}

	resolver.names["10.0.0.1"] = "New Name"
	en.Invalidate("10.0.0.1")

	if e := en.Enrich(logstore.Entry{SourceIP: "10.0.0.1"}); e.DisplayName == nil || *e.DisplayName != "New Name" {
		t.Fatalf("display name after invalidate: got %v", e.DisplayName)
	}
}

func TestEnrich_SyntheticSourcesSkipped(t *testing.T) {
	resolver := &fakeResolver{names: map[string]string{"marker": "should not resolve"}}
	en, err := New(resolver, time.Minute)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if e := en.Enrich(logstore.Entry{SourceIP: "marker"}); e.DisplayName != nil {
		t.Fatalf("marker got a display name: %v", *e.DisplayName)
	}
	if resolver.calls != 0 {
		t.Fatalf("resolver called for synthetic source")
	}
}
