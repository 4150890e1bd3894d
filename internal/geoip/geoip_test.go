package geoip

import (
	"os"
	"path/filepath"
	"testing"
)

func TestOpen_MissingFile(t *testing.T) {
	if _, err := Open(filepath.Join(t.TempDir(), "nope.mmdb")); err == nil {
		t.Fatalf("Open on missing file succeeded")
	}
}

func TestOpen_GarbageFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.mmdb")
	if err := os.WriteFile(path, []byte("not an mmdb"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Open(path); err == nil {
		t.Fatalf("Open on garbage file succeeded")
	}
}

func TestNilResolver_AlwaysMisses(t *testing.T) {
	var r *Resolver
	if _, ok := r.Country("8.8.8.8"); ok {
		t.Fatalf("nil resolver returned a country")
	}
	if err := r.Reload(); err != nil {
		t.Fatalf("nil Reload: %v", err)
	}
	if err := r.Close(); err != nil {
		t.Fatalf("nil Close: %v", err)
	}
}

func TestResolver_InvalidAddress(t *testing.T) {
	r := &Resolver{}
	if _, ok := r.Country("not-an-ip"); ok {
		t.Fatalf("invalid address resolved")
	}
	if _, ok := r.Country("10.0.0.1"); ok {
		t.Fatalf("closed resolver resolved")
	}
}
