package ingest

import (
	"log"
	"sync"

	"github.com/evlog/evlog/internal/enrich"
	"github.com/evlog/evlog/internal/hub"
	"github.com/evlog/evlog/internal/logstore"
	"github.com/evlog/evlog/internal/syslog"
)

// GeoResolver maps a source address to an ISO country code. ok is
// false when the address cannot be resolved.
type GeoResolver interface {
	Country(ip string) (string, bool)
}

// Mirror receives a copy of every published entry, best effort.
type Mirror interface {
	Publish(e enrich.Entry)
}

// Router is the pipeline core: it drains the datagram queue on a
// single goroutine, normalizes, persists, enriches and fans out. One
// bad message never takes the loop down; it is logged, counted and
// skipped.
type Router struct {
	store    *logstore.Store
	enricher *enrich.Enricher
	hub      *hub.Hub
	geo      GeoResolver // optional
	mirror   Mirror      // optional
	metrics  *Metrics

	seenIPs map[string]struct{} // touched only by the loop goroutine
	wg      sync.WaitGroup
}

func NewRouter(store *logstore.Store, enricher *enrich.Enricher, h *hub.Hub, metrics *Metrics) *Router {
	return &Router{
		store:    store,
		enricher: enricher,
		hub:      h,
		metrics:  metrics,
		seenIPs:  map[string]struct{}{},
	}
}

// WithGeo attaches an optional country resolver for first-seen hosts.
func (r *Router) WithGeo(geo GeoResolver) *Router {
	r.geo = geo
	return r
}

// WithMirror attaches an optional secondary sink.
func (r *Router) WithMirror(m Mirror) *Router {
	r.mirror = m
	return r
}

// Run consumes datagrams until in is closed. It returns immediately;
// use Wait to block until the queue is drained.
func (r *Router) Run(in <-chan Datagram) {
	r.wg.Add(1)
	go r.loop(in)
}

// Wait blocks until the loop has drained its input and exited.
func (r *Router) Wait() {
	r.wg.Wait()
}

func (r *Router) loop(in <-chan Datagram) {
	defer r.wg.Done()

	var processed uint64
	for dg := range in {
		r.metrics.Received.Inc()

		rec := syslog.Parse(dg.Data, dg.IP, dg.Port)
		entry, err := r.store.Insert(rec)
		if err != nil {
			// ErrStorage covers every insert failure; the message is
			// lost but the pipeline keeps going.
			log.Printf("[router] store message from %s: %v", dg.IP, err)
			r.metrics.Dropped.Inc()
			continue
		}
		r.metrics.Stored.Inc()

		r.noteHost(dg.IP)

		enriched := r.enricher.Enrich(entry)
		r.hub.Publish(enriched)
		r.metrics.Published.Inc()
		if r.mirror != nil {
			r.mirror.Publish(enriched)
		}

		processed++
		if processed%1000 == 0 {
			log.Printf("[router] processed %d messages", processed)
		}
	}
	log.Printf("[router] queue closed after %d messages", processed)
}

// noteHost resolves and stores the country the first time an address
// shows up this run. SetHostCountry is idempotent so restarts redoing
// the lookup are harmless.
func (r *Router) noteHost(ip string) {
	if r.geo == nil {
		return
	}
	if _, ok := r.seenIPs[ip]; ok {
		return
	}
	r.seenIPs[ip] = struct{}{}
	country, ok := r.geo.Country(ip)
	if !ok {
		return
	}
	if err := r.store.SetHostCountry(ip, country); err != nil {
		log.Printf("[router] set country for %s: %v", ip, err)
	}
}
