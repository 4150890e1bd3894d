package ingest

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts each stage of the ingestion pipeline.
type Metrics struct {
	Received  prometheus.Counter
	Stored    prometheus.Counter
	Dropped   prometheus.Counter // parse never drops; this counts storage failures
	Published prometheus.Counter
}

// NewMetrics registers the pipeline counters plus a live subscriber
// gauge on reg. subscribers may be nil when no hub is attached.
func NewMetrics(reg prometheus.Registerer, subscribers func() int) *Metrics {
	factory := promauto.With(reg)
	if subscribers != nil {
		factory.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "evlog_subscribers",
			Help: "Current number of live stream subscribers.",
		}, func() float64 { return float64(subscribers()) })
	}
	return &Metrics{
		Received: factory.NewCounter(prometheus.CounterOpts{
			Name: "evlog_messages_received_total",
			Help: "Datagrams handed to the pipeline.",
		}),
		Stored: factory.NewCounter(prometheus.CounterOpts{
			Name: "evlog_messages_stored_total",
			Help: "Entries committed to the log store.",
		}),
		Dropped: factory.NewCounter(prometheus.CounterOpts{
			Name: "evlog_messages_dropped_total",
			Help: "Messages dropped because the store rejected them.",
		}),
		Published: factory.NewCounter(prometheus.CounterOpts{
			Name: "evlog_messages_published_total",
			Help: "Entries fanned out to subscribers.",
		}),
	}
}
