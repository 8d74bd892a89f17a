// Package metrics holds the process-wide prometheus collectors.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Open failure stages.
const (
	StageDecrypt   = "decrypt"
	StageDeobscure = "deobscure"
)

var (
	ChaptersServed = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "novelcipher",
		Name:      "chapters_served_total",
		Help:      "Chapter payloads delivered to readers.",
	})
	ChaptersSealed = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "novelcipher",
		Name:      "chapters_sealed_total",
		Help:      "Chapters encrypted and written to the vault.",
	})
	OpenFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "novelcipher",
		Name:      "open_failures_total",
		Help:      "Chapters that failed to open in the reader pipeline, by stage.",
	}, []string{"stage"})
	GuardsAttached = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "novelcipher",
		Name:      "guards_attached_total",
		Help:      "Protected regions that received copy guards.",
	})
	GlobalGuardsInstalled = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "novelcipher",
		Name:      "global_guards_installed_total",
		Help:      "Documents that received global copy guards.",
	})
	IndexSyncSeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "novelcipher",
		Name:      "index_sync_seconds",
		Help:      "Duration of vault to index synchronisation passes.",
		Buckets:   prometheus.DefBuckets,
	})
	EventsPublished = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "novelcipher",
		Name:      "events_published_total",
		Help:      "Server-sent events broadcast, by type.",
	}, []string{"type"})
	SSEClients = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "novelcipher",
		Name:      "sse_clients",
		Help:      "Connected server-sent event clients.",
	})
)

func init() {
	prometheus.MustRegister(
		ChaptersServed,
		ChaptersSealed,
		OpenFailures,
		GuardsAttached,
		GlobalGuardsInstalled,
		IndexSyncSeconds,
		EventsPublished,
		SSEClients,
	)
}

// ObserveSince records the seconds elapsed since start on h.
func ObserveSince(h prometheus.Observer, start time.Time) {
	h.Observe(time.Since(start).Seconds())
}

// GuardObserver counts protection enforcer activity.
type GuardObserver struct{}

// GuardsAttached implements protect.Observer.
func (GuardObserver) GuardsAttached() { GuardsAttached.Inc() }

// GlobalGuardsInstalled implements protect.Observer.
func (GuardObserver) GlobalGuardsInstalled() { GlobalGuardsInstalled.Inc() }
