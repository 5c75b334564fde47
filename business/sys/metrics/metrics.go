// Package metrics constructs the metrics the application will track.
package metrics

import (
	"github.com/ardanlabs/miner/foundation/blockchain/miner"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "miner"

var (
	requests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Count of HTTP requests handled.",
	}, []string{"method", "status"})

	errorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "errors_total",
		Help:      "Count of HTTP requests that returned an error.",
	})

	panics = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "panics_total",
		Help:      "Count of HTTP handlers that panicked.",
	})
)

// AddRequest increments the request counter for the method and status.
func AddRequest(method string, status string) {
	requests.WithLabelValues(method, status).Inc()
}

// AddErrors increments the errors counter.
func AddErrors() {
	errorsTotal.Inc()
}

// AddPanics increments the panics counter.
func AddPanics() {
	panics.Inc()
}

// =============================================================================

// RegisterMinerStats exposes the search counters through the registerer.
// The counters are read at scrape time so the hot loop never touches
// prometheus.
func RegisterMinerStats(reg prometheus.Registerer, stats *miner.Stats) error {
	collectors := []prometheus.Collector{
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "search",
			Name:      "searches_total",
			Help:      "Count of searches started.",
		}, func() float64 { return float64(stats.Searches.Load()) }),

		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "search",
			Name:      "extranonces_total",
			Help:      "Count of extranonce values tried.",
		}, func() float64 { return float64(stats.Extranonces.Load()) }),

		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "search",
			Name:      "hashes_total",
			Help:      "Count of header hashes computed.",
		}, func() float64 { return float64(stats.Hashes.Load()) }),

		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "search",
			Name:      "solutions_total",
			Help:      "Count of solutions found.",
		}, func() float64 { return float64(stats.Solutions.Load()) }),
	}

	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return err
		}
	}

	return nil
}
