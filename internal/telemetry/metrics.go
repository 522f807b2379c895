package telemetry

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "redman"

// Metrics holds the Prometheus collectors of the acquisition pipeline
type Metrics struct {
	Registry *prometheus.Registry

	FetchesTotal        *prometheus.CounterVec
	ReleasesSelected    prometheus.Counter
	ReleasesStored      prometheus.Counter
	DedupExcludedTotal  *prometheus.CounterVec
	FreeloadProbesTotal *prometheus.CounterVec
	DownloadsTotal      *prometheus.CounterVec
	WatchDuration       prometheus.Histogram
	PoolSize            prometheus.Gauge
}

// NewMetrics creates the collectors on a private registry
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,
		FetchesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetches_total",
			Help:      "Catalog fetches by source type and result",
		}, []string{"source_type", "result"}),
		ReleasesSelected: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "releases_selected_total",
			Help:      "Releases chosen by the variant selector",
		}),
		ReleasesStored: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "releases_stored_total",
			Help:      "Rows reported written to the pool",
		}),
		DedupExcludedTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dedup_excluded_total",
			Help:      "Releases removed from a watch run by dedup stage",
		}, []string{"stage"}),
		FreeloadProbesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "freeload_probes_total",
			Help:      "Freeload probes by outcome",
		}, []string{"result"}),
		DownloadsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "downloads_total",
			Help:      "Torrent downloads by request mode and result",
		}, []string{"mode", "result"}),
		WatchDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "watch_duration_seconds",
			Help:      "Duration of watch runs",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600},
		}),
		PoolSize: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pool_releases",
			Help:      "Releases in the pool at the last watch run",
		}),
	}
}

// WriteTextfile dumps the registry in the node_exporter textfile format
func (m *Metrics) WriteTextfile(path string) error {
	if path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, m.Registry); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}
	return nil
}
