package server

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"snowdash/internal/cache"
)

var (
	pageFetches = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "snowdash",
		Name:      "page_fetches_total",
		Help:      "Dashboard page fetches served, by page.",
	}, []string{"page"})

	degradedFetches = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "snowdash",
		Name:      "degraded_fetches_total",
		Help:      "Page fetches that returned fallback or empty sections.",
	}, []string{"page"})

	drilldownFetches = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "snowdash",
		Name:      "drilldown_fetches_total",
		Help:      "Problem-record drill-down queries executed.",
	})

	refreshes = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "snowdash",
		Name:      "manual_refreshes_total",
		Help:      "Manual cache invalidations requested.",
	})
)

var cacheMetricsOnce sync.Once

// registerCacheMetrics exposes cache counters as gauges sampled at scrape
// time. Gauge functions register once per process.
func registerCacheMetrics(c *cache.Cache) {
	cacheMetricsOnce.Do(func() { registerCacheGauges(c) })
}

func registerCacheGauges(c *cache.Cache) {
	promauto.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: "snowdash",
		Subsystem: "cache",
		Name:      "hits",
		Help:      "Cache hits since process start.",
	}, func() float64 { return float64(c.GetStats().Hits) })

	promauto.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: "snowdash",
		Subsystem: "cache",
		Name:      "misses",
		Help:      "Cache misses since process start.",
	}, func() float64 { return float64(c.GetStats().Misses) })

	promauto.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: "snowdash",
		Subsystem: "cache",
		Name:      "items",
		Help:      "Entries currently cached.",
	}, func() float64 { return float64(c.GetStats().Items) })
}
