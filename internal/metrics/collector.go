package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// StoreStats is a point-in-time snapshot of the server's in-memory state.
type StoreStats struct {
	MediaAssets       int
	PendingOperations int
	Worlds            int
}

// StatsSource is implemented by the server store.
type StatsSource interface {
	Stats() StoreStats
}

type storeCollector struct {
	source StatsSource

	mediaAssetsDesc *prometheus.Desc
	pendingOpsDesc  *prometheus.Desc
	worldsDesc      *prometheus.Desc
}

func newStoreCollector(source StatsSource) *storeCollector {
	return &storeCollector{
		source: source,
		mediaAssetsDesc: prometheus.NewDesc(
			"marble_mock_media_assets",
			"Current number of registered media assets.",
			nil, nil,
		),
		pendingOpsDesc: prometheus.NewDesc(
			"marble_mock_operations_pending",
			"Current number of operations not yet terminal.",
			nil, nil,
		),
		worldsDesc: prometheus.NewDesc(
			"marble_mock_worlds",
			"Current number of generated worlds.",
			nil, nil,
		),
	}
}

func (c *storeCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.mediaAssetsDesc
	ch <- c.pendingOpsDesc
	ch <- c.worldsDesc
}

func (c *storeCollector) Collect(ch chan<- prometheus.Metric) {
	s := c.source.Stats()
	ch <- prometheus.MustNewConstMetric(c.mediaAssetsDesc, prometheus.GaugeValue, float64(s.MediaAssets))
	ch <- prometheus.MustNewConstMetric(c.pendingOpsDesc, prometheus.GaugeValue, float64(s.PendingOperations))
	ch <- prometheus.MustNewConstMetric(c.worldsDesc, prometheus.GaugeValue, float64(s.Worlds))
}

var registerOnce sync.Once

// RegisterStoreCollector exposes gauges backed by the live store. Safe to
// call more than once; only the first registration sticks.
func RegisterStoreCollector(source StatsSource) {
	registerOnce.Do(func() {
		prometheus.MustRegister(newStoreCollector(source))
	})
}
