package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	searchResults = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "hiredup",
			Subsystem: "jobs",
			Name:      "search_results",
			Help:      "单次搜索返回的职位数量。",
			Buckets:   []float64{0, 1, 5, 10, 25, 50, 100, 250},
		},
	)

	jobStateChanges = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "hiredup",
			Subsystem: "jobs",
			Name:      "state_changes_total",
			Help:      "收藏、取消收藏与投递次数；changed=false 表示幂等的重复操作。",
		},
		[]string{"action", "changed"},
	)

	catalogJobs = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "hiredup",
			Subsystem: "jobs",
			Name:      "catalog_size",
			Help:      "当前目录中的职位数量。",
		},
	)
)

// ObserveSearch records the size of one search result.
func ObserveSearch(results int) {
	searchResults.Observe(float64(results))
}

// ObserveJobState records a save, unsave or apply.
func ObserveJobState(action string, changed bool) {
	label := "false"
	if changed {
		label = "true"
	}
	jobStateChanges.WithLabelValues(action, label).Inc()
}

// SetCatalogSize publishes the current catalog length.
func SetCatalogSize(n int) {
	catalogJobs.Set(float64(n))
}
