package ldb

import (
	"github.com/prometheus/client_golang/prometheus"
)

// cacheMetrics counts lookups served by the header cache.
type cacheMetrics struct {
	hits   prometheus.Counter
	misses prometheus.Counter
}

func newCacheMetrics(registerer prometheus.Registerer) (*cacheMetrics, error) {
	m := &cacheMetrics{
		hits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "spreadd",
			Subsystem: "headerdb",
			Name:      "cache_hits_total",
			Help:      "Header lookups served from the in-memory cache.",
		}),
		misses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "spreadd",
			Subsystem: "headerdb",
			Name:      "cache_misses_total",
			Help:      "Header lookups that had to read leveldb.",
		}),
	}
	if registerer == nil {
		return m, nil
	}
	for _, collector := range []prometheus.Collector{m.hits, m.misses} {
		err := registerer.Register(collector)
		if err != nil {
			return nil, err
		}
	}
	return m, nil
}
