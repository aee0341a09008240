// Package metrics registers the Prometheus collectors exported by the
// buffer cache, log manager, and block allocator. It is deliberately thin:
// the core package (unixfs) only ever touches the few counters/gauges it is
// handed through Cache/Log/Allocator, never the prometheus API directly,
// the same separation gcsfuse draws between its internal/logger and the
// rest of the tree (library code takes a narrow interface; cmd/ wires the
// concrete implementation).
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Cache holds the buffer-cache collectors.
type Cache struct {
	Hits      prometheus.Counter
	Misses    prometheus.Counter
	Evictions prometheus.Counter
}

// Log holds the log-manager collectors.
type Log struct {
	Commits       prometheus.Counter
	AbsorbedWrite prometheus.Counter
	LoggedBlocks  prometheus.Counter
}

// Allocator holds the block-allocator collectors.
type Allocator struct {
	FreeBlocks prometheus.Gauge
	Allocs     prometheus.Counter
	Frees      prometheus.Counter
}

// Registry bundles every collector set registered for one mounted
// filesystem instance, keyed so multiple mounts in one process (e.g. the
// fsck tool scanning several images) don't collide on metric names.
type Registry struct {
	Cache     *Cache
	Log       *Log
	Allocator *Allocator
	reg       *prometheus.Registry
}

// New registers a fresh set of collectors under a private registry and
// returns it alongside handles for the core package to update.
func New(label string) *Registry {
	reg := prometheus.NewRegistry()
	cl := prometheus.Labels{"image": label}

	mk := func(name, help string) prometheus.Counter {
		return promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Namespace:   "unixfs",
			Name:        name,
			Help:        help,
			ConstLabels: cl,
		})
	}
	mkGauge := func(name, help string) prometheus.Gauge {
		return promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Namespace:   "unixfs",
			Name:        name,
			Help:        help,
			ConstLabels: cl,
		})
	}

	return &Registry{
		reg: reg,
		Cache: &Cache{
			Hits:      mk("bcache_hits_total", "buffer cache lookups served without a disk read"),
			Misses:    mk("bcache_misses_total", "buffer cache lookups that required a disk read"),
			Evictions: mk("bcache_evictions_total", "buffers evicted via global LRU"),
		},
		Log: &Log{
			Commits:       mk("log_commits_total", "transactions committed"),
			AbsorbedWrite: mk("log_absorbed_writes_total", "log_write calls absorbed into an already-logged block"),
			LoggedBlocks:  mk("log_blocks_written_total", "distinct blocks appended to the log header"),
		},
		Allocator: &Allocator{
			FreeBlocks: mkGauge("alloc_free_blocks", "data blocks currently free in the bitmap"),
			Allocs:     mk("alloc_total", "successful balloc calls"),
			Frees:      mk("free_total", "bfree calls"),
		},
	}
}

// Gatherer exposes the underlying registry for an HTTP /metrics endpoint.
func (r *Registry) Gatherer() prometheus.Gatherer { return r.reg }
