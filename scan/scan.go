// Package scan is the distributed-scan framework: it partitions one
// logical store's keyspace across workers, applies a job's key filter
// before materializing entries and hands every accepted key to the job
// exactly once.
package scan

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/puzpuzpuz/xsync/v3"
	"github.com/quivergraph/quiver"
	"github.com/quivergraph/quiver/utils"
)

var ScannedKeys = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: "quiver",
	Subsystem: "scan",
	Name:      "keys",
}, []string{"store", "result"})

var Runs = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: "quiver",
	Subsystem: "scan",
	Name:      "runs",
}, []string{"store", "result"})

var RunDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: "quiver",
	Subsystem: "scan",
	Name:      "run_duration",
	Buckets:   []float64{0, 1, 5, 10, 20, 50, 100, 200, 500},
}, []string{"store"})

// CustomCounters mirrors every job-level custom counter when a run
// flushes its metrics.
var CustomCounters = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: "quiver",
	Subsystem: "scan",
	Name:      "custom",
}, []string{"store", "counter"})

// WorkerConfig is the worker-scoped configuration a job receives at
// iteration start.
type WorkerConfig struct {
	WorkerID int
	Logger   utils.Logger
}

// Job is one maintenance job executed over a store scan. A Job value
// given to the executor is a template; every worker runs its own Clone,
// so implementations only need Clone to copy immutable configuration
// and each worker acquires its own resources in WorkerIterationStart.
type Job interface {
	WorkerIterationStart(cfg WorkerConfig, m *Metrics) error
	WorkerIterationEnd(m *Metrics) error

	// Queries returns the column ranges to materialize per key. The
	// order is stable; Process receives entries keyed by position in
	// this slice.
	Queries() ([]quiver.SliceQuery, error)

	// KeyFilter is evaluated once per candidate key, before any
	// entries for the key are materialized. It must be safe for
	// concurrent use and must not panic on garbage keys.
	KeyFilter() func(key []byte) bool

	// Process consumes all entries found for one accepted key,
	// grouped by query index. Called exactly once per key.
	Process(key []byte, entries map[int][]quiver.Entry, m *Metrics) error

	Clone() Job
}

// Metrics carries per-run custom counters. Jobs only increment;
// the framework and callers read them out at the end of a run.
type Metrics struct {
	custom *xsync.MapOf[string, uint64]
}

func NewMetrics() *Metrics {
	return &Metrics{custom: xsync.NewMapOf[string, uint64]()}
}

func (m *Metrics) IncrementCustom(name string, delta uint64) {
	m.custom.Compute(name, func(old uint64, _ bool) (uint64, bool) {
		return old + delta, false
	})
}

func (m *Metrics) Custom(name string) uint64 {
	v, _ := m.custom.Load(name)
	return v
}

func (m *Metrics) Range(f func(name string, value uint64) bool) {
	m.custom.Range(f)
}
