package scan

import (
	"context"
	"log/slog"
	"time"

	"github.com/alitto/pond/v2"
	"github.com/cockroachdb/pebble"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/quivergraph/quiver"
	"github.com/quivergraph/quiver/utils"
)

type ExecutorOptions struct {
	// Store is the logical store prefix the scan iterates.
	Store byte

	// Workers is the scan parallelism. Worker ranges split on the
	// first byte after the store prefix, so at most 256 are useful.
	Workers int
	Logger  utils.Logger
}

func (o *ExecutorOptions) SetDefaults() {
	if o.Workers == 0 {
		o.Workers = 4
	}
	if o.Workers > 256 {
		o.Workers = 256
	}
	if o.Logger == nil {
		o.Logger = utils.NewDefaultLogger(slog.LevelInfo)
	}
}

// Executor runs one scan over a store. Each worker owns a disjoint
// contiguous sub-range of the keyspace and a fresh clone of the job;
// nothing but the Metrics value is shared across workers.
type Executor struct {
	db    *pebble.DB
	job   Job
	opts  ExecutorOptions
	runID string
	rate  *utils.AvgVal

	progress utils.CMap[int, uint64]
}

func NewExecutor(db *pebble.DB, job Job, opts ExecutorOptions) *Executor {
	opts.SetDefaults()
	return &Executor{
		db:    db,
		job:   job,
		opts:  opts,
		runID: uuid.NewString(),
		rate:  utils.NewAvgVal(0),
	}
}

// KeysPerSecond is the running average per-worker key throughput of
// this run.
func (e *Executor) KeysPerSecond() float64 {
	return e.rate.Val()
}

// Progress reports how many keys each worker has processed so far.
func (e *Executor) Progress() map[int]uint64 {
	out := map[int]uint64{}
	e.progress.Range(func(worker int, keys uint64) bool {
		out[worker] = keys
		return true
	})
	return out
}

// partition splits the byte space after the store prefix into n
// contiguous worker ranges. Bounds include the store prefix.
func (e *Executor) partition(n int) (bounds [][2][]byte) {
	store := e.opts.Store
	for i := 0; i < n; i++ {
		lo := []byte{store}
		if i > 0 {
			lo = append(lo, byte(i*256/n))
		}
		hi := []byte{store + 1}
		if i < n-1 {
			hi = []byte{store, byte((i + 1) * 256 / n)}
		}
		bounds = append(bounds, [2][]byte{lo, hi})
	}
	return
}

// Run executes the scan and returns the accumulated metrics. The first
// worker failure aborts only that worker; its error is returned after
// every other worker finished.
func (e *Executor) Run(ctx context.Context) (*Metrics, error) {
	start := time.Now()
	store := string(e.opts.Store)
	m := NewMetrics()

	pool := pond.NewPool(e.opts.Workers)
	group := pool.NewGroup()
	for i, b := range e.partition(e.opts.Workers) {
		group.SubmitErr(func() error {
			return e.runWorker(ctx, i, b[0], b[1], m)
		})
	}
	err := group.Wait()
	pool.StopAndWait()

	RunDuration.WithLabelValues(store).Observe(time.Since(start).Seconds())
	m.Range(func(name string, value uint64) bool {
		CustomCounters.WithLabelValues(store, name).Add(float64(value))
		return true
	})
	if err != nil && !errors.Is(err, pond.ErrGroupStopped) {
		Runs.WithLabelValues(store, "error").Inc()
		return m, errors.Wrapf(err, "scan run %s over store %q failed", e.runID, store)
	}
	Runs.WithLabelValues(store, "success").Inc()
	return m, nil
}

func (e *Executor) runWorker(ctx context.Context, worker int, lo, hi []byte, m *Metrics) (err error) {
	start := time.Now()
	store := string(e.opts.Store)
	log := e.opts.Logger
	ctx = utils.WithDefaultArgs(ctx, "run", e.runID, "worker", worker)
	cfg := WorkerConfig{WorkerID: worker, Logger: log}
	e.progress.Store(worker, 0)

	job := e.job.Clone()
	if err = job.WorkerIterationStart(cfg, m); err != nil {
		return err
	}
	defer func() {
		if eerr := job.WorkerIterationEnd(m); eerr != nil && err == nil {
			err = eerr
		}
	}()

	queries, err := job.Queries()
	if err != nil {
		return err
	}
	filter := job.KeyFilter()

	snap := e.db.NewSnapshot()
	defer snap.Close()
	iter, err := snap.NewIter(&pebble.IterOptions{LowerBound: lo, UpperBound: hi})
	if err != nil {
		return err
	}
	defer iter.Close()

	// Entries are grouped per exact key before processing: keys of
	// different lengths may interleave in the physical order.
	verdicts := map[string]bool{}
	gathered := map[string]map[int][]quiver.Entry{}
	order := []string{}
	for valid := iter.First(); valid; valid = iter.Next() {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		key, column, serr := quiver.SplitStoreKey(e.opts.Store, iter.Key()[1:])
		if serr != nil {
			log.WarnCtx(ctx, "skipping malformed store key", "error", serr)
			continue
		}
		kstr := string(key)
		accepted, seen := verdicts[kstr]
		if !seen {
			accepted = filter(key)
			verdicts[kstr] = accepted
			if accepted {
				ScannedKeys.WithLabelValues(store, "accepted").Inc()
			} else {
				ScannedKeys.WithLabelValues(store, "filtered").Inc()
			}
		}
		if !accepted {
			continue
		}
		for qi, q := range queries {
			if !q.Contains(column) {
				continue
			}
			byQuery, ok := gathered[kstr]
			if !ok {
				byQuery = map[int][]quiver.Entry{}
				gathered[kstr] = byQuery
				order = append(order, kstr)
			}
			entry := quiver.Entry{
				Column: append([]byte(nil), column...),
				Value:  append([]byte(nil), iter.Value()...),
			}
			byQuery[qi] = append(byQuery[qi], entry)
		}
	}
	if err = iter.Error(); err != nil {
		return err
	}

	processed := uint64(0)
	for _, kstr := range order {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err = job.Process([]byte(kstr), gathered[kstr], m); err != nil {
			return err
		}
		processed++
		e.progress.Store(worker, processed)
	}
	e.rate.AddRate(processed, time.Since(start))
	log.InfoCtx(ctx, "scan worker done", "keys", processed, "elapsed", time.Since(start))
	return nil
}
