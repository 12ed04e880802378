package indexes

import (
	"context"
	"encoding/hex"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/quivergraph/quiver"
	"github.com/quivergraph/quiver/keys"
	"github.com/quivergraph/quiver/scan"
)

var RemovalDeletedRecords = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: "quiver",
	Subsystem: "index_removal",
	Name:      "deleted_records",
}, []string{"index"})

var RemovalFailedTx = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: "quiver",
	Subsystem: "index_removal",
	Name:      "failed_transactions",
}, []string{"index"})

// RemovalJob removes every on-disk entry of one disabled index. It
// implements scan.Job; one clone runs per worker.
type RemovalJob struct {
	updateJob

	provider  *GraphProvider
	graphDir  string
	graphOpts quiver.Options
}

// NewRemovalJob targets an index on an already opened graph. For a
// relation-type index, relationTypeName names the wrapped type; it is
// empty for composite indexes.
func NewRemovalJob(g *quiver.Graph, indexName, relationTypeName string) *RemovalJob {
	job := &RemovalJob{provider: &GraphProvider{}}
	job.indexName = indexName
	job.relationTypeName = relationTypeName
	job.provider.SetGraph(g)
	return job
}

// NewRemovalJobDir targets an index on a graph each worker opens from
// dir on its own.
func NewRemovalJobDir(dir string, opts quiver.Options, indexName, relationTypeName string) *RemovalJob {
	job := &RemovalJob{provider: &GraphProvider{}, graphDir: dir, graphOpts: opts}
	job.indexName = indexName
	job.relationTypeName = relationTypeName
	return job
}

// Clone copies the immutable configuration only; per-worker resources
// are acquired fresh in WorkerIterationStart.
func (job *RemovalJob) Clone() scan.Job {
	clone := &RemovalJob{
		provider:  &GraphProvider{},
		graphDir:  job.graphDir,
		graphOpts: job.graphOpts,
	}
	clone.indexName = job.indexName
	clone.relationTypeName = job.relationTypeName
	if job.provider.Provided() {
		clone.provider.SetGraph(job.provider.Get())
	}
	return clone
}

func (job *RemovalJob) WorkerIterationStart(cfg scan.WorkerConfig, m *scan.Metrics) error {
	if err := job.provider.Initialize(job.graphDir, job.graphOpts); err != nil {
		return err
	}
	if err := job.start(job.provider.Get(), cfg); err != nil {
		job.provider.Close()
		return err
	}
	return nil
}

func (job *RemovalJob) WorkerIterationEnd(m *scan.Metrics) error {
	err := job.end()
	job.provider.Close()
	return err
}

// Queries bounds the index's storage footprint. A composite index can
// sit anywhere in the index store, so the single query spans
// everything and precision is left to the key filter. A relation-type
// index compiles to the column range of its one unidirected direction.
func (job *RemovalJob) Queries() ([]quiver.SliceQuery, error) {
	if job.isGlobalGraphIndex() {
		// everything
		return []quiver.SliceQuery{{Start: keys.ZeroKey(1), End: keys.OneKey(128)}}, nil
	}
	dir, err := job.def.UnidirectedDirection()
	if err != nil {
		return nil, err
	}
	tx := job.provider.Get().ReadTx()
	defer tx.Rollback()
	return tx.Query().Type(job.def.RelationType).Direction(dir).RelationQueries()
}

// KeyFilter narrows the coarse range scan to keys of this index. Any
// decode failure excludes the key and is logged, never raised.
func (job *RemovalJob) KeyFilter() func(key []byte) bool {
	if job.isGlobalGraphIndex() {
		graphIndexID := job.graphIndexID
		log := job.log
		return func(key []byte) bool {
			id, err := keys.IndexKeyID(key)
			if err != nil {
				log.Error("filtering key due to decode failure", "key", hex.EncodeToString(key), "error", err)
				return false
			}
			return id == graphIndexID
		}
	}
	log := job.log
	return func(key []byte) bool {
		vid, err := keys.KeyVertexID(key)
		if err != nil {
			log.Error("filtering key due to decode failure", "key", hex.EncodeToString(key), "error", err)
			return false
		}
		return !vid.Invisible()
	}
}

// Process deletes all entries observed for one key in a single atomic
// mutation. The queries are already tailored enough, so everything
// handed in is removed.
func (job *RemovalJob) Process(key []byte, entries map[int][]quiver.Entry, m *scan.Metrics) error {
	var deletions []quiver.Entry
	if len(entries) == 1 {
		for _, list := range entries {
			deletions = list
		}
	} else {
		size := 0
		for _, list := range entries {
			size += len(list)
		}
		deletions = make([]quiver.Entry, 0, size)
		for _, list := range entries {
			deletions = append(deletions, list...)
		}
	}

	var err error
	if job.isRelationTypeIndex() {
		err = job.writeTx.MutateEdges(key, nil, deletions)
	} else {
		err = job.writeTx.MutateIndex(key, nil, deletions)
	}
	if err != nil {
		job.session.Rollback()
		job.writeTx.Rollback()
		m.IncrementCustom(FailedTxCount, 1)
		RemovalFailedTx.WithLabelValues(job.indexName).Inc()
		return fmt.Errorf("index removal mutation for key %x failed after %d deletions by this worker: %w",
			key, job.deleted, err)
	}
	job.deleted += uint64(len(deletions))
	m.IncrementCustom(DeletedRecordsCount, uint64(len(deletions)))
	RemovalDeletedRecords.WithLabelValues(job.indexName).Add(float64(len(deletions)))
	return nil
}

// TargetStore is the logical store the scan iterates for this index.
func TargetStore(kind byte) byte {
	if kind == 'R' {
		return quiver.EdgeStore
	}
	return quiver.IndexStore
}

// RunRemoval resolves the index, wires the job into a scan executor
// over the right store and runs it.
func RunRemoval(ctx context.Context, g *quiver.Graph, job *RemovalJob, workers int) (*scan.Metrics, error) {
	def, err := g.Catalog().GetIndex(job.indexName)
	if err != nil {
		return nil, err
	}
	exec := scan.NewExecutor(g.Database(), job, scan.ExecutorOptions{
		Store:   TargetStore(byte(def.Kind)),
		Workers: workers,
		Logger:  g.Logger(),
	})
	return exec.Run(ctx)
}
