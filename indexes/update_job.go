package indexes

import (
	"fmt"

	"github.com/quivergraph/quiver"
	"github.com/quivergraph/quiver/quiver_errors"
	"github.com/quivergraph/quiver/scan"
	"github.com/quivergraph/quiver/schema"
	"github.com/quivergraph/quiver/utils"
)

// Custom scan counters shared by the index maintenance jobs.
const (
	DeletedRecordsCount = "deletes"
	FailedTxCount       = "failed-tx"
)

// GraphProvider hands a worker its graph instance: either one provided
// up front (embedded use) or one opened from a directory at iteration
// start. Close releases the graph only if the provider opened it.
type GraphProvider struct {
	g        *quiver.Graph
	provided bool
}

func (p *GraphProvider) SetGraph(g *quiver.Graph) {
	p.g = g
	p.provided = true
}

func (p *GraphProvider) Provided() bool {
	return p.provided
}

func (p *GraphProvider) Initialize(dir string, opts quiver.Options) error {
	if p.provided {
		return nil
	}
	g, err := quiver.Open(dir, opts)
	if err != nil {
		return err
	}
	p.g = g
	return nil
}

func (p *GraphProvider) Get() *quiver.Graph {
	return p.g
}

func (p *GraphProvider) Close() {
	if p.g != nil && !p.provided {
		_ = p.g.Close()
	}
	p.g = nil
}

// updateJob is the scaffolding shared by index maintenance jobs: it
// owns the management session and the write transaction for one worker
// iteration and re-validates the index before any key is touched.
type updateJob struct {
	indexName        string
	relationTypeName string

	def          *schema.IndexDefinition
	graphIndexID uint64
	deleted      uint64

	session *schema.Session
	writeTx *quiver.BackendTx
	log     utils.Logger
}

func (j *updateJob) start(g *quiver.Graph, cfg scan.WorkerConfig) error {
	j.log = cfg.Logger
	j.deleted = 0
	j.session = g.Catalog().NewSession()
	j.writeTx = g.NewBackendTx()
	if err := j.validateIndexStatus(); err != nil {
		j.session.Rollback()
		j.writeTx.Rollback()
		return err
	}
	return nil
}

func (j *updateJob) end() error {
	if j.session != nil {
		if err := j.session.Commit(); err != nil {
			return err
		}
	}
	if j.writeTx != nil {
		if err := j.writeTx.Commit(); err != nil && err != quiver_errors.ErrTxClosed {
			return err
		}
	}
	return nil
}

// validateIndexStatus gates the whole job: the index must be of a
// removable kind and must be disabled.
func (j *updateJob) validateIndexStatus() error {
	def, err := j.session.GetIndex(j.indexName)
	if err != nil {
		return err
	}
	switch def.Kind {
	case schema.KindRelationType:
		// the index is resolved within its relation type
		if def.RelationType != j.relationTypeName {
			return fmt.Errorf("%w: %q is not an index of relation type %q",
				quiver_errors.ErrIndexUnknown, j.indexName, j.relationTypeName)
		}
	case schema.KindComposite:
		if j.relationTypeName != "" {
			return fmt.Errorf("%w: %q is a graph index, not an index of relation type %q",
				quiver_errors.ErrIndexUnknown, j.indexName, j.relationTypeName)
		}
		j.graphIndexID = def.NumericID
	case schema.KindMixed:
		return fmt.Errorf("%w: %q", quiver_errors.ErrMixedIndexRemoval, j.indexName)
	default:
		return fmt.Errorf("%w: %q has kind %q", quiver_errors.ErrUnsupportedIndex, j.indexName, def.Kind)
	}
	if def.Status != schema.StatusDisabled {
		return fmt.Errorf("%w: %q has status %q", quiver_errors.ErrIndexNotDisabled, j.indexName, def.Status)
	}
	j.def = def
	return nil
}

func (j *updateJob) isRelationTypeIndex() bool {
	return j.def != nil && j.def.Kind == schema.KindRelationType
}

func (j *updateJob) isGlobalGraphIndex() bool {
	return j.def != nil && j.def.Kind == schema.KindComposite
}
