package quiver

import (
	"github.com/cockroachdb/pebble"
	"github.com/quivergraph/quiver/keys"
	"github.com/quivergraph/quiver/quiver_errors"
)

// Tx is a read-only graph transaction over a Pebble snapshot. Besides
// reads it serves as the compilation context for traversal queries:
// maintenance jobs open one, extract the underlying slice queries and
// roll it back without ever committing.
type Tx struct {
	g    *Graph
	snap *pebble.Snapshot
	done bool
}

func (g *Graph) ReadTx() *Tx {
	return &Tx{g: g, snap: g.db.NewSnapshot()}
}

func (tx *Tx) Reader() pebble.Reader {
	return tx.snap
}

func (tx *Tx) Rollback() {
	if tx.done {
		return
	}
	tx.done = true
	_ = tx.snap.Close()
}

func (tx *Tx) Query() *QueryBuilder {
	return &QueryBuilder{tx: tx}
}

// QueryBuilder compiles a relation-scoped traversal into the slice
// queries the scan framework executes against the edge store.
type QueryBuilder struct {
	tx       *Tx
	typeName string
	dir      keys.Direction
}

func (qb *QueryBuilder) Type(name string) *QueryBuilder {
	qb.typeName = name
	return qb
}

func (qb *QueryBuilder) Direction(dir keys.Direction) *QueryBuilder {
	qb.dir = dir
	return qb
}

// RelationQueries resolves the relation type and returns the column
// bounds covering its adjacency entries in the requested direction.
func (qb *QueryBuilder) RelationQueries() ([]SliceQuery, error) {
	if qb.tx.done {
		return nil, quiver_errors.ErrTxClosed
	}
	if !qb.dir.Valid() {
		return nil, quiver_errors.ErrNoUnidirectedDirection
	}
	rt, err := qb.tx.g.catalog.GetRelationType(qb.typeName)
	if err != nil {
		return nil, err
	}
	start, end := keys.EdgeColumnBounds(qb.dir, rt.ID)
	return []SliceQuery{{Start: start, End: end}}, nil
}
