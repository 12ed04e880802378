package quiver

import (
	"log/slog"
	"testing"

	"github.com/cockroachdb/pebble"
	"github.com/quivergraph/quiver/keys"
	"github.com/quivergraph/quiver/quiver_errors"
	"github.com/quivergraph/quiver/schema"
	"github.com/quivergraph/quiver/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testGraph(t *testing.T) *Graph {
	t.Helper()
	g, err := Open(t.TempDir(), Options{Logger: utils.NewDefaultLogger(slog.LevelError)})
	require.NoError(t, err)
	t.Cleanup(func() { _ = g.Close() })
	return g
}

func TestStoreKeySplitEdge(t *testing.T) {
	vkey := keys.NewVertexID(5).Key()
	col := keys.EdgeColumn(keys.DirOut, 7, keys.NewVertexID(6))
	full := StoreKey(EdgeStore, vkey, col)
	assert.Equal(t, byte('E'), full[0])

	key, column, err := SplitStoreKey(EdgeStore, full[1:])
	assert.NoError(t, err)
	assert.Equal(t, vkey, key)
	assert.Equal(t, col, column)

	_, _, err = SplitStoreKey(EdgeStore, []byte{1, 2})
	assert.ErrorIs(t, err, ErrBadStoreKey)
}

func TestStoreKeySplitIndex(t *testing.T) {
	ikey := keys.IndexKey(300, 0xabc)
	col := keys.NewVertexID(6).Key()
	full := StoreKey(IndexStore, ikey, col)

	key, column, err := SplitStoreKey(IndexStore, full[1:])
	assert.NoError(t, err)
	assert.Equal(t, ikey, key)
	assert.Equal(t, col, column)

	_, _, err = SplitStoreKey(IndexStore, col)
	assert.ErrorIs(t, err, ErrBadStoreKey)
	_, _, err = SplitStoreKey('Q', full[1:])
	assert.ErrorIs(t, err, ErrBadStoreKey)
}

func TestSliceQueryContains(t *testing.T) {
	start, end := keys.EdgeColumnBounds(keys.DirIn, 7)
	q := SliceQuery{Start: start, End: end}
	assert.True(t, q.Contains(keys.EdgeColumn(keys.DirIn, 7, keys.NewVertexID(1))))
	assert.False(t, q.Contains(keys.EdgeColumn(keys.DirIn, 8, keys.NewVertexID(1))))
	assert.False(t, q.Contains(keys.EdgeColumn(keys.DirOut, 7, keys.NewVertexID(1))))
}

func TestBackendTxMutatePerKey(t *testing.T) {
	g := testGraph(t)
	tx := g.NewBackendTx()

	key := keys.NewVertexID(1).Key()
	adds := []Entry{
		{Column: keys.EdgeColumn(keys.DirOut, 7, keys.NewVertexID(2)), Value: []byte{}},
		{Column: keys.EdgeColumn(keys.DirOut, 7, keys.NewVertexID(3)), Value: []byte{}},
	}
	require.NoError(t, tx.MutateEdges(key, adds, nil))

	// deletions of both columns commit atomically
	require.NoError(t, tx.MutateEdges(key, nil, adds))
	for _, e := range adds {
		_, closer, err := g.Database().Get(StoreKey(EdgeStore, key, e.Column))
		if closer != nil {
			_ = closer.Close()
		}
		assert.ErrorIs(t, err, pebble.ErrNotFound)
	}
}

func TestBackendTxRollbackRefusesFurtherWrites(t *testing.T) {
	g := testGraph(t)
	tx := g.NewBackendTx()
	key := keys.NewVertexID(1).Key()
	adds := []Entry{{Column: keys.EdgeColumn(keys.DirOut, 7, keys.NewVertexID(2)), Value: []byte{}}}
	require.NoError(t, tx.MutateEdges(key, adds, nil))

	tx.Rollback()
	err := tx.MutateEdges(key, adds, nil)
	assert.ErrorIs(t, err, quiver_errors.ErrTxClosed)
	assert.ErrorIs(t, tx.Commit(), quiver_errors.ErrTxClosed)

	// the batch committed before rollback stays committed
	val, closer, err := g.Database().Get(StoreKey(EdgeStore, key, adds[0].Column))
	require.NoError(t, err)
	assert.Equal(t, []byte{}, val)
	_ = closer.Close()
}

func TestQueryBuilderRelationQueries(t *testing.T) {
	g := testGraph(t)
	require.NoError(t, g.Catalog().PutRelationType(&schema.RelationType{Name: "battled", ID: 7}))

	tx := g.ReadTx()
	defer tx.Rollback()
	qs, err := tx.Query().Type("battled").Direction(keys.DirIn).RelationQueries()
	assert.NoError(t, err)
	require.Len(t, qs, 1)
	start, end := keys.EdgeColumnBounds(keys.DirIn, 7)
	assert.Equal(t, SliceQuery{Start: start, End: end}, qs[0])
}

func TestQueryBuilderFailures(t *testing.T) {
	g := testGraph(t)

	tx := g.ReadTx()
	_, err := tx.Query().Type("missing").Direction(keys.DirOut).RelationQueries()
	assert.ErrorIs(t, err, quiver_errors.ErrRelationTypeUnknown)

	_, err = tx.Query().Type("missing").RelationQueries()
	assert.ErrorIs(t, err, quiver_errors.ErrNoUnidirectedDirection)

	tx.Rollback()
	_, err = tx.Query().Type("battled").Direction(keys.DirOut).RelationQueries()
	assert.ErrorIs(t, err, quiver_errors.ErrTxClosed)
}

func TestGraphCloseTwice(t *testing.T) {
	g, err := Open(t.TempDir(), Options{Logger: utils.NewDefaultLogger(slog.LevelError)})
	require.NoError(t, err)
	assert.NoError(t, g.Close())
	assert.ErrorIs(t, g.Close(), quiver_errors.ErrClosed)
}
