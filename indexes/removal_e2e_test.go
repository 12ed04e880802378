package indexes

import (
	"context"
	"testing"

	"github.com/quivergraph/quiver"
	"github.com/quivergraph/quiver/keys"
	"github.com/quivergraph/quiver/quiver_errors"
	"github.com/quivergraph/quiver/scan"
	"github.com/quivergraph/quiver/schema"
	testutils "github.com/quivergraph/quiver/test_utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRemoveCompositeIndexEndToEnd(t *testing.T) {
	g := testutils.TempGraph(t)
	require.NoError(t, g.Catalog().PutIndex(testutils.CompositeIndexDef("byName", 7, schema.StatusDisabled)))
	require.NoError(t, g.Catalog().PutIndex(testutils.CompositeIndexDef("byAge", 9, schema.StatusEnabled)))

	matching := testutils.SeedCompositeEntries(t, g, 7, 10, 2)
	other := testutils.SeedCompositeEntries(t, g, 9, 5, 2)

	job := NewRemovalJob(g, "byName", "")
	m, err := indexesRun(t, g, job)
	require.NoError(t, err)

	assert.Equal(t, uint64(20), m.Custom(DeletedRecordsCount))
	assert.Equal(t, uint64(0), m.Custom(FailedTxCount))

	// every matching key is gone, every other-index key survives
	for _, key := range matching {
		assert.Equal(t, 0, countKeyEntries(t, g, quiver.IndexStore, key))
	}
	for _, key := range other {
		assert.Equal(t, 2, countKeyEntries(t, g, quiver.IndexStore, key))
	}
	assert.Equal(t, 10, testutils.CountStoreKeys(t, g, quiver.IndexStore))
}

func TestRemoveRelationTypeIndexEndToEnd(t *testing.T) {
	g := testutils.TempGraph(t)
	require.NoError(t, g.Catalog().PutRelationType(&schema.RelationType{Name: "battled", ID: 7}))
	require.NoError(t, g.Catalog().PutIndex(
		testutils.RelationIndexDef("battlesByTime", "battled", 7, keys.DirIn, schema.StatusDisabled)))

	// in-scope entries on user vertices
	a := testutils.SeedEdgeEntries(t, g, keys.NewVertexID(1), keys.DirIn, 7, 3)
	b := testutils.SeedEdgeEntries(t, g, keys.NewVertexID(2), keys.DirIn, 7, 4)
	// out of scope: other direction, other type, invisible vertex
	testutils.SeedEdgeEntries(t, g, keys.NewVertexID(1), keys.DirOut, 7, 2)
	testutils.SeedEdgeEntries(t, g, keys.NewVertexID(2), keys.DirIn, 8, 2)
	sys := testutils.SeedEdgeEntries(t, g, keys.NewSystemVertexID(3), keys.DirIn, 7, 2)

	job := NewRemovalJob(g, "battlesByTime", "battled")
	m, err := indexesRun(t, g, job)
	require.NoError(t, err)

	assert.Equal(t, uint64(7), m.Custom(DeletedRecordsCount))
	// only the other-direction entries of vertex 1 remain
	assert.Equal(t, 2, countKeyEntries(t, g, quiver.EdgeStore, a))
	// only the other-type entries of vertex 2 remain
	assert.Equal(t, 2, countKeyEntries(t, g, quiver.EdgeStore, b))
	// the invisible system vertex is untouched
	assert.Equal(t, 2, countKeyEntries(t, g, quiver.EdgeStore, sys))
	assert.Equal(t, 6, testutils.CountStoreKeys(t, g, quiver.EdgeStore))
}

func TestRunRemovalRefusesEnabledIndex(t *testing.T) {
	g := testutils.TempGraph(t)
	require.NoError(t, g.Catalog().PutIndex(testutils.CompositeIndexDef("byName", 7, schema.StatusEnabled)))
	testutils.SeedCompositeEntries(t, g, 7, 3, 1)

	job := NewRemovalJob(g, "byName", "")
	_, err := indexesRun(t, g, job)
	assert.ErrorIs(t, err, quiver_errors.ErrIndexNotDisabled)
	// nothing was deleted
	assert.Equal(t, 3, testutils.CountStoreKeys(t, g, quiver.IndexStore))
}

func indexesRun(t *testing.T, g *quiver.Graph, job *RemovalJob) (*scan.Metrics, error) {
	t.Helper()
	return RunRemoval(context.Background(), g, job, 4)
}

func countKeyEntries(t *testing.T, g *quiver.Graph, store byte, key []byte) int {
	t.Helper()
	iter, err := g.Database().NewIter(nil)
	require.NoError(t, err)
	defer iter.Close()
	count := 0
	prefix := append([]byte{store}, key...)
	for valid := iter.First(); valid; valid = iter.Next() {
		if len(iter.Key()) >= len(prefix) && string(iter.Key()[:len(prefix)]) == string(prefix) {
			count++
		}
	}
	return count
}
