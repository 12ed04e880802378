package testutils

import (
	"log/slog"
	"testing"

	"github.com/quivergraph/quiver"
	"github.com/quivergraph/quiver/keys"
	"github.com/quivergraph/quiver/schema"
	"github.com/quivergraph/quiver/utils"
	"github.com/stretchr/testify/require"
)

// TempGraph opens a graph in a fresh temp dir and closes it with the
// test.
func TempGraph(t *testing.T) *quiver.Graph {
	t.Helper()
	g, err := quiver.Open(t.TempDir(), quiver.Options{
		Logger: utils.NewDefaultLogger(slog.LevelError),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = g.Close() })
	return g
}

// CompositeIndexDef is a composite index definition fixture.
func CompositeIndexDef(name string, numericID uint64, status schema.Status) *schema.IndexDefinition {
	return &schema.IndexDefinition{
		Name:      name,
		Kind:      schema.KindComposite,
		Status:    status,
		NumericID: numericID,
	}
}

// RelationIndexDef is a relation-type index definition fixture,
// unidirected in the given direction.
func RelationIndexDef(name, relationType string, typeID uint32, dir keys.Direction, status schema.Status) *schema.IndexDefinition {
	def := &schema.IndexDefinition{
		Name:         name,
		Kind:         schema.KindRelationType,
		Status:       status,
		RelationType: relationType,
		TypeID:       typeID,
	}
	switch dir {
	case keys.DirOut:
		def.UnidirectedOut = true
	case keys.DirIn:
		def.UnidirectedIn = true
	case keys.DirBoth:
		def.UnidirectedBoth = true
	}
	return def
}

// MixedIndexDef is a mixed (externally backed) index definition
// fixture.
func MixedIndexDef(name string, status schema.Status) *schema.IndexDefinition {
	return &schema.IndexDefinition{
		Name:    name,
		Kind:    schema.KindMixed,
		Status:  status,
		Backend: "search",
	}
}

// SeedCompositeEntries writes entriesPerKey index entries for n
// distinct keys of one composite index and returns the keys.
func SeedCompositeEntries(t *testing.T, g *quiver.Graph, indexID uint64, n, entriesPerKey int) [][]byte {
	t.Helper()
	tx := g.NewBackendTx()
	defer tx.Rollback()
	seeded := make([][]byte, 0, n)
	for i := 0; i < n; i++ {
		key := keys.IndexKey(indexID, uint64(0x1000+i))
		adds := make([]quiver.Entry, 0, entriesPerKey)
		for e := 0; e < entriesPerKey; e++ {
			adds = append(adds, quiver.Entry{
				Column: keys.NewVertexID(uint64(i*entriesPerKey + e)).Key(),
				Value:  []byte{},
			})
		}
		require.NoError(t, tx.MutateIndex(key, adds, nil))
		seeded = append(seeded, key)
	}
	return seeded
}

// SeedEdgeEntries writes adjacency entries for one vertex, all of one
// relation type and direction, and returns the vertex key.
func SeedEdgeEntries(t *testing.T, g *quiver.Graph, vid keys.VertexID, dir keys.Direction, typeID uint32, n int) []byte {
	t.Helper()
	tx := g.NewBackendTx()
	defer tx.Rollback()
	adds := make([]quiver.Entry, 0, n)
	for e := 0; e < n; e++ {
		adds = append(adds, quiver.Entry{
			Column: keys.EdgeColumn(dir, typeID, keys.NewVertexID(uint64(0x9000+e))),
			Value:  []byte{},
		})
	}
	key := vid.Key()
	require.NoError(t, tx.MutateEdges(key, adds, nil))
	return key
}

// CountStoreKeys counts all physical keys in one logical store.
func CountStoreKeys(t *testing.T, g *quiver.Graph, store byte) int {
	t.Helper()
	iter, err := g.Database().NewIter(nil)
	require.NoError(t, err)
	defer iter.Close()
	count := 0
	for valid := iter.First(); valid; valid = iter.Next() {
		if len(iter.Key()) > 0 && iter.Key()[0] == store {
			count++
		}
	}
	return count
}
