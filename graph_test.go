package quiver

import (
	"log/slog"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/quivergraph/quiver/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenRegistersPebbleCollector(t *testing.T) {
	reg := prometheus.NewRegistry()
	g, err := Open(t.TempDir(), Options{
		Logger:          utils.NewDefaultLogger(slog.LevelError),
		MetricsRegistry: reg,
	})
	require.NoError(t, err)

	families, err := reg.Gather()
	require.NoError(t, err)
	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "quiver_pebble_disk_usage_bytes")
	assert.Contains(t, names, "quiver_pebble_compaction_count_total")

	require.NoError(t, g.Close())
	families, err = reg.Gather()
	require.NoError(t, err)
	assert.Empty(t, families)
}

func TestOpenAppliesPebbleTuning(t *testing.T) {
	g, err := Open(t.TempDir(), Options{
		Logger:          utils.NewDefaultLogger(slog.LevelError),
		PebbleCacheSize: 8 << 20,
		MaxOpenFiles:    64,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = g.Close() })

	require.NoError(t, g.db.Set([]byte("k"), []byte("v"), g.wo))
	val, closer, err := g.db.Get([]byte("k"))
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), val)
	_ = closer.Close()
}
