// Package quiver is a property-graph database layered on a partitioned,
// ordered key-value store (Pebble). Graph data lives in single-byte
// prefixed logical stores; maintenance jobs scan and mutate those
// stores through the types in this package.
package quiver

import (
	"log/slog"
	"sync"

	"github.com/cockroachdb/pebble"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/quivergraph/quiver/quiver_errors"
	"github.com/quivergraph/quiver/schema"
	"github.com/quivergraph/quiver/utils"
)

type Options struct {
	Logger utils.Logger

	// Sync forces a WAL fsync on every commit.
	Sync bool

	DefinitionCacheSize int

	// PebbleCacheSize sizes the storage engine's block cache in bytes.
	// Zero keeps the engine default.
	PebbleCacheSize int64
	MaxOpenFiles    int

	// MetricsRegistry, when set, receives the pebble collector on Open;
	// Close unregisters it again.
	MetricsRegistry prometheus.Registerer
}

func (o *Options) SetDefaults() {
	if o.Logger == nil {
		o.Logger = utils.NewDefaultLogger(slog.LevelInfo)
	}
	if o.DefinitionCacheSize == 0 {
		o.DefinitionCacheSize = 1024
	}
}

// Graph is one opened graph instance. It owns the underlying Pebble
// handle; transactions and maintenance jobs borrow it.
type Graph struct {
	db        *pebble.DB
	dir       string
	opts      Options
	wo        *pebble.WriteOptions
	catalog   *schema.Catalog
	collector *PebbleCollector

	lock   sync.Mutex
	closed bool
}

func Open(dir string, opts Options) (*Graph, error) {
	opts.SetDefaults()
	po := &pebble.Options{MaxOpenFiles: opts.MaxOpenFiles}
	if opts.PebbleCacheSize > 0 {
		po.Cache = pebble.NewCache(opts.PebbleCacheSize)
		defer po.Cache.Unref()
	}
	db, err := pebble.Open(dir, po)
	if err != nil {
		return nil, err
	}
	g := &Graph{
		db:   db,
		dir:  dir,
		opts: opts,
		wo:   &pebble.WriteOptions{Sync: opts.Sync},
	}
	g.catalog = schema.NewCatalog(db, g.wo, opts.Logger, opts.DefinitionCacheSize)
	if opts.MetricsRegistry != nil {
		g.collector = NewPebbleCollector(db)
		if err := opts.MetricsRegistry.Register(g.collector); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	return g, nil
}

func (g *Graph) Close() error {
	g.lock.Lock()
	defer g.lock.Unlock()
	if g.closed {
		return quiver_errors.ErrClosed
	}
	g.closed = true
	if g.collector != nil {
		g.opts.MetricsRegistry.Unregister(g.collector)
	}
	return g.db.Close()
}

func (g *Graph) Dir() string {
	return g.dir
}

func (g *Graph) Database() *pebble.DB {
	return g.db
}

func (g *Graph) WriteOptions() *pebble.WriteOptions {
	return g.wo
}

func (g *Graph) Logger() utils.Logger {
	return g.opts.Logger
}

func (g *Graph) Catalog() *schema.Catalog {
	return g.catalog
}
