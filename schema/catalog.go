package schema

import (
	"fmt"

	"github.com/cockroachdb/pebble"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/quivergraph/quiver/quiver_errors"
	"github.com/quivergraph/quiver/utils"
)

// Schema store key layout: 'S' 'I' + index name, 'S' 'T' + type name.

func indexKey(name string) []byte {
	return append([]byte{'S', 'I'}, name...)
}

func relationTypeKey(name string) []byte {
	return append([]byte{'S', 'T'}, name...)
}

// Catalog reads and writes schema records. Decoded index definitions
// are cached; any write through the catalog invalidates the cached
// entry.
type Catalog struct {
	db    *pebble.DB
	wo    *pebble.WriteOptions
	log   utils.Logger
	cache *lru.Cache[string, *IndexDefinition]
}

func NewCatalog(db *pebble.DB, wo *pebble.WriteOptions, log utils.Logger, cacheSize int) *Catalog {
	cache, _ := lru.New[string, *IndexDefinition](cacheSize)
	return &Catalog{db: db, wo: wo, log: log, cache: cache}
}

func (c *Catalog) GetIndex(name string) (*IndexDefinition, error) {
	if def, ok := c.cache.Get(name); ok {
		return def, nil
	}
	data, closer, err := c.db.Get(indexKey(name))
	if closer != nil {
		defer closer.Close()
	}
	if err == pebble.ErrNotFound {
		return nil, fmt.Errorf("%w: %q", quiver_errors.ErrIndexUnknown, name)
	}
	if err != nil {
		return nil, err
	}
	def, err := ParseIndexDefinition(data)
	if err != nil {
		return nil, err
	}
	c.cache.Add(name, def)
	return def, nil
}

func (c *Catalog) PutIndex(def *IndexDefinition) error {
	c.cache.Remove(def.Name)
	return c.db.Set(indexKey(def.Name), def.Tlv(), c.wo)
}

func (c *Catalog) UpdateIndexStatus(name string, status Status) error {
	def, err := c.GetIndex(name)
	if err != nil {
		return err
	}
	next := *def
	next.Status = status
	return c.PutIndex(&next)
}

func (c *Catalog) GetRelationType(name string) (*RelationType, error) {
	data, closer, err := c.db.Get(relationTypeKey(name))
	if closer != nil {
		defer closer.Close()
	}
	if err == pebble.ErrNotFound {
		return nil, fmt.Errorf("%w: %q", quiver_errors.ErrRelationTypeUnknown, name)
	}
	if err != nil {
		return nil, err
	}
	return ParseRelationType(data)
}

func (c *Catalog) PutRelationType(t *RelationType) error {
	return c.db.Set(relationTypeKey(t.Name), t.Tlv(), c.wo)
}

// ListIndexes returns every index definition in the catalog, in key
// order.
func (c *Catalog) ListIndexes() ([]*IndexDefinition, error) {
	iter, err := c.db.NewIter(&pebble.IterOptions{
		LowerBound: []byte{'S', 'I'},
		UpperBound: []byte{'S', 'J'},
	})
	if err != nil {
		return nil, err
	}
	defer iter.Close()
	defs := []*IndexDefinition{}
	for valid := iter.First(); valid; valid = iter.Next() {
		def, err := ParseIndexDefinition(iter.Value())
		if err != nil {
			return nil, err
		}
		defs = append(defs, def)
	}
	return defs, nil
}

type stagedWrite struct {
	key   []byte
	value []byte
}

// Session is a management transaction over the catalog. Reads see
// staged writes; Commit applies them in one batch; Rollback discards
// them. Both are safe to call more than once.
type Session struct {
	c      *Catalog
	staged []stagedWrite
	names  map[string]*IndexDefinition
	done   bool
}

func (c *Catalog) NewSession() *Session {
	return &Session{c: c, names: make(map[string]*IndexDefinition)}
}

func (s *Session) GetIndex(name string) (*IndexDefinition, error) {
	if s.done {
		return nil, quiver_errors.ErrTxClosed
	}
	if def, ok := s.names[name]; ok {
		return def, nil
	}
	return s.c.GetIndex(name)
}

func (s *Session) UpdateIndexStatus(name string, status Status) error {
	if s.done {
		return quiver_errors.ErrTxClosed
	}
	def, err := s.GetIndex(name)
	if err != nil {
		return err
	}
	next := *def
	next.Status = status
	s.names[name] = &next
	s.staged = append(s.staged, stagedWrite{key: indexKey(name), value: next.Tlv()})
	return nil
}

func (s *Session) Commit() error {
	if s.done {
		return nil
	}
	s.done = true
	if len(s.staged) == 0 {
		return nil
	}
	batch := s.c.db.NewBatch()
	defer batch.Close()
	for _, w := range s.staged {
		if err := batch.Set(w.key, w.value, nil); err != nil {
			return err
		}
		s.c.cache.Remove(string(w.key[2:]))
	}
	return batch.Commit(s.c.wo)
}

func (s *Session) Rollback() {
	s.done = true
	s.staged = nil
	s.names = nil
}
