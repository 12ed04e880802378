package quiver

import (
	"bytes"
	"errors"

	"github.com/quivergraph/quiver/quiver_errors"
)

// Logical stores are single-byte key prefixes in the shared Pebble
// keyspace.
const (
	EdgeStore   byte = 'E'
	IndexStore  byte = 'X'
	SchemaStore byte = 'S'
)

// Entry is one column/value pair under a store key.
type Entry struct {
	Column []byte
	Value  []byte
}

// SliceQuery is a half-open column range [Start, End) within one key.
type SliceQuery struct {
	Start []byte
	End   []byte
}

func (q SliceQuery) Contains(column []byte) bool {
	return bytes.Compare(column, q.Start) >= 0 && bytes.Compare(column, q.End) < 0
}

var ErrBadStoreKey = errors.New("quiver: malformed store key")

// StoreKey assembles the physical key: store prefix, key, column.
func StoreKey(store byte, key, column []byte) []byte {
	k := make([]byte, 0, 1+len(key)+len(column))
	k = append(k, store)
	k = append(k, key...)
	return append(k, column...)
}

// SplitStoreKey splits a physical key (with the store prefix already
// stripped) into key and column. Edge-store keys are fixed 8 bytes;
// index-store columns are fixed 8 bytes.
func SplitStoreKey(store byte, kc []byte) (key, column []byte, err error) {
	switch store {
	case EdgeStore:
		if len(kc) < 8 {
			return nil, nil, ErrBadStoreKey
		}
		return kc[:8], kc[8:], nil
	case IndexStore:
		if len(kc) <= 8 {
			return nil, nil, ErrBadStoreKey
		}
		return kc[:len(kc)-8], kc[len(kc)-8:], nil
	}
	return nil, nil, ErrBadStoreKey
}

// BackendTx is a per-worker write transaction against the backing
// stores. Every Mutate call applies one Pebble batch, so each key's
// additions and deletions commit atomically and independently of other
// keys. Not safe for concurrent use; each worker owns its own.
type BackendTx struct {
	g      *Graph
	closed bool
}

func (g *Graph) NewBackendTx() *BackendTx {
	return &BackendTx{g: g}
}

func (tx *BackendTx) MutateEdges(key []byte, additions, deletions []Entry) error {
	return tx.mutate(EdgeStore, key, additions, deletions)
}

func (tx *BackendTx) MutateIndex(key []byte, additions, deletions []Entry) error {
	return tx.mutate(IndexStore, key, additions, deletions)
}

func (tx *BackendTx) mutate(store byte, key []byte, additions, deletions []Entry) error {
	if tx.closed {
		return quiver_errors.ErrTxClosed
	}
	batch := tx.g.db.NewBatch()
	defer batch.Close()
	for _, e := range deletions {
		if err := batch.Delete(StoreKey(store, key, e.Column), nil); err != nil {
			return err
		}
	}
	for _, e := range additions {
		if err := batch.Set(StoreKey(store, key, e.Column), e.Value, nil); err != nil {
			return err
		}
	}
	return batch.Commit(tx.g.wo)
}

// Commit closes the transaction. Per-key batches are already durable;
// there is nothing buffered to flush.
func (tx *BackendTx) Commit() error {
	if tx.closed {
		return quiver_errors.ErrTxClosed
	}
	tx.closed = true
	return nil
}

// Rollback closes the transaction. Committed per-key batches stay
// committed; only future mutations are refused.
func (tx *BackendTx) Rollback() {
	tx.closed = true
}
