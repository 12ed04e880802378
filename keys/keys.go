// Package keys holds the key-space codecs shared by the graph core and
// the maintenance jobs.
//
// # Key layout
//
//   - Edge store:  vertex_id(u64, BE) -> columns
//     column: direction byte ('o'/'i'/'b') + type_id(u32, BE) +
//     adjacent vertex_id(u64, BE)
//
//   - Index store: uvarint(index_id) + value_hash(u64, BE) -> columns
//     column: element vertex_id(u64, BE)
//
// The composite index id sits inside the key, not in a dedicated range,
// so a full-store scan plus a per-key decode is the only way to find
// every entry of one index.
package keys

import (
	"bytes"
	"encoding/binary"
	"errors"

	"github.com/cespare/xxhash"
)

type Direction byte

const (
	DirOut  Direction = 'o'
	DirIn   Direction = 'i'
	DirBoth Direction = 'b'
)

func (d Direction) Valid() bool {
	return d == DirOut || d == DirIn || d == DirBoth
}

var ErrBadIndexKey = errors.New("keys: malformed composite index key")

// IndexKey encodes a composite index entry key: the index id as a
// uvarint followed by the 8-byte hash of the indexed property values.
func IndexKey(indexID uint64, valueHash uint64) []byte {
	key := binary.AppendUvarint(nil, indexID)
	return binary.BigEndian.AppendUint64(key, valueHash)
}

// IndexKeyID decodes the index id embedded in a composite index key.
func IndexKeyID(key []byte) (uint64, error) {
	id, n := binary.Uvarint(key)
	if n <= 0 || len(key) != n+8 {
		return 0, ErrBadIndexKey
	}
	return id, nil
}

// HashValues collapses the serialized property values of one index
// record into the hash that keys its entry.
func HashValues(vals ...[]byte) uint64 {
	return xxhash.Sum64(bytes.Join(vals, nil))
}

// EdgeColumn encodes an adjacency column for one relation.
func EdgeColumn(dir Direction, typeID uint32, other VertexID) []byte {
	col := []byte{byte(dir)}
	col = binary.BigEndian.AppendUint32(col, typeID)
	return binary.BigEndian.AppendUint64(col, uint64(other))
}

// EdgeColumnBounds is the [start, end) column slice covering every
// adjacency column of one relation type in one direction.
func EdgeColumnBounds(dir Direction, typeID uint32) (start, end []byte) {
	start = binary.BigEndian.AppendUint32([]byte{byte(dir)}, typeID)
	if typeID == ^uint32(0) {
		end = []byte{byte(dir) + 1}
	} else {
		end = binary.BigEndian.AppendUint32([]byte{byte(dir)}, typeID+1)
	}
	return
}

// ZeroKey is the minimal n-byte buffer.
func ZeroKey(n int) []byte {
	return make([]byte, n)
}

// OneKey is the maximal n-byte buffer.
func OneKey(n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = 0xff
	}
	return b
}
