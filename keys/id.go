package keys

import (
	"encoding/binary"
	"errors"
)

/*
	VertexID is a 64-bit vertex locator.

	The low 3 bits tag the id space the vertex belongs to:

0...............................................................61..64
+---------------------------------------------------------------+----+
|........................count.(61.bits).........................|tag.|
+---------------------------------------------------------------+----+

	Tags 0-2 are user-visible id spaces. Tag 7 marks the invisible
	id space reserved for system vertices (schema vertices, TTL
	bookkeeping and the like); those never surface in queries and
	maintenance jobs must skip their keys.
*/
type VertexID uint64

const (
	idTagBits = 3
	idTagMask = VertexID(1<<idTagBits) - 1

	TagNormal       VertexID = 0
	TagPartitioned  VertexID = 1
	TagUnmodifiable VertexID = 2
	TagInvisible    VertexID = 7
)

var BadVertexID = VertexID(^uint64(0))

var ErrBadVertexKey = errors.New("keys: vertex key must be 8 bytes")

func NewVertexID(count uint64) VertexID {
	return VertexID(count)<<idTagBits | TagNormal
}

func NewSystemVertexID(count uint64) VertexID {
	return VertexID(count)<<idTagBits | TagInvisible
}

func (v VertexID) Tag() VertexID {
	return v & idTagMask
}

func (v VertexID) Count() uint64 {
	return uint64(v >> idTagBits)
}

// Invisible reports whether the id belongs to the reserved system
// vertex id space.
func (v VertexID) Invisible() bool {
	return v.Tag() == TagInvisible
}

// Key is the 8-byte big-endian edge-store key for the vertex.
func (v VertexID) Key() []byte {
	return binary.BigEndian.AppendUint64(nil, uint64(v))
}

func KeyVertexID(key []byte) (VertexID, error) {
	if len(key) != 8 {
		return BadVertexID, ErrBadVertexKey
	}
	return VertexID(binary.BigEndian.Uint64(key)), nil
}
