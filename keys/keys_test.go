package keys

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIndexKeyRoundtrip(t *testing.T) {
	for _, indexID := range []uint64{1, 42, 127, 128, 1 << 20, 1<<63 - 1} {
		key := IndexKey(indexID, 0xdeadbeef)
		got, err := IndexKeyID(key)
		assert.NoError(t, err)
		assert.Equal(t, indexID, got)
	}
}

func TestIndexKeyIDDecodeFailures(t *testing.T) {
	for _, key := range [][]byte{
		nil,
		{},
		{0x80},                          // truncated uvarint
		{0x01, 0x00, 0x00},              // hash too short
		append(IndexKey(5, 1), 0xff),    // trailing garbage
		bytes.Repeat([]byte{0x80}, 11),  // uvarint never terminates
		bytes.Repeat([]byte{0xff}, 128), // the maximal scan bound itself
	} {
		_, err := IndexKeyID(key)
		assert.ErrorIs(t, err, ErrBadIndexKey, "key %x", key)
	}
}

func TestVertexIDTags(t *testing.T) {
	v := NewVertexID(77)
	assert.Equal(t, uint64(77), v.Count())
	assert.False(t, v.Invisible())

	s := NewSystemVertexID(77)
	assert.Equal(t, uint64(77), s.Count())
	assert.True(t, s.Invisible())
	assert.NotEqual(t, v, s)
}

func TestKeyVertexIDRoundtrip(t *testing.T) {
	v := NewSystemVertexID(12345)
	got, err := KeyVertexID(v.Key())
	assert.NoError(t, err)
	assert.Equal(t, v, got)

	_, err = KeyVertexID([]byte{1, 2, 3})
	assert.ErrorIs(t, err, ErrBadVertexKey)
	_, err = KeyVertexID(nil)
	assert.ErrorIs(t, err, ErrBadVertexKey)
}

func TestEdgeColumnBounds(t *testing.T) {
	start, end := EdgeColumnBounds(DirIn, 7)

	inside := EdgeColumn(DirIn, 7, NewVertexID(1))
	assert.True(t, bytes.Compare(inside, start) >= 0)
	assert.True(t, bytes.Compare(inside, end) < 0)

	otherType := EdgeColumn(DirIn, 8, NewVertexID(1))
	assert.True(t, bytes.Compare(otherType, end) >= 0)

	otherDir := EdgeColumn(DirOut, 7, NewVertexID(1))
	assert.True(t, bytes.Compare(otherDir, end) >= 0)
}

func TestEdgeColumnBoundsMaxTypeID(t *testing.T) {
	start, end := EdgeColumnBounds(DirOut, ^uint32(0))
	assert.Equal(t, []byte{byte(DirOut) + 1}, end)
	inside := EdgeColumn(DirOut, ^uint32(0), NewVertexID(9))
	assert.True(t, bytes.Compare(inside, start) >= 0)
	assert.True(t, bytes.Compare(inside, end) < 0)
}

func TestZeroOneKeys(t *testing.T) {
	assert.Equal(t, []byte{0}, ZeroKey(1))
	assert.Equal(t, bytes.Repeat([]byte{0xff}, 128), OneKey(128))
	assert.True(t, bytes.Compare(ZeroKey(1), OneKey(128)) < 0)
}

func TestHashValuesStable(t *testing.T) {
	a := HashValues([]byte("name"), []byte("bob"))
	b := HashValues([]byte("name"), []byte("bob"))
	c := HashValues([]byte("name"), []byte("alice"))
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}
