// Package schema is the graph's metadata catalog: index definitions,
// relation types and their statuses, persisted in the schema store.
package schema

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/learn-decentralized-systems/toytlv"
	"github.com/quivergraph/quiver/keys"
	"github.com/quivergraph/quiver/quiver_errors"
)

type Status string

const (
	StatusInstalled  Status = "installed"
	StatusRegistered Status = "registered"
	StatusEnabled    Status = "enabled"
	StatusDisabled   Status = "disabled"
)

func (s Status) Valid() bool {
	switch s {
	case StatusInstalled, StatusRegistered, StatusEnabled, StatusDisabled:
		return true
	}
	return false
}

// Statuses enumerates every schema status, for callers that need to
// reason about all of them.
var Statuses = []Status{StatusInstalled, StatusRegistered, StatusEnabled, StatusDisabled}

type Kind byte

const (
	KindComposite    Kind = 'C'
	KindMixed        Kind = 'M'
	KindRelationType Kind = 'R'
)

// RelationType is an edge/property type registered in the catalog.
type RelationType struct {
	Name string
	ID   uint32
}

// IndexDefinition describes one secondary index. Exactly the fields of
// its kind are meaningful: NumericID for composite indexes, the
// relation type and direction flags for relation-type indexes, Backend
// for mixed indexes.
type IndexDefinition struct {
	Name   string
	Kind   Kind
	Status Status

	// composite
	NumericID uint64

	// relation-type
	RelationType    string
	TypeID          uint32
	UnidirectedOut  bool
	UnidirectedIn   bool
	UnidirectedBoth bool

	// mixed
	Backend string
}

var ErrBadDefinition = errors.New("schema: malformed index definition record")

// UnidirectedDirection returns the single direction the wrapped
// relation type is unidirected in. Relation-type indexes must have
// exactly one such direction.
func (d *IndexDefinition) UnidirectedDirection() (keys.Direction, error) {
	var dir keys.Direction
	n := 0
	if d.UnidirectedOut {
		dir, n = keys.DirOut, n+1
	}
	if d.UnidirectedIn {
		dir, n = keys.DirIn, n+1
	}
	if d.UnidirectedBoth {
		dir, n = keys.DirBoth, n+1
	}
	if n != 1 {
		return 0, fmt.Errorf("%w: %q has %d", quiver_errors.ErrNoUnidirectedDirection, d.RelationType, n)
	}
	return dir, nil
}

func (d *IndexDefinition) directionByte() byte {
	switch {
	case d.UnidirectedOut:
		return byte(keys.DirOut)
	case d.UnidirectedIn:
		return byte(keys.DirIn)
	case d.UnidirectedBoth:
		return byte(keys.DirBoth)
	}
	return 0
}

// Tlv serializes the definition as a TLV record.
func (d *IndexDefinition) Tlv() []byte {
	body := toytlv.Concat(
		toytlv.Record('N', []byte(d.Name)),
		toytlv.Record('K', []byte{byte(d.Kind)}),
		toytlv.Record('S', []byte(d.Status)),
	)
	switch d.Kind {
	case KindComposite:
		body = append(body, toytlv.Record('D', binary.AppendUvarint(nil, d.NumericID))...)
	case KindRelationType:
		body = append(body, toytlv.Record('R', []byte(d.RelationType))...)
		body = append(body, toytlv.Record('T', binary.BigEndian.AppendUint32(nil, d.TypeID))...)
		if b := d.directionByte(); b != 0 {
			body = append(body, toytlv.Record('U', []byte{b})...)
		}
	case KindMixed:
		body = append(body, toytlv.Record('B', []byte(d.Backend))...)
	}
	return toytlv.Record('I', body)
}

// ParseIndexDefinition is the inverse of Tlv.
func ParseIndexDefinition(data []byte) (*IndexDefinition, error) {
	body, rest := toytlv.Take('I', data)
	if body == nil || len(rest) != 0 {
		return nil, ErrBadDefinition
	}
	def := &IndexDefinition{}
	for len(body) > 0 {
		lit, val, r := toytlv.TakeAny(body)
		if lit == 0 {
			return nil, ErrBadDefinition
		}
		body = r
		switch lit {
		case 'N':
			def.Name = string(val)
		case 'K':
			if len(val) != 1 {
				return nil, ErrBadDefinition
			}
			def.Kind = Kind(val[0])
		case 'S':
			def.Status = Status(val)
		case 'D':
			id, n := binary.Uvarint(val)
			if n <= 0 {
				return nil, ErrBadDefinition
			}
			def.NumericID = id
		case 'R':
			def.RelationType = string(val)
		case 'T':
			if len(val) != 4 {
				return nil, ErrBadDefinition
			}
			def.TypeID = binary.BigEndian.Uint32(val)
		case 'U':
			if len(val) != 1 {
				return nil, ErrBadDefinition
			}
			switch keys.Direction(val[0]) {
			case keys.DirOut:
				def.UnidirectedOut = true
			case keys.DirIn:
				def.UnidirectedIn = true
			case keys.DirBoth:
				def.UnidirectedBoth = true
			default:
				return nil, ErrBadDefinition
			}
		}
	}
	if def.Name == "" || !def.Status.Valid() {
		return nil, ErrBadDefinition
	}
	return def, nil
}

func (t *RelationType) Tlv() []byte {
	return toytlv.Record('T',
		toytlv.Record('N', []byte(t.Name)),
		toytlv.Record('I', binary.BigEndian.AppendUint32(nil, t.ID)),
	)
}

func ParseRelationType(data []byte) (*RelationType, error) {
	body, rest := toytlv.Take('T', data)
	if body == nil || len(rest) != 0 {
		return nil, ErrBadDefinition
	}
	name, body := toytlv.Take('N', body)
	idb, body := toytlv.Take('I', body)
	if name == nil || len(idb) != 4 || len(body) != 0 {
		return nil, ErrBadDefinition
	}
	return &RelationType{Name: string(name), ID: binary.BigEndian.Uint32(idb)}, nil
}
