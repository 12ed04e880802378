// Provides common quiver errors definitions.
package quiver_errors

import "errors"

var (
	ErrIndexUnknown        = errors.New("quiver: unknown index")
	ErrRelationTypeUnknown = errors.New("quiver: unknown relation type")

	ErrMixedIndexRemoval      = errors.New("quiver: mixed indexes cannot be removed through quiver, act on the indexing backend directly")
	ErrUnsupportedIndex       = errors.New("quiver: unsupported index kind")
	ErrIndexNotDisabled       = errors.New("quiver: index must be disabled before it can be removed")
	ErrNoUnidirectedDirection = errors.New("quiver: relation type has no unidirected direction")
	ErrTxClosed               = errors.New("quiver: transaction is closed")
	ErrClosed                 = errors.New("quiver: graph is closed")
)
