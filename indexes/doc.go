// Package indexes holds the index maintenance jobs.
//
// # Removal
//
// RemovalJob deletes the on-disk entries of a disabled secondary index
// through the scan framework. It never touches index status; disabling
// the index first is the caller's responsibility and is verified once
// at worker start.
//
// Two index layouts are supported:
//
//   - Composite (graph-wide) indexes live in the index store under
//     keys that embed the index's numeric id. The job scans the whole
//     store and a per-key filter decodes the embedded id to drop
//     entries of other indexes.
//
//   - Relation-type indexes live in the edge store under the owning
//     vertex's key, scoped by direction and type id in the column.
//     The scan is already bounded by a compiled relation query; the
//     filter only drops keys of invisible system vertices.
//
// Mixed (externally backed) indexes are rejected outright: their data
// lives in the external indexing system and must be dropped there.
//
// Each accepted key is removed with one atomic backend mutation. A
// mutation failure rolls back the worker's management session and
// write transaction and aborts that worker; keys already committed
// stay deleted. The deleted-records counter is incremented only after
// a key's mutation commits, so retries of a failed key cannot double
// count.
package indexes
