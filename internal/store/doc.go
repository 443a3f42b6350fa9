// Package store implements the replicated block store that backs every
// shared type in quilt.
//
// All document content lives in blocks: contiguous runs of content produced
// by a single client under a contiguous clock range. Blocks are addressed by
// stable (client, clock) IDs rather than raw pointers, so splitting, merging
// and serialization never invalidate a reference held by a remote peer.
//
// ARCHITECTURE:
//
// Per-client yarns:
// Every client's blocks are kept in a clock-ordered slice (the client's
// "yarn"). A yarn is gap-free: block N+1 starts at the clock where block N
// ended. State vectors and sync diffs fall directly out of this layout.
//
// Sequence containers:
// Blocks within a sequence container form a doubly linked chain starting at
// the container's Start block. A block's position is never stored as an
// index; it is recomputed from its left/right origins, which are captured at
// creation and immutable forever after. Integration of a concurrent block
// scans the chain between its origins and resolves placement from origin
// ancestry with a client-id tie break. Because that decision depends only on
// immutable data carried by each block, every replica places every block
// identically regardless of delivery order.
//
// Tombstones:
// Deleted content is never removed. Blocks are marked deleted and excluded
// from visible length and content queries, but they remain in the chain so
// that concurrent operations anchored to them still integrate at the right
// position.
//
// Missing dependencies:
// A remote block whose origin, parent, or preceding clock has not yet been
// integrated locally is held in a pending queue and retried whenever new
// blocks arrive. Buffering, not failure: the block integrates as soon as its
// causal predecessors do.
//
// The store is single-threaded by design. One transaction mutates a document
// at a time, and cross-replica concurrency exists only as exchanged update
// payloads between independent stores.
package store
