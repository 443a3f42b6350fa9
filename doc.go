// Package quilt is a conflict-free replicated document engine. Multiple
// peers mutate structured documents - text, ordered arrays, key-value maps,
// XML trees - independently or concurrently, exchange compact binary
// updates, and converge to identical state regardless of delivery order.
//
// A Doc owns a registry of named root containers and a per-replica client
// id. All reads and writes go through a transaction: open one with Begin,
// mutate shared types against it, and Commit to obtain the update payload
// describing everything the transaction changed. Feed such payloads to
// other replicas with ApplyUpdate. State vectors (EncodeStateVector) and
// diffs (EncodeDiff) implement the two-step sync handshake: a peer sends
// its vector, receives exactly the blocks it is missing.
//
// The engine is single-threaded and synchronous: at most one transaction is
// open per document, no call blocks or retries, and cross-replica
// concurrency exists only as exchanged byte payloads between independent
// Doc instances. Transport, persistence and scheduling belong to the
// surrounding application.
package quilt

import (
	"encoding/binary"

	"github.com/google/uuid"

	"github.com/quiltdb/quilt/internal/store"
)

// Doc is one replica of a shared document.
type Doc struct {
	store    *store.Store
	clientID store.ClientID
	guid     string
	current  *Txn
}

// New creates a document with a random client id derived from a fresh UUID.
// The odds of two replicas colliding are negligible, but callers that
// coordinate ids themselves should use NewWithClientID.
func New() *Doc {
	u := uuid.New()
	return &Doc{
		store:    store.New(),
		clientID: store.ClientID(binary.BigEndian.Uint64(u[:8])),
		guid:     u.String(),
	}
}

// NewWithClientID creates a document with a caller-assigned client id.
// Two replicas that both mutate under the same client id corrupt the
// document undetectably; uniqueness is entirely the caller's contract.
func NewWithClientID(id uint64) *Doc {
	return &Doc{
		store:    store.New(),
		clientID: store.ClientID(id),
		guid:     uuid.NewString(),
	}
}

// ClientID returns the replica's client id.
func (d *Doc) ClientID() uint64 {
	return uint64(d.clientID)
}

// GUID returns the document's globally unique identifier. Unlike the client
// id it plays no role in conflict resolution; it exists so applications can
// tell document instances apart.
func (d *Doc) GUID() string {
	return d.guid
}

// Begin opens a transaction. At most one transaction is open per document;
// Begin fails with ErrTxnOpen until the current one commits.
func (d *Doc) Begin() (*Txn, error) {
	if d.current != nil {
		return nil, ErrTxnOpen
	}
	t := &Txn{
		doc:     d,
		startSV: d.store.StateVector(),
		deletes: make(store.DeleteSet),
	}
	d.current = t
	return t, nil
}

// PendingBlocks reports how many remote blocks are parked on a missing
// causal dependency. A permanently nonzero value means some peer never
// supplied a predecessor update.
func (d *Doc) PendingBlocks() int {
	return d.store.PendingBlocks()
}
