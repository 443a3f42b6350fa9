package quilt

import (
	"github.com/quiltdb/quilt/internal/codec"
	"github.com/quiltdb/quilt/internal/store"
)

// EncodeStateVector serializes the document's state vector: the compact
// summary a peer needs to compute exactly the blocks this replica lacks.
func EncodeStateVector(doc *Doc) []byte {
	return codec.EncodeStateVector(doc.store.StateVector())
}

// EncodeDiff serializes every block the peer's state vector does not cover,
// plus the full delete set. A nil peer vector yields a full snapshot.
// Applying the result to the peer brings it up to this document's state at
// diff time.
func EncodeDiff(doc *Doc, peerStateVector []byte) ([]byte, error) {
	var peer store.StateVector
	if peerStateVector != nil {
		sv, err := codec.DecodeStateVector(peerStateVector)
		if err != nil {
			return nil, err
		}
		peer = sv
	}
	blocks, ds := doc.store.Diff(peer)
	return codec.EncodeUpdate(blocks, ds)
}

// ApplyUpdate decodes an update payload and integrates it under an
// internally opened, auto-committed transaction. The payload is decoded in
// full before anything is integrated, so a malformed update is rejected
// with the document unchanged. Blocks whose causal predecessors are missing
// are buffered, not dropped; they integrate once a later update supplies
// the predecessors.
func ApplyUpdate(doc *Doc, update []byte) error {
	blocks, ds, err := codec.DecodeUpdate(update)
	if err != nil {
		return err
	}
	txn, err := doc.Begin()
	if err != nil {
		return err
	}
	doc.store.ApplyBlocks(blocks, ds)
	_, err = txn.commit(false)
	return err
}
