// Package testutil provides deterministic helpers shared by the engine
// tests: fixed-client documents and bidirectional sync exchange.
package testutil

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/quiltdb/quilt"
)

// NewPair returns two documents with fixed client ids 1 and 2, the setup
// every convergence test starts from.
func NewPair(t *testing.T) (*quilt.Doc, *quilt.Doc) {
	t.Helper()
	return quilt.NewWithClientID(1), quilt.NewWithClientID(2)
}

// MustBegin opens a transaction or fails the test.
func MustBegin(t *testing.T, doc *quilt.Doc) *quilt.Txn {
	t.Helper()
	txn, err := doc.Begin()
	require.NoError(t, err)
	return txn
}

// MustCommit commits a transaction and returns its update payload.
func MustCommit(t *testing.T, txn *quilt.Txn) []byte {
	t.Helper()
	update, err := txn.Commit()
	require.NoError(t, err)
	return update
}

// Sync exchanges state-vector diffs in both directions, bringing both
// documents to the union of their states.
func Sync(t *testing.T, a, b *quilt.Doc) {
	t.Helper()

	diffAB, err := quilt.EncodeDiff(a, quilt.EncodeStateVector(b))
	require.NoError(t, err)
	diffBA, err := quilt.EncodeDiff(b, quilt.EncodeStateVector(a))
	require.NoError(t, err)

	require.NoError(t, quilt.ApplyUpdate(b, diffAB))
	require.NoError(t, quilt.ApplyUpdate(a, diffBA))
}

// TextOf reads the visible content of a root text container.
func TextOf(t *testing.T, doc *quilt.Doc, name string) string {
	t.Helper()
	txn := MustBegin(t, doc)
	defer txn.Commit()
	return txn.Text(name).String(txn)
}

// InsertText runs a single-operation transaction inserting s at index and
// returns the update payload.
func InsertText(t *testing.T, doc *quilt.Doc, name string, index int, s string) []byte {
	t.Helper()
	txn := MustBegin(t, doc)
	require.NoError(t, txn.Text(name).Insert(txn, index, s))
	return MustCommit(t, txn)
}
