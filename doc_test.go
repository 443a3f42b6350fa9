package quilt_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quiltdb/quilt"
	"github.com/quiltdb/quilt/internal/testutil"
)

func TestDoc_NewAssignsIdentity(t *testing.T) {
	a := quilt.New()
	b := quilt.New()

	assert.NotZero(t, a.ClientID())
	assert.NotEqual(t, a.ClientID(), b.ClientID())
	assert.NotEmpty(t, a.GUID())
	assert.NotEqual(t, a.GUID(), b.GUID())

	assert.Equal(t, uint64(42), quilt.NewWithClientID(42).ClientID())
}

func TestDoc_SingleOpenTransaction(t *testing.T) {
	doc := quilt.NewWithClientID(1)

	txn, err := doc.Begin()
	require.NoError(t, err)

	_, err = doc.Begin()
	assert.ErrorIs(t, err, quilt.ErrTxnOpen)

	testutil.MustCommit(t, txn)
	txn2, err := doc.Begin()
	require.NoError(t, err)
	testutil.MustCommit(t, txn2)
}

func TestDoc_CommitTwiceFails(t *testing.T) {
	doc := quilt.NewWithClientID(1)
	txn := testutil.MustBegin(t, doc)
	testutil.MustCommit(t, txn)

	_, err := txn.Commit()
	assert.ErrorIs(t, err, quilt.ErrTxnCommitted)
}

func TestDoc_OperationsAfterCommitFail(t *testing.T) {
	doc := quilt.NewWithClientID(1)
	txn := testutil.MustBegin(t, doc)
	text := txn.Text("body")
	testutil.MustCommit(t, txn)

	err := text.Insert(txn, 0, "x")
	assert.ErrorIs(t, err, quilt.ErrTxnCommitted)
}

func TestDoc_WrongDocumentRejected(t *testing.T) {
	doc1, doc2 := testutil.NewPair(t)

	txn1 := testutil.MustBegin(t, doc1)
	txn2 := testutil.MustBegin(t, doc2)
	text1 := txn1.Text("body")

	err := text1.Insert(txn2, 0, "x")
	assert.ErrorIs(t, err, quilt.ErrWrongDoc)

	testutil.MustCommit(t, txn1)
	testutil.MustCommit(t, txn2)
}

func TestDoc_EmptyCommitYieldsApplicableUpdate(t *testing.T) {
	doc1, doc2 := testutil.NewPair(t)

	txn := testutil.MustBegin(t, doc1)
	update := testutil.MustCommit(t, txn)
	require.NotEmpty(t, update)

	require.NoError(t, quilt.ApplyUpdate(doc2, update))
	assert.Equal(t, 0, doc2.PendingBlocks())
}

func TestDoc_CommitCompactsAdjacentEdits(t *testing.T) {
	// A transaction's update carries one block per contiguous run, not one
	// per keystroke: the payload of five single-rune inserts is no larger
	// than a fresh snapshot of the same text.
	doc := quilt.NewWithClientID(1)
	txn := testutil.MustBegin(t, doc)
	text := txn.Text("body")
	for i, r := range "hello" {
		require.NoError(t, text.Insert(txn, i, string(r)))
	}
	typed := testutil.MustCommit(t, txn)

	other := quilt.NewWithClientID(1)
	oneShot := testutil.InsertText(t, other, "body", 0, "hello")

	assert.Equal(t, len(oneShot), len(typed))
}
