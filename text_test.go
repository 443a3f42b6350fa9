package quilt_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quiltdb/quilt"
	"github.com/quiltdb/quilt/internal/testutil"
)

func TestText_InsertAndRead(t *testing.T) {
	doc := quilt.NewWithClientID(1)
	txn := testutil.MustBegin(t, doc)

	text := txn.Text("body")
	require.NoError(t, text.Insert(txn, 0, "hello"))
	require.NoError(t, text.Insert(txn, 5, " world"))
	require.NoError(t, text.Insert(txn, 5, ","))

	assert.Equal(t, "hello, world", text.String(txn))
	assert.Equal(t, 12, text.Len(txn))
	testutil.MustCommit(t, txn)
}

func TestText_IndicesCountCodePoints(t *testing.T) {
	doc := quilt.NewWithClientID(1)
	txn := testutil.MustBegin(t, doc)

	text := txn.Text("body")
	require.NoError(t, text.Insert(txn, 0, "héllo"))
	assert.Equal(t, 5, text.Len(txn))

	// Index 2 is after the two-byte é, between runes, never inside one.
	require.NoError(t, text.Insert(txn, 2, "→"))
	assert.Equal(t, "hé→llo", text.String(txn))
	assert.Equal(t, 6, text.Len(txn))

	require.NoError(t, text.RemoveRange(txn, 1, 2))
	assert.Equal(t, "hllo", text.String(txn))
}

func TestText_RemoveRange(t *testing.T) {
	doc := quilt.NewWithClientID(1)
	txn := testutil.MustBegin(t, doc)

	text := txn.Text("body")
	require.NoError(t, text.Insert(txn, 0, "hello world"))
	require.NoError(t, text.RemoveRange(txn, 5, 6))
	assert.Equal(t, "hello", text.String(txn))

	// Zero length is a no-op even at the end boundary.
	require.NoError(t, text.RemoveRange(txn, 5, 0))
	assert.Equal(t, "hello", text.String(txn))
}

func TestText_OutOfBounds(t *testing.T) {
	doc := quilt.NewWithClientID(1)
	txn := testutil.MustBegin(t, doc)

	text := txn.Text("body")
	require.NoError(t, text.Insert(txn, 0, "abc"))

	err := text.Insert(txn, 4, "x")
	require.Error(t, err)
	assert.True(t, quilt.IsIndexOutOfBounds(err))

	err = text.Insert(txn, -1, "x")
	assert.True(t, quilt.IsIndexOutOfBounds(err))

	err = text.RemoveRange(txn, 2, 2)
	require.Error(t, err)
	assert.True(t, quilt.IsIndexOutOfBounds(err))

	var oob *quilt.IndexOutOfBoundsError
	require.ErrorAs(t, err, &oob)
	assert.Equal(t, 4, oob.Index)
	assert.Equal(t, 3, oob.Length)

	// The failed calls aborted themselves only; prior state is intact.
	assert.Equal(t, "abc", text.String(txn))
}

func TestText_ConcurrentInsertPrecedence(t *testing.T) {
	// Two replicas insert at the head of the same empty text with no
	// knowledge of each other. The replica with the larger client id claims
	// the earlier position, and neither run is interleaved.
	doc1, doc2 := testutil.NewPair(t)

	u1 := testutil.InsertText(t, doc1, "body", 0, "ab")
	u2 := testutil.InsertText(t, doc2, "body", 0, "X")

	require.NoError(t, quilt.ApplyUpdate(doc1, u2))
	require.NoError(t, quilt.ApplyUpdate(doc2, u1))

	assert.Equal(t, "Xab", testutil.TextOf(t, doc1, "body"))
	assert.Equal(t, "Xab", testutil.TextOf(t, doc2, "body"))
}

func TestText_ConcurrentRunsDoNotInterleave(t *testing.T) {
	doc1, doc2 := testutil.NewPair(t)

	// Each replica types its word one character at a time.
	for i, r := range "one" {
		testutil.InsertText(t, doc1, "body", i, string(r))
	}
	for i, r := range "two" {
		testutil.InsertText(t, doc2, "body", i, string(r))
	}

	testutil.Sync(t, doc1, doc2)

	got := testutil.TextOf(t, doc1, "body")
	assert.Equal(t, got, testutil.TextOf(t, doc2, "body"))
	assert.Contains(t, []string{"onetwo", "twoone"}, got)
}

func TestText_InsertAtTombstoneBoundary(t *testing.T) {
	// doc1 deletes "bc" while doc2 concurrently inserts at the boundary
	// index 1, which sits next to the tombstoned range after the deletion
	// arrives. The insertion must keep its place on both replicas.
	doc1, doc2 := testutil.NewPair(t)

	u := testutil.InsertText(t, doc1, "body", 0, "abcd")
	require.NoError(t, quilt.ApplyUpdate(doc2, u))

	txn := testutil.MustBegin(t, doc1)
	require.NoError(t, txn.Text("body").RemoveRange(txn, 1, 2))
	del := testutil.MustCommit(t, txn)

	ins := testutil.InsertText(t, doc2, "body", 1, "X")

	require.NoError(t, quilt.ApplyUpdate(doc1, ins))
	require.NoError(t, quilt.ApplyUpdate(doc2, del))

	got1 := testutil.TextOf(t, doc1, "body")
	got2 := testutil.TextOf(t, doc2, "body")
	require.Equal(t, got1, got2)
	assert.Equal(t, "aXd", got1)
}

func TestText_DeletedContentStaysDeleted(t *testing.T) {
	doc1, doc2 := testutil.NewPair(t)

	u := testutil.InsertText(t, doc1, "body", 0, "abc")
	require.NoError(t, quilt.ApplyUpdate(doc2, u))

	txn := testutil.MustBegin(t, doc1)
	require.NoError(t, txn.Text("body").RemoveRange(txn, 0, 3))
	del := testutil.MustCommit(t, txn)
	require.NoError(t, quilt.ApplyUpdate(doc2, del))

	// Replaying the original insert must not resurrect the content.
	require.NoError(t, quilt.ApplyUpdate(doc2, u))
	assert.Equal(t, "", testutil.TextOf(t, doc2, "body"))

	// Neither does a full-snapshot exchange from a replica that never saw
	// the deletion applied late.
	doc3 := quilt.NewWithClientID(3)
	snap, err := quilt.EncodeDiff(doc2, nil)
	require.NoError(t, err)
	require.NoError(t, quilt.ApplyUpdate(doc3, snap))
	assert.Equal(t, "", testutil.TextOf(t, doc3, "body"))
}
