package quilt_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quiltdb/quilt"
	"github.com/quiltdb/quilt/internal/testutil"
)

func mapInt(t *testing.T, doc *quilt.Doc, name, key string) (int64, bool) {
	t.Helper()
	txn := testutil.MustBegin(t, doc)
	defer txn.Commit()
	v, ok := txn.Map(name).Get(txn, key)
	if !ok {
		return 0, false
	}
	n, isInt := quilt.AsInt64(v)
	require.True(t, isInt)
	return n, true
}

func TestMap_InsertGetRemove(t *testing.T) {
	doc := quilt.NewWithClientID(1)
	txn := testutil.MustBegin(t, doc)

	m := txn.Map("meta")
	require.NoError(t, m.Insert(txn, "a", quilt.NewInt64(1)))
	require.NoError(t, m.Insert(txn, "b", quilt.NewString("two")))
	assert.Equal(t, 2, m.Len(txn))

	// Overwrite supersedes the old value.
	require.NoError(t, m.Insert(txn, "a", quilt.NewInt64(10)))
	v, ok := m.Get(txn, "a")
	require.True(t, ok)
	n, _ := quilt.AsInt64(v)
	assert.Equal(t, int64(10), n)
	assert.Equal(t, 2, m.Len(txn))

	found, err := m.Remove(txn, "a")
	require.NoError(t, err)
	assert.True(t, found)
	_, ok = m.Get(txn, "a")
	assert.False(t, ok)
	assert.Equal(t, 1, m.Len(txn))

	// Removing an absent key reports false.
	found, err = m.Remove(txn, "missing")
	require.NoError(t, err)
	assert.False(t, found)
	testutil.MustCommit(t, txn)
}

func TestMap_RemoveAll(t *testing.T) {
	doc := quilt.NewWithClientID(1)
	txn := testutil.MustBegin(t, doc)

	m := txn.Map("meta")
	require.NoError(t, m.Insert(txn, "a", quilt.NewInt64(1)))
	require.NoError(t, m.Insert(txn, "b", quilt.NewInt64(2)))
	require.NoError(t, m.RemoveAll(txn))
	assert.Equal(t, 0, m.Len(txn))
	testutil.MustCommit(t, txn)
}

func TestMap_Iter(t *testing.T) {
	doc := quilt.NewWithClientID(1)
	txn := testutil.MustBegin(t, doc)

	m := txn.Map("meta")
	require.NoError(t, m.Insert(txn, "a", quilt.NewInt64(1)))
	require.NoError(t, m.Insert(txn, "b", quilt.NewInt64(2)))
	found, err := m.Remove(txn, "b")
	require.NoError(t, err)
	require.True(t, found)

	got := map[string]int64{}
	it := m.Iter(txn)
	for k, v, ok := it.Next(); ok; k, v, ok = it.Next() {
		n, isInt := quilt.AsInt64(v)
		require.True(t, isInt)
		got[k] = n
	}
	assert.Equal(t, map[string]int64{"a": 1}, got)

	// Mutation invalidates a live iterator.
	it = m.Iter(txn)
	require.NoError(t, m.Insert(txn, "c", quilt.NewInt64(3)))
	_, _, ok := it.Next()
	assert.False(t, ok)
	testutil.MustCommit(t, txn)
}

func TestMap_ConcurrentWriteTieGoesToHigherClient(t *testing.T) {
	// Equal clocks on both writes; the winner must be client 2's value on
	// both replicas regardless of apply order.
	doc1, doc2 := testutil.NewPair(t)

	txn := testutil.MustBegin(t, doc1)
	require.NoError(t, txn.Map("meta").Insert(txn, "k", quilt.NewInt64(1)))
	u1 := testutil.MustCommit(t, txn)

	txn = testutil.MustBegin(t, doc2)
	require.NoError(t, txn.Map("meta").Insert(txn, "k", quilt.NewInt64(2)))
	u2 := testutil.MustCommit(t, txn)

	require.NoError(t, quilt.ApplyUpdate(doc1, u2))
	require.NoError(t, quilt.ApplyUpdate(doc2, u1))

	n, ok := mapInt(t, doc1, "meta", "k")
	require.True(t, ok)
	assert.Equal(t, int64(2), n)
	n, ok = mapInt(t, doc2, "meta", "k")
	require.True(t, ok)
	assert.Equal(t, int64(2), n)
}

func TestMap_HigherClockBeatsHigherClient(t *testing.T) {
	doc1, doc2 := testutil.NewPair(t)

	// doc2 writes once; doc1 catches up and then writes again, giving its
	// write the higher clock. doc1's value must win despite its smaller
	// client id.
	txn := testutil.MustBegin(t, doc2)
	require.NoError(t, txn.Map("meta").Insert(txn, "k", quilt.NewInt64(2)))
	u2 := testutil.MustCommit(t, txn)
	require.NoError(t, quilt.ApplyUpdate(doc1, u2))

	txn = testutil.MustBegin(t, doc1)
	require.NoError(t, txn.Map("meta").Insert(txn, "pad", quilt.NewNull()))
	require.NoError(t, txn.Map("meta").Insert(txn, "k", quilt.NewInt64(1)))
	u1 := testutil.MustCommit(t, txn)
	require.NoError(t, quilt.ApplyUpdate(doc2, u1))

	n, ok := mapInt(t, doc1, "meta", "k")
	require.True(t, ok)
	assert.Equal(t, int64(1), n)
	n, ok = mapInt(t, doc2, "meta", "k")
	require.True(t, ok)
	assert.Equal(t, int64(1), n)
}

func TestMap_ConcurrentRemoveVsWrite(t *testing.T) {
	// doc1 removes the key while doc2 concurrently writes a new value. The
	// removal only tombstones writes doc1 had seen, so doc2's write survives
	// on both replicas.
	doc1, doc2 := testutil.NewPair(t)

	txn := testutil.MustBegin(t, doc1)
	require.NoError(t, txn.Map("meta").Insert(txn, "k", quilt.NewInt64(1)))
	seed := testutil.MustCommit(t, txn)
	require.NoError(t, quilt.ApplyUpdate(doc2, seed))

	txn = testutil.MustBegin(t, doc1)
	_, err := txn.Map("meta").Remove(txn, "k")
	require.NoError(t, err)
	del := testutil.MustCommit(t, txn)

	txn = testutil.MustBegin(t, doc2)
	require.NoError(t, txn.Map("meta").Insert(txn, "k", quilt.NewInt64(9)))
	write := testutil.MustCommit(t, txn)

	require.NoError(t, quilt.ApplyUpdate(doc1, write))
	require.NoError(t, quilt.ApplyUpdate(doc2, del))

	n, ok := mapInt(t, doc1, "meta", "k")
	require.True(t, ok)
	assert.Equal(t, int64(9), n)
	n, ok = mapInt(t, doc2, "meta", "k")
	require.True(t, ok)
	assert.Equal(t, int64(9), n)
}

func TestMap_NestedContainer(t *testing.T) {
	doc1, doc2 := testutil.NewPair(t)

	txn := testutil.MustBegin(t, doc1)
	require.NoError(t, txn.Map("meta").Insert(txn, "doc", quilt.NewMapPrelim(map[string]quilt.Value{
		"title": quilt.NewString("draft"),
	})))
	testutil.MustCommit(t, txn)

	testutil.Sync(t, doc1, doc2)

	txn2 := testutil.MustBegin(t, doc2)
	defer txn2.Commit()
	v, ok := txn2.Map("meta").Get(txn2, "doc")
	require.True(t, ok)
	nested, ok := txn2.AsMap(v)
	require.True(t, ok)
	tv, ok := nested.Get(txn2, "title")
	require.True(t, ok)
	s, _ := quilt.AsString(tv)
	assert.Equal(t, "draft", s)
}

func TestMap_InsertingBorrowedHandleFails(t *testing.T) {
	doc := quilt.NewWithClientID(1)
	txn := testutil.MustBegin(t, doc)

	m := txn.Map("meta")
	require.NoError(t, m.Insert(txn, "a", quilt.NewTextPrelim("x")))
	v, ok := m.Get(txn, "a")
	require.True(t, ok)

	err := m.Insert(txn, "b", v)
	assert.ErrorIs(t, err, quilt.ErrUnsupportedValue)
	testutil.MustCommit(t, txn)
}
