package quilt_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quiltdb/quilt"
	"github.com/quiltdb/quilt/internal/testutil"
)

func arrayInts(t *testing.T, doc *quilt.Doc, name string) []int64 {
	t.Helper()
	txn := testutil.MustBegin(t, doc)
	defer txn.Commit()
	var out []int64
	it := txn.Array(name).Iter(txn)
	for v, ok := it.Next(); ok; v, ok = it.Next() {
		n, isInt := quilt.AsInt64(v)
		require.True(t, isInt)
		out = append(out, n)
	}
	return out
}

func TestArray_InsertGetRemove(t *testing.T) {
	doc := quilt.NewWithClientID(1)
	txn := testutil.MustBegin(t, doc)

	arr := txn.Array("items")
	require.NoError(t, arr.InsertRange(txn, 0, []quilt.Value{
		quilt.NewInt64(1), quilt.NewInt64(2), quilt.NewInt64(4),
	}))
	require.NoError(t, arr.InsertRange(txn, 2, []quilt.Value{quilt.NewInt64(3)}))
	assert.Equal(t, 4, arr.Len(txn))

	v, err := arr.Get(txn, 2)
	require.NoError(t, err)
	n, ok := quilt.AsInt64(v)
	require.True(t, ok)
	assert.Equal(t, int64(3), n)

	require.NoError(t, arr.RemoveRange(txn, 1, 2))
	assert.Equal(t, 2, arr.Len(txn))
	testutil.MustCommit(t, txn)

	assert.Equal(t, []int64{1, 4}, arrayInts(t, doc, "items"))
}

func TestArray_MixedValueKindsSurviveSync(t *testing.T) {
	doc1, doc2 := testutil.NewPair(t)

	txn := testutil.MustBegin(t, doc1)
	arr := txn.Array("items")
	require.NoError(t, arr.InsertRange(txn, 0, []quilt.Value{
		quilt.NewNull(),
		quilt.NewUndefined(),
		quilt.NewBool(true),
		quilt.NewFloat64(1.5),
		quilt.NewString("s"),
		quilt.NewBytes([]byte{1, 2}),
		quilt.NewList(quilt.NewInt64(7)),
		quilt.NewValueMap(map[string]quilt.Value{"k": quilt.NewInt64(8)}),
	}))
	testutil.MustCommit(t, txn)

	testutil.Sync(t, doc1, doc2)

	txn2 := testutil.MustBegin(t, doc2)
	defer txn2.Commit()
	arr2 := txn2.Array("items")
	require.Equal(t, 8, arr2.Len(txn2))

	v, err := arr2.Get(txn2, 0)
	require.NoError(t, err)
	assert.True(t, quilt.IsNull(v))

	v, err = arr2.Get(txn2, 5)
	require.NoError(t, err)
	raw, ok := quilt.AsBytes(v)
	require.True(t, ok)
	assert.Equal(t, []byte{1, 2}, raw)

	v, err = arr2.Get(txn2, 6)
	require.NoError(t, err)
	list, ok := quilt.AsList(v)
	require.True(t, ok)
	require.Len(t, list, 1)

	v, err = arr2.Get(txn2, 7)
	require.NoError(t, err)
	m, ok := quilt.AsValueMap(v)
	require.True(t, ok)
	n, ok := quilt.AsInt64(m["k"])
	require.True(t, ok)
	assert.Equal(t, int64(8), n)
}

func TestArray_ConcurrentDeleteAndInsert(t *testing.T) {
	// doc1 removes the middle element while doc2 inserts a new element at
	// the same index. Both replicas must end with the insert in the deleted
	// element's place.
	doc1, doc2 := testutil.NewPair(t)

	txn := testutil.MustBegin(t, doc1)
	require.NoError(t, txn.Array("items").InsertRange(txn, 0, []quilt.Value{
		quilt.NewInt64(1), quilt.NewInt64(2), quilt.NewInt64(3),
	}))
	seed := testutil.MustCommit(t, txn)
	require.NoError(t, quilt.ApplyUpdate(doc2, seed))

	txn = testutil.MustBegin(t, doc1)
	require.NoError(t, txn.Array("items").RemoveRange(txn, 1, 1))
	del := testutil.MustCommit(t, txn)

	txn = testutil.MustBegin(t, doc2)
	require.NoError(t, txn.Array("items").InsertRange(txn, 1, []quilt.Value{quilt.NewInt64(99)}))
	ins := testutil.MustCommit(t, txn)

	require.NoError(t, quilt.ApplyUpdate(doc1, ins))
	require.NoError(t, quilt.ApplyUpdate(doc2, del))

	assert.Equal(t, []int64{1, 99, 3}, arrayInts(t, doc1, "items"))
	assert.Equal(t, []int64{1, 99, 3}, arrayInts(t, doc2, "items"))
}

func TestArray_NestedContainers(t *testing.T) {
	doc := quilt.NewWithClientID(1)
	txn := testutil.MustBegin(t, doc)

	arr := txn.Array("items")
	require.NoError(t, arr.InsertRange(txn, 0, []quilt.Value{
		quilt.NewTextPrelim("inner"),
		quilt.NewArrayPrelim(quilt.NewInt64(1), quilt.NewInt64(2)),
		quilt.NewMapPrelim(map[string]quilt.Value{"k": quilt.NewBool(true)}),
	}))

	v, err := arr.Get(txn, 0)
	require.NoError(t, err)
	text, ok := txn.AsText(v)
	require.True(t, ok)
	assert.Equal(t, "inner", text.String(txn))

	v, err = arr.Get(txn, 1)
	require.NoError(t, err)
	inner, ok := txn.AsArray(v)
	require.True(t, ok)
	assert.Equal(t, 2, inner.Len(txn))

	v, err = arr.Get(txn, 2)
	require.NoError(t, err)
	m, ok := txn.AsMap(v)
	require.True(t, ok)
	mv, found := m.Get(txn, "k")
	require.True(t, found)
	b, ok := quilt.AsBool(mv)
	require.True(t, ok)
	assert.True(t, b)

	// The wrong As* conversion declines.
	_, ok = txn.AsMap(v)
	assert.True(t, ok)
	_, ok = txn.AsText(v)
	assert.False(t, ok)
	testutil.MustCommit(t, txn)
}

func TestArray_NestedContainersSurviveSync(t *testing.T) {
	doc1, doc2 := testutil.NewPair(t)

	txn := testutil.MustBegin(t, doc1)
	require.NoError(t, txn.Array("items").InsertRange(txn, 0, []quilt.Value{
		quilt.NewTextPrelim("shared"),
	}))
	testutil.MustCommit(t, txn)

	testutil.Sync(t, doc1, doc2)

	txn2 := testutil.MustBegin(t, doc2)
	v, err := txn2.Array("items").Get(txn2, 0)
	require.NoError(t, err)
	text, ok := txn2.AsText(v)
	require.True(t, ok)
	assert.Equal(t, "shared", text.String(txn2))

	// Edits inside the nested container replicate back.
	require.NoError(t, text.Insert(txn2, 6, " doc"))
	testutil.MustCommit(t, txn2)
	testutil.Sync(t, doc1, doc2)

	txn1 := testutil.MustBegin(t, doc1)
	defer txn1.Commit()
	v, err = txn1.Array("items").Get(txn1, 0)
	require.NoError(t, err)
	text1, ok := txn1.AsText(v)
	require.True(t, ok)
	assert.Equal(t, "shared doc", text1.String(txn1))
}

func TestArray_InsertingBorrowedHandleFails(t *testing.T) {
	doc := quilt.NewWithClientID(1)
	txn := testutil.MustBegin(t, doc)

	arr := txn.Array("items")
	require.NoError(t, arr.InsertRange(txn, 0, []quilt.Value{quilt.NewTextPrelim("x")}))
	v, err := arr.Get(txn, 0)
	require.NoError(t, err)

	err = arr.InsertRange(txn, 1, []quilt.Value{v})
	assert.ErrorIs(t, err, quilt.ErrUnsupportedValue)
	testutil.MustCommit(t, txn)
}

func TestArray_IterInvalidatedByMutation(t *testing.T) {
	doc := quilt.NewWithClientID(1)
	txn := testutil.MustBegin(t, doc)

	arr := txn.Array("items")
	require.NoError(t, arr.InsertRange(txn, 0, []quilt.Value{
		quilt.NewInt64(1), quilt.NewInt64(2),
	}))

	it := arr.Iter(txn)
	_, ok := it.Next()
	require.True(t, ok)

	require.NoError(t, arr.RemoveRange(txn, 0, 1))
	_, ok = it.Next()
	assert.False(t, ok)
	testutil.MustCommit(t, txn)
}

func TestArray_GetOutOfBounds(t *testing.T) {
	doc := quilt.NewWithClientID(1)
	txn := testutil.MustBegin(t, doc)
	defer txn.Commit()

	arr := txn.Array("items")
	_, err := arr.Get(txn, 0)
	assert.True(t, quilt.IsIndexOutOfBounds(err))

	err = arr.InsertRange(txn, 1, []quilt.Value{quilt.NewInt64(1)})
	assert.True(t, quilt.IsIndexOutOfBounds(err))
}
