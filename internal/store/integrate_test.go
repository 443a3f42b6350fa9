package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIntegrate_LocalInsertOrder(t *testing.T) {
	s := New()
	br := s.Root("body", KindText)

	a := s.InsertAfter(br, nil, ContentString{Str: "ac"}, 1)
	left, _ := s.SplitVisible(a, 1)
	s.InsertAfter(br, left, ContentString{Str: "b"}, 1)

	assert.Equal(t, "abc", chainString(br))
}

func TestIntegrate_ConcurrentHeadInsert_TieBreak(t *testing.T) {
	// Both clients insert at the head of an empty sequence with no knowledge
	// of each other. The larger client id must land earlier on every replica,
	// whichever replica integrates the other's block.
	docA := New()
	brA := docA.Root("body", KindText)
	docA.InsertAfter(brA, nil, ContentString{Str: "ab"}, 1)

	docB := New()
	brB := docB.Root("body", KindText)
	docB.InsertAfter(brB, nil, ContentString{Str: "X"}, 2)

	docA.ApplyBlocks(wireBlocks(docB, 2), nil)
	docB.ApplyBlocks(wireBlocks(docA, 1), nil)

	assert.Equal(t, "Xab", chainString(brA))
	assert.Equal(t, "Xab", chainString(brB))
}

func TestIntegrate_NoInterleaving(t *testing.T) {
	// Two clients each type a multi-character run concurrently. The runs must
	// stay contiguous on both replicas.
	docA := New()
	brA := docA.Root("body", KindText)
	left := docA.InsertAfter(brA, nil, ContentString{Str: "o"}, 1)
	left = docA.InsertAfter(brA, left, ContentString{Str: "n"}, 1)
	docA.InsertAfter(brA, left, ContentString{Str: "e"}, 1)

	docB := New()
	brB := docB.Root("body", KindText)
	left = docB.InsertAfter(brB, nil, ContentString{Str: "t"}, 2)
	left = docB.InsertAfter(brB, left, ContentString{Str: "w"}, 2)
	docB.InsertAfter(brB, left, ContentString{Str: "o"}, 2)

	docA.ApplyBlocks(wireBlocks(docB, 2), nil)
	docB.ApplyBlocks(wireBlocks(docA, 1), nil)

	require.Equal(t, chainString(brA), chainString(brB))
	assert.Equal(t, "twoone", chainString(brA))
}

func TestIntegrate_ThreeWayConvergence(t *testing.T) {
	// Three replicas, concurrent head inserts, blocks delivered in every
	// order. All replicas must converge on the same sequence.
	texts := map[ClientID]string{1: "a", 2: "b", 3: "c"}
	build := func(client ClientID) []*Block {
		d := New()
		br := d.Root("body", KindText)
		d.InsertAfter(br, nil, ContentString{Str: texts[client]}, client)
		return wireBlocks(d, client)
	}

	orders := [][]ClientID{
		{1, 2, 3},
		{3, 2, 1},
		{2, 1, 3},
		{3, 1, 2},
	}
	var want string
	for _, order := range orders {
		d := New()
		br := d.Root("body", KindText)
		for _, client := range order {
			d.ApplyBlocks(build(client), nil)
		}
		got := chainString(br)
		if want == "" {
			want = got
		}
		assert.Equal(t, want, got)
	}
	// Larger client ids claim earlier slots.
	assert.Equal(t, "cba", want)
}

func TestIntegrate_MapRegisterLWW(t *testing.T) {
	docA := New()
	brA := docA.Root("meta", KindMap)
	docA.SetMapKey(brA, "k", ContentValues{Values: []Value{Int64(1)}}, 1)

	docB := New()
	brB := docB.Root("meta", KindMap)
	docB.SetMapKey(brB, "k", ContentValues{Values: []Value{Int64(2)}}, 2)

	docA.ApplyBlocks(wireBlocks(docB, 2), nil)
	docB.ApplyBlocks(wireBlocks(docA, 1), nil)

	// Equal clocks, so the higher client id wins on both replicas.
	wa := brA.MapEntry("k")
	wb := brB.MapEntry("k")
	require.NotNil(t, wa)
	require.NotNil(t, wb)
	assert.Equal(t, ClientID(2), wa.ID.Client)
	assert.Equal(t, ClientID(2), wb.ID.Client)

	v, ok := brA.MapValue("k")
	require.True(t, ok)
	assert.Equal(t, Int64(2), v)
}

func TestIntegrate_MapHigherClockBeatsHigherClient(t *testing.T) {
	s := New()
	br := s.Root("meta", KindMap)
	s.SetMapKey(br, "k", ContentValues{Values: []Value{String("old")}}, 9)

	// A later write from a smaller client id supersedes it.
	remote := &Block{
		ID:         ID{Client: 1, Clock: 1},
		Key:        "k",
		ParentName: "meta",
		ParentKind: KindMap,
		Content:    ContentValues{Values: []Value{String("new")}},
	}
	filler := &Block{
		ID:         ID{Client: 1, Clock: 0},
		Key:        "pad",
		ParentName: "meta",
		ParentKind: KindMap,
		Content:    ContentValues{Values: []Value{Null{}}},
	}
	s.ApplyBlocks([]*Block{filler, remote}, nil)

	v, ok := br.MapValue("k")
	require.True(t, ok)
	assert.Equal(t, String("new"), v)
}

func TestIntegrate_NestedBranchAdoption(t *testing.T) {
	s := New()
	root := s.Root("items", KindArray)

	nested := NewNested(KindText, "")
	b := s.InsertAfter(root, nil, ContentBranch{Branch: nested}, 1)

	require.Same(t, b, nested.Item)
	assert.Same(t, root, nested.Parent())

	s.InsertAfter(nested, nil, ContentString{Str: "hi"}, 1)
	assert.Equal(t, "hi", chainString(nested))
}
