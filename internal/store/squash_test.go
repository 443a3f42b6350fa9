package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSquash_MergesAdjacentRun(t *testing.T) {
	s := New()
	br := s.Root("body", KindText)
	left := s.InsertAfter(br, nil, ContentString{Str: "h"}, 1)
	left = s.InsertAfter(br, left, ContentString{Str: "e"}, 1)
	s.InsertAfter(br, left, ContentString{Str: "y"}, 1)
	require.Len(t, s.clients[1], 3)

	s.Squash(StateVector{})

	require.Len(t, s.clients[1], 1)
	merged := s.clients[1][0]
	assert.Equal(t, "hey", merged.Content.(ContentString).Str)
	assert.Equal(t, uint64(0), merged.ID.Clock)
	assert.Equal(t, "hey", chainString(br))

	// Interior IDs still resolve into the merged block.
	b, ok := s.Find(ID{Client: 1, Clock: 2})
	require.True(t, ok)
	assert.Same(t, merged, b)
}

func TestSquash_StopsAtTombstone(t *testing.T) {
	s := New()
	br := s.Root("body", KindText)
	left := s.InsertAfter(br, nil, ContentString{Str: "a"}, 1)
	mid := s.InsertAfter(br, left, ContentString{Str: "b"}, 1)
	s.InsertAfter(br, mid, ContentString{Str: "c"}, 1)
	s.TombstoneBlock(mid)

	s.Squash(StateVector{})

	// The tombstone must survive as its own block.
	assert.Len(t, s.clients[1], 3)
	assert.Equal(t, "ac", chainString(br))
}

func TestSquash_SkipsChainGaps(t *testing.T) {
	// Another client's block sits between two clock-contiguous blocks, so
	// they are not chain-adjacent and must not merge.
	docA := New()
	brA := docA.Root("body", KindText)
	docA.InsertAfter(brA, nil, ContentString{Str: "a"}, 1)

	docB := New()
	brB := docB.Root("body", KindText)
	docB.InsertAfter(brB, nil, ContentString{Str: "X"}, 2)

	docA.ApplyBlocks(wireBlocks(docB, 2), nil)
	// "X" won the head slot; appending to "a" keeps client 1 clock-contiguous
	// but a follow-up head insert lands between the halves.
	aBlock := docA.clients[1][0]
	docA.InsertAfter(brA, aBlock, ContentString{Str: "b"}, 1)
	headLeft, _ := docA.blockStartingAt(ID{Client: 2, Clock: 0})
	docA.InsertAfter(brA, headLeft, ContentString{Str: "c"}, 1)

	require.Equal(t, "Xcab", chainString(brA))
	docA.Squash(StateVector{})

	// "a"+"b" merge; "c" is chain-separated from them and stays alone.
	assert.Equal(t, "Xcab", chainString(brA))
	assert.Len(t, docA.clients[1], 2)
}

func TestSquash_RespectsSinceVector(t *testing.T) {
	s := New()
	br := s.Root("body", KindText)
	left := s.InsertAfter(br, nil, ContentString{Str: "a"}, 1)
	left = s.InsertAfter(br, left, ContentString{Str: "b"}, 1)
	s.Squash(StateVector{})
	require.Len(t, s.clients[1], 1)

	// New work after the vector merges into the pre-existing block.
	left = s.clients[1][0]
	s.InsertAfter(br, left, ContentString{Str: "c"}, 1)
	s.Squash(StateVector{1: 2})
	assert.Len(t, s.clients[1], 1)
	assert.Equal(t, "abc", chainString(br))
}

func TestSquash_KeepsRegisterWritesDistinct(t *testing.T) {
	s := New()
	br := s.Root("meta", KindMap)
	s.SetMapKey(br, "k", ContentValues{Values: []Value{Int64(1)}}, 1)
	s.SetMapKey(br, "k", ContentValues{Values: []Value{Int64(2)}}, 1)

	s.Squash(StateVector{})
	assert.Len(t, s.clients[1], 2)

	v, ok := br.MapValue("k")
	require.True(t, ok)
	assert.Equal(t, Int64(2), v)
}
