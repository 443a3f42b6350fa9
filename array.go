package quilt

import "github.com/quiltdb/quilt/internal/store"

// Array is a collaborative ordered sequence of generic values and nested
// containers.
type Array struct {
	doc    *Doc
	branch *store.Branch
}

// Len returns the number of visible elements.
func (a *Array) Len(txn *Txn) int {
	return a.branch.VisibleLen()
}

// Get returns the element at the visible index.
func (a *Array) Get(txn *Txn, index int) (Value, error) {
	v, ok := seqValueAt(a.branch, index)
	if !ok {
		return nil, outOfBounds(index, a.branch.VisibleLen())
	}
	return v, nil
}

// InsertRange places items starting at the visible index. Prelim values
// materialize nested containers; container handles read from another slot
// cannot be inserted.
func (a *Array) InsertRange(txn *Txn, index int, items []Value) error {
	if err := txn.ensure(a.doc); err != nil {
		return err
	}
	if index < 0 || index > a.branch.VisibleLen() {
		return outOfBounds(index, a.branch.VisibleLen())
	}
	left, err := seqFindInsertPos(a.doc.store, a.branch, index)
	if err != nil {
		return err
	}
	for _, item := range items {
		b, err := insertValue(txn, a.branch, left, item)
		if err != nil {
			return err
		}
		left = b
	}
	return nil
}

// RemoveRange tombstones length elements starting at index.
func (a *Array) RemoveRange(txn *Txn, index, length int) error {
	if err := txn.ensure(a.doc); err != nil {
		return err
	}
	visible := a.branch.VisibleLen()
	if index < 0 || length < 0 || index+length > visible {
		return outOfBounds(index+length, visible)
	}
	if length == 0 {
		return nil
	}
	seqRemoveRange(a.doc.store, a.branch, index, length, txn.deletes)
	return nil
}

// Iter returns an ordered iterator over the visible elements. The iterator
// borrows the array under the given transaction: mutating the array
// invalidates it, after which Next reports done.
func (a *Array) Iter(txn *Txn) *ArrayIter {
	return &ArrayIter{
		doc:    a.doc,
		branch: a.branch,
		gen:    a.branch.Gen(),
		block:  a.branch.Start,
	}
}

// ArrayIter is a read-only forward cursor over an Array.
type ArrayIter struct {
	doc    *Doc
	branch *store.Branch
	gen    uint64
	block  *store.Block
	offset int
}

// Next returns the next visible element, or false when the iterator is
// exhausted or the array was mutated since the iterator was created.
func (it *ArrayIter) Next() (Value, bool) {
	if it.branch.Gen() != it.gen {
		return nil, false
	}
	for it.block != nil {
		b := it.block
		if b.Deleted || it.offset >= b.Len() {
			it.block = b.Right
			it.offset = 0
			continue
		}
		var v Value
		switch c := b.Content.(type) {
		case store.ContentValues:
			v = c.Values[it.offset]
		case store.ContentBranch:
			v = store.BranchRef{Branch: c.Branch}
		default:
			it.block = b.Right
			it.offset = 0
			continue
		}
		it.offset++
		return v, true
	}
	return nil, false
}
