package quilt

import (
	"strings"

	"github.com/quiltdb/quilt/internal/store"
)

// Text is a collaborative text container. Indices and lengths count Unicode
// code points, so an operation boundary can never land inside a character.
type Text struct {
	doc    *Doc
	branch *store.Branch
}

// Len returns the visible text length in code points.
func (t *Text) Len(txn *Txn) int {
	return t.branch.VisibleLen()
}

// String returns the visible text.
func (t *Text) String(txn *Txn) string {
	return sequenceString(t.branch)
}

// Insert places s at the visible index. Index must lie between 0 and
// Len (inclusive).
func (t *Text) Insert(txn *Txn, index int, s string) error {
	if err := txn.ensure(t.doc); err != nil {
		return err
	}
	if index < 0 || index > t.branch.VisibleLen() {
		return outOfBounds(index, t.branch.VisibleLen())
	}
	if s == "" {
		return nil
	}
	left, err := seqFindInsertPos(t.doc.store, t.branch, index)
	if err != nil {
		return err
	}
	t.doc.store.InsertAfter(t.branch, left, store.ContentString{Str: s}, t.doc.clientID)
	return nil
}

// RemoveRange tombstones length code points starting at index.
func (t *Text) RemoveRange(txn *Txn, index, length int) error {
	if err := txn.ensure(t.doc); err != nil {
		return err
	}
	visible := t.branch.VisibleLen()
	if index < 0 || length < 0 || index+length > visible {
		return outOfBounds(index+length, visible)
	}
	if length == 0 {
		return nil
	}
	seqRemoveRange(t.doc.store, t.branch, index, length, txn.deletes)
	return nil
}

// sequenceString concatenates the non-tombstoned text runs of a branch.
func sequenceString(br *store.Branch) string {
	var sb strings.Builder
	for b := br.Start; b != nil; b = b.Right {
		if b.Deleted {
			continue
		}
		if c, ok := b.Content.(store.ContentString); ok {
			sb.WriteString(c.Str)
		}
	}
	return sb.String()
}
