package quilt

import "github.com/quiltdb/quilt/internal/store"

// seqFindInsertPos returns the block after which an insertion at the given
// visible index lands, splitting a block when the boundary falls inside it.
// A nil result means the head of the sequence. Insertions at a boundary
// shared with tombstones land before the tombstones, so a concurrent insert
// anchored to deleted content keeps its position on every replica.
func seqFindInsertPos(s *store.Store, br *store.Branch, index int) (*store.Block, error) {
	if index < 0 {
		return nil, outOfBounds(index, br.VisibleLen())
	}
	remaining := index
	var left *store.Block
	for b := br.Start; b != nil; b = b.Right {
		if b.Deleted {
			if remaining == 0 {
				return left, nil
			}
			continue
		}
		n := b.Len()
		if remaining < n {
			if remaining == 0 {
				return left, nil
			}
			l, _ := s.SplitVisible(b, remaining)
			return l, nil
		}
		remaining -= n
		left = b
	}
	if remaining > 0 {
		return nil, outOfBounds(index, br.VisibleLen())
	}
	return left, nil
}

// seqRemoveRange tombstones the visible range [index, index+length),
// splitting boundary blocks. Bounds must be validated by the caller; the
// tombstoned ranges are recorded in ds for the transaction's update.
func seqRemoveRange(s *store.Store, br *store.Branch, index, length int, ds store.DeleteSet) {
	remaining := index
	b := br.Start
	for b != nil && length > 0 {
		if b.Deleted {
			b = b.Right
			continue
		}
		n := b.Len()
		if remaining >= n {
			remaining -= n
			b = b.Right
			continue
		}
		if remaining > 0 {
			_, b = s.SplitVisible(b, remaining)
			remaining = 0
		}
		if b.Len() > length {
			b, _ = s.SplitVisible(b, length)
		}
		length -= b.Len()
		ds.Add(b.ID.Client, b.ID.Clock, uint64(b.Len()))
		s.TombstoneBlock(b)
		b = b.Right
	}
}

// seqValueAt returns the value at a visible unit index of a sequence of
// generic values or nested containers.
func seqValueAt(br *store.Branch, index int) (Value, bool) {
	if index < 0 {
		return nil, false
	}
	remaining := index
	for b := br.Start; b != nil; b = b.Right {
		if b.Deleted {
			continue
		}
		n := b.Len()
		if remaining >= n {
			remaining -= n
			continue
		}
		switch c := b.Content.(type) {
		case store.ContentValues:
			return c.Values[remaining], true
		case store.ContentBranch:
			return store.BranchRef{Branch: c.Branch}, true
		case store.ContentString:
			// Sequences of values never hold raw string runs.
			return nil, false
		}
	}
	return nil, false
}

// insertValue places one input value after left, materializing Prelim
// variants into nested containers, and returns the created block.
func insertValue(t *Txn, br *store.Branch, left *store.Block, v Value) (*store.Block, error) {
	s := t.doc.store
	client := t.doc.clientID
	switch pv := v.(type) {
	case store.PrelimText:
		nested := store.NewNested(store.KindText, "")
		b := s.InsertAfter(br, left, store.ContentBranch{Branch: nested}, client)
		if pv != "" {
			s.InsertAfter(nested, nil, store.ContentString{Str: string(pv)}, client)
		}
		return b, nil
	case store.PrelimXmlText:
		nested := store.NewNested(store.KindXmlText, "")
		b := s.InsertAfter(br, left, store.ContentBranch{Branch: nested}, client)
		if pv != "" {
			s.InsertAfter(nested, nil, store.ContentString{Str: string(pv)}, client)
		}
		return b, nil
	case store.PrelimXmlElement:
		nested := store.NewNested(store.KindXmlElement, string(pv))
		return s.InsertAfter(br, left, store.ContentBranch{Branch: nested}, client), nil
	case store.PrelimArray:
		nested := store.NewNested(store.KindArray, "")
		b := s.InsertAfter(br, left, store.ContentBranch{Branch: nested}, client)
		var innerLeft *store.Block
		for _, item := range pv {
			inner, err := insertValue(t, nested, innerLeft, item)
			if err != nil {
				return nil, err
			}
			innerLeft = inner
		}
		return b, nil
	case store.PrelimMap:
		nested := store.NewNested(store.KindMap, "")
		b := s.InsertAfter(br, left, store.ContentBranch{Branch: nested}, client)
		for key, item := range pv {
			if err := setMapKey(t, nested, key, item); err != nil {
				return nil, err
			}
		}
		return b, nil
	case store.BranchRef:
		return nil, ErrUnsupportedValue
	default:
		return s.InsertAfter(br, left, store.ContentValues{Values: []Value{v}}, client), nil
	}
}

// setMapKey writes one register value, materializing Prelim variants.
func setMapKey(t *Txn, br *store.Branch, key string, v Value) error {
	s := t.doc.store
	client := t.doc.clientID
	switch pv := v.(type) {
	case store.PrelimText:
		nested := store.NewNested(store.KindText, "")
		s.SetMapKey(br, key, store.ContentBranch{Branch: nested}, client)
		if pv != "" {
			s.InsertAfter(nested, nil, store.ContentString{Str: string(pv)}, client)
		}
	case store.PrelimXmlText:
		nested := store.NewNested(store.KindXmlText, "")
		s.SetMapKey(br, key, store.ContentBranch{Branch: nested}, client)
		if pv != "" {
			s.InsertAfter(nested, nil, store.ContentString{Str: string(pv)}, client)
		}
	case store.PrelimXmlElement:
		nested := store.NewNested(store.KindXmlElement, string(pv))
		s.SetMapKey(br, key, store.ContentBranch{Branch: nested}, client)
	case store.PrelimArray:
		nested := store.NewNested(store.KindArray, "")
		s.SetMapKey(br, key, store.ContentBranch{Branch: nested}, client)
		var left *store.Block
		for _, item := range pv {
			inner, err := insertValue(t, nested, left, item)
			if err != nil {
				return err
			}
			left = inner
		}
	case store.PrelimMap:
		nested := store.NewNested(store.KindMap, "")
		s.SetMapKey(br, key, store.ContentBranch{Branch: nested}, client)
		for k, item := range pv {
			if err := setMapKey(t, nested, k, item); err != nil {
				return err
			}
		}
	case store.BranchRef:
		return ErrUnsupportedValue
	default:
		s.SetMapKey(br, key, store.ContentValues{Values: []Value{v}}, client)
	}
	return nil
}
