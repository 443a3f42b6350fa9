package store

// InsertAfter creates a local block owned by client at its next clock,
// anchored between left and left's current right neighbour, and integrates
// it into parent's chain. A nil left inserts at the head of the sequence.
func (s *Store) InsertAfter(parent *Branch, left *Block, content Content, client ClientID) *Block {
	b := &Block{
		ID:      ID{Client: client, Clock: s.Clock(client)},
		Parent:  parent,
		Content: content,
	}
	var right *Block
	if left != nil {
		origin := left.LastID()
		b.LeftOrigin = &origin
		right = left.Right
	} else {
		right = parent.Start
	}
	if right != nil {
		ro := right.ID
		b.RightOrigin = &ro
	}
	s.appendYarn(b)
	s.integrateSequence(b)
	return b
}

// SetMapKey creates a local register write for key owned by client.
func (s *Store) SetMapKey(parent *Branch, key string, content Content, client ClientID) *Block {
	b := &Block{
		ID:      ID{Client: client, Clock: s.Clock(client)},
		Parent:  parent,
		Key:     key,
		Content: content,
	}
	s.appendYarn(b)
	s.integrateMap(b)
	return b
}

// integrateSequence links b into its parent's chain at the position
// determined by its origins.
//
// The scan walks the chain strictly between b's origins looking at blocks
// that are candidates for the same slot. A candidate sharing b's left origin
// is concurrent with b: it keeps the earlier slot when its client id is
// larger, otherwise b lands before it. A candidate whose own origin lies
// further left was inserted under an anchor b has already passed; it is
// stepped over only if that anchor was passed without being claimed,
// otherwise the scan resolves. This places every block identically on every
// replica and never interleaves two clients' concurrent runs.
func (s *Store) integrateSequence(b *Block) {
	parent := b.Parent

	var left *Block
	if b.LeftOrigin != nil {
		left, _ = s.blockEndingAt(*b.LeftOrigin)
	}
	var right *Block
	if b.RightOrigin != nil {
		right, _ = s.blockStartingAt(*b.RightOrigin)
	}

	scanStart := parent.Start
	if left != nil {
		scanStart = left.Right
	}

	conflicting := make(map[*Block]bool)
	seen := make(map[*Block]bool)
	for o := scanStart; o != nil && o != right; o = o.Right {
		seen[o] = true
		conflicting[o] = true
		if SameID(o.LeftOrigin, b.LeftOrigin) {
			if o.ID.Client > b.ID.Client {
				// The larger client id claims the earlier slot.
				left = o
				clear(conflicting)
			} else if SameID(o.RightOrigin, b.RightOrigin) {
				break
			}
		} else if o.LeftOrigin != nil {
			oOrigin, ok := s.Find(*o.LeftOrigin)
			if ok && seen[oOrigin] {
				if !conflicting[oOrigin] {
					left = o
					clear(conflicting)
				}
			} else {
				break
			}
		} else {
			break
		}
	}

	b.Left = left
	if left != nil {
		b.Right = left.Right
		left.Right = b
	} else {
		b.Right = parent.Start
		parent.Start = b
	}
	if b.Right != nil {
		b.Right.Left = b
	}
	s.adoptNestedBranch(b)
	parent.gen++
}

// integrateMap appends a register write to its key's chain. Position within
// the chain is irrelevant: the visible value is recomputed from (clock,
// client) on every read.
func (s *Store) integrateMap(b *Block) {
	parent := b.Parent
	parent.Entries[b.Key] = append(parent.Entries[b.Key], b)
	s.adoptNestedBranch(b)
	parent.gen++
}

// adoptNestedBranch wires up the back-reference of a nested container
// carried by the block, making parent navigation possible.
func (s *Store) adoptNestedBranch(b *Block) {
	if cb, ok := b.Content.(ContentBranch); ok {
		cb.Branch.Item = b
	}
}
