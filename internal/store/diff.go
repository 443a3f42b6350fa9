package store

import "sort"

// Diff returns the blocks whose IDs are not covered by the peer's state
// vector, in per-client clock order, together with the full accumulated
// delete set. A nil or empty peer vector yields a full snapshot. Blocks
// straddling a vector boundary are sliced without mutating the store.
func (s *Store) Diff(peer StateVector) ([]*Block, DeleteSet) {
	var blocks []*Block
	for _, client := range s.Clients() {
		from := peer[client]
		yarn := s.clients[client]
		if len(yarn) == 0 || yarn[len(yarn)-1].endClock() <= from {
			continue
		}
		i := sort.Search(len(yarn), func(i int) bool {
			return yarn[i].endClock() > from
		})
		for ; i < len(yarn); i++ {
			b := yarn[i]
			if b.ID.Clock < from {
				blocks = append(blocks, blockTail(b, from))
			} else {
				blocks = append(blocks, b)
			}
		}
	}
	return blocks, s.deleted.Clone()
}

// blockTail copies the portion of b at clocks >= from. The copy's left
// origin points at the preceding unit of the original run, exactly as if
// the block had been split there.
func blockTail(b *Block, from uint64) *Block {
	offset := int(from - b.ID.Clock)
	_, right := b.Content.Split(offset)
	origin := b.LastIDAt(offset - 1)
	return &Block{
		ID:          ID{Client: b.ID.Client, Clock: from},
		LeftOrigin:  &origin,
		RightOrigin: b.RightOrigin,
		Parent:      b.Parent,
		Key:         b.Key,
		Content:     right,
		Deleted:     b.Deleted,
	}
}
