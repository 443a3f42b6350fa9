package store

import "sort"

// Squash is the commit-time compaction pass. It walks every client's yarn
// from the blocks touched since the given vector and merges adjacent pairs
// that are indistinguishable from a never-split block: same client,
// contiguous clocks, chain-adjacent, matching origins, neither tombstoned,
// and payloads of the same kind. Squashing is an optimization only; it
// never changes visible content or the position of any surviving ID.
func (s *Store) Squash(since StateVector) {
	for _, client := range s.Clients() {
		yarn := s.clients[client]
		from := since[client]
		i := sort.Search(len(yarn), func(i int) bool {
			return yarn[i].endClock() > from
		})
		if i > 0 {
			// The first touched block may merge into its predecessor.
			i--
		}
		for i < len(s.clients[client])-1 {
			if !s.mergePair(client, i) {
				i++
			}
		}
	}
}

// mergePair merges yarn[i+1] into yarn[i] when the pair qualifies.
func (s *Store) mergePair(client ClientID, i int) bool {
	yarn := s.clients[client]
	a, b := yarn[i], yarn[i+1]
	if a.Deleted || b.Deleted {
		return false
	}
	if a.Key != "" || b.Key != "" {
		// Register writes stay distinct: each write's identity feeds the
		// last-writer-wins comparison.
		return false
	}
	if a.Parent != b.Parent || a.Right != b {
		return false
	}
	if a.endClock() != b.ID.Clock {
		return false
	}
	last := a.LastID()
	if b.LeftOrigin == nil || *b.LeftOrigin != last {
		return false
	}
	if !SameID(a.RightOrigin, b.RightOrigin) {
		return false
	}
	merged, ok := mergeContent(a.Content, b.Content)
	if !ok {
		return false
	}

	a.Content = merged
	a.Right = b.Right
	if b.Right != nil {
		b.Right.Left = a
	}
	s.clients[client] = append(yarn[:i+1], yarn[i+2:]...)
	a.Parent.gen++
	return true
}
