package store

import "sort"

// DeleteRange is a contiguous tombstoned clock range for one client.
type DeleteRange struct {
	Clock uint64
	Len   uint64
}

func (r DeleteRange) end() uint64 {
	return r.Clock + r.Len
}

// DeleteSet maps each client to its tombstoned clock ranges. Updates carry a
// delete set alongside blocks because a state-vector diff alone cannot
// express tombstoning of content the peer has already seen.
type DeleteSet map[ClientID][]DeleteRange

// Add records one tombstoned range, merging with adjacent or overlapping
// ranges so the set stays normalized.
func (ds DeleteSet) Add(client ClientID, clock, n uint64) {
	if n == 0 {
		return
	}
	ranges := append(ds[client], DeleteRange{Clock: clock, Len: n})
	sort.Slice(ranges, func(i, j int) bool { return ranges[i].Clock < ranges[j].Clock })

	merged := ranges[:1]
	for _, r := range ranges[1:] {
		last := &merged[len(merged)-1]
		if r.Clock <= last.end() {
			if r.end() > last.end() {
				last.Len = r.end() - last.Clock
			}
			continue
		}
		merged = append(merged, r)
	}
	ds[client] = merged
}

// AddAll merges another delete set into this one.
func (ds DeleteSet) AddAll(other DeleteSet) {
	for client, ranges := range other {
		for _, r := range ranges {
			ds.Add(client, r.Clock, r.Len)
		}
	}
}

// Empty reports whether the set contains no ranges.
func (ds DeleteSet) Empty() bool {
	for _, ranges := range ds {
		if len(ranges) > 0 {
			return false
		}
	}
	return true
}

// Clone returns an independent copy.
func (ds DeleteSet) Clone() DeleteSet {
	out := make(DeleteSet, len(ds))
	for client, ranges := range ds {
		cp := make([]DeleteRange, len(ranges))
		copy(cp, ranges)
		out[client] = cp
	}
	return out
}

// Clients returns the client ids present in the set in ascending order.
func (ds DeleteSet) Clients() []ClientID {
	out := make([]ClientID, 0, len(ds))
	for c := range ds {
		if len(ds[c]) > 0 {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// TombstoneBlock marks a single block deleted and records it in the store's
// accumulated delete set. No-op for blocks already tombstoned.
func (s *Store) TombstoneBlock(b *Block) {
	if b.Deleted {
		return
	}
	b.Deleted = true
	s.deleted.Add(b.ID.Client, b.ID.Clock, uint64(b.Len()))
	if b.Parent != nil {
		b.Parent.gen++
	}
}

// ApplyDeleteSet tombstones every locally known block covered by the given
// ranges, splitting blocks at range boundaries. Ranges past the local clock
// horizon are parked in the pending delete set and re-applied once the
// missing blocks arrive. Applying a range twice is a no-op.
func (s *Store) ApplyDeleteSet(ds DeleteSet) {
	for client, ranges := range ds {
		horizon := s.Clock(client)
		for _, r := range ranges {
			known := r
			if known.Clock >= horizon {
				s.pendingDeletes.Add(client, r.Clock, r.Len)
				continue
			}
			if known.end() > horizon {
				s.pendingDeletes.Add(client, horizon, known.end()-horizon)
				known.Len = horizon - known.Clock
			}
			s.tombstoneRange(client, known)
		}
	}
}

// tombstoneRange marks the clock range deleted, splitting boundary blocks.
// The range must lie entirely below the client's clock horizon.
func (s *Store) tombstoneRange(client ClientID, r DeleteRange) {
	b, ok := s.blockStartingAt(ID{Client: client, Clock: r.Clock})
	if !ok {
		return
	}
	yarn := s.clients[client]
	i := s.findIndex(yarn, r.Clock)
	for i < len(yarn) && yarn[i].ID.Clock < r.end() {
		b = yarn[i]
		if b.endClock() > r.end() {
			s.splitAt(yarn, i, r.end())
			yarn = s.clients[client]
			b = yarn[i]
		}
		s.TombstoneBlock(b)
		i++
		yarn = s.clients[client]
	}
}

// retryPendingDeletes re-applies parked delete ranges after new blocks have
// been integrated.
func (s *Store) retryPendingDeletes() {
	if s.pendingDeletes.Empty() {
		return
	}
	parked := s.pendingDeletes
	s.pendingDeletes = make(DeleteSet)
	s.ApplyDeleteSet(parked)
}
