package store

import "sort"

// Store owns every block of one document replica: the root container
// registry, the per-client yarns, the accumulated delete set, and the
// pending queues for blocks whose causal predecessors have not arrived.
type Store struct {
	roots   map[string]*Branch
	clients map[ClientID][]*Block

	// deleted records every tombstoned clock range ever applied, so a full
	// snapshot diff can describe deletions of content a peer already holds.
	deleted DeleteSet

	// pendingBlocks holds remote blocks waiting for a missing dependency.
	// pendingDeletes holds delete ranges past the local clock horizon.
	pendingBlocks  []*Block
	pendingDeletes DeleteSet
}

// New creates an empty store.
func New() *Store {
	return &Store{
		roots:          make(map[string]*Branch),
		clients:        make(map[ClientID][]*Block),
		deleted:        make(DeleteSet),
		pendingDeletes: make(DeleteSet),
	}
}

// Root returns the named root container, creating it with the given kind on
// first access. The same name always yields the same branch; the kind only
// applies on creation.
func (s *Store) Root(name string, kind BranchKind) *Branch {
	if br, ok := s.roots[name]; ok {
		return br
	}
	br := newBranch(kind)
	br.Name = name
	if kind == KindXmlElement {
		br.Tag = name
	}
	s.roots[name] = br
	return br
}

// RootNames returns the registered root names in sorted order.
func (s *Store) RootNames() []string {
	names := make([]string, 0, len(s.roots))
	for name := range s.roots {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Clock returns the next unused clock value for a client: the exclusive
// upper bound of everything integrated from it so far.
func (s *Store) Clock(client ClientID) uint64 {
	yarn := s.clients[client]
	if len(yarn) == 0 {
		return 0
	}
	return yarn[len(yarn)-1].endClock()
}

// StateVector summarizes the store as a per-client exclusive clock bound.
func (s *Store) StateVector() StateVector {
	sv := make(StateVector, len(s.clients))
	for client, yarn := range s.clients {
		if len(yarn) > 0 {
			sv[client] = yarn[len(yarn)-1].endClock()
		}
	}
	return sv
}

// PendingBlocks returns the number of remote blocks parked on a missing
// causal dependency.
func (s *Store) PendingBlocks() int {
	return len(s.pendingBlocks)
}

// DeletedSet returns the accumulated tombstone ranges.
func (s *Store) DeletedSet() DeleteSet {
	return s.deleted
}

// Find returns the block containing the given ID, or false if that clock
// has not been integrated locally.
func (s *Store) Find(id ID) (*Block, bool) {
	yarn := s.clients[id.Client]
	i := s.findIndex(yarn, id.Clock)
	if i < 0 {
		return nil, false
	}
	return yarn[i], true
}

// findIndex locates the yarn index of the block covering clock, or -1.
func (s *Store) findIndex(yarn []*Block, clock uint64) int {
	i := sort.Search(len(yarn), func(i int) bool {
		return yarn[i].endClock() > clock
	})
	if i == len(yarn) || !yarn[i].covers(clock) {
		return -1
	}
	return i
}

// splitAt divides the block at yarn index i so that the right half begins
// at the given clock, relinks chain neighbours, and returns the right half.
// The left half keeps its origins; the right half's left origin becomes the
// last ID of the left half, keeping each half consistent with its slice of
// the original range.
func (s *Store) splitAt(yarn []*Block, i int, clock uint64) *Block {
	b := yarn[i]
	offset := int(clock - b.ID.Clock)
	leftContent, rightContent := b.Content.Split(offset)

	origin := b.LastIDAt(offset - 1)
	right := &Block{
		ID:          ID{Client: b.ID.Client, Clock: clock},
		LeftOrigin:  &origin,
		RightOrigin: b.RightOrigin,
		Left:        b,
		Right:       b.Right,
		Parent:      b.Parent,
		Key:         b.Key,
		Content:     rightContent,
		Deleted:     b.Deleted,
	}
	b.Content = leftContent
	if right.Right != nil {
		right.Right.Left = right
	}
	b.Right = right

	updated := append(yarn, nil)
	copy(updated[i+2:], updated[i+1:])
	updated[i+1] = right
	s.clients[b.ID.Client] = updated

	if b.Key != "" && b.Parent != nil {
		// Register chains track blocks individually; keep the new half.
		b.Parent.Entries[b.Key] = append(b.Parent.Entries[b.Key], right)
	}
	return right
}

// LastIDAt returns the ID at a unit offset inside the block.
func (b *Block) LastIDAt(offset int) ID {
	return ID{Client: b.ID.Client, Clock: b.ID.Clock + uint64(offset)}
}

// SplitVisible splits the block at a unit offset and returns both halves.
// Used when a local operation boundary lands mid-block.
func (s *Store) SplitVisible(b *Block, offset int) (*Block, *Block) {
	yarn := s.clients[b.ID.Client]
	i := s.findIndex(yarn, b.ID.Clock)
	right := s.splitAt(yarn, i, b.ID.Clock+uint64(offset))
	return b, right
}

// blockStartingAt returns the block whose first clock unit is exactly id,
// splitting a covering block when the boundary falls inside it.
func (s *Store) blockStartingAt(id ID) (*Block, bool) {
	yarn := s.clients[id.Client]
	i := s.findIndex(yarn, id.Clock)
	if i < 0 {
		return nil, false
	}
	b := yarn[i]
	if b.ID.Clock == id.Clock {
		return b, true
	}
	return s.splitAt(yarn, i, id.Clock), true
}

// blockEndingAt returns the block whose last clock unit is exactly id,
// splitting a covering block when the boundary falls inside it.
func (s *Store) blockEndingAt(id ID) (*Block, bool) {
	yarn := s.clients[id.Client]
	i := s.findIndex(yarn, id.Clock)
	if i < 0 {
		return nil, false
	}
	b := yarn[i]
	if b.LastID().Clock == id.Clock {
		return b, true
	}
	s.splitAt(yarn, i, id.Clock+1)
	return s.clients[id.Client][i], true
}

// appendYarn adds a freshly integrated block to its client's yarn. The
// block's clock must equal the client's current clock bound.
func (s *Store) appendYarn(b *Block) {
	s.clients[b.ID.Client] = append(s.clients[b.ID.Client], b)
}

// yarn returns the clock-ordered blocks of one client.
func (s *Store) yarn(client ClientID) []*Block {
	return s.clients[client]
}

// Clients returns all known client ids in ascending order.
func (s *Store) Clients() []ClientID {
	out := make([]ClientID, 0, len(s.clients))
	for c := range s.clients {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
