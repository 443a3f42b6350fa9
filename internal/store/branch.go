package store

// BranchKind discriminates the shared type a container implements.
type BranchKind byte

const (
	KindText BranchKind = iota + 1
	KindArray
	KindMap
	KindXmlElement
	KindXmlText
)

func (k BranchKind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindArray:
		return "array"
	case KindMap:
		return "map"
	case KindXmlElement:
		return "xml-element"
	case KindXmlText:
		return "xml-text"
	}
	return "unknown"
}

// Branch is one shared-type container instance. Root branches are named and
// registered on the store; nested branches are anonymous and reachable only
// through the block that created them.
type Branch struct {
	Kind BranchKind

	// Name is the root registry key; empty for nested branches.
	Name string

	// Tag is the element tag for XmlElement branches. Root XML elements use
	// their registry name as the tag.
	Tag string

	// Start is the leftmost block of the sequence chain (Text, Array, XML
	// children). Nil for empty sequences and pure maps.
	Start *Block

	// Entries holds every register write per map key, in integration order.
	// The visible value of a key is the non-deleted entry with the highest
	// (clock, client) pair. Used by Map and by XML attributes.
	Entries map[string][]*Block

	// Item is the block whose content created this branch; nil for roots.
	// Parent navigation derives from Item.Parent.
	Item *Block

	// gen increments on every mutation of the branch. Iterators capture it
	// at creation and refuse to advance once it changes.
	gen uint64
}

func newBranch(kind BranchKind) *Branch {
	return &Branch{Kind: kind, Entries: make(map[string][]*Block)}
}

// Gen returns the branch's current mutation generation.
func (br *Branch) Gen() uint64 {
	return br.gen
}

// VisibleLen returns the sequence length with tombstoned blocks skipped.
func (br *Branch) VisibleLen() int {
	n := 0
	for b := br.Start; b != nil; b = b.Right {
		if !b.Deleted {
			n += b.Len()
		}
	}
	return n
}

// MapEntry returns the winning write block for a key, or nil if the key is
// absent or tombstoned. Concurrent writes resolve last-writer-wins: the
// highest clock wins and a clock tie goes to the higher client id.
func (br *Branch) MapEntry(key string) *Block {
	var winner *Block
	for _, b := range br.Entries[key] {
		if b.Deleted {
			continue
		}
		if winner == nil || lwwLess(winner, b) {
			winner = b
		}
	}
	return winner
}

// MapLen returns the number of keys with a visible value.
func (br *Branch) MapLen() int {
	n := 0
	for key := range br.Entries {
		if br.MapEntry(key) != nil {
			n++
		}
	}
	return n
}

// MapValue returns the visible value for a key.
func (br *Branch) MapValue(key string) (Value, bool) {
	b := br.MapEntry(key)
	if b == nil {
		return nil, false
	}
	return blockValue(b), true
}

// lwwLess reports whether a loses to b under last-writer-wins ordering.
func lwwLess(a, b *Block) bool {
	if a.ID.Clock != b.ID.Clock {
		return a.ID.Clock < b.ID.Clock
	}
	return a.ID.Client < b.ID.Client
}

// blockValue extracts the single value carried by a register write block.
func blockValue(b *Block) Value {
	switch c := b.Content.(type) {
	case ContentValues:
		return c.Values[0]
	case ContentBranch:
		return BranchRef{Branch: c.Branch}
	case ContentString:
		return String(c.Str)
	}
	return nil
}

// Parent returns the containing branch, or nil for a root.
func (br *Branch) Parent() *Branch {
	if br.Item == nil {
		return nil
	}
	return br.Item.Parent
}
