package store

// Block is a contiguous run of content created by one client under one
// contiguous clock range.
//
// LeftOrigin and RightOrigin are the IDs of the immediate neighbours at the
// moment of insertion. They are assigned once and never change, including
// across splits: each half of a split block keeps origin references
// consistent with its half of the original clock range. All conflict
// resolution derives from these two fields plus the block's own ID.
//
// Left and Right are the current chain links inside the owning container.
// Unlike origins they do change as concurrent blocks integrate between
// neighbours.
type Block struct {
	ID          ID
	LeftOrigin  *ID
	RightOrigin *ID

	Left  *Block
	Right *Block

	// Parent is the owning container, resolved locally. Blocks decoded from
	// a remote update carry ParentName/ParentKind or ParentID instead until
	// integration resolves them.
	Parent *Branch

	// ParentName names a root container (with ParentKind) when the block's
	// parent is a document root. ParentID identifies the block that created
	// a nested parent container. Exactly one form is set on a decoded block.
	ParentName string
	ParentKind BranchKind
	ParentID   *ID

	// Key is the map key for register writes; empty for sequence blocks.
	Key string

	Content Content
	Deleted bool
}

// Len returns the number of clock units the block spans.
func (b *Block) Len() int {
	return b.Content.Len()
}

// LastID returns the ID of the final clock unit in the block.
func (b *Block) LastID() ID {
	return ID{Client: b.ID.Client, Clock: b.ID.Clock + uint64(b.Len()) - 1}
}

// endClock returns the exclusive upper clock bound of the block.
func (b *Block) endClock() uint64 {
	return b.ID.Clock + uint64(b.Len())
}

// covers reports whether the block's clock range contains the given clock.
func (b *Block) covers(clock uint64) bool {
	return clock >= b.ID.Clock && clock < b.endClock()
}
