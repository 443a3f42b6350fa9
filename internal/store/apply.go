package store

type integrateResult int

const (
	integrated integrateResult = iota
	duplicate
	missingDep
)

// ApplyBlocks integrates decoded remote blocks and a delete set into the
// store. Blocks are retried until no further progress is possible; anything
// still blocked on a missing causal predecessor stays parked in the pending
// queue until a later update supplies it. Re-applying blocks the store
// already holds is a no-op, which makes update application idempotent.
func (s *Store) ApplyBlocks(blocks []*Block, ds DeleteSet) {
	queue := make([]*Block, 0, len(s.pendingBlocks)+len(blocks))
	queue = append(queue, s.pendingBlocks...)
	queue = append(queue, blocks...)
	s.pendingBlocks = nil

	for len(queue) > 0 {
		progress := false
		parked := queue[:0:0]
		for _, b := range queue {
			switch s.tryIntegrate(b) {
			case integrated:
				progress = true
			case missingDep:
				parked = append(parked, b)
			case duplicate:
				// Already known; drop.
			}
		}
		queue = parked
		if !progress {
			break
		}
	}
	s.pendingBlocks = queue

	if ds != nil {
		s.ApplyDeleteSet(ds)
	}
	s.retryPendingDeletes()
}

// tryIntegrate attempts to place one remote block. It fails soft with
// missingDep when the block's clock does not extend its client's yarn yet,
// or when an origin or parent has not been integrated.
func (s *Store) tryIntegrate(b *Block) integrateResult {
	local := s.Clock(b.ID.Client)
	if b.ID.Clock > local {
		return missingDep
	}
	if b.endClock() <= local {
		return duplicate
	}
	if b.ID.Clock < local {
		// The prefix of this block is already integrated (a previous update
		// overlapped). Trim to the unseen tail.
		offset := int(local - b.ID.Clock)
		_, tail := b.Content.Split(offset)
		origin := b.LastIDAt(offset - 1)
		b.LeftOrigin = &origin
		b.ID.Clock = local
		b.Content = tail
	}

	if b.LeftOrigin != nil && !s.knows(*b.LeftOrigin) {
		return missingDep
	}
	if b.RightOrigin != nil && !s.knows(*b.RightOrigin) {
		return missingDep
	}

	// Parent and chain links are per-store state. A block object integrated
	// into another store still carries that store's links; splicing them in
	// here would corrupt the chain, so start from the wire state.
	b.Parent = nil
	b.Left, b.Right = nil, nil

	parent, ok := s.resolveParent(b)
	if !ok {
		return missingDep
	}
	b.Parent = parent

	s.appendYarn(b)
	if b.Key != "" {
		s.integrateMap(b)
	} else {
		s.integrateSequence(b)
	}
	return integrated
}

func (s *Store) knows(id ID) bool {
	_, ok := s.Find(id)
	return ok
}

// resolveParent maps a decoded block's parent reference to a live branch.
// Root references always resolve (creating the root if needed); nested
// references resolve once the block that created the nested container has
// been integrated.
func (s *Store) resolveParent(b *Block) (*Branch, bool) {
	if b.ParentID == nil {
		return s.Root(b.ParentName, b.ParentKind), true
	}
	owner, ok := s.Find(*b.ParentID)
	if !ok {
		return nil, false
	}
	cb, ok := owner.Content.(ContentBranch)
	if !ok {
		return nil, false
	}
	return cb.Branch, true
}
