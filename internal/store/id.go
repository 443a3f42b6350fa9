package store

import "fmt"

// ClientID identifies a replica. It must be unique among all clients that
// mutate the same document; a collision between two mutating clients is an
// undetectable correctness hazard, so callers either assign ids from a
// coordinated range or derive them from enough randomness to make collisions
// negligible.
type ClientID uint64

// ID is the globally unique identity of one unit of content: the client that
// produced it and the per-client clock value at which it was produced.
// IDs are immutable once assigned.
type ID struct {
	Client ClientID
	Clock  uint64
}

func (id ID) String() string {
	return fmt.Sprintf("%d@%d", id.Client, id.Clock)
}

// SameID reports whether two optional IDs are equal. Two nil references are
// equal; a nil and a non-nil reference are not.
func SameID(a, b *ID) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// StateVector maps each client to the exclusive upper bound of the clock
// range a replica has observed from that client. A missing entry means
// clock 0: nothing observed.
type StateVector map[ClientID]uint64

// Covers reports whether the vector includes the given ID.
func (sv StateVector) Covers(id ID) bool {
	return id.Clock < sv[id.Client]
}

// Clone returns an independent copy of the vector.
func (sv StateVector) Clone() StateVector {
	out := make(StateVector, len(sv))
	for c, clock := range sv {
		out[c] = clock
	}
	return out
}
