package quilt

import "github.com/quiltdb/quilt/internal/store"

// Map is a collaborative string-keyed register map. Concurrent writes to
// the same key resolve last-writer-wins: the higher clock wins and a clock
// tie goes to the higher client id, identically on every replica.
type Map struct {
	doc    *Doc
	branch *store.Branch
}

// Len returns the number of keys with a visible value.
func (m *Map) Len(txn *Txn) int {
	return m.branch.MapLen()
}

// Get returns the visible value for key.
func (m *Map) Get(txn *Txn, key string) (Value, bool) {
	return m.branch.MapValue(key)
}

// Insert writes a value under key, superseding any visible value. Prelim
// values materialize nested containers.
func (m *Map) Insert(txn *Txn, key string, v Value) error {
	if err := txn.ensure(m.doc); err != nil {
		return err
	}
	return setMapKey(txn, m.branch, key, v)
}

// Remove tombstones the key's register. Reports whether a visible value
// existed. Removing is not destructive history-wise: a concurrent write on
// another replica still converges to the same winner everywhere.
func (m *Map) Remove(txn *Txn, key string) (bool, error) {
	if err := txn.ensure(m.doc); err != nil {
		return false, err
	}
	return removeMapKey(m.doc.store, m.branch, key, txn.deletes), nil
}

// RemoveAll tombstones every visible key.
func (m *Map) RemoveAll(txn *Txn) error {
	if err := txn.ensure(m.doc); err != nil {
		return err
	}
	for key := range m.branch.Entries {
		removeMapKey(m.doc.store, m.branch, key, txn.deletes)
	}
	return nil
}

// Iter returns an unordered iterator over visible entries. Mutating the map
// invalidates it, after which Next reports done.
func (m *Map) Iter(txn *Txn) *MapIter {
	keys := make([]string, 0, len(m.branch.Entries))
	for key := range m.branch.Entries {
		if m.branch.MapEntry(key) != nil {
			keys = append(keys, key)
		}
	}
	return &MapIter{branch: m.branch, gen: m.branch.Gen(), keys: keys}
}

// MapIter is a read-only cursor over a Map's visible entries. Iteration
// order is unspecified.
type MapIter struct {
	branch *store.Branch
	gen    uint64
	keys   []string
	pos    int
}

// Next returns the next entry, or false when exhausted or invalidated.
func (it *MapIter) Next() (string, Value, bool) {
	if it.branch.Gen() != it.gen {
		return "", nil, false
	}
	for it.pos < len(it.keys) {
		key := it.keys[it.pos]
		it.pos++
		if v, ok := it.branch.MapValue(key); ok {
			return key, v, true
		}
	}
	return "", nil, false
}

// removeMapKey tombstones every live entry of a key chain.
func removeMapKey(s *store.Store, br *store.Branch, key string, ds store.DeleteSet) bool {
	found := false
	for _, b := range br.Entries[key] {
		if b.Deleted {
			continue
		}
		found = true
		ds.Add(b.ID.Client, b.ID.Clock, uint64(b.Len()))
		s.TombstoneBlock(b)
	}
	return found
}
