package codec

import (
	"encoding/binary"
	"fmt"
	"math"
	"sort"

	"github.com/quiltdb/quilt/internal/store"
)

// formatVersion is the first byte of every payload.
const formatVersion = 1

// Content discriminators.
const (
	contentString byte = 1
	contentValues byte = 2
	contentBranch byte = 3
)

// Value discriminators.
const (
	valueNull      byte = 0
	valueUndefined byte = 1
	valueBool      byte = 2
	valueFloat64   byte = 3
	valueInt64     byte = 4
	valueString    byte = 5
	valueBytes     byte = 6
	valueList      byte = 7
	valueMap       byte = 8
)

// Block flag bits.
const (
	flagLeftOrigin   byte = 1
	flagRightOrigin  byte = 2
	flagNestedParent byte = 4
	flagKey          byte = 8
)

type writer struct {
	buf []byte
}

func (w *writer) uvarint(v uint64) {
	w.buf = binary.AppendUvarint(w.buf, v)
}

func (w *writer) varint(v int64) {
	w.buf = binary.AppendVarint(w.buf, v)
}

func (w *writer) byte(b byte) {
	w.buf = append(w.buf, b)
}

func (w *writer) bytes(b []byte) {
	w.uvarint(uint64(len(b)))
	w.buf = append(w.buf, b...)
}

func (w *writer) string(s string) {
	w.uvarint(uint64(len(s)))
	w.buf = append(w.buf, s...)
}

// EncodeStateVector serializes a state vector with clients in ascending
// order so equal vectors always produce equal bytes.
func EncodeStateVector(sv store.StateVector) []byte {
	clients := make([]store.ClientID, 0, len(sv))
	for c := range sv {
		if sv[c] > 0 {
			clients = append(clients, c)
		}
	}
	sort.Slice(clients, func(i, j int) bool { return clients[i] < clients[j] })

	w := &writer{}
	w.byte(formatVersion)
	w.uvarint(uint64(len(clients)))
	for _, c := range clients {
		w.uvarint(uint64(c))
		w.uvarint(sv[c])
	}
	return w.buf
}

// EncodeUpdate serializes a set of blocks and a delete set. Every client id
// mentioned anywhere in the payload is listed once in a leading table;
// blocks, origins, parents and delete ranges reference table indices.
func EncodeUpdate(blocks []*store.Block, ds store.DeleteSet) ([]byte, error) {
	table := clientTable(blocks, ds)

	byOwner := make(map[store.ClientID][]*store.Block)
	for _, b := range blocks {
		byOwner[b.ID.Client] = append(byOwner[b.ID.Client], b)
	}
	owners := make([]store.ClientID, 0, len(byOwner))
	for c := range byOwner {
		owners = append(owners, c)
	}
	sort.Slice(owners, func(i, j int) bool { return owners[i] < owners[j] })

	w := &writer{}
	w.byte(formatVersion)

	w.uvarint(uint64(len(table.ids)))
	for _, c := range table.ids {
		w.uvarint(uint64(c))
	}

	w.uvarint(uint64(len(owners)))
	for _, owner := range owners {
		group := byOwner[owner]
		sort.Slice(group, func(i, j int) bool {
			return group[i].ID.Clock < group[j].ID.Clock
		})
		w.uvarint(table.index(owner))
		w.uvarint(uint64(len(group)))
		for _, b := range group {
			if err := encodeBlock(w, table, b); err != nil {
				return nil, err
			}
		}
	}

	dsClients := ds.Clients()
	w.uvarint(uint64(len(dsClients)))
	for _, c := range dsClients {
		ranges := ds[c]
		w.uvarint(table.index(c))
		w.uvarint(uint64(len(ranges)))
		for _, r := range ranges {
			w.uvarint(r.Clock)
			w.uvarint(r.Len)
		}
	}
	return w.buf, nil
}

func encodeBlock(w *writer, table *idTable, b *store.Block) error {
	w.uvarint(b.ID.Clock)

	var flags byte
	if b.LeftOrigin != nil {
		flags |= flagLeftOrigin
	}
	if b.RightOrigin != nil {
		flags |= flagRightOrigin
	}
	parentName, parentKind, parentID := parentRef(b)
	if parentID != nil {
		flags |= flagNestedParent
	}
	if b.Key != "" {
		flags |= flagKey
	}
	w.byte(flags)

	if b.LeftOrigin != nil {
		w.uvarint(table.index(b.LeftOrigin.Client))
		w.uvarint(b.LeftOrigin.Clock)
	}
	if b.RightOrigin != nil {
		w.uvarint(table.index(b.RightOrigin.Client))
		w.uvarint(b.RightOrigin.Clock)
	}
	if parentID != nil {
		w.uvarint(table.index(parentID.Client))
		w.uvarint(parentID.Clock)
	} else {
		w.byte(byte(parentKind))
		w.string(parentName)
	}
	if b.Key != "" {
		w.string(b.Key)
	}
	return encodeContent(w, b.Content)
}

// parentRef derives the encodable parent reference from a block, whether
// its parent is resolved (blocks straight out of a store) or still symbolic
// (blocks that were decoded and never integrated).
func parentRef(b *store.Block) (name string, kind store.BranchKind, id *store.ID) {
	if b.Parent == nil {
		return b.ParentName, b.ParentKind, b.ParentID
	}
	if b.Parent.Item == nil {
		return b.Parent.Name, b.Parent.Kind, nil
	}
	owner := b.Parent.Item.ID
	return "", 0, &owner
}

func encodeContent(w *writer, c store.Content) error {
	switch content := c.(type) {
	case store.ContentString:
		w.byte(contentString)
		w.string(content.Str)
	case store.ContentValues:
		w.byte(contentValues)
		w.uvarint(uint64(len(content.Values)))
		for _, v := range content.Values {
			if err := encodeValue(w, v); err != nil {
				return err
			}
		}
	case store.ContentBranch:
		w.byte(contentBranch)
		w.byte(byte(content.Branch.Kind))
		if content.Branch.Kind == store.KindXmlElement {
			w.string(content.Branch.Tag)
		}
	default:
		return fmt.Errorf("codec: unencodable content %T", c)
	}
	return nil
}

func encodeValue(w *writer, v store.Value) error {
	switch val := v.(type) {
	case store.Null:
		w.byte(valueNull)
	case store.Undefined:
		w.byte(valueUndefined)
	case store.Bool:
		w.byte(valueBool)
		if val {
			w.byte(1)
		} else {
			w.byte(0)
		}
	case store.Float64:
		w.byte(valueFloat64)
		var raw [8]byte
		binary.BigEndian.PutUint64(raw[:], math.Float64bits(float64(val)))
		w.buf = append(w.buf, raw[:]...)
	case store.Int64:
		w.byte(valueInt64)
		w.varint(int64(val))
	case store.String:
		w.byte(valueString)
		w.string(string(val))
	case store.Bytes:
		w.byte(valueBytes)
		w.bytes(val)
	case store.List:
		w.byte(valueList)
		w.uvarint(uint64(len(val)))
		for _, item := range val {
			if err := encodeValue(w, item); err != nil {
				return err
			}
		}
	case store.ValueMap:
		w.byte(valueMap)
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		w.uvarint(uint64(len(keys)))
		for _, k := range keys {
			w.string(k)
			if err := encodeValue(w, val[k]); err != nil {
				return err
			}
		}
	default:
		// BranchRef and Prelim variants never travel inside plain values:
		// nested containers are ContentBranch payloads.
		return fmt.Errorf("codec: unencodable value %T", v)
	}
	return nil
}

// idTable remaps client ids to dense indices for one payload.
type idTable struct {
	ids     []store.ClientID
	indexOf map[store.ClientID]uint64
}

func (t *idTable) index(c store.ClientID) uint64 {
	return t.indexOf[c]
}

// clientTable collects every client id mentioned by blocks, origins,
// parents, or delete ranges, sorted ascending.
func clientTable(blocks []*store.Block, ds store.DeleteSet) *idTable {
	set := make(map[store.ClientID]bool)
	for _, b := range blocks {
		set[b.ID.Client] = true
		if b.LeftOrigin != nil {
			set[b.LeftOrigin.Client] = true
		}
		if b.RightOrigin != nil {
			set[b.RightOrigin.Client] = true
		}
		if _, _, parentID := parentRef(b); parentID != nil {
			set[parentID.Client] = true
		}
	}
	for _, c := range ds.Clients() {
		set[c] = true
	}

	ids := make([]store.ClientID, 0, len(set))
	for c := range set {
		ids = append(ids, c)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	indexOf := make(map[store.ClientID]uint64, len(ids))
	for i, c := range ids {
		indexOf[c] = uint64(i)
	}
	return &idTable{ids: ids, indexOf: indexOf}
}
