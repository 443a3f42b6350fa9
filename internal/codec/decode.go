package codec

import (
	"encoding/binary"
	"math"

	"github.com/quiltdb/quilt/internal/store"
)

type reader struct {
	buf []byte
	off int
}

func (r *reader) remaining() int {
	return len(r.buf) - r.off
}

func (r *reader) uvarint(what string) (uint64, error) {
	v, n := binary.Uvarint(r.buf[r.off:])
	if n <= 0 {
		return 0, invalidf(r.off, "truncated varint (%s)", what)
	}
	r.off += n
	return v, nil
}

func (r *reader) varint(what string) (int64, error) {
	v, n := binary.Varint(r.buf[r.off:])
	if n <= 0 {
		return 0, invalidf(r.off, "truncated signed varint (%s)", what)
	}
	r.off += n
	return v, nil
}

func (r *reader) byte(what string) (byte, error) {
	if r.remaining() < 1 {
		return 0, invalidf(r.off, "truncated byte (%s)", what)
	}
	b := r.buf[r.off]
	r.off++
	return b, nil
}

func (r *reader) string(what string) (string, error) {
	n, err := r.uvarint(what + " length")
	if err != nil {
		return "", err
	}
	if n > uint64(r.remaining()) {
		return "", invalidf(r.off, "%s length %d exceeds remaining %d bytes", what, n, r.remaining())
	}
	s := string(r.buf[r.off : r.off+int(n)])
	r.off += int(n)
	return s, nil
}

func (r *reader) raw(n int, what string) ([]byte, error) {
	if n > r.remaining() {
		return nil, invalidf(r.off, "truncated %s", what)
	}
	out := r.buf[r.off : r.off+n]
	r.off += n
	return out, nil
}

func (r *reader) version() error {
	v, err := r.byte("format version")
	if err != nil {
		return err
	}
	if v != formatVersion {
		return invalidf(r.off-1, "unsupported format version %d", v)
	}
	return nil
}

// DecodeStateVector parses a serialized state vector.
func DecodeStateVector(data []byte) (store.StateVector, error) {
	r := &reader{buf: data}
	if err := r.version(); err != nil {
		return nil, err
	}
	n, err := r.uvarint("client count")
	if err != nil {
		return nil, err
	}
	if n > uint64(r.remaining()) {
		return nil, invalidf(r.off, "client count %d exceeds payload", n)
	}
	sv := make(store.StateVector, n)
	for i := uint64(0); i < n; i++ {
		client, err := r.uvarint("client id")
		if err != nil {
			return nil, err
		}
		clock, err := r.uvarint("clock")
		if err != nil {
			return nil, err
		}
		sv[store.ClientID(client)] = clock
	}
	if r.remaining() != 0 {
		return nil, invalidf(r.off, "%d trailing bytes", r.remaining())
	}
	return sv, nil
}

// DecodeUpdate parses a serialized update into fresh blocks (with symbolic
// parent references, resolved at integration) and a delete set.
func DecodeUpdate(data []byte) ([]*store.Block, store.DeleteSet, error) {
	r := &reader{buf: data}
	if err := r.version(); err != nil {
		return nil, nil, err
	}

	tableLen, err := r.uvarint("client table length")
	if err != nil {
		return nil, nil, err
	}
	if tableLen > uint64(r.remaining()) {
		return nil, nil, invalidf(r.off, "client table length %d exceeds payload", tableLen)
	}
	table := make([]store.ClientID, tableLen)
	for i := range table {
		id, err := r.uvarint("client table entry")
		if err != nil {
			return nil, nil, err
		}
		table[i] = store.ClientID(id)
	}
	client := func(what string) (store.ClientID, error) {
		idx, err := r.uvarint(what)
		if err != nil {
			return 0, err
		}
		if idx >= uint64(len(table)) {
			return 0, invalidf(r.off, "%s index %d out of range (table size %d)", what, idx, len(table))
		}
		return table[idx], nil
	}

	groups, err := r.uvarint("client group count")
	if err != nil {
		return nil, nil, err
	}
	var blocks []*store.Block
	for g := uint64(0); g < groups; g++ {
		owner, err := client("block owner")
		if err != nil {
			return nil, nil, err
		}
		count, err := r.uvarint("block count")
		if err != nil {
			return nil, nil, err
		}
		if count > uint64(r.remaining())+1 {
			return nil, nil, invalidf(r.off, "block count %d exceeds payload", count)
		}
		for i := uint64(0); i < count; i++ {
			b, err := decodeBlock(r, owner, client)
			if err != nil {
				return nil, nil, err
			}
			blocks = append(blocks, b)
		}
	}

	ds := make(store.DeleteSet)
	dsClients, err := r.uvarint("delete set client count")
	if err != nil {
		return nil, nil, err
	}
	for i := uint64(0); i < dsClients; i++ {
		c, err := client("delete set client")
		if err != nil {
			return nil, nil, err
		}
		ranges, err := r.uvarint("delete range count")
		if err != nil {
			return nil, nil, err
		}
		if ranges > uint64(r.remaining())+1 {
			return nil, nil, invalidf(r.off, "delete range count %d exceeds payload", ranges)
		}
		for j := uint64(0); j < ranges; j++ {
			clock, err := r.uvarint("delete range clock")
			if err != nil {
				return nil, nil, err
			}
			length, err := r.uvarint("delete range length")
			if err != nil {
				return nil, nil, err
			}
			ds.Add(c, clock, length)
		}
	}
	if r.remaining() != 0 {
		return nil, nil, invalidf(r.off, "%d trailing bytes", r.remaining())
	}
	return blocks, ds, nil
}

func decodeBlock(r *reader, owner store.ClientID, client func(string) (store.ClientID, error)) (*store.Block, error) {
	clock, err := r.uvarint("block clock")
	if err != nil {
		return nil, err
	}
	flags, err := r.byte("block flags")
	if err != nil {
		return nil, err
	}
	if flags&^(flagLeftOrigin|flagRightOrigin|flagNestedParent|flagKey) != 0 {
		return nil, invalidf(r.off-1, "unknown block flags %#x", flags)
	}

	b := &store.Block{ID: store.ID{Client: owner, Clock: clock}}

	if flags&flagLeftOrigin != 0 {
		c, err := client("left origin client")
		if err != nil {
			return nil, err
		}
		oc, err := r.uvarint("left origin clock")
		if err != nil {
			return nil, err
		}
		b.LeftOrigin = &store.ID{Client: c, Clock: oc}
	}
	if flags&flagRightOrigin != 0 {
		c, err := client("right origin client")
		if err != nil {
			return nil, err
		}
		oc, err := r.uvarint("right origin clock")
		if err != nil {
			return nil, err
		}
		b.RightOrigin = &store.ID{Client: c, Clock: oc}
	}

	if flags&flagNestedParent != 0 {
		c, err := client("parent client")
		if err != nil {
			return nil, err
		}
		pc, err := r.uvarint("parent clock")
		if err != nil {
			return nil, err
		}
		b.ParentID = &store.ID{Client: c, Clock: pc}
	} else {
		kind, err := r.byte("parent kind")
		if err != nil {
			return nil, err
		}
		name, err := r.string("parent name")
		if err != nil {
			return nil, err
		}
		if err := validKind(r, kind); err != nil {
			return nil, err
		}
		b.ParentKind = store.BranchKind(kind)
		b.ParentName = name
	}

	if flags&flagKey != 0 {
		key, err := r.string("map key")
		if err != nil {
			return nil, err
		}
		if key == "" {
			return nil, invalidf(r.off, "empty map key")
		}
		b.Key = key
	}

	content, err := decodeContent(r)
	if err != nil {
		return nil, err
	}
	if content.Len() == 0 {
		return nil, invalidf(r.off, "empty block content")
	}
	b.Content = content
	return b, nil
}

func validKind(r *reader, kind byte) error {
	switch store.BranchKind(kind) {
	case store.KindText, store.KindArray, store.KindMap, store.KindXmlElement, store.KindXmlText:
		return nil
	}
	return invalidf(r.off, "unknown container kind %d", kind)
}

func decodeContent(r *reader) (store.Content, error) {
	tag, err := r.byte("content tag")
	if err != nil {
		return nil, err
	}
	switch tag {
	case contentString:
		s, err := r.string("string content")
		if err != nil {
			return nil, err
		}
		return store.ContentString{Str: s}, nil
	case contentValues:
		n, err := r.uvarint("value count")
		if err != nil {
			return nil, err
		}
		if n > uint64(r.remaining())+1 {
			return nil, invalidf(r.off, "value count %d exceeds payload", n)
		}
		values := make([]store.Value, n)
		for i := range values {
			v, err := decodeValue(r)
			if err != nil {
				return nil, err
			}
			values[i] = v
		}
		return store.ContentValues{Values: values}, nil
	case contentBranch:
		kind, err := r.byte("branch kind")
		if err != nil {
			return nil, err
		}
		if err := validKind(r, kind); err != nil {
			return nil, err
		}
		branchTag := ""
		if store.BranchKind(kind) == store.KindXmlElement {
			branchTag, err = r.string("element tag")
			if err != nil {
				return nil, err
			}
		}
		return store.ContentBranch{Branch: store.NewNested(store.BranchKind(kind), branchTag)}, nil
	}
	return nil, invalidf(r.off-1, "unknown content tag %d", tag)
}

func decodeValue(r *reader) (store.Value, error) {
	tag, err := r.byte("value tag")
	if err != nil {
		return nil, err
	}
	switch tag {
	case valueNull:
		return store.Null{}, nil
	case valueUndefined:
		return store.Undefined{}, nil
	case valueBool:
		b, err := r.byte("bool value")
		if err != nil {
			return nil, err
		}
		if b > 1 {
			return nil, invalidf(r.off-1, "bool value %d", b)
		}
		return store.Bool(b == 1), nil
	case valueFloat64:
		raw, err := r.raw(8, "float64 value")
		if err != nil {
			return nil, err
		}
		return store.Float64(math.Float64frombits(binary.BigEndian.Uint64(raw))), nil
	case valueInt64:
		v, err := r.varint("int64 value")
		if err != nil {
			return nil, err
		}
		return store.Int64(v), nil
	case valueString:
		s, err := r.string("string value")
		if err != nil {
			return nil, err
		}
		return store.String(s), nil
	case valueBytes:
		n, err := r.uvarint("bytes length")
		if err != nil {
			return nil, err
		}
		raw, err := r.raw(int(n), "bytes value")
		if err != nil {
			return nil, err
		}
		out := make([]byte, n)
		copy(out, raw)
		return store.Bytes(out), nil
	case valueList:
		n, err := r.uvarint("list length")
		if err != nil {
			return nil, err
		}
		if n > uint64(r.remaining())+1 {
			return nil, invalidf(r.off, "list length %d exceeds payload", n)
		}
		list := make(store.List, n)
		for i := range list {
			v, err := decodeValue(r)
			if err != nil {
				return nil, err
			}
			list[i] = v
		}
		return list, nil
	case valueMap:
		n, err := r.uvarint("map length")
		if err != nil {
			return nil, err
		}
		if n > uint64(r.remaining())+1 {
			return nil, invalidf(r.off, "map length %d exceeds payload", n)
		}
		m := make(store.ValueMap, n)
		for i := uint64(0); i < n; i++ {
			k, err := r.string("map value key")
			if err != nil {
				return nil, err
			}
			v, err := decodeValue(r)
			if err != nil {
				return nil, err
			}
			m[k] = v
		}
		return m, nil
	}
	return nil, invalidf(r.off-1, "unknown value tag %d", tag)
}
