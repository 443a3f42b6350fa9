package store

import "unicode/utf8"

// Content is the payload carried by a block. It is sealed: exactly
// ContentString, ContentValues and ContentBranch implement it, matching the
// three payload kinds the codec can describe.
//
// Len is measured in clock units: one unit per rune for text, one per value
// for lists, one for a nested container. A block spanning clocks [c, c+n)
// carries content of length n.
type Content interface {
	// Len returns the number of clock units the content occupies.
	Len() int
	// Split divides the content at the given unit offset, 0 < offset < Len.
	Split(offset int) (left, right Content)
	content()
}

// ContentString is a run of text. Offsets and lengths count runes, never
// bytes, so a split can never land inside a UTF-8 encoding.
type ContentString struct {
	Str string
}

func (c ContentString) content() {}

func (c ContentString) Len() int {
	return utf8.RuneCountInString(c.Str)
}

func (c ContentString) Split(offset int) (Content, Content) {
	byteOff := 0
	for i := 0; i < offset; i++ {
		_, size := utf8.DecodeRuneInString(c.Str[byteOff:])
		byteOff += size
	}
	return ContentString{Str: c.Str[:byteOff]}, ContentString{Str: c.Str[byteOff:]}
}

// ContentValues is a run of generic values, used by Array inserts (one block
// per contiguous insert) and Map writes (always a single value).
type ContentValues struct {
	Values []Value
}

func (c ContentValues) content() {}

func (c ContentValues) Len() int {
	return len(c.Values)
}

func (c ContentValues) Split(offset int) (Content, Content) {
	return ContentValues{Values: c.Values[:offset:offset]}, ContentValues{Values: c.Values[offset:]}
}

// ContentBranch holds a nested container. Always length 1 and never split.
type ContentBranch struct {
	Branch *Branch
}

func (c ContentBranch) content() {}

func (c ContentBranch) Len() int {
	return 1
}

func (c ContentBranch) Split(offset int) (Content, Content) {
	// Unreachable: length-1 content has no interior clock boundary.
	panic("store: split of length-1 branch content")
}

// mergeContent combines two adjacent payloads of the same kind, or reports
// that they cannot be merged. Used by commit-time squashing.
func mergeContent(a, b Content) (Content, bool) {
	switch left := a.(type) {
	case ContentString:
		if right, ok := b.(ContentString); ok {
			return ContentString{Str: left.Str + right.Str}, true
		}
	case ContentValues:
		if right, ok := b.(ContentValues); ok {
			merged := make([]Value, 0, len(left.Values)+len(right.Values))
			merged = append(merged, left.Values...)
			merged = append(merged, right.Values...)
			return ContentValues{Values: merged}, true
		}
	}
	return nil, false
}
