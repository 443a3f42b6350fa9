package store

// Value is a sealed interface over the variants a container can hold or
// return. Only the types in this file implement it, which keeps every
// consumer an exhaustive type switch rather than an ad hoc tag check.
//
// Plain data variants (Null through ValueMap) round-trip through the codec
// unchanged. BranchRef is a read-side handle to a nested container and never
// appears inside a plain data value on the wire. The Prelim variants are
// input-only: inserting one creates a fresh nested container at that
// position.
type Value interface {
	value() // sealed
}

// Null is an explicit null value.
type Null struct{}

func (Null) value() {}

// Undefined is distinct from Null: the original document model keeps both.
type Undefined struct{}

func (Undefined) value() {}

// Bool is a boolean value.
type Bool bool

func (Bool) value() {}

// Float64 is a 64-bit floating point value.
type Float64 float64

func (Float64) value() {}

// Int64 is a 64-bit signed integer value.
type Int64 int64

func (Int64) value() {}

// String is a UTF-8 string value.
type String string

func (String) value() {}

// Bytes is an opaque binary blob.
type Bytes []byte

func (Bytes) value() {}

// List is an ordered list of values.
type List []Value

func (List) value() {}

// ValueMap is an unordered string-keyed map of values.
type ValueMap map[string]Value

func (ValueMap) value() {}

// BranchRef is a handle to a nested shared container. Returned when reading
// a slot that holds a nested Text, Array, Map, XmlElement or XmlText.
type BranchRef struct {
	Branch *Branch
}

func (BranchRef) value() {}

// PrelimText creates a nested Text container holding the given string when
// inserted into an array or map slot.
type PrelimText string

func (PrelimText) value() {}

// PrelimArray creates a nested Array container with the given items.
type PrelimArray []Value

func (PrelimArray) value() {}

// PrelimMap creates a nested Map container with the given entries.
type PrelimMap map[string]Value

func (PrelimMap) value() {}

// PrelimXmlElement creates a nested XmlElement with the given tag.
type PrelimXmlElement string

func (PrelimXmlElement) value() {}

// PrelimXmlText creates a nested XmlText holding the given string.
type PrelimXmlText string

func (PrelimXmlText) value() {}

// IsPrelim reports whether v is an input-only variant that materializes a
// nested container on insert.
func IsPrelim(v Value) bool {
	switch v.(type) {
	case PrelimText, PrelimArray, PrelimMap, PrelimXmlElement, PrelimXmlText:
		return true
	}
	return false
}
