package quilt

import "github.com/quiltdb/quilt/internal/store"

// Value is the tagged variant used uniformly for reading container contents
// and constructing values to insert. It is a sealed interface: construct
// values with the New* functions and read them with the As* accessors or an
// exhaustive type switch over the store variants.
type Value = store.Value

// NewNull returns an explicit null value.
func NewNull() Value { return store.Null{} }

// NewUndefined returns the undefined value.
func NewUndefined() Value { return store.Undefined{} }

// NewBool returns a boolean value.
func NewBool(b bool) Value { return store.Bool(b) }

// NewFloat64 returns a 64-bit float value.
func NewFloat64(f float64) Value { return store.Float64(f) }

// NewInt64 returns a 64-bit integer value.
func NewInt64(n int64) Value { return store.Int64(n) }

// NewString returns a UTF-8 string value.
func NewString(s string) Value { return store.String(s) }

// NewBytes returns a binary blob value. The slice is not copied.
func NewBytes(b []byte) Value { return store.Bytes(b) }

// NewList returns an ordered list value.
func NewList(items ...Value) Value { return store.List(items) }

// NewValueMap returns an unordered string-keyed map value.
func NewValueMap(m map[string]Value) Value { return store.ValueMap(m) }

// NewTextPrelim returns an input value that creates a nested Text container
// holding s when inserted.
func NewTextPrelim(s string) Value { return store.PrelimText(s) }

// NewArrayPrelim returns an input value that creates a nested Array.
func NewArrayPrelim(items ...Value) Value { return store.PrelimArray(items) }

// NewMapPrelim returns an input value that creates a nested Map.
func NewMapPrelim(m map[string]Value) Value { return store.PrelimMap(m) }

// NewXmlElementPrelim returns an input value that creates a nested
// XmlElement with the given tag.
func NewXmlElementPrelim(tag string) Value { return store.PrelimXmlElement(tag) }

// NewXmlTextPrelim returns an input value that creates a nested XmlText.
func NewXmlTextPrelim(s string) Value { return store.PrelimXmlText(s) }

// The As* accessors are permissive: reading the wrong variant yields a zero
// value and false, never an error.

// AsBool extracts a boolean value.
func AsBool(v Value) (bool, bool) {
	b, ok := v.(store.Bool)
	return bool(b), ok
}

// AsFloat64 extracts a float value.
func AsFloat64(v Value) (float64, bool) {
	f, ok := v.(store.Float64)
	return float64(f), ok
}

// AsInt64 extracts an integer value.
func AsInt64(v Value) (int64, bool) {
	n, ok := v.(store.Int64)
	return int64(n), ok
}

// AsString extracts a string value.
func AsString(v Value) (string, bool) {
	s, ok := v.(store.String)
	return string(s), ok
}

// AsBytes extracts a binary blob value.
func AsBytes(v Value) ([]byte, bool) {
	b, ok := v.(store.Bytes)
	return []byte(b), ok
}

// AsList extracts an ordered list value.
func AsList(v Value) ([]Value, bool) {
	l, ok := v.(store.List)
	return []Value(l), ok
}

// AsValueMap extracts a string-keyed map value.
func AsValueMap(v Value) (map[string]Value, bool) {
	m, ok := v.(store.ValueMap)
	return map[string]Value(m), ok
}

// IsNull reports whether the value is the explicit null.
func IsNull(v Value) bool {
	_, ok := v.(store.Null)
	return ok
}

// IsUndefined reports whether the value is undefined.
func IsUndefined(v Value) bool {
	_, ok := v.(store.Undefined)
	return ok
}
