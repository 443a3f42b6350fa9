// Package codec serializes state vectors and update payloads.
//
// The wire format is compact and deterministic: clocks and lengths use
// unsigned LEB128 varints, client ids are remapped to small dense indices
// into a per-payload client table, and every content run carries a one-byte
// discriminator for its payload kind. Deterministic byte output (sorted
// clients, sorted keys nowhere required) makes payloads directly comparable
// in golden tests.
//
// Decoding is strict. Truncated input, an unknown tag, or an out-of-range
// table index fails with an InvalidEncodingError carrying the byte offset;
// the decoder never panics and never silently truncates, so a rejected
// update leaves the document untouched.
package codec
