package quilt

import (
	"github.com/quiltdb/quilt/internal/codec"
	"github.com/quiltdb/quilt/internal/store"
)

// Txn batches mutations against one document. Every operation applies
// immediately; there is no rollback. A failing call (for example an
// out-of-range index) aborts only itself - everything the transaction
// already applied stays applied, so callers should treat such a failure as
// fatal to the whole transaction rather than recoverable mid-flight.
type Txn struct {
	doc     *Doc
	startSV store.StateVector
	deletes store.DeleteSet
	done    bool
}

// Commit runs the compaction pass over blocks touched by this transaction,
// releases the document for a new transaction, and returns the update
// payload describing every block created and every range deleted here.
// The payload is self-contained: applying it to any replica that has this
// document's causal history reproduces the transaction's effect.
func (t *Txn) Commit() ([]byte, error) {
	return t.commit(true)
}

func (t *Txn) commit(encode bool) ([]byte, error) {
	if t.done {
		return nil, ErrTxnCommitted
	}
	t.done = true
	t.doc.current = nil

	t.doc.store.Squash(t.startSV)
	if !encode {
		return nil, nil
	}
	blocks, _ := t.doc.store.Diff(t.startSV)
	return codec.EncodeUpdate(blocks, t.deletes)
}

// ensureOpen validates that the transaction accepts operations for the
// given container's document.
func (t *Txn) ensure(doc *Doc) error {
	if t.done {
		return ErrTxnCommitted
	}
	if t.doc != doc {
		return ErrWrongDoc
	}
	return nil
}

// Text returns the named root Text container, creating it on first access.
func (t *Txn) Text(name string) *Text {
	return &Text{doc: t.doc, branch: t.doc.store.Root(name, store.KindText)}
}

// Array returns the named root Array container.
func (t *Txn) Array(name string) *Array {
	return &Array{doc: t.doc, branch: t.doc.store.Root(name, store.KindArray)}
}

// Map returns the named root Map container.
func (t *Txn) Map(name string) *Map {
	return &Map{doc: t.doc, branch: t.doc.store.Root(name, store.KindMap)}
}

// XmlElement returns the named root XmlElement container. Its tag is the
// registry name.
func (t *Txn) XmlElement(name string) *XmlElement {
	return &XmlElement{doc: t.doc, branch: t.doc.store.Root(name, store.KindXmlElement)}
}

// XmlText returns the named root XmlText container.
func (t *Txn) XmlText(name string) *XmlText {
	return &XmlText{doc: t.doc, branch: t.doc.store.Root(name, store.KindXmlText)}
}

// AsText converts a container handle read from another container.
func (t *Txn) AsText(v Value) (*Text, bool) {
	if br, ok := branchOf(v, store.KindText); ok {
		return &Text{doc: t.doc, branch: br}, true
	}
	return nil, false
}

// AsArray converts a container handle read from another container.
func (t *Txn) AsArray(v Value) (*Array, bool) {
	if br, ok := branchOf(v, store.KindArray); ok {
		return &Array{doc: t.doc, branch: br}, true
	}
	return nil, false
}

// AsMap converts a container handle read from another container.
func (t *Txn) AsMap(v Value) (*Map, bool) {
	if br, ok := branchOf(v, store.KindMap); ok {
		return &Map{doc: t.doc, branch: br}, true
	}
	return nil, false
}

// AsXmlElement converts a container handle read from another container.
func (t *Txn) AsXmlElement(v Value) (*XmlElement, bool) {
	if br, ok := branchOf(v, store.KindXmlElement); ok {
		return &XmlElement{doc: t.doc, branch: br}, true
	}
	return nil, false
}

// AsXmlText converts a container handle read from another container.
func (t *Txn) AsXmlText(v Value) (*XmlText, bool) {
	if br, ok := branchOf(v, store.KindXmlText); ok {
		return &XmlText{doc: t.doc, branch: br}, true
	}
	return nil, false
}

func branchOf(v Value, kind store.BranchKind) (*store.Branch, bool) {
	ref, ok := v.(store.BranchRef)
	if !ok || ref.Branch.Kind != kind {
		return nil, false
	}
	return ref.Branch, true
}
