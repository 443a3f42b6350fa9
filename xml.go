package quilt

import (
	"sort"
	"strings"

	"github.com/quiltdb/quilt/internal/store"
)

// XmlElement is a collaborative XML node: a tag name, an attribute map with
// last-writer-wins registers, and an ordered children sequence whose
// conflict resolution is the same as Text and Array.
type XmlElement struct {
	doc    *Doc
	branch *store.Branch
}

// XmlText is a collaborative text node with attributes.
type XmlText struct {
	doc    *Doc
	branch *store.Branch
}

// XmlNode is either an XmlElement or an XmlText, as yielded by navigation
// and tree traversal.
type XmlNode struct {
	doc    *Doc
	branch *store.Branch
}

// AsElement returns the node as an element, if it is one.
func (n XmlNode) AsElement() (*XmlElement, bool) {
	if n.branch != nil && n.branch.Kind == store.KindXmlElement {
		return &XmlElement{doc: n.doc, branch: n.branch}, true
	}
	return nil, false
}

// AsText returns the node as a text node, if it is one.
func (n XmlNode) AsText() (*XmlText, bool) {
	if n.branch != nil && n.branch.Kind == store.KindXmlText {
		return &XmlText{doc: n.doc, branch: n.branch}, true
	}
	return nil, false
}

// Tag returns the element's tag name.
func (x *XmlElement) Tag() string {
	return x.branch.Tag
}

// Attr returns the visible value of an attribute.
func (x *XmlElement) Attr(txn *Txn, name string) (string, bool) {
	return attrGet(x.branch, name)
}

// InsertAttr writes an attribute, superseding any visible value.
func (x *XmlElement) InsertAttr(txn *Txn, name, value string) error {
	if err := txn.ensure(x.doc); err != nil {
		return err
	}
	return setMapKey(txn, x.branch, name, NewString(value))
}

// RemoveAttr tombstones an attribute register.
func (x *XmlElement) RemoveAttr(txn *Txn, name string) (bool, error) {
	if err := txn.ensure(x.doc); err != nil {
		return false, err
	}
	return removeMapKey(x.doc.store, x.branch, name, txn.deletes), nil
}

// AttrIter returns an unordered iterator over visible attributes.
func (x *XmlElement) AttrIter(txn *Txn) *AttrIter {
	return newAttrIter(x.branch)
}

// ChildLen returns the number of visible children.
func (x *XmlElement) ChildLen(txn *Txn) int {
	return x.branch.VisibleLen()
}

// Child returns the visible child at index.
func (x *XmlElement) Child(txn *Txn, index int) (XmlNode, error) {
	v, ok := seqValueAt(x.branch, index)
	if !ok {
		return XmlNode{}, outOfBounds(index, x.branch.VisibleLen())
	}
	ref := v.(store.BranchRef)
	return XmlNode{doc: x.doc, branch: ref.Branch}, nil
}

// InsertElement creates a child element with the given tag at index.
func (x *XmlElement) InsertElement(txn *Txn, index int, tag string) (*XmlElement, error) {
	b, err := x.insertChild(txn, index, store.NewNested(store.KindXmlElement, tag))
	if err != nil {
		return nil, err
	}
	return &XmlElement{doc: x.doc, branch: b}, nil
}

// InsertText creates an empty child text node at index.
func (x *XmlElement) InsertText(txn *Txn, index int) (*XmlText, error) {
	b, err := x.insertChild(txn, index, store.NewNested(store.KindXmlText, ""))
	if err != nil {
		return nil, err
	}
	return &XmlText{doc: x.doc, branch: b}, nil
}

func (x *XmlElement) insertChild(txn *Txn, index int, nested *store.Branch) (*store.Branch, error) {
	if err := txn.ensure(x.doc); err != nil {
		return nil, err
	}
	if index < 0 || index > x.branch.VisibleLen() {
		return nil, outOfBounds(index, x.branch.VisibleLen())
	}
	left, err := seqFindInsertPos(x.doc.store, x.branch, index)
	if err != nil {
		return nil, err
	}
	x.doc.store.InsertAfter(x.branch, left, store.ContentBranch{Branch: nested}, x.doc.clientID)
	return nested, nil
}

// RemoveRange tombstones length children starting at index.
func (x *XmlElement) RemoveRange(txn *Txn, index, length int) error {
	if err := txn.ensure(x.doc); err != nil {
		return err
	}
	visible := x.branch.VisibleLen()
	if index < 0 || length < 0 || index+length > visible {
		return outOfBounds(index+length, visible)
	}
	if length == 0 {
		return nil
	}
	seqRemoveRange(x.doc.store, x.branch, index, length, txn.deletes)
	return nil
}

// FirstChild returns the first visible child.
func (x *XmlElement) FirstChild(txn *Txn) (XmlNode, bool) {
	return firstChildOf(x.doc, x.branch)
}

// Navigation derives everything from the child chain's back-reference;
// parent pointers are never stored twice.

// NextSibling returns the following visible node under the same parent.
func (x *XmlElement) NextSibling(txn *Txn) (XmlNode, bool) {
	return siblingOf(x.doc, x.branch, false)
}

// PrevSibling returns the preceding visible node under the same parent.
func (x *XmlElement) PrevSibling(txn *Txn) (XmlNode, bool) {
	return siblingOf(x.doc, x.branch, true)
}

// Parent returns the containing node; ok is false for a root element.
func (x *XmlElement) Parent(txn *Txn) XmlNode {
	return XmlNode{doc: x.doc, branch: x.branch.Parent()}
}

// TreeWalker returns a depth-first iterator over all descendants in
// document order. The traversal is captured when the walker is created.
func (x *XmlElement) TreeWalker(txn *Txn) *TreeWalker {
	w := &TreeWalker{}
	collectDescendants(x.doc, x.branch, &w.nodes)
	return w
}

// String renders the element subtree, skipping tombstoned content.
func (x *XmlElement) String(txn *Txn) string {
	var sb strings.Builder
	renderElement(&sb, x.branch)
	return sb.String()
}

// Len returns the visible text length in code points.
func (x *XmlText) Len(txn *Txn) int {
	return x.branch.VisibleLen()
}

// String returns the visible text with XML escaping applied.
func (x *XmlText) String(txn *Txn) string {
	return xmlEscape(sequenceString(x.branch))
}

// Insert places s at the visible index.
func (x *XmlText) Insert(txn *Txn, index int, s string) error {
	if err := txn.ensure(x.doc); err != nil {
		return err
	}
	if index < 0 || index > x.branch.VisibleLen() {
		return outOfBounds(index, x.branch.VisibleLen())
	}
	if s == "" {
		return nil
	}
	left, err := seqFindInsertPos(x.doc.store, x.branch, index)
	if err != nil {
		return err
	}
	x.doc.store.InsertAfter(x.branch, left, store.ContentString{Str: s}, x.doc.clientID)
	return nil
}

// RemoveRange tombstones length code points starting at index.
func (x *XmlText) RemoveRange(txn *Txn, index, length int) error {
	if err := txn.ensure(x.doc); err != nil {
		return err
	}
	visible := x.branch.VisibleLen()
	if index < 0 || length < 0 || index+length > visible {
		return outOfBounds(index+length, visible)
	}
	if length == 0 {
		return nil
	}
	seqRemoveRange(x.doc.store, x.branch, index, length, txn.deletes)
	return nil
}

// Attr returns the visible value of an attribute.
func (x *XmlText) Attr(txn *Txn, name string) (string, bool) {
	return attrGet(x.branch, name)
}

// InsertAttr writes an attribute.
func (x *XmlText) InsertAttr(txn *Txn, name, value string) error {
	if err := txn.ensure(x.doc); err != nil {
		return err
	}
	return setMapKey(txn, x.branch, name, NewString(value))
}

// RemoveAttr tombstones an attribute register.
func (x *XmlText) RemoveAttr(txn *Txn, name string) (bool, error) {
	if err := txn.ensure(x.doc); err != nil {
		return false, err
	}
	return removeMapKey(x.doc.store, x.branch, name, txn.deletes), nil
}

// AttrIter returns an unordered iterator over visible attributes.
func (x *XmlText) AttrIter(txn *Txn) *AttrIter {
	return newAttrIter(x.branch)
}

// NextSibling returns the following visible node under the same parent.
func (x *XmlText) NextSibling(txn *Txn) (XmlNode, bool) {
	return siblingOf(x.doc, x.branch, false)
}

// PrevSibling returns the preceding visible node under the same parent.
func (x *XmlText) PrevSibling(txn *Txn) (XmlNode, bool) {
	return siblingOf(x.doc, x.branch, true)
}

// Parent returns the containing node.
func (x *XmlText) Parent(txn *Txn) XmlNode {
	return XmlNode{doc: x.doc, branch: x.branch.Parent()}
}

// AttrIter is an unordered read-only cursor over visible attributes.
type AttrIter struct {
	branch *store.Branch
	gen    uint64
	names  []string
	pos    int
}

func newAttrIter(br *store.Branch) *AttrIter {
	names := make([]string, 0, len(br.Entries))
	for name := range br.Entries {
		if br.MapEntry(name) != nil {
			names = append(names, name)
		}
	}
	return &AttrIter{branch: br, gen: br.Gen(), names: names}
}

// Next returns the next attribute, or false when exhausted or the node was
// mutated since the iterator was created.
func (it *AttrIter) Next() (name, value string, ok bool) {
	if it.branch.Gen() != it.gen {
		return "", "", false
	}
	for it.pos < len(it.names) {
		n := it.names[it.pos]
		it.pos++
		if v, found := it.branch.MapValue(n); found {
			if s, isString := AsString(v); isString {
				return n, s, true
			}
		}
	}
	return "", "", false
}

// TreeWalker yields every descendant of an element depth-first.
type TreeWalker struct {
	nodes []XmlNode
	pos   int
}

// Next returns the next node in document order.
func (w *TreeWalker) Next() (XmlNode, bool) {
	if w.pos >= len(w.nodes) {
		return XmlNode{}, false
	}
	n := w.nodes[w.pos]
	w.pos++
	return n, true
}

func collectDescendants(doc *Doc, br *store.Branch, out *[]XmlNode) {
	for b := br.Start; b != nil; b = b.Right {
		if b.Deleted {
			continue
		}
		cb, ok := b.Content.(store.ContentBranch)
		if !ok {
			continue
		}
		*out = append(*out, XmlNode{doc: doc, branch: cb.Branch})
		if cb.Branch.Kind == store.KindXmlElement {
			collectDescendants(doc, cb.Branch, out)
		}
	}
}

func firstChildOf(doc *Doc, br *store.Branch) (XmlNode, bool) {
	for b := br.Start; b != nil; b = b.Right {
		if b.Deleted {
			continue
		}
		if cb, ok := b.Content.(store.ContentBranch); ok {
			return XmlNode{doc: doc, branch: cb.Branch}, true
		}
	}
	return XmlNode{}, false
}

func siblingOf(doc *Doc, br *store.Branch, backward bool) (XmlNode, bool) {
	b := br.Item
	if b == nil {
		return XmlNode{}, false
	}
	step := func(blk *store.Block) *store.Block {
		if backward {
			return blk.Left
		}
		return blk.Right
	}
	for b = step(b); b != nil; b = step(b) {
		if b.Deleted {
			continue
		}
		if cb, ok := b.Content.(store.ContentBranch); ok {
			return XmlNode{doc: doc, branch: cb.Branch}, true
		}
	}
	return XmlNode{}, false
}

func attrGet(br *store.Branch, name string) (string, bool) {
	v, ok := br.MapValue(name)
	if !ok {
		return "", false
	}
	return AsString(v)
}

func renderElement(sb *strings.Builder, br *store.Branch) {
	sb.WriteByte('<')
	sb.WriteString(br.Tag)

	names := make([]string, 0, len(br.Entries))
	for name := range br.Entries {
		if br.MapEntry(name) != nil {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	for _, name := range names {
		if value, ok := attrGet(br, name); ok {
			sb.WriteByte(' ')
			sb.WriteString(name)
			sb.WriteString(`="`)
			sb.WriteString(xmlEscape(value))
			sb.WriteByte('"')
		}
	}
	sb.WriteByte('>')

	for b := br.Start; b != nil; b = b.Right {
		if b.Deleted {
			continue
		}
		if cb, ok := b.Content.(store.ContentBranch); ok {
			switch cb.Branch.Kind {
			case store.KindXmlElement:
				renderElement(sb, cb.Branch)
			case store.KindXmlText:
				sb.WriteString(xmlEscape(sequenceString(cb.Branch)))
			}
		}
	}

	sb.WriteString("</")
	sb.WriteString(br.Tag)
	sb.WriteByte('>')
}

var xmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
)

func xmlEscape(s string) string {
	return xmlEscaper.Replace(s)
}
