package store

// NewNested creates an unattached container branch. The caller wraps it in
// ContentBranch and inserts it; integration wires up the back-reference.
func NewNested(kind BranchKind, tag string) *Branch {
	br := newBranch(kind)
	br.Tag = tag
	return br
}
