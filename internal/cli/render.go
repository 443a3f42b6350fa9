package cli

import (
	"encoding/hex"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/quiltdb/quilt"
	"github.com/quiltdb/quilt/internal/codec"
	"github.com/quiltdb/quilt/internal/store"
)

// rootRef identifies a root container discovered in update payloads.
type rootRef struct {
	Name string
	Kind store.BranchKind
}

// RootRender is the rendered final state of one root container.
type RootRender struct {
	Name   string `json:"name"`
	Type   string `json:"type"`
	Render string `json:"render"`
}

// discoverRoots collects every root container referenced by the given
// payloads. Nested containers are reachable through their roots and need no
// entry of their own.
func discoverRoots(payloads [][]byte) ([]rootRef, error) {
	seen := make(map[string]store.BranchKind)
	for _, payload := range payloads {
		blocks, _, err := codec.DecodeUpdate(payload)
		if err != nil {
			return nil, err
		}
		for _, b := range blocks {
			if b.ParentID == nil && b.ParentName != "" {
				if _, ok := seen[b.ParentName]; !ok {
					seen[b.ParentName] = b.ParentKind
				}
			}
		}
	}
	roots := make([]rootRef, 0, len(seen))
	for name, kind := range seen {
		roots = append(roots, rootRef{Name: name, Kind: kind})
	}
	sort.Slice(roots, func(i, j int) bool { return roots[i].Name < roots[j].Name })
	return roots, nil
}

// renderRoots renders the visible state of each root container.
func renderRoots(doc *quilt.Doc, roots []rootRef) ([]RootRender, error) {
	txn, err := doc.Begin()
	if err != nil {
		return nil, err
	}
	defer func() { _, _ = txn.Commit() }()

	out := make([]RootRender, 0, len(roots))
	for _, root := range roots {
		r := RootRender{Name: root.Name, Type: root.Kind.String()}
		switch root.Kind {
		case store.KindText:
			r.Render = txn.Text(root.Name).String(txn)
		case store.KindArray:
			arr := txn.Array(root.Name)
			var items []string
			it := arr.Iter(txn)
			for v, ok := it.Next(); ok; v, ok = it.Next() {
				items = append(items, valueString(v))
			}
			r.Render = "[" + strings.Join(items, ", ") + "]"
		case store.KindMap:
			m := txn.Map(root.Name)
			var pairs []string
			it := m.Iter(txn)
			for k, v, ok := it.Next(); ok; k, v, ok = it.Next() {
				pairs = append(pairs, k+": "+valueString(v))
			}
			sort.Strings(pairs)
			r.Render = "{" + strings.Join(pairs, ", ") + "}"
		case store.KindXmlElement:
			r.Render = txn.XmlElement(root.Name).String(txn)
		case store.KindXmlText:
			r.Render = txn.XmlText(root.Name).String(txn)
		}
		out = append(out, r)
	}
	return out, nil
}

// valueString renders a single value compactly for CLI output.
func valueString(v quilt.Value) string {
	switch val := v.(type) {
	case store.Null:
		return "null"
	case store.Undefined:
		return "undefined"
	case store.Bool:
		return strconv.FormatBool(bool(val))
	case store.Int64:
		return strconv.FormatInt(int64(val), 10)
	case store.Float64:
		return strconv.FormatFloat(float64(val), 'g', -1, 64)
	case store.String:
		return strconv.Quote(string(val))
	case store.Bytes:
		return "0x" + hex.EncodeToString(val)
	case store.List:
		items := make([]string, len(val))
		for i, item := range val {
			items[i] = valueString(item)
		}
		return "[" + strings.Join(items, ", ") + "]"
	case store.ValueMap:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		pairs := make([]string, len(keys))
		for i, k := range keys {
			pairs[i] = k + ": " + valueString(val[k])
		}
		return "{" + strings.Join(pairs, ", ") + "}"
	case store.BranchRef:
		return "<" + val.Branch.Kind.String() + ">"
	}
	return fmt.Sprintf("<%T>", v)
}

func formatRenders(renders []RootRender) string {
	if len(renders) == 0 {
		return "no root containers"
	}
	var sb strings.Builder
	for i, r := range renders {
		if i > 0 {
			sb.WriteByte('\n')
		}
		fmt.Fprintf(&sb, "%s %s = %s", r.Type, r.Name, r.Render)
	}
	return sb.String()
}
