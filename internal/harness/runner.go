package harness

import (
	"fmt"
	"sort"
	"strings"

	"github.com/quiltdb/quilt"
)

// TraceEvent records one executed step.
type TraceEvent struct {
	Seq     int
	Summary string
}

// Result holds the trace and final rendered state of a scenario run.
type Result struct {
	Name  string
	Trace []TraceEvent

	// Final maps replica id to container key ("type name") to render.
	Final map[uint64]map[string]string

	// Errors lists expectation failures. Empty means the scenario passed.
	Errors []string

	replicas   []uint64
	containers []containerRef
}

// Pass reports whether every expectation held.
func (r *Result) Pass() bool {
	return len(r.Errors) == 0
}

type containerRef struct {
	typ  string
	name string
}

func (c containerRef) key() string {
	return c.typ + " " + c.name
}

// Run executes a scenario: every operation commits its own transaction,
// sync steps exchange state-vector diffs both ways, and the final state of
// every touched container is rendered on every replica and checked against
// the expectations.
func Run(s *Scenario) (*Result, error) {
	docs := make(map[uint64]*quilt.Doc, len(s.Replicas))
	for _, id := range s.Replicas {
		docs[id] = quilt.NewWithClientID(id)
	}

	res := &Result{
		Name:     s.Name,
		Final:    make(map[uint64]map[string]string),
		replicas: append([]uint64(nil), s.Replicas...),
	}
	sort.Slice(res.replicas, func(i, j int) bool { return res.replicas[i] < res.replicas[j] })

	seen := make(map[containerRef]bool)
	track := func(typ, name string) {
		ref := containerRef{typ: typ, name: name}
		if !seen[ref] {
			seen[ref] = true
			res.containers = append(res.containers, ref)
		}
	}
	for _, step := range s.Steps {
		if len(step.Sync) == 0 {
			track(step.Type, step.Container)
		}
	}
	for _, exp := range s.Expect {
		track(exp.Type, exp.Container)
	}
	sort.Slice(res.containers, func(i, j int) bool {
		return res.containers[i].key() < res.containers[j].key()
	})

	for i, step := range s.Steps {
		seq := i + 1
		if len(step.Sync) > 0 {
			for j := 0; j+1 < len(step.Sync); j++ {
				if err := exchange(docs[step.Sync[j]], docs[step.Sync[j+1]]); err != nil {
					return nil, fmt.Errorf("step %d: sync: %w", seq, err)
				}
			}
			res.Trace = append(res.Trace, TraceEvent{
				Seq:     seq,
				Summary: fmt.Sprintf("sync %v", step.Sync),
			})
			continue
		}
		if err := runOp(docs[step.Replica], &step); err != nil {
			return nil, fmt.Errorf("step %d: %w", seq, err)
		}
		res.Trace = append(res.Trace, TraceEvent{
			Seq:     seq,
			Summary: fmt.Sprintf("op replica=%d %s %s %s", step.Replica, step.Type, step.Container, step.Op),
		})
	}

	for _, id := range res.replicas {
		renders := make(map[string]string, len(res.containers))
		for _, ref := range res.containers {
			render, err := renderContainer(docs[id], ref)
			if err != nil {
				return nil, fmt.Errorf("render replica %d %s: %w", id, ref.key(), err)
			}
			renders[ref.key()] = render
		}
		res.Final[id] = renders
	}

	for i, exp := range s.Expect {
		key := containerRef{typ: exp.Type, name: exp.Container}.key()
		got := res.Final[exp.Replica][key]
		if got != exp.Equals {
			res.Errors = append(res.Errors,
				fmt.Sprintf("expect[%d]: replica %d %s: got %q, want %q", i, exp.Replica, key, got, exp.Equals))
		}
	}
	return res, nil
}

// exchange performs the two-step sync handshake in both directions.
func exchange(a, b *quilt.Doc) error {
	diffAB, err := quilt.EncodeDiff(a, quilt.EncodeStateVector(b))
	if err != nil {
		return err
	}
	diffBA, err := quilt.EncodeDiff(b, quilt.EncodeStateVector(a))
	if err != nil {
		return err
	}
	if err := quilt.ApplyUpdate(b, diffAB); err != nil {
		return err
	}
	return quilt.ApplyUpdate(a, diffBA)
}

func runOp(doc *quilt.Doc, step *Step) error {
	txn, err := doc.Begin()
	if err != nil {
		return err
	}
	err = applyOp(txn, step)
	if err != nil {
		// Release the doc; the step error is the one worth reporting.
		_, _ = txn.Commit()
		return err
	}
	_, err = txn.Commit()
	return err
}

func applyOp(txn *quilt.Txn, step *Step) error {
	switch step.Type {
	case TypeText:
		text := txn.Text(step.Container)
		if step.Op == "insert" {
			return text.Insert(txn, step.Index, step.Text)
		}
		return text.RemoveRange(txn, step.Index, step.Length)

	case TypeArray:
		arr := txn.Array(step.Container)
		if step.Op == "insert" {
			items := make([]quilt.Value, len(step.Values))
			for i, v := range step.Values {
				items[i] = quilt.NewString(v)
			}
			return arr.InsertRange(txn, step.Index, items)
		}
		return arr.RemoveRange(txn, step.Index, step.Length)

	case TypeMap:
		m := txn.Map(step.Container)
		if step.Op == "set" {
			return m.Insert(txn, step.Key, quilt.NewString(step.Value))
		}
		_, err := m.Remove(txn, step.Key)
		return err

	case TypeXml:
		el := txn.XmlElement(step.Container)
		switch step.Op {
		case "element":
			_, err := el.InsertElement(txn, step.Index, step.Text)
			return err
		case "attr":
			return el.InsertAttr(txn, step.Key, step.Value)
		default:
			return el.RemoveRange(txn, step.Index, step.Length)
		}
	}
	return fmt.Errorf("unknown container type %q", step.Type)
}

// renderContainer produces the deterministic final-state render of one
// container: visible text, XML rendering, sorted key=value pairs, or
// comma-joined array items.
func renderContainer(doc *quilt.Doc, ref containerRef) (string, error) {
	txn, err := doc.Begin()
	if err != nil {
		return "", err
	}
	defer txn.Commit()

	switch ref.typ {
	case TypeText:
		return txn.Text(ref.name).String(txn), nil

	case TypeXml:
		return txn.XmlElement(ref.name).String(txn), nil

	case TypeMap:
		m := txn.Map(ref.name)
		var pairs []string
		it := m.Iter(txn)
		for k, v, ok := it.Next(); ok; k, v, ok = it.Next() {
			if s, isStr := quilt.AsString(v); isStr {
				pairs = append(pairs, k+"="+s)
			} else {
				pairs = append(pairs, k)
			}
		}
		sort.Strings(pairs)
		return strings.Join(pairs, ","), nil

	case TypeArray:
		arr := txn.Array(ref.name)
		var items []string
		it := arr.Iter(txn)
		for v, ok := it.Next(); ok; v, ok = it.Next() {
			if s, isStr := quilt.AsString(v); isStr {
				items = append(items, s)
			}
		}
		return strings.Join(items, ","), nil
	}
	return "", fmt.Errorf("unknown container type %q", ref.typ)
}
