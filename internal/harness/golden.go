package harness

import (
	"fmt"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
)

// Snapshot renders the result as deterministic text: the trace, then each
// replica's final container renders in sorted order.
func (r *Result) Snapshot() []byte {
	var sb strings.Builder
	fmt.Fprintf(&sb, "scenario: %s\n", r.Name)
	for _, ev := range r.Trace {
		fmt.Fprintf(&sb, "%02d %s\n", ev.Seq, ev.Summary)
	}
	for _, id := range r.replicas {
		for _, ref := range r.containers {
			fmt.Fprintf(&sb, "replica %d %s = %q\n", id, ref.key(), r.Final[id][ref.key()])
		}
	}
	return []byte(sb.String())
}

// RunWithGolden executes a scenario, fails the test on any expectation
// error, and compares the snapshot against a golden file stored in
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) error {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return err
	}
	for _, msg := range result.Errors {
		t.Error(msg)
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenario.Name, result.Snapshot())
	return nil
}
