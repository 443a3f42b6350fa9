// Package harness provides conformance testing for replica convergence.
//
// The harness loads multi-replica scenarios, executes each step as its own
// transaction, exchanges updates at explicit sync points, and validates the
// final rendered state of every replica.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	replicas: [1, 2]
//	steps:
//	  - replica: 1
//	    type: text
//	    container: body
//	    op: insert
//	    index: 0
//	    text: "ab"
//	  - sync: [1, 2]
//	expect:
//	  - replica: 1
//	    type: text
//	    container: body
//	    equals: "Xab"
//
// # Step Kinds
//
// A step is either an operation (replica + type + container + op) or a sync
// point (sync: list of replica ids, exchanged pairwise both ways). Supported
// operations:
//
//   - text:  insert (index, text), remove (index, length)
//   - array: insert (index, values), remove (index, length)
//   - map:   set (key, value), remove (key)
//   - xml:   element (index, tag), attr (key, value), remove (index, length)
//
// # Deterministic Testing
//
// Replica client ids come from the scenario file, every step commits its own
// transaction, and sync exchanges use the state-vector handshake. Identical
// scenario files therefore produce identical traces and final renders across
// runs, which is what the golden snapshot comparison relies on.
package harness
