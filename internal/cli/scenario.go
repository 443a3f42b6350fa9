package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/quiltdb/quilt/internal/harness"
)

// ScenarioResult reports the outcome of one scenario run.
type ScenarioResult struct {
	Name   string            `json:"name"`
	Trace  []string          `json:"trace"`
	Final  map[string]string `json:"final"`
	Errors []string          `json:"errors,omitempty"`
	Pass   bool              `json:"pass"`
}

// NewScenarioCommand creates the scenario command.
func NewScenarioCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scenario <file>",
		Short: "Run a YAML convergence scenario",
		Long: `Load a YAML scenario file, run its steps across in-memory replicas and
check the expectations. The trace and the final state of every touched
container on every replica are printed.

Exit codes:
  0 - All expectations held
  1 - One or more expectations failed
  2 - Scenario file missing or invalid

Examples:
  quilt scenario testdata/scenarios/concurrent-text-insert.yaml
  quilt scenario my-scenario.yaml --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			scenario, err := harness.LoadScenario(args[0])
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to load scenario", err)
			}
			result, err := harness.Run(scenario)
			if err != nil {
				return WrapExitError(ExitCommandError, "scenario run failed", err)
			}

			sr := &ScenarioResult{Name: result.Name, Pass: result.Pass(), Final: make(map[string]string)}
			for _, ev := range result.Trace {
				sr.Trace = append(sr.Trace, fmt.Sprintf("%02d %s", ev.Seq, ev.Summary))
			}
			for replica, containers := range result.Final {
				for container, render := range containers {
					sr.Final[fmt.Sprintf("replica %d %s", replica, container)] = render
				}
			}
			sr.Errors = result.Errors

			text := strings.TrimRight(string(result.Snapshot()), "\n")
			if !sr.Pass {
				text += "\nfailed expectations:"
				for _, e := range result.Errors {
					text += "\n  " + e
				}
			}

			out := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout(), Verbose: rootOpts.Verbose}
			if err := out.Success(text, sr); err != nil {
				return err
			}
			if !sr.Pass {
				return NewExitError(ExitFailure, fmt.Sprintf("%d expectations failed", len(result.Errors)))
			}
			return nil
		},
	}
	return cmd
}
