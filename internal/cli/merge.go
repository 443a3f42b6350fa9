package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/quiltdb/quilt"
)

// MergeResult is the outcome of merging update payloads into a fresh document.
type MergeResult struct {
	Updates int          `json:"updates"`
	Pending int          `json:"pending"`
	Roots   []RootRender `json:"roots"`
}

// NewMergeCommand creates the merge command.
func NewMergeCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "merge <update-file>...",
		Short: "Apply update payloads to a fresh document and print the result",
		Long: `Apply one or more binary update payloads to an empty document and print the
final visible state of every root container. Updates may be given in any
order; blocks with unmet dependencies stay pending and are reported.

Exit codes:
  0 - All updates applied
  1 - Some blocks are still pending after all updates
  2 - File missing or payload malformed

Examples:
  quilt merge a.bin b.bin
  quilt merge snapshots/*.bin --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout(), Verbose: rootOpts.Verbose}

			payloads := make([][]byte, 0, len(args))
			for _, path := range args {
				data, err := os.ReadFile(path)
				if err != nil {
					return WrapExitError(ExitCommandError, "failed to read update file", err)
				}
				payloads = append(payloads, data)
			}

			roots, err := discoverRoots(payloads)
			if err != nil {
				return WrapExitError(ExitCommandError, "malformed update payload", err)
			}

			doc := quilt.New()
			for i, payload := range payloads {
				if err := quilt.ApplyUpdate(doc, payload); err != nil {
					return WrapExitError(ExitCommandError, fmt.Sprintf("failed to apply %s", args[i]), err)
				}
				out.VerboseLog("applied %s (%d bytes)", args[i], len(payload))
			}

			renders, err := renderRoots(doc, roots)
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to render document", err)
			}

			result := &MergeResult{Updates: len(payloads), Pending: doc.PendingBlocks(), Roots: renders}
			text := fmt.Sprintf("merged %d updates\n%s", result.Updates, formatRenders(renders))
			if result.Pending > 0 {
				text += fmt.Sprintf("\n%d blocks still pending", result.Pending)
			}
			if err := out.Success(text, result); err != nil {
				return err
			}
			if result.Pending > 0 {
				return NewExitError(ExitFailure, fmt.Sprintf("%d blocks still pending after merge", result.Pending))
			}
			return nil
		},
	}
	return cmd
}
