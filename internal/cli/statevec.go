package cli

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/quiltdb/quilt/internal/codec"
)

// StatevecEntry is one client's clock bound.
type StatevecEntry struct {
	Client uint64 `json:"client"`
	Clock  uint64 `json:"clock"`
}

// NewStatevecCommand creates the statevec command.
func NewStatevecCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "statevec <file>",
		Short: "Decode a state vector payload",
		Long: `Decode a binary state vector and print each client's clock bound.

Exit codes:
  0 - Payload decoded
  2 - File missing or payload malformed

Examples:
  quilt statevec peer.sv
  quilt statevec peer.sv --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to read state vector file", err)
			}
			sv, err := codec.DecodeStateVector(data)
			if err != nil {
				return WrapExitError(ExitCommandError, "malformed state vector", err)
			}

			entries := make([]StatevecEntry, 0, len(sv))
			for client, clock := range sv {
				entries = append(entries, StatevecEntry{Client: uint64(client), Clock: clock})
			}
			sort.Slice(entries, func(i, j int) bool { return entries[i].Client < entries[j].Client })

			var sb strings.Builder
			fmt.Fprintf(&sb, "state vector: %d clients", len(entries))
			for _, e := range entries {
				fmt.Fprintf(&sb, "\n  client %d: clock %d", e.Client, e.Clock)
			}

			out := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout(), Verbose: rootOpts.Verbose}
			return out.Success(sb.String(), entries)
		},
	}
	return cmd
}
