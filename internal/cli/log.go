package cli

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/quiltdb/quilt/internal/codec"
	"github.com/quiltdb/quilt/internal/updatelog"
)

// LogOptions holds flags shared by the log subcommands.
type LogOptions struct {
	*RootOptions
	DBPath string
	Doc    string
}

// NewLogCommand creates the log command group backed by the sqlite journal.
func NewLogCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &LogOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "log",
		Short: "Manage the sqlite update journal",
		Long:  "Append, list and replay binary update payloads stored in a sqlite journal.",
	}

	cmd.PersistentFlags().StringVar(&opts.DBPath, "db", "quilt.db", "path to the journal database")

	cmd.AddCommand(newLogAppendCommand(opts))
	cmd.AddCommand(newLogDocsCommand(opts))
	cmd.AddCommand(newLogReplayCommand(opts))

	return cmd
}

// setupLogging routes journal logs to stderr; debug level when verbose.
func setupLogging(cmd *cobra.Command, opts *LogOptions) {
	level := slog.LevelWarn
	if opts.Verbose {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
		Level: level,
	})
	slog.SetDefault(slog.New(handler))
}

func newLogAppendCommand(opts *LogOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "append <update-file>",
		Short: "Append an update payload to a document's journal",
		Long: `Validate an update payload and append it to the journal under the given
document GUID. The payload gets the next sequence number for that document.

Exit codes:
  0 - Payload appended
  2 - File missing, payload malformed, or journal unavailable

Examples:
  quilt log append update.bin --db quilt.db --doc 7b0c`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			setupLogging(cmd, opts)
			payload, err := os.ReadFile(args[0])
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to read update file", err)
			}
			if _, _, err := codec.DecodeUpdate(payload); err != nil {
				return WrapExitError(ExitCommandError, "malformed update payload", err)
			}

			log, err := updatelog.Open(opts.DBPath)
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to open journal", err)
			}
			defer log.Close()

			seq, err := log.Append(cmd.Context(), opts.Doc, payload)
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to append update", err)
			}

			out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), Verbose: opts.Verbose}
			return out.Success(
				fmt.Sprintf("appended update %d for doc %s (%d bytes)", seq, opts.Doc, len(payload)),
				map[string]any{"doc": opts.Doc, "seq": seq, "bytes": len(payload)},
			)
		},
	}
	cmd.Flags().StringVar(&opts.Doc, "doc", "", "document GUID")
	cmd.MarkFlagRequired("doc")
	return cmd
}

func newLogDocsCommand(opts *LogOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "docs",
		Short: "List documents present in the journal",
		Long: `List the GUID of every document that has at least one journaled update.

Exit codes:
  0 - Listing printed
  2 - Journal unavailable

Examples:
  quilt log docs --db quilt.db`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			setupLogging(cmd, opts)
			log, err := updatelog.Open(opts.DBPath)
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to open journal", err)
			}
			defer log.Close()

			docs, err := log.Docs(cmd.Context())
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to list documents", err)
			}

			text := fmt.Sprintf("%d documents", len(docs))
			if len(docs) > 0 {
				text += "\n  " + strings.Join(docs, "\n  ")
			}
			out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), Verbose: opts.Verbose}
			return out.Success(text, docs)
		},
	}
	return cmd
}

func newLogReplayCommand(opts *LogOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Replay a document's journal and print its state",
		Long: `Apply every journaled update for the given document GUID to a fresh
document, in sequence order, and print the final visible state of each
root container.

Exit codes:
  0 - Replay complete, no pending blocks
  1 - Some blocks are still pending after replay
  2 - Journal unavailable or a payload failed to apply

Examples:
  quilt log replay --db quilt.db --doc 7b0c`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			setupLogging(cmd, opts)
			log, err := updatelog.Open(opts.DBPath)
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to open journal", err)
			}
			defer log.Close()

			payloads, err := log.Updates(cmd.Context(), opts.Doc)
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to load updates", err)
			}
			roots, err := discoverRoots(payloads)
			if err != nil {
				return WrapExitError(ExitCommandError, "malformed journaled payload", err)
			}

			doc, err := log.Replay(cmd.Context(), opts.Doc)
			if err != nil {
				return WrapExitError(ExitCommandError, "replay failed", err)
			}
			renders, err := renderRoots(doc, roots)
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to render document", err)
			}

			result := &MergeResult{Updates: len(payloads), Pending: doc.PendingBlocks(), Roots: renders}
			text := fmt.Sprintf("replayed %d updates for doc %s\n%s", result.Updates, opts.Doc, formatRenders(renders))
			if result.Pending > 0 {
				text += fmt.Sprintf("\n%d blocks still pending", result.Pending)
			}
			out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), Verbose: opts.Verbose}
			if err := out.Success(text, result); err != nil {
				return err
			}
			if result.Pending > 0 {
				return NewExitError(ExitFailure, fmt.Sprintf("%d blocks still pending after replay", result.Pending))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&opts.Doc, "doc", "", "document GUID")
	cmd.MarkFlagRequired("doc")
	return cmd
}
