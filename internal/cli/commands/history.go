package commands

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/mzfresh/internal/cli/output"
	"github.com/leapstack-labs/mzfresh/internal/state"
)

// NewHistoryCommand creates the history command group.
func NewHistoryCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect recorded freshness reports",
		Long: `List and show reports recorded in the local state database.

Reports are recorded when record_history is enabled (--record-history or
MZFRESH_RECORD_HISTORY=true).`,
	}
	cmd.AddCommand(newHistoryListCommand(), newHistoryShowCommand())
	return cmd
}

func newHistoryListCommand() *cobra.Command {
	var (
		limit int
		kind  string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent reports, newest first",
		Example: `  mzfresh history list
  mzfresh history list --kind object --limit 5`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			switch state.RunKind(kind) {
			case "", state.RunKindCatalog, state.RunKindObject:
			default:
				return fmt.Errorf("unknown report kind %q\nHint: Use %q or %q", kind, state.RunKindCatalog, state.RunKindObject)
			}

			cmdCtx := NewCommandContextWithoutEngine(cmd)
			store, err := openStore(cmdCtx.Cfg, cmdCtx.Logger)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			runs, err := store.ListRuns(commandContext(cmd), state.RunKind(kind), limit)
			if err != nil {
				return err
			}
			return renderRunList(cmdCtx.Renderer, runs)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", state.DefaultListLimit, "Maximum number of reports to list")
	cmd.Flags().StringVar(&kind, "kind", "", "Only list reports of this kind (catalog|object)")
	_ = cmd.RegisterFlagCompletionFunc("kind", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{string(state.RunKindCatalog), string(state.RunKindObject)}, cobra.ShellCompDirectiveNoFileComp
	})

	return cmd
}

func newHistoryShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one recorded report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmdCtx := NewCommandContextWithoutEngine(cmd)
			store, err := openStore(cmdCtx.Cfg, cmdCtx.Logger)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			run, err := store.GetRun(commandContext(cmd), args[0])
			if err != nil {
				return err
			}
			return renderRun(cmdCtx.Renderer, run)
		},
	}
}

func renderRunList(r *output.Renderer, runs []*state.Run) error {
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(runs)
	}

	r.Header(1, "Report History")
	if len(runs) == 0 {
		r.Muted("No reports recorded")
		return nil
	}

	rows := make([][]string, 0, len(runs))
	for _, run := range runs {
		status := strconv.Itoa(run.LaggingCount)
		if run.Error != "" {
			status = run.Error
		}
		rows = append(rows, []string{
			run.ID,
			run.CreatedAt.Local().Format(time.DateTime),
			string(run.Kind),
			run.Subject,
			status,
			output.FormatSeconds(run.MaxLagSeconds),
		})
	}
	r.Table([]string{"ID", "Created", "Kind", "Subject", "Lagging", "Max Lag"}, rows)
	return nil
}

func renderRun(r *output.Renderer, run *state.Run) error {
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(run)
	}

	r.Header(1, "Report "+run.ID)
	keyValue(r, "Kind", string(run.Kind))
	keyValue(r, "Subject", run.Subject)
	keyValue(r, "Provider", run.Provider)
	keyValue(r, "Created", run.CreatedAt.Format(time.RFC3339))
	keyValue(r, "Lagging", strconv.Itoa(run.LaggingCount))
	keyValue(r, "Max lag", output.FormatSeconds(run.MaxLagSeconds))
	if run.Error != "" {
		keyValue(r, "Error", run.Error)
	}
	r.Println("")

	var pretty bytes.Buffer
	if err := json.Indent(&pretty, run.Report, "", "  "); err != nil {
		return fmt.Errorf("failed to format recorded report: %w", err)
	}
	r.Println(output.FormatCodeBlock("json", pretty.String()))
	return nil
}
