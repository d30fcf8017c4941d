package commands

import (
	"context"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/mzfresh/internal/cli/output"
	"github.com/leapstack-labs/mzfresh/internal/freshness"
)

// NewObjectCommand creates the object command.
func NewObjectCommand() *cobra.Command {
	var (
		schema   string
		maxDepth int
	)

	cmd := &cobra.Command{
		Use:   "object <name>",
		Short: "Diagnose the freshness of one object and its upstream chain",
		Long: `Resolve an object by name within a schema, report its own lag, and list
every upstream dependency edge with the lag of both endpoints.

An unknown object is reported in the output, not as a failure.`,
		Example: `  # Diagnose public.orders_mv
  mzfresh object orders_mv

  # Object in another schema, shallow walk
  mzfresh object revenue --schema analytics --max-depth 3

  # Output as JSON
  mzfresh object orders_mv --output json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmdCtx, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			req := freshness.ObjectRequest{
				ObjectName: args[0],
				Schema:     schema,
				MaxDepth:   maxDepth,
			}
			return runObject(commandContext(cmd), cmdCtx, req)
		},
	}

	cmd.Flags().StringVar(&schema, "schema", freshness.DefaultSchema, "Schema to resolve the object in")
	cmd.Flags().IntVar(&maxDepth, "max-depth", 0, "Maximum upstream depth to walk (0 uses freshness.max_depth)")

	return cmd
}

func runObject(ctx context.Context, cmdCtx *CommandContext, req freshness.ObjectRequest) error {
	report, err := cmdCtx.Engine.ObjectDiagnostics(ctx, req)
	if err != nil {
		return err
	}

	recordObjectRun(ctx, cmdCtx, req, report)

	r := cmdCtx.Renderer
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(report)
	}
	if report.NotFound() {
		r.Warning(report.Error)
		return nil
	}
	renderObjectReport(r, report)
	return nil
}

// renderObjectReport writes a single-object report as text or markdown.
func renderObjectReport(r *output.Renderer, report *freshness.ObjectDiagnosticReport) {
	target := report.TargetObject

	r.Header(1, "Freshness: "+target.SchemaName+"."+target.ObjectName)
	keyValue(r, "ID", target.ObjectID)
	keyValue(r, "Type", output.FormatLabel(target.ObjectType))
	keyValue(r, "Cluster", output.FormatOptional(target.ClusterName))
	keyValue(r, "Write frontier", frontierLabel(target.WriteFrontier, target.WriteFrontierTime))
	keyValue(r, "Lag", output.FormatSeconds(target.LagSeconds))
	keyValue(r, "Status", staleLabel(r, target.IsStale))
	r.Println("")

	r.Header(2, "Dependency Chain")
	if len(report.DependencyChain) == 0 {
		r.Muted("No upstream dependencies")
	} else {
		rows := make([][]string, 0, len(report.DependencyChain))
		for _, e := range report.DependencyChain {
			rows = append(rows, []string{
				strconv.Itoa(e.Depth),
				objectLabel(e.Dependency.ObjectID, e.Dependency.Name),
				typeLabel(e.Dependency.Type),
				output.FormatSeconds(e.Dependency.LagSeconds),
				objectLabel(e.Dependent.ObjectID, e.Dependent.Name),
				output.FormatSeconds(e.Dependent.LagSeconds),
				staleLabel(r, e.Dependency.IsStale || e.Dependent.IsStale),
			})
		}
		r.Table([]string{"Depth", "Dependency", "Type", "Dependency Lag", "Dependent", "Dependent Lag", "Status"}, rows)
	}
	r.Println("")

	s := report.FreshnessSummary
	r.Header(2, "Summary")
	keyValue(r, "Total dependencies", strconv.Itoa(s.TotalDependencies))
	keyValue(r, "Stale dependencies", strconv.Itoa(s.StaleDependencies))
	keyValue(r, "Max lag", output.FormatSeconds(s.MaxLagSeconds))
	keyValue(r, "Critical path lag", output.FormatSeconds(s.CriticalPathLagSeconds))
}
