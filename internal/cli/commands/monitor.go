package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strconv"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/leapstack-labs/mzfresh/internal/adapter"
	"github.com/leapstack-labs/mzfresh/internal/cli/output"
	"github.com/leapstack-labs/mzfresh/internal/freshness"
)

// defaultDebounce coalesces bursts of file events in watch mode.
const defaultDebounce = 250 * time.Millisecond

// NewMonitorCommand creates the monitor command.
func NewMonitorCommand() *cobra.Command {
	var (
		threshold float64
		schema    string
		cluster   string
		maxDepth  int
		watch     bool
		debounce  time.Duration
	)

	cmd := &cobra.Command{
		Use:   "monitor",
		Short: "Report lagging objects across the catalog",
		Long: `Find every user object whose write frontier lags more than the threshold,
walk its upstream dependencies, and highlight the edges where delay accrues.

Output adapts to environment:
  - Terminal: Styled tables
  - Piped/Scripted: Markdown format (agent-friendly)`,
		Example: `  # Objects lagging more than 3 seconds
  mzfresh monitor

  # Tighter threshold, one schema
  mzfresh monitor --threshold 0.5 --schema analytics

  # Re-run whenever a snapshot file changes
  mzfresh monitor --provider file --snapshot-file catalog.yaml --watch

  # Output as JSON
  mzfresh monitor --output json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmdCtx, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			req := freshness.MonitorRequest{
				ThresholdSeconds: cmdCtx.Cfg.Freshness.ThresholdSeconds,
				Schema:           schema,
				Cluster:          cluster,
				MaxDepth:         maxDepth,
			}
			if cmd.Flags().Changed("threshold") {
				req.ThresholdSeconds = threshold
			}

			run := func() error {
				return runMonitor(commandContext(cmd), cmdCtx, req)
			}

			if !watch {
				return run()
			}

			fa, ok := cmdCtx.Adapter.(*adapter.File)
			if !ok {
				return fmt.Errorf("--watch requires the file provider\nHint: Use --provider file --snapshot-file <path>")
			}
			if err := run(); err != nil {
				return err
			}
			return watchFile(commandContext(cmd), fa.Path(), debounce, cmdCtx.Logger, func() error {
				if err := run(); err != nil {
					// keep watching; the next edit may fix the snapshot
					cmdCtx.Renderer.Error(err.Error())
				}
				return nil
			})
		},
	}

	cmd.Flags().Float64Var(&threshold, "threshold", freshness.DefaultThresholdSeconds, "Lag in seconds above which an object is reported")
	cmd.Flags().StringVar(&schema, "schema", "", "Only report objects in this schema")
	cmd.Flags().StringVar(&cluster, "cluster", "", "Only report objects on this cluster")
	cmd.Flags().IntVar(&maxDepth, "max-depth", 0, "Maximum upstream depth to walk (0 uses freshness.max_depth)")
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Re-run when the snapshot file changes (file provider)")
	cmd.Flags().DurationVar(&debounce, "debounce", defaultDebounce, "Quiet period before re-running in watch mode")

	return cmd
}

func runMonitor(ctx context.Context, cmdCtx *CommandContext, req freshness.MonitorRequest) error {
	report, err := cmdCtx.Engine.MonitorDataFreshness(ctx, req)
	if err != nil {
		return err
	}

	recordCatalogRun(ctx, cmdCtx, req, report)

	r := cmdCtx.Renderer
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(report)
	}
	renderDiagnosticReport(r, req, report)
	return nil
}

// renderDiagnosticReport writes a catalog report as text or markdown.
func renderDiagnosticReport(r *output.Renderer, req freshness.MonitorRequest, report *freshness.DiagnosticReport) {
	r.Header(1, "Data Freshness")
	keyValue(r, "Threshold", output.FormatSeconds(req.ThresholdSeconds))
	if req.Schema != "" {
		keyValue(r, "Schema", req.Schema)
	}
	if req.Cluster != "" {
		keyValue(r, "Cluster", req.Cluster)
	}
	keyValue(r, "Lagging objects", strconv.Itoa(len(report.LaggingObjects)))
	r.Println("")

	if len(report.LaggingObjects) == 0 {
		r.Success(fmt.Sprintf("No objects lagging more than %s", output.FormatSeconds(req.ThresholdSeconds)))
		return
	}

	r.Header(2, "Lagging Objects")
	rows := make([][]string, 0, len(report.LaggingObjects))
	for _, o := range report.LaggingObjects {
		rows = append(rows, []string{
			o.ObjectID,
			o.SchemaName + "." + o.ObjectName,
			output.FormatLabel(o.ObjectType),
			output.FormatOptional(o.ClusterName),
			output.FormatSeconds(o.LagSeconds),
			staleLabel(r, o.IsStale),
		})
	}
	r.Table([]string{"ID", "Object", "Type", "Cluster", "Lag", "Status"}, rows)
	r.Println("")

	r.Header(2, "Dependency Chains")
	if len(report.DependencyChains) == 0 {
		r.Muted("No upstream dependencies")
	} else {
		rows = rows[:0]
		for _, e := range report.DependencyChains {
			rows = append(rows, []string{
				e.ProbeID,
				strconv.Itoa(e.Depth),
				objectLabel(e.DependencyID, e.DependencyName),
				objectLabel(e.DependentID, e.DependentName),
			})
		}
		r.Table([]string{"Probe", "Depth", "Dependency", "Dependent"}, rows)
	}
	r.Println("")

	r.Header(2, "Critical Paths")
	if len(report.CriticalPaths) == 0 {
		r.Muted("No edges where the source leads its dependent")
		return
	}
	rows = rows[:0]
	for _, e := range report.CriticalPaths {
		rows = append(rows, []string{
			e.ProbeID,
			objectLabel(e.SourceID, e.SourceName),
			objectLabel(e.TargetID, e.TargetName),
			output.FormatSeconds(e.LagSeconds),
		})
	}
	r.Table([]string{"Probe", "Source", "Target", "Lag"}, rows)
}

// watchFile calls fn after path changes, once per quiet period. It watches
// the parent directory so editors that replace the file are still seen.
// Returns when ctx is done.
func watchFile(ctx context.Context, path string, debounce time.Duration, logger *slog.Logger, fn func() error) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	target := filepath.Clean(path)
	if err := watcher.Add(filepath.Dir(target)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", target, err)
	}
	logger.Info("watching snapshot file", "path", target)

	if debounce <= 0 {
		debounce = defaultDebounce
	}
	timer := time.NewTimer(debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			logger.Debug("snapshot file changed", "op", ev.Op.String())
			timer.Reset(debounce)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			if errors.Is(err, fsnotify.ErrEventOverflow) {
				logger.Warn("file watcher overflowed, re-running")
				timer.Reset(debounce)
				continue
			}
			return fmt.Errorf("file watcher failed: %w", err)

		case <-timer.C:
			if err := fn(); err != nil {
				return err
			}
		}
	}
}
