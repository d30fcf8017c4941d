package commands

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/leapstack-labs/mzfresh/internal/freshness"
	"github.com/leapstack-labs/mzfresh/internal/state"
)

// recordCatalogRun stores a catalog report when history is enabled.
// Failures are logged and never fail the command.
func recordCatalogRun(ctx context.Context, cmdCtx *CommandContext, req freshness.MonitorRequest, report *freshness.DiagnosticReport) {
	maxLag := 0.0
	for _, o := range report.LaggingObjects {
		maxLag = max(maxLag, o.LagSeconds)
	}
	record(ctx, cmdCtx, &state.Run{
		Kind:          state.RunKindCatalog,
		Subject:       monitorSubject(req),
		LaggingCount:  len(report.LaggingObjects),
		MaxLagSeconds: maxLag,
	}, report)
}

// recordObjectRun stores an object report when history is enabled.
func recordObjectRun(ctx context.Context, cmdCtx *CommandContext, req freshness.ObjectRequest, report *freshness.ObjectDiagnosticReport) {
	schema := req.Schema
	if schema == "" {
		schema = freshness.DefaultSchema
	}
	run := &state.Run{
		Kind:    state.RunKindObject,
		Subject: schema + "." + req.ObjectName,
		Error:   report.Error,
	}
	if !report.NotFound() {
		run.LaggingCount = report.FreshnessSummary.StaleDependencies
		run.MaxLagSeconds = report.FreshnessSummary.MaxLagSeconds
	}
	record(ctx, cmdCtx, run, report)
}

func record(ctx context.Context, cmdCtx *CommandContext, run *state.Run, report any) {
	if cmdCtx.Store == nil {
		return
	}
	data, err := json.Marshal(report)
	if err != nil {
		cmdCtx.Logger.Warn("failed to encode report for history", "error", err)
		return
	}
	run.Report = data
	run.Provider = cmdCtx.Cfg.Provider.Type

	if err := cmdCtx.Store.RecordRun(ctx, run); err != nil {
		cmdCtx.Logger.Warn("failed to record run", "error", err)
		return
	}
	cmdCtx.Logger.Debug("recorded run", "id", run.ID, "kind", run.Kind)
}

// monitorSubject describes the filters of a catalog report.
func monitorSubject(req freshness.MonitorRequest) string {
	parts := []string{}
	if req.Schema != "" {
		parts = append(parts, "schema="+req.Schema)
	}
	if req.Cluster != "" {
		parts = append(parts, "cluster="+req.Cluster)
	}
	if len(parts) == 0 {
		return "*"
	}
	return strings.Join(parts, " ")
}
