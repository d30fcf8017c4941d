// Package freshness implements the dependency-aware freshness diagnostics:
// lag classification, bounded upstream chain walks, critical path selection
// and the two report entry points built on top of them.
package freshness

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/leapstack-labs/mzfresh/internal/catalog"
	"github.com/leapstack-labs/mzfresh/internal/dag"
)

var tracer = otel.Tracer("mzfresh.freshness")

// Engine produces freshness reports from a catalog provider. It keeps no
// state between calls; every report is computed from a fresh snapshot.
type Engine struct {
	provider    catalog.Provider
	clock       catalog.Clock
	logger      *slog.Logger
	metrics     *Metrics
	maxDepth    int
	thresholdMs float64
}

// Config holds engine configuration.
type Config struct {
	// Provider supplies catalog snapshots (required)
	Provider catalog.Provider
	// Clock supplies "now" (optional, uses the system clock if nil)
	Clock catalog.Clock
	// Logger is the structured logger (optional, uses discard if nil)
	Logger *slog.Logger
	// Metrics records report activity (optional)
	Metrics *Metrics
	// MaxDepth caps chain walks when a request does not set one
	MaxDepth int
	// StalenessThresholdMs is the per-object is_stale threshold
	StalenessThresholdMs float64
}

// New creates an engine around the given collaborators.
func New(cfg Config) (*Engine, error) {
	if cfg.Provider == nil {
		return nil, errors.New("freshness engine requires a catalog provider")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	clock := cfg.Clock
	if clock == nil {
		clock = catalog.SystemClock{}
	}
	maxDepth := cfg.MaxDepth
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	thresholdMs := cfg.StalenessThresholdMs
	if thresholdMs <= 0 {
		thresholdMs = DefaultStalenessThresholdMs
	}

	return &Engine{
		provider:    cfg.Provider,
		clock:       clock,
		logger:      logger,
		metrics:     cfg.Metrics,
		maxDepth:    maxDepth,
		thresholdMs: thresholdMs,
	}, nil
}

// view is everything one report needs from a single provider read.
type view struct {
	index *catalog.Index
	graph *dag.Graph
	now   time.Time
}

func (e *Engine) load(ctx context.Context) (*view, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	snap, err := e.provider.Snapshot(ctx)
	if err != nil {
		return nil, &ProviderError{Op: "read catalog snapshot", Err: err}
	}
	now, err := e.clock.Now(ctx)
	if err != nil {
		return nil, &ProviderError{Op: "read clock", Err: err}
	}

	g := dag.FromEdges(snap.Edges)
	if cyclic, path := g.HasCycle(); cyclic {
		e.logger.Warn("dependency graph contains a cycle", "path", path)
	}

	idx := catalog.NewIndex(snap)
	e.logger.Debug("loaded catalog snapshot",
		"objects", idx.Len(),
		"edges", g.EdgeCount(),
		"now", now)

	return &view{index: idx, graph: g, now: now}, nil
}

func (e *Engine) depth(requested int) int {
	if requested > 0 {
		return requested
	}
	return e.maxDepth
}

// MonitorDataFreshness reports every user object lagging more than
// req.ThresholdSeconds, together with the upstream chain and critical path
// edges of each.
func (e *Engine) MonitorDataFreshness(ctx context.Context, req MonitorRequest) (*DiagnosticReport, error) {
	started := time.Now()
	ctx, span := tracer.Start(ctx, "freshness.MonitorDataFreshness", trace.WithAttributes(
		attribute.Float64("threshold_seconds", req.ThresholdSeconds),
		attribute.String("schema", req.Schema),
		attribute.String("cluster", req.Cluster),
	))
	defer span.End()

	if err := req.Validate(); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	v, err := e.load(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		e.metrics.observeReport(kindCatalog, outcomeError, started)
		return nil, err
	}

	report := &DiagnosticReport{
		LaggingObjects:   []LaggingObject{},
		DependencyChains: []ChainEntry{},
		CriticalPaths:    []CriticalPathEdge{},
	}

	for _, o := range v.index.Objects() {
		if !o.IsUserObject() || !matchesFilter(o, req) {
			continue
		}
		f, ok := v.index.Frontier(o.ID)
		if !ok || !f.Known() {
			continue
		}
		m := Measure(f, v.now, e.thresholdMs)
		if m.Seconds <= req.ThresholdSeconds {
			continue
		}
		report.LaggingObjects = append(report.LaggingObjects, LaggingObject{
			ObjectFreshness:  newObjectFreshness(o, f, m),
			ThresholdSeconds: req.ThresholdSeconds,
		})
	}
	sort.SliceStable(report.LaggingObjects, func(i, j int) bool {
		a, b := report.LaggingObjects[i], report.LaggingObjects[j]
		if a.LagMs != b.LagMs {
			return a.LagMs > b.LagMs
		}
		return a.ObjectID < b.ObjectID
	})

	maxDepth := e.depth(req.MaxDepth)
	probes := make([]string, 0, len(report.LaggingObjects))
	for _, lo := range report.LaggingObjects {
		probes = append(probes, lo.ObjectID)
	}
	sort.Strings(probes)

	for _, probe := range probes {
		chain := Walk(probe, v.graph, maxDepth)
		for _, step := range chain {
			report.DependencyChains = append(report.DependencyChains, newChainEntry(probe, step, v.index))
		}
		report.CriticalPaths = append(report.CriticalPaths, SelectCriticalEdges(probe, chain, v.index)...)
	}
	SortCriticalEdges(report.CriticalPaths)

	span.SetAttributes(
		attribute.Int("lagging_objects", len(report.LaggingObjects)),
		attribute.Int("critical_paths", len(report.CriticalPaths)),
	)
	e.logger.Info("catalog freshness report",
		"threshold_seconds", req.ThresholdSeconds,
		"lagging", len(report.LaggingObjects),
		"chain_entries", len(report.DependencyChains),
		"critical_paths", len(report.CriticalPaths))

	e.metrics.observeCatalog(report)
	e.metrics.observeReport(kindCatalog, outcomeOK, started)
	return report, nil
}

// ObjectDiagnostics reports the freshness of one object and of every edge in
// its upstream chain. An unknown object yields a report carrying only Error.
func (e *Engine) ObjectDiagnostics(ctx context.Context, req ObjectRequest) (*ObjectDiagnosticReport, error) {
	started := time.Now()
	schema := req.schema()
	ctx, span := tracer.Start(ctx, "freshness.ObjectDiagnostics", trace.WithAttributes(
		attribute.String("object_name", req.ObjectName),
		attribute.String("schema", schema),
	))
	defer span.End()

	if err := req.Validate(); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	v, err := e.load(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		e.metrics.observeReport(kindObject, outcomeError, started)
		return nil, err
	}

	target, ok := v.index.Resolve(req.ObjectName, schema)
	if !ok {
		e.logger.Info("object not found", "object", req.ObjectName, "schema", schema)
		e.metrics.observeReport(kindObject, outcomeNotFound, started)
		return notFoundReport(req.ObjectName, schema), nil
	}

	f, _ := v.index.Frontier(target.ID)
	own := newObjectFreshness(target, f, Measure(f, v.now, e.thresholdMs))

	chain := Walk(target.ID, v.graph, e.depth(req.MaxDepth))
	report := &ObjectDiagnosticReport{
		TargetObject:    &own,
		DependencyChain: make([]DependencyChainEntry, 0, len(chain)),
	}

	maxLag := 0.0
	stale := 0
	for _, step := range chain {
		entry := DependencyChainEntry{
			Depth:      step.Depth,
			Dependency: newChainNode(step.DependencyID, v.index, v.now, e.thresholdMs),
			Dependent:  newChainNode(step.DependentID, v.index, v.now, e.thresholdMs),
		}
		if entry.Dependency.IsStale {
			stale++
		}
		maxLag = max(maxLag, entry.Dependency.LagSeconds, entry.Dependent.LagSeconds)
		report.DependencyChain = append(report.DependencyChain, entry)
	}

	report.FreshnessSummary = FreshnessSummary{
		TotalDependencies:      len(report.DependencyChain),
		StaleDependencies:      stale,
		MaxLagSeconds:          maxLag,
		CriticalPathLagSeconds: maxLag,
	}

	span.SetAttributes(
		attribute.String("object_id", target.ID),
		attribute.Int("dependencies", len(report.DependencyChain)),
	)
	e.logger.Info("object freshness report",
		"object_id", target.ID,
		"lag_seconds", own.LagSeconds,
		"dependencies", report.FreshnessSummary.TotalDependencies,
		"stale", stale)

	e.metrics.observeObject(report)
	e.metrics.observeReport(kindObject, outcomeOK, started)
	return report, nil
}

func matchesFilter(o catalog.Object, req MonitorRequest) bool {
	if req.Schema != "" && o.Schema != req.Schema {
		return false
	}
	if req.Cluster != "" && o.Cluster != req.Cluster {
		return false
	}
	return true
}

func newChainEntry(probe string, step ChainStep, idx *catalog.Index) ChainEntry {
	entry := ChainEntry{
		ProbeID:      probe,
		DependencyID: step.DependencyID,
		DependentID:  step.DependentID,
		Depth:        step.Depth,
	}
	if o, ok := idx.Object(step.DependencyID); ok {
		entry.DependencyName, entry.DependencyType = strPtr(o.Name), strPtr(o.Type)
	}
	if o, ok := idx.Object(step.DependentID); ok {
		entry.DependentName, entry.DependentType = strPtr(o.Name), strPtr(o.Type)
	}
	return entry
}
