package freshness

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/mzfresh/internal/catalog"
	"github.com/leapstack-labs/mzfresh/internal/testutil"
)

type staticProvider struct {
	snap  *catalog.Snapshot
	err   error
	calls int
}

func (p *staticProvider) Snapshot(_ context.Context) (*catalog.Snapshot, error) {
	p.calls++
	if p.err != nil {
		return nil, p.err
	}
	return p.snap, nil
}

func newTestEngine(t *testing.T, snap *catalog.Snapshot) *Engine {
	t.Helper()
	eng, err := New(Config{
		Provider: &staticProvider{snap: snap},
		Clock:    catalog.FixedClock(testNow),
		Logger:   testutil.NewTestLogger(t),
	})
	require.NoError(t, err)
	return eng
}

// Source -> ViewA -> ViewB with Source 1000ms, ViewA 500ms and ViewB 50ms behind.
func pipelineSnapshot() *catalog.Snapshot {
	return &catalog.Snapshot{
		Objects: []catalog.Object{
			{ID: "u1", Name: "source", Schema: "public", Type: "source", Cluster: "ingest"},
			{ID: "u2", Name: "view_a", Schema: "public", Type: "materialized-view", Cluster: "compute"},
			{ID: "u3", Name: "view_b", Schema: "public", Type: "materialized-view", Cluster: "compute"},
		},
		Frontiers: []catalog.Frontier{
			frontierAgo("u1", 1000*time.Millisecond),
			frontierAgo("u2", 500*time.Millisecond),
			frontierAgo("u3", 50*time.Millisecond),
		},
		Edges: []catalog.Edge{
			{SourceID: "u1", TargetID: "u2"},
			{SourceID: "u2", TargetID: "u3"},
		},
	}
}

func TestNew_RequiresProvider(t *testing.T) {
	_, err := New(Config{})
	require.Error(t, err)
}

func TestMonitorDataFreshness_Pipeline(t *testing.T) {
	eng := newTestEngine(t, pipelineSnapshot())

	report, err := eng.MonitorDataFreshness(context.Background(), MonitorRequest{ThresholdSeconds: 0.1})
	require.NoError(t, err)

	require.Len(t, report.LaggingObjects, 2)
	assert.Equal(t, "u1", report.LaggingObjects[0].ObjectID)
	assert.Equal(t, "u2", report.LaggingObjects[1].ObjectID)
	for _, lo := range report.LaggingObjects {
		assert.True(t, lo.IsStale, lo.ObjectName)
		assert.InDelta(t, 0.1, lo.ThresholdSeconds, 1e-12)
		assert.NotEqual(t, "u3", lo.ObjectID)
	}
	assert.InDelta(t, 1.0, report.LaggingObjects[0].LagSeconds, 1e-9)
	require.NotNil(t, report.LaggingObjects[0].ClusterName)
	assert.Equal(t, "ingest", *report.LaggingObjects[0].ClusterName)

	assert.Contains(t, report.DependencyChains, ChainEntry{
		ProbeID:        "u2",
		DependencyID:   "u1",
		DependentID:    "u2",
		Depth:          1,
		DependencyName: strPtr("source"),
		DependentName:  strPtr("view_a"),
		DependencyType: strPtr("source"),
		DependentType:  strPtr("materialized-view"),
	})

	// Upstream frontiers trail downstream ones here, so no edge is accruing delay.
	assert.Empty(t, report.CriticalPaths)
}

func TestMonitorDataFreshness_CriticalPathWhenDownstreamStalls(t *testing.T) {
	snap := pipelineSnapshot()
	snap.Frontiers = []catalog.Frontier{
		frontierAgo("u1", 500*time.Millisecond),
		frontierAgo("u2", 1000*time.Millisecond),
		frontierAgo("u3", 1200*time.Millisecond),
	}
	eng := newTestEngine(t, snap)

	report, err := eng.MonitorDataFreshness(context.Background(), MonitorRequest{ThresholdSeconds: 0.1})
	require.NoError(t, err)
	require.NotEmpty(t, report.CriticalPaths)

	top := report.CriticalPaths[0]
	assert.Equal(t, "u1", top.SourceID)
	assert.Equal(t, "u2", top.TargetID)
	assert.InDelta(t, 500.0, top.LagMs, 1e-9)
	assert.InDelta(t, 0.5, top.LagSeconds, 1e-9)

	for i := 1; i < len(report.CriticalPaths); i++ {
		assert.GreaterOrEqual(t, report.CriticalPaths[i-1].LagMs, report.CriticalPaths[i].LagMs)
	}
}

func TestMonitorDataFreshness_MonotonicNarrowing(t *testing.T) {
	eng := newTestEngine(t, pipelineSnapshot())

	prev := -1
	for _, threshold := range []float64{0, 0.01, 0.1, 0.5, 0.75, 1, 5} {
		report, err := eng.MonitorDataFreshness(context.Background(), MonitorRequest{ThresholdSeconds: threshold})
		require.NoError(t, err)
		if prev >= 0 {
			assert.LessOrEqual(t, len(report.LaggingObjects), prev, "threshold %v", threshold)
		}
		prev = len(report.LaggingObjects)
	}
}

func TestMonitorDataFreshness_Filters(t *testing.T) {
	snap := pipelineSnapshot()
	snap.Objects = append(snap.Objects,
		catalog.Object{ID: "s7", Name: "mz_sys", Schema: "mz_internal", Type: "source"},
		catalog.Object{ID: "u8", Name: "audit", Schema: "ops", Type: "view", Cluster: "compute"},
	)
	snap.Frontiers = append(snap.Frontiers,
		frontierAgo("s7", time.Hour),
		frontierAgo("u8", time.Hour),
	)
	eng := newTestEngine(t, snap)

	tests := []struct {
		name string
		req  MonitorRequest
		want []string
	}{
		{"no filter", MonitorRequest{ThresholdSeconds: 0.1}, []string{"u8", "u1", "u2"}},
		{"schema", MonitorRequest{ThresholdSeconds: 0.1, Schema: "ops"}, []string{"u8"}},
		{"cluster", MonitorRequest{ThresholdSeconds: 0.1, Cluster: "compute"}, []string{"u8", "u2"}},
		{"schema and cluster", MonitorRequest{ThresholdSeconds: 0.1, Schema: "public", Cluster: "ingest"}, []string{"u1"}},
		{"no match", MonitorRequest{ThresholdSeconds: 0.1, Schema: "nope"}, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			report, err := eng.MonitorDataFreshness(context.Background(), tt.req)
			require.NoError(t, err)
			got := []string{}
			for _, lo := range report.LaggingObjects {
				got = append(got, lo.ObjectID)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMonitorDataFreshness_EmptyReportSerializesArrays(t *testing.T) {
	eng := newTestEngine(t, &catalog.Snapshot{})

	report, err := eng.MonitorDataFreshness(context.Background(), NewMonitorRequest())
	require.NoError(t, err)

	b, err := json.Marshal(report)
	require.NoError(t, err)
	assert.JSONEq(t, `{"lagging_objects":[],"dependency_chains":[],"critical_paths":[]}`, string(b))
}

func TestMonitorDataFreshness_ValidationBeforeRead(t *testing.T) {
	p := &staticProvider{snap: pipelineSnapshot()}
	eng, err := New(Config{Provider: p, Clock: catalog.FixedClock(testNow)})
	require.NoError(t, err)

	_, err = eng.MonitorDataFreshness(context.Background(), MonitorRequest{ThresholdSeconds: -1})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "threshold_seconds", verr.Field)
	assert.Zero(t, p.calls)
}

func TestMonitorDataFreshness_ProviderFailure(t *testing.T) {
	boom := errors.New("connection refused")
	eng, err := New(Config{
		Provider: &staticProvider{err: boom},
		Clock:    catalog.FixedClock(testNow),
	})
	require.NoError(t, err)

	_, err = eng.MonitorDataFreshness(context.Background(), NewMonitorRequest())
	var perr *ProviderError
	require.ErrorAs(t, err, &perr)
	assert.ErrorIs(t, err, boom)
}

func TestObjectDiagnostics_ClockFailure(t *testing.T) {
	boom := errors.New("clock unavailable")
	eng, err := New(Config{
		Provider: &staticProvider{snap: pipelineSnapshot()},
		Clock: catalog.ClockFunc(func(context.Context) (time.Time, error) {
			return time.Time{}, boom
		}),
	})
	require.NoError(t, err)

	_, err = eng.ObjectDiagnostics(context.Background(), ObjectRequest{ObjectName: "view_a"})
	var perr *ProviderError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "read clock", perr.Op)
}

func TestObjectDiagnostics_Pipeline(t *testing.T) {
	eng := newTestEngine(t, pipelineSnapshot())

	report, err := eng.ObjectDiagnostics(context.Background(), ObjectRequest{ObjectName: "view_b"})
	require.NoError(t, err)
	require.False(t, report.NotFound())

	require.NotNil(t, report.TargetObject)
	assert.Equal(t, "u3", report.TargetObject.ObjectID)
	assert.False(t, report.TargetObject.IsStale)

	require.Len(t, report.DependencyChain, 2)
	first := report.DependencyChain[0]
	assert.Equal(t, 1, first.Depth)
	assert.Equal(t, "u2", first.Dependency.ObjectID)
	assert.Equal(t, "u3", first.Dependent.ObjectID)
	assert.True(t, first.Dependency.IsStale)
	assert.Equal(t, 2, report.DependencyChain[1].Depth)

	s := report.FreshnessSummary
	assert.Equal(t, 2, s.TotalDependencies)
	assert.Equal(t, 2, s.StaleDependencies)
	assert.InDelta(t, 1.0, s.MaxLagSeconds, 1e-9)
	assert.Equal(t, s.MaxLagSeconds, s.CriticalPathLagSeconds)
}

func TestObjectDiagnostics_NoDependencies(t *testing.T) {
	eng := newTestEngine(t, pipelineSnapshot())

	report, err := eng.ObjectDiagnostics(context.Background(), ObjectRequest{ObjectName: "source"})
	require.NoError(t, err)
	assert.Empty(t, report.DependencyChain)
	assert.Equal(t, FreshnessSummary{}, report.FreshnessSummary)

	b, err := json.Marshal(report)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"dependency_chain":[]`)
}

func TestObjectDiagnostics_NotFound(t *testing.T) {
	eng := newTestEngine(t, pipelineSnapshot())

	report, err := eng.ObjectDiagnostics(context.Background(), ObjectRequest{ObjectName: "missing_view"})
	require.NoError(t, err)
	assert.True(t, report.NotFound())

	b, err := json.Marshal(report)
	require.NoError(t, err)
	assert.Equal(t, `{"error":"Object 'missing_view' not found in schema 'public'"}`, string(b))
}

func TestObjectDiagnostics_SchemaScopesResolution(t *testing.T) {
	eng := newTestEngine(t, pipelineSnapshot())

	report, err := eng.ObjectDiagnostics(context.Background(), ObjectRequest{ObjectName: "view_a", Schema: "staging"})
	require.NoError(t, err)
	assert.Equal(t, "Object 'view_a' not found in schema 'staging'", report.Error)
}

func TestObjectDiagnostics_Idempotent(t *testing.T) {
	eng := newTestEngine(t, pipelineSnapshot())
	req := ObjectRequest{ObjectName: "view_b"}

	first, err := eng.ObjectDiagnostics(context.Background(), req)
	require.NoError(t, err)
	second, err := eng.ObjectDiagnostics(context.Background(), req)
	require.NoError(t, err)

	a, err := json.Marshal(first)
	require.NoError(t, err)
	b, err := json.Marshal(second)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestObjectDiagnostics_PartialData(t *testing.T) {
	snap := pipelineSnapshot()
	// u0 was dropped: it still has an edge but no metadata or frontier.
	snap.Edges = append(snap.Edges, catalog.Edge{SourceID: "u0", TargetID: "u1"})
	eng := newTestEngine(t, snap)

	report, err := eng.ObjectDiagnostics(context.Background(), ObjectRequest{ObjectName: "view_a"})
	require.NoError(t, err)
	require.Len(t, report.DependencyChain, 2)

	dropped := report.DependencyChain[1].Dependency
	assert.Equal(t, "u0", dropped.ObjectID)
	assert.Nil(t, dropped.Name)
	assert.Nil(t, dropped.WriteFrontier)
	assert.Nil(t, dropped.WriteFrontierTime)
	assert.Zero(t, dropped.LagSeconds)
	assert.False(t, dropped.IsStale)
}

func TestObjectDiagnostics_CycleRespectsDepth(t *testing.T) {
	snap := &catalog.Snapshot{
		Objects: []catalog.Object{
			{ID: "u1", Name: "a", Schema: "public", Type: "view"},
			{ID: "u2", Name: "b", Schema: "public", Type: "view"},
			{ID: "u3", Name: "c", Schema: "public", Type: "view"},
		},
		Edges: []catalog.Edge{
			{SourceID: "u1", TargetID: "u2"},
			{SourceID: "u2", TargetID: "u3"},
			{SourceID: "u3", TargetID: "u1"},
		},
	}
	eng := newTestEngine(t, snap)

	report, err := eng.ObjectDiagnostics(context.Background(), ObjectRequest{ObjectName: "a", MaxDepth: 2})
	require.NoError(t, err)
	require.Len(t, report.DependencyChain, 2)
	for _, entry := range report.DependencyChain {
		assert.LessOrEqual(t, entry.Depth, 2)
	}
}

func TestObjectDiagnostics_Validation(t *testing.T) {
	eng := newTestEngine(t, pipelineSnapshot())

	_, err := eng.ObjectDiagnostics(context.Background(), ObjectRequest{ObjectName: "  "})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "object_name", verr.Field)
}

func TestEngine_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	eng, err := New(Config{
		Provider: &staticProvider{snap: pipelineSnapshot()},
		Clock:    catalog.FixedClock(testNow),
		Metrics:  m,
	})
	require.NoError(t, err)

	_, err = eng.MonitorDataFreshness(context.Background(), MonitorRequest{ThresholdSeconds: 0.1})
	require.NoError(t, err)
	_, err = eng.ObjectDiagnostics(context.Background(), ObjectRequest{ObjectName: "missing_view"})
	require.NoError(t, err)

	assert.InDelta(t, 1.0, promtest.ToFloat64(m.reportsTotal.WithLabelValues(kindCatalog, outcomeOK)), 0)
	assert.InDelta(t, 1.0, promtest.ToFloat64(m.reportsTotal.WithLabelValues(kindObject, outcomeNotFound)), 0)
	assert.InDelta(t, 2.0, promtest.ToFloat64(m.laggingObjects), 0)
	assert.InDelta(t, 1.0, promtest.ToFloat64(m.maxLagSeconds), 1e-9)
}
