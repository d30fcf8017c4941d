package adapter

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" database/sql driver
	"golang.org/x/sync/errgroup"

	"github.com/leapstack-labs/mzfresh/internal/catalog"
)

// MaterializeType is the registered name of the Materialize adapter.
const MaterializeType = "materialize"

const objectsQuery = `
	SELECT o.id, o.name, s.name, o.type, c.name
	FROM mz_catalog.mz_objects o
	JOIN mz_catalog.mz_schemas s ON o.schema_id = s.id
	LEFT JOIN mz_catalog.mz_clusters c ON o.cluster_id = c.id
	ORDER BY o.id`

const frontiersQuery = `
	SELECT f.object_id, f.write_frontier::text
	FROM mz_internal.mz_frontiers f`

const edgesQuery = `
	SELECT d.dependency_id, d.object_id
	FROM mz_internal.mz_compute_dependencies d`

const nowQuery = `SELECT mz_now()::text`

// Materialize reads catalog snapshots from a Materialize region.
type Materialize struct {
	BaseSQLAdapter
}

// NewMaterialize creates a new Materialize adapter instance.
// If logger is nil, a discard logger is used.
func NewMaterialize(logger *slog.Logger) *Materialize {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Materialize{
		BaseSQLAdapter: BaseSQLAdapter{Logger: logger},
	}
}

// Name returns the registered adapter type.
func (m *Materialize) Name() string {
	return MaterializeType
}

// Connect opens the connection pool and verifies the server is reachable.
func (m *Materialize) Connect(ctx context.Context, cfg Config) error {
	dsn := buildMaterializeDSN(cfg)

	m.Logger.Debug("connecting to materialize",
		slog.String("application_name", applicationName(cfg)),
		slog.Int("pool_max_size", poolMax(cfg)))

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return fmt.Errorf("failed to open materialize connection: %w", err)
	}
	db.SetMaxOpenConns(poolMax(cfg))
	db.SetMaxIdleConns(poolMin(cfg))

	m.DB = db
	m.Cfg = cfg

	pingCtx, cancel := m.withTimeout(ctx)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		m.DB = nil
		return fmt.Errorf("failed to ping materialize: %w", err)
	}
	return nil
}

// Snapshot reads objects, frontiers and dependency edges concurrently.
func (m *Materialize) Snapshot(ctx context.Context) (*catalog.Snapshot, error) {
	if !m.IsConnected() {
		return nil, ErrNotConnected
	}

	ctx, cancel := m.withTimeout(ctx)
	defer cancel()

	var (
		objects   []catalog.Object
		frontiers []catalog.Frontier
		edges     []catalog.Edge
	)
	sampledAt := time.Now().UTC()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return m.queryEach(gctx, "catalog objects", objectsQuery, func(rows *sql.Rows) error {
			var o catalog.Object
			var cluster sql.NullString
			if err := rows.Scan(&o.ID, &o.Name, &o.Schema, &o.Type, &cluster); err != nil {
				return err
			}
			o.Cluster = cluster.String
			objects = append(objects, o)
			return nil
		})
	})
	g.Go(func() error {
		return m.queryEach(gctx, "write frontiers", frontiersQuery, func(rows *sql.Rows) error {
			var id string
			var raw sql.NullString
			if err := rows.Scan(&id, &raw); err != nil {
				return err
			}
			wf, err := parseFrontier(raw)
			if err != nil {
				return fmt.Errorf("object %s: %w", id, err)
			}
			frontiers = append(frontiers, catalog.Frontier{ObjectID: id, WriteFrontier: wf, SampledAt: sampledAt})
			return nil
		})
	})
	g.Go(func() error {
		return m.queryEach(gctx, "compute dependencies", edgesQuery, func(rows *sql.Rows) error {
			var e catalog.Edge
			if err := rows.Scan(&e.SourceID, &e.TargetID); err != nil {
				return err
			}
			edges = append(edges, e)
			return nil
		})
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	m.Logger.Debug("read materialize catalog",
		slog.Int("objects", len(objects)),
		slog.Int("frontiers", len(frontiers)),
		slog.Int("edges", len(edges)))

	return &catalog.Snapshot{
		Objects:   objects,
		Frontiers: frontiers,
		Edges:     edges,
		TakenAt:   sampledAt,
	}, nil
}

// Now reads mz_now() so that lag is measured in the server's time base.
func (m *Materialize) Now(ctx context.Context) (time.Time, error) {
	if !m.IsConnected() {
		return time.Time{}, ErrNotConnected
	}

	ctx, cancel := m.withTimeout(ctx)
	defer cancel()

	var raw string
	if err := m.DB.QueryRowContext(ctx, nowQuery).Scan(&raw); err != nil {
		return time.Time{}, fmt.Errorf("failed to query mz_now: %w", err)
	}
	ms, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse mz_now %q: %w", raw, err)
	}
	return time.UnixMilli(ms).UTC(), nil
}

// parseFrontier converts the text form of an mz_timestamp. NULL means the
// object has not produced data yet.
func parseFrontier(raw sql.NullString) (*uint64, error) {
	if !raw.Valid || strings.TrimSpace(raw.String) == "" {
		return nil, nil
	}
	v, err := strconv.ParseUint(strings.TrimSpace(raw.String), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid write frontier %q: %w", raw.String, err)
	}
	return &v, nil
}

// buildMaterializeDSN adds application_name to a URL-form DSN unless the
// caller already set one.
func buildMaterializeDSN(cfg Config) string {
	dsn := cfg.DSN
	if dsn == "" {
		dsn = DefaultDSN
	}

	u, err := url.Parse(dsn)
	if err != nil || (u.Scheme != "postgres" && u.Scheme != "postgresql") {
		// key=value form
		if strings.Contains(dsn, "application_name=") {
			return dsn
		}
		return dsn + " application_name=" + applicationName(cfg)
	}

	q := u.Query()
	if q.Get("application_name") == "" {
		q.Set("application_name", applicationName(cfg))
	}
	u.RawQuery = q.Encode()
	return u.String()
}

func applicationName(cfg Config) string {
	if cfg.ApplicationName == "" {
		return DefaultApplicationName
	}
	return cfg.ApplicationName
}

func poolMax(cfg Config) int {
	if cfg.PoolMaxSize <= 0 {
		return DefaultPoolMaxSize
	}
	return cfg.PoolMaxSize
}

func poolMin(cfg Config) int {
	n := cfg.PoolMinSize
	if n <= 0 {
		n = DefaultPoolMinSize
	}
	return min(n, poolMax(cfg))
}

var _ Adapter = (*Materialize)(nil)
