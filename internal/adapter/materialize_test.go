package adapter

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/mzfresh/internal/testutil"
)

func newMockMaterialize(t *testing.T) (*Materialize, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	mock.MatchExpectationsInOrder(false)

	m := NewMaterialize(testutil.NewTestLogger(t))
	m.DB = db
	t.Cleanup(func() { _ = db.Close() })
	return m, mock
}

func TestBuildMaterializeDSN(t *testing.T) {
	tests := []struct {
		name     string
		config   Config
		expected string
	}{
		{
			name:     "defaults",
			config:   Config{},
			expected: "postgresql://materialize@localhost:6875/materialize?application_name=mzfresh",
		},
		{
			name:     "custom application name",
			config:   Config{DSN: "postgres://u:p@mz.example.com:6875/prod?sslmode=require", ApplicationName: "oncall"},
			expected: "postgres://u:p@mz.example.com:6875/prod?application_name=oncall&sslmode=require",
		},
		{
			name:     "application name already in dsn",
			config:   Config{DSN: "postgres://mz:6875/db?application_name=keep", ApplicationName: "ignored"},
			expected: "postgres://mz:6875/db?application_name=keep",
		},
		{
			name:     "key value form",
			config:   Config{DSN: "host=localhost port=6875 user=materialize"},
			expected: "host=localhost port=6875 user=materialize application_name=mzfresh",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, buildMaterializeDSN(tt.config))
		})
	}
}

func TestPoolSizes(t *testing.T) {
	assert.Equal(t, DefaultPoolMaxSize, poolMax(Config{}))
	assert.Equal(t, DefaultPoolMinSize, poolMin(Config{}))
	assert.Equal(t, 4, poolMax(Config{PoolMaxSize: 4}))
	assert.Equal(t, 4, poolMin(Config{PoolMinSize: 8, PoolMaxSize: 4}), "idle pool never exceeds max")
}

func TestParseFrontier(t *testing.T) {
	wf, err := parseFrontier(sql.NullString{String: "1700000000000", Valid: true})
	require.NoError(t, err)
	require.NotNil(t, wf)
	assert.Equal(t, uint64(1_700_000_000_000), *wf)

	wf, err = parseFrontier(sql.NullString{})
	require.NoError(t, err)
	assert.Nil(t, wf)

	_, err = parseFrontier(sql.NullString{String: "soon", Valid: true})
	assert.Error(t, err)
}

func TestMaterialize_Snapshot(t *testing.T) {
	m, mock := newMockMaterialize(t)

	mock.ExpectQuery("FROM mz_catalog.mz_objects").WillReturnRows(
		sqlmock.NewRows([]string{"id", "name", "schema", "type", "cluster"}).
			AddRow("u1", "orders", "public", "source", "ingest").
			AddRow("u2", "orders_mv", "public", "materialized-view", nil),
	)
	mock.ExpectQuery("FROM mz_internal.mz_frontiers").WillReturnRows(
		sqlmock.NewRows([]string{"object_id", "write_frontier"}).
			AddRow("u1", "1700000000000").
			AddRow("u2", nil),
	)
	mock.ExpectQuery("FROM mz_internal.mz_compute_dependencies").WillReturnRows(
		sqlmock.NewRows([]string{"dependency_id", "object_id"}).
			AddRow("u1", "u2"),
	)

	snap, err := m.Snapshot(context.Background())
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())

	require.Len(t, snap.Objects, 2)
	assert.Equal(t, "ingest", snap.Objects[0].Cluster)
	assert.Empty(t, snap.Objects[1].Cluster)

	require.Len(t, snap.Frontiers, 2)
	require.NotNil(t, snap.Frontiers[0].WriteFrontier)
	assert.Equal(t, uint64(1_700_000_000_000), *snap.Frontiers[0].WriteFrontier)
	assert.Nil(t, snap.Frontiers[1].WriteFrontier)

	require.Len(t, snap.Edges, 1)
	assert.Equal(t, "u1", snap.Edges[0].SourceID)
	assert.Equal(t, "u2", snap.Edges[0].TargetID)
	assert.False(t, snap.TakenAt.IsZero())
}

func TestMaterialize_SnapshotQueryError(t *testing.T) {
	m, mock := newMockMaterialize(t)

	mock.ExpectQuery("FROM mz_catalog.mz_objects").WillReturnError(errors.New("permission denied"))
	mock.ExpectQuery("FROM mz_internal.mz_frontiers").WillReturnRows(
		sqlmock.NewRows([]string{"object_id", "write_frontier"}),
	)
	mock.ExpectQuery("FROM mz_internal.mz_compute_dependencies").WillReturnRows(
		sqlmock.NewRows([]string{"dependency_id", "object_id"}),
	)

	_, err := m.Snapshot(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to query catalog objects")
	assert.Contains(t, err.Error(), "permission denied")
}

func TestMaterialize_Now(t *testing.T) {
	m, mock := newMockMaterialize(t)

	mock.ExpectQuery("SELECT mz_now").WillReturnRows(
		sqlmock.NewRows([]string{"mz_now"}).AddRow("1700000000123"),
	)

	now, err := m.Now(context.Background())
	require.NoError(t, err)
	assert.Equal(t, time.UnixMilli(1_700_000_000_123).UTC(), now)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMaterialize_NotConnected(t *testing.T) {
	m := NewMaterialize(nil)

	_, err := m.Snapshot(context.Background())
	assert.ErrorIs(t, err, ErrNotConnected)

	_, err = m.Now(context.Background())
	assert.ErrorIs(t, err, ErrNotConnected)

	assert.NoError(t, m.Close())
}

func TestMaterialize_Close(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	mock.ExpectClose()

	m := NewMaterialize(nil)
	m.DB = db
	require.NoError(t, m.Close())
	require.NoError(t, mock.ExpectationsWereMet())
}
