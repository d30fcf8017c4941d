package adapter

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// BaseSQLAdapter provides common database/sql functionality for adapters.
// Embed this struct in concrete adapter implementations to get standard
// Close and query helpers.
type BaseSQLAdapter struct {
	DB     *sql.DB
	Cfg    Config
	Logger *slog.Logger
}

// Close closes the database connection.
func (b *BaseSQLAdapter) Close() error {
	if b.DB != nil {
		if b.Logger != nil {
			b.Logger.Debug("closing database connection")
		}
		return b.DB.Close()
	}
	return nil
}

// IsConnected returns true if the database connection is established.
func (b *BaseSQLAdapter) IsConnected() bool {
	return b.DB != nil
}

// withTimeout applies the configured query timeout to ctx.
func (b *BaseSQLAdapter) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if b.Cfg.QueryTimeout > 0 {
		return context.WithTimeout(ctx, b.Cfg.QueryTimeout)
	}
	return context.WithCancel(ctx)
}

// queryEach runs query and calls scan for every row.
func (b *BaseSQLAdapter) queryEach(ctx context.Context, what, query string, scan func(*sql.Rows) error) error {
	if b.DB == nil {
		return ErrNotConnected
	}

	rows, err := b.DB.QueryContext(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to query %s: %w", what, err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		if err := scan(rows); err != nil {
			return fmt.Errorf("failed to scan %s: %w", what, err)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating %s: %w", what, err)
	}
	return nil
}
