package catalog

import (
	"context"
	"time"
)

// Provider reads a catalog snapshot from an external store.
// Implementations own their connection pool and must honour ctx.
type Provider interface {
	Snapshot(ctx context.Context) (*Snapshot, error)
}

// Clock returns "now" in the time base of write frontiers.
type Clock interface {
	Now(ctx context.Context) (time.Time, error)
}

// ClockFunc adapts a plain function to Clock.
type ClockFunc func(ctx context.Context) (time.Time, error)

// Now calls f.
func (f ClockFunc) Now(ctx context.Context) (time.Time, error) {
	return f(ctx)
}

// SystemClock reads the local wall clock.
type SystemClock struct{}

// Now returns the current UTC time.
func (SystemClock) Now(_ context.Context) (time.Time, error) {
	return time.Now().UTC(), nil
}

// FixedClock always returns the same instant.
type FixedClock time.Time

// Now returns the fixed instant.
func (c FixedClock) Now(_ context.Context) (time.Time, error) {
	return time.Time(c), nil
}
