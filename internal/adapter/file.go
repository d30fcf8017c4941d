package adapter

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/leapstack-labs/mzfresh/internal/catalog"
)

// FileType is the registered name of the YAML snapshot adapter.
const FileType = "file"

// SnapshotFile is the on-disk form of a catalog snapshot. Now pins the clock
// so that a captured snapshot reproduces the lags seen at capture time.
type SnapshotFile struct {
	Now              *time.Time `yaml:"now,omitempty"`
	catalog.Snapshot `yaml:",inline"`
}

// File serves catalog snapshots from a YAML file. The file is re-read on
// every Snapshot call so edits are picked up without reconnecting.
type File struct {
	path   string
	logger *slog.Logger
	now    *time.Time
}

// NewFile creates a new file adapter instance.
// If logger is nil, a discard logger is used.
func NewFile(logger *slog.Logger) *File {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &File{logger: logger}
}

// Name returns the registered adapter type.
func (f *File) Name() string {
	return FileType
}

// Path returns the snapshot file being served.
func (f *File) Path() string {
	return f.path
}

// Connect checks that the snapshot file can be read.
func (f *File) Connect(_ context.Context, cfg Config) error {
	if cfg.SnapshotFile == "" {
		return fmt.Errorf("file provider requires provider.snapshot_file")
	}
	f.path = cfg.SnapshotFile

	sf, err := ReadSnapshotFile(f.path)
	if err != nil {
		f.path = ""
		return err
	}
	f.now = sf.Now

	f.logger.Debug("opened snapshot file",
		slog.String("path", cfg.SnapshotFile),
		slog.Int("objects", len(sf.Objects)))
	return nil
}

// Snapshot reads the file again and returns its catalog.
func (f *File) Snapshot(ctx context.Context) (*catalog.Snapshot, error) {
	if f.path == "" {
		return nil, ErrNotConnected
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sf, err := ReadSnapshotFile(f.path)
	if err != nil {
		return nil, err
	}
	f.now = sf.Now
	return &sf.Snapshot, nil
}

// Now returns the pinned instant of the last read file, or the system time
// when the file does not pin one.
func (f *File) Now(ctx context.Context) (time.Time, error) {
	if f.now != nil {
		return f.now.UTC(), nil
	}
	return catalog.SystemClock{}.Now(ctx)
}

// Close is a no-op.
func (f *File) Close() error {
	return nil
}

// ReadSnapshotFile loads and decodes a YAML snapshot.
func ReadSnapshotFile(path string) (*SnapshotFile, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from user configuration
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot file: %w", err)
	}

	var sf SnapshotFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&sf); err != nil && err != io.EOF {
		return nil, fmt.Errorf("failed to parse snapshot file %s: %w", path, err)
	}
	return &sf, nil
}

// WriteSnapshot encodes snap as YAML, pinning now as the snapshot clock.
func WriteSnapshot(w io.Writer, snap *catalog.Snapshot, now time.Time) error {
	utc := now.UTC()
	sf := SnapshotFile{Now: &utc, Snapshot: *snap}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(&sf); err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	return enc.Close()
}

var _ Adapter = (*File)(nil)
