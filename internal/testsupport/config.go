package testsupport

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"snapvault/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// Archive names use UTC so expectations do not depend on the host zone, and
// the capture source is the synthetic pattern at a small size.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.AlbumRoot = filepath.Join(base, "album")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Duplicates.MarkerPath = filepath.Join(base, "allow_jpegs")
	cfgVal.Archive.Timezone = "UTC"
	cfgVal.Capture.Source = config.SourcePattern
	cfgVal.Capture.Width = 32
	cfgVal.Capture.Height = 24

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	if err := cfgVal.Validate(); err != nil {
		t.Fatalf("test config invalid: %v", err)
	}
	if err := cfgVal.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	return builder.cfg
}

// WithDimensions overrides the capture geometry.
func WithDimensions(width, height int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Capture.Width = width
		b.cfg.Capture.Height = height
	}
}

// WithStrategy selects the capture strategy.
func WithStrategy(strategy string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Capture.Strategy = strategy
	}
}

// WithDuplicateScope selects the resolver scope.
func WithDuplicateScope(scope string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Duplicates.Scope = scope
	}
}

// WithKeepMarker creates the marker file that keeps duplicates.
func WithKeepMarker() ConfigOption {
	return func(b *configBuilder) {
		if err := os.WriteFile(b.cfg.Duplicates.MarkerPath, nil, 0o644); err != nil {
			b.t.Fatalf("write marker: %v", err)
		}
	}
}

// WithRawDevice points the raw source at path.
func WithRawDevice(path string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Capture.Source = config.SourceRaw
		b.cfg.Capture.Device = path
	}
}

// WithOpenTimeout overrides the source handshake budget.
func WithOpenTimeout(d time.Duration) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Capture.OpenTimeoutMS = int(d / time.Millisecond)
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.AlbumRoot)
}
