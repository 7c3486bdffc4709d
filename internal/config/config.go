package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains host directories used by the CLI and daemon.
type Paths struct {
	// AlbumRoot is the host directory that backs the archive filesystem ("/").
	AlbumRoot string `toml:"album_root"`
	LogDir    string `toml:"log_dir"`
	// StateDir holds the capture journal and lock files.
	StateDir string `toml:"state_dir"`
}

// Archive describes the published archive layout inside the album root.
type Archive struct {
	Dir       string `toml:"dir"`
	TempName  string `toml:"temp_name"`
	Extension string `toml:"extension"`
	// Timezone names the IANA zone used for archive names; empty means local time.
	Timezone string `toml:"timezone"`
}

// Capture contains frame source and encoder settings.
type Capture struct {
	Source           string `toml:"source"`
	Device           string `toml:"device"`
	Width            int    `toml:"width"`
	Height           int    `toml:"height"`
	OpenTimeoutMS    int    `toml:"open_timeout_ms"`
	CompressionLevel int    `toml:"compression_level"`
	Strategy         string `toml:"strategy"`
}

// Duplicates configures nearest-timestamp eviction of companion files.
type Duplicates struct {
	// MarkerPath is the marker file whose presence keeps duplicates.
	MarkerPath string `toml:"marker_path"`
	Extension  string `toml:"extension"`
	Root       string `toml:"root"`
	Scope      string `toml:"scope"`
}

// Trigger configures what starts a capture in the daemon.
type Trigger struct {
	IntervalSeconds int    `toml:"interval_seconds"`
	UdevEnabled     bool   `toml:"udev_enabled"`
	UdevSubsystem   string `toml:"udev_subsystem"`
	UdevAction      string `toml:"udev_action"`
	UdevDevname     string `toml:"udev_devname"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Config encapsulates all configuration values for snapvault.
//
// Configuration sections by subsystem:
//   - Paths: album root, logs, and state directories
//   - Archive: archive directory, temp name, extension, timezone
//   - Capture: frame source, dimensions, encoder strategy
//   - Duplicates: marker file and eviction scope
//   - Trigger: interval and udev triggers for the daemon
//   - Logging: log format, level, and retention
type Config struct {
	Paths      Paths      `toml:"paths"`
	Archive    Archive    `toml:"archive"`
	Capture    Capture    `toml:"capture"`
	Duplicates Duplicates `toml:"duplicates"`
	Trigger    Trigger    `toml:"trigger"`
	Logging    Logging    `toml:"logging"`

	location *time.Location
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("snapvault.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the host directories required for daemon operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.AlbumRoot, c.Paths.LogDir, c.Paths.StateDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// Location returns the zone used to derive archive names.
func (c *Config) Location() *time.Location {
	if c.location != nil {
		return c.location
	}
	return time.Local
}

// OpenTimeout returns the frame source handshake budget.
func (c *Config) OpenTimeout() time.Duration {
	return time.Duration(c.Capture.OpenTimeoutMS) * time.Millisecond
}

// JournalPath is the SQLite capture journal location.
func (c *Config) JournalPath() string {
	return filepath.Join(c.Paths.StateDir, "journal.db")
}

// DaemonLockPath guards against a second daemon instance.
func (c *Config) DaemonLockPath() string {
	return filepath.Join(c.Paths.StateDir, "snapvaultd.lock")
}

// DaemonPIDPath records the running daemon's process ID.
func (c *Config) DaemonPIDPath() string {
	return filepath.Join(c.Paths.StateDir, "snapvaultd.pid")
}

// CaptureLockPath serializes captures between the daemon and CLI.
func (c *Config) CaptureLockPath() string {
	return filepath.Join(c.Paths.StateDir, "capture.lock")
}

// MarkerFlag reports whether the marker file exists. A missing file is not an error.
func MarkerFlag(path string) (bool, error) {
	if strings.TrimSpace(path) == "" {
		return false, nil
	}
	_, err := os.Stat(path)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	default:
		return false, fmt.Errorf("stat marker %q: %w", path, err)
	}
}

// EvictDuplicates reads the marker once and reports whether duplicate eviction
// should run. The marker present means duplicates are kept.
func (c *Config) EvictDuplicates() (bool, error) {
	keep, err := MarkerFlag(c.Duplicates.MarkerPath)
	if err != nil {
		return false, err
	}
	return !keep, nil
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && pathValue[1] == '/' {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	absolute, err := filepath.Abs(filepath.Clean(pathValue))
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", pathValue, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
