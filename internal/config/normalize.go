package config

import (
	"fmt"
	"os"
	"path"
	"strings"
	"time"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeArchive()
	c.normalizeCapture()
	if err := c.normalizeDuplicates(); err != nil {
		return err
	}
	c.normalizeTrigger()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	if strings.TrimSpace(c.Paths.AlbumRoot) == "" {
		if value, ok := os.LookupEnv(albumRootEnv); ok {
			c.Paths.AlbumRoot = value
		}
	}
	var err error
	if c.Paths.AlbumRoot, err = expandPath(strings.TrimSpace(c.Paths.AlbumRoot)); err != nil {
		return fmt.Errorf("paths.album_root: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(strings.TrimSpace(c.Paths.LogDir)); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(strings.TrimSpace(c.Paths.StateDir)); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeArchive() {
	c.Archive.Dir = cleanArchivePath(c.Archive.Dir, defaultArchiveDir)
	c.Archive.TempName = strings.TrimSpace(c.Archive.TempName)
	if c.Archive.TempName == "" {
		c.Archive.TempName = defaultTempName
	}
	c.Archive.Extension = normalizeExtension(c.Archive.Extension, defaultArchiveExtension)
	c.Archive.Timezone = strings.TrimSpace(c.Archive.Timezone)
}

func (c *Config) normalizeCapture() {
	c.Capture.Source = strings.ToLower(strings.TrimSpace(c.Capture.Source))
	if c.Capture.Source == "" {
		c.Capture.Source = defaultCaptureSource
	}
	c.Capture.Device = strings.TrimSpace(c.Capture.Device)
	c.Capture.Strategy = strings.ToLower(strings.TrimSpace(c.Capture.Strategy))
	if c.Capture.Strategy == "" {
		c.Capture.Strategy = defaultCaptureStrategy
	}
	if c.Capture.OpenTimeoutMS == 0 {
		c.Capture.OpenTimeoutMS = defaultOpenTimeoutMS
	}
}

func (c *Config) normalizeDuplicates() error {
	marker := strings.TrimSpace(c.Duplicates.MarkerPath)
	if marker != "" {
		expanded, err := expandPath(marker)
		if err != nil {
			return fmt.Errorf("duplicates.marker_path: %w", err)
		}
		marker = expanded
	}
	c.Duplicates.MarkerPath = marker
	c.Duplicates.Extension = normalizeExtension(c.Duplicates.Extension, defaultDuplicateExt)
	c.Duplicates.Root = cleanArchivePath(c.Duplicates.Root, defaultDuplicateRoot)
	c.Duplicates.Scope = strings.ToLower(strings.TrimSpace(c.Duplicates.Scope))
	if c.Duplicates.Scope == "" {
		c.Duplicates.Scope = defaultDuplicateScope
	}
	return nil
}

func (c *Config) normalizeTrigger() {
	c.Trigger.UdevSubsystem = strings.TrimSpace(c.Trigger.UdevSubsystem)
	c.Trigger.UdevAction = strings.ToLower(strings.TrimSpace(c.Trigger.UdevAction))
	if c.Trigger.UdevAction == "" {
		c.Trigger.UdevAction = defaultUdevAction
	}
	c.Trigger.UdevDevname = strings.TrimSpace(c.Trigger.UdevDevname)
}

func (c *Config) normalizeLogging() {
	format := strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
		c.Logging.Format = "json"
	default:
		c.Logging.Format = format
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

// loadLocation resolves Archive.Timezone; the result is cached for Location.
func (c *Config) loadLocation() error {
	if c.Archive.Timezone == "" || strings.EqualFold(c.Archive.Timezone, "local") {
		c.location = time.Local
		return nil
	}
	loc, err := time.LoadLocation(c.Archive.Timezone)
	if err != nil {
		return fmt.Errorf("archive.timezone: %w", err)
	}
	c.location = loc
	return nil
}

// cleanArchivePath produces a rooted slash path inside the album root.
func cleanArchivePath(value, fallback string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		value = fallback
	}
	return path.Clean("/" + strings.TrimLeft(value, "/"))
}

func normalizeExtension(value, fallback string) string {
	value = strings.ToLower(strings.TrimLeft(strings.TrimSpace(value), "."))
	if value == "" {
		return fallback
	}
	return value
}
