package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateArchive(); err != nil {
		return err
	}
	if err := c.validateCapture(); err != nil {
		return err
	}
	if err := c.validateDuplicates(); err != nil {
		return err
	}
	if err := c.validateTrigger(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validatePaths() error {
	if c.Paths.AlbumRoot == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = defaultConfigPath
		}
		return fmt.Errorf("paths.album_root is required. Set %s or edit %s (create with 'snapvault config init')", albumRootEnv, defaultPath)
	}
	if c.Paths.StateDir == "" {
		return errors.New("paths.state_dir must be set")
	}
	return nil
}

func (c *Config) validateArchive() error {
	if c.Archive.Dir == "/" {
		return errors.New("archive.dir must name a directory below the album root")
	}
	if strings.Contains(c.Archive.TempName, "/") {
		return fmt.Errorf("archive.temp_name must be a bare file name, got %q", c.Archive.TempName)
	}
	if strings.Contains(c.Archive.Extension, "/") {
		return fmt.Errorf("archive.extension is invalid: %q", c.Archive.Extension)
	}
	return c.loadLocation()
}

func (c *Config) validateCapture() error {
	switch c.Capture.Source {
	case SourceRaw:
		if c.Capture.Device == "" {
			return errors.New("capture.device must be set when capture.source is raw")
		}
	case SourcePattern:
	default:
		return fmt.Errorf("capture.source must be %q or %q, got %q", SourceRaw, SourcePattern, c.Capture.Source)
	}
	if c.Capture.Width <= 0 || c.Capture.Width > maxCaptureDimension {
		return fmt.Errorf("capture.width must be between 1 and %d", maxCaptureDimension)
	}
	if c.Capture.Height <= 0 || c.Capture.Height > maxCaptureDimension {
		return fmt.Errorf("capture.height must be between 1 and %d", maxCaptureDimension)
	}
	if c.Capture.OpenTimeoutMS < 0 || c.Capture.OpenTimeoutMS > maxOpenTimeoutMS {
		return fmt.Errorf("capture.open_timeout_ms must be between 1 and %d", maxOpenTimeoutMS)
	}
	if c.Capture.CompressionLevel < 0 || c.Capture.CompressionLevel > 9 {
		return errors.New("capture.compression_level must be between 0 and 9")
	}
	switch c.Capture.Strategy {
	case StrategyRows, StrategyFrame:
	default:
		return fmt.Errorf("capture.strategy must be %q or %q, got %q", StrategyRows, StrategyFrame, c.Capture.Strategy)
	}
	return nil
}

func (c *Config) validateDuplicates() error {
	switch c.Duplicates.Scope {
	case ScopeTree, ScopeDay:
	default:
		return fmt.Errorf("duplicates.scope must be %q or %q, got %q", ScopeTree, ScopeDay, c.Duplicates.Scope)
	}
	if c.Duplicates.Extension == c.Archive.Extension {
		return fmt.Errorf("duplicates.extension must differ from archive.extension (%q)", c.Archive.Extension)
	}
	return nil
}

func (c *Config) validateTrigger() error {
	if c.Trigger.IntervalSeconds < 0 {
		return errors.New("trigger.interval_seconds must be non-negative")
	}
	if c.Trigger.UdevEnabled {
		if c.Trigger.UdevSubsystem == "" {
			return errors.New("trigger.udev_subsystem must be set when udev triggers are enabled")
		}
		switch c.Trigger.UdevAction {
		case "add", "remove", "change":
		default:
			return fmt.Errorf("trigger.udev_action must be add, remove, or change, got %q", c.Trigger.UdevAction)
		}
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}
	if c.Logging.RetentionDays < 0 {
		return errors.New("logging.retention_days must be non-negative")
	}
	return nil
}
