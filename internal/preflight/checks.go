package preflight

import (
	"context"
	"errors"
	"fmt"
	"os"

	"golang.org/x/sys/unix"

	"snapvault/internal/config"
	"snapvault/internal/daemon"
	"snapvault/internal/framesource"
	"snapvault/internal/platform"
)

const probeName = ".snapvault-btime-probe"

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckFrameSource opens the configured source and reads the first row.
func CheckFrameSource(ctx context.Context, cfg *config.Config) Result {
	const name = "Frame source"

	src, err := framesource.New(cfg.Capture.Source, cfg.Capture.Device)
	if err != nil {
		return Result{Name: name, Detail: err.Error()}
	}
	label := cfg.Capture.Source
	if cfg.Capture.Source == config.SourceRaw {
		label = cfg.Capture.Device
		if err := unix.Access(cfg.Capture.Device, unix.R_OK); err != nil {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: not readable: %v)", label, err)}
		}
	}

	desc := framesource.Descriptor{Width: cfg.Capture.Width, Height: cfg.Capture.Height}
	stream, err := src.Open(ctx, desc, cfg.OpenTimeout())
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", label, err)}
	}
	defer stream.Close()

	row := make([]byte, desc.RowBytes())
	if _, err := stream.ReadRow(0, row); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: read row 0: %v)", label, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (%s ok)", label, desc)}
}

// CheckCreationTime reports whether the filesystem at dir records file birth
// times. Without them archive names come from the stream open time and
// duplicates are matched by file name prefix. Both are supported, so the check
// only fails when the probe itself cannot run.
func CheckCreationTime(dir string) Result {
	const name = "Creation timestamps"

	fsys, err := platform.NewOSFS(dir)
	if err != nil {
		return Result{Name: name, Detail: err.Error()}
	}
	probe := "/" + probeName
	if fsys.Exists(probe) {
		_ = fsys.Delete(probe)
	}
	if err := fsys.CreateFile(probe); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("probe failed: %v", err)}
	}
	defer fsys.Delete(probe)

	if _, err := fsys.CreationTime(probe); err != nil {
		if errors.Is(err, platform.ErrTimestampUnavailable) {
			return Result{Name: name, Passed: true, Detail: "unavailable (using stream open time and file names)"}
		}
		return Result{Name: name, Detail: fmt.Sprintf("probe failed: %v", err)}
	}
	return Result{Name: name, Passed: true, Detail: "available"}
}

// CheckMarker reports the duplicate marker state the next capture will use.
func CheckMarker(cfg *config.Config) Result {
	const name = "Duplicate marker"

	keep, err := config.MarkerFlag(cfg.Duplicates.MarkerPath)
	if err != nil {
		return Result{Name: name, Detail: err.Error()}
	}
	if keep {
		return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s present (duplicates kept)", cfg.Duplicates.MarkerPath)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s absent (nearest .%s evicted)", cfg.Duplicates.MarkerPath, cfg.Duplicates.Extension)}
}

// CheckDaemon reports whether a daemon holds the instance lock. A stopped
// daemon is not a failure.
func CheckDaemon(cfg *config.Config) Result {
	const name = "Daemon"

	running, err := daemon.IsRunning(cfg)
	if err != nil {
		return Result{Name: name, Detail: err.Error()}
	}
	if running {
		return Result{Name: name, Passed: true, Detail: "running"}
	}
	return Result{Name: name, Passed: true, Detail: "stopped"}
}
