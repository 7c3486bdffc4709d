package archive

import (
	"errors"
	"fmt"
	"time"

	"snapvault/internal/platform"
	"snapvault/internal/services"
)

// Timestamp sources recorded on a Publication.
const (
	TimestampPlatform   = "platform"
	TimestampStreamOpen = "stream_open"
)

// Publication describes a temp file moved into the archive.
type Publication struct {
	Temp            string
	Final           string
	Created         time.Time
	TimestampSource string
}

// Publish renames the fully written temp file into its dated location. The
// name comes from the temp file's creation time; when the platform cannot
// report one, openedAt (the time the frame stream was opened) is used instead.
// A zero openedAt disables the fallback. Rename is attempted once.
func Publish(fsys platform.FS, layout Layout, openedAt time.Time) (Publication, error) {
	pub := Publication{Temp: layout.TempPath(), TimestampSource: TimestampPlatform}

	created, err := fsys.CreationTime(pub.Temp)
	if err != nil {
		if !errors.Is(err, platform.ErrTimestampUnavailable) || openedAt.IsZero() {
			return pub, services.Wrap(services.ErrPublication, "publish", "read creation time", pub.Temp, err)
		}
		created = openedAt
		pub.TimestampSource = TimestampStreamOpen
	}
	pub.Created = created

	dayDir := layout.DayDir(created)
	if err := EnsureDir(fsys, dayDir); err != nil {
		return pub, services.Wrap(services.ErrPublication, "publish", "ensure directory", dayDir,
			fmt.Errorf("%w: %w", services.ErrDirectoryCreate, err))
	}

	final := layout.FinalPath(created)
	if err := fsys.Rename(pub.Temp, final); err != nil {
		return pub, services.Wrap(services.ErrPublication, "publish", "rename", final, err)
	}
	pub.Final = final
	return pub, nil
}

// EnsureRoot creates the archive directory itself.
func EnsureRoot(fsys platform.FS, layout Layout) error {
	if err := EnsureDir(fsys, layout.Dir); err != nil {
		return services.Wrap(services.ErrDirectoryCreate, "archive", "ensure root", layout.Dir, err)
	}
	return nil
}
