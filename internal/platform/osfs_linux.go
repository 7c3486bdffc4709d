//go:build linux

package platform

import (
	"errors"
	"fmt"
	"os"
	"time"

	"golang.org/x/sys/unix"
)

func creationTime(host string) (time.Time, error) {
	var stx unix.Statx_t
	err := unix.Statx(unix.AT_FDCWD, host, unix.AT_SYMLINK_NOFOLLOW, unix.STATX_BTIME, &stx)
	if err != nil {
		if errors.Is(err, unix.ENOSYS) {
			return time.Time{}, ErrTimestampUnavailable
		}
		return time.Time{}, &os.PathError{Op: "statx", Path: host, Err: err}
	}
	if stx.Mask&unix.STATX_BTIME == 0 {
		return time.Time{}, fmt.Errorf("%s: %w", host, ErrTimestampUnavailable)
	}
	return time.Unix(stx.Btime.Sec, int64(stx.Btime.Nsec)), nil
}

// renameNoReplace uses RENAME_NOREPLACE so an existing archive entry is never
// clobbered. Filesystems without renameat2 support fall back to a checked rename.
func renameNoReplace(from, to string) error {
	err := unix.Renameat2(unix.AT_FDCWD, from, unix.AT_FDCWD, to, unix.RENAME_NOREPLACE)
	if err == nil {
		return nil
	}
	if errors.Is(err, unix.ENOSYS) || errors.Is(err, unix.EINVAL) {
		return checkedRename(from, to)
	}
	return &os.LinkError{Op: "rename", Old: from, New: to, Err: err}
}
