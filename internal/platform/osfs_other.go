//go:build !linux

package platform

import "time"

func creationTime(host string) (time.Time, error) {
	return time.Time{}, ErrTimestampUnavailable
}

func renameNoReplace(from, to string) error {
	return checkedRename(from, to)
}
