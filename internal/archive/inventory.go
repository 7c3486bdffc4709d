package archive

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"sort"
	"strconv"
	"time"

	"snapvault/internal/logging"
	"snapvault/internal/platform"
)

// DayInfo summarizes one YYYY/MM/DD partition.
type DayInfo struct {
	Date   time.Time
	Path   string
	Files  int
	Latest string
}

// Label renders the partition date as YYYY-MM-DD.
func (d DayInfo) Label() string {
	return d.Date.Format(dayLayout)
}

// ListDays returns every day partition that holds at least one archived file,
// newest first. A missing archive directory yields no days.
func ListDays(fsys platform.FS, layout Layout) ([]DayInfo, error) {
	years, err := listNumeric(fsys, layout.Dir, 4)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	var days []DayInfo
	for _, year := range years {
		yearDir := path.Join(layout.Dir, year)
		months, err := listNumeric(fsys, yearDir, 2)
		if err != nil {
			return nil, err
		}
		for _, month := range months {
			monthDir := path.Join(yearDir, month)
			dayNames, err := listNumeric(fsys, monthDir, 2)
			if err != nil {
				return nil, err
			}
			for _, day := range dayNames {
				dayDir := path.Join(monthDir, day)
				info, err := summarizeDay(fsys, layout, dayDir)
				if err != nil {
					return nil, err
				}
				if info.Files == 0 {
					continue
				}
				y, _ := strconv.Atoi(year)
				m, _ := strconv.Atoi(month)
				d, _ := strconv.Atoi(day)
				info.Date = time.Date(y, time.Month(m), d, 0, 0, 0, 0, layout.loc())
				days = append(days, info)
			}
		}
	}

	sort.Slice(days, func(i, j int) bool { return days[i].Date.After(days[j].Date) })
	return days, nil
}

func summarizeDay(fsys platform.FS, layout Layout, dayDir string) (DayInfo, error) {
	info := DayInfo{Path: dayDir}
	dir, err := fsys.OpenDir(dayDir)
	if err != nil {
		return info, fmt.Errorf("open %s: %w", dayDir, err)
	}
	defer dir.Close()

	var latest time.Time
	for {
		entry, ok, err := dir.Next()
		if err != nil {
			return info, fmt.Errorf("read %s: %w", dayDir, err)
		}
		if !ok {
			break
		}
		if entry.Type != platform.EntryFile {
			continue
		}
		stamp, ok := layout.ParseFileName(entry.Name)
		if !ok {
			continue
		}
		info.Files++
		if stamp.After(latest) {
			latest = stamp
			info.Latest = entry.Name
		}
	}
	return info, nil
}

// listNumeric returns the subdirectory names of p made of exactly width digits.
func listNumeric(fsys platform.FS, p string, width int) ([]string, error) {
	dir, err := fsys.OpenDir(p)
	if err != nil {
		return nil, err
	}
	defer dir.Close()

	var names []string
	for {
		entry, ok, err := dir.Next()
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", p, err)
		}
		if !ok {
			break
		}
		if entry.Type != platform.EntryDir || len(entry.Name) != width || !allDigits(entry.Name) {
			continue
		}
		names = append(names, entry.Name)
	}
	sort.Strings(names)
	return names, nil
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// RemoveOrphanTemp deletes a temp file left behind by an aborted capture. Its
// contents are untrusted, so it is never published.
func RemoveOrphanTemp(fsys platform.FS, layout Layout, logger *slog.Logger) (bool, error) {
	temp := layout.TempPath()
	if !fsys.Exists(temp) {
		return false, nil
	}
	if err := fsys.Delete(temp); err != nil {
		logging.WarnWithContext(logger, "orphan temp removal failed", "archive_temp_cleanup_failed",
			logging.String("path", temp),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check album_root permissions"),
			logging.String(logging.FieldImpact, "next capture will replace the temp file"),
		)
		return false, fmt.Errorf("remove %s: %w", temp, err)
	}
	if logger != nil {
		logger.Info("removed orphan temp file",
			logging.String("path", temp),
			logging.String(logging.FieldEventType, "archive_temp_cleanup"),
		)
	}
	return true, nil
}
