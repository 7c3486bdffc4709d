package archive

import (
	"fmt"
	"path"
	"strings"
	"time"

	"snapvault/internal/config"
)

const (
	fileNameLayout = "2006-01-02_15-04-05"
	dayLayout      = "2006-01-02"
)

// Layout maps capture timestamps to archive paths.
type Layout struct {
	Dir      string
	TempName string
	Ext      string
	Location *time.Location
}

// NewLayout builds the layout described by cfg.
func NewLayout(cfg *config.Config) Layout {
	return Layout{
		Dir:      cfg.Archive.Dir,
		TempName: cfg.Archive.TempName,
		Ext:      cfg.Archive.Extension,
		Location: cfg.Location(),
	}
}

func (l Layout) loc() *time.Location {
	if l.Location == nil {
		return time.Local
	}
	return l.Location
}

// TempPath is where every capture is encoded before publication.
func (l Layout) TempPath() string {
	return path.Join(l.Dir, l.TempName)
}

// DayDir returns DIR/YYYY/MM/DD for t.
func (l Layout) DayDir(t time.Time) string {
	t = t.In(l.loc())
	return path.Join(l.Dir, fmt.Sprintf("%04d", t.Year()), fmt.Sprintf("%02d", int(t.Month())), fmt.Sprintf("%02d", t.Day()))
}

// FileName returns YYYY-MM-DD_HH-MM-SS.EXT for t.
func (l Layout) FileName(t time.Time) string {
	return t.In(l.loc()).Format(fileNameLayout) + "." + l.Ext
}

// FinalPath is the published location for a capture created at t.
func (l Layout) FinalPath(t time.Time) string {
	return path.Join(l.DayDir(t), l.FileName(t))
}

// ParseFileName recovers the capture time from a published file name.
func (l Layout) ParseFileName(name string) (time.Time, bool) {
	suffix := "." + l.Ext
	if !strings.HasSuffix(strings.ToLower(name), suffix) {
		return time.Time{}, false
	}
	t, err := time.ParseInLocation(fileNameLayout, name[:len(name)-len(suffix)], l.loc())
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
