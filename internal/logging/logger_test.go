package logging_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"snapvault/internal/config"
	"snapvault/internal/logging"
	"snapvault/internal/services"
)

func TestNewFromConfigWritesLogFile(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.LogDir = t.TempDir()

	logger, err := logging.NewFromConfig(&cfg)
	if err != nil {
		t.Fatalf("NewFromConfig returned error: %v", err)
	}
	logger.Info("daemon started")

	content, err := os.ReadFile(filepath.Join(cfg.Paths.LogDir, "snapvault.log"))
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(content), "daemon started") {
		t.Fatalf("expected message in log file, got %q", content)
	}
}

func TestConsoleLoggerFormatsComponentAndCapture(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "console.log")
	logger, err := logging.New(logging.Options{Format: "console", Level: "info", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	ctx := services.WithCaptureID(context.Background(), "0123456789abcdef")
	logger = logging.WithContext(ctx, logging.NewComponentLogger(logger, "capture"))
	logger.Info("capture published", logging.String("final", "/PNGs/2024/05/01/x.png"))

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	line := string(content)
	for _, want := range []string{"INFO capture [01234567] capture published", "final=/PNGs/2024/05/01/x.png"} {
		if !strings.Contains(line, want) {
			t.Fatalf("expected %q in %q", want, line)
		}
	}
	if strings.Contains(line, ".go:") {
		t.Fatalf("expected no source location at info level, got %q", line)
	}
}

func TestJSONLoggerEmitsStructuredFields(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "json.log")
	logger, err := logging.New(logging.Options{Format: "json", Level: "debug", OutputPaths: []string{logPath}, SessionID: "sess-1"})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logging.WarnWithContext(logger, "resolver skipped directory", "resolver_walk_skipped",
		logging.String("path", "/DCIM"),
		logging.Duration("elapsed", 1500*time.Millisecond),
	)

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	var payload map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(content), &payload); err != nil {
		t.Fatalf("unmarshal: %v (%q)", err, content)
	}
	if payload["level"] != "warn" {
		t.Fatalf("expected warn level, got %v", payload["level"])
	}
	if payload[logging.FieldEventType] != "resolver_walk_skipped" {
		t.Fatalf("expected event_type, got %v", payload[logging.FieldEventType])
	}
	if payload["elapsed"] != float64(1500) {
		t.Fatalf("expected duration in milliseconds, got %v", payload["elapsed"])
	}
	if payload[logging.FieldSessionID] != "sess-1" {
		t.Fatalf("expected session id, got %v", payload[logging.FieldSessionID])
	}
	if _, ok := payload[logging.FieldErrorHint]; !ok {
		t.Fatal("expected default error_hint")
	}
	if _, ok := payload[logging.FieldImpact]; !ok {
		t.Fatal("expected default impact")
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

type recordingHandler struct {
	level   slog.Level
	records *[]string
}

func (h recordingHandler) Enabled(_ context.Context, l slog.Level) bool { return l >= h.level }
func (h recordingHandler) Handle(_ context.Context, r slog.Record) error {
	*h.records = append(*h.records, r.Message)
	return nil
}
func (h recordingHandler) WithAttrs([]slog.Attr) slog.Handler { return h }
func (h recordingHandler) WithGroup(string) slog.Handler      { return h }

func TestTeeLoggerRespectsPerHandlerLevel(t *testing.T) {
	var infoRecords, errorRecords []string
	primary := slog.New(recordingHandler{level: slog.LevelInfo, records: &infoRecords})
	logger := logging.TeeLogger(primary, recordingHandler{level: slog.LevelError, records: &errorRecords})

	logger.Info("row written")
	logger.Error("sink failed", logging.Error(errors.New("disk full")))

	if len(infoRecords) != 2 {
		t.Fatalf("expected primary to receive both records, got %v", infoRecords)
	}
	if len(errorRecords) != 1 || errorRecords[0] != "sink failed" {
		t.Fatalf("expected only the error record, got %v", errorRecords)
	}
}

func TestPruneLogsKeepsRecentAndActive(t *testing.T) {
	dir := t.TempDir()
	old := filepath.Join(dir, "old.log")
	active := filepath.Join(dir, "active.log")
	recent := filepath.Join(dir, "recent.log")
	for _, p := range []string{old, active, recent} {
		if err := os.WriteFile(p, []byte("x"), 0o644); err != nil {
			t.Fatalf("write %s: %v", p, err)
		}
	}
	stale := time.Now().AddDate(0, 0, -30)
	for _, p := range []string{old, active} {
		if err := os.Chtimes(p, stale, stale); err != nil {
			t.Fatalf("chtimes: %v", err)
		}
	}

	removed := logging.PruneLogs(logging.NewNop(), 7, time.Now(), logging.RetentionTarget{Dir: dir, Pattern: "*.log", Keep: []string{active}})
	if removed != 1 {
		t.Fatalf("expected 1 removal, got %d", removed)
	}
	if _, err := os.Stat(old); !os.IsNotExist(err) {
		t.Fatalf("expected old log removed, stat err=%v", err)
	}
	for _, p := range []string{active, recent} {
		if _, err := os.Stat(p); err != nil {
			t.Fatalf("expected %s kept: %v", p, err)
		}
	}
}
