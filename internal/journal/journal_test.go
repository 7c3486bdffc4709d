package journal_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"snapvault/internal/capture"
	"snapvault/internal/journal"
	"snapvault/internal/resolver"
	"snapvault/internal/services"
	"snapvault/internal/testsupport"
)

func published(id string, created time.Time) capture.Result {
	return capture.Result{
		ID:              id,
		Strategy:        "rows",
		State:           capture.StatePublished,
		Rows:            24,
		Bytes:           512,
		OpenedAt:        created,
		Created:         created,
		TimestampSource: "platform",
		Final:           "/PNGs/2024/05/01/2024-05-01_12-30-45.png",
		Duration:        150 * time.Millisecond,
	}
}

func TestRecordAndRecent(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenJournal(t, cfg)
	ctx := context.Background()
	created := time.Date(2024, 5, 1, 12, 30, 45, 0, time.UTC)

	ok := published("a", created)
	ok.Eviction = &resolver.Result{Found: true, Deleted: true, Path: "/Camera/x.jpg"}
	if err := store.Record(ctx, ok, "interval"); err != nil {
		t.Fatalf("Record: %v", err)
	}
	failed := capture.Result{
		ID:       "b",
		Strategy: "rows",
		State:    capture.StateAborted,
		FailedIn: capture.StateRowsWriting,
		Failure:  services.FailureSinkIO,
		Err:      services.Wrap(services.ErrSinkIO, "capture", "write row", "row 3", nil),
		Rows:     3,
	}
	if err := store.Record(ctx, failed, "cli"); err != nil {
		t.Fatalf("Record: %v", err)
	}

	entries, err := store.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].ID != "b" || entries[1].ID != "a" {
		t.Fatalf("expected newest first, got %s, %s", entries[0].ID, entries[1].ID)
	}
	if entries[0].FailedIn != "rows_writing" || entries[0].Failure != services.FailureSinkIO {
		t.Fatalf("unexpected failure fields: %+v", entries[0])
	}
	if entries[0].ErrorMessage == "" || entries[0].Published() {
		t.Fatalf("aborted entry should carry an error message: %+v", entries[0])
	}
	got := entries[1]
	if !got.Published() || !got.Created.Equal(created) || got.FinalPath != ok.Final {
		t.Fatalf("published entry mismatch: %+v", got)
	}
	if got.EvictedPath != "/Camera/x.jpg" || got.Duration != 150*time.Millisecond || got.Trigger != "interval" {
		t.Fatalf("published entry details mismatch: %+v", got)
	}

	limited, err := store.Recent(ctx, 1)
	if err != nil || len(limited) != 1 {
		t.Fatalf("Recent limit: %v, %d", err, len(limited))
	}
}

func TestSummary(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenJournal(t, cfg)
	ctx := context.Background()

	empty, err := store.Summary(ctx)
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}
	if empty.Total != 0 || !empty.LastPublished.IsZero() {
		t.Fatalf("expected empty summary, got %+v", empty)
	}

	first := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	second := first.Add(time.Hour)
	results := []capture.Result{
		published("p1", first),
		{ID: "f1", Strategy: "rows", State: capture.StateAborted, Failure: services.FailureSourceUnavailable},
		published("p2", second),
		{ID: "f2", Strategy: "rows", State: capture.StateAborted, Failure: services.FailureSourceUnavailable},
		{ID: "f3", Strategy: "frame", State: capture.StateAborted, Failure: services.FailurePublication},
	}
	results[2].Eviction = &resolver.Result{Found: true, Deleted: true, Path: "/a.jpg"}
	for _, res := range results {
		if err := store.Record(ctx, res, "test"); err != nil {
			t.Fatalf("Record %s: %v", res.ID, err)
		}
	}

	sum, err := store.Summary(ctx)
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}
	if sum.Total != 5 || sum.Published != 2 || sum.Aborted != 3 || sum.Evicted != 1 {
		t.Fatalf("unexpected counts: %+v", sum)
	}
	if sum.Failures[services.FailureSourceUnavailable] != 2 || sum.Failures[services.FailurePublication] != 1 {
		t.Fatalf("unexpected failure counts: %v", sum.Failures)
	}
	if !sum.LastPublished.Equal(second) {
		t.Fatalf("last published = %v", sum.LastPublished)
	}
}

func TestRecordRejectsDuplicateAndMissingID(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenJournal(t, cfg)
	ctx := context.Background()

	if err := store.Record(ctx, capture.Result{}, "cli"); err == nil {
		t.Fatal("expected error for empty id")
	}
	res := published("dup", time.Now())
	if err := store.Record(ctx, res, "cli"); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if err := store.Record(ctx, res, "cli"); err == nil {
		t.Fatal("expected primary key violation")
	}
}

func TestGetMissing(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenJournal(t, cfg)
	if _, err := store.Get(context.Background(), "nope"); !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("expected sql.ErrNoRows, got %v", err)
	}
}

func TestReopenKeepsHistory(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store, err := journal.Open(cfg)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := store.Record(context.Background(), published("keep", time.Now()), "cli"); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened := testsupport.MustOpenJournal(t, cfg)
	entry, err := reopened.Get(context.Background(), "keep")
	if err != nil {
		t.Fatalf("Get after reopen: %v", err)
	}
	if entry.Trigger != "cli" {
		t.Fatalf("trigger = %q", entry.Trigger)
	}
}

func TestOpenRejectsNewerJournal(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenJournal(t, cfg)
	if err := store.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	db, err := sql.Open("sqlite", cfg.JournalPath())
	if err != nil {
		t.Fatalf("open raw db: %v", err)
	}
	if _, err := db.Exec("PRAGMA user_version = 99"); err != nil {
		t.Fatalf("bump version: %v", err)
	}
	db.Close()

	if _, err := journal.Open(cfg); !errors.Is(err, journal.ErrSchemaMismatch) {
		t.Fatalf("expected ErrSchemaMismatch, got %v", err)
	}
}
