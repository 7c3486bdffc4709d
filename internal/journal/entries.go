package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"snapvault/internal/capture"
)

// Entry is one recorded capture.
type Entry struct {
	ID              string
	Trigger         string
	Strategy        string
	State           string
	FailedIn        string
	Failure         string
	ErrorMessage    string
	Rows            int
	Bytes           int64
	OpenedAt        time.Time
	Created         time.Time
	TimestampSource string
	FinalPath       string
	Duration        time.Duration
	EvictedPath     string
	EvictionError   string
	RecordedAt      time.Time
}

// Published reports whether the capture reached the archive.
func (e Entry) Published() bool { return e.State == capture.StatePublished.String() }

// Summary aggregates the journal.
type Summary struct {
	Total     int
	Published int
	Aborted   int
	Evicted   int
	// Failures counts aborted captures per failure label.
	Failures      map[string]int
	LastPublished time.Time
	LastFinal     string
}

const entryColumns = "id, trigger, strategy, state, failed_in, failure, error_message, rows_written, bytes_written, opened_at, created_at, timestamp_source, final_path, duration_ms, evicted_path, eviction_error, recorded_at"

// Record stores res. trigger names what started the capture.
func (s *Store) Record(ctx context.Context, res capture.Result, trigger string) error {
	if res.ID == "" {
		return errors.New("journal: capture result has no id")
	}
	var (
		failedIn  any
		errMsg    any
		evicted   any
		evictErr  any
		recorded  = s.now().UTC().Format(time.RFC3339Nano)
		durationM = res.Duration.Milliseconds()
	)
	if res.State == capture.StateAborted {
		failedIn = res.FailedIn.String()
	}
	if res.Err != nil {
		errMsg = res.Err.Error()
	}
	if res.Eviction != nil && res.Eviction.Deleted {
		evicted = res.Eviction.Path
	}
	if res.EvictionErr != nil {
		evictErr = res.EvictionErr.Error()
	}

	err := s.execWithRetry(ctx,
		`INSERT INTO captures (`+entryColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		res.ID,
		trigger,
		res.Strategy,
		res.State.String(),
		failedIn,
		nullableString(res.Failure),
		errMsg,
		res.Rows,
		res.Bytes,
		nullableTime(res.OpenedAt),
		nullableTime(res.Created),
		nullableString(res.TimestampSource),
		nullableString(res.Final),
		durationM,
		evicted,
		evictErr,
		recorded,
	)
	if err != nil {
		return fmt.Errorf("record capture %s: %w", res.ID, err)
	}
	return nil
}

// Recent returns up to limit entries, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ensureContext(ctx),
		`SELECT `+entryColumns+` FROM captures ORDER BY rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent captures: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// Get returns the entry with id, or sql.ErrNoRows.
func (s *Store) Get(ctx context.Context, id string) (Entry, error) {
	row := s.db.QueryRowContext(ensureContext(ctx), `SELECT `+entryColumns+` FROM captures WHERE id = ?`, id)
	entry, err := scanEntry(row)
	if err != nil {
		return Entry{}, err
	}
	return entry, nil
}

// Summary counts outcomes across the whole journal.
func (s *Store) Summary(ctx context.Context) (Summary, error) {
	ctx = ensureContext(ctx)
	sum := Summary{Failures: make(map[string]int)}

	rows, err := s.db.QueryContext(ctx, `SELECT state, COALESCE(failure, ''), COUNT(1) FROM captures GROUP BY state, failure`)
	if err != nil {
		return sum, fmt.Errorf("journal summary: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			state, failure string
			count          int
		)
		if err := rows.Scan(&state, &failure, &count); err != nil {
			return sum, err
		}
		sum.Total += count
		switch state {
		case capture.StatePublished.String():
			sum.Published += count
		case capture.StateAborted.String():
			sum.Aborted += count
			sum.Failures[failure] += count
		}
	}
	if err := rows.Err(); err != nil {
		return sum, err
	}

	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM captures WHERE evicted_path IS NOT NULL`).Scan(&sum.Evicted); err != nil {
		return sum, fmt.Errorf("count evictions: %w", err)
	}

	var createdRaw, final sql.NullString
	err = s.db.QueryRowContext(ctx,
		`SELECT created_at, final_path FROM captures WHERE state = ? ORDER BY rowid DESC LIMIT 1`,
		capture.StatePublished.String(),
	).Scan(&createdRaw, &final)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return sum, fmt.Errorf("last published capture: %w", err)
	default:
		if t, perr := parseTimeString(createdRaw.String); perr == nil {
			sum.LastPublished = t
		}
		sum.LastFinal = final.String
	}
	return sum, nil
}
