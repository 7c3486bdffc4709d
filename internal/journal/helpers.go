package journal

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

func scanEntry(scanner interface{ Scan(dest ...any) error }) (Entry, error) {
	var (
		e           Entry
		failedIn    sql.NullString
		failure     sql.NullString
		errMsg      sql.NullString
		openedRaw   sql.NullString
		createdRaw  sql.NullString
		tsSource    sql.NullString
		final       sql.NullString
		durationMS  int64
		evicted     sql.NullString
		evictErr    sql.NullString
		recordedRaw string
	)
	if err := scanner.Scan(
		&e.ID,
		&e.Trigger,
		&e.Strategy,
		&e.State,
		&failedIn,
		&failure,
		&errMsg,
		&e.Rows,
		&e.Bytes,
		&openedRaw,
		&createdRaw,
		&tsSource,
		&final,
		&durationMS,
		&evicted,
		&evictErr,
		&recordedRaw,
	); err != nil {
		return Entry{}, err
	}
	e.FailedIn = failedIn.String
	e.Failure = failure.String
	e.ErrorMessage = errMsg.String
	e.TimestampSource = tsSource.String
	e.FinalPath = final.String
	e.Duration = time.Duration(durationMS) * time.Millisecond
	e.EvictedPath = evicted.String
	e.EvictionError = evictErr.String
	if openedRaw.Valid {
		if t, err := parseTimeString(openedRaw.String); err == nil {
			e.OpenedAt = t
		}
	}
	if createdRaw.Valid {
		if t, err := parseTimeString(createdRaw.String); err == nil {
			e.Created = t
		}
	}
	t, err := parseTimeString(recordedRaw)
	if err != nil {
		return Entry{}, fmt.Errorf("parse recorded_at for %s: %w", e.ID, err)
	}
	e.RecordedAt = t
	return e, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableTime(value time.Time) any {
	if value.IsZero() {
		return nil
	}
	return value.UTC().Format(time.RFC3339Nano)
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	return time.Parse(time.RFC3339Nano, value)
}
