package db

import (
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/japaniel/biblespeak/pkg/dataset"
)

// DBExecutor is an interface that allows methods to accept either *sql.DB or *sql.Tx
type DBExecutor interface {
	Exec(query string, args ...interface{}) (sql.Result, error)
	Query(query string, args ...interface{}) (*sql.Rows, error)
	QueryRow(query string, args ...interface{}) *sql.Row
}

// StartRun records a new running run and returns its id.
func StartRun(db DBExecutor, component string) (string, error) {
	component = strings.TrimSpace(component)
	if component == "" {
		return "", fmt.Errorf("component must be non-empty")
	}
	id := uuid.NewString()
	_, err := db.Exec(`INSERT INTO runs (id, component, started_at, status) VALUES (?, ?, ?, ?)`,
		id, component, time.Now().UTC(), StatusRunning)
	if err != nil {
		return "", fmt.Errorf("insert run: %w", err)
	}
	return id, nil
}

// FinishRun stores the outcome of a run started with StartRun.
func FinishRun(db DBExecutor, id string, o Outcome) error {
	if o.Status == "" {
		o.Status = StatusOK
	}
	res, err := db.Exec(`UPDATE runs SET
		finished_at = ?, status = ?, auto_count = ?, manual_count = ?,
		error_count = ?, warning_count = ?, auto_digest = ?, manual_digest = ?, message = ?
		WHERE id = ?`,
		time.Now().UTC(), o.Status, o.AutoCount, o.ManualCount,
		o.ErrorCount, o.WarningCount, nullableString(o.AutoDigest), nullableString(o.ManualDigest), nullableString(o.Message),
		id)
	if err != nil {
		return fmt.Errorf("update run: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("run %s not found", id)
	}
	return nil
}

// SnapshotDataset replaces the stored entries of one dataset kind with entries.
// Rows are upserted by (dataset, name); names no longer present are removed.
func SnapshotDataset(conn *sql.DB, kind, runID string, entries map[string]dataset.Entry) (int, error) {
	if kind != DatasetAuto && kind != DatasetManual {
		return 0, fmt.Errorf("unknown dataset kind %q", kind)
	}

	tx, err := conn.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	names := make([]string, 0, len(entries))
	for name := range entries {
		names = append(names, name)
	}
	sort.Strings(names)

	now := time.Now().UTC()
	for _, name := range names {
		e := entries[name]
		_, err := tx.Exec(`INSERT INTO pronunciations (dataset, name, pronunciation, link, run_id, updated_at)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT(dataset, name) DO UPDATE SET
			  pronunciation = excluded.pronunciation,
			  link = excluded.link,
			  run_id = excluded.run_id,
			  updated_at = CASE
			    WHEN pronunciations.pronunciation = excluded.pronunciation
			     AND IFNULL(pronunciations.link, '') = IFNULL(excluded.link, '')
			    THEN pronunciations.updated_at
			    ELSE excluded.updated_at
			  END`,
			kind, name, e.Pronunciation, nullableString(e.Link), runID, now)
		if err != nil {
			return 0, fmt.Errorf("upsert %s entry %q: %w", kind, name, err)
		}
	}

	if _, err := tx.Exec(`DELETE FROM pronunciations WHERE dataset = ? AND run_id IS NOT ?`, kind, runID); err != nil {
		return 0, fmt.Errorf("prune %s entries: %w", kind, err)
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return len(names), nil
}

// CountEntries returns the number of snapshot rows for a dataset kind.
func CountEntries(db DBExecutor, kind string) (int, error) {
	var n int
	err := db.QueryRow(`SELECT COUNT(*) FROM pronunciations WHERE dataset = ?`, kind).Scan(&n)
	return n, err
}

// ListRuns returns the most recent runs, newest first.
func ListRuns(db DBExecutor, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := db.Query(`SELECT id, component, started_at, finished_at, status,
		auto_count, manual_count, error_count, warning_count, auto_digest, manual_digest, message
		FROM runs ORDER BY started_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var r Run
		var finished sql.NullTime
		var autoDigest, manualDigest, msg sql.NullString
		if err := rows.Scan(&r.ID, &r.Component, &r.StartedAt, &finished, &r.Status,
			&r.AutoCount, &r.ManualCount, &r.ErrorCount, &r.WarningCount,
			&autoDigest, &manualDigest, &msg); err != nil {
			return nil, err
		}
		if finished.Valid {
			r.FinishedAt = finished.Time
		}
		r.AutoDigest = autoDigest.String
		r.ManualDigest = manualDigest.String
		r.Message = msg.String
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// nullableString returns nil for "" else the value.
func nullableString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
