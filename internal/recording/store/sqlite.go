package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/smazurov/streamgate/internal/recording"
)

const ledgerSchema = `
CREATE TABLE IF NOT EXISTS recordings (
  id         INTEGER PRIMARY KEY AUTOINCREMENT,
  channel    TEXT NOT NULL,
  rule_id    TEXT NOT NULL,
  game       TEXT NOT NULL DEFAULT '',
  title      TEXT NOT NULL DEFAULT '',
  path       TEXT NOT NULL,
  status     TEXT NOT NULL,
  size_bytes INTEGER NOT NULL DEFAULT 0,
  started_at INTEGER NOT NULL,
  ended_at   INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_recordings_started ON recordings(started_at);
`

// SQLiteLedger implements recording.Ledger on a local sqlite database.
type SQLiteLedger struct {
	db *sql.DB
}

// OpenLedger opens (creating if needed) the recordings ledger at path.
func OpenLedger(path string) (*SQLiteLedger, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("ledger path is required")
	}
	dsn := path + "?_journal_mode=WAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping ledger: %w", err)
	}
	if _, err := db.Exec(ledgerSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create ledger schema: %w", err)
	}
	return &SQLiteLedger{db: db}, nil
}

// Close closes the database handle.
func (l *SQLiteLedger) Close() error {
	if l == nil || l.db == nil {
		return nil
	}
	return l.db.Close()
}

// Insert persists a new record and fills in its assigned ID.
func (l *SQLiteLedger) Insert(ctx context.Context, rec *recording.Record) error {
	if rec.Status == "" {
		rec.Status = recording.StatusRecording
	}
	if rec.StartedAt.IsZero() {
		rec.StartedAt = time.Now().UTC()
	}
	res, err := l.db.ExecContext(ctx,
		`INSERT INTO recordings (channel, rule_id, game, title, path, status, size_bytes, started_at, ended_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.Channel, rec.RuleID, rec.Game, rec.Title, rec.Path, rec.Status,
		rec.SizeBytes, rec.StartedAt.UTC().UnixMilli(), endedMillis(rec.EndedAt))
	if err != nil {
		return fmt.Errorf("insert recording: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("insert recording id: %w", err)
	}
	rec.ID = id
	return nil
}

// Finish marks a record as ended with its final status and file size.
func (l *SQLiteLedger) Finish(ctx context.Context, id int64, status string, sizeBytes int64, endedAt time.Time) error {
	res, err := l.db.ExecContext(ctx,
		`UPDATE recordings SET status = ?, size_bytes = ?, ended_at = ? WHERE id = ?`,
		status, sizeBytes, endedAt.UTC().UnixMilli(), id)
	if err != nil {
		return fmt.Errorf("finish recording %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("finish recording %d: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("finish recording %d: no such record", id)
	}
	return nil
}

// Get retrieves one record by ID.
func (l *SQLiteLedger) Get(ctx context.Context, id int64) (recording.Record, bool, error) {
	row := l.db.QueryRowContext(ctx,
		`SELECT id, channel, rule_id, game, title, path, status, size_bytes, started_at, ended_at
		 FROM recordings WHERE id = ?`, id)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return recording.Record{}, false, nil
	}
	if err != nil {
		return recording.Record{}, false, fmt.Errorf("get recording %d: %w", id, err)
	}
	return rec, true, nil
}

// List returns all records, newest first.
func (l *SQLiteLedger) List(ctx context.Context) ([]recording.Record, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT id, channel, rule_id, game, title, path, status, size_bytes, started_at, ended_at
		 FROM recordings ORDER BY started_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list recordings: %w", err)
	}
	defer rows.Close()
	return collectRecords(rows)
}

// OlderThan returns finished records that started before cutoff. Records
// still in progress are never returned, whatever their age.
func (l *SQLiteLedger) OlderThan(ctx context.Context, cutoff time.Time) ([]recording.Record, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT id, channel, rule_id, game, title, path, status, size_bytes, started_at, ended_at
		 FROM recordings WHERE started_at < ? AND status != ? ORDER BY started_at`,
		cutoff.UTC().UnixMilli(), recording.StatusRecording)
	if err != nil {
		return nil, fmt.Errorf("list old recordings: %w", err)
	}
	defer rows.Close()
	return collectRecords(rows)
}

// Delete removes a record and returns the deleted row so the caller can
// remove the file on disk.
func (l *SQLiteLedger) Delete(ctx context.Context, id int64) (recording.Record, error) {
	rec, ok, err := l.Get(ctx, id)
	if err != nil {
		return recording.Record{}, err
	}
	if !ok {
		return recording.Record{}, fmt.Errorf("delete recording %d: no such record", id)
	}
	if _, err := l.db.ExecContext(ctx, `DELETE FROM recordings WHERE id = ?`, id); err != nil {
		return recording.Record{}, fmt.Errorf("delete recording %d: %w", id, err)
	}
	return rec, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (recording.Record, error) {
	var rec recording.Record
	var started, ended int64
	if err := row.Scan(&rec.ID, &rec.Channel, &rec.RuleID, &rec.Game, &rec.Title,
		&rec.Path, &rec.Status, &rec.SizeBytes, &started, &ended); err != nil {
		return recording.Record{}, err
	}
	rec.StartedAt = time.UnixMilli(started).UTC()
	if ended != 0 {
		rec.EndedAt = time.UnixMilli(ended).UTC()
	}
	return rec, nil
}

func collectRecords(rows *sql.Rows) ([]recording.Record, error) {
	var out []recording.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan recording: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate recordings: %w", err)
	}
	return out, nil
}

func endedMillis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UTC().UnixMilli()
}
