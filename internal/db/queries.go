package db

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// CreateRunLog inserts a run log entry. ID and CreatedAt are assigned
// when empty.
func (db *DB) CreateRunLog(entry *RunLog) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	if !entry.Status.IsValid() {
		return fmt.Errorf("invalid run status: %q", entry.Status)
	}

	warnings, err := json.Marshal(entry.Warnings)
	if err != nil {
		return fmt.Errorf("failed to encode warnings: %w", err)
	}

	query := `INSERT INTO run_logs (id, status, message, exported_count, deleted_count, imported_count, warnings, dispatched, duration_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err = db.conn.Exec(query,
		entry.ID, string(entry.Status), entry.Message,
		entry.ExportedCount, entry.DeletedCount, entry.ImportedCount,
		string(warnings), entry.Dispatched, entry.Duration.Milliseconds(), entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create run log: %w", err)
	}

	return nil
}

// GetRunLog returns a run log by its ID.
func (db *DB) GetRunLog(id string) (*RunLog, error) {
	query := `SELECT id, status, message, exported_count, deleted_count, imported_count, warnings, dispatched, duration_ms, created_at
		FROM run_logs WHERE id = ?`
	row := db.conn.QueryRow(query, id)

	entry, err := scanRunLog(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run log: %w", err)
	}

	return entry, nil
}

// RecentRunLogs returns the most recent run logs, newest first.
func (db *DB) RecentRunLogs(limit int) ([]*RunLog, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `SELECT id, status, message, exported_count, deleted_count, imported_count, warnings, dispatched, duration_ms, created_at
		FROM run_logs ORDER BY created_at DESC LIMIT ?`
	rows, err := db.conn.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list run logs: %w", err)
	}
	defer rows.Close()

	var entries []*RunLog
	for rows.Next() {
		entry, err := scanRunLog(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run log: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate run logs: %w", err)
	}

	return entries, nil
}

// PruneRunLogs deletes entries older than the retention period and
// returns the number removed.
func (db *DB) PruneRunLogs(retention time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-retention)
	res, err := db.conn.Exec(`DELETE FROM run_logs WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to prune run logs: %w", err)
	}
	return res.RowsAffected()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRunLog(row rowScanner) (*RunLog, error) {
	entry := &RunLog{}
	var status string
	var message sql.NullString
	var warnings sql.NullString
	var durationMS int64

	err := row.Scan(&entry.ID, &status, &message,
		&entry.ExportedCount, &entry.DeletedCount, &entry.ImportedCount,
		&warnings, &entry.Dispatched, &durationMS, &entry.CreatedAt)
	if err != nil {
		return nil, err
	}

	entry.Status = RunStatus(status)
	entry.Message = message.String
	entry.Duration = time.Duration(durationMS) * time.Millisecond
	if warnings.Valid && warnings.String != "" && warnings.String != "null" {
		if err := json.Unmarshal([]byte(warnings.String), &entry.Warnings); err != nil {
			return nil, fmt.Errorf("failed to decode warnings: %w", err)
		}
	}

	return entry, nil
}
