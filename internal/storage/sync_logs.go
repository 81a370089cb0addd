package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// SyncLog represents a single sync or import run's outcome.
type SyncLog struct {
	ID                int64            `json:"id"`
	RunID             uuid.UUID        `json:"run_id"`
	CreatedAt         time.Time        `json:"created_at"`
	Source            string           `json:"source"`
	Status            string           `json:"status"`
	WorkoutsProcessed int              `json:"workouts_processed"`
	ChangesApplied    int              `json:"changes_applied"`
	RoutinesUpdated   int              `json:"routines_updated"`
	RoutinesCreated   int              `json:"routines_created"`
	PullsApplied      int              `json:"pulls_applied"`
	DurationMs        *int             `json:"duration_ms"`
	ErrorMessage      *string          `json:"error_message"`
	Metadata          *json.RawMessage `json:"metadata"`
}

// InsertSyncLog creates a new sync log entry and returns its ID.
func (db *DB) InsertSyncLog(ctx context.Context, log SyncLog) (int64, error) {
	if log.RunID == uuid.Nil {
		log.RunID = uuid.New()
	}
	var id int64
	err := db.Pool.QueryRow(ctx,
		`INSERT INTO sync_logs (run_id, source, status, workouts_processed, changes_applied,
		 routines_updated, routines_created, pulls_applied, duration_ms, error_message, metadata)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		 RETURNING id`,
		log.RunID, log.Source, log.Status, log.WorkoutsProcessed, log.ChangesApplied,
		log.RoutinesUpdated, log.RoutinesCreated, log.PullsApplied,
		log.DurationMs, log.ErrorMessage, log.Metadata,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("inserting sync log: %w", err)
	}
	return id, nil
}

// UpdateSyncLog updates an existing sync log entry (typically from "running" to "success" or "error").
func (db *DB) UpdateSyncLog(ctx context.Context, id int64, log SyncLog) error {
	_, err := db.Pool.Exec(ctx,
		`UPDATE sync_logs SET
		 status = $2, workouts_processed = $3, changes_applied = $4,
		 routines_updated = $5, routines_created = $6, pulls_applied = $7,
		 duration_ms = $8, error_message = $9, metadata = $10
		 WHERE id = $1`,
		id, log.Status, log.WorkoutsProcessed, log.ChangesApplied,
		log.RoutinesUpdated, log.RoutinesCreated, log.PullsApplied,
		log.DurationMs, log.ErrorMessage, log.Metadata,
	)
	if err != nil {
		return fmt.Errorf("updating sync log %d: %w", id, err)
	}
	return nil
}

// QuerySyncLogs returns the most recent sync logs.
func (db *DB) QuerySyncLogs(ctx context.Context, limit int) ([]SyncLog, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.Pool.Query(ctx,
		`SELECT id, run_id, created_at, source, status, workouts_processed, changes_applied,
		 routines_updated, routines_created, pulls_applied, duration_ms, error_message, metadata
		 FROM sync_logs
		 ORDER BY created_at DESC
		 LIMIT $1`,
		limit)
	if err != nil {
		return nil, fmt.Errorf("querying sync logs: %w", err)
	}
	defer rows.Close()

	var result []SyncLog
	for rows.Next() {
		var l SyncLog
		if err := rows.Scan(&l.ID, &l.RunID, &l.CreatedAt, &l.Source, &l.Status,
			&l.WorkoutsProcessed, &l.ChangesApplied, &l.RoutinesUpdated, &l.RoutinesCreated,
			&l.PullsApplied, &l.DurationMs, &l.ErrorMessage, &l.Metadata); err != nil {
			return nil, fmt.Errorf("scanning sync log: %w", err)
		}
		result = append(result, l)
	}
	return result, rows.Err()
}
