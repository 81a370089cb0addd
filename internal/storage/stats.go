package storage

import (
	"context"
	"fmt"
	"time"
)

// DataStats holds aggregate statistics about the stored progression and sync history.
type DataStats struct {
	TrackedLifts int64       `json:"tracked_lifts"`
	ByStage      []StageStat `json:"by_stage"`
	SyncRuns     int64       `json:"sync_runs"`
	FailedSyncs  int64       `json:"failed_syncs"`
	LastSync     *time.Time  `json:"last_sync"`
}

// StageStat is the number of tracked lifts at one stage.
type StageStat struct {
	Stage int   `json:"stage"`
	Count int64 `json:"count"`
}

// GetDataStats returns aggregate statistics for the stored data.
func (db *DB) GetDataStats(ctx context.Context) (*DataStats, error) {
	stats := &DataStats{}

	rows, err := db.Pool.Query(ctx,
		`SELECT stage, COUNT(*) FROM progression_state GROUP BY stage ORDER BY stage`)
	if err != nil {
		return nil, fmt.Errorf("counting stages: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			stage int16
			s     StageStat
		)
		if err := rows.Scan(&stage, &s.Count); err != nil {
			return nil, fmt.Errorf("scanning stage count: %w", err)
		}
		s.Stage = int(stage)
		stats.ByStage = append(stats.ByStage, s)
		stats.TrackedLifts += s.Count
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	err = db.Pool.QueryRow(ctx, `
		SELECT COUNT(*), COUNT(*) FILTER (WHERE status = 'error'), MAX(created_at)
		FROM sync_logs`,
	).Scan(&stats.SyncRuns, &stats.FailedSyncs, &stats.LastSync)
	if err != nil {
		return nil, fmt.Errorf("counting sync runs: %w", err)
	}

	return stats, nil
}
