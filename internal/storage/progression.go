package storage

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/meltforce/gzclp/internal/gzclp"
)

// progressionUpsert builds a batch upsert for the given states. Keys are
// sorted so the statement is deterministic.
func progressionUpsert(states map[string]gzclp.ProgressionState) (string, []any) {
	keys := make([]string, 0, len(states))
	for k := range states {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	query := `INSERT INTO progression_state (key, current_weight, stage, base_weight, amrap_record) VALUES `
	args := make([]any, 0, len(keys)*5)
	valueStrings := make([]string, 0, len(keys))

	for i, k := range keys {
		s := states[k]
		base := i * 5
		valueStrings = append(valueStrings, fmt.Sprintf("($%d,$%d,$%d,$%d,$%d)",
			base+1, base+2, base+3, base+4, base+5))
		args = append(args, k, s.CurrentWeight, int(s.Stage), s.BaseWeight, s.AmrapRecord)
	}

	query += strings.Join(valueStrings, ",") + ` ON CONFLICT (key) DO UPDATE SET
		current_weight = EXCLUDED.current_weight,
		stage = EXCLUDED.stage,
		base_weight = EXCLUDED.base_weight,
		amrap_record = GREATEST(progression_state.amrap_record, EXCLUDED.amrap_record),
		updated_at = NOW()`
	return query, args
}

// UpsertProgression writes the given states. Keys not in states are left alone.
func (db *DB) UpsertProgression(ctx context.Context, states map[string]gzclp.ProgressionState) error {
	if len(states) == 0 {
		return nil
	}
	query, args := progressionUpsert(states)
	if _, err := db.Pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("upserting progression: %w", err)
	}
	return nil
}

// LoadProgression returns all stored states keyed by progression key.
func (db *DB) LoadProgression(ctx context.Context) (map[string]gzclp.ProgressionState, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT key, current_weight, stage, base_weight, amrap_record FROM progression_state`)
	if err != nil {
		return nil, fmt.Errorf("querying progression: %w", err)
	}
	defer rows.Close()

	result := make(map[string]gzclp.ProgressionState)
	for rows.Next() {
		var (
			key   string
			s     gzclp.ProgressionState
			stage int16
		)
		if err := rows.Scan(&key, &s.CurrentWeight, &stage, &s.BaseWeight, &s.AmrapRecord); err != nil {
			return nil, fmt.Errorf("scanning progression: %w", err)
		}
		s.Stage = gzclp.Stage(stage)
		result[key] = s
	}
	return result, rows.Err()
}

// DeleteProgression removes the state for key. Missing keys are not an error.
func (db *DB) DeleteProgression(ctx context.Context, key string) error {
	if _, err := db.Pool.Exec(ctx, `DELETE FROM progression_state WHERE key = $1`, key); err != nil {
		return fmt.Errorf("deleting progression %s: %w", key, err)
	}
	return nil
}
