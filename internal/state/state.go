// Package state keeps the sync CLI's local bookkeeping in SQLite: which Hevy
// workouts have already been applied and the last remote snapshot pushed
// against.
package state

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/meltforce/gzclp/internal/gzclp"
	"github.com/meltforce/gzclp/internal/preview"
	_ "modernc.org/sqlite"
)

// StateDB tracks processed workouts to avoid applying a session twice.
type StateDB struct {
	db *sql.DB
}

// OpenStateDB opens (or creates) the SQLite state database at dir/state.db.
func OpenStateDB(dir string) (*StateDB, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating state dir %s: %w", dir, err)
	}

	dbPath := filepath.Join(dir, "state.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening state db: %w", err)
	}

	for _, stmt := range []string{
		`CREATE TABLE IF NOT EXISTS processed_workouts (
			workout_id   TEXT PRIMARY KEY,
			started_at   INTEGER NOT NULL,
			processed_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS snapshots (
			id       INTEGER PRIMARY KEY CHECK (id = 1),
			hash     TEXT NOT NULL,
			data     TEXT NOT NULL,
			saved_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
	} {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("creating state tables: %w", err)
		}
	}

	return &StateDB{db: db}, nil
}

// normalizeID validates a Hevy workout id and returns its canonical form.
func normalizeID(workoutID string) (string, error) {
	id, err := uuid.Parse(workoutID)
	if err != nil {
		return "", fmt.Errorf("invalid workout id %q: %w", workoutID, err)
	}
	return id.String(), nil
}

// IsProcessed checks if a workout has already been applied.
func (s *StateDB) IsProcessed(workoutID string) (bool, error) {
	id, err := normalizeID(workoutID)
	if err != nil {
		return false, err
	}
	var count int
	err = s.db.QueryRow(`SELECT COUNT(*) FROM processed_workouts WHERE workout_id = ?`, id).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// MarkProcessed records that a workout was applied.
func (s *StateDB) MarkProcessed(workoutID string, startedAt time.Time) error {
	id, err := normalizeID(workoutID)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(
		`INSERT OR REPLACE INTO processed_workouts (workout_id, started_at) VALUES (?, ?)`,
		id, startedAt.Unix(),
	)
	return err
}

// LastProcessed returns the start time of the newest processed workout, or
// the zero time when nothing has been processed.
func (s *StateDB) LastProcessed() (time.Time, error) {
	var last sql.NullInt64
	err := s.db.QueryRow(`SELECT MAX(started_at) FROM processed_workouts`).Scan(&last)
	if err != nil {
		return time.Time{}, fmt.Errorf("querying last processed: %w", err)
	}
	if !last.Valid {
		return time.Time{}, nil
	}
	return time.Unix(last.Int64, 0).UTC(), nil
}

// SaveSnapshot stores the remote snapshot and reports whether it differs
// from the previously stored one.
func (s *StateDB) SaveSnapshot(snap map[gzclp.Day]preview.RemoteDay) (bool, error) {
	data, err := json.Marshal(snap)
	if err != nil {
		return false, fmt.Errorf("marshaling snapshot: %w", err)
	}
	hash := HashBytes(data)

	var prev string
	err = s.db.QueryRow(`SELECT hash FROM snapshots WHERE id = 1`).Scan(&prev)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return false, fmt.Errorf("reading snapshot hash: %w", err)
	}

	_, err = s.db.Exec(`INSERT OR REPLACE INTO snapshots (id, hash, data) VALUES (1, ?, ?)`, hash, string(data))
	if err != nil {
		return false, fmt.Errorf("saving snapshot: %w", err)
	}
	return prev != hash, nil
}

// LoadSnapshot returns the last stored snapshot, or nil when there is none.
func (s *StateDB) LoadSnapshot() (map[gzclp.Day]preview.RemoteDay, error) {
	var data string
	err := s.db.QueryRow(`SELECT data FROM snapshots WHERE id = 1`).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading snapshot: %w", err)
	}
	var snap map[gzclp.Day]preview.RemoteDay
	if err := json.Unmarshal([]byte(data), &snap); err != nil {
		return nil, fmt.Errorf("decoding snapshot: %w", err)
	}
	return snap, nil
}

// Close closes the state database.
func (s *StateDB) Close() error {
	return s.db.Close()
}

// HashBytes computes the SHA-256 hash of data.
func HashBytes(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}
