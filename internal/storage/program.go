package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/meltforce/gzclp/internal/gzclp"
)

// SaveProgram stores the program configuration, replacing any previous one.
func (db *DB) SaveProgram(ctx context.Context, p *gzclp.Program) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshaling program: %w", err)
	}
	_, err = db.Pool.Exec(ctx, `
		INSERT INTO program (id, config) VALUES (1, $1)
		ON CONFLICT (id) DO UPDATE SET config = EXCLUDED.config, updated_at = NOW()
	`, data)
	if err != nil {
		return fmt.Errorf("saving program: %w", err)
	}
	return nil
}

// LoadProgram returns the stored program or ErrNotFound.
func (db *DB) LoadProgram(ctx context.Context) (*gzclp.Program, error) {
	var data []byte
	err := db.Pool.QueryRow(ctx, `SELECT config FROM program WHERE id = 1`).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading program: %w", err)
	}

	var p gzclp.Program
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("decoding program: %w", err)
	}
	return &p, nil
}
