package mcp

import (
	"context"

	"github.com/meltforce/gzclp/internal/gzclp"
	"github.com/meltforce/gzclp/internal/storage"
)

// DataSource abstracts the data layer for MCP tools. Both *storage.DB (local)
// and HTTPClient (remote via REST API) satisfy this interface.
type DataSource interface {
	LoadProgram(ctx context.Context) (*gzclp.Program, error)
	LoadProgression(ctx context.Context) (map[string]gzclp.ProgressionState, error)
	QuerySyncLogs(ctx context.Context, limit int) ([]storage.SyncLog, error)
	GetDataStats(ctx context.Context) (*storage.DataStats, error)
}

// Compile-time check: *storage.DB satisfies DataSource.
var _ DataSource = (*storage.DB)(nil)
