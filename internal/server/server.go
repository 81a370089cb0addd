package server

import (
	"context"
	"log/slog"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/meltforce/gzclp/internal/gzclp"
	"github.com/meltforce/gzclp/internal/models"
	"github.com/meltforce/gzclp/internal/storage"
	"github.com/meltforce/gzclp/internal/syncer"
)

// Store is the persisted program state the handlers read and write.
type Store interface {
	LoadProgram(ctx context.Context) (*gzclp.Program, error)
	SaveProgram(ctx context.Context, p *gzclp.Program) error
	LoadProgression(ctx context.Context) (map[string]gzclp.ProgressionState, error)
	UpsertProgression(ctx context.Context, states map[string]gzclp.ProgressionState) error
	QuerySyncLogs(ctx context.Context, limit int) ([]storage.SyncLog, error)
	DeleteProgression(ctx context.Context, key string) error
	GetDataStats(ctx context.Context) (*storage.DataStats, error)
}

// RoutineSource lists the user's Hevy routines.
type RoutineSource interface {
	ListRoutines(ctx context.Context) ([]models.Routine, error)
	GetRoutine(ctx context.Context, id string) (*models.Routine, error)
}

// SyncFunc runs one sync pass.
type SyncFunc func(ctx context.Context, opts syncer.Options) (*syncer.Stats, error)

// Server holds dependencies for HTTP handlers.
type Server struct {
	store  Store
	hevy   RoutineSource
	sync   SyncFunc
	log    *slog.Logger
	apiKey string
	router chi.Router

	syncMu     sync.Mutex
	activeSync *syncJob
}

// New creates a new Server with all routes configured. hevy and runSync may
// be nil, in which case the endpoints needing them answer 503.
func New(store Store, hevy RoutineSource, runSync SyncFunc, apiKey string, log *slog.Logger) *Server {
	s := &Server{
		store:  store,
		hevy:   hevy,
		sync:   runSync,
		log:    log,
		apiKey: apiKey,
		router: chi.NewRouter(),
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Mount attaches an additional handler, e.g. the MCP endpoint.
func (s *Server) Mount(pattern string, h http.Handler) {
	s.router.Group(func(r chi.Router) {
		r.Use(APIKeyAuth(s.apiKey))
		r.Mount(pattern, h)
	})
}

func (s *Server) routes() {
	s.router.Use(RequestLogging(s.log))
	s.router.Use(CORS)

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Use(APIKeyAuth(s.apiKey))

		// Stateless core
		r.Post("/detect", s.handleDetect)
		r.Post("/progression", s.handleCalculate)
		r.Post("/preview/action", s.handlePreviewAction)
		r.Post("/preview/plan", s.handlePreviewPlan)

		// Import and preview against Hevy
		r.Post("/import", s.handleImport)
		r.Post("/import/commit", s.handleImportCommit)
		r.Post("/preview", s.handlePreview)

		// Stored state
		r.Get("/program", s.handleGetProgram)
		r.Put("/program", s.handlePutProgram)
		r.Get("/progression", s.handleGetProgression)
		r.Put("/progression", s.handlePutProgression)
		r.Delete("/progression/{key}", s.handleDeleteProgression)
		r.Get("/routines/{day}", s.handleDayRoutine)
		r.Get("/sync-logs", s.handleSyncLogs)
		r.Get("/stats", s.handleStats)

		// Background sync
		r.Post("/sync", s.handleStartSync)
		r.Get("/sync/status", s.handleSyncStatus)
		r.Post("/sync/cancel", s.handleCancelSync)
		r.Get("/sync/events", s.handleSyncEvents)
	})
}
