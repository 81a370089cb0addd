package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/meltforce/gzclp/internal/syncer"
)

var errSyncCanceled = errors.New("sync canceled by user")

// syncJob tracks a background sync run.
type syncJob struct {
	mu        sync.Mutex
	running   bool
	cancel    context.CancelFunc
	doneCh    chan struct{} // closed when goroutine exits
	opts      syncer.Options
	stats     *syncer.Stats
	err       error
	startedAt time.Time

	// SSE subscribers
	subs   map[chan sseEvent]struct{}
	subsMu sync.Mutex
}

// sseEvent is an SSE message to send to subscribers.
type sseEvent struct {
	Event string
	Data  string
}

func (j *syncJob) broadcast(event sseEvent) {
	j.subsMu.Lock()
	defer j.subsMu.Unlock()
	for ch := range j.subs {
		select {
		case ch <- event:
		default:
			// slow subscriber, skip
		}
	}
}

func (j *syncJob) subscribe() chan sseEvent {
	ch := make(chan sseEvent, 8)
	j.subsMu.Lock()
	j.subs[ch] = struct{}{}
	j.subsMu.Unlock()
	return ch
}

func (j *syncJob) unsubscribe(ch chan sseEvent) {
	j.subsMu.Lock()
	delete(j.subs, ch)
	j.subsMu.Unlock()
}

func (j *syncJob) status() map[string]any {
	j.mu.Lock()
	defer j.mu.Unlock()
	resp := map[string]any{
		"running":    j.running,
		"dry_run":    j.opts.DryRun,
		"pull_all":   j.opts.PullAll,
		"started_at": j.startedAt,
		"stats":      j.stats,
	}
	if j.err != nil {
		resp["error"] = j.err.Error()
	}
	return resp
}

// syncRequest is the JSON body for starting a sync.
type syncRequest struct {
	DryRun  bool   `json:"dry_run"`
	PullAll bool   `json:"pull_all"`
	Since   string `json:"since"` // RFC 3339 or YYYY-MM-DD
}

func (s *Server) handleStartSync(w http.ResponseWriter, r *http.Request) {
	if s.sync == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "sync is not configured"})
		return
	}

	var req syncRequest
	if r.ContentLength != 0 && !decodeJSON(w, r, &req) {
		return
	}
	opts := syncer.Options{DryRun: req.DryRun, PullAll: req.PullAll}
	if req.Since != "" {
		since, err := parseTime(req.Since)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid since: " + err.Error()})
			return
		}
		opts.Since = since
	}

	s.syncMu.Lock()
	if s.activeSync != nil {
		s.activeSync.mu.Lock()
		running := s.activeSync.running
		s.activeSync.mu.Unlock()
		if running {
			s.syncMu.Unlock()
			writeJSON(w, http.StatusConflict, map[string]string{"error": "sync already running"})
			return
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	job := &syncJob{
		running:   true,
		cancel:    cancel,
		doneCh:    make(chan struct{}),
		opts:      opts,
		startedAt: time.Now(),
		subs:      make(map[chan sseEvent]struct{}),
	}
	s.activeSync = job
	s.syncMu.Unlock()

	go s.runSync(ctx, job)

	writeJSON(w, http.StatusAccepted, job.status())
}

func (s *Server) runSync(ctx context.Context, job *syncJob) {
	defer close(job.doneCh)
	defer job.cancel()

	s.log.Info("sync started", "dry_run", job.opts.DryRun, "pull_all", job.opts.PullAll)
	stats, err := s.sync(ctx, job.opts)
	if err != nil && ctx.Err() != nil {
		err = errSyncCanceled
	}

	job.mu.Lock()
	job.running = false
	job.stats = stats
	job.err = err
	job.mu.Unlock()

	if err != nil {
		s.log.Error("sync failed", "error", err)
		job.broadcast(sseEvent{Event: "error", Data: mustJSON(map[string]string{"error": err.Error()})})
		return
	}
	s.log.Info("sync complete", "duration", time.Since(job.startedAt).String())
	job.broadcast(sseEvent{Event: "complete", Data: mustJSON(stats)})
}

func (s *Server) handleCancelSync(w http.ResponseWriter, r *http.Request) {
	s.syncMu.Lock()
	job := s.activeSync
	s.syncMu.Unlock()

	if job == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no sync running"})
		return
	}
	job.mu.Lock()
	running := job.running
	job.mu.Unlock()
	if !running {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no sync running"})
		return
	}

	job.cancel()

	// Wait briefly for goroutine to finish
	select {
	case <-job.doneCh:
	case <-time.After(3 * time.Second):
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "cancelled"})
}

func (s *Server) handleSyncStatus(w http.ResponseWriter, r *http.Request) {
	s.syncMu.Lock()
	job := s.activeSync
	s.syncMu.Unlock()

	if job == nil {
		writeJSON(w, http.StatusOK, map[string]any{"running": false})
		return
	}
	writeJSON(w, http.StatusOK, job.status())
}

func (s *Server) handleSyncEvents(w http.ResponseWriter, r *http.Request) {
	s.syncMu.Lock()
	job := s.activeSync
	s.syncMu.Unlock()

	if job == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no sync running"})
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "streaming not supported"})
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch := job.subscribe()
	defer job.unsubscribe(ch)

	// Send current status immediately
	status := job.status()
	fmt.Fprintf(w, "event: status\ndata: %s\n\n", mustJSON(status))
	flusher.Flush()
	if status["running"] == false {
		return
	}

	for {
		select {
		case <-r.Context().Done():
			return
		case <-job.doneCh:
			// drain a final event that raced with the subscription
			select {
			case evt := <-ch:
				fmt.Fprintf(w, "event: %s\ndata: %s\n\n", evt.Event, evt.Data)
				flusher.Flush()
			default:
			}
			return
		case evt := <-ch:
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", evt.Event, evt.Data)
			flusher.Flush()
			if evt.Event == "complete" || evt.Event == "error" {
				return
			}
		}
	}
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, s)
	if err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", s)
}

func mustJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return `{}`
	}
	return string(b)
}
