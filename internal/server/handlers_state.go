package server

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/meltforce/gzclp/internal/gzclp"
	"github.com/meltforce/gzclp/internal/hevy"
)

func (s *Server) handleGetProgram(w http.ResponseWriter, r *http.Request) {
	program, ok := s.loadProgram(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, program)
}

func (s *Server) handlePutProgram(w http.ResponseWriter, r *http.Request) {
	var p gzclp.Program
	if !decodeJSON(w, r, &p) {
		return
	}
	unit, err := gzclp.ParseUnit(string(p.Unit))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	p.Unit = unit
	if err := p.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	if err := s.store.SaveProgram(r.Context(), &p); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleGetProgression(w http.ResponseWriter, r *http.Request) {
	states, err := s.store.LoadProgression(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, states)
}

// handlePutProgression upserts the posted states. Keys not posted are kept.
func (s *Server) handlePutProgression(w http.ResponseWriter, r *http.Request) {
	var states map[string]gzclp.ProgressionState
	if !decodeJSON(w, r, &states) {
		return
	}
	for key, st := range states {
		if err := validateState(st); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": fmt.Sprintf("%s: %v", key, err)})
			return
		}
	}
	if err := s.store.UpsertProgression(r.Context(), states); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"updated": len(states)})
}

// handleDeleteProgression forgets a lift's state so the next import or
// workout starts it fresh.
func (s *Server) handleDeleteProgression(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	if err := s.store.DeleteProgression(r.Context(), key); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleDayRoutine returns the Hevy routine currently assigned to a day.
func (s *Server) handleDayRoutine(w http.ResponseWriter, r *http.Request) {
	day, err := gzclp.ParseDay(chi.URLParam(r, "day"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	if s.hevy == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "hevy is not configured"})
		return
	}
	program, ok := s.loadProgram(w, r)
	if !ok {
		return
	}
	id := program.Days[day]
	if id == "" {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": fmt.Sprintf("no routine assigned to %s", day)})
		return
	}

	routine, err := s.hevy.GetRoutine(r.Context(), id)
	if errors.Is(err, hevy.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": fmt.Sprintf("routine %s no longer exists", id)})
		return
	}
	if err != nil {
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, routine)
}

func validateState(st gzclp.ProgressionState) error {
	if st.CurrentWeight < 0 || st.BaseWeight < 0 {
		return fmt.Errorf("weights must not be negative")
	}
	if st.Stage < 0 || st.Stage > gzclp.MaxStage {
		return fmt.Errorf("stage must be 0, 1 or 2")
	}
	return nil
}

func (s *Server) handleSyncLogs(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	logs, err := s.store.QuerySyncLogs(r.Context(), limit)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, logs)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.GetDataStats(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
