package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/meltforce/gzclp/internal/gzclp"
	"github.com/meltforce/gzclp/internal/hevy"
	"github.com/meltforce/gzclp/internal/importer"
	"github.com/meltforce/gzclp/internal/models"
	"github.com/meltforce/gzclp/internal/preview"
	"github.com/meltforce/gzclp/internal/storage"
)

type detectRequest struct {
	Tier string               `json:"tier"`
	Sets []models.ExerciseSet `json:"sets"`
}

func (s *Server) handleDetect(w http.ResponseWriter, r *http.Request) {
	var req detectRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	tier, err := gzclp.ParseTier(req.Tier)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"detection": gzclp.DetectStage(req.Sets, tier),
		"weight":    gzclp.ExtractWeight(req.Sets),
	})
}

type calculateRequest struct {
	Tier   string                 `json:"tier"`
	Region gzclp.BodyRegion       `json:"region"`
	Unit   string                 `json:"unit"`
	State  gzclp.ProgressionState `json:"state"`
	Reps   []int                  `json:"reps"`
}

func (s *Server) handleCalculate(w http.ResponseWriter, r *http.Request) {
	var req calculateRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	tier, err := gzclp.ParseTier(req.Tier)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	unit, err := gzclp.ParseUnit(req.Unit)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	switch req.Region {
	case "":
		req.Region = gzclp.RegionUpper
	case gzclp.RegionUpper, gzclp.RegionLower:
	default:
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "region must be upper or lower"})
		return
	}
	if req.State.Stage < 0 || req.State.Stage > gzclp.MaxStage {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "stage must be 0, 1 or 2"})
		return
	}

	sug := gzclp.Calculate(tier, req.State, req.Reps, req.Region, unit)
	writeJSON(w, http.StatusOK, map[string]any{
		"suggestion": sug,
		"state":      gzclp.ApplySuggestion(req.State, sug),
	})
}

type importRequest struct {
	Days     map[gzclp.Day]string `json:"days"`
	Routines []models.Routine     `json:"routines,omitempty"`
}

// handleImport extracts a program from the user's routines for review. The
// routines may be posted with the request; otherwise they are fetched from
// Hevy.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	var req importRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	for day := range req.Days {
		if _, err := gzclp.ParseDay(string(day)); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
	}

	routines := req.Routines
	if routines == nil {
		if s.hevy == nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "hevy is not configured"})
			return
		}
		var err error
		if routines, err = s.hevy.ListRoutines(r.Context()); err != nil {
			s.log.Error("listing routines", "error", err)
			writeJSON(w, http.StatusBadGateway, map[string]string{"error": err.Error()})
			return
		}
	}

	byID := make(map[string]models.Routine, len(routines))
	for _, rt := range routines {
		byID[rt.ID] = rt
	}
	writeJSON(w, http.StatusOK, importer.ExtractFromRoutines(byID, req.Days))
}

type commitRequest struct {
	Unit   string           `json:"unit"`
	Result *importer.Result `json:"result"`
}

func (s *Server) handleImportCommit(w http.ResponseWriter, r *http.Request) {
	var req commitRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Result == nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "result is required"})
		return
	}
	unit, err := gzclp.ParseUnit(req.Unit)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	if err := importer.New(s.store, s.log, false).Commit(r.Context(), req.Result, unit); err != nil {
		s.log.Error("committing import", "error", err)
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})
		return
	}
	program, err := s.store.LoadProgram(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, program)
}

// handlePreview diffs the stored state against the current Hevy routines.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	if s.hevy == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "hevy is not configured"})
		return
	}
	program, ok := s.loadProgram(w, r)
	if !ok {
		return
	}
	progression, err := s.store.LoadProgression(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	routines, err := s.hevy.ListRoutines(r.Context())
	if err != nil {
		s.log.Error("listing routines", "error", err)
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": err.Error()})
		return
	}

	snap := hevy.RemoteSnapshot(routines, program.Days)
	writeJSON(w, http.StatusOK, preview.BuildSelectablePushPreview(
		snap, program.Exercises, progression, program.T3Schedule, program.Unit))
}

type actionRequest struct {
	Preview *preview.SelectablePreview `json:"preview"`
	Key     string                     `json:"key"`
	Action  string                     `json:"action"`
	All     bool                       `json:"all"`
}

// handlePreviewAction changes one row's action, or every changed row's when
// all is set.
func (s *Server) handlePreviewAction(w http.ResponseWriter, r *http.Request) {
	var req actionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Preview == nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "preview is required"})
		return
	}
	action, ok := preview.ParseAction(req.Action)
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "action must be push, pull or skip"})
		return
	}

	if req.All {
		writeJSON(w, http.StatusOK, preview.SetAll(req.Preview, action))
		return
	}
	writeJSON(w, http.StatusOK, preview.UpdatePreviewAction(req.Preview, req.Key, action))
}

func (s *Server) handlePreviewPlan(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Preview *preview.SelectablePreview `json:"preview"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Preview == nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "preview is required"})
		return
	}
	writeJSON(w, http.StatusOK, preview.Plan(req.Preview))
}

func (s *Server) loadProgram(w http.ResponseWriter, r *http.Request) (*gzclp.Program, bool) {
	program, err := s.store.LoadProgram(r.Context())
	if errors.Is(err, storage.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no program imported"})
		return nil, false
	}
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return nil, false
	}
	return program, true
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
