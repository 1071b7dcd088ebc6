package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/spindriftlabs/prizewheel/internal/store"
	"github.com/spindriftlabs/prizewheel/internal/theme"
	"github.com/spindriftlabs/prizewheel/internal/wheel"
)

// handleSpin starts a spin. The selection is resolved here, up front, so
// the response can echo the seed and cumulative array before the wheel
// stops moving.
func (s *Server) handleSpin(w http.ResponseWriter, r *http.Request) {
	var req SpinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && err != io.EOF {
		s.errorHandler.HandleValidationError(w, r, ErrTypeValidation, "malformed JSON body: "+err.Error())
		return
	}

	if req.Theme != "" {
		s.mu.Lock()
		current := s.active
		s.mu.Unlock()
		if req.Theme != current {
			if err := s.activateTheme(req.Theme); err != nil {
				s.errorHandler.HandleError(w, r, err, http.StatusBadRequest)
				return
			}
		}
	}

	s.mu.Lock()
	m := s.machine
	activeName := s.active
	th := s.themes[activeName]
	s.mu.Unlock()

	var sel wheel.Selection
	seeded := false
	if req.Index != nil {
		if *req.Index < 0 || *req.Index >= th.SegmentCount() {
			s.errorHandler.HandleValidationError(w, r, ErrTypeInvalidSegment,
				"index "+strconv.Itoa(*req.Index)+" out of range for "+strconv.Itoa(th.SegmentCount())+" segments")
			return
		}
		sel = wheel.Selection{Index: *req.Index}
	} else {
		var err error
		if req.Seed != nil {
			sel, err = wheel.SelectSeeded(th.Table(), *req.Seed)
		} else {
			sel, err = wheel.Select(th.Table())
		}
		if err != nil {
			s.errorHandler.HandleError(w, r, err, http.StatusBadRequest)
			return
		}
		seeded = true
	}

	if err := m.StartSpinAt(sel.Index); err != nil {
		if errors.Is(err, wheel.ErrInvalidTransition) {
			s.errorHandler.HandleError(w, r,
				EngineError{Type: ErrTypeSpinRejected, Message: "a spin is already in flight"},
				http.StatusConflict)
			return
		}
		s.errorHandler.HandleError(w, r, err, http.StatusInternalServerError)
		return
	}

	snap := m.Snapshot()
	outcome := th.Table().Outcome(sel.Index)
	spin := &store.Spin{
		ID:             uuid.New().String(),
		Theme:          activeName,
		SegmentCount:   th.SegmentCount(),
		Seed:           sel.SeedUsed,
		Seeded:         seeded,
		OutcomeIndex:   sel.Index,
		OutcomeLabel:   outcome.Label,
		Payout:         outcome.Payout,
		FullSpins:      snap.FullSpins,
		TargetRotation: snap.TargetRotation,
		EngineVersion:  EngineVersion,
	}

	s.mu.Lock()
	s.pending = spin
	s.mu.Unlock()

	s.writeJSON(w, http.StatusAccepted, SpinResponse{
		SpinID:    spin.ID,
		Theme:     activeName,
		Selection: sel,
		Plan: wheel.SpinPlan{
			TargetRotation: snap.TargetRotation,
			FullSpins:      snap.FullSpins,
		},
		Snapshot:      snap,
		EngineVersion: EngineVersion,
	})
}

// handleReset cancels any in-flight spin and returns the wheel to rest.
func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	m := s.machine
	s.pending = nil
	s.mu.Unlock()

	if err := m.Reset(); err != nil {
		s.errorHandler.HandleError(w, r, err, http.StatusInternalServerError)
		return
	}
	s.handleState(w, r)
}

// handleState serves the read-only snapshot the renderer polls.
func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	m := s.machine
	activeName := s.active
	th := s.themes[activeName]
	s.mu.Unlock()

	s.writeJSON(w, http.StatusOK, StateResponse{
		Theme:         activeName,
		SegmentCount:  th.SegmentCount(),
		Snapshot:      m.Snapshot(),
		EngineVersion: EngineVersion,
	})
}

// handleListThemes lists the loaded wheel themes.
func (s *Server) handleListThemes(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	activeName := s.active
	s.mu.Unlock()

	summaries := make([]ThemeSummary, 0, len(s.themes))
	for _, name := range theme.Names(s.themes) {
		th := s.themes[name]
		labels := make([]string, th.SegmentCount())
		for i := range labels {
			labels[i] = th.Table().Outcome(i).Label
		}
		summaries = append(summaries, ThemeSummary{
			Name:         name,
			SegmentCount: th.SegmentCount(),
			Labels:       labels,
			Active:       name == activeName,
		})
	}

	s.writeJSON(w, http.StatusOK, ThemesResponse{
		Themes:        summaries,
		EngineVersion: EngineVersion,
	})
}

// handleActivateTheme switches the wheel to another theme, rebuilding the
// spin machine for the new segment count.
func (s *Server) handleActivateTheme(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if err := s.activateTheme(name); err != nil {
		s.errorHandler.HandleError(w, r, err, http.StatusBadRequest)
		return
	}
	s.handleState(w, r)
}

// handleListSpins serves the paginated spin history.
func (s *Server) handleListSpins(w http.ResponseWriter, r *http.Request) {
	if s.db == nil {
		s.errorHandler.HandleError(w, r,
			EngineError{Type: ErrTypeInternal, Message: "spin history is not enabled"},
			http.StatusNotImplemented)
		return
	}

	q := store.SpinsQuery{Theme: r.URL.Query().Get("theme")}
	q.Page, _ = strconv.Atoi(r.URL.Query().Get("page"))
	q.PerPage, _ = strconv.Atoi(r.URL.Query().Get("per_page"))

	list, err := s.db.ListSpins(q)
	if err != nil {
		s.errorHandler.HandleError(w, r, err, http.StatusInternalServerError)
		return
	}
	s.writeJSON(w, http.StatusOK, list)
}

// handleReplaySpin re-runs a recorded spin's weighted draw with its stored
// seed and reports whether the outcome still matches.
func (s *Server) handleReplaySpin(w http.ResponseWriter, r *http.Request) {
	if s.db == nil {
		s.errorHandler.HandleError(w, r,
			EngineError{Type: ErrTypeInternal, Message: "spin history is not enabled"},
			http.StatusNotImplemented)
		return
	}

	id := chi.URLParam(r, "id")
	spin, err := s.db.GetSpin(id)
	if err != nil {
		s.errorHandler.HandleError(w, r,
			EngineError{Type: ErrTypeSpinNotFound, Message: err.Error()},
			http.StatusNotFound)
		return
	}

	if !spin.Seeded {
		s.errorHandler.HandleValidationError(w, r, ErrTypeValidation,
			"spin "+id+" was started with a forced index and cannot be replayed")
		return
	}

	th, ok := s.themes[spin.Theme]
	if !ok {
		s.errorHandler.HandleError(w, r,
			EngineError{Type: ErrTypeInvalidTheme, Message: "theme no longer loaded: " + spin.Theme},
			http.StatusConflict)
		return
	}

	sel, err := wheel.SelectSeeded(th.Table(), spin.Seed)
	if err != nil {
		s.errorHandler.HandleError(w, r, err, http.StatusInternalServerError)
		return
	}

	s.writeJSON(w, http.StatusOK, ReplayResponse{
		Spin:          *spin,
		Selection:     sel,
		Match:         sel.Index == spin.OutcomeIndex,
		EngineVersion: EngineVersion,
	})
}
