package handler

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/illenko/blacklight/internal/analyzer"
	"github.com/illenko/blacklight/internal/api/helpers"
	"github.com/illenko/blacklight/internal/storage"
)

type SimulateHandler struct {
	state       StateSource
	simulations *storage.SimulationsRepository
}

func NewSimulateHandler(state StateSource, simulations *storage.SimulationsRepository) *SimulateHandler {
	return &SimulateHandler{state: state, simulations: simulations}
}

type simulateRequest struct {
	Name    string                      `json:"name,omitempty"`
	Actions []analyzer.SimulationAction `json:"actions"`
}

type simulationRequest struct {
	Actions []analyzer.SimulationAction `json:"actions"`
}

func validateActions(actions []analyzer.SimulationAction) error {
	for i, a := range actions {
		if _, err := analyzer.ParseActionKind(string(a.Kind)); err != nil {
			return fmt.Errorf("action %d: %w", i, err)
		}
		if strings.TrimSpace(a.Target) == "" {
			return fmt.Errorf("action %d: target is required", i)
		}
	}
	return nil
}

// Simulate estimates the impact of a list of actions against the current
// snapshot. When only a name is given the saved plan of that name is used.
func (h *SimulateHandler) Simulate(w http.ResponseWriter, r *http.Request) {
	var req simulateRequest
	if err := helpers.DecodeJSON(r, &req); err != nil {
		helpers.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	if len(req.Actions) == 0 && req.Name != "" {
		if h.simulations == nil {
			helpers.WriteError(w, http.StatusServiceUnavailable, "simulation storage not configured")
			return
		}
		saved, err := h.simulations.Get(r.Context(), req.Name)
		if err != nil {
			helpers.WriteError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if saved == nil {
			helpers.WriteError(w, http.StatusNotFound, "simulation "+req.Name+" not found")
			return
		}
		req.Actions = saved.Actions
	}

	if err := validateActions(req.Actions); err != nil {
		helpers.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	st, ok := currentSnapshot(w, h.state)
	if !ok {
		return
	}
	helpers.WriteJSON(w, http.StatusOK, analyzer.EstimateImpact(st.Snapshot, req.Actions))
}

func (h *SimulateHandler) List(w http.ResponseWriter, r *http.Request) {
	if !h.configured(w) {
		return
	}
	names, err := h.simulations.List(r.Context())
	if err != nil {
		helpers.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	helpers.WriteJSON(w, http.StatusOK, names)
}

func (h *SimulateHandler) Get(w http.ResponseWriter, r *http.Request) {
	if !h.configured(w) {
		return
	}
	name := r.PathValue("name")
	saved, err := h.simulations.Get(r.Context(), name)
	if err != nil {
		helpers.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if saved == nil {
		helpers.WriteError(w, http.StatusNotFound, "simulation "+name+" not found")
		return
	}
	helpers.WriteJSON(w, http.StatusOK, saved)
}

func (h *SimulateHandler) Save(w http.ResponseWriter, r *http.Request) {
	if !h.configured(w) {
		return
	}

	var req simulationRequest
	if err := helpers.DecodeJSON(r, &req); err != nil {
		helpers.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := validateActions(req.Actions); err != nil {
		helpers.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	saved, err := h.simulations.Save(r.Context(), r.PathValue("name"), req.Actions)
	if err != nil {
		helpers.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	helpers.WriteJSON(w, http.StatusOK, saved)
}

func (h *SimulateHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if !h.configured(w) {
		return
	}
	if err := h.simulations.Delete(r.Context(), r.PathValue("name")); err != nil {
		helpers.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *SimulateHandler) configured(w http.ResponseWriter) bool {
	if h.simulations == nil {
		helpers.WriteError(w, http.StatusServiceUnavailable, "simulation storage not configured")
		return false
	}
	return true
}
