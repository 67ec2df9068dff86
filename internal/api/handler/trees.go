package handler

import (
	"errors"
	"net/http"

	"github.com/illenko/blacklight/internal/api/helpers"
	"github.com/illenko/blacklight/internal/collector"
)

// TreesHandler exposes the per-metric label trees. Expanding a metric
// fetches its raw series; the result is cached until the snapshot changes.
type TreesHandler struct {
	cache *collector.TreeCache
	state StateSource
}

func NewTreesHandler(cache *collector.TreeCache, state StateSource) *TreesHandler {
	return &TreesHandler{cache: cache, state: state}
}

func (h *TreesHandler) List(w http.ResponseWriter, r *http.Request) {
	helpers.WriteJSON(w, http.StatusOK, h.cache.Entries())
}

func (h *TreesHandler) Get(w http.ResponseWriter, r *http.Request) {
	metric := r.PathValue("metric")
	entry, ok := h.cache.Get(metric)
	if !ok {
		helpers.WriteError(w, http.StatusNotFound, "metric "+metric+" is not expanded")
		return
	}
	helpers.WriteJSON(w, http.StatusOK, entry)
}

func (h *TreesHandler) Expand(w http.ResponseWriter, r *http.Request) {
	if _, ok := currentSnapshot(w, h.state); !ok {
		return
	}

	entry, err := h.cache.Expand(r.Context(), r.PathValue("metric"))
	switch {
	case errors.Is(err, collector.ErrTreeSuperseded):
		helpers.WriteError(w, http.StatusConflict, err.Error())
	case err != nil:
		helpers.WriteJSON(w, http.StatusBadGateway, entry)
	default:
		helpers.WriteJSON(w, http.StatusOK, entry)
	}
}

func (h *TreesHandler) Collapse(w http.ResponseWriter, r *http.Request) {
	h.cache.Collapse(r.PathValue("metric"))
	w.WriteHeader(http.StatusNoContent)
}
