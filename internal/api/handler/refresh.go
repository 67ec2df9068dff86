package handler

import (
	"errors"
	"net/http"

	"github.com/illenko/blacklight/internal/api/helpers"
	"github.com/illenko/blacklight/internal/collector"
	"github.com/illenko/blacklight/internal/scheduler"
)

type Refresher interface {
	TriggerRefresh() error
	GetStatus() scheduler.RefreshStatus
}

type RefreshHandler struct {
	scheduler Refresher
	state     StateSource
}

func NewRefreshHandler(scheduler Refresher, state StateSource) *RefreshHandler {
	return &RefreshHandler{
		scheduler: scheduler,
		state:     state,
	}
}

func (h *RefreshHandler) Trigger(w http.ResponseWriter, r *http.Request) {
	if h.scheduler == nil {
		helpers.WriteError(w, http.StatusServiceUnavailable, "scheduler not configured")
		return
	}

	if err := h.scheduler.TriggerRefresh(); err != nil {
		if errors.Is(err, scheduler.ErrRefreshRunning) {
			helpers.WriteError(w, http.StatusConflict, err.Error())
			return
		}
		helpers.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	helpers.WriteJSON(w, http.StatusAccepted, map[string]string{"status": "refresh started"})
}

type refreshStatusResponse struct {
	scheduler.RefreshStatus
	State *collector.State `json:"state"`
}

func (h *RefreshHandler) Status(w http.ResponseWriter, r *http.Request) {
	if h.scheduler == nil {
		helpers.WriteError(w, http.StatusServiceUnavailable, "scheduler not configured")
		return
	}

	helpers.WriteJSON(w, http.StatusOK, refreshStatusResponse{
		RefreshStatus: h.scheduler.GetStatus(),
		State:         h.state.State(),
	})
}
