package handler

import (
	"net/http"

	"github.com/illenko/blacklight/internal/api/helpers"
	"github.com/illenko/blacklight/internal/relabel"
)

type RemediationHandler struct{}

func NewRemediationHandler() *RemediationHandler {
	return &RemediationHandler{}
}

type previewRequest struct {
	Snippet string            `json:"snippet"`
	Labels  map[string]string `json:"labels"`
}

// Preview applies a relabel snippet to one sample label set.
func (h *RemediationHandler) Preview(w http.ResponseWriter, r *http.Request) {
	var req previewRequest
	if err := helpers.DecodeJSON(r, &req); err != nil {
		helpers.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := relabel.Preview(req.Snippet, req.Labels)
	if err != nil {
		helpers.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	helpers.WriteJSON(w, http.StatusOK, result)
}
