package handler

import (
	"net/http"

	"github.com/illenko/blacklight/internal/api/helpers"
	"github.com/illenko/blacklight/internal/storage"
	"github.com/illenko/blacklight/pkg/models"
)

type ConnectionsHandler struct {
	repo *storage.ConnectionsRepository
}

func NewConnectionsHandler(repo *storage.ConnectionsRepository) *ConnectionsHandler {
	return &ConnectionsHandler{repo: repo}
}

type connectionRequest struct {
	BaseURL  string `json:"base_url"`
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *ConnectionsHandler) List(w http.ResponseWriter, r *http.Request) {
	conns, err := h.repo.List(r.Context())
	if err != nil {
		helpers.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if conns == nil {
		conns = []models.Connection{}
	}
	helpers.WriteJSON(w, http.StatusOK, conns)
}

func (h *ConnectionsHandler) Add(w http.ResponseWriter, r *http.Request) {
	var req connectionRequest
	if err := helpers.DecodeJSON(r, &req); err != nil {
		helpers.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	conn, err := h.repo.Add(r.Context(), models.Connection{
		BaseURL:  req.BaseURL,
		Username: req.Username,
		Password: req.Password,
	})
	if err != nil {
		helpers.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	helpers.WriteJSON(w, http.StatusCreated, conn)
}

// Remove deletes the connection named by ?url= together with its password.
func (h *ConnectionsHandler) Remove(w http.ResponseWriter, r *http.Request) {
	baseURL := r.URL.Query().Get("url")
	if baseURL == "" {
		helpers.WriteError(w, http.StatusBadRequest, "url query parameter is required")
		return
	}
	if err := h.repo.Remove(r.Context(), baseURL); err != nil {
		helpers.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
