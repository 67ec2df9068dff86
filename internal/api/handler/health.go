package handler

import (
	"context"
	"net/http"

	"github.com/illenko/blacklight/internal/api/helpers"
	"github.com/illenko/blacklight/internal/prometheus"
	"github.com/illenko/blacklight/pkg/models"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

type PrometheusProbe interface {
	HealthCheck(ctx context.Context) *prometheus.HealthReport
}

type HealthHandler struct {
	db    Pinger
	prom  PrometheusProbe
	state StateSource
}

func NewHealthHandler(db Pinger, prom PrometheusProbe, state StateSource) *HealthHandler {
	return &HealthHandler{
		db:    db,
		prom:  prom,
		state: state,
	}
}

type healthResponse struct {
	models.HealthStatus
	Endpoints []prometheus.EndpointHealth `json:"endpoints,omitempty"`
}

func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	resp := healthResponse{
		HealthStatus: models.HealthStatus{
			Status:              "healthy",
			DatabaseOK:          true,
			PrometheusConnected: true,
		},
	}

	if h.db != nil {
		if err := h.db.Ping(ctx); err != nil {
			resp.Status = "unhealthy"
			resp.DatabaseOK = false
		}
	}

	if h.prom != nil {
		report := h.prom.HealthCheck(ctx)
		resp.Endpoints = report.Endpoints
		if !report.Healthy() {
			resp.PrometheusConnected = false
			if resp.Status == "healthy" {
				resp.Status = "degraded"
			}
		}
	}

	if st := h.state.State(); st.Snapshot != nil {
		resp.LastRefresh = st.Snapshot.CollectedAt()
	}

	helpers.WriteJSON(w, http.StatusOK, resp)
}
