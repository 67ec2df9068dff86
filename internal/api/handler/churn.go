package handler

import (
	"context"
	"net/http"

	"github.com/illenko/blacklight/internal/analyzer"
	"github.com/illenko/blacklight/internal/api/helpers"
)

type ChurnSource interface {
	FetchChurn(ctx context.Context) analyzer.ChurnSample
}

// ChurnHandler queries the churn figures on demand; they are not part of the
// cached snapshot.
type ChurnHandler struct {
	source   ChurnSource
	analyzer *analyzer.Analyzer
}

func NewChurnHandler(source ChurnSource, a *analyzer.Analyzer) *ChurnHandler {
	if a == nil {
		a = analyzer.New(analyzer.Config{})
	}
	return &ChurnHandler{source: source, analyzer: a}
}

func (h *ChurnHandler) Churn(w http.ResponseWriter, r *http.Request) {
	helpers.WriteJSON(w, http.StatusOK, h.analyzer.ChurnStats(h.source.FetchChurn(r.Context())))
}
