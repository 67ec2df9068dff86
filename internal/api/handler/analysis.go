package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/illenko/blacklight/internal/analyzer"
	"github.com/illenko/blacklight/internal/api/helpers"
	"github.com/illenko/blacklight/internal/storage"
	"github.com/illenko/blacklight/pkg/models"
)

// AnalysisHandler serves the derived views of the current snapshot and the
// snapshot history.
type AnalysisHandler struct {
	state     StateSource
	analyzer  *analyzer.Analyzer
	size      *analyzer.SizeCalculator
	snapshots *storage.SnapshotsRepository
	metrics   *storage.MetricsRepository
	findings  *storage.FindingsRepository
}

type AnalysisDeps struct {
	Analyzer  *analyzer.Analyzer
	Size      *analyzer.SizeCalculator
	Snapshots *storage.SnapshotsRepository
	Metrics   *storage.MetricsRepository
	Findings  *storage.FindingsRepository
}

func NewAnalysisHandler(state StateSource, deps AnalysisDeps) *AnalysisHandler {
	if deps.Analyzer == nil {
		deps.Analyzer = analyzer.New(analyzer.Config{})
	}
	return &AnalysisHandler{
		state:     state,
		analyzer:  deps.Analyzer,
		size:      deps.Size,
		snapshots: deps.Snapshots,
		metrics:   deps.Metrics,
		findings:  deps.Findings,
	}
}

func (h *AnalysisHandler) Overview(w http.ResponseWriter, r *http.Request) {
	st, ok := currentSnapshot(w, h.state)
	if !ok {
		return
	}
	helpers.WriteJSON(w, http.StatusOK, h.analyzer.BuildOverview(st.Snapshot, st.Targets, h.size))
}

func (h *AnalysisHandler) Snapshot(w http.ResponseWriter, r *http.Request) {
	st, ok := currentSnapshot(w, h.state)
	if !ok {
		return
	}
	helpers.WriteJSON(w, http.StatusOK, map[string]any{
		"generation": st.Generation,
		"snapshot":   st.Snapshot,
		"targets":    st.Targets,
	})
}

func (h *AnalysisHandler) Snapshots(w http.ResponseWriter, r *http.Request) {
	if h.snapshots == nil {
		helpers.WriteJSON(w, http.StatusOK, []models.SnapshotSummary{})
		return
	}

	limit := helpers.ParseIntParam(r, "limit", 100)
	list, err := h.snapshots.List(r.Context(), limit)
	if err != nil {
		helpers.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if list == nil {
		list = []*models.SnapshotSummary{}
	}
	helpers.WriteJSON(w, http.StatusOK, list)
}

func (h *AnalysisHandler) Trends(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	trends := models.SnapshotTrends{Points: []models.TrendDataPoint{}}
	if h.snapshots == nil {
		helpers.WriteJSON(w, http.StatusOK, trends)
		return
	}

	days := helpers.ParseIntParam(r, "days", 7)
	points, err := h.snapshots.GetTrends(ctx, time.Now().AddDate(0, 0, -days))
	if err != nil {
		helpers.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if points != nil {
		trends.Points = points
	}

	latest, err := h.snapshots.GetLatest(ctx)
	if err != nil {
		helpers.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if latest != nil {
		if trends.TrendPercentage, err = h.snapshots.CalculateTrend(ctx, latest); err != nil {
			helpers.WriteError(w, http.StatusInternalServerError, err.Error())
			return
		}
	}

	helpers.WriteJSON(w, http.StatusOK, trends)
}

func (h *AnalysisHandler) MetricHistory(w http.ResponseWriter, r *http.Request) {
	if h.metrics == nil {
		helpers.WriteJSON(w, http.StatusOK, []models.MetricPoint{})
		return
	}

	days := helpers.ParseIntParam(r, "days", 30)
	points, err := h.metrics.History(r.Context(), r.PathValue("metric"), time.Now().AddDate(0, 0, -days))
	if err != nil {
		helpers.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if points == nil {
		points = []models.MetricPoint{}
	}
	helpers.WriteJSON(w, http.StatusOK, points)
}

type histogramView struct {
	analyzer.HistogramCandidate
	Severity analyzer.Severity `json:"severity"`
}

func (h *AnalysisHandler) Histograms(w http.ResponseWriter, r *http.Request) {
	st, ok := currentSnapshot(w, h.state)
	if !ok {
		return
	}

	candidates := h.analyzer.ScoreHistograms(st.Snapshot)
	out := make([]histogramView, 0, len(candidates))
	for _, c := range candidates {
		out = append(out, histogramView{HistogramCandidate: c, Severity: h.analyzer.HistogramSeverity(c.RiskScore)})
	}
	helpers.WriteJSON(w, http.StatusOK, out)
}

func (h *AnalysisHandler) Labels(w http.ResponseWriter, r *http.Request) {
	st, ok := currentSnapshot(w, h.state)
	if !ok {
		return
	}
	labels := h.analyzer.ClassifyLabels(st.Snapshot)
	if labels == nil {
		labels = []analyzer.LabelRisk{}
	}
	helpers.WriteJSON(w, http.StatusOK, labels)
}

type findingView struct {
	analyzer.Finding
	FirstSeenAt *time.Time `json:"firstSeenAt,omitempty"`
}

// Recommendations lists findings. ?category= keeps one category and
// ?severity= keeps findings at or above a severity.
func (h *AnalysisHandler) Recommendations(w http.ResponseWriter, r *http.Request) {
	st, ok := currentSnapshot(w, h.state)
	if !ok {
		return
	}

	findings := h.analyzer.Recommend(st.Snapshot, st.Targets)
	findings = analyzer.FilterFindings(findings, analyzer.Category(strings.TrimSpace(r.URL.Query().Get("category"))))

	if s := r.URL.Query().Get("severity"); s != "" {
		floor, err := analyzer.ParseSeverity(s)
		if err != nil {
			helpers.WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
		var kept []analyzer.Finding
		for _, f := range findings {
			if f.Severity.AtLeast(floor) {
				kept = append(kept, f)
			}
		}
		findings = kept
	}

	var seen map[string]storage.FindingSeen
	if h.findings != nil {
		var err error
		if seen, err = h.findings.Seen(r.Context()); err != nil {
			helpers.WriteError(w, http.StatusInternalServerError, err.Error())
			return
		}
	}

	out := make([]findingView, 0, len(findings))
	for _, f := range findings {
		v := findingView{Finding: f}
		if s, ok := seen[f.ID]; ok {
			v.FirstSeenAt = &s.FirstSeenAt
		}
		out = append(out, v)
	}
	helpers.WriteJSON(w, http.StatusOK, out)
}

func (h *AnalysisHandler) Scrapes(w http.ResponseWriter, r *http.Request) {
	st, ok := currentTargets(w, h.state)
	if !ok {
		return
	}
	jobs := h.analyzer.SummarizeJobs(st.Targets)
	if jobs == nil {
		jobs = []analyzer.JobSummary{}
	}
	helpers.WriteJSON(w, http.StatusOK, jobs)
}
