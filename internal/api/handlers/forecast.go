package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/wonny/agrimet/internal/backtest"
	"github.com/wonny/agrimet/internal/brain"
	"github.com/wonny/agrimet/internal/contracts"
	"github.com/wonny/agrimet/internal/forecast"
	"github.com/wonny/agrimet/pkg/logger"
)

// ForecastHandler handles forecast API endpoints
// ⭐ SSOT: Forecast API 핸들러는 이 구조체에서만
type ForecastHandler struct {
	orchestrator *brain.Orchestrator
	engine       *backtest.Engine
	decimals     int
	maxHorizon   int
	logger       *logger.Logger
}

// NewForecastHandler creates a new forecast handler
func NewForecastHandler(orchestrator *brain.Orchestrator, engine *backtest.Engine, decimals int, log *logger.Logger) *ForecastHandler {
	return &ForecastHandler{
		orchestrator: orchestrator,
		engine:       engine,
		decimals:     decimals,
		maxHorizon:   366,
		logger:       log,
	}
}

// ForecastRequest represents a forecast request
type ForecastRequest struct {
	Model    string                        `json:"model"`
	SeedDate string                        `json:"seed_date"` // YYYY-MM-DD, 비어 있으면 마지막 관측
	Horizon  int                           `json:"horizon"`
	Drivers  map[string]map[string]float64 `json:"drivers,omitempty"` // 날짜 → 필드 → 값
	Persist  bool                          `json:"persist"`
}

// ForecastResponse represents a forecast response
type ForecastResponse struct {
	Run     *contracts.ForecastRun `json:"run"`
	Stages  []string               `json:"stages"`
	Stored  bool                   `json:"stored"`
	Elapsed string                 `json:"elapsed"`
}

// Create runs a recursive forecast
// POST /api/forecast
func (h *ForecastHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req ForecastRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Model == "" {
		respondError(w, http.StatusBadRequest, "model is required")
		return
	}
	if req.Horizon > h.maxHorizon {
		respondError(w, http.StatusBadRequest, fmt.Sprintf("horizon must be <= %d", h.maxHorizon))
		return
	}

	seedDate, err := parseDate(req.SeedDate)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid 'seed_date' format (expected YYYY-MM-DD)")
		return
	}

	schedule, err := driverSchedule(req.Drivers)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.orchestrator.Run(r.Context(), brain.RunConfig{
		Model:          req.Model,
		SeedDate:       seedDate,
		Horizon:        req.Horizon,
		DriverSchedule: schedule,
		Persist:        req.Persist,
	})
	if err != nil {
		h.logger.WithError(err).WithField("model", req.Model).Warn("Forecast request failed")
		respondError(w, statusFor(err), err.Error())
		return
	}

	respondJSON(w, http.StatusOK, ForecastResponse{
		Run:     result.Run,
		Stages:  result.CompletedStages,
		Stored:  result.Persisted,
		Elapsed: result.Duration.String(),
	})
}

// List returns recent stored runs
// GET /api/forecast?model=&limit=
func (h *ForecastHandler) List(w http.ResponseWriter, r *http.Request) {
	repo := h.orchestrator.Repository()
	if repo == nil {
		respondError(w, http.StatusServiceUnavailable, "run storage is not configured")
		return
	}

	limit := 20
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 || n > 500 {
			respondError(w, http.StatusBadRequest, "limit must be between 1 and 500")
			return
		}
		limit = n
	}

	runs, err := repo.ListRuns(r.Context(), r.URL.Query().Get("model"), limit)
	if err != nil {
		h.logger.WithError(err).Error("Failed to list runs")
		respondError(w, http.StatusInternalServerError, "Failed to list runs")
		return
	}
	if runs == nil {
		runs = []contracts.ForecastRunSummary{}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count": len(runs),
		"runs":  runs,
	})
}

// Get returns a stored run
// GET /api/forecast/{id}
func (h *ForecastHandler) Get(w http.ResponseWriter, r *http.Request) {
	run, ok := h.lookup(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, run)
}

// GetCSV returns a stored run as date,predicted_value CSV
// GET /api/forecast/{id}/csv
func (h *ForecastHandler) GetCSV(w http.ResponseWriter, r *http.Request) {
	run, ok := h.lookup(w, r)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := forecast.WriteCSV(&buf, run.Steps, h.decimals); err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to render CSV")
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", run.Model+"-"+run.ID+".csv"))
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

func (h *ForecastHandler) lookup(w http.ResponseWriter, r *http.Request) (*contracts.ForecastRun, bool) {
	repo := h.orchestrator.Repository()
	if repo == nil {
		respondError(w, http.StatusServiceUnavailable, "run storage is not configured")
		return nil, false
	}

	id := mux.Vars(r)["id"]
	run, err := repo.GetRun(r.Context(), id)
	if err != nil {
		respondError(w, statusFor(err), err.Error())
		return nil, false
	}
	return run, true
}

// Models lists the model registry
// GET /api/models
func (h *ForecastHandler) Models(w http.ResponseWriter, r *http.Request) {
	reg := h.orchestrator.Registry()

	type modelInfo struct {
		Name     string          `json:"name"`
		Target   contracts.Field `json:"target"`
		Kind     string          `json:"kind"`
		Features []string        `json:"features"`
	}
	models := make([]modelInfo, 0, len(reg.Models))
	for _, m := range reg.Models {
		models = append(models, modelInfo{Name: m.Name, Target: m.Target, Kind: m.Kind, Features: m.FeatureNames()})
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"registry_hash": h.orchestrator.RegistryHash(),
		"models":        models,
	})
}

// EvaluateRequest represents a backtest request
type EvaluateRequest struct {
	Models  []string `json:"models"`
	From    string   `json:"from"`
	To      string   `json:"to"`
	Horizon int      `json:"horizon"`
}

// Evaluate backtests models against observed values
// POST /api/evaluate
func (h *ForecastHandler) Evaluate(w http.ResponseWriter, r *http.Request) {
	var req EvaluateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	from, err := parseDate(req.From)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid 'from' date format (expected YYYY-MM-DD)")
		return
	}
	to, err := parseDate(req.To)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid 'to' date format (expected YYYY-MM-DD)")
		return
	}

	cmp, err := h.engine.Compare(r.Context(), req.Models, backtest.Config{StartDate: from, EndDate: to, Horizon: req.Horizon})
	if err != nil {
		h.logger.WithError(err).Warn("Evaluation failed")
		respondJSON(w, http.StatusUnprocessableEntity, map[string]interface{}{
			"error":  err.Error(),
			"failed": cmp,
		})
		return
	}

	respondJSON(w, http.StatusOK, cmp)
}

// driverSchedule 요청 JSON → DriverSchedule
func driverSchedule(raw map[string]map[string]float64) (forecast.DriverSchedule, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	schedule := forecast.DriverSchedule{}
	for date, values := range raw {
		d, err := parseDate(date)
		if err != nil || d.IsZero() {
			return nil, fmt.Errorf("invalid driver date %q (expected YYYY-MM-DD)", date)
		}
		for field, v := range values {
			f := contracts.Field(field)
			if !f.IsNumeric() {
				return nil, fmt.Errorf("unknown driver field %q", field)
			}
			schedule.Set(d, f, v)
		}
	}
	return schedule, nil
}
