package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/wonny/agrimet/internal/analysis"
	"github.com/wonny/agrimet/internal/contracts"
	"github.com/wonny/agrimet/internal/dataset"
	"github.com/wonny/agrimet/pkg/logger"
)

// SeriesHandler handles dataset exploration endpoints
type SeriesHandler struct {
	cache  *dataset.Cache
	path   string
	logger *logger.Logger
}

// NewSeriesHandler creates a new series handler
func NewSeriesHandler(cache *dataset.Cache, path string, log *logger.Logger) *SeriesHandler {
	return &SeriesHandler{cache: cache, path: path, logger: log}
}

// SeriesResponse 필터 적용 결과
type SeriesResponse struct {
	Count        int                     `json:"count"`
	Fields       []contracts.Field       `json:"fields"`
	Observations []contracts.Observation `json:"observations"`
}

// GetSeries returns filtered observations
// GET /api/series?from=&to=&season=wet|dry&months=1,2&range=mean_temp:25:30
func (h *SeriesHandler) GetSeries(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	entry, err := h.cache.LoadEntry(r.Context(), h.path)
	if err != nil {
		h.logger.WithError(err).Error("Failed to load dataset")
		respondError(w, statusFor(err), "Failed to load dataset")
		return
	}

	filtered := filter.Apply(entry.Series)
	respondJSON(w, http.StatusOK, SeriesResponse{
		Count:        filtered.Len(),
		Fields:       filtered.Fields,
		Observations: filtered.Observations,
	})
}

// SummaryResponse 기간 요약 + 계절 평균
type SummaryResponse struct {
	analysis.Summary
	Seasonal map[contracts.Field]map[analysis.Season]float64 `json:"seasonal"`
}

// GetSummary returns per-field statistics for the filtered range
// GET /api/series/summary
func (h *SeriesHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	series, err := h.cache.Load(r.Context(), h.path)
	if err != nil {
		h.logger.WithError(err).Error("Failed to load dataset")
		respondError(w, statusFor(err), "Failed to load dataset")
		return
	}

	filtered := filter.Apply(series)
	resp := SummaryResponse{
		Summary:  analysis.Summarize(filtered),
		Seasonal: make(map[contracts.Field]map[analysis.Season]float64, len(filtered.Fields)),
	}
	for _, f := range filtered.Fields {
		resp.Seasonal[f] = analysis.SeasonalMeans(filtered, f)
	}
	respondJSON(w, http.StatusOK, resp)
}

// GetReport returns the normalization report of the current dataset
// GET /api/series/report
func (h *SeriesHandler) GetReport(w http.ResponseWriter, r *http.Request) {
	entry, err := h.cache.LoadEntry(r.Context(), h.path)
	if err != nil {
		h.logger.WithError(err).Error("Failed to load dataset")
		respondError(w, statusFor(err), "Failed to load dataset")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"path":      h.path,
		"loaded_at": entry.LoadedAt,
		"report":    entry.Report,
	})
}

// parseFilter 쿼리 → analysis.Filter
func parseFilter(r *http.Request) (analysis.Filter, error) {
	q := r.URL.Query()
	var f analysis.Filter
	var err error

	if f.From, err = parseDate(q.Get("from")); err != nil {
		return f, fmt.Errorf("invalid 'from' date format (expected YYYY-MM-DD)")
	}
	if f.To, err = parseDate(q.Get("to")); err != nil {
		return f, fmt.Errorf("invalid 'to' date format (expected YYYY-MM-DD)")
	}
	if f.Season, err = analysis.ParseSeason(q.Get("season")); err != nil {
		return f, err
	}

	if months := q.Get("months"); months != "" {
		for _, part := range strings.Split(months, ",") {
			m, err := strconv.Atoi(strings.TrimSpace(part))
			if err != nil || m < 1 || m > 12 {
				return f, fmt.Errorf("invalid month %q", part)
			}
			f.Months = append(f.Months, time.Month(m))
		}
	}

	// range=field:min:max (반복 가능)
	for _, spec := range q["range"] {
		parts := strings.Split(spec, ":")
		if len(parts) != 3 {
			return f, fmt.Errorf("invalid range %q (expected field:min:max)", spec)
		}
		field := contracts.Field(parts[0])
		if !field.IsNumeric() {
			return f, fmt.Errorf("unknown field %q", parts[0])
		}
		lo, err1 := strconv.ParseFloat(parts[1], 64)
		hi, err2 := strconv.ParseFloat(parts[2], 64)
		if err1 != nil || err2 != nil || lo > hi {
			return f, fmt.Errorf("invalid range %q", spec)
		}
		if f.Ranges == nil {
			f.Ranges = make(map[contracts.Field]analysis.Range)
		}
		f.Ranges[field] = analysis.Range{Min: lo, Max: hi}
	}
	return f, nil
}
