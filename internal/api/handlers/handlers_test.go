package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/agrimet/internal/backtest"
	"github.com/wonny/agrimet/internal/brain"
	"github.com/wonny/agrimet/internal/crop"
	"github.com/wonny/agrimet/internal/dataset"
	"github.com/wonny/agrimet/internal/forecast"
	"github.com/wonny/agrimet/internal/model"
	"github.com/wonny/agrimet/internal/normalize"
	"github.com/wonny/agrimet/pkg/logger"
	"github.com/wonny/agrimet/pkg/redis"
)

const cuacaCSV = `TANGGAL,RH_AVG,TAVG
01-01-2024,70,27
02-01-2024,75,9999
03-01-2024,80,28
`

const registryYAML = `
models:
  - name: humidity-step
    target: mean_humidity
    kind: linear
    features: [mean_humidity_lag1]
    intercept: 1
    coefficients: [1]
  - name: humidity-flat
    target: mean_humidity
    kind: linear
    features: [mean_temp]
    intercept: 48
    coefficients: [1]
`

const centroids = `label,N,P,K,temperature,humidity,ph,rainfall
rice,80,48,40,23.7,82.3,6.4,236.2
chickpea,40,68,80,18.9,16.9,7.3,80.1
`

type fixture struct {
	router http.Handler
	repo   *forecast.MemoryRepository
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	path := filepath.Join(t.TempDir(), "cuaca.csv")
	require.NoError(t, os.WriteFile(path, []byte(cuacaCSV), 0o644))

	log := logger.Nop()
	cache := dataset.NewCache(
		normalize.New(normalize.DefaultOptions(), zerolog.Nop()),
		redis.NewCache(redis.Disabled(), "agrimet"),
		0,
		zerolog.Nop(),
	)

	reg, err := model.ParseRegistry([]byte(registryYAML))
	require.NoError(t, err)

	repo := forecast.NewMemoryRepository()
	o, err := brain.NewOrchestrator(cache, reg, nil, repo, brain.Options{DatasetPath: path, WarmupDays: 3, Parallelism: 2}, log)
	require.NoError(t, err)

	classifier, err := crop.ReadCentroids(strings.NewReader(centroids))
	require.NoError(t, err)

	series := NewSeriesHandler(cache, path, log)
	fc := NewForecastHandler(o, backtest.NewEngine(o, log), forecast.DefaultDecimals, log)
	cr := NewCropHandler(crop.NewRecommender(classifier, zerolog.Nop()), log)

	r := mux.NewRouter()
	r.HandleFunc("/api/series", series.GetSeries).Methods("GET")
	r.HandleFunc("/api/series/summary", series.GetSummary).Methods("GET")
	r.HandleFunc("/api/series/report", series.GetReport).Methods("GET")
	r.HandleFunc("/api/models", fc.Models).Methods("GET")
	r.HandleFunc("/api/forecast", fc.Create).Methods("POST")
	r.HandleFunc("/api/forecast", fc.List).Methods("GET")
	r.HandleFunc("/api/forecast/{id}", fc.Get).Methods("GET")
	r.HandleFunc("/api/forecast/{id}/csv", fc.GetCSV).Methods("GET")
	r.HandleFunc("/api/evaluate", fc.Evaluate).Methods("POST")
	r.HandleFunc("/api/crop/recommend", cr.Recommend).Methods("POST")

	return &fixture{router: r, repo: repo}
}

func (f *fixture) do(t *testing.T, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != "" {
		reader = bytes.NewReader([]byte(body))
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, target, reader)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

func TestGetSeries(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, "GET", "/api/series?from=2024-01-02", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Count        int `json:"count"`
		Observations []struct {
			Values map[string]float64 `json:"values"`
		} `json:"observations"`
	}
	decode(t, rec, &resp)
	assert.Equal(t, 2, resp.Count)
	// 9999 는 직전 값으로 채워진다
	assert.Equal(t, 27.0, resp.Observations[0].Values["mean_temp"])
}

func TestGetSeries_BadFilter(t *testing.T) {
	f := newFixture(t)

	for _, q := range []string{"from=01-01-2024", "season=monsoon", "months=13", "range=mean_temp:1"} {
		rec := f.do(t, "GET", "/api/series?"+q, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code, q)
	}
}

func TestGetSummaryAndReport(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, "GET", "/api/series/summary", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var summary map[string]interface{}
	decode(t, rec, &summary)
	assert.EqualValues(t, 3, summary["days"])
	assert.Contains(t, summary, "seasonal")

	rec = f.do(t, "GET", "/api/series/report", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "report")
}

func TestForecastLifecycle(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, "POST", "/api/forecast", `{"model":"humidity-step","horizon":3,"persist":true}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var created struct {
		Run struct {
			ID    string `json:"id"`
			Steps []struct {
				Value float64 `json:"value"`
			} `json:"steps"`
		} `json:"run"`
		Stored bool `json:"stored"`
	}
	decode(t, rec, &created)
	require.True(t, created.Stored)
	require.Len(t, created.Run.Steps, 3)
	assert.Equal(t, 81.0, created.Run.Steps[0].Value)

	rec = f.do(t, "GET", "/api/forecast/"+created.Run.ID, "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, "GET", "/api/forecast/"+created.Run.ID+"/csv", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	assert.Equal(t, "date,predicted_value\n2024-01-04,81.00\n2024-01-05,82.00\n2024-01-06,83.00\n", rec.Body.String())

	rec = f.do(t, "GET", "/api/forecast?model=humidity-step", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Count int `json:"count"`
	}
	decode(t, rec, &list)
	assert.Equal(t, 1, list.Count)
}

func TestForecast_Errors(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name   string
		method string
		target string
		body   string
		want   int
	}{
		{"bad json", "POST", "/api/forecast", `{`, http.StatusBadRequest},
		{"no model", "POST", "/api/forecast", `{"horizon":1}`, http.StatusBadRequest},
		{"negative horizon", "POST", "/api/forecast", `{"model":"humidity-step","horizon":-1}`, http.StatusBadRequest},
		{"huge horizon", "POST", "/api/forecast", `{"model":"humidity-step","horizon":10000}`, http.StatusBadRequest},
		{"bad seed date", "POST", "/api/forecast", `{"model":"humidity-step","seed_date":"3/1/2024"}`, http.StatusBadRequest},
		{"bad driver field", "POST", "/api/forecast", `{"model":"humidity-flat","horizon":1,"drivers":{"2024-01-04":{"wind":1}}}`, http.StatusBadRequest},
		{"unknown model", "POST", "/api/forecast", `{"model":"nope","horizon":1}`, http.StatusNotFound},
		{"unknown run", "GET", "/api/forecast/missing", "", http.StatusNotFound},
		{"bad limit", "GET", "/api/forecast?limit=0", "", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(t, tt.method, tt.target, tt.body)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
		})
	}
}

func TestForecast_DriverSchedule(t *testing.T) {
	f := newFixture(t)

	body := `{"model":"humidity-flat","horizon":2,"drivers":{"2024-01-05":{"mean_temp":30}}}`
	rec := f.do(t, "POST", "/api/forecast", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var created struct {
		Run struct {
			Steps []struct {
				Value float64 `json:"value"`
			} `json:"steps"`
		} `json:"run"`
	}
	decode(t, rec, &created)
	require.Len(t, created.Run.Steps, 2)
	assert.Equal(t, 76.0, created.Run.Steps[0].Value)
	assert.Equal(t, 78.0, created.Run.Steps[1].Value)
}

func TestModels(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, "GET", "/api/models", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Hash   string `json:"registry_hash"`
		Models []struct {
			Name string `json:"name"`
		} `json:"models"`
	}
	decode(t, rec, &resp)
	assert.NotEmpty(t, resp.Hash)
	assert.Len(t, resp.Models, 2)
}

func TestEvaluate(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, "POST", "/api/evaluate", `{"horizon":1}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var cmp backtest.Comparison
	decode(t, rec, &cmp)
	assert.Len(t, cmp.Results, 2)
	assert.Equal(t, "humidity-flat", cmp.Selection.BestByRMSE)

	rec = f.do(t, "POST", "/api/evaluate", `{"from":"2024/01/01"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCropRecommend(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, "POST", "/api/crop/recommend",
		`{"n":78,"p":45,"k":42,"temperature":24,"humidity":80,"ph":6.5,"rainfall":220}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var got crop.Recommendation
	decode(t, rec, &got)
	assert.Equal(t, "rice", got.Label)

	rec = f.do(t, "POST", "/api/crop/recommend", `{"n":0,"p":45,"k":42,"temperature":24,"humidity":80,"ph":6.5,"rainfall":220}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
