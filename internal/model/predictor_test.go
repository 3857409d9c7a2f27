package model

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/agrimet/internal/contracts"
	"github.com/wonny/agrimet/pkg/config"
	"github.com/wonny/agrimet/pkg/httputil"
	"github.com/wonny/agrimet/pkg/logger"
)

func vector(date time.Time, names []string, values []float64) contracts.FeatureVector {
	return contracts.FeatureVector{Date: date, Names: names, Values: values}
}

func TestLinearModel(t *testing.T) {
	m, err := NewLinearModel([]string{"mean_temp", "mean_humidity_lag1"}, 10, []float64{-0.5, 0.9})
	require.NoError(t, err)

	got, err := m.Predict(context.Background(), vector(time.Time{}, []string{"mean_temp", "mean_humidity_lag1"}, []float64{28, 80}))
	require.NoError(t, err)
	assert.InDelta(t, 10-14+72, got, 1e-9)
	assert.Equal(t, KindLinear, m.Kind())
}

func TestLinearModel_SchemaMismatch(t *testing.T) {
	_, err := NewLinearModel([]string{"a", "b"}, 0, []float64{1})
	assert.Error(t, err)

	m, err := NewLinearModel([]string{"mean_temp", "rainfall"}, 0, []float64{1, 1})
	require.NoError(t, err)

	_, err = m.Predict(context.Background(), vector(time.Time{}, []string{"rainfall", "mean_temp"}, []float64{1, 2}))
	assert.ErrorIs(t, err, contracts.ErrSchemaMismatch)

	_, err = m.Predict(context.Background(), vector(time.Time{}, []string{"mean_temp"}, []float64{1}))
	assert.ErrorIs(t, err, contracts.ErrSchemaMismatch)
}

func TestLookupPredictor(t *testing.T) {
	p, err := ReadLookupTable(strings.NewReader("date,predicted_value\n2024-01-02,81.5\n2024-01-03, 82\n"))
	require.NoError(t, err)
	assert.Equal(t, 2, p.Len())

	got, err := p.Predict(context.Background(), vector(time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC), nil, nil))
	require.NoError(t, err)
	assert.Equal(t, 82.0, got)

	_, err = p.Predict(context.Background(), vector(time.Date(2024, 1, 9, 0, 0, 0, 0, time.UTC), nil, nil))
	assert.ErrorIs(t, err, contracts.ErrNotFound)
}

func TestReadLookupTable_Invalid(t *testing.T) {
	tests := []struct {
		name string
		csv  string
	}{
		{"empty", ""},
		{"bad date", "date,predicted_value\n02-01-2024,81\n"},
		{"bad value", "date,predicted_value\n2024-01-02,abc\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadLookupTable(strings.NewReader(tt.csv))
			assert.Error(t, err)
		})
	}
}

func testClient() *httputil.Client {
	cfg := &config.Config{
		Predictor: config.PredictorConfig{
			Timeout:      2 * time.Second,
			MaxRetries:   2,
			InitialDelay: 5 * time.Millisecond,
			MaxDelay:     10 * time.Millisecond,
		},
	}
	return httputil.New(cfg, logger.Nop())
}

func TestRemotePredictor(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		if n == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}

		var req struct {
			Date     string             `json:"date"`
			Features map[string]float64 `json:"features"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "2024-01-02", req.Date)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]float64{"prediction": req.Features["mean_humidity_lag1"] + 1})
	}))
	defer server.Close()

	p := NewRemotePredictor(testClient(), server.URL)
	got, err := p.Predict(context.Background(), vector(
		time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
		[]string{"mean_humidity_lag1"},
		[]float64{80},
	))
	require.NoError(t, err)

	assert.Equal(t, 81.0, got)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls), "503 is retried")
	assert.Equal(t, KindRemote, p.Kind())
}

func TestRemotePredictor_Errors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"bad request", func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "bad features", http.StatusBadRequest)
		}},
		{"missing prediction", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"value": 1}`))
		}},
		{"malformed body", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`not json`))
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(tt.handler)
			defer server.Close()

			_, err := NewRemotePredictor(testClient(), server.URL).Predict(context.Background(), vector(time.Now(), nil, nil))
			assert.Error(t, err)
		})
	}
}

func TestPredictorFunc(t *testing.T) {
	var p contracts.Predictor = PredictorFunc(func(ctx context.Context, fv contracts.FeatureVector) (float64, error) {
		return 42, nil
	})

	got, err := p.Predict(context.Background(), contracts.FeatureVector{})
	require.NoError(t, err)
	assert.Equal(t, 42.0, got)
}
