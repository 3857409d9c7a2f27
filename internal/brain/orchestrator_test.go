package brain

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/agrimet/internal/contracts"
	"github.com/wonny/agrimet/internal/forecast"
	"github.com/wonny/agrimet/internal/model"
	"github.com/wonny/agrimet/pkg/logger"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

type staticSource struct {
	series *contracts.CleanSeries
	err    error
}

func (s staticSource) Load(ctx context.Context, path string) (*contracts.CleanSeries, error) {
	return s.series, s.err
}

func humiditySeries() *contracts.CleanSeries {
	s := &contracts.CleanSeries{Fields: []contracts.Field{contracts.FieldMeanHumidity, contracts.FieldMeanTemp}}
	for i, h := range []float64{70, 75, 80} {
		s.Observations = append(s.Observations, contracts.Observation{
			Date: day(2024, 1, 1+i),
			Values: map[contracts.Field]float64{
				contracts.FieldMeanHumidity: h,
				contracts.FieldMeanTemp:     27,
			},
		})
	}
	return s
}

const testRegistry = `
version: 1
models:
  - name: humidity-step
    target: mean_humidity
    kind: linear
    features: [mean_humidity_lag1]
    intercept: 1
    coefficients: [1]
  - name: humidity-roll
    target: mean_humidity
    kind: linear
    features: [mean_humidity_roll3, mean_temp]
    coefficients: [1, 0]
  - name: humidity-table
    target: mean_humidity
    kind: lookup
    table: does-not-exist.csv
`

func newOrchestrator(t *testing.T, source contracts.SeriesSource, repo contracts.RunRepository) *Orchestrator {
	t.Helper()
	reg, err := model.ParseRegistry([]byte(testRegistry))
	require.NoError(t, err)

	o, err := NewOrchestrator(source, reg, nil, repo, Options{DatasetPath: "cuaca.csv", WarmupDays: 3, Parallelism: 2}, logger.Nop())
	require.NoError(t, err)
	return o
}

func TestRun(t *testing.T) {
	repo := forecast.NewMemoryRepository()
	o := newOrchestrator(t, staticSource{series: humiditySeries()}, repo)

	result, err := o.Run(context.Background(), RunConfig{Model: "humidity-step", Horizon: 3, Persist: true})
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.True(t, result.Persisted)
	assert.Equal(t, []string{"Load", "Seed", "Predictor", "Forecast", "Persist"}, result.CompletedStages)

	run := result.Run
	assert.Equal(t, "humidity-step", run.Model)
	assert.Equal(t, day(2024, 1, 3), run.SeedDate, "defaults to the latest observation")
	assert.Equal(t, []float64{81, 82, 83}, run.Steps.Values())
	assert.Equal(t, o.RegistryHash(), run.RegistryHash)

	stored, err := repo.GetRun(context.Background(), run.ID)
	require.NoError(t, err)
	assert.Equal(t, run.Steps, stored.Steps)
}

func TestRun_WarmupHistory(t *testing.T) {
	o := newOrchestrator(t, staticSource{series: humiditySeries()}, nil)

	result, err := o.Run(context.Background(), RunConfig{Model: "humidity-roll", Horizon: 1})
	require.NoError(t, err)

	// roll-3 = (70+75+80)/3
	assert.InDelta(t, 75.0, result.Run.Steps[0].Value, 1e-9)
	assert.False(t, result.Persisted)
}

func TestRun_SeedDate(t *testing.T) {
	o := newOrchestrator(t, staticSource{series: humiditySeries()}, nil)

	result, err := o.Run(context.Background(), RunConfig{Model: "humidity-step", Horizon: 1, SeedDate: day(2024, 1, 2)})
	require.NoError(t, err)
	assert.Equal(t, contracts.ForecastSequence{{Date: day(2024, 1, 3), Value: 76}}, result.Run.Steps)

	_, err = o.Run(context.Background(), RunConfig{Model: "humidity-step", Horizon: 1, SeedDate: day(2023, 12, 1)})
	assert.ErrorIs(t, err, contracts.ErrNotFound)
}

func TestRun_Failures(t *testing.T) {
	loadErr := errors.New("disk gone")

	tests := []struct {
		name   string
		source contracts.SeriesSource
		config RunConfig
		stages []string
		want   error
	}{
		{"load", staticSource{err: loadErr}, RunConfig{Model: "humidity-step", Horizon: 1}, []string{}, loadErr},
		{"empty series", staticSource{series: &contracts.CleanSeries{}}, RunConfig{Model: "humidity-step", Horizon: 1}, []string{"Load"}, contracts.ErrEmptyInput},
		{"unknown model", staticSource{series: humiditySeries()}, RunConfig{Model: "nope", Horizon: 1}, []string{"Load", "Seed"}, contracts.ErrNotFound},
		{"negative horizon", staticSource{series: humiditySeries()}, RunConfig{Model: "humidity-step", Horizon: -1}, []string{"Load", "Seed", "Predictor"}, contracts.ErrInvalidHorizon},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := newOrchestrator(t, tt.source, nil)

			result, err := o.Run(context.Background(), tt.config)
			assert.ErrorIs(t, err, tt.want)
			assert.False(t, result.Success)
			assert.Nil(t, result.Run)
			assert.Equal(t, tt.stages, result.CompletedStages)
		})
	}
}

func TestRunAll(t *testing.T) {
	repo := forecast.NewMemoryRepository()
	o := newOrchestrator(t, staticSource{series: humiditySeries()}, repo)

	results, err := o.RunAll(context.Background(), time.Time{}, 2, true)
	require.NoError(t, err)
	require.Len(t, results, 3)

	// Names() 정렬 순서: humidity-roll, humidity-step, humidity-table
	assert.True(t, results[0].Success)
	assert.True(t, results[1].Success)
	assert.Equal(t, []float64{81, 82}, results[1].Run.Steps.Values())

	assert.False(t, results[2].Success, "lookup table file is missing")
	assert.Error(t, results[2].Error)

	runs, err := repo.ListRuns(context.Background(), "", 10)
	require.NoError(t, err)
	assert.Len(t, runs, 2)
}

func TestPredictor_Cached(t *testing.T) {
	o := newOrchestrator(t, staticSource{series: humiditySeries()}, nil)

	a, _, err := o.Predictor("humidity-step")
	require.NoError(t, err)
	b, _, err := o.Predictor("humidity-step")
	require.NoError(t, err)
	assert.Same(t, a, b)
}
