package backtest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/agrimet/internal/brain"
	"github.com/wonny/agrimet/internal/contracts"
	"github.com/wonny/agrimet/internal/model"
	"github.com/wonny/agrimet/pkg/logger"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

type staticSource struct {
	series *contracts.CleanSeries
}

func (s staticSource) Load(ctx context.Context, path string) (*contracts.CleanSeries, error) {
	return s.series, nil
}

func trendSeries() *contracts.CleanSeries {
	s := &contracts.CleanSeries{Fields: []contracts.Field{contracts.FieldMeanHumidity, contracts.FieldMeanTemp}}
	for i := 0; i < 5; i++ {
		s.Observations = append(s.Observations, contracts.Observation{
			Date: day(2024, 3, 1+i),
			Values: map[contracts.Field]float64{
				contracts.FieldMeanHumidity: 70 + float64(i),
				contracts.FieldMeanTemp:     26 + float64(i%2),
			},
		})
	}
	return s
}

const registry = `
models:
  - name: step
    target: mean_humidity
    kind: linear
    features: [mean_humidity_lag1]
    intercept: 1
    coefficients: [1]
  - name: temp-driven
    target: mean_humidity
    kind: linear
    features: [mean_temp]
    intercept: 44
    coefficients: [1]
  - name: broken
    target: mean_humidity
    kind: lookup
    table: missing.csv
`

func newEngine(t *testing.T) *Engine {
	t.Helper()
	reg, err := model.ParseRegistry([]byte(registry))
	require.NoError(t, err)

	o, err := brain.NewOrchestrator(staticSource{series: trendSeries()}, reg, nil, nil, brain.Options{}, logger.Nop())
	require.NoError(t, err)
	return NewEngine(o, logger.Nop())
}

func TestRun_OneStepAhead(t *testing.T) {
	res, err := newEngine(t).Run(context.Background(), "step", Config{})
	require.NoError(t, err)

	assert.Equal(t, 1, res.Skipped, "first day has no seed")
	require.Len(t, res.Points, 4)
	for _, p := range res.Points {
		assert.Equal(t, p.Actual, p.Predicted)
	}
	assert.Zero(t, res.Metrics.RMSE)
	assert.Equal(t, 1.0, res.Metrics.R2)
	assert.Equal(t, day(2024, 3, 2), res.StartDate)
	assert.Equal(t, day(2024, 3, 5), res.EndDate)
}

func TestRun_MultiStepHorizon(t *testing.T) {
	res, err := newEngine(t).Run(context.Background(), "step", Config{Horizon: 2, StartDate: day(2024, 3, 4)})
	require.NoError(t, err)

	require.Len(t, res.Points, 2)
	assert.Equal(t, Point{Date: day(2024, 3, 4), Actual: 73, Predicted: 73}, res.Points[0])
}

func TestRun_ObservedDrivers(t *testing.T) {
	res, err := newEngine(t).Run(context.Background(), "temp-driven", Config{Horizon: 2})
	require.NoError(t, err)

	// 예측 = 44 + 해당 날짜의 실제 기온 (seed 기온이 아님)
	require.Len(t, res.Points, 3)
	assert.Equal(t, day(2024, 3, 3), res.Points[0].Date)
	assert.Equal(t, 44+26.0, res.Points[0].Predicted)
	assert.Equal(t, 44+27.0, res.Points[1].Predicted)
}

func TestRun_Errors(t *testing.T) {
	e := newEngine(t)

	_, err := e.Run(context.Background(), "unknown", Config{})
	assert.ErrorIs(t, err, contracts.ErrNotFound)

	_, err = e.Run(context.Background(), "step", Config{StartDate: day(2025, 1, 1)})
	assert.Error(t, err)
}

func TestCompare(t *testing.T) {
	cmp, err := newEngine(t).Compare(context.Background(), nil, Config{})
	require.NoError(t, err)

	assert.Len(t, cmp.Results, 2)
	assert.Contains(t, cmp.Failed, "broken")
	assert.Equal(t, "step", cmp.Selection.BestByRMSE)
	assert.Equal(t, "step", cmp.Selection.BestByR2)
	assert.True(t, cmp.Selection.Agreed)
}
