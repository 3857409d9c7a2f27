package forecast

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluate(t *testing.T) {
	actual := []float64{3, 5, 7, 9}
	predicted := []float64{2, 5, 8, 9}

	m, err := Evaluate(actual, predicted)
	require.NoError(t, err)

	assert.InDelta(t, 0.5, m.MAE, 1e-9)
	assert.InDelta(t, 0.5, m.MSE, 1e-9)
	assert.InDelta(t, math.Sqrt(0.5), m.RMSE, 1e-9)
	// SS_tot = 9+1+1+9 = 20, SS_res = 2
	assert.InDelta(t, 0.9, m.R2, 1e-9)
}

func TestEvaluate_ConstantActual(t *testing.T) {
	m, err := Evaluate([]float64{4, 4, 4}, []float64{4, 4, 4})
	require.NoError(t, err)
	assert.Equal(t, 1.0, m.R2)
	assert.Zero(t, m.RMSE)

	m, err = Evaluate([]float64{4, 4, 4}, []float64{4, 5, 4})
	require.NoError(t, err)
	assert.Equal(t, 0.0, m.R2)
}

func TestEvaluate_LengthMismatch(t *testing.T) {
	_, err := Evaluate([]float64{1, 2}, []float64{1})
	assert.Error(t, err)

	_, err = Evaluate(nil, nil)
	assert.Error(t, err)

	_, err = Residuals([]float64{1}, nil)
	assert.Error(t, err)
}

func TestResidualsAndSummarize(t *testing.T) {
	residuals, err := Residuals([]float64{10, 12, 9, 15}, []float64{11, 10, 9, 12})
	require.NoError(t, err)
	assert.Equal(t, []float64{-1, 2, 0, 3}, residuals)

	stats := Summarize(residuals)
	assert.Equal(t, -1.0, stats.Min)
	assert.Equal(t, 3.0, stats.Max)
	assert.InDelta(t, 1.0, stats.Mean, 1e-9)
	assert.InDelta(t, 1.0, stats.Median, 1e-9)
	// (4+1+1+4)/4
	assert.InDelta(t, math.Sqrt(2.5), stats.Std, 1e-9)

	assert.Equal(t, ErrorStats{}, Summarize(nil))
}

func TestSelectBest(t *testing.T) {
	tests := []struct {
		name   string
		scores []ModelScore
		want   Selection
	}{
		{
			name: "agreement",
			scores: []ModelScore{
				{Model: "linear", Metrics: Metrics{R2: 0.71, RMSE: 2.1}},
				{Model: "forest", Metrics: Metrics{R2: 0.84, RMSE: 1.4}},
				{Model: "svr", Metrics: Metrics{R2: 0.66, RMSE: 2.4}},
			},
			want: Selection{BestByR2: "forest", BestByRMSE: "forest", Agreed: true},
		},
		{
			name: "disagreement",
			scores: []ModelScore{
				{Model: "linear", Metrics: Metrics{R2: 0.80, RMSE: 1.2}},
				{Model: "forest", Metrics: Metrics{R2: 0.84, RMSE: 1.4}},
			},
			want: Selection{BestByR2: "forest", BestByRMSE: "linear"},
		},
		{
			name: "tie keeps first",
			scores: []ModelScore{
				{Model: "a", Metrics: Metrics{R2: 0.5, RMSE: 1}},
				{Model: "b", Metrics: Metrics{R2: 0.5, RMSE: 1}},
			},
			want: Selection{BestByR2: "a", BestByRMSE: "a", Agreed: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := SelectBest(tt.scores)
			require.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}

	_, ok := SelectBest(nil)
	assert.False(t, ok)
}
