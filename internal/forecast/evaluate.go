package forecast

import (
	"errors"
	"math"
	"sort"
)

// Metrics 회귀 평가 지표
type Metrics struct {
	MAE  float64 `json:"mae"`
	MSE  float64 `json:"mse"`
	RMSE float64 `json:"rmse"`
	R2   float64 `json:"r2"`
}

// ErrorStats 잔차(실제 - 예측) 분포 요약
type ErrorStats struct {
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	Std    float64 `json:"std"` // 모표준편차
}

var errLength = errors.New("actual and predicted must be non-empty and the same length")

// Evaluate MAE/MSE/RMSE/R² 계산
// 실제값이 상수이면 R² 는 완벽 예측일 때 1, 아니면 0.
func Evaluate(actual, predicted []float64) (Metrics, error) {
	if len(actual) == 0 || len(actual) != len(predicted) {
		return Metrics{}, errLength
	}

	n := float64(len(actual))
	var absSum, sqSum, actualSum float64
	for i := range actual {
		d := actual[i] - predicted[i]
		absSum += math.Abs(d)
		sqSum += d * d
		actualSum += actual[i]
	}

	actualMean := actualSum / n
	var totSum float64
	for _, a := range actual {
		totSum += (a - actualMean) * (a - actualMean)
	}

	m := Metrics{
		MAE:  absSum / n,
		MSE:  sqSum / n,
		RMSE: math.Sqrt(sqSum / n),
	}
	switch {
	case totSum != 0:
		m.R2 = 1 - sqSum/totSum
	case sqSum == 0:
		m.R2 = 1
	default:
		m.R2 = 0
	}
	return m, nil
}

// Residuals 실제 - 예측
func Residuals(actual, predicted []float64) ([]float64, error) {
	if len(actual) == 0 || len(actual) != len(predicted) {
		return nil, errLength
	}
	out := make([]float64, len(actual))
	for i := range actual {
		out[i] = actual[i] - predicted[i]
	}
	return out, nil
}

// Summarize 잔차 통계
func Summarize(residuals []float64) ErrorStats {
	if len(residuals) == 0 {
		return ErrorStats{}
	}

	sorted := append([]float64(nil), residuals...)
	sort.Float64s(sorted)

	m := mean(sorted)
	var ss float64
	for _, v := range sorted {
		ss += (v - m) * (v - m)
	}

	n := len(sorted)
	median := sorted[n/2]
	if n%2 == 0 {
		median = (sorted[n/2-1] + sorted[n/2]) / 2
	}

	return ErrorStats{
		Min:    sorted[0],
		Max:    sorted[n-1],
		Mean:   m,
		Median: median,
		Std:    math.Sqrt(ss / float64(n)),
	}
}

// ModelScore 모델별 평가 결과
type ModelScore struct {
	Model   string  `json:"model"`
	Metrics Metrics `json:"metrics"`
}

// Selection 최적 모델 선택 결과
// R² 최고 모델과 RMSE 최저 모델이 같으면 Agreed.
type Selection struct {
	BestByR2   string `json:"best_by_r2"`
	BestByRMSE string `json:"best_by_rmse"`
	Agreed     bool   `json:"agreed"`
}

// SelectBest R² 최대 / RMSE 최소 모델 선택. 동점이면 먼저 나온 모델.
func SelectBest(scores []ModelScore) (Selection, bool) {
	if len(scores) == 0 {
		return Selection{}, false
	}

	bestR2, bestRMSE := scores[0], scores[0]
	for _, s := range scores[1:] {
		if s.Metrics.R2 > bestR2.Metrics.R2 {
			bestR2 = s
		}
		if s.Metrics.RMSE < bestRMSE.Metrics.RMSE {
			bestRMSE = s
		}
	}

	return Selection{
		BestByR2:   bestR2.Model,
		BestByRMSE: bestRMSE.Model,
		Agreed:     bestR2.Model == bestRMSE.Model,
	}, true
}
