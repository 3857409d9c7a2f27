package contracts

import (
	"time"
)

// Calendar feature names
const (
	FeatureDayOfWeek = "day_of_week" // Monday=0 ... Sunday=6
	FeatureMonth     = "month"
	FeatureYear      = "year"
)

// FeatureVector 한 스텝의 모델 입력
// Names 순서는 모델 학습 순서와 동일해야 한다. Date 는 메타데이터(피처 아님).
type FeatureVector struct {
	Date   time.Time `json:"date"`
	Names  []string  `json:"names"`
	Values []float64 `json:"values"`
}

// Get 이름으로 피처 값 조회
func (fv FeatureVector) Get(name string) (float64, bool) {
	for i, n := range fv.Names {
		if n == name {
			return fv.Values[i], true
		}
	}
	return 0, false
}

// Map name → value
func (fv FeatureVector) Map() map[string]float64 {
	m := make(map[string]float64, len(fv.Names))
	for i, n := range fv.Names {
		m[n] = fv.Values[i]
	}
	return m
}

// ForecastStep 하루 예측
type ForecastStep struct {
	Date  time.Time `json:"date"`
	Value float64   `json:"value"`
}

// ForecastSequence seed 다음날부터 연속된 일별 예측
type ForecastSequence []ForecastStep

// Values 예측값만 추출
func (s ForecastSequence) Values() []float64 {
	values := make([]float64, len(s))
	for i, step := range s {
		values[i] = step.Value
	}
	return values
}

// ForecastRun 저장 단위 (한 모델, 한 seed)
type ForecastRun struct {
	ID           string           `json:"id"`
	Model        string           `json:"model"`
	Target       Field            `json:"target"`
	SeedDate     time.Time        `json:"seed_date"`
	Horizon      int              `json:"horizon"`
	RegistryHash string           `json:"registry_hash,omitempty"`
	Steps        ForecastSequence `json:"steps"`
	CreatedAt    time.Time        `json:"created_at"`
}

// ForecastRunSummary 목록 조회용 요약
type ForecastRunSummary struct {
	ID        string    `json:"id"`
	Model     string    `json:"model"`
	Target    Field     `json:"target"`
	SeedDate  time.Time `json:"seed_date"`
	Horizon   int       `json:"horizon"`
	CreatedAt time.Time `json:"created_at"`
}
