package contracts

import (
	"context"
	"time"
)

// Predictor 학습된 회귀 모델의 예측 기능
// ⭐ SSOT: 예측기 인터페이스는 여기서만 정의
type Predictor interface {
	Predict(ctx context.Context, fv FeatureVector) (float64, error)
}

// RunRepository 예측 실행 저장소
type RunRepository interface {
	SaveRun(ctx context.Context, run *ForecastRun) error
	GetRun(ctx context.Context, id string) (*ForecastRun, error)
	ListRuns(ctx context.Context, model string, limit int) ([]ForecastRunSummary, error)
}

// RunPruner 오래된 실행 정리 (보관 기간 관리)
type RunPruner interface {
	DeleteRunsBefore(ctx context.Context, before time.Time) (int64, error)
}

// SeriesSource 정규화된 시계열 제공자 (dataset.Cache)
type SeriesSource interface {
	Load(ctx context.Context, path string) (*CleanSeries, error)
}

// Clock 현재 시각 (테스트 주입용)
type Clock func() time.Time
