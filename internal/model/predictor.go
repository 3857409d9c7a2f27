package model

import (
	"context"

	"github.com/wonny/agrimet/internal/contracts"
)

// 모델 종류
const (
	KindLinear = "linear"
	KindLookup = "lookup"
	KindRemote = "remote"
)

// PredictorFunc 함수를 Predictor 로 사용
type PredictorFunc func(ctx context.Context, fv contracts.FeatureVector) (float64, error)

// Predict implements contracts.Predictor
func (f PredictorFunc) Predict(ctx context.Context, fv contracts.FeatureVector) (float64, error) {
	return f(ctx, fv)
}

// Kind metrics 라벨
func (f PredictorFunc) Kind() string {
	return "func"
}
