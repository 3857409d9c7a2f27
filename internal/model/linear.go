package model

import (
	"context"
	"fmt"

	"github.com/wonny/agrimet/internal/contracts"
)

// LinearModel 절편 + 피처별 계수
// Features 순서와 FeatureVector.Names 순서가 같아야 한다.
type LinearModel struct {
	Features     []string
	Intercept    float64
	Coefficients []float64
}

// NewLinearModel 계수 개수 검사 후 생성
func NewLinearModel(features []string, intercept float64, coefficients []float64) (*LinearModel, error) {
	if len(features) != len(coefficients) {
		return nil, fmt.Errorf("linear model: %d features but %d coefficients", len(features), len(coefficients))
	}
	return &LinearModel{
		Features:     features,
		Intercept:    intercept,
		Coefficients: coefficients,
	}, nil
}

// Predict implements contracts.Predictor
func (m *LinearModel) Predict(ctx context.Context, fv contracts.FeatureVector) (float64, error) {
	if len(fv.Names) != len(m.Features) {
		return 0, fmt.Errorf("%w: model expects %d features, got %d", contracts.ErrSchemaMismatch, len(m.Features), len(fv.Names))
	}

	y := m.Intercept
	for i, name := range m.Features {
		if fv.Names[i] != name {
			return 0, fmt.Errorf("%w: feature %d is %q, model expects %q", contracts.ErrSchemaMismatch, i, fv.Names[i], name)
		}
		y += m.Coefficients[i] * fv.Values[i]
	}
	return y, nil
}

// Kind metrics 라벨
func (m *LinearModel) Kind() string {
	return KindLinear
}
