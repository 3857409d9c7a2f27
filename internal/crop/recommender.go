package crop

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/rs/zerolog"
)

// FeatureNames 분류기 입력 순서
var FeatureNames = []string{"N", "P", "K", "temperature", "humidity", "ph", "rainfall"}

// ErrInvalidInput 0 이하 또는 비유한 입력
var ErrInvalidInput = errors.New("invalid crop input")

// Input 토양/기상 조건
type Input struct {
	N           float64 `json:"n"`
	P           float64 `json:"p"`
	K           float64 `json:"k"`
	Temperature float64 `json:"temperature"`
	Humidity    float64 `json:"humidity"`
	PH          float64 `json:"ph"`
	Rainfall    float64 `json:"rainfall"`
}

// Vector FeatureNames 순서의 값
func (in Input) Vector() []float64 {
	return []float64{in.N, in.P, in.K, in.Temperature, in.Humidity, in.PH, in.Rainfall}
}

// Validate 모든 값이 0 보다 커야 한다
func (in Input) Validate() error {
	for i, v := range in.Vector() {
		if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
			return fmt.Errorf("%w: %s must be > 0, got %v", ErrInvalidInput, FeatureNames[i], v)
		}
	}
	return nil
}

// Classifier 학습된 분류 모델 (출력: 라벨 인덱스)
type Classifier interface {
	Classify(ctx context.Context, features []float64) (int, error)
}

// Recommendation 추천 결과
type Recommendation struct {
	Index int    `json:"index"`
	Label string `json:"label"`
}

// Recommender 입력 검증 + 분류 + 라벨 변환
type Recommender struct {
	classifier Classifier
	log        zerolog.Logger
}

// NewRecommender 새 추천기 생성
func NewRecommender(classifier Classifier, log zerolog.Logger) *Recommender {
	return &Recommender{
		classifier: classifier,
		log:        log.With().Str("component", "crop").Logger(),
	}
}

// Recommend 입력 조건에 맞는 작물
func (r *Recommender) Recommend(ctx context.Context, in Input) (Recommendation, error) {
	if err := in.Validate(); err != nil {
		return Recommendation{}, err
	}

	idx, err := r.classifier.Classify(ctx, in.Vector())
	if err != nil {
		return Recommendation{}, fmt.Errorf("classify: %w", err)
	}

	rec := Recommendation{Index: idx, Label: Label(idx)}
	if rec.Label == UnknownLabel {
		r.log.Warn().Int("index", idx).Msg("classifier returned index outside label table")
	}
	return rec, nil
}
