package forecast

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"

	"github.com/wonny/agrimet/internal/contracts"
	"github.com/wonny/agrimet/internal/metrics"
)

// Request 재귀 예측 요청
type Request struct {
	Seed     contracts.Observation
	History  []contracts.Observation // 선택: seed 이전 관측 (roll-3 초기화용)
	Horizon  int
	Schema   Schema
	Features []string // 모델 학습 순서. 비어 있으면 Schema.FeatureNames()

	// DriverSchedule 선택: 미래 드라이버 값. 없으면 seed 값을 유지한다.
	DriverSchedule DriverSchedule

	// SurfacePartial 취소/실패 시 완료된 스텝을 오류와 함께 반환
	SurfacePartial bool
}

// Forecaster 하나의 회귀 모델로 N일 재귀 예측
// 스텝은 순차 실행, 상태는 호출마다 새로 만든다 (동시 호출 안전).
type Forecaster struct {
	log zerolog.Logger
}

// NewForecaster 새 예측기 생성
func NewForecaster(log zerolog.Logger) *Forecaster {
	return &Forecaster{
		log: log.With().Str("component", "forecast.recursive").Logger(),
	}
}

// Forecast seed 다음날부터 horizon 일 예측
func (f *Forecaster) Forecast(ctx context.Context, predictor contracts.Predictor, req Request) (contracts.ForecastSequence, error) {
	if req.Horizon < 0 {
		return nil, &contracts.InvalidHorizonError{Horizon: req.Horizon}
	}
	if req.Horizon == 0 {
		return contracts.ForecastSequence{}, nil
	}

	names := req.Features
	if len(names) == 0 {
		names = req.Schema.FeatureNames()
	}
	if err := req.Schema.Validate(); err != nil {
		return nil, f.fail(&contracts.ForecastError{Err: err})
	}
	if err := req.Schema.CheckFeatures(names); err != nil {
		return nil, f.fail(&contracts.ForecastError{Err: err})
	}

	st, err := newState(req.Schema, req.Seed, req.History)
	if err != nil {
		return nil, f.fail(&contracts.ForecastError{Err: err})
	}

	kind := predictorKind(predictor)
	seq := make(contracts.ForecastSequence, 0, req.Horizon)
	for step := 1; step <= req.Horizon; step++ {
		if err := ctx.Err(); err != nil {
			return f.abort(req, seq, &contracts.ForecastError{Step: step, Date: st.date.AddDate(0, 0, 1), Err: err})
		}

		st.advance(req.DriverSchedule)

		fv, err := st.vector(names)
		if err != nil {
			return f.abort(req, seq, &contracts.ForecastError{Step: step, Date: st.date, Err: err})
		}

		start := time.Now()
		value, err := predictor.Predict(ctx, fv)
		metrics.PredictorLatency.WithLabelValues(kind).Observe(time.Since(start).Seconds())
		if err != nil {
			return f.abort(req, seq, &contracts.ForecastError{Step: step, Date: st.date, Err: err})
		}
		if math.IsNaN(value) || math.IsInf(value, 0) {
			return f.abort(req, seq, &contracts.ForecastError{
				Step: step,
				Date: st.date,
				Err:  fmt.Errorf("%w: %v", contracts.ErrNonFinitePrediction, value),
			})
		}

		seq = append(seq, contracts.ForecastStep{Date: st.date, Value: value})
		st.update(value)

		f.log.Debug().
			Int("step", step).
			Str("date", st.date.Format("2006-01-02")).
			Float64("value", value).
			Msg("forecast step")
	}

	metrics.ForecastRuns.WithLabelValues("ok").Inc()
	f.log.Info().
		Str("target", string(req.Schema.Target)).
		Str("seed", req.Seed.Date.Format("2006-01-02")).
		Int("horizon", req.Horizon).
		Msg("forecast completed")

	return seq, nil
}

// abort 기본은 all-or-nothing, SurfacePartial 이면 완료된 스텝을 함께 반환
func (f *Forecaster) abort(req Request, seq contracts.ForecastSequence, ferr *contracts.ForecastError) (contracts.ForecastSequence, error) {
	err := f.fail(ferr)
	if req.SurfacePartial {
		return seq, err
	}
	return nil, err
}

func (f *Forecaster) fail(err *contracts.ForecastError) error {
	outcome := "failed"
	if ctxErr := err.Err; ctxErr == context.Canceled || ctxErr == context.DeadlineExceeded {
		outcome = "cancelled"
	}
	metrics.ForecastRuns.WithLabelValues(outcome).Inc()
	f.log.Error().Err(err).Int("step", err.Step).Msg("forecast failed")
	return err
}

// kinded 예측기 종류 라벨 (metrics)
type kinded interface {
	Kind() string
}

func predictorKind(p contracts.Predictor) string {
	if k, ok := p.(kinded); ok {
		return k.Kind()
	}
	return "custom"
}
