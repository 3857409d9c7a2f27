package backtest

import (
	"context"
	"fmt"
	"time"

	"github.com/wonny/agrimet/internal/brain"
	"github.com/wonny/agrimet/internal/contracts"
	"github.com/wonny/agrimet/internal/forecast"
	"github.com/wonny/agrimet/pkg/logger"
)

// Engine 과거 데이터로 모델 예측 성능 평가 (hindcast)
// ⭐ SSOT: 모델 평가 실행은 여기서만
type Engine struct {
	orchestrator *brain.Orchestrator
	logger       *logger.Logger
}

// Config holds backtest configuration
type Config struct {
	StartDate time.Time // zero: 데이터 처음
	EndDate   time.Time // zero: 데이터 끝
	Horizon   int       // 몇 일 앞 예측을 평가할지 (기본 1)
}

// Point 평가 날짜 하나
type Point struct {
	Date      time.Time `json:"date"`
	Actual    float64   `json:"actual"`
	Predicted float64   `json:"predicted"`
}

// Result 모델 하나의 평가 결과
type Result struct {
	Model     string              `json:"model"`
	Target    contracts.Field     `json:"target"`
	Horizon   int                 `json:"horizon"`
	StartDate time.Time           `json:"start_date"`
	EndDate   time.Time           `json:"end_date"`
	Points    []Point             `json:"points"`
	Skipped   int                 `json:"skipped"`
	Metrics   forecast.Metrics    `json:"metrics"`
	Errors    forecast.ErrorStats `json:"errors"`
	Duration  time.Duration       `json:"duration"`
}

// Comparison 여러 모델 비교
type Comparison struct {
	Results   []*Result          `json:"results"`
	Failed    map[string]string  `json:"failed,omitempty"`
	Selection forecast.Selection `json:"selection"`
}

// NewEngine creates a new backtest engine
func NewEngine(orchestrator *brain.Orchestrator, logger *logger.Logger) *Engine {
	return &Engine{
		orchestrator: orchestrator,
		logger:       logger,
	}
}

// Run 모델 하나 평가
// 날짜 d 마다 d-horizon 관측을 seed 로 horizon 일 예측하고 마지막 값을 d 의 실제값과 비교한다.
// 사이 날짜의 드라이버는 관측값을 그대로 쓴다.
func (e *Engine) Run(ctx context.Context, modelName string, config Config) (*Result, error) {
	if config.Horizon <= 0 {
		config.Horizon = 1
	}
	startTime := time.Now()

	series, err := e.orchestrator.Series(ctx)
	if err != nil {
		return nil, err
	}
	predictor, spec, err := e.orchestrator.Predictor(modelName)
	if err != nil {
		return nil, err
	}
	schema := spec.Schema()
	if !series.HasField(schema.Target) {
		return nil, fmt.Errorf("%w: dataset has no %s", contracts.ErrSchemaMismatch, schema.Target)
	}

	result := &Result{
		Model:     spec.Name,
		Target:    schema.Target,
		Horizon:   config.Horizon,
		StartDate: config.StartDate,
		EndDate:   config.EndDate,
	}

	e.logger.WithFields(map[string]interface{}{
		"model":      spec.Name,
		"start_date": config.StartDate.Format("2006-01-02"),
		"end_date":   config.EndDate.Format("2006-01-02"),
		"horizon":    config.Horizon,
	}).Info("Starting backtest")

	for i, obs := range series.Observations {
		if !inRange(obs.Date, config) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		seedDate := obs.Date.AddDate(0, 0, -config.Horizon)
		seedIdx := series.IndexOf(seedDate)
		if seedIdx < 0 {
			result.Skipped++
			continue
		}

		seq, err := e.orchestrator.Forecaster().Forecast(ctx, predictor, forecast.Request{
			Seed:           series.Observations[seedIdx],
			History:        series.Window(seedDate, rollHistory),
			Horizon:        config.Horizon,
			Schema:         schema,
			Features:       spec.FeatureNames(),
			DriverSchedule: observedDrivers(series, seedIdx, i, schema.Drivers),
		})
		if err != nil {
			e.logger.WithError(err).WithField("date", obs.Date.Format("2006-01-02")).Warn("Backtest step failed")
			result.Skipped++
			continue
		}

		result.Points = append(result.Points, Point{
			Date:      obs.Date,
			Actual:    obs.Values[schema.Target],
			Predicted: seq[len(seq)-1].Value,
		})
	}

	if len(result.Points) == 0 {
		return nil, fmt.Errorf("backtest %s: no evaluable dates in range", spec.Name)
	}

	actual, predicted := result.series()
	result.Metrics, _ = forecast.Evaluate(actual, predicted)
	residuals, _ := forecast.Residuals(actual, predicted)
	result.Errors = forecast.Summarize(residuals)
	result.StartDate = result.Points[0].Date
	result.EndDate = result.Points[len(result.Points)-1].Date
	result.Duration = time.Since(startTime)

	e.logger.WithFields(map[string]interface{}{
		"model":   spec.Name,
		"points":  len(result.Points),
		"skipped": result.Skipped,
		"rmse":    fmt.Sprintf("%.3f", result.Metrics.RMSE),
		"r2":      fmt.Sprintf("%.3f", result.Metrics.R2),
	}).Info("Backtest completed")

	return result, nil
}

// Compare 여러 모델 평가 + 최적 모델 선택
// models 가 비어 있으면 레지스트리 전체.
func (e *Engine) Compare(ctx context.Context, models []string, config Config) (*Comparison, error) {
	if len(models) == 0 {
		models = e.orchestrator.Registry().Names()
	}

	cmp := &Comparison{Failed: make(map[string]string)}
	scores := make([]forecast.ModelScore, 0, len(models))
	for _, name := range models {
		res, err := e.Run(ctx, name, config)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			cmp.Failed[name] = err.Error()
			continue
		}
		cmp.Results = append(cmp.Results, res)
		scores = append(scores, forecast.ModelScore{Model: name, Metrics: res.Metrics})
	}

	sel, ok := forecast.SelectBest(scores)
	if !ok {
		return cmp, fmt.Errorf("no model could be evaluated")
	}
	cmp.Selection = sel
	return cmp, nil
}

const rollHistory = 3

func (r *Result) series() (actual, predicted []float64) {
	actual = make([]float64, len(r.Points))
	predicted = make([]float64, len(r.Points))
	for i, p := range r.Points {
		actual[i] = p.Actual
		predicted[i] = p.Predicted
	}
	return actual, predicted
}

func inRange(d time.Time, config Config) bool {
	if !config.StartDate.IsZero() && d.Before(config.StartDate) {
		return false
	}
	if !config.EndDate.IsZero() && d.After(config.EndDate) {
		return false
	}
	return true
}

// observedDrivers seed 다음날부터 target 날짜까지의 실제 드라이버 값
func observedDrivers(series *contracts.CleanSeries, seedIdx, targetIdx int, drivers []contracts.Field) forecast.DriverSchedule {
	if len(drivers) == 0 {
		return nil
	}
	schedule := forecast.DriverSchedule{}
	for _, o := range series.Observations[seedIdx+1 : targetIdx+1] {
		for _, d := range drivers {
			if v, ok := o.Value(d); ok {
				schedule.Set(o.Date, d, v)
			}
		}
	}
	return schedule
}
