package brain

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/wonny/agrimet/internal/contracts"
	"github.com/wonny/agrimet/internal/forecast"
	"github.com/wonny/agrimet/internal/model"
	"github.com/wonny/agrimet/pkg/httputil"
	"github.com/wonny/agrimet/pkg/logger"
)

// Orchestrator 예측 파이프라인 조율
// Load → Seed → Predictor → Forecast → Persist
// ⭐ SSOT: 파이프라인 조율은 여기서만
type Orchestrator struct {
	source       contracts.SeriesSource
	datasetPath  string
	registry     *model.Registry
	registryHash string
	client       *httputil.Client
	forecaster   *forecast.Forecaster
	repo         contracts.RunRepository

	warmupDays  int
	parallelism int

	mu         sync.Mutex
	predictors map[string]contracts.Predictor

	logger *logger.Logger
}

// Options 파이프라인 설정
type Options struct {
	DatasetPath string
	WarmupDays  int // seed 이전 관측 수 (roll-3 초기화)
	Parallelism int
}

// RunConfig 한 번의 예측 실행
type RunConfig struct {
	Model          string
	SeedDate       time.Time // zero: 데이터셋의 마지막 날짜
	Horizon        int
	DriverSchedule forecast.DriverSchedule
	Persist        bool
	SurfacePartial bool
}

// RunResult 실행 결과
type RunResult struct {
	Model           string
	Run             *contracts.ForecastRun
	Success         bool
	Error           error
	Persisted       bool
	CompletedStages []string
	Duration        time.Duration
}

// NewOrchestrator creates a new orchestrator
// repo 가 nil 이면 결과를 저장하지 않는다.
func NewOrchestrator(
	source contracts.SeriesSource,
	registry *model.Registry,
	client *httputil.Client,
	repo contracts.RunRepository,
	opts Options,
	log *logger.Logger,
) (*Orchestrator, error) {
	hash, err := registry.Hash()
	if err != nil {
		return nil, fmt.Errorf("hash model registry: %w", err)
	}
	if opts.Parallelism < 1 {
		opts.Parallelism = 1
	}

	return &Orchestrator{
		source:       source,
		datasetPath:  opts.DatasetPath,
		registry:     registry,
		registryHash: hash,
		client:       client,
		forecaster:   forecast.NewForecaster(log.Zerolog()),
		repo:         repo,
		warmupDays:   opts.WarmupDays,
		parallelism:  opts.Parallelism,
		predictors:   make(map[string]contracts.Predictor),
		logger:       log,
	}, nil
}

// Registry 모델 레지스트리
func (o *Orchestrator) Registry() *model.Registry {
	return o.registry
}

// RegistryHash 레지스트리 버전
func (o *Orchestrator) RegistryHash() string {
	return o.registryHash
}

// Forecaster 재귀 예측기
func (o *Orchestrator) Forecaster() *forecast.Forecaster {
	return o.forecaster
}

// Repository 실행 저장소 (nil 가능)
func (o *Orchestrator) Repository() contracts.RunRepository {
	return o.repo
}

// Series 현재 데이터셋
func (o *Orchestrator) Series(ctx context.Context) (*contracts.CleanSeries, error) {
	return o.source.Load(ctx, o.datasetPath)
}

// Predictor 모델 이름 → 예측기 (한 번 만들면 재사용)
func (o *Orchestrator) Predictor(name string) (contracts.Predictor, model.ModelSpec, error) {
	spec, ok := o.registry.Get(name)
	if !ok {
		return nil, model.ModelSpec{}, fmt.Errorf("%w: model %q", contracts.ErrNotFound, name)
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	if p, ok := o.predictors[name]; ok {
		return p, spec, nil
	}
	p, err := o.registry.Build(spec, o.client)
	if err != nil {
		return nil, spec, err
	}
	o.predictors[name] = p
	return p, spec, nil
}

// Seed seed 관측과 warm-up 이력
func (o *Orchestrator) Seed(series *contracts.CleanSeries, date time.Time) (contracts.Observation, []contracts.Observation, error) {
	if series.Len() == 0 {
		return contracts.Observation{}, nil, contracts.ErrEmptyInput
	}
	if date.IsZero() {
		date = series.Last().Date
	}

	idx := series.IndexOf(date)
	if idx < 0 {
		return contracts.Observation{}, nil, fmt.Errorf("%w: no observation on %s", contracts.ErrNotFound, date.Format("2006-01-02"))
	}

	var history []contracts.Observation
	if o.warmupDays > 0 {
		history = series.Window(date, o.warmupDays)
	}
	return series.Observations[idx], history, nil
}

// Run 단일 모델 예측 실행
func (o *Orchestrator) Run(ctx context.Context, config RunConfig) (*RunResult, error) {
	startTime := time.Now()
	result := &RunResult{Model: config.Model, CompletedStages: make([]string, 0, 5)}

	o.logger.WithFields(map[string]interface{}{
		"model":   config.Model,
		"horizon": config.Horizon,
		"persist": config.Persist,
	}).Info("Starting forecast run")

	series, err := o.Series(ctx)
	if err != nil {
		return o.failed(result, "load", err)
	}
	result.CompletedStages = append(result.CompletedStages, "Load")

	seed, history, err := o.Seed(series, config.SeedDate)
	if err != nil {
		return o.failed(result, "seed", err)
	}
	result.CompletedStages = append(result.CompletedStages, "Seed")

	predictor, spec, err := o.Predictor(config.Model)
	if err != nil {
		return o.failed(result, "predictor", err)
	}
	result.CompletedStages = append(result.CompletedStages, "Predictor")

	seq, err := o.forecaster.Forecast(ctx, predictor, o.request(spec, seed, history, config))
	if err != nil {
		if config.SurfacePartial && len(seq) > 0 {
			result.Run = forecast.NewRun(spec.Name, spec.Target, seed.Date, seq, o.registryHash)
		}
		return o.failed(result, "forecast", err)
	}
	result.Run = forecast.NewRun(spec.Name, spec.Target, seed.Date, seq, o.registryHash)
	result.CompletedStages = append(result.CompletedStages, "Forecast")

	if config.Persist {
		if err := o.persist(ctx, result); err != nil {
			return o.failed(result, "persist", err)
		}
	}

	result.Success = true
	result.Duration = time.Since(startTime)

	o.logger.WithFields(map[string]interface{}{
		"run_id":   result.Run.ID,
		"model":    spec.Name,
		"seed":     seed.Date.Format("2006-01-02"),
		"steps":    len(seq),
		"duration": result.Duration.Seconds(),
	}).Info("Forecast run completed")

	return result, nil
}

// RunAll 레지스트리의 모든 모델을 같은 seed 로 병렬 실행
// 한 모델의 실패는 다른 모델에 영향을 주지 않는다.
func (o *Orchestrator) RunAll(ctx context.Context, seedDate time.Time, horizon int, persist bool) ([]*RunResult, error) {
	series, err := o.Series(ctx)
	if err != nil {
		return nil, err
	}
	seed, history, err := o.Seed(series, seedDate)
	if err != nil {
		return nil, err
	}

	names := o.registry.Names()
	results := make([]*RunResult, len(names))
	specs := make([]model.ModelSpec, len(names))
	jobs := make([]forecast.Job, 0, len(names))
	jobIndex := make([]int, 0, len(names))

	for i, name := range names {
		results[i] = &RunResult{Model: name, CompletedStages: []string{"Load", "Seed"}}
		predictor, spec, err := o.Predictor(name)
		specs[i] = spec
		if err != nil {
			results[i].Error = fmt.Errorf("predictor: %w", err)
			continue
		}
		results[i].CompletedStages = append(results[i].CompletedStages, "Predictor")
		jobs = append(jobs, forecast.Job{
			Name:      name,
			Predictor: predictor,
			Request:   o.request(spec, seed, history, RunConfig{Horizon: horizon}),
		})
		jobIndex = append(jobIndex, i)
	}

	for k, res := range o.forecaster.Batch(ctx, jobs, o.parallelism) {
		i := jobIndex[k]
		if res.Err != nil {
			results[i].Error = fmt.Errorf("forecast: %w", res.Err)
			continue
		}
		results[i].Run = forecast.NewRun(specs[i].Name, specs[i].Target, seed.Date, res.Sequence, o.registryHash)
		results[i].CompletedStages = append(results[i].CompletedStages, "Forecast")

		if persist {
			if err := o.persist(ctx, results[i]); err != nil {
				results[i].Error = fmt.Errorf("persist: %w", err)
				continue
			}
		}
		results[i].Success = true
	}

	failed := 0
	for i, r := range results {
		if !r.Success {
			failed++
			o.logger.WithFields(map[string]interface{}{
				"model": names[i],
				"error": fmt.Sprint(r.Error),
			}).Warn("Model forecast failed")
		}
	}
	o.logger.WithFields(map[string]interface{}{
		"models": len(names),
		"failed": failed,
		"seed":   seed.Date.Format("2006-01-02"),
	}).Info("Batch forecast completed")

	return results, nil
}

func (o *Orchestrator) request(spec model.ModelSpec, seed contracts.Observation, history []contracts.Observation, config RunConfig) forecast.Request {
	return forecast.Request{
		Seed:           seed,
		History:        history,
		Horizon:        config.Horizon,
		Schema:         spec.Schema(),
		Features:       spec.FeatureNames(),
		DriverSchedule: config.DriverSchedule,
		SurfacePartial: config.SurfacePartial,
	}
}

func (o *Orchestrator) persist(ctx context.Context, result *RunResult) error {
	if o.repo == nil {
		o.logger.Warn("No run repository configured, skipping persist")
		return nil
	}
	if err := o.repo.SaveRun(ctx, result.Run); err != nil {
		return err
	}
	result.Persisted = true
	result.CompletedStages = append(result.CompletedStages, "Persist")
	return nil
}

func (o *Orchestrator) failed(result *RunResult, stage string, err error) (*RunResult, error) {
	result.Error = fmt.Errorf("%s failed: %w", stage, err)
	o.logger.WithError(err).WithField("stage", stage).Error("Forecast run failed")
	return result, result.Error
}
