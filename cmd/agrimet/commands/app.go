package commands

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/wonny/agrimet/internal/api"
	"github.com/wonny/agrimet/internal/backtest"
	"github.com/wonny/agrimet/internal/brain"
	"github.com/wonny/agrimet/internal/contracts"
	"github.com/wonny/agrimet/internal/crop"
	"github.com/wonny/agrimet/internal/dataset"
	"github.com/wonny/agrimet/internal/forecast"
	"github.com/wonny/agrimet/internal/model"
	"github.com/wonny/agrimet/internal/normalize"
	"github.com/wonny/agrimet/pkg/config"
	"github.com/wonny/agrimet/pkg/database"
	"github.com/wonny/agrimet/pkg/httputil"
	"github.com/wonny/agrimet/pkg/logger"
	"github.com/wonny/agrimet/pkg/redis"
)

// app 커맨드 공통 의존성
type app struct {
	cfg *config.Config
	log *logger.Logger

	httpClient *httputil.Client
	redis      *redis.Client
	db         *database.DB // nil: 메모리 저장소

	normalizer   *normalize.Normalizer
	datasets     *dataset.Cache
	registry     *model.Registry
	repo         contracts.RunRepository
	orchestrator *brain.Orchestrator
	engine       *backtest.Engine
}

// appOptions 플래그로 설정을 덮어쓸 값
type appOptions struct {
	DatasetPath string
	FillPolicy  string
	ModelsFile  string
	NoModels    bool // 레지스트리 없이 (normalize, crop)
	UseDatabase bool
}

// loadConfig config + logger
func loadConfig() (*config.Config, *logger.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, logger.New(cfg), nil
}

// newApp 설정을 읽고 파이프라인을 조립한다
func newApp(ctx context.Context, opts appOptions) (*app, error) {
	cfg, log, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if opts.DatasetPath != "" {
		cfg.Dataset.Path = opts.DatasetPath
	}
	if opts.FillPolicy != "" {
		cfg.Dataset.FillPolicy = opts.FillPolicy
	}
	if opts.ModelsFile != "" {
		cfg.Forecast.ModelsFile = opts.ModelsFile
	}

	a := &app{cfg: cfg, log: log, httpClient: httputil.New(cfg, log)}

	// 1. Redis (선택)
	a.redis, err = redis.New(cfg)
	if err != nil {
		log.WithError(err).Warn("Redis unavailable, continuing without L2 cache")
		a.redis = redis.Disabled()
	}

	// 2. Normalizer + dataset cache
	policy, err := contracts.ParseFillPolicy(cfg.Dataset.FillPolicy)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.normalizer = normalize.New(normalize.Options{
		Policy:           policy,
		Sentinels:        cfg.Dataset.Sentinels,
		FillCalendarGaps: cfg.Dataset.FillCalendarGaps,
	}, log.Zerolog())
	a.datasets = dataset.NewCache(a.normalizer, redis.NewCache(a.redis, "agrimet"), cfg.Dataset.CacheTTL, log.Zerolog())

	if opts.NoModels {
		return a, nil
	}

	// 3. Run repository
	if err := a.openRepository(ctx, opts.UseDatabase); err != nil {
		a.Close()
		return nil, err
	}

	// 4. Model registry
	reg, _, err := model.LoadRegistry(cfg.Forecast.ModelsFile)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("load model registry %s: %w", cfg.Forecast.ModelsFile, err)
	}
	a.registry = reg
	log.WithField("file", cfg.Forecast.ModelsFile).Infof("Loaded %d models", len(reg.Names()))

	// 5. Orchestrator + backtest engine
	a.orchestrator, err = brain.NewOrchestrator(a.datasets, reg, a.httpClient, a.repo, brain.Options{
		DatasetPath: cfg.Dataset.Path,
		WarmupDays:  cfg.Forecast.WarmupDays,
		Parallelism: cfg.Forecast.Parallelism,
	}, log)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.engine = backtest.NewEngine(a.orchestrator, log)

	return a, nil
}

// openRepository DB 가 설정되어 있으면 Postgres, 아니면 메모리. 둘 다 Redis 캐시를 앞에 둔다.
func (a *app) openRepository(ctx context.Context, useDatabase bool) error {
	var base contracts.RunRepository = forecast.NewMemoryRepository()

	if useDatabase {
		db, err := database.New(a.cfg)
		switch {
		case errors.Is(err, database.ErrNotConfigured):
			a.log.Info("DATABASE_URL not set, runs are kept in memory")
		case err != nil:
			return fmt.Errorf("connect to database: %w", err)
		default:
			repo := forecast.NewRepository(db.Pool)
			if err := repo.EnsureSchema(ctx); err != nil {
				db.Close()
				return err
			}
			a.db = db
			base = repo
			a.log.Info("Connected to database")
		}
	}

	a.repo = forecast.NewCachedRepository(base, redis.NewCache(a.redis, "agrimet"))
	return nil
}

// pruner 저장소가 정리를 지원하면 반환
func (a *app) pruner() (contracts.RunPruner, bool) {
	p, ok := a.repo.(contracts.RunPruner)
	return p, ok
}

// recommender CROP_ENDPOINT 가 있으면 원격, 없으면 centroid 테이블
func (a *app) recommender() (*crop.Recommender, error) {
	var classifier crop.Classifier
	if a.cfg.Crop.Endpoint != "" {
		classifier = crop.NewRemoteClassifier(a.httpClient, a.cfg.Crop.Endpoint)
	} else {
		c, err := crop.LoadCentroids(a.cfg.Crop.CentroidsPath)
		if err != nil {
			return nil, err
		}
		classifier = c
	}
	return crop.NewRecommender(classifier, a.log.Zerolog()), nil
}

// healthChecks /health 점검 목록. 설정된 의존성만 포함한다.
func (a *app) healthChecks() map[string]api.HealthCheck {
	checks := map[string]api.HealthCheck{
		"dataset": func(context.Context) error {
			_, err := os.Stat(a.cfg.Dataset.Path)
			return err
		},
	}
	if a.db != nil {
		checks["database"] = a.db.Ping
	}
	if a.redis.Enabled() {
		checks["redis"] = a.redis.Ping
	}
	return checks
}

// Close 연결 정리
func (a *app) Close() {
	if a.db != nil {
		a.db.Close()
	}
	if a.redis != nil {
		_ = a.redis.Close()
	}
}
