package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
// ⭐ SSOT: 모든 환경변수는 여기서만 읽음
type Config struct {
	// Server
	Port string
	Env  string // development, staging, production
	HTTP HTTPConfig

	// Dataset
	Dataset DatasetConfig

	// Forecast
	Forecast ForecastConfig

	// Remote predictor
	Predictor PredictorConfig

	// Crop recommendation
	Crop CropConfig

	// Scheduler
	Scheduler SchedulerConfig

	// Database
	Database DatabaseConfig

	// Redis
	Redis RedisConfig

	// Logging
	LogLevel  string
	LogFormat string

	// Monitoring
	MetricsEnabled bool
}

// HTTPConfig holds API server timeouts
// WriteTimeout 은 /api/evaluate 백테스트가 끝날 만큼 길어야 한다.
type HTTPConfig struct {
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// DatasetConfig holds the daily observation dataset settings
type DatasetConfig struct {
	Path             string
	FillPolicy       string    // ffill, linear
	Sentinels        []float64 // 측정 불가 코드 (8888, 9999)
	FillCalendarGaps bool
	CacheTTL         time.Duration
}

// ForecastConfig holds recursive forecast settings
type ForecastConfig struct {
	ModelsFile     string
	DefaultHorizon int
	Decimals       int // CSV 출력 소수 자릿수
	Parallelism    int // 배치 동시 실행 수
	WarmupDays     int // 롤링 윈도우 초기화에 쓰는 과거 관측 수
}

// PredictorConfig holds remote model endpoint settings
type PredictorConfig struct {
	Timeout      time.Duration
	MaxRetries   int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	RatePerSec   float64
	Burst        int
}

// CropConfig holds crop classifier settings
// Endpoint 가 있으면 원격 분류기, 없으면 centroid 테이블 사용
type CropConfig struct {
	CentroidsPath string
	Endpoint      string
}

// SchedulerConfig holds cron expressions for background jobs
type SchedulerConfig struct {
	DailyForecastSpec string
	DatasetReloadSpec string
	RunRetention      time.Duration // 저장된 예측 실행 보관 기간
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Enabled  bool
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	Host     string
	Port     string
	Name     string
	User     string
	Password string
	URL      string

	// Connection Pool
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration

	StatementTimeout time.Duration // 0 이면 서버 기본값
}

// Load reads configuration from environment variables
// ⭐ SSOT: 이 함수만 os.Getenv()를 호출함
func Load() (*Config, error) {
	// Try multiple paths for .env file
	loadEnvFile()

	cfg := &Config{
		// Server
		Port: getEnv("PORT", "8080"),
		Env:  getEnv("ENV", "development"),
		HTTP: HTTPConfig{
			ReadTimeout:     getEnvAsDuration("HTTP_READ_TIMEOUT", "15s"),
			WriteTimeout:    getEnvAsDuration("HTTP_WRITE_TIMEOUT", "2m"),
			IdleTimeout:     getEnvAsDuration("HTTP_IDLE_TIMEOUT", "60s"),
			ShutdownTimeout: getEnvAsDuration("HTTP_SHUTDOWN_TIMEOUT", "30s"),
		},

		// Dataset
		Dataset: DatasetConfig{
			Path:             getEnv("DATASET_PATH", "data/cuaca.csv"),
			FillPolicy:       strings.ToLower(getEnv("FILL_POLICY", "ffill")),
			Sentinels:        getEnvAsFloats("SENTINEL_CODES", []float64{8888, 9999}),
			FillCalendarGaps: getEnvAsBool("FILL_CALENDAR_GAPS", false),
			CacheTTL:         getEnvAsDuration("DATASET_CACHE_TTL", "24h"),
		},

		// Forecast
		Forecast: ForecastConfig{
			ModelsFile:     getEnv("MODELS_FILE", "config/models.yaml"),
			DefaultHorizon: getEnvAsInt("FORECAST_HORIZON", 7),
			Decimals:       getEnvAsInt("FORECAST_DECIMALS", 2),
			Parallelism:    getEnvAsInt("FORECAST_PARALLELISM", 4),
			WarmupDays:     getEnvAsInt("FORECAST_WARMUP_DAYS", 3),
		},

		// Remote predictor
		Predictor: PredictorConfig{
			Timeout:      getEnvAsDuration("PREDICTOR_TIMEOUT", "10s"),
			MaxRetries:   getEnvAsInt("PREDICTOR_MAX_RETRIES", 3),
			InitialDelay: getEnvAsDuration("PREDICTOR_INITIAL_DELAY", "500ms"),
			MaxDelay:     getEnvAsDuration("PREDICTOR_MAX_DELAY", "5s"),
			RatePerSec:   getEnvAsFloat("PREDICTOR_RATE_PER_SEC", 20),
			Burst:        getEnvAsInt("PREDICTOR_BURST", 5),
		},

		// Crop
		Crop: CropConfig{
			CentroidsPath: getEnv("CROP_CENTROIDS", "config/crop_centroids.csv"),
			Endpoint:      getEnv("CROP_ENDPOINT", ""),
		},

		// Scheduler (with seconds)
		Scheduler: SchedulerConfig{
			DailyForecastSpec: getEnv("SCHEDULE_DAILY_FORECAST", "0 0 6 * * *"),
			DatasetReloadSpec: getEnv("SCHEDULE_DATASET_RELOAD", "0 */30 * * * *"),
			RunRetention:      getEnvAsDuration("RUN_RETENTION", "2160h"),
		},

		// Database
		Database: DatabaseConfig{
			Host:             getEnv("DB_HOST", "localhost"),
			Port:             getEnv("DB_PORT", "5432"),
			Name:             getEnv("DB_NAME", "agrimet"),
			User:             getEnv("DB_USER", "agrimet"),
			Password:         getEnv("DB_PASSWORD", ""),
			URL:              getEnv("DATABASE_URL", ""),
			MaxConns:         getEnvAsInt("DB_MAX_CONNS", 25),
			MinConns:         getEnvAsInt("DB_MIN_CONNS", 5),
			MaxConnLifetime:  getEnvAsDuration("DB_MAX_CONN_LIFETIME", "1h"),
			MaxConnIdleTime:  getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", "30m"),
			StatementTimeout: getEnvAsDuration("DB_STATEMENT_TIMEOUT", "30s"),
		},

		// Redis
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
		},

		// Logging
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", ""), // 비어 있으면 ENV 에 따라 결정

		// Monitoring
		MetricsEnabled: getEnvAsBool("METRICS_ENABLED", true),
	}

	// Validate configuration
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// validate checks if required configuration values are set
func (c *Config) validate() error {
	// Validate environment
	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return fmt.Errorf("ENV must be one of: development, staging, production")
	}

	if c.Dataset.FillPolicy != "ffill" && c.Dataset.FillPolicy != "linear" {
		return fmt.Errorf("FILL_POLICY must be one of: ffill, linear")
	}

	if c.Forecast.DefaultHorizon < 0 {
		return fmt.Errorf("FORECAST_HORIZON must not be negative")
	}

	if c.Forecast.Decimals < 0 || c.Forecast.Decimals > 10 {
		return fmt.Errorf("FORECAST_DECIMALS must be between 0 and 10")
	}

	if c.Forecast.Parallelism < 1 {
		return fmt.Errorf("FORECAST_PARALLELISM must be at least 1")
	}

	return nil
}

// HasDatabase reports whether a database URL is configured
func (c *Config) HasDatabase() bool {
	return c.Database.URL != ""
}

// Helper functions (private, only used within this file)

// loadEnvFile tries to load .env from multiple locations
func loadEnvFile() {
	// Try paths in order of priority
	paths := []string{
		".env",
	}
	if explicit := os.Getenv("ENV_FILE"); explicit != "" {
		paths = append([]string{explicit}, paths...)
	}

	// Also try relative to executable
	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		paths = append(paths,
			filepath.Join(exeDir, ".env"),
			filepath.Join(exeDir, "..", ".env"),
		)
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			return
		}
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}

	return value
}

// getEnvAsFloats parses a comma separated list, e.g. "8888,9999"
func getEnvAsFloats(key string, defaultValue []float64) []float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	var values []float64
	for _, part := range strings.Split(valueStr, ",") {
		v, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return defaultValue
		}
		values = append(values, v)
	}

	return values
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		valueStr = defaultValue
	}

	duration, err := time.ParseDuration(valueStr)
	if err != nil {
		// Fallback to default
		duration, _ = time.ParseDuration(defaultValue)
	}

	return duration
}
