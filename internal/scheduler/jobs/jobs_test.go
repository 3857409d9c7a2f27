package jobs

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/agrimet/internal/brain"
	"github.com/wonny/agrimet/internal/contracts"
	"github.com/wonny/agrimet/internal/dataset"
	"github.com/wonny/agrimet/internal/forecast"
	"github.com/wonny/agrimet/internal/model"
	"github.com/wonny/agrimet/internal/normalize"
	"github.com/wonny/agrimet/pkg/logger"
)

func writeDataset(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cuaca.csv")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func newCache() *dataset.Cache {
	return dataset.NewCache(normalize.New(normalize.DefaultOptions(), zerolog.Nop()), nil, 0, zerolog.Nop())
}

func TestDatasetReloadJob(t *testing.T) {
	path := writeDataset(t, "TANGGAL,RR\n01-01-2024,1\n02-01-2024,2\n")
	cache := newCache()
	ctx := context.Background()

	job := NewDatasetReloadJob(cache, path, "@every 30m", false, logger.Nop())
	assert.Equal(t, "dataset_reload", job.Name())
	assert.Equal(t, "@every 30m", job.Schedule())
	out, err := job.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, out.Processed)
	assert.Equal(t, "0 cells filled (ffill)", out.Detail)

	first, err := cache.Load(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, 2, first.Len())

	require.NoError(t, os.WriteFile(path, []byte("TANGGAL,RR\n01-01-2024,1\n02-01-2024,2\n03-01-2024,3\n"), 0o644))
	later := time.Now().Add(time.Minute)
	require.NoError(t, os.Chtimes(path, later, later))

	out, err = NewDatasetReloadJob(cache, path, "@daily", true, logger.Nop()).Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, out.Processed)
	second, err := cache.Load(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, 3, second.Len())
}

func TestDatasetReloadJob_MissingFile(t *testing.T) {
	job := NewDatasetReloadJob(newCache(), filepath.Join(t.TempDir(), "missing.csv"), "@daily", false, logger.Nop())
	_, err := job.Run(context.Background())
	assert.Error(t, err)
}

const registry = `
models:
  - name: rain-step
    target: rainfall
    kind: linear
    features: [rainfall_lag1]
    coefficients: [1]
  - name: rain-table
    target: rainfall
    kind: lookup
    table: missing.csv
`

func TestDailyForecastJob(t *testing.T) {
	path := writeDataset(t, "TANGGAL,RR\n01-01-2024,1\n02-01-2024,2\n")
	reg, err := model.ParseRegistry([]byte(registry))
	require.NoError(t, err)

	repo := forecast.NewMemoryRepository()
	o, err := brain.NewOrchestrator(newCache(), reg, nil, repo, brain.Options{DatasetPath: path, Parallelism: 2}, logger.Nop())
	require.NoError(t, err)

	job := NewDailyForecastJob(o, 3, "0 0 6 * * *", logger.Nop())
	assert.Equal(t, "daily_forecast", job.Name())

	// 한 모델이 실패해도 나머지가 저장되면 성공
	out, err := job.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, out.Processed)
	assert.Equal(t, 1, out.Failed)
	assert.Equal(t, "failed: rain-table", out.Detail)

	runs, err := repo.ListRuns(context.Background(), "rain-step", 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, 3, runs[0].Horizon)
}

func TestDailyForecastJob_AllFailed(t *testing.T) {
	path := writeDataset(t, "TANGGAL,RR\n01-01-2024,1\n")
	reg, err := model.ParseRegistry([]byte(`
models:
  - name: rain-table
    target: rainfall
    kind: lookup
    table: missing.csv
`))
	require.NoError(t, err)

	o, err := brain.NewOrchestrator(newCache(), reg, nil, nil, brain.Options{DatasetPath: path}, logger.Nop())
	require.NoError(t, err)

	out, err := NewDailyForecastJob(o, 1, "@daily", logger.Nop()).Run(context.Background())
	assert.Error(t, err)
	assert.Equal(t, 1, out.Failed)
}

func TestRunCleanupJob(t *testing.T) {
	ctx := context.Background()
	repo := forecast.NewMemoryRepository()

	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	for _, age := range []time.Duration{time.Hour, 40 * 24 * time.Hour} {
		run := forecast.NewRun("m", contracts.FieldRainfall, now, nil, "")
		run.CreatedAt = now.Add(-age)
		require.NoError(t, repo.SaveRun(ctx, run))
	}

	job := NewRunCleanupJob(repo, 30*24*time.Hour, logger.Nop())
	job.now = func() time.Time { return now }
	out, err := job.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, out.Processed)
	assert.Equal(t, "before 2024-05-02", out.Detail)

	runs, err := repo.ListRuns(ctx, "", 10)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}
