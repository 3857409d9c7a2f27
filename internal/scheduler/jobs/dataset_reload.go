package jobs

import (
	"context"
	"fmt"

	"github.com/wonny/agrimet/internal/dataset"
	"github.com/wonny/agrimet/internal/scheduler"
	"github.com/wonny/agrimet/pkg/logger"
)

// DatasetReloadJob re-reads the observation CSV when it changes
// 캐시 키에 파일 수정 시각이 들어 있으므로 LoadEntry 만으로 새 버전을 읽는다.
type DatasetReloadJob struct {
	cache    *dataset.Cache
	path     string
	schedule string
	force    bool
	logger   *logger.Logger
}

// NewDatasetReloadJob creates a new dataset reload job
// force 가 true 면 매번 캐시를 비우고 다시 정규화한다.
func NewDatasetReloadJob(cache *dataset.Cache, path, schedule string, force bool, log *logger.Logger) *DatasetReloadJob {
	return &DatasetReloadJob{
		cache:    cache,
		path:     path,
		schedule: schedule,
		force:    force,
		logger:   log,
	}
}

// Name returns the job name
func (j *DatasetReloadJob) Name() string {
	return "dataset_reload"
}

// Schedule returns the cron schedule
func (j *DatasetReloadJob) Schedule() string {
	return j.schedule
}

// Run reloads the dataset
// Processed 는 정규화된 행 수, Failed 는 보간으로 채운 셀 수.
func (j *DatasetReloadJob) Run(ctx context.Context) (scheduler.Outcome, error) {
	if j.force {
		if err := j.cache.Invalidate(ctx, j.path); err != nil {
			return scheduler.Outcome{}, fmt.Errorf("invalidate dataset: %w", err)
		}
	}

	entry, err := j.cache.LoadEntry(ctx, j.path)
	if err != nil {
		return scheduler.Outcome{}, fmt.Errorf("reload dataset: %w", err)
	}

	filled := entry.Report.TotalFilled()
	j.logger.WithFields(map[string]interface{}{
		"path":      j.path,
		"rows":      entry.Series.Len(),
		"filled":    filled,
		"loaded_at": entry.LoadedAt,
	}).Debug("Dataset reload checked")

	return scheduler.Outcome{
		Processed: entry.Series.Len(),
		Detail:    fmt.Sprintf("%d cells filled (%s)", filled, entry.Report.Policy),
	}, nil
}
