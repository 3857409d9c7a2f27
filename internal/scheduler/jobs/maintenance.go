package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/wonny/agrimet/internal/contracts"
	"github.com/wonny/agrimet/internal/scheduler"
	"github.com/wonny/agrimet/pkg/logger"
)

// RunCleanupJob deletes stored forecast runs older than the retention period
type RunCleanupJob struct {
	pruner    contracts.RunPruner
	retention time.Duration
	now       func() time.Time
	logger    *logger.Logger
}

// NewRunCleanupJob creates a new run cleanup job
func NewRunCleanupJob(pruner contracts.RunPruner, retention time.Duration, log *logger.Logger) *RunCleanupJob {
	return &RunCleanupJob{
		pruner:    pruner,
		retention: retention,
		now:       time.Now,
		logger:    log,
	}
}

// Name returns the job name
func (j *RunCleanupJob) Name() string {
	return "run_cleanup"
}

// Schedule returns the cron schedule (daily at 3 AM)
func (j *RunCleanupJob) Schedule() string {
	return "0 0 3 * * *"
}

// Run executes the cleanup
func (j *RunCleanupJob) Run(ctx context.Context) (scheduler.Outcome, error) {
	cutoff := j.now().Add(-j.retention)

	n, err := j.pruner.DeleteRunsBefore(ctx, cutoff)
	if err != nil {
		return scheduler.Outcome{}, fmt.Errorf("delete runs: %w", err)
	}

	if n > 0 {
		j.logger.WithFields(map[string]interface{}{
			"removed": n,
			"cutoff":  cutoff.Format(time.RFC3339),
		}).Info("Run cleanup completed")
	}

	return scheduler.Outcome{
		Processed: int(n),
		Detail:    "before " + cutoff.Format("2006-01-02"),
	}, nil
}
