package jobs

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/wonny/agrimet/internal/brain"
	"github.com/wonny/agrimet/internal/scheduler"
	"github.com/wonny/agrimet/pkg/logger"
)

// DailyForecastJob forecasts every registered model from the latest observation
type DailyForecastJob struct {
	orchestrator *brain.Orchestrator
	horizon      int
	schedule     string
	logger       *logger.Logger
}

// NewDailyForecastJob creates a new daily forecast job
func NewDailyForecastJob(orchestrator *brain.Orchestrator, horizon int, schedule string, log *logger.Logger) *DailyForecastJob {
	return &DailyForecastJob{
		orchestrator: orchestrator,
		horizon:      horizon,
		schedule:     schedule,
		logger:       log,
	}
}

// Name returns the job name
func (j *DailyForecastJob) Name() string {
	return "daily_forecast"
}

// Schedule returns the cron schedule
func (j *DailyForecastJob) Schedule() string {
	return j.schedule
}

// Run executes the batch forecast and stores the runs
// 일부 모델만 실패하면 경고만 남기고, 전부 실패하면 재시도하도록 오류를 반환한다.
func (j *DailyForecastJob) Run(ctx context.Context) (scheduler.Outcome, error) {
	j.logger.WithField("horizon", j.horizon).Info("Starting scheduled forecast")

	results, err := j.orchestrator.RunAll(ctx, time.Time{}, j.horizon, true)
	if err != nil {
		return scheduler.Outcome{}, fmt.Errorf("batch forecast: %w", err)
	}

	var out scheduler.Outcome
	var failed []string
	for _, r := range results {
		switch {
		case r.Success && r.Persisted:
			out.Processed++
		case !r.Success:
			out.Failed++
			failed = append(failed, r.Model)
		}
	}
	if len(failed) > 0 {
		out.Detail = "failed: " + strings.Join(failed, ", ")
	}

	if len(results) > 0 && out.Failed == len(results) {
		return out, fmt.Errorf("all %d models failed: %v", len(results), results[0].Error)
	}

	j.logger.WithFields(map[string]interface{}{
		"models": len(results),
		"stored": out.Processed,
		"failed": out.Failed,
	}).Info("Scheduled forecast completed")

	return out, nil
}
