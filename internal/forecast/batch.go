package forecast

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/wonny/agrimet/internal/contracts"
)

// Job 배치 예측 단위 (모델 x seed)
type Job struct {
	Name      string
	Predictor contracts.Predictor
	Request   Request
}

// Result 배치 예측 결과. 한 작업의 실패는 다른 작업에 영향을 주지 않는다.
type Result struct {
	Name     string
	Sequence contracts.ForecastSequence
	Err      error
}

// Batch 독립적인 예측을 최대 parallelism 개까지 동시에 실행
// 결과는 jobs 와 같은 순서로 반환한다.
func (f *Forecaster) Batch(ctx context.Context, jobs []Job, parallelism int) []Result {
	if parallelism < 1 {
		parallelism = 1
	}

	results := make([]Result, len(jobs))

	var g errgroup.Group
	g.SetLimit(parallelism)
	for i, job := range jobs {
		i, job := i, job
		g.Go(func() error {
			seq, err := f.Forecast(ctx, job.Predictor, job.Request)
			results[i] = Result{Name: job.Name, Sequence: seq, Err: err}
			return nil
		})
	}
	_ = g.Wait()

	return results
}
