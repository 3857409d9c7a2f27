package scheduler

import (
	"context"
	"time"
)

// Job represents a scheduled job
// ⭐ SSOT: 스케줄 작업 인터페이스는 여기서만 정의
type Job interface {
	Name() string

	// Run 작업 1회 실행. 실패해도 가능한 만큼 Outcome 을 채운다.
	Run(ctx context.Context) (Outcome, error)

	// Schedule cron 표현식 (초 포함)
	// 예: "0 0 6 * * *" (매일 06:00), "@every 30m"
	Schedule() string
}

// Outcome 작업이 처리한 양
// Processed 의 의미는 작업마다 다르다 (정규화 행 수, 저장한 실행 수, 삭제한 실행 수).
type Outcome struct {
	Processed int    `json:"processed"`
	Failed    int    `json:"failed,omitempty"`
	Detail    string `json:"detail,omitempty"`
}

// Trigger 실행 계기
type Trigger string

const (
	TriggerCron   Trigger = "cron"
	TriggerManual Trigger = "manual"
)

// JobResult 실행 1회 기록 (재시도 포함)
type JobResult struct {
	JobName   string        `json:"job_name"`
	Trigger   Trigger       `json:"trigger"`
	StartTime time.Time     `json:"start_time"`
	EndTime   time.Time     `json:"end_time"`
	Duration  time.Duration `json:"duration"`
	Attempts  int           `json:"attempts"`
	Success   bool          `json:"success"`
	Outcome   Outcome       `json:"outcome"`
	Error     string        `json:"error,omitempty"`
}

// maxHistory 작업당 보관하는 실행 결과 수
const maxHistory = 100

// JobHistory 최근 실행 기록 (오래된 것부터)
type JobHistory struct {
	Results []JobResult
}

func (h *JobHistory) add(result JobResult) {
	h.Results = append(h.Results, result)
	if len(h.Results) > maxHistory {
		h.Results = h.Results[len(h.Results)-maxHistory:]
	}
}

// Latest 최근 n 건
func (h *JobHistory) Latest(n int) []JobResult {
	if n > len(h.Results) {
		n = len(h.Results)
	}
	if n <= 0 {
		return []JobResult{}
	}
	return h.Results[len(h.Results)-n:]
}

// Failures 실패한 실행만
func (h *JobHistory) Failures() []JobResult {
	failed := make([]JobResult, 0)
	for _, r := range h.Results {
		if !r.Success {
			failed = append(failed, r)
		}
	}
	return failed
}

// SuccessRate 0.0 ~ 1.0, 기록이 없으면 0
func (h *JobHistory) SuccessRate() float64 {
	if len(h.Results) == 0 {
		return 0
	}

	ok := 0
	for _, r := range h.Results {
		if r.Success {
			ok++
		}
	}
	return float64(ok) / float64(len(h.Results))
}

// ConsecutiveFailures 마지막 성공 이후 연속 실패 수
func (h *JobHistory) ConsecutiveFailures() int {
	n := 0
	for i := len(h.Results) - 1; i >= 0 && !h.Results[i].Success; i-- {
		n++
	}
	return n
}

func (h *JobHistory) snapshot() JobHistory {
	return JobHistory{Results: append([]JobResult(nil), h.Results...)}
}
