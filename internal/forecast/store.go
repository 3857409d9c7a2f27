package forecast

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/wonny/agrimet/internal/contracts"
	"github.com/wonny/agrimet/pkg/redis"
)

// MemoryRepository DB 없이 실행할 때의 프로세스 내 저장소
type MemoryRepository struct {
	mu   sync.RWMutex
	runs map[string]*contracts.ForecastRun
}

// NewMemoryRepository 새 메모리 저장소 생성
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{runs: make(map[string]*contracts.ForecastRun)}
}

// SaveRun implements contracts.RunRepository
func (m *MemoryRepository) SaveRun(ctx context.Context, run *contracts.ForecastRun) error {
	if run.ID == "" {
		return fmt.Errorf("run id required")
	}
	cp := *run
	cp.Steps = append(contracts.ForecastSequence(nil), run.Steps...)

	m.mu.Lock()
	m.runs[run.ID] = &cp
	m.mu.Unlock()
	return nil
}

// GetRun implements contracts.RunRepository
func (m *MemoryRepository) GetRun(ctx context.Context, id string) (*contracts.ForecastRun, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	run, ok := m.runs[id]
	if !ok {
		return nil, fmt.Errorf("%w: run %s", contracts.ErrNotFound, id)
	}
	cp := *run
	return &cp, nil
}

// ListRuns implements contracts.RunRepository
func (m *MemoryRepository) ListRuns(ctx context.Context, model string, limit int) ([]contracts.ForecastRunSummary, error) {
	if limit <= 0 {
		limit = 20
	}

	m.mu.RLock()
	var out []contracts.ForecastRunSummary
	for _, r := range m.runs {
		if model != "" && r.Model != model {
			continue
		}
		out = append(out, summaryOf(r))
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// DeleteRunsBefore implements contracts.RunPruner
func (m *MemoryRepository) DeleteRunsBefore(ctx context.Context, before time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var n int64
	for id, r := range m.runs {
		if r.CreatedAt.Before(before) {
			delete(m.runs, id)
			n++
		}
	}
	return n, nil
}

func summaryOf(r *contracts.ForecastRun) contracts.ForecastRunSummary {
	return contracts.ForecastRunSummary{
		ID:        r.ID,
		Model:     r.Model,
		Target:    r.Target,
		SeedDate:  r.SeedDate,
		Horizon:   r.Horizon,
		CreatedAt: r.CreatedAt,
	}
}

// CachedRepository 실행 조회 결과를 Redis 에 캐시
// 실행은 저장 후 바뀌지 않으므로 무효화가 필요 없다.
type CachedRepository struct {
	contracts.RunRepository
	cache *redis.Cache
}

// NewCachedRepository repo 앞에 Redis 캐시를 둔다
func NewCachedRepository(repo contracts.RunRepository, cache *redis.Cache) *CachedRepository {
	return &CachedRepository{RunRepository: repo, cache: cache}
}

// SaveRun 저장 후 캐시에 기록
func (c *CachedRepository) SaveRun(ctx context.Context, run *contracts.ForecastRun) error {
	if err := c.RunRepository.SaveRun(ctx, run); err != nil {
		return err
	}
	if c.cache != nil {
		_ = c.cache.Set(ctx, redis.ForecastRunKey(run.ID), run, redis.TTLDaily)
	}
	return nil
}

// GetRun 캐시 우선 조회
func (c *CachedRepository) GetRun(ctx context.Context, id string) (*contracts.ForecastRun, error) {
	if c.cache != nil {
		var run contracts.ForecastRun
		if found, err := c.cache.Get(ctx, redis.ForecastRunKey(id), &run); err == nil && found {
			return &run, nil
		}
	}

	run, err := c.RunRepository.GetRun(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.cache != nil {
		_ = c.cache.Set(ctx, redis.ForecastRunKey(id), run, redis.TTLDaily)
	}
	return run, nil
}

// DeleteRunsBefore 하위 저장소가 정리를 지원하면 위임하고 캐시를 비운다
func (c *CachedRepository) DeleteRunsBefore(ctx context.Context, before time.Time) (int64, error) {
	pruner, ok := c.RunRepository.(contracts.RunPruner)
	if !ok {
		return 0, fmt.Errorf("repository does not support pruning")
	}
	n, err := pruner.DeleteRunsBefore(ctx, before)
	if err != nil {
		return 0, err
	}
	if n > 0 && c.cache != nil {
		_, _ = c.cache.DeleteMatching(ctx, redis.ForecastRunPattern())
	}
	return n, nil
}
