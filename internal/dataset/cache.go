package dataset

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/wonny/agrimet/internal/contracts"
	"github.com/wonny/agrimet/internal/metrics"
	"github.com/wonny/agrimet/internal/normalize"
	"github.com/wonny/agrimet/pkg/redis"
)

// Key 정규화 결과의 버전 (파일 경로 + 수정 시각 + 보간 정책)
type Key struct {
	Path    string
	ModTime time.Time
	Policy  contracts.FillPolicy
}

func (k Key) redisKey() string {
	return redis.SeriesKey(k.Path, k.ModTime.UnixNano(), string(k.Policy))
}

// Entry 캐시 항목
type Entry struct {
	Series   *contracts.CleanSeries        `json:"series"`
	Report   *contracts.NormalizationReport `json:"report"`
	LoadedAt time.Time                     `json:"loaded_at"`
}

// L2 2차 캐시 (*redis.Cache 가 구현한다)
type L2 interface {
	Enabled() bool
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteMatching(ctx context.Context, pattern string) (int, error)
}

// Cache 정규화된 시계열 캐시
// L1: 프로세스 메모리 (경로당 최신 버전 하나), L2: Redis (선택)
// 반환된 시계열은 공유되므로 호출자가 수정하면 안 된다.
type Cache struct {
	normalizer *normalize.Normalizer
	l2         L2
	ttl        time.Duration
	log        zerolog.Logger

	mu      sync.RWMutex
	entries map[string]cached
	group   singleflight.Group
}

type cached struct {
	key   Key
	entry *Entry
}

// NewCache 새 캐시 생성. l2 가 nil 이거나 비활성이면 메모리만 사용한다.
func NewCache(normalizer *normalize.Normalizer, l2 L2, ttl time.Duration, log zerolog.Logger) *Cache {
	if ttl <= 0 {
		ttl = redis.TTLLong
	}
	return &Cache{
		normalizer: normalizer,
		l2:         l2,
		ttl:        ttl,
		log:        log.With().Str("component", "dataset.cache").Logger(),
		entries:    make(map[string]cached),
	}
}

// Load implements contracts.SeriesSource
func (c *Cache) Load(ctx context.Context, path string) (*contracts.CleanSeries, error) {
	entry, err := c.LoadEntry(ctx, path)
	if err != nil {
		return nil, err
	}
	return entry.Series, nil
}

// LoadEntry 시계열 + 정규화 리포트
// 메모리 → Redis → CSV 순서로 찾는다. 파일이 바뀌면 새 버전을 만든다.
// 채우기는 기다리는 호출자 모두의 것이라 첫 호출자가 취소해도 끝까지 진행한다.
func (c *Cache) LoadEntry(ctx context.Context, path string) (*Entry, error) {
	key, err := c.keyFor(path)
	if err != nil {
		return nil, err
	}

	if entry, ok := c.memory(key); ok {
		metrics.DatasetCacheLookups.WithLabelValues("memory").Inc()
		return entry, nil
	}

	v, err, _ := c.group.Do(key.redisKey(), func() (interface{}, error) {
		if entry, ok := c.memory(key); ok {
			return entry, nil
		}
		return c.fill(context.WithoutCancel(ctx), key)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Entry), nil
}

func (c *Cache) keyFor(path string) (Key, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return Key{}, err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return Key{}, fmt.Errorf("dataset %s: %w", path, err)
	}
	return Key{Path: abs, ModTime: info.ModTime().UTC(), Policy: c.normalizer.Policy()}, nil
}

func (c *Cache) memory(key Key) (*Entry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	cur, ok := c.entries[key.Path]
	if !ok || cur.key != key {
		return nil, false
	}
	return cur.entry, true
}

func (c *Cache) store(key Key, entry *Entry) {
	c.mu.Lock()
	c.entries[key.Path] = cached{key: key, entry: entry}
	c.mu.Unlock()
}

// fill Redis 또는 CSV 에서 읽어 메모리에 저장
func (c *Cache) fill(ctx context.Context, key Key) (*Entry, error) {
	if c.l2 != nil && c.l2.Enabled() {
		var entry Entry
		found, err := c.l2.Get(ctx, key.redisKey(), &entry)
		if err != nil {
			c.log.Warn().Err(err).Str("path", key.Path).Msg("redis lookup failed, reading file")
		}
		if found && entry.Series != nil {
			metrics.DatasetCacheLookups.WithLabelValues("redis").Inc()
			c.store(key, &entry)
			return &entry, nil
		}
	}

	metrics.DatasetCacheLookups.WithLabelValues("miss").Inc()

	rows, err := normalize.ReadCSVFile(key.Path)
	if err != nil {
		return nil, err
	}
	series, report, err := c.normalizer.Parse(rows)
	if err != nil {
		return nil, fmt.Errorf("dataset %s: %w", key.Path, err)
	}

	entry := &Entry{Series: series, Report: report, LoadedAt: time.Now().UTC()}
	c.store(key, entry)

	if c.l2 != nil && c.l2.Enabled() {
		if err := c.l2.Set(ctx, key.redisKey(), entry, c.ttl); err != nil {
			c.log.Warn().Err(err).Str("path", key.Path).Msg("redis store failed")
		}
	}

	c.log.Info().
		Str("path", key.Path).
		Time("mod_time", key.ModTime).
		Int("rows", series.Len()).
		Msg("dataset loaded")

	return entry, nil
}

// Invalidate 경로의 모든 버전 제거 (메모리 + Redis)
func (c *Cache) Invalidate(ctx context.Context, path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	c.mu.Lock()
	delete(c.entries, abs)
	c.mu.Unlock()

	if c.l2 != nil && c.l2.Enabled() {
		if _, err := c.l2.DeleteMatching(ctx, redis.SeriesPattern(abs)); err != nil {
			return fmt.Errorf("invalidate %s: %w", path, err)
		}
	}
	return nil
}

// Purge 메모리 캐시 전체 비우기
func (c *Cache) Purge() {
	c.mu.Lock()
	c.entries = make(map[string]cached)
	c.mu.Unlock()
}

// Len 메모리 항목 수
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
