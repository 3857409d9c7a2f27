package model

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/wonny/agrimet/internal/contracts"
)

// LookupPredictor 날짜별로 미리 계산된 예측값을 돌려준다.
// 오프라인에서 학습한 모델의 출력을 date,predicted_value CSV 로 받아 재생할 때 쓴다.
type LookupPredictor struct {
	table map[string]float64
}

// NewLookupPredictor 테이블로 생성 (키: YYYY-MM-DD)
func NewLookupPredictor(table map[string]float64) *LookupPredictor {
	return &LookupPredictor{table: table}
}

// LoadLookupTable CSV 파일에서 테이블 읽기
func LoadLookupTable(path string) (*LookupPredictor, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open lookup table: %w", err)
	}
	defer f.Close()

	return ReadLookupTable(f)
}

// ReadLookupTable 헤더(date,predicted_value) + 행
func ReadLookupTable(r io.Reader) (*LookupPredictor, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read lookup table: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("lookup table: %w", contracts.ErrEmptyInput)
	}

	table := make(map[string]float64, len(records)-1)
	for i, rec := range records[1:] {
		if len(rec) < 2 {
			return nil, fmt.Errorf("lookup table line %d: expected 2 columns", i+1)
		}
		date, err := time.Parse("2006-01-02", strings.TrimSpace(rec[0]))
		if err != nil {
			return nil, fmt.Errorf("lookup table line %d: %w", i+1, err)
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(rec[1]), 64)
		if err != nil {
			return nil, fmt.Errorf("lookup table line %d: %w", i+1, err)
		}
		table[date.Format("2006-01-02")] = v
	}
	return NewLookupPredictor(table), nil
}

// Len 테이블 크기
func (p *LookupPredictor) Len() int {
	return len(p.table)
}

// Predict implements contracts.Predictor
func (p *LookupPredictor) Predict(ctx context.Context, fv contracts.FeatureVector) (float64, error) {
	key := fv.Date.Format("2006-01-02")
	v, ok := p.table[key]
	if !ok {
		return 0, fmt.Errorf("%w: no prediction for %s", contracts.ErrNotFound, key)
	}
	return v, nil
}

// Kind metrics 라벨
func (p *LookupPredictor) Kind() string {
	return KindLookup
}
