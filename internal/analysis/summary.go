package analysis

import (
	"math"
	"sort"
	"time"

	"github.com/wonny/agrimet/internal/contracts"
)

// FieldSummary 필드 한 개 요약
type FieldSummary struct {
	Field contracts.Field `json:"field"`
	Count int             `json:"count"`
	Mean  float64         `json:"mean"`
	Min   float64         `json:"min"`
	Max   float64         `json:"max"`
	Sum   float64         `json:"sum"`
}

// Summary 기간 요약
type Summary struct {
	From   time.Time      `json:"from"`
	To     time.Time      `json:"to"`
	Days   int            `json:"days"`
	Fields []FieldSummary `json:"fields"`
}

// Summarize 시계열의 필드별 count/mean/min/max/sum
func Summarize(s *contracts.CleanSeries) Summary {
	out := Summary{Days: s.Len()}
	if s.Len() == 0 {
		return out
	}
	out.From = s.First().Date
	out.To = s.Last().Date

	for _, f := range s.Fields {
		out.Fields = append(out.Fields, summarizeField(s.Observations, f))
	}
	return out
}

func summarizeField(obs []contracts.Observation, f contracts.Field) FieldSummary {
	fs := FieldSummary{Field: f, Min: math.Inf(1), Max: math.Inf(-1)}
	for _, o := range obs {
		v, ok := o.Value(f)
		if !ok {
			continue
		}
		fs.Count++
		fs.Sum += v
		fs.Min = math.Min(fs.Min, v)
		fs.Max = math.Max(fs.Max, v)
	}
	if fs.Count == 0 {
		fs.Min, fs.Max = 0, 0
		return fs
	}
	fs.Mean = fs.Sum / float64(fs.Count)
	return fs
}

// Field 이름으로 요약 조회
func (s Summary) Field(f contracts.Field) (FieldSummary, bool) {
	for _, fs := range s.Fields {
		if fs.Field == f {
			return fs, true
		}
	}
	return FieldSummary{}, false
}

// MonthlyMean 연-월별 평균 (오름차순)
type MonthlyMean struct {
	Year  int        `json:"year"`
	Month time.Month `json:"month"`
	Mean  float64    `json:"mean"`
	Count int        `json:"count"`
}

// MonthlyMeans 필드의 월별 평균
func MonthlyMeans(s *contracts.CleanSeries, f contracts.Field) []MonthlyMean {
	type key struct {
		y int
		m time.Month
	}
	sums := make(map[key]*MonthlyMean)
	var keys []key
	for _, o := range s.Observations {
		v, ok := o.Value(f)
		if !ok {
			continue
		}
		k := key{o.Date.Year(), o.Date.Month()}
		mm, exists := sums[k]
		if !exists {
			mm = &MonthlyMean{Year: k.y, Month: k.m}
			sums[k] = mm
			keys = append(keys, k)
		}
		mm.Mean += v
		mm.Count++
	}

	sort.Slice(keys, func(i, j int) bool {
		if keys[i].y != keys[j].y {
			return keys[i].y < keys[j].y
		}
		return keys[i].m < keys[j].m
	})

	out := make([]MonthlyMean, 0, len(keys))
	for _, k := range keys {
		mm := *sums[k]
		mm.Mean /= float64(mm.Count)
		out = append(out, mm)
	}
	return out
}

// SeasonalMeans 계절별 평균
func SeasonalMeans(s *contracts.CleanSeries, f contracts.Field) map[Season]float64 {
	sums := map[Season]float64{}
	counts := map[Season]int{}
	for _, o := range s.Observations {
		if v, ok := o.Value(f); ok {
			season := SeasonOf(o.Date)
			sums[season] += v
			counts[season]++
		}
	}

	out := make(map[Season]float64, len(sums))
	for season, sum := range sums {
		out[season] = sum / float64(counts[season])
	}
	return out
}
