package analysis

import (
	"time"

	"github.com/wonny/agrimet/internal/contracts"
)

// Range 닫힌 구간 [Min, Max]
type Range struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Contains 구간 포함 여부
func (r Range) Contains(v float64) bool {
	return v >= r.Min && v <= r.Max
}

// Filter 관측 선택 조건. 비어 있는 조건은 적용하지 않는다.
type Filter struct {
	From   time.Time                 `json:"from"`
	To     time.Time                 `json:"to"`
	Season Season                    `json:"season,omitempty"`
	Months []time.Month              `json:"months,omitempty"`
	Ranges map[contracts.Field]Range `json:"ranges,omitempty"`
}

// Match 관측 한 건이 조건을 모두 만족하는지
// 범위 조건 필드가 없는 관측은 제외된다.
func (f Filter) Match(o contracts.Observation) bool {
	if !f.From.IsZero() && o.Date.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && o.Date.After(f.To) {
		return false
	}
	if f.Season != "" && SeasonOf(o.Date) != f.Season {
		return false
	}
	if len(f.Months) > 0 && !containsMonth(f.Months, o.Date.Month()) {
		return false
	}
	for field, r := range f.Ranges {
		v, ok := o.Value(field)
		if !ok || !r.Contains(v) {
			return false
		}
	}
	return true
}

// Apply 조건에 맞는 관측만 남긴 새 시계열
func (f Filter) Apply(s *contracts.CleanSeries) *contracts.CleanSeries {
	out := &contracts.CleanSeries{Fields: s.Fields}
	for _, o := range s.Observations {
		if f.Match(o) {
			out.Observations = append(out.Observations, o)
		}
	}
	return out
}

func containsMonth(months []time.Month, m time.Month) bool {
	for _, x := range months {
		if x == m {
			return true
		}
	}
	return false
}
