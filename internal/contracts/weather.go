package contracts

import (
	"fmt"
	"sort"
	"time"
)

// Field 정규화된 관측 필드 이름
type Field string

const (
	FieldDate          Field = "date"
	FieldMinTemp       Field = "min_temp"        // TN (°C)
	FieldMaxTemp       Field = "max_temp"        // TX (°C)
	FieldMeanTemp      Field = "mean_temp"       // TAVG (°C)
	FieldMeanHumidity  Field = "mean_humidity"   // RH_AVG (%)
	FieldRainfall      Field = "rainfall"        // RR (mm)
	FieldSunshine      Field = "sunshine"        // SS (hours)
	FieldMaxWindSpeed  Field = "max_wind_speed"  // FF_X (m/s)
	FieldMaxWindDir    Field = "max_wind_dir"    // DDD_X (°)
	FieldMeanWindSpeed Field = "mean_wind_speed" // FF_AVG (m/s)
	FieldWindCardinal  Field = "wind_cardinal"   // DDD_CAR (text)
)

// NumericFields 숫자형 관측 필드 (출력 순서 고정)
var NumericFields = []Field{
	FieldMinTemp,
	FieldMaxTemp,
	FieldMeanTemp,
	FieldMeanHumidity,
	FieldRainfall,
	FieldSunshine,
	FieldMaxWindSpeed,
	FieldMaxWindDir,
	FieldMeanWindSpeed,
}

// IsNumeric 숫자형 필드 여부
func (f Field) IsNumeric() bool {
	for _, n := range NumericFields {
		if n == f {
			return true
		}
	}
	return false
}

// Observation 하루치 관측값
type Observation struct {
	Date         time.Time         `json:"date"`
	Values       map[Field]float64 `json:"values"`
	WindCardinal string            `json:"wind_cardinal,omitempty"`
}

// Value 필드 값 조회
func (o Observation) Value(f Field) (float64, bool) {
	v, ok := o.Values[f]
	return v, ok
}

// CleanSeries 정규화가 끝난 일별 시계열
// 불변식: 날짜 오름차순, 날짜 중복 없음, Fields 의 모든 값 존재
type CleanSeries struct {
	Fields       []Field       `json:"fields"`
	Observations []Observation `json:"observations"`
}

// Len 관측 수
func (s *CleanSeries) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Observations)
}

// HasField 시계열이 해당 필드를 포함하는지
func (s *CleanSeries) HasField(f Field) bool {
	for _, field := range s.Fields {
		if field == f {
			return true
		}
	}
	return false
}

// First 첫 관측
func (s *CleanSeries) First() Observation {
	return s.Observations[0]
}

// Last 마지막 관측
func (s *CleanSeries) Last() Observation {
	return s.Observations[len(s.Observations)-1]
}

// Dates 날짜 목록
func (s *CleanSeries) Dates() []time.Time {
	dates := make([]time.Time, len(s.Observations))
	for i, o := range s.Observations {
		dates[i] = o.Date
	}
	return dates
}

// Column 필드 값 목록
func (s *CleanSeries) Column(f Field) ([]float64, error) {
	if !s.HasField(f) {
		return nil, fmt.Errorf("field %s not in series", f)
	}
	values := make([]float64, len(s.Observations))
	for i, o := range s.Observations {
		values[i] = o.Values[f]
	}
	return values, nil
}

// IndexOf 날짜 위치 (없으면 -1)
func (s *CleanSeries) IndexOf(date time.Time) int {
	i := sort.Search(len(s.Observations), func(i int) bool {
		return !s.Observations[i].Date.Before(date)
	})
	if i < len(s.Observations) && s.Observations[i].Date.Equal(date) {
		return i
	}
	return -1
}

// Between from~to (양끝 포함) 구간. zero time 은 열린 경계.
func (s *CleanSeries) Between(from, to time.Time) *CleanSeries {
	out := &CleanSeries{Fields: s.Fields}
	for _, o := range s.Observations {
		if !from.IsZero() && o.Date.Before(from) {
			continue
		}
		if !to.IsZero() && o.Date.After(to) {
			continue
		}
		out.Observations = append(out.Observations, o)
	}
	return out
}

// Window date 이전(포함) 최대 n 개 관측
func (s *CleanSeries) Window(date time.Time, n int) []Observation {
	end := sort.Search(len(s.Observations), func(i int) bool {
		return s.Observations[i].Date.After(date)
	})
	start := end - n
	if start < 0 {
		start = 0
	}
	return s.Observations[start:end]
}

// FillPolicy 결측 보간 정책
type FillPolicy string

const (
	FillForward FillPolicy = "ffill"  // 직전 값으로 채움
	FillLinear  FillPolicy = "linear" // 앞뒤 값 선형 보간
)

// ParseFillPolicy 문자열 → FillPolicy
func ParseFillPolicy(s string) (FillPolicy, error) {
	switch FillPolicy(s) {
	case FillForward, FillLinear:
		return FillPolicy(s), nil
	default:
		return "", fmt.Errorf("unknown fill policy %q (want ffill or linear)", s)
	}
}

// NormalizationReport 정규화 중 관측된 경고/통계
type NormalizationReport struct {
	Rows              int           `json:"rows"`
	Policy            FillPolicy    `json:"policy"`
	UnknownCodes      []string      `json:"unknown_codes,omitempty"`
	DuplicateCodes    []string      `json:"duplicate_codes,omitempty"` // 이미 쓰인 필드로 가는 컬럼 (헤더 앞쪽이 우선)
	CoercionFailures  map[Field]int `json:"coercion_failures,omitempty"`
	SentinelsReplaced map[Field]int `json:"sentinels_replaced,omitempty"`
	FilledCells       map[Field]int `json:"filled_cells,omitempty"`
	DroppedFields     []Field       `json:"dropped_fields,omitempty"`
	InsertedDays      int           `json:"inserted_days,omitempty"`
}

// NewNormalizationReport 빈 리포트
func NewNormalizationReport(policy FillPolicy) *NormalizationReport {
	return &NormalizationReport{
		Policy:            policy,
		CoercionFailures:  make(map[Field]int),
		SentinelsReplaced: make(map[Field]int),
		FilledCells:       make(map[Field]int),
	}
}

// TotalCoercionFailures 숫자 변환 실패 합계
func (r *NormalizationReport) TotalCoercionFailures() int {
	return sumCounts(r.CoercionFailures)
}

// TotalFilled 보간된 셀 합계
func (r *NormalizationReport) TotalFilled() int {
	return sumCounts(r.FilledCells)
}

func sumCounts(m map[Field]int) int {
	total := 0
	for _, n := range m {
		total += n
	}
	return total
}
