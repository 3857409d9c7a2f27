package forecast

import (
	"fmt"
	"time"

	"github.com/wonny/agrimet/internal/contracts"
)

const rollWindow = 3

// DriverSchedule 날짜별 미래 드라이버 값 (키: YYYY-MM-DD)
// 없는 날짜는 직전 값을 그대로 유지한다.
type DriverSchedule map[string]map[contracts.Field]float64

// Set 일정에 값 추가
func (s DriverSchedule) Set(date time.Time, f contracts.Field, v float64) {
	key := date.Format("2006-01-02")
	if s[key] == nil {
		s[key] = make(map[contracts.Field]float64)
	}
	s[key][f] = v
}

func (s DriverSchedule) on(date time.Time) map[contracts.Field]float64 {
	if s == nil {
		return nil
	}
	return s[date.Format("2006-01-02")]
}

// forecastState 한 번의 재귀 예측 동안만 살아있는 상태
type forecastState struct {
	schema Schema

	date    time.Time
	drivers map[contracts.Field]float64 // 현재 스텝 드라이버
	lag     map[contracts.Field]float64 // 드라이버 + 타깃
	roll    map[contracts.Field]float64 // 드라이버 + 타깃

	// 0번째 값은 seed, 이후 스텝별 값
	driverHistory map[contracts.Field][]float64
	targetHistory []float64
}

// newState seed 로 초기 상태 구성
// history(오름차순, seed 포함 가능)가 있으면 roll-3 을 최근 관측 평균으로 초기화한다.
func newState(schema Schema, seed contracts.Observation, history []contracts.Observation) (*forecastState, error) {
	st := &forecastState{
		schema:        schema,
		date:          seed.Date,
		drivers:       make(map[contracts.Field]float64, len(schema.Drivers)),
		lag:           make(map[contracts.Field]float64, len(schema.Drivers)+1),
		roll:          make(map[contracts.Field]float64, len(schema.Drivers)+1),
		driverHistory: make(map[contracts.Field][]float64, len(schema.Drivers)),
	}

	window := warmupWindow(seed, history)
	for _, f := range append([]contracts.Field{schema.Target}, schema.Drivers...) {
		v, ok := seed.Value(f)
		if !ok {
			return nil, fmt.Errorf("%w: seed has no %s", contracts.ErrSchemaMismatch, f)
		}
		st.lag[f] = v
		st.roll[f] = meanOf(window, f, v)
	}
	st.targetHistory = []float64{st.lag[schema.Target]}
	for _, d := range schema.Drivers {
		st.drivers[d] = seed.Values[d]
		st.driverHistory[d] = []float64{st.lag[d]}
	}

	return st, nil
}

// warmupWindow seed 이전(포함) 최근 관측 최대 3개. seed 가 빠져 있으면 붙인다.
func warmupWindow(seed contracts.Observation, history []contracts.Observation) []contracts.Observation {
	var window []contracts.Observation
	for _, o := range history {
		if o.Date.Before(seed.Date) {
			window = append(window, o)
		}
	}
	window = append(window, seed)
	if len(window) > rollWindow {
		window = window[len(window)-rollWindow:]
	}
	return window
}

// meanOf 값이 있는 관측만 평균. 하나도 없으면 fallback.
func meanOf(window []contracts.Observation, f contracts.Field, fallback float64) float64 {
	sum, n := 0.0, 0
	for _, o := range window {
		if v, ok := o.Value(f); ok {
			sum += v
			n++
		}
	}
	if n == 0 {
		return fallback
	}
	return sum / float64(n)
}

// advance 다음 날로 이동하고 일정이 있으면 드라이버를 덮어쓴다
func (st *forecastState) advance(schedule DriverSchedule) {
	st.date = st.date.AddDate(0, 0, 1)
	for f, v := range schedule.on(st.date) {
		if _, ok := st.drivers[f]; ok {
			st.drivers[f] = v
		}
	}
}

// features 현재 상태의 모든 피처 값
func (st *forecastState) features() map[string]float64 {
	m := make(map[string]float64, 3*len(st.drivers)+5)
	for f, v := range st.drivers {
		m[string(f)] = v
	}
	for f, v := range st.lag {
		m[LagName(f)] = v
	}
	for f, v := range st.roll {
		m[RollName(f)] = v
	}
	m[contracts.FeatureDayOfWeek] = float64(DayOfWeek(st.date))
	m[contracts.FeatureMonth] = float64(st.date.Month())
	m[contracts.FeatureYear] = float64(st.date.Year())
	return m
}

// vector 모델 순서대로 FeatureVector 조립
func (st *forecastState) vector(names []string) (contracts.FeatureVector, error) {
	all := st.features()
	fv := contracts.FeatureVector{
		Date:   st.date,
		Names:  names,
		Values: make([]float64, len(names)),
	}
	for i, name := range names {
		v, ok := all[name]
		if !ok {
			return fv, fmt.Errorf("%w: no value for feature %q", contracts.ErrSchemaMismatch, name)
		}
		fv.Values[i] = v
	}
	return fv, nil
}

// update 예측값 반영
// seed 를 0번째 값으로 보고, 값이 3개 모인 뒤부터 roll-3 을 최근 3개 평균으로 바꾼다.
// 스텝 1, 2 는 초기값을 보고 스텝 3 부터 (i-2..i) 창을 본다.
func (st *forecastState) update(predicted float64) {
	target := st.schema.Target

	st.lag[target] = predicted
	st.targetHistory = append(st.targetHistory, predicted)
	if h := st.targetHistory; len(h) >= rollWindow {
		st.roll[target] = mean(h[len(h)-rollWindow:])
	}

	for _, d := range st.schema.Drivers {
		v := st.drivers[d]
		st.lag[d] = v
		st.driverHistory[d] = append(st.driverHistory[d], v)
		if h := st.driverHistory[d]; len(h) >= rollWindow {
			st.roll[d] = mean(h[len(h)-rollWindow:])
		}
	}
}

// DayOfWeek 월요일=0 ... 일요일=6
func DayOfWeek(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
