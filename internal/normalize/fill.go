package normalize

import (
	"math"

	"github.com/wonny/agrimet/internal/contracts"
)

// fill NaN 을 정책에 따라 제자리에서 채운다.
// 채운 셀 수와, 유효 값이 하나라도 있었는지를 반환한다.
// 선행 결측은 두 정책 모두 첫 유효 값으로 채운다.
func fill(values []float64, policy contracts.FillPolicy) (int, bool) {
	first := -1
	missing := 0
	for i, v := range values {
		if math.IsNaN(v) {
			missing++
		} else if first < 0 {
			first = i
		}
	}
	if first < 0 {
		return 0, false
	}
	if missing == 0 {
		return 0, true
	}

	for i := 0; i < first; i++ {
		values[i] = values[first]
	}

	switch policy {
	case contracts.FillLinear:
		interpolate(values, first)
	default:
		forwardFill(values, first)
	}
	return missing, true
}

// forwardFill 직전 유효 값으로 채움
func forwardFill(values []float64, from int) {
	last := values[from]
	for i := from + 1; i < len(values); i++ {
		if math.IsNaN(values[i]) {
			values[i] = last
		} else {
			last = values[i]
		}
	}
}

// interpolate 위치 기준 선형 보간. 후행 결측은 마지막 유효 값 유지.
func interpolate(values []float64, from int) {
	prev := from
	for i := from + 1; i < len(values); i++ {
		if math.IsNaN(values[i]) {
			continue
		}
		if gap := i - prev; gap > 1 {
			a, b := values[prev], values[i]
			for k := prev + 1; k < i; k++ {
				values[k] = a + (b-a)*float64(k-prev)/float64(gap)
			}
		}
		prev = i
	}
	for i := prev + 1; i < len(values); i++ {
		values[i] = values[prev]
	}
}

// fillText 풍향 문자열 결측을 직전 값으로 (선행은 첫 값으로) 채운다
func fillText(rows []parsedRow) {
	first := ""
	for _, r := range rows {
		if r.cardinal != "" {
			first = r.cardinal
			break
		}
	}
	if first == "" {
		return
	}

	last := first
	for i := range rows {
		if rows[i].cardinal == "" {
			rows[i].cardinal = last
		} else {
			last = rows[i].cardinal
		}
	}
}
