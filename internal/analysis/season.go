package analysis

import (
	"fmt"
	"strings"
	"time"
)

// Season 인도네시아 계절 구분
type Season string

const (
	SeasonWet Season = "wet" // 11~4월 우기
	SeasonDry Season = "dry" // 5~10월 건기
)

// SeasonOf 월 기준 계절
func SeasonOf(t time.Time) Season {
	switch t.Month() {
	case time.November, time.December, time.January, time.February, time.March, time.April:
		return SeasonWet
	default:
		return SeasonDry
	}
}

// ParseSeason "wet" / "dry" (대소문자 무시), 빈 문자열은 전체
func ParseSeason(s string) (Season, error) {
	switch Season(strings.ToLower(strings.TrimSpace(s))) {
	case "", "all":
		return "", nil
	case SeasonWet:
		return SeasonWet, nil
	case SeasonDry:
		return SeasonDry, nil
	}
	return "", fmt.Errorf("unknown season %q (want wet or dry)", s)
}
