package forecast

import (
	"fmt"
	"strings"

	"github.com/wonny/agrimet/internal/contracts"
)

const (
	lagSuffix  = "_lag1"
	rollSuffix = "_roll3"
)

// LagName 전일 값 피처 이름
func LagName(f contracts.Field) string {
	return string(f) + lagSuffix
}

// RollName 3일 이동평균 피처 이름
func RollName(f contracts.Field) string {
	return string(f) + rollSuffix
}

// Schema 회귀 모델의 입력 구성
// 드라이버 당일 값, 드라이버/타깃 lag-1, 드라이버/타깃 roll-3, 달력 필드
type Schema struct {
	Target  contracts.Field   `json:"target"`
	Drivers []contracts.Field `json:"drivers"`
}

// DefaultSchema 타깃별 기본 드라이버 (평균기온, 강수량, 일조 중 타깃 제외)
func DefaultSchema(target contracts.Field) Schema {
	candidates := []contracts.Field{
		contracts.FieldMeanTemp,
		contracts.FieldMeanHumidity,
		contracts.FieldRainfall,
		contracts.FieldSunshine,
	}

	drivers := make([]contracts.Field, 0, 3)
	for _, f := range candidates {
		if f == target {
			continue
		}
		if len(drivers) == 3 {
			break
		}
		drivers = append(drivers, f)
	}
	return Schema{Target: target, Drivers: drivers}
}

// Validate 타깃/드라이버 구성 검사
func (s Schema) Validate() error {
	if !s.Target.IsNumeric() {
		return fmt.Errorf("%w: target %q is not a numeric field", contracts.ErrSchemaMismatch, s.Target)
	}

	seen := map[contracts.Field]bool{s.Target: true}
	for _, d := range s.Drivers {
		if !d.IsNumeric() {
			return fmt.Errorf("%w: driver %q is not a numeric field", contracts.ErrSchemaMismatch, d)
		}
		if seen[d] {
			return fmt.Errorf("%w: field %q listed twice", contracts.ErrSchemaMismatch, d)
		}
		seen[d] = true
	}
	return nil
}

// FeatureNames 기본 피처 순서
func (s Schema) FeatureNames() []string {
	names := make([]string, 0, 3*len(s.Drivers)+5)
	for _, d := range s.Drivers {
		names = append(names, string(d))
	}
	for _, d := range s.Drivers {
		names = append(names, LagName(d))
	}
	names = append(names, LagName(s.Target))
	for _, d := range s.Drivers {
		names = append(names, RollName(d))
	}
	names = append(names, RollName(s.Target))
	names = append(names, contracts.FeatureDayOfWeek, contracts.FeatureMonth, contracts.FeatureYear)
	return names
}

// CheckFeatures 모델 피처 목록이 스키마로 만들 수 있는 이름인지 검사
func (s Schema) CheckFeatures(features []string) error {
	available := make(map[string]bool)
	for _, n := range s.FeatureNames() {
		available[n] = true
	}

	var unknown []string
	seen := make(map[string]bool, len(features))
	for _, name := range features {
		if !available[name] {
			unknown = append(unknown, name)
		}
		if seen[name] {
			return fmt.Errorf("%w: feature %q listed twice", contracts.ErrSchemaMismatch, name)
		}
		seen[name] = true
	}
	if len(unknown) > 0 {
		return fmt.Errorf("%w: unknown features %s", contracts.ErrSchemaMismatch, strings.Join(unknown, ", "))
	}
	return nil
}

// SchemaFromFeatures 피처 목록에서 드라이버를 추론 (당일 값으로 등장하는 필드)
func SchemaFromFeatures(target contracts.Field, features []string) Schema {
	s := Schema{Target: target}
	seen := make(map[contracts.Field]bool)
	add := func(f contracts.Field) {
		if f != target && !seen[f] && f.IsNumeric() {
			seen[f] = true
			s.Drivers = append(s.Drivers, f)
		}
	}
	for _, name := range features {
		switch {
		case strings.HasSuffix(name, lagSuffix):
			add(contracts.Field(strings.TrimSuffix(name, lagSuffix)))
		case strings.HasSuffix(name, rollSuffix):
			add(contracts.Field(strings.TrimSuffix(name, rollSuffix)))
		default:
			add(contracts.Field(name))
		}
	}
	return s
}
