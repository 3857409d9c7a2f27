package contracts

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrUnparsableDate 날짜 파싱 실패
	ErrUnparsableDate = errors.New("unparsable date")
	// ErrDuplicateDate 같은 날짜가 두 번 이상 등장
	ErrDuplicateDate = errors.New("duplicate date")
	// ErrEmptyInput 입력 행 없음
	ErrEmptyInput = errors.New("empty input")

	// ErrSchemaMismatch 모델 피처 스키마와 상태가 맞지 않음
	ErrSchemaMismatch = errors.New("feature schema mismatch")
	// ErrNonFinitePrediction 예측값이 NaN/Inf
	ErrNonFinitePrediction = errors.New("non-finite prediction")
	// ErrInvalidHorizon 음수 horizon
	ErrInvalidHorizon = errors.New("invalid horizon")
	// ErrNotFound 조회 대상 없음
	ErrNotFound = errors.New("not found")
)

// NormalizationReason 정규화 실패 사유
type NormalizationReason string

const (
	ReasonUnparsableDate NormalizationReason = "UnparsableDate"
	ReasonDuplicateDate  NormalizationReason = "DuplicateDate"
	ReasonEmptyInput     NormalizationReason = "EmptyInput"
)

// NormalizationError 배치 전체를 거부하는 정규화 오류
type NormalizationError struct {
	Reason NormalizationReason
	Line   int    // 원본 행 번호 (헤더 제외 1부터), 0 이면 해당 없음
	Value  string // 문제가 된 원본 값
}

func (e *NormalizationError) Error() string {
	switch e.Reason {
	case ReasonEmptyInput:
		return "normalize: empty input"
	case ReasonDuplicateDate:
		return fmt.Sprintf("normalize: duplicate date %s (line %d)", e.Value, e.Line)
	default:
		return fmt.Sprintf("normalize: unparsable date %q (line %d)", e.Value, e.Line)
	}
}

// Unwrap errors.Is(err, ErrDuplicateDate) 등을 지원
func (e *NormalizationError) Unwrap() error {
	switch e.Reason {
	case ReasonUnparsableDate:
		return ErrUnparsableDate
	case ReasonDuplicateDate:
		return ErrDuplicateDate
	case ReasonEmptyInput:
		return ErrEmptyInput
	}
	return nil
}

// ForecastError 재귀 예측 실패. 부분 결과는 반환하지 않는다.
type ForecastError struct {
	Step int // 1부터
	Date time.Time
	Err  error
}

func (e *ForecastError) Error() string {
	if e.Step == 0 {
		return fmt.Sprintf("forecast: %v", e.Err)
	}
	return fmt.Sprintf("forecast step %d (%s): %v", e.Step, e.Date.Format("2006-01-02"), e.Err)
}

func (e *ForecastError) Unwrap() error {
	return e.Err
}

// InvalidHorizonError 음수 horizon
type InvalidHorizonError struct {
	Horizon int
}

func (e *InvalidHorizonError) Error() string {
	return fmt.Sprintf("invalid horizon %d: must be >= 0", e.Horizon)
}

// Is errors.Is(err, ErrInvalidHorizon) 지원
func (e *InvalidHorizonError) Is(target error) bool {
	return target == ErrInvalidHorizon
}
