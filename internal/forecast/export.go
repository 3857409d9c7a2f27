package forecast

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/wonny/agrimet/internal/contracts"
)

// DefaultDecimals CSV 출력 기본 소수 자릿수
const DefaultDecimals = 2

// CSVHeader 예측 CSV 헤더
var CSVHeader = []string{"date", "predicted_value"}

// WriteCSV date,predicted_value 형식으로 출력 (날짜 YYYY-MM-DD, 값은 고정 소수점)
// 반올림은 출력에만 적용한다.
func WriteCSV(w io.Writer, seq contracts.ForecastSequence, decimals int) error {
	if decimals < 0 {
		return fmt.Errorf("decimals must be >= 0, got %d", decimals)
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return err
	}
	for _, step := range seq {
		record := []string{
			step.Date.Format("2006-01-02"),
			FormatValue(step.Value, decimals),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// FormatValue 고정 소수점 문자열. "-0.00" 은 "0.00" 으로 쓴다.
func FormatValue(v float64, decimals int) string {
	s := strconv.FormatFloat(v, 'f', decimals, 64)
	if strings.HasPrefix(s, "-") && strings.Trim(s[1:], "0.") == "" {
		return s[1:]
	}
	return s
}
