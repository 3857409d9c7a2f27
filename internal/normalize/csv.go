package normalize

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/wonny/agrimet/internal/contracts"
)

// RawRow 원본 CSV 한 행 (헤더 코드 → 셀 텍스트)
// Columns 는 헤더 순서. nil 이면 코드 이름 순으로 본다.
type RawRow struct {
	Line    int // 헤더 제외 1부터
	Values  map[string]string
	Columns []string
}

// ReadCSVFile 파일에서 원본 행 읽기
func ReadCSVFile(path string) ([]RawRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return ReadCSV(f)
}

// ReadCSV 헤더가 있는 CSV 를 원본 행으로 읽는다. 값 해석은 하지 않는다.
func ReadCSV(r io.Reader) ([]RawRow, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	for i, h := range header {
		h = strings.TrimPrefix(h, "\ufeff")
		header[i] = strings.TrimSpace(h)
	}

	var rows []RawRow
	for line := 1; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read line %d: %w", line, err)
		}
		if isBlankRecord(record) {
			line--
			continue
		}

		values := make(map[string]string, len(header))
		for i, code := range header {
			if code == "" {
				continue
			}
			if _, dup := values[code]; dup {
				// 같은 코드가 두 번 나오면 첫 컬럼만 쓴다
				continue
			}
			if i < len(record) {
				values[code] = record[i]
			} else {
				values[code] = ""
			}
		}
		rows = append(rows, RawRow{Line: line, Values: values, Columns: header})
	}

	return rows, nil
}

func isBlankRecord(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// RowsFromSeries 정규화된 시계열을 원본 형식 행으로 되돌린다.
// Parse(RowsFromSeries(s)) 는 s 와 같은 시계열을 돌려준다.
func RowsFromSeries(s *contracts.CleanSeries) []RawRow {
	withCardinal := false
	for _, o := range s.Observations {
		if o.WindCardinal != "" {
			withCardinal = true
			break
		}
	}

	columns := []string{RawCode(contracts.FieldDate)}
	for _, f := range s.Fields {
		columns = append(columns, RawCode(f))
	}
	if withCardinal {
		columns = append(columns, RawCode(contracts.FieldWindCardinal))
	}

	rows := make([]RawRow, 0, s.Len())
	for i, o := range s.Observations {
		values := map[string]string{
			RawCode(contracts.FieldDate): o.Date.Format(ExportDateLayout),
		}
		for _, f := range s.Fields {
			values[RawCode(f)] = strconv.FormatFloat(o.Values[f], 'g', -1, 64)
		}
		if withCardinal {
			values[RawCode(contracts.FieldWindCardinal)] = o.WindCardinal
		}
		rows = append(rows, RawRow{Line: i + 1, Values: values, Columns: columns})
	}
	return rows
}

// orderedCodes 행의 헤더 코드를 순서대로. Columns 가 없으면 이름 순.
func (r RawRow) orderedCodes() []string {
	if r.Columns != nil {
		return r.Columns
	}
	codes := make([]string, 0, len(r.Values))
	for code := range r.Values {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// WriteCSV 정규화된 시계열을 정규 필드명 헤더로 출력
// 날짜는 원본 형식(DD-MM-YYYY)이라 다시 Parse 할 수 있다.
func WriteCSV(w io.Writer, s *contracts.CleanSeries) error {
	withCardinal := false
	for _, o := range s.Observations {
		if o.WindCardinal != "" {
			withCardinal = true
			break
		}
	}

	header := []string{string(contracts.FieldDate)}
	for _, f := range s.Fields {
		header = append(header, string(f))
	}
	if withCardinal {
		header = append(header, string(contracts.FieldWindCardinal))
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	record := make([]string, len(header))
	for _, o := range s.Observations {
		record[0] = o.Date.Format(ExportDateLayout)
		for i, f := range s.Fields {
			record[i+1] = strconv.FormatFloat(o.Values[f], 'g', -1, 64)
		}
		if withCardinal {
			record[len(record)-1] = o.WindCardinal
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
