package normalize

import (
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/wonny/agrimet/internal/contracts"
	"github.com/wonny/agrimet/internal/metrics"
)

const (
	// DateLayout 원본 날짜 형식 DD-MM-YYYY (한 자리 일/월 허용)
	DateLayout = "2-1-2006"
	// ExportDateLayout 원본 형식으로 다시 쓸 때의 날짜 형식
	ExportDateLayout = "02-01-2006"
)

// DefaultSentinels 측정 불가/미측정 코드
var DefaultSentinels = []float64{8888, 9999}

// Options 정규화 설정
type Options struct {
	Policy           contracts.FillPolicy
	Sentinels        []float64
	FillCalendarGaps bool // 빠진 날짜를 결측 행으로 삽입한 뒤 보간
}

// DefaultOptions ffill + 8888/9999
func DefaultOptions() Options {
	return Options{
		Policy:    contracts.FillForward,
		Sentinels: DefaultSentinels,
	}
}

// Normalizer 원본 일별 관측 → CleanSeries
type Normalizer struct {
	opts Options
	log  zerolog.Logger
}

// New 새 정규화기 생성
func New(opts Options, log zerolog.Logger) *Normalizer {
	if opts.Policy == "" {
		opts.Policy = contracts.FillForward
	}
	if opts.Sentinels == nil {
		opts.Sentinels = DefaultSentinels
	}
	return &Normalizer{
		opts: opts,
		log:  log.With().Str("component", "normalize").Logger(),
	}
}

// Policy 적용 중인 보간 정책
func (n *Normalizer) Policy() contracts.FillPolicy {
	return n.opts.Policy
}

// parsedRow 변환 중간 결과 (결측은 NaN)
type parsedRow struct {
	line     int
	date     time.Time
	values   []float64 // columns 순서
	cardinal string
}

// Parse 원본 행을 정규화한다.
// 별칭 → 날짜 파싱 → 숫자 변환 → 센티널 제거 → 날짜 정렬/중복 검사 → 결측 보간
func (n *Normalizer) Parse(rows []RawRow) (*contracts.CleanSeries, *contracts.NormalizationReport, error) {
	report := contracts.NewNormalizationReport(n.opts.Policy)
	report.Rows = len(rows)

	if len(rows) == 0 {
		return nil, report, n.fail(&contracts.NormalizationError{Reason: contracts.ReasonEmptyInput})
	}

	// 1. 별칭
	columns, codes, dateCode, cardinalCode, unknown, duplicates := n.resolveColumns(rows)
	if len(unknown) > 0 {
		report.UnknownCodes = unknown
		n.log.Warn().Strs("codes", unknown).Msg("unknown field codes dropped")
	}
	if len(duplicates) > 0 {
		report.DuplicateCodes = duplicates
		n.log.Warn().Strs("codes", duplicates).Msg("columns mapping to an already used field dropped")
	}

	// 2~4. 날짜, 숫자 변환, 센티널
	parsed := make([]parsedRow, 0, len(rows))
	for _, row := range rows {
		rawDate := strings.TrimSpace(row.Values[dateCode])
		date, err := time.Parse(DateLayout, rawDate)
		if err != nil {
			return nil, report, n.fail(&contracts.NormalizationError{
				Reason: contracts.ReasonUnparsableDate,
				Line:   row.Line,
				Value:  rawDate,
			})
		}

		pr := parsedRow{line: row.Line, date: date, values: make([]float64, len(columns))}
		for i, f := range columns {
			pr.values[i] = n.coerce(f, row.Values[codes[i]], report)
		}
		if cardinalCode != "" {
			pr.cardinal = strings.TrimSpace(row.Values[cardinalCode])
		}
		parsed = append(parsed, pr)
	}

	// 5. 정렬 + 중복 검사 (보간 전에 해야 "직전 값"이 날짜 기준이 된다)
	sort.SliceStable(parsed, func(i, j int) bool {
		return parsed[i].date.Before(parsed[j].date)
	})
	for i := 1; i < len(parsed); i++ {
		if parsed[i].date.Equal(parsed[i-1].date) {
			return nil, report, n.fail(&contracts.NormalizationError{
				Reason: contracts.ReasonDuplicateDate,
				Line:   parsed[i].line,
				Value:  parsed[i].date.Format(ExportDateLayout),
			})
		}
	}

	if n.opts.FillCalendarGaps {
		var inserted int
		parsed, inserted = insertMissingDays(parsed, len(columns))
		report.InsertedDays = inserted
	}

	// 6. 결측 보간
	kept := make([]contracts.Field, 0, len(columns))
	keptIdx := make([]int, 0, len(columns))
	col := make([]float64, len(parsed))
	for i, f := range columns {
		for r := range parsed {
			col[r] = parsed[r].values[i]
		}

		filled, ok := fill(col, n.opts.Policy)
		if !ok {
			report.DroppedFields = append(report.DroppedFields, f)
			n.log.Warn().Str("field", string(f)).Msg("field has no valid values, dropped")
			continue
		}
		if filled > 0 {
			report.FilledCells[f] = filled
			metrics.CellsFilled.WithLabelValues(string(f), string(n.opts.Policy)).Add(float64(filled))
		}
		for r := range parsed {
			parsed[r].values[i] = col[r]
		}
		kept = append(kept, f)
		keptIdx = append(keptIdx, i)
	}

	if cardinalCode != "" {
		fillText(parsed)
	}

	series := &contracts.CleanSeries{
		Fields:       kept,
		Observations: make([]contracts.Observation, len(parsed)),
	}
	for r, pr := range parsed {
		values := make(map[contracts.Field]float64, len(kept))
		for k, f := range kept {
			values[f] = pr.values[keptIdx[k]]
		}
		series.Observations[r] = contracts.Observation{
			Date:         pr.date,
			Values:       values,
			WindCardinal: pr.cardinal,
		}
	}

	metrics.RowsNormalized.Add(float64(len(rows)))
	if total := report.TotalCoercionFailures(); total > 0 {
		n.log.Warn().
			Int("cells", total).
			Interface("by_field", report.CoercionFailures).
			Msg("non-numeric values treated as missing")
	}
	n.log.Info().
		Int("rows", series.Len()).
		Int("fields", len(kept)).
		Int("filled", report.TotalFilled()).
		Str("policy", string(n.opts.Policy)).
		Msg("series normalized")

	return series, report, nil
}

// resolveColumns 모든 행의 헤더 코드를 정규 필드로 분류
// 같은 필드로 가는 코드가 여럿이면 헤더에서 먼저 나온 컬럼을 쓰고 나머지는 duplicates 로 돌려준다.
func (n *Normalizer) resolveColumns(rows []RawRow) (columns []contracts.Field, codes []string, dateCode, cardinalCode string, unknown, duplicates []string) {
	seen := make(map[string]bool)
	repeated := make(map[string]bool)
	byField := make(map[contracts.Field]string)
	for _, row := range rows {
		inRow := make(map[string]bool, len(row.Values))
		for _, code := range row.orderedCodes() {
			if code == "" {
				continue
			}
			if inRow[code] {
				// 헤더에 같은 코드가 두 번
				if !repeated[code] {
					repeated[code] = true
					duplicates = append(duplicates, code)
				}
				continue
			}
			inRow[code] = true
			if seen[code] {
				continue
			}
			seen[code] = true

			f, ok := Canonical(code)
			if !ok {
				unknown = append(unknown, code)
				continue
			}
			if _, dup := byField[f]; dup {
				duplicates = append(duplicates, code)
				continue
			}
			byField[f] = code
		}
	}
	sort.Strings(unknown)

	dateCode = byField[contracts.FieldDate]
	cardinalCode = byField[contracts.FieldWindCardinal]
	for _, f := range contracts.NumericFields {
		if code, ok := byField[f]; ok {
			columns = append(columns, f)
			codes = append(codes, code)
		}
	}
	return columns, codes, dateCode, cardinalCode, unknown, duplicates
}

// coerce 셀 텍스트 → 값. 빈 셀/변환 실패/센티널은 NaN.
func (n *Normalizer) coerce(f contracts.Field, raw string, report *contracts.NormalizationReport) float64 {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return math.NaN()
	}

	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		report.CoercionFailures[f]++
		metrics.CoercionFailures.WithLabelValues(string(f)).Inc()
		return math.NaN()
	}

	for _, s := range n.opts.Sentinels {
		if v == s {
			report.SentinelsReplaced[f]++
			metrics.SentinelsReplaced.WithLabelValues(string(f)).Inc()
			return math.NaN()
		}
	}
	return v
}

func (n *Normalizer) fail(err *contracts.NormalizationError) error {
	metrics.NormalizationFailures.WithLabelValues(string(err.Reason)).Inc()
	n.log.Error().Err(err).Str("reason", string(err.Reason)).Msg("normalization rejected batch")
	return err
}

// insertMissingDays 정렬된 행 사이의 빠진 날짜를 결측 행으로 채운다
func insertMissingDays(rows []parsedRow, width int) ([]parsedRow, int) {
	if len(rows) < 2 {
		return rows, 0
	}

	out := make([]parsedRow, 0, len(rows))
	inserted := 0
	for i, row := range rows {
		if i > 0 {
			for d := rows[i-1].date.AddDate(0, 0, 1); d.Before(row.date); d = d.AddDate(0, 0, 1) {
				values := make([]float64, width)
				for k := range values {
					values[k] = math.NaN()
				}
				out = append(out, parsedRow{date: d, values: values})
				inserted++
			}
		}
		out = append(out, row)
	}
	return out, inserted
}
