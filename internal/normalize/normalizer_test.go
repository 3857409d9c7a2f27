package normalize

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/agrimet/internal/contracts"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func mustRead(t *testing.T, csvText string) []RawRow {
	t.Helper()
	rows, err := ReadCSV(strings.NewReader(csvText))
	require.NoError(t, err)
	return rows
}

func newNormalizer(policy contracts.FillPolicy) *Normalizer {
	return New(Options{Policy: policy}, zerolog.Nop())
}

func column(t *testing.T, s *contracts.CleanSeries, f contracts.Field) []float64 {
	t.Helper()
	col, err := s.Column(f)
	require.NoError(t, err)
	return col
}

func TestParse_AliasesAndUnknownCodes(t *testing.T) {
	rows := mustRead(t, `TANGGAL,TN,TX,TAVG,RH_AVG,RR,SS,FF_X,DDD_X,FF_AVG,DDD_CAR,STATION
01-01-2024,23.4,31.2,27.1,82,0.5,6.2,5,270,2,W ,96749
02-01-2024,23.0,30.8,26.5,85,12.1,4.0,6,250,3,SW,96749
`)

	series, report, err := newNormalizer(contracts.FillForward).Parse(rows)
	require.NoError(t, err)

	assert.Equal(t, contracts.NumericFields, series.Fields)
	assert.Equal(t, []string{"STATION"}, report.UnknownCodes)
	require.Equal(t, 2, series.Len())

	first := series.First()
	assert.Equal(t, day(2024, 1, 1), first.Date)
	assert.Equal(t, 23.4, first.Values[contracts.FieldMinTemp])
	assert.Equal(t, 27.1, first.Values[contracts.FieldMeanTemp])
	assert.Equal(t, 270.0, first.Values[contracts.FieldMaxWindDir])
	assert.Equal(t, "W", first.WindCardinal)
}

func TestParse_AcceptsCanonicalNames(t *testing.T) {
	rows := mustRead(t, "date,mean_temp\n5-3-2024,28\n")

	series, report, err := newNormalizer(contracts.FillForward).Parse(rows)
	require.NoError(t, err)

	assert.Empty(t, report.UnknownCodes)
	assert.Equal(t, []contracts.Field{contracts.FieldMeanTemp}, series.Fields)
	assert.Equal(t, day(2024, 3, 5), series.First().Date)
}

func TestParse_ColumnCollisions(t *testing.T) {
	tests := []struct {
		name       string
		csv        string
		want       float64
		duplicates []string
	}{
		{"raw code first", "TANGGAL,TAVG,mean_temp\n01-01-2024,27,99\n", 27, []string{"mean_temp"}},
		{"canonical name first", "TANGGAL,mean_temp,TAVG\n01-01-2024,99,27\n", 99, []string{"TAVG"}},
		{"same code twice", "TANGGAL,TAVG,TAVG\n01-01-2024,27,99\n", 27, []string{"TAVG"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// 맵 순회 순서와 무관하게 항상 같은 컬럼이 이겨야 한다
			for i := 0; i < 50; i++ {
				series, report, err := newNormalizer(contracts.FillForward).Parse(mustRead(t, tt.csv))
				require.NoError(t, err)

				require.Equal(t, tt.want, series.First().Values[contracts.FieldMeanTemp])
				require.Equal(t, tt.duplicates, report.DuplicateCodes)
				require.Empty(t, report.UnknownCodes)
			}
		})
	}
}

func TestParse_RowsWithoutColumnOrder(t *testing.T) {
	rows := []RawRow{{Line: 1, Values: map[string]string{"TANGGAL": "01-01-2024", "TAVG": "27", "mean_temp": "99"}}}

	series, report, err := newNormalizer(contracts.FillForward).Parse(rows)
	require.NoError(t, err)

	// Columns 가 없으면 코드 이름 순: "TAVG" < "mean_temp"
	assert.Equal(t, 27.0, series.First().Values[contracts.FieldMeanTemp])
	assert.Equal(t, []string{"mean_temp"}, report.DuplicateCodes)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name     string
		csv      string
		want     error
		wantLine int
	}{
		{
			name:     "unparsable date",
			csv:      "TANGGAL,TAVG\n01-01-2024,27\n2024-01-02,28\n",
			want:     contracts.ErrUnparsableDate,
			wantLine: 2,
		},
		{
			name:     "missing date column",
			csv:      "TAVG\n27\n",
			want:     contracts.ErrUnparsableDate,
			wantLine: 1,
		},
		{
			name:     "duplicate date",
			csv:      "TANGGAL,TAVG\n01-01-2024,27\n02-01-2024,28\n01-01-2024,29\n",
			want:     contracts.ErrDuplicateDate,
			wantLine: 3,
		},
		{
			name: "empty input",
			csv:  "TANGGAL,TAVG\n",
			want: contracts.ErrEmptyInput,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			series, _, err := newNormalizer(contracts.FillForward).Parse(mustRead(t, tt.csv))

			require.Error(t, err)
			assert.Nil(t, series)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)

			var nerr *contracts.NormalizationError
			require.True(t, errors.As(err, &nerr))
			assert.Equal(t, tt.wantLine, nerr.Line)
		})
	}
}

func TestParse_EmptyNil(t *testing.T) {
	_, _, err := newNormalizer(contracts.FillForward).Parse(nil)
	assert.ErrorIs(t, err, contracts.ErrEmptyInput)
}

func TestParse_SortsByDate(t *testing.T) {
	rows := mustRead(t, "TANGGAL,TAVG\n03-01-2024,3\n01-01-2024,1\n02-01-2024,2\n")

	series, _, err := newNormalizer(contracts.FillForward).Parse(rows)
	require.NoError(t, err)

	assert.Equal(t, []time.Time{day(2024, 1, 1), day(2024, 1, 2), day(2024, 1, 3)}, series.Dates())
	assert.Equal(t, []float64{1, 2, 3}, column(t, series, contracts.FieldMeanTemp))
}

func TestParse_SentinelsNeverEmitted(t *testing.T) {
	rows := mustRead(t, "TANGGAL,RR,TAVG\n01-01-2024,4,27\n02-01-2024,9999,8888\n03-01-2024,10,29\n")

	for _, policy := range []contracts.FillPolicy{contracts.FillForward, contracts.FillLinear} {
		t.Run(string(policy), func(t *testing.T) {
			series, report, err := newNormalizer(policy).Parse(rows)
			require.NoError(t, err)

			for _, v := range column(t, series, contracts.FieldRainfall) {
				assert.NotEqual(t, 9999.0, v)
			}
			for _, v := range column(t, series, contracts.FieldMeanTemp) {
				assert.NotEqual(t, 8888.0, v)
			}
			assert.Equal(t, 1, report.SentinelsReplaced[contracts.FieldRainfall])
			assert.Equal(t, 1, report.SentinelsReplaced[contracts.FieldMeanTemp])
		})
	}
}

func TestParse_CoercionFailureCountedAndFilled(t *testing.T) {
	rows := mustRead(t, "TANGGAL,TN\n01-01-2024,22\n02-01-2024,abc\n03-01-2024,\n04-01-2024,25\n")

	series, report, err := newNormalizer(contracts.FillForward).Parse(rows)
	require.NoError(t, err)

	// 빈 셀은 결측이지만 변환 실패로 세지 않는다
	assert.Equal(t, 1, report.CoercionFailures[contracts.FieldMinTemp])
	assert.Equal(t, 2, report.FilledCells[contracts.FieldMinTemp])
	assert.Equal(t, []float64{22, 22, 22, 25}, column(t, series, contracts.FieldMinTemp))
}

func TestParse_FillPolicies(t *testing.T) {
	csvText := "TANGGAL,RH_AVG\n01-01-2024,\n02-01-2024,80\n03-01-2024,\n04-01-2024,9999\n05-01-2024,86\n06-01-2024,\n"

	tests := []struct {
		policy contracts.FillPolicy
		want   []float64
	}{
		{contracts.FillForward, []float64{80, 80, 80, 80, 86, 86}},
		{contracts.FillLinear, []float64{80, 80, 82, 84, 86, 86}},
	}

	for _, tt := range tests {
		t.Run(string(tt.policy), func(t *testing.T) {
			series, report, err := newNormalizer(tt.policy).Parse(mustRead(t, csvText))
			require.NoError(t, err)

			got := column(t, series, contracts.FieldMeanHumidity)
			require.Len(t, got, len(tt.want))
			for i := range tt.want {
				assert.InDelta(t, tt.want[i], got[i], 1e-9, "index %d", i)
			}
			assert.Equal(t, 4, report.FilledCells[contracts.FieldMeanHumidity])
			assert.Equal(t, tt.policy, report.Policy)
		})
	}
}

func TestParse_LinearBoundedByNeighbours(t *testing.T) {
	rows := mustRead(t, "TANGGAL,TX\n01-01-2024,30\n02-01-2024,x\n03-01-2024,\n04-01-2024,\n05-01-2024,34\n06-01-2024,31\n07-01-2024,\n08-01-2024,29\n")

	series, _, err := newNormalizer(contracts.FillLinear).Parse(rows)
	require.NoError(t, err)

	got := column(t, series, contracts.FieldMaxTemp)
	for _, i := range []int{1, 2, 3} {
		assert.GreaterOrEqual(t, got[i], 30.0)
		assert.LessOrEqual(t, got[i], 34.0)
	}
	assert.InDelta(t, 30.0, got[6], 1e-9)
}

func TestParse_AllMissingFieldDropped(t *testing.T) {
	rows := mustRead(t, "TANGGAL,TAVG,SS\n01-01-2024,27,9999\n02-01-2024,28,\n")

	series, report, err := newNormalizer(contracts.FillForward).Parse(rows)
	require.NoError(t, err)

	assert.Equal(t, []contracts.Field{contracts.FieldMeanTemp}, series.Fields)
	assert.Equal(t, []contracts.Field{contracts.FieldSunshine}, report.DroppedFields)
	_, ok := series.First().Value(contracts.FieldSunshine)
	assert.False(t, ok)
}

func TestParse_FillCalendarGaps(t *testing.T) {
	rows := mustRead(t, "TANGGAL,TAVG\n01-01-2024,26\n04-01-2024,29\n")

	n := New(Options{Policy: contracts.FillLinear, FillCalendarGaps: true}, zerolog.Nop())
	series, report, err := n.Parse(rows)
	require.NoError(t, err)

	assert.Equal(t, 2, report.InsertedDays)
	assert.Equal(t, 4, series.Len())
	assert.Equal(t, []float64{26, 27, 28, 29}, column(t, series, contracts.FieldMeanTemp))
}

func TestParse_WindCardinalCarriedForward(t *testing.T) {
	rows := mustRead(t, "TANGGAL,DDD_CAR\n01-01-2024,\n02-01-2024,N\n03-01-2024,\n04-01-2024,SE\n")

	series, _, err := newNormalizer(contracts.FillLinear).Parse(rows)
	require.NoError(t, err)

	var got []string
	for _, o := range series.Observations {
		got = append(got, o.WindCardinal)
	}
	assert.Equal(t, []string{"N", "N", "N", "SE"}, got)
}

func TestParse_Idempotent(t *testing.T) {
	rows := mustRead(t, `TANGGAL,TN,TX,TAVG,RH_AVG,RR,SS,DDD_CAR
03-01-2024,23.1,,27.3,81,9999,5.5,N
01-01-2024,22.9,31.0,26.9,,0,abc,
02-01-2024,23.0,30.7,8888,84,3.3,4.1,NE
05-01-2024,23.7,32.2,27.8,79,0.1,7,E
`)

	for _, policy := range []contracts.FillPolicy{contracts.FillForward, contracts.FillLinear} {
		t.Run(string(policy), func(t *testing.T) {
			n := newNormalizer(policy)

			first, _, err := n.Parse(rows)
			require.NoError(t, err)

			second, report, err := n.Parse(RowsFromSeries(first))
			require.NoError(t, err)

			assert.Equal(t, first, second)
			assert.Zero(t, report.TotalFilled())
			assert.Zero(t, report.TotalCoercionFailures())
		})
	}
}

func TestReadCSV(t *testing.T) {
	rows, err := ReadCSV(strings.NewReader("\ufeffTANGGAL, TAVG\n01-01-2024, 27\n,\n02-01-2024\n"))
	require.NoError(t, err)

	require.Len(t, rows, 2)
	assert.Equal(t, 1, rows[0].Line)
	assert.Equal(t, "01-01-2024", rows[0].Values["TANGGAL"])
	assert.Equal(t, "27", rows[0].Values["TAVG"])
	assert.Equal(t, []string{"TANGGAL", "TAVG"}, rows[0].Columns)
	// 짧은 행은 빈 셀로 채운다
	assert.Equal(t, "", rows[1].Values["TAVG"])
}

func TestReadCSV_Empty(t *testing.T) {
	rows, err := ReadCSV(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestCanonical(t *testing.T) {
	f, ok := Canonical(" rr ")
	assert.True(t, ok)
	assert.Equal(t, contracts.FieldRainfall, f)

	_, ok = Canonical("WIND")
	assert.False(t, ok)

	assert.Equal(t, "RH_AVG", RawCode(contracts.FieldMeanHumidity))
}

func TestWriteCSV_RoundTrip(t *testing.T) {
	rows := mustRead(t, "TANGGAL,TAVG,RR,DDD_CAR\n01-01-2024,27.5,,N\n02-01-2024,28,3.2,\n")

	n := newNormalizer(contracts.FillForward)
	series, _, err := n.Parse(rows)
	require.NoError(t, err)

	var buf strings.Builder
	require.NoError(t, WriteCSV(&buf, series))
	assert.Equal(t, "date,mean_temp,rainfall,wind_cardinal\n01-01-2024,27.5,3.2,N\n02-01-2024,28,3.2,N\n", buf.String())

	again, _, err := n.Parse(mustRead(t, buf.String()))
	require.NoError(t, err)
	assert.Equal(t, series, again)
}
