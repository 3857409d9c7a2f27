package commands

import (
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/agrimet/internal/contracts"
	"github.com/wonny/agrimet/internal/normalize"
)

// normalizeCmd represents the normalize command
var normalizeCmd = &cobra.Command{
	Use:   "normalize [csv]",
	Short: "관측 CSV 정규화",
	Long: `관측소 일별 CSV 를 정규화합니다.

이 명령어는:
- 원본 코드(TANGGAL, TN, RR ...)를 정규 필드명으로 변환
- 센티널(8888, 9999)과 숫자가 아닌 값을 결측으로 처리
- 날짜 정렬 후 중복 날짜 거부
- ffill 또는 linear 로 결측 보간

Example:
  go run ./cmd/agrimet normalize data/cuaca.csv
  go run ./cmd/agrimet normalize data/cuaca.csv --policy linear --out clean.csv`,
	Args: cobra.MaximumNArgs(1),
	RunE: runNormalize,
}

var (
	normalizePolicy   string
	normalizeOut      string
	normalizeFillGaps bool
)

func init() {
	rootCmd.AddCommand(normalizeCmd)

	normalizeCmd.Flags().StringVar(&normalizePolicy, "policy", "", "보간 정책 (ffill|linear, 기본값 FILL_POLICY)")
	normalizeCmd.Flags().StringVarP(&normalizeOut, "out", "o", "", "정규화 CSV 출력 파일 (생략 시 요약만)")
	normalizeCmd.Flags().BoolVar(&normalizeFillGaps, "fill-gaps", false, "빠진 날짜를 행으로 삽입")
}

func runNormalize(cmd *cobra.Command, args []string) error {
	opts := appOptions{FillPolicy: normalizePolicy, NoModels: true}
	if len(args) == 1 {
		opts.DatasetPath = args[0]
	}

	a, err := newApp(cmd.Context(), opts)
	if err != nil {
		return err
	}
	defer a.Close()

	if normalizeFillGaps {
		a.normalizer = normalize.New(normalize.Options{
			Policy:           a.normalizer.Policy(),
			Sentinels:        a.cfg.Dataset.Sentinels,
			FillCalendarGaps: true,
		}, a.log.Zerolog())
	}

	start := time.Now()
	PrintJobHeader(JobMetadata{
		JobType:   "Normalize " + a.cfg.Dataset.Path,
		Tag:       "Normalize",
		Timestamp: start.Format("2006-01-02 15:04:05"),
	})

	rows, err := normalize.ReadCSVFile(a.cfg.Dataset.Path)
	if err != nil {
		return fmt.Errorf("read dataset: %w", err)
	}
	series, report, err := a.normalizer.Parse(rows)
	if err != nil {
		PrintError(err.Error())
		return err
	}

	printReport(series, report)

	if normalizeOut != "" {
		if err := writeFile(normalizeOut, func(w io.Writer) error {
			return normalize.WriteCSV(w, series)
		}); err != nil {
			return err
		}
		PrintSuccess("Written " + normalizeOut)
	}

	PrintCompletion("Normalization", time.Since(start))
	return nil
}

func printReport(series *contracts.CleanSeries, report *contracts.NormalizationReport) {
	fmt.Println()
	PrintKeyValue("Rows", fmt.Sprintf("%d → %d", report.Rows, series.Len()), 14)
	PrintKeyValue("Range", fmt.Sprintf("%s ~ %s",
		series.First().Date.Format("2006-01-02"), series.Last().Date.Format("2006-01-02")), 14)
	PrintKeyValue("Policy", string(report.Policy), 14)
	if report.InsertedDays > 0 {
		PrintKeyValue("Inserted days", fmt.Sprint(report.InsertedDays), 14)
	}
	if len(report.DuplicateCodes) > 0 {
		PrintWarning(fmt.Sprintf("Duplicate columns dropped: %v", report.DuplicateCodes))
	}
	if len(report.UnknownCodes) > 0 {
		PrintWarning(fmt.Sprintf("Unknown codes dropped: %v", report.UnknownCodes))
	}
	if len(report.DroppedFields) > 0 {
		PrintWarning(fmt.Sprintf("Fields without valid values dropped: %v", report.DroppedFields))
	}

	fmt.Println()
	widths := []int{16, 10, 10, 10}
	PrintTableHeader([]string{"FIELD", "SENTINEL", "INVALID", "FILLED"}, widths)
	fields := append([]contracts.Field(nil), series.Fields...)
	sort.Slice(fields, func(i, j int) bool { return fields[i] < fields[j] })
	for _, f := range fields {
		PrintTableRow([]string{
			string(f),
			fmt.Sprint(report.SentinelsReplaced[f]),
			fmt.Sprint(report.CoercionFailures[f]),
			fmt.Sprint(report.FilledCells[f]),
		}, widths)
	}
}

// writeFile path 가 "-" 이면 stdout
func writeFile(path string, write func(io.Writer) error) error {
	if path == "-" {
		return write(os.Stdout)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
