package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/agrimet/internal/brain"
	"github.com/wonny/agrimet/internal/contracts"
	"github.com/wonny/agrimet/internal/forecast"
)

// forecastCmd represents the forecast command
var forecastCmd = &cobra.Command{
	Use:   "forecast",
	Short: "재귀 예측 실행",
	Long: `정규화된 시계열의 마지막 관측(또는 --seed 날짜)부터 horizon 일을 재귀 예측합니다.

각 스텝의 예측값이 다음 스텝의 lag/rolling 피처가 됩니다.
--model 을 생략하면 레지스트리의 모든 모델을 병렬로 실행합니다.

Example:
  go run ./cmd/agrimet forecast --model humidity --horizon 7
  go run ./cmd/agrimet forecast --model humidity --seed 2024-03-01 --out humidity.csv
  go run ./cmd/agrimet forecast --model rain --driver 2024-03-02:mean_temp=28.5
  go run ./cmd/agrimet forecast --horizon 3 --out forecasts/ --persist`,
	RunE: runForecast,
}

var (
	forecastModel    string
	forecastSeed     string
	forecastHorizon  int
	forecastOut      string
	forecastDecimals int
	forecastPersist  bool
	forecastPartial  bool
	forecastDataset  string
	forecastModels   string
	forecastDrivers  []string
)

func init() {
	rootCmd.AddCommand(forecastCmd)

	forecastCmd.Flags().StringVarP(&forecastModel, "model", "m", "", "모델 이름 (생략 시 전체)")
	forecastCmd.Flags().StringVar(&forecastSeed, "seed", "", "seed 날짜 YYYY-MM-DD (기본: 마지막 관측)")
	forecastCmd.Flags().IntVar(&forecastHorizon, "horizon", -1, "예측 일수 (기본: FORECAST_HORIZON)")
	forecastCmd.Flags().StringVarP(&forecastOut, "out", "o", "-", "CSV 출력 (단일 모델: 파일, 전체: 디렉터리)")
	forecastCmd.Flags().IntVar(&forecastDecimals, "decimals", -1, "소수 자릿수 (기본: FORECAST_DECIMALS)")
	forecastCmd.Flags().BoolVar(&forecastPersist, "persist", false, "실행 결과 저장")
	forecastCmd.Flags().BoolVar(&forecastPartial, "partial", false, "실패 시 완료된 스텝까지 출력")
	forecastCmd.Flags().StringVar(&forecastDataset, "dataset", "", "관측 CSV (기본: DATASET_PATH)")
	forecastCmd.Flags().StringVar(&forecastModels, "models", "", "모델 레지스트리 (기본: MODELS_FILE)")
	forecastCmd.Flags().StringArrayVar(&forecastDrivers, "driver", nil, "미래 드라이버 값 DATE:field=value (반복 가능)")
}

func runForecast(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := newApp(ctx, appOptions{
		DatasetPath: forecastDataset,
		ModelsFile:  forecastModels,
		UseDatabase: forecastPersist,
	})
	if err != nil {
		return err
	}
	defer a.Close()

	horizon := forecastHorizon
	if horizon < 0 {
		horizon = a.cfg.Forecast.DefaultHorizon
	}
	decimals := forecastDecimals
	if decimals < 0 {
		decimals = a.cfg.Forecast.Decimals
	}

	var seedDate time.Time
	if forecastSeed != "" {
		if seedDate, err = time.Parse("2006-01-02", forecastSeed); err != nil {
			return fmt.Errorf("invalid --seed %q (expected YYYY-MM-DD)", forecastSeed)
		}
	}

	if forecastModel == "" {
		if len(forecastDrivers) > 0 {
			return fmt.Errorf("--driver requires --model")
		}
		return forecastAll(ctx, a, seedDate, horizon, decimals)
	}

	schedule, err := parseDrivers(forecastDrivers)
	if err != nil {
		return err
	}

	result, err := a.orchestrator.Run(ctx, brain.RunConfig{
		Model:          forecastModel,
		SeedDate:       seedDate,
		Horizon:        horizon,
		DriverSchedule: schedule,
		Persist:        forecastPersist,
		SurfacePartial: forecastPartial,
	})
	if err != nil {
		if result != nil && result.Run != nil && forecastPartial {
			_ = writeFile(forecastOut, func(w io.Writer) error {
				return forecast.WriteCSV(w, result.Run.Steps, decimals)
			})
		}
		return err
	}

	if err := writeFile(forecastOut, func(w io.Writer) error {
		return forecast.WriteCSV(w, result.Run.Steps, decimals)
	}); err != nil {
		return err
	}

	if forecastOut != "-" {
		PrintSuccess(fmt.Sprintf("%s: %d steps from %s → %s",
			result.Run.Model, len(result.Run.Steps), result.Run.SeedDate.Format("2006-01-02"), forecastOut))
	}
	if result.Persisted {
		PrintInfo("Run stored: " + result.Run.ID)
	}
	return nil
}

// forecastAll 전체 모델 실행, 모델별 CSV 를 디렉터리에 쓴다
func forecastAll(ctx context.Context, a *app, seedDate time.Time, horizon, decimals int) error {
	start := time.Now()
	PrintJobHeader(JobMetadata{
		JobType:   "Batch Forecast",
		Tag:       "Forecast",
		Timestamp: start.Format("2006-01-02 15:04:05"),
		Models:    strings.Join(a.registry.Names(), ", "),
	})

	results, err := a.orchestrator.RunAll(ctx, seedDate, horizon, forecastPersist)
	if err != nil {
		return err
	}

	toDir := forecastOut != "-"
	if toDir {
		if err := os.MkdirAll(forecastOut, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}

	fmt.Println()
	widths := []int{20, 8, 12, 36}
	PrintTableHeader([]string{"MODEL", "STEPS", "LAST", "RESULT"}, widths)

	failed := 0
	for _, r := range results {
		name := r.Model
		if !r.Success {
			failed++
			PrintTableRow([]string{name, "-", "-", "❌ " + fmt.Sprint(r.Error)}, widths)
			continue
		}

		status := "✅"
		if toDir {
			path := filepath.Join(forecastOut, name+".csv")
			if err := writeFile(path, func(w io.Writer) error {
				return forecast.WriteCSV(w, r.Run.Steps, decimals)
			}); err != nil {
				return err
			}
			status += " " + path
		}
		last := "-"
		if n := len(r.Run.Steps); n > 0 {
			last = forecast.FormatValue(r.Run.Steps[n-1].Value, decimals)
		}
		PrintTableRow([]string{name, strconv.Itoa(len(r.Run.Steps)), last, status}, widths)
	}

	PrintCompletion("Batch forecast", time.Since(start))
	if failed > 0 {
		return fmt.Errorf("%d of %d models failed", failed, len(results))
	}
	return nil
}

// parseDrivers "2024-03-02:mean_temp=28.5" 형식의 플래그 → DriverSchedule
func parseDrivers(specs []string) (forecast.DriverSchedule, error) {
	if len(specs) == 0 {
		return nil, nil
	}

	schedule := forecast.DriverSchedule{}
	for _, spec := range specs {
		date, assignment, ok := strings.Cut(spec, ":")
		if !ok {
			return nil, fmt.Errorf("invalid --driver %q (expected DATE:field=value)", spec)
		}
		d, err := time.Parse("2006-01-02", strings.TrimSpace(date))
		if err != nil {
			return nil, fmt.Errorf("invalid --driver date %q", date)
		}
		name, raw, ok := strings.Cut(assignment, "=")
		if !ok {
			return nil, fmt.Errorf("invalid --driver %q (expected DATE:field=value)", spec)
		}
		field := contracts.Field(strings.TrimSpace(name))
		if !field.IsNumeric() {
			return nil, fmt.Errorf("unknown driver field %q", name)
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid --driver value %q", raw)
		}
		schedule.Set(d, field, v)
	}
	return schedule, nil
}
