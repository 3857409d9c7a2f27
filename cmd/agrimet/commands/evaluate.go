package commands

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/agrimet/internal/backtest"
)

// evaluateCmd represents the evaluate command
var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "모델 백테스트 및 비교",
	Long: `관측 기간의 각 날짜를 horizon 일 전 관측에서 재귀 예측해 실제값과 비교합니다.

출력:
- 모델별 MAE, MSE, RMSE, R²
- 잔차(실제 - 예측) 분포
- R² 최대 / RMSE 최소 모델

Example:
  go run ./cmd/agrimet evaluate
  go run ./cmd/agrimet evaluate --models humidity,rain --from 2023-01-01 --to 2023-12-31 --horizon 3`,
	RunE: runEvaluate,
}

var (
	evaluateModels  []string
	evaluateFrom    string
	evaluateTo      string
	evaluateHorizon int
	evaluateDataset string
)

func init() {
	rootCmd.AddCommand(evaluateCmd)

	evaluateCmd.Flags().StringSliceVar(&evaluateModels, "models", nil, "평가할 모델 (기본: 전체)")
	evaluateCmd.Flags().StringVar(&evaluateFrom, "from", "", "시작일 YYYY-MM-DD")
	evaluateCmd.Flags().StringVar(&evaluateTo, "to", "", "종료일 YYYY-MM-DD")
	evaluateCmd.Flags().IntVar(&evaluateHorizon, "horizon", 1, "며칠 앞 예측을 평가할지")
	evaluateCmd.Flags().StringVar(&evaluateDataset, "dataset", "", "관측 CSV (기본: DATASET_PATH)")
}

func runEvaluate(cmd *cobra.Command, args []string) error {
	cfg := backtest.Config{Horizon: evaluateHorizon}
	var err error
	if cfg.StartDate, err = parseOptionalDate("--from", evaluateFrom); err != nil {
		return err
	}
	if cfg.EndDate, err = parseOptionalDate("--to", evaluateTo); err != nil {
		return err
	}

	a, err := newApp(cmd.Context(), appOptions{DatasetPath: evaluateDataset})
	if err != nil {
		return err
	}
	defer a.Close()

	models := evaluateModels
	if len(models) == 0 {
		models = a.registry.Names()
	}

	start := time.Now()
	PrintJobHeader(JobMetadata{
		JobType:   "Model Evaluation",
		Tag:       "Evaluate",
		Timestamp: start.Format("2006-01-02 15:04:05"),
		Period:    &Period{StartDate: orOpen(evaluateFrom), EndDate: orOpen(evaluateTo)},
		Models:    strings.Join(models, ", "),
	})

	cmp, err := a.engine.Compare(cmd.Context(), models, cfg)
	if cmp != nil {
		printComparison(cmp)
	}
	if err != nil {
		return err
	}

	PrintCompletion("Evaluation", time.Since(start))
	return nil
}

func printComparison(cmp *backtest.Comparison) {
	fmt.Println()
	widths := []int{20, 7, 9, 9, 9, 9, 9}
	PrintTableHeader([]string{"MODEL", "POINTS", "MAE", "MSE", "RMSE", "R2", "BIAS"}, widths)
	for _, r := range cmp.Results {
		PrintTableRow([]string{
			r.Model,
			fmt.Sprint(len(r.Points)),
			fmt.Sprintf("%.3f", r.Metrics.MAE),
			fmt.Sprintf("%.3f", r.Metrics.MSE),
			fmt.Sprintf("%.3f", r.Metrics.RMSE),
			fmt.Sprintf("%.3f", r.Metrics.R2),
			fmt.Sprintf("%+.3f", r.Errors.Mean),
		}, widths)
	}

	if len(cmp.Failed) > 0 {
		names := make([]string, 0, len(cmp.Failed))
		for name := range cmp.Failed {
			names = append(names, name)
		}
		sort.Strings(names)

		fmt.Println()
		for _, name := range names {
			PrintError(fmt.Sprintf("%s: %s", name, cmp.Failed[name]))
		}
	}

	if cmp.Selection.BestByR2 != "" {
		fmt.Println()
		PrintKeyValue("Best by R²", cmp.Selection.BestByR2, 12)
		PrintKeyValue("Best by RMSE", cmp.Selection.BestByRMSE, 12)
		if !cmp.Selection.Agreed {
			PrintWarning("R² and RMSE disagree on the best model")
		}
	}
}

func parseOptionalDate(flag, s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid %s %q (expected YYYY-MM-DD)", flag, s)
	}
	return t, nil
}

func orOpen(s string) string {
	if s == "" {
		return "…"
	}
	return s
}
