package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wonny/agrimet/internal/crop"
)

// cropCmd represents the crop command
var cropCmd = &cobra.Command{
	Use:   "crop",
	Short: "작물 추천",
	Long: `토양 양분(N, P, K), 기온, 습도, pH, 강수량으로 적합한 작물을 추천합니다.
모든 값은 0 보다 커야 합니다.

분류기:
- CROP_ENDPOINT 가 있으면 원격 모델
- 없으면 CROP_CENTROIDS 의 작물별 평균 조건과의 거리

Example:
  go run ./cmd/agrimet crop --n 90 --p 42 --k 43 --temperature 20.9 --humidity 82 --ph 6.5 --rainfall 202.9`,
	RunE: runCrop,
}

var cropInput crop.Input

func init() {
	rootCmd.AddCommand(cropCmd)

	f := cropCmd.Flags()
	f.Float64Var(&cropInput.N, "n", 0, "질소 N")
	f.Float64Var(&cropInput.P, "p", 0, "인 P")
	f.Float64Var(&cropInput.K, "k", 0, "칼륨 K")
	f.Float64Var(&cropInput.Temperature, "temperature", 0, "기온 (°C)")
	f.Float64Var(&cropInput.Humidity, "humidity", 0, "상대습도 (%)")
	f.Float64Var(&cropInput.PH, "ph", 0, "토양 pH")
	f.Float64Var(&cropInput.Rainfall, "rainfall", 0, "강수량 (mm)")
}

func runCrop(cmd *cobra.Command, args []string) error {
	if err := cropInput.Validate(); err != nil {
		PrintError(err.Error())
		return err
	}

	a, err := newApp(cmd.Context(), appOptions{NoModels: true})
	if err != nil {
		return err
	}
	defer a.Close()

	rec, err := a.recommender()
	if err != nil {
		return fmt.Errorf("init crop classifier: %w", err)
	}

	result, err := rec.Recommend(cmd.Context(), cropInput)
	if err != nil {
		return err
	}

	PrintSuccess(fmt.Sprintf("Recommended crop: %s (class %d)", result.Label, result.Index))
	return nil
}
