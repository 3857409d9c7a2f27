package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wonny/agrimet/internal/api"
	"github.com/wonny/agrimet/internal/api/handlers"
)

// apiCmd represents the api command
var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "API 서버 시작",
	Long: `REST API 서버를 시작합니다.

Endpoints:
  GET  /health                  - Health check
  GET  /metrics                 - Prometheus metrics
  GET  /api/series              - 정규화된 관측 (from, to, season, months, range)
  GET  /api/series/summary      - 필드별 요약 + 계절 평균
  GET  /api/series/report       - 정규화 리포트
  GET  /api/models              - 모델 레지스트리
  POST /api/forecast            - 재귀 예측 실행
  GET  /api/forecast            - 저장된 실행 목록
  GET  /api/forecast/{id}       - 실행 조회
  GET  /api/forecast/{id}/csv   - 실행 CSV
  POST /api/evaluate            - 모델 백테스트 비교
  POST /api/crop/recommend      - 작물 추천

Example:
  go run ./cmd/agrimet api
  go run ./cmd/agrimet api --port 8080`,
	RunE: runAPIServer,
}

var (
	apiPort string
)

func init() {
	rootCmd.AddCommand(apiCmd)

	apiCmd.Flags().StringVar(&apiPort, "port", "", "API 서버 포트 (기본: PORT)")
}

func runAPIServer(cmd *cobra.Command, args []string) error {
	fmt.Println("=== agrimet API Server ===")

	ctx := cmd.Context()
	a, err := newApp(ctx, appOptions{UseDatabase: true})
	if err != nil {
		return err
	}
	defer a.Close()

	if apiPort != "" {
		a.cfg.Port = apiPort
	}

	log := a.log
	log.WithFields(map[string]interface{}{
		"port":    a.cfg.Port,
		"env":     a.cfg.Env,
		"dataset": a.cfg.Dataset.Path,
		"models":  len(a.registry.Models),
	}).Info("Initializing API server")

	// Handlers
	h := api.Handlers{
		Series:         handlers.NewSeriesHandler(a.datasets, a.cfg.Dataset.Path, log),
		Forecast:       handlers.NewForecastHandler(a.orchestrator, a.engine, a.cfg.Forecast.Decimals, log),
		Checks:         a.healthChecks(),
		DisableMetrics: !a.cfg.MetricsEnabled,
	}
	if rec, err := a.recommender(); err != nil {
		log.WithError(err).Warn("Crop classifier unavailable, /api/crop disabled")
	} else {
		h.Crop = handlers.NewCropHandler(rec, log)
	}

	server := api.New(a.cfg, log, api.NewRouter(h, log))

	fmt.Printf("\n✅ Server running on http://localhost:%s\n", a.cfg.Port)
	fmt.Println("\nPress Ctrl+C to stop")

	if err := server.Run(ctx); err != nil {
		return err
	}

	log.Info("Server stopped")
	return nil
}
