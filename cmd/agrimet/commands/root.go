package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	configFile string
	env        string
	verbose    bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "agrimet",
	Short: "agrimet - 일별 기상 관측 정규화 및 재귀 예측",
	Long: `agrimet Unified CLI

관측소 일별 기상 CSV 를 정규화하고,
학습된 회귀 모델로 여러 날을 재귀 예측합니다.

Usage:
  go run ./cmd/agrimet [command]

Examples:
  go run ./cmd/agrimet normalize data/cuaca.csv
  go run ./cmd/agrimet forecast --model humidity --horizon 7
  go run ./cmd/agrimet evaluate --from 2023-01-01
  go run ./cmd/agrimet api`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		applyGlobalFlags()
	},
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
// Ctrl+C / SIGTERM 은 커맨드 context 를 취소한다.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default is .env)")
	rootCmd.PersistentFlags().StringVar(&env, "env", "", "environment (development|staging|production)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

// applyGlobalFlags 전역 플래그를 환경변수로 넘긴다 (config.Load 가 유일한 읽기 지점)
func applyGlobalFlags() {
	if configFile != "" {
		_ = os.Setenv("ENV_FILE", configFile)
	}
	if env != "" {
		_ = os.Setenv("ENV", env)
	}
	if verbose {
		_ = os.Setenv("LOG_LEVEL", "debug")
	}
}
