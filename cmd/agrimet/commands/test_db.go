package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/agrimet/internal/forecast"
	"github.com/wonny/agrimet/pkg/database"
)

// testDBCmd represents the test-db command
var testDBCmd = &cobra.Command{
	Use:   "test-db",
	Short: "PostgreSQL 연결 테스트",
	Long: `데이터베이스 연결을 테스트하고 풀 통계를 표시합니다.

이 명령어는:
- config에서 DATABASE_URL 로드
- Ping / Health Check
- 예측 실행 테이블 생성 (없으면)
- Connection Pool 통계 표시

Example:
  go run ./cmd/agrimet test-db
  go run ./cmd/agrimet test-db --env production`,
	RunE: runTestDB,
}

func init() {
	rootCmd.AddCommand(testDBCmd)
}

func runTestDB(cmd *cobra.Command, args []string) error {
	fmt.Println("=== agrimet Database Connection Test ===")

	fmt.Println("Loading configuration...")
	cfg, _, err := loadConfig()
	if err != nil {
		return fmt.Errorf("❌ Failed to load config: %w", err)
	}
	fmt.Printf("✅ Config loaded (ENV: %s)\n", cfg.Env)
	fmt.Printf("   Database URL: %s\n\n", maskPassword(cfg.Database.URL))

	fmt.Println("Connecting to database...")
	db, err := database.New(cfg)
	if err != nil {
		return fmt.Errorf("❌ Failed to connect to database: %w", err)
	}
	defer db.Close()
	fmt.Println("✅ Database connection established")

	ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
	defer cancel()

	fmt.Println("Getting health status...")
	status, err := db.HealthCheck(ctx)
	if err != nil {
		return fmt.Errorf("❌ Health check failed: %w", err)
	}
	fmt.Printf("   Healthy: %v\n", status.Healthy)
	fmt.Printf("   Response Time: %v\n\n", status.ResponseTime)

	fmt.Println("Ensuring forecast schema...")
	if err := forecast.NewRepository(db.Pool).EnsureSchema(ctx); err != nil {
		return fmt.Errorf("❌ %w", err)
	}
	fmt.Println("✅ Schema ready")

	fmt.Println("\n📊 Connection Pool Statistics:")
	PrintKeyValue("Max Connections", fmt.Sprint(status.Stats.MaxConns), 22)
	PrintKeyValue("Total Connections", fmt.Sprint(status.Stats.TotalConns), 22)
	PrintKeyValue("Acquired Connections", fmt.Sprint(status.Stats.AcquiredConns), 22)
	PrintKeyValue("Idle Connections", fmt.Sprint(status.Stats.IdleConns), 22)
	PrintKeyValue("Acquire Count", fmt.Sprint(status.Stats.AcquireCount), 22)

	fmt.Println("\n✅ All tests passed!")
	return nil
}
