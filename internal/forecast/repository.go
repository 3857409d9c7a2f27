package forecast

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/agrimet/internal/contracts"
)

// schemaDDL 예측 실행 저장 테이블
const schemaDDL = `
	CREATE SCHEMA IF NOT EXISTS agrimet;

	CREATE TABLE IF NOT EXISTS agrimet.forecast_runs (
		id            UUID PRIMARY KEY,
		model         TEXT        NOT NULL,
		target        TEXT        NOT NULL,
		seed_date     DATE        NOT NULL,
		horizon       INT         NOT NULL,
		registry_hash TEXT        NOT NULL DEFAULT '',
		created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
	);

	CREATE INDEX IF NOT EXISTS forecast_runs_model_created_idx
		ON agrimet.forecast_runs (model, created_at DESC);

	CREATE TABLE IF NOT EXISTS agrimet.forecast_steps (
		run_id          UUID             NOT NULL REFERENCES agrimet.forecast_runs(id) ON DELETE CASCADE,
		step            INT              NOT NULL,
		forecast_date   DATE             NOT NULL,
		predicted_value DOUBLE PRECISION NOT NULL,
		PRIMARY KEY (run_id, step)
	);`

// Repository forecast 실행 저장소
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository 새 저장소 생성
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// EnsureSchema 테이블이 없으면 생성
func (r *Repository) EnsureSchema(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, schemaDDL); err != nil {
		return fmt.Errorf("ensure forecast schema: %w", err)
	}
	return nil
}

// NewRun 실행 레코드 생성 (ID 발급)
func NewRun(model string, target contracts.Field, seedDate time.Time, seq contracts.ForecastSequence, registryHash string) *contracts.ForecastRun {
	return &contracts.ForecastRun{
		ID:           uuid.NewString(),
		Model:        model,
		Target:       target,
		SeedDate:     seedDate,
		Horizon:      len(seq),
		RegistryHash: registryHash,
		Steps:        seq,
		CreatedAt:    time.Now().UTC(),
	}
}

// SaveRun 실행과 스텝을 한 트랜잭션으로 저장
func (r *Repository) SaveRun(ctx context.Context, run *contracts.ForecastRun) error {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	id, err := uuid.Parse(run.ID)
	if err != nil {
		return fmt.Errorf("invalid run id %q: %w", run.ID, err)
	}

	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO agrimet.forecast_runs
				(id, model, target, seed_date, horizon, registry_hash, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			id, run.Model, string(run.Target), run.SeedDate, run.Horizon, run.RegistryHash, run.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("insert run: %w", err)
		}

		if len(run.Steps) == 0 {
			return nil
		}

		batch := &pgx.Batch{}
		query := `
			INSERT INTO agrimet.forecast_steps (run_id, step, forecast_date, predicted_value)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (run_id, step) DO UPDATE SET
				forecast_date = EXCLUDED.forecast_date,
				predicted_value = EXCLUDED.predicted_value`
		for i, s := range run.Steps {
			batch.Queue(query, id, i+1, s.Date, s.Value)
		}

		br := tx.SendBatch(ctx, batch)
		for range run.Steps {
			if _, err := br.Exec(); err != nil {
				br.Close()
				return fmt.Errorf("insert steps: %w", err)
			}
		}
		return br.Close()
	})
}

// GetRun 실행 조회 (스텝 포함)
func (r *Repository) GetRun(ctx context.Context, id string) (*contracts.ForecastRun, error) {
	runID, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("%w: run %s", contracts.ErrNotFound, id)
	}

	var run contracts.ForecastRun
	var target string
	err = r.pool.QueryRow(ctx, `
		SELECT model, target, seed_date, horizon, registry_hash, created_at
		FROM agrimet.forecast_runs
		WHERE id = $1`, runID,
	).Scan(&run.Model, &target, &run.SeedDate, &run.Horizon, &run.RegistryHash, &run.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: run %s", contracts.ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	run.ID = runID.String()
	run.Target = contracts.Field(target)

	rows, err := r.pool.Query(ctx, `
		SELECT forecast_date, predicted_value
		FROM agrimet.forecast_steps
		WHERE run_id = $1
		ORDER BY step`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	run.Steps = make(contracts.ForecastSequence, 0, run.Horizon)
	for rows.Next() {
		var s contracts.ForecastStep
		if err := rows.Scan(&s.Date, &s.Value); err != nil {
			return nil, err
		}
		run.Steps = append(run.Steps, s)
	}

	return &run, rows.Err()
}

// ListRuns 최근 실행 목록 (model 이 비어 있으면 전체)
func (r *Repository) ListRuns(ctx context.Context, model string, limit int) ([]contracts.ForecastRunSummary, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := r.pool.Query(ctx, `
		SELECT id, model, target, seed_date, horizon, created_at
		FROM agrimet.forecast_runs
		WHERE ($1 = '' OR model = $1)
		ORDER BY created_at DESC
		LIMIT $2`, model, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []contracts.ForecastRunSummary
	for rows.Next() {
		var s contracts.ForecastRunSummary
		var id uuid.UUID
		var target string
		if err := rows.Scan(&id, &s.Model, &target, &s.SeedDate, &s.Horizon, &s.CreatedAt); err != nil {
			return nil, err
		}
		s.ID = id.String()
		s.Target = contracts.Field(target)
		runs = append(runs, s)
	}

	return runs, rows.Err()
}

// DeleteRunsBefore created_at 이 before 이전인 실행 삭제 (steps 는 CASCADE)
func (r *Repository) DeleteRunsBefore(ctx context.Context, before time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM agrimet.forecast_runs WHERE created_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("delete runs before %s: %w", before.Format(time.RFC3339), err)
	}
	return tag.RowsAffected(), nil
}
