// Package repository persists completed simulation runs to Postgres so
// results can be compared across fabric or system variants.
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/home-energy-foundry/hem0424/internal/aggregate"
)

// ErrNotFound is returned when a run id does not exist.
var ErrNotFound = errors.New("run not found")

// Run is one persisted simulation run.
type Run struct {
	ID          uuid.UUID       `db:"id" json:"id"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
	ConfigName  string          `db:"config_name" json:"config_name"`
	WeatherName string          `db:"weather_name" json:"weather_name"`
	StepHours   float64         `db:"step_hours" json:"step_hours"`
	Summary     json.RawMessage `db:"summary" json:"summary"`
}

// RunRepository stores and retrieves simulation runs.
type RunRepository interface {
	SaveRun(ctx context.Context, configName, weatherName string, summary *aggregate.AnnualSummary) (*Run, error)
	GetRun(ctx context.Context, id uuid.UUID) (*Run, error)
	ListRuns(ctx context.Context, limit, offset int) ([]*Run, error)
	HealthCheck(ctx context.Context) error
}

type runRepository struct {
	db *sqlx.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS simulation_runs (
	id UUID PRIMARY KEY,
	created_at TIMESTAMPTZ NOT NULL,
	config_name TEXT NOT NULL,
	weather_name TEXT NOT NULL,
	step_hours DOUBLE PRECISION NOT NULL,
	summary JSONB NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_simulation_runs_created_at
	ON simulation_runs (created_at DESC);
`

// Open connects to Postgres and ensures the runs table exists.
func Open(ctx context.Context, dsn string) (RunRepository, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return &runRepository{db: db}, nil
}

func (r *runRepository) SaveRun(ctx context.Context, configName, weatherName string, summary *aggregate.AnnualSummary) (*Run, error) {
	raw, err := json.Marshal(summary)
	if err != nil {
		return nil, fmt.Errorf("marshal summary: %w", err)
	}
	run := &Run{
		ID:          uuid.New(),
		CreatedAt:   time.Now().UTC(),
		ConfigName:  configName,
		WeatherName: weatherName,
		StepHours:   summary.StepHours,
		Summary:     raw,
	}
	const q = `
		INSERT INTO simulation_runs (id, created_at, config_name, weather_name, step_hours, summary)
		VALUES (:id, :created_at, :config_name, :weather_name, :step_hours, :summary)
	`
	if _, err := r.db.NamedExecContext(ctx, q, run); err != nil {
		return nil, fmt.Errorf("insert run: %w", err)
	}
	return run, nil
}

func (r *runRepository) GetRun(ctx context.Context, id uuid.UUID) (*Run, error) {
	var run Run
	const q = `
		SELECT id, created_at, config_name, weather_name, step_hours, summary
		FROM simulation_runs WHERE id = $1
	`
	if err := r.db.GetContext(ctx, &run, q, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get run: %w", err)
	}
	return &run, nil
}

func (r *runRepository) ListRuns(ctx context.Context, limit, offset int) ([]*Run, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	runs := []*Run{}
	const q = `
		SELECT id, created_at, config_name, weather_name, step_hours, summary
		FROM simulation_runs
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`
	if err := r.db.SelectContext(ctx, &runs, q, limit, offset); err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return runs, nil
}

func (r *runRepository) HealthCheck(ctx context.Context) error {
	return r.db.PingContext(ctx)
}
