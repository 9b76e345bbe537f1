package audit

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/maxramirez84/icaria-fw-redcap-alerts/internal/alerts"
)

type runRepoPG struct {
	pool *pgxpool.Pool
}

func NewRunRepoPG(pool *pgxpool.Pool) RunRepository {
	return &runRepoPG{pool: pool}
}

// EnsureSchema creates the audit tables if they do not exist yet.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS alert_run (
			id UUID PRIMARY KEY,
			project TEXT NOT NULL,
			dry_run BOOLEAN NOT NULL,
			run_date DATE NOT NULL,
			started_at TIMESTAMPTZ NOT NULL,
			finished_at TIMESTAMPTZ NOT NULL,
			records INT NOT NULL,
			cleared INT NOT NULL,
			set_count INT NOT NULL,
			applied INT NOT NULL,
			mismatch BOOLEAN NOT NULL,
			error TEXT NOT NULL DEFAULT ''
		);
		CREATE TABLE IF NOT EXISTS alert_run_outcome (
			run_id UUID NOT NULL REFERENCES alert_run(id) ON DELETE CASCADE,
			position INT NOT NULL,
			code TEXT NOT NULL,
			eligible INT NOT NULL,
			removed INT NOT NULL,
			set_count INT NOT NULL,
			PRIMARY KEY (run_id, position)
		);
		CREATE INDEX IF NOT EXISTS idx_alert_run_started ON alert_run (started_at DESC);
	`)
	if err != nil {
		return fmt.Errorf("ensure audit schema: %w", err)
	}
	return nil
}

const runCols = `id, project, dry_run, run_date, started_at, finished_at,
	records, cleared, set_count, applied, mismatch, error`

func (r *runRepoPG) Save(ctx context.Context, run *Run) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin run save: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	_, err = tx.Exec(ctx, `
		INSERT INTO alert_run (`+runCols+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
		run.ID, run.Project, run.DryRun, run.Today, run.StartedAt, run.FinishedAt,
		run.Records, run.Cleared, run.Set, run.Applied, run.Mismatch, run.Error,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	for i, o := range run.Outcomes {
		_, err = tx.Exec(ctx, `
			INSERT INTO alert_run_outcome (run_id, position, code, eligible, removed, set_count)
			VALUES ($1,$2,$3,$4,$5,$6)`,
			run.ID, i, o.Code, o.Eligible, o.Removed, o.Set,
		)
		if err != nil {
			return fmt.Errorf("insert run outcome %s: %w", o.Code, err)
		}
	}

	return tx.Commit(ctx)
}

func (r *runRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Run, error) {
	run, err := scanRun(r.pool.QueryRow(ctx, `SELECT `+runCols+` FROM alert_run WHERE id = $1`, id))
	if err != nil {
		return nil, err
	}

	rows, err := r.pool.Query(ctx, `
		SELECT code, eligible, removed, set_count
		FROM alert_run_outcome WHERE run_id = $1 ORDER BY position`, id)
	if err != nil {
		return nil, fmt.Errorf("query run outcomes: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var o alerts.Outcome
		if err := rows.Scan(&o.Code, &o.Eligible, &o.Removed, &o.Set); err != nil {
			return nil, fmt.Errorf("scan run outcome: %w", err)
		}
		run.Outcomes = append(run.Outcomes, o)
	}
	return run, rows.Err()
}

func (r *runRepoPG) List(ctx context.Context, limit int) ([]*Run, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx, `
		SELECT `+runCols+` FROM alert_run ORDER BY started_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var out []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, run)
	}
	return out, rows.Err()
}

func scanRun(row pgx.Row) (*Run, error) {
	var run Run
	err := row.Scan(&run.ID, &run.Project, &run.DryRun, &run.Today, &run.StartedAt, &run.FinishedAt,
		&run.Records, &run.Cleared, &run.Set, &run.Applied, &run.Mismatch, &run.Error)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan run: %w", err)
	}
	return &run, nil
}
