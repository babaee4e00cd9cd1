package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"mppt_sweep/internal/models"
)

// ErrRunNotFound is returned by Get for an unknown run id.
var ErrRunNotFound = errors.New("run not found")

type RunSQLite struct {
	db *sql.DB
}

func NewRunSQLite(db *sql.DB) *RunSQLite {
	return &RunSQLite{db: db}
}

const (
	insertRunSQL = `
		INSERT INTO sweep_runs (id, config, status, mpp_voltage, mpp_current, mpp_power, simulated, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	insertSampleSQL = `
		INSERT INTO sweep_samples (run_id, seq, voltage, current, power)
		VALUES (?, ?, ?, ?, ?)
	`

	selectRunSQL = `
		SELECT id, config, status, mpp_voltage, mpp_current, mpp_power, simulated, started_at, finished_at
		FROM sweep_runs WHERE id=?
	`

	selectRunsSQL = `
		SELECT id, config, status, mpp_voltage, mpp_current, mpp_power, simulated, started_at, finished_at
		FROM sweep_runs ORDER BY started_at DESC
	`

	selectSamplesSQL = `
		SELECT voltage, current, power FROM sweep_samples WHERE run_id=? ORDER BY seq ASC
	`
)

// Save writes the run row and its sample sequence in one transaction.
func (r *RunSQLite) Save(ctx context.Context, run models.SweepRun) error {
	cfgJSON, err := json.Marshal(run.Config)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	var mppV, mppI, mppP sql.NullFloat64
	if run.MPP != nil {
		mppV = sql.NullFloat64{Float64: run.MPP.Voltage, Valid: true}
		mppI = sql.NullFloat64{Float64: run.MPP.Current, Valid: true}
		mppP = sql.NullFloat64{Float64: run.MPP.Power, Valid: true}
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, insertRunSQL,
		run.RunID,
		string(cfgJSON),
		run.Status,
		mppV, mppI, mppP,
		run.Simulated,
		run.StartedAt.UTC(),
		run.FinishedAt.UTC(),
	); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	for seq, s := range run.Samples {
		if _, err := tx.ExecContext(ctx, insertSampleSQL,
			run.RunID, seq, s.Voltage, s.Current, s.Power,
		); err != nil {
			return fmt.Errorf("insert sample %d: %w", seq, err)
		}
	}

	return tx.Commit()
}

// Get restores one run including its sample sequence.
func (r *RunSQLite) Get(ctx context.Context, runID string) (models.SweepRun, error) {
	row := r.db.QueryRowContext(ctx, selectRunSQL, runID)
	run, err := scanRun(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.SweepRun{}, ErrRunNotFound
		}
		return models.SweepRun{}, err
	}

	rows, err := r.db.QueryContext(ctx, selectSamplesSQL, runID)
	if err != nil {
		return models.SweepRun{}, err
	}
	defer rows.Close()

	for rows.Next() {
		var s models.Sample
		if err := rows.Scan(&s.Voltage, &s.Current, &s.Power); err != nil {
			return models.SweepRun{}, err
		}
		run.Samples = append(run.Samples, s)
	}
	if err := rows.Err(); err != nil {
		return models.SweepRun{}, err
	}
	return run, nil
}

// List returns run summaries without samples, newest first.
func (r *RunSQLite) List(ctx context.Context) ([]models.SweepRun, error) {
	rows, err := r.db.QueryContext(ctx, selectRunsSQL)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]models.SweepRun, 0, 16)
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, run)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (models.SweepRun, error) {
	var (
		run        models.SweepRun
		cfgJSON    string
		mppV, mppI sql.NullFloat64
		mppP       sql.NullFloat64
	)
	if err := row.Scan(
		&run.RunID,
		&cfgJSON,
		&run.Status,
		&mppV, &mppI, &mppP,
		&run.Simulated,
		&run.StartedAt,
		&run.FinishedAt,
	); err != nil {
		return models.SweepRun{}, err
	}
	if err := json.Unmarshal([]byte(cfgJSON), &run.Config); err != nil {
		return models.SweepRun{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if mppV.Valid && mppI.Valid && mppP.Valid {
		run.MPP = &models.Sample{Voltage: mppV.Float64, Current: mppI.Float64, Power: mppP.Float64}
	}
	run.StartedAt = run.StartedAt.UTC()
	run.FinishedAt = run.FinishedAt.UTC()
	return run, nil
}
