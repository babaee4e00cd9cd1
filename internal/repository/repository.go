package repository

import (
	"context"
	"database/sql"
	"time"

	"mppt_sweep/internal/models"
)

type Authorization interface {
	Create(username, hash string) (int, error)
	GetByUsername(username string) (*models.Operator, error)
}

// RunRepo round-trips finished sweeps. Save persists the config, status,
// MPP and the full sample sequence; Get restores all of it.
type RunRepo interface {
	Save(ctx context.Context, run models.SweepRun) error
	Get(ctx context.Context, runID string) (models.SweepRun, error)
	List(ctx context.Context) ([]models.SweepRun, error)
}

type EventRepo interface {
	Append(ctx context.Context, e models.SweepEvent) error
	List(ctx context.Context, from, to time.Time, typ string) ([]models.SweepEvent, error)
}

type Repository struct {
	Runs   RunRepo
	Events EventRepo
	Auth   Authorization
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{
		Runs:   NewRunSQLite(db),
		Events: NewEventSQLite(db),
		Auth:   NewOperatorRepository(db),
	}
}
