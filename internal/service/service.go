package service

import (
	"context"

	"mppt_sweep/internal/instrument"
	"mppt_sweep/internal/logger"
	"mppt_sweep/internal/models"
	"mppt_sweep/internal/repository"
)

type Authorization interface {
	SignUp(username, password string) (int, error)
	GenerateToken(username, password string) (string, error)
	ParseToken(accessToken string) (int, error)
}

// Sweeper drives I-V sweeps: at most one run at a time.
type Sweeper interface {
	Start(req StartRequest) (runID string, err error)
	Abort() error
	Status() Progress
}

// Runs exposes persisted sweep results.
type Runs interface {
	List(ctx context.Context) ([]models.SweepRun, error)
	Get(ctx context.Context, runID string) (models.SweepRun, error)
}

// RunLog exposes the append-only sweep event log with filtering access.
type RunLog interface {
	List(ctx context.Context, f LogFilter) ([]models.SweepEvent, error)
}

// Service aggregates all sub-services.
type Service struct {
	Sweeper
	Runs
	RunLog
	Authorization
}

// Deps carries everything the service layer needs from the outside.
type Deps struct {
	Repos             *repository.Repository
	Link              instrument.Link
	InstrumentAddress string
	Simulation        bool
	Log               *logger.Logger
}

// NewService wires the repository layer and instrument link into concrete
// services.
func NewService(d Deps) *Service {
	return &Service{
		Sweeper:       NewSweepService(d),
		Runs:          NewRunsService(d.Repos.Runs),
		RunLog:        NewRunLogService(d.Repos.Events),
		Authorization: NewAuthService(d.Repos.Auth),
	}
}
