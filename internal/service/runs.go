package service

import (
	"context"

	"mppt_sweep/internal/models"
	"mppt_sweep/internal/repository"
)

// RunsService reads persisted sweep results back out of storage.
type RunsService struct {
	runRepo repository.RunRepo
}

func NewRunsService(runRepo repository.RunRepo) *RunsService {
	return &RunsService{runRepo: runRepo}
}

// List returns run summaries, newest first. Samples are not loaded here;
// fetch a single run for the full sequence.
func (s *RunsService) List(ctx context.Context) ([]models.SweepRun, error) {
	return s.runRepo.List(ctx)
}

// Get returns one run with its full sample sequence.
func (s *RunsService) Get(ctx context.Context, runID string) (models.SweepRun, error) {
	return s.runRepo.Get(ctx, runID)
}
