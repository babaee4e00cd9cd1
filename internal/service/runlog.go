package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"mppt_sweep/internal/models"
	"mppt_sweep/internal/repository"
)

// LogFilter narrows a run log query. Zero times mean unbounded; an empty
// type matches everything.
type LogFilter struct {
	From time.Time
	To   time.Time
	Type string
}

type RunLogService struct {
	eventRepo repository.EventRepo
}

func NewRunLogService(eventRepo repository.EventRepo) *RunLogService {
	return &RunLogService{eventRepo: eventRepo}
}

var errInvalidTimeRange = errors.New("invalid time range: from must be <= to")

// normalizeToUTC returns t in UTC, preserving zero time values.
func normalizeToUTC(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	return t.UTC()
}

func (s *RunLogService) List(ctx context.Context, f LogFilter) ([]models.SweepEvent, error) {
	from := normalizeToUTC(f.From)
	to := normalizeToUTC(f.To)
	if !from.IsZero() && !to.IsZero() && from.After(to) {
		return nil, errInvalidTimeRange
	}
	typ := strings.ToUpper(strings.TrimSpace(f.Type))
	return s.eventRepo.List(ctx, from, to, typ)
}
