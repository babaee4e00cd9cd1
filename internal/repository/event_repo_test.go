package repository_test

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"mppt_sweep/internal/models"
	"mppt_sweep/internal/repository"
)

func TestEventSQLite_AppendFillsDefaults(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO sweep_events")).
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), "RUN_STARTED", "sweep started", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	repo := repository.NewEventSQLite(db)
	err = repo.Append(context.Background(), models.SweepEvent{
		RunID:       "run-1",
		Type:        "run_started",
		Description: "sweep started",
	})
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestEventSQLite_ListBuildsFilter(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	from := time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC)

	rows := sqlmock.NewRows([]string{"id", "run_id", "occurred_at", "type", "message", "meta"}).
		AddRow("ev-1", "run-1", from.Add(time.Hour), "POINT_FAILED", "setpoint 2.5 failed", `{"setpoint":2.5}`).
		AddRow("ev-2", nil, from.Add(2*time.Hour), "POINT_FAILED", "setpoint 3.0 failed", nil)
	mock.ExpectQuery(regexp.QuoteMeta("WHERE occurred_at >= ? AND occurred_at <= ? AND type = ?")).
		WithArgs(from, to, "POINT_FAILED").
		WillReturnRows(rows)

	repo := repository.NewEventSQLite(db)
	events, err := repo.List(context.Background(), from, to, "point_failed")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[0].RunID != "run-1" || events[1].RunID != "" {
		t.Fatalf("run ids not mapped: %+v", events)
	}
	meta, ok := events[0].Metadata.(map[string]any)
	if !ok || meta["setpoint"] != 2.5 {
		t.Fatalf("metadata not decoded: %#v", events[0].Metadata)
	}
	if events[1].Metadata != nil {
		t.Fatalf("NULL meta must stay nil, got %#v", events[1].Metadata)
	}
}

func TestEventSQLite_ListUnfiltered(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta("FROM sweep_events ORDER BY occurred_at ASC")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "run_id", "occurred_at", "type", "message", "meta"}))

	repo := repository.NewEventSQLite(db)
	events, err := repo.List(context.Background(), time.Time{}, time.Time{}, "")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(events) != 0 {
		t.Fatalf("expected empty list, got %d events", len(events))
	}
}
