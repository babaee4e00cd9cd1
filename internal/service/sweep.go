package service

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"mppt_sweep/internal/instrument"
	"mppt_sweep/internal/logger"
	"mppt_sweep/internal/models"
	"mppt_sweep/internal/repository"
)

// Controller states.
const (
	StateIdle        = "IDLE"
	StateConfiguring = "CONFIGURING"
	StateRunning     = "RUNNING"
	StateCompleting  = "COMPLETING"
	StateAborting    = "ABORTING"
)

// Run log event types.
const (
	EventRunStarted   = "RUN_STARTED"
	EventPointFailed  = "POINT_FAILED"
	EventRunCompleted = "RUN_COMPLETED"
	EventRunAborted   = "RUN_ABORTED"
	EventConfigFailed = "CONFIG_FAILED"
)

const connectTimeout = 20 * time.Second

// StartRequest carries everything needed to launch one run.
type StartRequest struct {
	Config     models.SweepConfig `json:"config"`
	Simulation bool               `json:"simulation"`
}

// Progress is a snapshot of the controller for observers. Samples is a copy
// of the append-only result sequence: it only ever grows between
// observations of the same run.
type Progress struct {
	State        string          `json:"state"`
	RunID        string          `json:"run_id,omitempty"`
	TotalPoints  int             `json:"total_points,omitempty"`
	PointsDone   int             `json:"points_done"`
	PointsFailed int             `json:"points_failed"`
	Samples      []models.Sample `json:"samples,omitempty"`
}

// pointSource is what the sweep loop drives: a real instrument session or
// the simulation source.
type pointSource interface {
	DriveAndMeasure(setpoint float64, settle time.Duration) (models.Sample, error)
}

// SweepService is the sweep controller. It owns the instrument for the
// duration of a run and holds the growing result sequence until the run
// reaches a terminal status. At most one run is active at a time; a second
// Start is rejected with ErrSweepBusy.
type SweepService struct {
	runRepo   repository.RunRepo
	eventRepo repository.EventRepo
	link      instrument.Link
	address   string
	simByDefl bool
	log       *logger.Logger

	// acquire picks the measurement backend; tests substitute a scripted
	// source here.
	acquire func(ctx context.Context, cfg models.SweepConfig, simulated bool) (pointSource, func(), error)

	mu           sync.Mutex
	state        string
	cancel       context.CancelFunc
	runID        string
	setpoints    []float64
	samples      []models.Sample
	pointsFailed int
	sinks        []Sink
}

func NewSweepService(d Deps) *SweepService {
	s := &SweepService{
		runRepo:   d.Repos.Runs,
		eventRepo: d.Repos.Events,
		link:      d.Link,
		address:   d.InstrumentAddress,
		simByDefl: d.Simulation,
		log:       d.Log,
		state:     StateIdle,
	}
	s.acquire = s.acquireSource
	return s
}

// AddSink registers a live output consumer. Not safe to call while a run is
// active; wire sinks at startup.
func (s *SweepService) AddSink(sink Sink) {
	s.sinks = append(s.sinks, sink)
}

// Start validates the config, claims the controller and launches the run on
// a background goroutine. Returns the run id immediately; progress is
// observed via Status, the sinks, or the run log.
func (s *SweepService) Start(req StartRequest) (string, error) {
	if err := ValidateConfig(req.Config); err != nil {
		return "", err
	}

	s.mu.Lock()
	if s.state != StateIdle {
		s.mu.Unlock()
		return "", ErrSweepBusy
	}

	runID := uuid.NewString()
	ctx, cancel := context.WithCancel(context.Background())
	s.state = StateConfiguring
	s.cancel = cancel
	s.runID = runID
	s.setpoints = linspace(req.Config.StartVoltage, req.Config.StopVoltage, req.Config.Points)
	s.samples = nil
	s.pointsFailed = 0
	s.mu.Unlock()

	simulated := req.Simulation || s.simByDefl
	go s.execute(ctx, runID, req.Config, simulated)
	return runID, nil
}

// Abort requests cooperative cancellation. The flag is checked at setpoint
// boundaries only, so an in-flight settle-and-measure finishes first;
// cancellation latency is bounded by one such interval.
func (s *SweepService) Abort() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateConfiguring && s.state != StateRunning {
		return ErrNoActiveSweep
	}
	s.cancel()
	s.log.Infow("sweep_abort_requested", "run_id", s.runID)
	return nil
}

// Status returns the current controller snapshot.
func (s *SweepService) Status() Progress {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := Progress{
		State:        s.state,
		RunID:        s.runID,
		TotalPoints:  len(s.setpoints),
		PointsDone:   len(s.samples),
		PointsFailed: s.pointsFailed,
	}
	if len(s.samples) > 0 {
		p.Samples = append([]models.Sample(nil), s.samples...)
	}
	return p
}

// linspace produces count values evenly spaced from start to stop,
// inclusive on both ends. With start == stop every setpoint is the same
// value and count is still respected.
func linspace(start, stop float64, count int) []float64 {
	out := make([]float64, count)
	step := (stop - start) / float64(count-1)
	for i := range out {
		out[i] = start + step*float64(i)
	}
	out[count-1] = stop // exact endpoint regardless of rounding
	return out
}

// execute runs the CONFIGURING -> RUNNING -> {COMPLETING, ABORTING} -> IDLE
// path for one run. Repository writes use a background context so a
// cancelled run is still persisted.
func (s *SweepService) execute(ctx context.Context, runID string, cfg models.SweepConfig, simulated bool) {
	source, cleanup, err := s.acquire(ctx, cfg, simulated)
	if err != nil {
		s.log.Errorw("sweep_config_failed", "run_id", runID, "err", err)
		s.appendEvent(models.SweepEvent{
			RunID:       runID,
			Type:        EventConfigFailed,
			Description: err.Error(),
		})
		s.toIdle()
		return
	}
	defer cleanup()

	s.setState(StateRunning)
	s.appendEvent(models.SweepEvent{
		RunID:       runID,
		Type:        EventRunStarted,
		Description: "sweep started",
		Metadata: map[string]any{
			"start_v":   cfg.StartVoltage,
			"stop_v":    cfg.StopVoltage,
			"points":    cfg.Points,
			"simulated": simulated,
		},
	})
	startedAt := time.Now().UTC()

	settle := time.Duration(cfg.SettleDelaySec * float64(time.Second))
	aborted := false

	s.mu.Lock()
	setpoints := s.setpoints
	s.mu.Unlock()

	for _, setpoint := range setpoints {
		// Cancellation is checked at setpoint boundaries only; an
		// in-flight settle-and-measure is never interrupted.
		if ctx.Err() != nil {
			aborted = true
			break
		}

		sample, err := source.DriveAndMeasure(setpoint, settle)
		if err != nil {
			// Recoverable by contract: the point is skipped, the run
			// continues with the next setpoint.
			s.log.Warnw("sweep_point_failed", "run_id", runID, "setpoint", setpoint, "err", err)
			s.mu.Lock()
			s.pointsFailed++
			s.mu.Unlock()
			s.appendEvent(models.SweepEvent{
				RunID:       runID,
				Type:        EventPointFailed,
				Description: err.Error(),
				Metadata:    map[string]any{"setpoint": setpoint},
			})
			continue
		}

		s.mu.Lock()
		s.samples = append(s.samples, sample)
		s.mu.Unlock()
		for _, sink := range s.sinks {
			sink.OnSample(sample)
		}
	}

	if aborted {
		s.setState(StateAborting)
	} else {
		s.setState(StateCompleting)
	}
	cleanup() // release the instrument before reporting; idempotent

	s.finish(runID, cfg, simulated, aborted, startedAt)
}

// acquireSource picks the measurement backend for the run. The returned
// cleanup releases the instrument and is safe to call more than once; in
// simulation it is a no-op.
func (s *SweepService) acquireSource(ctx context.Context, cfg models.SweepConfig, simulated bool) (pointSource, func(), error) {
	if simulated {
		rng := rand.New(rand.NewSource(time.Now().UnixNano()))
		return NewSimSource(cfg.StopVoltage, rng), func() {}, nil
	}

	dialCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	session, err := instrument.Connect(dialCtx, s.link, s.address, s.log)
	if err != nil {
		return nil, nil, err
	}
	if err := session.Configure(cfg); err != nil {
		session.Shutdown()
		return nil, nil, err
	}
	return session, session.Shutdown, nil
}

// finish computes the terminal result, persists it, notifies sinks and
// returns the controller to IDLE.
func (s *SweepService) finish(runID string, cfg models.SweepConfig, simulated, aborted bool, startedAt time.Time) {
	s.mu.Lock()
	samples := append([]models.Sample(nil), s.samples...)
	s.mu.Unlock()

	status := models.StatusCompleted
	if aborted {
		status = models.StatusAborted
	} else if len(samples) == 0 {
		status = models.StatusNoData
	}

	result := models.SweepResult{RunID: runID, Status: status, Samples: samples}
	if mpp, ok := FindMPP(samples); ok {
		result.MPP = &mpp
	}

	run := models.SweepRun{
		RunID:      runID,
		Config:     cfg,
		Status:     status,
		Samples:    samples,
		MPP:        result.MPP,
		Simulated:  simulated,
		StartedAt:  startedAt,
		FinishedAt: time.Now().UTC(),
	}
	if err := s.runRepo.Save(context.Background(), run); err != nil {
		s.log.Errorw("sweep_persist_failed", "run_id", runID, "err", err)
	}

	eventType := EventRunCompleted
	if aborted {
		eventType = EventRunAborted
	}
	s.appendEvent(models.SweepEvent{
		RunID:       runID,
		Type:        eventType,
		Description: "sweep finished with status " + status,
		Metadata: map[string]any{
			"samples":       len(samples),
			"points_failed": s.failedCount(),
		},
	})

	for _, sink := range s.sinks {
		sink.OnComplete(result)
	}

	s.log.Infow("sweep_finished",
		"run_id", runID,
		"status", status,
		"samples", len(samples),
		"points_failed", s.failedCount(),
	)
	s.toIdle()
}

func (s *SweepService) setState(state string) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}

func (s *SweepService) toIdle() {
	s.mu.Lock()
	s.state = StateIdle
	s.cancel = nil
	s.mu.Unlock()
}

func (s *SweepService) failedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pointsFailed
}

func (s *SweepService) appendEvent(e models.SweepEvent) {
	if err := s.eventRepo.Append(context.Background(), e); err != nil {
		s.log.Warnw("event_append_failed", "type", e.Type, "err", err)
	}
}
