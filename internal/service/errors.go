package service

import (
	"errors"
	"fmt"

	"mppt_sweep/internal/models"
)

// ErrSweepBusy rejects a Start while another run is in progress. The caller
// must wait for the active run to finish or abort it.
var ErrSweepBusy = errors.New("a sweep is already in progress")

// ErrNoActiveSweep rejects an Abort when nothing is running.
var ErrNoActiveSweep = errors.New("no sweep in progress")

// InvalidConfigError is raised before any instrument traffic when the sweep
// configuration violates its invariants.
type InvalidConfigError struct {
	Reason string
}

func (e *InvalidConfigError) Error() string {
	return fmt.Sprintf("invalid sweep config: %s", e.Reason)
}

// ValidateConfig checks the SweepConfig invariants. It normalizes nothing;
// a config either passes as given or is rejected.
func ValidateConfig(cfg models.SweepConfig) error {
	if cfg.Points < 2 {
		return &InvalidConfigError{Reason: fmt.Sprintf("points must be >= 2, got %d", cfg.Points)}
	}
	if cfg.SettleDelaySec < 0 {
		return &InvalidConfigError{Reason: "settle delay must be >= 0"}
	}
	if cfg.CurrentCompliance <= 0 {
		return &InvalidConfigError{Reason: "current compliance must be > 0"}
	}
	switch cfg.SenseMode {
	case models.SenseTwoWire, models.SenseFourWire:
	default:
		return &InvalidConfigError{Reason: fmt.Sprintf("unknown sense mode %q", cfg.SenseMode)}
	}
	switch cfg.Terminal {
	case models.TerminalFront, models.TerminalRear:
	default:
		return &InvalidConfigError{Reason: fmt.Sprintf("unknown terminal %q", cfg.Terminal)}
	}
	switch cfg.SourceMode {
	case models.SourceVoltage, models.SourceCurrent:
	default:
		return &InvalidConfigError{Reason: fmt.Sprintf("unknown source mode %q", cfg.SourceMode)}
	}
	return nil
}
