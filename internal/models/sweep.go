package models

import "time"

// Sense wiring modes.
const (
	SenseTwoWire  = "TWO_WIRE"
	SenseFourWire = "FOUR_WIRE"
)

// Terminal selection on the SMU front panel.
const (
	TerminalFront = "FRONT"
	TerminalRear  = "REAR"
)

// Source functions.
const (
	SourceVoltage = "VOLTAGE"
	SourceCurrent = "CURRENT"
)

// Terminal statuses of a finished sweep.
const (
	StatusCompleted = "COMPLETED"
	StatusAborted   = "ABORTED"
	StatusNoData    = "COMPLETED_WITH_NO_DATA"
)

// SweepConfig describes one I-V sweep. It is passed by value into the
// controller and is immutable for the duration of the run.
type SweepConfig struct {
	StartVoltage      float64 `json:"start_voltage"`
	StopVoltage       float64 `json:"stop_voltage"`
	Points            int     `json:"points"`                       // >= 2
	SettleDelaySec    float64 `json:"settle_delay_sec"`             // >= 0
	CurrentCompliance float64 `json:"current_compliance"`           // > 0, amps
	VoltageCompliance float64 `json:"voltage_compliance,omitempty"` // volts, 0 = not set
	SenseMode         string  `json:"sense_mode"`                   // TWO_WIRE | FOUR_WIRE
	Terminal          string  `json:"terminal"`                     // FRONT | REAR
	SourceMode        string  `json:"source_mode"`                  // VOLTAGE | CURRENT
}

// Sample is one measured point. Power is always derived from voltage and
// current, never read from the instrument.
type Sample struct {
	Voltage float64 `json:"voltage"`
	Current float64 `json:"current"`
	Power   float64 `json:"power"`
}

// NewSample derives power from the measured pair.
func NewSample(voltage, current float64) Sample {
	return Sample{Voltage: voltage, Current: current, Power: voltage * current}
}

// SweepResult is the outcome of one run. Samples keep setpoint order and
// may be shorter than the setpoint sequence when points failed or the run
// was aborted. MPP is absent when Samples is empty.
type SweepResult struct {
	RunID   string   `json:"run_id"`
	Status  string   `json:"status"` // COMPLETED | ABORTED | COMPLETED_WITH_NO_DATA
	Samples []Sample `json:"samples"`
	MPP     *Sample  `json:"mpp,omitempty"`
}

// SweepRun is the persisted record of a run.
type SweepRun struct {
	RunID      string      `json:"run_id"`
	Config     SweepConfig `json:"config"`
	Status     string      `json:"status"`
	Samples    []Sample    `json:"samples"`
	MPP        *Sample     `json:"mpp,omitempty"`
	Simulated  bool        `json:"simulated"`
	StartedAt  time.Time   `json:"started_at"`
	FinishedAt time.Time   `json:"finished_at"`
}
