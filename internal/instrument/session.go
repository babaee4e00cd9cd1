package instrument

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"mppt_sweep/internal/logger"
	"mppt_sweep/internal/models"
)

// Session owns one open connection to the SMU for the duration of a sweep.
// Connect acquires it, Shutdown releases it; the sweep controller guarantees
// Shutdown runs on every exit path.
type Session struct {
	conn       Conn
	log        *logger.Logger
	idn        string
	sourceMode string

	closeOnce sync.Once
}

// Connect opens the resource, resets the instrument and verifies it answers
// the identification query. Returns *ConnectionError on any failure.
func Connect(ctx context.Context, link Link, address string, log *logger.Logger) (*Session, error) {
	conn, err := link.Open(ctx, address)
	if err != nil {
		return nil, &ConnectionError{Address: address, Err: err}
	}

	if err := conn.Write("*RST"); err != nil {
		_ = conn.Close()
		return nil, &ConnectionError{Address: address, Err: fmt.Errorf("reset: %w", err)}
	}

	idn, err := conn.Query("*IDN?")
	if err != nil {
		_ = conn.Close()
		return nil, &ConnectionError{Address: address, Err: fmt.Errorf("identify: %w", err)}
	}

	log.Infow("instrument_connected", "address", address, "idn", idn)
	return &Session{conn: conn, log: log, idn: idn}, nil
}

// Identity returns the raw *IDN? response. It is surfaced, never parsed.
func (s *Session) Identity() string { return s.idn }

// Configure issues the setup commands in a fixed order. Output must not be
// enabled before the compliance limits are in place. On failure the
// instrument keeps whatever partial configuration was applied.
func (s *Session) Configure(cfg models.SweepConfig) error {
	steps := configCommands(cfg)
	for _, cmd := range steps {
		if err := s.conn.Write(cmd); err != nil {
			return &ConfigurationError{Step: cmd, Err: err}
		}
	}
	s.sourceMode = cfg.SourceMode
	s.log.Infow("instrument_configured",
		"source_mode", cfg.SourceMode,
		"sense_mode", cfg.SenseMode,
		"terminal", cfg.Terminal,
		"current_compliance", cfg.CurrentCompliance,
	)
	return nil
}

// configCommands builds the SCPI setup sequence. Order matters.
func configCommands(cfg models.SweepConfig) []string {
	var cmds []string

	if cfg.SourceMode == models.SourceCurrent {
		cmds = append(cmds, ":SOUR:FUNC CURR", `:SENS:FUNC "VOLT"`)
	} else {
		cmds = append(cmds, ":SOUR:FUNC VOLT", `:SENS:FUNC "CURR"`)
	}

	if cfg.SenseMode == models.SenseFourWire {
		cmds = append(cmds, ":SYST:RSEN ON")
	} else {
		cmds = append(cmds, ":SYST:RSEN OFF")
	}

	if cfg.Terminal == models.TerminalRear {
		cmds = append(cmds, ":ROUT:TERM REAR")
	} else {
		cmds = append(cmds, ":ROUT:TERM FRONT")
	}

	cmds = append(cmds, fmt.Sprintf(":SENS:CURR:PROT %g", cfg.CurrentCompliance))
	if cfg.VoltageCompliance > 0 {
		cmds = append(cmds, fmt.Sprintf(":SENS:VOLT:PROT %g", cfg.VoltageCompliance))
	}

	cmds = append(cmds, ":OUTP ON", sourceCommand(cfg.SourceMode, 0))
	return cmds
}

func sourceCommand(sourceMode string, value float64) string {
	if sourceMode == models.SourceCurrent {
		return fmt.Sprintf(":SOUR:CURR %g", value)
	}
	return fmt.Sprintf(":SOUR:VOLT %g", value)
}

// DriveAndMeasure writes the setpoint, waits the settle delay and takes a
// combined reading. The measured current is sign-inverted relative to the
// raw reading; this encodes the wiring convention of the reference setup
// and must not be changed.
func (s *Session) DriveAndMeasure(setpoint float64, settle time.Duration) (models.Sample, error) {
	if err := s.conn.Write(sourceCommand(s.sourceMode, setpoint)); err != nil {
		return models.Sample{}, &MeasurementError{Setpoint: setpoint, Err: fmt.Errorf("drive: %w", err)}
	}
	if settle > 0 {
		time.Sleep(settle)
	}

	raw, err := s.conn.Query(":READ?")
	if err != nil {
		return models.Sample{}, &MeasurementError{Setpoint: setpoint, Err: err}
	}

	voltage, current, err := parseReading(raw)
	if err != nil {
		return models.Sample{}, &MeasurementError{Setpoint: setpoint, Raw: raw, Err: err}
	}
	return models.NewSample(voltage, -current), nil
}

// parseReading extracts the two leading numeric fields from a
// comma-separated instrument response.
func parseReading(raw string) (voltage, current float64, err error) {
	fields := strings.Split(strings.TrimSpace(raw), ",")
	if len(fields) < 2 {
		return 0, 0, fmt.Errorf("expected two numeric fields, got %d", len(fields))
	}
	voltage, err = strconv.ParseFloat(strings.TrimSpace(fields[0]), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("parse voltage: %w", err)
	}
	current, err = strconv.ParseFloat(strings.TrimSpace(fields[1]), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("parse current: %w", err)
	}
	return voltage, current, nil
}

// Shutdown zeroes the source, disables the output and releases the
// connection. Best effort: every failure is logged and swallowed, and
// repeated calls are no-ops.
func (s *Session) Shutdown() {
	s.closeOnce.Do(func() {
		if err := s.conn.Write(sourceCommand(s.sourceMode, 0)); err != nil {
			s.log.Warnw("shutdown_zero_source_failed", "err", err)
		}
		if err := s.conn.Write(":OUTP OFF"); err != nil {
			s.log.Warnw("shutdown_output_off_failed", "err", err)
		}
		if err := s.conn.Close(); err != nil {
			s.log.Warnw("shutdown_close_failed", "err", err)
		}
		s.log.Infow("instrument_released")
	})
}
