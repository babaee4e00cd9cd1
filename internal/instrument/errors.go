package instrument

import "fmt"

// ConnectionError means the SMU could not be opened or did not answer the
// identification query in time. Fatal to a run: no points are taken.
type ConnectionError struct {
	Address string
	Err     error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connect to %s: %v", e.Address, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// ConfigurationError means one of the setup commands was rejected. Fatal to
// a run. The instrument is left partially configured; there is no rollback.
type ConfigurationError struct {
	Step string // the SCPI command that failed
	Err  error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configure step %q: %v", e.Step, e.Err)
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// MeasurementError is a per-point failure: the read timed out or the
// response could not be parsed into two numeric fields. Recoverable — the
// sweep skips the point and continues.
type MeasurementError struct {
	Setpoint float64
	Raw      string // raw instrument response, if any
	Err      error
}

func (e *MeasurementError) Error() string {
	if e.Raw != "" {
		return fmt.Sprintf("measure at %g: %v (raw %q)", e.Setpoint, e.Err, e.Raw)
	}
	return fmt.Sprintf("measure at %g: %v", e.Setpoint, e.Err)
}

func (e *MeasurementError) Unwrap() error { return e.Err }
