package service

import (
	"math"
	"math/rand"
	"time"

	"mppt_sweep/internal/models"
)

// Single-diode approximation of a PV cell under illumination.
const (
	simShortCircuitA   = 0.5  // Isc
	simOpenCircuitFrac = 0.8  // Voc as a fraction of the sweep stop voltage
	simThermalVoltage  = 0.6  // Vt
	simNoiseStdDev     = 0.01 // zero-mean Gaussian current noise
)

// SimSource produces physically plausible samples when no instrument is
// attached. It satisfies the same drive-and-measure contract as a real
// session, so the sweep controller cannot tell them apart.
type SimSource struct {
	stopVoltage float64
	rng         *rand.Rand // nil disables noise
}

// NewSimSource builds a source for one run. The stop voltage fixes the
// simulated open-circuit voltage at 0.8*stop. Pass a nil rng to disable
// noise for deterministic output.
func NewSimSource(stopVoltage float64, rng *rand.Rand) *SimSource {
	return &SimSource{stopVoltage: stopVoltage, rng: rng}
}

// DriveAndMeasure answers with the model current at the setpoint. A
// simulated settle of one tenth of the real delay keeps timing behavior
// representative without slowing simulated runs down.
func (s *SimSource) DriveAndMeasure(setpoint float64, settle time.Duration) (models.Sample, error) {
	if settle > 0 {
		time.Sleep(settle / 10)
	}
	var noise float64
	if s.rng != nil {
		noise = s.rng.NormFloat64() * simNoiseStdDev
	}
	current := SimulateCurrent(setpoint, s.stopVoltage, noise)
	return models.NewSample(setpoint, current), nil
}

// SimulateCurrent is the pure diode model: I = Isc*(1 - exp((V-Voc)/Vt)),
// zero at and above Voc, clamped to be non-negative after noise.
func SimulateCurrent(voltage, stopVoltage, noise float64) float64 {
	voc := stopVoltage * simOpenCircuitFrac
	if voltage >= voc {
		return 0
	}
	current := simShortCircuitA*(1-math.Exp((voltage-voc)/simThermalVoltage)) + noise
	if current < 0 {
		return 0
	}
	return current
}
