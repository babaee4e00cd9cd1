package service

import "mppt_sweep/internal/models"

// FindMPP returns the maximum power point of a sample sequence. Ties are
// broken by first occurrence in sequence order, so for equal powers the
// earliest setpoint wins. The second return value is false when the
// sequence is empty; there is never a default sample.
func FindMPP(samples []models.Sample) (models.Sample, bool) {
	if len(samples) == 0 {
		return models.Sample{}, false
	}
	best := samples[0]
	for _, s := range samples[1:] {
		if s.Power > best.Power {
			best = s
		}
	}
	return best, true
}
