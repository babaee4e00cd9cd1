package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mppt_sweep/internal/models"
)

func TestFindMPP_ReturnsMaximumPower(t *testing.T) {
	samples := []models.Sample{
		models.NewSample(0, 0.50),
		models.NewSample(1, 0.49),
		models.NewSample(2, 0.45),
		models.NewSample(3, 0.30),
		models.NewSample(4, 0.0),
	}
	mpp, ok := FindMPP(samples)
	require.True(t, ok)
	assert.Equal(t, 2.0, mpp.Voltage)
	assert.Equal(t, 0.45, mpp.Current)
}

func TestFindMPP_TieBrokenByEarliestPosition(t *testing.T) {
	// both middle samples carry power 1.0; the first of the two must win
	samples := []models.Sample{
		models.NewSample(1, 0.5),
		models.NewSample(2, 0.5),
		models.NewSample(4, 0.25),
		models.NewSample(5, 0.1),
	}
	mpp, ok := FindMPP(samples)
	require.True(t, ok)
	assert.Equal(t, 2.0, mpp.Voltage, "earliest max-power sample wins the tie")
}

func TestFindMPP_EmptySignalsAbsence(t *testing.T) {
	mpp, ok := FindMPP(nil)
	assert.False(t, ok)
	assert.Zero(t, mpp)

	mpp, ok = FindMPP([]models.Sample{})
	assert.False(t, ok)
	assert.Zero(t, mpp)
}
