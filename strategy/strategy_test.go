package strategy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/karukan-ime/karukan/config"
	"github.com/karukan-ime/karukan/neural"
)

func baseConfig() config.Conversion {
	c := config.Default().Conversion
	c.ShortInputThreshold = 8
	c.BeamWidth = 4
	c.MaxLatencyMs = 50
	return c
}

func TestLightModeAlwaysLight(t *testing.T) {
	c := baseConfig()
	c.Strategy = config.StrategyLight
	s := New(c)
	d := s.Choose(1)
	assert.Equal(t, neural.Light, d.UseBackend)
	assert.Equal(t, 1, d.BeamWidth)
}

func TestMainModeAlwaysMain(t *testing.T) {
	c := baseConfig()
	c.Strategy = config.StrategyMain
	s := New(c)
	d := s.Choose(100)
	assert.Equal(t, neural.Main, d.UseBackend)
	assert.Equal(t, 1, d.BeamWidth)
}

func TestAdaptiveShortInputUsesMainWithBeam(t *testing.T) {
	s := New(baseConfig())
	d := s.Choose(3)
	assert.Equal(t, neural.Main, d.UseBackend)
	assert.Equal(t, 4, d.BeamWidth)
}

func TestAdaptiveLongInputUsesLight(t *testing.T) {
	s := New(baseConfig())
	d := s.Choose(50)
	assert.Equal(t, neural.Light, d.UseBackend)
}

func TestAdaptiveFallbackAfterLatencyMiss(t *testing.T) {
	s := New(baseConfig())
	s.RecordLatency(neural.Main, 80*time.Millisecond)
	assert.True(t, s.MainOverBudget())

	d := s.Choose(1) // even a short input downgrades while over budget
	assert.Equal(t, neural.Light, d.UseBackend)

	s.RecordLatency(neural.Main, 10*time.Millisecond)
	assert.False(t, s.MainOverBudget())

	d = s.Choose(1)
	assert.Equal(t, neural.Main, d.UseBackend)
}

func TestAdaptiveReprobesMainAfterCooldown(t *testing.T) {
	s := New(baseConfig())
	s.RecordLatency(neural.Main, 80*time.Millisecond)
	require.True(t, s.MainOverBudget())

	// Every call the real engine loop makes passes whatever Choose just
	// returned back into RecordLatency, so a downgraded strategy can only
	// recover if Choose eventually hands out Main again on its own.
	var d Decision
	for i := 0; i < recoveryProbeInterval-1; i++ {
		d = s.Choose(1)
		assert.Equal(t, neural.Light, d.UseBackend, "call %d should still be downgraded", i)
	}

	d = s.Choose(1)
	require.Equal(t, neural.Main, d.UseBackend, "cooldown should have elapsed by now")

	s.RecordLatency(d.UseBackend, 10*time.Millisecond)
	assert.False(t, s.MainOverBudget())

	d = s.Choose(1)
	assert.Equal(t, neural.Main, d.UseBackend)
}

func TestAdaptiveReprobeStaysDowngradedIfStillSlow(t *testing.T) {
	s := New(baseConfig())
	s.RecordLatency(neural.Main, 80*time.Millisecond)

	for i := 0; i < recoveryProbeInterval-1; i++ {
		s.Choose(1)
	}
	d := s.Choose(1)
	require.Equal(t, neural.Main, d.UseBackend)

	s.RecordLatency(d.UseBackend, 90*time.Millisecond)
	assert.True(t, s.MainOverBudget())

	d = s.Choose(1)
	assert.Equal(t, neural.Light, d.UseBackend)
}

func TestLatencyDisabledNeverDowngrades(t *testing.T) {
	c := baseConfig()
	c.MaxLatencyMs = 0
	s := New(c)
	s.RecordLatency(neural.Main, 500*time.Millisecond)
	assert.False(t, s.MainOverBudget())
}

func TestLightBackendLatencyIgnored(t *testing.T) {
	s := New(baseConfig())
	s.RecordLatency(neural.Light, 500*time.Millisecond)
	assert.False(t, s.MainOverBudget())
}

func TestEstimateTokensFallback(t *testing.T) {
	assert.Equal(t, 2, EstimateTokens("カン", 0, false))
	assert.Equal(t, 0, EstimateTokens("", 0, false))
	assert.Equal(t, 7, EstimateTokens("", 7, true))
}
