package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestLoadMissingFileReturnsDefault(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.toml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadEmptyPathReturnsDefault(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadOverridesKeepingDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "karukan.toml")
	contents := `
[conversion]
strategy = "main"
num_candidates = 5

[learning]
enabled = false
`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, StrategyMain, cfg.Conversion.Strategy)
	assert.Equal(t, 5, cfg.Conversion.NumCandidates)
	assert.False(t, cfg.Learning.Enabled)
	// Untouched keys keep their default value.
	assert.Equal(t, 8, cfg.Conversion.ShortInputThreshold)
	assert.Equal(t, 10_000, cfg.Learning.MaxEntries)
}

func TestValidateRejectsOutOfRangeValues(t *testing.T) {
	cases := []struct {
		name string
		mut  func(*Config)
	}{
		{"bad strategy", func(c *Config) { c.Conversion.Strategy = "quantum" }},
		{"num_candidates too low", func(c *Config) { c.Conversion.NumCandidates = 0 }},
		{"num_candidates too high", func(c *Config) { c.Conversion.NumCandidates = 11 }},
		{"negative n_threads", func(c *Config) { c.Conversion.NThreads = -1 }},
		{"negative max_context_length", func(c *Config) { c.Conversion.MaxContextLength = -1 }},
		{"negative short_input_threshold", func(c *Config) { c.Conversion.ShortInputThreshold = -1 }},
		{"beam_width zero", func(c *Config) { c.Conversion.BeamWidth = 0 }},
		{"negative max_latency_ms", func(c *Config) { c.Conversion.MaxLatencyMs = -1 }},
		{"negative max_entries", func(c *Config) { c.Learning.MaxEntries = -1 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mut(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestLoadRejectsInvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.toml")
	require.NoError(t, os.WriteFile(path, []byte(`[conversion`), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}
