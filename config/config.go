// Package config parses karukan's TOML configuration file (spec §6) into
// the flat Config struct enumerated in §3, applying defaults and
// validation before the engine is constructed. Config loading is itself an
// ambient concern the engine owns (§1 scopes out the *host's* config
// loading, not the engine's own file format).
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/karukan-ime/karukan/errs"
)

// Strategy selects which neural backend the adaptive strategy package
// dispatches to (§4.I).
type Strategy string

const (
	StrategyAdaptive Strategy = "adaptive"
	StrategyLight    Strategy = "light"
	StrategyMain     Strategy = "main"
)

// Conversion holds the `[conversion]` table of §6.
type Conversion struct {
	Strategy            Strategy `toml:"strategy"`
	NumCandidates       int      `toml:"num_candidates"`
	NThreads            int      `toml:"n_threads"`
	Model               string   `toml:"model"`
	LightModel          string   `toml:"light_model"`
	UseContext          bool     `toml:"use_context"`
	MaxContextLength    int      `toml:"max_context_length"`
	ShortInputThreshold int      `toml:"short_input_threshold"`
	BeamWidth           int      `toml:"beam_width"`
	MaxLatencyMs        int      `toml:"max_latency_ms"`
	DictPath            string   `toml:"dict_path"`
}

// Learning holds the `[learning]` table of §6.
type Learning struct {
	Enabled    bool `toml:"enabled"`
	MaxEntries int  `toml:"max_entries"`
}

// Config is the flat, validated configuration struct of §3, handed to the
// engine at construction.
type Config struct {
	Conversion Conversion `toml:"conversion"`
	Learning   Learning   `toml:"learning"`
}

// Default returns the configuration the engine falls back to when no file
// is provided, or when individual keys are absent from a loaded file.
func Default() Config {
	return Config{
		Conversion: Conversion{
			Strategy:            StrategyAdaptive,
			NumCandidates:       9,
			NThreads:            0,
			UseContext:          true,
			MaxContextLength:    64,
			ShortInputThreshold: 8,
			BeamWidth:           4,
			MaxLatencyMs:        0,
		},
		Learning: Learning{
			Enabled:    true,
			MaxEntries: 10_000,
		},
	}
}

// Load reads and validates a TOML config file at path, filling unset
// fields from Default. A missing file is not an error: Default() is
// returned unchanged, matching §7's "graceful degradation" propagation
// policy for initialization failures (the host still sees init() fail,
// per §7, via the returned error, and falls back to the banner it shows
// the user — the zero-value-safe Config is what the engine runs with
// while that banner is up).
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}

	// Start from the defaults so keys absent from the file keep their
	// default value rather than the TOML zero value.
	raw := cfg
	if _, err := toml.DecodeFile(path, &raw); err != nil {
		return cfg, errs.New(errs.Config, "config.Load", err)
	}

	if err := raw.Validate(); err != nil {
		return cfg, errs.New(errs.Config, "config.Load", err)
	}
	return raw, nil
}

// Validate checks the enumerated ranges of §3 (ConfigError per §7:
// unparsable TOML or out-of-range value).
func (c Config) Validate() error {
	switch c.Conversion.Strategy {
	case StrategyAdaptive, StrategyLight, StrategyMain:
	default:
		return fmt.Errorf("conversion.strategy: invalid value %q", c.Conversion.Strategy)
	}
	if c.Conversion.NumCandidates < 1 || c.Conversion.NumCandidates > 10 {
		return fmt.Errorf("conversion.num_candidates: %d out of range [1,10]", c.Conversion.NumCandidates)
	}
	if c.Conversion.NThreads < 0 {
		return fmt.Errorf("conversion.n_threads: %d must be >= 0", c.Conversion.NThreads)
	}
	if c.Conversion.MaxContextLength < 0 {
		return fmt.Errorf("conversion.max_context_length: %d must be >= 0", c.Conversion.MaxContextLength)
	}
	if c.Conversion.ShortInputThreshold < 0 {
		return fmt.Errorf("conversion.short_input_threshold: %d must be >= 0", c.Conversion.ShortInputThreshold)
	}
	if c.Conversion.BeamWidth < 1 {
		return fmt.Errorf("conversion.beam_width: %d must be >= 1", c.Conversion.BeamWidth)
	}
	if c.Conversion.MaxLatencyMs < 0 {
		return fmt.Errorf("conversion.max_latency_ms: %d must be >= 0", c.Conversion.MaxLatencyMs)
	}
	if c.Learning.MaxEntries < 0 {
		return fmt.Errorf("learning.max_entries: %d must be >= 0", c.Learning.MaxEntries)
	}
	return nil
}
