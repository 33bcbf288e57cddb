// Package strategy implements the adaptive backend-selection policy of
// spec §4.I: it generalizes the teacher's `llm.ProviderFactory` — a
// stateless, one-shot dispatch by model/provider name
// (`GetProvider(ctx, model, providerName)`) — into a *stateful* choice that
// additionally remembers the latency of the last main-backend call, since
// §4.I's downgrade-then-recover rule has no stateless analogue in the
// teacher.
package strategy

import (
	"time"

	"github.com/karukan-ime/karukan/config"
	"github.com/karukan-ime/karukan/neural"
)

// recoveryProbeInterval sets how often a downgraded adaptive strategy
// re-probes Main: the first recoveryProbeInterval-1 calls after a miss go to
// Light and the next one goes to Main (§4.I "recover after one
// good call" — a call the strategy itself has to schedule, since Choose is
// the only place that ever returns Main and RecordLatency only ever sees
// whatever Choose just handed out).
const recoveryProbeInterval = 5

// Strategy chooses Main vs. Light per conversion call and tracks the one
// bit of history §4.I needs: whether the last main-backend call missed its
// latency budget.
type Strategy struct {
	mode                config.Strategy
	shortInputThreshold int
	beamWidth           int
	maxLatencyMs        int
	mainOverBudget      bool
	callsSinceProbe     int
}

// New builds a Strategy from the relevant slice of Config (§3's
// `strategy`, `short_input_threshold`, `beam_width`, `max_latency_ms`).
func New(cfg config.Conversion) *Strategy {
	return &Strategy{
		mode:                cfg.Strategy,
		shortInputThreshold: cfg.ShortInputThreshold,
		beamWidth:           cfg.BeamWidth,
		maxLatencyMs:        cfg.MaxLatencyMs,
	}
}

// Decision is which backend to call and with what beam width, chosen
// before the call is made.
type Decision struct {
	UseBackend neural.Variant
	BeamWidth  int
}

// Choose decides which backend a conversion for katakana input should use,
// given an estimate of its token count (§4.I "Token count is estimated via
// the backend's tokenizer or... UTF-8 byte length / 3").
func (s *Strategy) Choose(tokenCount int) Decision {
	switch s.mode {
	case config.StrategyLight:
		return Decision{UseBackend: neural.Light, BeamWidth: 1}
	case config.StrategyMain:
		return Decision{UseBackend: neural.Main, BeamWidth: 1}
	default: // adaptive
		if s.mainOverBudget {
			s.callsSinceProbe++
			if s.callsSinceProbe < recoveryProbeInterval {
				return Decision{UseBackend: neural.Light, BeamWidth: 1}
			}
			// Cooldown elapsed: probe Main again. RecordLatency will
			// re-downgrade if it's still over budget, or clear
			// mainOverBudget if it recovered.
			s.callsSinceProbe = 0
			return Decision{UseBackend: neural.Main, BeamWidth: 1}
		}
		if tokenCount <= s.shortInputThreshold {
			return Decision{UseBackend: neural.Main, BeamWidth: s.beamWidth}
		}
		return Decision{UseBackend: neural.Light, BeamWidth: 1}
	}
}

// EstimateTokens implements §4.I's fallback estimator: a real tokenizer
// result if the backend provided one, otherwise UTF-8 byte length / 3 as a
// lower bound.
func EstimateTokens(katakana string, real int, fromTokenizer bool) int {
	if fromTokenizer {
		return real
	}
	n := len(katakana) / 3
	if n < 1 && katakana != "" {
		n = 1
	}
	return n
}

// RecordLatency updates the downgrade/recover state after a main-backend
// call: a call at or under budget (or with max_latency_ms disabled)
// recovers future calls to Main; a call over budget downgrades the next
// adaptive call to Light (§4.I).
func (s *Strategy) RecordLatency(variant neural.Variant, d time.Duration) {
	if variant != neural.Main || s.maxLatencyMs <= 0 {
		return
	}
	s.mainOverBudget = d.Milliseconds() > int64(s.maxLatencyMs)
	s.callsSinceProbe = 0
}

// MainOverBudget reports the current downgrade state, for diagnostics and
// tests.
func (s *Strategy) MainOverBudget() bool { return s.mainOverBudget }
