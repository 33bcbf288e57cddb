// Package metrics wraps the process-local Sentry spans karukan uses to
// expose the two latencies the host can query (§5 "timing measurement"):
// last_conversion_ms and last_process_key_ms. No DSN is configured, so
// nothing ever leaves the process — these are timing spans, not telemetry.
package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"
)

// Timing holds the two monotonic-clock deltas the host polls after each
// key event.
type Timing struct {
	enabled          bool
	lastConversionMs int64
	lastProcessKeyMs int64
}

// New returns a Timing instrumented with Sentry spans. enabled controls
// whether spans are actually started; when false, RecordConversion and
// RecordProcessKey still update the plain latency fields but skip Sentry.
func New(enabled bool) *Timing {
	return &Timing{enabled: enabled}
}

// RecordConversion runs fn (a backend convert or candidate merge call),
// times it, stores the duration as LastConversionMs, and wraps it in a
// Sentry span tagged with the backend name and candidate count.
func (m *Timing) RecordConversion(ctx context.Context, backend string, fn func() (candidateCount int, err error)) error {
	start := time.Now()

	var span *sentry.Span
	if m.enabled {
		span = sentry.StartSpan(ctx, "karukan.conversion")
		span.SetTag("backend", backend)
		defer span.Finish()
	}

	count, err := fn()
	elapsed := time.Since(start)
	m.lastConversionMs = elapsed.Milliseconds()

	if span != nil {
		span.SetData("duration_ms", elapsed.Milliseconds())
		span.SetData("candidate_count", count)
		span.SetTag("success", fmt.Sprintf("%t", err == nil))
		if err != nil {
			span.Status = sentry.SpanStatusInternalError
		} else {
			span.Status = sentry.SpanStatusOK
		}
		span.Description = fmt.Sprintf("conversion via %s", backend)
	}
	return err
}

// RecordProcessKey times one end-to-end ProcessKey call.
func (m *Timing) RecordProcessKey(ctx context.Context, fn func()) {
	start := time.Now()

	var span *sentry.Span
	if m.enabled {
		span = sentry.StartSpan(ctx, "karukan.process_key")
		defer span.Finish()
	}

	fn()
	elapsed := time.Since(start)
	m.lastProcessKeyMs = elapsed.Milliseconds()

	if span != nil {
		span.SetData("duration_ms", elapsed.Milliseconds())
		span.Status = sentry.SpanStatusOK
	}
}

// LastConversionMs returns the most recent conversion-only duration.
func (m *Timing) LastConversionMs() int64 { return m.lastConversionMs }

// LastProcessKeyMs returns the most recent end-to-end ProcessKey duration.
func (m *Timing) LastProcessKeyMs() int64 { return m.lastProcessKeyMs }
