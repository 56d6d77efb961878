package conversions

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sagebrookliving/sagebrook-backend/pkg/logger"
	"github.com/sagebrookliving/sagebrook-backend/pkg/metrics"
)

// Outcome is the combined report of one fan-out to both platforms.
type Outcome struct {
	Google DispatchResult `json:"google"`
	Meta   DispatchResult `json:"meta"`
}

// Dispatcher fans a payload out to both platform adapters concurrently. It
// never returns an error: each adapter's failure, including a panic, is
// captured into its own DispatchResult. Conversion reporting is a
// best-effort side channel to the lead-save transaction, never a gate on it.
type Dispatcher struct {
	google  Adapter
	meta    Adapter
	logger  *logger.Logger
	metrics *metrics.DispatchMetrics
}

// NewDispatcher wires the coordinator. Metrics may be nil.
func NewDispatcher(google, meta Adapter, logg *logger.Logger, m *metrics.DispatchMetrics) *Dispatcher {
	return &Dispatcher{
		google:  google,
		meta:    meta,
		logger:  logg,
		metrics: m,
	}
}

// Dispatch validates the payload, then invokes both adapters concurrently
// and awaits both results. Validation is the only failure allowed to
// surface as an error; it fires before either adapter is invoked.
func (d *Dispatcher) Dispatch(ctx context.Context, payload ConversionPayload) (Outcome, error) {
	if err := payload.Validate(); err != nil {
		return Outcome{}, err
	}

	var outcome Outcome
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		outcome.Google = d.run(ctx, d.google, payload)
	}()
	go func() {
		defer wg.Done()
		outcome.Meta = d.run(ctx, d.meta, payload)
	}()

	wg.Wait()

	d.logOutcome(ctx, payload, outcome)
	return outcome, nil
}

// run executes one adapter, converting panics into failed results so one
// platform can never take down the other or the caller.
func (d *Dispatcher) run(ctx context.Context, adapter Adapter, payload ConversionPayload) (result DispatchResult) {
	if adapter == nil {
		return failure("adapter not configured")
	}

	defer func() {
		if r := recover(); r != nil {
			result = failure(fmt.Sprintf("panic: %v", r))
			d.record(adapter.Name(), result, 0)
		}
	}()

	start := time.Now()
	result = adapter.Dispatch(ctx, payload)
	d.record(adapter.Name(), result, time.Since(start))
	return result
}

func (d *Dispatcher) record(platform string, result DispatchResult, took time.Duration) {
	if d.metrics == nil {
		return
	}
	if took > 0 {
		d.metrics.ObserveDuration(platform, took)
	}
	switch {
	case result.Success:
		d.metrics.IncSuccess(platform)
	case result.Error == ErrCredentialsNotConfigured:
		d.metrics.IncSkipped(platform)
	default:
		d.metrics.IncFailure(platform)
	}
}

func (d *Dispatcher) logOutcome(ctx context.Context, payload ConversionPayload, outcome Outcome) {
	if d.logger == nil {
		return
	}

	fields := payload.Redacted()
	fields["google_success"] = outcome.Google.Success
	fields["meta_success"] = outcome.Meta.Success
	if outcome.Google.Error != "" {
		fields["google_error"] = outcome.Google.Error
	}
	if outcome.Meta.Error != "" {
		fields["meta_error"] = outcome.Meta.Error
	}
	ctx = d.logger.WithFields(ctx, fields)

	switch {
	case transportFailure(outcome.Google) || transportFailure(outcome.Meta):
		d.logger.Warn(ctx, "conversion dispatch completed with transport failures")
	default:
		d.logger.Info(ctx, "conversion dispatch completed")
	}
}

func transportFailure(result DispatchResult) bool {
	return !result.Success && result.Error != ErrCredentialsNotConfigured
}
