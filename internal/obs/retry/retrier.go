package retry

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

type Backoff interface {
	Next(attempt int) time.Duration
}

// ExpoJitter waits Base*Multiplier^attempt, capped at Max, scaled by +/-Jitter.
type ExpoJitter struct {
	Base       time.Duration
	Multiplier float64
	Max        time.Duration
	Jitter     float64
}

func (b ExpoJitter) Next(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	mult := b.Multiplier
	if mult < 1 {
		mult = 2
	}
	d := float64(b.Base) * math.Pow(mult, float64(attempt))
	if b.Max > 0 && d > float64(b.Max) {
		d = float64(b.Max)
	}
	if b.Jitter > 0 {
		j := 1 + (rand.Float64()*2-1)*b.Jitter
		d *= j
	}
	// float64(math.MaxInt64) rounds up, so >= keeps the conversion in range.
	if d >= float64(math.MaxInt64) {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(d)
}

type Policy struct {
	Name        string
	MaxAttempts int
	Backoff     Backoff
	Retryable   func(error) bool
	OnAttempt   func(attempt int, err error)
	OnExhaust   func(lastErr error)
}

// Budget is the worst-case wall time of one Do call when every attempt
// takes perAttempt.
func (p Policy) Budget(perAttempt time.Duration) time.Duration {
	attempts := p.attempts()
	total := time.Duration(attempts) * perAttempt
	if p.Backoff == nil {
		return total
	}
	jitter := 0.0
	if ej, ok := p.Backoff.(ExpoJitter); ok {
		jitter = ej.Jitter
	}
	for i := 0; i < attempts-1; i++ {
		total += time.Duration(float64(p.Backoff.Next(i)) * (1 + jitter))
	}
	return total
}

func (p Policy) attempts() int {
	if p.MaxAttempts <= 0 {
		return 1
	}
	return p.MaxAttempts
}

// Error is returned by Do whenever fn did not eventually succeed.
type Error struct {
	Name     string
	Attempts int
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: failed after %d attempt(s): %v", e.Name, e.Attempts, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

var (
	retryAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "retry_attempts_total",
		Help: "Total retry attempts (including final).",
	}, []string{"name"})
	retryExhausted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "retry_exhausted_total",
		Help: "Operations that exhausted all retries.",
	}, []string{"name"})
	retryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "retry_duration_seconds",
		Help:    "Total time spent inside retry.Do (success or fail).",
		Buckets: prometheus.DefBuckets,
	}, []string{"name"})
)

func Do(ctx context.Context, fn func() error, p Policy) error {
	start := time.Now()
	name := p.Name
	if name == "" {
		name = "default"
	}
	defer func() { retryLatency.WithLabelValues(name).Observe(time.Since(start).Seconds()) }()

	attempts := p.attempts()

	isRetryable := p.Retryable
	if isRetryable == nil {
		isRetryable = func(err error) bool { return err != nil }
	}

	var err error
	span := trace.SpanFromContext(ctx)

	for i := 0; i < attempts; i++ {
		err = fn()
		retryAttempts.WithLabelValues(name).Inc()
		if err == nil {
			return nil
		}
		if p.OnAttempt != nil {
			p.OnAttempt(i, err)
		}
		if span.IsRecording() {
			span.AddEvent("retry.attempt", trace.WithAttributes(
				attribute.String("retry.name", name),
				attribute.Int("retry.attempt", i+1),
				attribute.String("retry.error", err.Error()),
			))
		}
		if !isRetryable(err) || i == attempts-1 {
			retryExhausted.WithLabelValues(name).Inc()
			if p.OnExhaust != nil {
				p.OnExhaust(err)
			}
			return &Error{Name: name, Attempts: i + 1, Err: err}
		}
		var wait time.Duration
		if p.Backoff != nil {
			wait = p.Backoff.Next(i)
		}
		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return &Error{Name: name, Attempts: i + 1, Err: fmt.Errorf("%w (last error: %w)", ctx.Err(), err)}
		case <-t.C:
		}
	}
	return &Error{Name: name, Attempts: attempts, Err: err}
}
