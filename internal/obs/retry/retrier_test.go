package retry

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errTransient = errors.New("transient")

func fastPolicy(name string, attempts int) Policy {
	return Policy{
		Name:        name,
		MaxAttempts: attempts,
		Backoff:     ExpoJitter{Base: time.Millisecond, Multiplier: 2, Max: 5 * time.Millisecond},
	}
}

func TestExpoJitter_Next(t *testing.T) {
	b := ExpoJitter{Base: 100 * time.Millisecond, Multiplier: 3, Max: time.Second}
	assert.Equal(t, 100*time.Millisecond, b.Next(0))
	assert.Equal(t, 300*time.Millisecond, b.Next(1))
	assert.Equal(t, 900*time.Millisecond, b.Next(2))
	assert.Equal(t, time.Second, b.Next(3))
	assert.Equal(t, 100*time.Millisecond, b.Next(-4))

	def := ExpoJitter{Base: 10 * time.Millisecond}
	assert.Equal(t, 40*time.Millisecond, def.Next(2))

	j := ExpoJitter{Base: 100 * time.Millisecond, Multiplier: 1, Jitter: 0.2}
	for i := 0; i < 50; i++ {
		d := j.Next(i)
		assert.GreaterOrEqual(t, d, 80*time.Millisecond)
		assert.LessOrEqual(t, d, 120*time.Millisecond)
	}
}

func TestExpoJitter_NextUncappedSaturates(t *testing.T) {
	b := ExpoJitter{Base: time.Second, Multiplier: 2}
	for _, attempt := range []int{40, 63, 64, 1000} {
		assert.Equal(t, time.Duration(math.MaxInt64), b.Next(attempt), "attempt %d", attempt)
	}
	assert.Equal(t, 8*time.Second, b.Next(3))

	j := ExpoJitter{Base: time.Second, Multiplier: 2, Jitter: 0.5}
	for i := 0; i < 20; i++ {
		assert.Positive(t, j.Next(100))
	}
}

func TestDo_SucceedsAfterTransientFailures(t *testing.T) {
	calls := 0
	err := Do(context.Background(), func() error {
		calls++
		if calls < 3 {
			return errTransient
		}
		return nil
	}, fastPolicy("test_success", 5))
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, 3.0, testutil.ToFloat64(retryAttempts.WithLabelValues("test_success")))
}

func TestDo_Exhausted(t *testing.T) {
	var seen []int
	var exhausted error
	p := fastPolicy("test_exhaust", 4)
	p.OnAttempt = func(i int, _ error) { seen = append(seen, i) }
	p.OnExhaust = func(err error) { exhausted = err }

	err := Do(context.Background(), func() error { return errTransient }, p)

	var re *Error
	require.ErrorAs(t, err, &re)
	assert.Equal(t, 4, re.Attempts)
	assert.Equal(t, "test_exhaust", re.Name)
	assert.ErrorIs(t, err, errTransient)
	assert.Equal(t, []int{0, 1, 2, 3}, seen)
	assert.ErrorIs(t, exhausted, errTransient)
	assert.Equal(t, 1.0, testutil.ToFloat64(retryExhausted.WithLabelValues("test_exhaust")))
}

func TestDo_NonRetryableStopsImmediately(t *testing.T) {
	fatal := errors.New("fatal")
	p := fastPolicy("test_fatal", 5)
	p.Retryable = func(err error) bool { return errors.Is(err, errTransient) }

	calls := 0
	err := Do(context.Background(), func() error { calls++; return fatal }, p)

	var re *Error
	require.ErrorAs(t, err, &re)
	assert.Equal(t, 1, re.Attempts)
	assert.Equal(t, 1, calls)
	assert.ErrorIs(t, err, fatal)
}

func TestDo_ContextCanceledDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	p := Policy{Name: "test_cancel", MaxAttempts: 10, Backoff: ExpoJitter{Base: time.Hour}}

	start := time.Now()
	err := Do(ctx, func() error { return errTransient }, p)

	assert.Less(t, time.Since(start), time.Second)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.ErrorIs(t, err, errTransient)
}

func TestPolicy_Budget(t *testing.T) {
	p := Policy{MaxAttempts: 3, Backoff: ExpoJitter{Base: 100 * time.Millisecond, Multiplier: 2, Max: time.Second}}
	// 3*1s + 100ms + 200ms
	assert.Equal(t, 3300*time.Millisecond, p.Budget(time.Second))
	assert.Equal(t, time.Second, Policy{}.Budget(time.Second))
}

func TestFromConfig(t *testing.T) {
	p := FromConfig("fetch", Config{MaxAttempts: 2, InitialInterval: time.Millisecond, Multiplier: 2}, nil, nil)
	assert.Equal(t, "fetch", p.Name)
	assert.Equal(t, 2, p.MaxAttempts)
	calls := 0
	err := Do(context.Background(), func() error { calls++; return errTransient }, p)
	require.Error(t, err)
	assert.Equal(t, 2, calls)
}
