package retry

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

type Config struct {
	MaxAttempts     int           `mapstructure:"max_attempts"`
	InitialInterval time.Duration `mapstructure:"initial_interval"`
	MaxInterval     time.Duration `mapstructure:"max_interval"`
	Multiplier      float64       `mapstructure:"multiplier"`
	Jitter          float64       `mapstructure:"jitter"`
}

// FromConfig builds a named policy that logs every failed attempt.
func FromConfig(name string, c Config, retryable func(error) bool, log *zap.Logger) Policy {
	return Policy{
		Name:        name,
		MaxAttempts: c.MaxAttempts,
		Backoff: ExpoJitter{
			Base:       c.InitialInterval,
			Multiplier: c.Multiplier,
			Max:        c.MaxInterval,
			Jitter:     c.Jitter,
		},
		Retryable: retryable,
		OnAttempt: func(i int, err error) {
			if log != nil {
				log.Warn("retry attempt failed", zap.String("op", name), zap.Int("attempt", i+1), zap.Error(err))
			}
		},
		OnExhaust: func(err error) {
			if log != nil && !errors.Is(err, context.Canceled) {
				log.Error("retries exhausted", zap.String("op", name), zap.Error(err))
			}
		},
	}
}
