package transport

import (
	"context"
	"errors"
	"io"
	"math"
	"math/rand"
	"time"

	logs "github.com/danmuck/fwsettings/internal/logging"
)

var ErrConnectAttemptsExhausted = errors.New("transport: connect attempts exhausted")

// BackoffConfig defines reconnect backoff behavior.
type BackoffConfig struct {
	InitialDelay time.Duration
	Multiplier   float64
	MaxDelay     time.Duration
	Jitter       bool
}

func DefaultBackoffConfig() BackoffConfig {
	return BackoffConfig{
		InitialDelay: 250 * time.Millisecond,
		Multiplier:   2.0,
		MaxDelay:     5 * time.Second,
		Jitter:       true,
	}
}

// NextBackoffDelay returns the retry delay for attempt N (1-based).
func NextBackoffDelay(cfg BackoffConfig, attempt int, rng *rand.Rand) time.Duration {
	if attempt <= 1 {
		return cfg.InitialDelay
	}
	if cfg.InitialDelay <= 0 {
		return 0
	}
	if cfg.Multiplier < 1.0 {
		cfg.Multiplier = 1.0
	}
	delay := float64(cfg.InitialDelay) * math.Pow(cfg.Multiplier, float64(attempt-1))
	if cfg.MaxDelay > 0 && delay > float64(cfg.MaxDelay) {
		delay = float64(cfg.MaxDelay)
	}
	if cfg.Jitter {
		f := 0.5
		if rng != nil {
			f = 0.5 + rng.Float64()
		}
		delay = delay * f
	}
	return time.Duration(delay)
}

// Opener opens the underlying byte stream of a link.
type Opener func(ctx context.Context) (io.ReadWriteCloser, error)

// Connect calls open until it succeeds, ctx ends, or maxAttempts failures
// accumulate. maxAttempts <= 0 retries until ctx ends.
func Connect(ctx context.Context, open Opener, cfg BackoffConfig, maxAttempts int) (io.ReadWriteCloser, error) {
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	var lastErr error
	for attempt := 1; maxAttempts <= 0 || attempt <= maxAttempts; attempt++ {
		rwc, err := open(ctx)
		if err == nil {
			return rwc, nil
		}
		lastErr = err
		delay := NextBackoffDelay(cfg, attempt, rng)
		logs.Warnf("transport.Connect failed attempt=%d retry_in=%s err=%v", attempt, delay, err)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
	return nil, errors.Join(ErrConnectAttemptsExhausted, lastErr)
}
