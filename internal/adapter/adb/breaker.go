package adb

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/sony/gobreaker/v2"

	"towerbot/internal/domain"
	"towerbot/internal/infra/config"
	"towerbot/internal/infra/logger"
)

// Default breaker settings.
const (
	defaultBreakerMaxFailures uint32        = 3
	defaultBreakerTimeout     time.Duration = 10 * time.Second
)

// BreakerCapturer stops hammering a device whose captures keep failing. After
// MaxFailures consecutive failures it fails fast with ErrCaptureFailed until
// the breaker timeout elapses, then lets one probe capture through.
//
// It never retries: a failed capture is still returned to the caller.
type BreakerCapturer struct {
	inner   FrameSource
	breaker *gobreaker.CircuitBreaker[*domain.Frame]
	logger  *slog.Logger
}

var _ FrameSource = (*BreakerCapturer)(nil)

// NewBreakerCapturer wraps inner. Zero fields in cfg fall back to defaults.
func NewBreakerCapturer(inner FrameSource, cfg config.BreakerConfig, l *slog.Logger) *BreakerCapturer {
	l = logger.OrDiscard(l)
	maxFailures := cfg.MaxFailures
	if maxFailures == 0 {
		maxFailures = defaultBreakerMaxFailures
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultBreakerTimeout
	}

	cb := gobreaker.NewCircuitBreaker[*domain.Frame](gobreaker.Settings{
		Name:        "capture",
		MaxRequests: 1,
		Interval:    cfg.Interval,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			l.Warn("circuit breaker state change",
				"breaker", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
		IsSuccessful: func(err error) bool {
			// A caller giving up is not the device's fault.
			return err == nil || errors.Is(err, context.Canceled)
		},
	})

	return &BreakerCapturer{inner: inner, breaker: cb, logger: l}
}

// Capture implements FrameSource.
func (b *BreakerCapturer) Capture(ctx context.Context) (*domain.Frame, error) {
	frame, err := b.breaker.Execute(func() (*domain.Frame, error) {
		return b.inner.Capture(ctx)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, domain.NewSubSystemError(domain.SubSystemCapture, "BreakerCapturer.Capture",
			domain.ErrCaptureFailed, "circuit open: "+err.Error())
	}
	return frame, err
}

// State returns the current circuit breaker state.
func (b *BreakerCapturer) State() gobreaker.State {
	return b.breaker.State()
}

// NewFrameSource builds the capture stack described by cfg: a Capturer,
// wrapped in a BreakerCapturer when the breaker is enabled.
func NewFrameSource(serial domain.Serial, launcher Launcher, cfg config.CaptureConfig, opts ...Option) FrameSource {
	c := NewCapturer(serial, launcher, opts...)
	if !cfg.Breaker.Enabled {
		return c
	}
	return NewBreakerCapturer(c, cfg.Breaker, c.logger)
}
