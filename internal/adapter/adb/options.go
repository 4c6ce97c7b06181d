package adb

import (
	"context"
	"log/slog"
	"time"

	"towerbot/internal/domain"
	"towerbot/internal/infra/config"
	"towerbot/internal/infra/logger"
)

// Default timings. The settle delays stand in for an acknowledgement the
// device's input queue does not provide.
const (
	DefaultSettleDelay    = 100 * time.Millisecond
	DefaultCloseDelay     = 250 * time.Millisecond
	DefaultConnectTimeout = 5 * time.Second
	DefaultCaptureTimeout = 10 * time.Second
)

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// settings is shared by Channel and Capturer.
type settings struct {
	logger         *slog.Logger
	bus            domain.EventBus
	settleDelay    time.Duration
	closeDelay     time.Duration
	connectTimeout time.Duration
	captureTimeout time.Duration
	sleep          SleepFunc
}

func newSettings(opts []Option) settings {
	s := settings{
		settleDelay:    DefaultSettleDelay,
		closeDelay:     DefaultCloseDelay,
		connectTimeout: DefaultConnectTimeout,
		captureTimeout: DefaultCaptureTimeout,
		sleep:          sleepContext,
	}
	for _, opt := range opts {
		opt(&s)
	}
	s.logger = logger.OrDiscard(s.logger)
	return s
}

func (s *settings) publish(ctx context.Context, typ domain.EventType, sessionID string, payload any) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(ctx, domain.NewEvent(typ, sessionID, payload))
}

// Option configures a Channel or Capturer.
type Option func(*settings)

// WithLogger sets a custom slog.Logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *settings) { s.logger = l }
}

// WithEventBus publishes device events on bus.
func WithEventBus(bus domain.EventBus) Option {
	return func(s *settings) { s.bus = bus }
}

// WithSettleDelay sets the pause after every tap and capture.
func WithSettleDelay(d time.Duration) Option {
	return func(s *settings) { s.settleDelay = d }
}

// WithCloseDelay sets the pause before a session is torn down.
func WithCloseDelay(d time.Duration) Option {
	return func(s *settings) { s.closeDelay = d }
}

// WithConnectTimeout bounds the best-effort connect handshake.
func WithConnectTimeout(d time.Duration) Option {
	return func(s *settings) { s.connectTimeout = d }
}

// WithCaptureTimeout bounds a single screencap run.
func WithCaptureTimeout(d time.Duration) Option {
	return func(s *settings) { s.captureTimeout = d }
}

// WithSleep replaces the function used for settle delays.
func WithSleep(fn SleepFunc) Option {
	return func(s *settings) { s.sleep = fn }
}

// OptionsFromConfig maps the device section of the config to options.
func OptionsFromConfig(cfg config.DeviceConfig) []Option {
	return []Option{
		WithSettleDelay(cfg.SettleDelay),
		WithCloseDelay(cfg.CloseDelay),
		WithConnectTimeout(cfg.ConnectTimeout),
		WithCaptureTimeout(cfg.CaptureTimeout),
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
