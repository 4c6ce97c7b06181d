package adb

import (
	"context"
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"towerbot/internal/domain"
	"towerbot/internal/infra/config"
)

type stubSource struct {
	calls int
	err   error
}

func (s *stubSource) Capture(context.Context) (*domain.Frame, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return domain.NewFrame(1, 1), nil
}

func TestBreakerPassesThrough(t *testing.T) {
	src := &stubSource{}
	b := NewBreakerCapturer(src, config.BreakerConfig{}, nil)

	frame, err := b.Capture(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, frame.Width)
	assert.Equal(t, gobreaker.StateClosed, b.State())
}

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	src := &stubSource{err: domain.NewDomainError("Capturer.Capture", domain.ErrCaptureFailed, "exit status 1")}
	b := NewBreakerCapturer(src, config.BreakerConfig{MaxFailures: 2, Timeout: time.Minute}, nil)

	for i := 0; i < 2; i++ {
		_, err := b.Capture(context.Background())
		require.ErrorIs(t, err, domain.ErrCaptureFailed)
	}
	assert.Equal(t, gobreaker.StateOpen, b.State())

	_, err := b.Capture(context.Background())
	require.ErrorIs(t, err, domain.ErrCaptureFailed)
	assert.Contains(t, err.Error(), "circuit open")
	assert.Equal(t, 2, src.calls, "open breaker must not reach the device")
}

func TestBreakerIgnoresCancellation(t *testing.T) {
	src := &stubSource{err: context.Canceled}
	b := NewBreakerCapturer(src, config.BreakerConfig{MaxFailures: 1, Timeout: time.Minute}, nil)

	for i := 0; i < 3; i++ {
		_, err := b.Capture(context.Background())
		require.ErrorIs(t, err, context.Canceled)
	}
	assert.Equal(t, gobreaker.StateClosed, b.State())
	assert.Equal(t, 3, src.calls)
}

func TestBreakerIgnoresCancelledCapture(t *testing.T) {
	l := &fakeLauncher{runFunc: func(ctx context.Context, _ []string) ([]byte, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}}
	b := NewBreakerCapturer(NewCapturer("s", l, WithSettleDelay(0)),
		config.BreakerConfig{MaxFailures: 1, Timeout: time.Minute}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	for i := 0; i < 2; i++ {
		_, err := b.Capture(ctx)
		require.ErrorIs(t, err, context.Canceled)
		require.ErrorIs(t, err, domain.ErrCaptureFailed)
	}
	assert.Equal(t, gobreaker.StateClosed, b.State())
	assert.Len(t, l.runs, 2)
}

func TestBreakerHalfOpenRecovers(t *testing.T) {
	src := &stubSource{err: domain.ErrCaptureFailed}
	b := NewBreakerCapturer(src, config.BreakerConfig{MaxFailures: 1, Timeout: 20 * time.Millisecond}, nil)

	_, _ = b.Capture(context.Background())
	require.Equal(t, gobreaker.StateOpen, b.State())

	src.err = nil
	require.Eventually(t, func() bool {
		return b.State() == gobreaker.StateHalfOpen
	}, time.Second, 5*time.Millisecond)

	_, err := b.Capture(context.Background())
	require.NoError(t, err)
	assert.Equal(t, gobreaker.StateClosed, b.State())
}

func TestNewFrameSource(t *testing.T) {
	l := &fakeLauncher{}

	plain := NewFrameSource("s", l, config.CaptureConfig{})
	assert.IsType(t, &Capturer{}, plain)

	guarded := NewFrameSource("s", l, config.CaptureConfig{Breaker: config.BreakerConfig{Enabled: true}})
	assert.IsType(t, &BreakerCapturer{}, guarded)
}
