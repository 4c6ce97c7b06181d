package adb

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"towerbot/internal/domain"
)

func TestDecodeRawReordersChannels(t *testing.T) {
	raw := rawFrame(2, 2,
		0x10, 0x20, 0x30, 0xff, 0x11, 0x21, 0x31, 0xff,
		0x12, 0x22, 0x32, 0x80, 0x13, 0x23, 0x33, 0x00,
	)

	frame, err := DecodeRaw(raw)
	require.NoError(t, err)

	assert.Equal(t, 2, frame.Width)
	assert.Equal(t, 2, frame.Height)
	assert.Equal(t, []byte{
		0x30, 0x20, 0x10, 0x31, 0x21, 0x11,
		0x32, 0x22, 0x12, 0x33, 0x23, 0x13,
	}, frame.Pix)

	b, g, r := frame.BGR(1, 1)
	assert.Equal(t, [3]uint8{0x33, 0x23, 0x13}, [3]uint8{b, g, r})
}

func TestDecodeRawDoesNotAliasInput(t *testing.T) {
	raw := rawFrame(1, 1, 1, 2, 3, 4)
	frame, err := DecodeRaw(raw)
	require.NoError(t, err)

	raw[12] = 99
	assert.Equal(t, []byte{3, 2, 1}, frame.Pix)
}

func TestDecodeRawIgnoresTrailingBytes(t *testing.T) {
	raw := append(rawFrame(1, 1, 9, 8, 7, 6), 0xde, 0xad)
	frame, err := DecodeRaw(raw)
	require.NoError(t, err)
	assert.Equal(t, []byte{7, 8, 9}, frame.Pix)
}

func TestDecodeRawEmptyFrame(t *testing.T) {
	frame, err := DecodeRaw(rawFrame(0, 0))
	require.NoError(t, err)
	assert.Equal(t, 0, frame.Width)
	assert.Empty(t, frame.Pix)
}

func TestDecodeRawErrors(t *testing.T) {
	tests := []struct {
		name string
		raw  []byte
	}{
		{"empty", nil},
		{"short header", make([]byte, 11)},
		{"header only", rawFrame(1, 1)},
		{"one byte short", rawFrame(2, 1, 1, 2, 3, 4, 5, 6, 7)},
		{"huge dimensions", rawFrame(0xffffffff, 0xffffffff, 1, 2, 3, 4)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeRaw(tt.raw)
			require.ErrorIs(t, err, domain.ErrProtocol)
			assert.Equal(t, domain.CodeProtocol, domain.ErrorCodeOf(err))
		})
	}
}

func FuzzDecodeRaw(f *testing.F) {
	f.Add(rawFrame(2, 2, make([]byte, 16)...))
	f.Add(rawFrame(3, 1, 1, 2, 3))
	f.Add([]byte{1, 2, 3})
	f.Fuzz(func(t *testing.T, raw []byte) {
		frame, err := DecodeRaw(raw)
		if err != nil {
			return
		}
		if len(frame.Pix) != frame.Width*frame.Height*domain.FrameChannels {
			t.Fatalf("pix length %d for %dx%d", len(frame.Pix), frame.Width, frame.Height)
		}
		if need := rawHeaderSize + frame.Width*frame.Height*rawBytesPerPixel; len(raw) < need {
			t.Fatalf("decoded %d bytes but %d needed", len(raw), need)
		}
	})
}

func TestCapturerCapture(t *testing.T) {
	l := &fakeLauncher{runFunc: func(_ context.Context, args []string) ([]byte, error) {
		return rawFrame(1, 2, 1, 2, 3, 255, 4, 5, 6, 255), nil
	}}
	rec := &sleepRecorder{}
	bus := &recordingBus{}
	c := NewCapturer("emulator-5554", l, WithSleep(rec.Sleep), WithEventBus(bus))

	frame, err := c.Capture(context.Background())
	require.NoError(t, err)

	assert.Equal(t, [][]string{{"-s", "emulator-5554", "exec-out", "screencap"}}, l.runs)
	assert.Equal(t, 1, frame.Width)
	assert.Equal(t, 2, frame.Height)
	assert.Equal(t, []byte{3, 2, 1, 6, 5, 4}, frame.Pix)
	assert.Equal(t, []time.Duration{DefaultSettleDelay}, rec.Waits())

	require.Equal(t, []domain.EventType{domain.EventFrameCaptured}, bus.Types())
	var p domain.CapturePayload
	require.NoError(t, json.Unmarshal(bus.events[0].Payload, &p))
	assert.Equal(t, 1, p.Width)
	assert.Equal(t, 2, p.Height)
	assert.Equal(t, 20, p.Bytes)
}

func TestCapturerReturnsIndependentFrames(t *testing.T) {
	raw := rawFrame(1, 1, 1, 2, 3, 4)
	l := &fakeLauncher{runFunc: func(context.Context, []string) ([]byte, error) { return raw, nil }}
	c := NewCapturer("s", l, WithSettleDelay(0))

	a, err := c.Capture(context.Background())
	require.NoError(t, err)
	b, err := c.Capture(context.Background())
	require.NoError(t, err)

	a.Pix[0] = 0
	assert.Equal(t, byte(3), b.Pix[0])
}

func TestCapturerFailures(t *testing.T) {
	tests := []struct {
		name    string
		run     func(context.Context, []string) ([]byte, error)
		wantErr error
	}{
		{"exit status", func(context.Context, []string) ([]byte, error) { return nil, errDevice }, domain.ErrCaptureFailed},
		{"empty output", func(context.Context, []string) ([]byte, error) { return []byte{}, nil }, domain.ErrCaptureFailed},
		{"truncated", func(context.Context, []string) ([]byte, error) { return rawFrame(4, 4, 1, 2, 3, 4), nil }, domain.ErrProtocol},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &sleepRecorder{}
			bus := &recordingBus{}
			c := NewCapturer("s", &fakeLauncher{runFunc: tt.run}, WithSleep(rec.Sleep), WithEventBus(bus))

			frame, err := c.Capture(context.Background())
			assert.Nil(t, frame)
			require.ErrorIs(t, err, tt.wantErr)
			assert.Empty(t, rec.Waits(), "no settle delay after a failure")
			assert.Equal(t, []domain.EventType{domain.EventCaptureFailed}, bus.Types())
		})
	}
}

func TestCapturerTimeout(t *testing.T) {
	l := &fakeLauncher{runFunc: func(ctx context.Context, _ []string) ([]byte, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}}
	c := NewCapturer("s", l, WithCaptureTimeout(10*time.Millisecond))

	_, err := c.Capture(context.Background())
	require.ErrorIs(t, err, domain.ErrCaptureFailed)
	assert.Contains(t, err.Error(), "timed out")
}

func TestCapturerCancelledKeepsCause(t *testing.T) {
	l := &fakeLauncher{runFunc: func(ctx context.Context, _ []string) ([]byte, error) {
		return nil, ctx.Err()
	}}
	c := NewCapturer("s", l)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.Capture(ctx)
	require.ErrorIs(t, err, context.Canceled)
	require.ErrorIs(t, err, domain.ErrCaptureFailed)
	assert.Equal(t, domain.CodeCaptureFailed, domain.ErrorCodeOf(err))
}
