package adb

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/trace"

	"towerbot/internal/domain"
	"towerbot/internal/infra/tracer"
)

// Raw capture layout: little-endian width and height, four reserved bytes,
// then width*height RGBA pixels row-major.
const (
	rawHeaderSize    = 12
	rawBytesPerPixel = 4
)

// FrameSource produces decoded screen frames.
type FrameSource interface {
	Capture(ctx context.Context) (*domain.Frame, error)
}

// Capturer grabs still frames through one-shot bridge runs. It holds no
// session and no state between calls, so one Capturer may be shared.
type Capturer struct {
	serial   domain.Serial
	launcher Launcher
	settings
}

var _ FrameSource = (*Capturer)(nil)

// NewCapturer returns a Capturer for serial.
func NewCapturer(serial domain.Serial, launcher Launcher, opts ...Option) *Capturer {
	return &Capturer{
		serial:   serial,
		launcher: launcher,
		settings: newSettings(opts),
	}
}

// Capture runs screencap on the device, decodes its raw output into a fresh
// BGR frame and waits the settle delay before returning it.
func (c *Capturer) Capture(ctx context.Context) (frame *domain.Frame, err error) {
	ctx, span := tracer.StartSpan(ctx, "adb.capture",
		trace.WithAttributes(tracer.DeviceAttr(string(c.serial))))
	defer func() { tracer.End(span, err) }()

	defer func() {
		if err != nil {
			c.logger.Warn("frame capture failed", "serial", c.serial, "error", err)
			c.publish(ctx, domain.EventCaptureFailed, "", domain.CapturePayload{Serial: c.serial, Error: err.Error()})
		}
	}()

	raw, err := c.run(ctx)
	if err != nil {
		return nil, err
	}

	frame, err = DecodeRaw(raw)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(tracer.IntAttr("frame.width", frame.Width), tracer.IntAttr("frame.height", frame.Height))

	c.logger.Debug("frame captured", "serial", c.serial, "width", frame.Width, "height", frame.Height, "bytes", len(raw))
	c.publish(ctx, domain.EventFrameCaptured, "", domain.CapturePayload{
		Serial: c.serial, Width: frame.Width, Height: frame.Height, Bytes: len(raw),
	})

	if err := c.sleep(ctx, c.settleDelay); err != nil {
		return nil, err
	}
	return frame, nil
}

func (c *Capturer) run(ctx context.Context) ([]byte, error) {
	rctx, cancel := context.WithTimeout(ctx, c.captureTimeout)
	defer cancel()

	raw, err := c.launcher.Run(rctx, "-s", string(c.serial), "exec-out", "screencap")
	if err != nil {
		if cerr := ctx.Err(); cerr != nil {
			// The caller gave up; keep the cause visible to errors.Is.
			return nil, errors.Join(domain.NewSubSystemError(domain.SubSystemCapture, "Capturer.Capture",
				domain.ErrCaptureFailed, "cancelled"), cerr)
		}
		detail := err.Error()
		if errors.Is(rctx.Err(), context.DeadlineExceeded) {
			detail = fmt.Sprintf("timed out after %s: %v", c.captureTimeout, err)
		}
		return nil, domain.NewSubSystemError(domain.SubSystemCapture, "Capturer.Capture", domain.ErrCaptureFailed, detail)
	}
	if len(raw) == 0 {
		return nil, domain.NewSubSystemError(domain.SubSystemCapture, "Capturer.Capture", domain.ErrCaptureFailed, "empty output")
	}
	return raw, nil
}

// DecodeRaw decodes a raw screencap payload into a BGR frame. Bytes beyond
// the declared pixel data are ignored. The returned frame never aliases raw.
func DecodeRaw(raw []byte) (*domain.Frame, error) {
	if len(raw) < rawHeaderSize {
		return nil, domain.NewSubSystemError(domain.SubSystemCapture, "DecodeRaw", domain.ErrProtocol,
			fmt.Sprintf("header needs %d bytes, got %d", rawHeaderSize, len(raw)))
	}
	w := binary.LittleEndian.Uint32(raw[0:4])
	h := binary.LittleEndian.Uint32(raw[4:8])
	body := raw[rawHeaderSize:]

	// Compare by division so a hostile header cannot overflow the size.
	pixels := uint64(len(body)) / rawBytesPerPixel
	if w != 0 && uint64(h) > pixels/uint64(w) {
		return nil, domain.NewSubSystemError(domain.SubSystemCapture, "DecodeRaw", domain.ErrProtocol,
			fmt.Sprintf("truncated payload: %dx%d frame, only %d pixel bytes", w, h, len(body)))
	}

	frame := domain.NewFrame(int(w), int(h))
	n := int(w) * int(h)
	for i := 0; i < n; i++ {
		src := body[i*rawBytesPerPixel:]
		dst := frame.Pix[i*domain.FrameChannels:]
		dst[0], dst[1], dst[2] = src[2], src[1], src[0]
	}
	return frame, nil
}
