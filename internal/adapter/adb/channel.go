package adb

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"go.opentelemetry.io/otel/trace"

	"towerbot/internal/domain"
	"towerbot/internal/infra/tracer"
)

// Channel owns one long-lived interactive shell on a single device and
// serializes text commands to it.
//
// All methods are safe to call from multiple goroutines, but commands are only
// ordered per call: a caller that needs a sequence of taps must issue them
// from one goroutine. Independent devices need independent Channels.
type Channel struct {
	serial   domain.Serial
	launcher Launcher
	settings

	mu        sync.Mutex
	shell     Shell
	sessionID string
}

// NewChannel returns a closed Channel for serial. Call Open (or Do) before
// sending commands.
func NewChannel(serial domain.Serial, launcher Launcher, opts ...Option) *Channel {
	return &Channel{
		serial:   serial,
		launcher: launcher,
		settings: newSettings(opts),
	}
}

// Serial returns the device this channel is bound to.
func (c *Channel) Serial() domain.Serial { return c.serial }

// SessionID returns the id of the live session, or "" when closed.
func (c *Channel) SessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.liveLocked() {
		return ""
	}
	return c.sessionID
}

// Live reports whether a session is open and its process still running.
func (c *Channel) Live() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.liveLocked()
}

func (c *Channel) liveLocked() bool {
	return c.shell != nil && !c.shell.Exited()
}

// Open establishes the shell session. It is a no-op when a session is live.
// The connect handshake that precedes the spawn is best effort: a device that
// is already attached may refuse it, so its failure is only logged.
func (c *Channel) Open(ctx context.Context) (err error) {
	ctx, span := tracer.StartSpan(ctx, "adb.channel.open",
		trace.WithAttributes(tracer.DeviceAttr(string(c.serial))))
	defer func() { tracer.End(span, err) }()

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.liveLocked() {
		return nil
	}
	if c.shell != nil {
		// The previous shell died underneath us; reap it before replacing it.
		_ = c.shell.Terminate()
		c.logger.Warn("device session exited unexpectedly", "serial", c.serial, "session_id", c.sessionID)
		c.shell, c.sessionID = nil, ""
	}

	c.handshake(ctx)

	shell, err := c.launcher.Spawn("-s", string(c.serial), "shell")
	if err != nil {
		return domain.NewSubSystemError(domain.SubSystemChannel, "Channel.Open", domain.ErrChannelBroken,
			fmt.Sprintf("spawn shell for %s: %v", c.serial, err))
	}

	c.shell = shell
	c.sessionID = newSessionID()
	span.SetAttributes(tracer.StringAttr("session.id", c.sessionID))

	c.logger.Info("device session opened", "serial", c.serial, "session_id", c.sessionID)
	c.publish(ctx, domain.EventSessionOpened, c.sessionID, domain.SessionPayload{Serial: c.serial})
	return nil
}

func (c *Channel) handshake(ctx context.Context) {
	hctx, cancel := context.WithTimeout(ctx, c.connectTimeout)
	defer cancel()
	if _, err := c.launcher.Run(hctx, "connect", string(c.serial)); err != nil {
		c.logger.Debug("device connect handshake failed", "serial", c.serial, "error", err)
	}
}

// Send writes command and a line terminator to the session. Failed writes are
// reported, never retried: a retry could replay an input event.
func (c *Channel) Send(command string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sendLocked("Channel.Send", command)
}

func (c *Channel) sendLocked(op, command string) error {
	if !c.liveLocked() {
		return domain.NewSubSystemError(domain.SubSystemChannel, op, domain.ErrChannelClosed,
			fmt.Sprintf("no live session for %s", c.serial))
	}
	if err := c.shell.WriteLine(command); err != nil {
		c.logger.Error("device write failed", "serial", c.serial, "session_id", c.sessionID, "error", err)
		return domain.NewSubSystemError(domain.SubSystemChannel, op, domain.ErrChannelBroken, err.Error())
	}
	c.logger.Debug("device command sent", "serial", c.serial, "command", command)
	return nil
}

// Tap sends an input tap at (x, y), rounded to whole pixels, then waits the
// settle delay before returning. Coordinates that are negative, non-finite or
// beyond maxTapCoord are rejected before anything reaches the device.
func (c *Channel) Tap(ctx context.Context, x, y float64) (err error) {
	ctx, span := tracer.StartSpan(ctx, "adb.channel.tap", trace.WithAttributes(
		tracer.DeviceAttr(string(c.serial)),
		tracer.FloatAttr("tap.x", x),
		tracer.FloatAttr("tap.y", y),
	))
	defer func() { tracer.End(span, err) }()

	if !validCoord(x) || !validCoord(y) {
		return domain.NewSubSystemError(domain.SubSystemChannel, "Channel.Tap", domain.ErrInvalidArgument,
			fmt.Sprintf("tap coordinates must be in [0, %d], got (%g, %g)", maxTapCoord, x, y))
	}
	ix, iy := int(math.Round(x)), int(math.Round(y))

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.sendLocked("Channel.Tap", fmt.Sprintf("input tap %d %d", ix, iy)); err != nil {
		return err
	}
	c.publish(ctx, domain.EventTapSent, c.sessionID, domain.TapPayload{Serial: c.serial, X: ix, Y: iy})

	// Hold the lock through the settle delay so no other tap is delivered
	// before the device has consumed this one.
	return c.sleep(ctx, c.settleDelay)
}

// maxTapCoord is the largest coordinate the device input tool accepts.
const maxTapCoord = math.MaxInt32

// validCoord also rejects NaN, for which every comparison is false.
func validCoord(v float64) bool {
	return v >= 0 && v <= maxTapCoord
}

// Close waits for in-flight commands to drain, asks the shell to exit and
// then terminates it. Close is idempotent and always returns nil; teardown
// failures are logged.
func (c *Channel) Close() error {
	_ = c.sleep(context.Background(), c.closeDelay)

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.shell == nil {
		return nil
	}
	shell, id := c.shell, c.sessionID
	c.shell, c.sessionID = nil, ""

	if err := shell.WriteLine("exit"); err != nil {
		c.logger.Debug("device shell exit failed", "serial", c.serial, "session_id", id, "error", err)
	}
	if err := shell.CloseInput(); err != nil {
		c.logger.Debug("device shell stdin close failed", "serial", c.serial, "session_id", id, "error", err)
	}
	if err := shell.Terminate(); err != nil {
		c.logger.Debug("device shell terminate failed", "serial", c.serial, "session_id", id, "error", err)
	}

	c.logger.Info("device session closed", "serial", c.serial, "session_id", id)
	c.publish(context.Background(), domain.EventSessionClosed, id, domain.SessionPayload{Serial: c.serial})
	return nil
}

// Do opens the channel, runs fn and closes the channel again, including when
// fn panics. The error returned is fn's; teardown never replaces it.
func (c *Channel) Do(ctx context.Context, fn func(ctx context.Context, ch *Channel) error) error {
	if err := c.Open(ctx); err != nil {
		return err
	}
	defer c.Close()
	return fn(ctx, c)
}

func newSessionID() string {
	t := time.Now()
	entropy := ulid.Monotonic(rand.New(rand.NewSource(t.UnixNano())), 0)
	return ulid.MustNew(ulid.Timestamp(t), entropy).String()
}
