// Package pilot runs the capture, analyse and act loop against one device.
package pilot

import (
	"context"
	"errors"
	"log/slog"

	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"towerbot/internal/domain"
	"towerbot/internal/infra/config"
	"towerbot/internal/infra/logger"
	"towerbot/internal/infra/tracer"
	"towerbot/internal/usecase/board"
)

// ErrStop is returned by an Analyzer that has nothing more to do. Run treats
// it as a clean end of the loop.
var ErrStop = errors.New("pilot: stop")

// FrameSource produces screen frames. *adb.Capturer satisfies it.
type FrameSource interface {
	Capture(ctx context.Context) (*domain.Frame, error)
}

// Decision is what an Analyzer wants done with one frame.
type Decision struct {
	Act bool
	// Card is the hand slot to play (1-based); 0 taps the tile only.
	Card   int
	Tile   domain.Tile
	Towers domain.TowerState
}

// Analyzer turns a frame into a Decision.
type Analyzer interface {
	Analyze(ctx context.Context, frame *domain.Frame) (Decision, error)
}

// Player carries out a legal decision. *game.Client satisfies it.
type Player interface {
	PlaceCard(ctx context.Context, position int, t domain.Tile, towers domain.TowerState) error
	ClickTile(ctx context.Context, t domain.Tile) error
}

// Outcome reports what one Step did.
type Outcome struct {
	Acted bool
	// Rule names the exclusion rule when the target tile was skipped.
	Rule string
}

// Runner owns the loop. It is not safe for concurrent use.
type Runner struct {
	source    FrameSource
	analyzer  Analyzer
	player    Player
	arena     board.Arena
	limiter   *rate.Limiter
	maxCycles int
	bus       domain.EventBus
	logger    *slog.Logger
}

// Option configures a Runner.
type Option func(*Runner)

// WithLogger sets a custom slog.Logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Runner) { r.logger = l }
}

// WithEventBus publishes placement events on bus.
func WithEventBus(bus domain.EventBus) Option {
	return func(r *Runner) { r.bus = bus }
}

// WithArena replaces the default placement rules.
func WithArena(a board.Arena) Option {
	return func(r *Runner) { r.arena = a }
}

// WithLimiter paces Run.
func WithLimiter(l *rate.Limiter) Option {
	return func(r *Runner) { r.limiter = l }
}

// WithMaxCycles stops Run after n steps. Zero means no limit.
func WithMaxCycles(n int) Option {
	return func(r *Runner) { r.maxCycles = n }
}

// OptionsFromConfig maps the pilot section to options.
func OptionsFromConfig(cfg config.PilotConfig) []Option {
	return []Option{
		WithLimiter(rate.NewLimiter(rate.Limit(cfg.CyclesPerSecond), cfg.Burst)),
		WithMaxCycles(cfg.MaxCycles),
	}
}

// NewRunner returns a Runner. Without WithLimiter it runs two cycles a second.
func NewRunner(source FrameSource, analyzer Analyzer, player Player, opts ...Option) *Runner {
	r := &Runner{
		source:   source,
		analyzer: analyzer,
		player:   player,
		arena:    board.DefaultArena,
		limiter:  rate.NewLimiter(2, 1),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = logger.OrDiscard(r.logger)
	return r
}

// Step runs one cycle: capture a frame, analyse it and, when the target tile
// is legal, act on it. Illegal targets are reported and skipped.
func (r *Runner) Step(ctx context.Context) (out Outcome, err error) {
	ctx, span := tracer.StartSpan(ctx, "pilot.step")
	defer func() { tracer.End(span, err) }()

	frame, err := r.source.Capture(ctx)
	if err != nil {
		return Outcome{}, domain.WrapOp("pilot.Step", err)
	}
	d, err := r.analyzer.Analyze(ctx, frame)
	if err != nil {
		return Outcome{}, err
	}
	if !d.Act {
		return Outcome{}, nil
	}
	span.SetAttributes(tracer.IntAttr("tile.col", d.Tile.Col), tracer.IntAttr("tile.row", d.Tile.Row))

	if rule := r.arena.Check(d.Tile, d.Towers); rule != "" {
		r.logger.Info("placement skipped", "col", d.Tile.Col, "row", d.Tile.Row, "rule", rule)
		r.publish(ctx, domain.EventPlacementSkipped, domain.PlacementPayload{Card: d.Card, Tile: d.Tile, Rule: rule})
		span.AddEvent("placement skipped", trace.WithAttributes(tracer.StringAttr("rule", rule)))
		return Outcome{Rule: rule}, nil
	}

	if d.Card > 0 {
		err = r.player.PlaceCard(ctx, d.Card, d.Tile, d.Towers)
	} else {
		err = r.player.ClickTile(ctx, d.Tile)
	}
	if err != nil {
		return Outcome{}, domain.WrapOp("pilot.Step", err)
	}
	r.publish(ctx, domain.EventCardPlaced, domain.PlacementPayload{Card: d.Card, Tile: d.Tile})
	return Outcome{Acted: true}, nil
}

// Run repeats Step at the limiter's pace until ctx is done, the cycle limit
// is reached or the analyzer returns ErrStop. Device errors abort the loop;
// other analyzer failures are logged and the next cycle proceeds.
func (r *Runner) Run(ctx context.Context) error {
	for cycle := 1; r.maxCycles == 0 || cycle <= r.maxCycles; cycle++ {
		if err := r.limiter.Wait(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}

		out, err := r.Step(ctx)
		switch {
		case err == nil:
			r.logger.Debug("pilot cycle", "cycle", cycle, "acted", out.Acted, "skipped", out.Rule)
		case errors.Is(err, ErrStop):
			r.logger.Info("pilot stopped by analyzer", "cycle", cycle)
			return nil
		case ctx.Err() != nil:
			return nil
		case domain.IsDeviceError(err):
			r.logger.Error("pilot aborted", "cycle", cycle, "error", err, "code", string(domain.ErrorCodeOf(err)))
			return err
		default:
			r.logger.Warn("pilot cycle failed", "cycle", cycle, "error", err)
		}
	}
	return nil
}

func (r *Runner) publish(ctx context.Context, typ domain.EventType, payload domain.PlacementPayload) {
	if r.bus == nil {
		return
	}
	r.bus.Publish(ctx, domain.NewEvent(typ, "", payload))
}
