// Package game drives the game's menus and hand through fixed tap sequences.
package game

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"towerbot/internal/domain"
	"towerbot/internal/infra/config"
	"towerbot/internal/infra/logger"
	"towerbot/internal/usecase/board"
)

// Tapper delivers a tap at a screen point. *adb.Channel satisfies it.
type Tapper interface {
	Tap(ctx context.Context, x, y float64) error
}

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Client performs high-level game actions. Every action stops at the first
// failed tap.
type Client struct {
	tapper   Tapper
	ui       config.UIConfig
	geometry board.Geometry
	arena    board.Arena
	logger   *slog.Logger
	sleep    SleepFunc
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets a custom slog.Logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithBoard replaces the default board geometry and arena.
func WithBoard(g board.Geometry, a board.Arena) Option {
	return func(c *Client) { c.geometry, c.arena = g, a }
}

// WithSleep replaces the pause between the taps of a menu action.
func WithSleep(fn SleepFunc) Option {
	return func(c *Client) { c.sleep = fn }
}

// NewClient returns a Client tapping through tapper with the button layout ui.
func NewClient(tapper Tapper, ui config.UIConfig, opts ...Option) *Client {
	c := &Client{
		tapper:   tapper,
		ui:       ui,
		geometry: board.DefaultGeometry,
		arena:    board.DefaultArena,
		sleep:    sleepContext,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = logger.OrDiscard(c.logger)
	return c
}

// EnterClanChat opens the clan tab and then its chat.
func (c *Client) EnterClanChat(ctx context.Context) error {
	return c.sequence(ctx, "EnterClanChat", c.ui.ClanTab, c.ui.ClanChat)
}

// CreateChallenge opens the challenge menu and posts a friendly battle.
func (c *Client) CreateChallenge(ctx context.Context) error {
	return c.sequence(ctx, "CreateChallenge", c.ui.ChallengeMenu, c.ui.ChallengeCreate)
}

// AcceptChallenge accepts the challenge shown in clan chat.
func (c *Client) AcceptChallenge(ctx context.Context) error {
	return c.sequence(ctx, "AcceptChallenge", c.ui.ChallengeAccept)
}

// ExitGame leaves the finished match.
func (c *Client) ExitGame(ctx context.Context) error {
	return c.sequence(ctx, "ExitGame", c.ui.ExitMatch)
}

// CardPoint returns the screen point of hand slot position (1-based).
func (c *Client) CardPoint(position int) (domain.Point, error) {
	if position < 1 || position > c.ui.CardSlots {
		return domain.Point{}, domain.NewSubSystemError(domain.SubSystemGame, "Client.CardPoint", domain.ErrInvalidArgument,
			fmt.Sprintf("card position %d outside 1..%d", position, c.ui.CardSlots))
	}
	return domain.Point{
		X: c.ui.CardOriginX + (float64(position)-0.5)*c.ui.CardSpacing,
		Y: c.ui.CardY,
	}, nil
}

// SelectCard taps the card in hand slot position (1-based).
func (c *Client) SelectCard(ctx context.Context, position int) error {
	p, err := c.CardPoint(position)
	if err != nil {
		return err
	}
	return domain.WrapOp("game.SelectCard", c.tapper.Tap(ctx, p.X, p.Y))
}

// ClickTile taps the centre of tile t without checking its legality.
func (c *Client) ClickTile(ctx context.Context, t domain.Tile) error {
	p := c.geometry.TileToScreen(t)
	return domain.WrapOp("game.ClickTile", c.tapper.Tap(ctx, p.X, p.Y))
}

// PlaceCard selects the card in slot position and drops it on t. Illegal
// tiles and positions are rejected before any tap is sent.
func (c *Client) PlaceCard(ctx context.Context, position int, t domain.Tile, towers domain.TowerState) error {
	if _, err := c.CardPoint(position); err != nil {
		return err
	}
	if err := c.arena.Validate(t, towers); err != nil {
		return err
	}
	if err := c.SelectCard(ctx, position); err != nil {
		return err
	}
	if err := c.ClickTile(ctx, t); err != nil {
		return err
	}
	c.logger.Info("card placed", "card", position, "col", t.Col, "row", t.Row)
	return nil
}

func (c *Client) sequence(ctx context.Context, action string, buttons ...config.Button) error {
	for i, b := range buttons {
		if i > 0 {
			if err := c.sleep(ctx, c.ui.StepPause); err != nil {
				return domain.WrapOp("game."+action, err)
			}
		}
		if err := c.tapper.Tap(ctx, b.X, b.Y); err != nil {
			c.logger.Warn("game action aborted", "action", action, "step", i+1, "error", err)
			return domain.WrapOp("game."+action, err)
		}
	}
	c.logger.Debug("game action done", "action", action)
	return nil
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
