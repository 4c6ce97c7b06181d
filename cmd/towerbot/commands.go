package main

import (
	"context"
	"fmt"
	"image/png"
	"os"

	"towerbot/internal/adapter/adb"
	"towerbot/internal/adapter/theme"
	"towerbot/internal/domain"
	"towerbot/internal/infra/logger"
	"towerbot/internal/usecase/board"
	"towerbot/internal/usecase/game"
	"towerbot/internal/usecase/pilot"
)

func (f cliFlags) towers() domain.TowerState {
	return domain.TowerState{LeftAlive: !f.LeftDead, RightAlive: !f.RightDead}
}

func runTap(ctx context.Context, flags cliFlags, args []string) error {
	x, y, err := parseFloatPair(args, "X Y")
	if err != nil {
		return err
	}
	a, err := newApp(ctx, flags)
	if err != nil {
		return err
	}
	defer a.close()

	return a.channel().Do(ctx, func(ctx context.Context, ch *adb.Channel) error {
		return ch.Tap(ctx, x, y)
	})
}

func runTile(ctx context.Context, flags cliFlags, args []string) error {
	col, row, err := parseIntPair(args, "COL ROW")
	if err != nil {
		return err
	}
	a, err := newApp(ctx, flags)
	if err != nil {
		return err
	}
	defer a.close()

	t := domain.Tile{Col: col, Row: row}
	if !flags.Force {
		if err := a.arena.Validate(t, flags.towers()); err != nil {
			return err
		}
	}
	return a.channel().Do(ctx, func(ctx context.Context, ch *adb.Channel) error {
		log := logger.ForDevice(a.logger, string(ch.Serial()), ch.SessionID())
		client := game.NewClient(ch, a.cfg.UI, game.WithLogger(log), game.WithBoard(a.geometry, a.arena))
		return client.ClickTile(ctx, t)
	})
}

// runCheck needs no device; it only loads the board section of the config.
func runCheck(flags cliFlags, args []string) error {
	col, row, err := parseIntPair(args, "COL ROW")
	if err != nil {
		return err
	}
	cfg, err := loadConfig(flags)
	if err != nil {
		return err
	}
	fmt.Println(describeTile(board.GeometryFromConfig(cfg.Board), board.ArenaFromConfig(cfg.Board),
		domain.Tile{Col: col, Row: row}, flags.towers()))
	return nil
}

func describeTile(g board.Geometry, a board.Arena, t domain.Tile, towers domain.TowerState) string {
	rule := a.Check(t, towers)
	p := g.TileToScreen(t)
	return fmt.Sprintf("%s %s", theme.Tile(t.Col, t.Row, rule == "", rule),
		theme.Dim.Render(fmt.Sprintf("at (%.2f, %.2f)", p.X, p.Y)))
}

func runScreencap(ctx context.Context, flags cliFlags, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("expected OUT.png, got %d argument(s)", len(args))
	}
	a, err := newApp(ctx, flags)
	if err != nil {
		return err
	}
	defer a.close()

	frame, err := a.frameSource().Capture(ctx)
	if err != nil {
		return err
	}
	return writePNG(args[0], frame)
}

func writePNG(path string, frame *domain.Frame) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := png.Encode(f, frame); err != nil {
		f.Close()
		return fmt.Errorf("encode png: %w", err)
	}
	return f.Close()
}

func runPlay(ctx context.Context, flags cliFlags, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("expected SCRIPT.yaml, got %d argument(s)", len(args))
	}
	script, err := pilot.LoadScript(args[0])
	if err != nil {
		return err
	}
	a, err := newApp(ctx, flags)
	if err != nil {
		return err
	}
	defer a.close()

	return a.channel().Do(ctx, func(ctx context.Context, ch *adb.Channel) error {
		log := logger.ForDevice(a.logger, string(ch.Serial()), ch.SessionID())
		client := game.NewClient(ch, a.cfg.UI, game.WithLogger(log), game.WithBoard(a.geometry, a.arena))
		opts := append(pilot.OptionsFromConfig(a.cfg.Pilot),
			pilot.WithLogger(log), pilot.WithEventBus(a.bus), pilot.WithArena(a.arena))
		runner := pilot.NewRunner(a.frameSource(), pilot.NewScriptAnalyzer(script), client, opts...)
		return runner.Run(ctx)
	})
}
