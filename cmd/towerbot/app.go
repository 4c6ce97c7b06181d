package main

import (
	"context"
	"fmt"
	"log/slog"

	"towerbot/internal/adapter/adb"
	"towerbot/internal/domain"
	"towerbot/internal/infra/config"
	"towerbot/internal/infra/logger"
	"towerbot/internal/infra/tracer"
	"towerbot/internal/usecase/board"
	"towerbot/internal/usecase/eventbus"
)

// app is the wiring shared by the device commands.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	bus      *eventbus.Bus
	launcher *adb.ExecLauncher
	geometry board.Geometry
	arena    board.Arena

	closers []func() error
}

func newApp(ctx context.Context, flags cliFlags) (*app, error) {
	cfg, err := loadConfig(flags)
	if err != nil {
		return nil, err
	}
	if flags.Serial != "" {
		cfg.Device.Serial = flags.Serial
	}

	log, closeLog, err := logger.New(cfg.Logger)
	if err != nil {
		return nil, err
	}
	a := &app{
		cfg:      cfg,
		logger:   log,
		launcher: adb.NewExecLauncher(cfg.Device.ADBPath),
		geometry: board.GeometryFromConfig(cfg.Board),
		arena:    board.ArenaFromConfig(cfg.Board),
		closers:  []func() error{closeLog},
	}

	shutdown, err := tracer.Setup(ctx, cfg.Tracer, tracer.DeviceAttr(cfg.Device.Serial))
	if err != nil {
		a.close()
		return nil, err
	}
	a.closers = append(a.closers, func() error { return shutdown(context.Background()) })

	a.bus = eventbus.New(log)
	eventbus.LogEvents(a.bus, log)
	a.closers = append(a.closers, func() error { a.bus.Close(); return nil })

	return a, nil
}

// loadConfig reads the config named by flags. Every failure wraps
// domain.ErrConfigLoad.
func loadConfig(flags cliFlags) (*config.Config, error) {
	cfg, err := config.Load(flags.configPath())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrConfigLoad, err)
	}
	return cfg, nil
}

func (a *app) serial() domain.Serial { return domain.Serial(a.cfg.Device.Serial) }

func (a *app) deviceOptions() []adb.Option {
	return append(adb.OptionsFromConfig(a.cfg.Device), adb.WithLogger(a.logger), adb.WithEventBus(a.bus))
}

func (a *app) channel() *adb.Channel {
	return adb.NewChannel(a.serial(), a.launcher, a.deviceOptions()...)
}

func (a *app) frameSource() adb.FrameSource {
	return adb.NewFrameSource(a.serial(), a.launcher, a.cfg.Capture, a.deviceOptions()...)
}

// close releases resources in reverse order of acquisition.
func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Debug("shutdown step failed", "error", err)
		}
	}
}
