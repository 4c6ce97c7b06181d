package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"

	"towerbot/internal/adapter/adb"
	"towerbot/internal/adapter/theme"
	"towerbot/internal/domain"
	"towerbot/internal/infra/config"
)

// CheckResult holds the outcome of a single health check.
type CheckResult struct {
	Name    string
	Status  theme.Level
	Message string
	Fix     string // optional fix suggestion
}

// Check is a named health check.
type Check struct {
	Name string
	Fn   func(ctx context.Context, cfg *config.Config) CheckResult
}

const probeTimeout = 5 * time.Second

func runDoctor(ctx context.Context, flags cliFlags) error {
	cfgPath := flags.configPath()
	cfg, cfgErr := config.Load(cfgPath)
	if cfg != nil && flags.Serial != "" {
		cfg.Device.Serial = flags.Serial
	}

	var launcher adb.Launcher
	if cfg != nil {
		launcher = adb.NewExecLauncher(cfg.Device.ADBPath)
	}

	checks := []Check{
		{Name: "Config file", Fn: checkConfigFile(cfgPath, cfgErr)},
		{Name: "adb binary", Fn: checkADBBinary(exec.LookPath)},
		{Name: "Device", Fn: checkDevice(launcher)},
		{Name: "Screen capture", Fn: checkCapture(launcher)},
	}
	return report(ctx, os.Stdout, cfg, checks)
}

// report runs checks in order and prints a summary. It fails when any check
// fails.
func report(ctx context.Context, w io.Writer, cfg *config.Config, checks []Check) error {
	fmt.Fprintln(w, theme.Title.Render("towerbot doctor"))
	fmt.Fprintln(w)

	var pass, warn, fail int
	for _, check := range checks {
		result := check.Fn(ctx, cfg)
		result.Name = check.Name

		fmt.Fprintf(w, "  %s %s: %s\n", theme.Badge(result.Status), theme.Bold.Render(result.Name), result.Message)
		if result.Fix != "" {
			fmt.Fprintf(w, "      %s\n", theme.TextMuted.Render("Fix: "+result.Fix))
		}

		switch result.Status {
		case theme.LevelPass:
			pass++
		case theme.LevelWarn:
			warn++
		default:
			fail++
		}
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Results: %d passed, %d warnings, %d failed\n", pass, warn, fail)
	if fail > 0 {
		return fmt.Errorf("%d check(s) failed", fail)
	}
	return nil
}

func checkConfigFile(cfgPath string, cfgErr error) func(context.Context, *config.Config) CheckResult {
	return func(context.Context, *config.Config) CheckResult {
		if cfgErr != nil {
			return CheckResult{
				Status:  theme.LevelFail,
				Message: fmt.Sprintf("config error: %v", cfgErr),
				Fix:     fmt.Sprintf("Fix %s or remove it to use defaults", cfgPath),
			}
		}
		if _, err := os.Stat(cfgPath); errors.Is(err, os.ErrNotExist) {
			return CheckResult{
				Status:  theme.LevelWarn,
				Message: fmt.Sprintf("%s not found, using defaults", cfgPath),
			}
		}
		return CheckResult{Status: theme.LevelPass, Message: fmt.Sprintf("config loaded from %s", cfgPath)}
	}
}

func checkADBBinary(lookPath func(string) (string, error)) func(context.Context, *config.Config) CheckResult {
	return func(_ context.Context, cfg *config.Config) CheckResult {
		if cfg == nil {
			return CheckResult{Status: theme.LevelFail, Message: "skipped: no valid config"}
		}
		path, err := lookPath(cfg.Device.ADBPath)
		if err != nil {
			return CheckResult{
				Status:  theme.LevelFail,
				Message: fmt.Sprintf("%q not found", cfg.Device.ADBPath),
				Fix:     "Install Android platform-tools or set device.adb_path / TOWERBOT_ADB_PATH",
			}
		}
		return CheckResult{Status: theme.LevelPass, Message: path}
	}
}

func checkDevice(launcher adb.Launcher) func(context.Context, *config.Config) CheckResult {
	return func(ctx context.Context, cfg *config.Config) CheckResult {
		if cfg == nil || launcher == nil {
			return CheckResult{Status: theme.LevelFail, Message: "skipped: no valid config"}
		}
		ctx, cancel := context.WithTimeout(ctx, probeTimeout)
		defer cancel()

		// Same best-effort handshake a session starts with.
		_, _ = launcher.Run(ctx, "connect", cfg.Device.Serial)
		out, err := launcher.Run(ctx, "-s", cfg.Device.Serial, "get-state")
		state := strings.TrimSpace(string(out))
		switch {
		case err != nil:
			return CheckResult{
				Status:  theme.LevelFail,
				Message: fmt.Sprintf("%s unreachable: %v", cfg.Device.Serial, err),
				Fix:     "Start the emulator and check device.serial against 'adb devices'",
			}
		case state != "device":
			return CheckResult{
				Status:  theme.LevelWarn,
				Message: fmt.Sprintf("%s is %q", cfg.Device.Serial, state),
				Fix:     "Wait for the emulator to finish booting",
			}
		}
		return CheckResult{Status: theme.LevelPass, Message: fmt.Sprintf("%s online", cfg.Device.Serial)}
	}
}

func checkCapture(launcher adb.Launcher) func(context.Context, *config.Config) CheckResult {
	return func(ctx context.Context, cfg *config.Config) CheckResult {
		if cfg == nil || launcher == nil {
			return CheckResult{Status: theme.LevelFail, Message: "skipped: no valid config"}
		}
		c := adb.NewCapturer(domain.Serial(cfg.Device.Serial), launcher,
			adb.WithCaptureTimeout(cfg.Device.CaptureTimeout), adb.WithSettleDelay(0))
		frame, err := c.Capture(ctx)
		if err != nil {
			return CheckResult{
				Status:  theme.LevelFail,
				Message: fmt.Sprintf("capture failed [%s]: %v", domain.ErrorCodeOf(err), err),
			}
		}
		return CheckResult{Status: theme.LevelPass, Message: fmt.Sprintf("%dx%d frame", frame.Width, frame.Height)}
	}
}
