package config

import (
	"fmt"
	"strings"
)

// ValidationError accumulates config validation errors.
type ValidationError struct {
	Errors []string
}

func (v *ValidationError) Error() string {
	return "config validation failed:\n  - " + strings.Join(v.Errors, "\n  - ")
}

// HasErrors reports whether any validation errors have been recorded.
func (v *ValidationError) HasErrors() bool {
	return len(v.Errors) > 0
}

// Add records a formatted validation error.
func (v *ValidationError) Add(format string, args ...interface{}) {
	v.Errors = append(v.Errors, fmt.Sprintf(format, args...))
}

// Validate checks cfg for structural correctness. It returns a *ValidationError
// when one or more problems are found, allowing callers to inspect all issues.
func Validate(cfg *Config) error {
	ve := &ValidationError{}
	validateDevice(cfg, ve)
	validateBoard(cfg, ve)
	validateCapture(cfg, ve)
	validatePilot(cfg, ve)
	validateUI(cfg, ve)
	validateLogger(cfg, ve)
	validateTracer(cfg, ve)
	if ve.HasErrors() {
		return ve
	}
	return nil
}

func validateDevice(cfg *Config, ve *ValidationError) {
	d := cfg.Device
	if strings.TrimSpace(d.ADBPath) == "" {
		ve.Add("device.adb_path must not be empty")
	}
	if strings.TrimSpace(d.Serial) == "" {
		ve.Add("device.serial must not be empty")
	}
	if d.ConnectTimeout <= 0 {
		ve.Add("device.connect_timeout must be > 0")
	}
	if d.CaptureTimeout <= 0 {
		ve.Add("device.capture_timeout must be > 0")
	}
	if d.SettleDelay < 0 {
		ve.Add("device.settle_delay must be >= 0")
	}
	if d.CloseDelay < 0 {
		ve.Add("device.close_delay must be >= 0")
	}
}

func validateBoard(cfg *Config, ve *ValidationError) {
	b := cfg.Board
	if b.TileWidth <= 0 {
		ve.Add("board.tile_width must be > 0")
	}
	if b.TileHeight <= 0 {
		ve.Add("board.tile_height must be > 0")
	}
	if b.Rows <= 0 {
		ve.Add("board.rows must be > 0")
	}
	if b.MaxCol < b.MinCol {
		ve.Add("board.max_col (%d) must be >= board.min_col (%d)", b.MaxCol, b.MinCol)
	}
	if b.MaxRow < b.MinRow {
		ve.Add("board.max_row (%d) must be >= board.min_row (%d)", b.MaxRow, b.MinRow)
	}
}

func validateCapture(cfg *Config, ve *ValidationError) {
	br := cfg.Capture.Breaker
	if !br.Enabled {
		return
	}
	if br.MaxFailures == 0 {
		ve.Add("capture.breaker.max_failures must be > 0 when the breaker is enabled")
	}
	if br.Timeout <= 0 {
		ve.Add("capture.breaker.timeout must be > 0 when the breaker is enabled")
	}
	if br.Interval < 0 {
		ve.Add("capture.breaker.interval must be >= 0")
	}
}

func validatePilot(cfg *Config, ve *ValidationError) {
	p := cfg.Pilot
	if p.CyclesPerSecond <= 0 {
		ve.Add("pilot.cycles_per_second must be > 0")
	}
	if p.Burst <= 0 {
		ve.Add("pilot.burst must be > 0")
	}
	if p.MaxCycles < 0 {
		ve.Add("pilot.max_cycles must be >= 0")
	}
}

func validateUI(cfg *Config, ve *ValidationError) {
	u := cfg.UI
	if u.StepPause < 0 {
		ve.Add("ui.step_pause must be >= 0")
	}
	if u.CardSlots <= 0 {
		ve.Add("ui.card_slots must be > 0")
	}
	if u.CardSpacing <= 0 {
		ve.Add("ui.card_spacing must be > 0")
	}
	buttons := map[string]Button{
		"clan_tab":         u.ClanTab,
		"clan_chat":        u.ClanChat,
		"challenge_menu":   u.ChallengeMenu,
		"challenge_create": u.ChallengeCreate,
		"challenge_accept": u.ChallengeAccept,
		"exit_match":       u.ExitMatch,
	}
	for name, b := range buttons {
		if b.X < 0 || b.Y < 0 {
			ve.Add("ui.%s must have non-negative coordinates, got (%g, %g)", name, b.X, b.Y)
		}
	}
}

var validLogLevels = map[string]bool{
	"debug": true, "info": true, "warn": true, "warning": true, "error": true,
}

func validateLogger(cfg *Config, ve *ValidationError) {
	if lvl := strings.ToLower(cfg.Logger.Level); lvl != "" && !validLogLevels[lvl] {
		ve.Add("logger.level %q is not one of debug, info, warn, error", cfg.Logger.Level)
	}
	switch strings.ToLower(cfg.Logger.Format) {
	case "", "text", "json":
	default:
		ve.Add("logger.format %q must be \"text\" or \"json\"", cfg.Logger.Format)
	}
}

func validateTracer(cfg *Config, ve *ValidationError) {
	switch cfg.Tracer.Exporter {
	case "", "noop", "stdout":
	default:
		ve.Add("tracer.exporter %q is not supported (use \"noop\" or \"stdout\")", cfg.Tracer.Exporter)
	}
}
