package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level application configuration.
type Config struct {
	Device  DeviceConfig  `yaml:"device"`
	Board   BoardConfig   `yaml:"board"`
	Capture CaptureConfig `yaml:"capture"`
	Pilot   PilotConfig   `yaml:"pilot"`
	UI      UIConfig      `yaml:"ui"`
	Logger  LoggerConfig  `yaml:"logger"`
	Tracer  TracerConfig  `yaml:"tracer"`

	// Layouts names screen layout files overlaid before this file's own
	// values, which take precedence.
	Layouts []string `yaml:"layouts,omitempty"`
}

// DeviceConfig holds the device bridge and settle timing settings.
type DeviceConfig struct {
	ADBPath        string        `yaml:"adb_path"`
	Serial         string        `yaml:"serial"`
	ConnectTimeout time.Duration `yaml:"connect_timeout"` // bounds the best-effort handshake
	CaptureTimeout time.Duration `yaml:"capture_timeout"` // bounds one screencap run
	SettleDelay    time.Duration `yaml:"settle_delay"`    // after every tap and capture
	CloseDelay     time.Duration `yaml:"close_delay"`     // before tearing the shell down
}

// BoardConfig holds board geometry and arena bounds.
type BoardConfig struct {
	TileWidth  float64 `yaml:"tile_width"`
	TileHeight float64 `yaml:"tile_height"`
	OffsetX    float64 `yaml:"offset_x"`
	OffsetY    float64 `yaml:"offset_y"`
	Rows       int     `yaml:"rows"`

	MinCol int `yaml:"min_col"`
	MinRow int `yaml:"min_row"`
	MaxCol int `yaml:"max_col"`
	MaxRow int `yaml:"max_row"`
}

// CaptureConfig holds frame capture guard settings.
type CaptureConfig struct {
	Breaker BreakerConfig `yaml:"breaker"`
}

// BreakerConfig holds circuit breaker settings for the capture path.
type BreakerConfig struct {
	Enabled     bool          `yaml:"enabled"`
	MaxFailures uint32        `yaml:"max_failures"`
	Timeout     time.Duration `yaml:"timeout"`
	Interval    time.Duration `yaml:"interval"`
}

// PilotConfig holds capture/act loop settings.
type PilotConfig struct {
	CyclesPerSecond float64 `yaml:"cycles_per_second"`
	Burst           int     `yaml:"burst"`
	MaxCycles       int     `yaml:"max_cycles"` // 0 = until cancelled
}

// UIConfig holds the screen positions of the game's menu buttons and hand.
type UIConfig struct {
	StepPause time.Duration `yaml:"step_pause"` // between taps of one menu action

	ClanTab         Button `yaml:"clan_tab"`
	ClanChat        Button `yaml:"clan_chat"`
	ChallengeMenu   Button `yaml:"challenge_menu"`
	ChallengeCreate Button `yaml:"challenge_create"`
	ChallengeAccept Button `yaml:"challenge_accept"`
	ExitMatch       Button `yaml:"exit_match"`

	CardOriginX float64 `yaml:"card_origin_x"`
	CardSpacing float64 `yaml:"card_spacing"`
	CardY       float64 `yaml:"card_y"`
	CardSlots   int     `yaml:"card_slots"`
}

// Button is a fixed tap target on screen.
type Button struct {
	X float64 `yaml:"x"`
	Y float64 `yaml:"y"`
}

// LoggerConfig holds logging settings.
type LoggerConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// TracerConfig holds tracing settings.
type TracerConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Exporter string `yaml:"exporter"`
}

// Defaults returns a Config with sensible defaults.
func Defaults() *Config {
	return &Config{
		Device: DeviceConfig{
			ADBPath:        "adb",
			Serial:         "127.0.0.1:5555",
			ConnectTimeout: 5 * time.Second,
			CaptureTimeout: 10 * time.Second,
			SettleDelay:    100 * time.Millisecond,
			CloseDelay:     250 * time.Millisecond,
		},
		Board: BoardConfig{
			TileWidth:  34.5,
			TileHeight: 27.5,
			OffsetX:    50,
			OffsetY:    100,
			Rows:       32,
			MinCol:     1,
			MinRow:     0,
			MaxCol:     18,
			MaxRow:     21,
		},
		Capture: CaptureConfig{
			Breaker: BreakerConfig{
				Enabled:     true,
				MaxFailures: 3,
				Timeout:     10 * time.Second,
				Interval:    time.Minute,
			},
		},
		Pilot: PilotConfig{
			CyclesPerSecond: 2,
			Burst:           1,
		},
		UI: UIConfig{
			StepPause:       time.Second,
			ClanTab:         Button{X: 480, Y: 1215},
			ClanChat:        Button{X: 685, Y: 125},
			ChallengeMenu:   Button{X: 295, Y: 1080},
			ChallengeCreate: Button{X: 360, Y: 360},
			ChallengeAccept: Button{X: 565, Y: 940},
			ExitMatch:       Button{X: 360, Y: 1160},
			CardOriginX:     155,
			CardSpacing:     137.5,
			CardY:           1150,
			CardSlots:       4,
		},
		Logger: LoggerConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
		Tracer: TracerConfig{
			Enabled:  false,
			Exporter: "noop",
		},
	}
}

// Load reads a YAML config file, applies env var overrides and validates the result.
// A missing file is not an error: defaults plus env overrides are used.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			ApplyEnvOverrides(cfg)
			if err := Validate(cfg); err != nil {
				return nil, err
			}
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve config path: %w", err)
	}
	if err := validatePermissions(absPath); err != nil {
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if len(cfg.Layouts) > 0 {
		if err := applyLayouts(cfg, filepath.Dir(absPath)); err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
		cfg.Layouts = nil
	}

	ApplyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnvOverrides maps TOWERBOT_* env vars to config fields.
func ApplyEnvOverrides(cfg *Config) {
	if v := os.Getenv("TOWERBOT_ADB_PATH"); v != "" {
		cfg.Device.ADBPath = v
	}
	if v := os.Getenv("TOWERBOT_DEVICE_SERIAL"); v != "" {
		cfg.Device.Serial = v
	}
	if v := os.Getenv("TOWERBOT_DEVICE_CONNECT_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.Device.ConnectTimeout = d
		}
	}
	if v := os.Getenv("TOWERBOT_DEVICE_CAPTURE_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.Device.CaptureTimeout = d
		}
	}
	if v := os.Getenv("TOWERBOT_DEVICE_SETTLE_DELAY"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d >= 0 {
			cfg.Device.SettleDelay = d
		}
	}
	if v := os.Getenv("TOWERBOT_DEVICE_CLOSE_DELAY"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d >= 0 {
			cfg.Device.CloseDelay = d
		}
	}

	if v := os.Getenv("TOWERBOT_CAPTURE_BREAKER_ENABLED"); v == "true" {
		cfg.Capture.Breaker.Enabled = true
	} else if v == "false" {
		cfg.Capture.Breaker.Enabled = false
	}
	if v := os.Getenv("TOWERBOT_CAPTURE_BREAKER_MAX_FAILURES"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 32); err == nil && n > 0 {
			cfg.Capture.Breaker.MaxFailures = uint32(n)
		}
	}

	if v := os.Getenv("TOWERBOT_PILOT_CYCLES_PER_SECOND"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			cfg.Pilot.CyclesPerSecond = f
		}
	}
	if v := os.Getenv("TOWERBOT_PILOT_MAX_CYCLES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.Pilot.MaxCycles = n
		}
	}

	if v := os.Getenv("TOWERBOT_LOGGER_LEVEL"); v != "" {
		cfg.Logger.Level = v
	}
	if v := os.Getenv("TOWERBOT_LOGGER_FORMAT"); v != "" {
		cfg.Logger.Format = v
	}
	if v := os.Getenv("TOWERBOT_LOGGER_OUTPUT"); v != "" {
		cfg.Logger.Output = v
	}

	if v := os.Getenv("TOWERBOT_TRACER_ENABLED"); v == "true" {
		cfg.Tracer.Enabled = true
	}
	if v := os.Getenv("TOWERBOT_TRACER_EXPORTER"); v != "" {
		cfg.Tracer.Exporter = v
	}
}

// validatePermissions checks the config file is not writable by others.
func validatePermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat config: %w", err)
	}
	mode := info.Mode().Perm()
	// Allow 0600 and 0644 (readable by others but not writable)
	if mode&0o077 > 0o044 {
		return fmt.Errorf("config file %s has insecure permissions %o (want 0600 or 0644)", path, mode)
	}
	return nil
}
