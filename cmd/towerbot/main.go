package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
)

func main() {
	if len(os.Args) < 2 {
		showUsage()
		os.Exit(2)
	}

	flags, args := parseArgs(os.Args[2:])
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var err error
	switch os.Args[1] {
	case "--help", "-h", "help":
		showUsage()
		return
	case "tap":
		err = runTap(ctx, flags, args)
	case "tile":
		err = runTile(ctx, flags, args)
	case "check":
		err = runCheck(flags, args)
	case "screencap":
		err = runScreencap(ctx, flags, args)
	case "play":
		err = runPlay(ctx, flags, args)
	case "doctor":
		err = runDoctor(ctx, flags)
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\nRun 'towerbot --help' for usage information.\n", os.Args[1])
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", os.Args[1], err)
		stop()
		os.Exit(1)
	}
}

func showUsage() {
	fmt.Println(`towerbot - drive a tower-defense game on an Android emulator

USAGE:
    towerbot COMMAND [ARGS] [FLAGS]

COMMANDS:
    tap X Y             Tap a screen pixel
    tile COL ROW        Tap the centre of a board tile (refuses illegal tiles)
    check COL ROW       Report whether a troop may be placed on a tile
    screencap OUT.png   Capture the screen to a PNG file
    play SCRIPT.yaml    Play a scripted sequence of placements
    doctor              Check adb, the device and the config

FLAGS:
    -h, --help          Show this help message
    --config PATH       Config file (default: ./towerbot.yaml)
    --serial SERIAL     Device serial, overrides device.serial
    --left-dead         Treat the left enemy tower as destroyed (tile, check)
    --right-dead        Treat the right enemy tower as destroyed (tile, check)
    --force             Tap the tile even when it is not placeable (tile)

CONFIGURATION:
    Config file: ./towerbot.yaml (missing file means defaults)
    Environment: TOWERBOT_* variables override the file

EXAMPLES:
    towerbot tap 360 640
    towerbot check 5 20 --left-dead
    towerbot screencap frame.png --serial emulator-5554
    towerbot play opening.yaml`)
}

// cliFlags holds the flags shared by all commands.
type cliFlags struct {
	ConfigPath string
	Serial     string
	LeftDead   bool
	RightDead  bool
	Force      bool
}

// parseArgs splits args into known flags and positional arguments.
func parseArgs(args []string) (cliFlags, []string) {
	var flags cliFlags
	var rest []string
	for i := 0; i < len(args); i++ {
		a := args[i]
		switch {
		case a == "--config" && i+1 < len(args):
			flags.ConfigPath = args[i+1]
			i++
		case strings.HasPrefix(a, "--config="):
			flags.ConfigPath = strings.TrimPrefix(a, "--config=")
		case a == "--serial" && i+1 < len(args):
			flags.Serial = args[i+1]
			i++
		case strings.HasPrefix(a, "--serial="):
			flags.Serial = strings.TrimPrefix(a, "--serial=")
		case a == "--left-dead":
			flags.LeftDead = true
		case a == "--right-dead":
			flags.RightDead = true
		case a == "--force":
			flags.Force = true
		default:
			rest = append(rest, a)
		}
	}
	return flags, rest
}

// configPath resolves the config file: --config, then TOWERBOT_CONFIG.
func (f cliFlags) configPath() string {
	if f.ConfigPath != "" {
		return f.ConfigPath
	}
	if p := os.Getenv("TOWERBOT_CONFIG"); p != "" {
		return p
	}
	return "towerbot.yaml"
}

func parseFloatPair(args []string, what string) (float64, float64, error) {
	if len(args) != 2 {
		return 0, 0, fmt.Errorf("expected %s, got %d argument(s)", what, len(args))
	}
	a, err := strconv.ParseFloat(args[0], 64)
	if err != nil {
		return 0, 0, fmt.Errorf("parse %q: %w", args[0], err)
	}
	b, err := strconv.ParseFloat(args[1], 64)
	if err != nil {
		return 0, 0, fmt.Errorf("parse %q: %w", args[1], err)
	}
	return a, b, nil
}

func parseIntPair(args []string, what string) (int, int, error) {
	if len(args) != 2 {
		return 0, 0, fmt.Errorf("expected %s, got %d argument(s)", what, len(args))
	}
	a, err := strconv.Atoi(args[0])
	if err != nil {
		return 0, 0, fmt.Errorf("parse %q: %w", args[0], err)
	}
	b, err := strconv.Atoi(args[1])
	if err != nil {
		return 0, 0, fmt.Errorf("parse %q: %w", args[1], err)
	}
	return a, b, nil
}
