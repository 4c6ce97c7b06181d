package pilot

import (
	"context"
	"fmt"
	"os"
	"sync"

	"gopkg.in/yaml.v3"

	"towerbot/internal/domain"
)

// Move is one scripted placement.
type Move struct {
	Card int         `yaml:"card"`
	Tile domain.Tile `yaml:"tile"`
	// Wait is the number of idle cycles before this move.
	Wait int `yaml:"wait"`
}

// Script is a fixed sequence of placements, such as an opening.
type Script struct {
	Towers *domain.TowerState `yaml:"towers"`
	Moves  []Move             `yaml:"moves"`
}

// LoadScript reads a YAML script from path.
func LoadScript(path string) (*Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read script: %w", err)
	}
	var s Script
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse script: %w", err)
	}
	for i, m := range s.Moves {
		if m.Card < 0 || m.Wait < 0 {
			return nil, domain.NewSubSystemError(domain.SubSystemPilot, "LoadScript", domain.ErrInvalidArgument,
				fmt.Sprintf("move %d: card and wait must be >= 0", i+1))
		}
	}
	return &s, nil
}

// ScriptAnalyzer plays a Script one move per acting cycle, ignoring the
// frame, and returns ErrStop once every move has been issued.
type ScriptAnalyzer struct {
	mu     sync.Mutex
	script *Script
	next   int
	idle   int
}

// NewScriptAnalyzer returns an Analyzer for s.
func NewScriptAnalyzer(s *Script) *ScriptAnalyzer {
	return &ScriptAnalyzer{script: s}
}

// Analyze implements Analyzer.
func (a *ScriptAnalyzer) Analyze(context.Context, *domain.Frame) (Decision, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.next >= len(a.script.Moves) {
		return Decision{}, ErrStop
	}
	m := a.script.Moves[a.next]
	if a.idle < m.Wait {
		a.idle++
		return Decision{}, nil
	}
	a.next++
	a.idle = 0

	towers := domain.BothTowersAlive
	if a.script.Towers != nil {
		towers = *a.script.Towers
	}
	return Decision{Act: true, Card: m.Card, Tile: m.Tile, Towers: towers}, nil
}
