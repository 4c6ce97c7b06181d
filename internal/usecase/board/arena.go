package board

import (
	"fmt"

	"towerbot/internal/domain"
	"towerbot/internal/infra/config"
)

// Names of the placement exclusion rules, in evaluation order.
const (
	RuleBelowBoard  = "below-board"
	RuleAboveBoard  = "above-board"
	RuleKingRow     = "king-row"
	RuleRiverCorner = "river-corner"
	RuleRiver       = "river"
	RuleLeftTower   = "left-tower"
	RuleRightTower  = "right-tower"
)

// Arena holds the placement bounds of the player's half of the board.
type Arena struct {
	MinCol, MinRow int
	MaxCol, MaxRow int
	// BridgeLeft and BridgeRight are the columns that cross the river.
	BridgeLeft, BridgeRight int
}

// DefaultArena matches DefaultGeometry.
var DefaultArena = Arena{
	MinCol:      1,
	MinRow:      0,
	MaxCol:      18,
	MaxRow:      21,
	BridgeLeft:  4,
	BridgeRight: 15,
}

// ArenaFromConfig returns the arena bounds from the board section. Bridge
// columns keep their defaults.
func ArenaFromConfig(cfg config.BoardConfig) Arena {
	a := DefaultArena
	a.MinCol, a.MinRow = cfg.MinCol, cfg.MinRow
	a.MaxCol, a.MaxRow = cfg.MaxCol, cfg.MaxRow
	return a
}

// Check returns the name of the first exclusion rule that rejects t, or ""
// when a troop may be placed there. Rules are evaluated in order and the
// first match wins.
func (a Arena) Check(t domain.Tile, towers domain.TowerState) string {
	col, row := t.Col, t.Row
	switch {
	case col < a.MinCol || row < a.MinRow:
		return RuleBelowBoard
	case col > a.MaxCol || row > a.MaxRow:
		return RuleAboveBoard
	case row == 1 && (col <= 6 || col > 12):
		return RuleKingRow
	case (row == 15 || row == 18) && (col == 1 || col == 18):
		return RuleRiverCorner
	// TODO: confirm the intended bridge test (col == BridgeLeft || col == BridgeRight);
	// as written every river tile is rejected.
	case (row == 16 || row == 17) && (col != a.BridgeLeft || col != a.BridgeRight):
		return RuleRiver
	case towers.LeftAlive && row > 15 && col <= 9:
		return RuleLeftTower
	case towers.RightAlive && row > 15 && col >= 10:
		return RuleRightTower
	}
	return ""
}

// IsValidTile reports whether a troop may be placed on t.
func (a Arena) IsValidTile(t domain.Tile, towers domain.TowerState) bool {
	return a.Check(t, towers) == ""
}

// IsValidTile checks (col, row) against DefaultArena.
func IsValidTile(col, row int, leftAlive, rightAlive bool) bool {
	return DefaultArena.IsValidTile(domain.Tile{Col: col, Row: row},
		domain.TowerState{LeftAlive: leftAlive, RightAlive: rightAlive})
}

// Validate is IsValidTile as an error: it returns an ErrInvalidArgument
// naming the rule that rejected t.
func (a Arena) Validate(t domain.Tile, towers domain.TowerState) error {
	rule := a.Check(t, towers)
	if rule == "" {
		return nil
	}
	return domain.NewSubSystemError(domain.SubSystemBoard, "Arena.Validate", domain.ErrInvalidArgument,
		fmt.Sprintf("tile (%d, %d) rejected by rule %s", t.Col, t.Row, rule))
}
