package board

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"towerbot/internal/domain"
	"towerbot/internal/infra/config"
)

func TestTileToScreen(t *testing.T) {
	tests := []struct {
		col, row int
		want     domain.Point
	}{
		{1, 1, domain.Point{X: 67.25, Y: 966.25}},
		{18, 21, domain.Point{X: 653.75, Y: 416.25}},
		{0, 0, domain.Point{X: 32.75, Y: 993.75}},
		{-1, 40, domain.Point{X: -1.75, Y: -106.25}},
	}
	for _, tt := range tests {
		got := TileToScreen(tt.col, tt.row)
		assert.InDelta(t, tt.want.X, got.X, 1e-9, "x of (%d, %d)", tt.col, tt.row)
		assert.InDelta(t, tt.want.Y, got.Y, 1e-9, "y of (%d, %d)", tt.col, tt.row)
	}
}

func TestTileToScreenDeterministic(t *testing.T) {
	for col := -2; col <= 20; col++ {
		for row := -2; row <= 34; row++ {
			assert.Equal(t, TileToScreen(col, row), TileToScreen(col, row))
		}
	}
}

func TestTileToScreenSteps(t *testing.T) {
	g := DefaultGeometry
	base := g.TileToScreen(domain.Tile{Col: 5, Row: 5})

	right := g.TileToScreen(domain.Tile{Col: 6, Row: 5})
	assert.InDelta(t, g.TileWidth, right.X-base.X, 1e-9)
	assert.Equal(t, base.Y, right.Y)

	up := g.TileToScreen(domain.Tile{Col: 5, Row: 6})
	assert.InDelta(t, -g.TileHeight, up.Y-base.Y, 1e-9, "higher rows are nearer the top of the screen")
	assert.Equal(t, base.X, up.X)
}

func TestGeometryFromConfig(t *testing.T) {
	assert.Equal(t, DefaultGeometry, GeometryFromConfig(config.Defaults().Board))

	cfg := config.Defaults().Board
	cfg.OffsetY = 0
	g := GeometryFromConfig(cfg)
	assert.InDelta(t, 866.25, g.TileToScreen(domain.Tile{Col: 1, Row: 1}).Y, 1e-9)
}

func TestIsValidTile(t *testing.T) {
	tests := []struct {
		col, row    int
		left, right bool
		want        bool
	}{
		{0, 5, true, true, false},
		{5, 0, false, false, true},
		{5, -1, false, false, false},
		{7, 1, true, true, true},
		{12, 1, true, true, true},
		{6, 1, true, true, false},
		{3, 1, true, true, false},
		{13, 1, true, true, false},
		{19, 5, false, false, false},
		{5, 22, false, false, false},
		{1, 15, false, false, false},
		{18, 18, false, false, false},
		{2, 15, true, true, true},
		{4, 16, false, false, false},
		{15, 17, false, false, false},
		{5, 20, true, true, false},
		{5, 20, false, false, true},
		{10, 20, true, false, true},
		{10, 20, false, true, false},
		{9, 21, false, true, true},
		{1, 14, true, true, true},
	}
	for _, tt := range tests {
		got := IsValidTile(tt.col, tt.row, tt.left, tt.right)
		assert.Equal(t, tt.want, got, "IsValidTile(%d, %d, %v, %v)", tt.col, tt.row, tt.left, tt.right)
	}
}

func TestArenaCheckFirstRuleWins(t *testing.T) {
	a := DefaultArena
	both := domain.BothTowersAlive
	none := domain.TowerState{}

	assert.Equal(t, RuleBelowBoard, a.Check(domain.Tile{Col: 0, Row: 30}, both))
	assert.Equal(t, RuleAboveBoard, a.Check(domain.Tile{Col: 19, Row: 1}, both))
	assert.Equal(t, RuleKingRow, a.Check(domain.Tile{Col: 2, Row: 1}, both))
	assert.Equal(t, RuleRiverCorner, a.Check(domain.Tile{Col: 1, Row: 18}, both))
	assert.Equal(t, RuleRiver, a.Check(domain.Tile{Col: 9, Row: 16}, both))
	assert.Equal(t, RuleLeftTower, a.Check(domain.Tile{Col: 3, Row: 19}, both))
	assert.Equal(t, RuleRightTower, a.Check(domain.Tile{Col: 11, Row: 19}, both))
	assert.Equal(t, "", a.Check(domain.Tile{Col: 11, Row: 19}, none))
}

func TestArenaRiverRejectsBridgeColumns(t *testing.T) {
	a := DefaultArena
	for _, col := range []int{a.BridgeLeft, a.BridgeRight} {
		for _, row := range []int{16, 17} {
			assert.False(t, a.IsValidTile(domain.Tile{Col: col, Row: row}, domain.TowerState{}),
				"(%d, %d)", col, row)
		}
	}
}

func TestArenaNeverMutatesTowerState(t *testing.T) {
	towers := domain.TowerState{LeftAlive: true, RightAlive: false}
	DefaultArena.IsValidTile(domain.Tile{Col: 5, Row: 20}, towers)
	assert.Equal(t, domain.TowerState{LeftAlive: true, RightAlive: false}, towers)
}

func TestArenaFromConfig(t *testing.T) {
	assert.Equal(t, DefaultArena, ArenaFromConfig(config.Defaults().Board))

	cfg := config.Defaults().Board
	cfg.MaxRow = 14
	a := ArenaFromConfig(cfg)
	assert.False(t, a.IsValidTile(domain.Tile{Col: 5, Row: 15}, domain.TowerState{}))
	assert.Equal(t, 4, a.BridgeLeft)
}

func TestArenaValidate(t *testing.T) {
	require.NoError(t, DefaultArena.Validate(domain.Tile{Col: 7, Row: 1}, domain.BothTowersAlive))

	err := DefaultArena.Validate(domain.Tile{Col: 3, Row: 1}, domain.BothTowersAlive)
	require.ErrorIs(t, err, domain.ErrInvalidArgument)
	assert.Equal(t, domain.CodeTileNotPlaceable, domain.ErrorCodeOf(err))
	assert.Contains(t, err.Error(), RuleKingRow)
}
