// Package board maps game-logical board tiles to screen pixels and decides
// which tiles a troop may be placed on.
package board

import (
	"towerbot/internal/domain"
	"towerbot/internal/infra/config"
)

// Geometry describes how the board grid sits on the captured screen.
// Row 1 is the bottom-most row while screen y grows downward, so rows are
// counted from Rows+1 when converting.
type Geometry struct {
	TileWidth  float64
	TileHeight float64
	OffsetX    float64
	OffsetY    float64
	Rows       int
}

// DefaultGeometry is the layout of the arena on a 720x1280 emulator screen.
var DefaultGeometry = Geometry{
	TileWidth:  34.5,
	TileHeight: 27.5,
	OffsetX:    50,
	OffsetY:    100,
	Rows:       32,
}

// GeometryFromConfig returns the geometry described by the board section.
func GeometryFromConfig(cfg config.BoardConfig) Geometry {
	return Geometry{
		TileWidth:  cfg.TileWidth,
		TileHeight: cfg.TileHeight,
		OffsetX:    cfg.OffsetX,
		OffsetY:    cfg.OffsetY,
		Rows:       cfg.Rows,
	}
}

// TileToScreen returns the pixel at the centre of tile t. Tiles outside the
// board still map to a point; legality is Arena's concern.
func (g Geometry) TileToScreen(t domain.Tile) domain.Point {
	return domain.Point{
		X: (float64(t.Col)-0.5)*g.TileWidth + g.OffsetX,
		Y: (float64(g.Rows+1-t.Row)-0.5)*g.TileHeight + g.OffsetY,
	}
}

// TileToScreen converts (col, row) with DefaultGeometry.
func TileToScreen(col, row int) domain.Point {
	return DefaultGeometry.TileToScreen(domain.Tile{Col: col, Row: row})
}
