package systems

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// TileKey packs integer tile coordinates into one hashable value.
// High 32 bits hold x, low 32 bits hold y.
type TileKey int64

// MakeTileKey packs tile coordinates.
func MakeTileKey(tx, ty int) TileKey {
	return TileKey(int64(tx)<<32 | int64(uint32(ty)))
}

// Coords unpacks the tile coordinates.
func (k TileKey) Coords() (tx, ty int) {
	return int(int32(k >> 32)), int(int32(uint32(k)))
}

// TileGrid describes a uniform tile map: tile edge length in world units and
// map bounds in tiles. It is a value type and cheap to copy.
type TileGrid struct {
	TileSize float64
	Width    int // tiles
	Height   int // tiles
}

// NewTileGrid creates a grid description.
func NewTileGrid(tileSize float64, widthTiles, heightTiles int) TileGrid {
	return TileGrid{TileSize: tileSize, Width: widthTiles, Height: heightTiles}
}

// TileOf converts a world position to tile coordinates.
func (g TileGrid) TileOf(p r2.Vec) (tx, ty int) {
	tx = int(math.Floor(p.X / g.TileSize))
	ty = int(math.Floor(p.Y / g.TileSize))
	return
}

// Key returns the tile key for a world position. Any two positions in the
// same tile share a key.
func (g TileGrid) Key(p r2.Vec) TileKey {
	return MakeTileKey(g.TileOf(p))
}

// Center converts tile coordinates to world coordinates (tile centre).
func (g TileGrid) Center(tx, ty int) r2.Vec {
	return r2.Vec{
		X: (float64(tx) + 0.5) * g.TileSize,
		Y: (float64(ty) + 0.5) * g.TileSize,
	}
}

// KeyCenter returns the centre of the tile identified by k.
func (g TileGrid) KeyCenter(k TileKey) r2.Vec {
	return g.Center(k.Coords())
}

// Snap moves a position to the centre of the tile containing it.
func (g TileGrid) Snap(p r2.Vec) r2.Vec {
	return g.Center(g.TileOf(p))
}

// InBounds reports whether tile coordinates lie on the map.
func (g TileGrid) InBounds(tx, ty int) bool {
	return tx >= 0 && tx < g.Width && ty >= 0 && ty < g.Height
}

// Contains reports whether a world position lies on the map.
func (g TileGrid) Contains(p r2.Vec) bool {
	return g.InBounds(g.TileOf(p))
}

// Distance is the Euclidean distance used for every cost and heuristic.
func Distance(a, b r2.Vec) float64 {
	return r2.Norm(r2.Sub(b, a))
}

// HasReached reports whether pos is within threshold of target.
func HasReached(pos, target r2.Vec, threshold float64) bool {
	return Distance(pos, target) <= threshold
}
