package systems

import (
	"slices"

	"github.com/mlange-42/ark/ecs"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/tilenav/components"
)

// occupancyEntry records where an occupant was last reported.
type occupancyEntry struct {
	key  TileKey
	pos  r2.Vec
	kind components.OccupantKind
}

// OccupancyIndex is a hashed tile grid mapping tile keys to the entities
// standing on them. An entity is registered in at most one tile at a time.
//
// The index is not safe for concurrent use; the simulation mutates it from a
// single goroutine between searches.
type OccupancyIndex struct {
	grid    TileGrid
	cells   map[TileKey][]ecs.Entity
	entries map[ecs.Entity]*occupancyEntry

	// staticVersion changes whenever a static occupant is added, moved or removed.
	staticVersion uint64
}

// NewOccupancyIndex creates an empty index over the given grid.
func NewOccupancyIndex(grid TileGrid) *OccupancyIndex {
	return &OccupancyIndex{
		grid:    grid,
		cells:   make(map[TileKey][]ecs.Entity, grid.Width*grid.Height/4),
		entries: make(map[ecs.Entity]*occupancyEntry),
	}
}

// Grid returns the tile geometry of the index.
func (o *OccupancyIndex) Grid() TileGrid {
	return o.grid
}

// Upsert relocates an occupant to the tile containing pos, registering it if
// it is new. Cell membership only changes when the tile key changes.
// Returns true when the occupant changed cell.
func (o *OccupancyIndex) Upsert(e ecs.Entity, kind components.OccupantKind, pos r2.Vec) bool {
	newKey := o.grid.Key(pos)
	entry, ok := o.entries[e]
	if !ok {
		o.entries[e] = &occupancyEntry{key: newKey, pos: pos, kind: kind}
		o.cells[newKey] = append(o.cells[newKey], e)
		o.touch(kind)
		return true
	}

	entry.pos = pos
	if entry.kind != kind {
		entry.kind = kind
		o.staticVersion++
	}
	if entry.key == newKey {
		return false
	}

	o.removeFromCell(entry.key, e)
	o.cells[newKey] = append(o.cells[newKey], e)
	entry.key = newKey
	o.touch(kind)
	return true
}

// Remove unregisters an occupant. Returns false if it was not registered.
func (o *OccupancyIndex) Remove(e ecs.Entity) bool {
	entry, ok := o.entries[e]
	if !ok {
		return false
	}
	o.removeFromCell(entry.key, e)
	delete(o.entries, e)
	o.touch(entry.kind)
	return true
}

func (o *OccupancyIndex) removeFromCell(key TileKey, e ecs.Entity) {
	cell := o.cells[key]
	if i := slices.Index(cell, e); i >= 0 {
		cell = slices.Delete(cell, i, i+1)
	}
	if len(cell) == 0 {
		delete(o.cells, key)
		return
	}
	o.cells[key] = cell
}

func (o *OccupancyIndex) touch(kind components.OccupantKind) {
	if kind == components.KindStatic {
		o.staticVersion++
	}
}

// OccupantAt returns the first occupant registered in the tile containing pos.
func (o *OccupancyIndex) OccupantAt(pos r2.Vec) (ecs.Entity, bool) {
	cell := o.cells[o.grid.Key(pos)]
	if len(cell) == 0 {
		return ecs.Entity{}, false
	}
	return cell[0], true
}

// IsBlocked reports whether any occupant stands in the tile containing pos.
func (o *OccupancyIndex) IsBlocked(pos r2.Vec) bool {
	return len(o.cells[o.grid.Key(pos)]) > 0
}

// IsBlockedFor reports whether the tile containing pos holds anything other
// than self.
func (o *OccupancyIndex) IsBlockedFor(pos r2.Vec, self ecs.Entity) bool {
	for _, e := range o.cells[o.grid.Key(pos)] {
		if e != self {
			return true
		}
	}
	return false
}

// IsBlockedByStatic reports whether a static occupant stands in the tile.
func (o *OccupancyIndex) IsBlockedByStatic(pos r2.Vec) bool {
	for _, e := range o.cells[o.grid.Key(pos)] {
		if o.entries[e].kind == components.KindStatic {
			return true
		}
	}
	return false
}

// IsBlockedByDynamic reports whether the tile is occupied by mobile
// occupants only.
func (o *OccupancyIndex) IsBlockedByDynamic(pos r2.Vec) bool {
	cell := o.cells[o.grid.Key(pos)]
	if len(cell) == 0 {
		return false
	}
	for _, e := range cell {
		if o.entries[e].kind != components.KindMobile {
			return false
		}
	}
	return true
}

// QueryRect returns every occupant whose reported position lies inside the
// rectangle [min, max]. Only cells covered by the rectangle are scanned.
func (o *OccupancyIndex) QueryRect(min, max r2.Vec) []ecs.Entity {
	if max.X < min.X {
		min.X, max.X = max.X, min.X
	}
	if max.Y < min.Y {
		min.Y, max.Y = max.Y, min.Y
	}
	minX, minY := o.grid.TileOf(min)
	maxX, maxY := o.grid.TileOf(max)

	var out []ecs.Entity
	for tx := minX; tx <= maxX; tx++ {
		for ty := minY; ty <= maxY; ty++ {
			for _, e := range o.cells[MakeTileKey(tx, ty)] {
				p := o.entries[e].pos
				if p.X >= min.X && p.X <= max.X && p.Y >= min.Y && p.Y <= max.Y {
					out = append(out, e)
				}
			}
		}
	}
	return out
}

// Position returns the last reported position of an occupant.
func (o *OccupancyIndex) Position(e ecs.Entity) (r2.Vec, bool) {
	entry, ok := o.entries[e]
	if !ok {
		return r2.Vec{}, false
	}
	return entry.pos, true
}

// CellOf returns the tile key an occupant is registered under.
func (o *OccupancyIndex) CellOf(e ecs.Entity) (TileKey, bool) {
	entry, ok := o.entries[e]
	if !ok {
		return 0, false
	}
	return entry.key, true
}

// Occupants returns the occupants of the tile containing pos, in insertion order.
// The returned slice must not be modified.
func (o *OccupancyIndex) Occupants(pos r2.Vec) []ecs.Entity {
	return o.cells[o.grid.Key(pos)]
}

// Len returns the number of registered occupants.
func (o *OccupancyIndex) Len() int {
	return len(o.entries)
}

// StaticVersion changes every time static occupancy changes.
func (o *OccupancyIndex) StaticVersion() uint64 {
	return o.staticVersion
}
