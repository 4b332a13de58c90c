package systems

import (
	"testing"

	"github.com/mlange-42/ark/ecs"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/tilenav/components"
)

// All test entities come from one world so that IDs never collide across
// calls. Tests in this package do not run in parallel.
var (
	testWorld     = ecs.NewWorld()
	testOccupants = ecs.NewMap1[components.Occupant](testWorld)
)

// newTestEntities creates n live entities, distinct from every entity
// created before.
func newTestEntities(n int) []ecs.Entity {
	out := make([]ecs.Entity, n)
	for i := range out {
		out[i] = testOccupants.NewEntity(&components.Occupant{})
	}
	return out
}

// checkOccupancyInvariant verifies every occupant sits in exactly the cell
// matching its last position, with no duplicates anywhere.
func checkOccupancyInvariant(t *testing.T, o *OccupancyIndex) {
	t.Helper()
	seen := make(map[ecs.Entity]TileKey)
	for key, cell := range o.cells {
		if len(cell) == 0 {
			t.Errorf("empty cell %d left in index", key)
		}
		for _, e := range cell {
			if prev, dup := seen[e]; dup {
				t.Errorf("entity %v registered in cells %d and %d", e, prev, key)
			}
			seen[e] = key
		}
	}
	if len(seen) != len(o.entries) {
		t.Errorf("cells hold %d occupants, entries hold %d", len(seen), len(o.entries))
	}
	for e, entry := range o.entries {
		if want := o.grid.Key(entry.pos); seen[e] != want || entry.key != want {
			t.Errorf("entity %v in cell %d, position maps to %d", e, seen[e], want)
		}
	}
}

func TestTestEntitiesAreDistinct(t *testing.T) {
	a := newTestEntities(2)
	b := newTestEntities(2)
	seen := make(map[ecs.Entity]bool)
	for _, e := range append(a, b...) {
		if seen[e] {
			t.Fatalf("entity %v handed out twice", e)
		}
		seen[e] = true
	}
}

func TestOccupancyUpsertMovesBetweenCells(t *testing.T) {
	o := NewOccupancyIndex(NewTileGrid(16, 10, 10))
	e := newTestEntities(1)[0]

	if !o.Upsert(e, components.KindMobile, r2.Vec{X: 8, Y: 8}) {
		t.Fatal("first upsert should register the occupant")
	}
	if o.Upsert(e, components.KindMobile, r2.Vec{X: 15, Y: 1}) {
		t.Error("moving within a tile should not change cell")
	}
	if got, _ := o.Position(e); got != (r2.Vec{X: 15, Y: 1}) {
		t.Errorf("position not updated within tile: %v", got)
	}
	if !o.Upsert(e, components.KindMobile, r2.Vec{X: 17, Y: 1}) {
		t.Error("crossing a tile edge should change cell")
	}
	if o.IsBlocked(r2.Vec{X: 8, Y: 8}) {
		t.Error("old tile still blocked after move")
	}
	if !o.IsBlocked(r2.Vec{X: 24, Y: 8}) {
		t.Error("new tile should be blocked")
	}
	checkOccupancyInvariant(t, o)
}

func TestOccupancyRemove(t *testing.T) {
	o := NewOccupancyIndex(NewTileGrid(16, 10, 10))
	ents := newTestEntities(2)

	o.Upsert(ents[0], components.KindMobile, r2.Vec{X: 8, Y: 8})
	o.Upsert(ents[1], components.KindMobile, r2.Vec{X: 9, Y: 9})

	if !o.Remove(ents[0]) {
		t.Fatal("remove of registered occupant returned false")
	}
	if o.Remove(ents[0]) {
		t.Error("second remove should return false")
	}
	got, ok := o.OccupantAt(r2.Vec{X: 8, Y: 8})
	if !ok || got != ents[1] {
		t.Errorf("OccupantAt = %v, %v; want %v", got, ok, ents[1])
	}
	o.Remove(ents[1])
	if o.IsBlocked(r2.Vec{X: 8, Y: 8}) {
		t.Error("tile should be free after removing every occupant")
	}
	if o.Len() != 0 {
		t.Errorf("Len = %d, want 0", o.Len())
	}
	checkOccupancyInvariant(t, o)
}

func TestOccupantAtReturnsFirstInserted(t *testing.T) {
	o := NewOccupancyIndex(NewTileGrid(16, 10, 10))
	ents := newTestEntities(3)
	for _, e := range ents {
		o.Upsert(e, components.KindMobile, r2.Vec{X: 40, Y: 40})
	}
	got, ok := o.OccupantAt(r2.Vec{X: 33, Y: 47})
	if !ok || got != ents[0] {
		t.Errorf("OccupantAt = %v, want %v", got, ents[0])
	}
	if _, ok := o.OccupantAt(r2.Vec{X: 1, Y: 1}); ok {
		t.Error("empty tile should have no occupant")
	}
}

func TestOccupancyKinds(t *testing.T) {
	o := NewOccupancyIndex(NewTileGrid(16, 10, 10))
	ents := newTestEntities(3)
	tree, unit, other := ents[0], ents[1], ents[2]

	o.Upsert(tree, components.KindStatic, r2.Vec{X: 8, Y: 8})
	o.Upsert(unit, components.KindMobile, r2.Vec{X: 24, Y: 8})

	tests := []struct {
		name             string
		pos              r2.Vec
		static, dynamic  bool
		blockedForUnit   bool
		blockedForOther  bool
	}{
		{"tree tile", r2.Vec{X: 8, Y: 8}, true, false, true, true},
		{"unit tile", r2.Vec{X: 24, Y: 8}, false, true, false, true},
		{"free tile", r2.Vec{X: 40, Y: 8}, false, false, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := o.IsBlockedByStatic(tt.pos); got != tt.static {
				t.Errorf("IsBlockedByStatic = %v, want %v", got, tt.static)
			}
			if got := o.IsBlockedByDynamic(tt.pos); got != tt.dynamic {
				t.Errorf("IsBlockedByDynamic = %v, want %v", got, tt.dynamic)
			}
			if got := o.IsBlockedFor(tt.pos, unit); got != tt.blockedForUnit {
				t.Errorf("IsBlockedFor(unit) = %v, want %v", got, tt.blockedForUnit)
			}
			if got := o.IsBlockedFor(tt.pos, other); got != tt.blockedForOther {
				t.Errorf("IsBlockedFor(other) = %v, want %v", got, tt.blockedForOther)
			}
		})
	}
}

func TestOccupancyStaticVersion(t *testing.T) {
	o := NewOccupancyIndex(NewTileGrid(16, 10, 10))
	ents := newTestEntities(2)

	v0 := o.StaticVersion()
	o.Upsert(ents[0], components.KindMobile, r2.Vec{X: 8, Y: 8})
	o.Upsert(ents[0], components.KindMobile, r2.Vec{X: 40, Y: 8})
	if o.StaticVersion() != v0 {
		t.Error("mobile moves should not change the static version")
	}
	o.Upsert(ents[1], components.KindStatic, r2.Vec{X: 8, Y: 40})
	v1 := o.StaticVersion()
	if v1 == v0 {
		t.Error("adding a static occupant should change the static version")
	}
	o.Remove(ents[1])
	if o.StaticVersion() == v1 {
		t.Error("removing a static occupant should change the static version")
	}
}

func TestQueryRectUsesPositionNotCell(t *testing.T) {
	o := NewOccupancyIndex(NewTileGrid(16, 10, 10))
	ents := newTestEntities(3)

	o.Upsert(ents[0], components.KindMobile, r2.Vec{X: 2, Y: 2})   // tile (0,0), inside
	o.Upsert(ents[1], components.KindMobile, r2.Vec{X: 14, Y: 14}) // tile (0,0), outside rect
	o.Upsert(ents[2], components.KindMobile, r2.Vec{X: 20, Y: 4})  // tile (1,0), inside

	got := o.QueryRect(r2.Vec{X: 24, Y: 0}, r2.Vec{X: 0, Y: 10})
	if len(got) != 2 {
		t.Fatalf("QueryRect returned %d occupants, want 2: %v", len(got), got)
	}
	found := map[ecs.Entity]bool{}
	for _, e := range got {
		found[e] = true
	}
	if !found[ents[0]] || !found[ents[2]] || found[ents[1]] {
		t.Errorf("QueryRect = %v, want %v and %v", got, ents[0], ents[2])
	}
}

func TestOccupancyInvariantAfterChurn(t *testing.T) {
	o := NewOccupancyIndex(NewTileGrid(16, 20, 20))
	ents := newTestEntities(16)

	// Deterministic pseudo-random walk.
	state := uint32(7)
	next := func(n int) int {
		state = state*1103515245 + 12345
		return int(state>>16) % n
	}
	for step := 0; step < 2000; step++ {
		e := ents[next(len(ents))]
		switch next(5) {
		case 0:
			o.Remove(e)
		default:
			pos := r2.Vec{X: float64(next(320)), Y: float64(next(320))}
			o.Upsert(e, components.KindMobile, pos)
		}
	}
	checkOccupancyInvariant(t, o)
}
