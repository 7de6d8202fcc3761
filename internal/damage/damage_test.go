package damage

import (
	"testing"

	xgbdamage "github.com/BurntSushi/xgb/damage"
	"github.com/BurntSushi/xgb/xproto"

	"github.com/wmcore/compositor/internal/region"
	"github.com/wmcore/compositor/internal/window"
)

// fakeConn is a minimal damage.Conn double: DamageSubtractFetch returns
// whatever region is queued via nextParts, and both methods just record
// that they were called.
type fakeConn struct {
	nextParts    region.Set
	noFetchCalls int
	fetchCalls   int
}

func (f *fakeConn) DamageSubtractNoFetch(d xgbdamage.Damage) error {
	f.noFetchCalls++
	return nil
}

func (f *fakeConn) DamageSubtractFetch(d xgbdamage.Damage) (region.Set, error) {
	f.fetchCalls++
	return f.nextParts, nil
}

func (f *fakeConn) RegionFromRects(rects []xproto.Rectangle) region.Set {
	return region.NewLocalSetFromRects(rects)
}

func newExtents(rects ...xproto.Rectangle) region.Set {
	return region.NewLocalSetFromRects(rects)
}

func rectArea(rects []xproto.Rectangle) int {
	total := 0
	for _, r := range rects {
		total += int(r.Width) * int(r.Height)
	}
	return total
}

// First DamageNotify on a window: the whole extents region is added, and
// the damage is acknowledged without a fetch (spec.md §4.5).
func TestRepairFirstDamageUsesExtents(t *testing.T) {
	all := region.NewLocalSet()
	agg := New(all)

	w := &window.Window{}
	w.Extents = newExtents(xproto.Rectangle{X: 0, Y: 0, Width: 100, Height: 50})

	conn := &fakeConn{}
	if err := agg.Repair(conn, w); err != nil {
		t.Fatal(err)
	}

	if conn.noFetchCalls != 1 || conn.fetchCalls != 0 {
		t.Fatalf("expected one no-fetch ack and no fetch, got %d/%d", conn.noFetchCalls, conn.fetchCalls)
	}
	if !w.Damage.EverDamaged || !w.Damaged {
		t.Fatal("expected EverDamaged and Damaged to be set")
	}

	rects, _ := all.FetchRects()
	if got := rectArea(rects); got != 5000 {
		t.Fatalf("expected all_damage area 5000, got %d", got)
	}
}

// A window's very first DamageNotify always arrives before the planner has
// ever built its Extents cache; Repair must fall back to the plain
// geometry rectangle rather than silently contributing nothing.
func TestRepairFirstDamageFallsBackToGeometryWithoutExtents(t *testing.T) {
	all := region.NewLocalSet()
	agg := New(all)

	w := &window.Window{}
	w.Geometry = window.Geometry{X: 0, Y: 0, Width: 100, Height: 100}

	conn := &fakeConn{}
	if err := agg.Repair(conn, w); err != nil {
		t.Fatal(err)
	}
	if conn.noFetchCalls != 1 {
		t.Fatalf("expected one no-fetch ack, got %d", conn.noFetchCalls)
	}

	rects, _ := all.FetchRects()
	if got := rectArea(rects); got != 10000 {
		t.Fatalf("expected all_damage area 10000 from the geometry fallback, got %d", got)
	}
}

// Subsequent DamageNotify: the fetched parts are translated by the
// window's content origin before being unioned in (spec.md §4.5).
func TestRepairSubsequentDamageTranslatesParts(t *testing.T) {
	all := region.NewLocalSet()
	agg := New(all)

	w := &window.Window{}
	w.Damage.EverDamaged = true
	w.Geometry.X, w.Geometry.Y = 10, 20
	w.Geometry.BorderWidth = 1

	conn := &fakeConn{nextParts: newExtents(xproto.Rectangle{X: 0, Y: 0, Width: 5, Height: 5})}
	if err := agg.Repair(conn, w); err != nil {
		t.Fatal(err)
	}
	if conn.fetchCalls != 1 || conn.noFetchCalls != 0 {
		t.Fatalf("expected one fetch and no no-fetch ack, got %d/%d", conn.fetchCalls, conn.noFetchCalls)
	}

	rects, _ := all.FetchRects()
	want := xproto.Rectangle{X: 11, Y: 21, Width: 5, Height: 5}
	if len(rects) != 1 || rects[0] != want {
		t.Fatalf("expected translated rect %v, got %v", want, rects)
	}
}

// Testable property 2 (spec.md §8): the union of everything Repair adds
// across a sequence of DamageNotify events before a paint is a subset of
// (here: exactly equal to, since nothing else shrinks it) the accumulated
// all_damage region the painter would repaint.
func TestDamageMonotonicity(t *testing.T) {
	all := region.NewLocalSet()
	agg := New(all)

	wa := &window.Window{}
	wa.Extents = newExtents(xproto.Rectangle{X: 0, Y: 0, Width: 10, Height: 10})
	wb := &window.Window{}
	wb.Extents = newExtents(xproto.Rectangle{X: 50, Y: 50, Width: 10, Height: 10})

	if err := agg.Repair(&fakeConn{}, wa); err != nil {
		t.Fatal(err)
	}
	if err := agg.Repair(&fakeConn{}, wb); err != nil {
		t.Fatal(err)
	}

	rects, _ := all.FetchRects()
	if got, want := rectArea(rects), 200; got < want {
		t.Fatalf("expected accumulated area at least %d, got %d", want, got)
	}

	// Everything reported as damaged must be contained in all_damage: take
	// the union of the two extents independently and confirm intersecting
	// it against all_damage changes nothing (i.e. it is already a subset).
	combined := region.NewLocalSet()
	if err := combined.UnionFrom(wa.Extents); err != nil {
		t.Fatal(err)
	}
	if err := combined.UnionFrom(wb.Extents); err != nil {
		t.Fatal(err)
	}
	before, _ := combined.FetchRects()

	if err := combined.IntersectFrom(all); err != nil {
		t.Fatal(err)
	}
	after, _ := combined.FetchRects()

	if rectArea(after) != rectArea(before) {
		t.Fatalf("damaged extents not a subset of all_damage: before=%d after-intersect=%d", rectArea(before), rectArea(after))
	}
}

// Clear empties all_damage, matching the end-of-paint-cycle reset
// (spec.md §4.10).
func TestClearEmptiesAllDamage(t *testing.T) {
	all := region.NewLocalSetFromRects([]xproto.Rectangle{{X: 0, Y: 0, Width: 10, Height: 10}})
	agg := New(all)

	if err := agg.Clear(); err != nil {
		t.Fatal(err)
	}
	empty, err := agg.Empty()
	if err != nil {
		t.Fatal(err)
	}
	if !empty {
		t.Fatal("expected all_damage empty after Clear")
	}
}

func TestAddRegion(t *testing.T) {
	all := region.NewLocalSet()
	agg := New(all)

	extra := newExtents(xproto.Rectangle{X: 0, Y: 0, Width: 3, Height: 3})
	if err := agg.AddRegion(extra); err != nil {
		t.Fatal(err)
	}
	empty, _ := agg.Empty()
	if empty {
		t.Fatal("expected non-empty all_damage after AddRegion")
	}
}
