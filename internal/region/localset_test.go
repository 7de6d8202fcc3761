package region

import (
	"testing"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/google/go-cmp/cmp"
)

func area(rects []xproto.Rectangle) int {
	total := 0
	for _, r := range rects {
		total += int(r.Width) * int(r.Height)
	}
	return total
}

func TestUnionArea(t *testing.T) {
	a := NewLocalSetFromRects([]xproto.Rectangle{{X: 0, Y: 0, Width: 10, Height: 10}})
	b := NewLocalSetFromRects([]xproto.Rectangle{{X: 5, Y: 5, Width: 10, Height: 10}})

	if err := a.UnionFrom(b); err != nil {
		t.Fatal(err)
	}
	rects, _ := a.FetchRects()
	// 10x10 + 10x10 overlapping by 5x5 = 175.
	if got := area(rects); got != 175 {
		t.Fatalf("expected union area 175, got %d (%v)", got, rects)
	}
}

func TestIntersectDisjointIsEmpty(t *testing.T) {
	a := NewLocalSetFromRects([]xproto.Rectangle{{X: 0, Y: 0, Width: 5, Height: 5}})
	b := NewLocalSetFromRects([]xproto.Rectangle{{X: 100, Y: 100, Width: 5, Height: 5}})

	if err := a.IntersectFrom(b); err != nil {
		t.Fatal(err)
	}
	empty, err := a.Empty()
	if err != nil {
		t.Fatal(err)
	}
	if !empty {
		t.Fatalf("expected empty intersection, got %v", a.rects)
	}
}

func TestSubtractLeavesRemainder(t *testing.T) {
	a := NewLocalSetFromRects([]xproto.Rectangle{{X: 0, Y: 0, Width: 10, Height: 10}})
	b := NewLocalSetFromRects([]xproto.Rectangle{{X: 0, Y: 0, Width: 5, Height: 10}})

	if err := a.SubtractFrom(b); err != nil {
		t.Fatal(err)
	}
	rects, _ := a.FetchRects()
	if got := area(rects); got != 50 {
		t.Fatalf("expected remainder area 50, got %d (%v)", got, rects)
	}
}

func TestTranslateShiftsRects(t *testing.T) {
	a := NewLocalSetFromRects([]xproto.Rectangle{{X: 0, Y: 0, Width: 4, Height: 4}})
	if err := a.Translate(3, -2); err != nil {
		t.Fatal(err)
	}
	rects, _ := a.FetchRects()
	want := []xproto.Rectangle{{X: 3, Y: -2, Width: 4, Height: 4}}
	if diff := cmp.Diff(want, rects); diff != "" {
		t.Fatalf("translate mismatch (-want +got):\n%s", diff)
	}
}

func TestSetEmptyAndSetRects(t *testing.T) {
	a := NewLocalSetFromRects([]xproto.Rectangle{{X: 0, Y: 0, Width: 4, Height: 4}})
	if err := a.SetEmpty(); err != nil {
		t.Fatal(err)
	}
	if empty, _ := a.Empty(); !empty {
		t.Fatal("expected empty after SetEmpty")
	}
	if err := a.SetRects([]xproto.Rectangle{{X: 1, Y: 1, Width: 2, Height: 2}}); err != nil {
		t.Fatal(err)
	}
	if empty, _ := a.Empty(); empty {
		t.Fatal("expected non-empty after SetRects")
	}
}

func TestMixedBackingRejected(t *testing.T) {
	a := NewLocalSetFromRects(nil)
	var x Set = &XFixesSet{}
	if err := a.UnionFrom(x); err == nil {
		t.Fatal("expected error combining a LocalSet with an XFixesSet")
	}
}
