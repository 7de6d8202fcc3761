package region

import (
	"slices"

	"github.com/BurntSushi/xgb/xproto"
)

// LocalSet is a pure-Go Set implementation: the pixman-style alternative
// spec.md §9 permits in place of a server-side region object. It keeps no
// connection and does no network I/O, so it is the implementation used by
// the tests of internal/damage, internal/paint, internal/session and
// internal/xevent, by internal/xtest's fake connection, and anywhere else a
// Set is needed without a live X server.
//
// Rectangles are combined by rasterizing every operand onto a shared grid
// built from the union of their edge coordinates, combining cells with the
// requested boolean operation, and re-banding the result into rectangles.
// This is the textbook coordinate-compression approach to rectangle set
// algebra and is exact, if not minimal in rectangle count.
type LocalSet struct {
	rects []xproto.Rectangle
}

// NewLocalSet returns an empty LocalSet.
func NewLocalSet() *LocalSet { return &LocalSet{} }

// NewLocalSetFromRects returns a LocalSet seeded with rects.
func NewLocalSetFromRects(rects []xproto.Rectangle) *LocalSet {
	s := &LocalSet{}
	s.rects = normalize(rects)
	return s
}

func (s *LocalSet) asLocal(other Set) (*LocalSet, bool) {
	l, ok := other.(*LocalSet)
	return l, ok
}

func (s *LocalSet) UnionFrom(src Set) error {
	o, ok := s.asLocal(src)
	if !ok {
		return errMixedBacking
	}
	s.rects = combine(s.rects, o.rects, opUnion)
	return nil
}

func (s *LocalSet) IntersectFrom(src Set) error {
	o, ok := s.asLocal(src)
	if !ok {
		return errMixedBacking
	}
	s.rects = combine(s.rects, o.rects, opIntersect)
	return nil
}

func (s *LocalSet) SubtractFrom(src Set) error {
	o, ok := s.asLocal(src)
	if !ok {
		return errMixedBacking
	}
	s.rects = combine(s.rects, o.rects, opSubtract)
	return nil
}

func (s *LocalSet) Translate(dx, dy int16) error {
	out := make([]xproto.Rectangle, len(s.rects))
	for i, r := range s.rects {
		out[i] = xproto.Rectangle{X: r.X + dx, Y: r.Y + dy, Width: r.Width, Height: r.Height}
	}
	s.rects = out
	return nil
}

func (s *LocalSet) SetEmpty() error {
	s.rects = nil
	return nil
}

func (s *LocalSet) SetRects(rects []xproto.Rectangle) error {
	s.rects = normalize(rects)
	return nil
}

func (s *LocalSet) Empty() (bool, error) { return len(s.rects) == 0, nil }

func (s *LocalSet) FetchRects() ([]xproto.Rectangle, error) {
	out := make([]xproto.Rectangle, len(s.rects))
	copy(out, s.rects)
	return out, nil
}

func (s *LocalSet) Close() {}

// normalize drops zero-area rectangles; the grid algebra below tolerates
// overlap and disorder in its input, so nothing else is needed up front.
func normalize(rects []xproto.Rectangle) []xproto.Rectangle {
	out := make([]xproto.Rectangle, 0, len(rects))
	for _, r := range rects {
		if r.Width > 0 && r.Height > 0 {
			out = append(out, r)
		}
	}
	return out
}

type setOp int

const (
	opUnion setOp = iota
	opIntersect
	opSubtract
)

func combine(a, b []xproto.Rectangle, op setOp) []xproto.Rectangle {
	if len(a) == 0 && len(b) == 0 {
		return nil
	}

	xs := edgeCoords(a, b, true)
	ys := edgeCoords(a, b, false)
	if len(xs) < 2 || len(ys) < 2 {
		return nil
	}

	covA := rasterize(a, xs, ys)
	covB := rasterize(b, xs, ys)

	cells := make([][]bool, len(xs)-1)
	for i := range cells {
		cells[i] = make([]bool, len(ys)-1)
		for j := range cells[i] {
			switch op {
			case opUnion:
				cells[i][j] = covA[i][j] || covB[i][j]
			case opIntersect:
				cells[i][j] = covA[i][j] && covB[i][j]
			case opSubtract:
				cells[i][j] = covA[i][j] && !covB[i][j]
			}
		}
	}

	return band(cells, xs, ys)
}

func edgeCoords(a, b []xproto.Rectangle, x bool) []int32 {
	seen := map[int32]bool{}
	add := func(r xproto.Rectangle) {
		if x {
			seen[int32(r.X)] = true
			seen[int32(r.X)+int32(r.Width)] = true
		} else {
			seen[int32(r.Y)] = true
			seen[int32(r.Y)+int32(r.Height)] = true
		}
	}
	for _, r := range a {
		add(r)
	}
	for _, r := range b {
		add(r)
	}
	out := make([]int32, 0, len(seen))
	for v := range seen {
		out = append(out, v)
	}
	slices.Sort(out)
	return out
}

// rasterize returns, for each grid cell (i,j) spanning [xs[i],xs[i+1]) x
// [ys[j],ys[j+1]), whether any rectangle in rects covers it.
func rasterize(rects []xproto.Rectangle, xs, ys []int32) [][]bool {
	cov := make([][]bool, len(xs)-1)
	for i := range cov {
		cov[i] = make([]bool, len(ys)-1)
	}
	for _, r := range rects {
		x0, x1 := int32(r.X), int32(r.X)+int32(r.Width)
		y0, y1 := int32(r.Y), int32(r.Y)+int32(r.Height)
		for i := 0; i < len(xs)-1; i++ {
			if xs[i] < x0 || xs[i] >= x1 {
				continue
			}
			for j := 0; j < len(ys)-1; j++ {
				if ys[j] < y0 || ys[j] >= y1 {
					continue
				}
				cov[i][j] = true
			}
		}
	}
	return cov
}

// band merges covered cells into rectangles one row-band at a time: for
// each vertical strip [ys[j],ys[j+1]), adjacent covered columns are joined
// into a single rectangle. Bands are not merged vertically across rows, so
// the result may not be the minimal rectangle set, but it is an exact
// decomposition of the covered area.
func band(cells [][]bool, xs, ys []int32) []xproto.Rectangle {
	var out []xproto.Rectangle
	for j := 0; j < len(ys)-1; j++ {
		i := 0
		for i < len(xs)-1 {
			if !cells[i][j] {
				i++
				continue
			}
			start := i
			for i < len(xs)-1 && cells[i][j] {
				i++
			}
			out = append(out, xproto.Rectangle{
				X:      int16(xs[start]),
				Y:      int16(ys[j]),
				Width:  uint16(xs[i] - xs[start]),
				Height: uint16(ys[j+1] - ys[j]),
			})
		}
	}
	return out
}
