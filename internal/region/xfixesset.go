package region

import (
	"github.com/BurntSushi/xgb"
	"github.com/BurntSushi/xgb/xfixes"
	"github.com/BurntSushi/xgb/xproto"
)

// XFixesSet backs Set with a server-side XFixes region object, the
// production implementation (spec.md §4.11 wires this up via internal/xconn).
type XFixesSet struct {
	conn *xgb.Conn
	id   xfixes.Region
}

// NewXFixesSet allocates a new, initially empty, server-side region.
func NewXFixesSet(conn *xgb.Conn) (*XFixesSet, error) {
	id, err := xfixes.NewRegionId(conn)
	if err != nil {
		return nil, err
	}
	if err := xfixes.CreateRegionChecked(conn, id, nil).Check(); err != nil {
		return nil, err
	}
	return &XFixesSet{conn: conn, id: id}, nil
}

// NewXFixesSetFromRects allocates a region pre-populated with rects.
func NewXFixesSetFromRects(conn *xgb.Conn, rects []xproto.Rectangle) (*XFixesSet, error) {
	id, err := xfixes.NewRegionId(conn)
	if err != nil {
		return nil, err
	}
	if err := xfixes.CreateRegionChecked(conn, id, rects).Check(); err != nil {
		return nil, err
	}
	return &XFixesSet{conn: conn, id: id}, nil
}

// ID exposes the underlying XFixes region id for requests outside the Set
// interface (e.g. render.SetPictureClipRegion, §4.7).
func (r *XFixesSet) ID() xfixes.Region { return r.id }

func (r *XFixesSet) asID(s Set) (xfixes.Region, bool) {
	x, ok := s.(*XFixesSet)
	if !ok {
		return 0, false
	}
	return x.id, true
}

func (r *XFixesSet) UnionFrom(src Set) error {
	id, ok := r.asID(src)
	if !ok {
		return errMixedBacking
	}
	return xfixes.UnionRegionChecked(r.conn, id, r.id, r.id).Check()
}

func (r *XFixesSet) IntersectFrom(src Set) error {
	id, ok := r.asID(src)
	if !ok {
		return errMixedBacking
	}
	return xfixes.IntersectRegionChecked(r.conn, id, r.id, r.id).Check()
}

func (r *XFixesSet) SubtractFrom(src Set) error {
	id, ok := r.asID(src)
	if !ok {
		return errMixedBacking
	}
	return xfixes.SubtractRegionChecked(r.conn, r.id, id, r.id).Check()
}

func (r *XFixesSet) Translate(dx, dy int16) error {
	return xfixes.TranslateRegionChecked(r.conn, r.id, dx, dy).Check()
}

func (r *XFixesSet) SetEmpty() error {
	return xfixes.SetRegionChecked(r.conn, r.id, nil).Check()
}

func (r *XFixesSet) SetRects(rects []xproto.Rectangle) error {
	return xfixes.SetRegionChecked(r.conn, r.id, rects).Check()
}

func (r *XFixesSet) Empty() (bool, error) {
	rects, err := r.FetchRects()
	if err != nil {
		return false, err
	}
	return len(rects) == 0, nil
}

func (r *XFixesSet) FetchRects() ([]xproto.Rectangle, error) {
	reply, err := xfixes.FetchRegion(r.conn, r.id).Reply()
	if err != nil {
		return nil, err
	}
	return reply.Rectangles, nil
}

func (r *XFixesSet) Close() {
	xfixes.DestroyRegion(r.conn, r.id)
}

var errMixedBacking = mixedBackingError{}

type mixedBackingError struct{}

func (mixedBackingError) Error() string {
	return "region: cannot combine an XFixesSet with a differently-backed Set"
}
