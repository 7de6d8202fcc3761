// Package atomcache implements the interned-atom and typed-property-getter
// cache spec.md §3.6 (atom & property cache) requires: one InternAtom round
// trip per unique name for the process lifetime, plus typed GetProperty
// helpers for the handful of properties the core reads repeatedly.
package atomcache

import (
	"fmt"

	"github.com/BurntSushi/xgb"
	"github.com/BurntSushi/xgb/xproto"
)

// Well-known atom names the core interns eagerly at startup (§3.6, §6.1).
const (
	NetWMWindowType     = "_NET_WM_WINDOW_TYPE"
	NetWMWindowOpacity  = "_NET_WM_WINDOW_OPACITY"
	NetFrameExtents     = "_NET_FRAME_EXTENTS"
	WMState             = "WM_STATE"
	NetWMState          = "_NET_WM_STATE"
	NetWMStateFullsc    = "_NET_WM_STATE_FULLSCREEN"
	XRootPixmapID       = "_XROOTPMAP_ID"
	XSetRootID          = "_XSETROOT_ID"
	UTF8String          = "UTF8_STRING"
)

// Window-type atom names, in the closed set spec.md §3.1 enumerates.
var WindowTypeNames = []string{
	"_NET_WM_WINDOW_TYPE_DESKTOP",
	"_NET_WM_WINDOW_TYPE_DOCK",
	"_NET_WM_WINDOW_TYPE_TOOLBAR",
	"_NET_WM_WINDOW_TYPE_MENU",
	"_NET_WM_WINDOW_TYPE_UTILITY",
	"_NET_WM_WINDOW_TYPE_SPLASH",
	"_NET_WM_WINDOW_TYPE_DIALOG",
	"_NET_WM_WINDOW_TYPE_NORMAL",
	"_NET_WM_WINDOW_TYPE_DROPDOWN_MENU",
	"_NET_WM_WINDOW_TYPE_POPUP_MENU",
	"_NET_WM_WINDOW_TYPE_TOOLTIP",
	"_NET_WM_WINDOW_TYPE_NOTIFICATION",
	"_NET_WM_WINDOW_TYPE_COMBO",
	"_NET_WM_WINDOW_TYPE_DND",
}

// Cache interns atom names on first use and never evicts: X atoms live for
// the lifetime of the server, so a process-lifetime memoization is always
// correct.
type Cache struct {
	conn *xgb.Conn
	byName map[string]xproto.Atom
}

// New creates an empty Cache bound to conn.
func New(conn *xgb.Conn) *Cache {
	return &Cache{conn: conn, byName: make(map[string]xproto.Atom, 32)}
}

// Seed injects a known name/atom pair without a round trip, for tests that
// drive the cache without a live connection.
func (c *Cache) Seed(name string, atom xproto.Atom) {
	c.byName[name] = atom
}

// Atom interns name if not already cached, and returns its atom id.
func (c *Cache) Atom(name string) (xproto.Atom, error) {
	if a, ok := c.byName[name]; ok {
		return a, nil
	}
	reply, err := xproto.InternAtom(c.conn, false, uint16(len(name)), name).Reply()
	if err != nil {
		return 0, fmt.Errorf("atomcache: intern %q: %w", name, err)
	}
	c.byName[name] = reply.Atom
	return reply.Atom, nil
}

// MustPreload interns every name in names, failing fast if any lookup
// errors. Called once at startup (§4.11) so that later property reads never
// pay for an atom miss mid-frame.
func (c *Cache) MustPreload(names ...string) error {
	for _, n := range names {
		if _, err := c.Atom(n); err != nil {
			return err
		}
	}
	return nil
}

// Name returns the cached name for atom a, or "" if a was never interned
// through this Cache. Used only for diagnostics (error messages).
func (c *Cache) Name(a xproto.Atom) string {
	for n, v := range c.byName {
		if v == a {
			return n
		}
	}
	return ""
}

// GetCardinal32 reads a single CARDINAL/32 property, returning ok=false if
// the property is absent or of the wrong type/length (spec.md §7: "Property
// missing / wrong type: use default").
func (c *Cache) GetCardinal32(w xproto.Window, prop xproto.Atom) (value uint32, ok bool, err error) {
	reply, err := xproto.GetProperty(c.conn, false, w, prop, xproto.AtomCardinal, 0, 1).Reply()
	if err != nil {
		return 0, false, err
	}
	if reply.Format != 32 || reply.ValueLen < 1 || len(reply.Value) < 4 {
		return 0, false, nil
	}
	v := uint32(reply.Value[0]) | uint32(reply.Value[1])<<8 | uint32(reply.Value[2])<<16 | uint32(reply.Value[3])<<24
	return v, true, nil
}

// GetCardinal32N reads n CARDINAL/32 values (used for _NET_FRAME_EXTENTS,
// which is CARDINAL[4]).
func (c *Cache) GetCardinal32N(w xproto.Window, prop xproto.Atom, n uint32) (values []uint32, ok bool, err error) {
	reply, err := xproto.GetProperty(c.conn, false, w, prop, xproto.AtomCardinal, 0, n).Reply()
	if err != nil {
		return nil, false, err
	}
	if reply.Format != 32 || uint32(reply.ValueLen) < n || len(reply.Value) < int(n)*4 {
		return nil, false, nil
	}
	values = make([]uint32, n)
	for i := range values {
		o := i * 4
		values[i] = uint32(reply.Value[o]) | uint32(reply.Value[o+1])<<8 |
			uint32(reply.Value[o+2])<<16 | uint32(reply.Value[o+3])<<24
	}
	return values, true, nil
}

// GetAtomList reads a property of type ATOM (used for _NET_WM_WINDOW_TYPE,
// which may list several types in preference order).
func (c *Cache) GetAtomList(w xproto.Window, prop xproto.Atom) (atoms []xproto.Atom, ok bool, err error) {
	reply, err := xproto.GetProperty(c.conn, false, w, prop, xproto.AtomAtom, 0, 32).Reply()
	if err != nil {
		return nil, false, err
	}
	if reply.Format != 32 || reply.ValueLen == 0 {
		return nil, false, nil
	}
	n := int(reply.ValueLen)
	atoms = make([]xproto.Atom, n)
	for i := 0; i < n; i++ {
		o := i * 4
		atoms[i] = xproto.Atom(uint32(reply.Value[o]) | uint32(reply.Value[o+1])<<8 |
			uint32(reply.Value[o+2])<<16 | uint32(reply.Value[o+3])<<24)
	}
	return atoms, true, nil
}

// HasProperty reports whether w carries a property named prop at all
// (used for WM_STATE presence checks, §3.1/§4.2.1: only presence matters).
func (c *Cache) HasProperty(w xproto.Window, prop xproto.Atom) (bool, error) {
	reply, err := xproto.GetProperty(c.conn, false, w, prop, xproto.AtomAny, 0, 0).Reply()
	if err != nil {
		return false, err
	}
	return reply.PropertyType != 0, nil
}

// GetPixmapProperty reads a PIXMAP/32 property of length 1 (used for
// _XROOTPMAP_ID / _XSETROOT_ID, §4.8).
func (c *Cache) GetPixmapProperty(w xproto.Window, prop xproto.Atom) (pix xproto.Pixmap, ok bool, err error) {
	reply, err := xproto.GetProperty(c.conn, false, w, prop, xproto.AtomPixmap, 0, 1).Reply()
	if err != nil {
		return 0, false, err
	}
	if reply.Format != 32 || reply.ValueLen != 1 || len(reply.Value) < 4 {
		return 0, false, nil
	}
	v := uint32(reply.Value[0]) | uint32(reply.Value[1])<<8 | uint32(reply.Value[2])<<16 | uint32(reply.Value[3])<<24
	return xproto.Pixmap(v), true, nil
}
