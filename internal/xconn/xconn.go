// Package xconn owns the X connection, the negotiated extension op-code
// tables, and the atom cache and ignore-log that hang off it (spec.md
// §4.11, §6.1). Every other internal package receives a *Conn rather than
// opening its own connection.
package xconn

import (
	"fmt"

	"github.com/BurntSushi/xgb"
	"github.com/BurntSushi/xgb/composite"
	"github.com/BurntSushi/xgb/damage"
	"github.com/BurntSushi/xgb/render"
	"github.com/BurntSushi/xgb/shape"
	"github.com/BurntSushi/xgb/xfixes"
	"github.com/BurntSushi/xgb/xproto"

	"github.com/wmcore/compositor/internal/atomcache"
	"github.com/wmcore/compositor/internal/ignorelog"
	"github.com/wmcore/compositor/internal/window"
	"github.com/wmcore/compositor/internal/xerr"
)

// minimum extension versions the core requires (§6.1).
const (
	compositeMajorMin, compositeMinorMin = 0, 2
)

// Conn bundles the X connection with everything the rest of the core needs
// to talk to it: the raw *xgb.Conn, the negotiated screen, the atom cache,
// and the ignore-sequence log.
type Conn struct {
	X      *xgb.Conn
	Screen *xproto.ScreenInfo
	Atoms  *atomcache.Cache
	Ignore ignorelog.Log

	Root          xproto.Window
	RootDepth     uint8
	RootVisual    xproto.Visualid
	PictFormats   *render.QueryPictFormatsReply
	registration  xproto.Window
	overlay       xproto.Window
	cmSelection   xproto.Atom

	visualFormat   map[xproto.Visualid]render.Pictformat
	typeAtoms      map[xproto.Atom]window.Type
	alphaFormat    render.Pictformat
	hasAlphaFormat bool
}

// Connect opens a new X connection on display (empty string means $DISPLAY),
// negotiates every extension the core requires, and redirects the screen's
// subwindows in manual Composite mode. It returns a *xerr.Fatal wrapping the
// specific failure on any required-extension or redirect error, matching
// spec.md §7's "extension missing" / startup-failure policy.
func Connect(display string) (*Conn, error) {
	x, err := xgb.NewConnDisplay(display)
	if err != nil {
		return nil, xerr.NewFatal("connect to X display", err)
	}

	c := &Conn{X: x}
	setup := xproto.Setup(x)
	c.Screen = &setup.Roots[x.DefaultScreen]
	c.Root = c.Screen.Root
	c.RootDepth = c.Screen.RootDepth
	c.RootVisual = c.Screen.RootVisual
	c.Atoms = atomcache.New(x)

	if err := c.negotiateExtensions(); err != nil {
		x.Close()
		return nil, err
	}
	if err := c.Atoms.MustPreload(requiredAtoms()...); err != nil {
		x.Close()
		return nil, xerr.NewFatal("preload atoms", err)
	}
	if err := c.loadPictFormats(); err != nil {
		x.Close()
		return nil, xerr.NewFatal("query picture formats", err)
	}
	c.buildTypeAtoms()
	if err := c.redirectSubwindows(); err != nil {
		x.Close()
		return nil, err
	}
	return c, nil
}

func requiredAtoms() []string {
	names := []string{
		atomcache.NetWMWindowType,
		atomcache.NetWMWindowOpacity,
		atomcache.NetFrameExtents,
		atomcache.WMState,
		atomcache.NetWMState,
		atomcache.NetWMStateFullsc,
		atomcache.XRootPixmapID,
		atomcache.XSetRootID,
		atomcache.UTF8String,
	}
	return append(names, atomcache.WindowTypeNames...)
}

func (c *Conn) negotiateExtensions() error {
	if err := damage.Init(c.X); err != nil {
		return xerr.MissingExtension("Damage", "any", "absent")
	}
	dv, err := damage.QueryVersion(c.X, 1, 1).Reply()
	if err != nil || dv == nil {
		return xerr.MissingExtension("Damage", "1.1", "absent")
	}

	if err := xfixes.Init(c.X); err != nil {
		return xerr.MissingExtension("XFixes", "any", "absent")
	}
	fv, err := xfixes.QueryVersion(c.X, 4, 0).Reply()
	if err != nil || fv == nil {
		return xerr.MissingExtension("XFixes", "4.0", "absent")
	}

	if err := render.Init(c.X); err != nil {
		return xerr.MissingExtension("Render", "any", "absent")
	}
	rv, err := render.QueryVersion(c.X, 0, 11).Reply()
	if err != nil || rv == nil {
		return xerr.MissingExtension("Render", "0.11", "absent")
	}

	if err := shape.Init(c.X); err != nil {
		return xerr.MissingExtension("Shape", "any", "absent")
	}

	if err := composite.Init(c.X); err != nil {
		return xerr.MissingExtension("Composite", "0.2", "absent")
	}
	cv, err := composite.QueryVersion(c.X, compositeMajorMin, compositeMinorMin).Reply()
	if err != nil || cv == nil {
		return xerr.MissingExtension("Composite", "0.2", "absent")
	}
	if cv.MajorVersion == 0 && cv.MinorVersion < compositeMinorMin {
		got := fmt.Sprintf("%d.%d", cv.MajorVersion, cv.MinorVersion)
		return xerr.MissingExtension("Composite", "0.2", got)
	}
	return nil
}

func (c *Conn) loadPictFormats() error {
	reply, err := render.QueryPictFormats(c.X).Reply()
	if err != nil {
		return err
	}
	c.PictFormats = reply

	c.visualFormat = make(map[xproto.Visualid]render.Pictformat, 32)
	for _, screen := range reply.Screens {
		for _, depth := range screen.Depths {
			for _, vis := range depth.Visuals {
				c.visualFormat[vis.Visual] = vis.Format
			}
		}
	}

	// Find the server's 8-bit, alpha-only Direct picture format (PICT_FORMAT_a8
	// on every server that implements Render): depth 8, an alpha channel, and
	// no color channels. Used to wrap uploaded shadow rasters (spec.md §4.9).
	const pictTypeDirect = 0
	for _, f := range reply.Formats {
		if f.Type == pictTypeDirect && f.Depth == 8 && f.Direct.AlphaMask != 0 &&
			f.Direct.RedMask == 0 && f.Direct.GreenMask == 0 && f.Direct.BlueMask == 0 {
			c.alphaFormat = f.Id
			c.hasAlphaFormat = true
			break
		}
	}
	return nil
}

// AlphaPictFormat returns the server's 8-bit alpha-only picture format, if
// it advertised one.
func (c *Conn) AlphaPictFormat() (render.Pictformat, bool) {
	return c.alphaFormat, c.hasAlphaFormat
}

// VisualFormat returns the Render picture format matching visual, if the
// server advertised one (§6.1: the painter needs a format to wrap any
// pixmap it names).
func (c *Conn) VisualFormat(visual xproto.Visualid) (render.Pictformat, bool) {
	f, ok := c.visualFormat[visual]
	return f, ok
}

// buildTypeAtoms maps each well-known _NET_WM_WINDOW_TYPE_* atom (already
// preloaded by requiredAtoms) to its closed window.Type tag (spec.md §3.1),
// so DetermineType never has to re-resolve a name at runtime.
func (c *Conn) buildTypeAtoms() {
	types := []window.Type{
		window.TypeDesktop, window.TypeDock, window.TypeToolbar, window.TypeMenu,
		window.TypeUtility, window.TypeSplash, window.TypeDialog, window.TypeNormal,
		window.TypeDropdownMenu, window.TypePopupMenu, window.TypeTooltip,
		window.TypeNotify, window.TypeCombo, window.TypeDnd,
	}
	c.typeAtoms = make(map[xproto.Atom]window.Type, len(types))
	for i, name := range atomcache.WindowTypeNames {
		if a, err := c.Atoms.Atom(name); err == nil {
			c.typeAtoms[a] = types[i]
		}
	}
}

// WindowType resolves a _NET_WM_WINDOW_TYPE atom to its window.Type, or
// (TypeUnknown, false) if it isn't one of the recognized names.
func (c *Conn) WindowType(atom xproto.Atom) (window.Type, bool) {
	t, ok := c.typeAtoms[atom]
	return t, ok
}

// redirectSubwindows puts the root's children under manual Composite
// redirection and registers this process as the screen's compositing
// manager by taking ownership of _NET_WM_CM_S<screen> on a dedicated
// registration window (§4.11, §6.1). A BadAccess here means another
// compositor already holds the redirection or the selection.
func (c *Conn) redirectSubwindows() error {
	seq := composite.RedirectSubwindowsChecked(c.X, c.Root, composite.RedirectManual)
	if err := seq.Check(); err != nil {
		return xerr.AnotherCompositorRunning(err)
	}

	win, err := xproto.NewWindowId(c.X)
	if err != nil {
		return xerr.NewFatal("allocate registration window", err)
	}
	c.registration = win
	err = xproto.CreateWindowChecked(
		c.X, c.RootDepth, win, c.Root,
		-1, -1, 1, 1, 0,
		xproto.WindowClassInputOutput, c.RootVisual,
		xproto.CwOverrideRedirect, []uint32{1},
	).Check()
	if err != nil {
		return xerr.NewFatal("create registration window", err)
	}

	nameAtom := xproto.AtomWmName
	wmName := "xcompmgr"
	_ = xproto.ChangePropertyChecked(
		c.X, xproto.PropModeReplace, win, nameAtom, xproto.AtomString, 8,
		uint32(len(wmName)), []byte(wmName),
	).Check()

	selName := fmt.Sprintf("_NET_WM_CM_S%d", c.X.DefaultScreen)
	selAtom, err := c.Atoms.Atom(selName)
	if err != nil {
		return xerr.NewFatal("intern selection atom", err)
	}
	c.cmSelection = selAtom

	err = xproto.SetSelectionOwnerChecked(c.X, win, selAtom, xproto.TimeCurrentTime).Check()
	if err != nil {
		return xerr.AnotherCompositorRunning(err)
	}
	return nil
}

// GetOverlayWindow fetches (creating on first call) the composite overlay
// window used as the presentation target (glossary: "composite overlay").
func (c *Conn) GetOverlayWindow() (xproto.Window, error) {
	if c.overlay != 0 {
		return c.overlay, nil
	}
	reply, err := composite.GetOverlayWindow(c.X, c.Root).Reply()
	if err != nil {
		return 0, err
	}
	c.overlay = reply.OverlayWin
	return c.overlay, nil
}

// Close releases the registration window and closes the connection.
func (c *Conn) Close() {
	if c.registration != 0 {
		xproto.DestroyWindow(c.X, c.registration)
	}
	c.X.Close()
}
