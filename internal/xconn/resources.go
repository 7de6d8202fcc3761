package xconn

import (
	"fmt"

	"github.com/BurntSushi/xgb/composite"
	xgbdamage "github.com/BurntSushi/xgb/damage"
	"github.com/BurntSushi/xgb/render"
	"github.com/BurntSushi/xgb/shape"
	"github.com/BurntSushi/xgb/xproto"

	"github.com/wmcore/compositor/internal/atomcache"
	"github.com/wmcore/compositor/internal/backend"
	"github.com/wmcore/compositor/internal/ignorelog"
	"github.com/wmcore/compositor/internal/region"
	"github.com/wmcore/compositor/internal/shadow"
	"github.com/wmcore/compositor/internal/window"
)

// boundingShapeKind is the Shape extension's "kind" byte for the bounding
// shape, matching internal/xevent's own copy of the same protocol constant
// (duplicated rather than imported to keep xconn from depending on xevent).
const boundingShapeKind = 0

// Resources adapts a live Conn to every collaborator interface the core
// packages declare against a connection: internal/xevent.Resources,
// internal/damage.Conn, internal/paint.Resources, and
// internal/paint.RootTileSource. Keeping one adapter type rather than four
// mirrors spec.md §9's "pass a context handle explicitly" resolution for
// the original's global connection state.
type Resources struct {
	conn     *Conn
	renderer backend.Renderer
	ignore   *ignorelog.Log
}

// NewResources builds the adapter. renderer is the backend.Renderer the
// painter already uses; Resources.MakePicture delegates to it so pictures
// are always created through the one collaborator that owns the render
// backend's lifetime. ignore is the same ignore-log internal/xevent.Demux
// consults before dispatching each event/error (spec.md §3.2, §4.3):
// FreeContent/FreeShadow below fire their release requests unchecked (the
// resource may already be torn down server-side by the time a stale event
// triggers the free), so their sequence numbers are pushed here for the
// demultiplexer to swallow the resulting BadPixmap/BadPicture error.
func NewResources(conn *Conn, renderer backend.Renderer, ignore *ignorelog.Log) *Resources {
	return &Resources{conn: conn, renderer: renderer, ignore: ignore}
}

// --- internal/xevent.Resources ---

func (r *Resources) SelectClientEvents(w xproto.Window) error {
	mask := uint32(xproto.EventMaskPropertyChange | xproto.EventMaskFocusChange)
	return xproto.ChangeWindowAttributesChecked(r.conn.X, w, xproto.CwEventMask, []uint32{mask}).Check()
}

// DetermineType resolves w's EWMH type (SPEC_FULL.md §4.2.1): its own
// _NET_WM_WINDOW_TYPE first, else a bounded-depth walk of its children
// (some toolkits set the type on an inner client window rather than the
// reparenting frame), else TypeNormal.
func (r *Resources) DetermineType(w xproto.Window) (window.Type, error) {
	if t, ok, err := r.ownType(w); err != nil {
		return window.TypeUnknown, err
	} else if ok {
		return t, nil
	}
	const maxDepth = 4
	if t, ok, err := r.childType(w, maxDepth); err != nil {
		return window.TypeUnknown, err
	} else if ok {
		return t, nil
	}
	return window.TypeNormal, nil
}

func (r *Resources) ownType(w xproto.Window) (window.Type, bool, error) {
	typeAtom, err := r.conn.Atoms.Atom(atomcache.NetWMWindowType)
	if err != nil {
		return window.TypeUnknown, false, err
	}
	atoms, ok, err := r.conn.Atoms.GetAtomList(w, typeAtom)
	if err != nil {
		return window.TypeUnknown, false, err
	}
	if !ok {
		return window.TypeUnknown, false, nil
	}
	for _, a := range atoms {
		if t, ok := r.conn.WindowType(a); ok {
			return t, true, nil
		}
	}
	return window.TypeUnknown, false, nil
}

func (r *Resources) childType(w xproto.Window, depth int) (window.Type, bool, error) {
	if depth <= 0 {
		return window.TypeUnknown, false, nil
	}
	tree, err := xproto.QueryTree(r.conn.X, w).Reply()
	if err != nil {
		return window.TypeUnknown, false, err
	}
	for _, child := range tree.Children {
		if t, ok, err := r.ownType(child); err != nil {
			return window.TypeUnknown, false, err
		} else if ok {
			return t, true, nil
		}
	}
	for _, child := range tree.Children {
		if t, ok, err := r.childType(child, depth-1); err != nil {
			return window.TypeUnknown, false, err
		} else if ok {
			return t, true, nil
		}
	}
	return window.TypeUnknown, false, nil
}

func (r *Resources) IsViewable(w xproto.Window) (bool, error) {
	attrs, err := xproto.GetWindowAttributes(r.conn.X, w).Reply()
	if err != nil {
		return false, err
	}
	return attrs.MapState == xproto.MapStateViewable, nil
}

func (r *Resources) AllocateDamage(w xproto.Window) (xgbdamage.Damage, error) {
	id, err := xgbdamage.NewDamageId(r.conn.X)
	if err != nil {
		return 0, err
	}
	err = xgbdamage.CreateChecked(r.conn.X, id, xproto.Drawable(w), xgbdamage.ReportLevelNonEmpty).Check()
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (r *Resources) FreeDamage(d xgbdamage.Damage) error {
	return xgbdamage.DestroyChecked(r.conn.X, d).Check()
}

// FreeContent releases w's content pixmap/picture and any per-window alpha
// masks (spec.md §5's "resources freed on unmap are re-created on next
// paint"). Errors are swallowed: the resource may already be gone by the
// time a stale event triggers this free, which is exactly what the
// ignore-log exists to tolerate.
func (r *Resources) FreeContent(w *window.Window) {
	t := &w.Textures
	if t.HasPicture {
		r.ignorePush(render.FreePicture(r.conn.X, t.Picture).Sequence)
		t.Picture = 0
		t.HasPicture = false
	}
	if t.Pixmap != 0 {
		r.ignorePush(xproto.FreePixmap(r.conn.X, t.Pixmap).Sequence)
		t.Pixmap = 0
	}
	if t.HasBodyAlpha {
		r.ignorePush(render.FreePicture(r.conn.X, t.BodyAlphaMask).Sequence)
		t.BodyAlphaMask = 0
		t.HasBodyAlpha = false
	}
	if t.HasFrameAlpha {
		r.ignorePush(render.FreePicture(r.conn.X, t.FrameAlphaMask).Sequence)
		t.FrameAlphaMask = 0
		t.HasFrameAlpha = false
	}
}

func (r *Resources) FreeShadow(w *window.Window) {
	t := &w.Textures
	if t.HasShadow {
		r.ignorePush(render.FreePicture(r.conn.X, t.ShadowPicture).Sequence)
		t.ShadowPicture = 0
		t.HasShadow = false
	}
	if t.ShadowPixmap != 0 {
		r.ignorePush(xproto.FreePixmap(r.conn.X, t.ShadowPixmap).Sequence)
		t.ShadowPixmap = 0
	}
}

// ignorePush records seq as an expected-to-error sequence, if an ignore log
// was wired in (it always is in production; tests that don't care about
// error suppression may pass nil).
func (r *Resources) ignorePush(seq uint16) {
	if r.ignore != nil {
		r.ignore.Push(seq)
	}
}

func (r *Resources) ReadOpacityProperty(w xproto.Window) (uint32, bool, error) {
	atom, err := r.conn.Atoms.Atom(atomcache.NetWMWindowOpacity)
	if err != nil {
		return 0, false, err
	}
	return r.conn.Atoms.GetCardinal32(w, atom)
}

func (r *Resources) ReadFrameExtents(w xproto.Window) (window.FrameExtents, bool, error) {
	atom, err := r.conn.Atoms.Atom(atomcache.NetFrameExtents)
	if err != nil {
		return window.FrameExtents{}, false, err
	}
	values, ok, err := r.conn.Atoms.GetCardinal32N(w, atom, 4)
	if err != nil || !ok {
		return window.FrameExtents{}, false, err
	}
	return window.FrameExtents{Left: values[0], Right: values[1], Top: values[2], Bottom: values[3]}, true, nil
}

func (r *Resources) NewRegionFromRects(rects []xproto.Rectangle) region.Set {
	return r.mustXFixesFromRects(rects)
}

// ReadBoundingShape fetches w's Shape-extension bounding rectangles
// (spec.md §6.1).
func (r *Resources) ReadBoundingShape(w xproto.Window) ([]xproto.Rectangle, bool, error) {
	reply, err := shape.GetRectangles(r.conn.X, w, boundingShapeKind).Reply()
	if err != nil {
		return nil, false, err
	}
	return reply.Rectangles, true, nil
}

// --- internal/damage.Conn ---

func (r *Resources) DamageSubtractNoFetch(d xgbdamage.Damage) error {
	return xgbdamage.SubtractChecked(r.conn.X, d, 0, 0).Check()
}

func (r *Resources) DamageSubtractFetch(d xgbdamage.Damage) (region.Set, error) {
	xf, err := region.NewXFixesSet(r.conn.X)
	if err != nil {
		return nil, err
	}
	if err := xgbdamage.SubtractChecked(r.conn.X, d, 0, xf.ID()).Check(); err != nil {
		xf.Close()
		return nil, err
	}
	return xf, nil
}

// --- internal/paint.Resources ---

func (r *Resources) NameWindowPixmap(w *window.Window) (xproto.Pixmap, bool, error) {
	if w.State == window.Unmapped || w.State == window.Destroying {
		return 0, false, nil
	}
	pixmap, err := xproto.NewPixmapId(r.conn.X)
	if err != nil {
		return 0, false, err
	}
	if err := composite.NameWindowPixmapChecked(r.conn.X, w.ID, pixmap).Check(); err != nil {
		// The window raced to unmapped/destroyed between the caller's
		// state check and this request; treat it the same as "no
		// content to name right now" rather than a hard failure.
		return 0, false, nil
	}
	return pixmap, true, nil
}

func (r *Resources) PictureFormat(w *window.Window) (render.Pictformat, bool, error) {
	attrs, err := xproto.GetWindowAttributes(r.conn.X, w.ID).Reply()
	if err != nil {
		return 0, false, nil
	}
	format, ok := r.conn.VisualFormat(attrs.Visual)
	return format, ok, nil
}

func (r *Resources) RootVisualFormat() (render.Pictformat, error) {
	format, ok := r.conn.VisualFormat(r.conn.RootVisual)
	if !ok {
		return 0, fmt.Errorf("xconn: server advertised no picture format for the root visual")
	}
	return format, nil
}

func (r *Resources) MakePicture(pixmap xproto.Pixmap, format render.Pictformat) (backend.Picture, error) {
	return r.renderer.WindowPicture(0, pixmap, format)
}

func (r *Resources) MakeRepeatingPicture(pixmap xproto.Pixmap, format render.Pictformat) (backend.Picture, error) {
	return r.renderer.RepeatingPicture(pixmap, format)
}

// NewRegion and RegionFromRects cannot report failure through
// internal/paint.Resources' signature (it was written against
// internal/region.LocalSet, which never fails). Against the XFixes
// backing, allocating a region object is a connection-level request that
// fails only if the connection itself is already broken — a condition the
// session loop treats as fatal everywhere else, so these panic rather than
// silently falling back to a differently-backed Set that would later trip
// region's own mixed-backing guard.
func (r *Resources) NewRegion() region.Set {
	return r.mustXFixesFromRects(nil)
}

func (r *Resources) RegionFromRects(rects []xproto.Rectangle) region.Set {
	return r.mustXFixesFromRects(rects)
}

func (r *Resources) mustXFixesFromRects(rects []xproto.Rectangle) region.Set {
	xf, err := region.NewXFixesSetFromRects(r.conn.X, rects)
	if err != nil {
		panic(fmt.Sprintf("xconn: allocate XFixes region: %v", err))
	}
	return xf
}

// --- internal/paint.ShadowUploader ---

// UploadShadow uploads raster as an 8-bit alpha pixmap and wraps it in a
// picture, recording both on w.Textures (spec.md §4.9, §6.2). dx/dy are
// recorded by the caller (internal/paint.Planner), not used here.
func (r *Resources) UploadShadow(w *window.Window, raster *shadow.Raster, dx, dy int16) error {
	format, ok := r.conn.AlphaPictFormat()
	if !ok {
		return fmt.Errorf("xconn: server advertised no 8-bit alpha picture format")
	}

	pixmap, err := xproto.NewPixmapId(r.conn.X)
	if err != nil {
		return err
	}
	width, height := uint16(raster.Width), uint16(raster.Height)
	if err := xproto.CreatePixmapChecked(r.conn.X, 8, pixmap, xproto.Drawable(r.conn.Root), width, height).Check(); err != nil {
		return err
	}

	gc, err := xproto.NewGcontextId(r.conn.X)
	if err != nil {
		xproto.FreePixmap(r.conn.X, pixmap)
		return err
	}
	if err := xproto.CreateGCChecked(r.conn.X, gc, xproto.Drawable(pixmap), 0, nil).Check(); err != nil {
		xproto.FreePixmap(r.conn.X, pixmap)
		return err
	}
	defer xproto.FreeGC(r.conn.X, gc)

	// Chunk PutImage requests so a tall shadow raster never exceeds the
	// server's maximum request length.
	const maxRowsPerRequest = 64
	for y0 := 0; y0 < raster.Height; y0 += maxRowsPerRequest {
		rows := maxRowsPerRequest
		if y0+rows > raster.Height {
			rows = raster.Height - y0
		}
		chunk := raster.Alpha[y0*raster.Width : (y0+rows)*raster.Width]
		err := xproto.PutImageChecked(
			r.conn.X, xproto.ImageFormatZPixmap, xproto.Drawable(pixmap), gc,
			width, uint16(rows), 0, int16(y0), 0, 8, chunk,
		).Check()
		if err != nil {
			xproto.FreePixmap(r.conn.X, pixmap)
			return err
		}
	}

	picID, err := render.NewPictureId(r.conn.X)
	if err != nil {
		xproto.FreePixmap(r.conn.X, pixmap)
		return err
	}
	if err := render.CreatePictureChecked(r.conn.X, picID, xproto.Drawable(pixmap), format, 0, nil).Check(); err != nil {
		xproto.FreePixmap(r.conn.X, pixmap)
		return err
	}

	w.Textures.ShadowPixmap = pixmap
	w.Textures.ShadowPicture = picID
	w.Textures.HasShadow = true
	return nil
}

// --- internal/paint.RootTileSource ---

func (r *Resources) RootPixmapProperty(prop string) (xproto.Pixmap, bool, error) {
	atom, err := r.conn.Atoms.Atom(prop)
	if err != nil {
		return 0, false, err
	}
	return r.conn.Atoms.GetPixmapProperty(r.conn.Root, atom)
}
