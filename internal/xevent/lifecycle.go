package xevent

import (
	xgbdamage "github.com/BurntSushi/xgb/damage"
	"github.com/BurntSushi/xgb/shape"
	"github.com/BurntSushi/xgb/xproto"

	"github.com/wmcore/compositor/internal/atomcache"
	"github.com/wmcore/compositor/internal/window"
)

func (d *Demux) onCreate(e xproto.CreateNotifyEvent) error {
	if e.Window == d.overlayID {
		return nil
	}
	w := &window.Window{
		ID:               e.Window,
		OverrideRedirect: e.OverrideRedirect,
		Geometry: window.Geometry{
			X: e.X, Y: e.Y, Width: e.Width, Height: e.Height, BorderWidth: e.BorderWidth,
		},
		State: window.Unmapped,
	}
	// New windows are created at the top of the stack (spec.md §4.3:
	// "link after the sibling referred to by prev" — X itself always
	// creates new windows above their siblings, so there is nothing else
	// to restack here; a subsequent ConfigureNotify corrects this if the
	// window manager immediately restacks it).
	d.tbl.InsertTop(w)

	viewable, err := d.res.IsViewable(e.Window)
	if err != nil {
		return err
	}
	if viewable {
		return d.enterMapping(w)
	}
	return nil
}

func (d *Demux) onConfigure(e xproto.ConfigureNotifyEvent) error {
	if e.Window == d.root {
		d.screenW, d.screenH = e.Width, e.Height
		// Only the demultiplexer's own screen size changes here. The
		// composed back buffer is not discarded or re-created, and
		// internal/session keeps the size it was created with (nothing
		// calls Session.Resize).
		return nil
	}

	w := d.tbl.Lookup(e.Window)
	if w == nil {
		return nil
	}

	if w.State == window.Unmapped {
		g := window.Geometry{X: e.X, Y: e.Y, Width: e.Width, Height: e.Height, BorderWidth: e.BorderWidth}
		w.PendingConfigure = &g
	} else {
		sizeChanged := w.Geometry.Width != e.Width || w.Geometry.Height != e.Height
		w.Geometry = window.Geometry{X: e.X, Y: e.Y, Width: e.Width, Height: e.Height, BorderWidth: e.BorderWidth}
		if sizeChanged {
			d.res.FreeContent(w)
			d.res.FreeShadow(w)
		}
		if w.Extents != nil {
			if err := d.agg.AddRegion(w.Extents); err != nil {
				return err
			}
			w.Extents = nil
		}
		w.BorderSize = nil
		w.ClipChanged = true
	}

	d.restackFromConfigure(e.Window, e.AboveSibling)
	return nil
}

func (d *Demux) restackFromConfigure(win, above xproto.Window) {
	if above == 0 {
		d.tbl.RestackBottom(win)
		return
	}
	d.tbl.Restack(win, above)
}

// enterMapping runs the MAPPING-entry actions (spec.md §4.2): resolve
// type, arm event selection, schedule the map fade (or jump straight to
// MAPPED if fades are disabled for the type), and replay any
// ConfigureNotify captured while unmapped.
func (d *Demux) enterMapping(w *window.Window) error {
	t, err := d.res.DetermineType(w.ID)
	if err != nil {
		return err
	}
	w.Type = t
	w.Opacity.FrameOpacity = d.cfg.FrameOpacity()

	if !w.OverrideRedirect {
		if err := d.res.SelectClientEvents(w.ID); err != nil {
			return err
		}
	}

	if w.Damage.Allocated {
		_ = d.res.FreeDamage(w.Damage.Handle)
	}
	dmg, err := d.res.AllocateDamage(w.ID)
	if err != nil {
		return err
	}
	w.Damage = window.Damage{Handle: dmg, Allocated: true}

	w.State = window.Mapping
	w.Opacity.Current = 0
	w.Opacity.Target = window.OpaqueUnit

	if w.PendingConfigure != nil {
		g := *w.PendingConfigure
		w.Geometry = g
		w.PendingConfigure = nil
		w.ClipChanged = true
	}

	if d.cfg.FadeEnabled(t) {
		d.sched.Schedule(w, window.OpaqueUnit, d.cfg.FadeInStep(), func(win *window.Window) {
			win.State = window.Mapped
		})
		w.State = window.Fading
	} else {
		w.Opacity.Current = window.OpaqueUnit
		w.State = window.Mapped
	}
	return nil
}

func (d *Demux) onMap(e xproto.MapNotifyEvent) error {
	w := d.tbl.Lookup(e.Window)
	if w == nil {
		return nil
	}
	return d.enterMapping(w)
}

func (d *Demux) onUnmap(e xproto.UnmapNotifyEvent) error {
	w := d.tbl.Lookup(e.Window)
	if w == nil {
		return nil
	}
	d.sched.Cancel(w)
	w.State = window.Unmapping
	d.sched.Schedule(w, 0, d.cfg.FadeOutStep(), func(win *window.Window) {
		d.finishUnmap(win)
	})
	return nil
}

func (d *Demux) finishUnmap(w *window.Window) {
	d.res.FreeContent(w)
	d.res.FreeShadow(w)
	w.BorderSize = nil
	w.State = window.Unmapped
	w.ClipChanged = true
}

func (d *Demux) onDestroy(e xproto.DestroyNotifyEvent) error {
	w := d.tbl.Lookup(e.Window)
	if w == nil {
		return nil
	}
	return d.beginDestroy(w)
}

func (d *Demux) beginDestroy(w *window.Window) error {
	w.Destroyed = true
	w.State = window.Destroying
	if w.Damage.Allocated {
		if err := d.res.FreeDamage(w.Damage.Handle); err != nil {
			return err
		}
		w.Damage.Allocated = false
	}
	d.sched.Cancel(w)
	d.sched.Schedule(w, 0, d.cfg.FadeOutStep(), func(win *window.Window) {
		d.res.FreeContent(win)
		d.res.FreeShadow(win)
		d.tbl.Remove(win.ID)
	})
	return nil
}

func (d *Demux) onReparent(e xproto.ReparentNotifyEvent) error {
	if e.Parent == d.root {
		// Equivalent to Create+Map (spec.md §4.2).
		if err := d.onCreate(xproto.CreateNotifyEvent{
			Window: e.Window, X: e.X, Y: e.Y, OverrideRedirect: e.OverrideRedirect,
		}); err != nil {
			return err
		}
		return d.onMap(xproto.MapNotifyEvent{Window: e.Window, OverrideRedirect: e.OverrideRedirect})
	}
	// Equivalent to Destroy (spec.md §4.2).
	w := d.tbl.Lookup(e.Window)
	if w == nil {
		return nil
	}
	return d.beginDestroy(w)
}

func (d *Demux) onCirculate(e xproto.CirculateNotifyEvent) error {
	if e.Place == xproto.PlaceOnTop {
		d.tbl.RestackTop(e.Window)
	} else {
		d.tbl.RestackBottom(e.Window)
	}
	return nil
}

func (d *Demux) onExpose(e xproto.ExposeEvent) error {
	if e.Window != d.root {
		return nil
	}
	d.exposeRects = append(d.exposeRects, xproto.Rectangle{X: e.X, Y: e.Y, Width: e.Width, Height: e.Height})
	if e.Count != 0 {
		return nil
	}
	// Final event of the batch: union accumulated rectangles into damage
	// (spec.md §4.3).
	rects := d.exposeRects
	d.exposeRects = nil
	extra := d.res.NewRegionFromRects(rects)
	return d.agg.AddRegion(extra)
}

func (d *Demux) onProperty(e xproto.PropertyNotifyEvent) error {
	opacity, err := d.atoms.Atom(atomcache.NetWMWindowOpacity)
	if err != nil {
		return err
	}
	if e.Atom == opacity {
		return d.onOpacityPropertyChanged(e.Window)
	}

	frameExtents, err := d.atoms.Atom(atomcache.NetFrameExtents)
	if err != nil {
		return err
	}
	if e.Atom == frameExtents {
		return d.onFrameExtentsChanged(e.Window)
	}

	rootPixmapID, err := d.atoms.Atom(atomcache.XRootPixmapID)
	if err != nil {
		return err
	}
	setRootID, err := d.atoms.Atom(atomcache.XSetRootID)
	if err != nil {
		return err
	}
	if (e.Atom == rootPixmapID || e.Atom == setRootID) && e.Window == d.root {
		d.rootTile.Invalidate()
	}
	return nil
}

func (d *Demux) onOpacityPropertyChanged(id xproto.Window) error {
	w := d.tbl.Lookup(id)
	if w == nil {
		return nil
	}
	value, present, err := d.res.ReadOpacityProperty(id)
	if err != nil {
		return err
	}
	w.Opacity.HasProperty = present
	if present {
		w.Opacity.Property = value
	}
	target := window.OpaqueUnit
	if present {
		target = value
	}
	if w.State == window.Mapped {
		w.State = window.Fading
	}
	step := d.cfg.FadeInStep()
	if target < w.Opacity.Current {
		step = d.cfg.FadeOutStep()
	}
	d.sched.Schedule(w, target, step, func(win *window.Window) {
		if win.State == window.Fading {
			win.State = window.Mapped
		}
	})
	return nil
}

func (d *Demux) onFrameExtentsChanged(id xproto.Window) error {
	w := d.findByClient(id)
	if w == nil {
		return nil
	}
	extents, present, err := d.res.ReadFrameExtents(id)
	if err != nil {
		return err
	}
	if present {
		w.FrameExtents = extents
	} else {
		w.FrameExtents = window.FrameExtents{}
	}
	w.ClipChanged = true
	return nil
}

// findByClient looks up the toplevel whose ClientWindow equals id, or id
// itself if it is already a toplevel (spec.md §4.3's "the toplevel whose
// client matches").
func (d *Demux) findByClient(id xproto.Window) *window.Window {
	if w := d.tbl.Lookup(id); w != nil {
		return w
	}
	for _, wid := range d.tbl.Order() {
		w := d.tbl.Lookup(wid)
		if w != nil && w.HasClientWindow && w.ClientWindow == id {
			return w
		}
	}
	return nil
}

func (d *Demux) onDamage(e xgbdamage.NotifyEvent) error {
	w := d.tbl.Lookup(xproto.Window(e.Drawable))
	if w == nil {
		return nil
	}
	return d.agg.Repair(d.dmgConn, w)
}

// onShape refreshes a window's bounding shape on ShapeNotify (spec.md
// §6.1's "Shape (for bounding-shape reads)"). Only the bounding kind
// affects paint; clip/input shape changes are not tracked.
// boundingShapeKind is the Shape extension's "kind" value for the bounding
// shape (as opposed to clip or input), per the X Shape extension protocol.
const boundingShapeKind = 0

func (d *Demux) onShape(e shape.NotifyEvent) error {
	if e.ShapeKind != boundingShapeKind {
		return nil
	}
	w := d.tbl.Lookup(e.AffectedWindow)
	if w == nil {
		return nil
	}
	if w.BoundingShape != nil {
		w.BoundingShape.Close()
		w.BoundingShape = nil
	}
	if e.Shaped {
		rects, ok, err := d.res.ReadBoundingShape(e.AffectedWindow)
		if err != nil {
			return err
		}
		if ok {
			// The Shape extension reports rectangles relative to the
			// window's own origin, not the screen; translate them to
			// absolute coordinates so they compose directly with
			// Geometry.Rect() (border_size, reg_ignore).
			abs := make([]xproto.Rectangle, len(rects))
			for i, r := range rects {
				abs[i] = xproto.Rectangle{
					X:      r.X + w.Geometry.X,
					Y:      r.Y + w.Geometry.Y,
					Width:  r.Width,
					Height: r.Height,
				}
			}
			w.BoundingShape = d.res.NewRegionFromRects(abs)
		}
	}
	w.ClipChanged = true
	return nil
}

// onFocusIn and onFocusOut filter on xproto's FocusIn/FocusOut Mode/Detail
// values (spec.md §4.3's focus filtering rule).
func (d *Demux) onFocusIn(e xproto.FocusInEvent) error {
	if e.Mode != xproto.NotifyModeGrab {
		return nil
	}
	return d.applyInactiveOpacity(e.Event, true)
}

func (d *Demux) onFocusOut(e xproto.FocusOutEvent) error {
	switch e.Mode {
	case xproto.NotifyModeGrab, xproto.NotifyModeUngrab:
	default:
		if e.Detail != xproto.NotifyDetailNonlinearVirtual && e.Detail != xproto.NotifyDetailNonlinear {
			return nil
		}
	}
	return d.applyInactiveOpacity(e.Event, false)
}

func (d *Demux) applyInactiveOpacity(id xproto.Window, focused bool) error {
	if !d.cfg.InactiveOpacityEnabled() {
		return nil
	}
	w := d.tbl.Lookup(id)
	if w == nil || w.Type != window.TypeNormal {
		return nil
	}
	w.Focused = focused
	target := window.OpaqueUnit
	step := d.cfg.FadeInStep()
	if !focused {
		target = d.cfg.InactiveOpacity()
		step = d.cfg.FadeOutStep()
	}
	d.sched.Schedule(w, target, step, nil)
	return nil
}
