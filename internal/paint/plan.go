// Package paint implements the paint planner and painter (spec.md §4.6,
// §4.7): deciding, once per frame, which windows are paintable and in what
// mode, then compositing them in two passes.
package paint

import (
	"github.com/BurntSushi/xgb/render"
	"github.com/BurntSushi/xgb/xproto"

	"github.com/wmcore/compositor/internal/backend"
	"github.com/wmcore/compositor/internal/region"
	"github.com/wmcore/compositor/internal/shadow"
	"github.com/wmcore/compositor/internal/window"
	"github.com/wmcore/compositor/internal/wmatch"
	"github.com/wmcore/compositor/internal/xlog"
)

// Resources is the subset of window-resource management the planner needs
// to (re)build a window's content picture (spec.md §4.6: "Build or refresh
// the content picture by naming the window's current pixmap... and
// creating a picture with subwindow_mode = include_inferiors").
type Resources interface {
	// NameWindowPixmap names w's current backing pixmap via the Composite
	// extension, returning false if the window has none nameable right now
	// (e.g. unmapped).
	NameWindowPixmap(w *window.Window) (xproto.Pixmap, bool, error)
	// PictureFormat returns the Render picture format matching w's visual.
	PictureFormat(w *window.Window) (render.Pictformat, bool, error)
	// RootVisualFormat returns the Render picture format matching the root
	// window's visual, used to wrap root-background pixmaps (spec.md §4.8).
	RootVisualFormat() (render.Pictformat, error)
	// MakePicture wraps pixmap (in format) as a content picture.
	MakePicture(pixmap xproto.Pixmap, format render.Pictformat) (backend.Picture, error)
	// MakeRepeatingPicture wraps pixmap (in format) as a repeating picture
	// (spec.md §4.8's root background pixmap, which must tile when smaller
	// than the screen).
	MakeRepeatingPicture(pixmap xproto.Pixmap, format render.Pictformat) (backend.Picture, error)
	// NewRegion returns a fresh, empty region.Set in whatever backing the
	// session is using (XFixes in production, Local in tests).
	NewRegion() region.Set
	// RegionFromRects returns a region.Set seeded with rects.
	RegionFromRects(rects []xproto.Rectangle) region.Set
}

// Plan is the result of one planning pass: the windows selected to paint,
// bottom-up in stacking order, with each entry's PrevTrans already linked
// to form the top-down chain Phase B walks (spec.md §4.6).
type Plan struct {
	// ToPaint holds the selected windows bottom-up (stacking order).
	ToPaint []*window.Window
	// Top is the topmost selected window, the head of the PrevTrans chain
	// Phase B iterates; nil if nothing is paintable this frame.
	Top *window.Window
}

// ShadowUploader uploads a generated shadow raster as a pixmap+picture pair
// bound to a window's Textures fields (spec.md §6.2's "upload 8-bit image
// to pixmap, create picture over drawable").
type ShadowUploader interface {
	UploadShadow(w *window.Window, raster *shadow.Raster, dx, dy int16) error
}

// ShadowConfig is the subset of configuration the planner needs to build a
// window's shadow raster (spec.md §6.3).
type ShadowConfig interface {
	ShadowEnabled(t window.Type) bool
	ShadowOpacity() float64
	ClearShadow() bool
	ShadowOffset() (dx, dy int16)
}

// DamageSink receives regions the planner resolves mid-pass that the caller
// would otherwise have no way to learn about before this same frame paints:
// chiefly a newly-paintable window's full extents (its own rectangle plus
// any shadow), the first time they're built. Without this, a freshly mapped
// window's shadow would be computed but painted clipped away, since nothing
// else adds its area to the frame's repaint region until the next
// DamageNotify arrives (mirrors internal/damage.Aggregator.AddRegion's use
// for non-window damage sources).
type DamageSink interface {
	AddRegion(region.Set) error
}

// Planner runs the per-frame selection and mode-assignment pass.
type Planner struct {
	res       Resources
	blacklist *wmatch.Set
	sink      DamageSink

	shadowKernel *shadow.Kernel
	shadowCfg    ShadowConfig
	shadows      ShadowUploader
}

// New creates a Planner using res to build/refresh content pictures and
// blacklist to exclude windows from painting (nil blacklist blocks nothing).
// Shadows are disabled until EnableShadows is called.
func New(res Resources, blacklist *wmatch.Set) *Planner {
	return &Planner{res: res, blacklist: blacklist}
}

// EnableShadows wires a precomputed shadow kernel, its configuration, and
// the connection-side uploader into the planner, so ensureResources also
// builds and uploads each newly-paintable window's shadow raster.
func (p *Planner) EnableShadows(kernel *shadow.Kernel, cfg ShadowConfig, uploader ShadowUploader) {
	p.shadowKernel = kernel
	p.shadowCfg = cfg
	p.shadows = uploader
}

// SetDamageSink wires sink so a newly-resolved window extent is folded into
// the current frame's repaint region the moment it's built, rather than
// only becoming visible on some later frame.
func (p *Planner) SetDamageSink(sink DamageSink) {
	p.sink = sink
}

// Run executes one planning pass over tbl's bottom-up stacking order,
// against a screen of size screenW x screenH (spec.md §4.6).
func (p *Planner) Run(tbl *window.Table, screenW, screenH uint16) (*Plan, error) {
	bottom := tbl.Bottom()

	var toPaint []*window.Window
	for _, w := range bottom {
		if w == nil {
			continue
		}
		if skip, err := p.shouldSkip(w, screenW, screenH); err != nil {
			return nil, err
		} else if skip {
			continue
		}
		if err := p.assignMode(w); err != nil {
			return nil, err
		}
		if err := p.ensureResources(w); err != nil {
			return nil, err
		}
		toPaint = append(toPaint, w)
	}

	// Second pass, top-down: maintain reg_ignore (the running union of
	// opaque regions covered by higher windows) and link prev_trans
	// (spec.md §4.6).
	var prev *window.Window
	var runningOpaque region.Set
	for i := len(toPaint) - 1; i >= 0; i-- {
		w := toPaint[i]
		w.PrevTrans = prev
		prev = w

		// This window's own reg_ignore is the set accumulated from windows
		// above it, NOT including itself.
		if runningOpaque == nil {
			w.RegIgnore = nil
		} else {
			snap := p.res.NewRegion()
			if err := snap.UnionFrom(runningOpaque); err != nil {
				return nil, err
			}
			w.RegIgnore = snap
		}

		if w.Mode == window.ModeSolid && w.FrameExtents.Left == 0 && w.FrameExtents.Right == 0 &&
			w.FrameExtents.Top == 0 && w.FrameExtents.Bottom == 0 && w.Opacity.FrameOpacity == 0 {
			if runningOpaque == nil {
				runningOpaque = p.res.NewRegion()
			}
			shape := p.windowShape(w)
			if err := runningOpaque.UnionFrom(shape); err != nil {
				return nil, err
			}
		}
	}

	var top *window.Window
	if len(toPaint) > 0 {
		top = toPaint[len(toPaint)-1]
	}
	return &Plan{ToPaint: toPaint, Top: top}, nil
}

func (p *Planner) shouldSkip(w *window.Window, screenW, screenH uint16) (bool, error) {
	if !w.Damage.EverDamaged {
		return true, nil
	}
	g := w.Geometry
	rightEdge := int32(g.X) + int32(g.WidthB())
	bottomEdge := int32(g.Y) + int32(g.HeightB())
	if rightEdge < 1 || bottomEdge < 1 || int32(g.X) >= int32(screenW) || int32(g.Y) >= int32(screenH) {
		return true, nil
	}
	if w.State == window.Unmapped && !w.Textures.HasPicture {
		return true, nil
	}
	if w.Opacity.Current == 0 {
		return true, nil
	}
	if p.blacklist.Blocks(wmatch.Candidate{Class: w.Class, Type: w.Type, Name: w.Name}) {
		return true, nil
	}
	return false, nil
}

func (p *Planner) assignMode(w *window.Window) error {
	switch {
	case w.Textures.HasBodyAlpha && alphaVisual(w):
		w.Mode = window.ModeARGB
	case w.Opacity.Current < window.OpaqueUnit:
		w.Mode = window.ModeTrans
	default:
		w.Mode = window.ModeSolid
	}
	return nil
}

// alphaVisual reports whether w is treated as having an alpha visual. It
// returns w.Textures.HasBodyAlpha; the window's visual and content-picture
// format are not consulted, and nothing outside tests sets HasBodyAlpha, so
// ModeARGB is assigned only to windows whose Textures report a body alpha
// mask.
func alphaVisual(w *window.Window) bool {
	return w.Textures.HasBodyAlpha
}

func (p *Planner) ensureResources(w *window.Window) error {
	pixmap, ok, err := p.res.NameWindowPixmap(w)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	format, ok, err := p.res.PictureFormat(w)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	pic, err := p.res.MakePicture(pixmap, format)
	if err != nil {
		return err
	}
	w.Textures.Pixmap = pixmap
	w.Textures.Picture = pic.Handle()
	w.Textures.HasPicture = true

	if p.shadowKernel != nil && !w.Textures.HasShadow && p.shadowCfg.ShadowEnabled(w.Type) {
		p.buildShadow(w)
	}

	if w.BorderSize == nil {
		w.BorderSize = p.windowShape(w)
	}
	if w.Extents == nil {
		w.Extents = p.buildExtents(w)
		if p.sink != nil {
			if err := p.sink.AddRegion(w.Extents); err != nil {
				return err
			}
		}
	}
	return nil
}

// buildShadow assembles and uploads w's shadow raster (spec.md §4.9).
// Per spec.md §7's "out-of-memory on shadow raster: skip that window's
// shadow" policy, an upload failure is logged and otherwise ignored rather
// than failing the whole planning pass.
func (p *Planner) buildShadow(w *window.Window) {
	g := w.Geometry
	dx, dy := p.shadowCfg.ShadowOffset()
	raster := p.shadowKernel.Build(int(g.WidthB()), int(g.HeightB()), p.shadowCfg.ShadowOpacity(), p.shadowCfg.ClearShadow())
	if err := p.shadows.UploadShadow(w, raster, dx, dy); err != nil {
		xlog.Log(xlog.Warn, "skipping shadow for window", xlog.L("window", w.ID), xlog.L("error", err.Error()))
		return
	}
	w.Textures.ShadowWidth = uint16(raster.Width)
	w.Textures.ShadowHeight = uint16(raster.Height)
	w.Textures.ShadowDX = dx
	w.Textures.ShadowDY = dy
}

// buildExtents computes border_size ∪ shadow_rect (spec.md §3.1/§3.2).
func (p *Planner) buildExtents(w *window.Window) region.Set {
	ext := p.res.NewRegion()
	_ = ext.UnionFrom(w.BorderSize)
	if w.Textures.HasShadow {
		shadowRect := xproto.Rectangle{
			X:      w.Geometry.X + w.Textures.ShadowDX,
			Y:      w.Geometry.Y + w.Textures.ShadowDY,
			Width:  w.Textures.ShadowWidth,
			Height: w.Textures.ShadowHeight,
		}
		shadowSet := p.res.RegionFromRects([]xproto.Rectangle{shadowRect})
		_ = ext.UnionFrom(shadowSet)
	}
	return ext
}

// windowShape returns w's opaque shape (spec.md §3.1's border_size: "bounding
// intersected with the window rectangle"): its bounding shape intersected
// with its window rectangle if Shape-extension data was recorded, else the
// plain rectangle. Intersecting rather than trusting the bounding shape
// outright also guards against a misbehaving client reporting a shape that
// extends past its own geometry.
func (p *Planner) windowShape(w *window.Window) region.Set {
	rect := p.res.RegionFromRects([]xproto.Rectangle{w.Geometry.Rect()})
	if w.BoundingShape == nil {
		return rect
	}
	if err := rect.IntersectFrom(w.BoundingShape); err != nil {
		return rect
	}
	return rect
}
