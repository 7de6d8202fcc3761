package paint

import (
	"github.com/BurntSushi/xgb/render"

	"github.com/wmcore/compositor/internal/backend"
	"github.com/wmcore/compositor/internal/region"
	"github.com/wmcore/compositor/internal/window"
)

// Painter executes the two-phase composite (spec.md §4.7) against an
// off-screen buffer, then blits the result to the target picture.
type Painter struct {
	r     backend.Renderer
	res   Resources
	black backend.Picture // 1x1 opaque black, the shadow composite's color source
}

// NewPainter creates a Painter. res is used only to allocate scratch
// regions; black is a 1x1 solid-black picture (internal/backend.SolidFill)
// reused as the shadow color source every frame.
func NewPainter(r backend.Renderer, res Resources, black backend.Picture) *Painter {
	return &Painter{r: r, res: res, black: black}
}

// Paint runs both phases against buffer, using repaint as the starting
// repaint region (spec.md §3.4's all_damage) and rootTile as the fallback
// background (spec.md §4.8). target is where the finished frame is blitted
// (the root picture or the composite overlay window's picture).
func (p *Painter) Paint(plan *Plan, repaint region.Set, buffer, rootTile, target backend.Picture, screenW, screenH uint16) error {
	remaining := p.res.NewRegion()
	if err := remaining.UnionFrom(repaint); err != nil {
		return err
	}

	if err := p.phaseA(plan, remaining, buffer); err != nil {
		return err
	}

	if err := p.r.SetClip(buffer, remaining); err != nil {
		return err
	}
	if err := p.r.Composite(render.PictOpSrc, rootTile, nil, buffer, 0, 0, 0, 0, 0, 0, screenW, screenH); err != nil {
		return err
	}

	if err := p.phaseB(plan, repaint, buffer); err != nil {
		return err
	}

	if err := p.r.SetClip(target, nil); err != nil {
		return err
	}
	if err := p.r.Composite(render.PictOpSrc, buffer, nil, target, 0, 0, 0, 0, 0, 0, screenW, screenH); err != nil {
		return err
	}
	return nil
}

// phaseA is the opaque bottom-up pass (spec.md §4.7): each SOLID window
// composites with PictOpSrc, clipped to whatever repaint region remains,
// then its border_size is subtracted from that region so lower windows
// (and finally the root tile) aren't drawn beneath opaque content.
func (p *Painter) phaseA(plan *Plan, remaining region.Set, buffer backend.Picture) error {
	for _, w := range plan.ToPaint {
		if w.Mode != window.ModeSolid {
			continue
		}
		if err := p.r.SetClip(buffer, remaining); err != nil {
			return err
		}
		pic := &handlePicture{h: w.Textures.Picture}
		g := w.Geometry
		if err := p.r.Composite(render.PictOpSrc, pic, nil, buffer, 0, 0, 0, 0, g.X, g.Y, g.WidthB(), g.HeightB()); err != nil {
			return err
		}
		if w.BorderSize != nil {
			if err := remaining.SubtractFrom(w.BorderSize); err != nil {
				return err
			}
		}
	}
	return nil
}

// phaseB is the shadow-and-translucent top-down pass (spec.md §4.7),
// walking the prev_trans chain starting at plan.Top. Each window composites
// clipped to its own border_clip (repaint minus only the opaque regions of
// windows *above* it, spec.md §4.6's reg_ignore) rather than to whatever
// Phase A left behind globally — otherwise a translucent window sitting
// above an opaque one would be clipped away by that opaque window's own
// subtraction from Phase A, even though it must still be visible.
func (p *Painter) phaseB(plan *Plan, repaint region.Set, buffer backend.Picture) error {
	for w := plan.Top; w != nil; w = w.PrevTrans {
		clip, err := p.borderClip(repaint, w)
		if err != nil {
			return err
		}
		w.BorderClip = clip
		if err := p.r.SetClip(buffer, clip); err != nil {
			return err
		}

		if w.Textures.HasShadow {
			if err := p.paintShadow(w, buffer); err != nil {
				return err
			}
		}

		frameActive := w.Opacity.FrameOpacity > 0 && w.FrameExtents.Any()
		if w.Mode != window.ModeSolid || frameActive {
			if err := p.paintContent(w, buffer, frameActive); err != nil {
				return err
			}
		}

		if w.BorderClip != nil {
			w.BorderClip.Close()
			w.BorderClip = nil
		}
	}
	return nil
}

// borderClip computes w's own paintable region: the frame's repaint region
// minus reg_ignore, the union of opaque windows stacked above w (spec.md
// §4.6). A nil RegIgnore (nothing opaque above w) means the full repaint
// region applies unchanged.
func (p *Painter) borderClip(repaint region.Set, w *window.Window) (region.Set, error) {
	clip := p.res.NewRegion()
	if err := clip.UnionFrom(repaint); err != nil {
		return nil, err
	}
	if w.RegIgnore != nil {
		if err := clip.SubtractFrom(w.RegIgnore); err != nil {
			return nil, err
		}
	}
	return clip, nil
}

func (p *Painter) paintShadow(w *window.Window, buffer backend.Picture) error {
	shadowPic := &handlePicture{h: w.Textures.ShadowPicture}
	x := w.Geometry.X + w.Textures.ShadowDX
	y := w.Geometry.Y + w.Textures.ShadowDY
	return p.r.Composite(render.PictOpOver, p.black, shadowPic, buffer, 0, 0, 0, 0, x, y, w.Textures.ShadowWidth, w.Textures.ShadowHeight)
}

func (p *Painter) paintContent(w *window.Window, buffer backend.Picture, frameActive bool) error {
	g := w.Geometry
	content := &handlePicture{h: w.Textures.Picture}

	if !frameActive {
		mask := maskOrNil(w.Textures.HasBodyAlpha, w.Textures.BodyAlphaMask)
		return p.r.Composite(render.PictOpOver, content, mask, buffer, 0, 0, 0, 0, g.X, g.Y, g.WidthB(), g.HeightB())
	}

	// Five-band split: top, left, bottom, right use the frame alpha mask;
	// the body uses the body alpha mask (spec.md §4.7).
	fe := w.FrameExtents
	frameMask := maskOrNil(w.Textures.HasFrameAlpha, w.Textures.FrameAlphaMask)
	bodyMask := maskOrNil(w.Textures.HasBodyAlpha, w.Textures.BodyAlphaMask)

	wb, hb := g.WidthB(), g.HeightB()
	top := uint16(fe.Top)
	bottom := uint16(fe.Bottom)
	left := uint16(fe.Left)
	right := uint16(fe.Right)

	bands := []struct {
		x, y          int16
		w, h          uint16
		mask          backend.Picture
	}{
		{g.X, g.Y, wb, top, frameMask},
		{g.X, g.Y + int16(top), left, hb - top - bottom, frameMask},
		{g.X, g.Y + int16(hb-bottom), wb, bottom, frameMask},
		{g.X + int16(wb-right), g.Y + int16(top), right, hb - top - bottom, frameMask},
		{g.X + int16(left), g.Y + int16(top), wb - left - right, hb - top - bottom, bodyMask},
	}
	for _, b := range bands {
		if b.w == 0 || b.h == 0 {
			continue
		}
		if err := p.r.Composite(render.PictOpOver, content, b.mask, buffer, b.x-g.X, b.y-g.Y, 0, 0, b.x, b.y, b.w, b.h); err != nil {
			return err
		}
	}
	return nil
}

func maskOrNil(has bool, h render.Picture) backend.Picture {
	if !has {
		return nil
	}
	return &handlePicture{h: h}
}

// handlePicture adapts a bare render.Picture handle (as stored directly on
// window.Textures, which doesn't itself depend on internal/backend) to the
// backend.Picture interface for one Composite call. It owns nothing and
// Release is a no-op; the window package is the sole owner of the
// underlying resource.
type handlePicture struct {
	h render.Picture
}

func (p *handlePicture) Handle() render.Picture { return p.h }
func (p *handlePicture) Release()               {}
