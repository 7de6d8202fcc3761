// Package xtest provides a test-only fake standing in for a live X
// connection: one type implementing every collaborator interface the core
// packages need (internal/xevent.Resources, internal/damage.Conn,
// internal/paint.Resources, internal/paint.RootTileSource,
// internal/paint.ShadowUploader, internal/backend.Renderer), backed by
// in-memory maps and internal/region.LocalSet instead of a socket. It lets
// internal/session's scenario tests drive the full event-demultiplexer,
// planner, and painter stack the way spec.md §8's end-to-end scenarios
// describe, without a real X server — the same shape as
// shiny/driver/internal/x11driver's screen buffer faking its upload
// completions in tests rather than hitting the wire.
package xtest

import (
	xgbdamage "github.com/BurntSushi/xgb/damage"
	"github.com/BurntSushi/xgb/render"
	"github.com/BurntSushi/xgb/xproto"

	"github.com/wmcore/compositor/internal/backend"
	"github.com/wmcore/compositor/internal/region"
	"github.com/wmcore/compositor/internal/shadow"
	"github.com/wmcore/compositor/internal/window"
)

// CompositeCall records one Renderer.Composite invocation for assertions.
type CompositeCall struct {
	Op                     byte
	Src, Mask, Dst         backend.Picture
	SrcX, SrcY, MaskX, MaskY, DstX, DstY int16
	W, H                   uint16
}

// FakeConn is the shared fake. Its zero value has nil maps, which the
// recording methods write into, so construct it with New, which also sets
// sane defaults (every window nameable, a 32-bit alpha picture format).
type FakeConn struct {
	Viewable        map[xproto.Window]bool
	Types           map[xproto.Window]window.Type
	Opacity         map[xproto.Window]uint32
	HasOpacity      map[xproto.Window]bool
	FrameExtents    map[xproto.Window]window.FrameExtents
	HasFrameExtents map[xproto.Window]bool
	BoundingShape   map[xproto.Window][]xproto.Rectangle
	FreedContent    map[xproto.Window]bool
	FreedShadow     map[xproto.Window]bool

	// Pixmaps maps a window id to the pixmap NameWindowPixmap returns; a
	// missing entry means "not nameable right now" (ok=false).
	Pixmaps map[xproto.Window]xproto.Pixmap

	RootFormat    render.Pictformat
	PictFormat    render.Pictformat
	RootPixmapSet map[string]xproto.Pixmap

	DamageFetchParts map[xgbdamage.Damage]region.Set
	DamageFetchErr   error
	SubtractNoFetch  int
	SubtractFetch    int

	ShadowUploads int
	ShadowErr     error

	Composites []CompositeCall
	FlushCount int
	Cleared    []region.Set

	nextDamage  xgbdamage.Damage
	nextHandle  render.Picture
	nextPixmap  xproto.Pixmap
}

// New returns a FakeConn with every map initialized and every window
// nameable by default (format 1, root format 1).
func New() *FakeConn {
	return &FakeConn{
		Viewable:         map[xproto.Window]bool{},
		Types:            map[xproto.Window]window.Type{},
		Opacity:          map[xproto.Window]uint32{},
		HasOpacity:       map[xproto.Window]bool{},
		FrameExtents:     map[xproto.Window]window.FrameExtents{},
		HasFrameExtents:  map[xproto.Window]bool{},
		BoundingShape:    map[xproto.Window][]xproto.Rectangle{},
		FreedContent:     map[xproto.Window]bool{},
		FreedShadow:      map[xproto.Window]bool{},
		Pixmaps:          map[xproto.Window]xproto.Pixmap{},
		RootFormat:       1,
		PictFormat:       1,
		RootPixmapSet:    map[string]xproto.Pixmap{},
		DamageFetchParts: map[xgbdamage.Damage]region.Set{},
		nextPixmap:       100,
	}
}

// --- internal/xevent.Resources ---

func (c *FakeConn) SelectClientEvents(xproto.Window) error { return nil }

func (c *FakeConn) DetermineType(w xproto.Window) (window.Type, error) {
	if t, ok := c.Types[w]; ok {
		return t, nil
	}
	return window.TypeNormal, nil
}

func (c *FakeConn) IsViewable(w xproto.Window) (bool, error) { return c.Viewable[w], nil }

func (c *FakeConn) AllocateDamage(xproto.Window) (xgbdamage.Damage, error) {
	c.nextDamage++
	return c.nextDamage, nil
}

func (c *FakeConn) FreeDamage(xgbdamage.Damage) error { return nil }

func (c *FakeConn) FreeContent(w *window.Window) {
	c.FreedContent[w.ID] = true
	delete(c.Pixmaps, w.ID)
	w.Textures = window.Textures{}
}

func (c *FakeConn) FreeShadow(w *window.Window) {
	c.FreedShadow[w.ID] = true
	w.Textures.HasShadow = false
	w.Textures.ShadowPixmap = 0
	w.Textures.ShadowPicture = 0
}

func (c *FakeConn) ReadOpacityProperty(w xproto.Window) (uint32, bool, error) {
	return c.Opacity[w], c.HasOpacity[w], nil
}

func (c *FakeConn) ReadFrameExtents(w xproto.Window) (window.FrameExtents, bool, error) {
	return c.FrameExtents[w], c.HasFrameExtents[w], nil
}

func (c *FakeConn) NewRegionFromRects(rects []xproto.Rectangle) region.Set {
	return region.NewLocalSetFromRects(rects)
}

func (c *FakeConn) ReadBoundingShape(w xproto.Window) ([]xproto.Rectangle, bool, error) {
	rects, ok := c.BoundingShape[w]
	return rects, ok, nil
}

// --- internal/damage.Conn ---

func (c *FakeConn) DamageSubtractNoFetch(xgbdamage.Damage) error {
	c.SubtractNoFetch++
	return nil
}

func (c *FakeConn) DamageSubtractFetch(d xgbdamage.Damage) (region.Set, error) {
	c.SubtractFetch++
	if c.DamageFetchErr != nil {
		return nil, c.DamageFetchErr
	}
	if parts, ok := c.DamageFetchParts[d]; ok {
		return parts, nil
	}
	return region.NewLocalSet(), nil
}

// --- internal/paint.Resources ---

func (c *FakeConn) NameWindowPixmap(w *window.Window) (xproto.Pixmap, bool, error) {
	p, ok := c.Pixmaps[w.ID]
	if !ok {
		c.nextPixmap++
		p = c.nextPixmap
		c.Pixmaps[w.ID] = p
	}
	return p, true, nil
}

func (c *FakeConn) PictureFormat(w *window.Window) (render.Pictformat, bool, error) {
	return c.PictFormat, true, nil
}

func (c *FakeConn) RootVisualFormat() (render.Pictformat, error) { return c.RootFormat, nil }

func (c *FakeConn) MakePicture(pixmap xproto.Pixmap, format render.Pictformat) (backend.Picture, error) {
	c.nextHandle++
	return &fakePicture{h: c.nextHandle}, nil
}

func (c *FakeConn) MakeRepeatingPicture(pixmap xproto.Pixmap, format render.Pictformat) (backend.Picture, error) {
	c.nextHandle++
	return &fakePicture{h: c.nextHandle}, nil
}

func (c *FakeConn) NewRegion() region.Set { return region.NewLocalSet() }

func (c *FakeConn) RegionFromRects(rects []xproto.Rectangle) region.Set {
	return region.NewLocalSetFromRects(rects)
}

// --- internal/paint.RootTileSource ---

func (c *FakeConn) RootPixmapProperty(prop string) (xproto.Pixmap, bool, error) {
	p, ok := c.RootPixmapSet[prop]
	return p, ok, nil
}

// --- internal/paint.ShadowUploader ---

func (c *FakeConn) UploadShadow(w *window.Window, raster *shadow.Raster, dx, dy int16) error {
	if c.ShadowErr != nil {
		return c.ShadowErr
	}
	c.ShadowUploads++
	c.nextHandle++
	w.Textures.ShadowPixmap = c.nextPixmap + 1000
	w.Textures.ShadowPicture = c.nextHandle
	w.Textures.HasShadow = true
	return nil
}

// --- internal/backend.Renderer ---

func (c *FakeConn) RootPicture() backend.Picture { return &fakePicture{h: 1} }

func (c *FakeConn) WindowPicture(w xproto.Window, pixmap xproto.Pixmap, format render.Pictformat) (backend.Picture, error) {
	c.nextHandle++
	return &fakePicture{h: c.nextHandle}, nil
}

func (c *FakeConn) RepeatingPicture(pixmap xproto.Pixmap, format render.Pictformat) (backend.Picture, error) {
	c.nextHandle++
	return &fakePicture{h: c.nextHandle}, nil
}

func (c *FakeConn) SolidFill(argb [4]uint16) (backend.Picture, error) {
	c.nextHandle++
	return &fakePicture{h: c.nextHandle, argb: argb}, nil
}

func (c *FakeConn) SetClip(dst backend.Picture, clip region.Set) error {
	c.Cleared = append(c.Cleared, clip)
	return nil
}

func (c *FakeConn) Composite(op byte, src, mask, dst backend.Picture, srcX, srcY, maskX, maskY, dstX, dstY int16, w, h uint16) error {
	c.Composites = append(c.Composites, CompositeCall{
		Op: op, Src: src, Mask: mask, Dst: dst,
		SrcX: srcX, SrcY: srcY, MaskX: maskX, MaskY: maskY, DstX: dstX, DstY: dstY,
		W: w, H: h,
	})
	return nil
}

func (c *FakeConn) Flush() error {
	c.FlushCount++
	return nil
}

// fakePicture is a no-op backend.Picture: Release is observable only via
// the Released field, there is no real server resource to free.
type fakePicture struct {
	h        render.Picture
	argb     [4]uint16
	Released bool
}

func (p *fakePicture) Handle() render.Picture { return p.h }
func (p *fakePicture) Release()               { p.Released = true }
