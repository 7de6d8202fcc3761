package paint

import (
	"github.com/BurntSushi/xgb/xproto"

	"github.com/wmcore/compositor/internal/backend"
)

// RootTileSource is the subset of the X connection root-tile lookup needs
// (spec.md §4.8): reading the root window's background-pixmap properties.
type RootTileSource interface {
	// RootPixmapProperty returns the PIXMAP-typed, length-1 value of prop
	// on the root window, if present.
	RootPixmapProperty(prop string) (xproto.Pixmap, bool, error)
}

// RootTile lazily resolves and caches the background picture painted
// beneath all windows (spec.md §4.8), invalidated whenever the root
// window's background properties change (xevent's PropertyNotify handling
// calls Invalidate).
type RootTile struct {
	src  RootTileSource
	res  Resources
	r    backend.Renderer
	tile backend.Picture
}

// NewRootTile creates a RootTile resolver.
func NewRootTile(src RootTileSource, res Resources, r backend.Renderer) *RootTile {
	return &RootTile{src: src, res: res, r: r}
}

// Invalidate drops the cached tile so the next Get re-resolves it.
func (t *RootTile) Invalidate() {
	if t.tile != nil {
		t.tile.Release()
		t.tile = nil
	}
}

// Get returns the current root tile picture, resolving it on first use or
// after Invalidate (spec.md §4.8): prefer `_XROOTPMAP_ID`, then
// `_XSETROOT_ID`; if neither is a valid length-1 PIXMAP property, fall back
// to a 1x1 50%-gray picture.
func (t *RootTile) Get() (backend.Picture, error) {
	if t.tile != nil {
		return t.tile, nil
	}

	for _, prop := range []string{"_XROOTPMAP_ID", "_XSETROOT_ID"} {
		pixmap, ok, err := t.src.RootPixmapProperty(prop)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		format, err := t.res.RootVisualFormat()
		if err != nil {
			return nil, err
		}
		pic, err := t.res.MakeRepeatingPicture(pixmap, format)
		if err != nil {
			return nil, err
		}
		t.tile = pic
		return t.tile, nil
	}

	// Fallback: 1x1 50% gray, fully opaque (spec.md §4.8: "RGB 0x8080,
	// alpha 0xffff").
	pic, err := t.r.SolidFill([4]uint16{0xffff, 0x8080, 0x8080, 0x8080})
	if err != nil {
		return nil, err
	}
	t.tile = pic
	return t.tile, nil
}
