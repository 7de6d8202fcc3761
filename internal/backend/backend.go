// Package backend defines the painter's collaborator boundary (spec.md
// §6.2): the set of rendering operations the two-phase paint pipeline
// (internal/paint) needs, independent of which X extension performs them.
// internal/backend/xrender is the (only, for now) concrete implementation,
// built on the Render extension the way itsManjeet-exp's x11driver texture
// pipeline is.
package backend

import (
	"github.com/BurntSushi/xgb/render"
	"github.com/BurntSushi/xgb/xproto"

	"github.com/wmcore/compositor/internal/region"
)

// Picture is an opaque handle to a renderable source: a window's content,
// its shadow, or a solid fill, wrapping whatever resource the concrete
// backend allocated for it.
type Picture interface {
	// Handle returns the underlying render.Picture for requests Renderer
	// itself doesn't expose (e.g. clip region assignment during planning).
	Handle() render.Picture
	Release()
}

// Renderer is everything internal/paint needs from the rendering backend
// to execute one frame (spec.md §4.7).
type Renderer interface {
	// RootPicture returns the picture compositing targets: either the back
	// buffer (double-buffered via Composite's root) or the root window
	// picture directly, depending on backend setup.
	RootPicture() Picture

	// WindowPicture wraps w's content pixmap in a new source picture on
	// every call; nothing is cached or reused, so the caller owns the result.
	// The result does not repeat: a window's content picture is always
	// composited 1:1 against its own geometry.
	WindowPicture(w xproto.Window, pixmap xproto.Pixmap, format render.Pictformat) (Picture, error)

	// RepeatingPicture wraps pixmap in a source picture with RepeatNormal
	// set, so compositing it against an area larger than the pixmap tiles
	// it rather than leaving the remainder undefined (spec.md §4.8's root
	// background pixmap, which is commonly smaller than the screen).
	RepeatingPicture(pixmap xproto.Pixmap, format render.Pictformat) (Picture, error)

	// SolidFill returns a 1x1 repeating picture of the given premultiplied
	// ARGB color, used for the root fallback tile and dim overlays.
	SolidFill(argb [4]uint16) (Picture, error)

	// SetClip restricts dst's effective drawing area to clip (nil clears
	// the clip, matching "no restriction").
	SetClip(dst Picture, clip region.Set) error

	// Composite draws src (optionally masked by mask, which may be nil)
	// onto dst at the given offsets and size with op (render.PictOpSrc or
	// render.PictOpOver, spec.md §4.7).
	Composite(op byte, src, mask, dst Picture, srcX, srcY, maskX, maskY, dstX, dstY int16, w, h uint16) error

	// Flush sends all queued requests and blocks until the server has
	// processed them, matching the main loop's end-of-frame contract
	// (spec.md §4.10).
	Flush() error
}
