// Package xrender implements internal/backend.Renderer on top of the X
// Render extension, grounded on itsManjeet-exp's x11driver texture
// pipeline (shiny/driver/x11driver/texture.go): the same Composite/
// PictOpOver/PictOpSrc/SetPictureClipRegion call shapes, generalized from
// one GPU-less texture per window to the compositor's whole-screen
// picture graph.
package xrender

import (
	"github.com/BurntSushi/xgb"
	"github.com/BurntSushi/xgb/render"
	"github.com/BurntSushi/xgb/xproto"

	"github.com/wmcore/compositor/internal/backend"
	"github.com/wmcore/compositor/internal/region"
)

// picture is backend.Picture backed by a real render.Picture. Solid fills
// are pixmap-less Render resources; window pictures wrap a pixmap the
// window package owns, so Release only ever frees the Picture itself.
type picture struct {
	conn *xgb.Conn
	pic  render.Picture
}

func (p *picture) Handle() render.Picture { return p.pic }

func (p *picture) Release() {
	render.FreePicture(p.conn, p.pic)
}

// Backend is the concrete Renderer.
type Backend struct {
	conn *xgb.Conn
	root Picture32
}

// Picture32 is the picture the painter composites onto: either the real
// root window's picture or a back-buffer picture, depending on how
// internal/xconn set things up. It's passed in rather than constructed
// here because its lifetime belongs to the session, not the backend.
type Picture32 = backend.Picture

// New wraps conn; root is the picture all frames composite onto.
func New(conn *xgb.Conn, root Picture32) *Backend {
	return &Backend{conn: conn, root: root}
}

func (b *Backend) RootPicture() backend.Picture { return b.root }

func (b *Backend) WindowPicture(w xproto.Window, pixmap xproto.Pixmap, format render.Pictformat) (backend.Picture, error) {
	pid, err := render.NewPictureId(b.conn)
	if err != nil {
		return nil, err
	}
	// Repeat: None (0) — window content pictures are never tiled.
	// SubwindowMode: IncludeInferiors, so child windows are part of the
	// content picture.
	err = render.CreatePictureChecked(b.conn, pid, xproto.Drawable(pixmap), format,
		render.CpSubwindowMode, []uint32{xproto.SubwindowModeIncludeInferiors}).Check()
	if err != nil {
		return nil, err
	}
	return &picture{conn: b.conn, pic: pid}, nil
}

func (b *Backend) RepeatingPicture(pixmap xproto.Pixmap, format render.Pictformat) (backend.Picture, error) {
	pid, err := render.NewPictureId(b.conn)
	if err != nil {
		return nil, err
	}
	// Repeat: Normal (1) — tiles the pixmap across any destination area
	// larger than itself, same valuemask/value-list shape SetClip already
	// uses for CpClipMask.
	err = render.CreatePictureChecked(b.conn, pid, xproto.Drawable(pixmap), format, render.CpRepeat, []uint32{uint32(render.RepeatNormal)}).Check()
	if err != nil {
		return nil, err
	}
	return &picture{conn: b.conn, pic: pid}, nil
}

func (b *Backend) SolidFill(argb [4]uint16) (backend.Picture, error) {
	pid, err := render.NewPictureId(b.conn)
	if err != nil {
		return nil, err
	}
	color := render.Color{Red: argb[1], Green: argb[2], Blue: argb[3], Alpha: argb[0]}
	if err := render.CreateSolidFillChecked(b.conn, pid, color).Check(); err != nil {
		return nil, err
	}
	return &picture{conn: b.conn, pic: pid}, nil
}

func (b *Backend) SetClip(dst backend.Picture, clip region.Set) error {
	p := dst.(*picture)
	if clip == nil {
		return render.ChangePictureChecked(b.conn, p.pic, render.CpClipMask, []uint32{0}).Check()
	}
	xf, ok := clip.(*region.XFixesSet)
	if !ok {
		return errNotXFixesBacked
	}
	return render.SetPictureClipRegionChecked(b.conn, p.pic, xf.ID(), 0, 0).Check()
}

func (b *Backend) Composite(op byte, src, mask, dst backend.Picture, srcX, srcY, maskX, maskY, dstX, dstY int16, w, h uint16) error {
	var maskPic render.Picture
	if mask != nil {
		maskPic = mask.(*picture).pic
	}
	srcPic := src.(*picture).pic
	dstPic := dst.(*picture).pic
	return render.CompositeChecked(b.conn, op, srcPic, maskPic, dstPic, srcX, srcY, maskX, maskY, dstX, dstY, w, h).Check()
}

func (b *Backend) Flush() error {
	return b.conn.Sync()
}

type notXFixesBackedError struct{}

func (notXFixesBackedError) Error() string {
	return "xrender: SetClip requires an XFixesSet-backed region.Set"
}

var errNotXFixesBacked = notXFixesBackedError{}
