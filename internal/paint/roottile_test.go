package paint

import (
	"testing"

	"github.com/BurntSushi/xgb/render"
	"github.com/BurntSushi/xgb/xproto"

	"github.com/wmcore/compositor/internal/backend"
	"github.com/wmcore/compositor/internal/region"
	"github.com/wmcore/compositor/internal/window"
)

type fakePicture struct {
	argb     [4]uint16
	released bool
}

func (p *fakePicture) Handle() render.Picture { return 0 }
func (p *fakePicture) Release()               { p.released = true }

// fakeRenderer records the color passed to SolidFill; every other method
// panics if exercised, since roottile tests never reach them.
type fakeRenderer struct {
	lastFill [4]uint16
}

func (f *fakeRenderer) RootPicture() backend.Picture { panic("unused") }
func (f *fakeRenderer) WindowPicture(xproto.Window, xproto.Pixmap, render.Pictformat) (backend.Picture, error) {
	panic("unused")
}
func (f *fakeRenderer) RepeatingPicture(xproto.Pixmap, render.Pictformat) (backend.Picture, error) {
	panic("unused")
}
func (f *fakeRenderer) SolidFill(argb [4]uint16) (backend.Picture, error) {
	f.lastFill = argb
	return &fakePicture{argb: argb}, nil
}
func (f *fakeRenderer) SetClip(backend.Picture, region.Set) error { panic("unused") }
func (f *fakeRenderer) Composite(byte, backend.Picture, backend.Picture, backend.Picture, int16, int16, int16, int16, int16, int16, uint16, uint16) error {
	panic("unused")
}
func (f *fakeRenderer) Flush() error { return nil }

type noRootPixmap struct{}

func (noRootPixmap) RootPixmapProperty(prop string) (xproto.Pixmap, bool, error) {
	return 0, false, nil
}

type withRootPixmap struct {
	prop   string
	pixmap xproto.Pixmap
}

func (w withRootPixmap) RootPixmapProperty(prop string) (xproto.Pixmap, bool, error) {
	if prop == w.prop {
		return w.pixmap, true, nil
	}
	return 0, false, nil
}

type fakeResources struct{}

func (fakeResources) NameWindowPixmap(*window.Window) (xproto.Pixmap, bool, error) { panic("unused") }
func (fakeResources) PictureFormat(*window.Window) (render.Pictformat, bool, error) {
	panic("unused")
}
func (fakeResources) MakePicture(pixmap xproto.Pixmap, format render.Pictformat) (backend.Picture, error) {
	return &fakePicture{}, nil
}
func (fakeResources) MakeRepeatingPicture(pixmap xproto.Pixmap, format render.Pictformat) (backend.Picture, error) {
	return &fakePicture{}, nil
}
func (fakeResources) NewRegion() region.Set                         { return region.NewLocalSet() }
func (fakeResources) RegionFromRects([]xproto.Rectangle) region.Set { return region.NewLocalSet() }
func (fakeResources) RootVisualFormat() (render.Pictformat, error)  { return 0, nil }

// Testable property 7 (spec.md §8): with neither _XROOTPMAP_ID nor
// _XSETROOT_ID set, the root-tile picture is a repeating 1x1 medium gray.
func TestRootTileFallbackIsMediumGray(t *testing.T) {
	renderer := &fakeRenderer{}
	rt := NewRootTile(noRootPixmap{}, fakeResources{}, renderer)

	pic, err := rt.Get()
	if err != nil {
		t.Fatal(err)
	}
	if pic == nil {
		t.Fatal("expected a non-nil fallback picture")
	}
	want := [4]uint16{0xffff, 0x8080, 0x8080, 0x8080}
	if renderer.lastFill != want {
		t.Fatalf("expected fallback fill %v, got %v", want, renderer.lastFill)
	}
}

func TestRootTilePrefersXRootPmapID(t *testing.T) {
	src := withRootPixmap{prop: "_XROOTPMAP_ID", pixmap: 42}
	rt := NewRootTile(src, fakeResources{}, &fakeRenderer{})

	pic, err := rt.Get()
	if err != nil {
		t.Fatal(err)
	}
	if pic == nil {
		t.Fatal("expected a picture wrapping the root pixmap")
	}
}

func TestRootTileFallsBackToXSetRootID(t *testing.T) {
	src := withRootPixmap{prop: "_XSETROOT_ID", pixmap: 7}
	rt := NewRootTile(src, fakeResources{}, &fakeRenderer{})

	pic, err := rt.Get()
	if err != nil {
		t.Fatal(err)
	}
	if pic == nil {
		t.Fatal("expected a picture wrapping the root pixmap")
	}
}

func TestRootTileCachesUntilInvalidate(t *testing.T) {
	renderer := &fakeRenderer{}
	rt := NewRootTile(noRootPixmap{}, fakeResources{}, renderer)

	first, err := rt.Get()
	if err != nil {
		t.Fatal(err)
	}
	second, err := rt.Get()
	if err != nil {
		t.Fatal(err)
	}
	if first != second {
		t.Fatal("expected Get to return the cached picture")
	}

	rt.Invalidate()
	third, err := rt.Get()
	if err != nil {
		t.Fatal(err)
	}
	if third == first {
		t.Fatal("expected a fresh picture after Invalidate")
	}
}
