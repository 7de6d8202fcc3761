package shadow

import (
	"image"
	"image/color"

	"github.com/anthonynsimon/bild/convolution"
)

// Raster is a per-window shadow alpha raster: logical size (w+s)x(h+s)
// (spec.md §4.9), stored row-major as 8-bit alpha ready for upload into a
// Shape-mask pixmap (internal/backend wraps it in a Picture).
type Raster struct {
	Width, Height int
	Alpha         []byte
}

// set writes v at (x, y), ignoring coordinates outside the raster.
func (r *Raster) set(x, y int, v byte) {
	if x < 0 || y < 0 || x >= r.Width || y >= r.Height {
		return
	}
	r.Alpha[y*r.Width+x] = v
}

func toByte(v float64) byte {
	if v <= 0 {
		return 0
	}
	if v >= 1 {
		return 255
	}
	return byte(v*255 + 0.5)
}

// opacityStep quantizes a shadow opacity in [0,1] to the kernel's
// OpacityLevels steps (spec.md §4.9).
func opacityStep(opacity float64) int {
	if opacity <= 0 {
		return 0
	}
	if opacity >= 1 {
		return OpacityLevels
	}
	step := int(opacity*float64(OpacityLevels) + 0.5)
	if step > OpacityLevels {
		step = OpacityLevels
	}
	return step
}

// Build assembles the shadow raster for a window of content size w x h at
// the given body opacity, optionally clearing the area directly beneath the
// window (spec.md §4.9's "clear shadow beneath window").
func (k *Kernel) Build(w, h int, opacity float64, clearBeneath bool) *Raster {
	s := k.Size
	op := opacityStep(opacity)

	raster := &Raster{
		Width:  w + s,
		Height: h + s,
		Alpha:  make([]byte, (w+s)*(h+s)),
	}

	half := s / 2
	full := k.top[op][s]

	// Center: either the precomputed full-coverage value, or, when the
	// window is smaller than the kernel in one dimension, a direct
	// convolution of a window-sized opaque mask against the Gaussian
	// kernel (spec.md §4.9: "compute sum_gaussian(...) if the precomputed
	// tables don't apply").
	if w >= s && h >= s {
		for y := half; y < h+s-half; y++ {
			for x := half; x < w+s-half; x++ {
				raster.set(x, y, toByte(full))
			}
		}
	} else {
		k.fillSmallWindowCenter(raster, w, h, op)
	}

	// Four corners, each min(s, dim/2) on a side, mirrored from a single
	// computed quadrant (spec.md §4.9).
	cw := s
	if w/2 < cw {
		cw = w / 2
	}
	ch := s
	if h/2 < ch {
		ch = h / 2
	}
	corner := k.corner[op]
	for y := 0; y < ch; y++ {
		for x := 0; x < cw; x++ {
			v := toByte(corner[y+1][x+1])
			raster.set(x, y, v)                                  // top-left
			raster.set(raster.Width-1-x, y, v)                   // top-right
			raster.set(x, raster.Height-1-y, v)                  // bottom-left
			raster.set(raster.Width-1-x, raster.Height-1-y, v)   // bottom-right
		}
	}

	// Top and bottom bands, left and right bands, between the corners.
	top := k.top[op]
	for x := cw; x < w+s-cw; x++ {
		colIdx := x
		if colIdx > s {
			colIdx = s
		}
		v := toByte(top[colIdx])
		for y := 0; y < half; y++ {
			raster.set(x, y, v)
			raster.set(x, raster.Height-1-y, v)
		}
	}
	for y := ch; y < h+s-ch; y++ {
		rowIdx := y
		if rowIdx > s {
			rowIdx = s
		}
		v := toByte(top[rowIdx])
		for x := 0; x < half; x++ {
			raster.set(x, y, v)
			raster.set(raster.Width-1-x, y, v)
		}
	}

	if clearBeneath && w > s && h > s {
		const margin = 1
		x0, y0 := half+margin, half+margin
		x1, y1 := w+s-half-margin, h+s-half-margin
		for y := y0; y < y1; y++ {
			for x := x0; x < x1; x++ {
				raster.set(x, y, 0)
			}
		}
	}

	return raster
}

// fillSmallWindowCenter handles windows smaller than the kernel in either
// dimension by convolving a window-sized opaque mask with the kernel's
// Gaussian directly, rather than indexing presum tables built assuming a
// window at least as large as the kernel.
func (k *Kernel) fillSmallWindowCenter(raster *Raster, w, h int, op int) {
	half := k.Size / 2
	mask := image.NewGray(image.Rect(0, 0, w+k.Size, h+k.Size))
	for y := half; y < half+h; y++ {
		for x := half; x < half+w; x++ {
			mask.SetGray(x, y, color.Gray{Y: 255})
		}
	}

	blurred := convolution.Convolve(mask, k.gaussian, &convolution.Options{Bias: 0, Wrap: false, CarryAlpha: true})
	scale := float64(op) / float64(OpacityLevels)
	if op == OpacityLevels {
		scale = 1
	}
	bounds := blurred.Bounds()
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, _, _, _ := blurred.At(x, y).RGBA()
			raster.set(x, y, toByte(float64(r>>8)/255*scale))
		}
	}
}
