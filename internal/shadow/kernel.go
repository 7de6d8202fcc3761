// Package shadow implements the shadow generator (spec.md §3.3, §4.9):
// a precomputed, normalized 2D Gaussian convolution map plus quantized
// corner/edge presum tables, and the per-window raster assembly that turns
// those tables into an uploadable 8-bit alpha shadow picture.
package shadow

import (
	"math"

	"github.com/anthonynsimon/bild/convolution"
)

// OpacityLevels is the number of quantized shadow-body opacity steps
// (spec.md §3.3: "the 26 layers quantize shadow-body opacity into 25 steps
// plus one 'full' slice"). Index OpacityLevels itself is the full slice.
const OpacityLevels = 25

// Kernel holds a window's size-independent shadow data: the normalized
// Gaussian convolution map and its presummed corner/edge tables, built
// once per radius at startup (spec.md §4.9: "build once at startup for
// each opacity step").
type Kernel struct {
	Radius int
	Size   int // s = (ceil(3r)+1) & ~1, spec.md §3.3

	gaussian *convolution.Kernel // s x s, normalized to sum 1

	// top[op][x] is the shadow value of a one-pixel-tall strip at column x,
	// scaled by op/OpacityLevels (spec.md §4.9's shadow_top).
	top [][]float64

	// corner[op][y][x] is the shadow value in the (Size+1)x(Size+1) corner
	// at (x,y), scaled the same way (spec.md §4.9's shadow_corner).
	corner [][][]float64
}

// kernelSize computes s = (ceil(3r)+1) & ~1 (spec.md §3.3): for an integer
// radius, the smallest even integer not less than 3r (3r itself when r is
// even, 3r+1 when r is odd).
func kernelSize(radius int) int {
	s := int(math.Ceil(3*float64(radius))) + 1
	return s &^ 1
}

// Build constructs the Gaussian map and presum tables for radius (config
// key shadow_radius, §6.3).
func Build(radius int) *Kernel {
	if radius <= 0 {
		radius = 1
	}
	s := kernelSize(radius)
	if s < 2 {
		s = 2
	}

	k := &Kernel{Radius: radius, Size: s}
	k.gaussian = gaussianMap(s, radius)
	k.top, k.corner = presum(k.gaussian, s)
	return k
}

// gaussianMap fills an s x s table G[y,x] = exp(-(x²+y²)/(2r²)) centered on
// the table, then normalizes it to sum 1 via convolution.Kernel.Normalized
// (spec.md §4.9's gaussian_map; testable property 6: "for any radius r > 0,
// sum G[y,x] = 1 ± ε").
func gaussianMap(s, radius int) *convolution.Kernel {
	k := convolution.NewKernel(s, s)
	center := float64(s-1) / 2
	r2 := 2 * float64(radius) * float64(radius)
	for y := 0; y < s; y++ {
		for x := 0; x < s; x++ {
			dx := float64(x) - center
			dy := float64(y) - center
			k.Matrix[y*s+x] = math.Exp(-(dx*dx + dy*dy) / r2)
		}
	}
	return k.Normalized()
}

// Sum returns the total of the normalized gaussian map, which should equal
// 1 within floating-point error.
func (k *Kernel) Sum() float64 {
	total := 0.0
	for _, v := range k.gaussian.Matrix {
		total += v
	}
	return total
}

// presum builds the quantized edge and corner tables from the normalized
// Gaussian map (spec.md §4.9). For each opacity step op in [0, OpacityLevels],
// shadow_top[op][x] is the column sum of g scaled by op/OpacityLevels, and
// shadow_corner[op][y][x] is the prefix sum of g up to (x,y), scaled the
// same way — the standard summed-area-table trick for turning a 2D
// convolution into O(1)-per-pixel lookups at raster time.
func presum(g *convolution.Kernel, s int) (top [][]float64, corner [][][]float64) {
	at := func(x, y int) float64 {
		if x < 0 || y < 0 || x >= s || y >= s {
			return 0
		}
		return g.Matrix[y*s+x]
	}

	colSum := make([]float64, s+1)
	for x := 0; x < s; x++ {
		sum := 0.0
		for y := 0; y < s; y++ {
			sum += at(x, y)
		}
		colSum[x] = sum
	}

	prefix := make([][]float64, s+1)
	for y := 0; y <= s; y++ {
		prefix[y] = make([]float64, s+1)
		for x := 0; x <= s; x++ {
			if y == 0 || x == 0 {
				prefix[y][x] = 0
				continue
			}
			prefix[y][x] = at(x-1, y-1) + prefix[y-1][x] + prefix[y][x-1] - prefix[y-1][x-1]
		}
	}

	top = make([][]float64, OpacityLevels+1)
	corner = make([][][]float64, OpacityLevels+1)
	for op := 0; op <= OpacityLevels; op++ {
		scale := float64(op) / float64(OpacityLevels)
		if op == OpacityLevels {
			scale = 1
		}

		row := make([]float64, s+1)
		for x := 0; x <= s; x++ {
			row[x] = colSum[min(x, s-1)] * scale
		}
		top[op] = row

		c := make([][]float64, s+1)
		for y := 0; y <= s; y++ {
			c[y] = make([]float64, s+1)
			for x := 0; x <= s; x++ {
				c[y][x] = prefix[y][x] * scale
			}
		}
		corner[op] = c
	}
	return top, corner
}
