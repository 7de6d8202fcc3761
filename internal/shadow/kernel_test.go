package shadow

import "testing"

// Testable property 6 (spec.md §8): for any radius r > 0,
// sum_{x,y} G[y,x] = 1 ± ε.
func TestGaussianNormalization(t *testing.T) {
	const eps = 1e-6
	for _, r := range []int{1, 4, 12, 30} {
		k := Build(r)
		if got := k.Sum(); got < 1-eps || got > 1+eps {
			t.Errorf("radius %d: expected gaussian map to sum to 1±%.e, got %f", r, eps, got)
		}
	}
}

func TestKernelSizeIsEvenAndGrowsWithRadius(t *testing.T) {
	prev := 0
	for _, r := range []int{1, 2, 4, 8, 16} {
		s := kernelSize(r)
		if s%2 != 0 {
			t.Errorf("radius %d: expected even kernel size, got %d", r, s)
		}
		if s <= prev {
			t.Errorf("radius %d: expected kernel size to grow, got %d after %d", r, s, prev)
		}
		prev = s
	}
}

func TestBuildProducesExpectedRasterSize(t *testing.T) {
	k := Build(4)
	raster := k.Build(20, 10, 0.75, false)
	wantW := 20 + k.Size
	wantH := 10 + k.Size
	if raster.Width != wantW || raster.Height != wantH {
		t.Fatalf("expected raster size %dx%d, got %dx%d", wantW, wantH, raster.Width, raster.Height)
	}
	if len(raster.Alpha) != wantW*wantH {
		t.Fatalf("expected %d alpha bytes, got %d", wantW*wantH, len(raster.Alpha))
	}
}

func TestClearBeneathZeroesCenter(t *testing.T) {
	k := Build(4)
	w, h := 40, 40
	without := k.Build(w, h, 1.0, false)
	with := k.Build(w, h, 1.0, true)

	cx, cy := without.Width/2, without.Height/2
	if without.Alpha[cy*without.Width+cx] == 0 {
		t.Skip("center already zero without clearBeneath; kernel too large relative to window for this check")
	}
	if with.Alpha[cy*with.Width+cx] != 0 {
		t.Fatalf("expected cleared center pixel to be 0, got %d", with.Alpha[cy*with.Width+cx])
	}
}

func TestOpacityZeroYieldsEmptyRaster(t *testing.T) {
	k := Build(4)
	raster := k.Build(30, 30, 0, false)
	for _, v := range raster.Alpha {
		if v != 0 {
			t.Fatalf("expected all-zero raster at opacity 0, found %d", v)
		}
	}
}
