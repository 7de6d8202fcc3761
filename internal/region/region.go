// Package region implements the region algebra collaborator boundary
// (spec.md §3.2, §6): opaque update-region values combined by union,
// intersect, and subtract, translated, and converted to/from rectangle
// lists. spec.md §9 explicitly permits either backing "a server-side
// XFixes region object... or a local pixman-style implementation —
// behavior identical either way", so Set is the interface both share:
// XFixesSet talks to the real X server (production, via internal/xconn)
// and LocalSet is a pure-Go rectangle-grid implementation used by tests
// and anywhere a live connection isn't available.
package region

import "github.com/BurntSushi/xgb/xproto"

// Set is the region algebra contract every collaborator in the core
// (damage aggregator, paint planner, painter) is written against.
// Mutating methods modify the receiver in place, mirroring the X requests
// they're grounded on (xfixes.UnionRegion et al. always name a destination
// region separate from, or equal to, one of the operands).
type Set interface {
	// UnionFrom sets the receiver to the union of its current contents and src.
	UnionFrom(src Set) error
	// IntersectFrom sets the receiver to the intersection of its current
	// contents and src.
	IntersectFrom(src Set) error
	// SubtractFrom removes src from the receiver's current contents.
	SubtractFrom(src Set) error
	// Translate shifts every rectangle in the region by (dx, dy).
	Translate(dx, dy int16) error
	// SetEmpty clears the region.
	SetEmpty() error
	// SetRects replaces the region's contents with rects.
	SetRects(rects []xproto.Rectangle) error
	// Empty reports whether the region contains no area.
	Empty() (bool, error)
	// FetchRects returns the region's current rectangle decomposition.
	FetchRects() ([]xproto.Rectangle, error)
	// Close releases any server-side resources the region holds. Safe to
	// call on implementations that hold none.
	Close()
}
