// Package damage implements the damage aggregator (spec.md §3.4, §4.5):
// a single region accumulating the union of per-window repair regions
// since the last paint, plus the repair_win ingest algorithm that feeds it
// on DamageNotify.
package damage

import (
	xgbdamage "github.com/BurntSushi/xgb/damage"
	"github.com/BurntSushi/xgb/xproto"

	"github.com/wmcore/compositor/internal/region"
	"github.com/wmcore/compositor/internal/window"
)

// Aggregator accumulates all_damage (spec.md §3.4).
type Aggregator struct {
	all region.Set
}

// New creates an Aggregator backed by all, an initially empty region.
func New(all region.Set) *Aggregator {
	return &Aggregator{all: all}
}

// All returns the accumulated repaint region for the frame about to be
// painted.
func (a *Aggregator) All() region.Set { return a.all }

// Empty reports whether there is nothing to repaint.
func (a *Aggregator) Empty() (bool, error) { return a.all.Empty() }

// Clear resets all_damage to empty after a paint completes (spec.md §4.10:
// "clear all_damage and clip_changed").
func (a *Aggregator) Clear() error { return a.all.SetEmpty() }

// AddRegion unions extra into all_damage directly, for non-window damage
// sources (root Expose batches, §4.3).
func (a *Aggregator) AddRegion(extra region.Set) error {
	return a.all.UnionFrom(extra)
}

// Conn is the minimal X surface repair_win needs: acknowledging or
// fetching a Damage object's reported region.
type Conn interface {
	DamageSubtractNoFetch(d xgbdamage.Damage) error
	DamageSubtractFetch(d xgbdamage.Damage) (region.Set, error)
	// RegionFromRects builds a region.Set seeded with rects, mirroring
	// internal/paint.Resources and internal/xevent.Resources so a single
	// connection adapter can satisfy all three.
	RegionFromRects(rects []xproto.Rectangle) region.Set
}

// Repair implements repair_win (spec.md §4.5) for a DamageNotify on w.
//
//   - If w has never been damaged before, the repair region is w's full
//     extent — its cached Extents if the planner has already built one, else
//     its plain geometry rectangle (the very first DamageNotify on a freshly
//     mapped window always arrives before the planner has run a single pass
//     over it) — and the window's damage is acknowledged without fetching
//     parts (the whole window is about to be repainted anyway, so the detail
//     of which sub-rectangles changed is not useful yet).
//   - Otherwise, the server-side damage parts are fetched and translated by
//     the window's absolute content origin (x+border_width, y+border_width)
//     before being unioned in.
//
// Either way, w.Damaged is set and all_damage is updated.
func (a *Aggregator) Repair(c Conn, w *window.Window) error {
	if !w.Damage.EverDamaged {
		w.Damage.EverDamaged = true
		full := w.Extents
		if full == nil {
			full = c.RegionFromRects([]xproto.Rectangle{w.Geometry.Rect()})
		}
		if err := a.all.UnionFrom(full); err != nil {
			return err
		}
		if err := c.DamageSubtractNoFetch(w.Damage.Handle); err != nil {
			return err
		}
		w.Damaged = true
		return nil
	}

	parts, err := c.DamageSubtractFetch(w.Damage.Handle)
	if err != nil {
		return err
	}
	defer parts.Close()

	dx := w.Geometry.X + int16(w.Geometry.BorderWidth)
	dy := w.Geometry.Y + int16(w.Geometry.BorderWidth)
	if err := parts.Translate(dx, dy); err != nil {
		return err
	}
	if err := a.all.UnionFrom(parts); err != nil {
		return err
	}
	w.Damaged = true
	return nil
}
