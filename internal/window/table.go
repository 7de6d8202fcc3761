package window

import (
	"slices"

	"github.com/BurntSushi/xgb/xproto"
)

// Table is the ordered stack of managed windows (spec.md §3.1's stacking
// list) plus the by-id lookup spec.md §4.2 ("lookups skip destroyed
// entries") needs. Order is bottom-to-top, matching the X server's child
// order (testable property 1).
//
// restack_win in the original design is "the only function that re-links
// nodes" (spec.md §3.1's invariant); here the Insert*, Restack* and Remove
// methods are the only functions that mutate order, and they keep byID and order in
// lockstep so the invariant holds by construction rather than by
// convention.
type Table struct {
	byID  map[xproto.Window]*Window
	order []xproto.Window // bottom-to-top
}

// NewTable returns an empty Table.
func NewTable() *Table {
	return &Table{byID: make(map[xproto.Window]*Window, 64)}
}

// Lookup returns the window with id, or nil if absent. Per spec.md §4.2,
// destroyed windows remain addressable by Lookup until their fade-out
// resolves and Remove is called — "lookups skip destroyed entries" refers
// to *selection* (stacking-order iteration, shape matching against a live
// sibling), not to direct id lookup, which the event demultiplexer still
// needs in order to finish tearing a destroyed window down.
func (t *Table) Lookup(id xproto.Window) *Window {
	return t.byID[id]
}

// Len returns the number of windows currently tracked.
func (t *Table) Len() int { return len(t.order) }

// Bottom returns the bottom-to-top ordered list of windows in a slice
// freshly allocated on each call.
func (t *Table) Bottom() []*Window {
	out := make([]*Window, len(t.order))
	for i, id := range t.order {
		out[i] = t.byID[id]
	}
	return out
}

// Top returns the same windows in top-to-bottom order (paint-chain order,
// §4.6's "chain order equals stacking order among painted windows").
func (t *Table) Top() []*Window {
	b := t.Bottom()
	for i, j := 0, len(b)-1; i < j; i, j = i+1, j-1 {
		b[i], b[j] = b[j], b[i]
	}
	return b
}

// InsertTop adds w at the top of the stack (e.g. CreateNotify with no
// "above" sibling, or a CirculateNotify with PlaceOnTop — spec.md §4.2).
func (t *Table) InsertTop(w *Window) {
	t.byID[w.ID] = w
	t.order = append(t.order, w.ID)
}

// InsertBottom adds w at the bottom of the stack (CirculateNotify without
// PlaceOnTop — spec.md §4.2).
func (t *Table) InsertBottom(w *Window) {
	t.byID[w.ID] = w
	t.order = slices.Insert(t.order, 0, w.ID)
}

// InsertAfter adds w immediately above sibling in the stack (CreateNotify's
// "link after the sibling referred to by prev" — spec.md §4.3). If sibling
// is 0 or not found, w is inserted at the bottom.
func (t *Table) InsertAfter(w *Window, sibling xproto.Window) {
	t.byID[w.ID] = w
	if sibling == 0 {
		t.order = slices.Insert(t.order, 0, w.ID)
		return
	}
	idx := t.indexOf(sibling)
	if idx < 0 {
		t.order = slices.Insert(t.order, 0, w.ID)
		return
	}
	t.order = slices.Insert(t.order, idx+1, w.ID)
}

// Remove unlinks id from the stack and lookup table entirely (spec.md
// §4.2: final teardown on destroy/unmap completion). It is a no-op if id
// is not tracked.
func (t *Table) Remove(id xproto.Window) {
	idx := t.indexOf(id)
	if idx < 0 {
		return
	}
	t.order = slices.Delete(t.order, idx, idx+1)
	delete(t.byID, id)
}

// Restack moves id to be immediately above above (or to the bottom if
// above is 0), matching the semantics of an X ConfigureNotify/CirculateNotify
// restack (spec.md §3.1's invariant: "restack_win is the only function
// that re-links nodes"). It, InsertAfter, RestackTop and RestackBottom are
// the entry points that change relative order, all in this file, keeping
// the stacking-order invariant (testable property 1) centralized in one place.
func (t *Table) Restack(id xproto.Window, above xproto.Window) {
	idx := t.indexOf(id)
	if idx < 0 {
		return
	}
	t.order = slices.Delete(t.order, idx, idx+1)
	if above == 0 {
		t.order = slices.Insert(t.order, 0, id)
		return
	}
	aidx := t.indexOf(above)
	if aidx < 0 {
		t.order = append(t.order, id)
		return
	}
	t.order = slices.Insert(t.order, aidx+1, id)
}

// RestackTop moves id to the top of the stack (CirculateNotify with
// PlaceOnTop — spec.md §4.2).
func (t *Table) RestackTop(id xproto.Window) {
	idx := t.indexOf(id)
	if idx < 0 {
		return
	}
	t.order = slices.Delete(t.order, idx, idx+1)
	t.order = append(t.order, id)
}

// RestackBottom moves id to the bottom of the stack (CirculateNotify
// without PlaceOnTop — spec.md §4.2).
func (t *Table) RestackBottom(id xproto.Window) {
	idx := t.indexOf(id)
	if idx < 0 {
		return
	}
	t.order = slices.Delete(t.order, idx, idx+1)
	t.order = slices.Insert(t.order, 0, id)
}

func (t *Table) indexOf(id xproto.Window) int {
	return slices.Index(t.order, id)
}

// Order returns the raw bottom-to-top id order, for test assertions against
// QueryTree (testable property 1).
func (t *Table) Order() []xproto.Window {
	out := make([]xproto.Window, len(t.order))
	copy(out, t.order)
	return out
}
