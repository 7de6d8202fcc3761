// Package fade implements the fade scheduler (spec.md §4.4): advances
// per-window opacity on a fixed tick, using a single global "now in ms"
// clock and an absolute next-deadline, exactly as spec.md §3.5/§4.4
// describe. internal/window.Window carries the per-window fade entry;
// Scheduler owns only the active-window list and the tick clock.
package fade

import "github.com/wmcore/compositor/internal/window"

// Clock abstracts "now, in milliseconds" so tests can drive the scheduler
// without real sleeps (spec.md §5: "the only timer is the fade tick,
// expressed as an absolute deadline in milliseconds").
type Clock interface {
	NowMillis() int64
}

// Scheduler advances every active fade on each tick (spec.md §4.4).
type Scheduler struct {
	clock     Clock
	deltaMS   int64
	nextTick  int64
	hasTicked bool
	active    []*window.Window
}

// New creates a Scheduler with the given tick period in milliseconds
// (config key fade_delta, §6.3; default 10ms per spec.md §3.5).
func New(clock Clock, deltaMS int64) *Scheduler {
	return &Scheduler{clock: clock, deltaMS: deltaMS}
}

// Schedule starts (or replaces) a fade on w towards target, stepping by
// step (signed, per tick) and invoking onComplete when target is reached.
// If w is already fading it is not double-added to the active list.
func (s *Scheduler) Schedule(w *window.Window, target uint32, step int32, onComplete func(*window.Window)) {
	already := w.Fading()
	w.StartFade(target, step, onComplete)
	if !already {
		s.active = append(s.active, w)
	}
	if !s.hasTicked {
		s.nextTick = s.clock.NowMillis() + s.deltaMS
		s.hasTicked = true
	}
}

// Cancel stops any in-progress fade on w without running its callback.
func (s *Scheduler) Cancel(w *window.Window) {
	if !w.Fading() {
		return
	}
	w.CancelFade()
	s.removeFromActive(w)
}

func (s *Scheduler) removeFromActive(w *window.Window) {
	for i, v := range s.active {
		if v == w {
			s.active = append(s.active[:i], s.active[i+1:]...)
			return
		}
	}
}

// Pending reports whether any window is currently fading.
func (s *Scheduler) Pending() bool { return len(s.active) > 0 }

// Timeout returns the duration until the next tick is due, in milliseconds,
// and whether a tick is scheduled at all (spec.md §4.4's fade_timeout():
// "max(0, fade_time - now) when any fade is pending, else infinite").
func (s *Scheduler) Timeout() (ms int64, hasDeadline bool) {
	if !s.Pending() {
		return 0, false
	}
	now := s.clock.NowMillis()
	if s.nextTick <= now {
		return 0, true
	}
	return s.nextTick - now, true
}

// Tick advances every active fade if the deadline has passed, per
// spec.md §4.4: "when now >= fade_time, compute steps = 1 +
// (now - fade_time) / fade_delta" and apply that many ticks' worth of
// movement to every active window, snapping and invoking callbacks for any
// that crossed their target. fade_time is reset to now + fade_delta
// afterward (rounding that "preserves forward progress": at least one
// step is always applied once a tick is due, even if the scheduler runs
// late, per spec.md §5).
func (s *Scheduler) Tick() {
	if !s.Pending() {
		return
	}
	now := s.clock.NowMillis()
	if now < s.nextTick {
		return
	}
	steps := int32(1 + (now-s.nextTick)/s.deltaMS)

	// Snapshot the active list: a completion callback may itself call
	// Schedule/Cancel, mutating s.active. Iterate a copy and re-check
	// liveness via w.Fading() before touching each entry, matching
	// spec.md §4.4's "re-read the 'next' pointer before invoking" contract
	// translated to a slice-based list.
	snapshot := make([]*window.Window, len(s.active))
	copy(snapshot, s.active)

	for _, w := range snapshot {
		if !w.Fading() {
			continue // already canceled/completed by an earlier callback this tick
		}
		done := w.AdvanceFade(steps)
		if !done {
			continue
		}
		cb := w.FadeCallback()
		w.CancelFade()
		if cb != nil {
			cb(w)
		}
	}

	// A callback above may have scheduled new fades (appended to
	// s.active) or canceled others. Filter in place rather than rebuild
	// from snapshot so those additions are not lost.
	filtered := s.active[:0]
	for _, w := range s.active {
		if w.Fading() {
			filtered = append(filtered, w)
		}
	}
	s.active = filtered
	s.nextTick = now + s.deltaMS
}
