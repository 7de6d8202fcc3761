package window

// StartFade schedules w to animate from its current opacity to target in
// steps of step per tick (spec.md §3.5). onComplete, if non-nil, is
// invoked by the scheduler once target is reached; it may free w (the
// scheduler re-reads its internal "next" pointer before invoking it,
// spec.md §4.4's callback contract).
func (w *Window) StartFade(target uint32, step int32, onComplete func(*Window)) {
	w.fade = fadeState{
		active:   true,
		start:    w.Opacity.Current,
		target:   target,
		step:     step,
		callback: onComplete,
	}
	w.Opacity.Target = target
}

// CancelFade stops any in-progress fade without invoking its callback
// (used when a new fade target supersedes the old one, e.g. a rapid
// map/unmap, or when a window is removed outright).
func (w *Window) CancelFade() {
	w.fade = fadeState{}
}

// AdvanceFade applies steps ticks worth of opacity change, clamps to
// [0, OpaqueUnit], and reports whether the fade target was reached or
// crossed this call (spec.md §4.4). It does not itself invoke the
// completion callback or remove the fade from any scheduler list; the
// caller (internal/fade.Scheduler) does that so it can safely re-read its
// iteration state first.
func (w *Window) AdvanceFade(steps int32) (done bool) {
	if !w.fade.active {
		return true
	}
	before := int64(w.Opacity.Current) - int64(w.fade.target)
	delta := int64(w.fade.step) * int64(steps)
	next := int64(w.Opacity.Current) + delta

	if next < 0 {
		next = 0
	} else if next > OpaqueUnit {
		next = OpaqueUnit
	}

	after := next - int64(w.fade.target)
	crossedOrReached := after == 0 || (before > 0) != (after > 0) || before == 0

	if crossedOrReached {
		next = int64(w.fade.target)
		done = true
	}
	w.Opacity.Current = uint32(next)
	return done
}

// FadeCallback returns the completion callback registered by StartFade, or
// nil if none was set.
func (w *Window) FadeCallback() func(*Window) { return w.fade.callback }
