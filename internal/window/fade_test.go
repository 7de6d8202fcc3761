package window

import "testing"

func TestStartFadeSetsTargetAndActivatesState(t *testing.T) {
	w := &Window{}
	w.Opacity.Current = 0
	called := false
	w.StartFade(OpaqueUnit, int32(OpaqueUnit/4), func(*Window) { called = true })

	if !w.Fading() {
		t.Fatal("expected Fading() true after StartFade")
	}
	if w.Opacity.Target != OpaqueUnit {
		t.Fatalf("expected Opacity.Target set to OpaqueUnit, got %d", w.Opacity.Target)
	}
	if w.FadeCallback() == nil {
		t.Fatal("expected a non-nil FadeCallback")
	}
	w.FadeCallback()(w)
	if !called {
		t.Fatal("expected the registered callback to run when invoked")
	}
}

func TestCancelFadeClearsStateWithoutInvokingCallback(t *testing.T) {
	w := &Window{}
	called := false
	w.StartFade(OpaqueUnit, 100, func(*Window) { called = true })
	w.CancelFade()

	if w.Fading() {
		t.Fatal("expected Fading() false after CancelFade")
	}
	if w.FadeCallback() != nil {
		t.Fatal("expected FadeCallback to be cleared by CancelFade")
	}
	if called {
		t.Fatal("CancelFade must not invoke the completion callback")
	}
}

func TestAdvanceFadeNoopWhenNotActive(t *testing.T) {
	w := &Window{}
	w.Opacity.Current = 123
	if done := w.AdvanceFade(1); !done {
		t.Fatal("expected AdvanceFade to report done when no fade is active")
	}
	if w.Opacity.Current != 123 {
		t.Fatalf("expected AdvanceFade to leave Opacity.Current untouched, got %d", w.Opacity.Current)
	}
}

func TestAdvanceFadeStepsTowardTargetWithoutOvershooting(t *testing.T) {
	w := &Window{}
	w.Opacity.Current = 0
	w.StartFade(OpaqueUnit, OpaqueUnit/10, nil)

	if done := w.AdvanceFade(1); done {
		t.Fatal("expected one small step not to reach the target yet")
	}
	if w.Opacity.Current != OpaqueUnit/10 {
		t.Fatalf("expected Opacity.Current == one step, got %d", w.Opacity.Current)
	}
	if !w.Fading() {
		t.Fatal("expected the fade to remain active mid-way")
	}
}

// Fading out from opaque with a step of OpaqueUnit/2 does not land exactly on
// the target after two ticks: integer truncation in OpaqueUnit/2 loses the
// low bit, so two ticks undershoot by one and a third tick is required to
// cross zero. AdvanceFade must still report done on whichever tick actually
// reaches or crosses the target rather than assuming a fixed number of ticks.
func TestAdvanceFadeConvergesDespiteIntegerTruncation(t *testing.T) {
	w := &Window{}
	w.Opacity.Current = OpaqueUnit
	w.StartFade(0, -int32(OpaqueUnit/2), nil)

	ticks := 0
	for !w.AdvanceFade(1) {
		ticks++
		if ticks > 10 {
			t.Fatal("AdvanceFade did not converge within a reasonable number of ticks")
		}
	}
	if w.Opacity.Current != 0 {
		t.Fatalf("expected Opacity.Current clamped exactly to target 0, got %d", w.Opacity.Current)
	}
	if ticks < 2 {
		t.Fatalf("expected truncation to require more than one tick to converge, got %d", ticks)
	}
}

func TestAdvanceFadeClampsNegativeOvershootToZero(t *testing.T) {
	w := &Window{}
	w.Opacity.Current = 10
	w.StartFade(0, -1000, nil)

	if done := w.AdvanceFade(1); !done {
		t.Fatal("expected a large negative step to reach the target in one tick")
	}
	if w.Opacity.Current != 0 {
		t.Fatalf("expected Opacity.Current clamped to 0, got %d", w.Opacity.Current)
	}
}

func TestAdvanceFadeClampsPositiveOvershootToOpaqueUnit(t *testing.T) {
	w := &Window{}
	w.Opacity.Current = 10
	w.StartFade(OpaqueUnit, 1<<30, nil)

	if done := w.AdvanceFade(1); !done {
		t.Fatal("expected a large positive step to reach the target in one tick")
	}
	if w.Opacity.Current != OpaqueUnit {
		t.Fatalf("expected Opacity.Current clamped to OpaqueUnit, got %d", w.Opacity.Current)
	}
}

func TestAdvanceFadeMultipleStepsAtOnce(t *testing.T) {
	w := &Window{}
	w.Opacity.Current = 0
	w.StartFade(OpaqueUnit, OpaqueUnit/20, nil)

	done := w.AdvanceFade(5)
	want := uint32(5 * (OpaqueUnit / 20))
	if w.Opacity.Current != want {
		t.Fatalf("expected 5 steps applied at once, got %d want %d", w.Opacity.Current, want)
	}
	if done {
		t.Fatal("expected the fade not to be done yet after 5 of 20 steps")
	}
}
