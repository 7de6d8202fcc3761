package session

import (
	"testing"

	xgbdamage "github.com/BurntSushi/xgb/damage"
	"github.com/BurntSushi/xgb/xproto"

	"github.com/wmcore/compositor/internal/atomcache"
	"github.com/wmcore/compositor/internal/damage"
	"github.com/wmcore/compositor/internal/fade"
	"github.com/wmcore/compositor/internal/ignorelog"
	"github.com/wmcore/compositor/internal/paint"
	"github.com/wmcore/compositor/internal/region"
	"github.com/wmcore/compositor/internal/shadow"
	"github.com/wmcore/compositor/internal/window"
	"github.com/wmcore/compositor/internal/xevent"
	"github.com/wmcore/compositor/internal/xtest"
)

const (
	rootID    = xproto.Window(1)
	overlayID = xproto.Window(2)
)

type fakeClock struct{ ms int64 }

func (c *fakeClock) NowMillis() int64 { return c.ms }

// fakeConfig satisfies both internal/xevent.Config and internal/paint.ShadowConfig
// (the two overlap on ShadowEnabled), the same way a single real config type does.
type fakeConfig struct {
	fadeEnabled     bool
	shadowEnabled   bool
	fadeInStep      int32
	fadeOutStep     int32
	inactiveEnabled bool
	inactiveOpacity uint32
	frameOpacity    float64
	shadowOpacity   float64
	clearShadow     bool
	shadowDX        int16
	shadowDY        int16
}

func (c *fakeConfig) FadeEnabled(window.Type) bool   { return c.fadeEnabled }
func (c *fakeConfig) ShadowEnabled(window.Type) bool { return c.shadowEnabled }
func (c *fakeConfig) FadeInStep() int32              { return c.fadeInStep }
func (c *fakeConfig) FadeOutStep() int32             { return c.fadeOutStep }
func (c *fakeConfig) InactiveOpacityEnabled() bool   { return c.inactiveEnabled }
func (c *fakeConfig) InactiveOpacity() uint32        { return c.inactiveOpacity }
func (c *fakeConfig) FrameOpacity() float64          { return c.frameOpacity }
func (c *fakeConfig) ShadowOpacity() float64         { return c.shadowOpacity }
func (c *fakeConfig) ClearShadow() bool              { return c.clearShadow }
func (c *fakeConfig) ShadowOffset() (int16, int16)   { return c.shadowDX, c.shadowDY }

// fakeSource is a preloaded, never-blocking EventSource: every queued event
// drains during Step's Poll loop, so tests drive the loop by pushing events
// then calling Step once, exactly as a real burst of X traffic would.
type fakeSource struct {
	queue []queuedEvent
}

type queuedEvent struct {
	ev  interface{}
	seq uint16
}

func (s *fakeSource) push(ev interface{}, seq uint16) {
	s.queue = append(s.queue, queuedEvent{ev: ev, seq: seq})
}

func (s *fakeSource) Poll() (interface{}, uint16, bool, error) {
	if len(s.queue) == 0 {
		return nil, 0, false, nil
	}
	item := s.queue[0]
	s.queue = s.queue[1:]
	return item.ev, item.seq, true, nil
}

func (s *fakeSource) Wait(timeoutMS int64, hasDeadline bool) (interface{}, uint16, bool, error) {
	return s.Poll()
}

func seedAtoms(c *atomcache.Cache) {
	names := []string{
		atomcache.NetWMWindowOpacity,
		atomcache.NetFrameExtents,
		atomcache.XRootPixmapID,
		atomcache.XSetRootID,
	}
	for i, n := range names {
		c.Seed(n, xproto.Atom(100+i))
	}
}

type harness struct {
	sess   *Session
	tbl    *window.Table
	conn   *xtest.FakeConn
	sched  *fade.Scheduler
	clk    *fakeClock
	demux  *xevent.Demux
	agg    *damage.Aggregator
	src    *fakeSource
	atoms  *atomcache.Cache
	ignore *ignorelog.Log
}

// newHarness wires the real Demux/Scheduler/Aggregator/Planner/Painter/
// RootTile stack against a shared xtest.FakeConn, the way cmd/compositor
// wires the production xconn.Resources adapter. kernel, if non-nil, enables
// the planner's shadow path.
func newHarness(cfg *fakeConfig, kernel *shadow.Kernel) *harness {
	tbl := window.NewTable()
	conn := xtest.New()
	clk := &fakeClock{}
	sched := fade.New(clk, 10)
	agg := damage.New(region.NewLocalSet())
	atoms := atomcache.New(nil)
	seedAtoms(atoms)
	ignore := &ignorelog.Log{}
	rootTile := paint.NewRootTile(conn, conn, conn)

	demux := xevent.New(tbl, sched, agg, conn, cfg, conn, ignore, atoms, rootTile, rootID, 1000, 1000, overlayID)

	planner := paint.New(conn, nil)
	if kernel != nil {
		planner.EnableShadows(kernel, cfg, conn)
	}
	black, _ := conn.SolidFill([4]uint16{0xffff, 0, 0, 0})
	painter := paint.NewPainter(conn, conn, black)

	buffer, _ := conn.SolidFill([4]uint16{0, 0, 0, 0})
	target, _ := conn.SolidFill([4]uint16{0, 0, 0, 0})

	src := &fakeSource{}
	sess := New(src, demux, sched, agg, tbl, planner, painter, conn, conn, rootTile, buffer, target, 1000, 1000)

	return &harness{sess: sess, tbl: tbl, conn: conn, sched: sched, clk: clk, demux: demux, agg: agg, src: src, atoms: atoms, ignore: ignore}
}

// runToCompletion ticks the clock forward by the scheduler's fixed 10ms
// delta and steps the session until no fade is pending, or the iteration
// cap is hit (a hung fade would otherwise loop forever). A fixed int32 step
// can lose up to one unit to truncation each tick, so the exact number of
// ticks needed to cross a target is not assumed — only that it eventually
// does, matching AdvanceFade's clamp-to-target guarantee.
func runToCompletion(t *testing.T, h *harness) {
	t.Helper()
	for i := 0; i < 1000 && h.sched.Pending(); i++ {
		h.clk.ms += 10
		if err := h.sess.Step(); err != nil {
			t.Fatal(err)
		}
	}
	if h.sched.Pending() {
		t.Fatal("fade never converged")
	}
}

func rectArea(rects []xproto.Rectangle) int {
	total := 0
	for _, r := range rects {
		total += int(r.Width) * int(r.Height)
	}
	return total
}

// E1 (spec.md §8): Create+Map a 100x100 window at (0,0), then its first
// DamageNotify. The window ends Mapped at opacity 1.0, and the region fed
// to the frame's clip covers at least its own rectangle, with the shadow
// folded in the same frame it first appears.
func TestE1_CreateMapDamage_PaintsWindowPlusShadow(t *testing.T) {
	cfg := &fakeConfig{shadowEnabled: true, shadowOpacity: 0.5, shadowDX: 2, shadowDY: 3}
	kernel := shadow.Build(2)
	h := newHarness(cfg, kernel)

	h.src.push(xproto.CreateNotifyEvent{Window: 10, X: 0, Y: 0, Width: 100, Height: 100}, 1)
	h.src.push(xproto.MapNotifyEvent{Window: 10}, 2)
	h.src.push(xgbdamage.NotifyEvent{Drawable: xproto.Drawable(10), Damage: 1}, 3)

	if err := h.sess.Step(); err != nil {
		t.Fatal(err)
	}

	w := h.tbl.Lookup(10)
	if w == nil {
		t.Fatal("expected window 10 to be tracked")
	}
	if w.State != window.Mapped {
		t.Fatalf("expected Mapped (fades disabled), got %v", w.State)
	}
	if w.Opacity.Current != window.OpaqueUnit {
		t.Fatalf("expected fully opaque, got %#x", w.Opacity.Current)
	}
	if !w.Textures.HasPicture {
		t.Fatal("expected a content picture to be built")
	}
	if !w.Textures.HasShadow {
		t.Fatal("expected a shadow to be built for a shadow-enabled window type")
	}
	if h.conn.ShadowUploads != 1 {
		t.Fatalf("expected exactly one shadow upload, got %d", h.conn.ShadowUploads)
	}
	if h.conn.FlushCount != 1 {
		t.Fatalf("expected exactly one flushed frame, got %d", h.conn.FlushCount)
	}
	if empty, _ := h.agg.Empty(); !empty {
		t.Fatal("expected all_damage to be cleared after the frame")
	}

	if len(h.conn.Cleared) == 0 {
		t.Fatal("expected the painter to have set a clip region")
	}
	rects, _ := h.conn.Cleared[0].FetchRects()
	if got, want := rectArea(rects), 100*100; got < want {
		t.Fatalf("expected the first frame's clip to cover at least the window's own area %d, got %d", want, got)
	}
}

// E2 (spec.md §8): fade_in_step = half the opaque range, fade_delta = 10ms.
// Opacity goes 0 -> 0.5 on the first 10ms tick; because OpaqueUnit/2
// truncates, reaching 1.0 takes a third tick, after which the window lands
// in Mapped.
func TestE2_FadeInProgressesOverTwoTicks(t *testing.T) {
	cfg := &fakeConfig{fadeEnabled: true, fadeInStep: int32(window.OpaqueUnit / 2)}
	h := newHarness(cfg, nil)

	h.src.push(xproto.CreateNotifyEvent{Window: 20, X: 0, Y: 0, Width: 50, Height: 50}, 1)
	h.src.push(xproto.MapNotifyEvent{Window: 20}, 2)
	if err := h.sess.Step(); err != nil {
		t.Fatal(err)
	}

	w := h.tbl.Lookup(20)
	if w == nil {
		t.Fatal("expected window 20 to be tracked")
	}
	if w.State != window.Fading || w.Opacity.Current != 0 {
		t.Fatalf("expected Fading at opacity 0 right after map, got state=%v opacity=%#x", w.State, w.Opacity.Current)
	}

	h.clk.ms += 10
	if err := h.sess.Step(); err != nil {
		t.Fatal(err)
	}
	if w.State != window.Fading || w.Opacity.Current != window.OpaqueUnit/2 {
		t.Fatalf("expected Fading at ~0.5 opacity at t=10ms, got state=%v opacity=%#x", w.State, w.Opacity.Current)
	}

	runToCompletion(t, h)
	if w.State != window.Mapped || w.Opacity.Current != window.OpaqueUnit {
		t.Fatalf("expected Mapped at full opacity once the fade converges, got state=%v opacity=%#x", w.State, w.Opacity.Current)
	}
}

// E3 (spec.md §8): a PropertyNotify dropping _NET_WM_WINDOW_OPACITY below
// OpaqueUnit (inactive-opacity disabled) schedules a fade-out that moves
// the window's paint mode from SOLID to TRANS once its current opacity
// actually drops below OpaqueUnit.
func TestE3_OpacityPropertyChangeSwitchesModeToTrans(t *testing.T) {
	cfg := &fakeConfig{fadeOutStep: -int32(window.OpaqueUnit / 4)}
	h := newHarness(cfg, nil)

	h.src.push(xproto.CreateNotifyEvent{Window: 30, X: 0, Y: 0, Width: 40, Height: 40}, 1)
	h.src.push(xproto.MapNotifyEvent{Window: 30}, 2)
	h.src.push(xgbdamage.NotifyEvent{Drawable: xproto.Drawable(30), Damage: 1}, 3)
	if err := h.sess.Step(); err != nil {
		t.Fatal(err)
	}

	w := h.tbl.Lookup(30)
	if w == nil {
		t.Fatal("expected window 30 to be tracked")
	}
	if w.Mode != window.ModeSolid {
		t.Fatalf("expected SOLID before any opacity change, got %v", w.Mode)
	}

	h.conn.HasOpacity[30] = true
	h.conn.Opacity[30] = window.OpaqueUnit / 2
	opacityAtom, err := h.atoms.Atom(atomcache.NetWMWindowOpacity)
	if err != nil {
		t.Fatal(err)
	}
	h.src.push(xproto.PropertyNotifyEvent{Window: 30, Atom: opacityAtom}, 4)
	if err := h.sess.Step(); err != nil {
		t.Fatal(err)
	}
	if w.State != window.Fading {
		t.Fatalf("expected Fading once the opacity property drops, got %v", w.State)
	}

	h.clk.ms += 10
	if err := h.sess.Step(); err != nil {
		t.Fatal(err)
	}
	if w.Opacity.Current >= window.OpaqueUnit {
		t.Fatalf("expected opacity to have dropped below opaque, got %#x", w.Opacity.Current)
	}
	if w.Mode != window.ModeTrans {
		t.Fatalf("expected TRANS once opacity drops below opaque, got %v", w.Mode)
	}
}

// E5 (spec.md §8): destroying a window mid-fade frees its damage handle
// immediately, tears the window down once the fade-out completes, and a
// later error bearing the freed request's sequence is swallowed rather than
// surfacing as a Dispatch failure.
func TestE5_DestroyWhileFading_TeardownAndErrorSwallowed(t *testing.T) {
	cfg := &fakeConfig{fadeEnabled: true, fadeInStep: int32(window.OpaqueUnit / 2), fadeOutStep: -int32(window.OpaqueUnit / 2)}
	h := newHarness(cfg, nil)

	h.src.push(xproto.CreateNotifyEvent{Window: 50, X: 0, Y: 0, Width: 30, Height: 30}, 1)
	h.src.push(xproto.MapNotifyEvent{Window: 50}, 2)
	if err := h.sess.Step(); err != nil {
		t.Fatal(err)
	}
	w := h.tbl.Lookup(50)
	if w == nil {
		t.Fatal("expected window 50 to be tracked")
	}

	runToCompletion(t, h)
	if w.State != window.Mapped {
		t.Fatalf("expected the fade-in to have completed, got %v", w.State)
	}

	h.src.push(xproto.DestroyNotifyEvent{Window: 50}, 3)
	if err := h.sess.Step(); err != nil {
		t.Fatal(err)
	}
	if !w.Destroyed {
		t.Fatal("expected Destroyed to be set immediately on DestroyNotify")
	}
	if w.Damage.Allocated {
		t.Fatal("expected the damage handle to be freed immediately on DestroyNotify")
	}

	runToCompletion(t, h)
	if h.tbl.Lookup(50) != nil {
		t.Fatal("expected the window to be removed once its fade-out completes")
	}
	if !h.conn.FreedContent[50] || !h.conn.FreedShadow[50] {
		t.Fatal("expected content and shadow to be freed on teardown")
	}

	// A stale BadDamage error for the already-freed damage handle's request
	// sequence must be swallowed, not surfaced as a Dispatch error, and
	// find_win (tbl.Lookup) must report the window gone.
	h.ignore.Push(3)
	if err := h.demux.Dispatch(fakeXError{seq: 3, msg: "BadDamage"}, 3); err != nil {
		t.Fatal(err)
	}
	if h.tbl.Lookup(50) != nil {
		t.Fatal("expected find_win to return null for the removed window")
	}
}

type fakeXError struct {
	seq uint16
	msg string
}

func (e fakeXError) Error() string      { return e.msg }
func (e fakeXError) SequenceId() uint16 { return e.seq }

// E6 (spec.md §8): a root Expose batch of three rectangles (Count 2, 1, 0)
// unions into all_damage only once the final event arrives, triggering
// exactly one paint.
func TestE6_ExposeBatchTriggersExactlyOnePaint(t *testing.T) {
	cfg := &fakeConfig{}
	h := newHarness(cfg, nil)

	h.src.push(xproto.ExposeEvent{Window: rootID, X: 0, Y: 0, Width: 10, Height: 10, Count: 2}, 1)
	h.src.push(xproto.ExposeEvent{Window: rootID, X: 10, Y: 0, Width: 10, Height: 10, Count: 1}, 2)
	h.src.push(xproto.ExposeEvent{Window: rootID, X: 20, Y: 0, Width: 10, Height: 10, Count: 0}, 3)

	if err := h.sess.Step(); err != nil {
		t.Fatal(err)
	}

	if h.conn.FlushCount != 1 {
		t.Fatalf("expected exactly one flushed frame for the whole batch, got %d", h.conn.FlushCount)
	}
	if empty, _ := h.agg.Empty(); !empty {
		t.Fatal("expected all_damage to be cleared after the batch's single paint")
	}
}
