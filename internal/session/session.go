// Package session implements the main loop (spec.md §4.10): one
// cooperative, single-threaded cycle that drains queued X events through
// the demultiplexer, then — when there is anything to repaint — advances
// fades, runs the paint planner, composites the frame, and flushes the
// connection.
//
// No concrete event loop exists anywhere in the reference pack this core
// was modeled on: x11driver.Main (the teacher's own driver entry point) is
// an unimplemented stub with no event pump behind it. This package's design
// is therefore grounded on spec.md §4.10/§5 directly plus the blocking
// WaitForEvent loop shape every other xgb-based example in the pack uses
// (see DESIGN.md), rather than on a teacher event loop that does not exist.
package session

import (
	"github.com/BurntSushi/xgb/xproto"

	"github.com/wmcore/compositor/internal/backend"
	"github.com/wmcore/compositor/internal/damage"
	"github.com/wmcore/compositor/internal/fade"
	"github.com/wmcore/compositor/internal/paint"
	"github.com/wmcore/compositor/internal/region"
	"github.com/wmcore/compositor/internal/window"
	"github.com/wmcore/compositor/internal/xlog"
)

// Dispatcher is the event demultiplexer surface Session drives (satisfied
// by *internal/xevent.Demux).
type Dispatcher interface {
	Dispatch(ev interface{}, seq uint16) error
}

// EventSource decouples the X socket from Session (spec.md §5: the only
// suspension points are blocking on the socket and synchronous replies).
// Poll never blocks: it drains whatever is already queued. Wait blocks for
// up to timeoutMS milliseconds (or indefinitely if hasDeadline is false) for
// the next event, returning ok=false on timeout. Both return a decoded
// event/error of one of the concrete types internal/xevent.Demux.Dispatch
// switches on, plus the sequence number Dispatch needs for ignore-log
// bookkeeping.
type EventSource interface {
	Poll() (ev interface{}, seq uint16, ok bool, err error)
	Wait(timeoutMS int64, hasDeadline bool) (ev interface{}, seq uint16, ok bool, err error)
}

// RegionBuilder is the minimal region-allocation surface Session needs
// beyond what the planner/painter already own, for folding a fading
// window's extents into all_damage before its geometry has been planned
// even once (see the fade-tick/damage note on Step below).
type RegionBuilder interface {
	RegionFromRects(rects []xproto.Rectangle) region.Set
}

// Session owns one compositor instance's full per-frame cycle.
type Session struct {
	source  EventSource
	demux   Dispatcher
	sched   *fade.Scheduler
	agg     *damage.Aggregator
	tbl     *window.Table
	planner *paint.Planner
	painter *paint.Painter
	res     RegionBuilder
	r       backend.Renderer

	rootTile *paint.RootTile
	buffer   backend.Picture
	target   backend.Picture

	screenW, screenH uint16
}

// New creates a Session. buffer is the off-screen compositing picture the
// painter draws both phases into; target is where the finished frame is
// blitted (the composite overlay window's picture in production).
func New(source EventSource, demux Dispatcher, sched *fade.Scheduler, agg *damage.Aggregator, tbl *window.Table, planner *paint.Planner, painter *paint.Painter, res RegionBuilder, r backend.Renderer, rootTile *paint.RootTile, buffer, target backend.Picture, screenW, screenH uint16) *Session {
	planner.SetDamageSink(agg)
	return &Session{
		source: source, demux: demux, sched: sched, agg: agg, tbl: tbl,
		planner: planner, painter: painter, res: res, r: r,
		rootTile: rootTile, buffer: buffer, target: target,
		screenW: screenW, screenH: screenH,
	}
}

// Resize updates the screen dimensions the planner and painter composite
// against (root ConfigureNotify, spec.md §4.3).
func (s *Session) Resize(w, h uint16) { s.screenW, s.screenH = w, h }

// Run drives the loop forever, returning only on an unrecoverable error from
// the event source, the planner, or the painter.
func (s *Session) Run() error {
	for {
		if err := s.Step(); err != nil {
			return err
		}
	}
}

// Step runs one iteration of the loop: drain every already-queued event,
// run a frame if there is anything to repaint, then block for the next
// event up to the fade scheduler's next deadline (spec.md §4.10). It is
// exported so tests can drive the loop one iteration at a time against a
// synthetic EventSource and clock.
func (s *Session) Step() error {
	for {
		ev, seq, ok, err := s.source.Poll()
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		if err := s.demux.Dispatch(ev, seq); err != nil {
			return err
		}
	}

	if err := s.runFrame(); err != nil {
		return err
	}

	timeoutMS, hasDeadline := s.sched.Timeout()
	ev, seq, ok, err := s.source.Wait(timeoutMS, hasDeadline)
	if err != nil {
		return err
	}
	if ok {
		if err := s.demux.Dispatch(ev, seq); err != nil {
			return err
		}
	}
	return nil
}

// runFrame implements spec.md §4.10's conditional pipeline. A fading
// window's on-screen appearance changes every tick purely from the
// scheduler's internal clock, with no fresh DamageNotify to report it, so
// its current extents (or plain geometry rectangle, before the planner has
// ever resolved them) are folded into all_damage before the tick runs —
// otherwise "run the pipeline only when all_damage is non-empty" would
// starve every in-progress fade of a repaint. This is the one place this
// package's behavior goes beyond the literal spec.md §4.10 prose; see
// DESIGN.md for the reasoning.
func (s *Session) runFrame() error {
	if s.sched.Pending() {
		for _, w := range s.tbl.Bottom() {
			if w == nil || !w.Fading() {
				continue
			}
			extents := w.Extents
			if extents == nil {
				extents = s.res.RegionFromRects([]xproto.Rectangle{w.Geometry.Rect()})
			}
			if err := s.agg.AddRegion(extents); err != nil {
				return err
			}
		}
		s.sched.Tick()
	}

	empty, err := s.agg.Empty()
	if err != nil {
		return err
	}
	if empty {
		return nil
	}
	return s.paintFrame()
}

func (s *Session) paintFrame() error {
	plan, err := s.planner.Run(s.tbl, s.screenW, s.screenH)
	if err != nil {
		return err
	}

	rootTile, err := s.rootTile.Get()
	if err != nil {
		return err
	}

	if err := s.painter.Paint(plan, s.agg.All(), s.buffer, rootTile, s.target, s.screenW, s.screenH); err != nil {
		return err
	}
	if err := s.r.Flush(); err != nil {
		return err
	}
	if err := s.agg.Clear(); err != nil {
		return err
	}

	for _, w := range s.tbl.Bottom() {
		if w != nil {
			w.ClipChanged = false
		}
	}
	xlog.Log(xlog.Debug, "frame painted", xlog.L("windows", len(plan.ToPaint)))
	return nil
}
