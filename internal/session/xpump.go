package session

import (
	"errors"
	"time"

	"github.com/BurntSushi/xgb"
	xgbdamage "github.com/BurntSushi/xgb/damage"
	"github.com/BurntSushi/xgb/shape"
	"github.com/BurntSushi/xgb/xproto"

	"github.com/wmcore/compositor/internal/xevent"
)

// xgbConn is the minimal surface xPump needs from *xgb.Conn (itsManjeet-exp's
// x11driver screenImpl.run() loop shape: "ev, err := s.xc.WaitForEvent()").
type xgbConn interface {
	WaitForEvent() (xgb.Event, error)
}

// errConnClosed is returned by Wait/Poll once the underlying connection has
// gone away (WaitForEvent returning a nil event and nil error).
var errConnClosed = errors.New("session: X connection closed")

// xPump adapts WaitForEvent's indefinitely-blocking call into the
// poll-then-wait-with-timeout shape Session.Step needs (spec.md §4.10's
// "block on the X connection file descriptor with timeout = fade_timeout()").
// xgb's public API has no such timeout parameter, so one background
// goroutine drains WaitForEvent continuously into a buffered channel; every
// state mutation downstream of that channel still happens only on the
// Session's own goroutine, preserving the single-threaded-cooperative model
// spec.md §5 describes.
type xPump struct {
	queue chan polled
}

type polled struct {
	ev  interface{}
	seq uint16
	err error
}

// newXPump starts the background pump goroutine over conn.
func newXPump(conn xgbConn) *xPump {
	p := &xPump{queue: make(chan polled, 64)}
	go p.run(conn)
	return p
}

func (p *xPump) run(conn xgbConn) {
	for {
		ev, err := conn.WaitForEvent()
		if ev == nil && err == nil {
			p.queue <- polled{err: errConnClosed}
			close(p.queue)
			return
		}
		if err != nil {
			if xe, ok := err.(xevent.XError); ok {
				p.queue <- polled{ev: xe, seq: xe.SequenceId()}
				continue
			}
			p.queue <- polled{err: err}
			close(p.queue)
			return
		}
		p.queue <- polled{ev: ev, seq: sequenceOf(ev)}
	}
}

func (p *xPump) Poll() (interface{}, uint16, bool, error) {
	select {
	case item, open := <-p.queue:
		if !open {
			return nil, 0, false, errConnClosed
		}
		if item.err != nil {
			return nil, 0, false, item.err
		}
		return item.ev, item.seq, true, nil
	default:
		return nil, 0, false, nil
	}
}

func (p *xPump) Wait(timeoutMS int64, hasDeadline bool) (interface{}, uint16, bool, error) {
	if !hasDeadline {
		item, open := <-p.queue
		if !open {
			return nil, 0, false, errConnClosed
		}
		if item.err != nil {
			return nil, 0, false, item.err
		}
		return item.ev, item.seq, true, nil
	}

	timer := time.NewTimer(time.Duration(timeoutMS) * time.Millisecond)
	defer timer.Stop()
	select {
	case item, open := <-p.queue:
		if !open {
			return nil, 0, false, errConnClosed
		}
		if item.err != nil {
			return nil, 0, false, item.err
		}
		return item.ev, item.seq, true, nil
	case <-timer.C:
		return nil, 0, false, nil
	}
}

// sequenceOf extracts the request sequence number xevent.Demux.Dispatch
// needs for ignore-log bookkeeping, mirroring Dispatch's own type switch
// over the concrete event types it handles.
func sequenceOf(ev interface{}) uint16 {
	switch e := ev.(type) {
	case xproto.CreateNotifyEvent:
		return e.Sequence
	case xproto.ConfigureNotifyEvent:
		return e.Sequence
	case xproto.MapNotifyEvent:
		return e.Sequence
	case xproto.UnmapNotifyEvent:
		return e.Sequence
	case xproto.DestroyNotifyEvent:
		return e.Sequence
	case xproto.ReparentNotifyEvent:
		return e.Sequence
	case xproto.CirculateNotifyEvent:
		return e.Sequence
	case xproto.ExposeEvent:
		return e.Sequence
	case xproto.PropertyNotifyEvent:
		return e.Sequence
	case xgbdamage.NotifyEvent:
		return e.Sequence
	case shape.NotifyEvent:
		return e.Sequence
	case xproto.FocusInEvent:
		return e.Sequence
	case xproto.FocusOutEvent:
		return e.Sequence
	default:
		return 0
	}
}

// NewXPump creates a live-connection EventSource over conn (typically
// xconn.Conn.X), for wiring into New from cmd/compositor.
func NewXPump(conn xgbConn) EventSource { return newXPump(conn) }
