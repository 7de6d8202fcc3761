// Package xlog provides the compositor's ambient structured logging.
//
// It restates the shape of golang.org/x/exp's experimental event package
// (namespace + labels delivered to a pluggable Exporter) without the
// multi-backend adapter zoo: one process, one exporter, wired to zap.
package xlog

import (
	"fmt"
	"sync"
)

// Level is the severity of an Event, ordered least to most severe.
type Level int

const (
	Debug Level = iota
	Info
	Warn
	Error
)

func (l Level) String() string {
	switch l {
	case Debug:
		return "debug"
	case Info:
		return "info"
	case Warn:
		return "warn"
	case Error:
		return "error"
	default:
		return "unknown"
	}
}

// Label is a single key/value pair attached to an Event.
type Label struct {
	Key   string
	Value interface{}
}

// L builds a Label. Short name because call sites log with several of these.
func L(key string, value interface{}) Label { return Label{Key: key, Value: value} }

// Event is one emitted log record.
type Event struct {
	Level   Level
	Message string
	Labels  []Label
}

// Exporter receives every emitted Event. Implementations must not block the
// caller for long: the core logs from inside the single-threaded event
// dispatch loop (§5 of the spec), so a slow exporter stalls compositing.
type Exporter interface {
	Export(e Event)
}

var (
	mu       sync.Mutex
	exporter Exporter = discard{}
)

type discard struct{}

func (discard) Export(Event) {}

// SetExporter installs the process-wide exporter. Call once during startup,
// before the session is run.
func SetExporter(e Exporter) {
	mu.Lock()
	defer mu.Unlock()
	if e == nil {
		e = discard{}
	}
	exporter = e
}

func emit(level Level, msg string, labels []Label) {
	mu.Lock()
	e := exporter
	mu.Unlock()
	e.Export(Event{Level: level, Message: msg, Labels: labels})
}

// Log emits msg at level with the given labels.
func Log(level Level, msg string, labels ...Label) { emit(level, msg, labels) }

// Debugf, Infof, Warnf, Errorf format msg with fmt.Sprintf and emit it at the
// named level with no labels. Prefer Log with Labels for anything a human
// or export pipeline might want to filter on.
func Debugf(format string, args ...interface{}) { emit(Debug, fmt.Sprintf(format, args...), nil) }
func Infof(format string, args ...interface{})  { emit(Info, fmt.Sprintf(format, args...), nil) }
func Warnf(format string, args ...interface{})  { emit(Warn, fmt.Sprintf(format, args...), nil) }
func Errorf(format string, args ...interface{}) { emit(Error, fmt.Sprintf(format, args...), nil) }
