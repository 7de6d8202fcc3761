// Package xerr restates spec.md §7's error-kind table as Go types, adapted
// from golang.org/x/exp/errors: a minimal call-stack capture attached to an
// annotated error, kept because the core's fatal paths (§7) want to report
// where a fatal condition was raised, not just that it was.
package xerr

import (
	"fmt"
	"runtime"
	"strings"
)

// Stack is a short slice of a call stack, captured at the point an error
// is raised.
type Stack struct {
	frames [3]uintptr
}

// Capture records the call frame of the caller of Capture.
func Capture() Stack {
	var s Stack
	runtime.Callers(2, s.frames[:])
	return s
}

func (s Stack) String() string {
	frames := runtime.CallersFrames(s.frames[:])
	if _, ok := frames.Next(); !ok {
		return ""
	}
	fr, ok := frames.Next()
	if !ok {
		return ""
	}
	file := fr.File
	if i := strings.LastIndex(file, "/"); i >= 0 {
		file = file[i+1:]
	}
	return fmt.Sprintf("%s:%d", file, fr.Line)
}

// Ignorable marks an error arising from an X request race (§7: BadWindow,
// BadPixmap, BadDamage, BadPicture, BadRegion) whose disposition depends on
// the ignore-sequence log. It is never itself fatal; internal/xevent
// decides whether to swallow or log it based on internal/ignorelog.
type Ignorable struct {
	Seq   uint16
	Kind  string // e.g. "BadWindow", "BadDamage"
	Stack Stack
}

func (e *Ignorable) Error() string {
	return fmt.Sprintf("%s (sequence %d) at %s", e.Kind, e.Seq, e.Stack)
}

// NewIgnorable wraps a decoded X error for ignore-log evaluation.
func NewIgnorable(seq uint16, kind string) *Ignorable {
	return &Ignorable{Seq: seq, Kind: kind, Stack: Capture()}
}

// Fatal marks a condition spec.md §7 requires to terminate the process:
// a missing required extension, or a foreign compositor already owning the
// selection / holding CompositeRedirectSubwindows. Fatal errors propagate up
// to cmd/compositor/main.go, which logs a single stderr line and exits 1.
type Fatal struct {
	Reason string
	Cause  error
	Stack  Stack
}

func (e *Fatal) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s", e.Reason, e.Cause)
	}
	return e.Reason
}

func (e *Fatal) Unwrap() error { return e.Cause }

// NewFatal builds a Fatal with reason and an optional underlying cause.
func NewFatal(reason string, cause error) *Fatal {
	return &Fatal{Reason: reason, Cause: cause, Stack: Capture()}
}

// AnotherCompositorRunning is the specific Fatal raised when BadAccess is
// received on CompositeRedirectSubwindows or on setting the _NET_WM_CM_S
// selection (§7).
func AnotherCompositorRunning(cause error) *Fatal {
	return NewFatal("another composite manager is already running", cause)
}

// MissingExtension is the specific Fatal raised when a required X extension
// is absent or below the minimum version at startup (§6.1, §7).
func MissingExtension(name string, required, got string) *Fatal {
	msg := fmt.Sprintf("required X extension %q missing or too old (need >= %s, have %s)", name, required, got)
	return NewFatal(msg, nil)
}
