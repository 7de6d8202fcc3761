package session

import (
	"time"

	"github.com/wmcore/compositor/internal/fade"
)

// realClock implements internal/fade.Clock against the wall clock, for
// production use; tests drive the scheduler with their own fake instead.
type realClock struct{}

func (realClock) NowMillis() int64 { return time.Now().UnixMilli() }

// NewRealClock returns the wall-clock fade.Clock implementation, for
// cmd/compositor to build its fade.Scheduler against.
func NewRealClock() fade.Clock { return realClock{} }
