// Package ignorelog implements the FIFO of pending X request sequence
// numbers whose resulting errors are expected and must be suppressed
// (spec.md §3.2, §4.3, §7).
//
// The shape is lifted from golang.org/x/exp's shiny/driver/x11driver:
// bufferImpl.upload keys a map of in-flight completions by cookie.Sequence
// (the sequence number an xgb request returns) and consumes the matching
// entry when a reply or event carrying that sequence arrives later. Here
// the same "remember a pending sequence, reconcile it against a later
// arrival" idea becomes an ordered FIFO instead of a map, because the log
// must also support "discard every entry older than sequence S" (§4.3:
// "first discard ignore-sequences older than the event").
package ignorelog

// entry is one pending ignore record (spec.md §3.2).
type entry struct {
	seq  uint16
	next *entry
}

// Log is a singly-linked FIFO ordered by ascending sequence number. The
// zero value is ready to use.
type Log struct {
	head *entry // oldest still-relevant entry
	tail *entry // insertion point
}

// seqLess reports whether a is older than b, accounting for uint16 wrap:
// X sequence numbers wrap at 65536, so comparisons must use the same
// signed-difference trick the X protocol itself relies on.
func seqLess(a, b uint16) bool {
	return int16(a-b) < 0
}

// Push appends a sequence number expected to produce an ignorable error.
// The list is totally ordered by sequence (spec.md §3.2); callers must push
// in non-decreasing sequence order, which holds naturally since X request
// sequence numbers are assigned monotonically per connection.
func (l *Log) Push(seq uint16) {
	e := &entry{seq: seq}
	if l.tail != nil {
		l.tail.next = e
	} else {
		l.head = e
	}
	l.tail = e
}

// DiscardOlderThan drops every entry strictly older than seq. Called before
// dispatching any event (§4.3) so that an error for a request older than
// the ignore-log's oldest relevant entry is never swallowed (testable
// property 4: "no false positives").
func (l *Log) DiscardOlderThan(seq uint16) {
	for l.head != nil && seqLess(l.head.seq, seq) {
		l.head = l.head.next
	}
	if l.head == nil {
		l.tail = nil
	}
}

// Swallow reports whether an error with the given sequence should be
// suppressed: it must be present in the log, meaning not older than the
// oldest entry. On a match, every entry up to and including seq is
// consumed (an X error is generated for only one request, so there is no
// reason to keep older-or-equal entries around once seen).
//
// Swallow deliberately does NOT swallow a sequence older than the current
// head: the original implementation this spec is reworked from did (a
// subtle bug spec.md §9 calls out — "errors can leak after a long-running
// session"); this port refuses that case instead, matching spec.md §7's
// "otherwise log and continue" / testable property 4.
func (l *Log) Swallow(seq uint16) bool {
	if l.head == nil {
		return false
	}
	if seqLess(seq, l.head.seq) {
		return false
	}
	found := false
	for l.head != nil {
		if l.head.seq == seq {
			found = true
			l.head = l.head.next
			break
		}
		if seqLess(seq, l.head.seq) {
			break
		}
		l.head = l.head.next
	}
	if l.head == nil {
		l.tail = nil
	}
	return found
}

// Empty reports whether the log has no pending entries.
func (l *Log) Empty() bool { return l.head == nil }
