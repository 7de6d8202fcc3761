// Package wmatch implements the paint-blacklist collaborator hook the
// planner consults (spec.md §4.6's "excluded by a paint-blacklist
// (blacklist is a collaborator — §6)"). It is a deliberately narrow
// condition language — class, type, and a literal name substring combined
// by AND — not a general blacklist DSL, per spec.md's Non-goals.
package wmatch

import (
	"strings"

	"github.com/wmcore/compositor/internal/window"
)

// Rule matches a window on some combination of class, type, and a literal
// substring of its name. A zero-value field in a condition means "don't
// care"; all non-zero fields must match (AND).
type Rule struct {
	Class        string // matches WM_CLASS's instance or class string, exact
	Type         window.Type
	HasType      bool
	NameContains string
}

// Candidate is the subset of window data a Rule can match against; it lets
// internal/paint pass in window.Window fields without wmatch importing
// anything beyond window.Type.
type Candidate struct {
	Class string
	Type  window.Type
	Name  string
}

// Matches reports whether c satisfies every non-empty condition in r.
func (r Rule) Matches(c Candidate) bool {
	if r.Class != "" && r.Class != c.Class {
		return false
	}
	if r.HasType && r.Type != c.Type {
		return false
	}
	if r.NameContains != "" && !strings.Contains(c.Name, r.NameContains) {
		return false
	}
	return true
}

// Set is an ordered list of blacklist rules; a window is blocked if any
// rule matches (OR across rules, AND within one rule's conditions).
type Set struct {
	rules []Rule
}

// NewSet builds a Set from rules, evaluated in order.
func NewSet(rules ...Rule) *Set {
	return &Set{rules: rules}
}

// Blocks reports whether c is excluded from painting by any rule in s. A
// nil Set blocks nothing.
func (s *Set) Blocks(c Candidate) bool {
	if s == nil {
		return false
	}
	for _, r := range s.rules {
		if r.Matches(c) {
			return true
		}
	}
	return false
}
