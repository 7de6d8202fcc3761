package wmatch

import (
	"testing"

	"github.com/wmcore/compositor/internal/window"
)

func TestClassRuleMatches(t *testing.T) {
	set := NewSet(Rule{Class: "Firefox"})
	if !set.Blocks(Candidate{Class: "Firefox"}) {
		t.Fatal("expected class match to block")
	}
	if set.Blocks(Candidate{Class: "Chromium"}) {
		t.Fatal("expected non-matching class to pass")
	}
}

func TestCombinedConditionsAreAND(t *testing.T) {
	set := NewSet(Rule{Class: "Firefox", NameContains: "Picture-in-Picture"})
	if set.Blocks(Candidate{Class: "Firefox", Name: "Mozilla Firefox"}) {
		t.Fatal("expected rule not to match without name substring")
	}
	if !set.Blocks(Candidate{Class: "Firefox", Name: "Picture-in-Picture"}) {
		t.Fatal("expected rule to match when both conditions hold")
	}
}

func TestTypeRuleMatches(t *testing.T) {
	set := NewSet(Rule{Type: window.TypeDock, HasType: true})
	if !set.Blocks(Candidate{Type: window.TypeDock}) {
		t.Fatal("expected dock type to match")
	}
	if set.Blocks(Candidate{Type: window.TypeNormal}) {
		t.Fatal("expected normal type not to match")
	}
}

func TestNilSetBlocksNothing(t *testing.T) {
	var set *Set
	if set.Blocks(Candidate{Class: "anything"}) {
		t.Fatal("expected nil Set to block nothing")
	}
}

func TestMultipleRulesAreOR(t *testing.T) {
	set := NewSet(Rule{Class: "A"}, Rule{Class: "B"})
	if !set.Blocks(Candidate{Class: "B"}) {
		t.Fatal("expected second rule to match")
	}
	if set.Blocks(Candidate{Class: "C"}) {
		t.Fatal("expected no rule to match C")
	}
}
