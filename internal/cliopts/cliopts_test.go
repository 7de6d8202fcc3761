package cliopts

import (
	"testing"

	"github.com/wmcore/compositor/internal/config"
	"github.com/wmcore/compositor/internal/window"
)

func TestParseReadsEveryFlag(t *testing.T) {
	o, err := Parse([]string{
		"-d", ":1", "-b", "-S",
		"-c", "-C", "-G", "-z", "-r", "20", "-o", "0.8", "-l", "-10", "-t", "-5",
		"-f", "-I", "1000", "-O", "2000", "-D", "15",
		"-i", "0.6", "-e", "0.9",
	})
	if err != nil {
		t.Fatal(err)
	}
	if o.Display != ":1" || !o.Daemonize || !o.Synchronous {
		t.Fatalf("unexpected connection flags: %+v", o)
	}
	if !o.EnableShadow || !o.NoDockShadow || !o.NoDndShadow || !o.ClearShadow {
		t.Fatalf("unexpected shadow bool flags: %+v", o)
	}
	if o.ShadowRadius != 20 || o.ShadowOpacity != 0.8 || o.ShadowOffsetX != -10 || o.ShadowOffsetY != -5 {
		t.Fatalf("unexpected shadow geometry flags: %+v", o)
	}
	if !o.EnableFade || o.FadeInStep != 1000 || o.FadeOutStep != 2000 || o.FadeDelta != 15 {
		t.Fatalf("unexpected fade flags: %+v", o)
	}
	if o.InactiveOpacity != 0.6 || o.FrameOpacity != 0.9 {
		t.Fatalf("unexpected opacity flags: %+v", o)
	}
}

func TestParseRejectsUnknownFlag(t *testing.T) {
	if _, err := Parse([]string{"-bogus"}); err == nil {
		t.Fatal("expected an error for an unknown flag")
	}
}

func TestApplyOverridesConfigDefaults(t *testing.T) {
	cfg := config.Default()
	o := &Options{ShadowRadius: 30, ClearShadow: true, NoDockShadow: true}
	o.Apply(cfg)

	if cfg.ShadowRadius() != 30 {
		t.Fatalf("expected shadow radius 30, got %d", cfg.ShadowRadius())
	}
	if !cfg.ClearShadow() {
		t.Fatal("expected clear_shadow true after Apply")
	}
	if cfg.ShadowEnabled(window.TypeDock) {
		t.Fatal("expected dock shadows disabled after -C")
	}
	if !cfg.FadeEnabled(window.TypeDock) {
		t.Fatal("expected dock fades to remain enabled, only shadow should be touched by -C")
	}
}

func TestApplyLeavesUnsetNumericFieldsAtConfigDefaults(t *testing.T) {
	cfg := config.Default()
	before := cfg.ShadowRadius()
	o := &Options{}
	o.Apply(cfg)
	if cfg.ShadowRadius() != before {
		t.Fatalf("expected shadow radius to stay at the config default %d, got %d", before, cfg.ShadowRadius())
	}
}
