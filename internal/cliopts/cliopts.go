// Package cliopts implements the CLI surface (spec.md §6.4). It is a thin
// pass-through over the standard library's flag package: the spec
// explicitly scopes command-line parsing as "inherited, not core logic",
// so a hand-rolled minimal flag table is the one ambient concern in this
// module where the standard library, not a third-party dependency, is the
// right call.
package cliopts

import (
	"flag"
	"fmt"

	"github.com/wmcore/compositor/internal/config"
	"github.com/wmcore/compositor/internal/window"
)

// Options holds the parsed command-line flags (spec.md §6.4's exact
// letters): shadow geometry/behavior (-r/-l/-t/-c/-C/-G/-z), fade
// (-I/-O/-D/-f), opacity (-o/-i/-e), daemon/display (-b/-S/-d), and the
// config file path (-config, not in the original letter table but needed
// to locate the TOML file internal/config.Load reads).
type Options struct {
	Display       string
	ConfigPath    string
	Daemonize     bool
	Synchronous   bool
	ShadowRadius  int
	ShadowOpacity float64
	ShadowOffsetX int
	ShadowOffsetY int
	EnableShadow  bool
	NoDockShadow  bool
	NoDndShadow   bool
	ClearShadow   bool
	EnableFade    bool
	FadeInStep    int
	FadeOutStep   int
	FadeDelta     int
	InactiveOpacity float64
	FrameOpacity    float64
}

// Parse decodes args (typically os.Args[1:]) into Options, returning an
// error on an unknown flag or malformed value (spec.md §6.4: "exit code 1
// on unknown flag").
func Parse(args []string) (*Options, error) {
	fs := flag.NewFlagSet("compositor", flag.ContinueOnError)
	o := &Options{}

	fs.StringVar(&o.Display, "d", "", "X display to connect to")
	fs.StringVar(&o.ConfigPath, "config", "", "path to the TOML config file")
	fs.BoolVar(&o.Daemonize, "b", false, "daemonize after startup (not supported: logs a notice and stays in the foreground)")
	fs.BoolVar(&o.Synchronous, "S", false, "run the X connection in synchronous mode (accepted, not applied)")

	fs.BoolVar(&o.EnableShadow, "c", false, "enable client-side shadows (accepted, not applied: shadows follow the per-type config)")
	fs.BoolVar(&o.NoDockShadow, "C", false, "avoid drawing shadows on dock windows")
	fs.BoolVar(&o.NoDndShadow, "G", false, "avoid drawing shadows on drag-and-drop windows")
	fs.BoolVar(&o.ClearShadow, "z", false, "clear the part of a shadow beneath its window")
	fs.IntVar(&o.ShadowRadius, "r", 0, "shadow blur radius in pixels (0 keeps the config default)")
	fs.Float64Var(&o.ShadowOpacity, "o", 0, "shadow opacity, 0-1 (0 keeps the config default)")
	fs.IntVar(&o.ShadowOffsetX, "l", 0, "shadow offset, left, in pixels")
	fs.IntVar(&o.ShadowOffsetY, "t", 0, "shadow offset, top, in pixels")

	fs.BoolVar(&o.EnableFade, "f", false, "fade windows in and out (accepted, not applied: fades follow the per-type config)")
	fs.IntVar(&o.FadeInStep, "I", 0, "fade-in step, 0-0xffffffff per tick (0 keeps the config default)")
	fs.IntVar(&o.FadeOutStep, "O", 0, "fade-out step, 0-0xffffffff per tick (0 keeps the config default)")
	fs.IntVar(&o.FadeDelta, "D", 0, "fade tick period in milliseconds (0 keeps the config default)")

	fs.Float64Var(&o.InactiveOpacity, "i", 0, "opacity of inactive normal windows, 0 disables")
	fs.Float64Var(&o.FrameOpacity, "e", 0, "frame opacity, 0 disables the five-region frame paint")

	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("cliopts: %w", err)
	}
	return o, nil
}

// Apply overlays the flags the user actually set onto cfg, taking
// precedence over both Default() and the TOML file (spec.md §6.4's flags
// "cover" the config keys of the same name). A zero-valued numeric flag is
// treated as "not set" rather than "set to zero": there is no separate
// on/off marker per flag. The booleans only ever add to the config: -z can
// turn clear_shadow on but never off, and -C/-G turn off the dock/dnd
// shadow. -c, -f, -S and -b are not read here, so per-type shadow and fade
// enablement comes from Default() and the TOML file alone.
func (o *Options) Apply(cfg *config.Config) {
	if o.ShadowRadius != 0 {
		cfg.ShadowRadiusPx = o.ShadowRadius
	}
	if o.ShadowOpacity != 0 {
		cfg.ShadowOpacityPt = o.ShadowOpacity
	}
	if o.ShadowOffsetX != 0 {
		cfg.ShadowOffXPx = o.ShadowOffsetX
	}
	if o.ShadowOffsetY != 0 {
		cfg.ShadowOffYPx = o.ShadowOffsetY
	}
	cfg.ClearShadowOpt = cfg.ClearShadowOpt || o.ClearShadow

	if o.FadeInStep != 0 {
		cfg.FadeInStepPt = int32(o.FadeInStep)
	}
	if o.FadeOutStep != 0 {
		cfg.FadeOutStepPt = int32(o.FadeOutStep)
	}
	if o.FadeDelta != 0 {
		cfg.FadeDeltaMs = int64(o.FadeDelta)
	}
	if o.InactiveOpacity != 0 {
		cfg.InactiveOpacityPt = o.InactiveOpacity
	}
	if o.FrameOpacity != 0 {
		cfg.FrameOpacityPt = o.FrameOpacity
	}

	if o.NoDockShadow {
		disableShadow(cfg, window.TypeDock)
	}
	if o.NoDndShadow {
		disableShadow(cfg, window.TypeDnd)
	}

	cfg.Resolve()
}

func disableShadow(cfg *config.Config, t window.Type) {
	s := cfg.ResolvedWindowType(t)
	s.Shadow = false
	cfg.SetWindowType(t, s)
}
