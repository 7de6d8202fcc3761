package config

import "github.com/wmcore/compositor/internal/window"

// Default returns the baseline configuration applied before any TOML file
// or CLI override, mirroring the classic xcompmgr defaults this core's
// shadow/fade behavior is modeled on (spec.md §6.3's keys; the specific
// numbers aren't named by the spec and are recorded here as the Open
// Question resolution for "what ships out of the box").
func Default() *Config {
	c := &Config{
		ShadowRadiusPx:  12,
		ShadowOpacityPt: 0.75,
		ShadowOffXPx:    -15,
		ShadowOffYPx:    -15,

		FadeInStepPt:  fadeStepFromUnit(0.028),
		FadeOutStepPt: fadeStepFromUnit(0.03),
		FadeDeltaMs:   10,

		InactiveOpacityPt: 0,
		FrameOpacityPt:    0,

		WindowType: map[string]WindowTypeSettings{},
	}
	c.resolve()
	return c
}

// fadeStepFromUnit scales a per-tick opacity delta in [0,1] to the integral
// step internal/fade.Scheduler works in (spec.md §6.3's fade_in_step/
// fade_out_step, "opacity delta per tick").
func fadeStepFromUnit(delta float64) int32 {
	return int32(delta * float64(window.OpaqueUnit))
}
