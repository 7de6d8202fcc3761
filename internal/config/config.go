// Package config implements the configuration collaborator contract
// (spec.md §6.3): a parsed structure the core consults for per-type and
// global paint behavior, loaded from a TOML file in the same
// decode-into-struct-then-apply-defaults shape noisetorch's config.go uses.
package config

import (
	"errors"
	"fmt"

	"github.com/BurntSushi/toml"

	"github.com/wmcore/compositor/internal/window"
	"github.com/wmcore/compositor/internal/wmatch"
)

// WindowTypeSettings holds the per-type overrides spec.md §6.3 names
// (wintype_shadow[T], wintype_fade[T], wintype_opacity[T]).
type WindowTypeSettings struct {
	Shadow  bool
	Fade    bool
	Opacity float64 `toml:"opacity"`
}

// BlacklistRule is one TOML-authored paint-exclusion rule, decoded into a
// wmatch.Rule (internal/wmatch deliberately doesn't know about TOML).
type BlacklistRule struct {
	Class        string `toml:"class"`
	Type         string `toml:"type"`
	NameContains string `toml:"name_contains"`
}

// Config is the parsed structure (spec.md §6.3's key table, plus the
// per-type tables SPEC_FULL.md §6.3 adds). Field names carry a trailing
// tag distinct from the accessor method names internal/xevent.Config and
// internal/paint.ShadowConfig require, since Go doesn't allow a field and
// a method of the same name on one type.
type Config struct {
	ShadowRadiusPx  int     `toml:"shadow_radius"`
	ShadowOpacityPt float64 `toml:"shadow_opacity"`
	ShadowOffXPx    int     `toml:"shadow_offset_x"`
	ShadowOffYPx    int     `toml:"shadow_offset_y"`
	ClearShadowOpt  bool    `toml:"clear_shadow"`

	// ShadowRespectShape clips each window's shadow to its Shape-extension
	// bounding shape instead of its plain rectangle. It is the other half
	// of the clear_shadow/bounding-shape interaction spec.md §9 flags as
	// needing an explicit decision (see DESIGN.md): combining it with
	// clear_shadow is rejected by Validate rather than given a guessed
	// blend semantics.
	ShadowRespectShape bool `toml:"shadow_respect_shape"`

	FadeInStepPt  int32 `toml:"fade_in_step"`
	FadeOutStepPt int32 `toml:"fade_out_step"`
	FadeDeltaMs   int64 `toml:"fade_delta"`

	InactiveOpacityPt float64 `toml:"inactive_opacity"`
	FrameOpacityPt    float64 `toml:"frame_opacity"`

	WindowType map[string]WindowTypeSettings `toml:"wintype"`
	Blacklist  []BlacklistRule               `toml:"blacklist"`

	resolved     [window.TypeCount]WindowTypeSettings
	blacklistSet *wmatch.Set
}

// ErrClearShadowWithShape is returned by Validate when a config file
// requests both clear_shadow and shadow_respect_shape: clearing a
// rectangular hole beneath a non-rectangular window while also clipping
// the shadow to that same non-rectangular outline has no single sensible
// result, so the combination is rejected outright rather than guessed.
var ErrClearShadowWithShape = errors.New("config: clear_shadow and shadow_respect_shape cannot both be set")

// Load reads and decodes path over Default()'s baseline, then resolves the
// per-type tables and blacklist. Call Validate after Load to reject
// contradictory settings.
func Load(path string) (*Config, error) {
	c := Default()
	if _, err := toml.DecodeFile(path, c); err != nil {
		return nil, fmt.Errorf("config: decode %s: %w", path, err)
	}
	c.resolve()
	return c, nil
}

// Validate rejects configurations spec.md §9 calls out as needing an
// explicit decision rather than a guessed blend semantics.
func (c *Config) Validate() error {
	if c.ClearShadowOpt && c.ShadowRespectShape {
		return ErrClearShadowWithShape
	}
	return nil
}

// resolve builds the fixed-size per-type lookup table and the blacklist
// matcher from the TOML-decoded maps/slices. Load calls this after
// decoding; tests that build a Config by hand must call it too before
// using FadeEnabled/ShadowEnabled/BlacklistSet.
func (c *Config) resolve() {
	for i := 0; i < window.TypeCount; i++ {
		t := window.Type(i)
		c.resolved[i] = WindowTypeSettings{Shadow: true, Fade: true, Opacity: 1.0}
		if s, ok := c.WindowType[t.String()]; ok {
			c.resolved[i] = s
		}
	}

	rules := make([]wmatch.Rule, 0, len(c.Blacklist))
	for _, br := range c.Blacklist {
		r := wmatch.Rule{Class: br.Class, NameContains: br.NameContains}
		if br.Type != "" {
			if t, ok := parseType(br.Type); ok {
				r.Type = t
				r.HasType = true
			}
		}
		rules = append(rules, r)
	}
	c.blacklistSet = wmatch.NewSet(rules...)
}

// Resolve exposes resolve for callers (tests, cliopts.Apply) that mutate a
// Config after Load and need the per-type table and blacklist rebuilt.
func (c *Config) Resolve() { c.resolve() }

// BlacklistSet returns the resolved paint-exclusion matcher
// (internal/paint.New's blacklist argument).
func (c *Config) BlacklistSet() *wmatch.Set { return c.blacklistSet }

// ResolvedWindowType returns t's currently resolved per-type settings
// (defaults merged with any TOML wintype table), for callers (cliopts.Apply)
// that need to override one field of an already-resolved type without
// clobbering the rest.
func (c *Config) ResolvedWindowType(t window.Type) WindowTypeSettings { return c.resolved[t] }

// SetWindowType overwrites t's per-type settings in the TOML-level table;
// the change takes effect in the resolved lookups once Resolve is called.
func (c *Config) SetWindowType(t window.Type, s WindowTypeSettings) {
	if c.WindowType == nil {
		c.WindowType = map[string]WindowTypeSettings{}
	}
	c.WindowType[t.String()] = s
}

// TypeOpacity returns the configured default opacity for t, in [0,1].
func (c *Config) TypeOpacity(t window.Type) float64 {
	if o := c.resolved[t].Opacity; o > 0 {
		return o
	}
	return 1.0
}

func parseType(name string) (window.Type, bool) {
	for i := 0; i < window.TypeCount; i++ {
		if window.Type(i).String() == name {
			return window.Type(i), true
		}
	}
	return window.TypeUnknown, false
}

// --- internal/xevent.Config ---

func (c *Config) FadeEnabled(t window.Type) bool       { return c.resolved[t].Fade }
func (c *Config) ShadowEnabled(t window.Type) bool     { return c.resolved[t].Shadow }
func (c *Config) FadeInStep() int32                    { return c.FadeInStepPt }
func (c *Config) FadeOutStep() int32                   { return c.FadeOutStepPt }
func (c *Config) InactiveOpacityEnabled() bool         { return c.InactiveOpacityPt > 0 }
func (c *Config) InactiveOpacity() uint32 {
	return uint32(c.InactiveOpacityPt * float64(window.OpaqueUnit))
}
func (c *Config) FrameOpacity() float64 { return c.FrameOpacityPt }

// ShadowRadius returns the configured Gaussian kernel radius in pixels,
// used once at startup to build the internal/shadow.Kernel (spec.md §6.3,
// §4.9).
func (c *Config) ShadowRadius() int { return c.ShadowRadiusPx }

// FadeDelta returns the configured tick period in milliseconds
// (internal/fade.New's deltaMS argument).
func (c *Config) FadeDelta() int64 { return c.FadeDeltaMs }

// --- internal/paint.ShadowConfig ---

func (c *Config) ShadowOpacity() float64 { return c.ShadowOpacityPt }
func (c *Config) ClearShadow() bool      { return c.ClearShadowOpt }
func (c *Config) ShadowOffset() (dx, dy int16) {
	return int16(c.ShadowOffXPx), int16(c.ShadowOffYPx)
}
