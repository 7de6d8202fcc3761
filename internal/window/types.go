// Package window implements the central entity of the compositor core
// (spec.md §3.1): the Window record, the ordered stacking Table, and the
// lifecycle state machine (§4.2) that mutates both in response to X events.
//
// The intrusive singly-linked list the original implementation this spec
// describes uses (a head pointer with arbitrary detach/reinsert, so
// restacking a window means relinking two pointers) is explicitly flagged
// in spec.md §9 as needing re-architecture for Go: there is no safe
// "arbitrary pointer surgery" idiom here. Table instead keeps windows in a
// map keyed by X window id plus a secondary ordered []xproto.Window stacking
// vector, exactly the alternative spec.md §9 names ("an ordered map keyed
// by X window id with a secondary stacking vector").
package window

import (
	"github.com/BurntSushi/xgb/damage"
	"github.com/BurntSushi/xgb/render"
	"github.com/BurntSushi/xgb/xproto"

	"github.com/wmcore/compositor/internal/region"
)

// Type is the closed EWMH-derived window-type tag (spec.md §3.1).
type Type int

const (
	TypeUnknown Type = iota
	TypeDesktop
	TypeDock
	TypeToolbar
	TypeMenu
	TypeUtility
	TypeSplash
	TypeDialog
	TypeNormal
	TypeDropdownMenu
	TypePopupMenu
	TypeTooltip
	TypeNotify
	TypeCombo
	TypeDnd
	typeCount
)

func (t Type) String() string {
	names := [...]string{
		"unknown", "desktop", "dock", "toolbar", "menu", "utility", "splash",
		"dialog", "normal", "dropdown_menu", "popup_menu", "tooltip",
		"notify", "combo", "dnd",
	}
	if int(t) < 0 || int(t) >= len(names) {
		return "unknown"
	}
	return names[t]
}

// TypeCount is the number of Type values, for sizing per-type config tables
// (wintype_shadow, wintype_fade, wintype_opacity — spec.md §6.3).
const TypeCount = int(typeCount)

// State is the window lifecycle state (spec.md §3.1, §4.2).
type State int

const (
	Unmapped State = iota
	Mapping
	Mapped
	Fading
	Unmapping
	Destroying
)

func (s State) String() string {
	switch s {
	case Unmapped:
		return "unmapped"
	case Mapping:
		return "mapping"
	case Mapped:
		return "mapped"
	case Fading:
		return "fading"
	case Unmapping:
		return "unmapping"
	case Destroying:
		return "destroying"
	default:
		return "invalid"
	}
}

// Mode is the window's paint mode (spec.md §3.1).
type Mode int

const (
	ModeSolid Mode = iota
	ModeTrans
	ModeARGB
)

// OpaqueUnit is the integral "opaque" constant opacity values are scaled to
// (spec.md §3.1: "both in the unit interval scaled to an integral 'opaque'
// constant"). Chosen to match the 32-bit CARDINAL range _NET_WM_WINDOW_OPACITY
// uses on the wire, so property values need no rescaling.
const OpaqueUnit = 0xffffffff

// Geometry is a window's position and size, including its border.
type Geometry struct {
	X, Y          int16
	Width, Height uint16
	BorderWidth   uint16
}

// WidthB and HeightB are width/height plus twice the border width (§3.1).
func (g Geometry) WidthB() uint16  { return g.Width + 2*g.BorderWidth }
func (g Geometry) HeightB() uint16 { return g.Height + 2*g.BorderWidth }

// Rect returns the absolute window rectangle (origin at X,Y, size WidthB x
// HeightB) as an xproto.Rectangle, for region construction.
func (g Geometry) Rect() xproto.Rectangle {
	return xproto.Rectangle{X: g.X, Y: g.Y, Width: g.WidthB(), Height: g.HeightB()}
}

// FrameExtents is the WM-drawn border widths read from _NET_FRAME_EXTENTS
// (spec.md §3.1), used for the five-region frame-opacity paint (§4.7).
type FrameExtents struct {
	Left, Right, Top, Bottom uint32
}

// Any reports whether any of the four extents is non-zero.
func (f FrameExtents) Any() bool {
	return f.Left != 0 || f.Right != 0 || f.Top != 0 || f.Bottom != 0
}

// Opacity tracks a window's current/target/property opacity plus its
// separate frame opacity (spec.md §3.1).
type Opacity struct {
	Current      uint32 // animated value, advanced by internal/fade
	Target       uint32
	Property     uint32 // last value read from _NET_WM_WINDOW_OPACITY, 0 if absent
	HasProperty  bool
	FrameOpacity float64 // ∈ [0,1], 0 means "no carve-out" (config default or override)
}

// Damage holds the X Damage handle for a window and whether it has ever
// reported damage (spec.md §3.1: "used to distinguish 'first repair' from
// subsequent ones").
type Damage struct {
	Handle       damage.Damage
	Allocated    bool
	EverDamaged  bool
}

// Textures holds the on-server rendering resources for a window
// (spec.md §3.1).
type Textures struct {
	Pixmap          xproto.Pixmap
	Picture         render.Picture
	HasPicture      bool
	BodyAlphaMask   render.Picture
	HasBodyAlpha    bool
	FrameAlphaMask  render.Picture
	HasFrameAlpha   bool
	ShadowPicture   render.Picture
	HasShadow       bool
	ShadowPixmap    xproto.Pixmap
	ShadowWidth     uint16
	ShadowHeight    uint16
	ShadowDX        int16
	ShadowDY        int16
}

// Window is the central entity of the compositor (spec.md §3.1): one
// top-level X resource the core manages.
type Window struct {
	ID               xproto.Window
	ClientWindow     xproto.Window
	HasClientWindow  bool
	Type             Type
	Class            string // WM_CLASS instance name, for wmatch rules
	Name             string // WM_NAME / _NET_WM_NAME, for wmatch rules
	OverrideRedirect bool
	InputOnly        bool

	Geometry Geometry

	State State
	Mode  Mode

	Opacity      Opacity
	FrameExtents FrameExtents

	BoundingShape region.Set // nil means "use Geometry.Rect()"
	BorderSize    region.Set
	Extents       region.Set
	BorderClip    region.Set // per-paint scratch, freed each frame (§4.7)
	RegIgnore     region.Set // snapshot used by the planner (§4.6)

	Textures Textures
	Damage   Damage

	Destroyed bool
	Focused   bool

	// ClipChanged marks that BorderSize/Extents must be rebuilt before the
	// next paint (spec.md §4.2's ConfigureNotify handling; §4.6 consults
	// this implicitly by rebuilding when Extents is nil).
	ClipChanged bool

	// Damaged is the per-window bit the damage aggregator maintains
	// (spec.md §3.4).
	Damaged bool

	// PendingConfigure stores a ConfigureNotify received while Unmapped,
	// replayed at the next Map rather than applied immediately (§4.2):
	// "the window's pixmap is not nameable while unmapped."
	PendingConfigure *Geometry

	// PrevTrans is the paint-order back-link the planner builds each frame
	// (spec.md §3.1, §4.6): the previously selected paintable window in the
	// top-down chain. It is scratch state, valid only during one frame's
	// paint pass.
	PrevTrans *Window

	fade fadeState
}

// fadeState is the per-window fade-entry data (spec.md §3.5), kept
// unexported because only internal/fade mutates it; exported accessors
// below let other packages read it read-only.
type fadeState struct {
	active   bool
	start    uint32
	target   uint32
	step     int32 // signed per-tick delta
	callback func(*Window)
}

// Fading reports whether a fade is currently scheduled for w.
func (w *Window) Fading() bool { return w.fade.active }

// PaintableBasic reports whether w currently has a nameable content picture
// and has ever reported damage, the two basic gates §4.6 applies before a
// window can be selected for painting at all.
func (w *Window) PaintableBasic() bool {
	return w.Damage.EverDamaged && w.Textures.HasPicture
}
