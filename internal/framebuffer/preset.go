// Package framebuffer implements the framebuffer preset table and the
// color/depth capture pipeline: crop/scale math, PPM encoding, and raw
// little-endian depth encoding.
package framebuffer

import "strings"

// Preset is a named crop region expressed in per-mille coordinates relative
// to the current video size.
type Preset struct {
	Name        string
	XMilli      int
	YMilli      int
	WMilli      int
	HMilli      int
	Description string
}

// Presets is the static, immutable registry of named crop regions.
var Presets = []Preset{
	{"full", 0, 0, 1000, 1000, "entire frame"},
	{"hud", 0, 0, 1000, 220, "top HUD strip"},
	{"dialog", 0, 620, 1000, 380, "bottom dialog box region"},
	{"battle_ui", 0, 470, 1000, 530, "lower battle interface region"},
	{"action_command", 260, 360, 480, 260, "centered action-command prompt region"},
}

// FindPreset looks up a preset by case-insensitive name.
func FindPreset(name string) (Preset, bool) {
	for _, p := range Presets {
		if strings.EqualFold(p.Name, name) {
			return p, true
		}
	}
	return Preset{}, false
}
