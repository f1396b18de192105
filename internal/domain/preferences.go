package domain

import "math"

// TemperatureUnit is the unit temperatures are displayed in.
type TemperatureUnit string

const (
	Celsius    TemperatureUnit = "Celsius"
	Fahrenheit TemperatureUnit = "Fahrenheit"
)

// TextSize is the display text scale.
type TextSize string

const (
	TextSizeNormal     TextSize = "Normal"
	TextSizeLarge      TextSize = "Large"
	TextSizeExtraLarge TextSize = "Extra-Large"
)

// Brightness bounds. Values outside are clamped.
const (
	MinBrightness     = 0.1
	MaxBrightness     = 1.0
	DefaultBrightness = 0.5
)

// Preferences is the user's settings record.
type Preferences struct {
	TemperatureUnit     TemperatureUnit `json:"unit"`
	TextSize            TextSize        `json:"text_size"`
	SoundEffectsEnabled bool            `json:"sound_effects"`
	Brightness          float64         `json:"brightness"`
}

// DefaultPreferences returns the record restored by a reset.
func DefaultPreferences() Preferences {
	return Preferences{
		TemperatureUnit:     Celsius,
		TextSize:            TextSizeNormal,
		SoundEffectsEnabled: true,
		Brightness:          DefaultBrightness,
	}
}

// PreferencesPatch is a partial update. Nil fields are left unchanged.
type PreferencesPatch struct {
	TemperatureUnit     *TemperatureUnit `json:"unit,omitempty" validate:"omitempty,oneof=Celsius Fahrenheit"`
	TextSize            *TextSize        `json:"text_size,omitempty" validate:"omitempty,oneof=Normal Large Extra-Large"`
	SoundEffectsEnabled *bool            `json:"sound_effects,omitempty"`
	Brightness          *float64         `json:"brightness,omitempty"`
}

// Apply merges the patch over p. Brightness is clamped; enum membership is
// the caller's responsibility.
func (p Preferences) Apply(patch PreferencesPatch) Preferences {
	if patch.TemperatureUnit != nil {
		p.TemperatureUnit = *patch.TemperatureUnit
	}
	if patch.TextSize != nil {
		p.TextSize = *patch.TextSize
	}
	if patch.SoundEffectsEnabled != nil {
		p.SoundEffectsEnabled = *patch.SoundEffectsEnabled
	}
	if patch.Brightness != nil {
		p.Brightness = ClampBrightness(*patch.Brightness)
	}
	return p
}

// ParseTemperatureUnit reports whether s names a known unit.
func ParseTemperatureUnit(s string) (TemperatureUnit, bool) {
	switch u := TemperatureUnit(s); u {
	case Celsius, Fahrenheit:
		return u, true
	}
	return "", false
}

// ParseTextSize reports whether s names a known text size.
func ParseTextSize(s string) (TextSize, bool) {
	switch t := TextSize(s); t {
	case TextSizeNormal, TextSizeLarge, TextSizeExtraLarge:
		return t, true
	}
	return "", false
}

// ClampBrightness pins v into [MinBrightness, MaxBrightness]. NaN maps to the default.
func ClampBrightness(v float64) float64 {
	switch {
	case math.IsNaN(v):
		return DefaultBrightness
	case v < MinBrightness:
		return MinBrightness
	case v > MaxBrightness:
		return MaxBrightness
	}
	return v
}
