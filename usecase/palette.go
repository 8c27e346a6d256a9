package usecase

import (
	"math"
	"wildfire-viz/model"
)

// Shared visual contract. Both renderers and the risk panel read colors and
// thresholds from here only.
const (
	ColorExtreme = "#ef4444"
	ColorHigh    = "#f97316"
	ColorMedium  = "#eab308"
	ColorLow     = "#84cc16"
	ColorUnknown = "#3b82f6"

	// CustomAccentColor borders the custom-prediction marker whatever its fill.
	CustomAccentColor = "#3b82f6"

	StateLabelColor   = "rgba(148, 163, 184, 0.9)"
	DefaultLabelColor = "rgba(255, 255, 255, 0.85)"

	CountryStrokeColor = "rgba(148, 163, 184, 0.4)"
	StateStrokeColor   = "rgba(71, 85, 105, 0.2)"
)

func RiskColor(level model.RiskLevel) string {
	switch level {
	case model.RiskExtreme:
		return ColorExtreme
	case model.RiskHigh:
		return ColorHigh
	case model.RiskMedium:
		return ColorMedium
	case model.RiskLow:
		return ColorLow
	default:
		return ColorUnknown
	}
}

// Brightness range mapped onto intensity 0..1.
const (
	BrightnessFloor = 300.0
	BrightnessSpan  = 100.0
)

// FireIntensity is clamp((brightness-300)/100, 0, 1).
func FireIntensity(brightness float64) float64 {
	if math.IsNaN(brightness) {
		return 0
	}
	t := (brightness - BrightnessFloor) / BrightnessSpan
	return math.Min(1, math.Max(0, t))
}

type thermalStop struct {
	below float64
	color string
}

// 熱グラデーション: yellow -> amber -> orange -> red -> purple
var thermalGradient = []thermalStop{
	{0.2, "#fde047"},
	{0.4, "#fbbf24"},
	{0.6, "#f97316"},
	{0.8, "#ef4444"},
}

const thermalTop = "#a855f7"

// IntensityColor maps an intensity to the thermal ladder. Each stop is a strict
// upper bound, so t == 0.6 lands on #ef4444.
func IntensityColor(t float64) string {
	for _, s := range thermalGradient {
		if t < s.below {
			return s.color
		}
	}
	return thermalTop
}

func FireColor(f model.ActiveFire) string {
	return IntensityColor(FireIntensity(f.Brightness))
}

// Globe point scale, in globe units.
func FireRadius(t float64) float64 {
	return 0.15 + t*0.25
}

func FireAltitude(t float64) float64 {
	return 0.01 + t*0.02
}

// ThermalLegend lists the gradient stops for legends, lowest first.
func ThermalLegend() []string {
	out := make([]string, 0, len(thermalGradient)+1)
	for _, s := range thermalGradient {
		out = append(out, s.color)
	}
	return append(out, thermalTop)
}
