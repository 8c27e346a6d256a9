package usecase

import (
	"fmt"
	"math"
	"wildfire-viz/model"

	geojson "github.com/paulmach/go.geojson"
)

const (
	DefaultMinCountryPoints = 20
	minCountryLabelSize     = 0.4
	maxCountryLabelSize     = 1.2
	countryPointsPerSize    = 200.0
	stateLabelSize          = 0.5
	hotspotLabelSize        = 1.0
	hotspotDotRadius        = 0.3
)

// LabelRules selects which boundary features become labels.
type LabelRules struct {
	// MinCountryPoints drops country features whose ring has this many
	// vertices or fewer (islands, microstates).
	MinCountryPoints int
	// TargetCountries lists the countries whose sub-national units are labelled.
	TargetCountries []string
}

func DefaultLabelRules() LabelRules {
	return LabelRules{
		MinCountryPoints: DefaultMinCountryPoints,
		TargetCountries:  []string{"India"},
	}
}

func (r LabelRules) targets(admin string) bool {
	for _, c := range r.TargetCountries {
		if c == admin {
			return true
		}
	}
	return false
}

func CountryLabelSize(pointCount int) float64 {
	return math.Min(maxCountryLabelSize, math.Max(minCountryLabelSize, float64(pointCount)/countryPointsPerSize))
}

func propertyString(f *geojson.Feature, keys ...string) string {
	for _, k := range keys {
		if v, ok := f.Properties[k]; ok && v != nil {
			if s, ok := v.(string); ok && s != "" {
				return s
			}
		}
	}
	return ""
}

func CountryName(f *geojson.Feature) string {
	return propertyString(f, "NAME_LONG", "NAME", "ADMIN")
}

func StateName(f *geojson.Feature) string {
	return propertyString(f, "name")
}

// StateCountry is the admin-0 name a sub-national feature belongs to.
func StateCountry(f *geojson.Feature) string {
	return propertyString(f, "adm0_name", "admin")
}

// AdminLabels builds the country and state labels. Features without a usable
// ring are skipped.
func AdminLabels(countries, states []*geojson.Feature, rules LabelRules) []model.Label {
	labels := make([]model.Label, 0, len(countries))

	for _, f := range countries {
		info, ok := ReduceFeature(f)
		if !ok || info.PointCount <= rules.MinCountryPoints {
			continue
		}
		labels = append(labels, model.Label{
			Lat:  info.Lat,
			Lng:  info.Lng,
			Text: CountryName(f),
			Type: model.LabelCountry,
			Size: CountryLabelSize(info.PointCount),
		})
	}

	for _, f := range states {
		if f == nil || !rules.targets(StateCountry(f)) {
			continue
		}
		info, ok := ReduceFeature(f)
		if !ok {
			continue
		}
		labels = append(labels, model.Label{
			Lat:   info.Lat,
			Lng:   info.Lng,
			Text:  StateName(f),
			Type:  model.LabelState,
			Size:  stateLabelSize,
			Color: StateLabelColor,
		})
	}

	return labels
}

func HotspotLabelText(h model.AnalyzedHotspot) string {
	if r := h.Risk(); r != "" {
		return fmt.Sprintf("%s Risk", r)
	}
	return "Analyzed"
}

// HotspotLabels returns one label per hotspot and one for the custom
// prediction when it is set.
func HotspotLabels(hotspots []model.AnalyzedHotspot, custom *model.AnalyzedHotspot) []model.Label {
	all := hotspots
	if custom != nil {
		all = append(append([]model.AnalyzedHotspot(nil), hotspots...), *custom)
	}
	labels := make([]model.Label, 0, len(all))
	for _, h := range all {
		labels = append(labels, model.Label{
			Lat:       h.FireData.Lat,
			Lng:       h.FireData.Lon,
			Text:      HotspotLabelText(h),
			Type:      model.LabelHotspot,
			Size:      hotspotLabelSize,
			Color:     RiskColor(h.Risk()),
			DotRadius: hotspotDotRadius,
		})
	}
	return labels
}

// ComposeLabels places admin labels first and hotspot labels last so hotspots
// draw on top.
func ComposeLabels(admin []model.Label, hotspots []model.AnalyzedHotspot, custom *model.AnalyzedHotspot) []model.Label {
	hl := HotspotLabels(hotspots, custom)
	out := make([]model.Label, 0, len(admin)+len(hl))
	out = append(out, admin...)
	return append(out, hl...)
}

// RiskLevelFromProbability buckets a model fire probability.
func RiskLevelFromProbability(p float64) model.RiskLevel {
	switch {
	case p > 0.8:
		return model.RiskExtreme
	case p > 0.6:
		return model.RiskHigh
	case p > 0.4:
		return model.RiskMedium
	default:
		return model.RiskLow
	}
}
