package usecase

import (
	"testing"
	"wildfire-viz/model"

	geojson "github.com/paulmach/go.geojson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func country(name string, points int) *geojson.Feature {
	f := geojson.NewPolygonFeature([][][]float64{ringOf(points, 0, 0)})
	f.SetProperty("NAME", name)
	return f
}

func state(name, admin string) *geojson.Feature {
	f := geojson.NewPolygonFeature([][][]float64{ringOf(8, 78, 21)})
	f.SetProperty("name", name)
	f.SetProperty("admin", admin)
	return f
}

func TestAdminLabelsCountryThreshold(t *testing.T) {
	labels := AdminLabels(
		[]*geojson.Feature{country("Twenty", 20), country("TwentyOne", 21)},
		nil,
		DefaultLabelRules(),
	)
	require.Len(t, labels, 1)
	assert.Equal(t, "TwentyOne", labels[0].Text)
	assert.Equal(t, model.LabelCountry, labels[0].Type)
	assert.Equal(t, 0.4, labels[0].Size)
}

func TestCountryLabelSizeClamp(t *testing.T) {
	assert.Equal(t, 0.4, CountryLabelSize(21))
	assert.InDelta(t, 0.5, CountryLabelSize(100), 1e-12)
	assert.Equal(t, 1.2, CountryLabelSize(1000))
}

func TestCountryNamePrecedence(t *testing.T) {
	f := country("Short", 30)
	f.SetProperty("ADMIN", "Admin")
	assert.Equal(t, "Short", CountryName(f))
	f.SetProperty("NAME_LONG", "Long Name")
	assert.Equal(t, "Long Name", CountryName(f))
}

func TestAdminLabelsStatesOnlyForTargetCountries(t *testing.T) {
	nepal := state("Bagmati", "Nepal")
	karnataka := state("Karnataka", "India")
	byAdm0 := state("Kerala", "")
	byAdm0.SetProperty("adm0_name", "India")
	broken := &geojson.Feature{Properties: map[string]interface{}{"admin": "India", "name": "Broken"}}

	labels := AdminLabels(nil, []*geojson.Feature{nepal, karnataka, byAdm0, broken}, DefaultLabelRules())
	require.Len(t, labels, 2)
	for _, l := range labels {
		assert.Equal(t, model.LabelState, l.Type)
		assert.Equal(t, 0.5, l.Size)
		assert.Equal(t, StateLabelColor, l.Color)
	}
	assert.Equal(t, "Karnataka", labels[0].Text)
	assert.Equal(t, "Kerala", labels[1].Text)

	rules := DefaultLabelRules()
	rules.TargetCountries = []string{"India", "Nepal"}
	assert.Len(t, AdminLabels(nil, []*geojson.Feature{nepal, karnataka}, rules), 2)
}

func TestComposeLabelsOrderAndText(t *testing.T) {
	admin := AdminLabels([]*geojson.Feature{country("Australia", 60)}, nil, DefaultLabelRules())
	hotspots := []model.AnalyzedHotspot{
		{ID: "a", FireData: model.ActiveFire{Lat: -23.7, Lon: 133.88}, Prediction: &model.Prediction{RiskLevel: model.RiskExtreme}},
		{ID: "b", FireData: model.ActiveFire{Lat: 21.14, Lon: 79.08}},
	}
	custom := &model.AnalyzedHotspot{ID: "custom", FireData: model.ActiveFire{Lat: 12.97, Lon: 77.59}, Prediction: &model.Prediction{RiskLevel: model.RiskMedium}}

	labels := ComposeLabels(admin, hotspots, custom)
	require.Len(t, labels, 4)
	assert.Equal(t, model.LabelCountry, labels[0].Type)

	assert.Equal(t, "Extreme Risk", labels[1].Text)
	assert.Equal(t, ColorExtreme, labels[1].Color)
	assert.Equal(t, "Analyzed", labels[2].Text)
	assert.Equal(t, ColorUnknown, labels[2].Color)
	assert.Equal(t, "Medium Risk", labels[3].Text)
	assert.Equal(t, 12.97, labels[3].Lat)
	assert.Equal(t, 77.59, labels[3].Lng)

	assert.Len(t, hotspots, 2, "input slice must not grow")
}

func TestRiskLevelFromProbability(t *testing.T) {
	assert.Equal(t, model.RiskExtreme, RiskLevelFromProbability(0.81))
	assert.Equal(t, model.RiskHigh, RiskLevelFromProbability(0.8))
	assert.Equal(t, model.RiskMedium, RiskLevelFromProbability(0.41))
	assert.Equal(t, model.RiskLow, RiskLevelFromProbability(0.4))
}
