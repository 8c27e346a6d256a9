package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"wildfire-viz/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestDistributionCommand(t *testing.T) {
	out, err := run(t, "distribution", "--risk", "Extreme", "--seed", "7")
	require.NoError(t, err)

	var d model.Distribution
	require.NoError(t, json.Unmarshal([]byte(out), &d))
	assert.Equal(t, model.RiskExtreme, d.RiskLevel)
	assert.Len(t, d.Grid, 96)

	again, err := run(t, "distribution", "--risk", "Extreme", "--seed", "7")
	require.NoError(t, err)
	assert.Equal(t, out, again)
}

func TestDistributionCommandGrid(t *testing.T) {
	out, err := run(t, "distribution", "--seed", "1", "--grid")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "Low risk\n"))
	assert.Equal(t, model.GridRows, strings.Count(out, "|\n"))
}

func TestDistributionCommandRejectsUnknownRisk(t *testing.T) {
	_, err := run(t, "distribution", "--risk", "Severe")
	assert.Error(t, err)
}

func TestLabelsToFeatureCollection(t *testing.T) {
	fc := labelsToFeatureCollection([]model.Label{
		{Lat: 22, Lng: 79, Text: "India", Type: model.LabelCountry, Size: 0.4},
		{Lat: 19, Lng: 75, Text: "Maharashtra", Type: model.LabelState, Size: 0.5, Color: "rgba(148, 163, 184, 0.9)"},
	})
	require.Len(t, fc.Features, 2)
	assert.Equal(t, []float64{79, 22}, fc.Features[0].Geometry.Point)
	assert.Equal(t, "state", fc.Features[1].Properties["type"])
	assert.NotContains(t, fc.Features[0].Properties, "color")
}
