package service

import (
	"fmt"
	"wildfire-viz/model"
	"wildfire-viz/usecase"

	geojson "github.com/paulmach/go.geojson"
	"github.com/twpayne/go-geos"
)

// Quadrant segments used when buffering. A zero-width buffer adds no arcs, so
// this only matters for GEOS's internal noding.
const bufferQuadSegs = 8

// CleanOverlay turns the boundary collections into outline rings for the
// overlay layer, states first so country borders stroke on top. Each feature
// is pushed through a zero-width buffer to repair self-intersections; features
// that fail are skipped.
func CleanOverlay(countries, states []*geojson.Feature) []model.Outline {
	outlines := make([]model.Outline, 0, len(countries)+len(states))
	for _, f := range states {
		outlines = append(outlines, featureOutlines(f, usecase.StateName(f), false)...)
	}
	for _, f := range countries {
		outlines = append(outlines, featureOutlines(f, usecase.CountryName(f), true)...)
	}
	return outlines
}

func featureOutlines(f *geojson.Feature, name string, country bool) []model.Outline {
	if f == nil {
		return nil
	}
	wkt, err := usecase.FeatureToWKT(f)
	if err != nil {
		return nil
	}
	cleaned, err := bufferZero(wkt)
	if err != nil {
		logger().Debugf("CleanOverlay: skip %q: %v", name, err)
		return nil
	}
	rings, err := usecase.WktToMultiPolygonPoints(cleaned)
	if err != nil {
		logger().Debugf("CleanOverlay: skip %q: %v, wkt: %.80s", name, err, cleaned)
		return nil
	}

	out := make([]model.Outline, 0, len(rings))
	for _, ring := range rings {
		if len(ring) < 4 {
			continue
		}
		out = append(out, model.Outline{
			Name:    name,
			Country: country,
			Ring:    ring,
			Bounds:  usecase.RingBounds(ring),
		})
	}
	return out
}

// bufferZero runs Buffer(0) on a WKT geometry. go-geos panics on GEOS errors,
// so the panic is turned back into an error.
func bufferZero(wkt string) (out string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("geos: %v", r)
		}
	}()

	geom, err := geos.NewGeomFromWKT(wkt)
	if err != nil {
		return "", fmt.Errorf("parse wkt: %w", err)
	}
	return geom.Buffer(0, bufferQuadSegs).ToWKT(), nil
}
