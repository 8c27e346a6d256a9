package usecase

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"wildfire-viz/model"

	geojson "github.com/paulmach/go.geojson"
)

// 定数: 地球の半径 (キロメートル)
const EarthRadius = 6378.137

func degToRad(deg float64) float64 {
	return deg * math.Pi / 180.0
}

func radToDeg(rad float64) float64 {
	return rad * 180.0 / math.Pi
}

// 2つの緯度・経度の間の距離を計算する関数
func HaversineDistance(lat1, lon1, lat2, lon2 float64) float64 {
	lat1Rad := degToRad(lat1)
	lon1Rad := degToRad(lon1)
	lat2Rad := degToRad(lat2)
	lon2Rad := degToRad(lon2)

	dlat := lat2Rad - lat1Rad
	dlon := lon2Rad - lon1Rad

	a := math.Sin(dlat/2)*math.Sin(dlat/2) + math.Cos(lat1Rad)*math.Cos(lat2Rad)*math.Sin(dlon/2)*math.Sin(dlon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return EarthRadius * c
}

// 距離と方位角から新しい緯度経度を計算する
// theta is measured counterclockwise from east, in degrees.
func CalcCirclePoint(centerLat, centerLon, radius, theta float64) model.Point {
	centerLatRad := degToRad(centerLat)
	centerLonRad := degToRad(centerLon)
	// 方位を表すbearingは北が0度の時計回りなので、感覚に合うように補正
	bearingRad := degToRad(90 - theta)

	circleLatRad := math.Asin(math.Sin(centerLatRad)*math.Cos(radius/EarthRadius) +
		math.Cos(centerLatRad)*math.Sin(radius/EarthRadius)*math.Cos(bearingRad))

	circleLonRad := centerLonRad + math.Atan2(math.Sin(bearingRad)*math.Sin(radius/EarthRadius)*math.Cos(centerLatRad),
		math.Cos(radius/EarthRadius)-math.Sin(centerLatRad)*math.Sin(circleLatRad))

	return model.Point{
		Latitude:  radToDeg(circleLatRad),
		Longitude: radToDeg(circleLonRad),
	}
}

// CalcRingPoints returns a closed ring of numPoints+1 points at radius km
// around the center.
func CalcRingPoints(centerLat, centerLon, radius float64, numPoints int) []model.Point {
	if numPoints < 3 {
		numPoints = 3
	}
	points := make([]model.Point, 0, numPoints+1)
	for i := 0; i <= numPoints; i++ {
		angle := 360 * float64(i) / float64(numPoints)
		points = append(points, CalcCirclePoint(centerLat, centerLon, radius, angle))
	}
	return points
}

// Reduction is the label anchor derived from one boundary feature.
type Reduction struct {
	Lat        float64
	Lng        float64
	PointCount int
}

// OuterRing picks the ring a feature is labelled by. For a MultiPolygon it is
// the outer ring with the most vertices, a rough stand-in for the largest
// landmass; equal counts keep the earlier polygon. It returns nil when the
// feature has no usable geometry.
func OuterRing(f *geojson.Feature) [][]float64 {
	if f == nil || f.Geometry == nil {
		return nil
	}
	g := f.Geometry
	switch {
	case g.IsPolygon():
		if len(g.Polygon) == 0 {
			return nil
		}
		return g.Polygon[0]
	case g.IsMultiPolygon():
		var best [][]float64
		for _, poly := range g.MultiPolygon {
			if len(poly) == 0 {
				continue
			}
			if best == nil || len(poly[0]) > len(best) {
				best = poly[0]
			}
		}
		return best
	}
	return nil
}

// ReduceFeature returns the vertex mean of the feature's outer ring and its
// vertex count. The mean is not an area-weighted centroid; it is only used to
// place labels. ok is false when there is nothing to reduce, and callers skip
// the feature.
func ReduceFeature(f *geojson.Feature) (Reduction, bool) {
	ring := OuterRing(f)
	if len(ring) == 0 {
		return Reduction{}, false
	}

	var sumLat, sumLng float64
	count := 0
	for _, c := range ring {
		if len(c) < 2 || isNaN(c[0]) || isNaN(c[1]) {
			continue
		}
		sumLng += c[0]
		sumLat += c[1]
		count++
	}
	if count == 0 {
		return Reduction{}, false
	}

	return Reduction{
		Lat:        sumLat / float64(count),
		Lng:        sumLng / float64(count),
		PointCount: count,
	}, true
}

func isNaN(f float64) bool {
	return math.IsNaN(f) || math.IsInf(f, 0)
}

// RingToPoints converts GeoJSON [lng, lat] pairs.
func RingToPoints(ring [][]float64) []model.Point {
	points := make([]model.Point, 0, len(ring))
	for _, c := range ring {
		if len(c) < 2 {
			continue
		}
		points = append(points, model.Point{Latitude: c[1], Longitude: c[0]})
	}
	return points
}

// RingBounds returns minLng, minLat, maxLng, maxLat.
func RingBounds(points []model.Point) [4]float64 {
	if len(points) == 0 {
		return [4]float64{}
	}
	b := [4]float64{points[0].Longitude, points[0].Latitude, points[0].Longitude, points[0].Latitude}
	for _, p := range points[1:] {
		b[0] = math.Min(b[0], p.Longitude)
		b[1] = math.Min(b[1], p.Latitude)
		b[2] = math.Max(b[2], p.Longitude)
		b[3] = math.Max(b[3], p.Latitude)
	}
	return b
}

func PointsToPolygonWKT(points []model.Point) string {
	// ポリゴンが閉じているかチェックし、閉じていない場合は閉じる
	if len(points) > 1 && (points[0].Latitude != points[len(points)-1].Latitude || points[0].Longitude != points[len(points)-1].Longitude) {
		points = append(points, points[0])
	}

	var coords []string
	for _, point := range points {
		coords = append(coords, fmt.Sprintf("%f %f", point.Longitude, point.Latitude))
	}

	return fmt.Sprintf("((%s))", strings.Join(coords, ", "))
}

// [][]PointからWKT形式のMULTIPOLYGONを作成する関数
func MultiPolygonToWKT(multiPolygon [][]model.Point) string {
	var polygons []string
	for _, polygon := range multiPolygon {
		polygons = append(polygons, PointsToPolygonWKT(polygon))
	}

	return fmt.Sprintf("MULTIPOLYGON(%s)", strings.Join(polygons, ", "))
}

// FeatureToWKT renders the outer rings of a Polygon or MultiPolygon feature as
// a MULTIPOLYGON. Holes are dropped; overlays only stroke outer boundaries.
func FeatureToWKT(f *geojson.Feature) (string, error) {
	if f == nil || f.Geometry == nil {
		return "", fmt.Errorf("feature has no geometry")
	}
	var rings [][]model.Point
	switch {
	case f.Geometry.IsPolygon():
		if len(f.Geometry.Polygon) > 0 {
			rings = append(rings, RingToPoints(f.Geometry.Polygon[0]))
		}
	case f.Geometry.IsMultiPolygon():
		for _, poly := range f.Geometry.MultiPolygon {
			if len(poly) > 0 {
				rings = append(rings, RingToPoints(poly[0]))
			}
		}
	default:
		return "", fmt.Errorf("unsupported geometry type %q", f.Geometry.Type)
	}

	valid := rings[:0]
	for _, r := range rings {
		if len(r) >= 3 {
			valid = append(valid, r)
		}
	}
	if len(valid) == 0 {
		return "", fmt.Errorf("feature has no ring with at least 3 vertices")
	}
	return MultiPolygonToWKT(valid), nil
}

// WktToMultiPolygonPoints parses the outer rings of a POLYGON or MULTIPOLYGON.
// Inner rings are skipped.
func WktToMultiPolygonPoints(wkt string) ([][]model.Point, error) {
	wkt = strings.TrimSpace(wkt)
	var body string
	switch {
	case strings.HasPrefix(wkt, "MULTIPOLYGON"):
		body = strings.TrimSpace(strings.TrimPrefix(wkt, "MULTIPOLYGON"))
	case strings.HasPrefix(wkt, "POLYGON"):
		body = "(" + strings.TrimSpace(strings.TrimPrefix(wkt, "POLYGON")) + ")"
	default:
		return nil, fmt.Errorf("unsupported WKT: %.40s", wkt)
	}
	if body == "EMPTY" || body == "(EMPTY)" {
		return nil, nil
	}

	var multiPolygon [][]model.Point
	depth := 0
	ringStart := -1
	ringIndex := 0
	for i, ch := range body {
		switch ch {
		case '(':
			depth++
			if depth == 2 {
				ringIndex = 0
			}
			if depth == 3 {
				ringStart = i + 1
			}
		case ')':
			if depth == 3 && ringStart >= 0 {
				if ringIndex == 0 {
					ring, err := parseWKTRing(body[ringStart:i])
					if err != nil {
						return nil, err
					}
					multiPolygon = append(multiPolygon, ring)
				}
				ringIndex++
				ringStart = -1
			}
			depth--
		}
	}
	if depth != 0 {
		return nil, fmt.Errorf("unbalanced parentheses in WKT")
	}
	return multiPolygon, nil
}

func parseWKTRing(s string) ([]model.Point, error) {
	var ring []model.Point
	for _, pair := range strings.Split(s, ",") {
		coords := strings.Fields(pair)
		if len(coords) < 2 {
			return nil, fmt.Errorf("無効な座標ペア: %s", pair)
		}
		lon, err := strconv.ParseFloat(coords[0], 64)
		if err != nil {
			return nil, fmt.Errorf("無効な経度値: %w", err)
		}
		lat, err := strconv.ParseFloat(coords[1], 64)
		if err != nil {
			return nil, fmt.Errorf("無効な緯度値: %w", err)
		}
		ring = append(ring, model.Point{Latitude: lat, Longitude: lon})
	}
	return ring, nil
}

func MakeGeojsonPoint(p model.Point) *geojson.Feature {
	return geojson.NewPointFeature([]float64{p.Longitude, p.Latitude})
}

func MakeGeojsonLineString(points []model.Point) *geojson.Feature {
	geojsonPoints := make([][]float64, 0, len(points))
	for _, coordinate := range points {
		geojsonPoints = append(
			geojsonPoints,
			[]float64{coordinate.Longitude, coordinate.Latitude},
		)
	}
	return geojson.NewLineStringFeature(geojsonPoints)
}

func MakeGeojsonPolygon(points []model.Point) *geojson.Feature {
	geoJsonPoints := make([][]float64, 0, len(points)+1)
	for _, coordinate := range points {
		geoJsonPoints = append(
			geoJsonPoints,
			[]float64{coordinate.Longitude, coordinate.Latitude},
		)
	}
	return geojson.NewPolygonFeature([][][]float64{geoJsonPoints})
}
