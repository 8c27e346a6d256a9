// Package globe is the 3D globe backend: fire points extruded by intensity,
// pulsing rings for analyzed hotspots, merged boundary polygons and labels.
package globe

import (
	"context"
	"fmt"
	"sync"
	"time"
	"wildfire-viz/model"
	"wildfire-viz/renderer"
	"wildfire-viz/usecase"

	"github.com/golang/geo/s1"
	"github.com/golang/geo/s2"
	"github.com/google/uuid"
)

const (
	DefaultAltitude = 2.5

	ringMaxRadius        = 2.0 // degrees of arc
	ringPropagationSpeed = 2.0
	ringRepeatPeriod     = 1000 * time.Millisecond
	ringOutlineVertices  = 48

	countryPolygonAltitude = 0.006
	statePolygonAltitude   = 0.005
)

// kmPerDegree is the arc length of one degree on the sphere used by the
// geodesic helpers.
var kmPerDegree = usecase.EarthRadius * s1.Degree.Radians()

type Point struct {
	Lat      float64 `json:"lat"`
	Lng      float64 `json:"lng"`
	Color    string  `json:"color"`
	Radius   float64 `json:"radius"`
	Altitude float64 `json:"altitude"`
}

type Ring struct {
	Lat              float64       `json:"lat"`
	Lng              float64       `json:"lng"`
	Color            string        `json:"color"`
	Stroke           string        `json:"stroke"`
	MaxRadius        float64       `json:"maxRadius"`
	PropagationSpeed float64       `json:"propagationSpeed"`
	RepeatPeriod     time.Duration `json:"repeatPeriod"`
	Outline          []model.Point `json:"outline"`
}

type Polygon struct {
	Name        string        `json:"name"`
	StrokeColor string        `json:"strokeColor"`
	Altitude    float64       `json:"altitude"`
	Ring        []model.Point `json:"ring"`
}

type GlobeLabel struct {
	model.Label
	TextSize float64 `json:"textSize"`
}

type layer struct {
	class    renderer.LayerClass
	points   []Point
	rings    []Ring
	polygons []Polygon
	labels   []GlobeLabel
}

type Options struct {
	PointOfView model.Viewpoint
	Frame       time.Duration
}

func DefaultOptions() Options {
	return Options{
		PointOfView: model.Viewpoint{Lat: 20, Lng: 0, Altitude: DefaultAltitude},
		Frame:       renderer.DefaultFrameInterval,
	}
}

type Globe struct {
	mu     sync.Mutex
	opts   Options
	pov    model.Viewpoint
	layers map[renderer.LayerHandle]*layer
	order  []renderer.LayerHandle
	flySeq uint64
	clicks renderer.Subscribers
}

var _ renderer.Renderer = (*Globe)(nil)

func New(opts Options) *Globe {
	if opts.PointOfView.Altitude <= 0 {
		opts.PointOfView.Altitude = DefaultAltitude
	}
	return &Globe{
		opts:   opts,
		pov:    opts.PointOfView,
		layers: make(map[renderer.LayerHandle]*layer),
	}
}

func (g *Globe) Backend() renderer.Backend {
	return renderer.Globe
}

func labelTextSize(l model.Label) float64 {
	if l.Type == model.LabelCountry {
		return 0.6
	}
	return 0.9
}

func (g *Globe) AddLayer(l renderer.Layer) (renderer.LayerHandle, error) {
	ly := &layer{class: l.Class}

	switch l.Class {
	case renderer.ClassFires:
		for _, mk := range l.Marks {
			ly.points = append(ly.points, Point{
				Lat:      mk.Lat,
				Lng:      mk.Lng,
				Color:    mk.Fill,
				Radius:   usecase.FireRadius(mk.Intensity),
				Altitude: usecase.FireAltitude(mk.Intensity),
			})
		}
	case renderer.ClassHotspots, renderer.ClassCustom:
		for _, mk := range l.Marks {
			ly.rings = append(ly.rings, Ring{
				Lat:              mk.Lat,
				Lng:              mk.Lng,
				Color:            mk.Fill,
				Stroke:           mk.Stroke,
				MaxRadius:        ringMaxRadius,
				PropagationSpeed: ringPropagationSpeed,
				RepeatPeriod:     ringRepeatPeriod,
				Outline:          usecase.CalcRingPoints(mk.Lat, mk.Lng, ringMaxRadius*kmPerDegree, ringOutlineVertices),
			})
		}
	}

	for _, o := range l.Outlines {
		p := Polygon{Name: o.Name, Ring: o.Ring, StrokeColor: usecase.StateStrokeColor, Altitude: statePolygonAltitude}
		if o.Country {
			p.StrokeColor, p.Altitude = usecase.CountryStrokeColor, countryPolygonAltitude
		}
		ly.polygons = append(ly.polygons, p)
	}
	for _, lb := range l.Labels {
		if lb.Color == "" {
			lb.Color = usecase.DefaultLabelColor
		}
		ly.labels = append(ly.labels, GlobeLabel{Label: lb, TextSize: labelTextSize(lb)})
	}

	h := renderer.LayerHandle(uuid.NewString())
	g.mu.Lock()
	g.layers[h] = ly
	g.order = append(g.order, h)
	g.mu.Unlock()
	return h, nil
}

func (g *Globe) RemoveLayer(h renderer.LayerHandle) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.layers[h]; !ok {
		return fmt.Errorf("%w: %s", renderer.ErrUnknownLayer, h)
	}
	delete(g.layers, h)
	for i, o := range g.order {
		if o == h {
			g.order = append(g.order[:i], g.order[i+1:]...)
			break
		}
	}
	return nil
}

func (g *Globe) LayerCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.layers)
}

func (g *Globe) PointOfView() model.Viewpoint {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.pov
}

func (g *Globe) FlyTo(ctx context.Context, v model.Viewpoint, d time.Duration) error {
	g.mu.Lock()
	g.flySeq++
	seq := g.flySeq
	from := g.pov
	g.mu.Unlock()

	to := model.Viewpoint{Lat: v.Lat, Lng: renderer.NormalizeLng(v.Lng), Altitude: from.Altitude}
	if v.Altitude > 0 {
		to.Altitude = v.Altitude
	}

	return renderer.Animate(ctx, d, g.opts.Frame, func(p float64) {
		g.mu.Lock()
		defer g.mu.Unlock()
		if seq != g.flySeq || ctx.Err() != nil {
			return
		}
		if p >= 1 {
			g.pov = to
			return
		}
		g.pov = model.Viewpoint{
			Lat:      renderer.Lerp(from.Lat, to.Lat, p),
			Lng:      renderer.LerpLng(from.Lng, to.Lng, p),
			Altitude: renderer.Lerp(from.Altitude, to.Altitude, p),
		}
	})
}

func (g *Globe) OnClick(fn renderer.ClickHandler) func() {
	return g.clicks.Add(fn)
}

// Click resolves a picked point on the globe surface, given in globe-centred
// cartesian coordinates; it need not be unit length. A hit on a fire point
// reports that fire's position.
func (g *Globe) Click(x, y, z float64) (renderer.ClickEvent, error) {
	if x == 0 && y == 0 && z == 0 {
		return renderer.ClickEvent{}, fmt.Errorf("globe: click point is the origin")
	}
	ll := s2.LatLngFromPoint(s2.PointFromCoords(x, y, z))

	ev := renderer.ClickEvent{Backend: renderer.Globe}
	if p, ok := g.hitFire(ll); ok {
		ev.Lat, ev.Lng, ev.OnFire = p.Lat, p.Lng, true
	} else {
		ev.Lat, ev.Lng = ll.Lat.Degrees(), ll.Lng.Degrees()
	}
	g.clicks.Emit(ev)
	return ev, nil
}

// SurfacePoint is the inverse of Click's projection, for clients that pick in
// lat/lng space.
func SurfacePoint(lat, lng float64) (x, y, z float64) {
	p := s2.PointFromLatLng(s2.LatLngFromDegrees(lat, lng))
	return p.X, p.Y, p.Z
}

// hitFire treats a point's radius as degrees of arc around its position.
func (g *Globe) hitFire(ll s2.LatLng) (Point, bool) {
	lat, lng := ll.Lat.Degrees(), ll.Lng.Degrees()
	g.mu.Lock()
	defer g.mu.Unlock()
	for i := len(g.order) - 1; i >= 0; i-- {
		ly := g.layers[g.order[i]]
		if ly.class != renderer.ClassFires {
			continue
		}
		for j := len(ly.points) - 1; j >= 0; j-- {
			p := ly.points[j]
			if usecase.HaversineDistance(lat, lng, p.Lat, p.Lng) <= p.Radius*kmPerDegree {
				return p, true
			}
		}
	}
	return Point{}, false
}

// Scene is the serialisable globe state.
type Scene struct {
	PointOfView model.Viewpoint `json:"pointOfView"`
	Points      []Point         `json:"points"`
	Rings       []Ring          `json:"rings"`
	Polygons    []Polygon       `json:"polygons"`
	Labels      []GlobeLabel    `json:"labels"`
}

func (g *Globe) Snapshot() Scene {
	g.mu.Lock()
	defer g.mu.Unlock()
	s := Scene{
		PointOfView: g.pov,
		Points:      []Point{},
		Rings:       []Ring{},
		Polygons:    []Polygon{},
		Labels:      []GlobeLabel{},
	}
	for _, h := range g.order {
		ly := g.layers[h]
		s.Points = append(s.Points, ly.points...)
		s.Rings = append(s.Rings, ly.rings...)
		s.Polygons = append(s.Polygons, ly.polygons...)
		s.Labels = append(s.Labels, ly.labels...)
	}
	return s
}
