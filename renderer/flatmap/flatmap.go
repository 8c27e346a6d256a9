// Package flatmap is the tiled web-mercator backend. It keeps a scene of
// marker layers and a camera the way a Leaflet map would, and exports the
// scene as GeoJSON for the browser client.
package flatmap

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"
	"wildfire-viz/model"
	"wildfire-viz/renderer"
	"wildfire-viz/usecase"

	"github.com/google/uuid"
	geojson "github.com/paulmach/go.geojson"
)

const (
	TileSize = 256.0
	// Web mercator is undefined past this latitude.
	MaxLatitude = 85.05112878

	DefaultMinZoom = 3
	DefaultMaxZoom = 19
)

type Options struct {
	Width   int
	Height  int
	MinZoom float64
	MaxZoom float64
	Center  model.Point
	Zoom    float64
	Frame   time.Duration
}

func DefaultOptions() Options {
	return Options{
		Width:   1280,
		Height:  800,
		MinZoom: DefaultMinZoom,
		MaxZoom: DefaultMaxZoom,
		Center:  model.Point{Latitude: 20, Longitude: 0},
		Zoom:    3,
		Frame:   renderer.DefaultFrameInterval,
	}
}

type Shape string

const (
	ShapeIcon   Shape = "icon"
	ShapeCircle Shape = "circle"
)

// Marker is the Leaflet-style primitive a mark turns into.
type Marker struct {
	Lat         float64 `json:"lat"`
	Lng         float64 `json:"lng"`
	Shape       Shape   `json:"shape"`
	Radius      float64 `json:"radius"` // pixels
	Color       string  `json:"color"`
	FillColor   string  `json:"fillColor"`
	FillOpacity float64 `json:"fillOpacity"`
	Weight      float64 `json:"weight"`
	Popup       string  `json:"popup,omitempty"`
}

type layer struct {
	class    renderer.LayerClass
	markers  []Marker
	labels   []model.Label
	outlines []model.Outline
}

type Camera struct {
	Center model.Point `json:"center"`
	Zoom   float64     `json:"zoom"`
}

type Map struct {
	mu     sync.Mutex
	opts   Options
	camera Camera
	layers map[renderer.LayerHandle]*layer
	order  []renderer.LayerHandle
	flySeq uint64
	clicks renderer.Subscribers
}

var _ renderer.Renderer = (*Map)(nil)

func New(opts Options) *Map {
	if opts.Width <= 0 || opts.Height <= 0 {
		d := DefaultOptions()
		opts.Width, opts.Height = d.Width, d.Height
	}
	if opts.MaxZoom <= 0 {
		opts.MaxZoom = DefaultMaxZoom
	}
	return &Map{
		opts: opts,
		camera: Camera{
			Center: opts.Center,
			Zoom:   clamp(opts.Zoom, opts.MinZoom, opts.MaxZoom),
		},
		layers: make(map[renderer.LayerHandle]*layer),
	}
}

func (m *Map) Backend() renderer.Backend {
	return renderer.FlatMap
}

func fireMarker(mk renderer.Mark) Marker {
	return Marker{
		Lat:         mk.Lat,
		Lng:         mk.Lng,
		Shape:       ShapeIcon,
		Radius:      4 + 6*mk.Intensity,
		Color:       mk.Stroke,
		FillColor:   mk.Fill,
		FillOpacity: 0.9,
		Weight:      2,
		Popup:       mk.Detail,
	}
}

func hotspotMarker(mk renderer.Mark) Marker {
	return Marker{
		Lat:         mk.Lat,
		Lng:         mk.Lng,
		Shape:       ShapeCircle,
		Radius:      12,
		Color:       mk.Stroke,
		FillColor:   mk.Fill,
		FillOpacity: 0.6,
		Weight:      2,
		Popup:       popup(mk),
	}
}

func customMarker(mk renderer.Mark) Marker {
	out := hotspotMarker(mk)
	out.FillOpacity = 0.8
	out.Weight = 3
	return out
}

func popup(mk renderer.Mark) string {
	if mk.Detail == "" {
		return mk.Title
	}
	return fmt.Sprintf("%s\n%s", mk.Title, mk.Detail)
}

func (m *Map) AddLayer(l renderer.Layer) (renderer.LayerHandle, error) {
	ly := &layer{class: l.Class, labels: l.Labels, outlines: l.Outlines}
	for _, mk := range l.Marks {
		switch l.Class {
		case renderer.ClassFires:
			ly.markers = append(ly.markers, fireMarker(mk))
		case renderer.ClassCustom:
			ly.markers = append(ly.markers, customMarker(mk))
		default:
			ly.markers = append(ly.markers, hotspotMarker(mk))
		}
	}

	h := renderer.LayerHandle(uuid.NewString())
	m.mu.Lock()
	m.layers[h] = ly
	m.order = append(m.order, h)
	m.mu.Unlock()
	return h, nil
}

func (m *Map) RemoveLayer(h renderer.LayerHandle) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.layers[h]; !ok {
		return fmt.Errorf("%w: %s", renderer.ErrUnknownLayer, h)
	}
	delete(m.layers, h)
	for i, o := range m.order {
		if o == h {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return nil
}

func (m *Map) LayerCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.layers)
}

// Markers returns the markers of every layer of class c, in draw order.
func (m *Map) Markers(c renderer.LayerClass) []Marker {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Marker
	for _, h := range m.order {
		if ly := m.layers[h]; ly.class == c {
			out = append(out, ly.markers...)
		}
	}
	return out
}

func (m *Map) Camera() Camera {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.camera
}

func (m *Map) FlyTo(ctx context.Context, v model.Viewpoint, d time.Duration) error {
	m.mu.Lock()
	m.flySeq++
	seq := m.flySeq
	from := m.camera
	m.mu.Unlock()

	to := Camera{
		Center: model.Point{Latitude: clamp(v.Lat, -MaxLatitude, MaxLatitude), Longitude: renderer.NormalizeLng(v.Lng)},
		Zoom:   from.Zoom,
	}
	if v.Zoom > 0 {
		to.Zoom = clamp(v.Zoom, m.opts.MinZoom, m.opts.MaxZoom)
	}

	return renderer.Animate(ctx, d, m.opts.Frame, func(p float64) {
		m.mu.Lock()
		defer m.mu.Unlock()
		if seq != m.flySeq || ctx.Err() != nil {
			return
		}
		if p >= 1 {
			m.camera = to
			return
		}
		m.camera = Camera{
			Center: model.Point{
				Latitude:  renderer.Lerp(from.Center.Latitude, to.Center.Latitude, p),
				Longitude: renderer.LerpLng(from.Center.Longitude, to.Center.Longitude, p),
			},
			Zoom: renderer.Lerp(from.Zoom, to.Zoom, p),
		}
	})
}

func (m *Map) OnClick(fn renderer.ClickHandler) func() {
	return m.clicks.Add(fn)
}

func worldSize(zoom float64) float64 {
	return TileSize * math.Pow(2, zoom)
}

// Project returns world pixel coordinates at zoom.
func Project(lat, lng, zoom float64) (x, y float64) {
	lat = clamp(lat, -MaxLatitude, MaxLatitude)
	s := worldSize(zoom)
	latRad := lat * math.Pi / 180
	x = (lng + 180) / 360 * s
	y = (1 - math.Log(math.Tan(latRad)+1/math.Cos(latRad))/math.Pi) / 2 * s
	return x, y
}

// Unproject is the inverse of Project.
func Unproject(x, y, zoom float64) (lat, lng float64) {
	s := worldSize(zoom)
	lng = x/s*360 - 180
	lat = math.Atan(math.Sinh(math.Pi*(1-2*y/s))) * 180 / math.Pi
	return lat, lng
}

// ContainerPointToLatLng resolves a viewport pixel under the current camera.
func (m *Map) ContainerPointToLatLng(px, py float64) (lat, lng float64) {
	m.mu.Lock()
	cam := m.camera
	w, h := float64(m.opts.Width), float64(m.opts.Height)
	m.mu.Unlock()

	cx, cy := Project(cam.Center.Latitude, cam.Center.Longitude, cam.Zoom)
	lat, lng = Unproject(cx+px-w/2, cy+py-h/2, cam.Zoom)
	return clamp(lat, -MaxLatitude, MaxLatitude), renderer.NormalizeLng(lng)
}

// latLngToContainerPoint places lat/lng on the world copy nearest the camera,
// so points across the antimeridian land where they are drawn.
func (m *Map) latLngToContainerPoint(lat, lng float64, cam Camera) (float64, float64) {
	cx, cy := Project(cam.Center.Latitude, cam.Center.Longitude, cam.Zoom)
	x, y := Project(lat, lng, cam.Zoom)
	ws := worldSize(cam.Zoom)
	for x-cx > ws/2 {
		x -= ws
	}
	for x-cx < -ws/2 {
		x += ws
	}
	return x - cx + float64(m.opts.Width)/2, y - cy + float64(m.opts.Height)/2
}

// Click simulates a pointer click at viewport pixel (px, py). A click inside
// a fire marker reports that fire's position; anything else reports the
// point under the pointer.
func (m *Map) Click(px, py float64) renderer.ClickEvent {
	ev := renderer.ClickEvent{Backend: renderer.FlatMap}
	if mk, ok := m.hitFire(px, py); ok {
		ev.Lat, ev.Lng, ev.OnFire = mk.Lat, mk.Lng, true
	} else {
		ev.Lat, ev.Lng = m.ContainerPointToLatLng(px, py)
	}
	m.clicks.Emit(ev)
	return ev
}

func (m *Map) hitFire(px, py float64) (Marker, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	// Topmost layer first.
	for i := len(m.order) - 1; i >= 0; i-- {
		ly := m.layers[m.order[i]]
		if ly.class != renderer.ClassFires {
			continue
		}
		for j := len(ly.markers) - 1; j >= 0; j-- {
			mk := ly.markers[j]
			x, y := m.latLngToContainerPoint(mk.Lat, mk.Lng, m.camera)
			if math.Hypot(x-px, y-py) <= mk.Radius {
				return mk, true
			}
		}
	}
	return Marker{}, false
}

// Snapshot exports the scene as a GeoJSON feature collection in draw order.
func (m *Map) Snapshot() *geojson.FeatureCollection {
	m.mu.Lock()
	defer m.mu.Unlock()

	fc := geojson.NewFeatureCollection()
	for _, h := range m.order {
		ly := m.layers[h]
		for _, o := range ly.outlines {
			f := usecase.MakeGeojsonLineString(o.Ring)
			f.SetProperty("layer", string(ly.class))
			f.SetProperty("name", o.Name)
			if o.Country {
				f.SetProperty("stroke", usecase.CountryStrokeColor)
			} else {
				f.SetProperty("stroke", usecase.StateStrokeColor)
			}
			fc.AddFeature(f)
		}
		for _, l := range ly.labels {
			f := usecase.MakeGeojsonPoint(model.Point{Latitude: l.Lat, Longitude: l.Lng})
			f.SetProperty("layer", string(ly.class))
			f.SetProperty("kind", "label")
			f.SetProperty("text", l.Text)
			f.SetProperty("labelType", string(l.Type))
			f.SetProperty("size", l.Size)
			if l.Color != "" {
				f.SetProperty("color", l.Color)
			}
			fc.AddFeature(f)
		}
		for _, mk := range ly.markers {
			f := usecase.MakeGeojsonPoint(model.Point{Latitude: mk.Lat, Longitude: mk.Lng})
			f.SetProperty("layer", string(ly.class))
			f.SetProperty("kind", "marker")
			f.SetProperty("shape", string(mk.Shape))
			f.SetProperty("radius", mk.Radius)
			f.SetProperty("color", mk.Color)
			f.SetProperty("fillColor", mk.FillColor)
			f.SetProperty("fillOpacity", mk.FillOpacity)
			f.SetProperty("weight", mk.Weight)
			if mk.Popup != "" {
				f.SetProperty("popup", mk.Popup)
			}
			fc.AddFeature(f)
		}
	}
	return fc
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(hi, math.Max(lo, v))
}
