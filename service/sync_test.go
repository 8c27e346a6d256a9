package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"
	"wildfire-viz/model"
	"wildfire-viz/renderer"
	"wildfire-viz/renderer/flatmap"
	"wildfire-viz/renderer/globe"
	"wildfire-viz/usecase"

	geojson "github.com/paulmach/go.geojson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRenderer records layers and the viewpoints it actually reached.
type fakeRenderer struct {
	backend renderer.Backend
	clicks  renderer.Subscribers

	mu      sync.Mutex
	next    int
	layers  map[renderer.LayerHandle]renderer.Layer
	arrived []model.Viewpoint
	started []model.Viewpoint
}

func newFake(b renderer.Backend) *fakeRenderer {
	return &fakeRenderer{backend: b, layers: map[renderer.LayerHandle]renderer.Layer{}}
}

func (f *fakeRenderer) Backend() renderer.Backend { return f.backend }

func (f *fakeRenderer) AddLayer(l renderer.Layer) (renderer.LayerHandle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.next++
	h := renderer.LayerHandle(fmt.Sprintf("%s-%d", f.backend, f.next))
	f.layers[h] = l
	return h, nil
}

func (f *fakeRenderer) RemoveLayer(h renderer.LayerHandle) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.layers[h]; !ok {
		return renderer.ErrUnknownLayer
	}
	delete(f.layers, h)
	return nil
}

func (f *fakeRenderer) FlyTo(ctx context.Context, v model.Viewpoint, d time.Duration) error {
	f.mu.Lock()
	f.started = append(f.started, v)
	f.mu.Unlock()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.arrived = append(f.arrived, v)
	return nil
}

func (f *fakeRenderer) OnClick(fn renderer.ClickHandler) func() {
	return f.clicks.Add(fn)
}

func (f *fakeRenderer) layersOf(c renderer.LayerClass) []renderer.Layer {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []renderer.Layer
	for _, l := range f.layers {
		if l.Class == c {
			out = append(out, l)
		}
	}
	return out
}

func hotspotAt(id string, lat, lon float64, level model.RiskLevel) model.AnalyzedHotspot {
	h := model.AnalyzedHotspot{
		ID:       id,
		FireData: model.ActiveFire{Lat: lat, Lon: lon, Brightness: 350},
	}
	if level != "" {
		h.Prediction = &model.Prediction{RiskLevel: level}
	}
	return h
}

func countryFeature(name string, lat, lng float64, vertices int) *geojson.Feature {
	pts := usecase.CalcRingPoints(lat, lng, 300, vertices-1)
	ring := make([][]float64, 0, len(pts))
	for _, p := range pts {
		ring = append(ring, []float64{p.Longitude, p.Latitude})
	}
	f := geojson.NewPolygonFeature([][][]float64{ring})
	f.SetProperty("NAME", name)
	f.SetProperty("ADMIN", name)
	return f
}

func newFakeSync(t *testing.T, opts SyncOptions) (*DualProjectionSync, *fakeRenderer, *fakeRenderer) {
	t.Helper()
	flat, glb := newFake(renderer.FlatMap), newFake(renderer.Globe)
	s, err := NewDualProjectionSync(opts, flat, glb)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s, flat, glb
}

func TestNewDualProjectionSyncRejectsBadRenderers(t *testing.T) {
	_, err := NewDualProjectionSync(SyncOptions{})
	assert.Error(t, err)

	_, err = NewDualProjectionSync(SyncOptions{}, newFake(renderer.Globe), newFake(renderer.Globe))
	assert.Error(t, err)
}

func TestSyncNewerFocusSupersedesTransition(t *testing.T) {
	s, flat, glb := newFakeSync(t, SyncOptions{TransitionDuration: 150 * time.Millisecond})

	require.NoError(t, s.SetFocus(&model.AnalyzedHotspot{FireData: model.ActiveFire{Lat: 10, Lon: 20}}))
	time.Sleep(20 * time.Millisecond)
	target := hotspotAt("blr", 12.97, 77.59, model.RiskHigh)
	require.NoError(t, s.SetFocus(&target))
	s.WaitTransitions()

	for _, f := range []*fakeRenderer{flat, glb} {
		require.Len(t, f.started, 2, f.backend)
		require.Len(t, f.arrived, 1, f.backend)
		assert.Equal(t, 12.97, f.arrived[0].Lat)
		assert.Equal(t, 77.59, f.arrived[0].Lng)
		assert.Equal(t, float64(DefaultFlatZoom), f.arrived[0].Zoom)
		assert.Equal(t, DefaultGlobeAltitude, f.arrived[0].Altitude)
	}
	assert.Equal(t, "blr", s.State().Focus.ID)
}

func TestSyncSupersededTransitionOnRealBackends(t *testing.T) {
	fm := flatmap.New(flatmap.DefaultOptions())
	gl := globe.New(globe.DefaultOptions())
	s, err := NewDualProjectionSync(SyncOptions{TransitionDuration: 120 * time.Millisecond}, fm, gl)
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.SetFocus(&model.AnalyzedHotspot{FireData: model.ActiveFire{Lat: 10, Lon: 20}}))
	time.Sleep(30 * time.Millisecond)
	target := hotspotAt("blr", 12.97, 77.59, "")
	require.NoError(t, s.SetFocus(&target))
	s.WaitTransitions()

	cam := fm.Camera()
	assert.InDelta(t, 12.97, cam.Center.Latitude, 1e-9)
	assert.InDelta(t, 77.59, cam.Center.Longitude, 1e-9)
	assert.Equal(t, 8.0, cam.Zoom)

	pov := gl.PointOfView()
	assert.InDelta(t, 12.97, pov.Lat, 1e-9)
	assert.InDelta(t, 77.59, pov.Lng, 1e-9)
	assert.Equal(t, 0.5, pov.Altitude)
}

func TestSyncClearFocusCancelsTransition(t *testing.T) {
	s, flat, _ := newFakeSync(t, SyncOptions{TransitionDuration: time.Second})

	target := hotspotAt("x", 1, 2, "")
	require.NoError(t, s.SetFocus(&target))
	require.NoError(t, s.SetFocus(nil))
	s.WaitTransitions()

	assert.Empty(t, flat.arrived)
	assert.Nil(t, s.State().Focus)
}

func TestSyncBackendsShareColors(t *testing.T) {
	fm := flatmap.New(flatmap.DefaultOptions())
	gl := globe.New(globe.DefaultOptions())
	s, err := NewDualProjectionSync(SyncOptions{}, fm, gl)
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.SetHotspots([]model.AnalyzedHotspot{hotspotAt("h1", -12, 131, model.RiskExtreme)}))
	require.NoError(t, s.SetFires([]model.ActiveFire{{Lat: 5, Lon: 5, Brightness: 250}}))

	hot := fm.Markers(renderer.ClassHotspots)
	require.Len(t, hot, 1)
	assert.Equal(t, "#ef4444", hot[0].FillColor)
	scene := gl.Snapshot()
	require.Len(t, scene.Rings, 1)
	assert.Equal(t, "#ef4444", scene.Rings[0].Color)

	fires := fm.Markers(renderer.ClassFires)
	require.Len(t, fires, 1)
	assert.Equal(t, "#fde047", fires[0].FillColor)
	require.Len(t, scene.Points, 1)
	assert.Equal(t, "#fde047", scene.Points[0].Color)
}

func TestSyncCustomMarkerAccentBorder(t *testing.T) {
	s, flat, glb := newFakeSync(t, SyncOptions{})

	custom := hotspotAt("custom", 20, 78, model.RiskLow)
	require.NoError(t, s.SetCustomPrediction(&custom))

	for _, f := range []*fakeRenderer{flat, glb} {
		layers := f.layersOf(renderer.ClassCustom)
		require.Len(t, layers, 1)
		require.Len(t, layers[0].Marks, 1)
		assert.Equal(t, usecase.ColorLow, layers[0].Marks[0].Fill)
		assert.Equal(t, usecase.CustomAccentColor, layers[0].Marks[0].Stroke)
	}

	require.NoError(t, s.SetCustomPrediction(nil))
	assert.Empty(t, flat.layersOf(renderer.ClassCustom))
}

func TestSyncFullReplace(t *testing.T) {
	s, flat, glb := newFakeSync(t, SyncOptions{})

	require.NoError(t, s.SetFires([]model.ActiveFire{{Lat: 1}, {Lat: 2}, {Lat: 3}}))
	require.NoError(t, s.SetFires([]model.ActiveFire{{Lat: 4}, {Lat: 5}}))

	for _, f := range []*fakeRenderer{flat, glb} {
		layers := f.layersOf(renderer.ClassFires)
		require.Len(t, layers, 1)
		require.Len(t, layers[0].Marks, 2)
		assert.Equal(t, 4.0, layers[0].Marks[0].Lat)
	}

	require.NoError(t, s.SetFires(nil))
	assert.Empty(t, flat.layersOf(renderer.ClassFires))
	assert.Empty(t, glb.layersOf(renderer.ClassFires))
}

func TestSyncForwardsClicks(t *testing.T) {
	type click struct{ lat, lon float64 }
	var mu sync.Mutex
	var got []click

	fm := flatmap.New(flatmap.DefaultOptions())
	gl := globe.New(globe.DefaultOptions())
	s, err := NewDualProjectionSync(SyncOptions{
		OnMapClick: func(lat, lon float64) {
			mu.Lock()
			got = append(got, click{lat, lon})
			mu.Unlock()
		},
	}, fm, gl)
	require.NoError(t, err)
	defer s.Close()

	// The default camera is centred on (20, 0), so this fire sits in the
	// middle of the viewport.
	require.NoError(t, s.SetFires([]model.ActiveFire{{Lat: 20, Lon: 0, Brightness: 400}}))

	ev := fm.Click(640, 400)
	assert.True(t, ev.OnFire)
	ev = fm.Click(10, 10)
	assert.False(t, ev.OnFire)

	x, y, z := globe.SurfacePoint(-33.87, 151.21)
	_, err = gl.Click(x, y, z)
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, got, 3)
	assert.Equal(t, click{20, 0}, got[0])
	lat, lng := fm.ContainerPointToLatLng(10, 10)
	assert.Equal(t, click{lat, lng}, got[1])
	assert.InDelta(t, -33.87, got[2].lat, 1e-9)
	assert.InDelta(t, 151.21, got[2].lon, 1e-9)
}

func TestSyncLabelsMemoized(t *testing.T) {
	s, _, _ := newFakeSync(t, SyncOptions{})

	require.NoError(t, s.SetHotspots([]model.AnalyzedHotspot{hotspotAt("a", 1, 1, model.RiskHigh)}))
	admin, all := s.LabelComputations()
	assert.Equal(t, 1, admin)
	assert.Equal(t, 1, all)

	require.NoError(t, s.SetFires([]model.ActiveFire{{Lat: 1}}))
	labels := s.Labels()
	require.Len(t, labels, 1)
	assert.Equal(t, "High Risk", labels[0].Text)
	admin, all = s.LabelComputations()
	assert.Equal(t, 1, admin)
	assert.Equal(t, 1, all)

	custom := hotspotAt("c", 2, 2, "")
	require.NoError(t, s.SetCustomPrediction(&custom))
	admin, all = s.LabelComputations()
	assert.Equal(t, 1, admin)
	assert.Equal(t, 2, all)

	require.NoError(t, s.SetBoundaries(Boundaries{Countries: []*geojson.Feature{countryFeature("Testland", 0, 0, 40)}}))
	admin, all = s.LabelComputations()
	assert.Equal(t, 2, admin)
	assert.Equal(t, 3, all)

	labels = s.Labels()
	require.Len(t, labels, 3)
	assert.Equal(t, "Testland", labels[0].Text)
	assert.Equal(t, "Analyzed", labels[2].Text)
}

func TestSyncLoadBoundaries(t *testing.T) {
	s, flat, glb := newFakeSync(t, SyncOptions{})

	src := StaticBoundarySource{Boundaries: Boundaries{
		Countries: []*geojson.Feature{countryFeature("Bigland", 10, 10, 60), countryFeature("Islet", 0, 0, 8)},
	}}
	<-s.LoadBoundaries(context.Background(), src)

	for _, f := range []*fakeRenderer{flat, glb} {
		layers := f.layersOf(renderer.ClassOverlay)
		require.Len(t, layers, 1)
		require.Len(t, layers[0].Labels, 1)
		assert.Equal(t, "Bigland", layers[0].Labels[0].Text)
		assert.NotEmpty(t, layers[0].Outlines)
	}
}

func TestSyncLoadBoundariesFailureKeepsRendering(t *testing.T) {
	s, flat, _ := newFakeSync(t, SyncOptions{})

	<-s.LoadBoundaries(context.Background(), StaticBoundarySource{Err: assert.AnError})
	require.NoError(t, s.SetFires([]model.ActiveFire{{Lat: 1, Brightness: 330}}))
	require.NoError(t, s.SetHotspots([]model.AnalyzedHotspot{hotspotAt("a", 1, 1, model.RiskMedium)}))

	assert.Len(t, flat.layersOf(renderer.ClassFires), 1)
	overlay := flat.layersOf(renderer.ClassOverlay)
	require.Len(t, overlay, 1)
	assert.Empty(t, overlay[0].Outlines)
	require.Len(t, overlay[0].Labels, 1)
	assert.Equal(t, model.LabelHotspot, overlay[0].Labels[0].Type)
}

type blockingSource struct {
	release chan struct{}
	b       Boundaries
}

func (s blockingSource) Fetch(ctx context.Context) (Boundaries, error) {
	<-s.release
	return s.b, nil
}

func TestSyncLateBoundaryLoadDiscardedAfterClose(t *testing.T) {
	flat := newFake(renderer.FlatMap)
	s, err := NewDualProjectionSync(SyncOptions{}, flat)
	require.NoError(t, err)

	src := blockingSource{
		release: make(chan struct{}),
		b:       Boundaries{Countries: []*geojson.Feature{countryFeature("Late", 0, 0, 40)}},
	}
	done := s.LoadBoundaries(context.Background(), src)
	require.NoError(t, s.Close())
	close(src.release)
	<-done

	assert.Empty(t, flat.layers)
	assert.Empty(t, s.Labels())
}

func TestSyncClose(t *testing.T) {
	flat := newFake(renderer.FlatMap)
	var clicks int
	s, err := NewDualProjectionSync(SyncOptions{
		TransitionDuration: time.Hour,
		OnMapClick:         func(float64, float64) { clicks++ },
	}, flat)
	require.NoError(t, err)

	require.NoError(t, s.SetFires([]model.ActiveFire{{Lat: 1}}))
	target := hotspotAt("x", 1, 1, "")
	require.NoError(t, s.SetFocus(&target))
	require.Equal(t, 1, flat.clicks.Len())

	require.NoError(t, s.Close())
	assert.Empty(t, flat.layers)
	assert.Empty(t, flat.arrived)
	assert.Equal(t, 0, flat.clicks.Len())

	flat.clicks.Emit(renderer.ClickEvent{Lat: 1, Lng: 1})
	assert.Equal(t, 0, clicks)
	assert.ErrorIs(t, s.SetFires(nil), ErrClosed)
	assert.ErrorIs(t, s.SetFocus(&target), ErrClosed)
	assert.NoError(t, s.Close())
}

func TestSyncOnChange(t *testing.T) {
	var changed []renderer.LayerClass
	s, _, _ := newFakeSync(t, SyncOptions{OnChange: func(c renderer.LayerClass) { changed = append(changed, c) }})

	require.NoError(t, s.SetFires(nil))
	require.NoError(t, s.SetHotspots(nil))
	assert.Equal(t, []renderer.LayerClass{renderer.ClassFires, renderer.ClassHotspots, renderer.ClassOverlay}, changed)
}
