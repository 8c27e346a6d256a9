package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
	"wildfire-viz/metrics"
	"wildfire-viz/model"
	"wildfire-viz/renderer"
	"wildfire-viz/usecase"

	"go.uber.org/zap"
)

const (
	DefaultTransitionDuration = 1500 * time.Millisecond
	DefaultFlatZoom           = 8
	DefaultGlobeAltitude      = 0.5
)

var ErrClosed = errors.New("sync closed")

type SyncOptions struct {
	TransitionDuration time.Duration
	FlatZoom           float64
	GlobeAltitude      float64
	LabelRules         usecase.LabelRules

	// OnMapClick receives every resolved click, from either backend. It is
	// called on the clicking goroutine and its result is not awaited.
	OnMapClick func(lat, lon float64)
	// OnChange is called after a class has been rebuilt on every backend.
	OnChange func(class renderer.LayerClass)

	Logger  *zap.SugaredLogger
	Metrics *metrics.Metrics
}

func (o *SyncOptions) applyDefaults() {
	if o.TransitionDuration <= 0 {
		o.TransitionDuration = DefaultTransitionDuration
	}
	if o.FlatZoom <= 0 {
		o.FlatZoom = DefaultFlatZoom
	}
	if o.GlobeAltitude <= 0 {
		o.GlobeAltitude = DefaultGlobeAltitude
	}
	if o.LabelRules.MinCountryPoints == 0 && len(o.LabelRules.TargetCountries) == 0 {
		o.LabelRules = usecase.DefaultLabelRules()
	}
}

type backendState struct {
	r           renderer.Renderer
	handles     map[renderer.LayerClass]renderer.LayerHandle
	unsubscribe func()
}

// DualProjectionSync keeps every renderer backend showing the same fires,
// hotspots, custom prediction and boundary overlay, and moves all cameras
// together when the focus changes.
//
// Each class is updated by full replacement: the class's layer is removed
// from a backend and rebuilt from the current entities. There is no diffing.
type DualProjectionSync struct {
	opts    SyncOptions
	logger  *zap.SugaredLogger
	metrics *metrics.Metrics
	labels  *LabelComposer

	// ctx is cancelled by Close and parents every transition and load.
	ctx    context.Context
	cancel context.CancelFunc
	closed atomic.Bool

	mu          sync.Mutex
	backends    []*backendState
	fires       []model.ActiveFire
	hotspots    []model.AnalyzedHotspot
	custom      *model.AnalyzedHotspot
	focus       *model.AnalyzedHotspot
	boundaries  Boundaries
	overlay     []model.Outline
	boundaryRev uint64
	hotspotRev  uint64
	flyCancel   context.CancelFunc

	flights sync.WaitGroup
}

// NewDualProjectionSync takes ownership of the given renderers' layers and
// click subscriptions. The renderers stay owned by the caller.
func NewDualProjectionSync(opts SyncOptions, renderers ...renderer.Renderer) (*DualProjectionSync, error) {
	if len(renderers) == 0 {
		return nil, fmt.Errorf("no renderer given")
	}
	opts.applyDefaults()

	s := &DualProjectionSync{
		opts:    opts,
		logger:  orDefault(opts.Logger).Named("sync"),
		metrics: opts.Metrics,
		labels:  NewLabelComposer(opts.LabelRules),
	}
	s.ctx, s.cancel = context.WithCancel(context.Background())

	seen := map[renderer.Backend]bool{}
	for _, r := range renderers {
		if r == nil {
			return nil, fmt.Errorf("nil renderer")
		}
		b := r.Backend()
		if seen[b] {
			return nil, fmt.Errorf("duplicate renderer backend %q", b)
		}
		seen[b] = true

		bs := &backendState{r: r, handles: map[renderer.LayerClass]renderer.LayerHandle{}}
		bs.unsubscribe = r.OnClick(s.handleClick)
		s.backends = append(s.backends, bs)
	}
	return s, nil
}

func (s *DualProjectionSync) handleClick(ev renderer.ClickEvent) {
	if s.closed.Load() {
		return
	}
	s.metrics.Click(string(ev.Backend))
	s.logger.Debugw("map click", "backend", ev.Backend, "lat", ev.Lat, "lng", ev.Lng, "onFire", ev.OnFire)
	if s.opts.OnMapClick != nil {
		s.opts.OnMapClick(ev.Lat, ev.Lng)
	}
}

func (s *DualProjectionSync) notify(classes ...renderer.LayerClass) {
	if s.opts.OnChange == nil {
		return
	}
	for _, c := range classes {
		s.opts.OnChange(c)
	}
}

// SetFires replaces the active fire set.
func (s *DualProjectionSync) SetFires(fires []model.ActiveFire) error {
	s.mu.Lock()
	if s.closed.Load() {
		s.mu.Unlock()
		return ErrClosed
	}
	s.fires = append([]model.ActiveFire(nil), fires...)
	s.rebuild(renderer.ClassFires)
	s.mu.Unlock()

	s.notify(renderer.ClassFires)
	return nil
}

// SetHotspots replaces the analyzed hotspot set. Hotspot labels live in the
// overlay, so it is rebuilt too.
func (s *DualProjectionSync) SetHotspots(hotspots []model.AnalyzedHotspot) error {
	s.mu.Lock()
	if s.closed.Load() {
		s.mu.Unlock()
		return ErrClosed
	}
	s.hotspots = append([]model.AnalyzedHotspot(nil), hotspots...)
	s.hotspotRev++
	s.rebuild(renderer.ClassHotspots)
	s.rebuild(renderer.ClassOverlay)
	s.mu.Unlock()

	s.notify(renderer.ClassHotspots, renderer.ClassOverlay)
	return nil
}

// SetCustomPrediction sets or, with nil, clears the custom prediction marker.
func (s *DualProjectionSync) SetCustomPrediction(h *model.AnalyzedHotspot) error {
	s.mu.Lock()
	if s.closed.Load() {
		s.mu.Unlock()
		return ErrClosed
	}
	if h != nil {
		c := *h
		h = &c
	}
	s.custom = h
	s.hotspotRev++
	s.rebuild(renderer.ClassCustom)
	s.rebuild(renderer.ClassOverlay)
	s.mu.Unlock()

	s.notify(renderer.ClassCustom, renderer.ClassOverlay)
	return nil
}

// SetFocus starts one camera transition per backend to h. A transition still
// in flight is cancelled first and never reaches its target. A nil focus
// clears the focus and leaves the cameras where they are.
func (s *DualProjectionSync) SetFocus(h *model.AnalyzedHotspot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed.Load() {
		return ErrClosed
	}

	if s.flyCancel != nil {
		s.flyCancel()
		s.flyCancel = nil
	}
	if h == nil {
		s.focus = nil
		return nil
	}
	c := *h
	s.focus = &c
	s.logger.Debugf("focus %s", c)

	ctx, cancel := context.WithCancel(s.ctx)
	s.flyCancel = cancel
	p := c.Point()
	v := model.Viewpoint{
		Lat:      p.Latitude,
		Lng:      p.Longitude,
		Zoom:     s.opts.FlatZoom,
		Altitude: s.opts.GlobeAltitude,
	}
	for _, bs := range s.backends {
		s.flights.Add(1)
		go s.fly(ctx, bs.r, v)
	}
	return nil
}

func (s *DualProjectionSync) fly(ctx context.Context, r renderer.Renderer, v model.Viewpoint) {
	defer s.flights.Done()

	err := r.FlyTo(ctx, v, s.opts.TransitionDuration)
	switch {
	case err == nil:
		s.metrics.Transition(string(r.Backend()), "completed")
	case errors.Is(err, context.Canceled):
		s.metrics.Transition(string(r.Backend()), "superseded")
	default:
		s.metrics.Transition(string(r.Backend()), "failed")
		s.logger.Warnf("%s: camera transition to (%.4f, %.4f) failed: %v", r.Backend(), v.Lat, v.Lng, err)
	}
}

// WaitTransitions blocks until no camera transition is running.
func (s *DualProjectionSync) WaitTransitions() {
	s.flights.Wait()
}

// SetBoundaries replaces the boundary collections and rebuilds the overlay.
func (s *DualProjectionSync) SetBoundaries(b Boundaries) error {
	overlay := CleanOverlay(b.Countries, b.States)

	s.mu.Lock()
	if s.closed.Load() {
		s.mu.Unlock()
		return ErrClosed
	}
	s.applyBoundaries(b, overlay)
	s.mu.Unlock()

	s.notify(renderer.ClassOverlay)
	return nil
}

func (s *DualProjectionSync) applyBoundaries(b Boundaries, overlay []model.Outline) {
	s.boundaries = b
	s.overlay = overlay
	s.boundaryRev++
	s.rebuild(renderer.ClassOverlay)
}

// LoadBoundaries fetches the boundary collections in the background. Until it
// finishes, and for good if it fails, the overlay is empty and everything else
// renders as usual. A result arriving after Close is dropped. The returned
// channel is closed once the result has been applied or dropped.
func (s *DualProjectionSync) LoadBoundaries(ctx context.Context, src BoundarySource) <-chan struct{} {
	done := make(chan struct{})
	if s.closed.Load() {
		close(done)
		return done
	}

	loadCtx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(s.ctx, cancel)

	go func() {
		defer close(done)
		defer stop()
		defer cancel()

		b, err := src.Fetch(loadCtx)
		if err != nil {
			s.metrics.BoundaryLoadFailed()
			s.logger.Warnf("boundary load degraded: %v", err)
		}
		if loadCtx.Err() != nil {
			s.logger.Debugf("boundary load discarded: %v", loadCtx.Err())
			return
		}

		overlay := CleanOverlay(b.Countries, b.States)

		s.mu.Lock()
		if s.closed.Load() {
			s.mu.Unlock()
			return
		}
		s.applyBoundaries(b, overlay)
		s.mu.Unlock()

		s.logger.Infof("boundaries loaded: %d countries, %d states, %d outlines",
			len(b.Countries), len(b.States), len(overlay))
		s.notify(renderer.ClassOverlay)
	}()
	return done
}

// Labels returns the current composed label set.
func (s *DualProjectionSync) Labels() []model.Label {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.composeLabels()
}

func (s *DualProjectionSync) composeLabels() []model.Label {
	return s.labels.Compose(LabelInputs{
		BoundaryRev: s.boundaryRev,
		Countries:   s.boundaries.Countries,
		States:      s.boundaries.States,
		HotspotRev:  s.hotspotRev,
		Hotspots:    s.hotspots,
		Custom:      s.custom,
	})
}

// LabelComputations exposes the composer's rebuild counters.
func (s *DualProjectionSync) LabelComputations() (admin, all int) {
	return s.labels.Computations()
}

// State is a copy of the entities currently shown.
type State struct {
	Fires    []model.ActiveFire      `json:"fires"`
	Hotspots []model.AnalyzedHotspot `json:"hotspots"`
	Custom   *model.AnalyzedHotspot  `json:"custom,omitempty"`
	Focus    *model.AnalyzedHotspot  `json:"focus,omitempty"`
}

func (s *DualProjectionSync) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return State{
		Fires:    append([]model.ActiveFire{}, s.fires...),
		Hotspots: append([]model.AnalyzedHotspot{}, s.hotspots...),
		Custom:   s.custom,
		Focus:    s.focus,
	}
}

// Close cancels running transitions and loads, drops the click
// subscriptions and removes every layer this sync added. It waits for the
// transitions to return.
func (s *DualProjectionSync) Close() error {
	s.mu.Lock()
	if s.closed.Swap(true) {
		s.mu.Unlock()
		return nil
	}
	s.cancel()
	s.flyCancel = nil

	var errs []error
	for _, bs := range s.backends {
		bs.unsubscribe()
		for _, class := range renderer.Classes() {
			h, ok := bs.handles[class]
			if !ok {
				continue
			}
			if err := bs.r.RemoveLayer(h); err != nil {
				errs = append(errs, fmt.Errorf("%s %s: %w", bs.r.Backend(), class, err))
			}
			delete(bs.handles, class)
		}
	}
	s.mu.Unlock()

	s.flights.Wait()
	return errors.Join(errs...)
}

// rebuild replaces class on every backend. Callers hold s.mu.
func (s *DualProjectionSync) rebuild(class renderer.LayerClass) {
	layer := s.buildLayer(class)
	empty := len(layer.Marks) == 0 && len(layer.Labels) == 0 && len(layer.Outlines) == 0

	for _, bs := range s.backends {
		if h, ok := bs.handles[class]; ok {
			if err := bs.r.RemoveLayer(h); err != nil {
				s.logger.Warnf("%s: remove %s layer: %v", bs.r.Backend(), class, err)
			}
			delete(bs.handles, class)
		}
		if empty {
			continue
		}
		h, err := bs.r.AddLayer(layer)
		if err != nil {
			s.logger.Warnf("%s: add %s layer: %v", bs.r.Backend(), class, err)
			continue
		}
		bs.handles[class] = h
		s.metrics.LayerRebuilt(string(bs.r.Backend()), string(class))
	}
}

func (s *DualProjectionSync) buildLayer(class renderer.LayerClass) renderer.Layer {
	l := renderer.Layer{Class: class}
	switch class {
	case renderer.ClassFires:
		l.Marks = FireMarks(s.fires)
	case renderer.ClassHotspots:
		l.Marks = HotspotMarks(s.hotspots)
	case renderer.ClassCustom:
		if s.custom != nil {
			l.Marks = []renderer.Mark{CustomMark(*s.custom)}
		}
	case renderer.ClassOverlay:
		l.Labels = s.composeLabels()
		l.Outlines = s.overlay
	}
	return l
}

// FireMarks styles active fires from the shared thermal table.
func FireMarks(fires []model.ActiveFire) []renderer.Mark {
	marks := make([]renderer.Mark, 0, len(fires))
	for _, f := range fires {
		color := usecase.FireColor(f)
		marks = append(marks, renderer.Mark{
			Lat:       f.Lat,
			Lng:       f.Lon,
			Fill:      color,
			Stroke:    color,
			Intensity: usecase.FireIntensity(f.Brightness),
			Title:     "Active Fire",
			Detail:    fmt.Sprintf("Brightness: %.0fK\nDate: %s", f.Brightness, f.AcqDate),
		})
	}
	return marks
}

func hotspotMark(h model.AnalyzedHotspot) renderer.Mark {
	color := usecase.RiskColor(h.Risk())
	title := h.EnvData.LocationName
	if title == "" {
		title = fmt.Sprintf("%.4f, %.4f", h.FireData.Lat, h.FireData.Lon)
	}
	return renderer.Mark{
		Ref:    h.ID,
		Lat:    h.FireData.Lat,
		Lng:    h.FireData.Lon,
		Fill:   color,
		Stroke: color,
		Title:  title,
		Detail: usecase.HotspotLabelText(h),
	}
}

// HotspotMarks styles analyzed hotspots from the shared risk table.
func HotspotMarks(hotspots []model.AnalyzedHotspot) []renderer.Mark {
	marks := make([]renderer.Mark, 0, len(hotspots))
	for _, h := range hotspots {
		marks = append(marks, hotspotMark(h))
	}
	return marks
}

// CustomMark is a hotspot mark with the fixed accent border.
func CustomMark(h model.AnalyzedHotspot) renderer.Mark {
	m := hotspotMark(h)
	m.Stroke = usecase.CustomAccentColor
	return m
}
