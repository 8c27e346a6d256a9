// Package renderer defines the contract both map backends implement. A
// renderer is created by the caller and handed to whatever drives it; there is
// no process-wide renderer instance.
package renderer

import (
	"context"
	"errors"
	"math"
	"sync"
	"time"
	"wildfire-viz/model"
)

type Backend string

const (
	FlatMap Backend = "flatmap"
	Globe   Backend = "globe"
)

// LayerClass is the entity class a layer renders.
type LayerClass string

const (
	ClassFires    LayerClass = "fires"
	ClassHotspots LayerClass = "hotspots"
	ClassCustom   LayerClass = "custom"
	ClassOverlay  LayerClass = "overlay"
)

func Classes() []LayerClass {
	return []LayerClass{ClassOverlay, ClassFires, ClassHotspots, ClassCustom}
}

// Mark is one styled entity. Colors come from the shared palette; each backend
// only decides sizes and primitives.
type Mark struct {
	Ref       string  `json:"ref,omitempty"`
	Lat       float64 `json:"lat"`
	Lng       float64 `json:"lng"`
	Fill      string  `json:"fill"`
	Stroke    string  `json:"stroke"`
	Intensity float64 `json:"intensity,omitempty"`
	Title     string  `json:"title,omitempty"`
	Detail    string  `json:"detail,omitempty"`
}

// Layer is the full content of one entity class for one backend.
type Layer struct {
	Class    LayerClass
	Marks    []Mark
	Labels   []model.Label
	Outlines []model.Outline
}

type LayerHandle string

type ClickEvent struct {
	Backend Backend `json:"backend"`
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
	// OnFire is set when the click hit a rendered fire point; Lat/Lng are then
	// that fire's coordinates.
	OnFire bool `json:"onFire"`
}

type ClickHandler func(ClickEvent)

var ErrUnknownLayer = errors.New("renderer: unknown layer")

type Renderer interface {
	Backend() Backend
	AddLayer(l Layer) (LayerHandle, error)
	RemoveLayer(h LayerHandle) error
	// FlyTo moves the camera to v over d. It blocks until the camera arrives or
	// ctx is done, in which case the camera stays where it was and ctx.Err()
	// is returned.
	FlyTo(ctx context.Context, v model.Viewpoint, d time.Duration) error
	OnClick(fn ClickHandler) (unsubscribe func())
}

// Subscribers is a small click-handler registry shared by the backends.
type Subscribers struct {
	mu       sync.Mutex
	next     int
	handlers map[int]ClickHandler
}

func (s *Subscribers) Add(fn ClickHandler) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.handlers == nil {
		s.handlers = make(map[int]ClickHandler)
	}
	id := s.next
	s.next++
	s.handlers[id] = fn
	return func() {
		s.mu.Lock()
		delete(s.handlers, id)
		s.mu.Unlock()
	}
}

func (s *Subscribers) Emit(ev ClickEvent) {
	s.mu.Lock()
	fns := make([]ClickHandler, 0, len(s.handlers))
	for i := 0; i < s.next; i++ {
		if fn, ok := s.handlers[i]; ok {
			fns = append(fns, fn)
		}
	}
	s.mu.Unlock()
	for _, fn := range fns {
		fn(ev)
	}
}

func (s *Subscribers) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.handlers)
}

const DefaultFrameInterval = 16 * time.Millisecond

// Animate calls step once per frame with eased progress in (0, 1], ending with
// exactly 1. If ctx ends first it returns ctx.Err() without the final step.
func Animate(ctx context.Context, d, frame time.Duration, step func(p float64)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if d <= 0 {
		step(1)
		return nil
	}
	if frame <= 0 {
		frame = DefaultFrameInterval
	}

	start := time.Now()
	ticker := time.NewTicker(frame)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			p := float64(now.Sub(start)) / float64(d)
			if p >= 1 {
				if err := ctx.Err(); err != nil {
					return err
				}
				step(1)
				return nil
			}
			step(easeInOut(p))
		}
	}
}

func easeInOut(p float64) float64 {
	return (1 - math.Cos(math.Pi*p)) / 2
}

// Lerp interpolates a and b; longitudes take the short way round.
func Lerp(a, b, p float64) float64 {
	return a + (b-a)*p
}

func LerpLng(a, b, p float64) float64 {
	d := b - a
	if d > 180 {
		d -= 360
	} else if d < -180 {
		d += 360
	}
	return NormalizeLng(a + d*p)
}

func NormalizeLng(lng float64) float64 {
	for lng > 180 {
		lng -= 360
	}
	for lng < -180 {
		lng += 360
	}
	return lng
}
