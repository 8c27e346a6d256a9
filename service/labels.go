package service

import (
	"sync"
	"wildfire-viz/model"
	"wildfire-viz/usecase"

	geojson "github.com/paulmach/go.geojson"
)

// LabelInputs is what the label set is derived from. The revisions stand in
// for input identity: callers bump them whenever the matching slice changes.
type LabelInputs struct {
	BoundaryRev uint64
	Countries   []*geojson.Feature
	States      []*geojson.Feature

	HotspotRev uint64
	Hotspots   []model.AnalyzedHotspot
	Custom     *model.AnalyzedHotspot
}

// LabelComposer memoizes the composed label set. Admin labels are recomputed
// only on a boundary change, the full set on a boundary or hotspot change.
type LabelComposer struct {
	mu    sync.Mutex
	rules usecase.LabelRules

	adminRev   uint64
	adminValid bool
	admin      []model.Label

	allKey   [2]uint64
	allValid bool
	all      []model.Label

	adminRuns int
	runs      int
}

func NewLabelComposer(rules usecase.LabelRules) *LabelComposer {
	return &LabelComposer{rules: rules}
}

// Compose returns the label set for in. The returned slice is shared with
// later calls for the same revisions and must not be modified.
func (c *LabelComposer) Compose(in LabelInputs) []model.Label {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := [2]uint64{in.BoundaryRev, in.HotspotRev}
	if c.allValid && c.allKey == key {
		return c.all
	}

	if !c.adminValid || c.adminRev != in.BoundaryRev {
		c.admin = usecase.AdminLabels(in.Countries, in.States, c.rules)
		c.adminRev, c.adminValid = in.BoundaryRev, true
		c.adminRuns++
	}

	c.all = usecase.ComposeLabels(c.admin, in.Hotspots, in.Custom)
	c.allKey, c.allValid = key, true
	c.runs++
	return c.all
}

// Computations reports how many times the admin labels and the full set were
// actually rebuilt.
func (c *LabelComposer) Computations() (admin, all int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.adminRuns, c.runs
}
