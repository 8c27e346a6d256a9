package model

type Point struct {
	Latitude  float64
	Longitude float64
}

type LabelType string

const (
	LabelCountry LabelType = "country"
	LabelState   LabelType = "state"
	LabelHotspot LabelType = "hotspot"
)

// Label is a placeable text marker shared by both renderers.
type Label struct {
	Lat       float64   `json:"lat"`
	Lng       float64   `json:"lng"`
	Text      string    `json:"text"`
	Type      LabelType `json:"type"`
	Size      float64   `json:"size"`
	Color     string    `json:"color,omitempty"`
	DotRadius float64   `json:"dotRadius,omitempty"`
}

// Viewpoint is a camera target. Zoom is used by the flat map, Altitude by the globe.
type Viewpoint struct {
	Lat      float64 `json:"lat"`
	Lng      float64 `json:"lng"`
	Zoom     float64 `json:"zoom,omitempty"`
	Altitude float64 `json:"altitude,omitempty"`
}

// Outline is a cleaned boundary ring used for overlay strokes.
type Outline struct {
	Name    string     `json:"name"`
	Country bool       `json:"country"`
	Ring    []Point    `json:"-"`
	Bounds  [4]float64 `json:"bounds"` // minLng, minLat, maxLng, maxLat
}
