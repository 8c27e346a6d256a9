package model

import (
	"encoding/json"
	"fmt"
)

type RiskLevel string

const (
	RiskLow     RiskLevel = "Low"
	RiskMedium  RiskLevel = "Medium"
	RiskHigh    RiskLevel = "High"
	RiskExtreme RiskLevel = "Extreme"
)

// Rank orders risk levels Low < Medium < High < Extreme. Unknown levels rank 0.
func (r RiskLevel) Rank() int {
	switch r {
	case RiskLow:
		return 1
	case RiskMedium:
		return 2
	case RiskHigh:
		return 3
	case RiskExtreme:
		return 4
	}
	return 0
}

func (r RiskLevel) Valid() bool {
	return r.Rank() > 0
}

func ParseRiskLevel(s string) (RiskLevel, error) {
	r := RiskLevel(s)
	if !r.Valid() {
		return "", fmt.Errorf("unknown risk level %q", s)
	}
	return r, nil
}

// ActiveFire is one thermal anomaly detection. Brightness is nominally 300-500 K.
type ActiveFire struct {
	Lat        float64 `json:"lat"`
	Lon        float64 `json:"lon"`
	Brightness float64 `json:"brightness"`
	AcqDate    string  `json:"acq_date"`
}

type EnvData struct {
	Temperature  float64 `json:"temperature"`
	Humidity     float64 `json:"humidity"`
	WindSpeed    float64 `json:"windSpeed"`
	Rainfall     float64 `json:"rainfall"`
	LocationName string  `json:"locationName"`
	NDVI         float64 `json:"ndvi"`
}

type Prediction struct {
	RiskLevel       RiskLevel `json:"riskLevel"`
	Confidence      float64   `json:"confidence,omitempty"`
	FireProbability float64   `json:"fireProbability,omitempty"`
	Source          string    `json:"source,omitempty"`
	Explanation     string    `json:"explanation,omitempty"`
}

// AnalyzedHotspot is an active fire enriched by the external analysis pipeline.
type AnalyzedHotspot struct {
	ID         string      `json:"id"`
	FireData   ActiveFire  `json:"fireData"`
	EnvData    EnvData     `json:"envData"`
	Prediction *Prediction `json:"prediction,omitempty"`
}

// Risk returns the predicted level or "" when the hotspot has no prediction.
func (h AnalyzedHotspot) Risk() RiskLevel {
	if h.Prediction == nil {
		return ""
	}
	return h.Prediction.RiskLevel
}

func (h AnalyzedHotspot) Point() Point {
	return Point{Latitude: h.FireData.Lat, Longitude: h.FireData.Lon}
}

func (h AnalyzedHotspot) String() string {
	b, _ := json.Marshal(h)
	return string(b)
}
