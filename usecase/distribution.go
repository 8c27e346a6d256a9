package usecase

import (
	"math"
	"math/rand/v2"
	"sync"
	"wildfire-viz/model"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat/distuv"
)

// The risk-density panel is a synthetic visualization aid. It spreads a single
// coarse risk level over a fake grid so the panel has texture; it is not a
// physical model and must not be read as ground truth.

type weightRange struct {
	base   float64
	jitter float64
}

// Raw weights in percentage points, ordered veryHigh, high, medium, low, veryLow.
var riskWeightTable = map[model.RiskLevel][model.NumBuckets]weightRange{
	model.RiskExtreme: {{35, 10}, {30, 10}, {20, 5}, {10, 5}, {5, 0}},
	model.RiskHigh:    {{15, 10}, {35, 10}, {25, 5}, {15, 5}, {10, 0}},
	model.RiskMedium:  {{5, 0}, {20, 5}, {40, 10}, {25, 5}, {10, 0}},
	model.RiskLow:     {{2, 0}, {8, 5}, {20, 5}, {35, 10}, {35, 10}},
}

const (
	minCellConfidence  = 85
	cellConfidenceSpan = 14
)

// Synthesizer draws risk distributions from an injected random source.
// It is safe for concurrent use.
type Synthesizer struct {
	mu  sync.Mutex
	src rand.Source
}

func NewSynthesizer(src rand.Source) *Synthesizer {
	return &Synthesizer{src: src}
}

// NewSeededSynthesizer is a convenience for reproducible output.
func NewSeededSynthesizer(seed uint64) *Synthesizer {
	return NewSynthesizer(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

func (s *Synthesizer) uniform(max float64) float64 {
	return distuv.Uniform{Min: 0, Max: max, Src: s.src}.Rand()
}

func weightsFor(level model.RiskLevel) [model.NumBuckets]weightRange {
	if w, ok := riskWeightTable[level]; ok {
		return w
	}
	return riskWeightTable[model.RiskLow]
}

func (s *Synthesizer) rawWeights(level model.RiskLevel) []float64 {
	table := weightsFor(level)
	raw := make([]float64, model.NumBuckets)
	for i, w := range table {
		raw[i] = w.base
		if w.jitter > 0 {
			raw[i] += s.uniform(w.jitter)
		}
	}
	return raw
}

// Normalize turns raw weights into fractions summing to 1 and independently
// rounded display percentages. Rounding drift is left as is.
func Normalize(raw []float64) ([model.NumBuckets]float64, model.Percentages) {
	var fractions [model.NumBuckets]float64
	total := floats.Sum(raw)
	if total <= 0 {
		fractions[model.VeryLow] = 1
		return fractions, model.Percentages{VeryLow: 100}
	}
	for i := range fractions {
		fractions[i] = raw[i] / total
	}
	pct := func(b model.Bucket) int {
		return int(math.Round(fractions[b] * 100))
	}
	return fractions, model.Percentages{
		VeryHigh: pct(model.VeryHigh),
		High:     pct(model.High),
		Medium:   pct(model.Medium),
		Low:      pct(model.Low),
		VeryLow:  pct(model.VeryLow),
	}
}

// PickBucket walks the cumulative fractions from veryHigh down. A draw past
// the last boundary falls back to veryLow.
func PickBucket(fractions [model.NumBuckets]float64, draw float64) model.Bucket {
	cumulative := 0.0
	for _, b := range model.Buckets() {
		cumulative += fractions[b] * 100
		if draw < cumulative {
			return b
		}
	}
	return model.VeryLow
}

// Synthesize produces display percentages and a fresh 8x12 grid for level.
// An empty or unknown level is treated as Low.
func (s *Synthesizer) Synthesize(level model.RiskLevel) model.Distribution {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !level.Valid() {
		level = model.RiskLow
	}

	fractions, pct := Normalize(s.rawWeights(level))

	grid := make([]model.GridCell, 0, model.GridRows*model.GridCols)
	for row := 0; row < model.GridRows; row++ {
		for col := 0; col < model.GridCols; col++ {
			bucket := PickBucket(fractions, s.uniform(100))
			grid = append(grid, model.GridCell{
				Row:        row,
				Col:        col,
				Bucket:     bucket,
				Confidence: minCellConfidence + int(s.uniform(cellConfidenceSpan)),
			})
		}
	}

	return model.Distribution{
		RiskLevel:   level,
		Percentages: pct,
		Fractions:   fractions,
		Grid:        grid,
	}
}
