package model

import "fmt"

// Bucket is one band of the synthetic risk-density panel, ordered from the
// most to the least severe.
type Bucket int

const (
	VeryHigh Bucket = iota
	High
	Medium
	Low
	VeryLow
)

const NumBuckets = 5

var bucketNames = [NumBuckets]string{"veryHigh", "high", "medium", "low", "veryLow"}

func Buckets() []Bucket {
	return []Bucket{VeryHigh, High, Medium, Low, VeryLow}
}

func (b Bucket) String() string {
	if b < 0 || int(b) >= NumBuckets {
		return fmt.Sprintf("Bucket(%d)", int(b))
	}
	return bucketNames[b]
}

func (b Bucket) MarshalText() ([]byte, error) {
	if b < 0 || int(b) >= NumBuckets {
		return nil, fmt.Errorf("invalid bucket %d", int(b))
	}
	return []byte(bucketNames[b]), nil
}

func (b *Bucket) UnmarshalText(text []byte) error {
	for i, n := range bucketNames {
		if n == string(text) {
			*b = Bucket(i)
			return nil
		}
	}
	return fmt.Errorf("unknown bucket %q", string(text))
}

const (
	GridRows = 8
	GridCols = 12
)

type GridCell struct {
	Row        int    `json:"row"`
	Col        int    `json:"col"`
	Bucket     Bucket `json:"risk"`
	Confidence int    `json:"confidence"`
}

// Percentages are the rounded display shares. They are rounded one by one and
// may not add up to exactly 100.
type Percentages struct {
	VeryHigh int `json:"veryHigh"`
	High     int `json:"high"`
	Medium   int `json:"medium"`
	Low      int `json:"low"`
	VeryLow  int `json:"veryLow"`
}

func (p Percentages) Get(b Bucket) int {
	switch b {
	case VeryHigh:
		return p.VeryHigh
	case High:
		return p.High
	case Medium:
		return p.Medium
	case Low:
		return p.Low
	case VeryLow:
		return p.VeryLow
	}
	return 0
}

func (p Percentages) Sum() int {
	return p.VeryHigh + p.High + p.Medium + p.Low + p.VeryLow
}

// Distribution is the output of one synthesis call. Fractions hold the
// unrounded normalized shares (summing to 1) used for sampling.
type Distribution struct {
	RiskLevel   RiskLevel           `json:"riskLevel"`
	Percentages Percentages         `json:"percentages"`
	Fractions   [NumBuckets]float64 `json:"fractions"`
	Grid        []GridCell          `json:"grid"`
}
