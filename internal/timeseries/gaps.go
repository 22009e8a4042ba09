package timeseries

import (
	"github.com/cardiacam/cardiacam/internal/utils"
)

// GapReport describes the largest sampling interval of an irregular series
type GapReport struct {
	Index  int     `json:"index"`  // Sample index at which the gap starts
	Time   float64 `json:"time"`   // Timestamp of that sample
	Delta  float64 `json:"delta"`  // Length of the interval
	Excess float64 `json:"excess"` // Delta minus the mean interval
	Spread float64 `json:"spread"` // Peak-to-peak spread of all intervals
}

// DetectGap inspects the forward differences of t. It returns nil when their
// peak-to-peak spread is within utils.GapEpsilon, otherwise the location and
// size of the largest interval (first one on ties).
func DetectGap(t []float64) *GapReport {
	d := deltas(t)
	if len(d) == 0 {
		return nil
	}

	minD, maxD := d[0], d[0]
	maxIdx := 0
	sum := 0.0
	for i, v := range d {
		sum += v
		if v < minD {
			minD = v
		}
		if v > maxD {
			maxD = v
			maxIdx = i
		}
	}

	spread := maxD - minD
	if spread <= utils.GapEpsilon {
		return nil
	}

	return &GapReport{
		Index:  maxIdx,
		Time:   t[maxIdx],
		Delta:  maxD,
		Excess: maxD - sum/float64(len(d)),
		Spread: spread,
	}
}
