// Package timeseries holds the multichannel RGB time series and the
// conditioning stages applied to it before unmixing: loading, gap detection,
// transient trimming, range exclusion and differentiation.
//
// Every stage returns a new TimeSeries; inputs are never modified.
package timeseries

import (
	"math"

	"github.com/cardiacam/cardiacam/internal/errs"
	"github.com/cardiacam/cardiacam/internal/utils"
	"gonum.org/v1/gonum/mat"
)

// TimeSeries is an ordered set of samples sharing one timestamp vector.
// Row i of X is the sample taken at T[i].
type TimeSeries struct {
	T []float64
	X *mat.Dense
}

// New validates and wraps t and x. Timestamps must be strictly increasing and
// x must have one row per timestamp.
func New(t []float64, x *mat.Dense) (*TimeSeries, error) {
	if len(t) == 0 || x == nil {
		return nil, errs.InsufficientData("", "empty time series")
	}
	r, _ := x.Dims()
	if r != len(t) {
		return nil, errs.Format("", "%d timestamps for %d samples", len(t), r)
	}
	for i := 1; i < len(t); i++ {
		if !(t[i] > t[i-1]) {
			return nil, errs.Format("", "timestamps not strictly increasing at sample %d (%.16g after %.16g)", i, t[i], t[i-1])
		}
	}
	return &TimeSeries{T: t, X: x}, nil
}

// Len returns the number of samples
func (ts *TimeSeries) Len() int {
	return len(ts.T)
}

// Channels returns the number of channels per sample
func (ts *TimeSeries) Channels() int {
	_, c := ts.X.Dims()
	return c
}

// Regions returns the number of RGB triples per sample
func (ts *TimeSeries) Regions() int {
	return ts.Channels() / utils.ChannelsPerRegion
}

// Start returns the first timestamp
func (ts *TimeSeries) Start() float64 {
	return ts.T[0]
}

// End returns the last timestamp
func (ts *TimeSeries) End() float64 {
	return ts.T[len(ts.T)-1]
}

// Span returns the time between the first and last sample
func (ts *TimeSeries) Span() float64 {
	return ts.End() - ts.Start()
}

// Slice returns a copy of samples [lo, hi)
func (ts *TimeSeries) Slice(lo, hi int) *TimeSeries {
	t := append([]float64(nil), ts.T[lo:hi]...)
	x := mat.DenseCopyOf(ts.X.Slice(lo, hi, 0, ts.Channels()))
	return &TimeSeries{T: t, X: x}
}

// Select returns a copy holding only the listed sample indices, in order
func (ts *TimeSeries) Select(indices []int) *TimeSeries {
	c := ts.Channels()
	t := make([]float64, len(indices))
	x := mat.NewDense(len(indices), c, nil)
	for i, idx := range indices {
		t[i] = ts.T[idx]
		x.SetRow(i, ts.X.RawRowView(idx))
	}
	return &TimeSeries{T: t, X: x}
}

// Region returns a copy of the channels of RGB triple i as an n×3 matrix
func (ts *TimeSeries) Region(i int) *mat.Dense {
	lo := i * utils.ChannelsPerRegion
	return mat.DenseCopyOf(ts.X.Slice(0, ts.Len(), lo, lo+utils.ChannelsPerRegion))
}

// SumRegions returns the channel-wise sum of all RGB triples as an n×3 matrix
func (ts *TimeSeries) SumRegions() *mat.Dense {
	sum := ts.Region(0)
	for i := 1; i < ts.Regions(); i++ {
		sum.Add(sum, ts.Region(i))
	}
	return sum
}

// Deltas returns the forward differences of the timestamps
func (ts *TimeSeries) Deltas() []float64 {
	return deltas(ts.T)
}

func deltas(t []float64) []float64 {
	if len(t) < 2 {
		return nil
	}
	d := make([]float64, len(t)-1)
	for i := range d {
		d[i] = t[i+1] - t[i]
	}
	return d
}

// Finite reports whether every sample value is finite
func (ts *TimeSeries) Finite() bool {
	for i := 0; i < ts.Len(); i++ {
		for _, v := range ts.X.RawRowView(i) {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return false
			}
		}
	}
	return true
}
