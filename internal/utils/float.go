package utils

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// ArgMaxAbs returns the index of the first element with the largest absolute
// value, or -1 for an empty slice.
func ArgMaxAbs(values []float64) int {
	idx := -1
	best := math.Inf(-1)
	for i, v := range values {
		if a := math.Abs(v); a > best {
			best = a
			idx = i
		}
	}
	return idx
}

// MaxAbs returns the largest absolute element of m
func MaxAbs(m mat.Matrix) float64 {
	r, c := m.Dims()
	maxv := 0.0
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			if a := math.Abs(m.At(i, j)); a > maxv {
				maxv = a
			}
		}
	}
	return maxv
}

// MaxAbsDiff returns the largest absolute elementwise difference of a and b.
// Mismatched shapes yield +Inf.
func MaxAbsDiff(a, b mat.Matrix) float64 {
	ar, ac := a.Dims()
	br, bc := b.Dims()
	if ar != br || ac != bc {
		return math.Inf(1)
	}
	maxv := 0.0
	for i := 0; i < ar; i++ {
		for j := 0; j < ac; j++ {
			d := math.Abs(a.At(i, j) - b.At(i, j))
			if math.IsNaN(d) {
				return math.Inf(1)
			}
			if d > maxv {
				maxv = d
			}
		}
	}
	return maxv
}

// RelativeError returns MaxAbsDiff(got, want) scaled by the magnitude of want.
// The scale never drops below 1 so values near zero are compared absolutely.
func RelativeError(got, want mat.Matrix) float64 {
	return MaxAbsDiff(got, want) / math.Max(1, MaxAbs(want))
}

// ColumnMeans returns the mean of every column of m
func ColumnMeans(m mat.Matrix) []float64 {
	r, c := m.Dims()
	means := make([]float64, c)
	if r == 0 {
		return means
	}
	for j := 0; j < c; j++ {
		sum := 0.0
		for i := 0; i < r; i++ {
			sum += m.At(i, j)
		}
		means[j] = sum / float64(r)
	}
	return means
}

// Center returns a copy of m with every column's mean subtracted
func Center(m mat.Matrix) *mat.Dense {
	r, c := m.Dims()
	means := ColumnMeans(m)
	out := mat.NewDense(r, c, nil)
	out.Apply(func(i, j int, v float64) float64 {
		return v - means[j]
	}, m)
	return out
}
