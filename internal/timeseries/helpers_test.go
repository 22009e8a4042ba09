package timeseries

import (
	"fmt"
	"strings"

	"gonum.org/v1/gonum/mat"
)

// uniformSeries builds n samples at rate Hz starting at t0 with value(i, j)
// in channel j
func uniformSeries(n, channels int, rate, t0 float64, value func(i, j int) float64) *TimeSeries {
	t := make([]float64, n)
	x := mat.NewDense(n, channels, nil)
	for i := 0; i < n; i++ {
		t[i] = t0 + float64(i)/rate
		for j := 0; j < channels; j++ {
			x.Set(i, j, value(i, j))
		}
	}
	return &TimeSeries{T: t, X: x}
}

// formatTable renders a series in the loader's text format
func formatTable(t []float64, x mat.Matrix) string {
	var b strings.Builder
	_, c := x.Dims()
	for i, ti := range t {
		fmt.Fprintf(&b, "%.16g", ti)
		for j := 0; j < c; j++ {
			fmt.Fprintf(&b, " %.16g", x.At(i, j))
		}
		b.WriteByte('\n')
	}
	return b.String()
}
