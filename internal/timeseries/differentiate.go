package timeseries

import (
	"github.com/cardiacam/cardiacam/internal/errs"
	"github.com/cardiacam/cardiacam/internal/utils"
	"gonum.org/v1/gonum/mat"
)

// Differentiate replaces every channel with its central-difference
// derivative, flattening slow illumination drift before unmixing:
//
//	Y[i] = (X[i+2] - X[i]) / (t[i+2] - t[i]),  timestamp t[i+1]
//
// The result is two samples shorter than the input.
func Differentiate(ts *TimeSeries) (*TimeSeries, error) {
	n := ts.Len()
	if n < utils.MinDifferentiateSamples {
		return nil, errs.InsufficientData("differentiate",
			"need at least %d samples, have %d", utils.MinDifferentiateSamples, n)
	}

	c := ts.Channels()
	t := make([]float64, n-2)
	y := mat.NewDense(n-2, c, nil)
	for i := 0; i < n-2; i++ {
		t[i] = ts.T[i+1]
		dt := ts.T[i+2] - ts.T[i]
		before := ts.X.RawRowView(i)
		after := ts.X.RawRowView(i + 2)
		row := y.RawRowView(i)
		for j := 0; j < c; j++ {
			row[j] = (after[j] - before[j]) / dt
		}
	}

	return &TimeSeries{T: t, X: y}, nil
}
