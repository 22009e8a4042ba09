package ica

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// testMixing maps sources (pulse, uniform noise, Laplacian noise) to
// red, green and blue channels
var testMixing = mat.NewDense(3, 3, []float64{
	0.3, 0.2, 1.0,
	-1.0, 0.3, 0.2,
	0.2, 1.0, 0.3,
})

// syntheticSources returns n samples of a 1.2 Hz sine sampled at 30 Hz, a
// unit-variance uniform source and a unit-variance Laplacian source
func syntheticSources(n int, seed int64) *mat.Dense {
	rnd := rand.New(rand.NewSource(seed))
	s := mat.NewDense(n, 3, nil)
	for i := 0; i < n; i++ {
		t := float64(i) / 30
		s.Set(i, 0, math.Sin(2*math.Pi*1.2*t))
		s.Set(i, 1, (rnd.Float64()*2-1)*math.Sqrt(3))
		u := rnd.Float64() - 0.5
		lap := -math.Copysign(1, u) * math.Log(1-2*math.Abs(u)) / math.Sqrt2
		s.Set(i, 2, lap)
	}
	return s
}

// mixed returns sources·Aᵀ, one channel per column
func mixed(s *mat.Dense) *mat.Dense {
	var x mat.Dense
	x.Mul(s, testMixing.T())
	return &x
}

func absCorrelation(a, b []float64) float64 {
	return math.Abs(correlation(a, b))
}

func correlation(a, b []float64) float64 {
	return stat.Correlation(a, b, nil)
}

// bestMatch returns the largest |correlation| of src with any column of s
func bestMatch(s *mat.Dense, src []float64) float64 {
	_, c := s.Dims()
	best := 0.0
	for j := 0; j < c; j++ {
		if r := absCorrelation(mat.Col(nil, j, s), src); r > best {
			best = r
		}
	}
	return best
}

func testOptions() Options {
	opts := DefaultOptions()
	opts.MaxIter = 5000
	opts.Tol = 1e-10
	opts.Seed = 7
	return opts
}
