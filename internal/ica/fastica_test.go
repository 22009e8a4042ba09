package ica

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/cardiacam/cardiacam/internal/errs"
	"github.com/cardiacam/cardiacam/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestFastICA_Registered(t *testing.T) {
	sep, err := GetSeparator("fastica")
	require.NoError(t, err)
	assert.Equal(t, "fastica", sep.Name())
	assert.Contains(t, ListSeparators(), "fastica")

	_, err = GetSeparator("jade")
	assert.Error(t, err)
}

func TestFastICA_RecoversSources(t *testing.T) {
	src := syntheticSources(2000, 1)
	x := mixed(src)

	for _, alg := range []Algorithm{Parallel, Deflation} {
		t.Run(string(alg), func(t *testing.T) {
			opts := testOptions()
			opts.Algorithm = alg

			res, err := (&FastICA{}).Separate(context.Background(), x, opts)
			require.NoError(t, err)
			assert.True(t, res.Converged)

			for k := 0; k < 3; k++ {
				assert.Greater(t, bestMatch(res.S, mat.Col(nil, k, src)), 0.99, "source %d", k)
			}
		})
	}
}

func TestFastICA_Contrasts(t *testing.T) {
	x := mixed(syntheticSources(2000, 2))

	for _, name := range []string{"exp", "logcosh", "cube"} {
		t.Run(name, func(t *testing.T) {
			opts := testOptions()
			opts.Contrast = name

			res, err := (&FastICA{}).Separate(context.Background(), x, opts)
			require.NoError(t, err)
			assert.Equal(t, 3, res.Components())
		})
	}

	opts := testOptions()
	opts.Contrast = "sigmoid"
	_, err := (&FastICA{}).Separate(context.Background(), x, opts)
	assert.True(t, errors.Is(err, errs.ErrFormat))
}

func TestFastICA_Relations(t *testing.T) {
	x := mixed(syntheticSources(1500, 3))
	res, err := (&FastICA{}).Separate(context.Background(), x, testOptions())
	require.NoError(t, err)

	n, _ := x.Dims()
	xc := utils.Center(x)

	// Whitened data has identity covariance
	var z, cov mat.Dense
	z.Mul(xc, res.K)
	cov.Mul(z.T(), &z)
	cov.Scale(1/float64(n), &cov)
	assert.Less(t, utils.MaxAbsDiff(&cov, eye(3)), 1e-9)

	// W is orthogonal
	var wtw mat.Dense
	wtw.Mul(res.W.T(), res.W)
	assert.Less(t, utils.MaxAbsDiff(&wtw, eye(3)), 1e-9)

	// S = (X − mean)·K·W
	s, err := Unmix(res.Unmixing(), x)
	require.NoError(t, err)
	assert.Less(t, utils.RelativeError(s, res.S), 1e-12)
}

func TestFastICA_Deterministic(t *testing.T) {
	x := mixed(syntheticSources(1000, 4))

	a, err := (&FastICA{}).Separate(context.Background(), x, testOptions())
	require.NoError(t, err)
	b, err := (&FastICA{}).Separate(context.Background(), x, testOptions())
	require.NoError(t, err)

	assert.True(t, mat.Equal(a.W, b.W))
	assert.True(t, mat.Equal(a.S, b.S))
}

func TestFastICA_WarmStart(t *testing.T) {
	x := mixed(syntheticSources(1500, 5))
	sep := &FastICA{}

	cold, err := sep.Separate(context.Background(), x, testOptions())
	require.NoError(t, err)

	opts := testOptions()
	opts.Init = cold.W
	warm, err := sep.Separate(context.Background(), x, opts)
	require.NoError(t, err)

	assert.Less(t, warm.Iterations, 10)

	// Sub-Gaussian components may flip sign between fixed-point steps
	abs := func(m *mat.Dense) *mat.Dense {
		out := mat.DenseCopyOf(m)
		out.Apply(func(i, j int, v float64) float64 { return math.Abs(v) }, out)
		return out
	}
	assert.Less(t, utils.MaxAbsDiff(abs(warm.W), abs(cold.W)), 1e-8)
}

func TestFastICA_IterationCap(t *testing.T) {
	x := mixed(syntheticSources(1000, 6))
	opts := testOptions()
	opts.MaxIter = 1
	opts.Tol = 1e-14

	res, err := (&FastICA{}).Separate(context.Background(), x, opts)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrConvergence))
	require.NotNil(t, res, "last iterate must be returned")
	assert.False(t, res.Converged)
	assert.Equal(t, 1, res.Iterations)

	var e *errs.Error
	require.True(t, errors.As(err, &e))
	assert.False(t, e.Fatal())
	assert.Equal(t, 1, e.Details["iterations"])
}

func TestFastICA_Cancelled(t *testing.T) {
	x := mixed(syntheticSources(500, 7))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := (&FastICA{}).Separate(ctx, x, testOptions())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFastICA_InvalidInput(t *testing.T) {
	good := mixed(syntheticSources(200, 8))

	dependent := mat.DenseCopyOf(good)
	for i := 0; i < 200; i++ {
		dependent.Set(i, 2, 2*dependent.At(i, 0)-dependent.At(i, 1))
	}

	constant := mat.NewDense(50, 3, nil)
	constant.Apply(func(i, j int, v float64) float64 { return 4 }, constant)

	withNaN := mat.DenseCopyOf(good)
	withNaN.Set(10, 1, math.NaN())

	badInit := testOptions()
	badInit.Init = mat.NewDense(2, 2, []float64{1, 0, 0, 1})

	tooMany := testOptions()
	tooMany.Components = 4

	noIter := testOptions()
	noIter.MaxIter = 0

	tests := []struct {
		name string
		x    mat.Matrix
		opts Options
		want error
	}{
		{"linearly dependent", dependent, testOptions(), errs.ErrInsufficientData},
		{"no variance", constant, testOptions(), errs.ErrInsufficientData},
		{"too few samples", good.Slice(0, 3, 0, 3), testOptions(), errs.ErrInsufficientData},
		{"nan", withNaN, testOptions(), errs.ErrFormat},
		{"init shape", good, badInit, errs.ErrFormat},
		{"too many components", good, tooMany, errs.ErrFormat},
		{"zero iterations", good, noIter, errs.ErrFormat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := (&FastICA{}).Separate(context.Background(), tt.x, tt.opts)
			assert.Nil(t, res)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}
}

func eye(n int) *mat.Dense {
	m := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		m.Set(i, i, 1)
	}
	return m
}
