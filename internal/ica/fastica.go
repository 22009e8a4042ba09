package ica

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sort"

	"github.com/cardiacam/cardiacam/internal/errs"
	"github.com/cardiacam/cardiacam/internal/utils"
	"gonum.org/v1/gonum/mat"
)

func init() {
	RegisterSeparator("fastica", &FastICA{})
}

// FastICA implements the fixed-point ICA algorithm of Hyvärinen and Oja on
// whitened data.
type FastICA struct{}

// Name returns the separator name
func (f *FastICA) Name() string {
	return "fastica"
}

// Separate unmixes x (samples × channels). When MaxIter is reached before Tol
// is met, the last iterate is returned together with a ConvergenceError.
func (f *FastICA) Separate(ctx context.Context, x mat.Matrix, opts Options) (*MixingResult, error) {
	n, m := x.Dims()
	comp := opts.Components
	if comp == 0 {
		comp = m
	}
	if err := validateInput(x, n, m, comp, opts); err != nil {
		return nil, err
	}

	contrast, err := GetContrast(opts.Contrast)
	if err != nil {
		return nil, errs.Format("", "%v", err)
	}

	xc := utils.Center(x)
	k, err := whitening(xc, comp)
	if err != nil {
		return nil, err
	}

	var z mat.Dense
	z.Mul(xc, k)

	w0 := initialW(opts, comp)

	var (
		w     *mat.Dense
		iters int
		last  float64
	)
	switch opts.Algorithm {
	case Parallel, "":
		w, iters, last, err = parallelICA(ctx, &z, w0, contrast, opts)
	case Deflation:
		w, iters, last, err = deflationICA(ctx, &z, w0, contrast, opts)
	default:
		return nil, errs.Format("", "unknown algorithm: %s", opts.Algorithm)
	}
	if err != nil {
		return nil, err
	}

	var s mat.Dense
	s.Mul(&z, w)

	res := &MixingResult{
		K:          k,
		W:          w,
		S:          &s,
		Iterations: iters,
		Converged:  last < opts.Tol,
	}
	if !res.Converged {
		return res, errs.NewWithDetails(errs.KindConvergence, "",
			fmt.Sprintf("did not converge after %d iterations", iters),
			map[string]interface{}{
				"iterations":  iters,
				"tolerance":   opts.Tol,
				"last_change": last,
			})
	}
	return res, nil
}

func validateInput(x mat.Matrix, n, m, comp int, opts Options) error {
	if comp < 1 || comp > m {
		return errs.Format("", "cannot extract %d components from %d channels", comp, m)
	}
	if n <= comp {
		return errs.InsufficientData("", "%d samples are too few to separate %d components", n, comp)
	}
	if opts.MaxIter < 1 {
		return errs.Format("", "max iterations must be positive, got %d", opts.MaxIter)
	}
	if !(opts.Tol > 0) {
		return errs.Format("", "tolerance must be positive, got %g", opts.Tol)
	}
	if opts.Init != nil {
		r, c := opts.Init.Dims()
		if r != comp || c != comp {
			return errs.Format("", "initial matrix is %dx%d, expected %dx%d", r, c, comp, comp)
		}
	}
	for i := 0; i < n; i++ {
		for j := 0; j < m; j++ {
			if v := x.At(i, j); math.IsNaN(v) || math.IsInf(v, 0) {
				return errs.Format("", "non-finite value at sample %d channel %d", i, j)
			}
		}
	}
	return nil
}

// whitening returns K (channels × comp) such that the columns of xc·K are
// uncorrelated with unit variance. Components are ordered by decreasing
// variance and each eigenvector's largest entry is made positive.
func whitening(xc *mat.Dense, comp int) (*mat.Dense, error) {
	n, m := xc.Dims()

	var cov mat.SymDense
	cov.SymOuterK(1/float64(n), xc.T())

	var es mat.EigenSym
	if ok := es.Factorize(&cov, true); !ok {
		return nil, errs.InsufficientData("", "covariance eigendecomposition failed")
	}
	values := es.Values(nil)
	var vectors mat.Dense
	es.VectorsTo(&vectors)

	order := make([]int, m)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return values[order[a]] > values[order[b]]
	})

	largest := values[order[0]]
	if !(largest > 0) {
		return nil, errs.InsufficientData("", "input has no variance")
	}

	k := mat.NewDense(m, comp, nil)
	for j := 0; j < comp; j++ {
		idx := order[j]
		lambda := values[idx]
		if lambda <= utils.SingularEigenvalue*largest {
			return nil, errs.NewWithDetails(errs.KindInsufficientData, "",
				"input channels are linearly dependent",
				map[string]interface{}{"eigenvalue": lambda, "largest_eigenvalue": largest})
		}
		col := mat.Col(nil, idx, &vectors)
		if col[utils.ArgMaxAbs(col)] < 0 {
			for i := range col {
				col[i] = -col[i]
			}
		}
		scale := 1 / math.Sqrt(lambda)
		for i, v := range col {
			k.Set(i, j, v*scale)
		}
	}
	return k, nil
}

// initialW returns the warm start or a seeded standard normal matrix
func initialW(opts Options, comp int) *mat.Dense {
	if opts.Init != nil {
		return mat.DenseCopyOf(opts.Init)
	}
	rnd := rand.New(rand.NewSource(opts.Seed))
	data := make([]float64, comp*comp)
	for i := range data {
		data[i] = rnd.NormFloat64()
	}
	return mat.NewDense(comp, comp, data)
}

// parallelICA runs the symmetric fixed-point update on whitened z. Column j of
// the returned W is the weight vector of component j.
func parallelICA(ctx context.Context, z *mat.Dense, w0 *mat.Dense, g Contrast, opts Options) (*mat.Dense, int, float64, error) {
	n, _ := z.Dims()
	_, comp := w0.Dims()

	w, err := symmetricDecorrelation(w0)
	if err != nil {
		return nil, 0, 0, err
	}

	y := mat.NewDense(n, comp, nil)
	gy := mat.NewDense(n, comp, nil)
	dgMean := make([]float64, comp)
	wNew := mat.NewDense(comp, comp, nil)

	last := math.Inf(1)
	iters := 0
	for iters < opts.MaxIter {
		if err := ctx.Err(); err != nil {
			return nil, iters, last, err
		}
		iters++

		y.Mul(z, w)
		for j := range dgMean {
			dgMean[j] = 0
		}
		for i := 0; i < n; i++ {
			for j := 0; j < comp; j++ {
				gv, dg := g.Eval(y.At(i, j))
				gy.Set(i, j, gv)
				dgMean[j] += dg
			}
		}

		wNew.Mul(z.T(), gy)
		wNew.Apply(func(i, j int, v float64) float64 {
			return v/float64(n) - dgMean[j]/float64(n)*w.At(i, j)
		}, wNew)

		decorrelated, err := symmetricDecorrelation(wNew)
		if err != nil {
			return nil, iters, last, err
		}

		last = 0
		for j := 0; j < comp; j++ {
			dot := mat.Dot(decorrelated.ColView(j), w.ColView(j))
			if d := math.Abs(math.Abs(dot) - 1); d > last {
				last = d
			}
		}
		w = decorrelated

		if last < opts.Tol {
			break
		}
	}
	return w, iters, last, nil
}

// deflationICA estimates components one at a time, keeping each orthogonal to
// the ones already found. The reported change is the worst over components.
func deflationICA(ctx context.Context, z *mat.Dense, w0 *mat.Dense, g Contrast, opts Options) (*mat.Dense, int, float64, error) {
	n, dim := z.Dims()
	_, comp := w0.Dims()

	w := mat.NewDense(dim, comp, nil)
	y := mat.NewVecDense(n, nil)
	gy := mat.NewVecDense(n, nil)

	maxIters := 0
	worst := 0.0
	for j := 0; j < comp; j++ {
		cur := mat.VecDenseCopyOf(w0.ColView(j))
		gramSchmidt(cur, w, j)
		if err := normalize(cur); err != nil {
			return nil, 0, 0, err
		}

		last := math.Inf(1)
		iters := 0
		for iters < opts.MaxIter {
			if err := ctx.Err(); err != nil {
				return nil, iters, last, err
			}
			iters++

			y.MulVec(z, cur)
			dgMean := 0.0
			for i := 0; i < n; i++ {
				gv, dg := g.Eval(y.AtVec(i))
				gy.SetVec(i, gv)
				dgMean += dg
			}
			dgMean /= float64(n)

			next := mat.NewVecDense(dim, nil)
			next.MulVec(z.T(), gy)
			next.AddScaledVec(next, -float64(n)*dgMean, cur)
			next.ScaleVec(1/float64(n), next)

			gramSchmidt(next, w, j)
			if err := normalize(next); err != nil {
				return nil, iters, last, err
			}

			last = math.Abs(math.Abs(mat.Dot(next, cur)) - 1)
			cur = next
			if last < opts.Tol {
				break
			}
		}

		w.SetCol(j, cur.RawVector().Data)
		if iters > maxIters {
			maxIters = iters
		}
		if last > worst {
			worst = last
		}
	}
	return w, maxIters, worst, nil
}

// symmetricDecorrelation returns W·(WᵀW)^{-1/2}
func symmetricDecorrelation(w *mat.Dense) (*mat.Dense, error) {
	_, c := w.Dims()

	var gram mat.SymDense
	gram.SymOuterK(1, w.T())

	var es mat.EigenSym
	if ok := es.Factorize(&gram, true); !ok {
		return nil, errs.InternalConsistency("", "decorrelation eigendecomposition failed")
	}
	values := es.Values(nil)
	var vectors mat.Dense
	es.VectorsTo(&vectors)

	invSqrt := mat.NewDiagDense(c, nil)
	for i, v := range values {
		if !(v > 0) {
			return nil, errs.InsufficientData("", "separating matrix became singular")
		}
		invSqrt.SetDiag(i, 1/math.Sqrt(v))
	}

	var root, tmp mat.Dense
	tmp.Mul(&vectors, invSqrt)
	root.Mul(&tmp, vectors.T())

	var out mat.Dense
	out.Mul(w, &root)
	return &out, nil
}

// gramSchmidt removes from v its projection on the first j columns of w
func gramSchmidt(v *mat.VecDense, w *mat.Dense, j int) {
	for k := 0; k < j; k++ {
		col := w.ColView(k)
		v.AddScaledVec(v, -mat.Dot(v, col), col)
	}
}

func normalize(v *mat.VecDense) error {
	norm := mat.Norm(v, 2)
	if !(norm > 0) {
		return errs.InsufficientData("", "weight vector vanished")
	}
	v.ScaleVec(1/norm, v)
	return nil
}
