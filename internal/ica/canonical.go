package ica

import (
	"fmt"
	"math"

	"github.com/cardiacam/cardiacam/internal/errs"
	"github.com/cardiacam/cardiacam/internal/logging"
	"github.com/cardiacam/cardiacam/internal/utils"
	"gonum.org/v1/gonum/mat"
)

const canonicalStage = "canonicalize"

// Rows of the unmixing matrix for an RGB input
const (
	redRow   = 0
	greenRow = 1
	blueRow  = 2
)

// Order records a column permutation and sign flip. Column j of the
// reordered matrix is Sign[j] times column Perm[j] of the original.
type Order struct {
	Perm []int     `json:"perm"`
	Sign []float64 `json:"sign"`
}

// IdentityOrder returns the order that leaves c columns unchanged
func IdentityOrder(c int) Order {
	o := Order{Perm: make([]int, c), Sign: make([]float64, c)}
	for i := range o.Perm {
		o.Perm[i] = i
		o.Sign[i] = 1
	}
	return o
}

// roll cyclically shifts columns [from, from+width) so that column from+shift
// moves to slot from
func (o Order) roll(from, width, shift int) Order {
	perm := append([]int(nil), o.Perm...)
	sign := append([]float64(nil), o.Sign...)
	for j := 0; j < width; j++ {
		src := from + (j+shift)%width
		perm[from+j] = o.Perm[src]
		sign[from+j] = o.Sign[src]
	}
	return Order{Perm: perm, Sign: sign}
}

func (o Order) negate(j int) {
	o.Sign[j] = -o.Sign[j]
}

// ApplyColumns returns a copy of m with its columns reordered and signed
func (o Order) ApplyColumns(m mat.Matrix) *mat.Dense {
	r, c := m.Dims()
	out := mat.NewDense(r, c, nil)
	for j := 0; j < c; j++ {
		src, sign := o.Perm[j], o.Sign[j]
		for i := 0; i < r; i++ {
			out.Set(i, j, sign*m.At(i, src))
		}
	}
	return out
}

// CanonicalOrder computes the reordering that puts an RGB unmixing matrix u
// into canonical form:
//
//  1. the component with the largest |green| weight is rolled to column 0
//  2. of the remaining two, the one with the largest |blue| weight is rolled
//     to column 1
//  3. column 0 gets a negative green weight, column 1 a positive blue weight
//     and column 2 a positive red weight
//
// Ties resolve to the first maximum. Zero weights are left unflipped.
func CanonicalOrder(u mat.Matrix) (Order, error) {
	r, c := u.Dims()
	if r != utils.ChannelsPerRegion || c != utils.DefaultComponents {
		return Order{}, errs.Format(canonicalStage, "canonical ordering needs a 3x3 unmixing matrix, got %dx%d", r, c)
	}

	order := IdentityOrder(c)

	green := mat.Row(nil, greenRow, u)
	order = order.roll(0, c, utils.ArgMaxAbs(green))

	current := order.ApplyColumns(u)
	blue := mat.Row(nil, blueRow, current)
	order = order.roll(1, c-1, utils.ArgMaxAbs(blue[1:]))

	current = order.ApplyColumns(u)
	if current.At(greenRow, 0) > 0 {
		order.negate(0)
	}
	if current.At(blueRow, 1) < 0 {
		order.negate(1)
	}
	if current.At(redRow, 2) < 0 {
		order.negate(2)
	}
	return order, nil
}

// ApplyOrder returns a copy of res with W and S reordered by o. K is shared
// across components and stays as is.
func ApplyOrder(res *MixingResult, o Order) (*MixingResult, error) {
	c := res.Components()
	if len(o.Perm) != c || len(o.Sign) != c {
		return nil, errs.Format(canonicalStage, "order covers %d columns, result has %d", len(o.Perm), c)
	}
	_, sc := res.S.Dims()
	if sc != c {
		return nil, errs.InternalConsistency(canonicalStage, "sources have %d columns, separating matrix %d", sc, c)
	}
	return &MixingResult{
		K:          mat.DenseCopyOf(res.K),
		W:          o.ApplyColumns(res.W),
		S:          o.ApplyColumns(res.S),
		Iterations: res.Iterations,
		Converged:  res.Converged,
	}, nil
}

// Unmix applies the unmixing matrix u to the centered columns of x
func Unmix(u mat.Matrix, x mat.Matrix) (*mat.Dense, error) {
	_, xc := x.Dims()
	ur, _ := u.Dims()
	if ur != xc {
		return nil, errs.Format("", "unmixing matrix has %d rows for %d channels", ur, xc)
	}
	var s mat.Dense
	s.Mul(utils.Center(x), u)
	return &s, nil
}

// Canonicalize puts res into canonical order and verifies the reordered
// matrices against the ICA input x. The final unmixing matrix is logged.
func Canonicalize(res *MixingResult, x mat.Matrix, logger *logging.Logger) (*MixingResult, Order, error) {
	u := res.Unmixing()
	order, err := CanonicalOrder(u)
	if err != nil {
		return nil, Order{}, err
	}

	out, err := ApplyOrder(res, order)
	if err != nil {
		return nil, Order{}, err
	}

	if err := CheckConsistency(out, order.ApplyColumns(u), x); err != nil {
		return nil, Order{}, err
	}

	if logger != nil {
		logger.Info("unmixing matrix",
			"u", MatrixRows(out.Unmixing()),
			"perm", order.Perm,
			"sign", order.Sign,
			"iterations", res.Iterations)
	}
	return out, order, nil
}

// CheckConsistency verifies K·W = u and (x − mean(x))·u = S.
//
// K·W is compared to u at the relative tolerance utils.ConsistencyTolerance.
// S was computed as ((x − mean(x))·K)·W, which rounds differently from
// (x − mean(x))·u by up to about m·eps·‖x − mean(x)‖·‖K‖·‖W‖ (infinity
// norms, m channels). That gap grows with the condition of K on nearly
// singular input, so the sources are held to the larger of the relative
// tolerance and that rounding bound.
func CheckConsistency(res *MixingResult, u mat.Matrix, x mat.Matrix) error {
	kw := res.Unmixing()
	if e := utils.RelativeError(kw, u); !(e <= utils.ConsistencyTolerance) {
		return errs.NewWithDetails(errs.KindInternalConsistency, canonicalStage,
			"reordered whitening and separating matrices do not reproduce the unmixing matrix",
			map[string]interface{}{"relative_error": e})
	}

	_, xc := x.Dims()
	ur, _ := u.Dims()
	if ur != xc {
		return errs.Format(canonicalStage, "unmixing matrix has %d rows for %d channels", ur, xc)
	}
	centered := utils.Center(x)
	var s mat.Dense
	s.Mul(centered, u)

	diff := utils.MaxAbsDiff(&s, res.S)
	tol := sourcesTolerance(centered, res.K, res.W, res.S)
	if !(diff <= tol) {
		return errs.NewWithDetails(errs.KindInternalConsistency, canonicalStage,
			fmt.Sprintf("unmixing the input does not reproduce the sources (difference %.3g, tolerance %.3g)", diff, tol),
			map[string]interface{}{"difference": diff, "tolerance": tol})
	}
	return nil
}

// sourcesTolerance returns the absolute tolerance between S and
// (x − mean(x))·U for S = ((x − mean(x))·K)·W
func sourcesTolerance(centered, k, w, s mat.Matrix) float64 {
	_, m := centered.Dims()
	inf := math.Inf(1)
	rounding := utils.RoundingSlack * float64(m) * utils.MachineEpsilon *
		mat.Norm(centered, inf) * mat.Norm(k, inf) * mat.Norm(w, inf)
	relative := utils.ConsistencyTolerance * math.Max(1, utils.MaxAbs(s))
	return math.Max(relative, rounding)
}
